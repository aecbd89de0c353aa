package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/aretw0/govmeta"
	"github.com/aretw0/govmeta/pkg/vocab"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [location]",
	Short: "Print the vocabulary a document's context resolves to",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withEngine(cmd, func(ctx context.Context, e *govmeta.Engine) error {
			voc, err := e.Vocabulary(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), describe(voc))
		})
	},
}

type termView struct {
	ID        string `json:"@id"`
	Type      string `json:"@type,omitempty"`
	Container string `json:"@container,omitempty"`
	Scoped    bool   `json:"scoped,omitempty"`
}

type vocabView struct {
	Vocab    string              `json:"@vocab,omitempty"`
	Base     string              `json:"@base,omitempty"`
	Language string              `json:"@language,omitempty"`
	Terms    map[string]termView `json:"terms"`
}

func describe(voc *vocab.Vocabulary) vocabView {
	view := vocabView{
		Base:     voc.Base(),
		Language: voc.Language(),
		Terms:    make(map[string]termView, voc.Len()),
	}
	view.Vocab, _ = voc.Vocab()
	for _, name := range voc.Terms() {
		t, _ := voc.Lookup(name)
		tv := termView{ID: t.IRI, Type: t.Type, Scoped: t.Nested()}
		if t.Container != vocab.ContainerNone {
			tv.Container = t.Container.String()
		}
		view.Terms[name] = tv
	}
	return view
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}
