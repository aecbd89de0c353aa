package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/aretw0/govmeta"
	"github.com/aretw0/govmeta/pkg/anchor"
	"github.com/aretw0/govmeta/pkg/cip100"
	"github.com/aretw0/govmeta/pkg/cip108"
	"github.com/aretw0/govmeta/pkg/project"
)

var (
	anchorHash string
)

// loadTyped loads T, verifying the anchor hash when one was given.
func loadTyped[T any, PT project.Target[T]](ctx context.Context, e *govmeta.Engine, location string) (T, error) {
	if anchorHash != "" {
		return govmeta.LoadAnchored[T, PT](ctx, e, anchor.Anchor{URL: location, DataHash: anchorHash})
	}
	return govmeta.Load[T, PT](ctx, e, location)
}

var cip100Cmd = &cobra.Command{
	Use:   "cip100 [location]",
	Short: "Load a CIP-100 governance metadata document",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withEngine(cmd, func(ctx context.Context, e *govmeta.Engine) error {
			doc, err := loadTyped[cip100.Document](ctx, e, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), doc)
		})
	},
}

var cip108Cmd = &cobra.Command{
	Use:   "cip108 [location]",
	Short: "Load a CIP-108 governance action document",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withEngine(cmd, func(ctx context.Context, e *govmeta.Engine) error {
			doc, err := loadTyped[cip108.Document](ctx, e, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), doc)
		})
	},
}

func init() {
	for _, cmd := range []*cobra.Command{cip100Cmd, cip108Cmd} {
		cmd.Flags().StringVar(&anchorHash, "anchor-hash", "", "Expected blake2b-256 hash of the document (hex)")
		rootCmd.AddCommand(cmd)
	}
}
