package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/aretw0/govmeta"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize [location]",
	Short: "Print a document with every key expanded to its IRI",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withEngine(cmd, func(ctx context.Context, e *govmeta.Engine) error {
			n, err := e.LoadNode(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), n.Tree())
		})
	},
}

func init() {
	rootCmd.AddCommand(normalizeCmd)
}
