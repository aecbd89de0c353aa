package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/govmeta"
	"github.com/aretw0/govmeta/pkg/anchor"
)

var hashCmd = &cobra.Command{
	Use:   "hash [location]",
	Short: "Print the blake2b-256 anchor hash of a document",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withEngine(cmd, func(ctx context.Context, e *govmeta.Engine) error {
			data, err := e.Fetch(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), anchor.Hash(data))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(hashCmd)
}
