package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/govmeta"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of govmeta",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("govmeta version %s\n", strings.TrimSpace(govmeta.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
