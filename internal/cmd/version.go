package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rickgao/mexc-futures/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "mexcctl", version.String())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
