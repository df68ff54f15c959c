package main

import (
	"github.com/spf13/cobra"
)

var version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		printf(cmd, "clkit version %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
