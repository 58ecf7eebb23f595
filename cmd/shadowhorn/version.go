package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of shadowhorn",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("shadowhorn %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
