package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lanbilling/lanbot/core/buildinfo"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("lanbot %s (%s)", buildinfo.Version, buildinfo.Commit)
		if buildinfo.Date != "" {
			fmt.Printf(" built %s", buildinfo.Date)
		}
		fmt.Println()
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
