package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "lanbot",
	Short: "Telegram bot for LANBilling subscribers",
	Long:  `lanbot links Telegram accounts to LANBilling logins and handles balance, payments, and reminders over chat dialogs.`,
}

// Execute runs the CLI. A .env file next to the binary is loaded first so
// local runs can keep secrets out of the shell history.
func Execute() {
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "path to the YAML config (overrides CONFIG_PATH)")
}
