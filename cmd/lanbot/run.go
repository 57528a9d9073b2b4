package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	corecmd "github.com/lanbilling/lanbot/core/cmd"
	coreconfig "github.com/lanbilling/lanbot/core/config"
	"github.com/lanbilling/lanbot/core/logger"
	"github.com/lanbilling/lanbot/internal/bot"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the bot",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgPath, _ := cmd.Flags().GetString("config")
		return corecmd.Run(corecmd.Options{
			ConfigPath:        cfgPath,
			DefaultConfigPath: "configs/config.yaml",
			LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
				cfg, err := coreconfig.Load(path)
				if err != nil {
					return nil, err
				}
				if err := logger.InitLogger(cfg); err != nil {
					return nil, fmt.Errorf("logger init: %w", err)
				}
				return &bot.Config{Core: cfg}, nil
			},
			Bootstrap: func(ctx context.Context, cfg corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
				return bot.New(ctx, cfg.CoreConfig())
			},
		})
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
