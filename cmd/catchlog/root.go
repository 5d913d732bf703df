package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Lllllllleong/catchlog/internal/config"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var textLogs bool

	rootCmd := &cobra.Command{
		Use:           "catchlog",
		Short:         "Fish photo log backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(textLogs)
			if path := strings.TrimSpace(configFlag); path != "" {
				if err := os.Setenv(config.FileEnv, path); err != nil {
					return fmt.Errorf("set %s: %w", config.FileEnv, err)
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "YAML configuration file (overrides "+config.FileEnv+")")
	rootCmd.PersistentFlags().BoolVar(&textLogs, "text-logs", false, "Log in text format instead of JSON")

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newBackfillCommand())
	rootCmd.AddCommand(newConfigCommand())

	return rootCmd
}

func setupLogging(text bool) {
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, nil)
	if text {
		handler = slog.NewTextHandler(os.Stderr, nil)
	}
	slog.SetDefault(slog.New(handler))
}
