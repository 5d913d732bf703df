package main

import (
	"github.com/spf13/cobra"

	"github.com/Lllllllleong/catchlog/internal/app"
	"github.com/Lllllllleong/catchlog/internal/config"
)

func newBackfillCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "backfill-profiles",
		Short: "Fill in display names on catches recorded without one",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			a, err := app.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Backfill.Process(ctx)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
}
