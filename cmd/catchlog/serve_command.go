package main

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Lllllllleong/catchlog/internal/app"
	"github.com/Lllllllleong/catchlog/internal/config"
)

func newServeCommand() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the standalone HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if port != 0 {
				cfg.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			err = a.Server().Start(ctx)
			if errors.Is(err, http.ErrServerClosed) {
				slog.Info("Server stopped.")
				return nil
			}
			return err
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Listen port (overrides PORT)")
	return cmd
}
