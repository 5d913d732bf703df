package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/catchlog/internal/app"
	"github.com/Lllllllleong/catchlog/internal/config"
	"github.com/Lllllllleong/catchlog/internal/httpapi"
)

var (
	handler http.Handler
	once    sync.Once
	initErr error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// "HandleIdentify" is the entry point name configured in GCP.
	functions.HTTP("HandleIdentify", handleIdentify)
}

// main is required by the Go Functions Framework.
func main() {}

func handleIdentify(w http.ResponseWriter, r *http.Request) {
	// Clients are created on the first request and reused afterwards.
	once.Do(func() {
		cfg, err := config.Load()
		if err != nil {
			initErr = err
			return
		}
		a, err := app.New(context.Background(), cfg)
		if err != nil {
			initErr = err
			return
		}
		handler = httpapi.IdentifyHandler(a.Identifier, cfg.APIBaseURL)
	})
	if initErr != nil {
		slog.Error("Critical: Identifier initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}
	handler.ServeHTTP(w, r)
}
