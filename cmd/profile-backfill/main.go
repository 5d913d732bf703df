package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/catchlog/internal/app"
	"github.com/Lllllllleong/catchlog/internal/config"
	"github.com/Lllllllleong/catchlog/internal/services"
	cloudevents "github.com/cloudevents/sdk-go/v2"
)

var (
	backfillInstance *services.ProfileBackfillFunction
	once             sync.Once
	initErr          error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Triggered by a Cloud Scheduler job publishing to Pub/Sub.
	functions.CloudEvent("BackfillProfiles", backfillProfiles)
}

// main is required by the Go Functions Framework.
func main() {}

func backfillProfiles(ctx context.Context, e cloudevents.Event) error {
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
		backfillInstance = a.Backfill
	})
	if initErr != nil {
		return fmt.Errorf("profile backfill initialization failed: %w", initErr)
	}

	slog.Info("Received backfill trigger.", "eventId", e.ID(), "source", e.Source(), "type", e.Type())
	res, err := backfillInstance.Process(ctx)
	if err != nil {
		// Returning the error makes the platform retry the event.
		return err
	}
	slog.Info("Backfill finished.", "records", res.Records, "users", res.Users, "updated", res.Updated)
	return nil
}
