// Package app constructs every external client once and wires the services
// shared by the Cloud Functions and the standalone server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	"firebase.google.com/go/v4/auth"

	"github.com/Lllllllleong/catchlog/internal/config"
	"github.com/Lllllllleong/catchlog/internal/gcp"
	"github.com/Lllllllleong/catchlog/internal/httpapi"
	"github.com/Lllllllleong/catchlog/internal/metrics"
	"github.com/Lllllllleong/catchlog/internal/services"
)

// visionModel is a VisionModel that holds a connection.
type visionModel interface {
	services.VisionModel
	Close() error
}

// App holds the clients and the services built on them.
type App struct {
	Config  *config.Config
	Metrics *metrics.Recorder

	Identifier *services.IdentifierFunction
	Uploader   *services.UploaderFunction
	Catches    *services.CatchService
	Backfill   *services.ProfileBackfillFunction

	auth      *auth.Client
	firestore *firestore.Client
	storage   *storage.Client
	model     visionModel
}

// New dials Firestore, Cloud Storage, Firebase Auth and the vision model.
// On error every client opened so far is closed.
func New(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	a := &App{Config: cfg, Metrics: metrics.New()}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if a.firestore, err = gcp.NewFirestoreClient(ctx, cfg.ProjectID); err != nil {
		return nil, err
	}
	if a.storage, err = storage.NewClient(ctx); err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	if a.auth, err = gcp.NewAuthClient(ctx, cfg.ProjectID); err != nil {
		return nil, err
	}

	if a.model, err = newVisionModel(ctx, cfg); err != nil {
		return nil, err
	}

	catches := gcp.NewCatchRepository(a.firestore, cfg.Collection)
	assets := gcp.NewAssetBucket(a.storage, cfg.Bucket, cfg.PublicBaseURL)

	a.Identifier = services.NewIdentifier(assets, a.model, a.auth, catches, a.Metrics, services.IdentifierConfig{
		MaxLongEdge:        cfg.MaxLongEdge,
		JPEGQuality:        cfg.JPEGQuality,
		DefaultDisplayName: cfg.DefaultDisplayName,
	})
	a.Uploader = services.NewUploader(assets)
	a.Catches = services.NewCatchService(catches, assets, a.Metrics)
	a.Backfill = services.NewProfileBackfill(catches, a.auth, services.BackfillConfig{
		Concurrency:        cfg.BackfillConcurrency,
		DefaultDisplayName: cfg.DefaultDisplayName,
	})

	slog.Info("Clients initialised.", "project", cfg.ProjectID, "bucket", cfg.Bucket, "collection", cfg.Collection)
	return a, nil
}

// newVisionModel prefers the Gemini API when a key is configured and Vertex AI
// otherwise.
func newVisionModel(ctx context.Context, cfg *config.Config) (visionModel, error) {
	if cfg.UsesAPIKey() {
		slog.Info("Using Gemini API key client.", "model", cfg.Model)
		client, err := gcp.NewGeminiAPIClient(ctx, cfg.GeminiAPIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	slog.Info("Using Vertex AI client.", "model", cfg.Model, "region", cfg.VertexAIRegion)
	client, err := gcp.NewVertexClient(ctx, cfg.ProjectID, cfg.VertexAIRegion, cfg.Model)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Server builds the standalone HTTP server over the wired services.
func (a *App) Server() *httpapi.Server {
	return httpapi.NewServer(httpapi.ServerConfig{
		Port:        a.Config.Port,
		AllowOrigin: a.Config.APIBaseURL,
	}, httpapi.Deps{
		Identifier: a.Identifier,
		Uploader:   a.Uploader,
		Catches:    a.Catches,
		Tokens:     a.auth,
		Metrics:    a.Metrics.Handler(),
	})
}

// Close releases every client that was opened.
func (a *App) Close() error {
	var errs []error
	if a.model != nil {
		errs = append(errs, a.model.Close())
	}
	if a.storage != nil {
		errs = append(errs, a.storage.Close())
	}
	if a.firestore != nil {
		errs = append(errs, a.firestore.Close())
	}
	return errors.Join(errs...)
}
