package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Lllllllleong/catchlog/internal/imaging"
	"github.com/Lllllllleong/catchlog/internal/metrics"
	"github.com/Lllllllleong/catchlog/internal/models"
)

// IdentifierConfig holds the tunables of the identification pipeline.
type IdentifierConfig struct {
	MaxLongEdge        int
	JPEGQuality        int
	DefaultDisplayName string
}

// IdentifierFunction holds the dependencies for the identification logic.
type IdentifierFunction struct {
	assets   AssetFetcher
	model    VisionModel
	profiles ProfileSource // optional
	catches  CatchWriter
	metrics  *metrics.Recorder // optional
	config   IdentifierConfig
}

// NewIdentifier wires an IdentifierFunction. profiles and rec may be nil.
func NewIdentifier(assets AssetFetcher, model VisionModel, profiles ProfileSource, catches CatchWriter, rec *metrics.Recorder, config IdentifierConfig) *IdentifierFunction {
	if config.MaxLongEdge == 0 {
		config.MaxLongEdge = imaging.DefaultMaxLongEdge
	}
	if config.JPEGQuality == 0 {
		config.JPEGQuality = imaging.DefaultQuality
	}
	return &IdentifierFunction{
		assets:   assets,
		model:    model,
		profiles: profiles,
		catches:  catches,
		metrics:  rec,
		config:   config,
	}
}

// Process runs one identification: fetch the original, downscale it, ask the
// model, parse the answer and persist a new catch record. Steps run strictly
// in order and nothing is retried. A failure after the model call loses the
// identification.
func (f *IdentifierFunction) Process(ctx context.Context, req *models.IdentifyRequest) (*models.IdentifyResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	logCtx := slog.With("userId", req.UserID, "imageKey", req.ImageURL)
	logCtx.Info("Starting identification.", "sourceMediaType", imaging.MediaTypeForKey(req.ImageURL))

	// --- 1. Fetch the original asset ---
	original, err := f.assets.Fetch(ctx, req.ImageURL)
	if err != nil {
		return nil, f.fail(logCtx, start, metrics.OutcomeFetchError, "failed to fetch image", err)
	}

	// --- 2. Downscale for the model; the stored original is untouched ---
	shrunk, err := imaging.Shrink(original, f.config.MaxLongEdge, f.config.JPEGQuality)
	if err != nil {
		return nil, f.fail(logCtx, start, metrics.OutcomeImageError, "failed to downscale image", err)
	}
	logCtx.Info("Image downscaled.", "originalBytes", len(original), "shrunkBytes", len(shrunk))

	// --- 3. Call the model once ---
	raw, err := f.model.Identify(ctx, shrunk, "image/jpeg")
	if err != nil {
		return nil, f.fail(logCtx, start, metrics.OutcomeModelError, "failed to identify fish", err)
	}

	// --- 4. Parse the answer ---
	identification, err := parseIdentification(raw)
	if err != nil {
		logCtx.Error("Unparsable model response", "error", err, "responseBody", raw)
		return nil, f.fail(logCtx, start, metrics.OutcomeParseError, "failed to parse identification", err)
	}

	// --- 5. Snapshot the profile; failure is not fatal ---
	displayName, photoURL, err := resolveProfile(ctx, f.profiles, req.UserID, f.config.DefaultDisplayName)
	if err != nil {
		logCtx.Warn("Profile lookup failed, using default display name.", "error", err)
	}

	// --- 6. Persist ---
	details := req.CatchDetails
	if details == nil {
		details = map[string]any{}
	}
	rec := &models.CatchRecord{
		UserID:          req.UserID,
		UserDisplayName: displayName,
		UserPhotoURL:    photoURL,
		ImageURL:        req.ImageDownloadURL,
		ImagePath:       req.ImageURL,
		Identification:  identification,
		CatchDetails:    details,
	}
	id, err := f.catches.Create(ctx, rec)
	if err != nil {
		return nil, f.fail(logCtx, start, metrics.OutcomePersistError, "failed to save catch", err)
	}

	f.metrics.ObserveIdentify(metrics.OutcomeSuccess, time.Since(start))
	commonName, _ := identification.CommonName()
	logCtx.Info("Identification complete.", "catchId", id, "commonName", commonName, "elapsed", time.Since(start).String())

	return &models.IdentifyResponse{
		ID:             id,
		Identification: identification,
		CatchDetails:   details,
	}, nil
}

func (f *IdentifierFunction) fail(logCtx *slog.Logger, start time.Time, outcome, message string, err error) error {
	logCtx.Error(message, "error", err, "outcome", outcome)
	f.metrics.ObserveIdentify(outcome, time.Since(start))
	return fmt.Errorf("%s: %w", message, err)
}
