package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Lllllllleong/catchlog/internal/metrics"
	"github.com/Lllllllleong/catchlog/internal/models"
)

// CatchService is the read/update/delete surface over existing catches.
type CatchService struct {
	catches CatchStore
	assets  AssetStore
	metrics *metrics.Recorder
}

// NewCatchService wires a CatchService. rec may be nil.
func NewCatchService(catches CatchStore, assets AssetStore, rec *metrics.Recorder) *CatchService {
	return &CatchService{catches: catches, assets: assets, metrics: rec}
}

// List returns the user's catches, newest first.
func (s *CatchService) List(ctx context.Context, userID string) ([]models.CatchRecord, error) {
	return s.catches.ListByUser(ctx, userID)
}

// ListAll returns every catch for the community view, newest first.
func (s *CatchService) ListAll(ctx context.Context) ([]models.CatchRecord, error) {
	return s.catches.ListAll(ctx)
}

// Get returns one catch.
func (s *CatchService) Get(ctx context.Context, id string) (*models.CatchRecord, error) {
	return s.catches.Get(ctx, id)
}

// Update merges the editable fields of patch into the catch. Only the owner
// may edit. There is no concurrency check; the last writer wins.
func (s *CatchService) Update(ctx context.Context, callerID, id string, patch *models.CatchPatch) (*models.CatchRecord, error) {
	updates := patch.Updates()
	if len(updates) == 0 {
		return nil, models.ErrEmptyPatch
	}
	if _, err := s.owned(ctx, callerID, id); err != nil {
		return nil, err
	}
	if err := s.catches.Update(ctx, id, updates); err != nil {
		return nil, err
	}
	slog.Info("Catch updated.", "catchId", id, "userId", callerID, "fieldCount", len(updates))
	return s.catches.Get(ctx, id)
}

// Delete removes the backing asset and then the record. A missing asset is
// not an error and any other asset failure is logged and swallowed. The two
// steps are not atomic: a crash between them leaves a record whose image is
// gone.
func (s *CatchService) Delete(ctx context.Context, callerID, id string) error {
	rec, err := s.owned(ctx, callerID, id)
	if err != nil {
		return err
	}
	logCtx := slog.With("catchId", id, "userId", callerID)

	key := rec.ImagePath
	if key == "" {
		key, _ = s.assets.KeyFromURL(rec.ImageURL)
	}
	if key == "" {
		logCtx.Warn("No storage key for catch image; skipping asset delete.", "imageUrl", rec.ImageURL)
		s.metrics.ObserveDelete("missing")
	} else {
		err := s.assets.Delete(ctx, key)
		switch {
		case err == nil:
			s.metrics.ObserveDelete("deleted")
		case errors.Is(err, models.ErrAssetNotFound):
			logCtx.Info("Catch image already gone.", "imageKey", key)
			s.metrics.ObserveDelete("missing")
		default:
			logCtx.Warn("Failed to delete catch image; continuing.", "imageKey", key, "error", err)
			s.metrics.ObserveDelete("failed")
		}
	}

	if err := s.catches.Delete(ctx, id); err != nil {
		logCtx.Error("Failed to delete catch document", "error", err)
		return err
	}
	logCtx.Info("Catch deleted.")
	return nil
}

func (s *CatchService) owned(ctx context.Context, callerID, id string) (*models.CatchRecord, error) {
	rec, err := s.catches.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if callerID == "" || rec.UserID != callerID {
		return nil, fmt.Errorf("catch %s: %w", id, models.ErrForbidden)
	}
	return rec, nil
}
