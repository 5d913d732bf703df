package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"cloud.google.com/go/firestore"
	"golang.org/x/sync/errgroup"
)

// BackfillConfig holds configuration for the profile sweep.
type BackfillConfig struct {
	Concurrency        int
	DefaultDisplayName string
}

// BackfillResult summarises one sweep.
type BackfillResult struct {
	Records int `json:"records"`
	Users   int `json:"users"`
	Updated int `json:"updated"`
}

// ProfileBackfillFunction fills the profile snapshot on records written
// without one. The identification pipeline never calls it.
type ProfileBackfillFunction struct {
	catches  ProfileBackfillStore
	profiles ProfileSource
	config   BackfillConfig
}

// NewProfileBackfill wires a ProfileBackfillFunction.
func NewProfileBackfill(catches ProfileBackfillStore, profiles ProfileSource, config BackfillConfig) *ProfileBackfillFunction {
	if config.Concurrency < 1 {
		config.Concurrency = 1
	}
	return &ProfileBackfillFunction{catches: catches, profiles: profiles, config: config}
}

// Process looks each affected user up once and updates their records.
// Lookup failures fall back to the default name; write failures abort the
// sweep.
func (f *ProfileBackfillFunction) Process(ctx context.Context) (*BackfillResult, error) {
	records, err := f.catches.ListMissingProfile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list catches without profile: %w", err)
	}

	byUser := make(map[string][]string)
	for _, rec := range records {
		if rec.UserID == "" {
			continue
		}
		byUser[rec.UserID] = append(byUser[rec.UserID], rec.ID)
	}
	slog.Info("Starting profile backfill.", "records", len(records), "users", len(byUser))

	var updated atomic.Int64
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(f.config.Concurrency)

	for uid, ids := range byUser {
		eg.Go(func() error {
			name, photo, err := resolveProfile(gctx, f.profiles, uid, f.config.DefaultDisplayName)
			if err != nil {
				slog.Warn("Profile lookup failed, using default display name.", "userId", uid, "error", err)
			}
			updates := []firestore.Update{{Path: "userDisplayName", Value: name}}
			if photo != "" {
				updates = append(updates, firestore.Update{Path: "userPhotoURL", Value: photo})
			}
			for _, id := range ids {
				if err := f.catches.Update(gctx, id, updates); err != nil {
					return fmt.Errorf("catch %s: %w", id, err)
				}
				updated.Add(1)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		slog.Error("Profile backfill failed", "error", err, "updated", updated.Load())
		return nil, err
	}

	result := &BackfillResult{Records: len(records), Users: len(byUser), Updated: int(updated.Load())}
	slog.Info("Profile backfill complete.", "updated", result.Updated)
	return result, nil
}
