package services

import (
	"context"

	"cloud.google.com/go/firestore"
	"firebase.google.com/go/v4/auth"
	"github.com/Lllllllleong/catchlog/internal/models"
)

// The interfaces below are satisfied by the clients in internal/gcp and by
// *auth.Client; tests substitute fakes.

// AssetFetcher resolves a storage key to the original bytes.
type AssetFetcher interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
}

// AssetStore is the full blob-store surface used by uploads and deletes.
type AssetStore interface {
	AssetFetcher
	Put(ctx context.Context, key, contentType string, data []byte) error
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
	KeyFromURL(raw string) (string, bool)
}

// VisionModel returns the model's raw text answer for one image.
type VisionModel interface {
	Identify(ctx context.Context, image []byte, mediaType string) (string, error)
}

// ProfileSource looks up a user's current identity-provider profile.
type ProfileSource interface {
	GetUser(ctx context.Context, uid string) (*auth.UserRecord, error)
}

// CatchWriter appends new catch records.
type CatchWriter interface {
	Create(ctx context.Context, rec *models.CatchRecord) (string, error)
}

// CatchStore is the read/update/delete surface over the catches collection.
type CatchStore interface {
	CatchWriter
	Get(ctx context.Context, id string) (*models.CatchRecord, error)
	ListByUser(ctx context.Context, userID string) ([]models.CatchRecord, error)
	ListAll(ctx context.Context) ([]models.CatchRecord, error)
	Update(ctx context.Context, id string, updates []firestore.Update) error
	Delete(ctx context.Context, id string) error
}

// ProfileBackfillStore is what the profile sweep needs from the collection.
type ProfileBackfillStore interface {
	ListMissingProfile(ctx context.Context) ([]models.CatchRecord, error)
	Update(ctx context.Context, id string, updates []firestore.Update) error
}

// resolveProfile returns the display snapshot for uid. On lookup failure it
// returns the fallback name together with the error so callers can log it.
func resolveProfile(ctx context.Context, profiles ProfileSource, uid, fallback string) (string, string, error) {
	if profiles == nil {
		return fallback, "", nil
	}
	user, err := profiles.GetUser(ctx, uid)
	if err != nil {
		return fallback, "", err
	}
	if user == nil || user.UserInfo == nil {
		return fallback, "", nil
	}
	name := user.DisplayName
	if name == "" {
		name = fallback
	}
	return name, user.PhotoURL, nil
}
