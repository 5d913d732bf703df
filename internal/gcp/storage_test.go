package gcp

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/Lllllllleong/catchlog/internal/models"
	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
)

func TestKeyFromURL(t *testing.T) {
	const bucket = "fish-photos"
	const base = "https://cdn.example.com/photos"

	tests := []struct {
		name   string
		raw    string
		want   string
		wantOK bool
	}{
		{"gs uri", "gs://fish-photos/catches/u1/123_fish.jpg", "catches/u1/123_fish.jpg", true},
		{"gs other bucket", "gs://other/catches/u1/123_fish.jpg", "", false},
		{"public storage url", "https://storage.googleapis.com/fish-photos/catches/u1/123_my%20fish.jpg", "catches/u1/123_my fish.jpg", true},
		{"firebase download url", "https://firebasestorage.googleapis.com/v0/b/fish-photos/o/catches%2Fu1%2F123_fish.jpg?alt=media&token=abc", "catches/u1/123_fish.jpg", true},
		{"firebase other bucket", "https://firebasestorage.googleapis.com/v0/b/other/o/catches%2Fu1%2F1.jpg?alt=media", "", false},
		{"configured base", "https://cdn.example.com/photos/catches/u1/9_a.png", "catches/u1/9_a.png", true},
		{"foreign host", "https://example.org/fish.jpg", "", false},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := keyFromURL(bucket, base, tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPublicURLRoundTrip(t *testing.T) {
	b := &AssetBucket{name: "fish-photos", publicBaseURL: "https://storage.googleapis.com/fish-photos"}

	u := b.PublicURL("catches/u1/123_my fish.jpg")
	assert.Equal(t, "https://storage.googleapis.com/fish-photos/catches/u1/123_my%20fish.jpg", u)

	key, ok := b.KeyFromURL(u)
	assert.True(t, ok)
	assert.Equal(t, "catches/u1/123_my fish.jpg", key)
}

func TestPreconditionErr(t *testing.T) {
	wrapped := fmt.Errorf("write: %w", &googleapi.Error{Code: http.StatusPreconditionFailed})
	assert.ErrorIs(t, preconditionErr(wrapped), models.ErrAssetExists)

	other := errors.New("boom")
	assert.Equal(t, other, preconditionErr(other))
}
