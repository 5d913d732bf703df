package gcp

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/Lllllllleong/catchlog/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newEmulatorRepository connects to the Firestore emulator. Tests using it
// are skipped when FIRESTORE_EMULATOR_HOST is not set.
func newEmulatorRepository(t *testing.T) *CatchRepository {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	ctx := context.Background()
	client, err := NewFirestoreClient(ctx, "catchlog-test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	collection := fmt.Sprintf("catches-%d", time.Now().UnixNano())
	return NewCatchRepository(client, collection)
}

func TestCatchRepositoryLifecycle(t *testing.T) {
	repo := newEmulatorRepository(t)
	ctx := context.Background()

	first := &models.CatchRecord{
		UserID:         "u1",
		ImageURL:       "https://storage.googleapis.com/b/catches/u1/1_a.jpg",
		ImagePath:      "catches/u1/1_a.jpg",
		Identification: models.Identification{"commonName": "Bluegill"},
		CatchDetails:   map[string]any{"location": "Pond"},
	}
	firstID, err := repo.Create(ctx, first)
	require.NoError(t, err)

	secondID, err := repo.Create(ctx, &models.CatchRecord{UserID: "u1", Identification: models.Identification{}, CatchDetails: map[string]any{}})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &models.CatchRecord{UserID: "u2", Identification: models.Identification{}, CatchDetails: map[string]any{}})
	require.NoError(t, err)

	mine, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, secondID, mine[0].ID, "newest first")
	assert.False(t, mine[0].Timestamp.Before(mine[1].Timestamp))

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	got, err := repo.Get(ctx, firstID)
	require.NoError(t, err)
	before := got.Timestamp

	require.NoError(t, repo.Update(ctx, firstID, []firestore.Update{{Path: "catchDetails.location", Value: "Lake"}}))
	got, err = repo.Get(ctx, firstID)
	require.NoError(t, err)
	assert.Equal(t, "Lake", got.CatchDetails["location"])
	name, _ := got.Identification.CommonName()
	assert.Equal(t, "Bluegill", name)
	assert.True(t, before.Equal(got.Timestamp))

	missing, err := repo.ListMissingProfile(ctx)
	require.NoError(t, err)
	assert.Len(t, missing, 3)

	require.NoError(t, repo.Delete(ctx, firstID))
	_, err = repo.Get(ctx, firstID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.ErrorIs(t, repo.Update(ctx, firstID, []firestore.Update{{Path: "catchDetails.notes", Value: "x"}}), models.ErrNotFound)
}
