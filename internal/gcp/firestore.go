package gcp

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/Lllllllleong/catchlog/internal/models"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// NewFirestoreClient creates and returns a new Firestore client for the given project ID.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return client, nil
}

// CatchRepository reads and writes catch records in one Firestore collection.
type CatchRepository struct {
	client     *firestore.Client
	collection string
}

// NewCatchRepository returns a repository over the named collection.
func NewCatchRepository(client *firestore.Client, collection string) *CatchRepository {
	return &CatchRepository{client: client, collection: collection}
}

func (r *CatchRepository) col() *firestore.CollectionRef {
	return r.client.Collection(r.collection)
}

// Create appends a record and returns the store-assigned id. The timestamp
// is assigned by the server.
func (r *CatchRepository) Create(ctx context.Context, rec *models.CatchRecord) (string, error) {
	docRef, _, err := r.col().Add(ctx, rec)
	if err != nil {
		return "", fmt.Errorf("failed to create catch document: %w", err)
	}
	return docRef.ID, nil
}

// Get loads one record. Missing documents yield models.ErrNotFound.
func (r *CatchRepository) Get(ctx context.Context, id string) (*models.CatchRecord, error) {
	snap, err := r.col().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get catch %s: %w", id, err)
	}
	return decode(snap)
}

// ListByUser returns the user's records, newest first.
func (r *CatchRepository) ListByUser(ctx context.Context, userID string) ([]models.CatchRecord, error) {
	q := r.col().Where("userId", "==", userID).OrderBy("timestamp", firestore.Desc)
	return collect(q.Documents(ctx))
}

// ListAll returns every record, newest first. There is no pagination.
func (r *CatchRepository) ListAll(ctx context.Context) ([]models.CatchRecord, error) {
	return collect(r.col().OrderBy("timestamp", firestore.Desc).Documents(ctx))
}

// Update applies field-path updates to an existing record. No precondition
// is used, so the last writer wins.
func (r *CatchRepository) Update(ctx context.Context, id string, updates []firestore.Update) error {
	if _, err := r.col().Doc(id).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return models.ErrNotFound
		}
		return fmt.Errorf("failed to update catch %s: %w", id, err)
	}
	return nil
}

// Delete removes a record. Deleting a missing document is not an error.
func (r *CatchRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.col().Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete catch %s: %w", id, err)
	}
	return nil
}

// ListMissingProfile returns records without a display-name snapshot.
// Firestore cannot query for absent fields, so this scans the collection.
func (r *CatchRepository) ListMissingProfile(ctx context.Context) ([]models.CatchRecord, error) {
	all, err := collect(r.col().Documents(ctx))
	if err != nil {
		return nil, err
	}
	var out []models.CatchRecord
	for _, rec := range all {
		if rec.UserDisplayName == "" {
			out = append(out, rec)
		}
	}
	return out, nil
}

func collect(it *firestore.DocumentIterator) ([]models.CatchRecord, error) {
	defer it.Stop()
	var out []models.CatchRecord
	for {
		snap, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate catches: %w", err)
		}
		rec, err := decode(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, nil
}

func decode(snap *firestore.DocumentSnapshot) (*models.CatchRecord, error) {
	var rec models.CatchRecord
	if err := snap.DataTo(&rec); err != nil {
		return nil, fmt.Errorf("failed to decode catch %s: %w", snap.Ref.ID, err)
	}
	rec.ID = snap.Ref.ID
	return &rec, nil
}
