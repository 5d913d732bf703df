package gcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/Lllllllleong/catchlog/internal/models"
	"google.golang.org/api/googleapi"
)

// AssetBucket fetches, stores and deletes catch photos in one bucket.
type AssetBucket struct {
	bucket        *storage.BucketHandle
	name          string
	publicBaseURL string
}

// NewAssetBucket wraps the named bucket. publicBaseURL is the prefix used to
// build display URLs for stored keys.
func NewAssetBucket(client *storage.Client, name, publicBaseURL string) *AssetBucket {
	return &AssetBucket{
		bucket:        client.Bucket(name),
		name:          name,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

// Fetch reads the whole object. A missing key yields models.ErrAssetNotFound.
func (b *AssetBucket) Fetch(ctx context.Context, key string) ([]byte, error) {
	reader, err := b.bucket.Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("gs://%s/%s: %w", b.name, key, models.ErrAssetNotFound)
		}
		return nil, fmt.Errorf("failed to get GCS object reader for gs://%s/%s: %w", b.name, key, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read GCS object gs://%s/%s: %w", b.name, key, err)
	}
	return data, nil
}

// Put writes data only if the object doesn't already exist. An existing
// object yields models.ErrAssetExists.
func (b *AssetBucket) Put(ctx context.Context, key, contentType string, data []byte) error {
	writer := b.bucket.Object(key).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	writer.ContentType = contentType

	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write to GCS: %w", preconditionErr(err))
	}
	if err := writer.Close(); err != nil {
		slog.Error("Failed to close GCS writer", "object", key, "error", err)
		return fmt.Errorf("failed to finalize GCS write: %w", preconditionErr(err))
	}
	return nil
}

func preconditionErr(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
		return models.ErrAssetExists
	}
	return err
}

// Delete removes the object. A missing key yields models.ErrAssetNotFound.
func (b *AssetBucket) Delete(ctx context.Context, key string) error {
	if err := b.bucket.Object(key).Delete(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return models.ErrAssetNotFound
		}
		return fmt.Errorf("failed to delete gs://%s/%s: %w", b.name, key, err)
	}
	return nil
}

// PublicURL builds the display URL for a key.
func (b *AssetBucket) PublicURL(key string) string {
	escaped := strings.Split(key, "/")
	for i, seg := range escaped {
		escaped[i] = url.PathEscape(seg)
	}
	return b.publicBaseURL + "/" + strings.Join(escaped, "/")
}

// KeyFromURL recovers a storage key from a record's display URL. It accepts
// gs:// URIs, storage.googleapis.com URLs, Firebase download URLs and URLs
// under the configured public base. ok is false when the URL points elsewhere.
func (b *AssetBucket) KeyFromURL(raw string) (string, bool) {
	return keyFromURL(b.name, b.publicBaseURL, raw)
}

func keyFromURL(bucket, publicBase, raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	if publicBase != "" && strings.HasPrefix(raw, publicBase+"/") {
		return unescapePath(strings.TrimPrefix(raw, publicBase+"/"))
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	switch {
	case u.Scheme == "gs" && u.Host == bucket:
		key := strings.TrimPrefix(u.Path, "/")
		return key, key != ""
	case u.Host == "storage.googleapis.com":
		prefix := "/" + bucket + "/"
		if strings.HasPrefix(u.EscapedPath(), prefix) {
			return unescapePath(strings.TrimPrefix(u.EscapedPath(), prefix))
		}
	case u.Host == "firebasestorage.googleapis.com":
		// /v0/b/<bucket>/o/<url-encoded key>
		prefix := "/v0/b/" + bucket + "/o/"
		if strings.HasPrefix(u.EscapedPath(), prefix) {
			return unescapePath(strings.TrimPrefix(u.EscapedPath(), prefix))
		}
	}
	return "", false
}

func unescapePath(p string) (string, bool) {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	key, err := url.PathUnescape(p)
	if err != nil || key == "" {
		return "", false
	}
	return key, true
}
