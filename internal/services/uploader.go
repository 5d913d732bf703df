package services

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/Lllllllleong/catchlog/internal/imaging"
	"github.com/Lllllllleong/catchlog/internal/models"
)

// UploaderFunction stores original catch photos under catches/<userId>/.
type UploaderFunction struct {
	assets AssetStore
	now    func() time.Time
}

// NewUploader wires an UploaderFunction.
func NewUploader(assets AssetStore) *UploaderFunction {
	return &UploaderFunction{assets: assets, now: time.Now}
}

// Process writes data at a fresh key and returns the key together with its
// public display URL. Existing objects are never overwritten.
func (f *UploaderFunction) Process(ctx context.Context, userID, filename string, data []byte) (*models.UploadResponse, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" || len(data) == 0 {
		return nil, models.ErrMissingUpload
	}
	if strings.ContainsAny(userID, "/\\") {
		return nil, fmt.Errorf("invalid userId %q: %w", userID, models.ErrMissingUpload)
	}
	if _, _, err := imaging.CheckedDimensions(data); err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrNotAnImage, err)
	}

	key := fmt.Sprintf("catches/%s/%d_%s", userID, f.now().UnixMilli(), sanitizeFileName(filename))
	logCtx := slog.With("userId", userID, "imageKey", key)

	if err := f.assets.Put(ctx, key, imaging.MediaTypeForKey(key), data); err != nil {
		logCtx.Error("Failed to store upload", "error", err)
		return nil, err
	}
	logCtx.Info("Upload stored.", "bytes", len(data))

	return &models.UploadResponse{
		ImageURL:         key,
		ImageDownloadURL: f.assets.PublicURL(key),
	}, nil
}

// nonFileNameRegex matches runs of characters not allowed in object names.
var nonFileNameRegex = regexp.MustCompile(`[^a-z0-9.]+`)

// sanitizeFileName converts a client file name into a safe object name
// component, keeping the extension.
func sanitizeFileName(name string) string {
	base := strings.ToLower(path.Base(strings.ReplaceAll(name, "\\", "/")))
	sanitized := strings.Trim(nonFileNameRegex.ReplaceAllString(base, "_"), "_.")

	const maxLength = 100
	if len(sanitized) > maxLength {
		ext := path.Ext(sanitized)
		if len(ext) > 10 {
			ext = ""
		}
		sanitized = strings.Trim(sanitized[:maxLength-len(ext)], "_.") + ext
	}
	if sanitized == "" || sanitized == "." {
		return "photo.jpg"
	}
	return sanitized
}
