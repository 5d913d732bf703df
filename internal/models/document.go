package models

import (
	"errors"
	"time"
)

// CatchRecord is one logged catch in the catches collection.
// It is created once by the identification pipeline; afterwards only the
// catch details and the two species names may change.
type CatchRecord struct {
	ID              string         `firestore:"-" json:"id"`
	UserID          string         `firestore:"userId" json:"userId"`
	UserDisplayName string         `firestore:"userDisplayName,omitempty" json:"userDisplayName,omitempty"`
	UserPhotoURL    string         `firestore:"userPhotoURL,omitempty" json:"userPhotoURL,omitempty"`
	ImageURL        string         `firestore:"imageUrl" json:"imageUrl"`
	ImagePath       string         `firestore:"imagePath,omitempty" json:"imagePath,omitempty"` // storage key, used for deletes
	Identification  Identification `firestore:"identification" json:"identification"`
	CatchDetails    map[string]any `firestore:"catchDetails" json:"catchDetails"`
	Timestamp       time.Time      `firestore:"timestamp,serverTimestamp" json:"timestamp"`
}

// Identification is the species guess produced by the vision model. It is
// persisted exactly as the model returned it, so no field is guaranteed to be
// present or well typed; use the accessors.
type Identification map[string]any

func (i Identification) str(key string) (string, bool) {
	v, ok := i[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (i Identification) CommonName() (string, bool)     { return i.str("commonName") }
func (i Identification) ScientificName() (string, bool) { return i.str("scientificName") }
func (i Identification) Family() (string, bool)         { return i.str("family") }
func (i Identification) Habitat() (string, bool)        { return i.str("habitat") }
func (i Identification) AverageSize() (string, bool)    { return i.str("averageSize") }
func (i Identification) Notes() (string, bool)          { return i.str("notes") }

// Confidence reports the model's confidence level. Values outside
// high/medium/low are reported as absent.
func (i Identification) Confidence() (string, bool) {
	c, ok := i.str("confidence")
	if !ok {
		return "", false
	}
	switch c {
	case "high", "medium", "low":
		return c, true
	}
	return "", false
}

// Characteristics returns the string entries of the characteristics list, in
// order. Non-string entries are skipped.
func (i Identification) Characteristics() ([]string, bool) {
	raw, ok := i["characteristics"].([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out, true
}

// Sentinel errors shared by the services and the HTTP layer.
var (
	ErrMissingFields   = errors.New("missing required fields: imageUrl and userId")
	ErrNotFound        = errors.New("catch not found")
	ErrForbidden       = errors.New("catch belongs to another user")
	ErrAssetNotFound   = errors.New("asset not found")
	ErrAssetExists     = errors.New("asset already exists")
	ErrNoText          = errors.New("model returned no text content")
	ErrInvalidResponse = errors.New("model response is not a JSON object")
	ErrEmptyPatch      = errors.New("no editable fields in update")
	ErrMissingUpload   = errors.New("missing required fields: file and userId")
	ErrNotAnImage      = errors.New("uploaded file is not a supported image")
)
