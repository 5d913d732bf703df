package models

import (
	"strings"

	"cloud.google.com/go/firestore"
)

// These structs define the JSON payloads exchanged with the browser client.

// IdentifyRequest is the input for the identify function.
// ImageURL is the storage key of the uploaded photo; ImageDownloadURL is the
// public URL stored on the record for display.
type IdentifyRequest struct {
	ImageURL         string         `json:"imageUrl"`
	ImageDownloadURL string         `json:"imageDownloadUrl"`
	UserID           string         `json:"userId"`
	CatchDetails     map[string]any `json:"catchDetails"`
}

// Validate reports ErrMissingFields when the storage key or user id is blank.
func (r *IdentifyRequest) Validate() error {
	if strings.TrimSpace(r.ImageURL) == "" || strings.TrimSpace(r.UserID) == "" {
		return ErrMissingFields
	}
	return nil
}

// IdentifyResponse is the output of the identify function.
type IdentifyResponse struct {
	ID             string         `json:"id"`
	Identification Identification `json:"identification"`
	CatchDetails   map[string]any `json:"catchDetails"`
}

// UploadResponse is returned after a photo has been stored.
type UploadResponse struct {
	ImageURL         string `json:"imageUrl"`
	ImageDownloadURL string `json:"imageDownloadUrl"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// CatchDetailsPatch carries user edits to catch details. Nil fields are left
// untouched.
type CatchDetailsPatch struct {
	Location *string `json:"location,omitempty"`
	Method   *string `json:"method,omitempty"`
	Date     *string `json:"date,omitempty"`
	Notes    *string `json:"notes,omitempty"`
}

// IdentificationPatch carries user corrections to the species names.
type IdentificationPatch struct {
	CommonName     *string `json:"commonName,omitempty"`
	ScientificName *string `json:"scientificName,omitempty"`
}

// CatchPatch is the body of PATCH /catches/:id. Only these fields are
// editable; anything else in the request body is ignored.
type CatchPatch struct {
	CatchDetails   *CatchDetailsPatch   `json:"catchDetails,omitempty"`
	Identification *IdentificationPatch `json:"identification,omitempty"`
}

// Updates converts the patch into Firestore field-path updates so that a
// merge never touches sibling fields.
func (p *CatchPatch) Updates() []firestore.Update {
	var updates []firestore.Update
	add := func(path string, v *string) {
		if v != nil {
			updates = append(updates, firestore.Update{Path: path, Value: *v})
		}
	}
	if d := p.CatchDetails; d != nil {
		add("catchDetails.location", d.Location)
		add("catchDetails.method", d.Method)
		add("catchDetails.date", d.Date)
		add("catchDetails.notes", d.Notes)
	}
	if id := p.Identification; id != nil {
		add("identification.commonName", id.CommonName)
		add("identification.scientificName", id.ScientificName)
	}
	return updates
}
