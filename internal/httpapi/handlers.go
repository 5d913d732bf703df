// Package httpapi holds the HTTP surface of catchlog: plain net/http handlers
// used by the Cloud Functions entry points, and an echo server for the
// standalone deployment.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/Lllllllleong/catchlog/internal/models"
)

// maxUploadBytes caps the multipart body accepted by the upload handler.
const maxUploadBytes = 25 << 20

// Identifier runs the identification pipeline.
type Identifier interface {
	Process(ctx context.Context, req *models.IdentifyRequest) (*models.IdentifyResponse, error)
}

// Uploader stores an original photo.
type Uploader interface {
	Process(ctx context.Context, userID, filename string, data []byte) (*models.UploadResponse, error)
}

// IdentifyHandler serves POST /identify. Any failure after validation is
// reported as a generic 500; the cause is only logged.
func IdentifyHandler(svc Identifier, allowOrigin string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setCORS(w, allowOrigin)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
			return
		}

		// catchDetails must be an object or null; its fields are not checked.
		var req models.IdentifyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			slog.Warn("Could not decode request body", "error", err)
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &typeErr) && typeErr.Field == "catchDetails" {
				writeError(w, http.StatusBadRequest, "Bad Request: catchDetails must be a JSON object", "")
				return
			}
			writeError(w, http.StatusBadRequest, "Bad Request: could not parse JSON", "")
			return
		}

		res, err := svc.Process(r.Context(), &req)
		switch {
		case errors.Is(err, models.ErrMissingFields):
			writeError(w, http.StatusBadRequest, "Missing required fields: imageUrl and userId", "")
		case err != nil:
			// The specific error is already logged inside the Process method.
			writeError(w, http.StatusInternalServerError, "Failed to identify fish", err.Error())
		default:
			writeJSON(w, http.StatusOK, res)
		}
	}
}

// UploadHandler serves POST /uploads: a multipart form with a "file" part and
// a "userId" field.
func UploadHandler(svc Uploader, allowOrigin string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setCORS(w, allowOrigin)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			slog.Warn("Could not parse upload form", "error", err)
			writeError(w, http.StatusBadRequest, "Bad Request: could not parse multipart form", err.Error())
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, models.ErrMissingUpload.Error(), "")
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Bad Request: could not read file", err.Error())
			return
		}

		res, err := svc.Process(r.Context(), r.FormValue("userId"), header.Filename, data)
		if err != nil {
			writeError(w, statusFor(err), "Failed to store upload", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrMissingFields),
		errors.Is(err, models.ErrMissingUpload),
		errors.Is(err, models.ErrNotAnImage),
		errors.Is(err, models.ErrEmptyPatch):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrAssetExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func setCORS(w http.ResponseWriter, allowOrigin string) {
	if allowOrigin == "" {
		allowOrigin = "*"
	}
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", allowOrigin)
	h.Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, models.ErrorResponse{Error: message, Details: details})
}
