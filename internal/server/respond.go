package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/cardmate/internal/common"
	"github.com/joseph-ayodele/cardmate/internal/ingest"
)

func parseJSON[T any](r *http.Request, limit int64) (T, error) {
	var out T
	dec := json.NewDecoder(io.LimitReader(r.Body, limit))
	dec.DisallowUnknownFields()

	if err := dec.Decode(&out); err != nil {
		return out, err
	}

	// Ensure there's nothing else after the first JSON value
	if err := dec.Decode(new(any)); err != io.EOF {
		if err == nil {
			return out, fmt.Errorf("unexpected trailing data")
		}
		return out, err
	}
	return out, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   message,
		"code":    code,
	})
}

// writeServiceErr maps a service error onto an HTTP status.
func writeServiceErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrImageNotFound):
		writeErr(w, http.StatusNotFound, "image_not_found", sanitizeError(err))
	case errors.Is(err, common.ErrNotFound):
		writeErr(w, http.StatusNotFound, "not_found", sanitizeError(err))
	case errors.Is(err, common.ErrValidation), errors.Is(err, common.ErrInvalidInput):
		writeErr(w, http.StatusBadRequest, "validation_failed", sanitizeError(err))
	case errors.Is(err, common.ErrUnauthorized):
		writeErr(w, http.StatusUnauthorized, "unauthorized", sanitizeError(err))
	case errors.Is(err, common.ErrConflict):
		writeErr(w, http.StatusConflict, "conflict", sanitizeError(err))
	default:
		writeErr(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	msg = strings.ReplaceAll(msg, os.TempDir(), "[tmp]")
	if len(msg) > 300 {
		msg = msg[:300] + "..."
	}
	return msg
}

// currentUser returns the user id stored by withAuth.
func currentUser(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(common.UserIDFromContext(r.Context()))
	return id, err == nil
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: card id must be a UUID", common.ErrInvalidInput)
	}
	return id, nil
}

// saveUpload copies the multipart "file" field into a temp file that keeps
// the upload's extension so HEIC input is recognised by the loader.
func (s *HTTPServer) saveUpload(w http.ResponseWriter, r *http.Request) (string, func(), error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		return "", nil, fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, fmt.Errorf("%w: missing file field", common.ErrInvalidInput)
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext == "" {
		ext = ".jpg"
	}
	if !ingest.AllowedExt(ext) {
		return "", nil, fmt.Errorf("%w: unsupported file type %q", common.ErrInvalidInput, ext)
	}
	return writeTemp(s.cfg.UploadDir, ext, file)
}

func writeTemp(dir, ext string, src multipart.File) (string, func(), error) {
	f, err := os.CreateTemp(dir, "card-*"+ext)
	if err != nil {
		return "", nil, fmt.Errorf("temp file: %w", err)
	}
	cleanup := func() { _ = os.Remove(f.Name()) }
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		cleanup()
		return "", nil, fmt.Errorf("write upload: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("close upload: %w", err)
	}
	return f.Name(), cleanup, nil
}
