package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sbilibin2017/gw-user-accounts/internal/apperrors"
	"github.com/sbilibin2017/gw-user-accounts/internal/logger"
	"github.com/sbilibin2017/gw-user-accounts/internal/middlewares"
)

// maxUploadSize caps a multipart request body.
const maxUploadSize = 10 << 20

// currentUserID returns the authenticated account from the request context.
func currentUserID(r *http.Request) (uuid.UUID, error) {
	claims, ok := middlewares.GetClaimsFromContext(r.Context())
	if !ok {
		return uuid.Nil, apperrors.Unauthorized("Unauthorized request")
	}
	return claims.UserID, nil
}

// decodeJSON decodes the request body into v. An empty body is reported as
// io.EOF so callers can decide whether it is acceptable.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return io.EOF
		}
		return apperrors.Validation("invalid request body")
	}
	return nil
}

// parseMultipart parses a multipart body, keeping small parts in memory.
func parseMultipart(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return apperrors.Validation("invalid multipart form")
	}
	return nil
}

// saveFormFile copies the uploaded file named field into dir and returns the
// temp file path, or "" when the field is absent. The caller removes the
// file.
func saveFormFile(r *http.Request, field, dir string) (string, error) {
	src, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", apperrors.Validation("invalid "+field+" file", field)
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	dst, err := os.CreateTemp(dir, "upload-*"+ext)
	if err != nil {
		return "", apperrors.Internal(err, "failed to store upload")
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(dst.Name())
		return "", apperrors.Internal(err, "failed to store upload")
	}
	return dst.Name(), nil
}

// removeTemp deletes a temp upload; path may be empty.
func removeTemp(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Log.Warnw("failed to remove temp upload", "path", path, "err", err)
	}
}
