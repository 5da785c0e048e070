// Package handler exposes the client core over HTTP for the presentation
// layer. Handlers translate between JSON requests and the session's
// components; all policy lives below them.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	apperrors "github.com/kh1012/half/pkg/errors"
	"github.com/kh1012/half/pkg/logger"
)

// respondJSON writes a JSON body with the given status.
func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// respondError maps an error to its HTTP shape. Structured application
// errors carry their own status code and details; anything else is an
// internal error with the message withheld.
func respondError(log *logger.Logger, w http.ResponseWriter, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		log.WithError(err).Error("Unclassified handler error")
		appErr = apperrors.NewInternalError("internal error", err)
	} else if appErr.Type == apperrors.ErrorTypeInternal || appErr.Type == apperrors.ErrorTypeRemote {
		log.WithError(err).Warn("Handler error")
	}

	var resp apperrors.ErrorResponse
	resp.Error.Type = appErr.Type
	resp.Error.Message = appErr.Message
	resp.Error.Details = appErr.Details
	resp.Error.Timestamp = time.Now().UTC().Format(time.RFC3339)

	respondJSON(w, appErr.StatusCode, resp)
}

// decodeBody parses a JSON request body into dst.
func decodeBody(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.NewValidationError("invalid request body")
	}
	return nil
}
