// Package handlers render provides JSON response utilities.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"spconnect/application"
	"spconnect/domain/sharepoint"
	"spconnect/infrastructure/spclient"
	"spconnect/logging"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RenderJSON writes v as JSON with the given status.
func RenderJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Default().Error("Failed to encode response", "error", err)
	}
}

// RenderError maps err to a status code and writes it as JSON.
func RenderError(w http.ResponseWriter, logger *logging.Logger, err error) {
	status := StatusForError(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", "error", err)
	} else {
		logger.Debug("Request rejected", "status", status, "error", err)
	}
	RenderJSON(w, status, ErrorResponse{Error: err.Error()})
}

// StatusForError returns the HTTP status matching a domain or SharePoint error.
func StatusForError(err error) int {
	var batchErr *spclient.BatchError
	var apiErr *spclient.APIError
	switch {
	case errors.Is(err, spclient.ErrNotFound), errors.Is(err, application.ErrItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, spclient.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, sharepoint.ErrRootPath), errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.As(err, &batchErr):
		return http.StatusBadGateway
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
