package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"

	"spconnect/application"
	"spconnect/interfaces/web/presenters"
	"spconnect/logging"
)

// FSHandlers exposes the document library file system.
type FSHandlers struct {
	provider  *application.FileSystemProvider
	presenter *presenters.FilePresenter
	logger    *logging.Logger
}

// NewFSHandlers creates the file system handlers.
func NewFSHandlers(provider *application.FileSystemProvider, presenter *presenters.FilePresenter) *FSHandlers {
	return &FSHandlers{
		provider:  provider,
		presenter: presenter,
		logger:    logging.Default().WithComponent("fs_handler"),
	}
}

// Stat answers 404 when nothing exists at path.
func (h *FSHandlers) Stat(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	stat, err := h.provider.Stat(r.Context(), path)
	if err != nil {
		RenderError(w, h.logger, err)
		return
	}
	if stat == nil {
		RenderJSON(w, http.StatusNotFound, h.presenter.FromStat(nil))
		return
	}
	RenderJSON(w, http.StatusOK, h.presenter.FromStat(stat))
}

func (h *FSHandlers) Browse(w http.ResponseWriter, r *http.Request) {
	entry, err := h.provider.Browse(r.Context(), r.URL.Query().Get("path"))
	if err != nil {
		RenderError(w, h.logger, err)
		return
	}
	RenderJSON(w, http.StatusOK, h.presenter.FromBrowse(entry))
}

func (h *FSHandlers) Enumerate(w http.ResponseWriter, r *http.Request) {
	files, err := h.provider.Enumerate(r.Context(), r.URL.Query().Get("path"), queryBool(r, "first_non_empty"))
	if err != nil {
		RenderError(w, h.logger, err)
		return
	}
	RenderJSON(w, http.StatusOK, h.presenter.FromEnumerated(files))
}

// Download streams the file content.
func (h *FSHandlers) Download(w http.ResponseWriter, r *http.Request) {
	path, err := requiredQuery(r, "path")
	if err != nil {
		RenderError(w, h.logger, err)
		return
	}
	// Buffered so a failed read still answers with an error status.
	var buf bytes.Buffer
	if err := h.provider.Read(r.Context(), path, &buf); err != nil {
		RenderError(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Warn("Download interrupted", "path", path, "error", err)
	}
}

// Upload writes the request body to path.
func (h *FSHandlers) Upload(w http.ResponseWriter, r *http.Request) {
	path, err := requiredQuery(r, "path")
	if err != nil {
		RenderError(w, h.logger, err)
		return
	}
	if err := h.provider.Write(r.Context(), path, r.Body); err != nil {
		RenderError(w, h.logger, err)
		return
	}
	RenderJSON(w, http.StatusCreated, map[string]string{"path": path})
}

// Delete recycles the file or folder at path.
func (h *FSHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	path, err := requiredQuery(r, "path")
	if err != nil {
		RenderError(w, h.logger, err)
		return
	}
	n, err := h.provider.DeleteRecursive(r.Context(), path)
	if err != nil {
		RenderError(w, h.logger, err)
		return
	}
	RenderJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

type moveRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (h *FSHandlers) Move(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.From == "" || req.To == "" {
		RenderError(w, h.logger, badRequest("body must be {\"from\": ..., \"to\": ...}"))
		return
	}
	moved, err := h.provider.Move(r.Context(), req.From, req.To)
	if err != nil {
		RenderError(w, h.logger, err)
		return
	}
	RenderJSON(w, http.StatusOK, map[string]bool{"moved": moved})
}
