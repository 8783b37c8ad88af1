package handlers

import (
	"net/http"

	"spconnect/application"
	"spconnect/interfaces/web/presenters"
	"spconnect/logging"
)

// TriggerHandlers runs modification checks on demand, for an external scheduler.
type TriggerHandlers struct {
	triggers  *application.TriggerService
	presenter *presenters.TriggerPresenter
	logger    *logging.Logger
}

// NewTriggerHandlers creates trigger handlers.
func NewTriggerHandlers(triggers *application.TriggerService, presenter *presenters.TriggerPresenter) *TriggerHandlers {
	return &TriggerHandlers{
		triggers:  triggers,
		presenter: presenter,
		logger:    logging.Default().WithComponent("trigger_handler"),
	}
}

// CheckFile checks the file or folder given by the path query parameter.
func (h *TriggerHandlers) CheckFile(w http.ResponseWriter, r *http.Request) {
	path, err := requiredQuery(r, "path")
	if err != nil {
		RenderError(w, h.logger, err)
		return
	}
	result, err := h.triggers.CheckFile(r.Context(), path)
	if err != nil {
		RenderError(w, h.logger, err)
		return
	}
	RenderJSON(w, http.StatusOK, h.presenter.FromResult(result))
}

// CheckList checks the routed list.
func (h *TriggerHandlers) CheckList(w http.ResponseWriter, r *http.Request) {
	title, err := urlParam(r, "title")
	if err != nil {
		RenderError(w, h.logger, err)
		return
	}
	result, err := h.triggers.CheckList(r.Context(), title)
	if err != nil {
		RenderError(w, h.logger, err)
		return
	}
	RenderJSON(w, http.StatusOK, h.presenter.FromResult(result))
}

// States lists the stored trigger values.
func (h *TriggerHandlers) States(w http.ResponseWriter, r *http.Request) {
	states, err := h.triggers.States(r.Context())
	if err != nil {
		RenderError(w, h.logger, err)
		return
	}
	RenderJSON(w, http.StatusOK, h.presenter.FromStates(states))
}

// Reset deletes the stored value for the key query parameter.
func (h *TriggerHandlers) Reset(w http.ResponseWriter, r *http.Request) {
	key, err := requiredQuery(r, "key")
	if err != nil {
		RenderError(w, h.logger, err)
		return
	}
	if err := h.triggers.Reset(r.Context(), key); err != nil {
		RenderError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
