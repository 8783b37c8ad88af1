package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"spconnect/application"
	"spconnect/domain/lists"
	"spconnect/infrastructure/spclient"
	"spconnect/interfaces/web/presenters"
	"spconnect/logging"
)

// ListHandlers exposes list datasets, documents metadata and site discovery.
type ListHandlers struct {
	client        spclient.SharePointClient
	defaults      lists.Parameters
	sitePresenter *presenters.SitePresenter
	logger        *logging.Logger
}

// NewListHandlers creates list handlers. defaults carries the configured list
// parameters; the list title always comes from the route.
func NewListHandlers(client spclient.SharePointClient, defaults lists.Parameters, sitePresenter *presenters.SitePresenter) *ListHandlers {
	return &ListHandlers{
		client:        client,
		defaults:      defaults,
		sitePresenter: sitePresenter,
		logger:        logging.Default().WithComponent("list_handler"),
	}
}

// parameters copies the defaults for the routed list. view overrides the view title.
func (h *ListHandlers) parameters(r *http.Request) (*lists.Parameters, error) {
	title, err := urlParam(r, "title")
	if err != nil {
		return nil, err
	}
	params := h.defaults
	params.ListTitle = title
	params.MetadataToRetrieve = append([]string(nil), h.defaults.MetadataToRetrieve...)
	if view := r.URL.Query().Get("view"); view != "" {
		params.ViewTitle = view
	}
	return &params, nil
}

// Schema returns the read schema of the list.
func (h *ListHandlers) Schema(w http.ResponseWriter, r *http.Request) {
	params, err := h.parameters(r)
	if err != nil {
		RenderError(w, h.logger, err)
		return
	}
	connector, err := application.NewListConnector(h.client, params, h.logger)
	if err != nil {
		RenderError(w, h.logger, badRequest("%v", err))
		return
	}
	s, err := connector.ReadSchema(r.Context())
	if err != nil {
		RenderError(w, h.logger, err)
		return
	}
	RenderJSON(w, http.StatusOK, s)
}

// Rows streams list rows as JSON lines. limit bounds the number of rows.
func (h *ListHandlers) Rows(w http.ResponseWriter, r *http.Request) {
	params, err := h.parameters(r)
	if err != nil {
		RenderError(w, h.logger, err)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		RenderError(w, h.logger, err)
		return
	}
	connector, err := application.NewListConnector(h.client, params, h.logger)
	if err != nil {
		RenderError(w, h.logger, badRequest("%v", err))
		return
	}
	// Reading the schema first lets lookup errors answer with a status.
	if _, err := connector.Mapping(r.Context()); err != nil {
		RenderError(w, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(w)
	flusher, _ := w.(http.Flusher)
	_, err = connector.GenerateRows(r.Context(), limit, func(row application.Row) error {
		if err := enc.Encode(row); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	})
	if err != nil {
		h.logger.Error("Row stream interrupted", "list", params.ListTitle, "error", err)
	}
}

// Append adds the request rows to the list and echoes them back in the same format.
// text/csv bodies are read as CSV, anything else as JSON lines.
func (h *ListHandlers) Append(w http.ResponseWriter, r *http.Request) {
	params, err := h.parameters(r)
	if err != nil {
		RenderError(w, h.logger, err)
		return
	}
	format := application.FormatJSONL
	contentType := "application/x-ndjson"
	if strings.HasPrefix(r.Header.Get("Content-Type"), "text/csv") {
		format = application.FormatCSV
		contentType = "text/csv"
	}

	in, err := application.NewRowSource(format, r.Body)
	if err != nil {
		RenderError(w, h.logger, badRequest("%v", err))
		return
	}
	var out bytes.Buffer
	sink, err := application.NewRowSink(format, &out)
	if err != nil {
		RenderError(w, h.logger, err)
		return
	}

	recipe := application.NewAppendListRecipe(h.client, *params, h.logger)
	count, err := recipe.Run(r.Context(), in, sink)
	if err != nil {
		RenderError(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Rows-Appended", strconv.Itoa(count))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out.Bytes())
}

// DocumentsMetadata streams the files of the document library as JSON lines.
func (h *ListHandlers) DocumentsMetadata(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		RenderError(w, h.logger, err)
		return
	}
	var docs []application.DocumentMetadata
	_, err = application.NewDocumentsMetadata(h.client, h.logger).GenerateRows(r.Context(), limit, func(d application.DocumentMetadata) error {
		docs = append(docs, d)
		return nil
	})
	if err != nil {
		RenderError(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(w)
	for _, d := range docs {
		if err := enc.Encode(d); err != nil {
			h.logger.Warn("Documents metadata stream interrupted", "error", err)
			return
		}
	}
}

// Sites lists the site collections visible to the account.
func (h *ListHandlers) Sites(w http.ResponseWriter, r *http.Request) {
	sites, err := h.client.AvailableSitePaths(r.Context())
	if err != nil {
		RenderError(w, h.logger, err)
		return
	}
	RenderJSON(w, http.StatusOK, h.sitePresenter.ToSites(sites))
}
