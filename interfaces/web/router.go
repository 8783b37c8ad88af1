// Package web wires the HTTP gateway routes.
package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"spconnect/application"
	"spconnect/domain/lists"
	"spconnect/infrastructure/spclient"
	"spconnect/interfaces/web/handlers"
	"spconnect/interfaces/web/presenters"
	"spconnect/logging"
)

// HealthChecker reports the state of the backing store.
type HealthChecker interface {
	Health(ctx context.Context) (map[string]any, error)
}

// Dependencies holds what the gateway needs, organised by layer.
type Dependencies struct {
	// Infrastructure
	Health   HealthChecker
	Client   spclient.SharePointClient
	Gatherer prometheus.Gatherer
	Logger   *logging.Logger

	// Application
	FileSystem   *application.FileSystemProvider
	Triggers     *application.TriggerService
	ListDefaults lists.Parameters

	// HTTPLog receives one JSON line per request; nil disables request logging.
	HTTPLog io.Writer
}

// NewRouter builds the gateway router.
func NewRouter(deps Dependencies) *chi.Mux {
	r := chi.NewRouter()

	if deps.HTTPLog != nil {
		httpLogger := httplog.NewLogger("spconnect", httplog.Options{
			Writer: deps.HTTPLog,
			JSON:   true,
		})
		r.Use(httplog.RequestLogger(httpLogger))
	}
	r.Use(middleware.Recoverer)

	setupSystemRoutes(r, deps)
	setupFileRoutes(r, deps)
	setupListRoutes(r, deps)
	setupTriggerRoutes(r, deps)

	return r
}

func setupSystemRoutes(r *chi.Mux, deps Dependencies) {
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response := map[string]any{"status": "ok"}
		if deps.Health != nil {
			stats, err := deps.Health.Health(r.Context())
			if err != nil {
				handlers.RenderJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "error": err.Error()})
				return
			}
			response["database"] = stats
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response)
	})

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}

func setupFileRoutes(r *chi.Mux, deps Dependencies) {
	if deps.FileSystem == nil {
		return
	}
	fs := handlers.NewFSHandlers(deps.FileSystem, presenters.NewFilePresenter())
	r.Route("/api/fs", func(r chi.Router) {
		r.Get("/stat", fs.Stat)
		r.Get("/browse", fs.Browse)
		r.Get("/enumerate", fs.Enumerate)
		r.Get("/content", fs.Download)
		r.Put("/content", fs.Upload)
		r.Delete("/content", fs.Delete)
		r.Post("/move", fs.Move)
	})
}

func setupListRoutes(r *chi.Mux, deps Dependencies) {
	if deps.Client == nil {
		return
	}
	lh := handlers.NewListHandlers(deps.Client, deps.ListDefaults, presenters.NewSitePresenter())
	r.Get("/api/sites", lh.Sites)
	r.Get("/api/documents", lh.DocumentsMetadata)
	r.Route("/api/lists/{title}", func(r chi.Router) {
		r.Get("/schema", lh.Schema)
		r.Get("/rows", lh.Rows)
		r.Post("/rows", lh.Append)
	})
}

func setupTriggerRoutes(r *chi.Mux, deps Dependencies) {
	if deps.Triggers == nil {
		return
	}
	th := handlers.NewTriggerHandlers(deps.Triggers, presenters.NewTriggerPresenter())
	r.Route("/api/triggers", func(r chi.Router) {
		r.Get("/", th.States)
		r.Delete("/", th.Reset)
		r.Post("/file", th.CheckFile)
		r.Post("/lists/{title}", th.CheckList)
	})
}
