// Package api serves the show catalog and the create/edit pipeline over HTTP
package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/radiograb/internal/metrics"
	"github.com/radiograb/internal/models"
	"github.com/radiograb/internal/pipeline"
	"github.com/radiograb/internal/storage"
	"github.com/radiograb/pkg/logger"
)

// Catalog is the read side of the store
type Catalog interface {
	GetShowByID(ctx context.Context, id uint) (*models.Show, error)
	ListShows(ctx context.Context, filter storage.ShowFilter) ([]*models.Show, error)
	ListStations(ctx context.Context, filter storage.StationFilter) ([]*models.Station, error)
}

// Submitter runs create and edit submissions
type Submitter interface {
	Create(ctx context.Context, form url.Values) *pipeline.Result
	Edit(ctx context.Context, showID uint, form url.Values) *pipeline.Result
}

// Options tune the router. Zero values are usable.
type Options struct {
	Metrics      *metrics.Metrics
	Gatherer     prometheus.Gatherer
	MaxBodyBytes int64
}

// NewRouter wires every route
func NewRouter(catalog Catalog, submitter Submitter, log *logger.Logger, opts Options) http.Handler {
	log = log.WithComponent("api")
	h := &Handler{Catalog: catalog, Pipeline: submitter, Log: log}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLog(log, opts.Metrics))
	r.Use(recoverer(log))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	if opts.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Get("/stations", h.ListStations)
	r.Get("/shows", h.ListShows)
	r.Get("/shows/{id}", h.GetShow)

	r.Group(func(r chi.Router) {
		r.Use(maxBytes(opts.MaxBodyBytes))
		r.Post("/shows", h.CreateShow)
		r.Post("/shows/{id}", h.EditShow)
		r.Put("/shows/{id}", h.EditShow)
	})

	return r
}
