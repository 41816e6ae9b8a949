package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/outage-tracker/internal/domain"
	"github.com/couchcryptid/outage-tracker/internal/service"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// EventService is the application surface the API exposes.
type EventService interface {
	sharedobs.ReadinessChecker

	List(ctx context.Context, q service.Query) ([]domain.Event, error)
	Get(ctx context.Context, id string) (domain.Event, error)
	Create(ctx context.Context, d domain.Draft) (domain.Event, error)
	Update(ctx context.Context, id string, d domain.Draft) (domain.Event, error)
	Delete(ctx context.Context, id string) error

	Overview(ctx context.Context, w domain.Window) (domain.Overview, error)
	DurationView(ctx context.Context, w domain.Window) (domain.DurationView, error)
	DamageView(ctx context.Context, w domain.Window, category domain.Category) (domain.DamageView, error)
	LocationView(ctx context.Context, severity domain.Severity) (domain.LocationView, error)
	KnownLocations(ctx context.Context) ([]domain.LocationEntry, error)
	CheckDuration(input string) (service.DurationCheck, error)
	Snapshot(ctx context.Context) ([]domain.Event, domain.Overview, error)
}

// Server exposes the event API alongside health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	svc        EventService
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the API and operational routes.
func NewServer(addr string, svc EventService, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		svc:    svc,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(svc))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/v1/events", s.handleListEvents)
	mux.HandleFunc("POST /api/v1/events", s.handleCreateEvent)
	mux.HandleFunc("GET /api/v1/events/{id}", s.handleGetEvent)
	mux.HandleFunc("PUT /api/v1/events/{id}", s.handleUpdateEvent)
	mux.HandleFunc("DELETE /api/v1/events/{id}", s.handleDeleteEvent)

	mux.HandleFunc("GET /api/v1/stats/overview", s.handleOverview)
	mux.HandleFunc("GET /api/v1/stats/durations", s.handleDurations)
	mux.HandleFunc("GET /api/v1/stats/damages", s.handleDamages)
	mux.HandleFunc("GET /api/v1/stats/locations", s.handleLocations)

	mux.HandleFunc("GET /api/v1/locations", s.handleKnownLocations)
	mux.HandleFunc("GET /api/v1/durations/check", s.handleCheckDuration)

	mux.HandleFunc("GET /api/v1/export.xlsx", s.handleExportXLSX)
	mux.HandleFunc("GET /api/v1/export.pdf", s.handleExportPDF)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}
