package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/couchcryptid/weather-type-service/internal/domain"
	"github.com/couchcryptid/weather-type-service/internal/form"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// FormService is the application surface the API drives.
type FormService interface {
	sharedobs.ReadinessChecker
	Options() form.Options
	Presets() []domain.Template
	NewSession(ctx context.Context) (string, domain.InputState, error)
	State(ctx context.Context, id string) (domain.InputState, error)
	SelectPreset(ctx context.Context, id, preset string) (domain.InputState, error)
	Update(ctx context.Context, id string, patch domain.InputPatch) (domain.InputState, error)
	Predict(ctx context.Context, id string) (domain.Prediction, error)
	EndSession(ctx context.Context, id string) error
}

// Server exposes the form API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	forms      FormService
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and the
// /api/v1 form routes.
func NewServer(addr string, forms FormService, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		forms:  forms,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(forms))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/v1/options", s.handleOptions)
	mux.HandleFunc("GET /api/v1/presets", s.handlePresets)
	mux.HandleFunc("POST /api/v1/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /api/v1/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("PATCH /api/v1/sessions/{id}", s.handleUpdateSession)
	mux.HandleFunc("DELETE /api/v1/sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("POST /api/v1/sessions/{id}/presets/{name}", s.handleSelectPreset)
	mux.HandleFunc("POST /api/v1/sessions/{id}/predict", s.handlePredict)

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

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}
