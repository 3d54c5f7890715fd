// pkg/api/server.go

// Package api exposes the ingestion pipeline and reporting queries over
// HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/greenview/ingress/pkg/config"
	"github.com/greenview/ingress/pkg/ingest"
	"github.com/greenview/ingress/pkg/insight"
	"github.com/greenview/ingress/pkg/predict"
	"github.com/greenview/ingress/pkg/store"
)

// Server wires the HTTP routes to the pipeline, store, and external
// collaborators. The insight generator and forecaster are optional; the
// corresponding endpoints answer 503 when they are not configured.
type Server struct {
	router     *mux.Router
	store      store.Store
	pipeline   *ingest.Pipeline
	tracker    *ingest.UploadTracker
	insights   insight.Generator
	forecaster predict.Forecaster
	logger     *zap.Logger
	maxUpload  int64
}

// NewServer builds a fully routed server.
func NewServer(
	s store.Store,
	pipeline *ingest.Pipeline,
	tracker *ingest.UploadTracker,
	insights insight.Generator,
	forecaster predict.Forecaster,
	cfg *config.Config,
	logger *zap.Logger,
) (*Server, error) {
	if s == nil {
		return nil, errors.New("store cannot be nil")
	}
	if pipeline == nil {
		return nil, errors.New("pipeline cannot be nil")
	}
	if tracker == nil {
		return nil, errors.New("tracker cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	srv := &Server{
		router:     mux.NewRouter(),
		store:      s,
		pipeline:   pipeline,
		tracker:    tracker,
		insights:   insights,
		forecaster: forecaster,
		logger:     logger,
		maxUpload:  int64(cfg.MaxUploadSizeMB) << 20,
	}
	srv.routes()
	return srv, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(s.logRequests)

	api.HandleFunc("/upload", s.handleUpload).Methods(http.MethodPost)
	api.HandleFunc("/uploads", s.handleListUploads).Methods(http.MethodGet)
	api.HandleFunc("/uploads/{id}", s.handleGetUpload).Methods(http.MethodGet)

	api.HandleFunc("/datasets", s.handleListDatasets).Methods(http.MethodGet)
	api.HandleFunc("/datasets/{id}", s.handleGetDataset).Methods(http.MethodGet)
	api.HandleFunc("/datasets/{id}", s.handleDeleteDataset).Methods(http.MethodDelete)
	api.HandleFunc("/datasets/{id}/rows", s.handleGetDatasetRows).Methods(http.MethodGet)
	api.HandleFunc("/datasets/{id}/metrics", s.handleGetDatasetMetrics).Methods(http.MethodGet)

	api.HandleFunc("/metrics/dashboard", s.handleDashboard).Methods(http.MethodGet)
	api.HandleFunc("/scenarios/score", s.handleScenario).Methods(http.MethodPost)
	api.HandleFunc("/insights", s.handleInsights).Methods(http.MethodPost)
	api.HandleFunc("/predictions", s.handlePredictions).Methods(http.MethodPost)
}

// logRequests logs method, path, status, and latency for every request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("Request handled",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// errorResponse is the uniform error payload.
type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, format string, args ...interface{}) {
	s.writeJSON(w, status, errorResponse{Error: fmt.Sprintf(format, args...)})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, cfg *config.ServerConfig) error {
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown failed: %w", err)
	}
	return nil
}
