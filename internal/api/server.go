// Package api exposes the HTTP interface for the pricewatch service.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dealwatch/pricewatch/internal/config"
	"github.com/dealwatch/pricewatch/internal/metrics"
	"github.com/dealwatch/pricewatch/internal/watch"
)

// BatchRunner triggers one tracker batch.
type BatchRunner interface {
	RunBatch(ctx context.Context) (watch.BatchOutcome, error)
}

// Server wires HTTP handlers to the tracker and the watch store.
type Server struct {
	router chi.Router
	runner BatchRunner
	store  watch.Store
	cfg    config.Config
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(runner BatchRunner, store watch.Store, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		runner: runner,
		store:  store,
		cfg:    cfg,
		logger: logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(60 * time.Second))
	if cfg.Auth.Enabled {
		r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
	}

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/tracker/run", s.runTracker)
		r.Route("/watches", func(r chi.Router) {
			r.Post("/", s.createWatch)
			r.Get("/", s.listWatches)
			r.Delete("/{watch_id}", s.deleteWatch)
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.ListAll(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "store unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// trackerRunResponse is the batch summary returned to the trigger caller.
type trackerRunResponse struct {
	Message  string              `json:"message"`
	Total    int                 `json:"total"`
	Fired    int                 `json:"fired"`
	Failed   int                 `json:"failed"`
	Failures []watch.ItemFailure `json:"failures,omitempty"`
}

func (s *Server) runTracker(w http.ResponseWriter, r *http.Request) {
	outcome, err := s.runner.RunBatch(r.Context())
	if err != nil {
		s.logger.Error("batch run failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred while tracking prices.")
		return
	}
	if outcome.NoWork {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "No alerts found to process."})
		return
	}
	writeJSON(w, http.StatusOK, trackerRunResponse{
		Message:  "Price tracking process completed.",
		Total:    outcome.Total,
		Fired:    outcome.Fired,
		Failed:   outcome.Failed,
		Failures: outcome.Failures,
	})
}

type createWatchRequest struct {
	URL               string  `json:"url"`
	TargetPrice       float64 `json:"target_price"`
	NotifyDestination string  `json:"notify_destination"`
	Title             string  `json:"title"`
}

func (s *Server) createWatch(w http.ResponseWriter, r *http.Request) {
	var req createWatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	candidate := watch.Request{
		URL:               req.URL,
		TargetPrice:       req.TargetPrice,
		NotifyDestination: req.NotifyDestination,
		Title:             req.Title,
	}
	if err := candidate.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := s.store.Create(r.Context(), candidate)
	if err != nil {
		s.logger.Error("create watch failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create watch")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) listWatches(w http.ResponseWriter, r *http.Request) {
	requests, err := s.store.ListAll(r.Context())
	if err != nil {
		s.logger.Error("list watches failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list watches")
		return
	}
	if requests == nil {
		requests = []watch.Request{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"watches": requests})
}

func (s *Server) deleteWatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "watch_id")
	if err := s.store.DeleteByID(r.Context(), id); err != nil {
		s.logger.Error("delete watch failed", zap.String("watch_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to delete watch")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type requestIDKey struct{}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			duration := time.Since(start)
			metrics.ObserveHTTPRequest(r.Method, r.URL.Path, ww.status, duration)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", duration.Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("error", rec))
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if key != expected {
				writeError(w, http.StatusForbidden, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
