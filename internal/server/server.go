// Package server exposes current usage, history and metrics over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/j-veylop/ai-quota-bar/internal/logger"
	"github.com/j-veylop/ai-quota-bar/internal/metrics"
	"github.com/j-veylop/ai-quota-bar/internal/models"
)

// Source provides the data served by the status endpoints.
type Source interface {
	Statuses() []models.KeyStatus
	WeeklyStats(key models.Key, now time.Time) ([]models.DailyStat, error)
	LimitHitCount(key models.Key, now time.Time) (int, error)
}

// HistoryResponse is the body of GET /api/history/{key}.
type HistoryResponse struct {
	Key       models.Key         `json:"key"`
	Label     string             `json:"label"`
	Days      []models.DailyStat `json:"days"`
	Sparkline string             `json:"sparkline"`
	LimitHits int                `json:"limitHits"`
}

type errorEnvelope struct {
	Error string `json:"error"`
}

// Server is the optional local status server.
type Server struct {
	http   *http.Server
	source Source
	now    func() time.Time
}

// New creates a server listening on addr.
func New(addr string, source Source, m *metrics.Metrics) *Server {
	s := &Server{source: source, now: time.Now}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.routes(m),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) routes(m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}
	r.Route("/api", func(ar chi.Router) {
		ar.Get("/usage", s.handleUsage)
		ar.Get("/history/{key}", s.handleHistory)
	})
	return r
}

func (s *Server) handleUsage(w http.ResponseWriter, _ *http.Request) {
	statuses := s.source.Statuses()
	if statuses == nil {
		statuses = []models.KeyStatus{}
	}
	writeJSON(w, http.StatusOK, statuses)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	key := models.Key(chi.URLParam(r, "key"))
	now := s.now()

	days, err := s.source.WeeklyStats(key, now)
	if err != nil {
		logger.Error("weekly stats failed", "key", key, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorEnvelope{Error: "failed to load history"})
		return
	}
	hits, err := s.source.LimitHitCount(key, now)
	if err != nil {
		logger.Error("limit hit count failed", "key", key, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorEnvelope{Error: "failed to load history"})
		return
	}
	if len(days) == 0 && hits == 0 {
		writeJSON(w, http.StatusNotFound, errorEnvelope{Error: "no history for " + string(key)})
		return
	}

	writeJSON(w, http.StatusOK, HistoryResponse{
		Key:       key,
		Label:     key.Label(),
		Days:      days,
		Sparkline: models.WeeklySparkline(days),
		LimitHits: hits,
	})
}

// ListenAndServe serves until Shutdown is called.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return err
	}
	logger.Info("status server listening", "addr", ln.Addr().String())
	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
