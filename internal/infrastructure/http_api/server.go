package http_api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/davarch/ci-dashboard/internal/domain"
	"go.uber.org/zap"
)

type Aggregator interface {
	Aggregate(ctx context.Context, paths []string) (domain.Result, error)
}

// Server exposes the aggregated view as JSON. Every request runs a fresh
// aggregation over the paths returned by paths().
type Server struct {
	log    *zap.Logger
	agg    Aggregator
	paths  func() []string
	router *http.ServeMux
}

func NewServer(l *zap.Logger, agg Aggregator, paths func() []string) *Server {
	s := &Server{log: l, agg: agg, paths: paths, router: http.NewServeMux()}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	s.router.HandleFunc("GET /api/projects", s.handleProjects)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	res, err := s.agg.Aggregate(r.Context(), s.paths())
	if err != nil {
		s.log.Warn("aggregation failed", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListenAndServe blocks until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
