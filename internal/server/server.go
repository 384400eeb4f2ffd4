// Package server exposes the widget over HTTP: the Leaflet page, the layer
// snapshot the page polls, widget status and Prometheus metrics.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/Zachdehooge/radar-dashboard/internal/config"
	"github.com/Zachdehooge/radar-dashboard/internal/generator"
	"github.com/Zachdehooge/radar-dashboard/internal/mapview"
	"github.com/Zachdehooge/radar-dashboard/internal/widget"
)

// Dashboard is the part of the widget the server reads.
type Dashboard interface {
	Map() *mapview.Map
	Status(ctx context.Context) (widget.Status, error)
}

type Server struct {
	dash   Dashboard
	page   []byte
	logger *zap.Logger
	srv    *http.Server
}

// New renders the page once and builds the handler tree.
func New(dash Dashboard, cfg *config.Config, logger *zap.Logger) (*Server, error) {
	page, err := generator.Page(cfg)
	if err != nil {
		return nil, err
	}
	s := &Server{dash: dash, page: page, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handlePage)
	mux.HandleFunc("GET "+generator.LayersPath, s.handleLayers)
	mux.HandleFunc("GET "+generator.FeaturesPath+"{revision}", s.handleFeatures)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	s.srv = &http.Server{
		Addr:              cfg.Listen,
		Handler:           cors.AllowAll().Handler(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) Handler() http.Handler { return s.srv.Handler }

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", s.srv.Addr))
		errc <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(s.page)
}

func (s *Server) handleLayers(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.dash.Map().Snapshot())
}

// handleFeatures serves the features of the attached layer with this revision.
// Revisions restart with the process, so responses are not cached.
func (s *Server) handleFeatures(w http.ResponseWriter, r *http.Request) {
	rev, err := strconv.ParseUint(r.PathValue("revision"), 10, 64)
	if err != nil {
		http.Error(w, "invalid revision", http.StatusBadRequest)
		return
	}
	fc, ok := s.dash.Map().Features(rev)
	if !ok {
		http.NotFound(w, r)
		return
	}
	body, err := sonic.Marshal(fc)
	if err != nil {
		s.logger.Error("failed to encode features", zap.Uint64("revision", rev), zap.Error(err))
		http.Error(w, "encoding failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(body)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.dash.Status(r.Context())
	if err != nil {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	body, err := sonic.Marshal(v)
	if err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
		http.Error(w, "encoding failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_, _ = w.Write(body)
}
