// Package server exposes audit exports over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/crimson-sun/auditexport/internal/eventtype"
	"github.com/crimson-sun/auditexport/internal/exporter"
	"github.com/crimson-sun/auditexport/internal/ledger"
)

// Exporter runs exports on behalf of HTTP callers.
type Exporter interface {
	Run(ctx context.Context, guildID string, tokens []string) (exporter.Result, error)
	Types() *eventtype.Table
}

// History lists past exports.
type History interface {
	List(ctx context.Context, guildID string, limit int) ([]ledger.Record, error)
}

// Options configures a Server.
type Options struct {
	Exporter Exporter
	History  History // nil disables the history endpoint
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
	// ExportTimeout bounds each export request; zero means no limit.
	ExportTimeout time.Duration
}

// Server is the HTTP command surface.
type Server struct {
	exp      Exporter
	history  History
	gatherer prometheus.Gatherer
	logger   *zap.Logger
	timeout  time.Duration
}

// New creates a Server.
func New(opts Options) *Server {
	s := &Server{
		exp:      opts.Exporter,
		history:  opts.History,
		gatherer: opts.Gatherer,
		logger:   opts.Logger,
		timeout:  opts.ExportTimeout,
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(echoRequestID)
	r.Use(middleware.RequestLogger(zapLogFormatter{logger: s.logger}))
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	r.Route("/v1", func(r chi.Router) {
		r.Get("/types", s.listTypes)
		r.Post("/guilds/{guildID}/exports", s.createExport)
		r.Get("/guilds/{guildID}/exports", s.listExports)
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully, giving in-flight requests up to shutdownTimeout to finish.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

var _ Exporter = (*exporter.Exporter)(nil)
