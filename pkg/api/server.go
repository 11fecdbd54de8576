package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/therealmichaelberna/nokia.isam/pkg/configstore"
	"github.com/therealmichaelberna/nokia.isam/pkg/facts"
	"github.com/therealmichaelberna/nokia.isam/pkg/logging"
	"github.com/therealmichaelberna/nokia.isam/pkg/metrics"
)

// maxBodySize bounds the capture text accepted in request bodies.
const maxBodySize = 8 << 20

// Config configures the API server.
type Config struct {
	Addr      string
	Auth      *AuthConfig // nil = no authentication
	RateLimit rate.Limit  // requests per second on /api/ routes, 0 = unlimited
	Burst     int
	Store     *configstore.Store
	Gatherer  *facts.Gatherer
	EventBuf  *logging.EventBuffer
	Metrics   *metrics.Metrics // nil = a private registry
}

// Server is the HTTP API server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	store      *configstore.Store
	gatherer   *facts.Gatherer
	eventBuf   *logging.EventBuffer
	metrics    *metrics.Metrics
	startTime  time.Time
}

// NewServer creates a new API server.
func NewServer(cfg Config) *Server {
	s := &Server{
		store:     cfg.Store,
		gatherer:  cfg.Gatherer,
		eventBuf:  cfg.EventBuf,
		metrics:   cfg.Metrics,
		startTime: time.Now(),
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	if s.gatherer == nil {
		var f facts.Fetcher
		if cfg.Store != nil {
			f = cfg.Store
		}
		s.gatherer = facts.NewGatherer(f, facts.WithMetrics(s.metrics))
	}

	mux := http.NewServeMux()

	// Health + metrics
	mux.HandleFunc("GET /health", s.healthHandler)

	s.metrics.Registry().MustRegister(newCollector(s))
	mux.Handle("GET /metrics", s.metrics.Handler())

	// Flattening
	mux.HandleFunc("POST /api/v1/flatten/lines", s.flattenLinesHandler)
	mux.HandleFunc("POST /api/v1/flatten/tree", s.flattenTreeHandler)

	// Facts
	mux.HandleFunc("GET /api/v1/resources", s.resourcesHandler)
	mux.HandleFunc("GET /api/v1/facts/{resource}", s.factsGetHandler)
	mux.HandleFunc("POST /api/v1/facts/{resource}", s.factsParseHandler)

	// Snapshot store
	mux.HandleFunc("GET /api/v1/scopes", s.scopesHandler)
	mux.HandleFunc("GET /api/v1/scopes/{scope}/lines", s.scopeLinesHandler)
	mux.HandleFunc("GET /api/v1/scopes/{scope}/compare", s.scopeCompareHandler)

	// Logs
	mux.HandleFunc("GET /api/v1/log", s.logHandler)
	mux.HandleFunc("GET /api/v1/log/stream", s.logStreamHandler)

	var handler http.Handler = mux
	if cfg.RateLimit > 0 {
		handler = rateLimitMiddleware(rate.NewLimiter(cfg.RateLimit, cfg.Burst), handler)
	}
	if cfg.Auth != nil {
		handler = authMiddleware(*cfg.Auth, handler)
	}
	handler = requestIDMiddleware(handler)
	s.handler = handler

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the root handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run starts the HTTP server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP API server listening", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}
