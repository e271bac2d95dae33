// Package server hosts remote viewer sessions over HTTP and WebSocket.
//
// Each viewer is a [session.Loop] drawing into an offscreen canvas. Clients
// create a viewer from a snapshot, send pointer and zoom input, and fetch
// rendered frames as PNG, either by polling or over a WebSocket. The batch
// pipeline is exposed at POST /render and metrics at GET /metrics.
package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/ontograph/pkg/config"
	"github.com/matzehuels/ontograph/pkg/layout/force"
	"github.com/matzehuels/ontograph/pkg/pipeline"
	"github.com/matzehuels/ontograph/pkg/source"
)

const (
	cleanupInterval = time.Minute
	shutdownTimeout = 10 * time.Second
	maxBodyBytes    = 8 << 20
)

// Config configures viewers and the listener.
type Config struct {
	Addr        string
	FrameRate   int
	Width       float64
	Height      float64
	DeviceScale float64
	ClickSlop   float64
	Force       force.Config
	SessionTTL  time.Duration
}

// ConfigFrom extracts the server settings from the application config.
func ConfigFrom(c config.Config) Config {
	return Config{
		Addr:        c.Server.Addr,
		FrameRate:   c.Server.FrameRate,
		Width:       c.View.Width,
		Height:      c.View.Height,
		DeviceScale: c.View.DeviceScale,
		ClickSlop:   c.View.ClickSlop,
		Force:       c.Simulation,
		SessionTTL:  c.Server.SessionTTL,
	}
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and session logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRunner sets the pipeline runner behind POST /render.
func WithRunner(r *pipeline.Runner) Option {
	return func(s *Server) { s.runner = r }
}

// WithSource enables loading snapshots by name.
func WithSource(src source.Source) Option {
	return func(s *Server) { s.source = src }
}

// WithMetrics exposes m at /metrics and reports the active viewer count.
func WithMetrics(m *Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// Server is the HTTP host.
type Server struct {
	cfg     Config
	logger  *log.Logger
	runner  *pipeline.Runner
	source  source.Source
	metrics *Metrics
	viewers *registry

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a server. Viewer loops live until Close, independent of the
// request that created them.
func New(cfg Config, opts ...Option) *Server {
	def := ConfigFrom(config.Default())
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = def.FrameRate
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = def.Width, def.Height
	}
	if cfg.DeviceScale <= 0 {
		cfg.DeviceScale = def.DeviceScale
	}

	s := &Server{cfg: cfg, logger: log.New(io.Discard)}
	for _, opt := range opts {
		opt(s)
	}
	if s.runner == nil {
		s.runner = pipeline.NewRunner(nil, nil, s.logger)
	}
	s.viewers = newRegistry(cfg.SessionTTL, s.metrics)
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	r.Post("/render", s.handleRender)

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.handleCreate)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/state", s.handleState)
			r.Get("/layout", s.handleLayout)
			r.Get("/frame.png", s.handleFrame)
			r.Get("/export", s.handleExport)
			r.Get("/ws", s.handleWS)
			r.Put("/snapshot", s.handleSnapshot)
			r.Post("/zoom-in", s.handleZoomIn)
			r.Post("/zoom-out", s.handleZoomOut)
			r.Post("/reset", s.handleReset)
			r.Post("/pointer", s.handlePointer)
			r.Delete("/", s.handleDelete)
		})
	})
	return r
}

// ListenAndServe serves on the configured address until ctx is canceled,
// then shuts down gracefully and closes every viewer.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	defer s.Close()

	go s.janitor(ctx)

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	s.logger.Info("listening", "addr", ln.Addr().String())

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) janitor(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.ctx.Done():
			return
		case now := <-ticker.C:
			if n := s.viewers.Cleanup(now); n > 0 {
				s.logger.Info("expired sessions", "count", n)
			}
		}
	}
}

// Close stops every viewer loop.
func (s *Server) Close() {
	s.cancel()
	s.viewers.Close()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
