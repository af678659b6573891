// File: internal/api/server.go
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/humantype/internal/config"
	"github.com/xkilldash9x/humantype/internal/humanoid"
	"github.com/xkilldash9x/humantype/internal/session"
)

// maxBodyBytes caps /type and /calibrate payloads.
const maxBodyBytes = 1 << 20

const defaultShutdownTimeout = 10 * time.Second

// banner is served at the root when no UI directory is configured.
const banner = "humantype helper running. Open the web UI to control it."

// Controller is the part of the session controller the control surface
// drives.
type Controller interface {
	Status() session.Status
	Start(ctx context.Context, text string) (session.Status, error)
	Stop()
	TogglePause() (bool, error)
	UpdateConfig(update func(humanoid.Config) (humanoid.Config, error)) (humanoid.Config, error)
	SetWPM(wpm int) int
	Calibrate(s humanoid.Samples) (humanoid.Profile, error)
}

var _ Controller = (*session.Controller)(nil)

// Server is the HTTP control surface.
type Server struct {
	ctrl    Controller
	cfg     config.ServerConfig
	log     *zap.Logger
	limiter *rate.Limiter
	metrics http.Handler
	stream  http.Handler
	router  chi.Router
}

// Option configures optional endpoints.
type Option func(*Server)

// WithMetrics serves h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithStatusStream serves h at /ws/status.
func WithStatusStream(h http.Handler) Option {
	return func(s *Server) { s.stream = h }
}

// New builds the control surface around ctrl.
func New(ctrl Controller, cfg config.ServerConfig, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		ctrl: ctrl,
		cfg:  cfg,
		log:  logger.Named("api"),
	}
	if cfg.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware(s.cfg.CORSOrigin))

	// Long-lived connections stay outside the timeout and rate limit.
	if s.stream != nil {
		r.Handle("/ws/status", s.stream)
	}

	r.Group(func(r chi.Router) {
		r.Use(requestLogger(s.log))
		r.Use(rateLimitMiddleware(s.limiter))
		if s.cfg.RequestTimeout > 0 {
			r.Use(middleware.Timeout(s.cfg.RequestTimeout))
		}

		r.Get("/healthz", s.handleHealth)
		r.Get("/status", s.handleStatus)
		r.Get("/config", s.handleConfig)
		r.Post("/calibrate", s.handleCalibrate)
		r.Post("/type", s.handleType)
		r.Get("/stop", s.handleStop)
		r.Get("/pause", s.handlePause)
		r.Get("/livewpm", s.handleSetWPM)
		r.Get("/setwpm", s.handleSetWPM)
		if s.metrics != nil {
			r.Handle("/metrics", s.metrics)
		}

		s.mountUI(r)
	})
	return r
}

// mountUI serves the configured UI directory at the root, falling back to
// the plain banner when none is configured or it cannot be found.
func (s *Server) mountUI(r chi.Router) {
	dir := s.cfg.UIDir
	if dir != "" {
		expanded, err := homedir.Expand(dir)
		if err == nil {
			dir = expanded
		}
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			s.log.Warn("UI directory not found, serving banner instead", zap.String("path", dir))
			dir = ""
		}
	}
	if dir == "" {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			writeText(w, http.StatusOK, banner)
		})
		return
	}
	s.log.Info("Serving web UI", zap.String("path", dir))
	r.Handle("/*", http.FileServer(http.Dir(dir)))
}

// Run serves on the configured address until ctx is cancelled, then shuts
// down gracefully within the configured timeout.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.ListenAddr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("Control surface listening", zap.String("address", ln.Addr().String()))
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("Shutting down control surface")
	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
