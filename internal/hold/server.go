package hold

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// DefaultStartPort is the first port the coordinator tries to bind.
// Binding increments from here until one succeeds.
const DefaultStartPort = 11132

// Server is the hold coordinator's HTTP control plane, mirroring
// internal/controller/server.go's New/Run/Shutdown shape.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
	holds      *Map
}

// Option configures optional Server behavior.
type Option func(*serverConfig)

type serverConfig struct {
	secret         string
	rateLimiter    *RateLimiter
	metricsHandler http.Handler
}

// WithSharedSecret requires every request to carry an
// "Authorization: Bearer <secret>" header, checked in constant time.
func WithSharedSecret(secret string) Option {
	return func(c *serverConfig) { c.secret = secret }
}

// WithRateLimiter attaches a process-wide rate limiter to every route.
func WithRateLimiter(rl *RateLimiter) Option {
	return func(c *serverConfig) { c.rateLimiter = rl }
}

// WithMetricsHandler mounts handler at GET /metrics on the
// coordinator's mux, subject to the same rate limit and bearer auth
// (if configured) as every other route.
func WithMetricsHandler(handler http.Handler) Option {
	return func(c *serverConfig) { c.metricsHandler = handler }
}

// NewServer binds the coordinator's HTTP listener starting at
// startPort and incrementing until a bind succeeds, then builds the
// mux and http.Server around it. The listener is bound (and its port
// therefore known) before this function returns, so Addr() always
// reports the port actually in use -- never a pre-bind guess.
func NewServer(holds *Map, startPort int, opts ...Option) (*Server, error) {
	cfg := &serverConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	ln, err := bindIncrementing(startPort)
	if err != nil {
		return nil, err
	}

	s := &Server{holds: holds, listener: ln}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /release/{service}", s.handleRelease)
	mux.HandleFunc("GET /release-all", s.handleReleaseAll)
	mux.HandleFunc("GET /list", s.handleList)
	if cfg.metricsHandler != nil {
		mux.Handle("GET /metrics", cfg.metricsHandler)
	}

	var handler http.Handler = mux
	if cfg.rateLimiter != nil {
		handler = cfg.rateLimiter.Middleware(handler)
	}
	if cfg.secret != "" {
		handler = requireBearer(cfg.secret, handler)
	}

	s.httpServer = &http.Server{
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s, nil
}

func bindIncrementing(startPort int) (net.Listener, error) {
	const maxAttempts = 1000
	var lastErr error
	for port := startPort; port < startPort+maxAttempts; port++ {
		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err == nil {
			return ln, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("hold: failed to bind any port starting at %d: %w", startPort, lastErr)
}

// Addr returns the address actually bound, e.g. "[::]:11132".
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Run serves the coordinator until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(s.listener); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	}
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleRelease(w http.ResponseWriter, r *http.Request) {
	service := r.PathValue("service")
	if s.holds.Release(service) {
		respondJSON(w, http.StatusOK, service)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}

func (s *Server) handleReleaseAll(w http.ResponseWriter, r *http.Request) {
	released := s.holds.ReleaseAll()
	respondJSON(w, http.StatusOK, released)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.holds.List())
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("hold: failed to encode response", "error", err)
	}
}
