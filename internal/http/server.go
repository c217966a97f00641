// Package http provides the gateway HTTP server: health and readiness endpoints, the
// signed device routes and the separate metrics server.
package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	cryptoService "github.com/allisson/envoy-gateway/internal/crypto/service"
	deviceHTTP "github.com/allisson/envoy-gateway/internal/device/http"
	"github.com/allisson/envoy-gateway/internal/metrics"
)

const readinessCheckTimeout = 2 * time.Second

// ReadinessCheck reports whether a dependency is usable.
type ReadinessCheck func(ctx context.Context) error

// RouterConfig carries everything SetupRouter mounts.
type RouterConfig struct {
	DeviceHandler *deviceHTTP.DeviceHandler
	Signer        cryptoService.Signer
	MaxBodyBytes  int64

	// MetricsProvider enables HTTP metrics when non-nil.
	MetricsProvider  *metrics.Provider
	MetricsNamespace string

	RateLimitEnabled        bool
	RateLimitRequestsPerSec float64
	RateLimitBurst          int

	CORSEnabled      bool
	CORSAllowOrigins string
}

// Server is the public gateway HTTP server.
type Server struct {
	server  *http.Server
	router  *gin.Engine
	logger  *slog.Logger
	version string

	mu     sync.RWMutex
	checks map[string]ReadinessCheck
}

// NewServer creates a Server listening on host:port. Call SetupRouter before Start.
func NewServer(host string, port int, version string, logger *slog.Logger) *Server {
	return &Server{
		logger:  logger,
		version: version,
		checks:  make(map[string]ReadinessCheck),
		server: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", host, port),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       60 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}
}

// AddReadinessCheck registers a named dependency probe reported by /ready.
func (s *Server) AddReadinessCheck(name string, check ReadinessCheck) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[name] = check
}

// SetupRouter builds the router. Device routes pass through rate limiting (when enabled)
// and then signature verification; health routes are public.
func (s *Server) SetupRouter(ctx context.Context, cfg RouterConfig) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	if cfg.MetricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(cfg.MetricsProvider.MeterProvider(), cfg.MetricsNamespace))
	}

	router.GET("/", s.rootHandler)
	router.GET("/health", s.healthHandler)
	router.GET("/ready", func(c *gin.Context) {
		s.readinessHandler(ctx, c)
	})

	if cfg.DeviceHandler != nil {
		var middlewares []gin.HandlerFunc
		if cfg.RateLimitEnabled {
			middlewares = append(middlewares, deviceHTTP.RateLimitMiddleware(
				ctx,
				cfg.RateLimitRequestsPerSec,
				cfg.RateLimitBurst,
				s.logger,
			))
		}
		middlewares = append(middlewares, deviceHTTP.SignatureMiddleware(cfg.Signer, cfg.MaxBodyBytes, s.logger))
		cfg.DeviceHandler.RegisterRoutes(router, middlewares...)
	}

	s.router = router
}

// GetHandler returns the router for tests.
func (s *Server) GetHandler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	if s.router == nil {
		return errors.New("router not configured")
	}
	s.server.Handler = s.router

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

func (s *Server) rootHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": s.version})
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler runs every registered check. It reports not_ready once appCtx is done so
// load balancers drain the instance during shutdown.
func (s *Server) readinessHandler(appCtx context.Context, c *gin.Context) {
	if appCtx.Err() != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}

	s.mu.RLock()
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	s.mu.RUnlock()
	sort.Strings(names)

	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessCheckTimeout)
	defer cancel()

	ready := true
	components := make(map[string]string, len(names))
	for _, name := range names {
		s.mu.RLock()
		check := s.checks[name]
		s.mu.RUnlock()

		if err := check(ctx); err != nil {
			ready = false
			components[name] = "error"
			s.logger.Warn("readiness check failed", slog.String("component", name), slog.Any("error", err))
			continue
		}
		components[name] = "ok"
	}

	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "components": components})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "components": components})
}
