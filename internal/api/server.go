package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	goversion "github.com/hashicorp/go-version"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/srtux/sre-agent-sub000/internal/logging"
	"github.com/srtux/sre-agent-sub000/internal/orchestrator"
	"github.com/srtux/sre-agent-sub000/internal/session"
)

// ReadinessChecker is an interface for checking component readiness.
type ReadinessChecker interface {
	Name() string
	IsReady() bool
}

// readinessProbeTimeout caps the fan-out over all readiness checkers.
const readinessProbeTimeout = 2 * time.Second

// Config configures the API server.
type Config struct {
	Port         int
	Orchestrator *orchestrator.Orchestrator
	Sessions     session.Service

	// MetricsRegistry backs GET /metrics. Optional.
	MetricsRegistry *prometheus.Registry

	// MCPServer backs POST /v1/mcp. Optional.
	MCPServer *mcpserver.MCPServer

	// MinClientVersion rejects chat clients below this semantic version when
	// they send X-Client-Version. Optional.
	MinClientVersion string

	// Readiness checkers are probed concurrently by GET /readyz.
	Readiness []ReadinessChecker
}

// Server handles HTTP API requests.
type Server struct {
	port             int
	server           *http.Server
	router           *http.ServeMux
	logger           *logging.Logger
	orchestrator     *orchestrator.Orchestrator
	sessions         session.Service
	metricsRegistry  *prometheus.Registry
	mcpServer        *mcpserver.MCPServer
	minClientVersion *goversion.Version
	readiness        []ReadinessChecker
}

// New creates the API server.
func New(cfg Config) (*Server, error) {
	if cfg.Orchestrator == nil {
		return nil, fmt.Errorf("orchestrator is required")
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session service is required")
	}

	s := &Server{
		port:            cfg.Port,
		router:          http.NewServeMux(),
		logger:          logging.GetLogger("api"),
		orchestrator:    cfg.Orchestrator,
		sessions:        cfg.Sessions,
		metricsRegistry: cfg.MetricsRegistry,
		mcpServer:       cfg.MCPServer,
		readiness:       cfg.Readiness,
	}

	if cfg.MinClientVersion != "" {
		minVersion, err := goversion.NewVersion(cfg.MinClientVersion)
		if err != nil {
			return nil, fmt.Errorf("invalid MinClientVersion %q: %w", cfg.MinClientVersion, err)
		}
		s.minClientVersion = minVersion
	}

	s.registerHandlers()

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: s.corsMiddleware(s.requestLogMiddleware(s.versionGateMiddleware(s.router))),
		// No WriteTimeout: chat turns stream for as long as the
		// investigation runs.
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s, nil
}

// registerHandlers registers all HTTP handlers.
func (s *Server) registerHandlers() {
	chatHandler := NewChatHandler(s.orchestrator, s.logger)
	sessionsHandler := NewSessionsHandler(s.sessions, s.logger)

	s.router.HandleFunc("/api/chat", s.withMethod(http.MethodPost, chatHandler.Handle))
	s.router.HandleFunc("/api/sessions", s.withMethod(http.MethodGet, sessionsHandler.Handle))
	s.router.HandleFunc("/healthz", s.handleHealth)
	s.router.HandleFunc("/readyz", s.handleReady)

	if s.metricsRegistry != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.metricsRegistry, promhttp.HandlerOpts{}))
	}

	if s.mcpServer != nil {
		endpointPath := "/v1/mcp"
		streamableServer := mcpserver.NewStreamableHTTPServer(
			s.mcpServer,
			mcpserver.WithEndpointPath(endpointPath),
			mcpserver.WithStateLess(true),
		)
		s.router.Handle(endpointPath, streamableServer)
		s.logger.Info("MCP endpoint registered at %s", endpointPath)
	}
}

// Start implements the lifecycle.Component interface.
func (s *Server) Start(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error: %v", err)
		}
	}()

	s.logger.Info("API server started and listening on port %d", s.port)
	return nil
}

// Stop implements the lifecycle.Component interface.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")

	done := make(chan error, 1)
	go func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		done <- s.server.Shutdown(shutdownCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			s.logger.Error("HTTP server shutdown error: %v", err)
			return err
		}
		s.logger.Info("API server stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("API server shutdown timeout")
		return ctx.Err()
	}
}

// Name implements the lifecycle.Component interface.
func (s *Server) Name() string {
	return "API Server"
}

// GetPort returns the port the server is listening on.
func (s *Server) GetPort() int {
	return s.port
}

// handleHealth handles liveness check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = WriteJSON(w, map[string]interface{}{"status": "healthy"})
}

// handleReady handles readiness check requests. All checkers are probed
// concurrently; any failure makes the server not ready.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessProbeTimeout)
	defer cancel()

	components := make(map[string]bool, len(s.readiness))
	ready := true

	if len(s.readiness) > 0 {
		results := make([]bool, len(s.readiness))
		g, _ := errgroup.WithContext(ctx)
		for i, checker := range s.readiness {
			g.Go(func() error {
				results[i] = checker.IsReady()
				return nil
			})
		}
		_ = g.Wait()

		for i, checker := range s.readiness {
			components[checker.Name()] = results[i]
			if !results[i] {
				ready = false
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if ready {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = WriteJSON(w, map[string]interface{}{
		"ready":      ready,
		"components": components,
	})
}
