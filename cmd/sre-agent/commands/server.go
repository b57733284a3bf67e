package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	adkmodel "google.golang.org/adk/model"

	"github.com/srtux/sre-agent-sub000/internal/agent"
	"github.com/srtux/sre-agent-sub000/internal/agent/model"
	"github.com/srtux/sre-agent-sub000/internal/agent/provider"
	"github.com/srtux/sre-agent-sub000/internal/agent/runner"
	"github.com/srtux/sre-agent-sub000/internal/agent/tools"
	"github.com/srtux/sre-agent-sub000/internal/api"
	"github.com/srtux/sre-agent-sub000/internal/audit"
	"github.com/srtux/sre-agent-sub000/internal/config"
	"github.com/srtux/sre-agent-sub000/internal/lifecycle"
	"github.com/srtux/sre-agent-sub000/internal/logging"
	"github.com/srtux/sre-agent-sub000/internal/metrics"
	"github.com/srtux/sre-agent-sub000/internal/orchestrator"
	"github.com/srtux/sre-agent-sub000/internal/session"
	"github.com/srtux/sre-agent-sub000/internal/tracing"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the SRE agent HTTP server",
	Long: `Start the SRE agent server. It serves the /api/chat NDJSON turn
endpoint, session listings, health and readiness probes, Prometheus
metrics, and optionally the diagnostic tool registry over MCP.

Examples:
  # Start with defaults (Anthropic provider, port 8080)
  sre-agent server

  # Start with a config file; log levels hot-reload on file changes
  sre-agent server --config /etc/sre-agent/config.yaml

  # Replay a scripted incident without a model backend
  sre-agent server --mock-scenario scenarios/checkout-incident.yaml
`,
	RunE: runServer,
}

var (
	serverConfigPath   string
	serverAnthropicKey string
	serverMockScenario string
	serverAuditLog     string
)

func init() {
	serverCmd.Flags().StringVar(&serverConfigPath, "config", "",
		"Path to the YAML config file. Environment variables (SREAGENT_*) override file values.")
	serverCmd.Flags().StringVar(&serverAnthropicKey, "anthropic-key", "",
		"Anthropic API key (defaults to ANTHROPIC_API_KEY env var)")
	serverCmd.Flags().StringVar(&serverMockScenario, "mock-scenario", "",
		"Path to a mock scenario YAML. Implies the mock provider.")
	serverCmd.Flags().StringVar(&serverAuditLog, "audit-log", "",
		"Path to write a turn audit trail (JSONL format). If empty, audit logging is disabled.")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(serverConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if serverMockScenario != "" {
		cfg.Provider = "mock"
	}

	if err := setupLog(logLevelFlags, cfg.LogLevel, cfg.PackageLogLevels); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	logger := logging.GetLogger("main")
	logger.Info("Starting SRE Agent v%s (provider=%s, model=%s)", Version, cfg.Provider, cfg.Model)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	llm, err := buildLLM(cfg)
	if err != nil {
		return err
	}

	registry := tools.NewRegistry(tools.Dependencies{
		ProjectID:      cfg.ProjectID,
		MaxResultBytes: cfg.ToolResultMaxBytes,
	})

	investigationAgent, err := agent.New(llm, registry)
	if err != nil {
		return fmt.Errorf("failed to create agent: %w", err)
	}

	agentRunner, err := runner.New(runner.Config{Agent: investigationAgent})
	if err != nil {
		return fmt.Errorf("failed to create runner: %w", err)
	}

	sessions := session.NewInMemoryService()
	memory, err := session.NewMemoryStore(cfg.MemoryCacheSize)
	if err != nil {
		return fmt.Errorf("failed to create memory store: %w", err)
	}

	metricsRegistry := prometheus.NewRegistry()
	pipelineMetrics := metrics.New(metricsRegistry)

	var auditLogger *audit.Logger
	if serverAuditLog != "" {
		auditLogger, err = audit.NewLogger(serverAuditLog)
		if err != nil {
			return fmt.Errorf("failed to open audit log: %w", err)
		}
		defer func() { _ = auditLogger.Close() }()
	}

	turnOrchestrator, err := orchestrator.New(orchestrator.Config{
		Runner:   agentRunner,
		Sessions: sessions,
		Memory:   memory,
		Metrics:  pipelineMetrics,
		Audit:    auditLogger,
	})
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}

	apiCfg := api.Config{
		Port:             cfg.APIPort,
		Orchestrator:     turnOrchestrator,
		Sessions:         sessions,
		MetricsRegistry:  metricsRegistry,
		MinClientVersion: cfg.MinClientVersion,
	}
	if cfg.MCPEnabled {
		mcpServer, err := api.NewMCPServer(registry, Version)
		if err != nil {
			return fmt.Errorf("failed to create MCP server: %w", err)
		}
		apiCfg.MCPServer = mcpServer
	}

	apiServer, err := api.New(apiCfg)
	if err != nil {
		return fmt.Errorf("failed to create API server: %w", err)
	}

	tracingProvider, err := tracing.NewTracingProvider(tracing.Config{
		Enabled:   cfg.TracingEnabled,
		Endpoint:  cfg.TracingEndpoint,
		TLSCAPath: cfg.TracingTLSCAPath,
	})
	if err != nil {
		return fmt.Errorf("failed to create tracing provider: %w", err)
	}

	manager := lifecycle.NewManager()
	if err := manager.Register(tracingProvider); err != nil {
		return fmt.Errorf("failed to register tracing provider: %w", err)
	}
	if err := manager.Register(apiServer, tracingProvider); err != nil {
		return fmt.Errorf("failed to register API server: %w", err)
	}

	if err := manager.Start(ctx); err != nil {
		return fmt.Errorf("failed to start components: %w", err)
	}

	// Hot-reload log levels when the config file changes.
	if serverConfigPath != "" {
		watcher, err := config.NewWatcher(config.WatcherConfig{FilePath: serverConfigPath}, func(newCfg *config.Config) error {
			return setupLog(logLevelFlags, newCfg.LogLevel, newCfg.PackageLogLevels)
		})
		if err != nil {
			logger.Warn("config watcher disabled: %v", err)
		} else if err := watcher.Start(ctx); err != nil {
			logger.Warn("config watcher failed to start: %v", err)
		} else {
			defer func() { _ = watcher.Stop() }()
		}
	}

	logger.Info("SRE Agent started, listening on port %d", cfg.APIPort)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("Shutdown signal received, gracefully shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	manager.Stop(shutdownCtx)

	logger.Info("Shutdown complete")
	return nil
}

// buildLLM selects the reasoning model backend from config.
func buildLLM(cfg *config.Config) (adkmodel.LLM, error) {
	switch cfg.Provider {
	case "mock":
		if serverMockScenario == "" {
			return nil, fmt.Errorf("mock provider requires --mock-scenario")
		}
		mockLLM, err := model.NewMockLLM(serverMockScenario)
		if err != nil {
			return nil, fmt.Errorf("failed to load mock scenario: %w", err)
		}
		return mockLLM, nil

	case "anthropic":
		providerCfg := provider.DefaultConfig()
		providerCfg.Model = cfg.Model

		apiKey := serverAnthropicKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("Anthropic API key required. Set ANTHROPIC_API_KEY environment variable or use --anthropic-key flag")
		}
		anthropicLLM, err := model.NewAnthropicLLMWithKey(apiKey, &providerCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create anthropic model: %w", err)
		}
		return anthropicLLM, nil

	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
