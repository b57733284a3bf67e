// Package runner wraps the ADK runner for turn-based agent execution.
package runner

import (
	"context"
	"fmt"
	"iter"
	"sync"

	"google.golang.org/adk/agent"
	"google.golang.org/adk/runner"
	adksession "google.golang.org/adk/session"
	"google.golang.org/genai"

	"github.com/srtux/sre-agent-sub000/internal/logging"
)

// AppName identifies the agent application to the ADK runtime.
const AppName = "sre-agent"

// Config configures a Runner.
type Config struct {
	// Agent is the agent to execute.
	Agent agent.Agent

	// SessionService holds the agent-side conversation state. Defaults to
	// the ADK in-memory service.
	SessionService adksession.Service
}

// Runner executes one agent turn at a time against the ADK runtime and
// yields the resulting event stream.
type Runner struct {
	adkRunner      *runner.Runner
	sessionService adksession.Service
	logger         *logging.Logger

	mu      sync.Mutex
	ensured map[string]bool
}

// New creates a Runner for the given agent.
func New(cfg Config) (*Runner, error) {
	if cfg.Agent == nil {
		return nil, fmt.Errorf("agent is required")
	}

	svc := cfg.SessionService
	if svc == nil {
		svc = adksession.InMemoryService()
	}

	adkRunner, err := runner.New(runner.Config{
		AppName:        AppName,
		Agent:          cfg.Agent,
		SessionService: svc,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ADK runner: %w", err)
	}

	return &Runner{
		adkRunner:      adkRunner,
		sessionService: svc,
		logger:         logging.GetLogger("agent.runner"),
		ensured:        make(map[string]bool),
	}, nil
}

// ensureSession creates the ADK session on first use.
func (r *Runner) ensureSession(ctx context.Context, userID, sessionID string) error {
	key := userID + "/" + sessionID

	r.mu.Lock()
	done := r.ensured[key]
	r.mu.Unlock()
	if done {
		return nil
	}

	_, err := r.sessionService.Create(ctx, &adksession.CreateRequest{
		AppName:   AppName,
		UserID:    userID,
		SessionID: sessionID,
	})
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	r.mu.Lock()
	r.ensured[key] = true
	r.mu.Unlock()

	r.logger.Debug("created agent session %s for user %s", sessionID, userID)
	return nil
}

// Run executes one turn for the given message and returns the agent's event
// stream. The sequence ends after the final response event or on error.
func (r *Runner) Run(ctx context.Context, userID, sessionID, message string) (iter.Seq2[*adksession.Event, error], error) {
	if err := r.ensureSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}

	userContent := &genai.Content{
		Role: "user",
		Parts: []*genai.Part{
			{Text: message},
		},
	}

	runConfig := agent.RunConfig{
		StreamingMode: agent.StreamingModeNone,
	}

	return r.adkRunner.Run(ctx, userID, sessionID, userContent, runConfig), nil
}
