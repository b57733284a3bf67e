// Package tools provides the diagnostic tool registry for the SRE agent.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/srtux/sre-agent-sub000/internal/logging"
)

const (
	// MaxToolResponseBytes is the maximum size of a tool response in bytes.
	// Responses larger than this will be truncated to prevent context overflow.
	MaxToolResponseBytes = 64 * 1024
)

// Tool defines the interface for agent diagnostic tools.
type Tool interface {
	// Name returns the tool's unique identifier.
	Name() string

	// Description returns a human-readable description for the LLM.
	Description() string

	// InputSchema returns JSON Schema for input validation.
	InputSchema() map[string]interface{}

	// Execute runs the tool with given input.
	Execute(ctx context.Context, input json.RawMessage) (*Result, error)
}

// Result represents the output of a tool execution. Tool-level failures are
// carried inside the Result (Success=false); a returned error means the
// infrastructure around the tool broke.
type Result struct {
	// Success indicates if the tool executed successfully
	Success bool `json:"success"`

	// Data contains the tool's output (tool-specific structure)
	Data interface{} `json:"data,omitempty"`

	// Error contains error details if Success is false
	Error string `json:"error,omitempty"`

	// Summary is a brief description of what happened (for display)
	Summary string `json:"summary,omitempty"`

	// ExecutionTimeMs is how long the tool took to run
	ExecutionTimeMs int64 `json:"executionTimeMs"`
}

// truncatedData is used when tool output exceeds the byte limit. It preserves
// structure while indicating data was cut.
type truncatedData struct {
	Truncated      bool   `json:"_truncated"`
	OriginalBytes  int    `json:"_original_bytes"`
	TruncatedBytes int    `json:"_truncated_bytes"`
	TruncationNote string `json:"_truncation_note"`
	PartialData    string `json:"partial_data"`
}

// TruncateResult caps the result data at maxBytes so one oversized telemetry
// response cannot blow the model's context window.
func TruncateResult(result *Result, maxBytes int) *Result {
	if result == nil || result.Data == nil {
		return result
	}

	dataBytes, err := json.Marshal(result.Data)
	if err != nil {
		return result
	}
	if len(dataBytes) <= maxBytes {
		return result
	}

	// Keep the first ~80% of the allowed bytes as partial data.
	partialDataBytes := maxBytes * 80 / 100
	partialData := string(dataBytes)
	if len(partialData) > partialDataBytes {
		partialData = partialData[:partialDataBytes]
	}

	truncated := &truncatedData{
		Truncated:      true,
		OriginalBytes:  len(dataBytes),
		TruncatedBytes: maxBytes,
		TruncationNote: fmt.Sprintf("Response truncated from %d to ~%d bytes to prevent context overflow. Consider using more specific filters to reduce result size.", len(dataBytes), maxBytes),
		PartialData:    partialData,
	}

	summary := result.Summary
	if summary != "" {
		summary = fmt.Sprintf("%s [TRUNCATED: %d→%d bytes]", summary, len(dataBytes), maxBytes)
	} else {
		summary = fmt.Sprintf("[TRUNCATED: %d→%d bytes]", len(dataBytes), maxBytes)
	}

	return &Result{
		Success:         result.Success,
		Data:            truncated,
		Error:           result.Error,
		Summary:         summary,
		ExecutionTimeMs: result.ExecutionTimeMs,
	}
}

// Registry manages tool registration and discovery.
type Registry struct {
	tools    map[string]Tool
	mu       sync.RWMutex
	logger   *logging.Logger
	maxBytes int
}

// Dependencies contains the external dependencies needed by tools.
type Dependencies struct {
	// ProjectID is the default cloud project the telemetry tools query.
	ProjectID string

	// MaxResultBytes overrides MaxToolResponseBytes when > 0.
	MaxResultBytes int

	Logger *logging.Logger
}

// NewRegistry creates a tool registry with the GCP telemetry tool set.
func NewRegistry(deps Dependencies) *Registry {
	r := &Registry{
		tools:    make(map[string]Tool),
		logger:   deps.Logger,
		maxBytes: deps.MaxResultBytes,
	}
	if r.logger == nil {
		r.logger = logging.GetLogger("agent.tools")
	}
	if r.maxBytes <= 0 {
		r.maxBytes = MaxToolResponseBytes
	}

	for _, t := range telemetryTools(deps.ProjectID) {
		r.register(t)
	}

	return r
}

func (r *Registry) register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name()]; exists {
		r.logger.Warn("tool %s already registered, overwriting", t.Name())
	}
	r.tools[t.Name()] = t
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns all registered tools.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	return out
}

// Execute runs the named tool and applies the response size cap.
func (r *Registry) Execute(ctx context.Context, name string, input json.RawMessage) (*Result, error) {
	t, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown tool: %s", name)
	}

	result, err := t.Execute(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("tool %s failed: %w", name, err)
	}
	return TruncateResult(result, r.maxBytes), nil
}
