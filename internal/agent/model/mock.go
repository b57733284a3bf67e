package model

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"strings"
	"sync"
	"time"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// MockLLM implements model.LLM for testing without real API calls.
// It replays pre-scripted scenarios loaded from YAML.
type MockLLM struct {
	scenario *Scenario
	matcher  *StepMatcher

	// Timing
	thinkingDelay time.Duration
	toolDelay     time.Duration

	// State tracking
	mu              sync.Mutex
	requestCount    int
	conversationLog []ConversationEntry
}

// ConversationEntry records a request/response pair for debugging.
type ConversationEntry struct {
	Timestamp time.Time
	Request   string
	Response  string
	ToolCalls []string
}

// MockLLMOption configures a MockLLM.
type MockLLMOption func(*MockLLM)

// WithThinkingDelay sets the thinking delay.
func WithThinkingDelay(d time.Duration) MockLLMOption {
	return func(m *MockLLM) {
		m.thinkingDelay = d
	}
}

// WithToolDelay sets the per-tool delay.
func WithToolDelay(d time.Duration) MockLLMOption {
	return func(m *MockLLM) {
		m.toolDelay = d
	}
}

// NewMockLLM creates a MockLLM from a scenario file path.
func NewMockLLM(scenarioPath string, opts ...MockLLMOption) (*MockLLM, error) {
	scenario, err := LoadScenario(scenarioPath)
	if err != nil {
		return nil, err
	}
	return NewMockLLMFromScenario(scenario, opts...)
}

// NewMockLLMFromScenario creates a MockLLM from a loaded scenario.
func NewMockLLMFromScenario(scenario *Scenario, opts ...MockLLMOption) (*MockLLM, error) {
	m := &MockLLM{
		scenario:      scenario,
		matcher:       NewStepMatcher(scenario),
		thinkingDelay: time.Duration(scenario.Settings.ThinkingDelayMs) * time.Millisecond,
		toolDelay:     time.Duration(scenario.Settings.ToolDelayMs) * time.Millisecond,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// Name returns the model identifier.
func (m *MockLLM) Name() string {
	if m.scenario != nil {
		return fmt.Sprintf("mock:%s", m.scenario.Name)
	}
	return "mock"
}

// GenerateContent implements model.LLM.GenerateContent.
func (m *MockLLM) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	return func(yield func(*model.LLMResponse, error) bool) {
		m.mu.Lock()
		m.requestCount++
		m.mu.Unlock()

		// Extract request content for logging and trigger matching
		requestContent := extractRequestContent(req)

		// Simulate thinking delay
		thinkingDelay := m.thinkingDelay
		if m.scenario != nil {
			thinkingDelay = time.Duration(m.scenario.GetThinkingDelay(m.matcher.CurrentStepIndex())) * time.Millisecond
		}

		select {
		case <-ctx.Done():
			yield(nil, ctx.Err())
			return
		case <-time.After(thinkingDelay):
		}

		resp, err := m.generateScriptedResponse(ctx, requestContent)
		if err != nil {
			yield(nil, err)
			return
		}

		// Log the conversation
		m.logConversation(requestContent, resp)

		yield(resp, nil)
	}
}

// generateScriptedResponse generates a response from the scenario steps.
func (m *MockLLM) generateScriptedResponse(ctx context.Context, requestContent string) (*model.LLMResponse, error) {
	step := m.matcher.NextStep(requestContent)
	if step == nil {
		// No more steps - return a generic completion message
		return &model.LLMResponse{
			Content: &genai.Content{
				Parts: []*genai.Part{
					{Text: "[Mock scenario completed - no more steps]"},
				},
				Role: "model",
			},
			FinishReason: genai.FinishReasonStop,
			TurnComplete: true,
			UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
				PromptTokenCount:     100,
				CandidatesTokenCount: 10,
				TotalTokenCount:      110,
			},
		}, nil
	}

	return m.buildResponseFromStep(ctx, step)
}

// buildResponseFromStep converts a scenario step to an LLM response.
func (m *MockLLM) buildResponseFromStep(ctx context.Context, step *ScenarioStep) (*model.LLMResponse, error) {
	parts := make([]*genai.Part, 0, 1+len(step.ToolCalls))

	// Add text content
	if step.Text != "" {
		parts = append(parts, &genai.Part{
			Text: step.Text,
		})
	}

	// Add tool calls with delays
	for i, tc := range step.ToolCalls {
		// Simulate tool delay (except for first tool)
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(m.toolDelay):
			}
		}

		args := tc.Args
		if args == nil {
			args = make(map[string]interface{})
		}

		parts = append(parts, &genai.Part{
			FunctionCall: &genai.FunctionCall{
				ID:   fmt.Sprintf("mock_call_%d", i),
				Name: tc.Name,
				Args: args,
			},
		})
	}

	return &model.LLMResponse{
		Content: &genai.Content{
			Parts: parts,
			Role:  "model",
		},
		FinishReason: genai.FinishReasonStop,
		TurnComplete: true,
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			// Mock token counts - values are estimates and always reasonable for int32
			// #nosec G115 -- Mock estimates are bounded and will never overflow int32
			PromptTokenCount:     int32(len(parts) * 50), // Rough estimate
			CandidatesTokenCount: int32(len(step.Text) / 4),              // #nosec G115 -- Safe conversion, bounded values
			TotalTokenCount:      int32(len(parts)*50 + len(step.Text)/4), // #nosec G115 -- Safe conversion, bounded values
		},
	}, nil
}

// logConversation records a conversation entry for debugging.
func (m *MockLLM) logConversation(request string, resp *model.LLMResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := ConversationEntry{
		Timestamp: time.Now(),
		Request:   truncateString(request, 200),
	}

	if resp != nil && resp.Content != nil {
		var textParts []string
		var toolCalls []string

		for _, part := range resp.Content.Parts {
			if part.Text != "" {
				textParts = append(textParts, truncateString(part.Text, 100))
			}
			if part.FunctionCall != nil {
				toolCalls = append(toolCalls, part.FunctionCall.Name)
			}
		}

		entry.Response = strings.Join(textParts, " | ")
		entry.ToolCalls = toolCalls
	}

	m.conversationLog = append(m.conversationLog, entry)
}

// GetConversationLog returns the conversation log for debugging.
func (m *MockLLM) GetConversationLog() []ConversationEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ConversationEntry{}, m.conversationLog...)
}

// Reset resets the MockLLM state for a new conversation.
func (m *MockLLM) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matcher.Reset()
	m.requestCount = 0
	m.conversationLog = nil
}

// extractRequestContent extracts text content from an LLM request for logging and matching.
func extractRequestContent(req *model.LLMRequest) string {
	if req == nil || len(req.Contents) == 0 {
		return ""
	}

	var parts []string
	for _, content := range req.Contents {
		if content == nil {
			continue
		}
		for _, part := range content.Parts {
			if part == nil {
				continue
			}
			if part.Text != "" {
				parts = append(parts, part.Text)
			}
			if part.FunctionResponse != nil {
				// Include tool results in content for trigger matching
				respJSON, _ := json.Marshal(part.FunctionResponse.Response)
				parts = append(parts, fmt.Sprintf("[tool_result:%s] %s", part.FunctionResponse.Name, string(respJSON)))
			}
		}
	}

	return strings.Join(parts, "\n")
}

// truncateString truncates a string to maxLen characters.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// Ensure MockLLM implements model.LLM at compile time.
var _ model.LLM = (*MockLLM)(nil)
