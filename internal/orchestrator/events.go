package orchestrator

import "github.com/srtux/sre-agent-sub000/internal/dashboard"

// Event type tags for the client stream.
const (
	EventTypeSession      = "session"
	EventTypeText         = "text"
	EventTypeToolCall     = "tool_call"
	EventTypeToolResponse = "tool_response"
	EventTypeDashboard    = "dashboard"
)

// Tool response statuses.
const (
	ToolStatusCompleted = "completed"
	ToolStatusError     = "error"
)

// SessionEvent announces the resolved session id. It is always the first
// event of a turn.
type SessionEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

// NewSessionEvent creates a session event.
func NewSessionEvent(sessionID string) SessionEvent {
	return SessionEvent{Type: EventTypeSession, SessionID: sessionID}
}

// TextEvent carries a chunk of agent text, including error markers.
type TextEvent struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// NewTextEvent creates a text event.
func NewTextEvent(content string) TextEvent {
	return TextEvent{Type: EventTypeText, Content: content}
}

// ToolCallEvent announces a tool invocation the agent issued.
type ToolCallEvent struct {
	Type     string         `json:"type"`
	CallID   string         `json:"call_id"`
	ToolName string         `json:"tool_name"`
	Args     map[string]any `json:"args"`
}

// NewToolCallEvent creates a tool call event.
func NewToolCallEvent(callID, toolName string, args map[string]any) ToolCallEvent {
	if args == nil {
		args = map[string]any{}
	}
	return ToolCallEvent{Type: EventTypeToolCall, CallID: callID, ToolName: toolName, Args: args}
}

// ToolResponseEvent carries a tool result correlated to an earlier call.
type ToolResponseEvent struct {
	Type     string `json:"type"`
	CallID   string `json:"call_id"`
	ToolName string `json:"tool_name"`
	Result   any    `json:"result"`
	Status   string `json:"status"`
}

// NewToolResponseEvent creates a tool response event.
func NewToolResponseEvent(callID, toolName string, result any, status string) ToolResponseEvent {
	return ToolResponseEvent{
		Type:     EventTypeToolResponse,
		CallID:   callID,
		ToolName: toolName,
		Result:   result,
		Status:   status,
	}
}

// DashboardEvent carries a widget derived from a tool result.
type DashboardEvent struct {
	Type       string `json:"type"`
	Category   string `json:"category"`
	WidgetType string `json:"widget_type"`
	ToolName   string `json:"tool_name"`
	Data       any    `json:"data"`
}

// NewDashboardEvent creates a dashboard event from a transformed widget.
func NewDashboardEvent(w dashboard.Widget) DashboardEvent {
	return DashboardEvent{
		Type:       EventTypeDashboard,
		Category:   w.Category,
		WidgetType: w.WidgetType,
		ToolName:   w.ToolName,
		Data:       w.Data,
	}
}
