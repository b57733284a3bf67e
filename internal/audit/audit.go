// Package audit provides an append-only JSONL audit trail of turn activity:
// user messages, emitted stream events and turn outcomes. The trail exists
// for debugging and incident reproducibility, not for client consumption.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// EventType represents the type of audit event.
type EventType string

const (
	// EventTypeTurnStart marks the start of a turn.
	EventTypeTurnStart EventType = "turn_start"
	// EventTypeUserMessage records the raw user message of a turn.
	EventTypeUserMessage EventType = "user_message"
	// EventTypeStreamEvent records one event emitted to the client stream.
	EventTypeStreamEvent EventType = "stream_event"
	// EventTypeTurnComplete marks the end of a turn with its outcome.
	EventTypeTurnComplete EventType = "turn_complete"
)

// Event is a single audit log record.
type Event struct {
	Timestamp time.Time              `json:"timestamp"`
	Type      EventType              `json:"type"`
	SessionID string                 `json:"session_id,omitempty"`
	UserID    string                 `json:"user_id,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// Logger writes audit events to a JSONL file. It is server-scoped and safe
// for concurrent turns.
type Logger struct {
	file   *os.File
	writer *bufio.Writer
	mutex  sync.Mutex
}

// NewLogger creates an audit logger appending to the given file path.
func NewLogger(filePath string) (*Logger, error) {
	// The audit log path is intentionally operator-configurable.
	// #nosec G304
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}

	return &Logger{
		file:   file,
		writer: bufio.NewWriter(file),
	}, nil
}

// write appends one event. Flushed immediately for crash safety.
func (l *Logger) write(event Event) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}

	if _, err := l.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write audit event: %w", err)
	}
	if _, err := l.writer.WriteString("\n"); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	if err := l.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush audit log: %w", err)
	}
	return nil
}

// LogTurnStart records the start of a turn.
func (l *Logger) LogTurnStart(sessionID, userID string) error {
	return l.write(Event{
		Timestamp: time.Now(),
		Type:      EventTypeTurnStart,
		SessionID: sessionID,
		UserID:    userID,
	})
}

// LogUserMessage records the raw user message of a turn.
func (l *Logger) LogUserMessage(sessionID, message string) error {
	return l.write(Event{
		Timestamp: time.Now(),
		Type:      EventTypeUserMessage,
		SessionID: sessionID,
		Data: map[string]interface{}{
			"message": message,
		},
	})
}

// LogStreamEvent records one event emitted to the client stream.
func (l *Logger) LogStreamEvent(sessionID, eventType string, payload interface{}) error {
	return l.write(Event{
		Timestamp: time.Now(),
		Type:      EventTypeStreamEvent,
		SessionID: sessionID,
		Data: map[string]interface{}{
			"event_type": eventType,
			"payload":    payload,
		},
	})
}

// LogTurnComplete records the outcome and duration of a turn.
func (l *Logger) LogTurnComplete(sessionID, outcome string, duration time.Duration) error {
	return l.write(Event{
		Timestamp: time.Now(),
		Type:      EventTypeTurnComplete,
		SessionID: sessionID,
		Data: map[string]interface{}{
			"outcome":     outcome,
			"duration_ms": duration.Milliseconds(),
		},
	})
}

// Close flushes and closes the underlying file.
func (l *Logger) Close() error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if err := l.writer.Flush(); err != nil {
		_ = l.file.Close()
		return fmt.Errorf("failed to flush audit log: %w", err)
	}
	return l.file.Close()
}
