// Package session provides conversation session storage for the agent.
//
// A session accumulates the turn history and the investigation state for one
// conversation. The turn pipeline is the only writer; reads happen at the
// start of each turn. The in-memory service here is the default backend;
// persistent backends implement the same Service interface.
package session

import (
	"context"
	"errors"
	"time"
)

// Message roles in the turn history.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// ErrNotFound is returned when a session does not exist for the given user.
var ErrNotFound = errors.New("session not found")

// Message is one entry in a session's turn history.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is one conversation with its accumulated state.
type Session struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	ProjectID string         `json:"project_id,omitempty"`
	Title     string         `json:"title,omitempty"`
	State     map[string]any `json:"state"`
	History   []Message      `json:"history"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Clone returns a deep copy so callers can mutate without holding service
// locks.
func (s *Session) Clone() *Session {
	c := *s
	c.State = make(map[string]any, len(s.State))
	for k, v := range s.State {
		c.State[k] = v
	}
	c.History = make([]Message, len(s.History))
	copy(c.History, s.History)
	return &c
}

// Service is the session storage contract the turn pipeline depends on.
type Service interface {
	// Get returns the session, or ErrNotFound.
	Get(ctx context.Context, userID, sessionID string) (*Session, error)

	// Create creates a session. If sessionID is empty a new ID is
	// generated. Creating an existing ID is an error.
	Create(ctx context.Context, userID, sessionID, projectID string) (*Session, error)

	// AppendMessage appends one message to the session's history.
	AppendMessage(ctx context.Context, userID, sessionID string, msg Message) error

	// UpdateState merges the delta into the session state. A nil value in
	// the delta deletes the key.
	UpdateState(ctx context.Context, userID, sessionID string, delta map[string]any) error

	// SetTitle sets the session title.
	SetTitle(ctx context.Context, userID, sessionID, title string) error

	// List returns all sessions for a user, most recently updated first.
	List(ctx context.Context, userID string) ([]*Session, error)
}

// MemorySyncer publishes a completed turn's session into long-term memory.
// Sync failures are best-effort for the pipeline: logged, never surfaced to
// the client.
type MemorySyncer interface {
	Sync(ctx context.Context, s *Session) error
}
