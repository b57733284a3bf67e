package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type sessionKey struct {
	userID    string
	sessionID string
}

// InMemoryService is a mutex-guarded in-process Service. It is the one
// resource shared across concurrent turns.
type InMemoryService struct {
	mu       sync.RWMutex
	sessions map[sessionKey]*Session
}

// NewInMemoryService returns an empty in-memory session service.
func NewInMemoryService() *InMemoryService {
	return &InMemoryService{
		sessions: make(map[sessionKey]*Session),
	}
}

func (s *InMemoryService) Get(_ context.Context, userID, sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionKey{userID, sessionID}]
	if !ok {
		return nil, ErrNotFound
	}
	return sess.Clone(), nil
}

func (s *InMemoryService) Create(_ context.Context, userID, sessionID, projectID string) (*Session, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := sessionKey{userID, sessionID}
	if _, exists := s.sessions[key]; exists {
		return nil, fmt.Errorf("session %q already exists for user %q", sessionID, userID)
	}

	now := time.Now().UTC()
	sess := &Session{
		ID:        sessionID,
		UserID:    userID,
		ProjectID: projectID,
		State:     make(map[string]any),
		History:   []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.sessions[key] = sess
	return sess.Clone(), nil
}

func (s *InMemoryService) AppendMessage(_ context.Context, userID, sessionID string, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionKey{userID, sessionID}]
	if !ok {
		return ErrNotFound
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	sess.History = append(sess.History, msg)
	sess.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemoryService) UpdateState(_ context.Context, userID, sessionID string, delta map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionKey{userID, sessionID}]
	if !ok {
		return ErrNotFound
	}
	for k, v := range delta {
		if v == nil {
			delete(sess.State, k)
			continue
		}
		sess.State[k] = v
	}
	sess.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemoryService) SetTitle(_ context.Context, userID, sessionID, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionKey{userID, sessionID}]
	if !ok {
		return ErrNotFound
	}
	sess.Title = title
	sess.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemoryService) List(_ context.Context, userID string) ([]*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Session
	for key, sess := range s.sessions {
		if key.userID == userID {
			out = append(out, sess.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}
