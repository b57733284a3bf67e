package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/srtux/sre-agent-sub000/internal/investigation"
)

// MemoryRecord is the distilled form of a session kept in long-term memory.
// It carries the investigation conclusions, not the raw transcript.
type MemoryRecord struct {
	SessionID string
	UserID    string
	ProjectID string
	Title     string
	Phase     investigation.Phase
	Findings  []string
	RootCause string
	SyncedAt  time.Time
}

// MemoryStore is an LRU-bounded long-term memory keyed by session ID. Old
// investigations age out instead of growing without bound.
type MemoryStore struct {
	cache *lru.Cache[string, *MemoryRecord]
}

// NewMemoryStore creates a memory store holding at most size records.
func NewMemoryStore(size int) (*MemoryStore, error) {
	cache, err := lru.New[string, *MemoryRecord](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}
	return &MemoryStore{cache: cache}, nil
}

// Sync distills the session into a memory record. It implements
// MemorySyncer.
func (m *MemoryStore) Sync(_ context.Context, s *Session) error {
	if s == nil {
		return fmt.Errorf("cannot sync nil session")
	}

	state := investigation.FromStorage(s.State[investigation.StateKey])
	m.cache.Add(s.ID, &MemoryRecord{
		SessionID: s.ID,
		UserID:    s.UserID,
		ProjectID: s.ProjectID,
		Title:     s.Title,
		Phase:     state.Phase,
		Findings:  append([]string{}, state.Findings...),
		RootCause: state.ConfirmedRootCause,
		SyncedAt:  time.Now().UTC(),
	})
	return nil
}

// Search returns the user's records whose title, findings or root cause
// contain the query, case-insensitively. An empty query matches everything.
func (m *MemoryStore) Search(_ context.Context, userID, query string) []*MemoryRecord {
	query = strings.ToLower(query)

	var out []*MemoryRecord
	for _, key := range m.cache.Keys() {
		rec, ok := m.cache.Peek(key)
		if !ok || rec.UserID != userID {
			continue
		}
		if query == "" || recordMatches(rec, query) {
			out = append(out, rec)
		}
	}
	return out
}

// Len returns the number of records currently retained.
func (m *MemoryStore) Len() int {
	return m.cache.Len()
}

func recordMatches(rec *MemoryRecord, query string) bool {
	if strings.Contains(strings.ToLower(rec.Title), query) {
		return true
	}
	if strings.Contains(strings.ToLower(rec.RootCause), query) {
		return true
	}
	for _, f := range rec.Findings {
		if strings.Contains(strings.ToLower(f), query) {
			return true
		}
	}
	return false
}
