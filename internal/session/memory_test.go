package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/srtux/sre-agent-sub000/internal/investigation"
)

func testSession(id, userID string, state *investigation.State) *Session {
	return &Session{
		ID:     id,
		UserID: userID,
		Title:  "Checkout outage",
		State:  map[string]any{investigation.StateKey: investigation.ToStorage(state)},
	}
}

func TestMemorySyncDistillsInvestigation(t *testing.T) {
	store, err := NewMemoryStore(8)
	if err != nil {
		t.Fatalf("NewMemoryStore: %v", err)
	}

	st := investigation.NewState()
	st.AddFinding("5xx spike at 14:02")
	st.ConfirmRootCause("bad rollout")

	if err := store.Sync(context.Background(), testSession("s1", "alice", st)); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	recs := store.Search(context.Background(), "alice", "")
	if len(recs) != 1 {
		t.Fatalf("records = %d, want 1", len(recs))
	}
	rec := recs[0]
	if rec.Phase != investigation.PhaseRootCause || rec.RootCause != "bad rollout" {
		t.Errorf("record = %+v", rec)
	}
	if len(rec.Findings) != 1 {
		t.Errorf("findings = %v", rec.Findings)
	}
}

func TestMemorySearchFiltersByUserAndQuery(t *testing.T) {
	store, _ := NewMemoryStore(8)
	ctx := context.Background()

	st := investigation.NewState()
	st.AddFinding("database connection pool exhausted")
	_ = store.Sync(ctx, testSession("s1", "alice", st))
	_ = store.Sync(ctx, testSession("s2", "bob", investigation.NewState()))

	if got := store.Search(ctx, "alice", "DATABASE"); len(got) != 1 {
		t.Errorf("case-insensitive finding search returned %d records", len(got))
	}
	if got := store.Search(ctx, "alice", "kafka"); len(got) != 0 {
		t.Errorf("non-matching query returned %d records", len(got))
	}
	if got := store.Search(ctx, "bob", ""); len(got) != 1 || got[0].SessionID != "s2" {
		t.Errorf("user filter broken: %+v", got)
	}
}

func TestMemoryStoreEvictsOldest(t *testing.T) {
	store, _ := NewMemoryStore(2)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = store.Sync(ctx, testSession(fmt.Sprintf("s%d", i), "alice", investigation.NewState()))
	}

	if store.Len() != 2 {
		t.Errorf("Len = %d, want LRU bound 2", store.Len())
	}
	for _, rec := range store.Search(ctx, "alice", "") {
		if rec.SessionID == "s0" {
			t.Error("oldest record should have been evicted")
		}
	}
}

func TestMemorySyncNilSession(t *testing.T) {
	store, _ := NewMemoryStore(2)
	if err := store.Sync(context.Background(), nil); err == nil {
		t.Error("expected error for nil session")
	}
}
