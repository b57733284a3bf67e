package session

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestCreateGeneratesID(t *testing.T) {
	svc := NewInMemoryService()
	ctx := context.Background()

	sess, err := svc.Create(ctx, "alice", "", "proj-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sess.ID == "" {
		t.Error("expected generated session ID")
	}
	if sess.ProjectID != "proj-1" {
		t.Errorf("ProjectID = %q", sess.ProjectID)
	}

	got, err := svc.Get(ctx, "alice", sess.ID)
	if err != nil {
		t.Fatalf("Get after Create: %v", err)
	}
	if got.ID != sess.ID {
		t.Errorf("Get returned ID %q, want %q", got.ID, sess.ID)
	}
}

func TestCreateDuplicateFails(t *testing.T) {
	svc := NewInMemoryService()
	ctx := context.Background()

	if _, err := svc.Create(ctx, "alice", "s1", ""); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Create(ctx, "alice", "s1", ""); err == nil {
		t.Error("expected duplicate create to fail")
	}
	// Same ID under a different user is a different session.
	if _, err := svc.Create(ctx, "bob", "s1", ""); err != nil {
		t.Errorf("same ID for different user should succeed: %v", err)
	}
}

func TestGetUnknownSession(t *testing.T) {
	svc := NewInMemoryService()
	if _, err := svc.Get(context.Background(), "alice", "missing"); err != ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestAppendMessageAndHistoryOrder(t *testing.T) {
	svc := NewInMemoryService()
	ctx := context.Background()
	sess, _ := svc.Create(ctx, "alice", "s1", "")

	msgs := []Message{
		{Role: RoleUser, Content: "checkout is down"},
		{Role: RoleModel, Content: "investigating"},
		{Role: RoleUser, Content: "any update?"},
	}
	for _, m := range msgs {
		if err := svc.AppendMessage(ctx, "alice", sess.ID, m); err != nil {
			t.Fatalf("AppendMessage: %v", err)
		}
	}

	got, _ := svc.Get(ctx, "alice", sess.ID)
	if len(got.History) != 3 {
		t.Fatalf("history length = %d, want 3", len(got.History))
	}
	for i, m := range msgs {
		if got.History[i].Role != m.Role || got.History[i].Content != m.Content {
			t.Errorf("history[%d] = %+v, want %+v", i, got.History[i], m)
		}
		if got.History[i].Timestamp.IsZero() {
			t.Errorf("history[%d] missing timestamp", i)
		}
	}
}

func TestUpdateStateMergeAndDelete(t *testing.T) {
	svc := NewInMemoryService()
	ctx := context.Background()
	sess, _ := svc.Create(ctx, "alice", "s1", "")

	if err := svc.UpdateState(ctx, "alice", sess.ID, map[string]any{"a": 1, "b": "x"}); err != nil {
		t.Fatalf("UpdateState: %v", err)
	}
	if err := svc.UpdateState(ctx, "alice", sess.ID, map[string]any{"a": 2, "b": nil}); err != nil {
		t.Fatalf("UpdateState: %v", err)
	}

	got, _ := svc.Get(ctx, "alice", sess.ID)
	if got.State["a"] != 2 {
		t.Errorf("state[a] = %v, want 2", got.State["a"])
	}
	if _, ok := got.State["b"]; ok {
		t.Error("nil delta value should delete the key")
	}
}

func TestGetReturnsClone(t *testing.T) {
	svc := NewInMemoryService()
	ctx := context.Background()
	sess, _ := svc.Create(ctx, "alice", "s1", "")
	_ = svc.UpdateState(ctx, "alice", sess.ID, map[string]any{"k": "v"})

	got, _ := svc.Get(ctx, "alice", sess.ID)
	got.State["k"] = "mutated"
	got.History = append(got.History, Message{Role: RoleUser, Content: "rogue"})

	again, _ := svc.Get(ctx, "alice", sess.ID)
	if again.State["k"] != "v" {
		t.Error("mutating a returned session leaked into storage")
	}
	if len(again.History) != 0 {
		t.Error("appending to a returned history leaked into storage")
	}
}

func TestListOrderedByRecency(t *testing.T) {
	svc := NewInMemoryService()
	ctx := context.Background()

	a, _ := svc.Create(ctx, "alice", "older", "")
	b, _ := svc.Create(ctx, "alice", "newer", "")
	_, _ = svc.Create(ctx, "bob", "other-user", "")

	time.Sleep(5 * time.Millisecond)
	_ = svc.AppendMessage(ctx, "alice", a.ID, Message{Role: RoleUser, Content: "bump"})

	list, err := svc.List(ctx, "alice")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("list length = %d, want 2", len(list))
	}
	if list[0].ID != a.ID || list[1].ID != b.ID {
		t.Errorf("list order = [%s %s], want [%s %s]", list[0].ID, list[1].ID, a.ID, b.ID)
	}
}

func TestConcurrentAccess(t *testing.T) {
	svc := NewInMemoryService()
	ctx := context.Background()
	sess, _ := svc.Create(ctx, "alice", "s1", "")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = svc.AppendMessage(ctx, "alice", sess.ID, Message{Role: RoleUser, Content: "m"})
			_, _ = svc.Get(ctx, "alice", sess.ID)
			_ = svc.UpdateState(ctx, "alice", sess.ID, map[string]any{"n": 1})
		}()
	}
	wg.Wait()

	got, _ := svc.Get(ctx, "alice", sess.ID)
	if len(got.History) != 16 {
		t.Errorf("history length = %d, want 16", len(got.History))
	}
}
