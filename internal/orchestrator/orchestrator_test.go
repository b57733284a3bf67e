package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	adksession "google.golang.org/adk/session"
	"google.golang.org/genai"

	"github.com/srtux/sre-agent-sub000/internal/audit"
	"github.com/srtux/sre-agent-sub000/internal/dashboard"
	"github.com/srtux/sre-agent-sub000/internal/investigation"
	"github.com/srtux/sre-agent-sub000/internal/session"
)

// scriptedRunner yields a canned event sequence and records the message it
// was handed.
type scriptedRunner struct {
	script func(ctx context.Context, yield func(*adksession.Event, error) bool)

	mu         sync.Mutex
	gotMessage string
}

func (r *scriptedRunner) Run(ctx context.Context, userID, sessionID, message string) (iter.Seq2[*adksession.Event, error], error) {
	r.mu.Lock()
	r.gotMessage = message
	r.mu.Unlock()
	return func(yield func(*adksession.Event, error) bool) {
		r.script(ctx, yield)
	}, nil
}

func (r *scriptedRunner) message() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gotMessage
}

type recordingSyncer struct {
	mu     sync.Mutex
	synced []*session.Session
}

func (s *recordingSyncer) Sync(_ context.Context, sess *session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.synced = append(s.synced, sess)
	return nil
}

func agentTextEvent(text string) *adksession.Event {
	ev := &adksession.Event{Author: "agent"}
	ev.Content = &genai.Content{Role: "model", Parts: []*genai.Part{{Text: text}}}
	return ev
}

func newTestOrchestrator(t *testing.T, r AgentRunner, mem session.MemorySyncer) (*Orchestrator, *session.InMemoryService) {
	t.Helper()
	svc := session.NewInMemoryService()
	o, err := New(Config{Runner: r, Sessions: svc, Memory: mem})
	if err != nil {
		t.Fatal(err)
	}
	return o, svc
}

func runTurn(t *testing.T, o *Orchestrator, req TurnRequest) []map[string]any {
	t.Helper()
	var buf bytes.Buffer
	o.ExecuteTurn(context.Background(), req, NewStreamWriter(&buf))
	return parseStream(t, buf.String())
}

func parseStream(t *testing.T, raw string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimRight(raw, "\n"), "\n") {
		if line == "" {
			continue
		}
		var ev map[string]any
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			t.Fatalf("stream line %q is not JSON: %v", line, err)
		}
		out = append(out, ev)
	}
	return out
}

func userTurn(text string) TurnRequest {
	return TurnRequest{Messages: []Message{{Role: "user", Text: text}}}
}

func TestTurnHelloHi(t *testing.T) {
	r := &scriptedRunner{script: func(_ context.Context, yield func(*adksession.Event, error) bool) {
		yield(agentTextEvent("Hi"), nil)
	}}
	o, svc := newTestOrchestrator(t, r, nil)

	events := runTurn(t, o, userTurn("Hello"))

	if len(events) != 2 {
		t.Fatalf("got %d events: %v", len(events), events)
	}
	if events[0]["type"] != "session" || events[0]["session_id"] == "" {
		t.Errorf("first event = %v", events[0])
	}
	if events[1]["type"] != "text" || events[1]["content"] != "Hi" {
		t.Errorf("second event = %v", events[1])
	}

	sessionID := events[0]["session_id"].(string)
	sess, err := svc.Get(context.Background(), DefaultUserID, sessionID)
	if err != nil {
		t.Fatalf("session not created: %v", err)
	}
	if len(sess.History) != 2 || sess.History[0].Content != "Hello" || sess.History[1].Content != "Hi" {
		t.Errorf("history = %+v", sess.History)
	}
	if sess.Title != "New investigation" {
		t.Errorf("title = %q", sess.Title)
	}
	if _, ok := sess.State[investigation.StateKey]; !ok {
		t.Error("investigation state not seeded")
	}
}

func TestTurnPersistsRawNotGuidanceAugmented(t *testing.T) {
	r := &scriptedRunner{script: func(_ context.Context, yield func(*adksession.Event, error) bool) {
		yield(agentTextEvent("ok"), nil)
	}}
	o, svc := newTestOrchestrator(t, r, nil)

	events := runTurn(t, o, userTurn("checkout is down"))
	sessionID := events[0]["session_id"].(string)

	if !strings.HasPrefix(r.message(), "[Investigation guidance] ") {
		t.Errorf("agent message lacks guidance prefix: %q", r.message())
	}
	if !strings.Contains(r.message(), "checkout is down") {
		t.Errorf("agent message lost user text: %q", r.message())
	}

	sess, _ := svc.Get(context.Background(), DefaultUserID, sessionID)
	if sess.History[0].Content != "checkout is down" {
		t.Errorf("persisted message = %q, want raw text", sess.History[0].Content)
	}
}

func TestTurnReusesExistingSession(t *testing.T) {
	r := &scriptedRunner{script: func(_ context.Context, yield func(*adksession.Event, error) bool) {
		yield(agentTextEvent("again"), nil)
	}}
	o, svc := newTestOrchestrator(t, r, nil)

	existing, err := svc.Create(context.Background(), "alice", "", "proj")
	if err != nil {
		t.Fatal(err)
	}
	_ = svc.SetTitle(context.Background(), "alice", existing.ID, "kept title")

	req := userTurn("second turn")
	req.SessionID = existing.ID
	req.UserID = "alice"
	events := runTurn(t, o, req)

	if events[0]["session_id"] != existing.ID {
		t.Errorf("session_id = %v, want %s", events[0]["session_id"], existing.ID)
	}
	sess, _ := svc.Get(context.Background(), "alice", existing.ID)
	if sess.Title != "kept title" {
		t.Errorf("title = %q, must not be re-derived for existing sessions", sess.Title)
	}
}

func TestTurnPartDecompositionOrder(t *testing.T) {
	r := &scriptedRunner{script: func(_ context.Context, yield func(*adksession.Event, error) bool) {
		ev := &adksession.Event{Author: "agent"}
		ev.Content = &genai.Content{Role: "model", Parts: []*genai.Part{
			{Text: "checking logs"},
			{FunctionCall: &genai.FunctionCall{Name: "list_logs", Args: map[string]any{"q": "severity>=ERROR"}}},
			{FunctionResponse: &genai.FunctionResponse{Name: "list_logs", Response: map[string]any{"rows": 3}}},
		}}
		yield(ev, nil)
	}}
	o, _ := newTestOrchestrator(t, r, nil)

	events := runTurn(t, o, userTurn("check the logs"))

	types := make([]string, 0, len(events))
	for _, ev := range events {
		types = append(types, ev["type"].(string))
	}
	want := []string{"session", "text", "tool_call", "tool_response"}
	if len(types) != len(want) {
		t.Fatalf("types = %v", types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("types = %v, want %v", types, want)
		}
	}

	call := events[2]
	resp := events[3]
	if call["tool_name"] != "list_logs" || call["call_id"] == "" {
		t.Errorf("tool_call = %v", call)
	}
	if resp["call_id"] != call["call_id"] {
		t.Errorf("tool_response call_id %v != tool_call %v", resp["call_id"], call["call_id"])
	}
	if resp["status"] != ToolStatusCompleted {
		t.Errorf("status = %v", resp["status"])
	}
}

func TestTurnDuplicateToolResponseDropped(t *testing.T) {
	respEvent := func() *adksession.Event {
		ev := &adksession.Event{Author: "agent"}
		ev.Content = &genai.Content{Role: "model", Parts: []*genai.Part{
			{FunctionResponse: &genai.FunctionResponse{Name: "list_logs", Response: map[string]any{"rows": 1}}},
		}}
		return ev
	}
	r := &scriptedRunner{script: func(_ context.Context, yield func(*adksession.Event, error) bool) {
		call := &adksession.Event{Author: "agent"}
		call.Content = &genai.Content{Role: "model", Parts: []*genai.Part{
			{FunctionCall: &genai.FunctionCall{Name: "list_logs", Args: nil}},
		}}
		if !yield(call, nil) {
			return
		}
		if !yield(respEvent(), nil) {
			return
		}
		yield(respEvent(), nil)
	}}
	o, _ := newTestOrchestrator(t, r, nil)

	events := runTurn(t, o, userTurn("logs please"))

	responses := 0
	for _, ev := range events {
		if ev["type"] == "tool_response" {
			responses++
		}
	}
	if responses != 1 {
		t.Errorf("tool_response count = %d, duplicate must be dropped silently", responses)
	}
}

func TestTurnToolResponseErrorStatus(t *testing.T) {
	r := &scriptedRunner{script: func(_ context.Context, yield func(*adksession.Event, error) bool) {
		ev := &adksession.Event{Author: "agent"}
		ev.Content = &genai.Content{Role: "model", Parts: []*genai.Part{
			{FunctionCall: &genai.FunctionCall{Name: "list_logs"}},
			{FunctionResponse: &genai.FunctionResponse{Name: "list_logs", Response: map[string]any{"error": "backend unavailable"}}},
		}}
		yield(ev, nil)
	}}
	o, _ := newTestOrchestrator(t, r, nil)

	events := runTurn(t, o, userTurn("logs"))
	for _, ev := range events {
		if ev["type"] == "tool_response" && ev["status"] != ToolStatusError {
			t.Errorf("tool_response status = %v, want error", ev["status"])
		}
	}
}

func TestTurnErrorContainment(t *testing.T) {
	r := &scriptedRunner{script: func(_ context.Context, yield func(*adksession.Event, error) bool) {
		if !yield(agentTextEvent("partial"), nil) {
			return
		}
		yield(nil, errors.New("model quota exhausted"))
	}}
	o, _ := newTestOrchestrator(t, r, nil)

	events := runTurn(t, o, userTurn("investigate"))

	last := events[len(events)-1]
	if last["type"] != "text" {
		t.Fatalf("last event = %v", last)
	}
	content := last["content"].(string)
	if !strings.Contains(content, "**Error executing agent:**") || !strings.Contains(content, "model quota exhausted") {
		t.Errorf("error event content = %q", content)
	}

	errCount := 0
	for _, ev := range events {
		if c, ok := ev["content"].(string); ok && strings.Contains(c, "**Error executing agent:**") {
			errCount++
		}
	}
	if errCount != 1 {
		t.Errorf("error marker events = %d, want exactly 1", errCount)
	}
}

func TestTurnDisconnectCancelsAgent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	observed := make(chan struct{})

	r := &scriptedRunner{script: func(agentCtx context.Context, yield func(*adksession.Event, error) bool) {
		if !yield(agentTextEvent("first"), nil) {
			return
		}
		cancel() // client goes away mid-turn
		select {
		case <-agentCtx.Done():
			close(observed)
		case <-time.After(5 * time.Second):
		}
	}}
	o, _ := newTestOrchestrator(t, r, nil)

	var buf bytes.Buffer
	o.ExecuteTurn(ctx, userTurn("long investigation"), NewStreamWriter(&buf))

	select {
	case <-observed:
	case <-time.After(5 * time.Second):
		t.Fatal("agent computation never observed cancellation")
	}

	events := parseStream(t, buf.String())
	for _, ev := range events {
		if c, ok := ev["content"].(string); ok && strings.Contains(c, "Error executing agent") {
			t.Errorf("disconnect must not produce an error event: %v", ev)
		}
	}
}

func TestTurnDashboardEventsFollowAgentEvent(t *testing.T) {
	r := &scriptedRunner{script: func(agentCtx context.Context, yield func(*adksession.Event, error) bool) {
		dashboard.Push(agentCtx, "list_log_entries", map[string]any{"entries": []any{}})
		if !yield(agentTextEvent("looking at logs"), nil) {
			return
		}
		// Straggler queued after the last event, caught by the final drain.
		dashboard.Push(agentCtx, "get_slo_status", map[string]any{"slos": []any{}})
	}}
	o, _ := newTestOrchestrator(t, r, nil)

	events := runTurn(t, o, userTurn("logs"))

	types := make([]string, 0, len(events))
	for _, ev := range events {
		types = append(types, ev["type"].(string))
	}
	want := []string{"session", "text", "dashboard", "dashboard"}
	if len(types) != len(want) {
		t.Fatalf("types = %v", types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("types = %v, want %v", types, want)
		}
	}

	if events[2]["category"] != "logs" || events[2]["widget_type"] != "log_table" {
		t.Errorf("first dashboard event = %v", events[2])
	}
	if events[3]["category"] != "slo" {
		t.Errorf("final drain dashboard event = %v", events[3])
	}
}

func TestTurnAppliesStateDelta(t *testing.T) {
	st := investigation.NewState()
	st.AddFinding("5xx spike at 14:03")
	delta := investigation.ToStorage(st)

	r := &scriptedRunner{script: func(_ context.Context, yield func(*adksession.Event, error) bool) {
		ev := agentTextEvent("noted")
		ev.Actions.StateDelta = map[string]any{investigation.StateKey: delta}
		yield(ev, nil)
	}}
	o, svc := newTestOrchestrator(t, r, nil)

	events := runTurn(t, o, userTurn("record that"))
	sessionID := events[0]["session_id"].(string)

	sess, _ := svc.Get(context.Background(), DefaultUserID, sessionID)
	got := investigation.FromStorage(sess.State[investigation.StateKey])
	if len(got.Findings) != 1 || got.Findings[0] != "5xx spike at 14:03" {
		t.Errorf("persisted findings = %v", got.Findings)
	}
}

func TestTurnSyncsMemoryAfterStream(t *testing.T) {
	r := &scriptedRunner{script: func(_ context.Context, yield func(*adksession.Event, error) bool) {
		yield(agentTextEvent("done"), nil)
	}}
	mem := &recordingSyncer{}
	o, _ := newTestOrchestrator(t, r, mem)

	runTurn(t, o, userTurn("wrap up"))

	mem.mu.Lock()
	defer mem.mu.Unlock()
	if len(mem.synced) != 1 {
		t.Fatalf("Sync called %d times", len(mem.synced))
	}
	if len(mem.synced[0].History) == 0 {
		t.Error("memory sync should see the persisted turn history")
	}
}

func TestTurnWritesAuditTrail(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "audit.jsonl")
	auditLogger, err := audit.NewLogger(logPath)
	if err != nil {
		t.Fatal(err)
	}

	r := &scriptedRunner{script: func(_ context.Context, yield func(*adksession.Event, error) bool) {
		yield(agentTextEvent("Hi"), nil)
	}}
	svc := session.NewInMemoryService()
	o, err := New(Config{Runner: r, Sessions: svc, Audit: auditLogger})
	if err != nil {
		t.Fatal(err)
	}

	runTurn(t, o, userTurn("Hello"))
	if err := auditLogger.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}

	var types []string
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		var ev audit.Event
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			t.Fatalf("audit line %q is not JSON: %v", line, err)
		}
		types = append(types, string(ev.Type))
	}

	want := []string{"turn_start", "user_message", "stream_event", "stream_event", "turn_complete"}
	if len(types) != len(want) {
		t.Fatalf("audit types = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("audit types = %v, want %v", types, want)
		}
	}
}

func TestTurnNoUserMessage(t *testing.T) {
	r := &scriptedRunner{script: func(_ context.Context, yield func(*adksession.Event, error) bool) {
		t.Error("agent must not run without a user message")
	}}
	o, _ := newTestOrchestrator(t, r, nil)

	events := runTurn(t, o, TurnRequest{Messages: []Message{{Role: "model", Text: "hi"}}})

	if len(events) != 1 {
		t.Fatalf("events = %v", events)
	}
	if c, _ := events[0]["content"].(string); !strings.Contains(c, "Error executing agent") {
		t.Errorf("event = %v", events[0])
	}
}
