// Package dashboard provides the per-turn sidecar channel through which
// nested agent computations surface tool results to the client's dashboard
// view, plus the transformer that shapes those results into widget payloads.
//
// The queue is context-scoped: each turn seeds its own queue with WithQueue,
// producers anywhere below that context push into it, and the turn
// orchestrator drains it between agent events. Concurrent turns never see
// each other's entries.
package dashboard

import (
	"context"
	"sync"
)

// Entry is one queued (tool, result) pair awaiting emission as a dashboard
// event.
type Entry struct {
	ToolName string
	Result   any
}

type queueKey struct{}

// queue is deliberately unexported; the only handles are the package
// functions below. Producers may run on goroutines spawned by the agent, so
// access is mutex-guarded even though the orchestrator itself is single
// threaded per turn.
type queue struct {
	mu      sync.Mutex
	entries []Entry
}

// WithQueue returns a context carrying a fresh, empty sidecar queue. Call
// once per turn, before the agent computation starts.
func WithQueue(ctx context.Context) context.Context {
	return context.WithValue(ctx, queueKey{}, &queue{})
}

// Push appends an entry to the context's queue. If the context carries no
// queue (tests, batch tooling, anything outside a turn) this is a no-op: it
// never fails and never blocks.
func Push(ctx context.Context, toolName string, result any) {
	q, ok := ctx.Value(queueKey{}).(*queue)
	if !ok {
		return
	}
	q.mu.Lock()
	q.entries = append(q.entries, Entry{ToolName: toolName, Result: result})
	q.mu.Unlock()
}

// Drain atomically takes and clears all queued entries, in push order.
// Returns nil if the queue is empty or the context carries no queue.
func Drain(ctx context.Context) []Entry {
	q, ok := ctx.Value(queueKey{}).(*queue)
	if !ok {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.entries
	q.entries = nil
	return out
}
