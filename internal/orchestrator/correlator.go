package orchestrator

import "github.com/google/uuid"

// PendingCall is a tool invocation that has been issued but not yet resolved.
type PendingCall struct {
	CallID   string
	ToolName string
	Args     map[string]any
}

// Correlator pairs tool invocation requests with their results. The event
// source exposes call ids on invocations but not on results, so results are
// matched positionally per tool name: the oldest unresolved call with the
// same name wins. Two concurrent calls to the same tool whose results arrive
// out of order will be cross-matched; see the package notes in
// orchestrator.go.
//
// A Correlator is turn-scoped and owned by a single orchestrator loop, so it
// needs no locking.
type Correlator struct {
	pending []PendingCall
}

// NewCorrelator creates an empty correlator.
func NewCorrelator() *Correlator {
	return &Correlator{}
}

// Register records a tool invocation and returns its generated call id.
func (c *Correlator) Register(toolName string, args map[string]any) string {
	id := uuid.NewString()
	c.pending = append(c.pending, PendingCall{
		CallID:   id,
		ToolName: toolName,
		Args:     args,
	})
	return id
}

// Match removes and returns the oldest pending call with the given tool
// name. The second return is false when no call is pending for that name;
// callers treat that as a silent no-op, not an error.
func (c *Correlator) Match(toolName string) (PendingCall, bool) {
	for i, p := range c.pending {
		if p.ToolName == toolName {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			return p, true
		}
	}
	return PendingCall{}, false
}

// Pending returns the number of unresolved calls.
func (c *Correlator) Pending() int {
	return len(c.pending)
}
