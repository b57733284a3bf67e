// Package orchestrator drives one conversational turn: it resolves the
// session, streams the agent's events to the client as NDJSON, correlates
// tool calls with their results, relays dashboard widgets from the sidecar
// queue and persists the outcome.
//
// Tool results are correlated to calls by name, FIFO per name, because the
// agent event stream exposes call ids only on invocations. Two concurrent
// calls to the same tool whose results return out of order will be
// cross-matched; the ids still pair every response to some call of the same
// tool.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	adksession "google.golang.org/adk/session"

	"github.com/srtux/sre-agent-sub000/internal/audit"
	"github.com/srtux/sre-agent-sub000/internal/dashboard"
	"github.com/srtux/sre-agent-sub000/internal/investigation"
	"github.com/srtux/sre-agent-sub000/internal/logging"
	"github.com/srtux/sre-agent-sub000/internal/metrics"
	"github.com/srtux/sre-agent-sub000/internal/session"
)

// DefaultUserID is used when a turn request does not carry a user id.
const DefaultUserID = "default"

// Message is one role-tagged entry of a turn request.
type Message struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// TurnRequest is one user turn.
type TurnRequest struct {
	// Messages is the ordered conversation; the last user-role entry is the
	// message for this turn.
	Messages []Message `json:"messages"`

	// SessionID resumes an existing session when set.
	SessionID string `json:"session_id,omitempty"`

	// ProjectID scopes the investigation to a cloud project.
	ProjectID string `json:"project_id,omitempty"`

	// UserID identifies the caller. Defaults to DefaultUserID.
	UserID string `json:"user_id,omitempty"`

	// StartTime and EndTime bound the investigation window, Unix seconds.
	// Zero means unset.
	StartTime int64 `json:"-"`
	EndTime   int64 `json:"-"`
}

// lastUserMessage returns the text of the last user-role message.
func (r *TurnRequest) lastUserMessage() (string, bool) {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == session.RoleUser && strings.TrimSpace(r.Messages[i].Text) != "" {
			return r.Messages[i].Text, true
		}
	}
	return "", false
}

// AgentRunner produces the agent's event stream for one turn. The sequence
// must observe context cancellation promptly.
type AgentRunner interface {
	Run(ctx context.Context, userID, sessionID, message string) (iter.Seq2[*adksession.Event, error], error)
}

// Config configures an Orchestrator.
type Config struct {
	Runner      AgentRunner
	Sessions    session.Service
	Memory      session.MemorySyncer
	Transformer dashboard.Transformer
	Metrics     *metrics.Metrics

	// Audit, when set, records turn activity to a JSONL trail.
	Audit *audit.Logger
}

// Orchestrator executes turns. It is safe for concurrent use; all per-turn
// state lives on the stack of ExecuteTurn.
type Orchestrator struct {
	runner      AgentRunner
	sessions    session.Service
	memory      session.MemorySyncer
	transformer dashboard.Transformer
	metrics     *metrics.Metrics
	audit       *audit.Logger
	logger      *logging.Logger
}

// New creates an Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Runner == nil {
		return nil, fmt.Errorf("runner is required")
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session service is required")
	}

	transformer := cfg.Transformer
	if transformer == nil {
		transformer = dashboard.NewTransformer()
	}

	return &Orchestrator{
		runner:      cfg.Runner,
		sessions:    cfg.Sessions,
		memory:      cfg.Memory,
		transformer: transformer,
		metrics:     cfg.Metrics,
		audit:       cfg.Audit,
		logger:      logging.GetLogger("orchestrator"),
	}, nil
}

// agentEvent pairs one event of the agent sequence with its error.
type agentEvent struct {
	event *adksession.Event
	err   error
}

// turnState carries the per-turn working set through the pipeline stages.
type turnState struct {
	writer     *StreamWriter
	correlator *Correlator
	sessionID  string
	userID     string
	// clientGone is set once a stream write fails; from then on the turn
	// stops emitting.
	clientGone bool
}

// ExecuteTurn runs one turn and writes the event stream to w. The stream is
// always well-formed: internal failures surface as a single error-marker
// text event followed by a clean close, never as a broken stream.
func (o *Orchestrator) ExecuteTurn(ctx context.Context, req TurnRequest, w *StreamWriter) {
	start := time.Now()
	if o.metrics != nil {
		o.metrics.ActiveTurns.Inc()
		defer o.metrics.ActiveTurns.Dec()
		defer func() {
			o.metrics.TurnDuration.Observe(time.Since(start).Seconds())
		}()
	}

	outcome := o.executeTurn(ctx, req, w)
	if o.metrics != nil {
		o.metrics.TurnsTotal.WithLabelValues(outcome).Inc()
	}
}

func (o *Orchestrator) executeTurn(ctx context.Context, req TurnRequest, w *StreamWriter) string {
	turnStart := time.Now()
	userID := req.UserID
	if userID == "" {
		userID = DefaultUserID
	}

	rawMessage, ok := req.lastUserMessage()
	if !ok {
		o.emitError(&turnState{writer: w}, fmt.Errorf("request contains no user message"))
		return metrics.OutcomeError
	}

	ts := &turnState{
		writer:     w,
		correlator: NewCorrelator(),
		userID:     userID,
	}

	// RESOLVING_SESSION
	sess, created, err := o.resolveSession(ctx, userID, req.SessionID, req.ProjectID)
	if err != nil {
		o.emitError(ts, err)
		return metrics.OutcomeError
	}
	ts.sessionID = sess.ID

	if o.audit != nil {
		_ = o.audit.LogTurnStart(sess.ID, userID)
		_ = o.audit.LogUserMessage(sess.ID, rawMessage)
	}

	o.emit(ts, NewSessionEvent(sess.ID))

	// The session event is the first and only guaranteed event; re-fetch so
	// the rest of the turn works with the freshest copy.
	sess, err = o.sessions.Get(ctx, userID, sess.ID)
	if err != nil {
		o.emitError(ts, fmt.Errorf("failed to load session: %w", err))
		return metrics.OutcomeError
	}

	state := investigation.FromStorage(sess.State[investigation.StateKey])
	augmented := investigation.InjectGuidance(state.Phase, o.withTimeWindow(rawMessage, req))

	// The raw message is the persisted artifact, never the guidance-augmented
	// variant.
	if err := o.sessions.AppendMessage(ctx, userID, sess.ID, session.Message{
		Role:    session.RoleUser,
		Content: rawMessage,
	}); err != nil {
		o.emitError(ts, fmt.Errorf("failed to persist message: %w", err))
		return metrics.OutcomeError
	}

	// STREAMING
	outcome := o.stream(ctx, ts, augmented)

	// PERSISTING: memory sync is best-effort, logged only.
	if outcome == metrics.OutcomeOK && o.memory != nil {
		if fresh, err := o.sessions.Get(ctx, userID, sess.ID); err == nil {
			if err := o.memory.Sync(ctx, fresh); err != nil {
				o.logger.Warn("memory sync failed for session %s: %v", sess.ID, err)
			}
		}
	}

	// First-turn title derivation, non-fatal.
	if created && sess.Title == "" {
		if err := o.sessions.SetTitle(ctx, userID, sess.ID, DeriveTitle(rawMessage)); err != nil {
			o.logger.Warn("failed to set session title for %s: %v", sess.ID, err)
		}
	}

	if o.audit != nil {
		_ = o.audit.LogTurnComplete(sess.ID, outcome, time.Since(turnStart))
	}

	return outcome
}

// resolveSession looks up the session, creating and seeding it when absent.
// The second return reports whether the session was created by this turn.
func (o *Orchestrator) resolveSession(ctx context.Context, userID, sessionID, projectID string) (*session.Session, bool, error) {
	if sessionID != "" {
		sess, err := o.sessions.Get(ctx, userID, sessionID)
		if err == nil {
			return sess, false, nil
		}
		if !errors.Is(err, session.ErrNotFound) {
			return nil, false, fmt.Errorf("failed to resolve session: %w", err)
		}
	}

	sess, err := o.sessions.Create(ctx, userID, sessionID, projectID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create session: %w", err)
	}

	seed := map[string]any{
		investigation.StateKey: investigation.ToStorage(investigation.NewState()),
	}
	if err := o.sessions.UpdateState(ctx, userID, sess.ID, seed); err != nil {
		return nil, false, fmt.Errorf("failed to seed session state: %w", err)
	}

	return sess, true, nil
}

// withTimeWindow appends the investigation window to the outgoing message
// when the request carries one.
func (o *Orchestrator) withTimeWindow(message string, req TurnRequest) string {
	if req.StartTime == 0 && req.EndTime == 0 {
		return message
	}
	return fmt.Sprintf("%s\n\n[Investigation window: start_time=%d end_time=%d]", message, req.StartTime, req.EndTime)
}

// stream runs the STREAMING and DRAINING stages.
func (o *Orchestrator) stream(ctx context.Context, ts *turnState, message string) string {
	// The agent runs on its own cancellable context carrying the sidecar
	// queue; cancelling it is how a client disconnect stops the agent.
	agentCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	agentCtx = dashboard.WithQueue(agentCtx)

	seq, err := o.runner.Run(agentCtx, ts.userID, ts.sessionID, message)
	if err != nil {
		o.emitError(ts, err)
		return metrics.OutcomeError
	}

	ch := make(chan agentEvent)
	go func() {
		defer close(ch)
		for event, err := range seq {
			select {
			case ch <- agentEvent{event: event, err: err}:
			case <-agentCtx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			// Client disconnect is silently terminal: cancel the agent and
			// emit nothing further.
			cancel()
			o.logger.Debug("client disconnected, turn %s cancelled", ts.sessionID)
			return metrics.OutcomeDisconnected

		case ae, open := <-ch:
			if !open {
				// DRAINING: catch entries queued after the last event.
				o.drainDashboard(agentCtx, ts)
				return metrics.OutcomeOK
			}
			if ae.err != nil {
				o.emitError(ts, ae.err)
				return metrics.OutcomeError
			}
			o.handleAgentEvent(ctx, agentCtx, ts, ae.event)
		}
	}
}

// handleAgentEvent persists, decomposes and emits one agent event, then
// drains the sidecar queue.
func (o *Orchestrator) handleAgentEvent(ctx context.Context, agentCtx context.Context, ts *turnState, event *adksession.Event) {
	if event == nil {
		return
	}

	if event.Content != nil {
		var texts []string

		for _, part := range event.Content.Parts {
			if part == nil {
				continue
			}

			// Sub-order within a part: text, then tool call, then tool
			// response.
			if part.Text != "" && !part.Thought {
				texts = append(texts, part.Text)
				o.emit(ts, NewTextEvent(part.Text))
			}

			if part.FunctionCall != nil {
				args := NormalizeArgs(part.FunctionCall.Args)
				callID := ts.correlator.Register(part.FunctionCall.Name, args)
				if o.metrics != nil {
					o.metrics.ToolCallsTotal.WithLabelValues(part.FunctionCall.Name).Inc()
				}
				o.emit(ts, NewToolCallEvent(callID, part.FunctionCall.Name, args))
			}

			if part.FunctionResponse != nil {
				o.emitToolResponse(ts, part.FunctionResponse.Name, part.FunctionResponse.Response)
			}
		}

		// Model text is persisted raw; tool traffic is not part of the
		// transcript.
		if len(texts) > 0 && event.Author != "" && event.Author != "user" {
			if err := o.sessions.AppendMessage(ctx, ts.userID, ts.sessionID, session.Message{
				Role:    session.RoleModel,
				Content: strings.Join(texts, "\n"),
			}); err != nil {
				o.logger.Warn("failed to persist agent message: %v", err)
			}
		}
	}

	// State deltas written by tools flow into session storage as they
	// happen, so a disconnect mid-turn does not lose investigation state.
	if len(event.Actions.StateDelta) > 0 {
		if err := o.sessions.UpdateState(ctx, ts.userID, ts.sessionID, event.Actions.StateDelta); err != nil {
			o.logger.Warn("failed to apply state delta: %v", err)
		}
	}

	o.drainDashboard(agentCtx, ts)
}

// emitToolResponse correlates one tool result and emits it. Results with no
// pending call of the same name are dropped silently.
func (o *Orchestrator) emitToolResponse(ts *turnState, toolName string, response map[string]any) {
	pending, ok := ts.correlator.Match(toolName)
	if !ok {
		o.logger.Debug("unmatched tool response for %s dropped", toolName)
		return
	}

	status := ToolStatusCompleted
	if response != nil {
		if _, hasErr := response["error"]; hasErr {
			status = ToolStatusError
		}
	}

	o.emit(ts, NewToolResponseEvent(pending.CallID, toolName, NormalizeValue(response), status))
}

// drainDashboard flushes the sidecar queue into dashboard events.
func (o *Orchestrator) drainDashboard(agentCtx context.Context, ts *turnState) {
	for _, entry := range dashboard.Drain(agentCtx) {
		widget := o.transformer.Transform(entry.ToolName, NormalizeValue(entry.Result))
		o.emit(ts, NewDashboardEvent(widget))
	}
}

// emit writes one event to the client stream. Write failures mark the
// client gone; subsequent emits become no-ops.
func (o *Orchestrator) emit(ts *turnState, event any) {
	if ts.clientGone || ts.writer == nil {
		return
	}
	if err := ts.writer.Write(event); err != nil {
		ts.clientGone = true
		o.logger.Debug("stream write failed, suppressing further events: %v", err)
		return
	}
	if typed, ok := eventType(event); ok {
		if o.metrics != nil {
			o.metrics.EventsTotal.WithLabelValues(typed).Inc()
		}
		if o.audit != nil {
			_ = o.audit.LogStreamEvent(ts.sessionID, typed, event)
		}
	}
}

// emitError surfaces a turn failure as a text event so the client parser
// stays uniform, then the stream closes normally.
func (o *Orchestrator) emitError(ts *turnState, err error) {
	o.logger.ErrorWithErr("turn failed", err)
	o.emit(ts, NewTextEvent(fmt.Sprintf("\n\n**Error executing agent:** %s", err.Error())))
}

func eventType(event any) (string, bool) {
	switch e := event.(type) {
	case SessionEvent:
		return e.Type, true
	case TextEvent:
		return e.Type, true
	case ToolCallEvent:
		return e.Type, true
	case ToolResponseEvent:
		return e.Type, true
	case DashboardEvent:
		return e.Type, true
	default:
		return "", false
	}
}
