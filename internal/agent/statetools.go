package agent

import (
	"errors"
	"fmt"

	"google.golang.org/adk/session"
	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"

	"github.com/srtux/sre-agent-sub000/internal/investigation"
)

// StateToolResult is returned by all investigation state tools.
type StateToolResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Phase   string `json:"phase,omitempty"`
}

// loadState reads the investigation state visible to a tool call. Deltas
// written by earlier tool calls in the same invocation take precedence over
// the committed session state.
func loadState(ctx tool.Context) *investigation.State {
	if delta := ctx.Actions().StateDelta; delta != nil {
		if raw, ok := delta[investigation.StateKey]; ok {
			return investigation.FromStorage(raw)
		}
	}

	raw, err := ctx.State().Get(investigation.StateKey)
	if errors.Is(err, session.ErrStateKeyNotExist) {
		return investigation.NewState()
	}
	if err != nil {
		// Unreadable state starts a fresh investigation rather than failing
		// the tool call.
		return investigation.NewState()
	}
	return investigation.FromStorage(raw)
}

func storeState(ctx tool.Context, s *investigation.State) {
	actions := ctx.Actions()
	if actions.StateDelta == nil {
		actions.StateDelta = make(map[string]any)
	}
	actions.StateDelta[investigation.StateKey] = investigation.ToStorage(s)
}

// UpdatePhaseArgs defines the input for the update_investigation_phase tool.
type UpdatePhaseArgs struct {
	// Phase is the target phase: triage, analysis, root_cause, remediation
	// or completed.
	Phase string `json:"phase"`
}

// NewUpdatePhaseTool creates the update_investigation_phase tool.
func NewUpdatePhaseTool() (tool.Tool, error) {
	return functiontool.New(functiontool.Config{
		Name: "update_investigation_phase",
		Description: `Move the investigation to a new phase.

Valid phases, in order: triage, analysis, root_cause, remediation, completed.
Advance when the current phase's goal is met. Moving backwards is allowed
when new evidence invalidates earlier conclusions.`,
	}, updatePhase)
}

func updatePhase(ctx tool.Context, args UpdatePhaseArgs) (StateToolResult, error) {
	phase, err := investigation.ParsePhase(args.Phase)
	if err != nil {
		return StateToolResult{
			Status:  "error",
			Message: err.Error(),
		}, nil
	}

	s := loadState(ctx)
	if err := s.SetPhase(phase); err != nil {
		return StateToolResult{
			Status:  "error",
			Message: err.Error(),
		}, nil
	}
	storeState(ctx, s)

	return StateToolResult{
		Status:  "success",
		Message: fmt.Sprintf("Investigation phase is now %s.", phase),
		Phase:   string(phase),
	}, nil
}

// AddFindingArgs defines the input for the add_finding tool.
type AddFindingArgs struct {
	// Finding is one concrete, evidence-backed observation.
	Finding string `json:"finding"`
}

// NewAddFindingTool creates the add_finding tool.
func NewAddFindingTool() (tool.Tool, error) {
	return functiontool.New(functiontool.Config{
		Name: "add_finding",
		Description: `Record a concrete finding backed by telemetry evidence.

A finding is a single observed fact, e.g. "checkout 5xx rate rose from 0.1%
to 8% at 14:03 UTC". Record findings as you discover them; they persist
across turns and feed the investigation summary.`,
	}, addFinding)
}

func addFinding(ctx tool.Context, args AddFindingArgs) (StateToolResult, error) {
	if args.Finding == "" {
		return StateToolResult{
			Status:  "error",
			Message: "finding must not be empty",
		}, nil
	}

	s := loadState(ctx)
	added := s.AddFinding(args.Finding)
	storeState(ctx, s)

	if !added {
		return StateToolResult{
			Status:  "success",
			Message: "Finding was already recorded.",
			Phase:   string(s.Phase),
		}, nil
	}
	return StateToolResult{
		Status:  "success",
		Message: fmt.Sprintf("Finding recorded (%d total).", len(s.Findings)),
		Phase:   string(s.Phase),
	}, nil
}

// AddHypothesisArgs defines the input for the add_hypothesis tool.
type AddHypothesisArgs struct {
	// Hypothesis is a falsifiable root cause candidate.
	Hypothesis string `json:"hypothesis"`
}

// NewAddHypothesisTool creates the add_hypothesis tool.
func NewAddHypothesisTool() (tool.Tool, error) {
	return functiontool.New(functiontool.Config{
		Name: "add_hypothesis",
		Description: `Record a falsifiable root cause hypothesis.

State the suspected cause and the mechanism, e.g. "payments v1.4.2 rollout
broke the TLS config, causing connection refusals from checkout". Record
competing hypotheses separately.`,
	}, addHypothesis)
}

func addHypothesis(ctx tool.Context, args AddHypothesisArgs) (StateToolResult, error) {
	if args.Hypothesis == "" {
		return StateToolResult{
			Status:  "error",
			Message: "hypothesis must not be empty",
		}, nil
	}

	s := loadState(ctx)
	s.AddHypothesis(args.Hypothesis)
	storeState(ctx, s)

	return StateToolResult{
		Status:  "success",
		Message: fmt.Sprintf("Hypothesis recorded (%d total).", len(s.Hypotheses)),
		Phase:   string(s.Phase),
	}, nil
}

// ConfirmRootCauseArgs defines the input for the confirm_root_cause tool.
type ConfirmRootCauseArgs struct {
	// RootCause is the confirmed root cause statement.
	RootCause string `json:"root_cause"`
}

// NewConfirmRootCauseTool creates the confirm_root_cause tool.
func NewConfirmRootCauseTool() (tool.Tool, error) {
	return functiontool.New(functiontool.Config{
		Name: "confirm_root_cause",
		Description: `Confirm the root cause once the evidence supports exactly one hypothesis.

Only call this after you have both confirming evidence and have ruled out
the competing hypotheses. This moves the investigation to the root_cause
phase if it has not reached it yet.`,
	}, confirmRootCause)
}

func confirmRootCause(ctx tool.Context, args ConfirmRootCauseArgs) (StateToolResult, error) {
	if args.RootCause == "" {
		return StateToolResult{
			Status:  "error",
			Message: "root_cause must not be empty",
		}, nil
	}

	s := loadState(ctx)
	s.ConfirmRootCause(args.RootCause)
	storeState(ctx, s)

	return StateToolResult{
		Status:  "success",
		Message: "Root cause confirmed.",
		Phase:   string(s.Phase),
	}, nil
}

// SuggestFixArgs defines the input for the suggest_fix tool.
type SuggestFixArgs struct {
	// Fix is the recommended remediation.
	Fix string `json:"fix"`
}

// NewSuggestFixTool creates the suggest_fix tool.
func NewSuggestFixTool() (tool.Tool, error) {
	return functiontool.New(functiontool.Config{
		Name: "suggest_fix",
		Description: `Record the recommended remediation for the confirmed root cause.

Give a concrete, actionable fix, e.g. "roll back payments to v1.4.1" or
"restore the TLS cert secret and restart the payments deployment".`,
	}, suggestFix)
}

func suggestFix(ctx tool.Context, args SuggestFixArgs) (StateToolResult, error) {
	if args.Fix == "" {
		return StateToolResult{
			Status:  "error",
			Message: "fix must not be empty",
		}, nil
	}

	s := loadState(ctx)
	s.SetSuggestedFix(args.Fix)
	storeState(ctx, s)

	return StateToolResult{
		Status:  "success",
		Message: "Suggested fix recorded.",
		Phase:   string(s.Phase),
	}, nil
}

// investigationTools returns the state management tool set.
func investigationTools() ([]tool.Tool, error) {
	builders := []func() (tool.Tool, error){
		NewUpdatePhaseTool,
		NewAddFindingTool,
		NewAddHypothesisTool,
		NewConfirmRootCauseTool,
		NewSuggestFixTool,
	}

	out := make([]tool.Tool, 0, len(builders))
	for _, build := range builders {
		t, err := build()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
