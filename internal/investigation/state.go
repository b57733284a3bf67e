// Package investigation holds the phase-aware state that an investigation
// session accumulates across turns. The reasoning agent drives all
// transitions through explicit update tools; this package only validates
// and stores what the agent requests.
package investigation

import (
	"fmt"
	"strings"
)

// Phase is the current stage of an investigation.
type Phase string

const (
	PhaseTriage      Phase = "TRIAGE"
	PhaseAnalysis    Phase = "ANALYSIS"
	PhaseRootCause   Phase = "ROOT_CAUSE"
	PhaseRemediation Phase = "REMEDIATION"
	PhaseCompleted   Phase = "COMPLETED"
)

// StateKey is the session state key the investigation state is stored under.
const StateKey = "investigation"

// phaseRank orders phases for the "never move backwards past a confirmed
// root cause" rule. Phases are ordered but not strictly linear: the agent
// may jump straight to ROOT_CAUSE.
var phaseRank = map[Phase]int{
	PhaseTriage:      0,
	PhaseAnalysis:    1,
	PhaseRootCause:   2,
	PhaseRemediation: 3,
	PhaseCompleted:   4,
}

// ParsePhase parses a phase name case-insensitively. Unknown names return
// an error the caller treats as recoverable; they must never fail a turn.
func ParsePhase(s string) (Phase, error) {
	p := Phase(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := phaseRank[p]; !ok {
		return "", fmt.Errorf("unknown investigation phase: %q", s)
	}
	return p, nil
}

// State is the investigation state persisted in session storage.
type State struct {
	Phase              Phase    `json:"phase"`
	Findings           []string `json:"findings"`
	Hypotheses         []string `json:"hypotheses"`
	ConfirmedRootCause string   `json:"confirmed_root_cause,omitempty"`
	SuggestedFix       string   `json:"suggested_fix,omitempty"`
}

// NewState returns the default state a fresh session starts with.
func NewState() *State {
	return &State{
		Phase:      PhaseTriage,
		Findings:   []string{},
		Hypotheses: []string{},
	}
}

// SetPhase stores the requested phase. Transitions are advisory: any of the
// five phases is accepted in any order.
func (s *State) SetPhase(p Phase) error {
	if _, ok := phaseRank[p]; !ok {
		return fmt.Errorf("unknown investigation phase: %q", p)
	}
	s.Phase = p
	return nil
}

// AddFinding appends a finding unless an equal one is already present.
// Insertion order is preserved; duplicates are dropped, not re-appended.
// Returns true if the finding was added.
func (s *State) AddFinding(finding string) bool {
	for _, f := range s.Findings {
		if f == finding {
			return false
		}
	}
	s.Findings = append(s.Findings, finding)
	return true
}

// AddHypothesis appends a hypothesis. Duplicates are allowed.
func (s *State) AddHypothesis(hypothesis string) {
	s.Hypotheses = append(s.Hypotheses, hypothesis)
}

// ConfirmRootCause records the confirmed root cause. If the investigation
// has not yet reached ROOT_CAUSE the phase is forced forward to it; a later
// phase is left alone.
func (s *State) ConfirmRootCause(cause string) {
	s.ConfirmedRootCause = cause
	if phaseRank[s.Phase] < phaseRank[PhaseRootCause] {
		s.Phase = PhaseRootCause
	}
}

// SetSuggestedFix records the remediation the agent proposes.
func (s *State) SetSuggestedFix(fix string) {
	s.SuggestedFix = fix
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	c := &State{
		Phase:              s.Phase,
		Findings:           make([]string, len(s.Findings)),
		Hypotheses:         make([]string, len(s.Hypotheses)),
		ConfirmedRootCause: s.ConfirmedRootCause,
		SuggestedFix:       s.SuggestedFix,
	}
	copy(c.Findings, s.Findings)
	copy(c.Hypotheses, s.Hypotheses)
	return c
}
