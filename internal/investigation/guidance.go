package investigation

import "fmt"

// phaseGuidance is the per-phase steering text prepended to the user's
// message before it reaches the agent. The raw message, not the augmented
// one, is what gets persisted to turn history.
var phaseGuidance = map[Phase]string{
	PhaseTriage: "You are in the TRIAGE phase. Establish what is broken, since when, " +
		"and the blast radius. Prefer broad, cheap queries (alert overviews, error " +
		"counts) before drilling down. Record every confirmed observation as a finding.",
	PhaseAnalysis: "You are in the ANALYSIS phase. Narrow down the failure using logs, " +
		"metrics and traces. Form explicit hypotheses and record them; gather evidence " +
		"that could confirm or falsify each one.",
	PhaseRootCause: "You are in the ROOT_CAUSE phase. Validate the leading hypothesis " +
		"against the evidence. When confident, confirm the root cause explicitly.",
	PhaseRemediation: "You are in the REMEDIATION phase. Propose a concrete, minimal fix " +
		"for the confirmed root cause and any follow-up actions to prevent recurrence.",
	PhaseCompleted: "The investigation is COMPLETED. Answer follow-up questions from the " +
		"recorded findings; reopen a phase only if the user reports new symptoms.",
}

// Guidance returns the steering text for a phase. Unknown phases fall back
// to triage guidance rather than failing.
func Guidance(p Phase) string {
	if g, ok := phaseGuidance[p]; ok {
		return g
	}
	return phaseGuidance[PhaseTriage]
}

// InjectGuidance prepends the phase guidance to the user's raw message.
func InjectGuidance(p Phase, message string) string {
	return fmt.Sprintf("[Investigation guidance] %s\n\n%s", Guidance(p), message)
}
