package investigation

// FromStorage decodes the raw session-state value into a State. It never
// fails: any structural or type error, including an unknown phase name,
// silently resets the whole state to its default. A corrupt state must
// never fail a turn.
func FromStorage(raw any) *State {
	m, ok := raw.(map[string]any)
	if !ok {
		return NewState()
	}

	s := NewState()

	phaseRaw, ok := m["phase"].(string)
	if !ok {
		return NewState()
	}
	phase, err := ParsePhase(phaseRaw)
	if err != nil {
		return NewState()
	}
	s.Phase = phase

	findings, ok := stringSlice(m["findings"])
	if !ok {
		return NewState()
	}
	// Re-apply dedup on load so a hand-edited or corrupt payload cannot
	// smuggle duplicates past the insertion invariant.
	for _, f := range findings {
		s.AddFinding(f)
	}

	hypotheses, ok := stringSlice(m["hypotheses"])
	if !ok {
		return NewState()
	}
	s.Hypotheses = hypotheses

	if v, present := m["confirmed_root_cause"]; present {
		cause, ok := v.(string)
		if !ok {
			return NewState()
		}
		s.ConfirmedRootCause = cause
	}
	if v, present := m["suggested_fix"]; present {
		fix, ok := v.(string)
		if !ok {
			return NewState()
		}
		s.SuggestedFix = fix
	}

	return s
}

// ToStorage encodes the state into the plain map stored in session state.
// It is the structural inverse of FromStorage for all valid states.
func ToStorage(s *State) map[string]any {
	if s == nil {
		s = NewState()
	}
	m := map[string]any{
		"phase":      string(s.Phase),
		"findings":   append([]string{}, s.Findings...),
		"hypotheses": append([]string{}, s.Hypotheses...),
	}
	if s.ConfirmedRootCause != "" {
		m["confirmed_root_cause"] = s.ConfirmedRootCause
	}
	if s.SuggestedFix != "" {
		m["suggested_fix"] = s.SuggestedFix
	}
	return m
}

// stringSlice accepts both []string (in-process round trip) and []any
// (JSON decode) shapes. A missing value is an empty slice, not an error.
func stringSlice(v any) ([]string, bool) {
	switch t := v.(type) {
	case nil:
		return []string{}, true
	case []string:
		return append([]string{}, t...), true
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}
