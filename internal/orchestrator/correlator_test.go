package orchestrator

import "testing"

func TestCorrelatorFIFOByName(t *testing.T) {
	c := NewCorrelator()

	idA1 := c.Register("A", map[string]any{"n": 1})
	idB1 := c.Register("B", map[string]any{"n": 1})
	idA2 := c.Register("A", map[string]any{"n": 2})

	if idA1 == idB1 || idA1 == idA2 || idB1 == idA2 {
		t.Fatal("call ids must be unique")
	}

	first, ok := c.Match("A")
	if !ok || first.CallID != idA1 || first.Args["n"] != 1 {
		t.Errorf("first A match = %+v ok=%v", first, ok)
	}
	second, ok := c.Match("A")
	if !ok || second.CallID != idA2 || second.Args["n"] != 2 {
		t.Errorf("second A match = %+v ok=%v", second, ok)
	}
	b, ok := c.Match("B")
	if !ok || b.CallID != idB1 || b.Args["n"] != 1 {
		t.Errorf("B match = %+v ok=%v", b, ok)
	}
	if _, ok := c.Match("A"); ok {
		t.Error("fourth match must report none")
	}
	if c.Pending() != 0 {
		t.Errorf("Pending = %d", c.Pending())
	}
}

func TestCorrelatorMatchUnknownName(t *testing.T) {
	c := NewCorrelator()
	c.Register("list_logs", nil)

	if _, ok := c.Match("query_metrics"); ok {
		t.Error("matching a name never registered must report none")
	}
	if c.Pending() != 1 {
		t.Errorf("Pending = %d, unrelated match must not consume entries", c.Pending())
	}
}
