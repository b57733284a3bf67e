package orchestrator

import (
	"encoding/json"
	"fmt"
)

// NormalizeValue converts an arbitrary payload into a plain JSON-compatible
// value by round-tripping it through encoding/json. Values that cannot be
// marshaled degrade to their string representation; normalization itself
// never fails.
func NormalizeValue(v any) any {
	if v == nil {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}

	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return string(data)
	}
	return out
}

// NormalizeArgs normalizes a tool argument map. A nil map normalizes to an
// empty one so emitted events always carry an args object.
func NormalizeArgs(args map[string]any) map[string]any {
	if args == nil {
		return map[string]any{}
	}

	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = NormalizeValue(v)
	}
	return out
}
