package dashboard

import "testing"

func TestTransformKnownTools(t *testing.T) {
	tr := NewTransformer()

	cases := []struct {
		tool       string
		category   string
		widgetType string
	}{
		{"list_log_entries", "logs", "log_table"},
		{"query_time_series", "metrics", "time_series_chart"},
		{"list_alerts", "alerts", "alert_list"},
		{"get_slo_status", "slo", "slo_summary"},
	}
	for _, c := range cases {
		w := tr.Transform(c.tool, map[string]any{"k": "v"})
		if w.Category != c.category || w.WidgetType != c.widgetType || w.ToolName != c.tool {
			t.Errorf("Transform(%s) = %+v", c.tool, w)
		}
	}
}

func TestTransformUnknownToolFallsBack(t *testing.T) {
	w := NewTransformer().Transform("exotic_tool", []int{1, 2})
	if w.Category != "generic" || w.WidgetType != "raw_json" {
		t.Errorf("unknown tool widget = %+v", w)
	}
	if w.ToolName != "exotic_tool" {
		t.Errorf("ToolName = %q", w.ToolName)
	}
}
