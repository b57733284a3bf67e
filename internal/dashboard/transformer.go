package dashboard

// Widget is the client-facing dashboard payload derived from one tool
// result.
type Widget struct {
	Category   string `json:"category"`
	WidgetType string `json:"widget_type"`
	ToolName   string `json:"tool_name"`
	Data       any    `json:"data"`
}

// Transformer shapes a raw tool result into a dashboard widget. Implemented
// as a pure function with no failure mode: unknown tools fall back to a raw
// JSON widget rather than being dropped.
type Transformer interface {
	Transform(toolName string, result any) Widget
}

// widgetMapping routes known diagnostic tools to their dashboard widget.
type widgetMapping struct {
	category   string
	widgetType string
}

var toolWidgets = map[string]widgetMapping{
	"list_log_entries":      {category: "logs", widgetType: "log_table"},
	"query_time_series":     {category: "metrics", widgetType: "time_series_chart"},
	"list_alerts":           {category: "alerts", widgetType: "alert_list"},
	"list_traces":           {category: "traces", widgetType: "trace_table"},
	"get_service_topology":  {category: "topology", widgetType: "service_graph"},
	"list_error_groups":     {category: "errors", widgetType: "error_group_table"},
	"get_slo_status":        {category: "slo", widgetType: "slo_summary"},
	"list_recent_rollouts":  {category: "changes", widgetType: "rollout_timeline"},
	"search_investigations": {category: "memory", widgetType: "investigation_list"},
}

// MapTransformer is the default Transformer backed by the static tool-widget
// table above.
type MapTransformer struct{}

// NewTransformer returns the default widget transformer.
func NewTransformer() *MapTransformer {
	return &MapTransformer{}
}

func (t *MapTransformer) Transform(toolName string, result any) Widget {
	if m, ok := toolWidgets[toolName]; ok {
		return Widget{
			Category:   m.category,
			WidgetType: m.widgetType,
			ToolName:   toolName,
			Data:       result,
		}
	}
	return Widget{
		Category:   "generic",
		WidgetType: "raw_json",
		ToolName:   toolName,
		Data:       result,
	}
}
