package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewRegistryRegistersTelemetryTools(t *testing.T) {
	r := NewRegistry(Dependencies{ProjectID: "test-project"})

	want := []string{
		"list_log_entries",
		"query_time_series",
		"list_alerts",
		"list_traces",
		"list_error_groups",
		"get_slo_status",
		"list_recent_rollouts",
		"get_service_topology",
	}
	for _, name := range want {
		if _, ok := r.Get(name); !ok {
			t.Errorf("tool %s not registered", name)
		}
	}
	if got := len(r.List()); got != len(want) {
		t.Errorf("List() returned %d tools, want %d", got, len(want))
	}
}

func TestExecuteUnknownTool(t *testing.T) {
	r := NewRegistry(Dependencies{ProjectID: "test-project"})

	_, err := r.Execute(context.Background(), "no_such_tool", nil)
	if err == nil || !strings.Contains(err.Error(), "unknown tool") {
		t.Errorf("Execute unknown tool err = %v", err)
	}
}

func TestExecuteReturnsResult(t *testing.T) {
	r := NewRegistry(Dependencies{ProjectID: "default-project"})

	result, err := r.Execute(context.Background(), "list_alerts", json.RawMessage(`{"project_id":"other-project"}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.Success {
		t.Errorf("Success = false, error = %q", result.Error)
	}
	data, ok := result.Data.(map[string]any)
	if !ok {
		t.Fatalf("Data type = %T", result.Data)
	}
	if data["project_id"] != "other-project" {
		t.Errorf("project_id = %v, want arg override", data["project_id"])
	}
}

func TestExecuteDefaultsProjectID(t *testing.T) {
	r := NewRegistry(Dependencies{ProjectID: "default-project"})

	result, err := r.Execute(context.Background(), "list_alerts", nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	data := result.Data.(map[string]any)
	if data["project_id"] != "default-project" {
		t.Errorf("project_id = %v, want registry default", data["project_id"])
	}
}

func TestExecuteCancelledContext(t *testing.T) {
	r := NewRegistry(Dependencies{ProjectID: "test-project"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := r.Execute(ctx, "list_log_entries", nil); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestTruncateResultPassthrough(t *testing.T) {
	small := &Result{Success: true, Summary: "ok", Data: map[string]any{"a": 1}}
	if got := TruncateResult(small, 1024); got != small {
		t.Error("small result should pass through unchanged")
	}
	if got := TruncateResult(nil, 1024); got != nil {
		t.Error("nil result should pass through")
	}
	noData := &Result{Success: true}
	if got := TruncateResult(noData, 1024); got != noData {
		t.Error("result without data should pass through")
	}
}

func TestTruncateResultCapsOversizedData(t *testing.T) {
	big := &Result{
		Success: true,
		Summary: "huge response",
		Data:    map[string]any{"blob": strings.Repeat("x", 8192)},
	}

	got := TruncateResult(big, 2048)
	if got == big {
		t.Fatal("oversized result should be replaced")
	}

	td, ok := got.Data.(*truncatedData)
	if !ok {
		t.Fatalf("Data type = %T", got.Data)
	}
	if !td.Truncated {
		t.Error("Truncated flag not set")
	}
	if td.OriginalBytes <= 2048 {
		t.Errorf("OriginalBytes = %d, want > limit", td.OriginalBytes)
	}
	if len(td.PartialData) > 2048*80/100 {
		t.Errorf("PartialData len = %d, exceeds 80%% of limit", len(td.PartialData))
	}
	if !strings.Contains(got.Summary, "huge response") || !strings.Contains(got.Summary, "TRUNCATED") {
		t.Errorf("Summary = %q", got.Summary)
	}
	if !got.Success {
		t.Error("Success flag should be preserved")
	}
}

func TestRegistryExecuteAppliesTruncation(t *testing.T) {
	r := NewRegistry(Dependencies{ProjectID: "p", MaxResultBytes: 2048})
	r.register(&telemetryTool{
		name:   "big_dump",
		schema: map[string]interface{}{"type": "object"},
		respond: func(project string, args map[string]any) *Result {
			return &Result{Success: true, Data: map[string]any{"blob": strings.Repeat("y", 10000)}}
		},
	})

	result, err := r.Execute(context.Background(), "big_dump", nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if _, ok := result.Data.(*truncatedData); !ok {
		t.Errorf("expected truncated data, got %T", result.Data)
	}
}
