package tools

import (
	"context"
	"encoding/json"
	"time"
)

// telemetryTool is a diagnostic tool backed by a canned response generator.
// The real GCP backends are external collaborators; this default set returns
// representative payloads so the pipeline, dashboard and tests work without
// cloud credentials.
type telemetryTool struct {
	name        string
	description string
	schema      map[string]interface{}
	respond     func(projectID string, args map[string]any) *Result
	projectID   string
}

func (t *telemetryTool) Name() string                        { return t.name }
func (t *telemetryTool) Description() string                 { return t.description }
func (t *telemetryTool) InputSchema() map[string]interface{} { return t.schema }

func (t *telemetryTool) Execute(ctx context.Context, input json.RawMessage) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	args := map[string]any{}
	if len(input) > 0 {
		// Malformed args degrade to the unfiltered response; the model sees
		// data either way.
		_ = json.Unmarshal(input, &args)
	}

	project := t.projectID
	if p, ok := args["project_id"].(string); ok && p != "" {
		project = p
	}

	result := t.respond(project, args)
	result.ExecutionTimeMs = time.Since(start).Milliseconds()
	return result, nil
}

func timeWindowSchema(extra map[string]interface{}) map[string]interface{} {
	props := map[string]interface{}{
		"project_id": map[string]interface{}{"type": "string", "description": "Cloud project to query"},
		"start_time": map[string]interface{}{"type": "integer", "description": "Window start, Unix seconds"},
		"end_time":   map[string]interface{}{"type": "integer", "description": "Window end, Unix seconds"},
	}
	for k, v := range extra {
		props[k] = v
	}
	return map[string]interface{}{
		"type":       "object",
		"properties": props,
	}
}

func telemetryTools(projectID string) []Tool {
	return []Tool{
		&telemetryTool{
			projectID:   projectID,
			name:        "list_log_entries",
			description: "Query Cloud Logging entries for the project within a time window, optionally filtered by severity or resource.",
			schema: timeWindowSchema(map[string]interface{}{
				"filter":      map[string]interface{}{"type": "string", "description": "Logging filter expression"},
				"max_entries": map[string]interface{}{"type": "integer"},
			}),
			respond: func(project string, args map[string]any) *Result {
				return &Result{
					Success: true,
					Summary: "Found 3 matching log entries",
					Data: map[string]any{
						"project_id": project,
						"entries": []map[string]any{
							{"timestamp": "2026-08-29T14:02:11Z", "severity": "ERROR", "resource": "k8s_container/checkout", "text": "rpc error: code = Unavailable desc = connection refused to payments:8443"},
							{"timestamp": "2026-08-29T14:02:14Z", "severity": "ERROR", "resource": "k8s_container/checkout", "text": "request failed after 3 retries"},
							{"timestamp": "2026-08-29T14:03:02Z", "severity": "WARNING", "resource": "k8s_container/payments", "text": "readiness probe failed: HTTP 503"},
						},
					},
				}
			},
		},
		&telemetryTool{
			projectID:   projectID,
			name:        "query_time_series",
			description: "Query Cloud Monitoring time series (request rate, error rate, latency percentiles) for a metric over a time window.",
			schema: timeWindowSchema(map[string]interface{}{
				"metric": map[string]interface{}{"type": "string", "description": "Metric type, e.g. serviceruntime.googleapis.com/api/request_latencies"},
			}),
			respond: func(project string, args map[string]any) *Result {
				metric, _ := args["metric"].(string)
				if metric == "" {
					metric = "loadbalancing.googleapis.com/https/backend_latencies"
				}
				return &Result{
					Success: true,
					Summary: "Returned 1 time series with 4 points",
					Data: map[string]any{
						"project_id": project,
						"metric":     metric,
						"series": []map[string]any{
							{"labels": map[string]string{"service": "checkout"}, "points": []map[string]any{
								{"timestamp": "2026-08-29T13:55:00Z", "value": 0.23},
								{"timestamp": "2026-08-29T14:00:00Z", "value": 0.25},
								{"timestamp": "2026-08-29T14:05:00Z", "value": 2.41},
								{"timestamp": "2026-08-29T14:10:00Z", "value": 2.38},
							}},
						},
					},
				}
			},
		},
		&telemetryTool{
			projectID:   projectID,
			name:        "list_alerts",
			description: "List open Cloud Monitoring alert incidents for the project.",
			schema:      timeWindowSchema(nil),
			respond: func(project string, args map[string]any) *Result {
				return &Result{
					Success: true,
					Summary: "2 open alerts",
					Data: map[string]any{
						"project_id": project,
						"alerts": []map[string]any{
							{"policy": "checkout-5xx-rate", "state": "OPEN", "opened_at": "2026-08-29T14:03:30Z", "summary": "5xx ratio above 5% for 5m"},
							{"policy": "payments-pod-restarts", "state": "OPEN", "opened_at": "2026-08-29T14:05:10Z", "summary": "Pod restart count above threshold"},
						},
					},
				}
			},
		},
		&telemetryTool{
			projectID:   projectID,
			name:        "list_traces",
			description: "List slow or failed distributed traces for the project within a time window.",
			schema: timeWindowSchema(map[string]interface{}{
				"min_latency_ms": map[string]interface{}{"type": "integer"},
			}),
			respond: func(project string, args map[string]any) *Result {
				return &Result{
					Success: true,
					Summary: "Found 2 traces above latency threshold",
					Data: map[string]any{
						"project_id": project,
						"traces": []map[string]any{
							{"trace_id": "6f2a9c", "root_span": "POST /checkout", "duration_ms": 2410, "status": "DEADLINE_EXCEEDED", "slowest_span": "payments.Charge"},
							{"trace_id": "b81d04", "root_span": "POST /checkout", "duration_ms": 2380, "status": "DEADLINE_EXCEEDED", "slowest_span": "payments.Charge"},
						},
					},
				}
			},
		},
		&telemetryTool{
			projectID:   projectID,
			name:        "list_error_groups",
			description: "List Error Reporting groups ordered by occurrence count.",
			schema:      timeWindowSchema(nil),
			respond: func(project string, args map[string]any) *Result {
				return &Result{
					Success: true,
					Summary: "1 error group with recent growth",
					Data: map[string]any{
						"project_id": project,
						"groups": []map[string]any{
							{"group": "grpc.Unavailable: connection refused", "service": "checkout", "count_1h": 1840, "first_seen": "2026-08-29T14:02:00Z"},
						},
					},
				}
			},
		},
		&telemetryTool{
			projectID:   projectID,
			name:        "get_slo_status",
			description: "Get SLO burn rate and remaining error budget for the project's services.",
			schema:      timeWindowSchema(nil),
			respond: func(project string, args map[string]any) *Result {
				return &Result{
					Success: true,
					Summary: "checkout availability SLO is burning fast",
					Data: map[string]any{
						"project_id": project,
						"slos": []map[string]any{
							{"service": "checkout", "slo": "availability-99.9", "burn_rate_1h": 14.2, "budget_remaining": 0.62},
							{"service": "payments", "slo": "latency-p99-500ms", "burn_rate_1h": 9.8, "budget_remaining": 0.71},
						},
					},
				}
			},
		},
		&telemetryTool{
			projectID:   projectID,
			name:        "list_recent_rollouts",
			description: "List recent deployments and config changes across the project's services.",
			schema:      timeWindowSchema(nil),
			respond: func(project string, args map[string]any) *Result {
				return &Result{
					Success: true,
					Summary: "1 rollout in the window",
					Data: map[string]any{
						"project_id": project,
						"rollouts": []map[string]any{
							{"service": "payments", "revision": "payments-v1.4.2", "rolled_out_at": "2026-08-29T14:00:45Z", "actor": "deploy-bot", "change": "image: payments:v1.4.1 -> payments:v1.4.2"},
						},
					},
				}
			},
		},
		&telemetryTool{
			projectID:   projectID,
			name:        "get_service_topology",
			description: "Get the service dependency graph around a service.",
			schema: timeWindowSchema(map[string]interface{}{
				"service": map[string]interface{}{"type": "string"},
			}),
			respond: func(project string, args map[string]any) *Result {
				service, _ := args["service"].(string)
				if service == "" {
					service = "checkout"
				}
				return &Result{
					Success: true,
					Summary: "Topology for " + service,
					Data: map[string]any{
						"project_id": project,
						"service":    service,
						"upstream":   []string{"frontend"},
						"downstream": []string{"payments", "inventory", "emailservice"},
					},
				}
			},
		},
	}
}
