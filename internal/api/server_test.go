package api

import (
	"bytes"
	"context"
	"encoding/json"
	"iter"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	adksession "google.golang.org/adk/session"
	"google.golang.org/genai"

	"github.com/srtux/sre-agent-sub000/internal/metrics"
	"github.com/srtux/sre-agent-sub000/internal/orchestrator"
	"github.com/srtux/sre-agent-sub000/internal/session"
)

// stubRunner yields a single text event and records the message it received.
type stubRunner struct {
	reply string

	mu         sync.Mutex
	gotMessage string
}

func (r *stubRunner) Run(ctx context.Context, userID, sessionID, message string) (iter.Seq2[*adksession.Event, error], error) {
	r.mu.Lock()
	r.gotMessage = message
	r.mu.Unlock()
	return func(yield func(*adksession.Event, error) bool) {
		ev := &adksession.Event{Author: "agent"}
		ev.Content = &genai.Content{Role: "model", Parts: []*genai.Part{{Text: r.reply}}}
		yield(ev, nil)
	}, nil
}

func (r *stubRunner) message() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gotMessage
}

type stubChecker struct {
	name  string
	ready bool
}

func (c *stubChecker) Name() string  { return c.name }
func (c *stubChecker) IsReady() bool { return c.ready }

func newTestServer(t *testing.T, mutate func(*Config)) (*Server, *stubRunner, *session.InMemoryService) {
	t.Helper()

	runner := &stubRunner{reply: "Hi"}
	svc := session.NewInMemoryService()
	o, err := orchestrator.New(orchestrator.Config{Runner: runner, Sessions: svc})
	require.NoError(t, err)

	cfg := Config{Port: 8080, Orchestrator: o, Sessions: svc}
	if mutate != nil {
		mutate(&cfg)
	}
	srv, err := New(cfg)
	require.NoError(t, err)
	return srv, runner, svc
}

func doRequest(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(rec, req)
	return rec
}

func chatBody(t *testing.T, body map[string]any) *bytes.Reader {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	return bytes.NewReader(raw)
}

func TestChatEndpointStreamsNDJSON(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", chatBody(t, map[string]any{
		"messages": []map[string]string{{"role": "user", "text": "Hello"}},
	}))
	rec := doRequest(srv, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, orchestrator.ContentTypeNDJSON, rec.Header().Get("Content-Type"))

	lines := strings.Split(strings.TrimRight(rec.Body.String(), "\n"), "\n")
	require.Len(t, lines, 2)

	var first, second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "session", first["type"])
	assert.NotEmpty(t, first["session_id"])
	assert.Equal(t, "text", second["type"])
	assert.Equal(t, "Hi", second["content"])
}

func TestChatEndpointForwardsTimeWindow(t *testing.T) {
	srv, runner, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", chatBody(t, map[string]any{
		"messages":   []map[string]string{{"role": "user", "text": "checkout latency"}},
		"start_time": "1700000000",
		"end_time":   "1700003600",
	}))
	rec := doRequest(srv, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, runner.message(), "start_time=1700000000")
	assert.Contains(t, runner.message(), "end_time=1700003600")
}

func TestChatEndpointInvalidBody(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader("{"))
	rec := doRequest(srv, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, ErrorCodeInvalidRequest, resp.Error)
}

func TestChatEndpointMethodNotAllowed(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)

	rec := doRequest(srv, httptest.NewRequest(http.MethodGet, "/api/chat", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSessionsEndpoint(t *testing.T) {
	srv, _, svc := newTestServer(t, nil)

	sess, err := svc.Create(context.Background(), orchestrator.DefaultUserID, "", "proj-1")
	require.NoError(t, err)
	require.NoError(t, svc.SetTitle(context.Background(), orchestrator.DefaultUserID, sess.ID, "checkout incident"))

	rec := doRequest(srv, httptest.NewRequest(http.MethodGet, "/api/sessions", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Sessions []sessionSummary `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Sessions, 1)
	assert.Equal(t, sess.ID, resp.Sessions[0].ID)
	assert.Equal(t, "checkout incident", resp.Sessions[0].Title)
	assert.Equal(t, "proj-1", resp.Sessions[0].ProjectID)
}

func TestHealthz(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)

	rec := doRequest(srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestReadyzAggregatesCheckers(t *testing.T) {
	srv, _, _ := newTestServer(t, func(cfg *Config) {
		cfg.Readiness = []ReadinessChecker{
			&stubChecker{name: "agent", ready: true},
			&stubChecker{name: "sessions", ready: false},
		}
	})

	rec := doRequest(srv, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp struct {
		Ready      bool            `json:"ready"`
		Components map[string]bool `json:"components"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Ready)
	assert.True(t, resp.Components["agent"])
	assert.False(t, resp.Components["sessions"])
}

func TestReadyzNoCheckers(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)

	rec := doRequest(srv, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestVersionGate(t *testing.T) {
	srv, _, _ := newTestServer(t, func(cfg *Config) {
		cfg.MinClientVersion = "1.2.0"
	})

	cases := []struct {
		header string
		want   int
	}{
		{"", http.StatusOK},
		{"1.2.0", http.StatusOK},
		{"2.0.1", http.StatusOK},
		{"1.1.9", http.StatusUpgradeRequired},
		{"not-a-version", http.StatusBadRequest},
	}
	for _, c := range cases {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		if c.header != "" {
			req.Header.Set("X-Client-Version", c.header)
		}
		rec := doRequest(srv, req)
		assert.Equal(t, c.want, rec.Code, "X-Client-Version=%q", c.header)
	}
}

func TestVersionGateInvalidConfig(t *testing.T) {
	runner := &stubRunner{reply: "Hi"}
	svc := session.NewInMemoryService()
	o, err := orchestrator.New(orchestrator.Config{Runner: runner, Sessions: svc})
	require.NoError(t, err)

	_, err = New(Config{Orchestrator: o, Sessions: svc, MinClientVersion: "not.a.version"})
	assert.Error(t, err)
}

func TestCORSPreflight(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)

	rec := doRequest(srv, httptest.NewRequest(http.MethodOptions, "/api/chat", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.TurnsTotal.WithLabelValues(metrics.OutcomeOK).Inc()

	srv, _, _ := newTestServer(t, func(cfg *Config) {
		cfg.MetricsRegistry = reg
	})

	rec := doRequest(srv, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sre_agent_turns_total")
}
