package logging

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"testing"
)

// captureStdout redirects the stdlib logger (DEBUG/INFO/WARN path) into a
// buffer for the duration of fn.
func captureStdout(fn func()) string {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	log.SetFlags(0)
	defer log.SetOutput(os.Stderr)
	fn()
	return buf.String()
}

func TestLevelFiltering(t *testing.T) {
	l := &Logger{level: WARN, name: "test"}

	out := captureStdout(func() {
		l.Debug("debug msg")
		l.Info("info msg")
		l.Warn("warn msg")
	})

	if strings.Contains(out, "debug msg") || strings.Contains(out, "info msg") {
		t.Errorf("messages below WARN should be suppressed, got: %q", out)
	}
	if !strings.Contains(out, "warn msg") {
		t.Errorf("WARN message missing from output: %q", out)
	}
}

func TestWithFieldImmutability(t *testing.T) {
	base := GetLogger("immutable")
	child := base.WithField("session_id", "abc")

	if len(base.fields) != 0 {
		t.Errorf("WithField mutated parent logger fields: %v", base.fields)
	}
	if child.fields["session_id"] != "abc" {
		t.Errorf("child missing field, got %v", child.fields)
	}

	grandchild := child.WithField("user_id", "u1")
	if _, ok := child.fields["user_id"]; ok {
		t.Error("WithField mutated intermediate logger")
	}
	if len(grandchild.fields) != 2 {
		t.Errorf("grandchild fields = %v, want both keys", grandchild.fields)
	}
}

func TestStructuredOutputContainsFields(t *testing.T) {
	t.Setenv("LOG_TIMESTAMP", "2026-01-01T00:00:00Z")
	l := &Logger{level: DEBUG, name: "turn"}

	out := captureStdout(func() {
		l.InfoWithFields("turn complete",
			Field("session_id", "s-1"),
			Field("events", 7),
		)
	})

	for _, want := range []string{"turn complete", "session_id=s-1", "events=7", "[INFO]", "turn:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %q", want, out)
		}
	}
}

func TestContextTraceFields(t *testing.T) {
	ctx := context.WithValue(context.Background(), TraceIDKey(), "trace-123")
	ctx = context.WithValue(ctx, SpanIDKey(), "span-456")

	l := (&Logger{level: DEBUG, name: "ctx"}).WithContext(ctx)
	out := captureStdout(func() {
		l.Info("processing")
	})

	if !strings.Contains(out, "trace_id=trace-123") || !strings.Contains(out, "span_id=span-456") {
		t.Errorf("context fields missing: %q", out)
	}
}

func TestPackageLogLevels(t *testing.T) {
	t.Cleanup(func() { _ = SetPackageLogLevels(nil) })

	err := SetPackageLogLevels(map[string]string{
		"agent.runner": "debug",
		"agent.*":      "warn",
		"api":          "error",
	})
	if err != nil {
		t.Fatalf("SetPackageLogLevels: %v", err)
	}

	cases := []struct {
		pkg  string
		want LogLevel
	}{
		{"agent.runner", DEBUG}, // exact beats wildcard
		{"agent.tools", WARN},   // wildcard
		{"api", ERROR},
		{"orchestrator", LogLevel(-1)}, // unconfigured
	}
	for _, c := range cases {
		if got := GetPackageLogLevel(c.pkg); got != c.want {
			t.Errorf("GetPackageLogLevel(%q) = %d, want %d", c.pkg, got, c.want)
		}
	}
}

func TestSetPackageLogLevelsRejectsBadLevel(t *testing.T) {
	if err := SetPackageLogLevels(map[string]string{"api": "loud"}); err == nil {
		t.Error("expected error for invalid level name")
	}
}

func TestFatalUsesExitFunc(t *testing.T) {
	origExit := exitFunc
	defer func() { exitFunc = origExit }()

	exitCode := -1
	exitFunc = func(code int) { exitCode = code }

	l := &Logger{level: DEBUG, name: "fatal"}
	l.Fatal("boom")

	if exitCode != 1 {
		t.Errorf("Fatal exit code = %d, want 1", exitCode)
	}
}

func TestErrorWithErrFormatsError(t *testing.T) {
	// ERROR goes to stderr; capture via a pipe.
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	origStderr := os.Stderr
	os.Stderr = w
	defer func() { os.Stderr = origStderr }()

	l := &Logger{level: DEBUG, name: "errs"}
	l.ErrorWithErr("memory sync failed", fmt.Errorf("connection refused"))
	w.Close()

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	out := buf.String()

	if !strings.Contains(out, "memory sync failed") || !strings.Contains(out, "connection refused") {
		t.Errorf("stderr output missing error detail: %q", out)
	}
}
