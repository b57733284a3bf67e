package tracing

import (
	"context"
	"testing"
)

func TestNewTracingProviderDisabled(t *testing.T) {
	provider, err := NewTracingProvider(Config{Enabled: false})
	if err != nil {
		t.Fatalf("disabled provider should not error: %v", err)
	}
	if provider.IsEnabled() {
		t.Error("provider should report disabled")
	}
	if err := provider.Start(context.Background()); err != nil {
		t.Errorf("Start in disabled mode: %v", err)
	}
	if err := provider.Stop(context.Background()); err != nil {
		t.Errorf("Stop in disabled mode: %v", err)
	}
	if provider.GetTracer("test") == nil {
		t.Error("GetTracer should return a noop tracer even when disabled")
	}
}

func TestNewTracingProviderValidation(t *testing.T) {
	if _, err := NewTracingProvider(Config{Enabled: true}); err == nil {
		t.Error("expected error when enabled without endpoint")
	}

	// A missing CA file must fail fast instead of degrading to insecure.
	_, err := NewTracingProvider(Config{
		Enabled:   true,
		Endpoint:  "localhost:4317",
		TLSCAPath: "/nonexistent/ca.crt",
	})
	if err == nil {
		t.Error("expected error for unreadable CA certificate")
	}
}

func TestNewTracingProviderInsecure(t *testing.T) {
	// Exporter creation does not dial eagerly, so this succeeds without a
	// collector listening.
	provider, err := NewTracingProvider(Config{
		Enabled:  true,
		Endpoint: "localhost:4317",
	})
	if err != nil {
		t.Fatalf("NewTracingProvider: %v", err)
	}
	if !provider.IsEnabled() {
		t.Error("provider should report enabled")
	}
}
