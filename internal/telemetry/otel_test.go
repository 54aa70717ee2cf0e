package telemetry_test

import (
	"context"
	"testing"

	"github.com/mohtashimnawaz/Decentralized-Event-Ticketing/internal/telemetry"
)

func TestSetup_NoopWhenDisabled(t *testing.T) {
	tests := []struct {
		name string
		opts telemetry.Options
	}{
		{name: "disabled", opts: telemetry.Options{Enabled: false, Endpoint: "http://localhost:4318"}},
		{name: "no endpoint", opts: telemetry.Options{Enabled: true}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			shutdown, err := telemetry.Setup(context.Background(), tc.opts)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			if err := shutdown(ctx); err != nil {
				t.Fatalf("noop shutdown should not error: %v", err)
			}
		})
	}
}

func TestSetup_CreatesProviderWhenEnabled(t *testing.T) {
	// Non-routable address so nothing is exported.
	shutdown, err := telemetry.Setup(context.Background(), telemetry.Options{
		Enabled:  true,
		Endpoint: "http://192.0.2.1:4318",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}
