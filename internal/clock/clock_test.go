package clock

import (
	"testing"
	"time"
)

func TestFixed_ReturnsSameInstantInUTC(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+2", 2*60*60)
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, loc)
	c := NewFixed(at)

	if got := c.Now(); !got.Equal(at) || got.Location() != time.UTC {
		t.Fatalf("expected %v in UTC, got %v", at, got)
	}
}

func TestManual_AdvanceAndSet(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewManual(start)

	c.Advance(24 * time.Hour)
	if got := c.Now(); !got.Equal(start.Add(24 * time.Hour)) {
		t.Fatalf("expected advanced time, got %v", got)
	}

	c.Set(start)
	if got := c.Now(); !got.Equal(start) {
		t.Fatalf("expected reset time, got %v", got)
	}
}
