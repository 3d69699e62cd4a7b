package clock

import (
	"testing"
	"time"
)

func TestFakeClockAdvance(t *testing.T) {
	start := time.Date(2026, 10, 12, 8, 0, 0, 0, time.FixedZone("WIB", 7*3600))
	c := NewFakeClock(start)

	if got := c.Now(); !got.Equal(start) || got.Location() != time.UTC {
		t.Fatalf("expected %s in UTC, got %s", start.UTC(), got)
	}

	c.Advance(90 * time.Minute)
	if got, want := c.Now(), start.Add(90*time.Minute); !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}

	reset := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.Set(reset)
	if got := c.Now(); !got.Equal(reset) {
		t.Fatalf("expected %s, got %s", reset, got)
	}
}

func TestSystemClockIsUTC(t *testing.T) {
	if loc := New().Now().Location(); loc != time.UTC {
		t.Fatalf("expected UTC clock, got %s", loc)
	}
}
