package maintenance

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in   string
		h, m int
	}{
		{"03:30", 3, 30},
		{"23:59", 23, 59},
		{"24:00", 0, 5},
		{"7", 0, 5},
		{"ab:cd", 0, 5},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			h, m := ParseClock(tt.in)
			if h != tt.h || m != tt.m {
				t.Errorf("ParseClock(%q) = %d:%d, want %d:%d", tt.in, h, m, tt.h, tt.m)
			}
		})
	}
}

func TestNextRun(t *testing.T) {
	loc := time.FixedZone("ICT", 7*3600)
	now := time.Date(2026, 10, 16, 10, 0, 0, 0, loc)

	if got, want := NextRun(now, 12, 0), time.Date(2026, 10, 16, 12, 0, 0, 0, loc); !got.Equal(want) {
		t.Errorf("later today: got %v, want %v", got, want)
	}
	if got, want := NextRun(now, 10, 0), time.Date(2026, 10, 17, 10, 0, 0, 0, loc); !got.Equal(want) {
		t.Errorf("same minute: got %v, want %v", got, want)
	}
	if got, want := NextRun(now, 0, 5), time.Date(2026, 10, 17, 0, 5, 0, 0, loc); !got.Equal(want) {
		t.Errorf("tomorrow: got %v, want %v", got, want)
	}
}

type countingSweeper struct{ n atomic.Int32 }

func (c *countingSweeper) Sweep() int {
	c.n.Add(1)
	return 0
}

func TestStartRunsImmediately(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	var s countingSweeper
	StartOverdueSweep(ctx, &s, "00:05", "UTC")

	deadline := time.Now().Add(2 * time.Second)
	for s.n.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("sweep did not run at startup")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
