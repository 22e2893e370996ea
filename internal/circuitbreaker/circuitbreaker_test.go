package circuitbreaker

import (
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestBreaker(cfg Config) (*Breaker, *fakeClock) {
	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	b := New(cfg)
	b.now = clk.Now
	return b, clk
}

func testConfig() Config {
	return Config{
		ErrorThreshold: 0.5,
		MinSamples:     4,
		Window:         10 * time.Second,
		OpenTimeout:    5 * time.Second,
	}
}

func TestBreaker_ClosedAllows(t *testing.T) {
	t.Parallel()
	b := New(DefaultConfig())
	if !b.Allow() {
		t.Fatal("closed breaker should allow")
	}
	if b.State() != StateClosed {
		t.Fatalf("state = %v, want closed", b.State())
	}
}

func TestBreaker_OpensOnThreshold(t *testing.T) {
	t.Parallel()
	b, _ := newTestBreaker(testConfig())

	// Below MinSamples: never trips.
	for range 3 {
		b.Record(1.0)
	}
	if b.State() != StateClosed {
		t.Fatalf("tripped below min samples")
	}

	b.Record(1.0)
	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}
	if b.Allow() {
		t.Fatal("open breaker should reject")
	}
}

func TestBreaker_SuccessesKeepClosed(t *testing.T) {
	t.Parallel()
	b, _ := newTestBreaker(testConfig())

	for range 6 {
		b.Record(0)
	}
	for range 3 {
		b.Record(1.0)
	}
	// 3 / 9 < 0.5
	if b.State() != StateClosed {
		t.Fatalf("state = %v, want closed", b.State())
	}
}

func TestBreaker_WindowExpiry(t *testing.T) {
	t.Parallel()
	b, clk := newTestBreaker(testConfig())

	for range 3 {
		b.Record(1.0)
	}
	clk.Advance(11 * time.Second)
	// Old failures fell out of the window; one fresh failure is below MinSamples.
	b.Record(1.0)
	if b.State() != StateClosed {
		t.Fatalf("state = %v, want closed after window expiry", b.State())
	}
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	t.Parallel()
	b, clk := newTestBreaker(testConfig())

	for range 4 {
		b.Record(1.0)
	}
	clk.Advance(5 * time.Second)

	if !b.Allow() {
		t.Fatal("expected probe to be admitted after open timeout")
	}
	if b.State() != StateHalfOpen {
		t.Fatalf("state = %v, want half_open", b.State())
	}
	if b.Allow() {
		t.Fatal("second concurrent probe should be rejected")
	}

	b.Record(0)
	if b.State() != StateClosed {
		t.Fatalf("state = %v, want closed after successful probe", b.State())
	}
	if !b.Allow() {
		t.Fatal("closed breaker should allow")
	}
}

func TestBreaker_HalfOpenProbeFailureReopens(t *testing.T) {
	t.Parallel()
	b, clk := newTestBreaker(testConfig())

	for range 4 {
		b.Record(1.0)
	}
	clk.Advance(5 * time.Second)
	if !b.Allow() {
		t.Fatal("expected probe")
	}
	b.Record(1.5)
	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open after failed probe", b.State())
	}
	if b.Allow() {
		t.Fatal("reopened breaker should reject until timeout")
	}
}

func TestStateString(t *testing.T) {
	t.Parallel()
	for s, want := range map[State]string{
		StateClosed:   "closed",
		StateOpen:     "open",
		StateHalfOpen: "half_open",
		State(9):      "unknown",
	} {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", s, got, want)
		}
	}
}

func TestBreaker_ReleaseKeepsHalfOpen(t *testing.T) {
	t.Parallel()
	b, clk := newTestBreaker(testConfig())
	for range 4 {
		b.Allow()
		b.Record(1)
	}
	clk.Advance(6 * time.Second)

	if !b.Allow() {
		t.Fatal("probe should be admitted after open timeout")
	}
	b.Release()
	if b.State() != StateHalfOpen {
		t.Fatalf("state = %v, want half_open", b.State())
	}
	if !b.Allow() {
		t.Fatal("released probe slot should admit a new probe")
	}
	if b.Allow() {
		t.Fatal("only one probe at a time")
	}
}
