// Package circuitbreaker guards the upstream lookup service with a
// sliding-window error-rate breaker. An open breaker turns a slow failing
// upstream call into an immediate failure; it never retries.
package circuitbreaker

import (
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed allows all requests through.
	StateClosed State = iota
	// StateOpen rejects all requests.
	StateOpen
	// StateHalfOpen allows a single probe request.
	StateHalfOpen
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Config holds circuit breaker parameters.
type Config struct {
	ErrorThreshold float64       // weighted error rate to trip (e.g. 0.5)
	MinSamples     int           // minimum calls in the window before tripping
	Window         time.Duration // sliding window length, 1s resolution
	OpenTimeout    time.Duration // time in OPEN before a probe is allowed
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ErrorThreshold: 0.5,
		MinSamples:     10,
		Window:         30 * time.Second,
		OpenTimeout:    15 * time.Second,
	}
}

// slot aggregates the calls that finished within one second.
type slot struct {
	sec    int64
	calls  int
	weight float64
}

// Breaker is a thread-safe circuit breaker state machine.
type Breaker struct {
	mu       sync.Mutex
	cfg      Config
	state    State
	slots    []slot // ring indexed by unix second modulo len
	openedAt time.Time
	probing  bool
	now      func() time.Time
}

// New creates a breaker with the given config.
func New(cfg Config) *Breaker {
	n := int(cfg.Window / time.Second)
	if n <= 0 {
		n = 1
	}
	return &Breaker{
		cfg:   cfg,
		slots: make([]slot, n),
		now:   time.Now,
	}
}

// State returns the current breaker state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Allow reports whether a call may proceed. In HALF_OPEN exactly one probe
// is admitted until its outcome is recorded.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.cfg.OpenTimeout {
			return false
		}
		b.state = StateHalfOpen
		b.probing = true
		return true
	default:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	}
}

// Record registers the outcome of an admitted call. weight 0 is a success;
// see Classify for failure weights.
func (b *Breaker) Record(weight float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.observe(now.Unix(), weight)

	switch b.state {
	case StateHalfOpen:
		b.probing = false
		if weight > 0 {
			b.trip(now)
			return
		}
		b.state = StateClosed
		clear(b.slots)
	case StateClosed:
		if weight == 0 {
			return
		}
		rate, calls := b.errorRate(now.Unix())
		if calls >= b.cfg.MinSamples && rate >= b.cfg.ErrorThreshold {
			b.trip(now)
		}
	}
}

// Release frees an admitted half-open probe without recording an outcome.
// The breaker stays HALF_OPEN and the next Allow admits a new probe.
func (b *Breaker) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.probing = false
}

func (b *Breaker) trip(now time.Time) {
	b.state = StateOpen
	b.openedAt = now
}

func (b *Breaker) observe(sec int64, weight float64) {
	s := &b.slots[sec%int64(len(b.slots))]
	if s.sec != sec {
		*s = slot{sec: sec}
	}
	s.calls++
	s.weight += weight
}

func (b *Breaker) errorRate(nowSec int64) (float64, int) {
	oldest := nowSec - int64(len(b.slots)) + 1
	var calls int
	var weight float64
	for _, s := range b.slots {
		if s.sec < oldest || s.calls == 0 {
			continue
		}
		calls += s.calls
		weight += s.weight
	}
	if calls == 0 {
		return 0, 0
	}
	return weight / float64(calls), calls
}
