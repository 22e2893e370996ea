package circuitbreaker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	ceptracker "github.com/eugener/ceptracker/internal"
	"github.com/eugener/ceptracker/internal/testutil"
)

func TestGuard_OpenBreakerSkipsUpstream(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	p := &testutil.FakeProvider{
		FindFn: func(context.Context, string) (*ceptracker.Address, error) {
			calls.Add(1)
			return nil, ceptracker.ErrUpstream
		},
	}
	b, _ := newTestBreaker(testConfig())
	g := Guard(p, b)

	for range 4 {
		if _, err := g.Find(context.Background(), "01310100"); !errors.Is(err, ceptracker.ErrUpstream) {
			t.Fatalf("err = %v, want upstream error", err)
		}
	}
	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}

	_, err := g.Find(context.Background(), "01310100")
	if !errors.Is(err, ceptracker.ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
	if !errors.Is(err, ceptracker.ErrUpstream) {
		t.Fatal("ErrCircuitOpen should belong to the upstream failure family")
	}
	if n := calls.Load(); n != 4 {
		t.Fatalf("upstream calls = %d, want 4", n)
	}
}

func TestGuard_NotFoundCountsAsSuccess(t *testing.T) {
	t.Parallel()

	p := &testutil.FakeProvider{
		FindFn: func(_ context.Context, cep string) (*ceptracker.Address, error) {
			return &ceptracker.Address{NotFound: ceptracker.BoolPtr(true)}, nil
		},
	}
	b, _ := newTestBreaker(testConfig())
	g := Guard(p, b)

	for range 10 {
		if _, err := g.Find(context.Background(), "00000000"); err != nil {
			t.Fatal(err)
		}
	}
	if b.State() != StateClosed {
		t.Fatalf("state = %v, want closed", b.State())
	}
	if g.Name() != "fake" {
		t.Errorf("name = %q, want fake", g.Name())
	}
}

func TestGuard_CancelledProbeLeavesBreakerHalfOpen(t *testing.T) {
	t.Parallel()

	fail := true
	p := &testutil.FakeProvider{
		FindFn: func(ctx context.Context, _ string) (*ceptracker.Address, error) {
			if fail {
				return nil, ceptracker.ErrUpstream
			}
			return nil, ctx.Err()
		},
	}
	b, clk := newTestBreaker(testConfig())
	g := Guard(p, b)

	for range 4 {
		_, _ = g.Find(context.Background(), "01310100")
	}
	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}
	clk.Advance(6 * time.Second)

	fail = false
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := g.Find(ctx, "01310100"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if b.State() != StateHalfOpen {
		t.Fatalf("state after cancelled probe = %v, want half_open", b.State())
	}

	fail = true
	if _, err := g.Find(context.Background(), "01310100"); !errors.Is(err, ceptracker.ErrUpstream) || errors.Is(err, ceptracker.ErrCircuitOpen) {
		t.Fatalf("err = %v, want upstream error from a fresh probe", err)
	}
	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open after failed probe", b.State())
	}
}
