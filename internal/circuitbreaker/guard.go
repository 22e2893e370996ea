package circuitbreaker

import (
	"context"
	"fmt"

	ceptracker "github.com/eugener/ceptracker/internal"
)

// guarded wraps a Provider with a Breaker.
type guarded struct {
	next ceptracker.Provider
	b    *Breaker
}

// Guard returns a Provider that consults b before every call and records
// the call's outcome. A rejected call fails with ErrCircuitOpen without
// reaching the upstream.
func Guard(p ceptracker.Provider, b *Breaker) ceptracker.Provider {
	return &guarded{next: p, b: b}
}

// Name returns the wrapped provider's name.
func (g *guarded) Name() string { return g.next.Name() }

// Find forwards to the wrapped provider when the breaker allows it.
func (g *guarded) Find(ctx context.Context, cep string) (*ceptracker.Address, error) {
	if !g.b.Allow() {
		return nil, fmt.Errorf("%s: %w", g.next.Name(), ceptracker.ErrCircuitOpen)
	}
	addr, err := g.next.Find(ctx, cep)
	if ctx.Err() == context.Canceled {
		// Caller cancellation is not an upstream outcome.
		g.b.Release()
		return addr, err
	}
	g.b.Record(Classify(err))
	return addr, err
}
