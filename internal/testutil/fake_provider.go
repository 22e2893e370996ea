// Package testutil provides configurable test fakes for the resolution
// pipeline's collaborators.
package testutil

import (
	"context"
	"sync/atomic"

	ceptracker "github.com/eugener/ceptracker/internal"
)

// FakeProvider is a configurable ceptracker.Provider for testing.
type FakeProvider struct {
	ProviderName string
	FindFn       func(ctx context.Context, cep string) (*ceptracker.Address, error)

	calls atomic.Int32
}

// Name returns the configured provider name, "fake" by default.
func (f *FakeProvider) Name() string {
	if f.ProviderName == "" {
		return "fake"
	}
	return f.ProviderName
}

// Find delegates to FindFn or returns a minimal address for cep.
func (f *FakeProvider) Find(ctx context.Context, cep string) (*ceptracker.Address, error) {
	f.calls.Add(1)
	if f.FindFn != nil {
		return f.FindFn(ctx, cep)
	}
	return &ceptracker.Address{CEP: cep}, nil
}

// Calls returns how many times Find was invoked.
func (f *FakeProvider) Calls() int { return int(f.calls.Load()) }
