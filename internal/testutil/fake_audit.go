package testutil

import (
	"context"
	"slices"
	"sync"
	"time"

	ceptracker "github.com/eugener/ceptracker/internal"
)

// FakeAuditStore is an in-memory audit store. AppendErr simulates a
// storage fault; failed appends are still counted in Attempts.
type FakeAuditStore struct {
	mu        sync.Mutex
	entries   []ceptracker.AuditEntry
	attempts  int
	AppendErr error
}

// NewFakeAuditStore returns an empty store.
func NewFakeAuditStore() *FakeAuditStore {
	return &FakeAuditStore{}
}

// AppendAudit assigns a sequential ID and stores a copy of e.
func (s *FakeAuditStore) AppendAudit(_ context.Context, e *ceptracker.AuditEntry) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	if s.AppendErr != nil {
		return 0, s.AppendErr
	}
	cp := *e
	cp.ID = int64(len(s.entries) + 1)
	s.entries = append(s.entries, cp)
	return cp.ID, nil
}

// GetAudit returns the entry with the given ID.
func (s *FakeAuditStore) GetAudit(_ context.Context, id int64) (*ceptracker.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if s.entries[i].ID == id {
			e := s.entries[i]
			return &e, nil
		}
	}
	return nil, ceptracker.ErrNotFound
}

// ListAudit returns matching entries newest first.
func (s *FakeAuditStore) ListAudit(_ context.Context, f ceptracker.AuditFilter) ([]ceptracker.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.match(f)
	slices.Reverse(out)
	if f.Offset >= len(out) {
		return nil, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// CountAudit counts matching entries.
func (s *FakeAuditStore) CountAudit(_ context.Context, f ceptracker.AuditFilter) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.match(f)), nil
}

// Ping always succeeds.
func (s *FakeAuditStore) Ping(context.Context) error { return nil }

// Entries returns a copy of all stored entries in append order.
func (s *FakeAuditStore) Entries() []ceptracker.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.entries)
}

// Attempts returns the number of AppendAudit calls, successful or not.
func (s *FakeAuditStore) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

// match must be called with s.mu held.
func (s *FakeAuditStore) match(f ceptracker.AuditFilter) []ceptracker.AuditEntry {
	var out []ceptracker.AuditEntry
	for _, e := range s.entries {
		if f.CEP != "" && e.CEP != f.CEP {
			continue
		}
		if f.Success != nil && e.Success != *f.Success {
			continue
		}
		ts := e.RequestedAt.UTC().Format(time.RFC3339)
		if f.Since != "" && ts < f.Since {
			continue
		}
		if f.Until != "" && ts >= f.Until {
			continue
		}
		out = append(out, e)
	}
	return out
}
