package app

import (
	"context"
	"fmt"

	ceptracker "github.com/eugener/ceptracker/internal"
)

// AuditReader is the read side of the audit store.
type AuditReader interface {
	GetAudit(ctx context.Context, id int64) (*ceptracker.AuditEntry, error)
	ListAudit(ctx context.Context, f ceptracker.AuditFilter) ([]ceptracker.AuditEntry, error)
	CountAudit(ctx context.Context, f ceptracker.AuditFilter) (int, error)
}

// AuditService answers reporting queries over the audit trail.
type AuditService struct {
	store AuditReader
}

// NewAuditService returns an AuditService backed by store.
func NewAuditService(store AuditReader) *AuditService {
	return &AuditService{store: store}
}

// List returns one page of entries matching f, newest first, along with
// the total number of matching entries.
func (s *AuditService) List(ctx context.Context, f ceptracker.AuditFilter) ([]ceptracker.AuditEntry, int, error) {
	entries, err := s.store.ListAudit(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("list audit: %w", err)
	}
	total, err := s.store.CountAudit(ctx, ceptracker.AuditFilter{
		CEP:     f.CEP,
		Success: f.Success,
		Since:   f.Since,
		Until:   f.Until,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("count audit: %w", err)
	}
	return entries, total, nil
}

// Get returns a single entry or ceptracker.ErrNotFound.
func (s *AuditService) Get(ctx context.Context, id int64) (*ceptracker.AuditEntry, error) {
	return s.store.GetAudit(ctx, id)
}

// Stats counts all entries by outcome.
func (s *AuditService) Stats(ctx context.Context) (*ceptracker.AuditStats, error) {
	total, err := s.store.CountAudit(ctx, ceptracker.AuditFilter{})
	if err != nil {
		return nil, fmt.Errorf("count audit: %w", err)
	}
	ok, err := s.store.CountAudit(ctx, ceptracker.AuditFilter{Success: ceptracker.BoolPtr(true)})
	if err != nil {
		return nil, fmt.Errorf("count audit: %w", err)
	}
	failed, err := s.store.CountAudit(ctx, ceptracker.AuditFilter{Success: ceptracker.BoolPtr(false)})
	if err != nil {
		return nil, fmt.Errorf("count audit: %w", err)
	}
	return &ceptracker.AuditStats{Total: total, Successful: ok, Failed: failed}, nil
}
