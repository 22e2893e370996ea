// Package storage defines persistence interfaces for the audit trail.
package storage

import (
	"context"
	"time"

	ceptracker "github.com/eugener/ceptracker/internal"
)

// TimeLayout is the fixed-width UTC layout both SQL stores use for
// requested_at, so lexical order matches chronological order.
const TimeLayout = "2006-01-02T15:04:05.000000Z"

// DefaultListLimit caps a listing when the filter sets no limit.
const DefaultListLimit = 50

// AuditStore persists resolution audit entries. Entries are append-only.
type AuditStore interface {
	AppendAudit(ctx context.Context, e *ceptracker.AuditEntry) (int64, error)
	GetAudit(ctx context.Context, id int64) (*ceptracker.AuditEntry, error)
	ListAudit(ctx context.Context, f ceptracker.AuditFilter) ([]ceptracker.AuditEntry, error)
	CountAudit(ctx context.Context, f ceptracker.AuditFilter) (int, error)
	Ping(ctx context.Context) error
	Close() error
}

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// NormalizeBound converts an RFC3339 filter bound to TimeLayout. Values
// that do not parse are returned unchanged.
func NormalizeBound(s string) string {
	if s == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return s
	}
	return FormatTime(t)
}
