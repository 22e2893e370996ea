// Package ceptracker defines domain types and interfaces for the CEP tracker.
// This package has no project imports -- it is the dependency root.
package ceptracker

import (
	"context"
	"time"
)

// CacheKeyPrefix namespaces resolution records in the shared cache.
const CacheKeyPrefix = "cep:"

// CacheKey returns the cache key for a normalized CEP.
func CacheKey(cep string) string { return CacheKeyPrefix + cep }

// NotFoundReason is the audit error message recorded when the upstream
// reports that a CEP does not exist.
const NotFoundReason = "CEP not found"

// --- Resolution record ---

// Address is the structured result of resolving a CEP. JSON tags follow the
// upstream wire names so cached payloads and API bodies share one encoding.
type Address struct {
	CEP          string `json:"cep,omitempty"`
	Street       string `json:"logradouro,omitempty"`
	Complement   string `json:"complemento,omitempty"`
	Neighborhood string `json:"bairro,omitempty"`
	City         string `json:"localidade,omitempty"`
	State        string `json:"uf,omitempty"`
	IBGECode     string `json:"ibge,omitempty"`
	GIACode      string `json:"gia,omitempty"`
	AreaCode     string `json:"ddd,omitempty"`
	SIAFICode    string `json:"siafi,omitempty"`
	NotFound     *bool  `json:"erro,omitempty"` // nil = absent
}

// IsNotFound reports whether the upstream flagged the record as "no match".
// Records with the flag absent or false are valid even if every field is empty.
func (a *Address) IsNotFound() bool {
	return a.NotFound != nil && *a.NotFound
}

// --- Caller metadata ---

// CallerMeta describes who issued a resolution request. It is derived by the
// HTTP layer and recorded verbatim in the audit trail.
type CallerMeta struct {
	SourceIP  string
	UserAgent string
	RequestID string
}

// --- Audit trail ---

// AuditEntry records one resolution attempt. ID is assigned by the store.
type AuditEntry struct {
	ID              int64     `json:"id"`
	CEP             string    `json:"cep"`
	RequestedAt     time.Time `json:"requested_at"`
	ResponseData    *string   `json:"response_data,omitempty"` // JSON Address, success only
	Success         bool      `json:"success"`
	ErrorMessage    *string   `json:"error_message,omitempty"`
	ExecutionTimeMs int64     `json:"execution_time_ms"`
	CacheHit        bool      `json:"cache_hit"`
	SourceIP        string    `json:"source_ip,omitempty"`
	UserAgent       string    `json:"user_agent,omitempty"`
	RequestID       string    `json:"request_id,omitempty"`
}

// AuditFilter selects audit entries for listing and counting.
// Since and Until are RFC3339 timestamps; empty means unbounded.
type AuditFilter struct {
	CEP     string
	Success *bool // nil = both outcomes
	Since   string
	Until   string
	Offset  int
	Limit   int
}

// AuditStats aggregates audit entries by outcome.
type AuditStats struct {
	Total      int `json:"total_requests"`
	Successful int `json:"successful_requests"`
	Failed     int `json:"failed_requests"`
}

// --- Provider ---

// Provider looks up a CEP at an upstream source of truth. Implementations
// perform a single attempt and must honor ctx cancellation.
type Provider interface {
	// Name returns the provider identifier (e.g., "viacep").
	Name() string
	// Find resolves cep. A record flagged not-found is a successful call.
	Find(ctx context.Context, cep string) (*Address, error)
}

// --- Context keys ---

type contextKey int

const ctxKeyRequestID contextKey = 0

// RequestIDFromContext extracts the request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID).(string)
	return id
}

// ContextWithRequestID returns a context carrying the given request ID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, id)
}

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool { return &b }

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }
