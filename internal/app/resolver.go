// Package app implements application-level services for the CEP tracker.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	ceptracker "github.com/eugener/ceptracker/internal"
	"github.com/eugener/ceptracker/internal/provider"
	"github.com/eugener/ceptracker/internal/telemetry"
)

const (
	// DefaultTTL is how long a resolved address stays cached.
	DefaultTTL = 3600 * time.Second
	// DefaultUpstreamTimeout bounds a single provider call.
	DefaultUpstreamTimeout = 5 * time.Second
)

// Cache is the subset of a cache backend the resolver needs.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

// Provider looks up a CEP upstream.
type Provider interface {
	Find(ctx context.Context, cep string) (*ceptracker.Address, error)
}

// AuditSink persists one audit entry per resolution.
type AuditSink interface {
	AppendAudit(ctx context.Context, e *ceptracker.AuditEntry) (int64, error)
}

// ResolverConfig tunes a Resolver. Zero durations select the defaults.
type ResolverConfig struct {
	TTL             time.Duration
	UpstreamTimeout time.Duration
	Metrics         *telemetry.Metrics // nil disables metrics
}

// Resolver runs the cache-aside resolution pipeline. It holds no locks;
// concurrent misses for the same CEP each reach the provider.
type Resolver struct {
	cache    Cache
	provider Provider
	audit    AuditSink
	ttl      time.Duration
	timeout  time.Duration
	metrics  *telemetry.Metrics
	tracer   trace.Tracer
}

// NewResolver returns a Resolver wired to the given collaborators.
func NewResolver(cache Cache, p Provider, audit AuditSink, cfg ResolverConfig) *Resolver {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.UpstreamTimeout <= 0 {
		cfg.UpstreamTimeout = DefaultUpstreamTimeout
	}
	return &Resolver{
		cache:    cache,
		provider: p,
		audit:    audit,
		ttl:      cfg.TTL,
		timeout:  cfg.UpstreamTimeout,
		metrics:  cfg.Metrics,
		tracer:   telemetry.Tracer("github.com/eugener/ceptracker/internal/app"),
	}
}

// Resolve returns the address for cep, which must already be normalized to
// eight digits. It returns ceptracker.ErrNotFound when the upstream flags the
// CEP as unknown and an error wrapping ceptracker.ErrUpstream when the
// upstream cannot answer. Every call appends exactly one audit entry, even
// when ctx is cancelled.
func (r *Resolver) Resolve(ctx context.Context, cep string, meta ceptracker.CallerMeta) (*ceptracker.Address, error) {
	start := time.Now()
	ctx, span := r.tracer.Start(ctx, "Resolver.Resolve", trace.WithAttributes(attribute.String("cep", cep)))
	defer span.End()

	addr, payload, hit, err := r.resolve(ctx, cep)
	elapsed := time.Since(start)

	entry := &ceptracker.AuditEntry{
		CEP:             cep,
		RequestedAt:     start.UTC(),
		ExecutionTimeMs: elapsed.Milliseconds(),
		CacheHit:        hit,
		SourceIP:        meta.SourceIP,
		UserAgent:       meta.UserAgent,
		RequestID:       meta.RequestID,
	}
	var outcome string
	switch {
	case err == nil:
		entry.Success = true
		entry.ResponseData = ceptracker.StringPtr(string(payload))
		outcome = telemetry.OutcomeResolved
		if hit {
			outcome = telemetry.OutcomeHit
		}
	case errors.Is(err, ceptracker.ErrNotFound):
		entry.ErrorMessage = ceptracker.StringPtr(ceptracker.NotFoundReason)
		outcome = telemetry.OutcomeNotFound
	default:
		entry.ErrorMessage = ceptracker.StringPtr(err.Error())
		outcome = telemetry.OutcomeError
		span.RecordError(err)
		span.SetStatus(codes.Error, "upstream failure")
	}
	span.SetAttributes(attribute.String("outcome", outcome), attribute.Bool("cache_hit", hit))

	r.appendAudit(context.WithoutCancel(ctx), entry)

	if r.metrics != nil {
		r.metrics.LookupsTotal.WithLabelValues(outcome).Inc()
		r.metrics.LookupDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
	}
	if err != nil {
		return nil, err
	}
	return addr, nil
}

// resolve returns the address, its JSON encoding and whether it came from
// the cache.
func (r *Resolver) resolve(ctx context.Context, cep string) (*ceptracker.Address, []byte, bool, error) {
	key := ceptracker.CacheKey(cep)

	if addr, payload, ok := r.cached(ctx, key); ok {
		return addr, payload, true, nil
	}

	addr, err := r.fetch(ctx, cep)
	if err != nil {
		return nil, nil, false, err
	}
	if addr.IsNotFound() {
		return nil, nil, false, ceptracker.ErrNotFound
	}

	payload, err := json.Marshal(addr)
	if err != nil {
		return nil, nil, false, err
	}
	if err := r.cache.Set(ctx, key, payload, r.ttl); err != nil {
		r.cacheError(ctx, "set", key, err)
	}
	return addr, payload, false, nil
}

// cached reads key from the cache. Read errors, undecodable payloads and
// not-found records all count as a miss.
func (r *Resolver) cached(ctx context.Context, key string) (*ceptracker.Address, []byte, bool) {
	payload, ok, err := r.cache.Get(ctx, key)
	if err != nil {
		r.cacheError(ctx, "get", key, err)
		ok = false
	}
	if ok {
		var addr ceptracker.Address
		if err := json.Unmarshal(payload, &addr); err != nil {
			r.cacheError(ctx, "decode", key, err)
		} else if !addr.IsNotFound() {
			if r.metrics != nil {
				r.metrics.CacheHits.Inc()
			}
			return &addr, payload, true
		}
	}
	if r.metrics != nil {
		r.metrics.CacheMisses.Inc()
	}
	return nil, nil, false
}

// fetch performs the single bounded provider call.
func (r *Resolver) fetch(ctx context.Context, cep string) (*ceptracker.Address, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	ctx, span := r.tracer.Start(ctx, "Provider.Find")
	defer span.End()

	start := time.Now()
	addr, err := r.provider.Find(ctx, cep)
	if r.metrics != nil {
		r.metrics.UpstreamDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		if !errors.Is(err, ceptracker.ErrUpstream) {
			err = provider.TransportError("provider", "find", err)
		}
		kind := upstreamKind(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, kind)
		if r.metrics != nil {
			r.metrics.UpstreamErrors.WithLabelValues(kind).Inc()
		}
		slog.LogAttrs(ctx, slog.LevelWarn, "upstream lookup failed",
			slog.String("cep", cep),
			slog.String("kind", kind),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	if addr == nil {
		return nil, ceptracker.ErrUpstreamDecode
	}
	return addr, nil
}

func (r *Resolver) appendAudit(ctx context.Context, e *ceptracker.AuditEntry) {
	if _, err := r.audit.AppendAudit(ctx, e); err != nil {
		if r.metrics != nil {
			r.metrics.AuditWriteFailures.Inc()
		}
		slog.LogAttrs(ctx, slog.LevelError, "audit append failed",
			slog.String("cep", e.CEP),
			slog.Bool("success", e.Success),
			slog.String("request_id", e.RequestID),
			slog.String("error", err.Error()),
		)
	}
}

func (r *Resolver) cacheError(ctx context.Context, op, key string, err error) {
	if r.metrics != nil {
		r.metrics.CacheErrors.WithLabelValues(op).Inc()
	}
	slog.LogAttrs(ctx, slog.LevelWarn, "cache error",
		slog.String("op", op),
		slog.String("key", key),
		slog.String("error", err.Error()),
	)
}

// upstreamKind labels an upstream failure for metrics and logs.
func upstreamKind(err error) string {
	var apiErr *provider.APIError
	switch {
	case errors.Is(err, ceptracker.ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, ceptracker.ErrUpstreamTimeout):
		return "timeout"
	case errors.Is(err, ceptracker.ErrUpstreamDecode):
		return "decode"
	case errors.As(err, &apiErr):
		return "status"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "transport"
	}
}
