package worker

import (
	"context"
	"log/slog"
	"time"
)

// DNSRefresher is satisfied by *dnscache.Resolver.
type DNSRefresher interface {
	Refresh(clearUnused bool)
}

// DNSRefreshWorker re-resolves cached upstream hostnames on an interval and
// drops entries no request used since the previous pass.
type DNSRefreshWorker struct {
	resolver DNSRefresher
	interval time.Duration
}

// NewDNSRefreshWorker creates a DNS refresh worker.
func NewDNSRefreshWorker(resolver DNSRefresher, interval time.Duration) *DNSRefreshWorker {
	return &DNSRefreshWorker{resolver: resolver, interval: interval}
}

// Name returns the worker identifier.
func (w *DNSRefreshWorker) Name() string { return "dns_refresh" }

// Run refreshes the DNS cache until ctx is done.
func (w *DNSRefreshWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.resolver.Refresh(true)
			slog.LogAttrs(ctx, slog.LevelDebug, "dns cache refreshed")
		}
	}
}
