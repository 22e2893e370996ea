package worker

import (
	"context"
	"log/slog"
	"time"

	ceptracker "github.com/eugener/ceptracker/internal"
	"github.com/eugener/ceptracker/internal/telemetry"
)

// StatsSource computes aggregate audit counts.
type StatsSource interface {
	Stats(ctx context.Context) (*ceptracker.AuditStats, error)
}

// AuditStatsWorker periodically publishes audit totals as gauges so
// dashboards do not have to query the audit store.
type AuditStatsWorker struct {
	source   StatsSource
	metrics  *telemetry.Metrics
	interval time.Duration
}

// NewAuditStatsWorker creates a worker refreshing metrics every interval.
func NewAuditStatsWorker(source StatsSource, metrics *telemetry.Metrics, interval time.Duration) *AuditStatsWorker {
	return &AuditStatsWorker{source: source, metrics: metrics, interval: interval}
}

// Name returns the worker identifier.
func (w *AuditStatsWorker) Name() string { return "audit_stats" }

// Run refreshes once immediately, then on every tick until ctx is done.
func (w *AuditStatsWorker) Run(ctx context.Context) error {
	w.refresh(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.refresh(ctx)
		}
	}
}

func (w *AuditStatsWorker) refresh(ctx context.Context) {
	stats, err := w.source.Stats(ctx)
	if err != nil {
		if ctx.Err() == nil {
			slog.LogAttrs(ctx, slog.LevelWarn, "audit stats refresh failed",
				slog.String("error", err.Error()),
			)
		}
		return
	}
	w.metrics.AuditEntries.WithLabelValues("total").Set(float64(stats.Total))
	w.metrics.AuditEntries.WithLabelValues("success").Set(float64(stats.Successful))
	w.metrics.AuditEntries.WithLabelValues("failure").Set(float64(stats.Failed))
}
