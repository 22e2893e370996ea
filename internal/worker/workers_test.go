package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	ceptracker "github.com/eugener/ceptracker/internal"
	"github.com/eugener/ceptracker/internal/telemetry"
)

type fakeStats struct {
	calls atomic.Int32
	err   error
}

func (f *fakeStats) Stats(context.Context) (*ceptracker.AuditStats, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &ceptracker.AuditStats{Total: 10, Successful: 7, Failed: 3}, nil
}

func TestAuditStatsWorker(t *testing.T) {
	t.Parallel()

	m := telemetry.NewMetrics(prometheus.NewRegistry())
	src := &fakeStats{}
	w := NewAuditStatsWorker(src, m, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for src.calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("worker did not refresh twice")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run: %v", err)
	}

	for label, want := range map[string]float64{"total": 10, "success": 7, "failure": 3} {
		if got := testutil.ToFloat64(m.AuditEntries.WithLabelValues(label)); got != want {
			t.Errorf("%s = %v, want %v", label, got, want)
		}
	}
}

func TestAuditStatsWorkerSourceError(t *testing.T) {
	t.Parallel()

	m := telemetry.NewMetrics(prometheus.NewRegistry())
	w := NewAuditStatsWorker(&fakeStats{err: errors.New("db down")}, m, time.Hour)
	w.refresh(context.Background())

	if got := testutil.ToFloat64(m.AuditEntries.WithLabelValues("total")); got != 0 {
		t.Errorf("total = %v, want 0 after failed refresh", got)
	}
}

type fakeResolver struct {
	refreshes atomic.Int32
	cleared   atomic.Bool
}

func (f *fakeResolver) Refresh(clearUnused bool) {
	f.refreshes.Add(1)
	f.cleared.Store(clearUnused)
}

func TestDNSRefreshWorker(t *testing.T) {
	t.Parallel()

	res := &fakeResolver{}
	w := NewDNSRefreshWorker(res, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for res.refreshes.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("resolver not refreshed")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run: %v", err)
	}
	if !res.cleared.Load() {
		t.Error("refresh should clear unused entries")
	}
}

func TestWorkerName(t *testing.T) {
	t.Parallel()

	if got := workerName(NewDNSRefreshWorker(&fakeResolver{}, time.Second)); got != "dns_refresh" {
		t.Errorf("name = %q", got)
	}
	if got := workerName(&fakeWorker{}); got != "unknown" {
		t.Errorf("name = %q, want unknown", got)
	}
}
