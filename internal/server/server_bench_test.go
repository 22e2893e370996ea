package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	ceptracker "github.com/eugener/ceptracker/internal"
	"github.com/eugener/ceptracker/internal/app"
	"github.com/eugener/ceptracker/internal/cache"
)

// nopAudit discards entries so the benchmark measures the HTTP and cache path.
type nopAudit struct{}

func (nopAudit) AppendAudit(context.Context, *ceptracker.AuditEntry) (int64, error) { return 1, nil }

func newBenchHandler(b *testing.B) http.Handler {
	b.Helper()
	mem, err := cache.NewMemory(1000, app.DefaultTTL)
	if err != nil {
		b.Fatal(err)
	}
	return New(Deps{
		Resolver: app.NewResolver(mem, providerFunc(paulista), nopAudit{}, app.ResolverConfig{}),
	})
}

type providerFunc func(context.Context, string) (*ceptracker.Address, error)

func (f providerFunc) Find(ctx context.Context, cep string) (*ceptracker.Address, error) {
	return f(ctx, cep)
}

func BenchmarkGetCEPCacheHit(b *testing.B) {
	h := newBenchHandler(b)

	b.ResetTimer()
	for b.Loop() {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/cep/01310100", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			b.Fatalf("status = %d, want 200; body = %s", rec.Code, rec.Body.String())
		}
	}
}

func BenchmarkGetCEPCacheHitParallel(b *testing.B) {
	h := newBenchHandler(b)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/cep/01310100", nil)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != http.StatusOK {
				b.Fatalf("status = %d, want 200; body = %s", rec.Code, rec.Body.String())
			}
		}
	})
}
