package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/dnscache"

	ceptracker "github.com/eugener/ceptracker/internal"
	"github.com/eugener/ceptracker/internal/app"
	"github.com/eugener/ceptracker/internal/cache"
	"github.com/eugener/ceptracker/internal/circuitbreaker"
	"github.com/eugener/ceptracker/internal/config"
	"github.com/eugener/ceptracker/internal/provider"
	"github.com/eugener/ceptracker/internal/provider/viacep"
	"github.com/eugener/ceptracker/internal/server"
	"github.com/eugener/ceptracker/internal/storage"
	"github.com/eugener/ceptracker/internal/storage/postgres"
	"github.com/eugener/ceptracker/internal/storage/sqlite"
	"github.com/eugener/ceptracker/internal/telemetry"
	"github.com/eugener/ceptracker/internal/worker"
)

// cacheBackend is the full surface run needs from a cache backend.
type cacheBackend interface {
	cache.Cache
	Ping(ctx context.Context) error
	Close() error
}

func run(configPath string) error {
	// Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	slog.Info("starting ceptracker", "version", version, "addr", cfg.Server.Addr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Tracing
	if cfg.Telemetry.Tracing.Enabled {
		shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.Telemetry.Tracing.Endpoint, version, cfg.Telemetry.Tracing.SampleRate)
		if err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(sctx); err != nil {
				slog.Warn("tracing shutdown", "error", err)
			}
		}()
	}

	// Open audit store
	store, err := openStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	// Cache
	c, err := openCache(cfg.Cache)
	if err != nil {
		return err
	}
	defer c.Close()

	// Upstream
	var resolver *dnscache.Resolver
	if cfg.Upstream.DNSCache {
		resolver = &dnscache.Resolver{}
	}
	httpClient := &http.Client{Transport: provider.NewTransport(resolver)}
	var upstream ceptracker.Provider = viacep.New(cfg.Upstream.BaseURL, httpClient)
	if b := cfg.Upstream.Breaker; b.Enabled {
		upstream = circuitbreaker.Guard(upstream, circuitbreaker.New(circuitbreaker.Config{
			ErrorThreshold: b.ErrorThreshold,
			MinSamples:     b.MinSamples,
			Window:         b.Window,
			OpenTimeout:    b.OpenTimeout,
		}))
		slog.Info("upstream circuit breaker enabled", "threshold", b.ErrorThreshold)
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.NewMetrics(reg)
	var metricsHandler http.Handler
	if cfg.Telemetry.Metrics.Enabled {
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	// Wire services
	res := app.NewResolver(c, upstream, store, app.ResolverConfig{
		TTL:             cfg.Cache.TTL,
		UpstreamTimeout: cfg.Upstream.Timeout,
		Metrics:         metrics,
	})
	audit := app.NewAuditService(store)

	handler := server.New(server.Deps{
		Resolver: res,
		Audit:    audit,
		Cache:    c,
		ReadyCheck: func(ctx context.Context) error {
			return errors.Join(store.Ping(ctx), c.Ping(ctx))
		},
		Metrics:        metrics,
		MetricsHandler: metricsHandler,
	})

	// Background workers
	workers := []worker.Worker{
		worker.NewAuditStatsWorker(audit, metrics, cfg.Workers.StatsRefresh),
	}
	if resolver != nil && cfg.Upstream.DNSRefresh > 0 {
		workers = append(workers, worker.NewDNSRefreshWorker(resolver, cfg.Upstream.DNSRefresh))
	}
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()
	workerErr := make(chan error, 1)
	go func() { workerErr <- worker.NewRunner(workers...).Run(workerCtx) }()

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	slog.Info("ceptracker ready", "addr", cfg.Server.Addr, "cache", cfg.Cache.Backend, "database", cfg.Database.Driver)

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-errCh:
		return err
	case err := <-workerErr:
		if err != nil {
			return fmt.Errorf("worker: %w", err)
		}
	}

	// Shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	cancelWorkers()

	slog.Info("ceptracker stopped")
	return nil
}

func openStore(ctx context.Context, cfg config.DatabaseConfig) (storage.AuditStore, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return postgres.New(ctx, cfg.DSN)
	default:
		return sqlite.New(cfg.DSN)
	}
}

func openCache(cfg config.CacheConfig) (cacheBackend, error) {
	var l1 *cache.Memory
	if cfg.Backend != config.CacheRedis {
		m, err := cache.NewMemory(cfg.MaxSize, cfg.TTL)
		if err != nil {
			return nil, err
		}
		if cfg.Backend == config.CacheMemory {
			return memoryBackend{m}, nil
		}
		l1 = m
	}

	l2 := cache.NewRedis(cache.RedisOptions{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PurgeMatch: ceptracker.CacheKeyPrefix + "*",
	})
	if l1 == nil {
		return l2, nil
	}
	return cache.NewTiered(l1, l2, min(cfg.TTL, time.Minute)), nil
}

// memoryBackend adapts the in-process cache, which is always reachable.
type memoryBackend struct{ *cache.Memory }

func (memoryBackend) Ping(context.Context) error { return nil }
func (memoryBackend) Close() error               { return nil }
