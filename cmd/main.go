package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/tourguide/internal/adapters/gps"
	"github.com/okian/tourguide/internal/adapters/http/api"
	"github.com/okian/tourguide/internal/adapters/rewardcentral"
	app "github.com/okian/tourguide/internal/app"
	"github.com/okian/tourguide/internal/config"
	"github.com/okian/tourguide/internal/seed"
	"github.com/okian/tourguide/pkg/logger"
	"github.com/okian/tourguide/pkg/metrics"
)

const (
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "tourguide exited with error", logger.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	_ = logger.Sync()
}

// run starts the tracking service and the ops server and blocks until ctx
// is cancelled or one of them fails.
func run(ctx context.Context, cfg *config.Config) error {
	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	metrics.Init(
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithSubsystem(cfg.MetricsSubsystem),
		metrics.WithHistogramBuckets(cfg.MetricsBucketsMS),
		metrics.WithMetricsEnabled(cfg.MetricsEnabled),
	)

	svc, err := newService(ctx, cfg)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	api.NewServer(api.StatsFunc(func(ctx context.Context) any { return svc.Stats(ctx) }), svc).Register(mux)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := svc.Start(gctx); err != nil {
			return fmt.Errorf("start service: %w", err)
		}
		<-gctx.Done()
		svc.Stop()
		return nil
	})
	g.Go(func() error {
		return api.ListenAndServe(gctx, cfg.Addr, mux)
	})
	g.Go(func() error {
		trackerErrors(gctx, svc.Tracker())
		return nil
	})
	g.Go(func() error {
		startSystemMetricsUpdater(gctx)
		return nil
	})
	g.Go(func() error {
		startServiceMetricsUpdater(gctx, svc)
		return nil
	})

	err = g.Wait()
	log.Info(context.Background(), "tourguide stopped")
	return err
}

// newService builds the service over the simulated collaborators and seeds
// the roster with internal users.
func newService(ctx context.Context, cfg *config.Config) (*app.Service, error) {
	ms := func(n int) time.Duration { return time.Duration(n) * time.Millisecond }

	provider := gps.NewProvider(
		gps.WithLatencyRange(ms(cfg.LocationLatencyMinMS), ms(cfg.LocationLatencyMaxMS)),
		gps.WithFailureRate(cfg.LocationFailureRate),
	)
	oracle := rewardcentral.NewOracle(
		rewardcentral.WithLatencyRange(ms(cfg.OracleLatencyMinMS), ms(cfg.OracleLatencyMaxMS)),
		rewardcentral.WithFailureRate(cfg.OracleFailureRate),
	)

	svc := app.New(provider, gps.NewCatalog(), oracle,
		app.WithLogger(logger.Named("service")),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithTrackingInterval(cfg.TrackingInterval),
		app.WithProximityBuffer(cfg.ProximityBufferMiles),
		app.WithAttractionRange(cfg.AttractionRangeMiles),
		app.WithNearbyLimit(cfg.NearbyLimit),
		app.WithShutdownTimeout(cfg.ShutdownTimeout),
	)

	if cfg.InternalUserCount > 0 {
		n, err := seed.NewGenerator().Populate(ctx, svc.Roster(), cfg.InternalUserCount)
		if err != nil {
			return nil, fmt.Errorf("seed users: %w", err)
		}
		logger.Get().Info(ctx, "seeded internal users", logger.Int("count", n))
	}
	return svc, nil
}

// trackerErrors drains per-entity failures so the buffer never fills up.
// They are already logged and counted by the tracker.
func trackerErrors(ctx context.Context, t *app.Tracker) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.Done():
			return
		case <-t.Errors():
		}
	}
}

// startSystemMetricsUpdater periodically publishes runtime metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater periodically publishes pool gauges.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(ctx, svc)
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
	if m.NumGC > 0 {
		metrics.RecordSystemGCPauseTime(float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond)
	}
}

func updateServiceMetrics(ctx context.Context, svc *app.Service) {
	stats := svc.Stats(ctx)
	metrics.UpdateQueueSize(stats.QueueLength)
	metrics.UpdateTrackedEntities(stats.TrackedEntities)
}
