// Stockroom keeps the product catalog in sync with supplier XML feeds.
//
// It serves the admin api and runs the periodic import scan, either on a
// Temporal worker or, without TEMPORAL_HOST_PORT, on an in-process cron.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-envconfig"
	"github.com/sethvargo/go-retry"
	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"
	"go.uber.org/fx"
	_ "golang.org/x/crypto/x509roots/fallback"

	"github.com/jdholdren/stockroom/internal/api"
	"github.com/jdholdren/stockroom/internal/catalog"
	"github.com/jdholdren/stockroom/internal/importer"
	"github.com/jdholdren/stockroom/internal/lock"
	"github.com/jdholdren/stockroom/internal/logger"
	"github.com/jdholdren/stockroom/internal/metrics"
	"github.com/jdholdren/stockroom/internal/migrations"
	"github.com/jdholdren/stockroom/internal/scheduler"
	"github.com/jdholdren/stockroom/internal/sqlite"
	"github.com/jdholdren/stockroom/internal/stockroom"
	"github.com/jdholdren/stockroom/internal/worker"
)

type config struct {
	Database string `env:"DATABASE, required"`
	Port     int    `env:"PORT, default=4444"`

	// Which format to use for logging: either text or json
	LoggerFormat string `env:"LOGGER_FORMAT, default=text"`
	CorsOrigin   string `env:"CORS_ORIGIN, default=*"`

	// Preferred import times are wall clock times in this zone.
	TimeZone     string        `env:"TIMEZONE, default=UTC"`
	ScanSchedule string        `env:"SCAN_SCHEDULE, default=0 * * * *"`
	FetchTimeout time.Duration `env:"FETCH_TIMEOUT, default=30s"`

	// Only used without temporal
	ImportConcurrency int `env:"IMPORT_CONCURRENCY, default=4"`

	// Empty runs everything in-process
	TemporalHostPort  string `env:"TEMPORAL_HOST_PORT"`
	TemporalNamespace string `env:"TEMPORAL_NAMESPACE, default=default"`

	// Empty uses a process local scan lock
	RedisAddr string `env:"REDIS_ADDR"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Parse the config
	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		log.Fatalf("error parsing config: %s", err)
	}

	slog.SetDefault(logger.New(os.Stdout, cfg.LoggerFormat))

	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		log.Fatalf("error loading timezone %q: %s", cfg.TimeZone, err)
	}

	// Connect to the sqlite db
	dbx, err := sqlite.Open(cfg.Database)
	if err != nil {
		log.Fatalf("error opening database: %s", err)
	}
	defer dbx.Close()

	// Run all migrations
	if err := migrations.Run(dbx); err != nil {
		log.Fatalf("error running migrations: %s", err)
	}

	repo := sqlite.New(dbx)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	imp := importer.New(repo, catalog.NewFetcher(cfg.FetchTimeout), importer.NewAdminResolver(repo), m, time.Now)

	var locker lock.Locker = lock.NewLocal()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		locker = lock.NewRedis(rdb, lock.DefaultTTL)
	}

	var pipeline fx.Option
	if cfg.TemporalHostPort != "" {
		pipeline, err = temporalPipeline(ctx, cfg, repo, imp, locker, loc, m)
		if err != nil {
			log.Fatalf("error setting up temporal: %s", err)
		}
	} else {
		pipeline = inProcessPipeline(cfg, repo, imp, locker, loc, m)
	}

	// Start the application
	fx.New(
		fx.Supply(
			api.ServerConfig{
				Port:       cfg.Port,
				CorsOrigin: cfg.CorsOrigin,
			},
			fx.Annotate(ctx, fx.As(new(context.Context))),
			fx.Annotate(repo, fx.As(new(stockroom.Repository))),
			fx.Annotate(reg, fx.As(new(prometheus.Gatherer))),
		),
		pipeline,
		api.Module,
		fx.Invoke(func(*api.Server) {}), // Start the admin api
	).Run()
}

// Imports run as Temporal workflows and the scan is a Temporal schedule.
func temporalPipeline(
	ctx context.Context,
	cfg config,
	repo sqlite.Repo,
	imp *importer.Importer,
	locker lock.Locker,
	loc *time.Location,
	m *metrics.Metrics,
) (fx.Option, error) {
	// Retry until temporal is ready
	var temporalCli client.Client
	if err := retry.Fibonacci(ctx, 1*time.Second, func(ctx context.Context) error {
		c, err := client.Dial(client.Options{
			HostPort:  cfg.TemporalHostPort,
			Namespace: cfg.TemporalNamespace,
			Logger:    tlog.NewStructuredLogger(slog.Default()),
		})
		if err != nil {
			return retry.RetryableError(err)
		}
		temporalCli = c

		return nil
	}); err != nil {
		return nil, fmt.Errorf("error dialing temporal: %w", err)
	}

	if err := worker.EnsureNamespace(ctx, temporalCli.WorkflowService(), cfg.TemporalNamespace); err != nil {
		return nil, err
	}

	dispatcher := worker.NewTemporalDispatcher(temporalCli)
	scanner := importer.NewScanner(repo, locker, dispatcher, loc, m, time.Now)

	w, err := worker.NewWorker(ctx, temporalCli, imp, scanner, worker.ScheduleConfig{
		Cron:     cfg.ScanSchedule,
		TimeZone: loc.String(),
	})
	if err != nil {
		return nil, err
	}

	return fx.Options(
		fx.Supply(fx.Annotate(dispatcher, fx.As(new(importer.Dispatcher)))),
		fx.Invoke(func(lc fx.Lifecycle) {
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					return w.Start()
				},
				OnStop: func(context.Context) error {
					w.Stop()
					temporalCli.Close()

					return nil
				},
			})
		}),
	), nil
}

// Imports run on a bounded in-process pool and the scan is a local cron.
func inProcessPipeline(
	cfg config,
	repo sqlite.Repo,
	imp *importer.Importer,
	locker lock.Locker,
	loc *time.Location,
	m *metrics.Metrics,
) fx.Option {
	dispatcher := importer.NewAsyncDispatcher(imp, cfg.ImportConcurrency)
	scanner := importer.NewScanner(repo, locker, dispatcher, loc, m, time.Now)

	return fx.Options(
		fx.Supply(fx.Annotate(dispatcher, fx.As(new(importer.Dispatcher)))),
		fx.Invoke(func(lc fx.Lifecycle) error {
			c, err := scheduler.New(scanner, cfg.ScanSchedule, loc)
			if err != nil {
				return err
			}

			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					c.Start()
					slog.Info("started in-process scan schedule", "schedule", cfg.ScanSchedule, "timezone", loc.String())

					return nil
				},
				OnStop: func(ctx context.Context) error {
					err := c.Stop(ctx)
					dispatcher.Wait()

					return err
				},
			})

			return nil
		}),
	)
}
