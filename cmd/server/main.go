package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/intakebilling/db"
	"github.com/dmitrymomot/intakebilling/pkg/billing"
	"github.com/dmitrymomot/intakebilling/pkg/config"
	"github.com/dmitrymomot/intakebilling/pkg/email"
	"github.com/dmitrymomot/intakebilling/pkg/httpserver"
	"github.com/dmitrymomot/intakebilling/pkg/logger"
	"github.com/dmitrymomot/intakebilling/pkg/pg"
	"github.com/dmitrymomot/intakebilling/pkg/ratelimiter"
	"github.com/dmitrymomot/intakebilling/pkg/redis"
	"github.com/dmitrymomot/intakebilling/pkg/requestid"
	"github.com/dmitrymomot/intakebilling/svc/intake"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", logger.Error(err))
		os.Exit(1)
	}
}

type configs struct {
	app     appConfig
	log     logger.Config
	http    httpserver.Config
	pg      pg.Config
	redis   redis.Config
	email   email.Config
	stripe  billing.StripeConfig
	intake  intake.Config
	limiter ratelimiter.Config
}

func loadConfigs() (configs, error) {
	var c configs
	err := errors.Join(
		config.Load(&c.app),
		config.Load(&c.log),
		config.Load(&c.http),
		config.Load(&c.pg),
		config.Load(&c.redis),
		config.Load(&c.email),
		config.Load(&c.stripe),
		config.Load(&c.intake),
		config.Load(&c.limiter),
	)
	return c, err
}

func run() error {
	cfg, err := loadConfigs()
	if err != nil {
		return err
	}

	log := logger.New(
		logger.WithEnvironment(cfg.app.environment(), cfg.app.ServiceName),
		logger.WithConfig(cfg.log),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	)
	logger.SetAsDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pg.Connect(ctx, cfg.pg)
	if err != nil {
		return err
	}
	defer pool.Close()

	cfg.pg.MigrationsPath = db.MigrationsDir
	if err := pg.Migrate(ctx, pool, cfg.pg, log, pg.WithMigrationsFS(db.Migrations)); err != nil {
		return err
	}

	checks := []httpserver.Check{{Name: "postgres", Fn: pg.Healthcheck(pool)}}

	limiterStore, closeLimiter, check, err := newLimiterStore(ctx, cfg.redis, log)
	if err != nil {
		return err
	}
	defer closeLimiter()
	if check != nil {
		checks = append(checks, *check)
	}

	deps, err := newEngine(cfg, pool, log)
	if err != nil {
		return err
	}

	bucket, err := ratelimiter.NewBucket(limiterStore, cfg.limiter)
	if err != nil {
		return err
	}

	router := newRouter(cfg.app, deps, bucket, log, checks...)

	server := httpserver.NewFromConfig(cfg.http,
		httpserver.WithLogger(log),
		httpserver.WithStopHook("activation_notifications", deps.activator.Wait),
	)
	return server.Run(ctx, router)
}

// engine holds the wired activation components.
type engine struct {
	service    *intake.Service
	checkout   *intake.CheckoutInitiator
	activator  *intake.Activator
	dispatcher *intake.Dispatcher
	simulator  *billing.Simulator
}

func newEngine(cfg configs, pool *pgxpool.Pool, log *slog.Logger) (*engine, error) {
	matrix, err := intake.LoadPriceMatrix(cfg.intake.PriceMatrixPath)
	if err != nil {
		return nil, err
	}
	prices, err := intake.NewPriceResolver(matrix)
	if err != nil {
		return nil, err
	}

	e := &engine{}
	var provider billing.Provider
	if cfg.intake.SimulateProcessor {
		e.simulator = billing.NewSimulator(cfg.app.SimulatorWebhookSecret,
			billing.WithSimulatorCheckoutURL(strings.TrimSuffix(cfg.app.PublicURL, "/")+"/simulator/pay"),
			billing.WithSimulatorPrices(prices.PriceIDs()...),
		)
		provider = e.simulator
		log.Warn("simulated payment processor enabled")
	} else {
		provider, err = billing.NewStripeProvider(cfg.stripe, billing.WithStripeLogger(log))
		if err != nil {
			return nil, err
		}
	}

	sender, err := email.NewSender(cfg.email)
	if err != nil {
		return nil, err
	}
	if !cfg.email.PostmarkEnabled() {
		log.Info("postmark not configured, activation emails are written to disk", slog.String("dir", cfg.email.DevDir))
	}
	notifier := intake.NewEmailNotifier(sender, cfg.email.DashboardURL)

	store := intake.NewPostgresStore(pool)
	projector := intake.NewProjector(store, intake.WithLogger(log))
	legacy := intake.NewLegacyProjector(intake.NewPostgresLegacyStore(pool), intake.WithLogger(log))

	e.activator = intake.NewActivator(store, provider, cfg.intake, intake.WithLogger(log), intake.WithNotifier(notifier))
	e.dispatcher = intake.NewDispatcher(provider, intake.NewPostgresLedger(pool), e.activator, projector,
		intake.WithLogger(log),
		intake.WithLegacyProjector(legacy),
	)
	e.checkout = intake.NewCheckoutInitiator(store, provider, prices, cfg.intake, intake.WithLogger(log))
	e.service = intake.NewService(store, projector, intake.WithLogger(log))
	return e, nil
}

// newLimiterStore returns the Redis-backed store when REDIS_URL is set and
// an in-process store otherwise.
func newLimiterStore(ctx context.Context, cfg redis.Config, log *slog.Logger) (ratelimiter.Store, func(), *httpserver.Check, error) {
	if !cfg.Enabled() {
		log.Info("redis not configured, rate limits are per instance")
		ms := ratelimiter.NewMemoryStore()
		return ms, ms.Close, nil, nil
	}

	client, err := redis.Connect(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	closeFn := func() {
		if err := client.Close(); err != nil {
			log.Error("redis close failed", logger.Error(err))
		}
	}
	check := &httpserver.Check{Name: "redis", Fn: redis.Healthcheck(client)}
	return ratelimiter.NewRedisStore(client), closeFn, check, nil
}
