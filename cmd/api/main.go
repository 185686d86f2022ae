package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	pkgbilling "github.com/dmitrymomot/coachbill/pkg/billing"
	"github.com/dmitrymomot/coachbill/pkg/config"
	"github.com/dmitrymomot/coachbill/pkg/health"
	"github.com/dmitrymomot/coachbill/pkg/httpserver"
	"github.com/dmitrymomot/coachbill/pkg/ledger"
	"github.com/dmitrymomot/coachbill/pkg/logger"
	"github.com/dmitrymomot/coachbill/pkg/pg"
	"github.com/dmitrymomot/coachbill/pkg/plan"
	"github.com/dmitrymomot/coachbill/pkg/provider/hotmart"
	"github.com/dmitrymomot/coachbill/pkg/provider/paddle"
	"github.com/dmitrymomot/coachbill/pkg/reconciler"
	"github.com/dmitrymomot/coachbill/pkg/redis"
	"github.com/dmitrymomot/coachbill/pkg/scheduler"
	"github.com/dmitrymomot/coachbill/pkg/subscription"
	"github.com/dmitrymomot/coachbill/pkg/tenant"
	"github.com/dmitrymomot/coachbill/pkg/usage"
	"github.com/dmitrymomot/coachbill/svc/billing"
)

type appConfig struct {
	Logger  logger.Config
	Pg      pg.Config
	Redis   redis.Config
	Server  httpserver.Config
	Hotmart hotmart.Config
	Paddle  paddle.Config
	Billing billing.Config

	PlansPath      string        `env:"PLANS_PATH" envDefault:"plans.yaml"`
	ExpireInterval time.Duration `env:"EXPIRE_JOB_INTERVAL" envDefault:"1h"`
	CureInterval   time.Duration `env:"CURE_JOB_INTERVAL" envDefault:"15m"`

	// Postmark alerting is optional: without tokens the health monitor
	// is not installed and failures surface through logs and /health only.
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	AlertEmailFrom       string `env:"ALERT_EMAIL_FROM"`
	AlertEmailTo         string `env:"ALERT_EMAIL_TO"`
}

func main() {
	var cfg appConfig
	config.MustLoad(&cfg)

	log := logger.NewFromConfig(cfg.Logger, logger.WithService("coachbill-api"))
	slog.SetDefault(log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("service terminated", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	pool, err := pg.Connect(ctx, cfg.Pg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, cfg.Pg, log); err != nil {
		return err
	}

	catalog, err := plan.NewCatalog(ctx, plan.NewFileSource(cfg.PlansPath))
	if err != nil {
		return err
	}

	subStore := subscription.NewPgStore(pool)
	chargeStore := ledger.NewPgChargeStore(pool)
	pendingStore := ledger.NewPgPendingStore(pool)
	directory := tenant.NewCachedDirectory(tenant.NewPgDirectory(pool),
		tenant.DefaultCacheTTL, tenant.DefaultCacheSize)

	subSvc := subscription.NewService(subStore, catalog, log)
	tracker := usage.NewTracker(subStore, catalog, usage.NewPgStudentCounter(pool))
	summarizer := pkgbilling.NewSummarizer(chargeStore)

	svcOpts := []billing.Option{
		billing.WithLogger(log),
		billing.WithAdminToken(cfg.Billing.AdminToken),
		billing.WithHealthcheck("postgres", pg.Healthcheck(pool)),
	}
	recOpts := []reconciler.Option{reconciler.WithLogger(log)}

	// Redis only backs the webhook dedupe fast path; the charge ledger
	// stays authoritative, so the service degrades rather than refusing
	// to start.
	if redisClient, err := redis.Connect(ctx, cfg.Redis); err != nil {
		log.Warn("redis unavailable, webhook dedupe cache disabled",
			slog.String("error", err.Error()))
	} else {
		defer func() { _ = redisClient.Close() }()
		recOpts = append(recOpts, reconciler.WithDedupeCache(reconciler.NewRedisDedupeCache(redisClient)))
		svcOpts = append(svcOpts, billing.WithHealthcheck("redis", redis.Healthcheck(redisClient)))
	}

	if cfg.PostmarkServerToken != "" && cfg.PostmarkAccountToken != "" {
		notifier := health.NewPostmarkNotifier(cfg.PostmarkServerToken, cfg.PostmarkAccountToken,
			cfg.AlertEmailFrom, cfg.AlertEmailTo)
		svcOpts = append(svcOpts, billing.WithMonitor(health.NewMonitor(notifier, health.WithLogger(log))))
	}

	rec := reconciler.New(subStore, chargeStore, pendingStore,
		billing.DirectoryAdapter(directory), recOpts...)

	svc := billing.New(billing.Deps{
		Catalog:       catalog,
		Subscriptions: subSvc,
		Store:         subStore,
		Tracker:       tracker,
		Summarizer:    summarizer,
		Reconciler:    rec,
		Hotmart:       hotmart.NewWebhook(cfg.Hotmart.Hottok),
		Paddle:        paddle.NewWebhook(cfg.Paddle.WebhookSecret),
		Directory:     directory,
	}, svcOpts...)

	jobs := scheduler.New(scheduler.WithLogger(log))
	if err := jobs.AddJob("expire-overdue", cfg.ExpireInterval,
		scheduler.ExpireOverdue(subStore, subSvc, log)); err != nil {
		return err
	}
	if err := jobs.AddJob("cure-overdue", cfg.CureInterval,
		scheduler.CureOverdue(subStore, hotmart.NewClient(cfg.Hotmart), rec, catalog, log)); err != nil {
		return err
	}

	server := httpserver.New(cfg.Server, httpserver.WithLogger(log))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return jobs.Start(ctx) })
	g.Go(func() error { return server.Run(ctx, billing.Router(svc)) })
	return g.Wait()
}
