// Package app assembles the services shared by the API and worker binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gst-invoice/internal/auth"
	"github.com/noah-isme/gst-invoice/internal/cache"
	"github.com/noah-isme/gst-invoice/internal/common"
	"github.com/noah-isme/gst-invoice/internal/company"
	"github.com/noah-isme/gst-invoice/internal/config"
	"github.com/noah-isme/gst-invoice/internal/db"
	"github.com/noah-isme/gst-invoice/internal/events"
	"github.com/noah-isme/gst-invoice/internal/health"
	"github.com/noah-isme/gst-invoice/internal/inventory"
	"github.com/noah-isme/gst-invoice/internal/invoice"
	"github.com/noah-isme/gst-invoice/internal/jobs"
	"github.com/noah-isme/gst-invoice/internal/lock"
	"github.com/noah-isme/gst-invoice/internal/obs"
	"github.com/noah-isme/gst-invoice/internal/ratelimit"
	"github.com/noah-isme/gst-invoice/internal/resilience"
	"github.com/noah-isme/gst-invoice/internal/seed"
)

// Dependencies holds the wired services for one process. DB and Redis are
// nil when their URLs are not configured; the services then run on the
// in-memory seed stores.
type Dependencies struct {
	Config    *config.Config
	Logger    zerolog.Logger
	DB        *pgxpool.Pool
	Redis     *redis.Client
	Validator *validator.Validate
	Events    events.Emitter

	Inventory *inventory.Service
	Companies *company.Service
	Invoices  *invoice.Service
	Auth      *auth.Service
	Limiter   *limiter.Limiter

	TaskRedis  asynq.RedisConnOpt
	TaskClient *asynq.Client

	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Options tune Build for a particular binary.
type Options struct {
	ApplicationName string
	ConnectTimeout  time.Duration
	InstrumentRedis bool
	MetricsEnabled  bool
}

// Build connects to the configured backends and wires every service.
func Build(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts Options) (*Dependencies, error) {
	if cfg == nil {
		return nil, errors.New("app: config is required")
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	if opts.ApplicationName == "" {
		opts.ApplicationName = "gst-invoice"
	}

	d := &Dependencies{
		Config:         cfg,
		Logger:         logger,
		Validator:      common.NewValidator(),
		TracerProvider: otel.GetTracerProvider(),
		MeterProvider:  otel.GetMeterProvider(),
	}

	connectCtx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	if cfg.DatabaseURL != "" {
		if cfg.DBAutoMigrate {
			if err := db.MigrateUp(cfg.DatabaseURL); err != nil {
				return nil, err
			}
			logger.Info().Msg("migrations_applied")
		}
		pool, err := NewPool(connectCtx, cfg.DatabaseURL, opts.ApplicationName)
		if err != nil {
			return nil, err
		}
		d.DB = pool
	} else {
		logger.Warn().Msg("DATABASE_URL not set; using in-memory stores")
	}

	if cfg.RedisURL != "" {
		client, err := d.newRedis(connectCtx, cfg.RedisURL, opts)
		if err != nil {
			d.Close()
			return nil, err
		}
		d.Redis = client
		taskOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("app: parse redis uri for tasks: %w", err)
		}
		d.TaskRedis = taskOpt
		if cfg.AsyncRenderEnabled {
			d.TaskClient = asynq.NewClient(taskOpt)
		}
	} else {
		logger.Warn().Msg("REDIS_URL not set; caches, drafts and locks are process-local")
	}

	if err := d.wire(); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

// NewPool opens a traced pgx pool and verifies the connection.
func NewPool(ctx context.Context, databaseURL, applicationName string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("app: parse database config: %w", err)
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = applicationName

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("app: connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("app: ping database: %w", err)
	}
	return pool, nil
}

func (d *Dependencies) newRedis(ctx context.Context, url string, opts Options) (*redis.Client, error) {
	redisOpts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("app: parse redis url: %w", err)
	}
	client := redis.NewClient(redisOpts)
	if opts.InstrumentRedis {
		if err := redisotel.InstrumentTracing(client, redisotel.WithTracerProvider(d.TracerProvider)); err != nil {
			d.Logger.Error().Err(err).Msg("instrument redis tracing")
		}
		if opts.MetricsEnabled {
			if err := redisotel.InstrumentMetrics(client, redisotel.WithMeterProvider(d.MeterProvider)); err != nil {
				d.Logger.Error().Err(err).Msg("instrument redis metrics")
			}
		}
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("app: ping redis: %w", err)
	}
	return client, nil
}

func (d *Dependencies) wire() error {
	cfg := d.Config
	catalog := seed.Empty()
	if cfg.SeedFallbackEnabled {
		catalog = seed.Default()
	}

	bus := &events.Bus{
		Notifiers: []events.Notifier{events.LogNotifier{Logger: d.Logger}, events.MetricsNotifier{}},
	}
	if d.DB != nil {
		bus.Store = events.PGStore{Pool: d.DB}
	}
	d.Events = bus

	locker := lock.New(d.Redis, cfg.LockRetryBackoff)

	inventoryCfg := inventory.ServiceConfig{
		Fallback:          inventory.NewMemoryStore(catalog.Items),
		Guard:             d.storeGuard("inventory"),
		Cache:             cache.New(d.Redis, cfg.CatalogCacheTTL),
		Validate:          d.Validator,
		Events:            bus,
		Logger:            d.Logger.With().Str("component", "inventory").Logger(),
		LowStockThreshold: cfg.LowStockThreshold,
	}
	companyCfg := company.ServiceConfig{
		Fallback: company.NewMemoryStore(catalog.Companies),
		Guard:    d.storeGuard("company"),
		Cache:    cache.New(d.Redis, cfg.CatalogCacheTTL),
		Locker:   locker,
		LockTTL:  cfg.LockTTL,
		Validate: d.Validator,
		Events:   bus,
		Logger:   d.Logger.With().Str("component", "company").Logger(),
	}
	if d.DB != nil {
		inventoryCfg.Primary = inventory.PGStore{Pool: d.DB}
		companyCfg.Primary = company.PGStore{Pool: d.DB}
	}

	var err error
	if d.Inventory, err = inventory.NewService(inventoryCfg); err != nil {
		return err
	}
	if d.Companies, err = company.NewService(companyCfg); err != nil {
		return err
	}

	invoiceCfg := invoice.ServiceConfig{
		Catalog:   d.Inventory,
		Companies: d.Companies,
		Drafts:    invoice.NewDraftStore(cache.New(d.Redis, cfg.DraftTTL)),
		Fallback:  invoice.NewMemoryStore(),
		Guard:     d.storeGuard("invoice"),
		Documents: cache.New(d.Redis, cfg.DocumentCacheTTL),
		Locker:    locker,
		LockTTL:   cfg.LockTTL,
		Events:    bus,
		Logger:    d.Logger.With().Str("component", "invoice").Logger(),
		Validate:  d.Validator,

		Seller:           cfg.Seller,
		Bank:             cfg.Bank,
		Policy:           invoice.Policy{Uncapped: cfg.Uncapped(), InitialRate: cfg.InitialRateOverride},
		Numberer:         invoice.Numberer{Prefix: cfg.InvoiceNumberPrefix},
		DefaultTerms:     invoice.PaymentTerms(cfg.DefaultPaymentTerms),
		DefaultTransport: invoice.TransportMode(cfg.DefaultTransportMode),
	}
	if d.DB != nil {
		invoiceCfg.Primary = invoice.PGStore{Pool: d.DB}
	}
	if d.TaskClient != nil {
		invoiceCfg.Queue = jobs.Enqueuer{
			Client: d.TaskClient,
			Logger: d.Logger.With().Str("component", "jobs").Logger(),
		}
	}
	if d.Invoices, err = invoice.NewService(invoiceCfg); err != nil {
		return err
	}

	if cfg.AuthEnabled() {
		d.Auth, err = auth.NewService(auth.Config{
			Secret:       cfg.AuthJWTSecret,
			Issuer:       cfg.AuthIssuer,
			Audience:     cfg.AuthAudience,
			TokenTTL:     cfg.AuthTokenTTL,
			ClockSkew:    30 * time.Second,
			Username:     cfg.OperatorUsername,
			PasswordHash: cfg.OperatorPasswordHash,
		})
		if err != nil {
			return err
		}
	}

	if d.Limiter, err = ratelimit.New(cfg.RateLimit, d.Redis); err != nil {
		return fmt.Errorf("app: rate limiter: %w", err)
	}
	return nil
}

// storeGuard builds the retry/breaker policy wrapped around a Postgres store.
func (d *Dependencies) storeGuard(store string) resilience.Guard {
	cfg := d.Config
	breaker := resilience.NewBreaker(cfg.StoreBreakerMinRequests, cfg.StoreBreakerFailureRatio, cfg.StoreBreakerOpenFor).
		WithStore(store).
		WithLogger(d.Logger)
	return resilience.Guard{
		Breaker:     breaker,
		Timeout:     cfg.StoreTimeout,
		MaxAttempts: 2,
		BaseBackoff: 50 * time.Millisecond,
		Jitter:      0.2,
	}
}

// Readiness probes the configured backends for /health/ready.
func (d *Dependencies) Readiness() health.Checker {
	return readinessChecker{db: d.DB, redis: d.Redis}
}

// Close releases connections in reverse order of creation.
func (d *Dependencies) Close() {
	if d.TaskClient != nil {
		if err := d.TaskClient.Close(); err != nil {
			d.Logger.Error().Err(err).Msg("close task client")
		}
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error().Err(err).Msg("close redis")
		}
	}
	if d.DB != nil {
		d.DB.Close()
	}
}

type readinessChecker struct {
	db    *pgxpool.Pool
	redis *redis.Client
}

func (c readinessChecker) PingDB(ctx context.Context, timeout time.Duration) error {
	if c.db == nil {
		return health.ErrNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.db.Ping(ctx)
}

func (c readinessChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.redis == nil {
		return health.ErrNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.redis.Ping(ctx).Err()
}
