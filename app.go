package main

import (
	"context"

	"licensepro-backend/clock"
	"licensepro-backend/config"
	"licensepro-backend/currency"
	"licensepro-backend/lock"
	"licensepro-backend/mailer"
	"licensepro-backend/metrics"
	"licensepro-backend/models"
	"licensepro-backend/services"
	"licensepro-backend/sms"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// app holds the wired process dependencies shared by every command.
type app struct {
	cfg      config.Config
	log      *zap.Logger
	db       *gorm.DB
	clock    clock.Clock
	store    *services.NotificationStore
	settings *services.SettingsService
	currency *currency.Service
	metrics  *metrics.NotificationMetrics
	notifier *services.NotificationService
	redis    *redis.Client
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, errors.Wrap(err, "loading configuration")
	}

	log, err := config.NewLogger(cfg.LogLevel, cfg.Env)
	if err != nil {
		return nil, err
	}

	db, err := config.ConnectDB(cfg.DB, log)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		return nil, errors.Wrap(err, "migrating database")
	}

	clk := clock.New()
	a := &app{
		cfg:      cfg,
		log:      log,
		db:       db,
		clock:    clk,
		store:    services.NewNotificationStore(db, cfg.Notify.ClaimTTL, clk),
		settings: services.NewSettingsService(db, cfg),
		currency: currency.NewService(db, cfg.Currency.RateMaxAge),
		metrics:  metrics.New(),
	}

	if err := a.currency.SeedDefaults(ctx, clk.Now()); err != nil {
		return nil, err
	}

	backend, err := mailer.NewBackend(cfg.SMTP, log)
	if err != nil {
		return nil, err
	}

	locker, err := a.newLocker(ctx)
	if err != nil {
		return nil, err
	}

	deps := services.NotificationDeps{
		Store:    a.store,
		Settings: a.settings,
		Mailer:   backend,
		Rates:    a.currency,
		Locker:   locker,
		Metrics:  a.metrics,
		Clock:    clk,
		Logger:   log,
		Admin:    cfg.Admin,
		SMTP:     cfg.SMTP,
	}
	if sender := sms.NewTwilioSender(cfg.Twilio, log); sender != nil {
		deps.SMS = sender
	}
	a.notifier = services.NewNotificationService(deps)

	return a, nil
}

// newLocker uses Redis when REDIS_ADDR is set so that several processes
// share one run lock.
func (a *app) newLocker(ctx context.Context) (lock.Locker, error) {
	if a.cfg.Redis.Addr == "" {
		a.log.Info("REDIS_ADDR not set, using in-process run lock")
		return lock.NewLocalLocker(), nil
	}

	a.redis = redis.NewClient(&redis.Options{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
	if err := a.redis.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrapf(err, "connecting to redis at %s", a.cfg.Redis.Addr)
	}
	return lock.NewRedisLocker(a.redis), nil
}

func (a *app) close() {
	if a.redis != nil {
		a.redis.Close()
	}
	if sqlDB, err := a.db.DB(); err == nil {
		sqlDB.Close()
	}
	a.log.Sync()
}
