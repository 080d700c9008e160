// cmd/server/app.go
package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Isadevans/lucro-backend/internal/config"
	"github.com/Isadevans/lucro-backend/internal/realtime"
	"github.com/Isadevans/lucro-backend/internal/repository"
	"github.com/Isadevans/lucro-backend/internal/service"
	"github.com/Isadevans/lucro-backend/pkg/database"
	"github.com/Isadevans/lucro-backend/pkg/logger"
	"github.com/Isadevans/lucro-backend/pkg/redis"
)

// app owns every long-lived dependency. Commands build one and Close it.
type app struct {
	cfg *config.Config
	log *zap.Logger

	store       repository.Store
	redisClient *redis.Client

	hub         *realtime.Hub
	broadcaster *realtime.Broadcaster
	notifier    service.Notifier

	builder     *service.PayloadBuilder
	attribution *service.AttributionClient
	gateway     *service.GatewayClient
	payments    *service.PaymentService
	reconciler  *service.Reconciler
}

func loadApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(serviceName, cfg.Environment, cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log}
	if err := a.init(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) init(ctx context.Context) error {
	store, err := openStore(ctx, a.cfg)
	if err != nil {
		return err
	}
	a.store = store
	a.log.Info("store ready", zap.String("driver", a.cfg.StoreDriver))

	var locker service.Locker = service.NewKeyedMutex()
	var idempotency *service.IdempotencyCache
	a.hub = realtime.NewHub(a.log)
	a.notifier = a.hub

	if a.cfg.RedisURL != "" {
		client, err := redis.NewRedisClient(a.cfg.RedisURL)
		if err != nil {
			return err
		}
		a.redisClient = client
		if err := client.Ping(ctx); err != nil {
			return err
		}

		locker = redis.NewLocker(client, "lucro:lock:transaction", a.cfg.LockTTL, a.log)
		idempotency = service.NewIdempotencyCache(client, a.log)
		a.broadcaster = realtime.NewBroadcaster(client, a.hub, a.log)
		a.notifier = a.broadcaster
		a.log.Info("redis enabled for locks, idempotency and room fan-out")
	}

	a.builder = service.NewPayloadBuilder(a.store, a.cfg.Environment, a.log)
	a.attribution = service.NewAttributionClient(a.cfg.UTMifyAPIURL, a.cfg.UTMifyAPIToken, a.builder, a.cfg.HTTPClientTimeout, a.log)
	a.gateway = service.NewGatewayClient(
		a.cfg.BlackoutAPIURL,
		a.cfg.BlackoutPublicKey,
		a.cfg.BlackoutSecretKey,
		a.cfg.PostbackURL(),
		a.cfg.HTTPClientTimeout,
		a.log,
	)
	a.payments = service.NewPaymentService(a.store, a.gateway, a.attribution, idempotency, a.cfg.Environment, a.log)
	a.reconciler = service.NewReconciler(a.store, a.attribution, a.notifier, locker, a.log)

	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return repository.NewPostgresStore(db.DB), nil
	case config.DriverMongo:
		return repository.NewMongoStore(ctx, cfg.MongoURL, cfg.MongoDatabase)
	case config.DriverMemory:
		return repository.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("failed to close store", zap.Error(err))
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Warn("failed to close redis", zap.Error(err))
		}
	}
	a.log.Sync()
}
