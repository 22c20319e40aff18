// Package initializer builds the application's infrastructure
// dependencies from configuration: logger, storage, event bus, cache and
// payment gateway.
package initializer

import (
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/amirasaad/payproc/infra"
	infracache "github.com/amirasaad/payproc/infra/cache"
	infraeventbus "github.com/amirasaad/payproc/infra/eventbus"
	infraeventstore "github.com/amirasaad/payproc/infra/eventstore"
	infraprovider "github.com/amirasaad/payproc/infra/provider"
	infratransaction "github.com/amirasaad/payproc/infra/repository/transaction"
	"github.com/amirasaad/payproc/pkg/app"
	"github.com/amirasaad/payproc/pkg/config"
	"github.com/amirasaad/payproc/pkg/eventbus"
	"github.com/amirasaad/payproc/pkg/provider"
)

// InitializeDependencies initializes all the application dependencies.
// Unset DATABASE_URL, KAFKA_BROKERS or REDIS_URL select the in-memory
// store, bus or cache respectively, so a bare `go run` works without any
// backing services.
func InitializeDependencies(cfg *config.App) (deps *app.Deps, err error) {
	deps = &app.Deps{}
	logger := setupLogger(cfg.Log)
	deps.Logger = logger

	// Storage: event log + read model
	if cfg.DB.Url != "" {
		db, err := infra.NewDBConnection(cfg.DB, cfg.Env)
		if err != nil {
			logger.Error("Failed to initialize database", "error", err)
			return nil, err
		}
		deps.DB = db
		deps.Store = infraeventstore.NewGormStore(db, logger)
		deps.ReadRepo = infratransaction.New(db)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory storage")
		deps.Store = infraeventstore.NewMemoryStore()
		deps.ReadRepo = infratransaction.NewMemory()
	}

	// Event bus
	var bus eventbus.Bus
	if cfg.Kafka.Brokers != "" {
		bus, err = infraeventbus.NewWithKafka(cfg.Kafka.Brokers, logger, &infraeventbus.KafkaEventBusConfig{
			GroupID:          cfg.Kafka.GroupID,
			TopicPrefix:      cfg.Kafka.TopicPrefix,
			DLQRetryInterval: cfg.Kafka.DLQRetryInterval,
			DLQBatchSize:     cfg.Kafka.DLQBatchSize,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka event bus: %w", err)
		}
	} else {
		logger.Warn("KAFKA_BROKERS not set, using in-memory event bus")
		bus = infraeventbus.NewWithMemory(logger)
	}
	deps.EventBus = bus

	// Read-model cache
	if cfg.Redis.URL != "" {
		opt, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		opt.PoolSize = cfg.Redis.PoolSize
		opt.DialTimeout = cfg.Redis.DialTimeout
		opt.ReadTimeout = cfg.Redis.ReadTimeout
		opt.WriteTimeout = cfg.Redis.WriteTimeout
		deps.Cache = infracache.NewRedisTransactionCacheWithOptions(opt, cfg.Redis.KeyPrefix, logger)
	} else {
		deps.Cache = infracache.NewMemoryCache()
	}

	// Payment gateway, always behind its own circuit breaker
	gateway, err := buildGateway(cfg.Gateway, logger)
	if err != nil {
		return nil, err
	}
	deps.Gateway = infraprovider.NewCircuitBreakerGateway(
		gateway,
		infraprovider.BreakerConfig{
			FailureThreshold: cfg.Gateway.BreakerFailureThreshold,
			OpenTimeout:      cfg.Gateway.BreakerOpenTimeout,
		},
		logger,
	)
	return deps, nil
}

func buildGateway(cfg *config.Gateway, logger *slog.Logger) (provider.PaymentGateway, error) {
	switch cfg.Provider {
	case "stripe":
		if cfg.Stripe == nil || cfg.Stripe.ApiKey == "" {
			return nil, fmt.Errorf("GATEWAY_STRIPE_API_KEY is required for the stripe gateway")
		}
		return infraprovider.NewStripeGateway(cfg.Stripe.ApiKey, cfg.Timeout, logger), nil
	case "mock", "":
		logger.Warn("using mock payment gateway, all charges succeed")
		return infraprovider.NewMockGateway(), nil
	default:
		return nil, fmt.Errorf("unknown gateway provider %q", cfg.Provider)
	}
}
