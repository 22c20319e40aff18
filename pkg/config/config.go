// Package config defines the application's environment-driven
// configuration and its loader.
package config

import (
	"time"
)

type DB struct {
	Url string `envconfig:"URL"`
}

type Kafka struct {
	// Brokers is a comma-separated broker list. Empty means the in-memory
	// bus is used instead of Kafka.
	Brokers          string        `envconfig:"BROKERS"`
	GroupID          string        `envconfig:"GROUP_ID" default:"payproc"`
	TopicPrefix      string        `envconfig:"TOPIC_PREFIX" default:""`
	DLQRetryInterval time.Duration `envconfig:"DLQ_RETRY_INTERVAL" default:"5m"`
	DLQBatchSize     int           `envconfig:"DLQ_BATCH_SIZE" default:"10"`
}

type Redis struct {
	URL          string        `envconfig:"URL"`
	KeyPrefix    string        `envconfig:"KEY_PREFIX" default:"txn:read:"`
	PoolSize     int           `envconfig:"POOL_SIZE" default:"10"`
	DialTimeout  time.Duration `envconfig:"DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"3s"`
}

type Cache struct {
	TTL time.Duration `envconfig:"TTL" default:"5m"`
}

type Coordinator struct {
	MaxRetries           uint64        `envconfig:"MAX_RETRIES" default:"3"`
	RetryInitialInterval time.Duration `envconfig:"RETRY_INITIAL_INTERVAL" default:"50ms"`
	MaxConcurrent        int64         `envconfig:"MAX_CONCURRENT" default:"25"`
}

//revive:disable
type Stripe struct {
	ApiKey string `envconfig:"API_KEY"`
}

//revive:enable

type Gateway struct {
	// Provider selects the gateway implementation: mock or stripe.
	Provider                string        `envconfig:"PROVIDER" default:"mock"`
	Timeout                 time.Duration `envconfig:"TIMEOUT" default:"30s"`
	BreakerFailureThreshold int           `envconfig:"BREAKER_FAILURE_THRESHOLD" default:"5"`
	BreakerOpenTimeout      time.Duration `envconfig:"BREAKER_OPEN_TIMEOUT" default:"30s"`
	Stripe                  *Stripe       `envconfig:"STRIPE"`
}

type Log struct {
	Level      int    `envconfig:"LEVEL" default:"0"`
	Format     string `envconfig:"FORMAT" default:"json"`
	TimeFormat string `envconfig:"TIME_FORMAT" default:"2006-01-02 15:04:05"`
	Prefix     string `envconfig:"PREFIX" default:"[payproc]"`
}

type App struct {
	Env         string       `envconfig:"APP_ENV" default:"development"`
	Log         *Log         `envconfig:"LOG"`
	DB          *DB          `envconfig:"DATABASE"`
	Kafka       *Kafka       `envconfig:"KAFKA"`
	Redis       *Redis       `envconfig:"REDIS"`
	Cache       *Cache       `envconfig:"CACHE"`
	Coordinator *Coordinator `envconfig:"COORDINATOR"`
	Gateway     *Gateway     `envconfig:"GATEWAY"`
}
