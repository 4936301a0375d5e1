package main

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/shoreline-pay/ledgercore/internal/platform/config"
)

// Config holds every env-tagged knob ledgerd needs to start.
type Config struct {
	HTTPAddr string `env:"HTTP_ADDR"`
	LogLevel string `env:"LOG_LEVEL"`

	PostgresPrimaryDSN string `env:"POSTGRES_PRIMARY_DSN,required"`
	PostgresReplicaDSN string `env:"POSTGRES_REPLICA_DSN,required"`
	PostgresDBName     string `env:"POSTGRES_DB_NAME,required"`
	MigrationsPath     string `env:"MIGRATIONS_PATH"`

	RedisURL string `env:"REDIS_URL,required"`

	MongoURL      string `env:"MONGO_URL,required"`
	MongoDatabase string `env:"MONGO_DATABASE"`

	RabbitMQURL      string `env:"RABBITMQ_URL,required"`
	RabbitMQExchange string `env:"RABBITMQ_EXCHANGE"`
	WalletQueueName  string `env:"WALLET_QUEUE_NAME"`

	JWTSecret string `env:"JWT_SECRET,required"`

	PermissionOracleURL string `env:"PERMISSION_ORACLE_URL"`

	DefaultFeePercent string `env:"DEFAULT_FEE_PERCENT"`

	SagaHeartbeatSeconds        int64 `env:"SAGA_HEARTBEAT_SECONDS"`
	SagaStuckThresholdSeconds   int64 `env:"SAGA_STUCK_THRESHOLD_SECONDS"`
	RecoveryScanIntervalSeconds int64 `env:"RECOVERY_SCAN_INTERVAL_SECONDS"`
	RecoveryMaxConcurrent       int64 `env:"RECOVERY_MAX_CONCURRENT"`
}

// applyDefaults fills in every field FromEnv left at its zero value with the
// same defaults spec §5/§6 suggest (H=5s, TStuck=30s).
func (c *Config) applyDefaults() {
	if c.HTTPAddr == "" {
		c.HTTPAddr = ":8080"
	}

	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	if c.MigrationsPath == "" {
		c.MigrationsPath = "./migrations"
	}

	if c.MongoDatabase == "" {
		c.MongoDatabase = "ledgercore"
	}

	if c.RabbitMQExchange == "" {
		c.RabbitMQExchange = "ledgercore.events"
	}

	if c.WalletQueueName == "" {
		c.WalletQueueName = "ledgercore.wallet-projection"
	}

	if c.DefaultFeePercent == "" {
		c.DefaultFeePercent = "0"
	}

	if c.SagaHeartbeatSeconds == 0 {
		c.SagaHeartbeatSeconds = 5
	}

	if c.SagaStuckThresholdSeconds == 0 {
		c.SagaStuckThresholdSeconds = 30
	}

	if c.RecoveryScanIntervalSeconds == 0 {
		c.RecoveryScanIntervalSeconds = 10
	}

	if c.RecoveryMaxConcurrent == 0 {
		c.RecoveryMaxConcurrent = 8
	}
}

func (c *Config) heartbeatInterval() time.Duration {
	return time.Duration(c.SagaHeartbeatSeconds) * time.Second
}

func (c *Config) stuckThreshold() time.Duration {
	return time.Duration(c.SagaStuckThresholdSeconds) * time.Second
}

func (c *Config) recoveryScanInterval() time.Duration {
	return time.Duration(c.RecoveryScanIntervalSeconds) * time.Second
}

func (c *Config) defaultFeeRate() (decimal.Decimal, error) {
	return decimal.NewFromString(c.DefaultFeePercent)
}

// loadConfig reads Config from the environment, applying defaults to every
// optional field FromEnv leaves unset.
func loadConfig() (*Config, error) {
	var c Config
	if err := config.FromEnv(&c); err != nil {
		return nil, err
	}

	c.applyDefaults()

	return &c, nil
}
