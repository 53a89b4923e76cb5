package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	StorageMySQL  = "mysql"
	StorageMemory = "memory"
)

type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`
	GRPCAddr string `env:"GRPC_ADDR" envDefault:":50051"`

	Storage              string        `env:"STORAGE" envDefault:"mysql"`
	MySQLDSN             string        `env:"MYSQL_DSN" envDefault:"root:root@tcp(localhost:3306)/beerorders"`
	MySQLMaxOpenConns    int           `env:"MYSQL_MAX_OPEN_CONNS" envDefault:"50"`
	MySQLMaxIdleConns    int           `env:"MYSQL_MAX_IDLE_CONNS" envDefault:"25"`
	MySQLConnMaxLifetime time.Duration `env:"MYSQL_CONN_MAX_LIFETIME" envDefault:"5m"`
	MigrateOnStart       bool          `env:"MIGRATE_ON_START" envDefault:"true"`

	// RedisAddr empty disables the beer cache and idempotency keys.
	RedisAddr      string        `env:"REDIS_ADDR"`
	BeerCacheTTL   time.Duration `env:"BEER_CACHE_TTL" envDefault:"5m"`
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`

	HealthInterval  time.Duration `env:"HEALTH_INTERVAL" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`

	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	LogDevelopment bool   `env:"LOG_DEVELOPMENT" envDefault:"false"`
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	switch cfg.Storage {
	case StorageMySQL, StorageMemory:
	default:
		return Config{}, fmt.Errorf("invalid STORAGE %q: want %s or %s", cfg.Storage, StorageMySQL, StorageMemory)
	}
	if cfg.HealthInterval <= 0 {
		return Config{}, fmt.Errorf("invalid HEALTH_INTERVAL %s", cfg.HealthInterval)
	}
	return cfg, nil
}
