/*
Copyright (C) 2026 BlessChain Contributors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/blesschain/blessd/internal/chainspec"
	"github.com/blesschain/blessd/internal/db"
)

// Config covers process level configuration read from environment
// variables. Chain-level scheduling parameters (interval, pause
// windows, genesis) come from the chain spec; values here either select
// that spec or tune the node process around it.
type Config struct {
	Environment string
	ChainSpec   string // built-in id ("dev", "local") or spec file path
	StoragePath string // base path for the scheduler-state database

	// Scheduler state database
	DBBackend db.Backend
	DBDSN     string // optional; defaults to a sqlite file under StoragePath

	// Production interval override in seconds. Zero keeps the chain
	// spec's value. Bounded by the chain's valid range.
	BlockIntervalSeconds int

	// Retry behavior for failed production attempts
	RetryBudget          int
	RetryInitialMillis   int
	RetryMaxSeconds      int
	AttemptTimeoutMillis int

	// Ops HTTP server
	HTTPBind string
	HTTPPort int

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64

	// Multi-instance configuration
	LeaderElectionEnabled bool
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	InstanceID            string

	// NATS event bridge
	NATSEnabled bool
	NATSURL     string
}

// Load reads environment variables, applies defaults, and validates
// the result. Validation failures here must keep the process from ever
// entering the production loop.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("BLESSD_ENV", "development"),
		ChainSpec:   getEnv("BLESSD_CHAIN_SPEC", "dev"),
		StoragePath: getEnv("BLESSD_STORAGE_PATH", "./data"),

		DBBackend: db.Backend(getEnv("BLESSD_DB_BACKEND", string(db.BackendSQLite))),
		DBDSN:     getEnv("BLESSD_DB_DSN", ""),

		BlockIntervalSeconds: getEnvInt("BLESSD_BLOCK_INTERVAL_SECONDS", 0),

		RetryBudget:          getEnvInt("BLESSD_RETRY_BUDGET", 5),
		RetryInitialMillis:   getEnvInt("BLESSD_RETRY_INITIAL_MS", 500),
		RetryMaxSeconds:      getEnvInt("BLESSD_RETRY_MAX_SECONDS", 30),
		AttemptTimeoutMillis: getEnvInt("BLESSD_ATTEMPT_TIMEOUT_MS", 0),

		HTTPBind: getEnv("BLESSD_HTTP_BIND", "127.0.0.1"),
		HTTPPort: getEnvInt("BLESSD_HTTP_PORT", 9955),

		TracingEnabled:    getEnvBool("BLESSD_TRACING_ENABLED", false),
		OTLPEndpoint:      getEnv("BLESSD_OTLP_ENDPOINT", "localhost:4317"),
		TracingSampleRate: getEnvFloat("BLESSD_TRACING_SAMPLE_RATE", 1.0),

		LeaderElectionEnabled: getEnvBool("BLESSD_LEADER_ELECTION_ENABLED", false),
		RedisAddr:             getEnv("BLESSD_REDIS_ADDR", "localhost:6379"),
		RedisPassword:         getEnv("BLESSD_REDIS_PASSWORD", ""),
		RedisDB:               getEnvInt("BLESSD_REDIS_DB", 0),
		InstanceID:            getEnv("BLESSD_INSTANCE_ID", ""),

		NATSEnabled: getEnvBool("BLESSD_NATS_ENABLED", false),
		NATSURL:     getEnv("BLESSD_NATS_URL", "nats://localhost:4222"),
	}

	switch cfg.DBBackend {
	case db.BackendSQLite, db.BackendPostgres, db.BackendMySQL:
	default:
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.DBBackend != db.BackendSQLite && cfg.DBDSN == "" {
		return nil, fmt.Errorf("BLESSD_DB_DSN must be provided for backend %q", cfg.DBBackend)
	}

	if cfg.StoragePath == "" {
		return nil, fmt.Errorf("BLESSD_STORAGE_PATH must not be empty")
	}

	if cfg.BlockIntervalSeconds != 0 {
		iv := time.Duration(cfg.BlockIntervalSeconds) * time.Second
		if iv < chainspec.MinBlockInterval || iv > chainspec.MaxBlockInterval {
			return nil, fmt.Errorf("block interval %s outside valid range [%s, %s]",
				iv, chainspec.MinBlockInterval, chainspec.MaxBlockInterval)
		}
	}

	if cfg.RetryBudget < 1 {
		return nil, fmt.Errorf("BLESSD_RETRY_BUDGET must be at least 1")
	}

	return cfg, nil
}

// DSN returns the scheduler-state database DSN, defaulting to a
// dedicated sqlite file under the storage path.
func (c *Config) DSN() string {
	if c.DBDSN != "" {
		return c.DBDSN
	}
	return filepath.Join(c.StoragePath, "scheduler.db")
}

// Interval resolves the effective block interval given the chain spec.
func (c *Config) Interval(spec chainspec.Spec) time.Duration {
	if c.BlockIntervalSeconds != 0 {
		return time.Duration(c.BlockIntervalSeconds) * time.Second
	}
	return spec.Interval()
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(strings.TrimSpace(val))
		if val == "true" || val == "1" || val == "yes" {
			return true
		}
		if val == "false" || val == "0" || val == "no" {
			return false
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return def
}
