/*
Copyright (C) 2026 BlessChain Contributors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/blesschain/blessd/internal/chainspec"
	"github.com/blesschain/blessd/internal/db"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ChainSpec != "dev" {
		t.Errorf("chain spec = %q, want dev", cfg.ChainSpec)
	}
	if cfg.DBBackend != db.BackendSQLite {
		t.Errorf("db backend = %q, want sqlite", cfg.DBBackend)
	}
	if cfg.RetryBudget != 5 {
		t.Errorf("retry budget = %d, want 5", cfg.RetryBudget)
	}
	if cfg.RetryInitialMillis != 500 {
		t.Errorf("retry initial = %dms, want 500ms", cfg.RetryInitialMillis)
	}
	if want := filepath.Join("./data", "scheduler.db"); cfg.DSN() != want {
		t.Errorf("default DSN = %q, want %q", cfg.DSN(), want)
	}
}

func TestLoadReadsEnv(t *testing.T) {
	t.Setenv("BLESSD_CHAIN_SPEC", "local")
	t.Setenv("BLESSD_BLOCK_INTERVAL_SECONDS", "3")
	t.Setenv("BLESSD_RETRY_BUDGET", "2")
	t.Setenv("BLESSD_DB_DSN", "/tmp/custom.db")
	t.Setenv("BLESSD_LEADER_ELECTION_ENABLED", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ChainSpec != "local" {
		t.Errorf("chain spec = %q, want local", cfg.ChainSpec)
	}
	if cfg.RetryBudget != 2 {
		t.Errorf("retry budget = %d, want 2", cfg.RetryBudget)
	}
	if cfg.DSN() != "/tmp/custom.db" {
		t.Errorf("DSN = %q, want /tmp/custom.db", cfg.DSN())
	}
	if !cfg.LeaderElectionEnabled {
		t.Error("leader election should be enabled")
	}
	if got := cfg.Interval(chainspec.Local()); got != 3*time.Second {
		t.Errorf("interval override = %s, want 3s", got)
	}
}

func TestIntervalFallsBackToSpec(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if got := cfg.Interval(chainspec.Local()); got != 7*time.Second {
		t.Errorf("interval = %s, want spec's 7s", got)
	}
}

func TestLoadRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown backend", "BLESSD_DB_BACKEND", "oracle"},
		{"interval below minimum", "BLESSD_BLOCK_INTERVAL_SECONDS", "1"},
		{"interval above maximum", "BLESSD_BLOCK_INTERVAL_SECONDS", "8"},
		{"zero retry budget", "BLESSD_RETRY_BUDGET", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Error("expected config load to fail")
			}
		})
	}
}

func TestLoadRequiresDSNForServerBackends(t *testing.T) {
	t.Setenv("BLESSD_DB_BACKEND", "postgres")
	if _, err := Load(); err == nil {
		t.Fatal("expected postgres without DSN to fail")
	}

	t.Setenv("BLESSD_DB_DSN", "host=localhost user=bless dbname=bless sslmode=disable")
	if _, err := Load(); err != nil {
		t.Fatalf("expected postgres with DSN to load: %v", err)
	}
}
