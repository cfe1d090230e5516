package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleConfig = `
system:
  name: icarus
  environment: development
database:
  host: ${ICARUS_TEST_DB_HOST:db.local}
  port: 5432
  user: ${ICARUS_TEST_DB_USER}
  password: secret
  name: icarus
trading:
  mode: paper
  initial_capital: 10000
  position_size_pct: 20
  performance_interval: 15m
  symbols: [BTCUSDT]
risk:
  check_interval: 5s
strategies:
  - name: momentum-btc
    type: momentum
    symbol: BTCUSDT
    enabled: true
    params:
      short_window: "10"
      long_window: "30"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	os.Unsetenv("ICARUS_TEST_DB_HOST")
	os.Setenv("ICARUS_TEST_DB_USER", "trader")
	defer os.Unsetenv("ICARUS_TEST_DB_USER")

	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Database.Host != "db.local" {
		t.Errorf("default interpolation: expected db.local, got %s", cfg.Database.Host)
	}
	if cfg.Database.User != "trader" {
		t.Errorf("env interpolation: expected trader, got %s", cfg.Database.User)
	}
	if cfg.Trading.PerformanceInterval.Std() != 15*time.Minute {
		t.Errorf("duration: expected 15m, got %v", cfg.Trading.PerformanceInterval.Std())
	}
	if len(cfg.Strategies) != 1 || cfg.Strategies[0].Params["short_window"] != "10" {
		t.Errorf("strategies not parsed: %+v", cfg.Strategies)
	}
	// Defaults survive a partial file.
	if cfg.Risk.MaxDailyLossPct.String() != "5" {
		t.Errorf("expected default daily loss 5, got %s", cfg.Risk.MaxDailyLossPct)
	}
}

func TestLoad_EnvOverridesDefault(t *testing.T) {
	os.Setenv("ICARUS_TEST_DB_HOST", "db.prod")
	os.Setenv("ICARUS_TEST_DB_USER", "trader")
	defer os.Unsetenv("ICARUS_TEST_DB_HOST")
	defer os.Unsetenv("ICARUS_TEST_DB_USER")

	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Host != "db.prod" {
		t.Errorf("expected db.prod, got %s", cfg.Database.Host)
	}
}

func TestValidate_LiveNeedsConfirmation(t *testing.T) {
	live := strings.Replace(sampleConfig, "mode: paper", "mode: live", 1)

	if _, err := Load(writeConfig(t, live)); err == nil {
		t.Error("live mode without live_trading_confirmed must fail validation")
	}
}

func TestValidate_LiveNeedsCredentials(t *testing.T) {
	live := strings.Replace(sampleConfig, "mode: paper",
		"mode: live\n  live_trading_confirmed: true", 1)

	if _, err := Load(writeConfig(t, live)); err == nil {
		t.Error("live mode without credentials must fail validation")
	}
}

func TestValidate_RejectsBadMode(t *testing.T) {
	bad := "trading:\n  mode: dry-run\n  initial_capital: 1000\n  position_size_pct: 10\n  symbols: [BTCUSDT]\n"
	if _, err := Load(writeConfig(t, bad)); err == nil {
		t.Error("unknown trading mode must fail validation")
	}
}
