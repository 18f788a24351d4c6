package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `
environment: test
broker:
  gateway_url: ws://localhost:5000/ws
kafka:
  brokers: ["localhost:9092"]
clickhouse:
  host: localhost
redis:
  addr: localhost:6379
`

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Trading.Cooldown != 300*time.Second {
		t.Fatalf("cooldown default: %v", cfg.Trading.Cooldown)
	}
	if cfg.Trading.MaxOpenPositions != 20 {
		t.Fatalf("max open positions default: %d", cfg.Trading.MaxOpenPositions)
	}
	if cfg.Trading.Mode != ModeSimulation {
		t.Fatalf("mode default: %s", cfg.Trading.Mode)
	}
	if cfg.Kafka.OrderStatusTopic == "" || cfg.Kafka.FillTopic == "" {
		t.Fatalf("topic defaults missing")
	}
}

func TestLoadValidates(t *testing.T) {
	bad := minimalConfig + `
trading:
  mode: yolo
`
	if _, err := Load(writeConfig(t, bad)); err == nil {
		t.Fatalf("invalid mode must fail validation")
	}

	bad = minimalConfig + `
trading:
  market_open_hour: 22
  market_close_hour: 13
`
	if _, err := Load(writeConfig(t, bad)); err == nil {
		t.Fatalf("inverted market hours must fail validation")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("TRADING_MODE", "live")
	t.Setenv("REDIS_ADDR", "redis.internal:6379")

	cfg, err := LoadWithEnv(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Trading.Mode != ModeLive {
		t.Fatalf("env override mode: %s", cfg.Trading.Mode)
	}
	if cfg.Redis.Addr != "redis.internal:6379" {
		t.Fatalf("env override redis: %s", cfg.Redis.Addr)
	}
}
