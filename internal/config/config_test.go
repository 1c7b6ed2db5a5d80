package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFillsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":8090" {
		t.Fatalf("addr default mismatch: %q", cfg.Server.Addr)
	}
	if cfg.Run.Interval != "1h" || cfg.Run.HistoryBars != 1500 {
		t.Fatalf("run defaults mismatch: %+v", cfg.Run)
	}
	if cfg.Binance.HTTPTimeout() != 15*time.Second {
		t.Fatalf("timeout default mismatch: %v", cfg.Binance.HTTPTimeout())
	}
}

func TestLoadTOMLOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
[server]
addr = ":9999"

[run]
symbols = ["ethusdt", "BTCUSDT"]
interval = "15m"
refresh = "1m"

[store]
path = "/tmp/sig.db"
`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":9999" {
		t.Fatalf("addr override mismatch: %q", cfg.Server.Addr)
	}
	if len(cfg.Run.Symbols) != 2 || cfg.Run.Interval != "15m" {
		t.Fatalf("run override mismatch: %+v", cfg.Run)
	}
	if cfg.Store.Path != "/tmp/sig.db" {
		t.Fatalf("store override mismatch: %q", cfg.Store.Path)
	}
	// untouched sections still get defaults
	if cfg.Store.MaxBars != 3000 || cfg.Run.HistoryBars != 1500 {
		t.Fatalf("defaults not filled: %+v", cfg)
	}
}

func TestLoadRejectsBadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("server = {"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("malformed TOML must be rejected")
	}
}
