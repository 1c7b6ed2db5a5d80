package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config 是进程级配置，来自 TOML 文件。
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Binance BinanceConfig `toml:"binance"`
	Store   StoreConfig   `toml:"store"`
	Run     RunConfig     `toml:"run"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type BinanceConfig struct {
	APIKey             string `toml:"api_key"`
	SecretKey          string `toml:"secret_key"`
	RESTBaseURL        string `toml:"rest_base_url"`
	HTTPTimeoutSeconds int    `toml:"http_timeout_seconds"`
}

type StoreConfig struct {
	Path    string `toml:"path"`
	MaxBars int    `toml:"max_bars"`
}

type RunConfig struct {
	Symbols      []string `toml:"symbols"`
	Interval     string   `toml:"interval"`
	HistoryBars  int      `toml:"history_bars"`
	Refresh      string   `toml:"refresh"`
	ProfilesPath string   `toml:"profiles_path"`
}

// Load 读取并补全配置；path 为空时返回纯默认值。
func Load(path string) (Config, error) {
	var cfg Config
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("读取配置失败: %w", err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("解析配置失败: %w", err)
		}
	}
	cfg.Normalize()
	return cfg, nil
}

// Normalize 为缺省字段填入默认值。
func (c *Config) Normalize() {
	if strings.TrimSpace(c.Server.Addr) == "" {
		c.Server.Addr = ":8090"
	}
	if strings.TrimSpace(c.Binance.RESTBaseURL) == "" {
		c.Binance.RESTBaseURL = "https://fapi.binance.com"
	}
	if c.Binance.HTTPTimeoutSeconds <= 0 {
		c.Binance.HTTPTimeoutSeconds = 15
	}
	if strings.TrimSpace(c.Store.Path) == "" {
		c.Store.Path = "data/signals.db"
	}
	if c.Store.MaxBars <= 0 {
		c.Store.MaxBars = 3000
	}
	if len(c.Run.Symbols) == 0 {
		c.Run.Symbols = []string{"BTCUSDT"}
	}
	if strings.TrimSpace(c.Run.Interval) == "" {
		c.Run.Interval = "1h"
	}
	if c.Run.HistoryBars <= 0 {
		c.Run.HistoryBars = 1500
	}
	if strings.TrimSpace(c.Run.Refresh) == "" {
		c.Run.Refresh = "5m"
	}
	if strings.TrimSpace(c.Run.ProfilesPath) == "" {
		c.Run.ProfilesPath = "profiles.yaml"
	}
}

// HTTPTimeout 返回超时的 time.Duration 形式。
func (b BinanceConfig) HTTPTimeout() time.Duration {
	return time.Duration(b.HTTPTimeoutSeconds) * time.Second
}
