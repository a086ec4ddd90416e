package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

type Config struct {
	Target struct {
		ExtraBlockedHosts []string `json:"extra_blocked_hosts"`
		KnownTLDs         []string `json:"known_tlds"`
	} `json:"target"`

	RateLimit struct {
		Store                string `json:"store"`
		TrustProxyHeaders    bool   `json:"trust_proxy_headers"`
		MaxTrackedKeys       int    `json:"max_tracked_keys"`
		SweepIntervalSeconds uint32 `json:"sweep_interval_seconds"`
	} `json:"rate_limit"`

	Auth struct {
		TokenTTLHours        uint32 `json:"token_ttl_hours"`
		ResetTokenTTLMinutes uint32 `json:"reset_token_ttl_minutes"`
	} `json:"auth"`

	ScanQueue struct {
		Key string `json:"key"`
	} `json:"scan_queue"`
}

const (
	StoreMemory = "memory"
	StoreRedis  = "redis"

	settingsFilePath = "data/settings.json"
)

var (
	//go:embed default_settings.json
	defaultConfig []byte

	configValue atomic.Value

	InProductionMode bool
)

func init() {
	cfg, err := parseConfig(defaultConfig)
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults are invalid: %v", err))
	}
	configValue.Store(cfg)
}

// ReadSettings loads data/settings.json, writing the embedded defaults first
// when the file does not exist. The result is fixed for the process lifetime.
func ReadSettings() error {
	return readSettingsFrom(settingsFilePath)
}

func readSettingsFrom(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("config: read settings: %w", err)
		}

		log.Warn("Settings file not found, creating with default configuration", "path", path)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("config: create settings directory: %w", err)
		}
		if err := os.WriteFile(path, defaultConfig, 0o644); err != nil {
			return fmt.Errorf("config: write default settings: %w", err)
		}
		data = defaultConfig
	}

	cfg, err := parseConfig(data)
	if err != nil {
		return err
	}

	configValue.Store(cfg)
	log.Debug("Settings file loaded successfully", "path", path)
	return nil
}

func parseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal settings: %w", err)
	}

	cfg.Target.ExtraBlockedHosts = NormalizeBlockedHosts(cfg.Target.ExtraBlockedHosts)
	cfg.RateLimit.Store = strings.ToLower(strings.TrimSpace(cfg.RateLimit.Store))
	if cfg.RateLimit.Store == "" {
		cfg.RateLimit.Store = StoreMemory
	}
	if cfg.RateLimit.Store != StoreMemory && cfg.RateLimit.Store != StoreRedis {
		return Config{}, errors.New("config: rate_limit.store must be \"memory\" or \"redis\"")
	}
	if strings.TrimSpace(cfg.ScanQueue.Key) == "" {
		cfg.ScanQueue.Key = "scangate:scans:pending"
	}

	return cfg, nil
}

func GetConfig() Config {
	return configValue.Load().(Config)
}

// SetConfigForTests swaps the active configuration and returns a restore func.
func SetConfigForTests(cfg Config) func() {
	previous := GetConfig()
	configValue.Store(cfg)
	return func() { configValue.Store(previous) }
}

func SetProductionMode(productionMode bool) {
	InProductionMode = productionMode
}

func (c Config) SweepInterval() time.Duration {
	if c.RateLimit.SweepIntervalSeconds == 0 {
		return time.Minute
	}
	return time.Duration(c.RateLimit.SweepIntervalSeconds) * time.Second
}

func (c Config) TokenTTL() time.Duration {
	if c.Auth.TokenTTLHours == 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Auth.TokenTTLHours) * time.Hour
}

func (c Config) ResetTokenTTL() time.Duration {
	if c.Auth.ResetTokenTTLMinutes == 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.Auth.ResetTokenTTLMinutes) * time.Minute
}
