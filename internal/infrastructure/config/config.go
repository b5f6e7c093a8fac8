package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
	LogLevel    string `koanf:"log_level"`

	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Redis    RedisConfig    `koanf:"redis"`

	Fraud FraudConfig `koanf:"fraud"`
	Trust TrustConfig `koanf:"trust"`
	Geo   GeoConfig   `koanf:"geo"`
}

type ServerConfig struct {
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	RateLimit RateLimitConfig `koanf:"rate_limit"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `koanf:"requests_per_second"`
	BurstSize         int `koanf:"burst_size"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

type RedisConfig struct {
	URL      string `koanf:"url"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// FraudConfig carries the detection thresholds. Zero values fall back to the
// rule defaults at wiring time.
type FraudConfig struct {
	GiftWindow          time.Duration `koanf:"gift_window"`
	GiftThreshold       int           `koanf:"gift_threshold"`
	LoginIPWindow       time.Duration `koanf:"login_ip_window"`
	LoginIPThreshold    int           `koanf:"login_ip_threshold"`
	CoPresenceThreshold int           `koanf:"co_presence_threshold"`
	LoginLookback       time.Duration `koanf:"login_lookback"`
	MaxCycleHops        int           `koanf:"max_cycle_hops"`
	PairVolumeThreshold int           `koanf:"pair_volume_threshold"`
	UnknownSenderLimit  int64         `koanf:"unknown_sender_limit"`
	ScanWindow          time.Duration `koanf:"scan_window"`

	Route RouteConfig `koanf:"route"`
}

// RouteConfig names a watched sender/recipient route. Empty IDs disable the
// rule.
type RouteConfig struct {
	FromUserID string `koanf:"from_user_id"`
	ToUserID   string `koanf:"to_user_id"`
	Threshold  int    `koanf:"threshold"`
}

type TrustConfig struct {
	RescoreInterval time.Duration `koanf:"rescore_interval"`
}

type GeoConfig struct {
	DatabasePath string `koanf:"database_path"`
}

const defaultConfigPath = "configs/config.yaml"

// Load reads configuration from defaults, an optional YAML file, and
// TG_-prefixed environment variables, in that precedence order.
func Load() (*Config, error) {
	return loadFrom(defaultConfigPath)
}

func loadFrom(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := &Config{
		Version:     "dev",
		Environment: "development",
		LogLevel:    "info",
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RateLimit: RateLimitConfig{
				RequestsPerSecond: 100,
				BurstSize:         200,
			},
		},
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			DB: 0,
		},
		Fraud: FraudConfig{
			GiftWindow:          time.Minute,
			GiftThreshold:       100,
			LoginIPWindow:       5 * time.Minute,
			LoginIPThreshold:    20,
			CoPresenceThreshold: 5,
			LoginLookback:       30 * time.Minute,
			MaxCycleHops:        3,
			PairVolumeThreshold: 4,
			UnknownSenderLimit:  1000,
			ScanWindow:          24 * time.Hour,
		},
		Trust: TrustConfig{
			RescoreInterval: 90 * 24 * time.Hour,
		},
	}

	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	// A missing config file is fine; a malformed one is not.
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading config file %s: %w", path, err)
	}

	// Environment variables win over file values
	if err := k.Load(env.Provider("TG_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "TG_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
