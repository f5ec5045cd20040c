package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type APIConfig struct {
	Port      int    `yaml:"port"`
	JWTSecret string `yaml:"jwt_secret"` // HMAC secret for the operations API
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type GatewayConfig struct {
	BaseURL       string `yaml:"base_url"`
	MerchantID    string `yaml:"merchant_id"`
	CallbackURL   string `yaml:"callback_url"`
	WebhookSecret string `yaml:"webhook_secret"` // HMAC key for webhook signatures
	Sandbox       bool   `yaml:"sandbox"`
}

type SweepConfig struct {
	PendingInterval    time.Duration `yaml:"pending_interval"`     // how often to re-verify stale pendings
	PendingStaleAfter  time.Duration `yaml:"pending_stale_after"`  // how old a pending payment must be to retry
	ActivationInterval time.Duration `yaml:"activation_interval"`  // how often to retry missed activations
	Workers            int           `yaml:"workers"`              // background task pool size
}

type Config struct {
	Log      LogConfig      `yaml:"log"`
	API      APIConfig      `yaml:"api"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	Sweep    SweepConfig    `yaml:"sweep"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig() (*Config, error) {
	var configPath string = ""
	var dev bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to config yaml")
	flag.BoolVar(&dev, "dev", false, "development mode")
	flag.Parse()

	b, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.API.Port <= 0 {
		cfg.API.Port = 8080
	}
	if cfg.Sweep.PendingInterval <= 0 {
		cfg.Sweep.PendingInterval = time.Minute
	}
	if cfg.Sweep.PendingStaleAfter <= 0 {
		cfg.Sweep.PendingStaleAfter = 10 * time.Minute
	}
	if cfg.Sweep.ActivationInterval <= 0 {
		cfg.Sweep.ActivationInterval = 5 * time.Minute
	}
	if cfg.Sweep.Workers <= 0 {
		cfg.Sweep.Workers = 8
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Gateway.MerchantID == "" {
		return nil, errors.New("gateway.merchant_id is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
