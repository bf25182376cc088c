package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the full configuration shared by both services.
type Config struct {
	Database struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"database"`
	} `yaml:"database"`

	RabbitMQ struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
	} `yaml:"rabbitmq"`

	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Services struct {
		MarketplacePort  int `yaml:"marketplace_port"`
		NotificationPort int `yaml:"notification_port"`
	} `yaml:"services"`

	JWT struct {
		SecretKey string `yaml:"secret_key"`
	} `yaml:"jwt"`

	Matching struct {
		DefaultRadiusMeters float64 `yaml:"default_radius_meters"`
		MaxPageSize         int     `yaml:"max_page_size"`
		// RefineScanCap bounds how many pickup matches the
		// refine-by-dropoff second pass will scan.
		RefineScanCap int `yaml:"refine_scan_cap"`
	} `yaml:"matching"`
}

// LoadFromFile loads config from a YAML file, applies env overrides for
// secrets, defaults, and validates required fields.
func LoadFromFile(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyEnvOverrides lets deployments inject secrets without editing the file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("RABBITMQ_PASSWORD"); v != "" {
		cfg.RabbitMQ.Password = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWT.SecretKey = v
	}
}

// applyDefaults sets safe defaults for some fields.
func applyDefaults(cfg *Config) {
	// Database
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}

	// RabbitMQ
	if cfg.RabbitMQ.Host == "" {
		cfg.RabbitMQ.Host = "localhost"
	}
	if cfg.RabbitMQ.Port == 0 {
		cfg.RabbitMQ.Port = 5672
	}

	// Redis
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}

	// Services
	if cfg.Services.MarketplacePort == 0 {
		cfg.Services.MarketplacePort = 3000
	}
	if cfg.Services.NotificationPort == 0 {
		cfg.Services.NotificationPort = 3001
	}

	// Matching
	if cfg.Matching.DefaultRadiusMeters <= 0 {
		cfg.Matching.DefaultRadiusMeters = 5000
	}
	if cfg.Matching.MaxPageSize <= 0 {
		cfg.Matching.MaxPageSize = 100
	}
	if cfg.Matching.RefineScanCap <= 0 {
		cfg.Matching.RefineScanCap = 500
	}
}

// validate rejects configurations that cannot possibly work.
func (cfg *Config) validate() error {
	var errs []error

	if strings.TrimSpace(cfg.Database.User) == "" {
		errs = append(errs, errors.New("database.user is required"))
	}
	if strings.TrimSpace(cfg.Database.Name) == "" {
		errs = append(errs, errors.New("database.database is required"))
	}
	if strings.TrimSpace(cfg.RabbitMQ.User) == "" {
		errs = append(errs, errors.New("rabbitmq.user is required"))
	}
	if strings.TrimSpace(cfg.JWT.SecretKey) == "" {
		errs = append(errs, errors.New("jwt.secret_key is required (file or JWT_SECRET env)"))
	}
	if cfg.Services.MarketplacePort == cfg.Services.NotificationPort {
		errs = append(errs, errors.New("services must listen on distinct ports"))
	}

	return errors.Join(errs...)
}
