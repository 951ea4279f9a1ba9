package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/rpggio/portfolio-kpi/internal/metrics"
	"gopkg.in/yaml.v3"
)

const (
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "PORTFOLIO_"
	// EnvConfigPath names the optional YAML config file.
	EnvConfigPath = EnvPrefix + "CONFIG_PATH"
)

// Transport modes.
const (
	ModeStdio = "stdio"
	ModeHTTP  = "http"
	ModeAPI   = "api"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config defines server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" envPrefix:"SERVER_"`
	DB        DBConfig        `yaml:"db" envPrefix:"DB_"`
	Log       LogConfig       `yaml:"log" envPrefix:"LOG_"`
	Auth      AuthConfig      `yaml:"auth" envPrefix:"AUTH_"`
	Transport TransportConfig `yaml:"transport" envPrefix:"TRANSPORT_"`
	Scoring   ScoringConfig   `yaml:"scoring" envPrefix:"SCORING_"`
	Seed      SeedConfig      `yaml:"seed" envPrefix:"SEED_"`
}

type ServerConfig struct {
	Host string `yaml:"host" env:"HOST"`
	Port int    `yaml:"port" env:"PORT"`
	// RateLimit is the sustained requests per second allowed per tenant on the REST API.
	// Zero disables limiting.
	RateLimit float64 `yaml:"rate_limit" env:"RATE_LIMIT"`
	Burst     int     `yaml:"burst" env:"BURST"`
}

type DBConfig struct {
	Path string `yaml:"path" env:"PATH"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"LEVEL"`
	// Path redirects logs to a size-capped file.
	Path string `yaml:"path" env:"PATH"`
}

type AuthConfig struct {
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// DefaultTenant serves requests when auth is disabled.
	DefaultTenant string `yaml:"default_tenant" env:"DEFAULT_TENANT"`
}

type TransportConfig struct {
	Mode string `yaml:"mode" env:"MODE"`
}

type ScoringConfig struct {
	Budget   float64 `yaml:"budget" env:"BUDGET"`
	Activity float64 `yaml:"activity" env:"ACTIVITY"`
	Output   float64 `yaml:"output" env:"OUTPUT"`
}

// Weights converts the scoring section into engine weights.
func (s ScoringConfig) Weights() metrics.Weights {
	return metrics.Weights{Budget: s.Budget, Activity: s.Activity, Output: s.Output}
}

type SeedConfig struct {
	// Path to a YAML dataset imported into the default tenant at startup. Empty skips seeding.
	Path string `yaml:"path" env:"PATH"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	weights := metrics.DefaultWeights()
	return Config{
		Server: ServerConfig{
			Host:      "0.0.0.0",
			Port:      8080,
			RateLimit: 10,
			Burst:     20,
		},
		DB: DBConfig{
			Path: "portfolio.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Auth: AuthConfig{
			Enabled:       false,
			DefaultTenant: "default",
		},
		Transport: TransportConfig{
			Mode: ModeStdio,
		},
		Scoring: ScoringConfig{
			Budget:   weights.Budget,
			Activity: weights.Activity,
			Output:   weights.Output,
		},
	}
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv(EnvConfigPath); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings that would otherwise fail later at startup.
func (c Config) Validate() error {
	switch c.Transport.Mode {
	case ModeStdio, ModeHTTP, ModeAPI:
	default:
		return fmt.Errorf("%w: unknown transport mode %q", ErrInvalidConfig, c.Transport.Mode)
	}
	if c.Transport.Mode != ModeStdio && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		return fmt.Errorf("%w: server port %d out of range", ErrInvalidConfig, c.Server.Port)
	}
	if c.Server.RateLimit < 0 || c.Server.Burst < 0 {
		return fmt.Errorf("%w: rate limit and burst must not be negative", ErrInvalidConfig)
	}
	if c.DB.Path == "" {
		return fmt.Errorf("%w: db path is required", ErrInvalidConfig)
	}
	if !c.Auth.Enabled && c.Auth.DefaultTenant == "" {
		return fmt.Errorf("%w: default tenant is required when auth is disabled", ErrInvalidConfig)
	}
	if err := c.Scoring.Weights().Validate(); err != nil {
		return fmt.Errorf("%w: scoring: %w", ErrInvalidConfig, err)
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
