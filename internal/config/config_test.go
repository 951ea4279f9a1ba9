package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rpggio/portfolio-kpi/internal/metrics"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(EnvConfigPath, "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
	require.Equal(t, metrics.DefaultWeights(), cfg.Scoring.Weights())
	require.Equal(t, ModeStdio, cfg.Transport.Mode)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
  rate_limit: 2.5
db:
  path: /tmp/from-file.db
transport:
  mode: api
scoring:
  budget: 0.2
  activity: 0.2
  output: 0.6
seed:
  path: data/portfolio.yaml
`), 0o644))

	t.Setenv(EnvConfigPath, path)
	t.Setenv("PORTFOLIO_DB_PATH", "/tmp/from-env.db")
	t.Setenv("PORTFOLIO_LOG_LEVEL", "debug")
	t.Setenv("PORTFOLIO_AUTH_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "0.0.0.0", cfg.Server.Host)
	require.Equal(t, 2.5, cfg.Server.RateLimit)
	require.Equal(t, "/tmp/from-env.db", cfg.DB.Path)
	require.Equal(t, "debug", cfg.Log.Level)
	require.True(t, cfg.Auth.Enabled)
	require.Equal(t, ModeAPI, cfg.Transport.Mode)
	require.Equal(t, metrics.Weights{Budget: 0.2, Activity: 0.2, Output: 0.6}, cfg.Scoring.Weights())
	require.Equal(t, "data/portfolio.yaml", cfg.Seed.Path)
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	t.Setenv("PORTFOLIO_SERVER_PORT", "not-a-port")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv(EnvConfigPath, filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	require.ErrorContains(t, err, "read config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "unknown mode", mutate: func(c *Config) { c.Transport.Mode = "grpc" }},
		{name: "bad port", mutate: func(c *Config) { c.Transport.Mode = ModeHTTP; c.Server.Port = 0 }},
		{name: "negative rate", mutate: func(c *Config) { c.Server.RateLimit = -1 }},
		{name: "no db path", mutate: func(c *Config) { c.DB.Path = "" }},
		{name: "no default tenant", mutate: func(c *Config) { c.Auth.DefaultTenant = "" }},
		{name: "weights", mutate: func(c *Config) { c.Scoring.Output = 0.9 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}

	require.NoError(t, Default().Validate())
}

func TestValidate_WeightsWrapEngineError(t *testing.T) {
	cfg := Default()
	cfg.Scoring = ScoringConfig{Budget: 1, Activity: 1, Output: 1}
	require.ErrorIs(t, cfg.Validate(), metrics.ErrInvalidArgument)
}
