package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/revenue-engine/deals"
	"github.com/warp/revenue-engine/generic"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "revenue.db", cfg.DB.Path)
	assert.Equal(t, "0.2", cfg.Schedule.DecayRate)
	assert.Equal(t, "projected", cfg.Schedule.Mode)
	assert.Equal(t, "info", cfg.Log.Level)

	b, err := cfg.ScheduleBuilder()
	require.NoError(t, err)
	assert.True(t, b.DecayRate.Equal(decimal.RequireFromString("0.2")))
	assert.Equal(t, deals.DecayProjected, b.Mode)
}

func TestLoad_FileAndEnv(t *testing.T) {
	// GIVEN: A config file and an env override
	path := filepath.Join(t.TempDir(), "revenue.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
db:
  path: ":memory:"
schedule:
  decay_rate: 0.1
  mode: stated
log:
  level: debug
`), 0o600))
	t.Setenv("REVENUE_SERVER_PORT", "7070")

	// WHEN: Loaded
	cfg, err := Load(path)
	require.NoError(t, err)

	// THEN: Env wins over the file, file wins over defaults
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, ":memory:", cfg.DB.Path)
	assert.Equal(t, "stated", cfg.Schedule.Mode)

	b, err := cfg.ScheduleBuilder()
	require.NoError(t, err)
	assert.True(t, b.DecayRate.Equal(decimal.RequireFromString("0.1")))
	assert.Equal(t, deals.DecayStated, b.Mode)

	logger := cfg.Logger(os.Stderr)
	assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: 8080},
			DB:       DBConfig{Path: "x.db"},
			Schedule: ScheduleConfig{DecayRate: "0.2", Mode: "projected"},
			Log:      LogConfig{Level: "info"},
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port zero", func(c *Config) { c.Server.Port = 0 }},
		{"empty db path", func(c *Config) { c.DB.Path = "" }},
		{"decay rate of one", func(c *Config) { c.Schedule.DecayRate = "1" }},
		{"negative decay rate", func(c *Config) { c.Schedule.DecayRate = "-0.1" }},
		{"decay rate not a number", func(c *Config) { c.Schedule.DecayRate = "fast" }},
		{"unknown mode", func(c *Config) { c.Schedule.Mode = "linear" }},
		{"negative workers", func(c *Config) { c.Schedule.Workers = -1 }},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad_EnvRejectsInvalid(t *testing.T) {
	t.Setenv("REVENUE_SCHEDULE_MODE", "linear")

	_, err := Load("")
	assert.ErrorIs(t, err, generic.ErrInvalidDecayMode)
}

func TestScheduleBuilder_KeepsDecayRateExact(t *testing.T) {
	// GIVEN: A rate with more digits than a float64 can carry
	t.Setenv("REVENUE_SCHEDULE_DECAY_RATE", "0.12345678901234567890123")

	// WHEN: Loaded and turned into a builder
	cfg, err := Load("")
	require.NoError(t, err)
	b, err := cfg.ScheduleBuilder()
	require.NoError(t, err)

	// THEN: Every digit survives
	assert.Equal(t, "0.12345678901234567890123", b.DecayRate.String())
}

func TestScheduleBuilder_RejectsNonNumericRate(t *testing.T) {
	cfg := &Config{Schedule: ScheduleConfig{DecayRate: "fast"}}

	_, err := cfg.ScheduleBuilder()
	assert.ErrorIs(t, err, generic.ErrInvalidDecayRate)
}
