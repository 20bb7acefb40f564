/*
Package config loads runtime settings for the server and the CLI.

SOURCES (later wins):
  1. Built-in defaults
  2. Config file (YAML, JSON or TOML, by extension), when a path is given
  3. Environment variables, prefixed REVENUE_ with dots as underscores:
     REVENUE_SERVER_PORT, REVENUE_DB_PATH, REVENUE_SCHEDULE_DECAY_RATE,
     REVENUE_SCHEDULE_MODE, REVENUE_SCHEDULE_WORKERS, REVENUE_LOG_LEVEL

  Command-line flags are applied by the caller after Load.

EXAMPLE FILE:
  server:
    port: 8080
  db:
    path: revenue.db
  schedule:
    decay_rate: 0.2
    mode: projected
    workers: 0
  log:
    level: info
*/
package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/warp/revenue-engine/deals"
	"github.com/warp/revenue-engine/generic"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	DB       DBConfig       `mapstructure:"db"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type DBConfig struct {
	// Path of the SQLite file. ":memory:" keeps everything in memory.
	Path string `mapstructure:"path"`
}

type ScheduleConfig struct {
	// DecayRate is kept as text so it reaches the builder as an exact decimal.
	DecayRate string `mapstructure:"decay_rate"`
	Mode      string  `mapstructure:"mode"`
	// Workers bounds parallel schedule builds; 0 means GOMAXPROCS.
	Workers int `mapstructure:"workers"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

const EnvPrefix = "REVENUE"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("db.path", "revenue.db")
	v.SetDefault("schedule.decay_rate", "0.2")
	v.SetDefault("schedule.mode", string(deals.DecayProjected))
	v.SetDefault("schedule.workers", 0)
	v.SetDefault("log.level", "info")
}

// Load reads defaults, the optional config file and the environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail later at startup.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.DB.Path == "" {
		return fmt.Errorf("db.path is required")
	}
	if c.Schedule.Workers < 0 {
		return fmt.Errorf("schedule.workers must not be negative")
	}
	if _, err := c.ScheduleBuilder(); err != nil {
		return fmt.Errorf("schedule: %w", err)
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// ScheduleBuilder returns a builder for the configured decay rate and mode.
func (c *Config) ScheduleBuilder() (*deals.ScheduleBuilder, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(c.Schedule.DecayRate))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", generic.ErrInvalidDecayRate, c.Schedule.DecayRate)
	}
	mode, err := deals.ParseDecayMode(c.Schedule.Mode)
	if err != nil {
		return nil, err
	}
	return deals.NewScheduleBuilder(rate, mode)
}

// Logger builds the process logger at the configured level.
func (c *Config) Logger(w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(c.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
