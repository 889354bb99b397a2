/*
Package config loads server configuration.

SOURCES (later wins):
  1. Built-in defaults (below)
  2. Optional YAML file (--config)
  3. OVERTIME_* environment variables, dots become underscores:
     OVERTIME_SERVER_PORT, OVERTIME_DATABASE_PATH, OVERTIME_LOG_LEVEL,
     OVERTIME_DEFAULTS_DAILY_THRESHOLD, ...
  4. Command-line flags bound by cmd/server

EXAMPLE FILE:
  server:
    port: 8080
    cors_origins: ["http://localhost:3000"]
  database:
    path: ./data/overtime.db
  log:
    level: debug
  defaults:
    daily_threshold: 7.5
    weekly_threshold: 37.5

The defaults block fills calcParams fields a request leaves out or sends as
non-finite values.
*/
package config

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/warp/overtime-engine/overtime"
)

const EnvPrefix = "OVERTIME"

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Defaults CalcDefaults   `mapstructure:"defaults"`
}

type ServerConfig struct {
	Port        int      `mapstructure:"port"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type DatabaseConfig struct {
	// Path is a SQLite file path or ":memory:".
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// CalcDefaults mirrors overtime.CalcParams with plain floats.
type CalcDefaults struct {
	DailyThreshold     float64 `mapstructure:"daily_threshold"`
	WeeklyThreshold    float64 `mapstructure:"weekly_threshold"`
	OvertimeMultiplier float64 `mapstructure:"overtime_multiplier"`
	Tier2Threshold     float64 `mapstructure:"tier2_threshold"`
	Tier2Multiplier    float64 `mapstructure:"tier2_multiplier"`
}

// CalcParams converts the defaults for the engine.
func (d CalcDefaults) CalcParams() overtime.CalcParams {
	return overtime.CalcParams{
		DailyThreshold:     overtime.Num(d.DailyThreshold),
		WeeklyThreshold:    overtime.Num(d.WeeklyThreshold),
		OvertimeMultiplier: overtime.Num(d.OvertimeMultiplier),
		Tier2Threshold:     overtime.Num(d.Tier2Threshold),
		Tier2Multiplier:    overtime.Num(d.Tier2Multiplier),
	}
}

// New returns a viper instance with defaults and environment binding set up.
// Callers may bind flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("database.path", "overtime.db")
	v.SetDefault("log.level", "info")

	d := overtime.DefaultCalcParams()
	v.SetDefault("defaults.daily_threshold", d.DailyThreshold.Value)
	v.SetDefault("defaults.weekly_threshold", d.WeeklyThreshold.Value)
	v.SetDefault("defaults.overtime_multiplier", d.OvertimeMultiplier.Value)
	v.SetDefault("defaults.tier2_threshold", d.Tier2Threshold.Value)
	v.SetDefault("defaults.tier2_multiplier", d.Tier2Multiplier.Value)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the optional file at path and decodes everything into Config.
func Load(v *viper.Viper, path string) (*Config, error) {
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
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return nil, fmt.Errorf("invalid server.port %d", cfg.Server.Port)
	}
	if _, err := zerolog.ParseLevel(cfg.Log.Level); err != nil {
		return nil, fmt.Errorf("invalid log.level %q: %w", cfg.Log.Level, err)
	}
	return &cfg, nil
}

// LogLevel parses Log.Level, falling back to info.
func (c *Config) LogLevel() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.Log.Level)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
