package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/prisken/client-crm-sub000/internal/optimizer"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Hermes    HermesConfig    `yaml:"hermes"`
	Optimizer OptimizerConfig `yaml:"optimizer"`
	Refresh   RefreshConfig   `yaml:"refresh"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Port        int    `yaml:"port"`
	MetricsPort int    `yaml:"metrics_port"`
	AdminToken  string `yaml:"admin_token"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type HermesConfig struct {
	URL string `yaml:"url"`
}

type OptimizerConfig struct {
	Granularity       int     `yaml:"granularity"`
	Alpha             float64 `yaml:"alpha"`
	DefaultDailyHours float64 `yaml:"default_daily_hours"`
	BetaMin           float64 `yaml:"beta_min"`
	BetaMax           float64 `yaml:"beta_max"`
	MaxDailyHours     float64 `yaml:"max_daily_hours"`
}

type RefreshConfig struct {
	Enabled        bool `yaml:"enabled"`
	TickIntervalMs int  `yaml:"tick_interval_ms"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Refresh.TickIntervalMs) * time.Millisecond
}

// OptimizerParams converts the optimizer section to engine parameters.
func (c *Config) OptimizerParams() optimizer.Params {
	return optimizer.Params{
		Granularity:       c.Optimizer.Granularity,
		Alpha:             c.Optimizer.Alpha,
		DefaultDailyHours: c.Optimizer.DefaultDailyHours,
		BetaMin:           c.Optimizer.BetaMin,
		BetaMax:           c.Optimizer.BetaMax,
		MaxDailyHours:     c.Optimizer.MaxDailyHours,
	}
}

func Load(path string) (*Config, error) {
	p := optimizer.DefaultParams()
	cfg := &Config{
		Server: ServerConfig{
			Port:        8700,
			MetricsPort: 8701,
		},
		Hermes: HermesConfig{
			URL: "nats://localhost:4222",
		},
		Optimizer: OptimizerConfig{
			Granularity:       p.Granularity,
			Alpha:             p.Alpha,
			DefaultDailyHours: p.DefaultDailyHours,
			BetaMin:           p.BetaMin,
			BetaMax:           p.BetaMax,
			MaxDailyHours:     p.MaxDailyHours,
		},
		Refresh: RefreshConfig{
			Enabled:        true,
			TickIntervalMs: 300000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)

	if err := cfg.OptimizerParams().Validate(); err != nil {
		return nil, fmt.Errorf("optimizer config: %w", err)
	}
	if cfg.Refresh.Enabled && cfg.Refresh.TickIntervalMs <= 0 {
		return nil, fmt.Errorf("refresh tick_interval_ms must be positive, got %d", cfg.Refresh.TickIntervalMs)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PLANNER_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("PLANNER_METRICS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MetricsPort = n
		}
	}
	if v := os.Getenv("PLANNER_ADMIN_TOKEN"); v != "" {
		cfg.Server.AdminToken = v
	}
	if v := os.Getenv("PLANNER_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("PLANNER_HERMES_URL"); v != "" {
		cfg.Hermes.URL = v
	}
	if v := os.Getenv("PLANNER_DEFAULT_DAILY_HOURS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Optimizer.DefaultDailyHours = f
		}
	}
	if v := os.Getenv("PLANNER_ALPHA"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Optimizer.Alpha = f
		}
	}
	if v := os.Getenv("PLANNER_REFRESH_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Refresh.Enabled = b
		}
	}
	if v := os.Getenv("PLANNER_TICK_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Refresh.TickIntervalMs = n
		}
	}
	if v := os.Getenv("PLANNER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("PLANNER_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
