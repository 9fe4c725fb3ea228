// Package config loads service configuration from an optional YAML file
// with environment variable overrides. Environment always wins.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr           string        `yaml:"addr"`
	DatabaseURL    string        `yaml:"databaseUrl"`
	RedisURL       string        `yaml:"redisUrl"`
	MigrationsDir  string        `yaml:"migrationsDir"`
	LogLevel       string        `yaml:"logLevel"`
	LogPretty      bool          `yaml:"logPretty"`
	SolverBudget   time.Duration `yaml:"solverBudget"`
	RateLimitRPS   float64       `yaml:"rateLimitRps"`
	RateLimitBurst int           `yaml:"rateLimitBurst"`
}

func defaults() Config {
	return Config{
		Addr:           ":8080",
		MigrationsDir:  "db/migrations",
		LogLevel:       "info",
		SolverBudget:   10 * time.Second,
		RateLimitRPS:   20,
		RateLimitBurst: 40,
	}
}

// Load reads path (when non-empty and present) and then applies environment
// overrides on top.
func Load(path string) (Config, error) {
	cfg := defaults()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.RedisURL = v
	}
	if v := os.Getenv("MIGRATIONS_DIR"); v != "" {
		c.MigrationsDir = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("LOG_PRETTY"); v != "" {
		c.LogPretty = v == "1" || v == "true"
	}
	if v := os.Getenv("SOLVER_BUDGET"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.SolverBudget = d
		}
	}
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.RateLimitRPS = f
		}
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RateLimitBurst = n
		}
	}
}
