// Package config loads application configuration and wires the logger.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Fetch     FetchConfig     `yaml:"fetch" mapstructure:"fetch"`
	Aggregate AggregateConfig `yaml:"aggregate" mapstructure:"aggregate"`
	Resolver  ResolverConfig  `yaml:"resolver" mapstructure:"resolver"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig selects and configures the price cache backend.
type StoreConfig struct {
	// Driver is one of "sqlite", "postgres", "memory".
	Driver         string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL    string `yaml:"database_url" mapstructure:"database_url"`
	StalenessHours int    `yaml:"staleness_hours" mapstructure:"staleness_hours"`
}

// FetchConfig configures the shared strategy fetcher.
type FetchConfig struct {
	TimeoutSecs   int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	PerHostRPS    float64 `yaml:"per_host_rps" mapstructure:"per_host_rps"`
	PerHostBurst  int     `yaml:"per_host_burst" mapstructure:"per_host_burst"`
	RetryAttempts int     `yaml:"retry_attempts" mapstructure:"retry_attempts"`
}

// AggregateConfig bounds aggregation calls.
type AggregateConfig struct {
	MaxConcurrent   int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	CallTimeoutSecs int `yaml:"call_timeout_secs" mapstructure:"call_timeout_secs"`
}

// ResolverConfig selects the competitor URL source.
type ResolverConfig struct {
	// Mode is "static" (YAML table file) or "remote" (mapping service).
	Mode        string `yaml:"mode" mapstructure:"mode"`
	TablePath   string `yaml:"table_path" mapstructure:"table_path"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// StalenessWindow returns the configured staleness window as a duration.
func (s StoreConfig) StalenessWindow() time.Duration {
	return time.Duration(s.StalenessHours) * time.Hour
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PRICEWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "pricewatch.db")
	v.SetDefault("store.staleness_hours", 48)
	v.SetDefault("fetch.timeout_secs", 10)
	v.SetDefault("fetch.per_host_rps", 2.0)
	v.SetDefault("fetch.per_host_burst", 2)
	v.SetDefault("fetch.retry_attempts", 2)
	v.SetDefault("aggregate.max_concurrent", 4)
	v.SetDefault("aggregate.call_timeout_secs", 45)
	v.SetDefault("resolver.mode", "static")
	v.SetDefault("resolver.table_path", "competitors.yaml")
	v.SetDefault("resolver.timeout_secs", 5)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
