// Copyright 2025 James Ross
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Grid holds the connection parameters for the data-grid backend: host,
// port, the logged-in zone/user, and the reconnect/buffer thresholds the
// stream loop enforces.
type Grid struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	ZoneName          string        `mapstructure:"zone_name"`
	Username          string        `mapstructure:"username"`
	DefaultResource   string        `mapstructure:"default_resource"`
	DefaultCollection string        `mapstructure:"default_collection"`
	CatalogDSN        string        `mapstructure:"catalog_dsn"`
	DialTimeout       time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	MaxConnectTime    time.Duration `mapstructure:"max_connect_time"`
	BufferSize        int           `mapstructure:"buffer_size"`
}

// Catalog backs the catalog query builder/executor (collections, data
// objects, AVUs) against the simplified denormalized table it queries.
type Catalog struct {
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

// ObjectStore backs data-object byte content (as opposed to catalog metadata).
type ObjectStore struct {
	Endpoint     string `mapstructure:"endpoint"`
	Bucket       string `mapstructure:"bucket"`
	Region       string `mapstructure:"region"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
}

type CircuitBreaker struct {
	FailureThreshold float64       `mapstructure:"failure_threshold"`
	Window           time.Duration `mapstructure:"window"`
	CooldownPeriod   time.Duration `mapstructure:"cooldown_period"`
	MinSamples       int           `mapstructure:"min_samples"`
}

// Cache configures the path/stat result cache fronting the Path Resolver.
type Cache struct {
	RedisAddr string        `mapstructure:"redis_addr"`
	RedisDB   int           `mapstructure:"redis_db"`
	StatTTL   time.Duration `mapstructure:"stat_ttl"`
}

type EventHooks struct {
	Enabled       bool   `mapstructure:"enabled"`
	NATSURL       string `mapstructure:"nats_url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

type Audit struct {
	Enabled       bool          `mapstructure:"enabled"`
	ClickhouseDSN string        `mapstructure:"clickhouse_dsn"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
	BatchSize     int           `mapstructure:"batch_size"`
}

type TracingConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	Endpoint         string  `mapstructure:"endpoint"`
	Environment      string  `mapstructure:"environment"`
	SamplingStrategy string  `mapstructure:"sampling_strategy"`
	SamplingRate     float64 `mapstructure:"sampling_rate"`
}

type ObservabilityConfig struct {
	MetricsPort int           `mapstructure:"metrics_port"`
	LogLevel    string        `mapstructure:"log_level"`
	Tracing     TracingConfig `mapstructure:"tracing"`
}

// Observability is a backwards-compatible alias.
type Observability = ObservabilityConfig

type Schema struct {
	ArgumentsSchemaPath string `mapstructure:"arguments_schema_path"`
}

type Config struct {
	Grid           Grid           `mapstructure:"grid"`
	Catalog        Catalog        `mapstructure:"catalog"`
	ObjectStore    ObjectStore    `mapstructure:"object_store"`
	CircuitBreaker CircuitBreaker `mapstructure:"circuit_breaker"`
	Cache          Cache          `mapstructure:"cache"`
	EventHooks     EventHooks     `mapstructure:"event_hooks"`
	Audit          Audit          `mapstructure:"audit"`
	Observability  Observability  `mapstructure:"observability"`
	Schema         Schema         `mapstructure:"schema"`
}

func defaultConfig() *Config {
	return &Config{
		Grid: Grid{
			Host:            "localhost",
			Port:            1247,
			ZoneName:        "tempZone",
			DefaultResource: "demoResc",
			DialTimeout:     5 * time.Second,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			MaxConnectTime:  0,
			BufferSize:      4 * 1024 * 1024,
		},
		Catalog: Catalog{
			Table: "dgrid_catalog",
		},
		ObjectStore: ObjectStore{
			Region: "us-east-1",
		},
		CircuitBreaker: CircuitBreaker{
			FailureThreshold: 0.5,
			Window:           1 * time.Minute,
			CooldownPeriod:   30 * time.Second,
			MinSamples:       20,
		},
		Cache: Cache{
			RedisAddr: "localhost:6379",
			StatTTL:   30 * time.Second,
		},
		EventHooks: EventHooks{
			SubjectPrefix: "dgrid.events",
		},
		Audit: Audit{
			FlushInterval: 5 * time.Second,
			BatchSize:     200,
		},
		Observability: Observability{
			MetricsPort: 9090,
			LogLevel:    "info",
		},
	}
}

// Load reads configuration from a YAML file with environment-variable
// overrides (AutomaticEnv, "." -> "_" key replacement).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := defaultConfig()
	v.SetDefault("grid.host", def.Grid.Host)
	v.SetDefault("grid.port", def.Grid.Port)
	v.SetDefault("grid.zone_name", def.Grid.ZoneName)
	v.SetDefault("grid.default_resource", def.Grid.DefaultResource)
	v.SetDefault("grid.dial_timeout", def.Grid.DialTimeout)
	v.SetDefault("grid.read_timeout", def.Grid.ReadTimeout)
	v.SetDefault("grid.write_timeout", def.Grid.WriteTimeout)
	v.SetDefault("grid.max_connect_time", def.Grid.MaxConnectTime)
	v.SetDefault("grid.buffer_size", def.Grid.BufferSize)

	v.SetDefault("catalog.table", def.Catalog.Table)

	v.SetDefault("object_store.region", def.ObjectStore.Region)

	v.SetDefault("circuit_breaker.failure_threshold", def.CircuitBreaker.FailureThreshold)
	v.SetDefault("circuit_breaker.window", def.CircuitBreaker.Window)
	v.SetDefault("circuit_breaker.cooldown_period", def.CircuitBreaker.CooldownPeriod)
	v.SetDefault("circuit_breaker.min_samples", def.CircuitBreaker.MinSamples)

	v.SetDefault("cache.redis_addr", def.Cache.RedisAddr)
	v.SetDefault("cache.stat_ttl", def.Cache.StatTTL)

	v.SetDefault("event_hooks.subject_prefix", def.EventHooks.SubjectPrefix)

	v.SetDefault("audit.flush_interval", def.Audit.FlushInterval)
	v.SetDefault("audit.batch_size", def.Audit.BatchSize)

	v.SetDefault("observability.metrics_port", def.Observability.MetricsPort)
	v.SetDefault("observability.log_level", def.Observability.LogLevel)

	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces the same defensive-default checks the ambient stack
// expects: positive ports, non-negative timeouts, required DSNs when a
// feature is enabled.
func Validate(cfg *Config) error {
	if cfg.Grid.Host == "" {
		return fmt.Errorf("grid.host must be set")
	}
	if cfg.Grid.Port <= 0 || cfg.Grid.Port > 65535 {
		return fmt.Errorf("grid.port must be 1..65535")
	}
	if cfg.Grid.ZoneName == "" {
		return fmt.Errorf("grid.zone_name must be set")
	}
	if cfg.Grid.MaxConnectTime < 0 {
		return fmt.Errorf("grid.max_connect_time must be >= 0")
	}
	if cfg.Grid.BufferSize <= 0 {
		return fmt.Errorf("grid.buffer_size must be > 0")
	}
	if cfg.Observability.MetricsPort <= 0 || cfg.Observability.MetricsPort > 65535 {
		return fmt.Errorf("observability.metrics_port must be 1..65535")
	}
	if cfg.Audit.Enabled && cfg.Audit.ClickhouseDSN == "" {
		return fmt.Errorf("audit.clickhouse_dsn is required when audit.enabled is true")
	}
	if cfg.EventHooks.Enabled && cfg.EventHooks.NATSURL == "" {
		return fmt.Errorf("event_hooks.nats_url is required when event_hooks.enabled is true")
	}
	if cfg.CircuitBreaker.MinSamples < 0 {
		return fmt.Errorf("circuit_breaker.min_samples must be >= 0")
	}
	return nil
}
