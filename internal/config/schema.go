// Package config provides configuration loading and management.
package config

import "time"

// SchemaVersion is the configuration schema version.
const SchemaVersion = "1"

// Config represents ~/.pgprof/config.yaml.
type Config struct {
	Version        string               `yaml:"version"`
	Logging        LoggingConfig        `yaml:"logging"`
	Profiler       ProfilerConfig       `yaml:"profiler"`
	Monitor        MonitorConfig        `yaml:"monitor"`
	Postgres       PostgresConfig       `yaml:"postgres"`
	Sessions       SessionsConfig       `yaml:"sessions"`
	Storage        StorageConfig        `yaml:"storage"`
	ReportDefaults ReportDefaultsConfig `yaml:"report_defaults"`
}

// LoggingConfig controls the root logger.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"PGPROF_LOG_LEVEL"`
	Pretty *bool  `yaml:"pretty,omitempty"`
}

// ProfilerConfig controls report aggregation.
type ProfilerConfig struct {
	// TopK is the number of routines reported when none are requested explicitly.
	TopK  int         `yaml:"top_k" env:"PGPROF_TOP_K"`
	Retry RetryConfig `yaml:"retry"`
}

// RetryConfig is the backoff schedule for transient sample read failures.
type RetryConfig struct {
	MaxRetries     int           `yaml:"max_retries" env:"PGPROF_RETRY_MAX"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
}

// MonitorConfig holds defaults and limits for indirect monitoring windows.
type MonitorConfig struct {
	DefaultDuration time.Duration `yaml:"default_duration" env:"PGPROF_MONITOR_DURATION"`
	DefaultInterval time.Duration `yaml:"default_interval" env:"PGPROF_MONITOR_INTERVAL"`
	MaxDuration     time.Duration `yaml:"max_duration"`
}

// PostgresConfig describes the profiled server.
type PostgresConfig struct {
	DSN      string `yaml:"dsn" env:"PGPROF_DSN"`
	MaxConns int32  `yaml:"max_conns" env:"PGPROF_MAX_CONNS"`
}

// Session store backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// SessionsConfig selects the Transaction Store.
type SessionsConfig struct {
	Backend string      `yaml:"backend" env:"PGPROF_SESSION_BACKEND"`
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig configures the Redis-backed Transaction Store.
type RedisConfig struct {
	Addr      string        `yaml:"addr" env:"PGPROF_REDIS_ADDR"`
	Password  string        `yaml:"password,omitempty" env:"PGPROF_REDIS_PASSWORD"`
	DB        int           `yaml:"db" env:"PGPROF_REDIS_DB"`
	KeyPrefix string        `yaml:"key_prefix"`
	TTL       time.Duration `yaml:"ttl"`
}

// Report artifact formats.
const (
	FormatHTML   = "html"
	FormatFolded = "folded"
	FormatPprof  = "pprof"
)

// StorageConfig locates rendered reports and their index.
type StorageConfig struct {
	Dir    string `yaml:"dir" env:"PGPROF_STORAGE_DIR"`
	Format string `yaml:"format" env:"PGPROF_REPORT_FORMAT"`
}

// ReportDefaultsConfig seeds the report options of new sessions.
type ReportDefaultsConfig struct {
	TabStop     string `yaml:"tab_stop"`
	SVGWidth    string `yaml:"svg_width"`
	TableWidth  string `yaml:"table_width"`
	Description string `yaml:"description"`
}
