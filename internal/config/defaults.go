package config

import (
	"time"

	"github.com/bigsql/pgadmin4/internal/constants"
)

// DefaultConfig returns a config with sensible defaults. Storage.Dir is left
// empty and resolved by the Loader.
func DefaultConfig() *Config {
	return &Config{
		Version: SchemaVersion,
		Logging: LoggingConfig{
			Level: "info",
		},
		Profiler: ProfilerConfig{
			TopK: constants.DefaultTopK,
			Retry: RetryConfig{
				MaxRetries:     3,
				InitialBackoff: 200 * time.Millisecond,
				MaxBackoff:     2 * time.Second,
			},
		},
		Monitor: MonitorConfig{
			DefaultDuration: constants.DefaultMonitorDuration,
			DefaultInterval: constants.DefaultMonitorInterval,
			MaxDuration:     constants.MaxMonitorDuration,
		},
		Postgres: PostgresConfig{
			MaxConns: constants.DefaultMaxConns,
		},
		Sessions: SessionsConfig{
			Backend: BackendMemory,
			Redis: RedisConfig{
				Addr:      "localhost:6379",
				KeyPrefix: constants.DefaultRedisKeyPrefix,
				TTL:       constants.DefaultSessionTTL,
			},
		},
		Storage: StorageConfig{
			Format: FormatHTML,
		},
		ReportDefaults: ReportDefaultsConfig{
			TabStop:     constants.DefaultTabStop,
			SVGWidth:    constants.DefaultSVGWidth,
			TableWidth:  constants.DefaultTableWidth,
			Description: constants.DefaultDesc,
		},
	}
}
