// Package constants defines shared configuration constants and defaults.
package constants

import "time"

// Report defaults applied to every new session.
const (
	DefaultTopK = 10

	DefaultTabStop    = "8"
	DefaultSVGWidth   = "1200"
	DefaultTableWidth = "80%"
	DefaultDesc       = ""

	// IndirectReportName names reports produced by session monitoring.
	IndirectReportName = "Indirect"

	// ReportTitlePrefix prefixes the routine or database name in default titles.
	ReportTitlePrefix = "Pl/Profiler Report for "
)

// Monitoring window defaults.
const (
	DefaultMonitorDuration = 10 * time.Second
	DefaultMonitorInterval = 10 * time.Second
	MaxMonitorDuration     = time.Hour
)

// Timeouts.
const (
	// DefaultQueryTimeout bounds a single sample read.
	DefaultQueryTimeout = 30 * time.Second

	// DefaultCloseTimeout bounds releasing a session's connections.
	DefaultCloseTimeout = 5 * time.Second

	// DefaultSessionTTL expires idle sessions in the Redis store.
	DefaultSessionTTL = 24 * time.Hour
)

// Store limits.
const (
	// MaxReportSize caps reading a stored artifact back.
	MaxReportSize = 64 << 20

	// DefaultMaxConns caps the PostgreSQL pool.
	DefaultMaxConns = 8
)
