// Package constants provides shared constants used throughout the taxsync codebase.
// This includes file permissions, default locations, discovery patterns and
// other configuration values that should be consistent across the application.
package constants

import "time"

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Record store defaults
const (
	// DefaultExtension is the file extension used for written derived records
	DefaultExtension = "yaml"

	// DefaultSourcePattern matches taxonomy records at any depth below the source directory
	DefaultSourcePattern = "**/*.yaml"

	// DefaultDerivedPattern matches detection records directly in the derived directory
	DefaultDerivedPattern = "*.yaml"

	// DefaultSourceDir is the taxonomy directory used when none is configured
	DefaultSourceDir = "taxonomy"

	// DefaultDerivedDir is the detection directory used when none is configured
	DefaultDerivedDir = "detection"

	// LockFileName is the advisory lock file created inside the derived directory.
	// The leading dot keeps it out of record discovery.
	LockFileName = ".taxsync.lock"
)

// Record field names
const (
	// FieldID is the mandatory identifier key of every record
	FieldID = "id"

	// FieldName is the optional display name of a taxonomy record
	FieldName = "name"

	// FieldCategory is the optional category of a taxonomy record
	FieldCategory = "category"

	// FieldKeywords is the keyword sequence of a detection record
	FieldKeywords = "keywords"
)

// Timeout constants
const (
	// CommandTimeout is the default timeout for a single CLI sync
	CommandTimeout = 10 * time.Minute

	// ShutdownTimeout bounds graceful shutdown after an error or signal
	ShutdownTimeout = 5 * time.Second

	// DefaultDebounce is how long watch mode waits for more source changes before syncing
	DefaultDebounce = 500 * time.Millisecond

	// MetricsReadHeaderTimeout bounds header reads on the metrics listener
	MetricsReadHeaderTimeout = 5 * time.Second
)

// Watch constants
const (
	// WatchEventBuffer is the buffer size of the filesystem event channel
	WatchEventBuffer = 64
)

// Format constants
const (
	// FormatYAML names the YAML record format in errors and logs
	FormatYAML = "yaml"
)
