// Package config resolves the settings of a taxsync run from viper.
package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/viper"

	"github.com/agentstation/taxsync/pkg/constants"
	"github.com/agentstation/taxsync/pkg/errors"
)

// Viper keys. Environment variables use the TAXSYNC_ prefix and upper case,
// e.g. TAXSYNC_SOURCE_DIR.
const (
	KeySourceDir      = "source_dir"
	KeyDerivedDir     = "derived_dir"
	KeyExtension      = "extension"
	KeySourcePattern  = "source_pattern"
	KeyDerivedPattern = "derived_pattern"
	KeyLock           = "lock"
	KeyLockFile       = "lock_file"
	KeyDryRun         = "dry_run"
	KeyDebounce       = "debounce"
	KeyMetricsAddr    = "metrics_addr"
)

// EnvPrefix is the prefix of environment variables read by taxsync.
const EnvPrefix = "TAXSYNC"

// Sync holds everything a reconciliation run needs.
type Sync struct {
	SourceDir      string        `json:"source_dir" yaml:"source_dir"`
	DerivedDir     string        `json:"derived_dir" yaml:"derived_dir"`
	Extension      string        `json:"extension" yaml:"extension"`
	SourcePattern  string        `json:"source_pattern" yaml:"source_pattern"`
	DerivedPattern string        `json:"derived_pattern" yaml:"derived_pattern"`
	Lock           bool          `json:"lock" yaml:"lock"`
	LockFile       string        `json:"lock_file" yaml:"lock_file"`
	DryRun         bool          `json:"dry_run" yaml:"dry_run"`
	Debounce       time.Duration `json:"debounce" yaml:"debounce"`
	MetricsAddr    string        `json:"metrics_addr,omitempty" yaml:"metrics_addr,omitempty"`
}

// Defaults returns the built-in configuration.
func Defaults() Sync {
	return Sync{
		SourceDir:      constants.DefaultSourceDir,
		DerivedDir:     constants.DefaultDerivedDir,
		Extension:      constants.DefaultExtension,
		SourcePattern:  constants.DefaultSourcePattern,
		DerivedPattern: constants.DefaultDerivedPattern,
		Lock:           true,
		LockFile:       constants.LockFileName,
		Debounce:       constants.DefaultDebounce,
	}
}

// SetDefaults registers Defaults on v and enables TAXSYNC_ environment lookup.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault(KeySourceDir, d.SourceDir)
	v.SetDefault(KeyDerivedDir, d.DerivedDir)
	v.SetDefault(KeyExtension, d.Extension)
	v.SetDefault(KeySourcePattern, d.SourcePattern)
	v.SetDefault(KeyDerivedPattern, d.DerivedPattern)
	v.SetDefault(KeyLock, d.Lock)
	v.SetDefault(KeyLockFile, d.LockFile)
	v.SetDefault(KeyDryRun, d.DryRun)
	v.SetDefault(KeyDebounce, d.Debounce)
	v.SetDefault(KeyMetricsAddr, d.MetricsAddr)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

// FromViper reads a Sync from v. Unset keys fall back to Defaults.
func FromViper(v *viper.Viper) Sync {
	cfg := Defaults()
	if v == nil {
		return cfg
	}

	if s := v.GetString(KeySourceDir); s != "" {
		cfg.SourceDir = s
	}
	if s := v.GetString(KeyDerivedDir); s != "" {
		cfg.DerivedDir = s
	}
	if s := v.GetString(KeySourcePattern); s != "" {
		cfg.SourcePattern = s
	}
	if s := v.GetString(KeyDerivedPattern); s != "" {
		cfg.DerivedPattern = s
	}
	if s := v.GetString(KeyExtension); s != "" {
		cfg.SetExtension(s)
	}
	if v.IsSet(KeyLock) {
		cfg.Lock = v.GetBool(KeyLock)
	}
	if s := v.GetString(KeyLockFile); s != "" {
		cfg.LockFile = s
	}
	cfg.DryRun = v.GetBool(KeyDryRun)
	if v.IsSet(KeyDebounce) {
		cfg.Debounce = v.GetDuration(KeyDebounce)
	}
	cfg.MetricsAddr = v.GetString(KeyMetricsAddr)

	return cfg
}

// SetExtension sets the extension of written records. While the derived
// pattern is the default "*.<extension>" form it follows the extension, so
// written records stay discoverable.
func (c *Sync) SetExtension(ext string) {
	ext = strings.TrimPrefix(ext, ".")
	if c.DerivedPattern == constants.DefaultDerivedPattern || c.DerivedPattern == "*."+c.Extension {
		c.DerivedPattern = "*." + ext
	}
	c.Extension = ext
}

// Validate reports the first invalid setting as a ValidationError.
func (c Sync) Validate() error {
	if strings.TrimSpace(c.SourceDir) == "" {
		return errors.NewValidationError(KeySourceDir, c.SourceDir, "cannot be empty")
	}
	if strings.TrimSpace(c.DerivedDir) == "" {
		return errors.NewValidationError(KeyDerivedDir, c.DerivedDir, "cannot be empty")
	}
	if c.Extension == "" || strings.ContainsAny(c.Extension, `/\`) {
		return errors.NewValidationError(KeyExtension, c.Extension, "must be a non-empty file extension")
	}
	if !doublestar.ValidatePattern(c.SourcePattern) {
		return errors.NewValidationError(KeySourcePattern, c.SourcePattern, "invalid glob pattern")
	}
	if !doublestar.ValidatePattern(c.DerivedPattern) {
		return errors.NewValidationError(KeyDerivedPattern, c.DerivedPattern, "invalid glob pattern")
	}
	if c.Lock && (c.LockFile == "" || filepath.Base(c.LockFile) != c.LockFile || !strings.HasPrefix(c.LockFile, ".")) {
		return errors.NewValidationError(KeyLockFile, c.LockFile, "must be a hidden file name")
	}
	if c.Debounce <= 0 {
		return errors.NewValidationError(KeyDebounce, c.Debounce, "must be positive")
	}
	return nil
}
