package app

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/taxsync/internal/config"
	"github.com/agentstation/taxsync/pkg/errors"
)

// Viper keys of the global CLI settings.
const (
	keyVerbose   = "verbose"
	keyQuiet     = "quiet"
	keyNoColor   = "no_color"
	keyFormat    = "format"
	keyLogLevel  = "log_level"
	keyLogFormat = "log_format"
	keyLogOutput = "log_output"
)

// Config holds the application configuration loaded from config files,
// environment variables, and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file actually read, empty when none was found
	ConfigFile string

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string

	// Sync holds the reconciliation settings
	Sync config.Sync
}

// LoadConfig loads configuration from all sources in order of precedence:
//  1. Command-line flags (applied later by setupCommand)
//  2. TAXSYNC_* environment variables
//  3. .env and .env.local files
//  4. Config file (configFile, or .taxsync.yaml in $HOME or the working directory)
//  5. Defaults
//
// A missing default config file is not an error; a missing explicit one is.
func LoadConfig(configFile string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	config.SetDefaults(v)
	v.SetDefault(keyLogFormat, "auto")
	v.SetDefault(keyLogOutput, "stderr")

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".taxsync")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, errors.NewConfigError("config file", err.Error(), err)
		}
	}

	return &Config{
		Verbose:    v.GetBool(keyVerbose),
		Quiet:      v.GetBool(keyQuiet),
		NoColor:    v.GetBool(keyNoColor) || os.Getenv("NO_COLOR") != "",
		Format:     v.GetString(keyFormat),
		ConfigFile: v.ConfigFileUsed(),
		LogLevel:   v.GetString(keyLogLevel),
		LogFormat:  v.GetString(keyLogFormat),
		LogOutput:  v.GetString(keyLogOutput),
		Sync:       config.FromViper(v),
	}, nil
}

// UpdateFromFlags applies the global flag values that were set explicitly,
// so flags take precedence over config file and environment.
func (c *Config) UpdateFromFlags(changed func(name string) bool, verbose, quiet, noColor bool, format, logLevel string) {
	if changed("verbose") {
		c.Verbose = verbose
	}
	if changed("quiet") {
		c.Quiet = quiet
	}
	if changed("no-color") {
		c.NoColor = noColor
	}
	if changed("format") {
		c.Format = format
	}
	if changed("log-level") {
		c.LogLevel = logLevel
	}
}

// loadEnvFiles loads environment variables from .env files.
// Variables already set in the environment are not overridden.
func loadEnvFiles() {
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}
