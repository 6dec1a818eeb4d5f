// Package config loads, validates and materializes the WOPI host
// configuration. Each storage backend defines its own options; the Config
// struct carries type-specific sections as loose maps and only the section
// matching the selected type is decoded.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config is the complete host configuration.
//
// Configuration sources, in order of precedence:
//  1. Environment variables (COLLABORA_*)
//  2. Configuration file (YAML)
//  3. Default values
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging"`

	// Server contains the HTTP-facing settings.
	Server ServerConfig `mapstructure:"server"`

	// Storage selects the resource backend and its type-specific options.
	Storage StorageConfig `mapstructure:"storage"`

	// WOPI carries the protocol-level settings shared by all backends.
	WOPI WOPIConfig `mapstructure:"wopi"`

	// Users, Groups and Submissions seed the in-process submission
	// registry of the standalone server.
	Users       []UserConfig       `mapstructure:"users" validate:"dive"`
	Groups      []GroupConfig      `mapstructure:"groups" validate:"dive"`
	Submissions []SubmissionConfig `mapstructure:"submissions" validate:"dive"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive).
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Output is where logs are written: stdout, stderr, or a file path.
	Output string `mapstructure:"output" validate:"required"`
}

// ServerConfig contains the HTTP server settings.
type ServerConfig struct {
	// ListenAddr is the bind address, e.g. ":9980".
	ListenAddr string `mapstructure:"listen_addr" validate:"required"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`

	// RequestsPerSecond caps the sustained request rate. Zero disables
	// rate limiting.
	RequestsPerSecond uint `mapstructure:"requests_per_second"`

	// Burst is the rate limiter burst capacity.
	Burst uint `mapstructure:"burst"`
}

// StorageConfig selects the resource backend.
//
// The Type field determines which backend implementation is used. Only the
// corresponding type-specific section is decoded.
type StorageConfig struct {
	// Type selects the backend implementation.
	// Valid values: memory, filesystem, badger, s3.
	Type string `mapstructure:"type" validate:"required,oneof=memory filesystem badger s3"`

	// Filesystem is used when Type = "filesystem".
	Filesystem map[string]any `mapstructure:"filesystem"`

	// Memory is used when Type = "memory".
	Memory map[string]any `mapstructure:"memory"`

	// Badger is used when Type = "badger".
	Badger map[string]any `mapstructure:"badger"`

	// S3 is used when Type = "s3".
	S3 map[string]any `mapstructure:"s3"`
}

// WOPIConfig carries protocol-level settings.
type WOPIConfig struct {
	// SiteID is the installation identifier reported as OwnerId.
	SiteID string `mapstructure:"site_id" validate:"required"`

	// CallbackURL is the public base URL under which the editor reaches
	// this host (embedded as WOPISrc in launch URLs).
	CallbackURL string `mapstructure:"callback_url" validate:"required,url"`

	// DiscoveryURL is the editor's base URL for capability discovery.
	// Empty disables the view endpoint.
	DiscoveryURL string `mapstructure:"discovery_url" validate:"omitempty,url"`

	// DiscoveryTTL bounds how long a fetched discovery document is reused.
	DiscoveryTTL time.Duration `mapstructure:"discovery_ttl" validate:"gte=0"`

	// ContextID is the course module context resources are stamped with.
	ContextID int64 `mapstructure:"context_id" validate:"gte=0"`
}

// UserConfig seeds one principal.
type UserConfig struct {
	ID   int64  `mapstructure:"id" validate:"required,gt=0"`
	Name string `mapstructure:"name"`

	// Role is the capability class: student, grader or admin.
	Role string `mapstructure:"role" validate:"required,oneof=student grader admin"`
}

// GroupConfig seeds one group with its members.
type GroupConfig struct {
	ID      int64   `mapstructure:"id" validate:"required,gt=0"`
	Members []int64 `mapstructure:"members" validate:"min=1,dive,gt=0"`
}

// SubmissionConfig seeds one assignment submission. Exactly one of UserID
// or GroupID must be set.
type SubmissionConfig struct {
	ID      int64 `mapstructure:"id" validate:"required,gt=0"`
	UserID  int64 `mapstructure:"user_id" validate:"gte=0"`
	GroupID int64 `mapstructure:"group_id" validate:"gte=0"`

	// Locked closes the editing window regardless of the cutoff date.
	Locked bool `mapstructure:"locked"`

	// CutoffDate closes the window once passed (RFC 3339). Zero means no
	// cutoff.
	CutoffDate time.Time `mapstructure:"cutoff_date"`

	// Filename names the submission document. The extension selects the
	// editor application.
	Filename string `mapstructure:"filename"`

	// SeedFile optionally points at a local file whose bytes initialize
	// the document when no stored resource exists yet.
	SeedFile string `mapstructure:"seed_file"`
}

// Load loads configuration from file, environment, and defaults.
//
// configPath may be empty, in which case the default location is searched
// and a missing file falls back to defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToTimeHookFunc(time.RFC3339),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures environment variable support and the config file
// search path. Environment variables use the COLLABORA_ prefix with
// underscores, e.g. COLLABORA_LOGGING_LEVEL=DEBUG.
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("COLLABORA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir returns the configuration directory: $XDG_CONFIG_HOME if
// set, otherwise ~/.config, with the current directory as last resort.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "collabora-wopi")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "collabora-wopi")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
