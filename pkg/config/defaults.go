package config

import (
	"strings"
	"time"
)

// ApplyDefaults sets default values for any unspecified configuration
// fields. Zero values are replaced; explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyStorageDefaults(&cfg.Storage)
	applyWOPIDefaults(&cfg.WOPI)
	applySubmissionDefaults(cfg.Submissions)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalized to uppercase for consistent internal representation.
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":9980"
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.RequestsPerSecond > 0 && cfg.Burst == 0 {
		cfg.Burst = cfg.RequestsPerSecond * 2
	}
}

func applyStorageDefaults(cfg *StorageConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}

	if cfg.Filesystem == nil {
		cfg.Filesystem = make(map[string]any)
	}
	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}
	if cfg.S3 == nil {
		cfg.S3 = make(map[string]any)
	}

	if _, ok := cfg.Filesystem["path"]; !ok {
		cfg.Filesystem["path"] = "/var/lib/collabora-wopi"
	}
}

func applyWOPIDefaults(cfg *WOPIConfig) {
	if cfg.SiteID == "" {
		cfg.SiteID = "collabora-wopi"
	}
	if cfg.CallbackURL == "" {
		cfg.CallbackURL = "http://localhost:9980"
	}
	if cfg.DiscoveryTTL == 0 {
		cfg.DiscoveryTTL = time.Hour
	}
	if cfg.ContextID == 0 {
		cfg.ContextID = 1
	}
}

func applySubmissionDefaults(submissions []SubmissionConfig) {
	for i := range submissions {
		if submissions[i].Filename == "" {
			submissions[i].Filename = "submission.odt"
		}
	}
}

// GetDefaultConfig returns a Config with all default values applied.
// Useful for generating sample configuration files and for tests.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
