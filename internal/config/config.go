// Package config holds server configuration with environment overrides.
package config

import (
	"os"
	"path/filepath"
)

// Config holds application configuration
type Config struct {
	// Server settings
	ListenAddr string `json:"listen_addr"`
	LogLevel   string `json:"log_level"`

	// Directories
	DataDirectory string `json:"data_directory"`

	// Session settings
	SessionKey    string `json:"session_key"`
	SessionMaxAge int    `json:"session_max_age"`

	// Upload limits
	MaxUploadBytes int64 `json:"max_upload_bytes"`
}

// DefaultConfig returns configuration with sensible defaults
func DefaultConfig() *Config {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}

	return &Config{
		ListenAddr:     ":8080",
		LogLevel:       "info",
		DataDirectory:  filepath.Join(wd, "data"),
		SessionMaxAge:  86400 * 7,
		MaxUploadBytes: 10 << 20,
	}
}

// Load loads configuration from defaults and environment variables
func Load() *Config {
	cfg := DefaultConfig()

	if addr := os.Getenv("FINBOARD_LISTEN_ADDR"); addr != "" {
		cfg.ListenAddr = addr
	}
	if level := os.Getenv("FINBOARD_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	if dataDir := os.Getenv("FINBOARD_DATA_DIR"); dataDir != "" {
		cfg.DataDirectory = dataDir
	}
	if key := os.Getenv("FINBOARD_SESSION_KEY"); key != "" {
		cfg.SessionKey = key
	}

	return cfg
}
