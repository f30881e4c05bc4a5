// Package config loads client configuration from the environment and an
// optional YAML config file.
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration values.
type Config struct {
	// Sage service
	ServerURL string

	// Session token persistence
	TokenFile string

	// Logging
	LogFile  string
	LogLevel slog.Level

	// Match reveal pacing (0 means the built-in default)
	RevealDelay time.Duration
}

// fileConfig mirrors the optional config file. Environment variables win
// over file values.
type fileConfig struct {
	ServerURL   string `yaml:"server_url"`
	TokenFile   string `yaml:"token_file"`
	LogFile     string `yaml:"log_file"`
	LogLevel    string `yaml:"log_level"`
	RevealDelay string `yaml:"reveal_delay"`
}

// Load reads configuration: built-in defaults, then ~/.config/sage/config.yaml,
// then environment variables.
func Load() Config {
	configDir := defaultConfigDir()

	cfg := Config{
		ServerURL: "http://localhost:8000",
		TokenFile: filepath.Join(configDir, "session"),
		LogFile:   filepath.Join(os.TempDir(), "sage.log"),
		LogLevel:  slog.LevelInfo,
	}

	applyFile(&cfg, filepath.Join(configDir, "config.yaml"))
	applyEnv(&cfg)
	return cfg
}

func defaultConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "sage")
	}
	return ".sage"
}

func applyFile(cfg *Config, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		slog.Warn("ignoring malformed config file", "path", path, "error", err)
		return
	}

	if fc.ServerURL != "" {
		cfg.ServerURL = fc.ServerURL
	}
	if fc.TokenFile != "" {
		cfg.TokenFile = fc.TokenFile
	}
	if fc.LogFile != "" {
		cfg.LogFile = fc.LogFile
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = parseLogLevel(fc.LogLevel)
	}
	if fc.RevealDelay != "" {
		if d, err := time.ParseDuration(fc.RevealDelay); err == nil {
			cfg.RevealDelay = d
		}
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("SAGE_SERVER_URL"); v != "" {
		cfg.ServerURL = v
	}
	if v := os.Getenv("SAGE_TOKEN_FILE"); v != "" {
		cfg.TokenFile = v
	}
	if v := os.Getenv("SAGE_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if v := os.Getenv("SAGE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = parseLogLevel(v)
	}
	if v := os.Getenv("SAGE_REVEAL_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RevealDelay = d
		}
	}
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
