// Package config handles configuration management for lfsdesk.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g. LFSDESK_SERVER_PORT.
const EnvPrefix = "LFSDESK"

// Config holds all configuration for the application.
type Config struct {
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Repository RepositoryConfig `mapstructure:"repository" yaml:"repository"`
	LFS        LFSConfig        `mapstructure:"lfs" yaml:"lfs"`
	Search     SearchConfig     `mapstructure:"search" yaml:"search"`
	Watcher    WatcherConfig    `mapstructure:"watcher" yaml:"watcher"`
	Hub        HubConfig        `mapstructure:"hub" yaml:"hub"`
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging"`
	History    HistoryConfig    `mapstructure:"history" yaml:"history"`
}

// ServerConfig holds transport configuration.
type ServerConfig struct {
	Transport    string `mapstructure:"transport" yaml:"transport"` // stdio or websocket
	Host         string `mapstructure:"host" yaml:"host"`
	Port         int    `mapstructure:"port" yaml:"port"`
	StdioFraming string `mapstructure:"stdio_framing" yaml:"stdio_framing"` // newline or lsp
	Debug        bool   `mapstructure:"debug" yaml:"debug"`                 // /debug/runtime and pprof on the websocket server
}

// Addr returns host:port for the websocket listener.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RepositoryConfig holds folder picker configuration.
type RepositoryConfig struct {
	Path          string   `mapstructure:"path" yaml:"path"` // folder returned by the static picker
	Picker        string   `mapstructure:"picker" yaml:"picker"`
	DialogCommand []string `mapstructure:"dialog_command" yaml:"dialog_command,omitempty"`
}

// LFSConfig holds the git binary used for every lfs call.
type LFSConfig struct {
	Command string `mapstructure:"command" yaml:"command"`
}

// SearchConfig holds fuzzy filter configuration.
type SearchConfig struct {
	MaxResults int `mapstructure:"max_results" yaml:"max_results"`
}

// WatcherConfig holds repository watcher configuration.
type WatcherConfig struct {
	Enabled    bool     `mapstructure:"enabled" yaml:"enabled"`
	DebounceMS int      `mapstructure:"debounce_ms" yaml:"debounce_ms"`
	Files      []string `mapstructure:"files" yaml:"files"`
}

// HubConfig holds event hub configuration.
type HubConfig struct {
	BufferSize int `mapstructure:"buffer_size" yaml:"buffer_size"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Format     string `mapstructure:"format" yaml:"format"`
	File       string `mapstructure:"file" yaml:"file,omitempty"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
}

// HistoryConfig holds lock history journal configuration.
type HistoryConfig struct {
	Enabled    bool `mapstructure:"enabled" yaml:"enabled"`
	MaxRecords int  `mapstructure:"max_records" yaml:"max_records"`
}

// Load loads configuration from files and environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.lfsdesk")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional - not an error if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	if err := postProcess(&cfg); err != nil {
		return nil, err
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the built-in configuration without reading files or env.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Defaults always decode.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.transport", TransportStdio)
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8770)
	v.SetDefault("server.stdio_framing", "newline")
	v.SetDefault("server.debug", false)

	v.SetDefault("repository.path", "")
	v.SetDefault("repository.picker", PickerStatic)
	v.SetDefault("repository.dialog_command", DefaultDialogCommand)

	v.SetDefault("lfs.command", "git")

	v.SetDefault("search.max_results", DefaultMaxResults)

	v.SetDefault("watcher.enabled", true)
	v.SetDefault("watcher.debounce_ms", 250)
	v.SetDefault("watcher.files", DefaultWatchedFiles)

	v.SetDefault("hub.buffer_size", 256)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 28)

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.max_records", 1000)
}

// postProcess applies post-processing to configuration.
func postProcess(cfg *Config) error {
	cfg.Server.Transport = strings.ToLower(strings.TrimSpace(cfg.Server.Transport))
	cfg.Repository.Picker = strings.ToLower(strings.TrimSpace(cfg.Repository.Picker))

	// The static picker offers the working directory when no folder is configured.
	if cfg.Repository.Path == "" && cfg.Repository.Picker == PickerStatic {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
		cfg.Repository.Path = cwd
	}

	if cfg.Repository.Path != "" {
		absPath, err := filepath.Abs(expandHome(cfg.Repository.Path))
		if err != nil {
			return fmt.Errorf("failed to resolve repository path: %w", err)
		}
		cfg.Repository.Path = absPath
	}

	if cfg.Logging.File != "" {
		cfg.Logging.File = expandHome(cfg.Logging.File)
	}

	return nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// GetConfigDir returns the user config directory for lfsdesk.
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".lfsdesk"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}
