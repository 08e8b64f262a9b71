package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Validate validates the configuration.
func Validate(cfg *Config) error {
	if err := validateServer(&cfg.Server); err != nil {
		return err
	}

	if err := validateRepository(&cfg.Repository); err != nil {
		return err
	}

	if cfg.LFS.Command == "" {
		return fmt.Errorf("lfs.command cannot be empty")
	}

	if cfg.Search.MaxResults < 1 || cfg.Search.MaxResults > DefaultMaxResults {
		return fmt.Errorf("search.max_results must be between 1 and %d", DefaultMaxResults)
	}

	if err := validateWatcher(&cfg.Watcher); err != nil {
		return err
	}

	if cfg.Hub.BufferSize < 1 {
		return fmt.Errorf("hub.buffer_size must be at least 1")
	}

	if err := validateLogging(&cfg.Logging); err != nil {
		return err
	}

	if cfg.History.Enabled && cfg.History.MaxRecords < 1 {
		return fmt.Errorf("history.max_records must be at least 1 when history is enabled")
	}

	return nil
}

func validateServer(cfg *ServerConfig) error {
	switch cfg.Transport {
	case TransportStdio:
		switch strings.ToLower(cfg.StdioFraming) {
		case "", "newline", "ndjson", "lsp", "content-length":
		default:
			return fmt.Errorf("server.stdio_framing must be newline or lsp, got %q", cfg.StdioFraming)
		}
	case TransportWebSocket:
		if cfg.Port < 1 || cfg.Port > 65535 {
			return fmt.Errorf("server.port must be between 1 and 65535")
		}
		if cfg.Host == "" {
			return fmt.Errorf("server.host cannot be empty")
		}
	default:
		return fmt.Errorf("server.transport must be %s or %s, got %q", TransportStdio, TransportWebSocket, cfg.Transport)
	}
	return nil
}

func validateRepository(cfg *RepositoryConfig) error {
	switch cfg.Picker {
	case PickerStatic, PickerPrompt:
	case PickerDialog:
		if len(cfg.DialogCommand) == 0 || cfg.DialogCommand[0] == "" {
			return fmt.Errorf("repository.dialog_command cannot be empty for the dialog picker")
		}
	default:
		return fmt.Errorf("repository.picker must be static, prompt or dialog, got %q", cfg.Picker)
	}

	// Only validate if path is explicitly configured
	if cfg.Path == "" {
		return nil
	}

	info, err := os.Stat(cfg.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("repository.path does not exist: %s", cfg.Path)
		}
		return fmt.Errorf("error accessing repository.path: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("repository.path is not a directory: %s", cfg.Path)
	}

	return nil
}

func validateWatcher(cfg *WatcherConfig) error {
	if cfg.DebounceMS < 0 {
		return fmt.Errorf("watcher.debounce_ms cannot be negative")
	}
	if cfg.DebounceMS > 10000 {
		return fmt.Errorf("watcher.debounce_ms cannot exceed 10000ms")
	}
	if cfg.Enabled && len(cfg.Files) == 0 {
		return fmt.Errorf("watcher.files cannot be empty when the watcher is enabled")
	}
	return nil
}

func validateLogging(cfg *LoggingConfig) error {
	if _, err := zerolog.ParseLevel(strings.ToLower(cfg.Level)); err != nil {
		return fmt.Errorf("logging.level is invalid: %s", cfg.Level)
	}
	switch cfg.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", cfg.Format)
	}
	if cfg.File != "" && cfg.MaxSizeMB < 1 {
		return fmt.Errorf("logging.max_size_mb must be at least 1")
	}
	return nil
}
