package cmd

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/brianly1003/lfsdesk/internal/config"
)

// setupLogging points the global logger at stderr and, when logging.file is
// set, at a rotating log file as well. Stdout is never used: it carries the
// stdio protocol. The returned func closes the log file.
func setupLogging(cfg *config.Config) func() error {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	writer, closer := logWriters(cfg.Logging, os.Stderr)
	log.Logger = zerolog.New(writer).With().Timestamp().Logger()

	return closer
}

// logWriters builds the log sink for the given settings.
func logWriters(cfg config.LoggingConfig, stderr io.Writer) (io.Writer, func() error) {
	var console io.Writer = stderr
	if cfg.Format == "console" || verbose {
		console = zerolog.ConsoleWriter{Out: stderr}
	}

	if cfg.File == "" {
		return console, func() error { return nil }
	}

	file := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	}
	return zerolog.MultiLevelWriter(console, file), file.Close
}
