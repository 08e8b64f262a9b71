package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/brianly1003/lfsdesk/internal/app"
	"github.com/brianly1003/lfsdesk/internal/config"
)

var (
	transportFlag string
	repoPath      string
	port          int
	pickerFlag    string
	framingFlag   string
)

// startCmd represents the start command.
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the lfsdesk server",
	Long: `Start serving JSON-RPC requests from a UI client.

Transports:
  stdio      (default) requests on stdin, responses and notifications on stdout.
             Logs always go to stderr.
  websocket  listens on host:port, upgrades /ws, and serves /health.

Example:
  lfsdesk start                                  # stdio, current directory
  lfsdesk start --repo ~/art-assets --framing lsp
  lfsdesk start --transport websocket --port 8770
  lfsdesk start --picker prompt                  # ask for a folder on the terminal`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().StringVar(&transportFlag, "transport", "", "stdio or websocket (default: stdio)")
	startCmd.Flags().StringVar(&repoPath, "repo", "", "folder returned by the static picker (default: current directory)")
	startCmd.Flags().IntVar(&port, "port", 0, "websocket port (default: 8770)")
	startCmd.Flags().StringVar(&pickerFlag, "picker", "", "folder picker: static, prompt or dialog")
	startCmd.Flags().StringVar(&framingFlag, "framing", "", "stdio framing: newline or lsp")
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	applyStartFlags(cfg)

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	closeLogs := setupLogging(cfg)
	defer func() { _ = closeLogs() }()

	ev := log.Info().
		Str("version", version).
		Str("transport", cfg.Server.Transport).
		Str("picker", cfg.Repository.Picker).
		Str("repo", cfg.Repository.Path)
	if cfg.Server.Transport == config.TransportWebSocket {
		ev = ev.Str("addr", cfg.Server.Addr())
	}
	ev.Msg("starting lfsdesk")

	application, err := app.New(cfg, version)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("application error: %w", err)
	}

	log.Info().Msg("lfsdesk stopped")
	return nil
}

// applyStartFlags overrides loaded config with explicitly set start flags.
func applyStartFlags(cfg *config.Config) {
	if transportFlag != "" {
		cfg.Server.Transport = strings.ToLower(transportFlag)
	}
	if repoPath != "" {
		if abs, err := filepath.Abs(repoPath); err == nil {
			cfg.Repository.Path = abs
		} else {
			cfg.Repository.Path = repoPath
		}
	}
	if port != 0 {
		cfg.Server.Port = port
	}
	if pickerFlag != "" {
		cfg.Repository.Picker = strings.ToLower(pickerFlag)
	}
	if framingFlag != "" {
		cfg.Server.StdioFraming = framingFlag
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}
