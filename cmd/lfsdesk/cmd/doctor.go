package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/brianly1003/lfsdesk/internal/adapters/lfs"
	"github.com/brianly1003/lfsdesk/internal/config"
)

var (
	doctorJSON        bool
	doctorStrict      bool
	doctorHTTPTimeout int
)

type doctorStatus string

const (
	doctorStatusOK   doctorStatus = "ok"
	doctorStatusWarn doctorStatus = "warn"
	doctorStatusFail doctorStatus = "fail"
)

type doctorCheck struct {
	ID          string                 `json:"id"`
	Status      doctorStatus           `json:"status"`
	Message     string                 `json:"message"`
	Details     map[string]interface{} `json:"details,omitempty"`
	Remediation string                 `json:"remediation,omitempty"`
}

type doctorSummary struct {
	Total int `json:"total"`
	OK    int `json:"ok"`
	Warn  int `json:"warn"`
	Fail  int `json:"fail"`
}

type doctorReport struct {
	Version      string        `json:"version"`
	GeneratedAt  string        `json:"generated_at"`
	Overall      doctorStatus  `json:"overall_status"`
	Summary      doctorSummary `json:"summary"`
	Checks       []doctorCheck `json:"checks"`
	SearchConfig []string      `json:"config_search_paths,omitempty"`
}

// lfsVersioner reports the installed git-lfs version.
type lfsVersioner interface {
	Version(ctx context.Context) (string, error)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run local diagnostics with remediation hints",
	Long: `Run read-only diagnostics against the local lfsdesk setup: configuration,
the git and git-lfs binaries, the folder picker, and (for the websocket
transport) the health endpoint of a running server.

Use --json for machine-readable output.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)

	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "output machine-readable JSON")
	doctorCmd.Flags().BoolVar(&doctorStrict, "strict", false, "return non-zero on warnings")
	doctorCmd.Flags().IntVar(&doctorHTTPTimeout, "http-timeout", 2, "health endpoint timeout in seconds")
}

func runDoctor(cmd *cobra.Command, args []string) error {
	report := collectDoctorReport(cmd.Context())

	out := cmd.OutOrStdout()
	if doctorJSON {
		if err := printDoctorJSON(out, report); err != nil {
			return err
		}
	} else {
		printDoctorText(out, report)
	}

	if report.Summary.Fail > 0 {
		return fmt.Errorf("doctor found %d failing check(s)", report.Summary.Fail)
	}
	if doctorStrict && report.Summary.Warn > 0 {
		return fmt.Errorf("doctor strict mode failed with %d warning(s)", report.Summary.Warn)
	}
	return nil
}

func collectDoctorReport(ctx context.Context) doctorReport {
	if ctx == nil {
		ctx = context.Background()
	}
	checks := make([]doctorCheck, 0, 8)

	cfg := config.Default()
	loadedCfg, cfgCheck := checkConfigLoad(cfgFile)
	checks = append(checks, cfgCheck)
	if loadedCfg != nil {
		cfg = loadedCfg
	}

	checks = append(checks, checkConfigDirectory())
	checks = append(checks, checkRepositoryPath(cfg.Repository.Picker, cfg.Repository.Path))
	checks = append(checks, checkCommandBinary("runtime.git", cfg.LFS.Command, true))
	checks = append(checks, checkLFSVersion(ctx, lfs.NewAdapter(cfg.LFS.Command)))

	if cfg.Repository.Picker == config.PickerDialog && len(cfg.Repository.DialogCommand) > 0 {
		checks = append(checks, checkCommandBinary("picker.dialog", cfg.Repository.DialogCommand[0], true))
	}
	if cfg.Server.Transport == config.TransportWebSocket {
		checks = append(checks, checkHealthEndpoint(cfg.Server.Host, cfg.Server.Port, doctorHTTPTimeout))
	}

	summary := summarizeDoctorChecks(checks)
	return doctorReport{
		Version:      "1.0",
		GeneratedAt:  time.Now().UTC().Format(time.RFC3339),
		Overall:      overallStatus(summary),
		Summary:      summary,
		Checks:       checks,
		SearchConfig: configSearchPaths(cfgFile),
	}
}

func checkConfigLoad(path string) (*config.Config, doctorCheck) {
	cfg, err := config.Load(path)
	searchPaths := configSearchPaths(path)
	if err != nil {
		return nil, doctorCheck{
			ID:      "config.load",
			Status:  doctorStatusFail,
			Message: fmt.Sprintf("Failed to load config: %v", err),
			Details: map[string]interface{}{
				"config_path":  strings.TrimSpace(path),
				"search_paths": searchPaths,
			},
			Remediation: "Fix the config file, or run `lfsdesk config init --force` to regenerate defaults.",
		}
	}

	source := findFirstExistingPath(searchPaths)
	msg := "Configuration loaded using built-in defaults and environment overrides"
	if source != "" {
		msg = "Configuration loaded successfully"
	}

	return cfg, doctorCheck{
		ID:      "config.load",
		Status:  doctorStatusOK,
		Message: msg,
		Details: map[string]interface{}{
			"loaded_from":  source,
			"search_paths": searchPaths,
		},
	}
}

func checkConfigDirectory() doctorCheck {
	dir, err := config.GetConfigDir()
	if err != nil {
		return doctorCheck{
			ID:          "config.directory",
			Status:      doctorStatusFail,
			Message:     fmt.Sprintf("Failed to resolve config directory: %v", err),
			Remediation: "Verify your HOME environment and filesystem permissions.",
		}
	}

	info, statErr := os.Stat(dir)
	switch {
	case os.IsNotExist(statErr):
		return doctorCheck{
			ID:          "config.directory",
			Status:      doctorStatusWarn,
			Message:     "Config directory does not exist yet",
			Details:     map[string]interface{}{"path": dir},
			Remediation: "Run `lfsdesk config init` to create initial local configuration.",
		}
	case statErr != nil:
		return doctorCheck{
			ID:          "config.directory",
			Status:      doctorStatusFail,
			Message:     fmt.Sprintf("Failed to access config directory: %v", statErr),
			Details:     map[string]interface{}{"path": dir},
			Remediation: "Fix directory permissions or create the directory manually.",
		}
	case !info.IsDir():
		return doctorCheck{
			ID:          "config.directory",
			Status:      doctorStatusFail,
			Message:     "Config path exists but is not a directory",
			Details:     map[string]interface{}{"path": dir},
			Remediation: "Remove the file and recreate the directory with `mkdir -p ~/.lfsdesk`.",
		}
	}

	return doctorCheck{
		ID:      "config.directory",
		Status:  doctorStatusOK,
		Message: "Config directory is available",
		Details: map[string]interface{}{"path": dir},
	}
}

func checkRepositoryPath(picker, path string) doctorCheck {
	if strings.TrimSpace(path) == "" {
		if picker == config.PickerStatic {
			return doctorCheck{
				ID:          "repository.path",
				Status:      doctorStatusFail,
				Message:     "The static picker has no folder to offer",
				Remediation: "Set `repository.path` or pass `--repo` to `lfsdesk start`.",
			}
		}
		return doctorCheck{
			ID:      "repository.path",
			Status:  doctorStatusOK,
			Message: fmt.Sprintf("repository.path is empty (%s picker asks at runtime)", picker),
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return doctorCheck{
			ID:          "repository.path",
			Status:      doctorStatusFail,
			Message:     fmt.Sprintf("Configured repository path is not usable: %v", err),
			Details:     map[string]interface{}{"path": path},
			Remediation: "Update `repository.path` in config or run lfsdesk from a valid repository.",
		}
	}
	if !info.IsDir() {
		return doctorCheck{
			ID:          "repository.path",
			Status:      doctorStatusFail,
			Message:     "Configured repository path is not a directory",
			Details:     map[string]interface{}{"path": path},
			Remediation: "Set `repository.path` to a directory path.",
		}
	}

	if _, err := os.Stat(filepath.Join(path, ".git")); err != nil {
		return doctorCheck{
			ID:          "repository.path",
			Status:      doctorStatusWarn,
			Message:     "Configured path has no .git entry; repository/select will reject it",
			Details:     map[string]interface{}{"path": path},
			Remediation: "Point `repository.path` at the root of a git working tree.",
		}
	}

	return doctorCheck{
		ID:      "repository.path",
		Status:  doctorStatusOK,
		Message: "Configured repository path is valid",
		Details: map[string]interface{}{"path": path},
	}
}

func checkCommandBinary(id, command string, recommended bool) doctorCheck {
	execName := extractCommandName(command)
	if execName == "" {
		return doctorCheck{
			ID:          id,
			Status:      doctorStatusFail,
			Message:     "Command is empty",
			Remediation: "Set the command in config to a valid executable name or absolute path.",
		}
	}

	resolved, err := exec.LookPath(execName)
	if err != nil {
		status := doctorStatusWarn
		remediation := fmt.Sprintf("Install `%s` and ensure it is available in PATH.", execName)
		if recommended {
			status = doctorStatusFail
			remediation = fmt.Sprintf("Install `%s` or update config to a valid command path.", execName)
		}
		return doctorCheck{
			ID:          id,
			Status:      status,
			Message:     fmt.Sprintf("Command not found in PATH: %s", execName),
			Details:     map[string]interface{}{"configured": command},
			Remediation: remediation,
		}
	}

	return doctorCheck{
		ID:      id,
		Status:  doctorStatusOK,
		Message: "Command is available",
		Details: map[string]interface{}{
			"configured": command,
			"resolved":   resolved,
		},
	}
}

func checkLFSVersion(ctx context.Context, v lfsVersioner) doctorCheck {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	version, err := v.Version(ctx)
	if err != nil {
		return doctorCheck{
			ID:          "runtime.git_lfs",
			Status:      doctorStatusFail,
			Message:     fmt.Sprintf("git lfs is not usable: %v", err),
			Remediation: "Install Git LFS and run `git lfs install` once.",
		}
	}
	return doctorCheck{
		ID:      "runtime.git_lfs",
		Status:  doctorStatusOK,
		Message: "git lfs is available",
		Details: map[string]interface{}{"version": version},
	}
}

func checkHealthEndpoint(host string, port, timeoutSeconds int) doctorCheck {
	if strings.TrimSpace(host) == "" {
		host = "127.0.0.1"
	}
	if timeoutSeconds <= 0 {
		timeoutSeconds = 2
	}

	url := fmt.Sprintf("http://%s:%d/health", host, port)
	client := &http.Client{Timeout: time.Duration(timeoutSeconds) * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return doctorCheck{
			ID:          "server.health_endpoint",
			Status:      doctorStatusWarn,
			Message:     fmt.Sprintf("Health endpoint is not reachable: %v", err),
			Details:     map[string]interface{}{"url": url},
			Remediation: "Start the server with `lfsdesk start --transport websocket` and verify host/port.",
		}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return doctorCheck{
			ID:      "server.health_endpoint",
			Status:  doctorStatusFail,
			Message: fmt.Sprintf("Health endpoint returned non-200 status: %d", resp.StatusCode),
			Details: map[string]interface{}{
				"url":         url,
				"status_code": resp.StatusCode,
				"body":        strings.TrimSpace(string(body)),
			},
			Remediation: "Check server logs (`lfsdesk start -v`) to diagnose startup issues.",
		}
	}

	return doctorCheck{
		ID:      "server.health_endpoint",
		Status:  doctorStatusOK,
		Message: "Health endpoint is reachable",
		Details: map[string]interface{}{
			"url":         url,
			"status_code": resp.StatusCode,
		},
	}
}

func summarizeDoctorChecks(checks []doctorCheck) doctorSummary {
	summary := doctorSummary{Total: len(checks)}
	for _, check := range checks {
		switch check.Status {
		case doctorStatusOK:
			summary.OK++
		case doctorStatusWarn:
			summary.Warn++
		case doctorStatusFail:
			summary.Fail++
		}
	}
	return summary
}

func overallStatus(summary doctorSummary) doctorStatus {
	if summary.Fail > 0 {
		return doctorStatusFail
	}
	if summary.Warn > 0 {
		return doctorStatusWarn
	}
	return doctorStatusOK
}

func printDoctorJSON(out io.Writer, report doctorReport) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

func printDoctorText(out io.Writer, report doctorReport) {
	fmt.Fprintf(out, "lfsdesk doctor v%s\n", report.Version)
	fmt.Fprintf(out, "generated_at: %s\n", report.GeneratedAt)
	fmt.Fprintf(out, "overall: %s  (ok=%d warn=%d fail=%d total=%d)\n\n",
		strings.ToUpper(string(report.Overall)),
		report.Summary.OK,
		report.Summary.Warn,
		report.Summary.Fail,
		report.Summary.Total,
	)

	for _, check := range report.Checks {
		label := "[OK]"
		if check.Status == doctorStatusWarn {
			label = "[WARN]"
		}
		if check.Status == doctorStatusFail {
			label = "[FAIL]"
		}

		fmt.Fprintf(out, "%s %s: %s\n", label, check.ID, check.Message)
		if check.Remediation != "" && check.Status != doctorStatusOK {
			fmt.Fprintf(out, "  fix: %s\n", check.Remediation)
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Tip: run `lfsdesk doctor --json` for machine-readable output.")
}

func configSearchPaths(explicit string) []string {
	if strings.TrimSpace(explicit) != "" {
		return []string{explicit}
	}

	return []string{
		filepath.Join(".", "config.yaml"),
		filepath.Join(userHomeDir(), ".lfsdesk", "config.yaml"),
	}
}

func findFirstExistingPath(paths []string) string {
	for _, candidate := range paths {
		if strings.TrimSpace(candidate) == "" {
			continue
		}
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

func extractCommandName(command string) string {
	parts := strings.Fields(strings.TrimSpace(command))
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}

func userHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
