package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/brianly1003/lfsdesk/internal/config"
)

var (
	configInitLocal bool
	configInitForce bool
)

// configCmd displays or manages configuration.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Display and manage configuration",
	Long: `Display and manage lfsdesk configuration.

Without subcommands, shows the current effective configuration.

Examples:
  lfsdesk config              # Show current config
  lfsdesk config init         # Create config file with defaults
  lfsdesk config path         # Show config file location
  lfsdesk config get <key>    # Get a config value
  lfsdesk config set <key> <value>  # Set a config value`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		printConfig(cmd.OutOrStdout(), cfg)
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a config file with default settings",
	Long: `Create a config file with default settings.

By default, creates ~/.lfsdesk/config.yaml.
Use --local to create ./config.yaml in the current directory.`,
	RunE: runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show config file location",
	Run:   runConfigPath,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Long: `Get a configuration value by key.

Keys use dot notation to access nested values.

Examples:
  lfsdesk config get server.transport
  lfsdesk config get search.max_results
  lfsdesk config get watcher.files`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value by key in ~/.lfsdesk/config.yaml.

Creates the config file if it doesn't exist.

Examples:
  lfsdesk config set server.transport websocket
  lfsdesk config set history.enabled false
  lfsdesk config set watcher.debounce_ms 500`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)

	configInitCmd.Flags().BoolVar(&configInitLocal, "local", false, "create config in current directory instead of ~/.lfsdesk/")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite existing config file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	var configPath string

	if configInitLocal {
		configPath = "config.yaml"
	} else {
		configDir, err := config.EnsureConfigDir()
		if err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
		configPath = filepath.Join(configDir, "config.yaml")
	}

	if _, err := os.Stat(configPath); err == nil && !configInitForce {
		return fmt.Errorf("config file already exists: %s\nUse --force to overwrite", configPath)
	}

	if err := writeDefaultConfig(configPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", configPath)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Config search paths (in order):")
	for i, loc := range configSearchPaths(cfgFile) {
		exists := "not found"
		if _, err := os.Stat(loc); err == nil {
			exists = "exists"
		}
		fmt.Fprintf(out, "  %d. %s (%s)\n", i+1, loc, exists)
	}
	fmt.Fprintf(out, "\nEnvironment overrides use the %s_ prefix, e.g. %s_SERVER_TRANSPORT.\n",
		config.EnvPrefix, config.EnvPrefix)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	value, err := getConfigValue(cfg, args[0])
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), value)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	configDir, err := config.EnsureConfigDir()
	if err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	configPath := filepath.Join(configDir, "config.yaml")

	var data map[string]interface{}
	if content, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(content, &data); err != nil {
			return fmt.Errorf("failed to parse existing config: %w", err)
		}
	}
	if data == nil {
		data = make(map[string]interface{})
	}

	if err := setNestedValue(data, key, value); err != nil {
		return err
	}

	content, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s in %s\n", key, value, configPath)
	return nil
}

// getConfigValue resolves a dotted key against the effective config using
// the same names as the YAML file.
func getConfigValue(cfg *config.Config, key string) (interface{}, error) {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var tree map[string]interface{}
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return nil, err
	}

	var current interface{} = tree
	for _, part := range strings.Split(key, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("unknown config key: %s", key)
		}
		current, ok = m[part]
		if !ok {
			return nil, fmt.Errorf("unknown config key: %s", key)
		}
	}
	if _, ok := current.(map[string]interface{}); ok {
		return nil, fmt.Errorf("invalid key: %s is a section", key)
	}
	return current, nil
}

func setNestedValue(data map[string]interface{}, key string, value string) error {
	parts := strings.Split(key, ".")

	current := data
	for i := 0; i < len(parts)-1; i++ {
		if _, ok := current[parts[i]]; !ok {
			current[parts[i]] = make(map[string]interface{})
		}
		nested, ok := current[parts[i]].(map[string]interface{})
		if !ok {
			return fmt.Errorf("cannot set nested value: %s is not a map", parts[i])
		}
		current = nested
	}

	current[parts[len(parts)-1]] = parseValue(key, value)
	return nil
}

// intKeys are config leaves decoded as integers.
var intKeys = []string{
	"port", "max_results", "debounce_ms", "buffer_size",
	"max_size_mb", "max_backups", "max_age_days", "max_records",
}

// listKeys are config leaves holding a comma separated list.
var listKeys = []string{"watcher.files", "repository.dialog_command"}

func parseValue(key string, value string) interface{} {
	if value == "true" {
		return true
	}
	if value == "false" {
		return false
	}

	for _, k := range listKeys {
		if key == k {
			items := []interface{}{}
			for _, item := range strings.Split(value, ",") {
				if item = strings.TrimSpace(item); item != "" {
					items = append(items, item)
				}
			}
			return items
		}
	}

	for _, k := range intKeys {
		if strings.HasSuffix(key, k) {
			var i int
			if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
				return i
			}
		}
	}

	return value
}

const configHeader = `# lfsdesk configuration
# Values here are overridden by LFSDESK_* environment variables and start flags.
#
# server.transport:     stdio | websocket
# server.stdio_framing: newline | lsp
# repository.picker:    static | prompt | dialog
# search.max_results:   1..50
`

func writeDefaultConfig(path string) error {
	body, err := yaml.Marshal(config.Default())
	if err != nil {
		return err
	}
	return os.WriteFile(path, append([]byte(configHeader+"\n"), body...), 0644)
}

func printConfig(out io.Writer, cfg *config.Config) {
	fmt.Fprintln(out, "Current Configuration:")
	fmt.Fprintln(out, "----------------------")
	fmt.Fprintf(out, "Transport:       %s\n", cfg.Server.Transport)
	if cfg.Server.Transport == config.TransportWebSocket {
		fmt.Fprintf(out, "Listen Address:  %s\n", cfg.Server.Addr())
	} else {
		fmt.Fprintf(out, "Stdio Framing:   %s\n", cfg.Server.StdioFraming)
	}
	fmt.Fprintf(out, "Picker:          %s\n", cfg.Repository.Picker)
	fmt.Fprintf(out, "Repository Path: %s\n", cfg.Repository.Path)
	fmt.Fprintf(out, "Git Command:     %s\n", cfg.LFS.Command)
	fmt.Fprintf(out, "Max Results:     %d\n", cfg.Search.MaxResults)
	fmt.Fprintf(out, "Watcher Enabled: %t\n", cfg.Watcher.Enabled)
	fmt.Fprintf(out, "History Enabled: %t\n", cfg.History.Enabled)
	fmt.Fprintf(out, "Log Level:       %s\n", cfg.Logging.Level)
	fmt.Fprintf(out, "Log Format:      %s\n", cfg.Logging.Format)
}
