// Package main provides the convrep CLI entry point.
// convrep is the batch reporting tool for chat conversation records.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/convrep/cmd"
	"github.com/otherjamesbrown/convrep/config"
	"github.com/otherjamesbrown/convrep/pkg/buildinfo"
)

// Global flags.
var (
	outputFormat string
	debug        bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "convrep",
	Short: "Conversation reporting - batch ETL for chat records",
	Long: `convrep turns raw chat conversation records into BI-ready artifacts.

It scans a conversation record store, normalizes the tagged wire format,
aggregates one report row per user, and publishes the dashboard CSV with
its import manifest. Companion commands publish a typed variant of the
dataset and a token usage estimate.

COMMON WORKFLOWS:
  Publish the report:   convrep normalize
  Typed dataset:        convrep project --with-tokens
  Token usage:          convrep tokens
  Refresh BI dataset:   convrep refresh trigger --dataset ds-123

DISCOVERY:
  convrep <command> --help    Flags and examples for any command`,
	PersistentPreRunE: func(c *cobra.Command, args []string) error {
		if debug {
			os.Setenv("CONVREP_DEBUG", "true")
		}
		if outputFormat != "" {
			os.Setenv("CONVREP_OUTPUT_FORMAT", outputFormat)
		}
		return nil
	},
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(c *cobra.Command, args []string) error {
		info := buildinfo.Get("convrep")
		out := c.OutOrStdout()
		fmt.Fprintf(out, "convrep version %s\n", info.Version)
		fmt.Fprintf(out, "  commit:  %s\n", info.Commit)
		fmt.Fprintf(out, "  built:   %s\n", info.BuildTime)
		fmt.Fprintf(out, "  go:      %s\n", info.GoVersion)
		return nil
	},
}

// configCmd manages CLI configuration.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `View and modify the convrep configuration settings.`,
}

// configShowCmd displays current configuration.
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(c *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}

		configPath, _ := config.ConfigPath()

		out := c.OutOrStdout()
		fmt.Fprintln(out, "Current configuration:")
		fmt.Fprintf(out, "  Config file:     %s\n", configPath)
		fmt.Fprintf(out, "  Records path:    %s\n", cfg.RecordsPath)
		fmt.Fprintf(out, "  Output dir:      %s\n", cfg.OutputDir)
		fmt.Fprintf(out, "  Filter start:    %s\n", cfg.FilterStart)
		fmt.Fprintf(out, "  Timeout:         %s\n", cfg.Timeout)
		fmt.Fprintf(out, "  Output format:   %s\n", cfg.OutputFormat)
		fmt.Fprintf(out, "  Debug:           %t\n", cfg.Debug)
		fmt.Fprintf(out, "  Refresh:         %t (dataset: %s)\n", cfg.Refresh.Enabled, valueOrDefault(cfg.Refresh.DatasetID, "(not set)"))
		fmt.Fprintf(out, "  Projection:      %s engine, %d workers, partitions of %d\n",
			cfg.Projection.Engine, cfg.Projection.Workers, cfg.Projection.PartitionSize)
		if cfg.Projection.Engine == config.EngineRedis {
			fmt.Fprintf(out, "  Redis:           %s\n", cfg.Projection.RedisAddr)
		}
		return nil
	},
}

// configInitCmd initializes configuration.
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration file",
	Long:  `Create a new configuration file with default values if one doesn't exist.`,
	RunE: func(c *cobra.Command, args []string) error {
		configPath, err := config.ConfigPath()
		if err != nil {
			return fmt.Errorf("getting config path: %w", err)
		}

		if _, err := os.Stat(configPath); err == nil {
			fmt.Printf("Configuration file already exists: %s\n", configPath)
			fmt.Println("Use 'convrep config show' to view current settings.")
			return nil
		}

		defaultCfg := config.DefaultConfig()
		if err := config.SaveConfig(defaultCfg); err != nil {
			return fmt.Errorf("saving configuration: %w", err)
		}

		fmt.Printf("Created configuration file: %s\n", configPath)
		return nil
	},
}

// configSetCmd sets a configuration value.
var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the config file.

Available keys:
  records_path     - Record store file (newline-delimited JSON)
  output_dir       - Base directory for published artifacts
  filter_start     - Report window start (YYYY-MM-DD)
  timeout          - Run timeout (e.g., 5m, 1h)
  output_format    - Default output format (text, json)
  dataset_id       - BI dataset to refresh
  refresh_enabled  - Request a refresh after publishing (true/false)
  engine           - Projection transport (memory, redis)
  redis_addr       - Redis server address
  workers          - Projection worker count
  partition_size   - Rows per projection partition
  debug            - Enable debug logging (true/false)

Examples:
  convrep config set records_path /data/conversations.ndjson
  convrep config set filter_start 2025-08-04
  convrep config set engine redis
  convrep config set dataset_id ds-123`,
	Args: cobra.ExactArgs(2),
	RunE: func(c *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		currentCfg, err := config.LoadConfig()
		if err != nil {
			currentCfg = config.DefaultConfig()
		}

		switch key {
		case "records_path":
			currentCfg.RecordsPath = value
		case "output_dir":
			currentCfg.OutputDir = value
		case "filter_start":
			currentCfg.FilterStart = value
		case "timeout":
			duration, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid timeout value: %w", err)
			}
			currentCfg.Timeout = duration
		case "output_format":
			format := config.OutputFormat(value)
			if !format.IsValid() {
				return fmt.Errorf("invalid output format: %s (must be text or json)", value)
			}
			currentCfg.OutputFormat = format
		case "dataset_id":
			currentCfg.Refresh.DatasetID = value
		case "refresh_enabled":
			enabled, err := parseBool(value)
			if err != nil {
				return fmt.Errorf("invalid refresh_enabled value: %s (must be true or false)", value)
			}
			currentCfg.Refresh.Enabled = enabled
		case "engine":
			currentCfg.Projection.Engine = config.Engine(value)
		case "redis_addr":
			currentCfg.Projection.RedisAddr = value
		case "workers":
			var n int
			if _, err := fmt.Sscanf(value, "%d", &n); err != nil || n <= 0 {
				return fmt.Errorf("invalid workers value: %s (must be a positive integer)", value)
			}
			currentCfg.Projection.Workers = n
		case "partition_size":
			var n int
			if _, err := fmt.Sscanf(value, "%d", &n); err != nil || n <= 0 {
				return fmt.Errorf("invalid partition_size value: %s (must be a positive integer)", value)
			}
			currentCfg.Projection.PartitionSize = n
		case "debug":
			enabled, err := parseBool(value)
			if err != nil {
				return fmt.Errorf("invalid debug value: %s (must be true or false)", value)
			}
			currentCfg.Debug = enabled
		default:
			return fmt.Errorf("unknown configuration key: %s", key)
		}

		if err := currentCfg.Validate(); err != nil {
			return err
		}
		if err := config.SaveConfig(currentCfg); err != nil {
			return fmt.Errorf("saving configuration: %w", err)
		}

		fmt.Printf("Set %s = %s\n", key, value)
		return nil
	},
}

// completionCmd generates shell completion scripts.
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for convrep.

To load completions:

Bash:
  $ source <(convrep completion bash)

Zsh:
  $ convrep completion zsh > "${fpath[1]}/_convrep"

Fish:
  $ convrep completion fish | source

PowerShell:
  PS> convrep completion powershell | Out-String | Invoke-Expression
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(c *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(os.Stdout)
		case "zsh":
			return rootCmd.GenZshCompletion(os.Stdout)
		case "fish":
			return rootCmd.GenFishCompletion(os.Stdout, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletionWithDesc(os.Stdout)
		}
		return nil
	},
}

func parseBool(value string) (bool, error) {
	switch value {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("not a boolean: %s", value)
}

// valueOrDefault returns the value if non-empty, otherwise the default.
func valueOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}

func init() {
	// Global flags.
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "", "output format: text, json")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddGroup(
		&cobra.Group{ID: "run", Title: "Report Runs:"},
		&cobra.Group{ID: "setup", Title: "Setup:"},
	)

	normalizeCmd := cmd.NewNormalizeCommand(nil)
	normalizeCmd.GroupID = "run"
	rootCmd.AddCommand(normalizeCmd)

	projectCmd := cmd.NewProjectCommand(nil)
	projectCmd.GroupID = "run"
	rootCmd.AddCommand(projectCmd)

	tokensCmd := cmd.NewTokensCommand(nil)
	tokensCmd.GroupID = "run"
	rootCmd.AddCommand(tokensCmd)

	refreshCmd := cmd.NewRefreshCommand(nil)
	refreshCmd.GroupID = "run"
	rootCmd.AddCommand(refreshCmd)

	configCmd.GroupID = "setup"
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSetCmd)

	completionCmd.GroupID = "setup"
	rootCmd.AddCommand(completionCmd)

	versionCmd.GroupID = "setup"
	rootCmd.AddCommand(versionCmd)
}

func main() {
	// Set up signal handling for graceful shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
