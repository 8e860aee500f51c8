// Package config provides configuration management for the convrep tool.
// It supports loading configuration from YAML files and environment
// variables; components receive the resulting struct explicitly and never
// read ambient environment state themselves.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// OutputFormat defines the supported output formats for CLI results.
type OutputFormat string

const (
	// OutputFormatText is human-readable plain text output.
	OutputFormatText OutputFormat = "text"
	// OutputFormatJSON is JSON-formatted output for machine processing.
	OutputFormatJSON OutputFormat = "json"
)

// Engine selects how projection partitions are transported.
type Engine string

const (
	EngineMemory Engine = "memory"
	EngineRedis  Engine = "redis"
)

// Default configuration values.
const (
	DefaultRecordsPath   = "records.ndjson"
	DefaultOutputDir     = "out"
	DefaultTimeout       = 10 * time.Minute
	DefaultOutputFormat  = OutputFormatText
	DefaultEngine        = EngineMemory
	DefaultRedisAddr     = "localhost:6379"
	DefaultWorkers       = 4
	DefaultPartitionSize = 200
	DefaultFilterStart   = "2025-08-04"
	DefaultConfigDir     = ".convrep"
	DefaultConfigFile    = "config.yaml"
)

// RefreshConfig holds BI dataset refresh settings.
type RefreshConfig struct {
	// Enabled controls whether a dataset refresh is requested after publish.
	Enabled bool `yaml:"enabled"`

	// DatasetID is the BI dataset to refresh.
	DatasetID string `yaml:"dataset_id,omitempty"`
}

// ProjectionConfig holds typed-projection settings.
type ProjectionConfig struct {
	// Engine is the partition transport: memory or redis.
	Engine Engine `yaml:"engine"`

	// RedisAddr is the Redis server address for the redis engine.
	RedisAddr string `yaml:"redis_addr,omitempty"`

	// Workers is the projection worker count.
	Workers int `yaml:"workers"`

	// PartitionSize is the row count per partition.
	PartitionSize int `yaml:"partition_size"`

	// TokenColumns adds estimated token columns to the typed output.
	TokenColumns bool `yaml:"token_columns,omitempty"`
}

// Config holds the convrep configuration.
type Config struct {
	// RecordsPath is the newline-delimited JSON record file to scan.
	RecordsPath string `yaml:"records_path"`

	// OutputDir is the base directory of the published artifacts.
	OutputDir string `yaml:"output_dir"`

	// FilterStart is the inclusive lower bound of the date window,
	// YYYY-MM-DD. The upper bound is always the run date.
	FilterStart string `yaml:"filter_start"`

	// Timeout bounds one full run.
	Timeout time.Duration `yaml:"timeout"`

	// OutputFormat specifies the default output format for commands.
	OutputFormat OutputFormat `yaml:"output_format"`

	// Debug enables verbose debug logging.
	Debug bool `yaml:"debug,omitempty"`

	// Refresh holds BI refresh settings.
	Refresh RefreshConfig `yaml:"refresh"`

	// Projection holds typed-projection settings.
	Projection ProjectionConfig `yaml:"projection"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		RecordsPath:  DefaultRecordsPath,
		OutputDir:    DefaultOutputDir,
		FilterStart:  DefaultFilterStart,
		Timeout:      DefaultTimeout,
		OutputFormat: DefaultOutputFormat,
		Projection: ProjectionConfig{
			Engine:        DefaultEngine,
			RedisAddr:     DefaultRedisAddr,
			Workers:       DefaultWorkers,
			PartitionSize: DefaultPartitionSize,
		},
	}
}

// ConfigDir returns the configuration directory path.
// Uses $CONVREP_CONFIG_DIR if set, otherwise ~/.convrep
func ConfigDir() (string, error) {
	if dir := os.Getenv("CONVREP_CONFIG_DIR"); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}

	return filepath.Join(home, DefaultConfigDir), nil
}

// ConfigPath returns the full path to the configuration file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultConfigFile), nil
}

// LoadConfig loads the configuration. Sources, later overriding earlier:
// defaults, config file (~/.convrep/config.yaml or
// $CONVREP_CONFIG_DIR/config.yaml), environment variables (CONVREP_*).
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	configPath, err := ConfigPath()
	if err != nil {
		return nil, fmt.Errorf("getting config path: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	loadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	// Temp struct so the duration unmarshals from a string.
	type configFile struct {
		RecordsPath  string           `yaml:"records_path"`
		OutputDir    string           `yaml:"output_dir"`
		FilterStart  string           `yaml:"filter_start"`
		Timeout      string           `yaml:"timeout"`
		OutputFormat OutputFormat     `yaml:"output_format"`
		Debug        bool             `yaml:"debug"`
		Refresh      RefreshConfig    `yaml:"refresh"`
		Projection   ProjectionConfig `yaml:"projection"`
	}

	var fileCfg configFile
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	if fileCfg.RecordsPath != "" {
		cfg.RecordsPath = fileCfg.RecordsPath
	}
	if fileCfg.OutputDir != "" {
		cfg.OutputDir = fileCfg.OutputDir
	}
	if fileCfg.FilterStart != "" {
		cfg.FilterStart = fileCfg.FilterStart
	}
	if fileCfg.Timeout != "" {
		timeout, err := time.ParseDuration(fileCfg.Timeout)
		if err != nil {
			return fmt.Errorf("parsing timeout: %w", err)
		}
		cfg.Timeout = timeout
	}
	if fileCfg.OutputFormat != "" {
		cfg.OutputFormat = fileCfg.OutputFormat
	}
	cfg.Debug = fileCfg.Debug
	if fileCfg.Refresh.DatasetID != "" || fileCfg.Refresh.Enabled {
		cfg.Refresh = fileCfg.Refresh
	}
	if fileCfg.Projection.Engine != "" {
		cfg.Projection.Engine = fileCfg.Projection.Engine
	}
	if fileCfg.Projection.RedisAddr != "" {
		cfg.Projection.RedisAddr = fileCfg.Projection.RedisAddr
	}
	if fileCfg.Projection.Workers > 0 {
		cfg.Projection.Workers = fileCfg.Projection.Workers
	}
	if fileCfg.Projection.PartitionSize > 0 {
		cfg.Projection.PartitionSize = fileCfg.Projection.PartitionSize
	}
	if fileCfg.Projection.TokenColumns {
		cfg.Projection.TokenColumns = true
	}

	return nil
}

// loadFromEnv overlays environment variables onto the configuration.
func loadFromEnv(cfg *Config) {
	if v := os.Getenv("CONVREP_RECORDS_PATH"); v != "" {
		cfg.RecordsPath = v
	}

	if v := os.Getenv("CONVREP_OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}

	if v := os.Getenv("CONVREP_FILTER_START"); v != "" {
		cfg.FilterStart = v
	}

	if v := os.Getenv("CONVREP_TIMEOUT"); v != "" {
		if timeout, err := time.ParseDuration(v); err == nil {
			cfg.Timeout = timeout
		}
	}

	if v := os.Getenv("CONVREP_OUTPUT_FORMAT"); v != "" {
		cfg.OutputFormat = OutputFormat(v)
	}

	if v := os.Getenv("CONVREP_DEBUG"); v == "true" || v == "1" {
		cfg.Debug = true
	}

	if v := os.Getenv("CONVREP_REFRESH_ENABLED"); v == "true" || v == "1" {
		cfg.Refresh.Enabled = true
	}

	if v := os.Getenv("CONVREP_REFRESH_DATASET_ID"); v != "" {
		cfg.Refresh.DatasetID = v
	}

	if v := os.Getenv("CONVREP_PROJECTION_ENGINE"); v != "" {
		cfg.Projection.Engine = Engine(v)
	}

	if v := os.Getenv("CONVREP_REDIS_ADDR"); v != "" {
		cfg.Projection.RedisAddr = v
	}

	if v := os.Getenv("CONVREP_PROJECTION_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Projection.Workers = n
		}
	}

	if v := os.Getenv("CONVREP_PROJECTION_PARTITION_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Projection.PartitionSize = n
		}
	}

	if v := os.Getenv("CONVREP_PROJECTION_TOKEN_COLUMNS"); v == "true" || v == "1" {
		cfg.Projection.TokenColumns = true
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.RecordsPath == "" {
		return fmt.Errorf("records_path is required")
	}

	if c.OutputDir == "" {
		return fmt.Errorf("output_dir is required")
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}

	if !c.OutputFormat.IsValid() {
		return fmt.Errorf("invalid output_format: %q (must be text or json)", c.OutputFormat)
	}

	if _, err := c.FilterStartDate(); err != nil {
		return err
	}

	switch c.Projection.Engine {
	case EngineMemory:
	case EngineRedis:
		if c.Projection.RedisAddr == "" {
			return fmt.Errorf("redis_addr is required for the redis engine")
		}
	default:
		return fmt.Errorf("invalid projection engine: %q (must be memory or redis)", c.Projection.Engine)
	}

	if c.Refresh.Enabled && c.Refresh.DatasetID == "" {
		return fmt.Errorf("refresh.dataset_id is required when refresh is enabled")
	}

	return nil
}

// FilterStartDate parses the configured window start.
func (c *Config) FilterStartDate() (time.Time, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(c.FilterStart))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid filter_start %q: must be YYYY-MM-DD", c.FilterStart)
	}
	return t, nil
}

// IsValid checks if the output format is valid.
func (f OutputFormat) IsValid() bool {
	switch f {
	case OutputFormatText, OutputFormatJSON:
		return true
	default:
		return false
	}
}

// String returns the string representation of the output format.
func (f OutputFormat) String() string {
	return string(f)
}

// SaveConfig saves the configuration to the config file.
func SaveConfig(cfg *Config) error {
	configDir, err := ConfigDir()
	if err != nil {
		return fmt.Errorf("getting config directory: %w", err)
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(configDir, DefaultConfigFile)

	// YAML-friendly form with the duration as a string.
	type configFile struct {
		RecordsPath  string           `yaml:"records_path"`
		OutputDir    string           `yaml:"output_dir"`
		FilterStart  string           `yaml:"filter_start"`
		Timeout      string           `yaml:"timeout"`
		OutputFormat OutputFormat     `yaml:"output_format"`
		Debug        bool             `yaml:"debug,omitempty"`
		Refresh      RefreshConfig    `yaml:"refresh,omitempty"`
		Projection   ProjectionConfig `yaml:"projection"`
	}

	fileCfg := configFile{
		RecordsPath:  cfg.RecordsPath,
		OutputDir:    cfg.OutputDir,
		FilterStart:  cfg.FilterStart,
		Timeout:      cfg.Timeout.String(),
		OutputFormat: cfg.OutputFormat,
		Debug:        cfg.Debug,
		Refresh:      cfg.Refresh,
		Projection:   cfg.Projection,
	}

	data, err := yaml.Marshal(&fileCfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}
