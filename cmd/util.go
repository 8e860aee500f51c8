// Package cmd provides CLI commands for the convrep tool.
package cmd

import (
	"encoding/json"
	"io"

	"github.com/otherjamesbrown/convrep/config"
	"github.com/otherjamesbrown/convrep/pkg/logging"
)

// outputJSON writes v as indented JSON.
func outputJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newLogger builds the command logger from the loaded configuration.
func newLogger(cfg *config.Config) logging.Logger {
	logCfg := logging.DefaultConfig()
	if cfg.Debug {
		logCfg.Level = logging.LevelDebug
	}
	if cfg.OutputFormat == config.OutputFormatJSON {
		logCfg.JSONFormat = true
	}
	return logging.NewLogger(logCfg)
}

// resolveFormat applies a per-command --output flag over the configured
// default.
func resolveFormat(cfg *config.Config, flag string) config.OutputFormat {
	if flag != "" {
		return config.OutputFormat(flag)
	}
	return cfg.OutputFormat
}
