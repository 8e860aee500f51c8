package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/convrep/client"
	"github.com/otherjamesbrown/convrep/config"
	"github.com/otherjamesbrown/convrep/pkg/tokens"
)

// Tokens command flags.
var (
	tokensRecords string
	tokensOutDir  string
	tokensStart   string
	tokensEnd     string
	tokensDryRun  bool
	tokensOutput  string
)

// TokensCommandDeps holds the dependencies for the tokens command.
type TokensCommandDeps struct {
	LoadConfig func() (*config.Config, error)

	// Overrides for testing; built from config when nil.
	Store   client.RecordStore
	Objects client.ObjectStore

	// Now overrides the clock; time.Now when nil.
	Now func() time.Time
}

// DefaultTokensDeps returns the default dependencies for production use.
func DefaultTokensDeps() *TokensCommandDeps {
	return &TokensCommandDeps{
		LoadConfig: config.LoadConfig,
	}
}

// tokensResult is the structured outcome of one token analysis run.
type tokensResult struct {
	Processed int          `json:"processed"`
	Filtered  int          `json:"filtered"`
	Errors    int          `json:"errors"`
	Stats     tokens.Stats `json:"stats"`
	CSVFile   string       `json:"csv_file,omitempty"`
}

// NewTokensCommand creates the tokens command.
func NewTokensCommand(deps *TokensCommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultTokensDeps()
	}

	cmd := &cobra.Command{
		Use:   "tokens",
		Short: "Estimate token usage and cost per conversation",
		Long: `Scan the conversation record store and estimate prompt and completion
tokens per record, priced at the configured per-thousand rates.

Records are filtered to the creation window; records with an invalid
creation timestamp stay in scope with a placeholder date. The per-record
usage table is published as a CSV artifact unless --dry-run is given.

Examples:
  # Analyze and publish the usage CSV
  convrep tokens

  # Analyze a custom window without publishing
  convrep tokens --start 2025-08-01 --end 2025-08-31 --dry-run

  # Machine-readable totals
  convrep tokens --output json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTokens(cmd, deps)
		},
	}

	cmd.Flags().StringVar(&tokensRecords, "records", "", "Record store file (overrides config)")
	cmd.Flags().StringVar(&tokensOutDir, "out", "", "Output directory for artifacts (overrides config)")
	cmd.Flags().StringVar(&tokensStart, "start", "", "Window start date, YYYY-MM-DD (overrides config)")
	cmd.Flags().StringVar(&tokensEnd, "end", "", "Window end date, YYYY-MM-DD (defaults to today)")
	cmd.Flags().BoolVar(&tokensDryRun, "dry-run", false, "Analyze without publishing the CSV")
	cmd.Flags().StringVarP(&tokensOutput, "output", "o", "", "Output format: text, json")

	return cmd
}

func runTokens(cmd *cobra.Command, deps *TokensCommandDeps) error {
	cfg, err := deps.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if tokensRecords != "" {
		cfg.RecordsPath = tokensRecords
	}
	if tokensOutDir != "" {
		cfg.OutputDir = tokensOutDir
	}
	if tokensStart != "" {
		cfg.FilterStart = tokensStart
	}

	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}

	start, err := cfg.FilterStartDate()
	if err != nil {
		return err
	}
	end := now().UTC().Truncate(24 * time.Hour).Add(24*time.Hour - time.Nanosecond)
	if tokensEnd != "" {
		parsed, err := time.Parse("2006-01-02", tokensEnd)
		if err != nil {
			return fmt.Errorf("invalid --end %q: must be YYYY-MM-DD", tokensEnd)
		}
		end = parsed.Add(24*time.Hour - time.Nanosecond)
	}

	store := deps.Store
	if store == nil {
		store = client.NewFileRecordStore(cfg.RecordsPath)
	}

	ctx, cancel := contextWithTimeout(cmd, cfg.Timeout)
	defer cancel()

	items, err := client.ScanAll(ctx, store)
	if err != nil {
		return fmt.Errorf("scanning records: %w", err)
	}

	analysis := tokens.Analyze(items, tokens.AnalysisOptions{Start: start, End: end})

	result := tokensResult{
		Processed: analysis.Processed,
		Filtered:  analysis.Filtered,
		Errors:    analysis.Errors,
		Stats:     tokens.StatsOf(analysis),
	}

	if !tokensDryRun {
		payload, err := tokens.EncodeCSV(analysis, now().UTC())
		if err != nil {
			return fmt.Errorf("encoding usage table: %w", err)
		}
		objects := deps.Objects
		if objects == nil {
			objects = client.NewDirObjectStore(cfg.OutputDir)
		}
		result.CSVFile, err = objects.Put(ctx, tokens.ObjectKey(), payload, "text/csv")
		if err != nil {
			return fmt.Errorf("uploading usage table: %w", err)
		}
	}

	format := resolveFormat(cfg, tokensOutput)
	if format == config.OutputFormatJSON {
		return outputJSON(cmd.OutOrStdout(), result)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Records:  %d analyzed, %d outside window, %d parse errors\n",
		result.Processed, result.Filtered, result.Errors)
	fmt.Fprintf(w, "Tokens:   %d input, %d output (%d total)\n",
		result.Stats.TotalInputTokens, result.Stats.TotalOutputTokens, result.Stats.TotalTokens)
	fmt.Fprintf(w, "Cost:     $%.6f input + $%.6f output = $%.6f\n",
		result.Stats.TotalInputCost, result.Stats.TotalOutputCost, result.Stats.TotalCost)
	if result.CSVFile != "" {
		fmt.Fprintf(w, "CSV:      %s\n", result.CSVFile)
	}
	return nil
}
