package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/convrep/client"
	"github.com/otherjamesbrown/convrep/config"
	"github.com/otherjamesbrown/convrep/pkg/pipeline"
	"github.com/otherjamesbrown/convrep/pkg/report"
)

// Normalize command flags.
var (
	normalizeRecords string
	normalizeOutDir  string
	normalizeStart   string
	normalizeDataset string
	normalizeRefresh bool
	normalizeOutput  string
)

// NormalizeCommandDeps holds the dependencies for the normalize command.
type NormalizeCommandDeps struct {
	LoadConfig func() (*config.Config, error)

	// Overrides for testing; built from config when nil.
	Store     client.RecordStore
	Objects   client.ObjectStore
	Refresher client.Refresher
	Metrics   *pipeline.Metrics
}

// DefaultNormalizeDeps returns the default dependencies for production use.
func DefaultNormalizeDeps() *NormalizeCommandDeps {
	return &NormalizeCommandDeps{
		LoadConfig: config.LoadConfig,
		Metrics:    pipeline.DefaultMetrics(),
	}
}

// NewNormalizeCommand creates the normalize command.
func NewNormalizeCommand(deps *NormalizeCommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultNormalizeDeps()
	}

	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Run the conversation report pipeline",
		Long: `Scan the conversation record store, aggregate per-user report rows, and
publish the dashboard CSV plus its import manifest.

The pipeline merges conversation and feedback records per user, drops rows
outside the reporting window or region, aggregates one row per user, and
overwrites the published artifacts in place. With --refresh it also requests
a BI dataset ingestion after publishing; refresh failures are logged but
never fail the run.

Examples:
  # Run with the configured record store and output directory
  convrep normalize

  # Run against an explicit record file
  convrep normalize --records ./conversations.ndjson --out ./reports

  # Run with a custom window start and trigger the dataset refresh
  convrep normalize --start 2025-07-01 --refresh --dataset ds-123

  # Machine-readable result
  convrep normalize --output json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNormalize(cmd, deps)
		},
	}

	cmd.Flags().StringVar(&normalizeRecords, "records", "", "Record store file (overrides config)")
	cmd.Flags().StringVar(&normalizeOutDir, "out", "", "Output directory for artifacts (overrides config)")
	cmd.Flags().StringVar(&normalizeStart, "start", "", "Window start date, YYYY-MM-DD (overrides config)")
	cmd.Flags().StringVar(&normalizeDataset, "dataset", "", "BI dataset to refresh (overrides config)")
	cmd.Flags().BoolVar(&normalizeRefresh, "refresh", false, "Request a dataset refresh after publishing")
	cmd.Flags().StringVarP(&normalizeOutput, "output", "o", "", "Output format: text, json")

	return cmd
}

func runNormalize(cmd *cobra.Command, deps *NormalizeCommandDeps) error {
	cfg, err := deps.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	applyNormalizeFlags(cfg)

	filter, err := filterOptions(cfg)
	if err != nil {
		return err
	}

	job := &pipeline.Job{
		Store:     deps.Store,
		Objects:   deps.Objects,
		Refresher: deps.Refresher,
		DatasetID: cfg.Refresh.DatasetID,
		Filter:    filter,
		Log:       newLogger(cfg),
		Metrics:   deps.Metrics,
	}
	if job.Store == nil {
		job.Store = client.NewFileRecordStore(cfg.RecordsPath)
	}
	if job.Objects == nil {
		job.Objects = client.NewDirObjectStore(cfg.OutputDir)
	}
	if job.Refresher == nil && cfg.Refresh.Enabled {
		job.Refresher = client.NewLogRefresher(job.Log)
	}

	ctx, cancel := contextWithTimeout(cmd, cfg.Timeout)
	defer cancel()

	result, runErr := job.Run(ctx)

	format := resolveFormat(cfg, normalizeOutput)
	if format == config.OutputFormatJSON {
		if err := outputJSON(cmd.OutOrStdout(), result); err != nil {
			return err
		}
		return runErr
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run:      %s\n", result.RunID)
	fmt.Fprintf(out, "Status:   %s\n", result.Status)
	fmt.Fprintf(out, "Message:  %s\n", result.Message)
	if runErr != nil {
		return runErr
	}
	fmt.Fprintf(out, "Users:    %d\n", result.UsuariosProcesados)
	fmt.Fprintf(out, "CSV:      %s\n", result.ArchivoGenerado)
	fmt.Fprintf(out, "Manifest: %s\n", result.ManifestFile)
	fmt.Fprintf(out, "Stats:    %d conversations, %d users with feedback, %d with questions\n",
		result.Estadisticas.TotalConversaciones,
		result.Estadisticas.UsuariosConFeedback,
		result.Estadisticas.UsuariosConPreguntas)
	if result.RefreshIngestion != "" {
		fmt.Fprintf(out, "Refresh:  %s\n", result.RefreshIngestion)
	}
	return nil
}

func applyNormalizeFlags(cfg *config.Config) {
	if normalizeRecords != "" {
		cfg.RecordsPath = normalizeRecords
	}
	if normalizeOutDir != "" {
		cfg.OutputDir = normalizeOutDir
	}
	if normalizeStart != "" {
		cfg.FilterStart = normalizeStart
	}
	if normalizeDataset != "" {
		cfg.Refresh.DatasetID = normalizeDataset
	}
	if normalizeRefresh {
		cfg.Refresh.Enabled = true
	}
}

// filterOptions builds the report window from the configuration.
func filterOptions(cfg *config.Config) (report.FilterOptions, error) {
	start, err := cfg.FilterStartDate()
	if err != nil {
		return report.FilterOptions{}, err
	}
	return report.FilterOptions{StartDate: start}, nil
}

// contextWithTimeout derives the run context from the command, bounded by the
// configured timeout.
func contextWithTimeout(cmd *cobra.Command, timeout time.Duration) (ctx context.Context, cancel context.CancelFunc) {
	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	return context.WithTimeout(base, timeout)
}
