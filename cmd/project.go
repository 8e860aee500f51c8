package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/convrep/client"
	"github.com/otherjamesbrown/convrep/config"
	"github.com/otherjamesbrown/convrep/pkg/projection"
	"github.com/otherjamesbrown/convrep/pkg/projection/queues"
	"github.com/otherjamesbrown/convrep/pkg/report"
	"github.com/otherjamesbrown/convrep/pkg/tokens"
)

// Project command flags.
var (
	projectRecords string
	projectOutDir  string
	projectStart   string
	projectEngine  string
	projectWorkers int
	projectTokens  bool
	projectOutput  string
)

// ProjectCommandDeps holds the dependencies for the project command.
type ProjectCommandDeps struct {
	LoadConfig func() (*config.Config, error)

	// Overrides for testing; built from config when nil.
	Store   client.RecordStore
	Objects client.ObjectStore
	Queue   queues.Queue
}

// DefaultProjectDeps returns the default dependencies for production use.
func DefaultProjectDeps() *ProjectCommandDeps {
	return &ProjectCommandDeps{
		LoadConfig: config.LoadConfig,
	}
}

// projectResult is the structured outcome of one projection run.
type projectResult struct {
	RunID         string `json:"run_id"`
	Rows          int    `json:"rows"`
	Partitions    int    `json:"partitions"`
	DegradedCells int    `json:"degraded_cells"`
	CSVFile       string `json:"csv_file"`
	SchemaFile    string `json:"schema_file"`
}

// NewProjectCommand creates the project command.
func NewProjectCommand(deps *ProjectCommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultProjectDeps()
	}

	cmd := &cobra.Command{
		Use:   "project",
		Short: "Publish the typed dashboard dataset",
		Long: `Run the report pipeline stages and project the aggregated rows into the
typed dataset: dates normalized to YYYY-MM-DD, counters as integers, empty
markers as nulls.

Rows are partitioned onto a queue and cast by a worker pool, then coalesced
back in input order. The memory engine runs everything in-process; the redis
engine moves partitions through a Redis queue so workers can run elsewhere.
A schema sidecar describing each column's type is published next to the CSV.

Examples:
  # Project with the in-process engine
  convrep project

  # Use Redis as the partition transport
  convrep project --engine redis

  # Append estimated token columns
  convrep project --with-tokens

  # Machine-readable result
  convrep project --output json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProject(cmd, deps)
		},
	}

	cmd.Flags().StringVar(&projectRecords, "records", "", "Record store file (overrides config)")
	cmd.Flags().StringVar(&projectOutDir, "out", "", "Output directory for artifacts (overrides config)")
	cmd.Flags().StringVar(&projectStart, "start", "", "Window start date, YYYY-MM-DD (overrides config)")
	cmd.Flags().StringVar(&projectEngine, "engine", "", "Partition transport: memory, redis (overrides config)")
	cmd.Flags().IntVar(&projectWorkers, "workers", 0, "Projection worker count (overrides config)")
	cmd.Flags().BoolVar(&projectTokens, "with-tokens", false, "Append estimated token columns")
	cmd.Flags().StringVarP(&projectOutput, "output", "o", "", "Output format: text, json")

	return cmd
}

func runProject(cmd *cobra.Command, deps *ProjectCommandDeps) error {
	cfg, err := deps.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	applyProjectFlags(cfg)

	filter, err := filterOptions(cfg)
	if err != nil {
		return err
	}

	store := deps.Store
	if store == nil {
		store = client.NewFileRecordStore(cfg.RecordsPath)
	}
	objects := deps.Objects
	if objects == nil {
		objects = client.NewDirObjectStore(cfg.OutputDir)
	}

	ctx, cancel := contextWithTimeout(cmd, cfg.Timeout)
	defer cancel()

	items, err := client.ScanAll(ctx, store)
	if err != nil {
		return fmt.Errorf("scanning records: %w", err)
	}

	rows := report.Aggregate(report.CompleteRows(report.Normalize(report.Merge(items), filter)))

	runID := uuid.NewString()
	queue := deps.Queue
	if queue == nil {
		queue, err = buildQueue(cfg, runID)
		if err != nil {
			return err
		}
	}

	engine := &projection.Engine{
		Queue:         queue,
		Workers:       cfg.Projection.Workers,
		PartitionSize: cfg.Projection.PartitionSize,
		RunID:         runID,
		Log:           newLogger(cfg),
	}
	if cfg.Projection.TokenColumns {
		engine.TokenCounter = tokens.DefaultCounter()
	}

	out, err := engine.Project(ctx, rows)
	if err != nil {
		return err
	}

	csvURI, err := objects.Put(ctx, projection.ObjectKey(), out.CSV, "text/csv")
	if err != nil {
		return fmt.Errorf("uploading typed dataset: %w", err)
	}
	schemaURI, err := objects.Put(ctx, projection.SchemaKey(), out.Schema, "application/json")
	if err != nil {
		return fmt.Errorf("uploading schema sidecar: %w", err)
	}

	result := projectResult{
		RunID:         runID,
		Rows:          len(rows),
		Partitions:    out.Partitions,
		DegradedCells: out.DegradedCells,
		CSVFile:       csvURI,
		SchemaFile:    schemaURI,
	}

	format := resolveFormat(cfg, projectOutput)
	if format == config.OutputFormatJSON {
		return outputJSON(cmd.OutOrStdout(), result)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Run:        %s\n", result.RunID)
	fmt.Fprintf(w, "Rows:       %d in %d partitions\n", result.Rows, result.Partitions)
	if result.DegradedCells > 0 {
		fmt.Fprintf(w, "Degraded:   %d cells\n", result.DegradedCells)
	}
	fmt.Fprintf(w, "CSV:        %s\n", result.CSVFile)
	fmt.Fprintf(w, "Schema:     %s\n", result.SchemaFile)
	return nil
}

func applyProjectFlags(cfg *config.Config) {
	if projectRecords != "" {
		cfg.RecordsPath = projectRecords
	}
	if projectOutDir != "" {
		cfg.OutputDir = projectOutDir
	}
	if projectStart != "" {
		cfg.FilterStart = projectStart
	}
	if projectEngine != "" {
		cfg.Projection.Engine = config.Engine(projectEngine)
	}
	if projectWorkers > 0 {
		cfg.Projection.Workers = projectWorkers
	}
	if projectTokens {
		cfg.Projection.TokenColumns = true
	}
}

// buildQueue constructs the partition transport from the configuration.
func buildQueue(cfg *config.Config, runID string) (queues.Queue, error) {
	switch cfg.Projection.Engine {
	case config.EngineMemory:
		return queues.NewMemoryQueue("projection", 64), nil
	case config.EngineRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Projection.RedisAddr})
		return queues.NewRedisQueue(rdb, "projection:"+runID), nil
	default:
		return nil, fmt.Errorf("unknown projection engine %q", cfg.Projection.Engine)
	}
}
