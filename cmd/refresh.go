package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/convrep/client"
	"github.com/otherjamesbrown/convrep/config"
)

// Refresh command flags.
var (
	refreshDataset string
	refreshOutput  string
)

// RefreshCommandDeps holds the dependencies for the refresh command.
type RefreshCommandDeps struct {
	LoadConfig func() (*config.Config, error)

	// Refresher overrides the client for testing; built from config when nil.
	Refresher client.Refresher
}

// DefaultRefreshDeps returns the default dependencies for production use.
func DefaultRefreshDeps() *RefreshCommandDeps {
	return &RefreshCommandDeps{
		LoadConfig: config.LoadConfig,
	}
}

// NewRefreshCommand creates the refresh command with its subcommands.
func NewRefreshCommand(deps *RefreshCommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultRefreshDeps()
	}

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Manage BI dataset refreshes",
		Long: `Request and inspect BI dataset ingestions.

A refresh asks the BI tool to re-import the published artifacts into the
named dataset. The normalize command can do this automatically after
publishing; use this command to trigger or check a refresh by hand.

Examples:
  # Request an ingestion for the configured dataset
  convrep refresh trigger

  # Request an ingestion for an explicit dataset
  convrep refresh trigger --dataset ds-123

  # Check an ingestion
  convrep refresh status etl-refresh-1755000000 --dataset ds-123`,
	}

	cmd.PersistentFlags().StringVar(&refreshDataset, "dataset", "", "BI dataset ID (overrides config)")
	cmd.PersistentFlags().StringVarP(&refreshOutput, "output", "o", "", "Output format: text, json")

	cmd.AddCommand(newRefreshTriggerCommand(deps))
	cmd.AddCommand(newRefreshStatusCommand(deps))

	return cmd
}

func newRefreshTriggerCommand(deps *RefreshCommandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "trigger",
		Short: "Request a dataset ingestion",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, datasetID, refresher, err := refreshSetup(deps)
			if err != nil {
				return err
			}

			ctx, cancel := contextWithTimeout(cmd, cfg.Timeout)
			defer cancel()

			ing, err := refresher.CreateIngestion(ctx, datasetID)
			if err != nil {
				return fmt.Errorf("creating ingestion: %w", err)
			}

			if resolveFormat(cfg, refreshOutput) == config.OutputFormatJSON {
				return outputJSON(cmd.OutOrStdout(), ing)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Ingestion: %s\nStatus:    %s\n", ing.ID, ing.Status)
			return nil
		},
	}
}

func newRefreshStatusCommand(deps *RefreshCommandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "status <ingestion-id>",
		Short: "Show the status of a dataset ingestion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, datasetID, refresher, err := refreshSetup(deps)
			if err != nil {
				return err
			}

			ctx, cancel := contextWithTimeout(cmd, cfg.Timeout)
			defer cancel()

			ing, err := refresher.DescribeIngestion(ctx, datasetID, args[0])
			if err != nil {
				return fmt.Errorf("describing ingestion: %w", err)
			}

			if resolveFormat(cfg, refreshOutput) == config.OutputFormatJSON {
				return outputJSON(cmd.OutOrStdout(), ing)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Ingestion: %s\nStatus:    %s\nStarted:   %s\n",
				ing.ID, ing.Status, ing.StartedAt.Format("2006-01-02 15:04:05"))
			return nil
		},
	}
}

// refreshSetup loads config and resolves the dataset and refresher.
func refreshSetup(deps *RefreshCommandDeps) (*config.Config, string, client.Refresher, error) {
	cfg, err := deps.LoadConfig()
	if err != nil {
		return nil, "", nil, fmt.Errorf("loading configuration: %w", err)
	}

	datasetID := refreshDataset
	if datasetID == "" {
		datasetID = cfg.Refresh.DatasetID
	}
	if datasetID == "" {
		return nil, "", nil, fmt.Errorf("no dataset configured: set refresh.dataset_id or pass --dataset")
	}

	refresher := deps.Refresher
	if refresher == nil {
		refresher = client.NewLogRefresher(newLogger(cfg))
	}
	return cfg, datasetID, refresher, nil
}
