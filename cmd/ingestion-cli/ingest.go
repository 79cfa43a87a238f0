package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/prism-beauty/ingestion-engine/cmd/ingestion-cli/ui"
	"github.com/prism-beauty/ingestion-engine/internal/ingest"
)

// newIngestCmd creates the ingest subcommand.
func newIngestCmd() *cobra.Command {
	var strategyFlag string

	cmd := &cobra.Command{
		Use:   "ingest <product-id>",
		Short: "Run one ingestion for a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			productID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid product id: %w", err)
			}

			strategy, err := resolveStrategy(strategyFlag)
			if err != nil {
				return err
			}

			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			var spin *ui.Spinner
			if !outputJSON {
				spin = ui.NewSpinner(fmt.Sprintf("Ingesting %s (%s strategy)...", productID, strategy))
				spin.Start()
			}

			result, err := app.service.IngestProduct(cmd.Context(), productID, strategy)

			if spin != nil {
				spin.Stop()
			}
			if err != nil {
				return err
			}

			if outputJSON {
				return printJSON(result)
			}

			printRunResult(result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&strategyFlag, "strategy", "s", "", "ingestion strategy: quick, chunked, adaptive, or parallel")

	return cmd
}

// resolveStrategy applies the configured default before parsing.
func resolveStrategy(raw string) (ingest.Strategy, error) {
	if raw == "" {
		raw = cfg.Ingestion.DefaultStrategy
	}
	return ingest.ParseStrategy(raw)
}

// printRunResult renders one run report for a terminal.
func printRunResult(result *ingest.Result) {
	switch result.Status {
	case ingest.StatusCompleted:
		ui.Success("Ingestion completed in %s", result.Duration.Round(time.Millisecond))
	case ingest.StatusPartiallyCompleted:
		ui.Warning("Ingestion partially completed in %s", result.Duration.Round(time.Millisecond))
	default:
		ui.Error("Ingestion failed after %s", result.Duration.Round(time.Millisecond))
	}

	if result.Category != "" && result.Category != "Unknown" {
		ui.Info("Detected category: %s", result.Category)
	}
	if len(result.PlatformsUpdated) > 0 {
		ui.Info("Platforms updated: %v", result.PlatformsUpdated)
	}

	rows := make([][]string, 0, len(result.Chunks))
	for _, chunk := range result.Chunks {
		status := "ok"
		detail := ""
		if !chunk.OK {
			status = string(chunk.Kind)
			detail = chunk.Error
		}
		rows = append(rows, []string{
			string(chunk.Chunk),
			status,
			chunk.Duration.Round(time.Millisecond).String(),
			detail,
		})
	}
	ui.Table([]string{"CHUNK", "STATUS", "DURATION", "DETAIL"}, rows)

	for _, werr := range result.Store.Errors {
		ui.Warning("Write failed: %v", werr)
	}
}
