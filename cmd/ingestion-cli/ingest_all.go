package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/prism-beauty/ingestion-engine/cmd/ingestion-cli/ui"
	"github.com/prism-beauty/ingestion-engine/internal/ingest"
)

// newIngestAllCmd creates the ingest-all subcommand.
func newIngestAllCmd() *cobra.Command {
	var strategyFlag string

	cmd := &cobra.Command{
		Use:   "ingest-all",
		Short: "Run ingestion across the whole catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			strategy, err := resolveStrategy(strategyFlag)
			if err != nil {
				return err
			}

			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			products, err := app.repos.Products.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("list products: %w", err)
			}
			if len(products) == 0 {
				ui.Warning("Catalog is empty, nothing to ingest")
				return nil
			}

			var bar *ui.ProgressBar
			if !outputJSON {
				bar = ui.NewProgressBar(int64(len(products)), fmt.Sprintf("Ingesting (%s)", strategy))
			}

			batch := &ingest.BatchResult{Strategy: strategy, Total: len(products)}
			start := time.Now()

			for _, product := range products {
				if err := cmd.Context().Err(); err != nil {
					return err
				}

				item := ingest.BatchItem{ProductID: product.ID.String(), Name: product.Name}

				result, err := app.service.IngestProduct(cmd.Context(), product.ID, strategy)
				switch {
				case err != nil:
					item.Status = ingest.StatusFailed
					item.Error = err.Error()
					batch.Errored++
				case result.Status == ingest.StatusFailed:
					item.Status = ingest.StatusFailed
					batch.Errored++
				default:
					item.Status = result.Status
					batch.Processed++
				}

				batch.Items = append(batch.Items, item)
				if bar != nil {
					bar.Add(1)
				}
			}

			if bar != nil {
				bar.Finish()
			}

			batch.Duration = time.Since(start)
			if batch.Total > 0 {
				batch.SuccessRate = float64(batch.Processed) / float64(batch.Total)
			}

			if outputJSON {
				return printJSON(batch)
			}

			ui.Section("Catalog ingestion")
			ui.Info("Processed %d/%d products in %s (%.0f%% success)",
				batch.Processed, batch.Total, batch.Duration.Round(time.Second), batch.SuccessRate*100)
			for _, item := range batch.Items {
				if item.Status == ingest.StatusFailed {
					ui.Error("%s (%s): %s", item.Name, item.ProductID, item.Error)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&strategyFlag, "strategy", "s", "", "ingestion strategy: quick, chunked, adaptive, or parallel")

	return cmd
}
