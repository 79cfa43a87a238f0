package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/prism-beauty/ingestion-engine/cmd/ingestion-cli/ui"
	"github.com/prism-beauty/ingestion-engine/internal/ingest"
)

// newBenchmarkCmd creates the benchmark subcommand.
func newBenchmarkCmd() *cobra.Command {
	var (
		strategyA string
		strategyB string
	)

	cmd := &cobra.Command{
		Use:   "benchmark <product-id>",
		Short: "Compare two ingestion strategies on one product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			productID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid product id: %w", err)
			}

			a, err := ingest.ParseStrategy(strategyA)
			if err != nil {
				return err
			}
			b, err := ingest.ParseStrategy(strategyB)
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
				spin = ui.NewSpinner(fmt.Sprintf("Benchmarking %s vs %s...", a, b))
				spin.Start()
			}

			report, err := app.service.Benchmark(cmd.Context(), productID, a, b)

			if spin != nil {
				spin.Stop()
			}
			if err != nil {
				return err
			}

			if outputJSON {
				return printJSON(report)
			}

			ui.Section("Benchmark")
			ui.Table(
				[]string{"STRATEGY", "STATUS", "DURATION"},
				[][]string{
					{string(report.StrategyA), string(report.StatusA), report.DurationA.Round(time.Millisecond).String()},
					{string(report.StrategyB), string(report.StatusB), report.DurationB.Round(time.Millisecond).String()},
				},
			)
			if report.SpeedupFactor > 1 {
				ui.Success("%s was %.2fx faster than %s", report.StrategyB, report.SpeedupFactor, report.StrategyA)
			} else if report.SpeedupFactor > 0 {
				ui.Info("%s was %.2fx faster than %s", report.StrategyA, 1/report.SpeedupFactor, report.StrategyB)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&strategyA, "a", string(ingest.StrategyChunked), "first strategy")
	cmd.Flags().StringVar(&strategyB, "b", string(ingest.StrategyParallel), "second strategy")

	return cmd
}
