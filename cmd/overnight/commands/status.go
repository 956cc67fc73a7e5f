package commands

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

// statusCmd prints the current batch and aggregate statistics.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the current batch and aggregate statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.close()

		ctx := context.Background()

		batch, err := a.ledger.GetCurrentBatch(ctx)
		if err != nil {
			return err
		}
		batchDate, err := a.ledger.BatchDate(ctx)
		if err != nil {
			return err
		}
		report, err := a.aggregator.Aggregate(ctx, a.clk.Today())
		if err != nil {
			return err
		}

		out := map[string]interface{}{
			"batch_date": batchDate.Format("2006-01-02"),
			"batch":      batch,
			"stats":      report,
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
