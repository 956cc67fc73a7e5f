package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/overnight/internal/contracts"
	"github.com/wonny/overnight/internal/orchestrator"
)

var (
	cycleDate string
	cycleFrom string
)

// cycleCmd runs one daily cycle immediately.
var cycleCmd = &cobra.Command{
	Use:   "cycle",
	Short: "Run one daily cycle now",
	Long: `Run one full daily cycle: gate on the trading calendar, resolve due
signals, generate today's batch, refresh statistics.

Re-running for the same day is safe. After a partial failure, --from restarts
at a later stage without repeating the earlier ones.

Examples:
  overnight cycle
  overnight cycle --date 2026-02-16
  overnight cycle --from generating`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := orchestrator.RunConfig{}

		if cycleDate != "" {
			d, err := time.Parse("2006-01-02", cycleDate)
			if err != nil {
				return fmt.Errorf("invalid --date %q, want YYYY-MM-DD: %w", cycleDate, err)
			}
			cfg.Date = d
		}
		if cycleFrom != "" {
			stage := contracts.Stage(cycleFrom)
			if !contracts.ValidStage(stage) {
				return fmt.Errorf("invalid --from %q, want tracking, generating or aggregating", cycleFrom)
			}
			cfg.From = stage
		}

		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.close()

		result, runErr := a.orch.Run(context.Background(), cfg)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}

		return runErr
	},
}

func init() {
	cycleCmd.Flags().StringVar(&cycleDate, "date", "", "run the cycle as of this date (YYYY-MM-DD, default today)")
	cycleCmd.Flags().StringVar(&cycleFrom, "from", "", "restart from a stage: tracking, generating, aggregating")
	rootCmd.AddCommand(cycleCmd)
}
