package commands

import (
	"github.com/spf13/cobra"
)

var verbose bool

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "overnight",
	Short: "Overnight - daily speculative signal lifecycle engine",
	Long: `Overnight tracks short-horizon trading signals on a fixed daily cadence.

One cycle per trading day: resolve yesterday's due signals against market
data, generate today's batch from the model scorer, refresh the aggregate
statistics. Non-trading days are skipped with zero writes, and re-running a
cycle is always safe.

Examples:
  overnight api
  overnight scheduler
  overnight cycle
  overnight cycle --date 2026-02-16 --from generating
  overnight status
  overnight calendar check 2026-02-14`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
