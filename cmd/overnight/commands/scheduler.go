package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/overnight/internal/scheduler"
	"github.com/wonny/overnight/internal/scheduler/jobs"
)

// schedulerCmd runs the daily cycle scheduler daemon.
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the daily cycle scheduler daemon",
	Long: `Run the scheduler that fires the daily signal cycle at the configured
time (CYCLE_SCHEDULE, cron expression with seconds). The cycle gates itself
on the trading calendar, so weekend and holiday firings skip cleanly.

Example:
  overnight scheduler`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.close()

		sched := scheduler.New(a.log)
		if err := sched.AddJob(jobs.NewDailyCycle(a.orch, a.cfg.Engine.Schedule)); err != nil {
			return err
		}

		sched.Start()
		defer sched.Stop()

		a.log.WithField("schedule", a.cfg.Engine.Schedule).Info("Scheduler running, waiting for signals")

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		return nil
	},
}

func init() {
	rootCmd.AddCommand(schedulerCmd)
}
