package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/overnight/internal/api"
	"github.com/wonny/overnight/internal/api/handlers"
	"github.com/wonny/overnight/internal/scheduler"
	"github.com/wonny/overnight/internal/scheduler/jobs"
)

var withScheduler bool

// apiCmd starts the HTTP API server.
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the HTTP API server",
	Long: `Start the read-only query API plus the cycle trigger endpoint.

With --with-scheduler the daily cycle scheduler runs in the same process.

Example:
  overnight api
  overnight api --with-scheduler`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.close()

		var sched *scheduler.Scheduler
		if withScheduler {
			sched = scheduler.New(a.log)
			if err := sched.AddJob(jobs.NewDailyCycle(a.orch, a.cfg.Engine.Schedule)); err != nil {
				return err
			}
			sched.Start()
			defer sched.Stop()
		}

		signalHandler := handlers.NewSignalHandler(a.ledger, a.aggregator, a.cache, a.clk, a.log)
		cycleHandler := handlers.NewCycleHandler(a.orch, sched, a.log)
		router := api.NewRouter(signalHandler, cycleHandler, a.metrics, a.cfg.MetricsEnabled, a.log)

		server := api.New(a.cfg, a.log, router)

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start()
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case <-quit:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(ctx)
	},
}

func init() {
	apiCmd.Flags().BoolVar(&withScheduler, "with-scheduler", false, "run the daily cycle scheduler in-process")
	rootCmd.AddCommand(apiCmd)
}
