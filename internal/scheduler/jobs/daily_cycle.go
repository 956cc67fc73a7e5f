package jobs

import (
	"context"

	"github.com/wonny/overnight/internal/orchestrator"
)

// DailyCycleJob runs the full signal lifecycle cycle once per day after the
// market close. The cycle gates itself on the trading calendar, so the job
// fires every day and non-trading days come back SKIPPED.
type DailyCycleJob struct {
	orch     *orchestrator.Orchestrator
	schedule string
}

// NewDailyCycle creates the daily cycle job with a cron schedule
// (seconds-resolution expression).
func NewDailyCycle(orch *orchestrator.Orchestrator, schedule string) *DailyCycleJob {
	return &DailyCycleJob{orch: orch, schedule: schedule}
}

// Name returns the job name.
func (j *DailyCycleJob) Name() string {
	return "daily_cycle"
}

// Schedule returns the cron schedule expression.
func (j *DailyCycleJob) Schedule() string {
	return j.schedule
}

// Run executes one cycle for today.
func (j *DailyCycleJob) Run(ctx context.Context) error {
	_, err := j.orch.Run(ctx, orchestrator.RunConfig{})
	return err
}
