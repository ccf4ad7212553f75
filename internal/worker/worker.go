package worker

import (
	"context"
	"fmt"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/jdholdren/stockroom/internal/importer"
)

const (
	TaskQueue = "stockroom"

	// ScanScheduleID names the schedule that periodically starts ScanSources.
	ScanScheduleID = "import_scan"
)

type ScheduleConfig struct {
	// Cron expression for the periodic scan, e.g. "0 * * * *".
	Cron     string
	TimeZone string
}

// NewWorker sets up the worker with registration of workflows, activities, and schedules.
func NewWorker(ctx context.Context, cli client.Client, runner importer.Runner, scanner Scanner, sched ScheduleConfig) (worker.Worker, error) {
	a := activities{
		runner:  runner,
		scanner: scanner,
	}

	w := worker.New(cli, TaskQueue, worker.Options{})

	if err := registerEverything(ctx, w, a, cli, sched); err != nil {
		return nil, fmt.Errorf("error registering workflows and activities: %T, %v", err, err)
	}

	return w, nil
}

func registerEverything(ctx context.Context, w worker.Worker, a activities, cli client.Client, sched ScheduleConfig) error {
	// Workflows
	wfs := workflows{}
	w.RegisterWorkflow(wfs.ScanSources)
	w.RegisterWorkflow(wfs.ImportSource)

	// Activities
	w.RegisterActivity(&a)

	// Schedules:
	return ensureScanSchedule(ctx, cli.ScheduleClient(), sched)
}

// Creates the scan schedule, or brings an existing one in line with the config.
// Overlapping scans are always skipped.
func ensureScanSchedule(ctx context.Context, sc client.ScheduleClient, sched ScheduleConfig) error {
	spec := client.ScheduleSpec{
		CronExpressions: []string{sched.Cron},
		TimeZoneName:    sched.TimeZone,
	}

	handle := sc.GetHandle(ctx, ScanScheduleID)
	if _, err := handle.Describe(ctx); err != nil {
		_, err = sc.Create(ctx, client.ScheduleOptions{
			ID:      ScanScheduleID,
			Spec:    spec,
			Overlap: enumspb.SCHEDULE_OVERLAP_POLICY_SKIP,
			Action: &client.ScheduleWorkflowAction{
				ID:        ScanScheduleID,
				Workflow:  workflows{}.ScanSources,
				TaskQueue: TaskQueue,
			},
		})
		if err != nil {
			return fmt.Errorf("error creating scan schedule: %w", err)
		}

		return nil
	}

	err := handle.Update(ctx, client.ScheduleUpdateOptions{
		DoUpdate: func(input client.ScheduleUpdateInput) (*client.ScheduleUpdate, error) {
			schedule := input.Description.Schedule
			schedule.Spec = &spec
			if schedule.Policy == nil {
				schedule.Policy = &client.SchedulePolicies{}
			}
			schedule.Policy.Overlap = enumspb.SCHEDULE_OVERLAP_POLICY_SKIP

			return &client.ScheduleUpdate{
				Schedule: &schedule,
			}, nil
		},
	})
	if err != nil {
		return fmt.Errorf("error updating scan schedule: %w", err)
	}

	return nil
}

// Error types
//
// These are error types in the temporal sense, not the general "go" error types sense.
// They are used since between activities error types are marshaled and type information is lost.
const (
	errTypeInternal = "internal"
)
