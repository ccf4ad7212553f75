package worker

import (
	"context"
	"fmt"
	"time"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/jdholdren/stockroom/internal/importer"
)

type workflows struct{}

// ScanSources is what the schedule kicks off.
func (workflows) ScanSources(ctx workflow.Context) (importer.ScanResult, error) {
	options := workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, options)

	var res importer.ScanResult
	if err := workflow.ExecuteActivity(ctx, acts.ScanDueSources).Get(ctx, &res); err != nil {
		workflow.GetLogger(ctx).Error("failed to scan sources", "error", err)
		return importer.ScanResult{}, err
	}

	return res, nil
}

// ImportSource runs one import. Retrying is the schedule's job, not this one's.
func (workflows) ImportSource(ctx workflow.Context, req importer.Request) (importer.Result, error) {
	options := workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, options)

	var res importer.Result
	if err := workflow.ExecuteActivity(ctx, acts.RunImport, req).Get(ctx, &res); err != nil {
		workflow.GetLogger(ctx).Error("failed to run import", "source_id", req.SourceID, "error", err)
		return importer.Result{}, err
	}
	if res.Failure != nil {
		workflow.GetLogger(ctx).Warn("import failed", "source_id", req.SourceID, "kind", res.Failure.Kind)
	}

	return res, nil
}

// ImportWorkflowID is shared by every run of a source, so one source never
// has two imports in flight.
func ImportWorkflowID(sourceID string) string {
	return "import-source-" + sourceID
}

// TemporalDispatcher hands imports to the worker through ImportSource.
type TemporalDispatcher struct {
	cli client.Client
}

func NewTemporalDispatcher(cli client.Client) TemporalDispatcher {
	return TemporalDispatcher{cli: cli}
}

// Dispatch starts the import, or attaches to the one already running for
// the same source.
func (d TemporalDispatcher) Dispatch(ctx context.Context, req importer.Request) error {
	options := client.StartWorkflowOptions{
		ID:                       ImportWorkflowID(req.SourceID),
		TaskQueue:                TaskQueue,
		WorkflowIDConflictPolicy: enumspb.WORKFLOW_ID_CONFLICT_POLICY_USE_EXISTING,
		WorkflowIDReusePolicy:    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
	}
	if _, err := d.cli.ExecuteWorkflow(ctx, options, workflows{}.ImportSource, req); err != nil {
		return fmt.Errorf("unable to execute workflow: %w", err)
	}

	return nil
}
