package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/mocks"
	"go.temporal.io/sdk/testsuite"

	"github.com/jdholdren/stockroom/internal/importer"
)

type fakeRunner struct {
	res importer.Result
	err error
}

func (f fakeRunner) Run(_ context.Context, req importer.Request) (importer.Result, error) {
	f.res.SourceID = req.SourceID
	return f.res, f.err
}

type fakeScanner struct {
	res importer.ScanResult
	err error
}

func (f fakeScanner) Scan(context.Context) (importer.ScanResult, error) {
	return f.res, f.err
}

func TestImportSource_FailureIsData(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(workflows{}.ImportSource)
	env.RegisterActivity(&activities{runner: fakeRunner{
		res: importer.Result{Failure: &importer.Failure{Kind: importer.FailureFetch, Message: "failed to fetch XML from u: HTTP 500"}},
	}})

	env.ExecuteWorkflow(workflows{}.ImportSource, importer.Request{SourceID: "src-1"})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var res importer.Result
	require.NoError(t, env.GetWorkflowResult(&res))
	assert.Equal(t, "src-1", res.SourceID)
	require.NotNil(t, res.Failure)
	assert.Equal(t, importer.FailureFetch, res.Failure.Kind)
}

func TestImportSource_InfrastructureErrorFails(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(workflows{}.ImportSource)
	env.RegisterActivity(&activities{runner: fakeRunner{err: errors.New("database is locked")}})

	env.ExecuteWorkflow(workflows{}.ImportSource, importer.Request{SourceID: "src-1"})
	require.True(t, env.IsWorkflowCompleted())
	assert.Error(t, env.GetWorkflowError())
}

func TestScanSources(t *testing.T) {
	tests := []struct {
		name    string
		scanner fakeScanner
		want    importer.ScanResult
	}{
		{
			name:    "reports the scan",
			scanner: fakeScanner{res: importer.ScanResult{Checked: 3, Dispatched: 2, NotDue: 1}},
			want:    importer.ScanResult{Checked: 3, Dispatched: 2, NotDue: 1},
		},
		{
			name:    "overlapping scan is skipped quietly",
			scanner: fakeScanner{err: importer.ErrScanInProgress},
			want:    importer.ScanResult{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts testsuite.WorkflowTestSuite
			env := ts.NewTestWorkflowEnvironment()
			env.RegisterWorkflow(workflows{}.ScanSources)
			env.RegisterActivity(&activities{scanner: tt.scanner})

			env.ExecuteWorkflow(workflows{}.ScanSources)
			require.True(t, env.IsWorkflowCompleted())
			require.NoError(t, env.GetWorkflowError())

			var got importer.ScanResult
			require.NoError(t, env.GetWorkflowResult(&got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTemporalDispatcher(t *testing.T) {
	cli := &mocks.Client{}
	cli.On("ExecuteWorkflow",
		mock.Anything,
		mock.MatchedBy(func(opts client.StartWorkflowOptions) bool {
			return opts.ID == "import-source-src-1" &&
				opts.TaskQueue == TaskQueue &&
				opts.WorkflowIDConflictPolicy == enumspb.WORKFLOW_ID_CONFLICT_POLICY_USE_EXISTING
		}),
		mock.Anything,
		importer.Request{SourceID: "src-1"},
	).Return(&mocks.WorkflowRun{}, nil).Once()

	err := NewTemporalDispatcher(cli).Dispatch(context.Background(), importer.Request{SourceID: "src-1"})
	require.NoError(t, err)
	cli.AssertExpectations(t)
}
