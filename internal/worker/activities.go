package worker

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/jdholdren/stockroom/internal/importer"
)

// Scanner runs one periodic scan, usually an *importer.Scanner.
type Scanner interface {
	Scan(ctx context.Context) (importer.ScanResult, error)
}

type activities struct {
	runner  importer.Runner
	scanner Scanner
}

// Instance to make the workflow a bit more readable
var acts = activities{}

// Dispatches imports for every source that's due.
//
// A scan still holding the lock elsewhere isn't an error, this one just
// doesn't happen.
func (a activities) ScanDueSources(ctx context.Context) (importer.ScanResult, error) {
	l := activity.GetLogger(ctx)

	res, err := a.scanner.Scan(ctx)
	if errors.Is(err, importer.ErrScanInProgress) {
		l.Info("skipping scan, another one is in progress")
		return importer.ScanResult{}, nil
	}
	if err != nil {
		return importer.ScanResult{}, err
	}

	return res, nil
}

// Runs a single import. Failures of the run come back as data on the result;
// only infrastructure errors fail the activity.
func (a activities) RunImport(ctx context.Context, req importer.Request) (importer.Result, error) {
	res, err := a.runner.Run(ctx, req)
	if err != nil {
		return res, temporal.NewApplicationError(err.Error(), errTypeInternal)
	}

	return res, nil
}
