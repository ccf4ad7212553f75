package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jdholdren/stockroom/internal/lock"
	"github.com/jdholdren/stockroom/internal/metrics"
	"github.com/jdholdren/stockroom/internal/stockroom"
)

// ScanLockName guards the periodic scan against overlapping with itself.
const ScanLockName = "import-scan"

var ErrScanInProgress = errors.New("import scan already in progress")

// Dispatcher hands an import off to run elsewhere.
type Dispatcher interface {
	Dispatch(ctx context.Context, req Request) error
}

type ScanResult struct {
	Checked        int `json:"checked"`
	Dispatched     int `json:"dispatched"`
	NotDue         int `json:"not_due"`
	WaitingForTime int `json:"waiting_for_time"`
	AlreadyRunning int `json:"already_running"`
	DispatchErrors int `json:"dispatch_errors"`
}

type Scanner struct {
	sources    stockroom.SourceRepo
	locker     lock.Locker
	dispatcher Dispatcher
	loc        *time.Location
	metrics    *metrics.Metrics
	now        Clock
}

// NewScanner evaluates preferred times in loc (UTC when nil).
func NewScanner(sources stockroom.SourceRepo, locker lock.Locker, dispatcher Dispatcher, loc *time.Location, m *metrics.Metrics, now Clock) *Scanner {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}

	return &Scanner{
		sources:    sources,
		locker:     locker,
		dispatcher: dispatcher,
		loc:        loc,
		metrics:    m,
		now:        now,
	}
}

// Scan dispatches an import for every active source that is due right now.
func (s *Scanner) Scan(ctx context.Context) (ScanResult, error) {
	unlock, err := s.locker.TryLock(ctx, ScanLockName)
	if errors.Is(err, lock.ErrHeld) {
		s.metrics.ObserveScan("skipped", 0, 0)
		return ScanResult{}, ErrScanInProgress
	}
	if err != nil {
		s.metrics.ObserveScan("failed", 0, 0)
		return ScanResult{}, fmt.Errorf("error acquiring scan lock: %w", err)
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			slog.WarnContext(ctx, "error releasing scan lock", "err", err)
		}
	}()

	sources, err := s.sources.ActiveSources(ctx)
	if err != nil {
		s.metrics.ObserveScan("failed", 0, 0)
		return ScanResult{}, fmt.Errorf("error listing active sources: %w", err)
	}

	var (
		now = s.now().In(s.loc)
		res ScanResult
	)
	for _, src := range sources {
		res.Checked++

		if !ShouldImport(src, now) {
			res.NotDue++
			continue
		}
		if !AtPreferredTime(src, now) {
			res.WaitingForTime++
			continue
		}

		err := s.dispatcher.Dispatch(ctx, Request{SourceID: src.ID})
		if errors.Is(err, ErrAlreadyRunning) {
			res.AlreadyRunning++
			slog.InfoContext(ctx, "import already running, not dispatching again", "source_id", src.ID)
			continue
		}
		if err != nil {
			res.DispatchErrors++
			slog.ErrorContext(ctx, "error dispatching import", "source_id", src.ID, "err", err)
			continue
		}
		res.Dispatched++
	}

	slog.InfoContext(ctx, "scheduled XML product import check completed",
		"checked", res.Checked,
		"dispatched", res.Dispatched,
		"not_due", res.NotDue,
		"waiting_for_time", res.WaitingForTime,
		"already_running", res.AlreadyRunning,
		"dispatch_errors", res.DispatchErrors,
	)
	s.metrics.ObserveScan("succeeded", res.Dispatched, res.DispatchErrors)

	return res, nil
}
