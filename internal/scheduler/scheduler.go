// Package scheduler drives periodic import scans in-process, for deployments
// without a Temporal cluster.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jdholdren/stockroom/internal/importer"
)

// Standard 5-field expressions plus descriptors like @hourly.
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Scanner runs one periodic scan, usually an *importer.Scanner.
type Scanner interface {
	Scan(ctx context.Context) (importer.ScanResult, error)
}

type Cron struct {
	c       *cron.Cron
	scanner Scanner

	ctx    context.Context
	cancel context.CancelFunc
}

// New schedules scanner on spec, evaluated in loc.
func New(scanner Scanner, spec string, loc *time.Location) (*Cron, error) {
	if loc == nil {
		loc = time.UTC
	}

	logger := cron.PrintfLogger(slog.NewLogLogger(slog.Default().Handler(), slog.LevelError))
	c := cron.New(
		cron.WithParser(parser),
		cron.WithLocation(loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Cron{
		c:       c,
		scanner: scanner,
		ctx:     ctx,
		cancel:  cancel,
	}
	if _, err := c.AddFunc(spec, s.tick); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid scan schedule %q: %w", spec, err)
	}

	return s, nil
}

func (s *Cron) Start() {
	s.c.Start()
	slog.Info("scan scheduler started")
}

// Stop prevents new scans and waits for a running one until ctx is done.
func (s *Cron) Stop(ctx context.Context) error {
	done := s.c.Stop()

	select {
	case <-done.Done():
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		return ctx.Err()
	}
}

func (s *Cron) tick() {
	_, err := s.scanner.Scan(s.ctx)
	if errors.Is(err, importer.ErrScanInProgress) {
		slog.Info("skipping scan, another one is in progress")
		return
	}
	if err != nil {
		slog.Error("scheduled XML product import failed", "err", err)
	}
}
