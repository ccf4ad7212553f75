package importer

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

var (
	ErrDispatcherClosed = errors.New("dispatcher is shut down")
	// ErrAlreadyRunning means the source has an import in flight, so nothing was queued.
	ErrAlreadyRunning = errors.New("import is already running for this source")
)

// Runner runs a single import, usually an *Importer.
type Runner interface {
	Run(ctx context.Context, req Request) (Result, error)
}

// AsyncDispatcher runs imports in-process on a bounded pool. A source that
// is already running isn't started a second time.
type AsyncDispatcher struct {
	runner Runner
	g      errgroup.Group

	// Held for reading while queueing, so Wait never races a late Go.
	lifecycle sync.RWMutex
	closed    bool

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewAsyncDispatcher allows at most limit concurrent runs.
func NewAsyncDispatcher(runner Runner, limit int) *AsyncDispatcher {
	d := &AsyncDispatcher{
		runner:   runner,
		inflight: map[string]struct{}{},
	}
	if limit > 0 {
		d.g.SetLimit(limit)
	}

	return d
}

// Dispatch queues the run and returns. It only blocks while the pool is full.
// A source that is still running gets ErrAlreadyRunning.
// The run outlives ctx's cancellation but keeps its values.
func (d *AsyncDispatcher) Dispatch(ctx context.Context, req Request) error {
	d.lifecycle.RLock()
	defer d.lifecycle.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}

	d.mu.Lock()
	if _, ok := d.inflight[req.SourceID]; ok {
		d.mu.Unlock()
		return ErrAlreadyRunning
	}
	d.inflight[req.SourceID] = struct{}{}
	d.mu.Unlock()

	runCtx := context.WithoutCancel(ctx)
	d.g.Go(func() error {
		defer d.done(req.SourceID)

		if _, err := d.runner.Run(runCtx, req); err != nil {
			slog.ErrorContext(runCtx, "import run errored", "source_id", req.SourceID, "err", err)
		}
		return nil
	})

	return nil
}

func (d *AsyncDispatcher) done(sourceID string) {
	d.mu.Lock()
	delete(d.inflight, sourceID)
	d.mu.Unlock()
}

// Wait stops accepting new runs and blocks until the queued ones finish.
func (d *AsyncDispatcher) Wait() {
	d.lifecycle.Lock()
	d.closed = true
	d.lifecycle.Unlock()

	_ = d.g.Wait()
}
