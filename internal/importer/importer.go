// Package importer runs the supplier import pipeline: deciding when a source
// is due, fetching and parsing its feed, reconciling the items against the
// product store and recording the outcome on the source.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jdholdren/stockroom/internal/catalog"
	"github.com/jdholdren/stockroom/internal/logger"
	"github.com/jdholdren/stockroom/internal/metrics"
	"github.com/jdholdren/stockroom/internal/stockroom"
)

type FailureKind string

const (
	FailureSourceNotFound FailureKind = "source_not_found"
	FailureSourceInactive FailureKind = "source_inactive"
	FailureFetch          FailureKind = "fetch"
	FailureParse          FailureKind = "parse"
	FailureEmpty          FailureKind = "empty"
	FailureActor          FailureKind = "actor"
)

const (
	msgSourceNotFound = "source not found"
	msgSourceInactive = "source inactive"
	msgEmpty          = "no products found in XML"
)

// Failure is the run-fatal outcome of an import. Message is what gets written
// to the source's last error.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
}

func (f *Failure) Error() string {
	return f.Message
}

// Whether the failure is written to the source. Lookups that never found an
// active source leave it alone.
func (f *Failure) persisted() bool {
	return f.Kind != FailureSourceNotFound && f.Kind != FailureSourceInactive
}

type Request struct {
	SourceID string `json:"source_id"`
	// Optional, otherwise the first admin owns the products.
	ActorID string `json:"actor_id,omitempty"`
}

type Result struct {
	SourceID   string    `json:"source_id"`
	Report     Report    `json:"report"`
	Failure    *Failure  `json:"failure,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

func (r Result) Succeeded() bool {
	return r.Failure == nil
}

// Fetcher retrieves a feed document.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type Clock func() time.Time

// Store is the slice of storage a run touches.
type Store interface {
	stockroom.SourceRepo
	stockroom.ProductRepo
}

type Importer struct {
	sources    stockroom.SourceRepo
	fetcher    Fetcher
	reconciler *Reconciler
	actors     ActorResolver
	metrics    *metrics.Metrics
	now        Clock
}

// New wires an importer. m and now may be nil.
func New(store Store, fetcher Fetcher, actors ActorResolver, m *metrics.Metrics, now Clock) *Importer {
	if now == nil {
		now = time.Now
	}

	return &Importer{
		sources:    store,
		fetcher:    fetcher,
		reconciler: NewReconciler(store),
		actors:     actors,
		metrics:    m,
		now:        now,
	}
}

// Run imports one source from start to finish. Run-fatal problems come back
// in Result.Failure; the error is reserved for the store failing underneath.
func (im *Importer) Run(ctx context.Context, req Request) (Result, error) {
	ctx = logger.Ctx(ctx, slog.String("source_id", req.SourceID))
	res := Result{SourceID: req.SourceID, StartedAt: im.now()}

	src, err := im.sources.Source(ctx, req.SourceID)
	if errors.Is(err, stockroom.ErrNotFound) {
		return im.fail(ctx, res, &Failure{Kind: FailureSourceNotFound, Message: msgSourceNotFound})
	}
	if err != nil {
		return res, fmt.Errorf("error loading source: %w", err)
	}
	if !src.IsActive {
		return im.fail(ctx, res, &Failure{Kind: FailureSourceInactive, Message: msgSourceInactive})
	}

	ctx = logger.Ctx(ctx, slog.String("url", src.URL))
	slog.InfoContext(ctx, "starting XML product import")

	doc, err := im.fetcher.Fetch(ctx, src.URL)
	if err != nil {
		return im.fail(ctx, res, &Failure{Kind: FailureFetch, Message: err.Error()})
	}

	items, err := catalog.Parse(doc)
	if err != nil {
		return im.fail(ctx, res, &Failure{Kind: FailureParse, Message: err.Error()})
	}
	if len(items) == 0 {
		return im.fail(ctx, res, &Failure{Kind: FailureEmpty, Message: msgEmpty})
	}

	actorID, err := im.actors.ResolveActor(ctx, req.ActorID)
	if errors.Is(err, ErrNoActor) {
		return im.fail(ctx, res, &Failure{Kind: FailureActor, Message: ErrNoActor.Error()})
	}
	if err != nil {
		return res, err
	}

	report, err := im.reconciler.Reconcile(ctx, src.ID, actorID, items)
	if err != nil {
		return im.fail(ctx, res, &Failure{Kind: FailureActor, Message: err.Error()})
	}
	res.Report = report
	res.FinishedAt = im.now()

	// Minute precision keeps a daily run at a preferred time from drifting
	// past its own interval the next day.
	importedAt := res.StartedAt.Truncate(time.Minute)
	if err := im.sources.MarkImported(ctx, src.ID, importedAt, report.Processed()); err != nil {
		return res, fmt.Errorf("error recording import: %w", err)
	}

	slog.InfoContext(ctx, "XML product import completed",
		"total", report.Total,
		"created", report.Created,
		"updated", report.Updated,
		"skipped", report.Skipped,
		"failed", report.Failed,
	)
	im.metrics.ObserveImport("succeeded", res.FinishedAt.Sub(res.StartedAt), report.Created, report.Updated, report.Skipped, report.Failed)

	return res, nil
}

func (im *Importer) fail(ctx context.Context, res Result, f *Failure) (Result, error) {
	res.Failure = f
	res.FinishedAt = im.now()

	switch f.Kind {
	case FailureSourceInactive:
		slog.InfoContext(ctx, "source is inactive, skipping import")
	case FailureEmpty:
		slog.WarnContext(ctx, "import failed", "kind", f.Kind, "reason", f.Message)
	default:
		slog.ErrorContext(ctx, "import failed", "kind", f.Kind, "reason", f.Message)
	}

	im.metrics.ObserveImport(string(f.Kind), res.FinishedAt.Sub(res.StartedAt), 0, 0, 0, 0)

	if !f.persisted() {
		return res, nil
	}
	if err := im.sources.MarkFailed(ctx, res.SourceID, f.Message); err != nil {
		return res, fmt.Errorf("error recording failure: %w", err)
	}

	return res, nil
}
