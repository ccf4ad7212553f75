package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jdholdren/stockroom/internal/catalog"
	"github.com/jdholdren/stockroom/internal/importer"
	"github.com/jdholdren/stockroom/internal/stockroom"
)

// Caps how many feeds --all fetches at once.
const importAllConcurrency = 4

var errNoActiveSources = errors.New("no active XML sources found")

func newImportCommand(d *deps) *cobra.Command {
	var (
		sourceID string
		adminID  string
		all      bool
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Run imports synchronously and print their reports",
		Long: `Runs the import of one source (--source-id), or of every active source
whose interval has elapsed (--all). Preferred import times are not considered.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (sourceID == "") == !all {
				return errors.New("exactly one of --source-id or --all is required")
			}

			imp := importer.New(d.repo, catalog.NewFetcher(d.cfg.FetchTimeout), importer.NewAdminResolver(d.repo), nil, time.Now)
			if all {
				return importAll(cmd.Context(), cmd.OutOrStdout(), d.repo, imp, adminID, time.Now())
			}

			res, err := imp.Run(cmd.Context(), importer.Request{SourceID: sourceID, ActorID: adminID})
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), res)
			if !res.Succeeded() {
				return res.Failure
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&sourceID, "source-id", "", "import this source")
	cmd.Flags().BoolVar(&all, "all", false, "import every active source that is due")
	cmd.Flags().StringVar(&adminID, "admin-id", "", "user that owns the imported products, the first admin if empty")

	return cmd
}

// Runs every active source whose interval has elapsed. One source failing
// doesn't stop the others.
func importAll(ctx context.Context, w io.Writer, sources stockroom.SourceRepo, runner importer.Runner, adminID string, now time.Time) error {
	active, err := sources.ActiveSources(ctx)
	if err != nil {
		return fmt.Errorf("error listing active sources: %w", err)
	}
	if len(active) == 0 {
		return errNoActiveSources
	}

	var (
		mu     sync.Mutex
		failed int
		g      errgroup.Group
	)
	g.SetLimit(importAllConcurrency)

	for _, src := range active {
		if !importer.ShouldImport(src, now) {
			slog.Debug("source not due", "source_id", src.ID)
			continue
		}

		src := src
		g.Go(func() error {
			res, err := runner.Run(ctx, importer.Request{SourceID: src.ID, ActorID: adminID})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				slog.Error("import errored", "source_id", src.ID, "err", err)
				return nil
			}
			printResult(w, res)
			if !res.Succeeded() {
				failed++
			}

			return nil
		})
	}
	_ = g.Wait()

	if failed > 0 {
		return fmt.Errorf("%d import(s) failed", failed)
	}
	return nil
}

func printResult(w io.Writer, res importer.Result) {
	if !res.Succeeded() {
		fmt.Fprintf(w, "%s: failed (%s): %s\n", res.SourceID, res.Failure.Kind, res.Failure.Message)
		return
	}

	r := res.Report
	fmt.Fprintf(w, "%s: %d items, %d created, %d updated, %d skipped, %d failed\n",
		res.SourceID, r.Total, r.Created, r.Updated, r.Skipped, r.Failed)
	for _, ie := range r.Errors {
		fmt.Fprintf(w, "  item %d (%s): %s\n", ie.Index, ie.ExternalID, ie.Reason)
	}
}
