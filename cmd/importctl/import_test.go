package main

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdholdren/stockroom/internal/importer"
	"github.com/jdholdren/stockroom/internal/sqlite/sqlitetest"
	"github.com/jdholdren/stockroom/internal/stockroom"
)

type fakeRunner struct {
	mu   sync.Mutex
	reqs []importer.Request
	fail map[string]bool
}

func (f *fakeRunner) Run(_ context.Context, req importer.Request) (importer.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)

	res := importer.Result{SourceID: req.SourceID, Report: importer.Report{Total: 1, Created: 1}}
	if f.fail[req.SourceID] {
		return importer.Result{}, errors.New("database is locked")
	}
	return res, nil
}

func TestImportAll(t *testing.T) {
	repo := sqlitetest.NewRepo(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	insert := func(name string, active bool) stockroom.Source {
		src, err := repo.InsertSource(ctx, stockroom.InsertSourceArgs{
			Name:                name,
			URL:                 "https://supplier.test/" + name,
			IsActive:            active,
			ImportIntervalHours: 24,
		})
		require.NoError(t, err)
		return src
	}

	never := insert("never", true)
	recent := insert("recent", true)
	stale := insert("stale", true)
	insert("inactive", false)

	require.NoError(t, repo.MarkImported(ctx, recent.ID, now.Add(-2*time.Hour), 3))
	require.NoError(t, repo.MarkImported(ctx, stale.ID, now.Add(-30*time.Hour), 3))

	runner := &fakeRunner{}
	var out bytes.Buffer
	require.NoError(t, importAll(ctx, &out, repo, runner, "usr-1", now))

	var got []string
	for _, req := range runner.reqs {
		assert.Equal(t, "usr-1", req.ActorID)
		got = append(got, req.SourceID)
	}
	want := []string{never.ID, stale.ID}
	sort.Strings(got)
	sort.Strings(want)
	assert.Equal(t, want, got)
	assert.Contains(t, out.String(), "1 created")
}

func TestImportAllReportsFailures(t *testing.T) {
	repo := sqlitetest.NewRepo(t)
	ctx := context.Background()

	src, err := repo.InsertSource(ctx, stockroom.InsertSourceArgs{
		Name:     "broken",
		URL:      "https://supplier.test/broken",
		IsActive: true,
	})
	require.NoError(t, err)

	runner := &fakeRunner{fail: map[string]bool{src.ID: true}}
	err = importAll(ctx, &bytes.Buffer{}, repo, runner, "", time.Now())
	assert.EqualError(t, err, "1 import(s) failed")
}

func TestImportAllWithoutActiveSources(t *testing.T) {
	repo := sqlitetest.NewRepo(t)
	ctx := context.Background()

	_, err := repo.InsertSource(ctx, stockroom.InsertSourceArgs{
		Name: "off",
		URL:  "https://supplier.test/off",
	})
	require.NoError(t, err)

	runner := &fakeRunner{}
	err = importAll(ctx, &bytes.Buffer{}, repo, runner, "", time.Now())
	assert.ErrorIs(t, err, errNoActiveSources)
	assert.Empty(t, runner.reqs)
}

func TestPrintResult(t *testing.T) {
	var out bytes.Buffer
	printResult(&out, importer.Result{
		SourceID: "src-1",
		Failure:  &importer.Failure{Kind: importer.FailureEmpty, Message: "no products found in XML"},
	})
	assert.Equal(t, "src-1: failed (empty): no products found in XML\n", out.String())
}
