package importer_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdholdren/stockroom/internal/importer"
	"github.com/jdholdren/stockroom/internal/lock"
	"github.com/jdholdren/stockroom/internal/sqlite/sqlitetest"
	"github.com/jdholdren/stockroom/internal/stockroom"
)

func TestScan_DispatchesDueSources(t *testing.T) {
	var (
		ctx  = context.Background()
		repo = sqlitetest.NewRepo(t)
		now  = time.Date(2024, 5, 10, 3, 0, 0, 0, time.UTC)
		disp = &recordingDispatcher{fail: map[string]bool{}}
	)

	insert := func(args stockroom.InsertSourceArgs, lastImported *time.Time) stockroom.Source {
		src, err := repo.InsertSource(ctx, args)
		require.NoError(t, err)
		if lastImported != nil {
			require.NoError(t, repo.MarkImported(ctx, src.ID, *lastImported, 1))
		}
		return src
	}

	var (
		fresh     = insert(stockroom.InsertSourceArgs{Name: "never", URL: "u", IsActive: true}, nil)
		due       = insert(stockroom.InsertSourceArgs{Name: "due", URL: "u", IsActive: true, ImportIntervalHours: 24}, ptr(now.Add(-24*time.Hour)))
		_         = insert(stockroom.InsertSourceArgs{Name: "recent", URL: "u", IsActive: true, ImportIntervalHours: 24}, ptr(now.Add(-2*time.Hour)))
		atTime    = insert(stockroom.InsertSourceArgs{Name: "at time", URL: "u", IsActive: true, PreferredImportTime: ptr("03:00")}, nil)
		_         = insert(stockroom.InsertSourceArgs{Name: "later", URL: "u", IsActive: true, PreferredImportTime: ptr("04:30")}, nil)
		_         = insert(stockroom.InsertSourceArgs{Name: "off", URL: "u"}, nil)
		scanner   = importer.NewScanner(repo, lock.NewLocal(), disp, time.UTC, nil, func() time.Time { return now })
		wantIDs   = []string{fresh.ID, due.ID, atTime.ID}
		wantTotal = 5
	)

	res, err := scanner.Scan(ctx)
	require.NoError(t, err)

	assert.Equal(t, importer.ScanResult{
		Checked:        wantTotal,
		Dispatched:     3,
		NotDue:         1,
		WaitingForTime: 1,
	}, res)
	assert.ElementsMatch(t, wantIDs, disp.sourceIDs())
}

func TestScan_DispatchErrorsDoNotAbort(t *testing.T) {
	var (
		ctx  = context.Background()
		repo = sqlitetest.NewRepo(t)
	)
	a := insertSource(t, repo, "u")
	b := insertSource(t, repo, "u")

	disp := &recordingDispatcher{fail: map[string]bool{a.ID: true}}
	res, err := importer.NewScanner(repo, lock.NewLocal(), disp, nil, nil, nil).Scan(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, res.DispatchErrors)
	assert.Equal(t, 1, res.Dispatched)
	assert.Equal(t, []string{b.ID}, disp.sourceIDs())
}

func TestScan_RunningSourceIsNotAnError(t *testing.T) {
	var (
		ctx  = context.Background()
		repo = sqlitetest.NewRepo(t)
		disp = &recordingDispatcher{running: map[string]bool{}}
	)

	busy, err := repo.InsertSource(ctx, stockroom.InsertSourceArgs{Name: "busy", URL: "u", IsActive: true})
	require.NoError(t, err)
	idle, err := repo.InsertSource(ctx, stockroom.InsertSourceArgs{Name: "idle", URL: "u", IsActive: true})
	require.NoError(t, err)
	disp.running[busy.ID] = true

	res, err := importer.NewScanner(repo, lock.NewLocal(), disp, time.UTC, nil, time.Now).Scan(ctx)
	require.NoError(t, err)

	assert.Equal(t, importer.ScanResult{Checked: 2, Dispatched: 1, AlreadyRunning: 1}, res)
	assert.Equal(t, []string{idle.ID}, disp.sourceIDs())
}

func TestScan_LockHeld(t *testing.T) {
	var (
		ctx    = context.Background()
		repo   = sqlitetest.NewRepo(t)
		locker = lock.NewLocal()
		disp   = &recordingDispatcher{}
	)
	insertSource(t, repo, "u")

	unlock, err := locker.TryLock(ctx, importer.ScanLockName)
	require.NoError(t, err)

	scanner := importer.NewScanner(repo, locker, disp, nil, nil, nil)
	_, err = scanner.Scan(ctx)
	assert.ErrorIs(t, err, importer.ErrScanInProgress)
	assert.Empty(t, disp.sourceIDs())

	require.NoError(t, unlock(ctx))

	res, err := scanner.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Dispatched)

	// Released after the scan, so the next tick can take it.
	again, err := locker.TryLock(ctx, importer.ScanLockName)
	require.NoError(t, err)
	require.NoError(t, again(ctx))
}

func TestScan_ReleasesLockOnFailure(t *testing.T) {
	var (
		ctx    = context.Background()
		locker = lock.NewLocal()
		repo   = sqlitetest.NewRepo(t)
	)

	_, err := importer.NewScanner(brokenList{repo}, locker, &recordingDispatcher{}, nil, nil, nil).Scan(ctx)
	require.Error(t, err)

	unlock, err := locker.TryLock(ctx, importer.ScanLockName)
	require.NoError(t, err)
	require.NoError(t, unlock(ctx))
}
