package importer_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jdholdren/stockroom/internal/catalog"
	"github.com/jdholdren/stockroom/internal/importer"
	"github.com/jdholdren/stockroom/internal/sqlite"
	"github.com/jdholdren/stockroom/internal/stockroom"
)

func ptr[T any](v T) *T { return &v }

// Serves body with status from a test server and returns its url.
func feedServer(t *testing.T, status int, body string) string {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	return srv.URL
}

func insertSource(t *testing.T, repo sqlite.Repo, url string) stockroom.Source {
	t.Helper()

	src, err := repo.InsertSource(context.Background(), stockroom.InsertSourceArgs{
		Name:     "Supplier",
		URL:      url,
		IsActive: true,
	})
	require.NoError(t, err)
	return src
}

func newImporter(repo sqlite.Repo) *importer.Importer {
	return importer.New(repo, catalog.NewFetcher(0), importer.NewAdminResolver(repo), nil, nil)
}

// Fails the upsert of chosen external keys and passes the rest through.
type flakyProducts struct {
	sqlite.Repo
	failKeys map[string]bool
}

func (f flakyProducts) UpsertProduct(ctx context.Context, args stockroom.UpsertProductArgs) (stockroom.Product, bool, error) {
	if f.failKeys[args.ExternalID] {
		return stockroom.Product{}, false, errors.New("constraint violation")
	}
	return f.Repo.UpsertProduct(ctx, args)
}

// Breaks the outcome bookkeeping.
type brokenSources struct {
	sqlite.Repo
}

func (brokenSources) MarkImported(context.Context, string, time.Time, int) error {
	return errors.New("database is locked")
}

func (brokenSources) MarkFailed(context.Context, string, string) error {
	return errors.New("database is locked")
}

type recordingDispatcher struct {
	mu   sync.Mutex
	reqs []importer.Request
	fail map[string]bool
	// Sources that still have an import in flight
	running map[string]bool
}

func (d *recordingDispatcher) Dispatch(_ context.Context, req importer.Request) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.fail[req.SourceID] {
		return errors.New("queue unavailable")
	}
	if d.running[req.SourceID] {
		return importer.ErrAlreadyRunning
	}
	d.reqs = append(d.reqs, req)
	return nil
}

func (d *recordingDispatcher) sourceIDs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	ids := []string{}
	for _, r := range d.reqs {
		ids = append(ids, r.SourceID)
	}
	return ids
}

// Can't list sources.
type brokenList struct {
	sqlite.Repo
}

func (brokenList) ActiveSources(context.Context) ([]stockroom.Source, error) {
	return nil, errors.New("no such table: sources")
}
