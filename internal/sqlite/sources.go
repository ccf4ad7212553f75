package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/jdholdren/stockroom/internal/stockroom"
)

const sourceNamespace = "-src"

var sourceColumns = []string{
	"id",
	"name",
	"url",
	"is_active",
	"import_interval_hours",
	"preferred_import_time",
	"last_imported_at",
	"last_imported_count",
	"last_error",
	"created_at",
	"updated_at",
}

func (r Repo) Source(ctx context.Context, id string) (stockroom.Source, error) {
	query, args, err := sq.Select(sourceColumns...).From("sources").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return stockroom.Source{}, fmt.Errorf("error constructing sql: %s", err)
	}

	var src stockroom.Source
	err = r.db.GetContext(ctx, &src, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return stockroom.Source{}, stockroom.ErrNotFound
	}
	if err != nil {
		return stockroom.Source{}, fmt.Errorf("error fetching source: %w", err)
	}

	return src, nil
}

// Sources returns every source, newest first.
func (r Repo) Sources(ctx context.Context) ([]stockroom.Source, error) {
	query, args, err := sq.Select(sourceColumns...).From("sources").OrderBy("created_at DESC", "rowid DESC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("error constructing sql: %s", err)
	}

	sources := []stockroom.Source{}
	if err := r.db.SelectContext(ctx, &sources, query, args...); err != nil {
		return nil, fmt.Errorf("error selecting sources: %w", err)
	}

	return sources, nil
}

func (r Repo) ActiveSources(ctx context.Context) ([]stockroom.Source, error) {
	query, args, err := sq.Select(sourceColumns...).From("sources").Where(sq.Eq{"is_active": true}).OrderBy("rowid").ToSql()
	if err != nil {
		return nil, fmt.Errorf("error constructing sql: %s", err)
	}

	sources := []stockroom.Source{}
	if err := r.db.SelectContext(ctx, &sources, query, args...); err != nil {
		return nil, fmt.Errorf("error selecting active sources: %w", err)
	}

	return sources, nil
}

func (r Repo) InsertSource(ctx context.Context, args stockroom.InsertSourceArgs) (stockroom.Source, error) {
	const q = `INSERT INTO sources (id, name, url, is_active, import_interval_hours, preferred_import_time)
	VALUES (?, ?, ?, ?, ?, ?);`

	interval := args.ImportIntervalHours
	if interval == 0 {
		interval = stockroom.DefaultImportIntervalHours
	}

	id := uuid.NewString() + sourceNamespace
	if _, err := r.db.ExecContext(ctx, q, id, args.Name, args.URL, args.IsActive, interval, args.PreferredImportTime); err != nil {
		return stockroom.Source{}, fmt.Errorf("error inserting source: %w", err)
	}

	return r.Source(ctx, id)
}

func (r Repo) UpdateSource(ctx context.Context, id string, args stockroom.UpdateSourceArgs) (stockroom.Source, error) {
	q := sq.Update("sources").Set("updated_at", sq.Expr("CURRENT_TIMESTAMP"))
	if args.Name != nil {
		q = q.Set("name", *args.Name)
	}
	if args.URL != nil {
		q = q.Set("url", *args.URL)
	}
	if args.IsActive != nil {
		q = q.Set("is_active", *args.IsActive)
	}
	if args.ImportIntervalHours != nil {
		q = q.Set("import_interval_hours", *args.ImportIntervalHours)
	}
	switch {
	case args.ClearPreferredImportTime:
		q = q.Set("preferred_import_time", nil)
	case args.PreferredImportTime != nil:
		q = q.Set("preferred_import_time", *args.PreferredImportTime)
	}
	q = q.Where(sq.Eq{"id": id})

	query, qArgs, err := q.ToSql()
	if err != nil {
		return stockroom.Source{}, fmt.Errorf("error constructing sql: %s", err)
	}
	res, err := r.db.ExecContext(ctx, query, qArgs...)
	if err != nil {
		return stockroom.Source{}, fmt.Errorf("error executing source update: %w", err)
	}
	if err := requireRow(res); err != nil {
		return stockroom.Source{}, err
	}

	return r.Source(ctx, id)
}

func (r Repo) DeleteSource(ctx context.Context, id string) error {
	const q = `DELETE FROM sources WHERE id = ?;`

	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return fmt.Errorf("error deleting source: %w", err)
	}

	return requireRow(res)
}

func (r Repo) MarkImported(ctx context.Context, id string, at time.Time, count int) error {
	const q = `UPDATE sources
	SET last_imported_at = ?, last_imported_count = ?, last_error = NULL, updated_at = CURRENT_TIMESTAMP
	WHERE id = ?;`

	res, err := r.db.ExecContext(ctx, q, at.UTC(), count, id)
	if err != nil {
		return fmt.Errorf("error marking source imported: %w", err)
	}

	return requireRow(res)
}

func (r Repo) MarkFailed(ctx context.Context, id string, reason string) error {
	const q = `UPDATE sources SET last_error = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?;`

	res, err := r.db.ExecContext(ctx, q, reason, id)
	if err != nil {
		return fmt.Errorf("error marking source failed: %w", err)
	}

	return requireRow(res)
}

// Turns an update or delete that touched nothing into ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows: %w", err)
	}
	if n == 0 {
		return stockroom.ErrNotFound
	}

	return nil
}
