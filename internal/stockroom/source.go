package stockroom

import (
	"context"
	"fmt"
	"time"
)

const (
	DefaultImportIntervalHours = 24
	MaxImportIntervalHours     = 168 // One week
)

type (
	SourceRepo interface {
		Source(ctx context.Context, id string) (Source, error)
		Sources(ctx context.Context) ([]Source, error)
		ActiveSources(ctx context.Context) ([]Source, error)
		InsertSource(ctx context.Context, args InsertSourceArgs) (Source, error)
		UpdateSource(ctx context.Context, id string, args UpdateSourceArgs) (Source, error)
		DeleteSource(ctx context.Context, id string) error

		// Records a successful run: sets the import time and count, clears the last error.
		// The importer passes the run's start truncated to the minute, not the finish
		// time, so a daily run at a preferred time is due again exactly a day later.
		MarkImported(ctx context.Context, id string, at time.Time, count int) error
		// Records a failed run. The last import time and count are left alone.
		MarkFailed(ctx context.Context, id string, reason string) error
	}

	// Source is a supplier feed with its own schedule and health state.
	Source struct {
		ID                  string     `db:"id"`
		Name                string     `db:"name"`
		URL                 string     `db:"url"`
		IsActive            bool       `db:"is_active"`
		ImportIntervalHours int        `db:"import_interval_hours"`
		PreferredImportTime *string    `db:"preferred_import_time"` // HH:MM
		LastImportedAt      *time.Time `db:"last_imported_at"`
		LastImportedCount   *int       `db:"last_imported_count"`
		LastError           *string    `db:"last_error"`
		CreatedAt           time.Time  `db:"created_at"`
		UpdatedAt           time.Time  `db:"updated_at"`
	}

	InsertSourceArgs struct {
		Name                string
		URL                 string
		IsActive            bool
		ImportIntervalHours int
		PreferredImportTime *string
	}

	// Holds the optional fields for updating a source. Nil means untouched.
	UpdateSourceArgs struct {
		Name                *string
		URL                 *string
		IsActive            *bool
		ImportIntervalHours *int
		// Set ClearPreferredImportTime to remove the preferred time entirely.
		PreferredImportTime      *string
		ClearPreferredImportTime bool
	}
)

// ParseTimeOfDay normalizes a "HH:MM" string, e.g. "9:05" becomes "09:05".
func ParseTimeOfDay(s string) (string, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return "", fmt.Errorf("invalid time of day %q, expected HH:MM", s)
	}

	return t.Format("15:04"), nil
}
