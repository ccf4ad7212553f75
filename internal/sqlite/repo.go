// Package sqlite implements the stockroom storage contracts on top of sqlite.
package sqlite

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/jdholdren/stockroom/internal/stockroom"
)

// Ensure Repo implements the Repository interface
var _ stockroom.Repository = (*Repo)(nil)

// sqlite extended result codes we care about.
const (
	codeConstraintForeignKey = 787
	codeConstraintUnique     = 2067
)

type Repo struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) Repo {
	return Repo{db: db}
}

// Open connects to the database file at path.
//
// Writes take the lock at BEGIN so concurrent import runs queue up behind the
// busy timeout instead of failing on upgrade.
func Open(path string) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_txlock=immediate", path)
	dbx, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	return dbx, nil
}
