package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/jdholdren/stockroom/internal/stockroom"
)

const userNamespace = "-usr"

var userColumns = []string{"id", "email", "name", "role", "created_at"}

func (r Repo) User(ctx context.Context, id string) (stockroom.User, error) {
	return r.getUser(ctx, sq.Eq{"id": id})
}

func (r Repo) FirstUserByRole(ctx context.Context, role stockroom.Role) (stockroom.User, error) {
	return r.getUser(ctx, sq.Eq{"role": role})
}

func (r Repo) getUser(ctx context.Context, where sq.Eq) (stockroom.User, error) {
	query, args, err := sq.Select(userColumns...).From("users").Where(where).OrderBy("created_at", "rowid").Limit(1).ToSql()
	if err != nil {
		return stockroom.User{}, fmt.Errorf("error constructing sql: %s", err)
	}

	var usr stockroom.User
	err = r.db.GetContext(ctx, &usr, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return stockroom.User{}, stockroom.ErrNotFound
	}
	if err != nil {
		return stockroom.User{}, fmt.Errorf("error fetching user: %w", err)
	}

	return usr, nil
}

func (r Repo) EnsureUser(ctx context.Context, usr stockroom.User) (stockroom.User, error) {
	const q = `INSERT INTO users (id, email, name, role) VALUES (?, ?, ?, ?)
	ON CONFLICT (email) DO NOTHING;`

	if usr.ID == "" {
		usr.ID = uuid.NewString() + userNamespace
	}
	if usr.Role == "" {
		usr.Role = stockroom.RoleUser
	}
	if _, err := r.db.ExecContext(ctx, q, usr.ID, usr.Email, usr.Name, usr.Role); err != nil {
		return stockroom.User{}, fmt.Errorf("error inserting user: %w", err)
	}

	return r.getUser(ctx, sq.Eq{"email": usr.Email})
}
