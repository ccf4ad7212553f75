package stockroom

import (
	"context"
	"time"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleStore Role = "store"
	RoleUser  Role = "user"
)

type UserRepo interface {
	User(ctx context.Context, id string) (User, error)
	// FirstUserByRole returns the earliest created user holding the role.
	FirstUserByRole(ctx context.Context, role Role) (User, error)
	// EnsureUser inserts the user unless one with the same email exists.
	EnsureUser(ctx context.Context, usr User) (User, error)
}

type User struct {
	ID        string    `db:"id"`
	Email     string    `db:"email"`
	Name      string    `db:"name"`
	Role      Role      `db:"role"`
	CreatedAt time.Time `db:"created_at"`
}
