package importer

import (
	"context"
	"errors"
	"fmt"

	"github.com/jdholdren/stockroom/internal/stockroom"
)

// ActorResolver picks the user that imported products are attributed to.
// Returns an error wrapping ErrNoActor when there's nobody to pick.
type ActorResolver interface {
	ResolveActor(ctx context.Context, explicitID string) (string, error)
}

// AdminResolver uses the explicit user when given one, else the first admin.
type AdminResolver struct {
	users stockroom.UserRepo
}

func NewAdminResolver(users stockroom.UserRepo) AdminResolver {
	return AdminResolver{users: users}
}

func (a AdminResolver) ResolveActor(ctx context.Context, explicitID string) (string, error) {
	var (
		usr stockroom.User
		err error
	)
	if explicitID != "" {
		usr, err = a.users.User(ctx, explicitID)
	} else {
		usr, err = a.users.FirstUserByRole(ctx, stockroom.RoleAdmin)
	}
	if errors.Is(err, stockroom.ErrNotFound) {
		return "", ErrNoActor
	}
	if err != nil {
		return "", fmt.Errorf("error resolving actor: %w", err)
	}

	return usr.ID, nil
}
