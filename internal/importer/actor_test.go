package importer_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdholdren/stockroom/internal/importer"
	"github.com/jdholdren/stockroom/internal/sqlite/sqlitetest"
	"github.com/jdholdren/stockroom/internal/stockroom"
)

func TestAdminResolver(t *testing.T) {
	var (
		ctx  = context.Background()
		repo = sqlitetest.NewRepo(t)
		res  = importer.NewAdminResolver(repo)
	)

	_, err := res.ResolveActor(ctx, "")
	assert.ErrorIs(t, err, importer.ErrNoActor)

	admin := sqlitetest.SeedAdmin(t, repo)
	other, err := repo.EnsureUser(ctx, stockroom.User{Email: "user@x.test", Role: stockroom.RoleUser})
	require.NoError(t, err)

	id, err := res.ResolveActor(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, id)

	id, err = res.ResolveActor(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, other.ID, id)

	_, err = res.ResolveActor(ctx, "ghost")
	assert.ErrorIs(t, err, importer.ErrNoActor)
}
