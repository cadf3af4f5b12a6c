package auth_test

import (
	"context"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/storefront/internal/auth"
	"github.com/vasiliy-maslov/storefront/internal/db/dbtest"
)

func TestUserRepository_CreateAndGet(t *testing.T) {
	pool := dbtest.Open(t)
	repo := auth.NewRepository(pool)
	ctx := context.Background()

	u := &auth.User{Username: "staff", PasswordHash: "$2a$10$placeholder"}
	id, err := repo.Create(ctx, u)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, id)
	assert.Equal(t, id, u.ID)

	byName, err := repo.GetByUsername(ctx, "staff")
	require.NoError(t, err)
	assert.Equal(t, id, byName.ID)

	byID, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "staff", byID.Username)

	_, err = repo.Create(ctx, &auth.User{Username: "staff", PasswordHash: "x"})
	require.ErrorIs(t, err, auth.ErrUsernameExists)

	_, err = repo.GetByID(ctx, uuid.Must(uuid.NewV4()))
	require.ErrorIs(t, err, auth.ErrUserNotFound)
}
