package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/mafuth/drive-to-iftar/internal/repository/postgres"
	"github.com/mafuth/drive-to-iftar/internal/service"
	"github.com/mafuth/drive-to-iftar/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_GuestLogin(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	authService := service.NewAuthService(repos.User, testutil.TestConfig())
	ctx := context.Background()

	result, err := authService.GuestLogin(ctx)
	require.NoError(t, err)

	assert.True(t, result.User.IsGuest)
	assert.NotEmpty(t, result.AccessToken)
	require.NotNil(t, result.User.Username)
	assert.True(t, strings.HasPrefix(*result.User.Username, "Guest_"))

	// The token must round-trip back to the same user.
	resolved, err := authService.UserFromToken(ctx, result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, resolved.ID)
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	authService := service.NewAuthService(repos.User, testutil.TestConfig())
	ctx := context.Background()

	input := service.RegisterInput{
		Email:    "racer@example.com",
		Username: "racer",
		Password: "secret123",
	}

	result, err := authService.Register(ctx, input)
	require.NoError(t, err)
	assert.False(t, result.User.IsGuest)
	assert.NotEmpty(t, result.AccessToken)

	t.Run("duplicate email", func(t *testing.T) {
		_, err := authService.Register(ctx, input)
		assert.ErrorIs(t, err, service.ErrEmailExists)
	})

	t.Run("login with correct password", func(t *testing.T) {
		logged, err := authService.Login(ctx, service.LoginInput{
			Email:    "racer@example.com",
			Password: "secret123",
		})
		require.NoError(t, err)
		assert.Equal(t, result.User.ID, logged.User.ID)
	})

	t.Run("login with wrong password", func(t *testing.T) {
		_, err := authService.Login(ctx, service.LoginInput{
			Email:    "racer@example.com",
			Password: "wrong",
		})
		assert.ErrorIs(t, err, service.ErrInvalidCredentials)
	})

	t.Run("login with unknown email", func(t *testing.T) {
		_, err := authService.Login(ctx, service.LoginInput{
			Email:    "nobody@example.com",
			Password: "secret123",
		})
		assert.ErrorIs(t, err, service.ErrInvalidCredentials)
	})
}

func TestAuthService_UpdateUsername(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	authService := service.NewAuthService(repos.User, testutil.TestConfig())
	ctx := context.Background()

	t.Run("guest can claim a name", func(t *testing.T) {
		guest, err := authService.GuestLogin(ctx)
		require.NoError(t, err)

		updated, err := authService.UpdateUsername(ctx, guest.User.ID, "claimed")
		require.NoError(t, err)
		assert.Equal(t, "claimed", *updated.Username)
	})

	t.Run("registered user cannot rename", func(t *testing.T) {
		result, err := authService.Register(ctx, service.RegisterInput{
			Email:    "named@example.com",
			Username: "named",
			Password: "secret123",
		})
		require.NoError(t, err)

		_, err = authService.UpdateUsername(ctx, result.User.ID, "other")
		assert.ErrorIs(t, err, service.ErrUsernameSet)
	})
}

func TestAuthService_Rank(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	authService := service.NewAuthService(repos.User, testutil.TestConfig())
	ctx := context.Background()

	testutil.NewUserBuilder().WithScore(10000).Build(t, testDB.DB)
	testutil.NewUserBuilder().WithScore(8000).Build(t, testDB.DB)
	// Guests never push real users down the board.
	testutil.NewUserBuilder().AsGuest().WithScore(99999).Build(t, testDB.DB)
	me, _ := testutil.NewUserBuilder().WithScore(9000).Build(t, testDB.DB)

	rank, err := authService.Rank(ctx, me)
	require.NoError(t, err)
	assert.Equal(t, 2, rank)
}
