package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RubachokBoss/classroom-assignments/internal/models"
	"github.com/RubachokBoss/classroom-assignments/internal/validation"
)

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.users.SaveUser(ctx, &models.CreateUserRequest{
		Name: "Tina", Email: "Tina@School.test", Password: "secret1", Position: models.PositionTeacher,
	}, false)
	require.NoError(t, err)

	resp, err := env.users.Login(ctx, &models.LoginRequest{Email: "tina@school.test", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, models.PositionTeacher, resp.User.Position)
	assert.Equal(t, "tina@school.test", resp.User.Email)

	_, err = env.users.Login(ctx, &models.LoginRequest{Email: "tina@school.test", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = env.users.Login(ctx, &models.LoginRequest{Email: "nobody@school.test", Password: "secret1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = env.users.Login(ctx, &models.LoginRequest{Email: "not-an-email"})
	var vErr *validation.ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestSaveUser_Overwrite(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req := &models.CreateUserRequest{Name: "Sam", Email: "sam@school.test", Password: "secret1", Position: models.PositionStudent}
	first, err := env.users.SaveUser(ctx, req, false)
	require.NoError(t, err)

	_, err = env.users.SaveUser(ctx, req, false)
	var vErr *validation.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.True(t, vErr.Has("email"))

	req.Position = models.PositionTeacher
	req.Password = "secret2"
	updated, err := env.users.SaveUser(ctx, req, true)
	require.NoError(t, err)
	assert.Equal(t, first.ID, updated.ID)
	assert.Equal(t, models.PositionTeacher, updated.Position)

	_, err = env.users.Login(ctx, &models.LoginRequest{Email: "sam@school.test", Password: "secret2"})
	assert.NoError(t, err)

	got, err := env.users.GetUser(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sam", got.Name)

	_, err = env.users.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
