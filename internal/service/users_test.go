package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	domainauth "github.com/target/municipal-portal/internal/domain/auth"
	apperrors "github.com/target/municipal-portal/internal/errors"
	"github.com/target/municipal-portal/internal/mocks"
)

func TestUserService_CreateValidatesLocally(t *testing.T) {
	ctrl := gomock.NewController(t)
	dir := mocks.NewMockUserDirectory(ctrl)
	svc := NewUserService(UserServiceOptions{Directory: dir})
	caller := &fakeCaller{token: "tok"}

	_, err := svc.Create(context.Background(), caller, domainauth.UserInput{Email: "bad", Password: "x", Role: "user"})
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, "email", apperrors.GetField(err))

	_, err = svc.Create(context.Background(), caller, domainauth.UserInput{Email: "a@b.com", Role: "user"})
	assert.Equal(t, "password", apperrors.GetField(err))
}

func TestUserService_CreateNormalizes(t *testing.T) {
	ctrl := gomock.NewController(t)
	dir := mocks.NewMockUserDirectory(ctrl)
	svc := NewUserService(UserServiceOptions{Directory: dir})

	dir.EXPECT().CreateUser(gomock.Any(), "tok", domainauth.UserInput{
		Email: "ana@example.com", Username: "ana", Password: "s3cret", Role: domainauth.RoleAdmin,
	}).Return(domainauth.Identity{ID: "u9", Email: "ana@example.com", Role: domainauth.RoleAdmin}, nil)

	u, err := svc.Create(context.Background(), &fakeCaller{token: "tok"}, domainauth.UserInput{
		Email: " ana@example.com ", Username: " ana", Password: "s3cret", Role: "ADMIN",
	})
	require.NoError(t, err)
	assert.Equal(t, "u9", u.ID)
}

func TestUserService_UnauthorizedInvalidatesCaller(t *testing.T) {
	ctrl := gomock.NewController(t)
	dir := mocks.NewMockUserDirectory(ctrl)
	svc := NewUserService(UserServiceOptions{Directory: dir})
	caller := &fakeCaller{token: "expired"}

	dir.EXPECT().ListUsers(gomock.Any(), "expired").Return(nil, apperrors.Unauthorized("Not authenticated"))
	_, err := svc.List(context.Background(), caller)

	assert.True(t, apperrors.IsUnauthorized(err))
	assert.Equal(t, 1, caller.Invalidations())
}

func TestUserService_ForbiddenKeepsSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	dir := mocks.NewMockUserDirectory(ctrl)
	svc := NewUserService(UserServiceOptions{Directory: dir})
	caller := &fakeCaller{token: "tok"}

	dir.EXPECT().DeleteUser(gomock.Any(), "tok", "u1").Return(apperrors.Forbidden("Admin access required"))
	err := svc.Delete(context.Background(), caller, "u1")

	assert.True(t, apperrors.IsForbidden(err))
	assert.Zero(t, caller.Invalidations())
}

func TestUserService_GetAndUpdate(t *testing.T) {
	ctrl := gomock.NewController(t)
	dir := mocks.NewMockUserDirectory(ctrl)
	svc := NewUserService(UserServiceOptions{Directory: dir})
	caller := &fakeCaller{token: "tok"}
	ctx := context.Background()

	dir.EXPECT().ListUsers(gomock.Any(), "tok").Return([]domainauth.Identity{{ID: "u1"}, {ID: "u2", Email: "b@x.com"}}, nil).Times(2)

	u, err := svc.Get(ctx, caller, "u2")
	require.NoError(t, err)
	assert.Equal(t, "b@x.com", u.Email)

	_, err = svc.Get(ctx, caller, "nope")
	assert.True(t, apperrors.IsNotFound(err))

	_, err = svc.Update(ctx, caller, "", domainauth.UserInput{})
	assert.True(t, apperrors.IsValidation(err))

	active := false
	dir.EXPECT().UpdateUser(gomock.Any(), "tok", "u2", gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ string, in domainauth.UserInput) (domainauth.Identity, error) {
			assert.Empty(t, in.Password)
			require.NotNil(t, in.Active)
			assert.False(t, *in.Active)
			return domainauth.Identity{ID: "u2", Active: false}, nil
		})
	_, err = svc.Update(ctx, caller, "u2", domainauth.UserInput{Email: "b@x.com", Role: "user", Active: &active})
	require.NoError(t, err)
}
