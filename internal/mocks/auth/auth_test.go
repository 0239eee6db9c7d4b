package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/municipal-portal/internal/domain/auth"
	apperrors "github.com/target/municipal-portal/internal/errors"
	"github.com/target/municipal-portal/internal/ports"
)

func TestFakeBoundary_LoginAndWhoAmI(t *testing.T) {
	ctx := context.Background()
	f := NewFakeBoundary()

	res, err := f.Login(ctx, domainauth.Credentials{Username: "admin", Password: "admin123"})
	require.NoError(t, err)
	assert.Equal(t, "token-admin-1", res.Token)
	assert.Equal(t, domainauth.RoleAdmin, res.Identity.Role)
	assert.NotEmpty(t, res.Message)

	id, err := f.WhoAmI(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, "u-admin", id.ID)

	res2, err := f.Login(ctx, domainauth.Credentials{Username: "ana", Password: "ana123"})
	require.NoError(t, err)
	assert.Equal(t, "token-ana-2", res2.Token)
}

func TestFakeBoundary_LoginRejectsBadPassword(t *testing.T) {
	f := NewFakeBoundary()
	_, err := f.Login(context.Background(), domainauth.Credentials{Username: "admin", Password: "nope"})
	require.Error(t, err)
	assert.True(t, apperrors.IsUnauthorized(err))

	_, err = f.Login(context.Background(), domainauth.Credentials{Username: "ghost", Password: "x"})
	assert.True(t, apperrors.IsUnauthorized(err))
}

func TestFakeBoundary_LogoutAndRevoke(t *testing.T) {
	ctx := context.Background()
	f := NewFakeBoundary()

	a, err := f.Login(ctx, domainauth.Credentials{Username: "admin", Password: "admin123"})
	require.NoError(t, err)
	b, err := f.Login(ctx, domainauth.Credentials{Username: "ana", Password: "ana123"})
	require.NoError(t, err)

	require.NoError(t, f.Logout(ctx, a.Token))
	assert.Equal(t, []string{a.Token}, f.LoggedOut())
	_, err = f.WhoAmI(ctx, a.Token)
	assert.True(t, apperrors.IsUnauthorized(err))

	f.Revoke(b.Token)
	_, err = f.WhoAmI(ctx, b.Token)
	assert.True(t, apperrors.IsUnauthorized(err))
	assert.Len(t, f.LoggedOut(), 1, "revoke is not a logout")
}

func TestFakeBoundary_FuncOverrides(t *testing.T) {
	boom := errors.New("boom")
	f := NewFakeBoundary()
	f.WhoAmIFunc = func(context.Context, string) (domainauth.Identity, error) { return domainauth.Identity{}, boom }
	f.LogoutFunc = func(context.Context, string) error { return boom }

	_, err := f.WhoAmI(context.Background(), "anything")
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, f.Logout(context.Background(), "anything"), boom)
	assert.Empty(t, f.LoggedOut())
}

func TestMemorySessionStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySessionStore()

	err := s.Save(ctx, domainauth.Session{})
	require.Error(t, err)

	sess := domainauth.Session{ID: "s1", Token: "t1", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, s.Save(ctx, sess))

	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "t1", got.Token)

	require.NoError(t, s.Delete(ctx, "s1"))
	_, err = s.Get(ctx, "s1")
	assert.ErrorIs(t, err, ports.ErrSessionNotFound)

	// deleting a missing id is not an error
	assert.NoError(t, s.Delete(ctx, "missing"))
}

func TestMemoryIdentityCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryIdentityCache()

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	id := domainauth.Identity{ID: "u1", Email: "u1@example.com", Role: domainauth.RoleUser}
	require.NoError(t, c.Set(ctx, "k", id, time.Minute))
	assert.True(t, c.Has("k"))

	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, id, got)

	require.NoError(t, c.Delete(ctx, "k"))
	assert.False(t, c.Has("k"))

	c.GetErr = errors.New("down")
	_, _, err = c.Get(ctx, "k")
	assert.Error(t, err)
}
