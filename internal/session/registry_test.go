package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/municipal-portal/internal/domain/auth"
	mockauth "github.com/target/municipal-portal/internal/mocks/auth"
)

func newRegistry(t *testing.T) (*Registry, *mockauth.FakeBoundary, *mockauth.MemorySessionStore) {
	t.Helper()
	boundary := mockauth.NewFakeBoundary()
	sessions := mockauth.NewMemorySessionStore()
	reg := NewRegistry(RegistryOptions{
		Boundary: boundary,
		Cache:    mockauth.NewMemoryIdentityCache(),
		Sessions: sessions,
		Size:     4,
	})
	return reg, boundary, sessions
}

func TestRegistry_ReturnsSameStorePerID(t *testing.T) {
	reg, _, _ := newRegistry(t)
	ctx := context.Background()

	a := reg.Store(ctx, "a")
	assert.Same(t, a, reg.Store(ctx, "a"))
	assert.NotSame(t, a, reg.Store(ctx, "b"))
	assert.Equal(t, 2, reg.Len())
}

func TestRegistry_NewIDIsUnique(t *testing.T) {
	reg, _, _ := newRegistry(t)
	assert.NotEqual(t, reg.NewID(), reg.NewID())
	assert.Len(t, reg.NewID(), 36)
}

func TestRegistry_RestoresTokenAfterForget(t *testing.T) {
	reg, _, sessions := newRegistry(t)
	ctx := context.Background()

	s := reg.Store(ctx, "sess")
	s.Initialize(ctx)
	require.True(t, s.Login(ctx, domainauth.Credentials{Username: "admin", Password: "admin123"}).OK)

	saved, err := sessions.Get(ctx, "sess")
	require.NoError(t, err)

	reg.Forget("sess")
	restored := reg.Store(ctx, "sess")
	require.NotSame(t, s, restored)
	assert.Equal(t, saved.Token, restored.Token())
	assert.Equal(t, domainauth.StateUnresolved, restored.State().Kind)

	restored.Initialize(ctx)
	assert.True(t, restored.HasRole(domainauth.RoleAdmin))
}

func TestRegistry_UnknownSessionStartsWithoutToken(t *testing.T) {
	reg, _, _ := newRegistry(t)
	ctx := context.Background()

	s := reg.Store(ctx, "never-seen")
	assert.Empty(t, s.Token())
	s.Initialize(ctx)
	assert.Equal(t, domainauth.Anonymous(), s.State())
}

func TestRegistry_LogoutRemovesPersistedSession(t *testing.T) {
	reg, boundary, sessions := newRegistry(t)
	ctx := context.Background()

	s := reg.Store(ctx, "sess")
	require.True(t, s.Login(ctx, domainauth.Credentials{Username: "ana", Password: "ana123"}).OK)
	token := s.Token()

	s.Logout(ctx)

	_, err := sessions.Get(ctx, "sess")
	assert.Error(t, err)
	assert.Equal(t, []string{token}, boundary.LoggedOut())

	reg.Forget("sess")
	assert.Empty(t, reg.Store(ctx, "sess").Token())
}

func TestRegistry_EvictsBeyondSize(t *testing.T) {
	reg, _, _ := newRegistry(t)
	ctx := context.Background()
	for _, id := range []string{"1", "2", "3", "4", "5"} {
		reg.Store(ctx, id)
	}
	assert.Equal(t, 4, reg.Len())
}

func TestStore_PersistedExpiryIsCappedByTTL(t *testing.T) {
	sessions := mockauth.NewMemorySessionStore()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	boundary := mockauth.NewFakeBoundary()
	boundary.LoginFunc = func(context.Context, domainauth.Credentials) (domainauth.LoginResult, error) {
		return domainauth.LoginResult{Identity: ana, Token: "t", ExpiresAt: now.Add(30 * 24 * time.Hour)}, nil
	}
	s := NewStore(StoreOptions{ID: "x", Boundary: boundary, Persist: sessions, TTL: time.Hour, Now: func() time.Time { return now }})

	require.True(t, s.Login(context.Background(), domainauth.Credentials{}).OK)
	sess, err := sessions.Get(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), sess.ExpiresAt)
}
