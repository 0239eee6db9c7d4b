package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/municipal-portal/internal/domain/auth"
	"github.com/target/municipal-portal/internal/ports"
)

func TestSessionStore(t *testing.T) {
	store := NewSessionStore(2, time.Hour)
	ctx := context.Background()
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Save(ctx, domainauth.Session{ID: "a", Token: "ta", ExpiresAt: now.Add(time.Minute)}))
	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "ta", got.Token)

	assert.Error(t, store.Save(ctx, domainauth.Session{ExpiresAt: now.Add(time.Minute)}))
	assert.Error(t, store.Save(ctx, domainauth.Session{ID: "b", ExpiresAt: now}))

	now = now.Add(2 * time.Minute)
	_, err = store.Get(ctx, "a")
	assert.ErrorIs(t, err, ports.ErrSessionNotFound)
}

func TestSessionStore_EvictsOldest(t *testing.T) {
	store := NewSessionStore(2, time.Hour)
	ctx := context.Background()
	exp := time.Now().Add(time.Hour)

	for _, id := range []string{"1", "2", "3"} {
		require.NoError(t, store.Save(ctx, domainauth.Session{ID: id, ExpiresAt: exp}))
	}
	_, err := store.Get(ctx, "1")
	assert.ErrorIs(t, err, ports.ErrSessionNotFound)

	require.NoError(t, store.Delete(ctx, "3"))
	_, err = store.Get(ctx, "3")
	assert.ErrorIs(t, err, ports.ErrSessionNotFound)
	_, err = store.Get(ctx, "2")
	assert.NoError(t, err)
}

func TestIdentityCache(t *testing.T) {
	cache := NewIdentityCache(0, time.Hour)
	ctx := context.Background()
	now := time.Now()
	cache.now = func() time.Time { return now }
	id := domainauth.Identity{ID: "u1", Role: domainauth.RoleUser}

	require.NoError(t, cache.Set(ctx, "k", id, time.Minute))
	got, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, id, got)

	now = now.Add(time.Minute)
	_, ok, err = cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok, "entry expires at its own ttl")

	require.NoError(t, cache.Set(ctx, "forever", id, 0))
	require.NoError(t, cache.Delete(ctx, "forever"))
	_, ok, _ = cache.Get(ctx, "forever")
	assert.False(t, ok)

	assert.Error(t, cache.Set(ctx, "", id, time.Minute))
}
