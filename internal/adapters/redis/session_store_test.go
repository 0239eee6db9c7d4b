package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/municipal-portal/internal/domain/auth"
	"github.com/target/municipal-portal/internal/ports"
	"github.com/target/municipal-portal/internal/testutil"
)

// setupTestRedis skips the test when Redis is not reachable.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	client := testutil.SetupTestRedis(t)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestSessionStore_SaveAndGet(t *testing.T) {
	store := NewSessionStore(setupTestRedis(t))
	ctx := context.Background()

	sess := domainauth.Session{ID: "sess-1", Token: "tok", ExpiresAt: time.Now().Add(30 * time.Minute)}
	require.NoError(t, store.Save(ctx, sess))

	got, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "tok", got.Token)
	assert.WithinDuration(t, sess.ExpiresAt, got.ExpiresAt, time.Second)
}

func TestSessionStore_GetMissing(t *testing.T) {
	store := NewSessionStore(setupTestRedis(t))

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ports.ErrSessionNotFound)

	_, err = store.Get(context.Background(), "")
	assert.ErrorIs(t, err, ports.ErrSessionNotFound)
}

func TestSessionStore_SaveRejectsInvalid(t *testing.T) {
	store := NewSessionStore(setupTestRedis(t))
	ctx := context.Background()

	assert.Error(t, store.Save(ctx, domainauth.Session{ExpiresAt: time.Now().Add(time.Minute)}))
	assert.Error(t, store.Save(ctx, domainauth.Session{ID: "old", ExpiresAt: time.Now().Add(-time.Minute)}))
}

func TestSessionStore_ExpiredRecordIsRemoved(t *testing.T) {
	client := setupTestRedis(t)
	store := NewSessionStoreWithPrefix(client, "test:")
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, store.Save(ctx, domainauth.Session{ID: "s", Token: "t", ExpiresAt: now.Add(time.Hour)}))

	store.now = func() time.Time { return now.Add(2 * time.Hour) }
	_, err := store.Get(ctx, "s")
	assert.ErrorIs(t, err, ports.ErrSessionNotFound)

	n, err := client.Exists(ctx, "test:s").Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSessionStore_Delete(t *testing.T) {
	store := NewSessionStore(setupTestRedis(t))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domainauth.Session{ID: "d", ExpiresAt: time.Now().Add(time.Minute)}))
	require.NoError(t, store.Delete(ctx, "d"))
	require.NoError(t, store.Delete(ctx, ""))

	_, err := store.Get(ctx, "d")
	assert.ErrorIs(t, err, ports.ErrSessionNotFound)
}

func TestIdentityCache_RoundTrip(t *testing.T) {
	client := setupTestRedis(t)
	cache := NewIdentityCache(client)
	ctx := context.Background()
	id := domainauth.Identity{ID: "u1", Email: "a@example.com", Role: domainauth.RoleAdmin, Active: true}

	_, ok, err := cache.Get(ctx, "identity:s1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, "identity:s1", id, time.Minute))
	got, ok, err := cache.Get(ctx, "identity:s1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, id, got)

	ttl, err := client.TTL(ctx, "portal:identity:s1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 50*time.Second)

	require.NoError(t, cache.Delete(ctx, "identity:s1"))
	_, ok, err = cache.Get(ctx, "identity:s1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIdentityCache_EmptyKey(t *testing.T) {
	cache := NewIdentityCache(setupTestRedis(t))
	ctx := context.Background()

	_, _, err := cache.Get(ctx, "")
	assert.Error(t, err)
	assert.Error(t, cache.Set(ctx, "", domainauth.Identity{}, time.Minute))
	assert.Error(t, cache.Delete(ctx, ""))
}
