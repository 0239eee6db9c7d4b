package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domainauth "github.com/target/municipal-portal/internal/domain/auth"
	"github.com/target/municipal-portal/internal/ports"
)

var _ ports.IdentityCache = (*IdentityCache)(nil)

// IdentityCache keeps the last known identity per session as JSON under a key prefix.
type IdentityCache struct {
	client redis.UniversalClient
	prefix string
}

// NewIdentityCache creates an identity cache with the "portal:" key prefix.
func NewIdentityCache(client redis.UniversalClient) *IdentityCache {
	return &IdentityCache{client: client, prefix: "portal:"}
}

// Get returns the cached identity. A miss is (zero, false, nil).
func (c *IdentityCache) Get(ctx context.Context, key string) (domainauth.Identity, bool, error) {
	if key == "" {
		return domainauth.Identity{}, false, errors.New("key cannot be empty")
	}
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domainauth.Identity{}, false, nil
		}
		return domainauth.Identity{}, false, fmt.Errorf("redis get identity: %w", err)
	}
	var id domainauth.Identity
	if err := json.Unmarshal(data, &id); err != nil {
		return domainauth.Identity{}, false, fmt.Errorf("unmarshal identity: %w", err)
	}
	return id, true, nil
}

// Set stores id under key. A non-positive ttl stores without expiry.
func (c *IdentityCache) Set(ctx context.Context, key string, id domainauth.Identity, ttl time.Duration) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}
	data, err := json.Marshal(id)
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := c.client.Set(ctx, c.prefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set identity: %w", err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (c *IdentityCache) Delete(ctx context.Context, key string) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del identity: %w", err)
	}
	return nil
}
