package bootstrap

import (
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/target/municipal-portal/config"
	"github.com/target/municipal-portal/internal/adapters/memory"
	redisadapter "github.com/target/municipal-portal/internal/adapters/redis"
	"github.com/target/municipal-portal/internal/ports"
)

// sessionPersistence groups the stores backing the session registry.
type sessionPersistence struct {
	sessions   ports.SessionStore
	identities ports.IdentityCache
}

// buildSessionPersistence picks Redis or in-process stores for browser sessions.
func buildSessionPersistence(
	cfg config.SessionConfig,
	redisCfg config.RedisConfig,
	client redis.UniversalClient,
) (sessionPersistence, error) {
	switch cfg.Store {
	case config.SessionStoreRedis:
		if client == nil {
			return sessionPersistence{}, errors.New("SESSION_STORE=redis requires a redis connection")
		}
		return sessionPersistence{
			sessions:   redisadapter.NewSessionStoreWithPrefix(client, redisCfg.KeyPrefix),
			identities: redisadapter.NewIdentityCache(client),
		}, nil
	case config.SessionStoreMemory, "":
		return sessionPersistence{
			sessions:   memory.NewSessionStore(cfg.CacheSize, cfg.TTL),
			identities: memory.NewIdentityCache(cfg.CacheSize, cfg.TTL),
		}, nil
	default:
		return sessionPersistence{}, fmt.Errorf("unsupported session store %q", cfg.Store)
	}
}
