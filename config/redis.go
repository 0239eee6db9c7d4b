package config

// RedisConfig contains Redis configuration. Exactly one of the direct,
// sentinel or cluster topologies is used.
type RedisConfig struct {
	URI      string `env:"URI"      envDefault:"localhost:6379"`
	Password string `env:"PASSWORD" envDefault:""`
	DB       int    `env:"DB"       envDefault:"0"`

	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`

	ClusterAddrs []string `env:"CLUSTER_ADDRS" envDefault:""`

	// KeyPrefix namespaces session keys when the instance is shared.
	KeyPrefix string `env:"KEY_PREFIX" envDefault:"portal:session:"`
}

// UseCluster reports whether cluster addresses were configured.
func (r *RedisConfig) UseCluster() bool {
	for _, a := range r.ClusterAddrs {
		if a != "" {
			return true
		}
	}
	return false
}
