package config

// CacheConfig controls result retention. A zero FailureTTL keeps failed
// results as long as successful ones.
type CacheConfig struct {
	TTL             Duration `json:"ttl" yaml:"ttl" validate:"gt=0"`
	FailureTTL      Duration `json:"failure_ttl,omitempty" yaml:"failure_ttl,omitempty" validate:"min=0"`
	CleanupInterval Duration `json:"cleanup_interval,omitempty" yaml:"cleanup_interval,omitempty" validate:"min=0"`
}

func NewDefaultCacheConfig() CacheConfig {
	return CacheConfig{
		TTL:             Duration(DefaultCacheTTL),
		CleanupInterval: Duration(DefaultCacheCleanupInterval),
	}
}
