// Package cache holds crawl results in memory for a bounded time and keeps a
// reverse index from normalized URL to every cache key stored for it.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/aleister1102/crawlgate/internal/models"
	"github.com/aleister1102/crawlgate/internal/normalizer"
	"github.com/rs/zerolog"
)

// Config controls entry lifetimes and the janitor cadence.
type Config struct {
	TTL             time.Duration
	FailureTTL      time.Duration // zero means TTL
	CleanupInterval time.Duration
}

// DefaultConfig mirrors the service defaults.
func DefaultConfig() Config {
	return Config{
		TTL:             time.Hour,
		CleanupInterval: 10 * time.Minute,
	}
}

// Stats is a point-in-time view of the cache.
type Stats struct {
	Size                  int     `json:"cache_size"`
	IndexedURLs           int     `json:"indexed_urls"`
	TTLSeconds            float64 `json:"ttl_seconds"`
	ExpiredEntries        int     `json:"expired_entries"`
	OldestEntryAgeSeconds float64 `json:"oldest_entry_age_seconds"`
}

type entry struct {
	payload       models.CrawlResult
	normalizedURL string
	storedAt      time.Time
	expiresAt     time.Time
}

// ResultCache is safe for concurrent use. The store and the reverse index are
// only mutated together under mu.
type ResultCache struct {
	cfg    Config
	logger zerolog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	entries map[string]*entry
	byURL   map[string]map[string]struct{}
}

// New creates an empty ResultCache.
func New(cfg Config, logger zerolog.Logger) *ResultCache {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultConfig().TTL
	}
	if cfg.FailureTTL <= 0 {
		cfg.FailureTTL = cfg.TTL
	}
	return &ResultCache{
		cfg:     cfg,
		logger:  logger.With().Str("component", "ResultCache").Logger(),
		now:     time.Now,
		entries: make(map[string]*entry),
		byURL:   make(map[string]map[string]struct{}),
	}
}

// WithClock replaces the time source. Intended for tests.
func (c *ResultCache) WithClock(now func() time.Time) *ResultCache {
	c.now = now
	return c
}

// TTL returns the lifetime applied to successful results.
func (c *ResultCache) TTL() time.Duration {
	return c.cfg.TTL
}

// TTLFor picks the lifetime for result based on its outcome.
func (c *ResultCache) TTLFor(result models.CrawlResult) time.Duration {
	if result.Success {
		return c.cfg.TTL
	}
	return c.cfg.FailureTTL
}

// Get returns a copy of the entry stored under key if it has not expired.
// Expired entries are evicted on access.
func (c *ResultCache) Get(key string) (models.CrawlResult, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	if ok && c.now().Before(e.expiresAt) {
		result := e.payload.Clone()
		c.mu.RUnlock()
		return result, true
	}
	c.mu.RUnlock()

	if !ok {
		return models.CrawlResult{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok && !c.now().Before(e.expiresAt) {
		c.removeLocked(key, e)
	}
	return models.CrawlResult{}, false
}

// Put stores a copy of payload under key and indexes it by normalizedURL.
// A non-positive ttl selects TTLFor(payload).
func (c *ResultCache) Put(normalizedURL, key string, payload models.CrawlResult, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.TTLFor(payload)
	}
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[key]; ok && old.normalizedURL != normalizedURL {
		c.unindexLocked(old.normalizedURL, key)
	}
	c.entries[key] = &entry{
		payload:       payload.Clone(),
		normalizedURL: normalizedURL,
		storedAt:      now,
		expiresAt:     now.Add(ttl),
	}
	keys, ok := c.byURL[normalizedURL]
	if !ok {
		keys = make(map[string]struct{})
		c.byURL[normalizedURL] = keys
	}
	keys[key] = struct{}{}
}

// Invalidate drops every cached variant of rawURL and returns how many
// entries were removed. Unparsable input removes nothing.
func (c *ResultCache) Invalidate(rawURL string) int {
	normalizedURL, err := normalizer.Normalize(rawURL)
	if err != nil {
		c.logger.Debug().Err(err).Str("url", rawURL).Msg("Ignoring invalidation of invalid URL")
		return 0
	}

	c.mu.Lock()
	keys := c.byURL[normalizedURL]
	delete(c.byURL, normalizedURL)
	removed := 0
	for key := range keys {
		if _, ok := c.entries[key]; ok {
			delete(c.entries, key)
			removed++
		}
	}
	c.mu.Unlock()

	if removed > 0 {
		c.logger.Info().Str("url", normalizedURL).Int("entries", removed).Msg("Invalidated cached results")
	}
	return removed
}

// Clear empties the cache and returns the number of entries dropped.
func (c *ResultCache) Clear() int {
	c.mu.Lock()
	n := len(c.entries)
	c.entries = make(map[string]*entry)
	c.byURL = make(map[string]map[string]struct{})
	c.mu.Unlock()

	c.logger.Info().Int("entries", n).Msg("Cache cleared")
	return n
}

// CleanupExpired removes every expired entry and returns how many were removed.
func (c *ResultCache) CleanupExpired() int {
	now := c.now()

	c.mu.Lock()
	removed := 0
	for key, e := range c.entries {
		if !now.Before(e.expiresAt) {
			c.removeLocked(key, e)
			removed++
		}
	}
	c.mu.Unlock()

	if removed > 0 {
		c.logger.Debug().Int("entries", removed).Msg("Removed expired cache entries")
	}
	return removed
}

// Len returns the number of stored entries, expired ones included.
func (c *ResultCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats summarises the cache contents.
func (c *ResultCache) Stats() Stats {
	now := c.now()

	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := Stats{
		Size:        len(c.entries),
		IndexedURLs: len(c.byURL),
		TTLSeconds:  c.cfg.TTL.Seconds(),
	}
	var oldest time.Duration
	for _, e := range c.entries {
		if !now.Before(e.expiresAt) {
			stats.ExpiredEntries++
		}
		if age := now.Sub(e.storedAt); age > oldest {
			oldest = age
		}
	}
	stats.OldestEntryAgeSeconds = oldest.Seconds()
	return stats
}

// Run calls CleanupExpired every CleanupInterval until ctx is done.
func (c *ResultCache) Run(ctx context.Context) error {
	if c.cfg.CleanupInterval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(c.cfg.CleanupInterval)
	defer ticker.Stop()

	c.logger.Info().Dur("interval", c.cfg.CleanupInterval).Msg("Cache janitor started")
	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("Cache janitor stopped")
			return nil
		case <-ticker.C:
			c.CleanupExpired()
		}
	}
}

func (c *ResultCache) removeLocked(key string, e *entry) {
	delete(c.entries, key)
	c.unindexLocked(e.normalizedURL, key)
}

func (c *ResultCache) unindexLocked(normalizedURL, key string) {
	keys, ok := c.byURL[normalizedURL]
	if !ok {
		return
	}
	delete(keys, key)
	if len(keys) == 0 {
		delete(c.byURL, normalizedURL)
	}
}
