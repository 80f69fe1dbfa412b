package orchestrator

import (
	"context"

	"github.com/aleister1102/crawlgate/internal/backend"
	"github.com/aleister1102/crawlgate/internal/models"
)

const serviceName = "crawling"

// Health statuses reported by Health.
const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
)

// HealthProber is implemented by fetchers that can report backend health.
type HealthProber interface {
	Health(ctx context.Context) backend.HealthStatus
	BaseURL() string
}

// ServiceStats is the cache view exposed by GET /crawl/stats.
type ServiceStats struct {
	Service               string  `json:"service"`
	CacheSize             int     `json:"cache_size"`
	IndexedURLs           int     `json:"indexed_urls"`
	CacheTTLHours         float64 `json:"cache_ttl_hours"`
	ExpiredEntries        int     `json:"expired_entries"`
	OldestEntryAgeMinutes float64 `json:"oldest_entry_age_minutes"`
	RateLimiterActive     bool    `json:"rate_limiter_active"`
	BackendInstance       string  `json:"crawl4ai_instance,omitempty"`
}

// Invalidate drops every cached variant of rawURL and returns how many
// entries were removed.
func (o *Orchestrator) Invalidate(rawURL string) int {
	n := o.cache.Invalidate(rawURL)
	o.metrics.ObserveInvalidation(n)
	o.logger.Info().Str("url", rawURL).Int("entries", n).Msg("Invalidated cached results")
	return n
}

// ClearCache empties the cache.
func (o *Orchestrator) ClearCache() int {
	n := o.cache.Clear()
	o.logger.Info().Int("entries", n).Msg("Cache cleared")
	return n
}

// CleanupExpired evicts expired entries now instead of waiting for the janitor.
func (o *Orchestrator) CleanupExpired() int {
	return o.cache.CleanupExpired()
}

func (o *Orchestrator) Stats() ServiceStats {
	cs := o.cache.Stats()
	stats := ServiceStats{
		Service:               serviceName,
		CacheSize:             cs.Size,
		IndexedURLs:           cs.IndexedURLs,
		CacheTTLHours:         cs.TTLSeconds / 3600,
		ExpiredEntries:        cs.ExpiredEntries,
		OldestEntryAgeMinutes: cs.OldestEntryAgeSeconds / 60,
		RateLimiterActive:     o.cfg.RateLimiterActive,
	}
	if prober, ok := o.fetcher.(HealthProber); ok {
		stats.BackendInstance = prober.BaseURL()
	}
	return stats
}

// Health reports cache state and probes the backend. The service is degraded
// whenever the backend probe fails.
func (o *Orchestrator) Health(ctx context.Context) models.HealthResponse {
	resp := models.HealthResponse{
		Service:           serviceName,
		Status:            StatusHealthy,
		CacheSize:         o.cache.Len(),
		CacheTTLHours:     o.cache.TTL().Hours(),
		RateLimiterActive: o.cfg.RateLimiterActive,
		BackendHealthy:    true,
	}

	prober, ok := o.fetcher.(HealthProber)
	if !ok {
		return resp
	}

	status := prober.Health(ctx)
	resp.BackendInstance = prober.BaseURL()
	resp.BackendHealthy = status.Healthy
	resp.BackendResponse = status.Response
	resp.BackendError = status.Error
	if !status.Healthy {
		resp.Status = StatusDegraded
		o.logger.Warn().Str("backend", resp.BackendInstance).Str("error", status.Error).Msg("Crawl backend health check failed")
	}
	return resp
}
