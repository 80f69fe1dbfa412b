package models

import "time"

// CrawlResponse aggregates the results of one crawl request.
type CrawlResponse struct {
	TotalURLs        int           `json:"total_urls"`
	SuccessfulCrawls int           `json:"successful_crawls"`
	FailedCrawls     int           `json:"failed_crawls"`
	CachedResults    int           `json:"cached_results"`
	Results          []CrawlResult `json:"results"`
	Timestamp        time.Time     `json:"timestamp"`
	TotalTimeSeconds float64       `json:"total_time_seconds"`
}

// NewCrawlResponse derives the summary counters from results.
func NewCrawlResponse(results []CrawlResult, cachedCount int, elapsed time.Duration) CrawlResponse {
	if results == nil {
		results = []CrawlResult{}
	}
	successful := 0
	for _, r := range results {
		if r.Success {
			successful++
		}
	}
	return CrawlResponse{
		TotalURLs:        len(results),
		SuccessfulCrawls: successful,
		FailedCrawls:     len(results) - successful,
		CachedResults:    cachedCount,
		Results:          results,
		Timestamp:        time.Now().UTC(),
		TotalTimeSeconds: elapsed.Seconds(),
	}
}

// CacheClearResponse reports the outcome of clearing the cache.
type CacheClearResponse struct {
	Message        string    `json:"message"`
	ClearedEntries int       `json:"cleared_entries"`
	Timestamp      time.Time `json:"timestamp"`
}

// InvalidateResponse reports how many cached variants of a URL were dropped.
type InvalidateResponse struct {
	URL                string    `json:"url"`
	InvalidatedEntries int       `json:"invalidated_entries"`
	Timestamp          time.Time `json:"timestamp"`
}

// HealthResponse summarises service and backend health.
type HealthResponse struct {
	Service           string         `json:"service"`
	Status            string         `json:"status"`
	CacheSize         int            `json:"cache_size"`
	CacheTTLHours     float64        `json:"cache_ttl_hours"`
	RateLimiterActive bool           `json:"rate_limiter_active"`
	BackendInstance   string         `json:"crawl4ai_instance"`
	BackendHealthy    bool           `json:"crawl4ai_healthy"`
	BackendResponse   map[string]any `json:"crawl4ai_response,omitempty"`
	BackendError      string         `json:"crawl4ai_error,omitempty"`
}
