package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aleister1102/crawlgate/internal/metrics"
	"github.com/aleister1102/crawlgate/internal/models"
	"github.com/aleister1102/crawlgate/internal/orchestrator"
	"github.com/aleister1102/crawlgate/internal/ratelimit"
	"github.com/aleister1102/crawlgate/internal/rslimiter"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	mu         sync.Mutex
	crawlErr   error
	seeds      []string
	opts       models.CrawlOptions
	invalidate []string
	requestIDs []string
}

func (f *fakeService) Crawl(ctx context.Context, seeds []string, opts models.CrawlOptions) (models.CrawlResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seeds = seeds
	f.opts = opts
	if f.crawlErr != nil {
		return models.CrawlResponse{}, f.crawlErr
	}
	results := make([]models.CrawlResult, 0, len(seeds))
	for _, s := range seeds {
		results = append(results, models.CrawlResult{URL: s, Success: true, Markdown: "# hi"})
	}
	return models.NewCrawlResponse(results, 0, time.Millisecond), nil
}

func (f *fakeService) Invalidate(rawURL string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidate = append(f.invalidate, rawURL)
	return 2
}

func (f *fakeService) ClearCache() int     { return 7 }
func (f *fakeService) CleanupExpired() int { return 3 }

func (f *fakeService) Stats() orchestrator.ServiceStats {
	return orchestrator.ServiceStats{Service: "crawling", CacheSize: 4, CacheTTLHours: 1}
}

func (f *fakeService) Health(ctx context.Context) models.HealthResponse {
	return models.HealthResponse{Service: "crawling", Status: "healthy", BackendHealthy: true}
}

func newTestServer(t *testing.T, svc Service, opts Options) *Server {
	t.Helper()
	return NewServer(svc, opts, zerolog.Nop())
}

func do(t *testing.T, h http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestCrawl_AppliesDefaults(t *testing.T) {
	svc := &fakeService{}
	srv := newTestServer(t, svc, Options{})

	rr := do(t, srv, http.MethodPost, "/crawl", `{"urls":["https://example.com"],"scrape_internal_links":true}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	resp := decode[models.CrawlResponse](t, rr)
	assert.Equal(t, 1, resp.TotalURLs)
	assert.Equal(t, []string{"https://example.com"}, svc.seeds)
	assert.Equal(t, models.DefaultMaxDepth, svc.opts.MaxDepth)
	assert.Equal(t, models.DefaultMaxPages, svc.opts.MaxPages)
	assert.Equal(t, models.CacheModeEnabled, svc.opts.CacheMode)
	assert.True(t, svc.opts.ScrapeInternalLinks)
}

func TestCrawl_ValidationErrors(t *testing.T) {
	srv := newTestServer(t, &fakeService{}, Options{})

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"no urls", `{"urls":[]}`, "urls"},
		{"bad scheme", `{"urls":["ftp://example.com"]}`, "urls[0]"},
		{"follow without scrape", `{"urls":["https://a.com"],"follow_internal_links":true}`, "follow_internal_links"},
		{"depth", `{"urls":["https://a.com"],"max_depth":9}`, "max_depth"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, "/crawl", tt.body)
			require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

			resp := decode[errorResponse](t, rr)
			assert.Contains(t, resp.Detail, "Invalid crawl configuration")
			var fields []string
			for _, e := range resp.Errors {
				fields = append(fields, e.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestCrawl_MalformedBody(t *testing.T) {
	srv := newTestServer(t, &fakeService{}, Options{})

	rr := do(t, srv, http.MethodPost, "/crawl", `{"urls":`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = do(t, srv, http.MethodPost, "/crawl", `{"urls":["https://a.com"]} {}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestCrawl_BodyTooLarge(t *testing.T) {
	srv := newTestServer(t, &fakeService{}, Options{MaxBodyBytes: 16})

	rr := do(t, srv, http.MethodPost, "/crawl", `{"urls":["https://example.com/a/long/path"]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestCrawl_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		detail string
	}{
		{"unreachable", models.NewBackendError("submit", "https://a.com", assert.AnError), http.StatusServiceUnavailable, "Crawl4AI service unreachable"},
		{"run timeout", models.ErrRunTimeout, http.StatusGatewayTimeout, "Crawl4AI service timeout"},
		{"other", assert.AnError, http.StatusServiceUnavailable, "Crawling service temporarily unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &fakeService{crawlErr: tt.err}, Options{})
			rr := do(t, srv, http.MethodPost, "/crawl", `{"urls":["https://a.com"]}`)

			assert.Equal(t, tt.status, rr.Code)
			assert.Contains(t, decode[errorResponse](t, rr).Detail, tt.detail)
		})
	}
}

func TestCrawl_CallerLimit(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	limiter := ratelimit.NewCallerLimiter(2, time.Minute).WithClock(func() time.Time { return now })
	m := metrics.New()
	srv := newTestServer(t, &fakeService{}, Options{CallerLimiter: limiter, Metrics: m})
	body := `{"urls":["https://a.com"]}`

	for n := 0; n < 2; n++ {
		rr := do(t, srv, http.MethodPost, "/crawl", body, "X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		require.Equal(t, http.StatusOK, rr.Code)
	}

	rr := do(t, srv, http.MethodPost, "/crawl", body, "X-Forwarded-For", "203.0.113.7")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))

	rr = do(t, srv, http.MethodPost, "/crawl", body, "X-Forwarded-For", "198.51.100.1")
	assert.Equal(t, http.StatusOK, rr.Code, "other callers are unaffected")

	rr = do(t, srv, http.MethodGet, "/crawl/health", "", "X-Forwarded-For", "203.0.113.7")
	assert.Equal(t, http.StatusOK, rr.Code, "health is not limited")

	metricsBody := do(t, srv, http.MethodGet, "/metrics", "").Body.String()
	assert.Contains(t, metricsBody, "crawlgate_caller_throttled_total 1")
}

func TestCrawl_ResourceLimiterRefuses(t *testing.T) {
	rl := rslimiter.New(rslimiter.DefaultConfig(), zerolog.Nop()).
		WithSampler(func(ctx context.Context) (rslimiter.Usage, error) {
			return rslimiter.Usage{AllocMB: 1 << 20, SampledAt: time.Now()}, nil
		})
	rl.Check(context.Background())
	svc := &fakeService{}
	srv := newTestServer(t, svc, Options{Resources: rl})

	rr := do(t, srv, http.MethodPost, "/crawl", `{"urls":["https://a.com"]}`)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Nil(t, svc.seeds)

	health := decode[map[string]any](t, do(t, srv, http.MethodGet, "/crawl/health", ""))
	assert.Contains(t, health, "resources")
}

func TestRequestID(t *testing.T) {
	srv := newTestServer(t, &fakeService{}, Options{})

	rr := do(t, srv, http.MethodGet, "/crawl/stats", "")
	assert.Len(t, rr.Header().Get(requestIDHeader), 36)

	rr = do(t, srv, http.MethodGet, "/crawl/stats", "", requestIDHeader, "abc-123")
	assert.Equal(t, "abc-123", rr.Header().Get(requestIDHeader))
}

func TestAdminRoutes(t *testing.T) {
	svc := &fakeService{}
	srv := newTestServer(t, svc, Options{Metrics: metrics.New()})

	health := decode[map[string]any](t, do(t, srv, http.MethodGet, "/crawl/health", ""))
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, true, health["crawl4ai_healthy"])
	assert.NotContains(t, health, "resources")

	stats := decode[orchestrator.ServiceStats](t, do(t, srv, http.MethodGet, "/crawl/stats", ""))
	assert.Equal(t, 4, stats.CacheSize)

	cleared := decode[models.CacheClearResponse](t, do(t, srv, http.MethodDelete, "/crawl/cache", ""))
	assert.Equal(t, 7, cleared.ClearedEntries)
	assert.Equal(t, "Cache cleared successfully", cleared.Message)

	inv := decode[models.InvalidateResponse](t, do(t, srv, http.MethodPost, "/crawl/cache/invalidate", `{"url":"https://a.com/x"}`))
	assert.Equal(t, 2, inv.InvalidatedEntries)
	assert.Equal(t, []string{"https://a.com/x"}, svc.invalidate)

	rr := do(t, srv, http.MethodPost, "/crawl/cache/invalidate", `{"url":"  "}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	cleanup := decode[cleanupResponse](t, do(t, srv, http.MethodPost, "/crawl/cache/cleanup", ""))
	assert.Equal(t, 3, cleanup.RemovedEntries)

	rr = do(t, srv, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `crawlgate_http_requests_total{code="200",route="/crawl/stats"} 1`)
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, &fakeService{}, Options{})

	tests := []struct {
		method, path, allow string
	}{
		{http.MethodGet, "/crawl", "POST"},
		{http.MethodPost, "/crawl/health", "GET"},
		{http.MethodGet, "/crawl/cache", "DELETE"},
		{http.MethodGet, "/crawl/cache/cleanup", "POST"},
	}
	for _, tt := range tests {
		rr := do(t, srv, tt.method, tt.path, "")
		assert.Equal(t, http.StatusMethodNotAllowed, rr.Code, tt.path)
		assert.Equal(t, tt.allow, rr.Header().Get("Allow"), tt.path)
	}
}

func TestCallerKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.10:5555"
	assert.Equal(t, "192.0.2.10", callerKey(req))

	req.Header.Set("X-Forwarded-For", " 203.0.113.9 , 10.0.0.2")
	assert.Equal(t, "203.0.113.9", callerKey(req))

	req.Header.Set("X-Forwarded-For", " , ")
	assert.Equal(t, "192.0.2.10", callerKey(req))
}
