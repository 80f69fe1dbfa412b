package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldsOf(t *testing.T, err error) []string {
	t.Helper()
	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs), "expected ValidationErrors, got %T", err)
	fields := make([]string, 0, len(verrs))
	for _, ve := range verrs {
		fields = append(fields, ve.Field)
	}
	return fields
}

func TestCrawlRequest_ValidateDefaults(t *testing.T) {
	req := NewCrawlRequest("https://example.com")
	require.NoError(t, req.Validate())

	opts := req.Options()
	assert.Equal(t, DefaultMaxDepth, opts.MaxDepth)
	assert.Equal(t, DefaultMaxPages, opts.MaxPages)
	assert.Equal(t, CacheModeEnabled, opts.CacheMode)
	assert.False(t, opts.Recursive())
}

func TestCrawlRequest_ValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *CrawlRequest)
		field  string
	}{
		{name: "no urls", mutate: func(r *CrawlRequest) { r.URLs = nil }, field: "urls"},
		{name: "non http url", mutate: func(r *CrawlRequest) { r.URLs = []string{"ftp://example.com"} }, field: "urls[0]"},
		{name: "too many seeds", mutate: func(r *CrawlRequest) {
			r.URLs = make([]string, 11)
			for i := range r.URLs {
				r.URLs[i] = "https://example.com"
			}
		}, field: "urls"},
		{name: "depth too high", mutate: func(r *CrawlRequest) { r.MaxDepth = 6 }, field: "max_depth"},
		{name: "pages zero", mutate: func(r *CrawlRequest) { r.MaxPages = 0 }, field: "max_pages"},
		{name: "unknown cache mode", mutate: func(r *CrawlRequest) { r.CacheMode = "sometimes" }, field: "cache_mode"},
		{name: "follow internal without scrape", mutate: func(r *CrawlRequest) { r.FollowInternalLinks = true }, field: "follow_internal_links"},
		{name: "follow external without scrape", mutate: func(r *CrawlRequest) { r.FollowExternalLinks = true }, field: "follow_external_links"},
		{name: "too many seeds when following", mutate: func(r *CrawlRequest) {
			r.ScrapeInternalLinks = true
			r.FollowInternalLinks = true
			r.URLs = []string{"https://a.com", "https://b.com", "https://c.com", "https://d.com"}
		}, field: "urls"},
		{name: "external depth cap", mutate: func(r *CrawlRequest) {
			r.ScrapeExternalLinks = true
			r.FollowExternalLinks = true
			r.MaxDepth = 4
		}, field: "max_depth"},
		{name: "external page cap", mutate: func(r *CrawlRequest) {
			r.ScrapeExternalLinks = true
			r.FollowExternalLinks = true
			r.MaxPages = 21
		}, field: "max_pages"},
		{name: "screenshot aspect", mutate: func(r *CrawlRequest) {
			r.CaptureScreenshots = true
			r.ScreenshotWidth = 320
			r.ScreenshotHeight = 2160
		}, field: "screenshot_width"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := NewCrawlRequest("https://example.com")
			tt.mutate(&req)
			err := req.Validate()
			require.Error(t, err)
			assert.Contains(t, fieldsOf(t, err), tt.field)
		})
	}
}

func TestCrawlRequest_ScreenshotAtPixelLimit(t *testing.T) {
	req := NewCrawlRequest("https://example.com")
	req.CaptureScreenshots = true
	req.ScreenshotWidth = 3840
	req.ScreenshotHeight = 2160
	assert.NoError(t, req.Validate())
}

func TestCrawlOptions_CacheModes(t *testing.T) {
	opts := DefaultCrawlOptions()
	assert.True(t, opts.ReadsCache())
	assert.True(t, opts.WritesCache())

	opts.CacheMode = CacheModeBypass
	assert.False(t, opts.ReadsCache())
	assert.True(t, opts.WritesCache())

	opts.CacheMode = CacheModeDisabled
	assert.False(t, opts.ReadsCache())
	assert.False(t, opts.WritesCache())
}

func TestNewCrawlResponse_Counters(t *testing.T) {
	results := []CrawlResult{
		{URL: "https://a.com", Success: true},
		{URL: "https://a.com/x", Success: true, Cached: true},
		NewFailedResult("https://a.com/y", 1, ErrorMessageTimeout, time.Second),
	}

	resp := NewCrawlResponse(results, 1, 2*time.Second)
	assert.Equal(t, 3, resp.TotalURLs)
	assert.Equal(t, 2, resp.SuccessfulCrawls)
	assert.Equal(t, 1, resp.FailedCrawls)
	assert.Equal(t, 1, resp.CachedResults)
	assert.Equal(t, 2.0, resp.TotalTimeSeconds)
	assert.Equal(t, resp.TotalURLs, resp.SuccessfulCrawls+resp.FailedCrawls)

	empty := NewCrawlResponse(nil, 0, 0)
	assert.NotNil(t, empty.Results)
	assert.Zero(t, empty.TotalURLs)
}

func TestCrawlResult_CloneIsIndependent(t *testing.T) {
	orig := CrawlResult{
		URL:            "https://a.com",
		Success:        true,
		InternalLinks:  []string{"https://a.com/x"},
		ExternalLinks:  []string{"https://b.com"},
		Metadata:       map[string]any{"title": "A", "nested": map[string]any{"k": "v"}},
		ScreenshotSize: &ScreenshotSize{Width: 10, Height: 20},
	}

	cp := orig.Clone()
	cp.InternalLinks[0] = "changed"
	cp.ExternalLinks = append(cp.ExternalLinks, "https://c.com")
	cp.Metadata["title"] = "B"
	cp.Metadata["nested"].(map[string]any)["k"] = "changed"
	cp.ScreenshotSize.Width = 99

	assert.Equal(t, "https://a.com/x", orig.InternalLinks[0])
	assert.Len(t, orig.ExternalLinks, 1)
	assert.Equal(t, "A", orig.Metadata["title"])
	assert.Equal(t, "v", orig.Metadata["nested"].(map[string]any)["k"])
	assert.Equal(t, 10, orig.ScreenshotSize.Width)
	assert.Equal(t, []string{"changed", "https://b.com", "https://c.com"}, cp.DiscoveredLinks())
}

func TestBackendError_MatchesSentinel(t *testing.T) {
	inner := errors.New("connection refused")
	err := NewBackendError("submit", "https://a.com", inner)
	assert.ErrorIs(t, err, ErrBackendUnreachable)
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "submit")
}
