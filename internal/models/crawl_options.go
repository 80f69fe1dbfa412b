package models

// CacheMode controls how a request interacts with the result cache.
type CacheMode string

const (
	// CacheModeEnabled reads from and writes to the cache.
	CacheModeEnabled CacheMode = "enabled"
	// CacheModeDisabled neither reads nor writes.
	CacheModeDisabled CacheMode = "disabled"
	// CacheModeBypass ignores cached entries but stores fresh results.
	CacheModeBypass CacheMode = "bypass"
)

// Default request values.
const (
	DefaultMaxDepth          = 1
	DefaultMaxPages          = 10
	DefaultScreenshotWidth   = 1920
	DefaultScreenshotHeight  = 1080
	DefaultScreenshotWaitFor = 2
)

// CrawlOptions describes what to extract from each page and how far to
// traverse. It is validated once at the API boundary and treated as
// immutable afterwards.
type CrawlOptions struct {
	MarkdownOnly        bool      `json:"markdown_only"`
	ScrapeInternalLinks bool      `json:"scrape_internal_links"`
	ScrapeExternalLinks bool      `json:"scrape_external_links"`
	FollowInternalLinks bool      `json:"follow_internal_links"`
	FollowExternalLinks bool      `json:"follow_external_links"`
	MaxDepth            int       `json:"max_depth"`
	MaxPages            int       `json:"max_pages"`
	CaptureScreenshots  bool      `json:"capture_screenshots"`
	ScreenshotWidth     int       `json:"screenshot_width"`
	ScreenshotHeight    int       `json:"screenshot_height"`
	ScreenshotWaitFor   int       `json:"screenshot_wait_for"`
	CacheMode           CacheMode `json:"cache_mode"`
}

// DefaultCrawlOptions returns the options used when a request leaves fields unset.
func DefaultCrawlOptions() CrawlOptions {
	return CrawlOptions{
		MaxDepth:          DefaultMaxDepth,
		MaxPages:          DefaultMaxPages,
		ScreenshotWidth:   DefaultScreenshotWidth,
		ScreenshotHeight:  DefaultScreenshotHeight,
		ScreenshotWaitFor: DefaultScreenshotWaitFor,
		CacheMode:         CacheModeEnabled,
	}
}

// Recursive reports whether discovered links are followed at all.
func (o CrawlOptions) Recursive() bool {
	return o.FollowInternalLinks || o.FollowExternalLinks
}

// ScrapesLinks reports whether any link class is extracted.
func (o CrawlOptions) ScrapesLinks() bool {
	return o.ScrapeInternalLinks || o.ScrapeExternalLinks
}

// ReadsCache reports whether cached entries may be served.
func (o CrawlOptions) ReadsCache() bool {
	return o.CacheMode == "" || o.CacheMode == CacheModeEnabled
}

// WritesCache reports whether fresh results are stored.
func (o CrawlOptions) WritesCache() bool {
	return o.CacheMode != CacheModeDisabled
}
