package models

import (
	"time"
)

// ScreenshotSize holds the pixel dimensions of a captured screenshot.
type ScreenshotSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// CrawlResult is the outcome of crawling a single URL.
type CrawlResult struct {
	URL              string          `json:"url"`
	Success          bool            `json:"success"`
	Depth            int             `json:"depth"`
	Markdown         string          `json:"markdown,omitempty"`
	CleanedHTML      string          `json:"cleaned_html,omitempty"`
	Metadata         map[string]any  `json:"metadata,omitempty"`
	InternalLinks    []string        `json:"internal_links,omitempty"`
	ExternalLinks    []string        `json:"external_links,omitempty"`
	ScreenshotBase64 string          `json:"screenshot_base64,omitempty"`
	ScreenshotSize   *ScreenshotSize `json:"screenshot_size,omitempty"`
	ErrorMessage     string          `json:"error_message,omitempty"`
	StatusCode       int             `json:"status_code,omitempty"`
	CrawlTimeSeconds float64         `json:"crawl_time_seconds,omitempty"`
	Cached           bool            `json:"cached,omitempty"`
}

// NewFailedResult builds a failed result for rawURL.
func NewFailedResult(rawURL string, depth int, message string, elapsed time.Duration) CrawlResult {
	return CrawlResult{
		URL:              rawURL,
		Success:          false,
		Depth:            depth,
		ErrorMessage:     message,
		CrawlTimeSeconds: elapsed.Seconds(),
	}
}

// DiscoveredLinks returns internal links followed by external links.
func (r CrawlResult) DiscoveredLinks() []string {
	links := make([]string, 0, len(r.InternalLinks)+len(r.ExternalLinks))
	links = append(links, r.InternalLinks...)
	return append(links, r.ExternalLinks...)
}

// Clone returns a deep copy so callers never share slices or maps with the cache.
func (r CrawlResult) Clone() CrawlResult {
	out := r
	if r.InternalLinks != nil {
		out.InternalLinks = append([]string(nil), r.InternalLinks...)
	}
	if r.ExternalLinks != nil {
		out.ExternalLinks = append([]string(nil), r.ExternalLinks...)
	}
	if r.ScreenshotSize != nil {
		size := *r.ScreenshotSize
		out.ScreenshotSize = &size
	}
	if r.Metadata != nil {
		out.Metadata = cloneMap(r.Metadata)
	}
	return out
}

func cloneMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		switch typed := v.(type) {
		case map[string]any:
			out[k] = cloneMap(typed)
		case []any:
			out[k] = append([]any(nil), typed...)
		default:
			out[k] = v
		}
	}
	return out
}
