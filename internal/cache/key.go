package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/aleister1102/crawlgate/internal/models"
)

// keyOptions is the subset of CrawlOptions that changes what a page render
// returns. Field order is fixed so the JSON encoding is canonical.
type keyOptions struct {
	MarkdownOnly        bool `json:"markdown_only"`
	ScrapeInternalLinks bool `json:"scrape_internal_links"`
	ScrapeExternalLinks bool `json:"scrape_external_links"`
	CaptureScreenshots  bool `json:"capture_screenshots"`
	ScreenshotWidth     int  `json:"screenshot_width,omitempty"`
	ScreenshotHeight    int  `json:"screenshot_height,omitempty"`
	ScreenshotWaitFor   int  `json:"screenshot_wait_for,omitempty"`
}

type keyMaterial struct {
	URL     string     `json:"url"`
	Options keyOptions `json:"options"`
}

// KeyFor derives the cache key for a normalized URL rendered with opts.
// Screenshot geometry only participates when screenshots are captured.
func KeyFor(normalizedURL string, opts models.CrawlOptions) string {
	ko := keyOptions{
		MarkdownOnly:        opts.MarkdownOnly,
		ScrapeInternalLinks: opts.ScrapeInternalLinks,
		ScrapeExternalLinks: opts.ScrapeExternalLinks,
		CaptureScreenshots:  opts.CaptureScreenshots,
	}
	if opts.CaptureScreenshots {
		ko.ScreenshotWidth = opts.ScreenshotWidth
		ko.ScreenshotHeight = opts.ScreenshotHeight
		ko.ScreenshotWaitFor = opts.ScreenshotWaitFor
	}

	// Marshalling a struct of bools and ints cannot fail.
	raw, _ := json.Marshal(keyMaterial{URL: normalizedURL, Options: ko})
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
