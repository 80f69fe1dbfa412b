package backend

import "github.com/aleister1102/crawlgate/internal/models"

type screenshotOptions struct {
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	WaitFor  int    `json:"wait_for"`
	Format   string `json:"format"`
	FullPage bool   `json:"full_page"`
}

type renderPayload struct {
	URLs              []string           `json:"urls"`
	Screenshot        bool               `json:"screenshot,omitempty"`
	ScreenshotOptions *screenshotOptions `json:"screenshot_options,omitempty"`
	ExtractLinks      bool               `json:"extract_links,omitempty"`
	LinkTypes         []string           `json:"link_types,omitempty"`
}

func buildRenderPayload(rawURL string, opts models.CrawlOptions) renderPayload {
	payload := renderPayload{URLs: []string{rawURL}}

	if opts.CaptureScreenshots {
		payload.Screenshot = true
		payload.ScreenshotOptions = &screenshotOptions{
			Width:   opts.ScreenshotWidth,
			Height:  opts.ScreenshotHeight,
			WaitFor: opts.ScreenshotWaitFor,
			Format:  "png",
		}
	}

	if opts.ScrapesLinks() {
		payload.ExtractLinks = true
		if opts.ScrapeInternalLinks {
			payload.LinkTypes = append(payload.LinkTypes, "internal")
		}
		if opts.ScrapeExternalLinks {
			payload.LinkTypes = append(payload.LinkTypes, "external")
		}
	}

	return payload
}
