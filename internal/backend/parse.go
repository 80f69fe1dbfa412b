package backend

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/png"
	"net/http"

	"github.com/aleister1102/crawlgate/internal/models"
)

// Task states reported by the backend.
const (
	statusCompleted  = "completed"
	statusFailed     = "failed"
	statusPending    = "pending"
	statusRunning    = "running"
	statusProcessing = "processing"
	statusQueued     = "queued"
)

type taskReply struct {
	Status  string            `json:"status"`
	Error   string            `json:"error"`
	Results []json.RawMessage `json:"results"`
	Result  json.RawMessage   `json:"result"`
}

type linkRef struct {
	Href string `json:"href"`
}

type pageLinks struct {
	Internal []linkRef `json:"internal"`
	External []linkRef `json:"external"`
}

type pagePayload struct {
	StatusCode  *int            `json:"status_code"`
	Markdown    json.RawMessage `json:"markdown"`
	CleanedHTML string          `json:"cleaned_html"`
	Metadata    map[string]any  `json:"metadata"`
	Links       *pageLinks      `json:"links"`
	Screenshot  string          `json:"screenshot"`
}

// page extracts the first page result of a completed task.
func (t *taskReply) page() (*pagePayload, error) {
	raw := t.Result
	if len(t.Results) > 0 {
		raw = t.Results[0]
	}
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, fmt.Errorf("%w: no results in task response", models.ErrParse)
	}

	var page pagePayload
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrParse, err)
	}
	return &page, nil
}

func (c *Client) toResult(rawURL string, page *pagePayload, opts models.CrawlOptions) (models.CrawlResult, error) {
	if page.StatusCode == nil {
		return models.CrawlResult{}, fmt.Errorf("%w: page result has no status_code", models.ErrParse)
	}
	if code := *page.StatusCode; code != http.StatusOK {
		result := models.NewFailedResult(rawURL, 0, fmt.Sprintf("HTTP %d", code), 0)
		result.StatusCode = code
		return result, nil
	}

	markdown, err := decodeMarkdown(page.Markdown)
	if err != nil {
		return models.CrawlResult{}, err
	}

	result := models.CrawlResult{
		URL:        rawURL,
		Success:    true,
		Markdown:   markdown,
		StatusCode: http.StatusOK,
	}
	if !opts.MarkdownOnly {
		result.CleanedHTML = page.CleanedHTML
		result.Metadata = page.Metadata
	}

	if opts.ScrapesLinks() {
		c.attachLinks(&result, rawURL, page, opts)
	}

	if opts.CaptureScreenshots && page.Screenshot != "" {
		result.ScreenshotBase64 = page.Screenshot
		result.ScreenshotSize = screenshotSize(page.Screenshot, opts)
	}

	return result, nil
}

// attachLinks copies the requested link classes from the payload, falling
// back to parsing cleaned_html when the backend sent no link data at all.
func (c *Client) attachLinks(result *models.CrawlResult, rawURL string, page *pagePayload, opts models.CrawlOptions) {
	var internal, external []string
	if page.Links != nil {
		internal = hrefs(page.Links.Internal)
		external = hrefs(page.Links.External)
	} else if page.CleanedHTML != "" {
		found := c.links.ExtractLinks(rawURL, page.CleanedHTML)
		internal, external = found.Internal, found.External
		c.logger.Debug().
			Str("url", rawURL).
			Int("internal", len(internal)).
			Int("external", len(external)).
			Msg("Extracted links from cleaned HTML")
	}

	if opts.ScrapeInternalLinks {
		result.InternalLinks = internal
	}
	if opts.ScrapeExternalLinks {
		result.ExternalLinks = external
	}
}

func hrefs(refs []linkRef) []string {
	if len(refs) == 0 {
		return nil
	}
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		if ref.Href != "" {
			out = append(out, ref.Href)
		}
	}
	return out
}

// decodeMarkdown accepts either a plain string or an object carrying
// raw_markdown.
func decodeMarkdown(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", fmt.Errorf("%w: markdown: %v", models.ErrParse, err)
		}
		return s, nil
	case '{':
		var obj struct {
			RawMarkdown string `json:"raw_markdown"`
		}
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return "", fmt.Errorf("%w: markdown: %v", models.ErrParse, err)
		}
		return obj.RawMarkdown, nil
	default:
		return "", fmt.Errorf("%w: unexpected markdown type", models.ErrParse)
	}
}

// screenshotSize reads the PNG header for the real dimensions and falls back
// to the requested viewport when the image cannot be decoded.
func screenshotSize(encoded string, opts models.CrawlOptions) *models.ScreenshotSize {
	fallback := &models.ScreenshotSize{Width: opts.ScreenshotWidth, Height: opts.ScreenshotHeight}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fallback
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fallback
	}
	return &models.ScreenshotSize{Width: cfg.Width, Height: cfg.Height}
}
