package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Request limits enforced at the API boundary.
const (
	MaxSeedURLs              = 10
	MaxSeedURLsWhenFollowing = 3
	MaxDepthExternal         = 3
	MaxPagesExternal         = 20
	MaxScreenshotPixels      = 8_294_400
	MinScreenshotAspect      = 0.5
	MaxScreenshotAspect      = 4.0
)

// CrawlRequest is the caller-facing request body.
type CrawlRequest struct {
	URLs                []string  `json:"urls" validate:"required,min=1,max=10,dive,required,http_url"`
	MarkdownOnly        bool      `json:"markdown_only"`
	ScrapeInternalLinks bool      `json:"scrape_internal_links"`
	ScrapeExternalLinks bool      `json:"scrape_external_links"`
	FollowInternalLinks bool      `json:"follow_internal_links"`
	FollowExternalLinks bool      `json:"follow_external_links"`
	MaxDepth            int       `json:"max_depth" validate:"min=1,max=5"`
	MaxPages            int       `json:"max_pages" validate:"min=1,max=50"`
	CaptureScreenshots  bool      `json:"capture_screenshots"`
	ScreenshotWidth     int       `json:"screenshot_width" validate:"min=320,max=3840"`
	ScreenshotHeight    int       `json:"screenshot_height" validate:"min=240,max=2160"`
	ScreenshotWaitFor   int       `json:"screenshot_wait_for" validate:"min=0,max=30"`
	CacheMode           CacheMode `json:"cache_mode" validate:"oneof=enabled disabled bypass"`
}

// NewCrawlRequest returns a request pre-filled with defaults; decoding JSON
// into it leaves absent fields at their default values.
func NewCrawlRequest(urls ...string) CrawlRequest {
	opts := DefaultCrawlOptions()
	return CrawlRequest{
		URLs:              urls,
		MaxDepth:          opts.MaxDepth,
		MaxPages:          opts.MaxPages,
		ScreenshotWidth:   opts.ScreenshotWidth,
		ScreenshotHeight:  opts.ScreenshotHeight,
		ScreenshotWaitFor: opts.ScreenshotWaitFor,
		CacheMode:         opts.CacheMode,
	}
}

// Options converts the request into the immutable option set used by the core.
func (r CrawlRequest) Options() CrawlOptions {
	return CrawlOptions{
		MarkdownOnly:        r.MarkdownOnly,
		ScrapeInternalLinks: r.ScrapeInternalLinks,
		ScrapeExternalLinks: r.ScrapeExternalLinks,
		FollowInternalLinks: r.FollowInternalLinks,
		FollowExternalLinks: r.FollowExternalLinks,
		MaxDepth:            r.MaxDepth,
		MaxPages:            r.MaxPages,
		CaptureScreenshots:  r.CaptureScreenshots,
		ScreenshotWidth:     r.ScreenshotWidth,
		ScreenshotHeight:    r.ScreenshotHeight,
		ScreenshotWaitFor:   r.ScreenshotWaitFor,
		CacheMode:           r.CacheMode,
	}
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func requestValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		validate.RegisterStructValidation(crawlRequestStructLevel, CrawlRequest{})
	})
	return validate
}

// crawlRequestStructLevel enforces the cross-field rules that tags cannot express.
func crawlRequestStructLevel(sl validator.StructLevel) {
	req := sl.Current().Interface().(CrawlRequest)

	if req.CaptureScreenshots && req.ScreenshotHeight > 0 {
		aspect := float64(req.ScreenshotWidth) / float64(req.ScreenshotHeight)
		if aspect < MinScreenshotAspect || aspect > MaxScreenshotAspect {
			sl.ReportError(req.ScreenshotWidth, "screenshot_width", "ScreenshotWidth", "aspect_ratio", "")
		}
		if req.ScreenshotWidth*req.ScreenshotHeight > MaxScreenshotPixels {
			sl.ReportError(req.ScreenshotWidth, "screenshot_width", "ScreenshotWidth", "pixel_count", "")
		}
	}

	if req.FollowInternalLinks && !req.ScrapeInternalLinks {
		sl.ReportError(req.FollowInternalLinks, "follow_internal_links", "FollowInternalLinks", "requires_scrape_internal", "")
	}
	if req.FollowExternalLinks && !req.ScrapeExternalLinks {
		sl.ReportError(req.FollowExternalLinks, "follow_external_links", "FollowExternalLinks", "requires_scrape_external", "")
	}
	if (req.FollowInternalLinks || req.FollowExternalLinks) && len(req.URLs) > MaxSeedURLsWhenFollowing {
		sl.ReportError(req.URLs, "urls", "URLs", "max_when_following", fmt.Sprint(MaxSeedURLsWhenFollowing))
	}
	if req.FollowExternalLinks {
		if req.MaxDepth > MaxDepthExternal {
			sl.ReportError(req.MaxDepth, "max_depth", "MaxDepth", "max_external", fmt.Sprint(MaxDepthExternal))
		}
		if req.MaxPages > MaxPagesExternal {
			sl.ReportError(req.MaxPages, "max_pages", "MaxPages", "max_external", fmt.Sprint(MaxPagesExternal))
		}
	}
}

var ruleMessages = map[string]string{
	"aspect_ratio":             "screenshot aspect ratio must be between 0.5:1 and 4:1",
	"pixel_count":              "screenshot dimensions exceed the 4K pixel count limit",
	"requires_scrape_internal": "follow_internal_links requires scrape_internal_links",
	"requires_scrape_external": "follow_external_links requires scrape_external_links",
	"max_when_following":       "too many seed URLs when following links",
	"max_external":             "limit is lower when following external links",
	"http_url":                 "must be an absolute http or https URL",
	"oneof":                    "must be one of enabled, disabled, bypass",
}

// Validate checks every request constraint and returns ValidationErrors on failure.
func (r CrawlRequest) Validate() error {
	err := requestValidator().Struct(r)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("request validation error: %w", err)
	}

	out := make(ValidationErrors, 0, len(verrs))
	for _, fe := range verrs {
		msg, ok := ruleMessages[fe.Tag()]
		if !ok {
			msg = fmt.Sprintf("failed rule '%s'", fe.Tag())
			if fe.Param() != "" {
				msg += fmt.Sprintf(" (expected: %s)", fe.Param())
			}
		} else if fe.Param() != "" {
			msg += fmt.Sprintf(" (max %s)", fe.Param())
		}
		out = append(out, &ValidationError{Field: fe.Field(), Value: fe.Value(), Message: msg})
	}
	return out
}
