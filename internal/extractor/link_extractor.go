package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/aleister1102/crawlgate/internal/normalizer"
	"github.com/rs/zerolog"
)

// Links holds absolute links found on a page, split by origin.
type Links struct {
	Internal []string
	External []string
}

// LinkExtractor pulls navigable links out of rendered HTML.
type LinkExtractor struct {
	logger zerolog.Logger
}

// NewLinkExtractor creates a LinkExtractor.
func NewLinkExtractor(logger zerolog.Logger) *LinkExtractor {
	return &LinkExtractor{
		logger: logger.With().Str("component", "LinkExtractor").Logger(),
	}
}

// ExtractLinks resolves every anchor and area href in html against pageURL
// and classifies it as internal when it shares pageURL's origin. Each list
// keeps first-seen order without duplicates.
func (le *LinkExtractor) ExtractLinks(pageURL, html string) Links {
	var links Links
	if strings.TrimSpace(html) == "" {
		return links
	}

	pageOrigin, err := normalizer.Origin(pageURL)
	if err != nil {
		le.logger.Debug().Err(err).Str("page_url", pageURL).Msg("Cannot extract links without a valid page URL")
		return links
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		le.logger.Warn().Err(err).Str("page_url", pageURL).Msg("Failed to parse HTML for link extraction")
		return links
	}

	base := pageURL
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if resolved, err := normalizer.Resolve(pageURL, href); err == nil {
			base = resolved
		}
	}

	seen := make(map[string]struct{})
	doc.Find("a[href], area[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}

		absolute, err := normalizer.Resolve(base, href)
		if err != nil {
			return
		}
		if IsCrawlerTrap(absolute) {
			le.logger.Debug().Str("url", absolute).Msg("Skipping link that looks like a crawler trap")
			return
		}

		key := normalizer.MustNormalize(absolute)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}

		origin, err := normalizer.Origin(absolute)
		if err != nil {
			return
		}
		if origin == pageOrigin {
			links.Internal = append(links.Internal, absolute)
		} else {
			links.External = append(links.External, absolute)
		}
	})

	return links
}
