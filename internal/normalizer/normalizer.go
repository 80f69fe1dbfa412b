// Package normalizer canonicalizes URLs so that two spellings of the same
// page compare equal during deduplication and cache lookups.
package normalizer

import (
	"net/url"
	"strings"

	"github.com/aleister1102/crawlgate/internal/models"
)

// Normalize returns the canonical identity of rawURL:
//   - scheme and host are lower-cased,
//   - the fragment is dropped,
//   - an empty or "/" path collapses to "",
//   - a single trailing "/" is stripped from any other path,
//   - query string, path casing and port are left untouched.
func Normalize(rawURL string) (string, error) {
	parsedURL, err := parseAbsolute(rawURL)
	if err != nil {
		return "", err
	}

	parsedURL.Scheme = strings.ToLower(parsedURL.Scheme)
	parsedURL.Host = strings.ToLower(parsedURL.Host)
	parsedURL.Fragment = ""
	parsedURL.RawFragment = ""

	escaped := strings.TrimSuffix(parsedURL.EscapedPath(), "/")
	if escaped == "" || escaped == "/" {
		parsedURL.Path = ""
		parsedURL.RawPath = ""
	} else {
		unescaped, err := url.PathUnescape(escaped)
		if err != nil {
			return "", models.NewURLValidationError(rawURL, "path cannot be unescaped")
		}
		parsedURL.Path = unescaped
		parsedURL.RawPath = escaped
	}

	return parsedURL.String(), nil
}

// MustNormalize is Normalize for inputs already known to be valid; on error it
// falls back to the trimmed input.
func MustNormalize(rawURL string) string {
	normalized, err := Normalize(rawURL)
	if err != nil {
		return strings.TrimSpace(rawURL)
	}
	return normalized
}

func parseAbsolute(rawURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return nil, models.NewURLValidationError(rawURL, "URL is empty or only whitespace")
	}

	parsedURL, err := url.Parse(trimmed)
	if err != nil {
		return nil, models.NewURLValidationError(rawURL, err.Error())
	}
	if !parsedURL.IsAbs() {
		return nil, models.NewURLValidationError(rawURL, "URL is not absolute")
	}
	if parsedURL.Host == "" {
		return nil, models.NewURLValidationError(rawURL, "URL lacks a hostname")
	}
	return parsedURL, nil
}
