package normalizer

import (
	"net/url"
	"strings"

	"github.com/aleister1102/crawlgate/internal/models"
)

// Origin returns "scheme://host" for rawURL with scheme and host lower-cased.
// It is the unit used to tell internal links from external ones.
func Origin(rawURL string) (string, error) {
	parsedURL, err := parseAbsolute(rawURL)
	if err != nil {
		return "", err
	}
	return strings.ToLower(parsedURL.Scheme) + "://" + strings.ToLower(parsedURL.Host), nil
}

// Resolve resolves a possibly relative href against the page it was found on.
// Only http and https targets are accepted.
func Resolve(base, href string) (string, error) {
	trimmedHref := strings.TrimSpace(href)
	if trimmedHref == "" {
		return "", models.NewURLValidationError(href, "href is empty")
	}

	baseURL, err := parseAbsolute(base)
	if err != nil {
		return "", err
	}

	resolved, err := baseURL.Parse(trimmedHref)
	if err != nil {
		return "", models.NewURLValidationError(href, err.Error())
	}

	if !IsHTTP(resolved) {
		return "", models.NewURLValidationError(href, "unsupported scheme '"+resolved.Scheme+"'")
	}
	if resolved.Host == "" {
		return "", models.NewURLValidationError(href, "URL lacks a hostname")
	}
	return resolved.String(), nil
}

// IsHTTP reports whether u uses the http or https scheme.
func IsHTTP(u *url.URL) bool {
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}
