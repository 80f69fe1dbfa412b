package extractor

import (
	"net/url"
	"strings"
)

const (
	maxURLLength        = 2000
	maxPathSegments     = 15
	maxSegmentLength    = 200
	maxSegmentRepeats   = 3
	minTrackedSegmentSz = 2
)

// IsCrawlerTrap flags URLs whose shape suggests an infinite link space:
// runaway lengths, deep paths, or repeating path segments such as
// /a/a/... or /a/b/a/b/a/b.
func IsCrawlerTrap(rawURL string) bool {
	if len(rawURL) > maxURLLength {
		return true
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	path := strings.Trim(u.Path, "/")
	if path == "" {
		return false
	}
	segments := strings.Split(path, "/")
	if len(segments) > maxPathSegments {
		return true
	}

	counts := make(map[string]int, len(segments))
	for i, seg := range segments {
		if len(seg) > maxSegmentLength {
			return true
		}
		if len(seg) < minTrackedSegmentSz {
			continue
		}
		counts[seg]++
		if counts[seg] > maxSegmentRepeats {
			return true
		}
		if i+1 < len(segments) && segments[i+1] == seg {
			return true
		}
	}

	for i := 0; i+5 < len(segments); i++ {
		a, b := segments[i], segments[i+1]
		if len(a) >= minTrackedSegmentSz && a == segments[i+2] && a == segments[i+4] &&
			b == segments[i+3] && b == segments[i+5] {
			return true
		}
	}

	return false
}
