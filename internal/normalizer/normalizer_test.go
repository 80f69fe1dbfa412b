package normalizer

import (
	"testing"

	"github.com/aleister1102/crawlgate/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		inputURL string
		expected string
		wantErr  bool
	}{
		{name: "root slash collapses", inputURL: "https://example.com/", expected: "https://example.com"},
		{name: "empty path", inputURL: "https://example.com", expected: "https://example.com"},
		{name: "trailing slash stripped", inputURL: "https://example.com/a/", expected: "https://example.com/a"},
		{name: "only one trailing slash stripped", inputURL: "https://example.com/a//", expected: "https://example.com/a/"},
		{name: "nested path keeps inner slashes", inputURL: "https://example.com/a/b/", expected: "https://example.com/a/b"},
		{name: "scheme and host lower-cased", inputURL: "HTTPS://EXAMPLE.com/a", expected: "https://example.com/a"},
		{name: "fragment dropped", inputURL: "https://example.com/a#section", expected: "https://example.com/a"},
		{name: "path casing preserved", inputURL: "https://example.com/Docs/API", expected: "https://example.com/Docs/API"},
		{name: "query preserved", inputURL: "https://example.com/a/?x=1#top", expected: "https://example.com/a?x=1"},
		{name: "root with query", inputURL: "https://example.com/?q=Go", expected: "https://example.com?q=Go"},
		{name: "port preserved", inputURL: "http://Example.com:8080/x/", expected: "http://example.com:8080/x"},
		{name: "escaped path preserved", inputURL: "https://example.com/a%2Fb/", expected: "https://example.com/a%2Fb"},
		{name: "surrounding whitespace", inputURL: "  https://example.com/a  ", expected: "https://example.com/a"},
		{name: "empty", inputURL: "   ", wantErr: true},
		{name: "relative", inputURL: "/only/a/path", wantErr: true},
		{name: "no host", inputURL: "mailto:someone@example.com", wantErr: true},
		{name: "malformed", inputURL: "://invalid-url", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.inputURL)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, models.ErrInvalidURL)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestNormalize_Equivalences(t *testing.T) {
	groups := [][]string{
		{"https://EX.com/a/", "https://ex.com/a", "HTTPS://ex.COM/a#frag", "https://ex.com/a/#"},
		{"http://example.com", "http://example.com/", "HTTP://Example.Com/#home"},
	}

	for _, group := range groups {
		want, err := Normalize(group[0])
		require.NoError(t, err)
		for _, u := range group[1:] {
			got, err := Normalize(u)
			require.NoError(t, err)
			assert.Equal(t, want, got, "expected %q to normalize like %q", u, group[0])
		}
	}
}

func TestNormalize_DistinctQueries(t *testing.T) {
	a, err := Normalize("https://ex.com/a?x=1")
	require.NoError(t, err)
	b, err := Normalize("https://ex.com/a?x=2")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestMustNormalize_FallsBackToInput(t *testing.T) {
	assert.Equal(t, "not a url", MustNormalize(" not a url "))
	assert.Equal(t, "https://ex.com/a", MustNormalize("https://EX.com/a/"))
}

func TestOrigin(t *testing.T) {
	origin, err := Origin("HTTPS://Docs.Example.com:8443/path?q=1")
	require.NoError(t, err)
	assert.Equal(t, "https://docs.example.com:8443", origin)

	_, err = Origin("relative/path")
	assert.ErrorIs(t, err, models.ErrInvalidURL)
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		href     string
		expected string
		wantErr  bool
	}{
		{name: "relative path", base: "https://a.com/docs/", href: "intro", expected: "https://a.com/docs/intro"},
		{name: "root relative", base: "https://a.com/docs/page", href: "/b", expected: "https://a.com/b"},
		{name: "absolute", base: "https://a.com/", href: "https://other.com/x", expected: "https://other.com/x"},
		{name: "protocol relative", base: "https://a.com/", href: "//cdn.a.com/lib", expected: "https://cdn.a.com/lib"},
		{name: "mailto rejected", base: "https://a.com/", href: "mailto:me@a.com", wantErr: true},
		{name: "javascript rejected", base: "https://a.com/", href: "javascript:void(0)", wantErr: true},
		{name: "empty href", base: "https://a.com/", href: " ", wantErr: true},
		{name: "invalid base", base: "not-absolute", href: "/b", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.base, tt.href)
			if tt.wantErr {
				assert.ErrorIs(t, err, models.ErrInvalidURL)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}
