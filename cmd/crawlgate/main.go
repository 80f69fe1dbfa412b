// Package main provides the crawlgate CLI.
//
// crawlgate fronts a Crawl4AI instance with a caching, rate-limited,
// recursive crawl API.
//
// Usage:
//
//	crawlgate serve [-c config.yaml]
//	crawlgate crawl https://example.com --follow-internal --max-depth 2
package main

func main() {
	Execute()
}
