package config

import "time"

const (
	// Server Defaults
	DefaultServerListenAddr      = ":8080"
	DefaultServerMaxBodyBytes    = 1 << 20
	DefaultServerReadTimeout     = 30 * time.Second
	DefaultServerShutdownTimeout = 15 * time.Second

	// Backend Defaults
	DefaultBackendBaseURL      = "http://localhost:11235"
	DefaultBackendPollInterval = time.Second
	DefaultBackendPollTimeout  = 30 * time.Second
	DefaultBackendUserAgent    = "crawlgate/1.0"

	// Cache Defaults
	DefaultCacheTTL             = time.Hour
	DefaultCacheCleanupInterval = 10 * time.Minute

	// Rate Limit Defaults
	DefaultBackendInterval = time.Second
	DefaultBackendBurst    = 1
	DefaultCallerLimit     = "10/minute"

	// HTTP Client Defaults
	DefaultHTTPClientTimeout        = 30 * time.Second
	DefaultHTTPClientMaxContentSize = 64

	// Crawl Defaults
	DefaultCrawlRequestTimeout = 5 * time.Minute

	// Log Defaults
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "console"
	DefaultLogFile       = ""
	DefaultMaxLogSizeMB  = 100
	DefaultMaxLogBackups = 3

	// Environment
	EnvConfigPath   = "CRAWLGATE_CONFIG_PATH"
	EnvBackendToken = "CRAWLGATE_BACKEND_TOKEN"
	EnvBackendURL   = "CRAWLGATE_BACKEND_URL"
)
