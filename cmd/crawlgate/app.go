package main

import (
	"fmt"
	"os"

	"github.com/aleister1102/crawlgate/internal/backend"
	"github.com/aleister1102/crawlgate/internal/cache"
	"github.com/aleister1102/crawlgate/internal/config"
	"github.com/aleister1102/crawlgate/internal/httpclient"
	"github.com/aleister1102/crawlgate/internal/logger"
	"github.com/aleister1102/crawlgate/internal/metrics"
	"github.com/aleister1102/crawlgate/internal/orchestrator"
	"github.com/aleister1102/crawlgate/internal/ratelimit"
	"github.com/aleister1102/crawlgate/internal/rslimiter"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// app holds the wired components shared by serve and crawl.
type app struct {
	cfg           *config.GlobalConfig
	logger        zerolog.Logger
	metrics       *metrics.Metrics
	cache         *cache.ResultCache
	backend       *backend.Client
	orchestrator  *orchestrator.Orchestrator
	callerLimiter *ratelimit.CallerLimiter
	resources     *rslimiter.ResourceLimiter
}

// loadApp reads configuration for cmd, builds the logger and wires the app.
func loadApp(cmd *cobra.Command) (*app, error) {
	configPath, _ := cmd.Flags().GetString("config")
	levelOverride, _ := cmd.Flags().GetString("log-level")

	bootstrap := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	cfg, err := config.LoadGlobalConfig(configPath, bootstrap)
	if err != nil {
		return nil, fmt.Errorf("could not load config: %w", err)
	}
	if levelOverride != "" {
		cfg.LogConfig.LogLevel = levelOverride
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.LogConfig)
	if err != nil {
		return nil, fmt.Errorf("could not initialize logger: %w", err)
	}
	return newApp(cfg, log)
}

func newApp(cfg *config.GlobalConfig, log zerolog.Logger) (*app, error) {
	m := metrics.New()

	resultCache := cache.New(cache.Config{
		TTL:             cfg.CacheConfig.TTL.Std(),
		FailureTTL:      cfg.CacheConfig.FailureTTL.Std(),
		CleanupInterval: cfg.CacheConfig.CleanupInterval.Std(),
	}, log)
	m.RegisterCacheSize(func() float64 { return float64(resultCache.Len()) })

	httpClient, err := buildHTTPClient(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("could not build backend http client: %w", err)
	}

	backendLimiter := ratelimit.NewBackendLimiter(cfg.RateLimitConfig.BackendInterval.Std(), cfg.RateLimitConfig.BackendBurst)
	client := backend.New(backend.Config{
		BaseURL:      cfg.BackendConfig.BaseURL,
		APIToken:     cfg.BackendConfig.APIToken,
		PollInterval: cfg.BackendConfig.PollInterval.Std(),
		PollTimeout:  cfg.BackendConfig.PollTimeout.Std(),
		UserAgent:    cfg.BackendConfig.UserAgent,
	}, httpClient, backendLimiter, log)

	var callerLimiter *ratelimit.CallerLimiter
	if spec := cfg.RateLimitConfig.CallerLimit; spec != "" {
		callerLimiter, err = ratelimit.NewCallerLimiterFromSpec(spec)
		if err != nil {
			return nil, err
		}
	}

	rc := cfg.ResourceLimiterConfig
	resources := rslimiter.New(rslimiter.Config{
		Enabled:            rc.Enabled,
		CheckInterval:      rc.CheckInterval.Std(),
		MaxMemoryMB:        rc.MaxMemoryMB,
		MaxGoroutines:      rc.MaxGoroutines,
		SystemMemThreshold: rc.SystemMemThreshold,
		CPUThreshold:       rc.CPUThreshold,
	}, log)

	orch := orchestrator.New(resultCache, client, m, orchestrator.Config{
		RequestTimeout:    cfg.CrawlConfig.RequestTimeout.Std(),
		RateLimiterActive: cfg.RateLimitConfig.BackendInterval > 0,
	}, log)

	return &app{
		cfg:           cfg,
		logger:        log,
		metrics:       m,
		cache:         resultCache,
		backend:       client,
		orchestrator:  orch,
		callerLimiter: callerLimiter,
		resources:     resources,
	}, nil
}

func buildHTTPClient(cfg *config.GlobalConfig, log zerolog.Logger) (*httpclient.HTTPClient, error) {
	hc := cfg.HTTPClientConfig
	base := httpclient.DefaultHTTPClientConfig()
	base.Proxy = hc.Proxy

	builder := httpclient.NewHTTPClientBuilder(log).
		WithConfig(base).
		WithTimeout(hc.Timeout.Std()).
		WithInsecureSkipVerify(hc.InsecureSkipVerify).
		WithHTTP2(hc.EnableHTTP2).
		WithUserAgent(cfg.BackendConfig.UserAgent).
		WithMaxContentSize(hc.MaxContentSizeMB * 1024 * 1024)
	for k, v := range hc.CustomHeaders {
		builder = builder.WithHeader(k, v)
	}

	// Only status codes are retried: a backend that never answered is
	// reported as unreachable at once, and a resent POST /crawl could
	// start the same task twice.
	rc := cfg.RetryConfig
	builder = builder.WithRetry(httpclient.RetryHandlerConfig{
		MaxRetries:         rc.MaxRetries,
		BaseDelay:          rc.BaseDelay.Std(),
		MaxDelay:           rc.MaxDelay.Std(),
		EnableJitter:       rc.EnableJitter,
		RetryStatusCodes:   rc.RetryStatusCodes,
		RetryNetworkErrors: false,
	})
	return builder.Build()
}
