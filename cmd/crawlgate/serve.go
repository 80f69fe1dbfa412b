package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aleister1102/crawlgate/internal/api"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the crawl HTTP API",
		Long: `Serve the crawl API until interrupted.

Routes:
  POST   /crawl                  run a crawl
  GET    /crawl/health           backend and cache health
  GET    /crawl/stats            cache statistics
  DELETE /crawl/cache            clear every cached result
  POST   /crawl/cache/invalidate drop cached results for one URL
  POST   /crawl/cache/cleanup    evict expired entries
  GET    /metrics                Prometheus metrics`,
		Example: `  crawlgate serve
  crawlgate serve -c /etc/crawlgate/config.yaml
  CRAWLGATE_BACKEND_URL=http://crawl4ai:11235 crawlgate serve`,
		RunE: runServe,
	}
	cmd.Flags().String("listen", "", "Override server_config.listen_addr")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		a.cfg.ServerConfig.ListenAddr = listen
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.serve(ctx)
}

// serve runs the API server alongside the cache janitor and resource sampler
// until ctx is cancelled or one of them fails.
func (a *app) serve(ctx context.Context) error {
	sc := a.cfg.ServerConfig
	server := api.NewServer(a.orchestrator, api.Options{
		CallerLimiter: a.callerLimiter,
		Resources:     a.resources,
		Metrics:       a.metrics,
		MaxBodyBytes:  sc.MaxBodyBytes,
	}, a.logger)

	a.logger.Info().
		Str("backend", a.backend.BaseURL()).
		Dur("cache_ttl", a.cfg.CacheConfig.TTL.Std()).
		Str("caller_limit", a.cfg.RateLimitConfig.CallerLimit).
		Msg("Starting crawlgate")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.ListenAndServe(gctx, sc.ListenAddr, sc.ReadTimeout.Std(), sc.WriteTimeout.Std(), sc.ShutdownTimeout.Std())
	})
	g.Go(func() error { return a.cache.Run(gctx) })
	g.Go(func() error { return a.resources.Run(gctx) })

	err := g.Wait()
	a.logger.Info().Msg("crawlgate stopped")
	return err
}
