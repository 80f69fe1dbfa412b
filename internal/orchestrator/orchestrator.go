package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aleister1102/crawlgate/internal/cache"
	"github.com/aleister1102/crawlgate/internal/extractor"
	"github.com/aleister1102/crawlgate/internal/metrics"
	"github.com/aleister1102/crawlgate/internal/models"
	"github.com/aleister1102/crawlgate/internal/normalizer"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Fetcher renders a single page. backend.Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, opts models.CrawlOptions, depth int) (models.CrawlResult, error)
}

// Config holds run-level limits.
type Config struct {
	// RequestTimeout bounds a whole run; zero disables the bound.
	RequestTimeout time.Duration
	// RateLimiterActive is reported by Stats and Health.
	RateLimiterActive bool
}

// Orchestrator runs breadth-first crawls over a shared cache and fetcher.
type Orchestrator struct {
	cache   *cache.ResultCache
	fetcher Fetcher
	metrics *metrics.Metrics
	cfg     Config
	logger  zerolog.Logger

	// inflight shares identical fetches between concurrent runs.
	inflight singleflight.Group
}

// New creates an Orchestrator. m may be nil.
func New(c *cache.ResultCache, fetcher Fetcher, m *metrics.Metrics, cfg Config, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		cache:   c,
		fetcher: fetcher,
		metrics: m,
		cfg:     cfg,
		logger:  logger.With().Str("component", "Orchestrator").Logger(),
	}
}

// Crawl fetches seeds and, when opts asks for it, the links they lead to.
// Results are returned in the order pages were taken off the frontier.
//
// Only two conditions fail the whole run: an unreachable backend
// (models.ErrBackendUnreachable) and the run deadline (models.ErrRunTimeout).
// Partial results are discarded in both cases.
func (o *Orchestrator) Crawl(ctx context.Context, seeds []string, opts models.CrawlOptions) (models.CrawlResponse, error) {
	start := time.Now()
	log := o.runLogger(ctx)

	runCtx := ctx
	if o.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, o.cfg.RequestTimeout)
		defer cancel()
	}

	log.Info().
		Int("seeds", len(seeds)).
		Bool("recursive", opts.Recursive()).
		Int("max_depth", opts.MaxDepth).
		Int("max_pages", opts.MaxPages).
		Str("cache_mode", string(opts.CacheMode)).
		Msg("Starting crawl run")

	results, cachedCount, err := o.traverse(runCtx, log, seeds, opts)
	elapsed := time.Since(start)

	if err != nil {
		err = o.classifyRunError(ctx, runCtx, err)
		outcome := metrics.OutcomeError
		switch {
		case errors.Is(err, models.ErrBackendUnreachable):
			outcome = metrics.OutcomeUnreachable
		case errors.Is(err, models.ErrRunTimeout):
			outcome = metrics.OutcomeTimeout
		}
		o.metrics.ObserveRun(outcome, elapsed)
		log.Error().Err(err).Int("pages_done", len(results)).Dur("elapsed", elapsed).Msg("Crawl run aborted")
		return models.CrawlResponse{}, err
	}

	resp := models.NewCrawlResponse(results, cachedCount, elapsed)
	o.metrics.ObserveRun(metrics.OutcomeOK, elapsed)
	log.Info().
		Int("total", resp.TotalURLs).
		Int("successful", resp.SuccessfulCrawls).
		Int("failed", resp.FailedCrawls).
		Int("cached", resp.CachedResults).
		Dur("elapsed", elapsed).
		Msg("Crawl run finished")
	return resp, nil
}

func (o *Orchestrator) traverse(ctx context.Context, log zerolog.Logger, seeds []string, opts models.CrawlOptions) ([]models.CrawlResult, int, error) {
	var queue frontier
	visited := make(map[string]struct{})
	enqueued := make(map[string]struct{})

	for _, seed := range seeds {
		normalized, err := normalizer.Normalize(seed)
		if err != nil {
			log.Warn().Err(err).Str("url", seed).Msg("Skipping invalid seed URL")
			continue
		}
		origin, _ := normalizer.Origin(seed)
		queue.push(frontierEntry{rawURL: seed, normalizedURL: normalized, depth: 0, originDomain: origin})
		enqueued[normalized] = struct{}{}
	}

	budget := opts.MaxPages
	if !opts.Recursive() {
		budget = len(seeds)
	}

	results := make([]models.CrawlResult, 0, min(budget, queue.len()))
	cachedCount := 0

	for queue.len() > 0 && len(results) < budget {
		if err := ctx.Err(); err != nil {
			return results, cachedCount, err
		}

		entry, _ := queue.pop()
		if _, seen := visited[entry.normalizedURL]; seen {
			continue
		}
		visited[entry.normalizedURL] = struct{}{}

		result, cached, err := o.resolve(ctx, log, entry, opts)
		if err != nil {
			return results, cachedCount, err
		}
		results = append(results, result)
		if cached {
			cachedCount++
		}

		if opts.Recursive() && entry.depth < opts.MaxDepth {
			o.enqueueLinks(&queue, visited, enqueued, entry, result, opts)
		}
	}

	if remaining := queue.len(); remaining > 0 {
		log.Debug().Int("remaining", remaining).Int("budget", budget).Msg("Page budget reached")
	}
	return results, cachedCount, nil
}

// resolve produces the result for one entry, from the cache when allowed and
// from the fetcher otherwise.
func (o *Orchestrator) resolve(ctx context.Context, log zerolog.Logger, entry frontierEntry, opts models.CrawlOptions) (models.CrawlResult, bool, error) {
	key := cache.KeyFor(entry.normalizedURL, opts)

	if opts.ReadsCache() {
		if hit, ok := o.cache.Get(key); ok {
			return o.cacheHit(log, entry, hit), true, nil
		}
	}

	fetchStart := time.Now()
	out, shared, err := o.fetchShared(ctx, key, entry, opts)
	if err != nil {
		return models.CrawlResult{}, false, err
	}
	if out.cached {
		return o.cacheHit(log, entry, out.result), true, nil
	}

	result := out.result
	o.metrics.ObserveFetch(time.Since(fetchStart), shared)
	o.metrics.ObservePage(metrics.SourceBackend, result.Success)

	if opts.WritesCache() && !out.stored {
		o.cache.Put(entry.normalizedURL, key, result, o.cache.TTLFor(result))
	}

	ev := log.Debug()
	if !result.Success {
		ev = log.Warn().Str("error", result.ErrorMessage)
	}
	ev.Str("url", entry.rawURL).Int("depth", entry.depth).Bool("shared", shared).Msg("Page fetched")

	return result, false, nil
}

func (o *Orchestrator) cacheHit(log zerolog.Logger, entry frontierEntry, hit models.CrawlResult) models.CrawlResult {
	hit.URL = entry.rawURL
	hit.Depth = entry.depth
	hit.Cached = true
	o.metrics.ObservePage(metrics.SourceCache, hit.Success)
	log.Debug().Str("url", entry.rawURL).Int("depth", entry.depth).Msg("Cache hit")
	return hit
}

// fetchOutcome is what one shared fetch hands to every waiter. stored means
// the leader already wrote the result to the cache; cached means the leader
// found it there.
type fetchOutcome struct {
	result models.CrawlResult
	stored bool
	cached bool
}

// fetchShared calls the fetcher once per cache key across concurrent runs.
// The leader re-checks the cache and stores the result before the key is
// released, so a run arriving just after the flight ends hits the cache
// instead of fetching again. Each caller still honours its own context.
func (o *Orchestrator) fetchShared(ctx context.Context, key string, entry frontierEntry, opts models.CrawlOptions) (fetchOutcome, bool, error) {
	ch := o.inflight.DoChan(key, func() (any, error) {
		if opts.ReadsCache() {
			if hit, ok := o.cache.Get(key); ok {
				return fetchOutcome{result: hit, cached: true}, nil
			}
		}
		result, err := o.fetcher.Fetch(ctx, entry.rawURL, opts, entry.depth)
		if err != nil {
			return nil, err
		}
		out := fetchOutcome{result: result}
		if opts.WritesCache() {
			o.cache.Put(entry.normalizedURL, key, result, o.cache.TTLFor(result))
			out.stored = true
		}
		return out, nil
	})

	select {
	case <-ctx.Done():
		return fetchOutcome{}, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			// The leader's context ended, not ours: fetch on our own.
			if res.Shared && isContextError(res.Err) && ctx.Err() == nil {
				result, err := o.fetcher.Fetch(ctx, entry.rawURL, opts, entry.depth)
				return fetchOutcome{result: result}, false, err
			}
			return fetchOutcome{}, res.Shared, res.Err
		}

		out := res.Val.(fetchOutcome)
		if out.cached && !opts.ReadsCache() {
			// Joined a flight that answered from the cache; bypass wants a fresh page.
			result, err := o.fetcher.Fetch(ctx, entry.rawURL, opts, entry.depth)
			return fetchOutcome{result: result}, false, err
		}
		if res.Shared {
			out.result = out.result.Clone()
		}
		out.result.URL = entry.rawURL
		out.result.Depth = entry.depth
		return out, res.Shared, nil
	}
}

// enqueueLinks classifies every discovered link against the entry's origin
// and queues the classes the options follow.
func (o *Orchestrator) enqueueLinks(queue *frontier, visited, enqueued map[string]struct{}, entry frontierEntry, result models.CrawlResult, opts models.CrawlOptions) {
	for _, link := range result.DiscoveredLinks() {
		absolute, err := normalizer.Resolve(entry.rawURL, link)
		if err != nil {
			continue
		}
		normalized, err := normalizer.Normalize(absolute)
		if err != nil {
			continue
		}
		if _, seen := visited[normalized]; seen {
			continue
		}
		if _, queued := enqueued[normalized]; queued {
			continue
		}
		if extractor.IsCrawlerTrap(absolute) {
			continue
		}

		origin, err := normalizer.Origin(absolute)
		if err != nil {
			continue
		}
		internal := origin == entry.originDomain
		if (internal && !opts.FollowInternalLinks) || (!internal && !opts.FollowExternalLinks) {
			continue
		}

		childOrigin := entry.originDomain
		if !internal {
			childOrigin = origin
		}
		queue.push(frontierEntry{
			rawURL:        absolute,
			normalizedURL: normalized,
			depth:         entry.depth + 1,
			originDomain:  childOrigin,
		})
		enqueued[normalized] = struct{}{}
	}
}

// classifyRunError maps the run deadline to ErrRunTimeout. A caller that
// went away keeps its own context error. Waits that give up early because
// the deadline cannot be met (a backend permit due after it) count as the
// deadline even though runCtx is not done yet.
func (o *Orchestrator) classifyRunError(parent, runCtx context.Context, err error) error {
	if errors.Is(err, models.ErrBackendUnreachable) {
		return err
	}
	if parent.Err() == nil && (errors.Is(runCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded)) {
		if o.cfg.RequestTimeout <= 0 {
			return fmt.Errorf("%w: %w", models.ErrRunTimeout, err)
		}
		return fmt.Errorf("%w after %s", models.ErrRunTimeout, o.cfg.RequestTimeout)
	}
	if errors.Is(parent.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", models.ErrRunTimeout, parent.Err())
	}
	return err
}

func (o *Orchestrator) runLogger(ctx context.Context) zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l.With().Str("component", "Orchestrator").Logger()
	}
	return o.logger
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
