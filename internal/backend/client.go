// Package backend talks to a Crawl4AI-compatible rendering service: it
// submits one page as a task, polls the task until it settles and turns the
// payload into a CrawlResult.
package backend

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/aleister1102/crawlgate/internal/extractor"
	"github.com/aleister1102/crawlgate/internal/httpclient"
	"github.com/aleister1102/crawlgate/internal/models"
	"github.com/rs/zerolog"
)

// Config describes how to reach the backend.
type Config struct {
	BaseURL      string
	APIToken     string
	PollInterval time.Duration
	PollTimeout  time.Duration
	UserAgent    string
}

// DefaultConfig polls once per second for at most thirty seconds.
func DefaultConfig() Config {
	return Config{
		BaseURL:      "http://localhost:11235",
		PollInterval: time.Second,
		PollTimeout:  30 * time.Second,
		UserAgent:    "crawlgate/1.0",
	}
}

// Operations named in BackendError.
const (
	opSubmit = "submit"
	opPoll   = "poll"
)

// Permitter hands out backend request permits.
type Permitter interface {
	Acquire(ctx context.Context) error
}

// HealthStatus is the backend's answer to a health probe.
type HealthStatus struct {
	Healthy  bool
	Response map[string]any
	Error    string
}

// Client is safe for concurrent use.
type Client struct {
	cfg     Config
	http    *httpclient.HTTPClient
	limiter Permitter
	links   *extractor.LinkExtractor
	logger  zerolog.Logger
	now     func() time.Time
}

// New creates a Client. limiter may be nil to disable backend rate limiting.
func New(cfg Config, http *httpclient.HTTPClient, limiter Permitter, logger zerolog.Logger) *Client {
	defaults := DefaultConfig()
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaults.PollInterval
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = defaults.PollTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaults.UserAgent
	}
	return &Client{
		cfg:     cfg,
		http:    http,
		limiter: limiter,
		links:   extractor.NewLinkExtractor(logger),
		logger:  logger.With().Str("component", "CrawlTaskClient").Logger(),
		now:     time.Now,
	}
}

// BaseURL returns the backend instance the client talks to.
func (c *Client) BaseURL() string {
	return c.cfg.BaseURL
}

// Fetch renders rawURL through the backend. Per-page problems (rejected
// submission, failed task, poll timeout, malformed payload) come back as a
// failed CrawlResult with a nil error. A non-nil error means the run cannot
// continue: the backend is unreachable or ctx is done.
func (c *Client) Fetch(ctx context.Context, rawURL string, opts models.CrawlOptions, depth int) (models.CrawlResult, error) {
	start := c.now()

	if c.limiter != nil {
		if err := c.limiter.Acquire(ctx); err != nil {
			return models.CrawlResult{}, err
		}
	}

	result, err := c.runTask(ctx, rawURL, opts)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrBackendUnreachable),
			errors.Is(err, context.Canceled),
			errors.Is(err, context.DeadlineExceeded):
			return models.CrawlResult{}, err
		case errors.Is(err, models.ErrBackendTimeout):
			c.logger.Warn().Str("url", rawURL).Dur("poll_timeout", c.cfg.PollTimeout).Msg("Crawl task did not finish in time")
			result = models.NewFailedResult(rawURL, depth, models.ErrorMessageTimeout, 0)
		case errors.Is(err, models.ErrParse):
			c.logger.Warn().Err(err).Str("url", rawURL).Msg("Malformed crawl backend payload")
			result = models.NewFailedResult(rawURL, depth, models.ErrorMessageParse, 0)
		default:
			c.logger.Warn().Err(err).Str("url", rawURL).Msg("Crawl task failed")
			result = models.NewFailedResult(rawURL, depth, err.Error(), 0)
		}
	}

	result.URL = rawURL
	result.Depth = depth
	result.CrawlTimeSeconds = c.now().Sub(start).Seconds()
	return result, nil
}

func (c *Client) runTask(ctx context.Context, rawURL string, opts models.CrawlOptions) (models.CrawlResult, error) {
	taskID, err := c.submit(ctx, rawURL, opts)
	if err != nil {
		return models.CrawlResult{}, err
	}

	task, err := c.waitForTask(ctx, rawURL, taskID)
	if err != nil {
		return models.CrawlResult{}, err
	}

	page, err := task.page()
	if err != nil {
		return models.CrawlResult{}, err
	}
	return c.toResult(rawURL, page, opts)
}

// submit posts the render task and returns its id.
func (c *Client) submit(ctx context.Context, rawURL string, opts models.CrawlOptions) (string, error) {
	resp, err := c.http.DoJSON(ctx, http.MethodPost, c.cfg.BaseURL+"/crawl", c.headers(), buildRenderPayload(rawURL, opts))
	if err != nil {
		return "", c.transportError(ctx, opSubmit, rawURL, err)
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("crawl backend rejected task: HTTP %d", resp.StatusCode)
	}

	var submitted struct {
		TaskID string `json:"task_id"`
	}
	if err := resp.DecodeJSON(&submitted); err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrParse, err)
	}
	if submitted.TaskID == "" {
		return "", fmt.Errorf("crawl backend returned no task_id")
	}

	c.logger.Debug().Str("url", rawURL).Str("task_id", submitted.TaskID).Msg("Crawl task submitted")
	return submitted.TaskID, nil
}

// waitForTask polls the task every PollInterval until it settles or
// PollTimeout elapses.
func (c *Client) waitForTask(ctx context.Context, rawURL, taskID string) (*taskReply, error) {
	pollCtx, cancel := context.WithTimeout(ctx, c.cfg.PollTimeout)
	defer cancel()

	timer := time.NewTimer(c.cfg.PollInterval)
	defer timer.Stop()

	for attempt := 1; ; attempt++ {
		select {
		case <-pollCtx.Done():
			return nil, c.pollDone(ctx, taskID)
		case <-timer.C:
		}

		reply, err := c.poll(pollCtx, rawURL, taskID)
		if err != nil {
			if pollCtx.Err() != nil {
				return nil, c.pollDone(ctx, taskID)
			}
			return nil, err
		}

		switch reply.Status {
		case statusCompleted:
			c.logger.Debug().Str("task_id", taskID).Int("polls", attempt).Msg("Crawl task completed")
			return reply, nil
		case statusFailed:
			msg := reply.Error
			if msg == "" {
				msg = "unknown error"
			}
			return nil, fmt.Errorf("crawl task failed: %s", msg)
		case statusPending, statusRunning, statusProcessing, statusQueued:
			timer.Reset(c.cfg.PollInterval)
		default:
			return nil, fmt.Errorf("%w: unknown task status %q", models.ErrParse, reply.Status)
		}
	}
}

func (c *Client) poll(ctx context.Context, rawURL, taskID string) (*taskReply, error) {
	resp, err := c.http.DoJSON(ctx, http.MethodGet, c.cfg.BaseURL+"/task/"+taskID, c.headers(), nil)
	if err != nil {
		return nil, c.transportError(ctx, opPoll, rawURL, err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("crawl task lookup failed: HTTP %d", resp.StatusCode)
	}

	var reply taskReply
	if err := resp.DecodeJSON(&reply); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrParse, err)
	}
	return &reply, nil
}

// pollDone distinguishes the caller going away from the poll budget running out.
func (c *Client) pollDone(ctx context.Context, taskID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fmt.Errorf("%w: task %s", models.ErrBackendTimeout, taskID)
}

// transportError classifies a request that produced no HTTP response. A
// client timeout on a status poll only costs this page; anything else that
// leaves the backend silent means it is unreachable.
func (c *Client) transportError(ctx context.Context, op, rawURL string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if isTimeout(err) {
		if op == opPoll {
			c.logger.Warn().Err(err).Str("url", rawURL).Msg("Crawl task lookup timed out")
			return fmt.Errorf("%w: task lookup: %v", models.ErrBackendTimeout, err)
		}
		c.logger.Error().Err(err).Str("op", op).Str("url", rawURL).Msg("Crawl backend unreachable")
		return models.NewBackendError(op, rawURL, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if httpclient.IsNetworkError(err) {
		c.logger.Error().Err(err).Str("op", op).Str("url", rawURL).Msg("Crawl backend unreachable")
		return models.NewBackendError(op, rawURL, err)
	}
	return fmt.Errorf("crawl backend %s: %w", op, err)
}

// Health probes GET /health. It never returns an error; failures are
// reported in the status.
func (c *Client) Health(ctx context.Context) HealthStatus {
	resp, err := c.http.DoJSON(ctx, http.MethodGet, c.cfg.BaseURL+"/health", c.headers(), nil)
	if err != nil {
		return HealthStatus{Error: err.Error()}
	}
	if !resp.IsSuccess() {
		return HealthStatus{Error: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	}

	var body map[string]any
	if err := resp.DecodeJSON(&body); err != nil {
		return HealthStatus{Error: err.Error()}
	}
	return HealthStatus{Healthy: true, Response: body}
}

func (c *Client) headers() map[string]string {
	headers := map[string]string{"User-Agent": c.cfg.UserAgent}
	if c.cfg.APIToken != "" {
		headers["Authorization"] = "Bearer " + c.cfg.APIToken
	}
	return headers
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
