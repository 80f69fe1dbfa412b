package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aleister1102/crawlgate/internal/models"
	"github.com/spf13/cobra"
)

// NewCrawlCmd creates the one-shot crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <url> [url...]",
		Short: "Crawl URLs once and print the result as JSON",
		Long: `Run a single crawl against the configured Crawl4AI backend without starting
the HTTP API. The request is validated with the same rules as POST /crawl and
the response is written to stdout.`,
		Example: `  crawlgate crawl https://example.com
  crawlgate crawl https://example.com --scrape-internal --follow-internal --max-depth 2
  crawlgate crawl https://a.example https://b.example --markdown-only --cache-mode bypass`,
		Args: cobra.MinimumNArgs(1),
		RunE: runCrawl,
	}

	defaults := models.NewCrawlRequest()
	cmd.Flags().Bool("markdown-only", false, "Return markdown only")
	cmd.Flags().Bool("scrape-internal", false, "Report same-origin links")
	cmd.Flags().Bool("scrape-external", false, "Report cross-origin links")
	cmd.Flags().Bool("follow-internal", false, "Follow same-origin links (requires --scrape-internal)")
	cmd.Flags().Bool("follow-external", false, "Follow cross-origin links (requires --scrape-external)")
	cmd.Flags().Int("max-depth", defaults.MaxDepth, "Maximum link depth")
	cmd.Flags().Int("max-pages", defaults.MaxPages, "Maximum pages per crawl")
	cmd.Flags().Bool("screenshots", false, "Capture page screenshots")
	cmd.Flags().Int("screenshot-width", defaults.ScreenshotWidth, "Screenshot viewport width")
	cmd.Flags().Int("screenshot-height", defaults.ScreenshotHeight, "Screenshot viewport height")
	cmd.Flags().Int("screenshot-wait", defaults.ScreenshotWaitFor, "Seconds to wait before the screenshot")
	cmd.Flags().String("cache-mode", string(defaults.CacheMode), "Cache mode: enabled, disabled or bypass")
	cmd.Flags().Bool("pretty", false, "Indent JSON output")

	return cmd
}

func runCrawl(cmd *cobra.Command, args []string) error {
	req, err := crawlRequestFromFlags(cmd, args)
	if err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		var verrs models.ValidationErrors
		if errors.As(err, &verrs) {
			for _, ve := range verrs {
				fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %s\n", ve.Field, ve.Message)
			}
		}
		return fmt.Errorf("invalid crawl request: %w", err)
	}

	a, err := loadApp(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resp, err := a.orchestrator.Crawl(ctx, req.URLs, req.Options())
	if err != nil {
		return err
	}

	pretty, _ := cmd.Flags().GetBool("pretty")
	enc := json.NewEncoder(cmd.OutOrStdout())
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(resp)
}

func crawlRequestFromFlags(cmd *cobra.Command, args []string) (models.CrawlRequest, error) {
	req := models.NewCrawlRequest(args...)
	flags := cmd.Flags()

	var errs []error
	boolFlag := func(name string, dst *bool) {
		v, err := flags.GetBool(name)
		errs = append(errs, err)
		*dst = v
	}
	intFlag := func(name string, dst *int) {
		v, err := flags.GetInt(name)
		errs = append(errs, err)
		*dst = v
	}

	boolFlag("markdown-only", &req.MarkdownOnly)
	boolFlag("scrape-internal", &req.ScrapeInternalLinks)
	boolFlag("scrape-external", &req.ScrapeExternalLinks)
	boolFlag("follow-internal", &req.FollowInternalLinks)
	boolFlag("follow-external", &req.FollowExternalLinks)
	boolFlag("screenshots", &req.CaptureScreenshots)
	intFlag("max-depth", &req.MaxDepth)
	intFlag("max-pages", &req.MaxPages)
	intFlag("screenshot-width", &req.ScreenshotWidth)
	intFlag("screenshot-height", &req.ScreenshotHeight)
	intFlag("screenshot-wait", &req.ScreenshotWaitFor)

	mode, err := flags.GetString("cache-mode")
	errs = append(errs, err)
	req.CacheMode = models.CacheMode(mode)

	return req, errors.Join(errs...)
}
