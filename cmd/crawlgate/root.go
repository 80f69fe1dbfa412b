package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawlgate",
		Short: "Recursive crawl gateway for Crawl4AI",
		Long: `crawlgate submits pages to a Crawl4AI backend, follows discovered links
breadth-first within depth and page budgets, and caches results by URL and
extraction options.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringP("config", "c", "", "Path to a YAML or JSON config file (default: $CRAWLGATE_CONFIG_PATH, then ./config.yaml)")
	cmd.PersistentFlags().String("log-level", "", "Override log_config.log_level")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
