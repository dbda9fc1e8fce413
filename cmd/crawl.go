package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/steam-crawler/internal/catalog"
	"github.com/sells-group/steam-crawler/internal/config"
	"github.com/sells-group/steam-crawler/internal/crawl"
	"github.com/sells-group/steam-crawler/internal/model"
	"github.com/sells-group/steam-crawler/internal/output"
	"github.com/sells-group/steam-crawler/internal/resilience"
	"github.com/sells-group/steam-crawler/pkg/steam"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Run one crawl of the Steam catalog",
	Long:  "Fetches the catalog, keeps titles with live players, enriches them with store details and writes one timestamped spreadsheet.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		applyCrawlFlags(cmd, cfg)
		if err := cfg.ValidateCrawl(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		var opts []crawl.Option
		if st != nil {
			defer st.Close() //nolint:errcheck
			if err := st.Migrate(ctx); err != nil {
				return err
			}
			opts = append(opts, crawl.WithRecorder(st))
		}

		c, err := buildCrawler(cfg, opts...)
		if err != nil {
			return err
		}

		result, err := c.Run(ctx)
		if err != nil {
			return eris.Wrap(err, "crawl")
		}

		formatRunResult(os.Stdout, result)
		return nil
	},
}

func init() {
	crawlCmd.Flags().Int("limit", 0, "truncate the catalog to this many items (0 = no limit)")
	crawlCmd.Flags().String("format", "", "output format: xlsx or csv (default from config)")
	crawlCmd.Flags().String("output-dir", "", "directory for crawl files (default from config)")
	rootCmd.AddCommand(crawlCmd)
}

func applyCrawlFlags(cmd *cobra.Command, c *config.Config) {
	if cmd.Flags().Changed("limit") {
		c.Catalog.Limit, _ = cmd.Flags().GetInt("limit")
	}
	if v, _ := cmd.Flags().GetString("format"); v != "" {
		c.Output.Format = v
	}
	if v, _ := cmd.Flags().GetString("output-dir"); v != "" {
		c.Output.RawDir = v
	}
}

// buildCrawler wires the Steam client, both stages and the writer from config.
func buildCrawler(c *config.Config, opts ...crawl.Option) (*crawl.Crawler, error) {
	format, err := output.ParseFormat(c.Output.Format)
	if err != nil {
		return nil, err
	}
	loc, err := c.Enrich.ParseLocale()
	if err != nil {
		return nil, eris.Wrap(err, "crawl: locale")
	}

	client := steam.NewClient(c.Steam.APIKey,
		steam.WithAPIBaseURL(c.Steam.APIBaseURL),
		steam.WithStoreBaseURL(c.Steam.StoreBaseURL),
		steam.WithUserAgent(c.Steam.UserAgent),
	)

	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = c.Catalog.MaxAttempts

	source := catalog.NewSource(client, catalog.Options{
		PageSize:          c.Catalog.PageSize,
		FullPageThreshold: c.Catalog.FullPageThreshold,
		RequestsPerSecond: c.Catalog.RequestsPerSecond,
		Timeout:           config.Timeout(c.Catalog.TimeoutSecs),
		Retry:             retry,
		Limit:             c.Catalog.Limit,
	})

	signals := crawl.NewSignalStage(client, crawl.SignalOptions{
		MaxConcurrent: c.Signal.MaxConcurrent,
		Timeout:       config.Timeout(c.Signal.TimeoutSecs),
		MinSignal:     c.Signal.MinSignal,
		Progress:      crawl.LogProgress{},
	})

	enrich := crawl.NewEnrichmentStage(client, crawl.EnrichOptions{
		MaxConcurrent:    c.Enrich.MaxConcurrent,
		PacingDelay:      c.Enrich.PacingDelay(),
		RateLimitDelay:   c.Enrich.RateLimitDelay(),
		RateLimitRetries: c.Enrich.RateLimitRetries,
		Timeout:          config.Timeout(c.Enrich.TimeoutSecs),
		Locale:           steam.Locale{CountryCode: loc.CountryCode, Language: loc.Language},
		Progress:         crawl.LogProgress{},
	})

	writer := output.NewWriter(c.Output.RawDir, format)
	return crawl.New(source, signals, enrich, writer, opts...), nil
}

// runCrawl is the crawl command without signal handling or flag parsing.
func runCrawl(ctx context.Context, c *config.Config, opts ...crawl.Option) (*model.RunResult, error) {
	cr, err := buildCrawler(c, opts...)
	if err != nil {
		return nil, err
	}
	return cr.Run(ctx)
}

// formatRunResult writes a short run summary to w.
func formatRunResult(out io.Writer, r *model.RunResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Catalog:\t%d\n", r.CatalogSize)
	_, _ = fmt.Fprintf(w, "Survivors:\t%d\n", r.Survivors)
	_, _ = fmt.Fprintf(w, "Enriched:\t%d\n", r.Enriched)
	_, _ = fmt.Fprintf(w, "Sentinels:\t%d\n", r.Sentinels)
	for _, s := range r.Stages {
		for _, kind := range model.FailureKinds() {
			if n := s.Failures[kind]; n > 0 {
				_, _ = fmt.Fprintf(w, "  %s %s:\t%d\n", s.Stage, kind, n)
			}
		}
	}
	_, _ = fmt.Fprintf(w, "Observed at:\t%s\n", r.ObservedAt.Format(model.ObservedAtLayout))
	_, _ = fmt.Fprintf(w, "Output:\t%s\n", r.OutputPath)
	_ = w.Flush()
}
