package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/nao1215/sitemirror/internal/config"
	"github.com/nao1215/sitemirror/internal/database"
	"github.com/nao1215/sitemirror/internal/model"
	"github.com/nao1215/sitemirror/internal/pipeline"
	"github.com/spf13/cobra"
)

// errSitesFailed is returned when at least one site could not be mirrored
// or its report could not be written. Failed URLs alone do not count.
var errSitesFailed = errors.New("some sites did not complete")

// NewMirrorCmd creates the mirror command.
func NewMirrorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mirror <base-url>...",
		Short: "Mirror one or more websites to disk",
		Long: `Mirror downloads every page and asset reachable from a base URL.

The crawl starts from the URLs listed in the sitemap (or the base URL when
there is no usable sitemap) and follows links, stylesheets, scripts, images
and other references that stay on the base URL's host. Each resource is
stored under the output directory at a path derived from its URL.

After the crawl a report lists what was saved and what failed, and the
failed pages are written to a JSON file so they can be retried.

Examples:
  # Mirror a site into ./downloaded_site
  sitemirror mirror https://example.com/

  # Use 8 workers and stop after 1000 pages
  sitemirror mirror -c 8 --max-pages 1000 https://example.com/

  # Mirror two sites, each into its own subdirectory
  sitemirror mirror https://a.example/ https://b.example/

  # JSON report, no history record
  sitemirror mirror --format json --report report.json --no-db https://example.com/

Configuration file (.sitemirror) example:
  sites:
    staging.example.com:
      cookie: "session=abc123"
      ignorePatterns:
        - "/logout*"`,
		Args: cobra.ArbitraryArgs,
		RunE: runMirrorCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultOutputDir, "Directory the site is mirrored into")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout, "Timeout for each request")
	cmd.Flags().IntP("concurrency", "c", config.DefaultConcurrency, "Number of concurrent fetches per site")
	cmd.Flags().Bool("verify-tls", false, "Verify TLS certificates")
	cmd.Flags().Int("max-pages", 0, "Stop after this many pages per site (0 = unlimited)")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize, "Maximum bytes read from one response")
	cmd.Flags().String("user-agent", config.DefaultUserAgent, "User-Agent header")
	cmd.Flags().String("sitemap", config.DefaultSitemapPath, "Sitemap path relative to the base URL")
	cmd.Flags().String("proxy", "", "SOCKS5 proxy address (host:port)")

	cmd.Flags().String("report", config.DefaultReportFile, "Crawl report file (empty to disable)")
	cmd.Flags().StringP("format", "f", config.FormatMarkdown, "Report format: markdown, json or text")
	cmd.Flags().String("failed-pages", config.DefaultFailedPagesFile, "JSON file listing failed pages (empty to disable)")

	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize, "Number of sites mirrored concurrently")
	cmd.Flags().String("config", "", "Configuration file path (default: .sitemirror in current or home directory)")
	cmd.Flags().Bool("no-db", false, "Do not record the run in the history database")
	cmd.Flags().String("db-dir", config.XDGDataDir(), "Directory of the history database")
	cmd.Flags().BoolP("quiet", "q", false, "Only print the final summary")

	return cmd
}

func runMirrorCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := newLogger(cmd, cfg.Quiet)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, finishing reports...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runMirror(ctx, cmd.OutOrStdout(), cfg, logger)
}

// buildConfig creates a Config from the command flags and the config file.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.OutputDir, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
		return nil, err
	}
	if cfg.VerifyTLS, err = flags.GetBool("verify-tls"); err != nil {
		return nil, err
	}
	if cfg.MaxPages, err = flags.GetInt("max-pages"); err != nil {
		return nil, err
	}
	if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.SitemapPath, err = flags.GetString("sitemap"); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("report"); err != nil {
		return nil, err
	}
	if cfg.ReportFormat, err = flags.GetString("format"); err != nil {
		return nil, err
	}
	if cfg.FailedPagesFile, err = flags.GetString("failed-pages"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	noDB, err := flags.GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}
	if cfg.Quiet, err = flags.GetBool("quiet"); err != nil {
		return nil, err
	}
	cfg.Verbose = getBoolFlag(cmd, "verbose")
	cfg.LogJSON = getBoolFlag(cmd, "log-json")

	// An explicit --config must exist; otherwise a missing file is fine.
	if configPath := config.FindConfigFile(cfg.ConfigFilePath); configPath != "" {
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if cfg.ConfigFilePath != "" {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	cfg.Targets = args
	return cfg, nil
}

// runMirror mirrors every target and prints a summary per site.
func runMirror(ctx context.Context, out io.Writer, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting mirror",
		"targets", cfg.Targets,
		"concurrency", cfg.Concurrency,
		"batch", cfg.BatchSize,
		"save_to_db", cfg.SaveToDB,
	)

	printer := &progressPrinter{out: out, multi: cfg.MultiSite()}
	opts := []pipeline.DefaultOption{pipeline.WithPipelineLogger(logger)}
	if !cfg.Quiet {
		opts = append(opts, pipeline.WithProgress(printer.outcome))
	}

	if cfg.SaveToDB {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Debug("database opened", "path", db.Path())
		opts = append(opts, pipeline.WithRunSaver(db))
	}

	bp := pipeline.NewBatchProcessor(
		func(target string) (*pipeline.Pipeline, error) {
			return pipeline.DefaultPipeline(cfg, target, opts...)
		},
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	start := time.Now()
	var failed atomic.Int32
	err := bp.ProcessBatchWithCallback(ctx, cfg.Targets, func(job *pipeline.Job, _ int) {
		printer.summary(job, pipeline.SitePaths(cfg, job.Target))
		if job.Err != nil && !errors.Is(job.Err, context.Canceled) {
			failed.Add(1)
		}
	})
	if cfg.MultiSite() {
		fmt.Fprintf(out, "\nMirrored %d sites in %s\n", len(cfg.Targets), time.Since(start).Round(time.Millisecond))
	}

	if err != nil {
		return fmt.Errorf("mirror interrupted: %w", err)
	}
	if n := failed.Load(); n > 0 {
		return fmt.Errorf("%w: %d of %d", errSitesFailed, n, len(cfg.Targets))
	}
	return nil
}

// progressPrinter serializes output from concurrent crawls.
type progressPrinter struct {
	mu    sync.Mutex
	out   io.Writer
	multi bool
}

func (p *progressPrinter) outcome(target string, o model.Outcome) {
	p.mu.Lock()
	defer p.mu.Unlock()

	prefix := ""
	if p.multi {
		prefix = "[" + config.HostOf(target) + "] "
	}
	if o.Succeeded() {
		fmt.Fprintf(p.out, "%s[+] %-5s %s\n", prefix, o.Kind, o.URL)
		return
	}
	fmt.Fprintf(p.out, "%s[!] %-5s %s: %s\n", prefix, o.Kind, o.URL, o.Error)
}

func (p *progressPrinter) summary(job *pipeline.Job, paths pipeline.Paths) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := job.Summary()
	c := s.Counts
	fmt.Fprintf(p.out, "\n%s\n", s.BaseURL)
	if s.SitemapWarning != "" {
		fmt.Fprintf(p.out, "  sitemap: %s\n", s.SitemapWarning)
	}
	fmt.Fprintf(p.out, "  pages:  %d saved, %d failed\n", c.SuccessPages, c.FailedPages)
	fmt.Fprintf(p.out, "  assets: %d saved, %d failed\n", c.SuccessAssets, c.FailedAssets)
	if !s.StartedAt.IsZero() {
		fmt.Fprintf(p.out, "  time:   %s\n", s.Elapsed().Round(time.Millisecond))
	}
	if job.Report != nil {
		fmt.Fprintf(p.out, "  output: %s\n", paths.OutputDir)
		if paths.ReportFile != "" {
			fmt.Fprintf(p.out, "  report: %s\n", paths.ReportFile)
		}
		if paths.FailedPagesFile != "" {
			fmt.Fprintf(p.out, "  failed pages: %s\n", paths.FailedPagesFile)
		}
	}
	if job.RunID != 0 {
		fmt.Fprintf(p.out, "  run id: %d\n", job.RunID)
	}
	if s.Interrupted {
		fmt.Fprintln(p.out, "  interrupted: results are partial")
	}
	if job.Err != nil && !errors.Is(job.Err, context.Canceled) {
		fmt.Fprintf(p.out, "  error: %v\n", job.Err)
	}
}
