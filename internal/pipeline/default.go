package pipeline

import (
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/nao1215/sitemirror/internal/config"
	"github.com/nao1215/sitemirror/internal/crawler"
	"github.com/nao1215/sitemirror/internal/model"
	"github.com/nao1215/sitemirror/internal/storage"
	"github.com/nao1215/sitemirror/internal/transport"
)

// Paths are the output locations of one target.
type Paths struct {
	OutputDir       string
	ReportFile      string
	FailedPagesFile string
}

// SitePaths returns where target's mirror and reports go. With a single
// target the configured paths are used as they are. With several targets
// each site mirrors into a subdirectory named after its host and the
// report files get the host appended to their names.
func SitePaths(cfg *config.Config, target string) Paths {
	p := Paths{
		OutputDir:       cfg.OutputDir,
		ReportFile:      cfg.ReportFile,
		FailedPagesFile: cfg.FailedPagesFile,
	}
	if !cfg.MultiSite() {
		return p
	}

	slug := siteSlug(target)
	p.OutputDir = filepath.Join(cfg.OutputDir, slug)
	p.ReportFile = withSuffix(cfg.ReportFile, slug)
	p.FailedPagesFile = withSuffix(cfg.FailedPagesFile, slug)
	return p
}

// siteSlug turns "example.com:8080" into "example.com_8080".
func siteSlug(target string) string {
	return strings.ReplaceAll(config.HostOf(target), ":", "_")
}

// withSuffix turns ("crawl_report.md", "a.com") into "crawl_report_a.com.md".
func withSuffix(path, suffix string) string {
	if path == "" {
		return ""
	}
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_" + suffix + ext
}

type defaultOptions struct {
	logger     *slog.Logger
	observer   func(target string, o model.Outcome)
	saver      RunSaver
	httpClient *http.Client
}

// DefaultOption configures DefaultPipeline.
type DefaultOption func(*defaultOptions)

// WithPipelineLogger sets the logger for the pipeline and the crawl.
func WithPipelineLogger(logger *slog.Logger) DefaultOption {
	return func(o *defaultOptions) {
		o.logger = logger
	}
}

// WithProgress calls fn for every recorded outcome.
func WithProgress(fn func(target string, o model.Outcome)) DefaultOption {
	return func(o *defaultOptions) {
		o.observer = fn
	}
}

// WithRunSaver adds a persist step that saves the run with saver.
func WithRunSaver(saver RunSaver) DefaultOption {
	return func(o *defaultOptions) {
		o.saver = saver
	}
}

// WithTransportClient makes the crawl use hc instead of building its own
// http.Client. TLS and proxy settings are then up to hc.
func WithTransportClient(hc *http.Client) DefaultOption {
	return func(o *defaultOptions) {
		o.httpClient = hc
	}
}

// DefaultPipeline builds the standard pipeline for target: mirror, then
// the report and failed pages final steps for each configured path, then
// persist when WithRunSaver is given.
// Per-site settings from the config file override the global ones.
func DefaultPipeline(cfg *config.Config, target string, opts ...DefaultOption) (*Pipeline, error) {
	o := &defaultOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	logger := o.logger.With("site", config.HostOf(target))

	site := cfg.SiteFor(target)
	concurrency := cfg.Concurrency
	if site.Concurrency > 0 {
		concurrency = site.Concurrency
	}
	maxPages := cfg.MaxPages
	if site.MaxPages > 0 {
		maxPages = site.MaxPages
	}

	clientOpts := []transport.Option{
		transport.WithTimeout(cfg.Timeout),
		transport.WithVerifyTLS(cfg.VerifyTLS),
		transport.WithUserAgent(cfg.UserAgent),
		transport.WithMaxBodySize(cfg.MaxBodySize),
		transport.WithCookie(site.Cookie),
		transport.WithHeaders(site.Headers),
	}
	if cfg.ProxyAddress != "" {
		clientOpts = append(clientOpts, transport.WithProxy(cfg.ProxyAddress))
	}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, transport.WithHTTPClient(o.httpClient))
	}
	client, err := transport.NewClient(clientOpts...)
	if err != nil {
		return nil, err
	}

	paths := SitePaths(cfg, target)

	spiderOpts := []crawler.SpiderOption{
		crawler.WithConcurrency(concurrency),
		crawler.WithMaxPages(maxPages),
		crawler.WithTimeout(cfg.Timeout),
		crawler.WithIgnorePatterns(site.IgnorePatterns),
		crawler.WithFollowPatterns(site.FollowPatterns),
		crawler.WithLogger(logger),
	}
	if cfg.SitemapPath != "" {
		spiderOpts = append(spiderOpts, crawler.WithSitemapPath(cfg.SitemapPath))
	}
	if o.observer != nil {
		spiderOpts = append(spiderOpts, crawler.WithObserver(func(out model.Outcome) {
			o.observer(target, out)
		}))
	}
	spider, err := crawler.NewSpider(target, client, storage.NewMirror(paths.OutputDir), spiderOpts...)
	if err != nil {
		return nil, err
	}

	p := New(WithLogger(logger))
	p.AddStep(NewMirrorStep(spider))
	if paths.ReportFile != "" {
		p.AddFinalSteps(NewReportStep(paths.ReportFile, cfg.ReportFormat))
	}
	if paths.FailedPagesFile != "" {
		p.AddFinalSteps(NewFailedPagesStep(paths.FailedPagesFile))
	}
	if o.saver != nil {
		p.AddFinalSteps(NewPersistStep(o.saver, logger))
	}
	return p, nil
}
