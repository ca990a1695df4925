package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nao1215/sitemirror/internal/model"
	"github.com/nao1215/sitemirror/internal/transport"
	"github.com/nao1215/sitemirror/internal/urlkey"
	"golang.org/x/sync/errgroup"
)

// Spider mirrors one site. It holds the immutable configuration of a crawl;
// each Run creates a fresh Session, so a Spider can be reused.
type Spider struct {
	norm        *urlkey.Normalizer
	executor    *Executor
	sitemap     *SitemapReader
	sitemapPath string
	concurrency int
	maxPages    int
	timeout     time.Duration
	ignore      []string
	follow      []string
	logger      *slog.Logger
	observer    func(model.Outcome)
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithConcurrency sets the number of workers. 1 crawls strictly sequentially.
func WithConcurrency(n int) SpiderOption {
	return func(s *Spider) {
		s.concurrency = n
	}
}

// WithMaxPages stops fetching pages after n have been claimed. 0 means no limit.
// Assets are not counted.
func WithMaxPages(n int) SpiderOption {
	return func(s *Spider) {
		s.maxPages = n
	}
}

// WithTimeout bounds every sitemap, page and asset request.
func WithTimeout(d time.Duration) SpiderOption {
	return func(s *Spider) {
		s.timeout = d
	}
}

// WithSitemapPath overrides the sitemap location, resolved against the base URL.
func WithSitemapPath(p string) SpiderOption {
	return func(s *Spider) {
		s.sitemapPath = p
	}
}

// WithIgnorePatterns drops discovered links whose path matches any pattern.
func WithIgnorePatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.ignore = patterns
	}
}

// WithFollowPatterns keeps only discovered links whose path matches a pattern.
func WithFollowPatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.follow = patterns
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		s.logger = logger
	}
}

// WithObserver registers fn to receive every outcome as it is recorded.
// fn is called from worker goroutines and must be safe for concurrent use.
func WithObserver(fn func(model.Outcome)) SpiderOption {
	return func(s *Spider) {
		s.observer = fn
	}
}

// NewSpider creates a Spider for baseURL that fetches with fetcher and saves into store.
func NewSpider(baseURL string, fetcher Fetcher, store Storage, opts ...SpiderOption) (*Spider, error) {
	norm, err := urlkey.NewNormalizer(baseURL)
	if err != nil {
		return nil, err
	}

	s := &Spider{
		norm:        norm,
		sitemapPath: DefaultSitemapPath,
		concurrency: 1,
		timeout:     transport.DefaultTimeout,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.concurrency < 1 {
		s.concurrency = 1
	}

	scope, err := NewScope(s.ignore, s.follow)
	if err != nil {
		return nil, err
	}

	s.executor = NewExecutor(fetcher, store, NewExtractor(norm, scope), s.timeout, s.logger)
	s.sitemap = NewSitemapReader(fetcher, norm, s.timeout, s.logger)
	return s, nil
}

// Base returns the canonical base URL of the crawl.
func (s *Spider) Base() urlkey.Key {
	return s.norm.Base()
}

// Run crawls the site into report and finishes it. It returns ctx.Err()
// when the crawl was cancelled; per-URL failures are only recorded.
func (s *Spider) Run(ctx context.Context, report *model.Report) error {
	return s.NewSession(report).Run(ctx)
}

// NewSession creates the state for one crawl run recording into report.
func (s *Spider) NewSession(report *model.Report) *Session {
	ledger := NewLedger()
	return &Session{
		spider:   s,
		ledger:   ledger,
		frontier: NewFrontier(s.norm, ledger),
		report:   report,
		state:    StateInit,
	}
}

// Session is the mutable state of one crawl: the ledger, the frontier and
// the report being filled. It moves through INIT, SEEDING, CRAWLING,
// DRAINING and DONE exactly once.
type Session struct {
	spider   *Spider
	ledger   *Ledger
	frontier *Frontier
	report   *model.Report

	mu    sync.Mutex
	state State

	pagesClaimed atomic.Int64
	drainOnce    sync.Once
}

// State returns the current lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Ledger returns the visited sets of this session.
func (s *Session) Ledger() *Ledger {
	return s.ledger
}

// Frontier returns the work queue of this session.
func (s *Session) Frontier() *Frontier {
	return s.frontier
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.spider.logger.Debug("crawl state changed", "base", s.spider.norm.Base().String(), "state", state.String())
}

// Run executes the session. It can only be called once.
func (s *Session) Run(ctx context.Context) error {
	if s.State() != StateInit {
		return fmt.Errorf("session already ran (state %s)", s.State())
	}

	s.setState(StateSeeding)
	s.seed(ctx)

	s.setState(StateCrawling)
	var g errgroup.Group
	g.SetLimit(s.spider.concurrency)
	for range s.spider.concurrency {
		g.Go(func() error {
			s.work(ctx)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // workers never return errors

	s.setState(StateDone)
	s.report.Finish(ctx.Err() != nil)
	return ctx.Err()
}

// seed fills the frontier from the sitemap, falling back to the base URL.
func (s *Session) seed(ctx context.Context) {
	base := s.spider.norm.Base().String()
	logger := s.spider.logger

	sitemapKey, err := s.spider.norm.Normalize(s.spider.sitemapPath, base)
	sitemapURL := sitemapKey.String()

	var added int
	if err == nil {
		var locs []string
		locs, err = s.spider.sitemap.Read(ctx, sitemapURL)
		if err == nil {
			added = s.frontier.Seed(locs)
			if added == 0 {
				err = ErrNoInternalSeeds
			}
		}
	}

	if err != nil {
		logger.Warn("sitemap unavailable, seeding with base URL",
			"sitemap", sitemapURL,
			"base", base,
			"error", err)
		added = s.frontier.Seed([]string{base})
	}

	s.report.SetSitemap(sitemapURL, err)
	s.report.SetSeedCount(added)
	logger.Info("frontier seeded", "base", base, "seeds", added)
}

// work claims and processes tasks until the frontier is exhausted or ctx ends.
func (s *Session) work(ctx context.Context) {
	for {
		task, ok := s.frontier.Next(ctx)
		if !ok {
			s.drainOnce.Do(func() { s.setState(StateDraining) })
			return
		}
		s.process(ctx, task)
		s.frontier.Done()
	}
}

func (s *Session) process(ctx context.Context, task Task) {
	logger := s.spider.logger

	if task.Kind == model.KindPage {
		if !s.ledger.MarkPageVisited(task.Key) {
			logger.Debug("page already claimed", "url", task.Key.String())
			return
		}
		if limit := int64(s.spider.maxPages); limit > 0 {
			if n := s.pagesClaimed.Add(1); n > limit {
				s.report.AddSkipped()
				if n == limit+1 {
					logger.Info("page limit reached, skipping remaining pages", "limit", limit)
				}
				logger.Debug("skipped page over limit", "url", task.Key.String())
				return
			}
		}
	}

	outcome, found := s.spider.executor.FetchAndPersist(ctx, task)
	s.report.Record(outcome)
	if s.spider.observer != nil {
		s.spider.observer(outcome)
	}

	if outcome.Succeeded() {
		logger.Debug("saved",
			"url", outcome.URL,
			"kind", outcome.Kind.String(),
			"status", outcome.StatusCode,
			"path", outcome.Path)
	} else {
		level := slog.LevelInfo
		if errors.Is(ctx.Err(), context.Canceled) {
			level = slog.LevelDebug
		}
		logger.Log(ctx, level, "fetch failed",
			"url", outcome.URL,
			"kind", outcome.Kind.String(),
			"error", outcome.Error)
	}

	s.frontier.EnqueuePages(found.Pages)
	s.frontier.EnqueueAssets(found.Assets)
}
