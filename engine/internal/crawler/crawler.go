// Package crawler performs a bounded, breadth-first, same-host crawl over
// a frontier of discovered links, dispatching each URL through the
// fallback chain and recording per-run statistics.
package crawler

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/gobwas/glob"

	"github.com/99souls/webfetcher/engine/internal/classifier"
	"github.com/99souls/webfetcher/engine/internal/fallback"
	"github.com/99souls/webfetcher/engine/internal/ratelimit"
	"github.com/99souls/webfetcher/engine/internal/urlcanon"
	"github.com/99souls/webfetcher/engine/models"
)

// Dispatcher is whatever runs the fallback chain for one URL; the crawler
// depends only on this narrow contract.
type Dispatcher interface {
	Run(ctx context.Context, fc models.FetchContext, order []models.Strategy) (fallback.Outcome, error)
}

// Router supplies the strategy order for a URL.
type Router interface {
	Route(rawURL string) []models.Strategy
}

// Config bounds and tunes one crawl run.
type Config struct {
	MaxDepth         int
	MaxPages         int
	CrawlDelay       time.Duration
	RespectRobots    bool
	UserAgent        string
	ExcludePatterns  []string // glob patterns tested against the resolved URL
	FetchTimeout     time.Duration
	RateLimit        models.RateLimitConfig
}

// PageResult is one successfully fetched page, stored by the caller.
type PageResult struct {
	OriginalURL string
	FinalURL    string
	HTML        string
	Depth       int
	Metrics     models.FetchMetrics
	PageType    models.PageType
}

// FailureResult is one page that could not be fetched.
type FailureResult struct {
	URL   string
	Error error
}

// Crawler drives the frontier loop described by the bounded-BFS design.
type Crawler struct {
	cfg        Config
	dispatcher Dispatcher
	router     Router
	robots     *robotsCache
	excludes   []glob.Glob
	limiter    *ratelimit.AdaptiveRateLimiter

	lastFetch time.Time
}

func New(cfg Config, dispatcher Dispatcher, router Router) (*Crawler, error) {
	globs := make([]glob.Glob, 0, len(cfg.ExcludePatterns))
	for _, p := range cfg.ExcludePatterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile exclude pattern %q: %w", p, err)
		}
		globs = append(globs, g)
	}
	return &Crawler{
		cfg:        cfg,
		dispatcher: dispatcher,
		router:     router,
		robots:     newRobotsCache(),
		excludes:   globs,
		limiter:    ratelimit.NewAdaptiveRateLimiter(cfg.RateLimit),
	}, nil
}

// Close stops the rate limiter's background eviction loop.
func (c *Crawler) Close() error { return c.limiter.Close() }

// Run crawls starting from startURL until the frontier drains or max_depth
// / max_pages stops it first. It returns every successfully fetched page,
// every failure, and the run's aggregate statistics.
func (c *Crawler) Run(ctx context.Context, startURL string) ([]PageResult, []FailureResult, models.CrawlStats) {
	stats := models.CrawlStats{StartTime: time.Now()}
	var pages []PageResult
	var failures []FailureResult

	normalizedStart, err := urlcanon.NormalizeForDedup(startURL)
	if err != nil {
		stats.Incomplete = true
		stats.IncompleteDueTo = "invalid start URL"
		stats.EndTime = time.Now()
		stats.Duration = stats.EndTime.Sub(stats.StartTime)
		return pages, failures, stats
	}

	frontier := NewFrontier()
	frontier.Seed(startURL, normalizedStart)

	for {
		select {
		case <-ctx.Done():
			stats.Incomplete = true
			stats.IncompleteDueTo = "context cancelled"
			stats.EndTime = time.Now()
			stats.Duration = stats.EndTime.Sub(stats.StartTime)
			return pages, failures, stats
		default:
		}

		if c.cfg.MaxPages > 0 && stats.ProcessedPages >= c.cfg.MaxPages {
			stats.Incomplete = true
			stats.IncompleteDueTo = "max_pages"
			break
		}

		entry, ok := frontier.Dequeue()
		if !ok {
			break
		}
		if c.cfg.MaxDepth > 0 && entry.depth > c.cfg.MaxDepth {
			continue
		}

		if c.cfg.RespectRobots {
			// A disallowed path is dropped the same way an out-of-domain or
			// excluded link is: it was never a candidate, not a failure.
			if allowed, _ := c.robots.Allowed(entry.originalURL, c.cfg.UserAgent); !allowed {
				continue
			}
		}
		c.politeWait(entry.originalURL)
		domain := hostOf(entry.originalURL)
		permit, err := c.limiter.Acquire(ctx, domain)
		if err != nil {
			failures = append(failures, FailureResult{URL: entry.originalURL, Error: fmt.Errorf("rate limiter: %w", err)})
			continue
		}

		fc := models.FetchContext{
			URL:     entry.originalURL,
			Timeout: c.cfg.FetchTimeout,
		}
		order := c.router.Route(entry.originalURL)
		fetchStart := time.Now()
		outcome, fetchErr := c.dispatcher.Run(ctx, fc, order)
		permit.Release()
		stats.ProcessedPages++

		if fetchErr != nil {
			c.limiter.Feedback(domain, ratelimit.Feedback{Err: fetchErr, Latency: time.Since(fetchStart)})
			stats.FailedPages++
			failures = append(failures, FailureResult{URL: entry.originalURL, Error: fetchErr})
			continue
		}
		c.limiter.Feedback(domain, ratelimit.Feedback{Latency: time.Since(fetchStart)})

		stats.TotalBytes += int64(len(outcome.HTML))
		pageType := classifier.Classify(outcome.HTML, hostOf(outcome.FinalURL), true, false)
		pages = append(pages, PageResult{
			OriginalURL: entry.originalURL,
			FinalURL:    outcome.FinalURL,
			HTML:        outcome.HTML,
			Depth:       entry.depth,
			Metrics:     outcome.Metrics,
			PageType:    pageType,
		})

		if entry.depth >= c.cfg.MaxDepth {
			continue
		}
		// A list/index page's outbound links are themselves just more
		// listing entries to show a human, not a documentation-style
		// pagination trail worth re-entering the crawl for.
		if pageType == models.PageTypeListIndex {
			continue
		}

		links, err := ExtractLinks(outcome.HTML, outcome.FinalURL, c.excludes)
		if err != nil {
			continue
		}
		for _, link := range links {
			normalized, err := urlcanon.NormalizeForDedup(link)
			if err != nil {
				continue
			}
			frontier.Offer(link, normalized, entry.depth+1)
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	if stats.Duration > 0 {
		stats.PagesPerSec = float64(stats.ProcessedPages) / stats.Duration.Seconds()
	}
	return pages, failures, stats
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Host
}

// politeWait enforces robots.txt crawl-delay (if any) and the configured
// minimum delay between fetches, whichever is longer.
func (c *Crawler) politeWait(rawURL string) {
	delay := c.cfg.CrawlDelay
	if c.cfg.RespectRobots {
		_, robotsDelay := c.robots.Allowed(rawURL, c.cfg.UserAgent)
		if robotsDelay > delay {
			delay = robotsDelay
		}
	}
	if delay <= 0 {
		return
	}
	elapsed := time.Since(c.lastFetch)
	if elapsed < delay {
		time.Sleep(delay - elapsed)
	}
	c.lastFetch = time.Now()
}
