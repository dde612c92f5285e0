// Package engine wires the fetch orchestration pipeline together: URL
// canonicalization, routing, retried fallback across HTTP/Headless/Manual
// strategies, page-type classification, and template-driven parsing.
package engine

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/99souls/webfetcher/engine/internal/classifier"
	"github.com/99souls/webfetcher/engine/internal/crawler"
	"github.com/99souls/webfetcher/engine/internal/fallback"
	"github.com/99souls/webfetcher/engine/internal/output"
	"github.com/99souls/webfetcher/engine/internal/resources"
	"github.com/99souls/webfetcher/engine/internal/retry"
	"github.com/99souls/webfetcher/engine/internal/routing"
	"github.com/99souls/webfetcher/engine/internal/strategies"
	"github.com/99souls/webfetcher/engine/internal/telemetry/events"
	"github.com/99souls/webfetcher/engine/internal/telemetry/metrics"
	telemetrypolicy "github.com/99souls/webfetcher/engine/internal/telemetry/policy"
	"github.com/99souls/webfetcher/engine/internal/telemetry/tracing"
	"github.com/99souls/webfetcher/engine/internal/templates"
	"github.com/99souls/webfetcher/engine/internal/urlcanon"
	"github.com/99souls/webfetcher/engine/models"
	"github.com/99souls/webfetcher/engine/telemetry/health"
)

// Option customizes collaborators the core never assumes a concrete
// implementation for (browser automation, session recovery, human
// handoff). Callers that never exercise Headless/Manual strategies can
// ignore these entirely.
type Option func(*buildOpts)

type buildOpts struct {
	driver   strategies.BrowserDriver
	recovery strategies.SessionRecovery
	prompter strategies.Prompter
}

// WithBrowserDriver installs the collaborator that talks to a concrete
// browser automation protocol for the Headless and Manual strategies.
func WithBrowserDriver(d strategies.BrowserDriver) Option {
	return func(o *buildOpts) { o.driver = d }
}

// WithSessionRecovery installs the collaborator that (re)starts the
// browser debug session when the Headless strategy's probe fails.
func WithSessionRecovery(r strategies.SessionRecovery) Option {
	return func(o *buildOpts) { o.recovery = r }
}

// WithPrompter installs the collaborator that surfaces the Manual
// strategy's human-in-the-loop handoff.
func WithPrompter(p strategies.Prompter) Option {
	return func(o *buildOpts) { o.prompter = p }
}

// unavailableDriver is used whenever the caller never wires a real one; it
// fails fast with BrowserUnavailable rather than panicking or hanging, so
// the Fallback Chain still moves on in that case.
type unavailableDriver struct{}

func (unavailableDriver) Attach(context.Context, string) (strategies.BrowserSession, error) {
	return nil, fmt.Errorf("no browser driver configured")
}
func (unavailableDriver) NewTab(context.Context, strategies.BrowserSession, string) (strategies.BrowserTab, error) {
	return nil, fmt.Errorf("no browser driver configured")
}
func (unavailableDriver) WaitFor(context.Context, strategies.BrowserTab, string, time.Duration) error {
	return fmt.Errorf("no browser driver configured")
}
func (unavailableDriver) EvaluateJavaScript(context.Context, strategies.BrowserTab, string) (any, error) {
	return nil, fmt.Errorf("no browser driver configured")
}
func (unavailableDriver) GetHTML(context.Context, strategies.BrowserTab) (string, error) {
	return "", fmt.Errorf("no browser driver configured")
}
func (unavailableDriver) GetURL(context.Context, strategies.BrowserTab) (string, error) {
	return "", fmt.Errorf("no browser driver configured")
}
func (unavailableDriver) CloseTab(context.Context, strategies.BrowserTab) error { return nil }
func (unavailableDriver) ActiveTab(context.Context, strategies.BrowserSession) (strategies.BrowserTab, error) {
	return nil, fmt.Errorf("no browser driver configured")
}

type noopRecovery struct{}

func (noopRecovery) Ensure(context.Context) (strategies.RecoveryOutcome, error) {
	return strategies.RecoveryOther, fmt.Errorf("no session recovery configured")
}

type cancelledPrompter struct{}

func (cancelledPrompter) Prompt(context.Context, string) error {
	return fmt.Errorf("no prompter configured; manual fallback cannot proceed")
}

// retryingStrategy wraps a fallback.Strategy so every invocation goes
// through the Retry Controller's bounded-backoff loop.
type retryingStrategy struct {
	inner fallback.Strategy
	ctl   *retry.Controller
}

func (r retryingStrategy) Fetch(ctx context.Context, fc models.FetchContext) models.StrategyResult {
	return r.ctl.Execute(ctx, func(ctx context.Context, attempt int) models.StrategyResult {
		return r.inner.Fetch(ctx, fc)
	})
}

// Engine is the assembled fetch/parse/crawl pipeline.
type Engine struct {
	cfg      Config
	router   *routing.Policy
	chain    *fallback.Chain
	loader   *templates.Loader
	parser   *templates.Parser
	cache    *resources.Manager
	crawlCfg crawler.Config
	health   *health.Evaluator

	fetchAttempts metrics.Counter
	fetchDuration metrics.Histogram
	events        events.Bus
	tracer        tracing.Tracer
}

// Subscribe returns a channel-backed subscription to the engine's
// operational event stream (strategy failures, health transitions).
// Callers must Close the subscription when done.
func (e *Engine) Subscribe(buffer int) (events.Subscription, error) {
	return e.events.Subscribe(buffer)
}

// New assembles an Engine from cfg and any collaborator overrides.
func New(cfg Config, opts ...Option) (*Engine, error) {
	built := buildOpts{driver: unavailableDriver{}, recovery: noopRecovery{}, prompter: cancelledPrompter{}}
	for _, opt := range opts {
		opt(&built)
	}

	router := routing.New().WithSSLProblematicDomains(cfg.SSLProblematicDomains)
	if len(cfg.RoutingRules) > 0 {
		var err error
		router, err = router.WithRules(cfg.RoutingRules)
		if err != nil {
			return nil, fmt.Errorf("install routing rules: %w", err)
		}
	}

	retryCtl := retry.New(cfg.RetryBase, cfg.RetryMaxRetries)

	httpStrategy := strategies.NewHTTPStrategy(strategies.HTTPPolicy{
		UserAgent:      cfg.UserAgent,
		AcceptLanguage: cfg.AcceptLanguage,
		MaxPageSize:    cfg.MaxPageSize,
	})
	headlessStrategy := strategies.NewHeadlessStrategy(strategies.HeadlessPolicy{
		DebugEndpoint:  cfg.HeadlessDebugEndpoint,
		ScrollToBottom: cfg.HeadlessScrollToBottom,
	}, built.driver, built.recovery)
	chainStrategies := map[models.Strategy]fallback.Strategy{
		models.StrategyHTTP:     retryingStrategy{inner: httpStrategy, ctl: retryCtl},
		models.StrategyHeadless: retryingStrategy{inner: headlessStrategy, ctl: retryCtl},
	}
	if cfg.ManualFallbackEnabled {
		// never retried: each attempt is a fresh human handoff
		chainStrategies[models.StrategyManual] = strategies.NewManualStrategy(built.driver, built.prompter, nil)
	}
	chain := fallback.New(chainStrategies)

	loader, err := templates.NewLoader(cfg.TemplateDir)
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	cache, err := resources.NewManager(resources.Config{
		CacheCapacity:      cfg.CacheCapacity,
		MaxInFlight:        cfg.MaxInFlight,
		SpillDirectory:     cfg.SpillDirectory,
		CheckpointPath:     cfg.CheckpointPath,
		CheckpointInterval: cfg.CheckpointInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("create resource cache: %w", err)
	}

	var metricsProvider metrics.Provider = metrics.NewNoopProvider()
	if cfg.MetricsEnabled {
		switch cfg.MetricsBackend {
		case "otel":
			metricsProvider = metrics.NewOTelProvider(metrics.OTelProviderOptions{})
		default:
			metricsProvider = metrics.NewPrometheusProvider(metrics.PrometheusProviderOptions{})
		}
	}
	fetchAttempts := metricsProvider.NewCounter(metrics.CounterOpts{CommonOpts: metrics.CommonOpts{
		Namespace: "webfetcher", Name: "fetch_attempts_total", Help: "fetches attempted, by primary strategy and outcome",
		Labels: []string{"strategy", "status"},
	}})
	fetchDuration := metricsProvider.NewHistogram(metrics.HistogramOpts{CommonOpts: metrics.CommonOpts{
		Namespace: "webfetcher", Name: "fetch_duration_seconds", Help: "end-to-end fetch duration, by final status",
		Labels: []string{"status"},
	}})
	eventBus := events.NewBus(metricsProvider)
	telemetryPolicy := telemetrypolicy.Default().Normalize()
	tracer := tracing.NewAdaptiveTracer(func() float64 { return telemetryPolicy.Tracing.SamplePercent })

	e := &Engine{
		cfg:           cfg,
		router:        router,
		chain:         chain,
		loader:        loader,
		parser:        templates.NewParser(),
		cache:         cache,
		fetchAttempts: fetchAttempts,
		fetchDuration: fetchDuration,
		events:        eventBus,
		tracer:        tracer,
		crawlCfg: crawler.Config{
			MaxDepth:        cfg.MaxDepth,
			MaxPages:        cfg.MaxPages,
			CrawlDelay:      cfg.CrawlDelay,
			RespectRobots:   cfg.RespectRobotsTxt,
			UserAgent:       cfg.CrawlUserAgent,
			ExcludePatterns: cfg.ExcludePatterns,
			FetchTimeout:    cfg.FetchTimeout,
			RateLimit:       cfg.RateLimit,
		},
	}
	e.health = health.NewEvaluator(telemetryPolicy.Health.ProbeTTL,
		health.ProbeFunc(e.probeResourceCache),
		health.ProbeFunc(e.probeTemplates),
	)
	return e, nil
}

// Health returns a cached rollup of the engine's subsystem health: the
// resource cache's in-flight saturation and the template loader's state.
func (e *Engine) Health(ctx context.Context) health.Snapshot {
	snap := e.health.Evaluate(ctx)
	if snap.Overall != health.StatusHealthy {
		_ = e.events.PublishCtx(ctx, events.Event{
			Category: events.CategoryHealth,
			Type:     "rollup",
			Severity: string(snap.Overall),
			Fields:   map[string]interface{}{"overall": string(snap.Overall)},
		})
	}
	return snap
}

func (e *Engine) probeResourceCache(context.Context) health.ProbeResult {
	stats := e.cache.Stats()
	if e.cfg.MaxInFlight > 0 && stats.InFlight >= e.cfg.MaxInFlight {
		return health.Degraded("resource_cache", fmt.Sprintf("in-flight slots saturated (%d/%d)", stats.InFlight, e.cfg.MaxInFlight))
	}
	return health.Healthy("resource_cache")
}

func (e *Engine) probeTemplates(context.Context) health.ProbeResult {
	if e.loader.Count() == 0 {
		return health.Unknown("templates", "no declarative templates loaded; every URL falls back to the generic template")
	}
	return health.Healthy("templates")
}

// Close releases the Engine's resource cache (spill files, checkpoint
// goroutine).
func (e *Engine) Close() error { return e.cache.Close() }

// FetchOne fetches, routes, falls back, classifies, and parses a single
// URL, returning the rendered-ready Document. The result cache is checked
// first and populated on success.
func (e *Engine) FetchOne(ctx context.Context, rawURL string) (*output.Document, error) {
	ctx, span := e.tracer.StartSpan(ctx, "engine.FetchOne")
	defer span.End()
	span.SetAttribute("url", rawURL)

	canonical, err := urlcanon.Canonicalize(rawURL)
	if err != nil {
		return nil, fmt.Errorf("canonicalize URL: %w", err)
	}
	cacheKey, err := urlcanon.NormalizeForDedup(canonical)
	if err != nil {
		cacheKey = canonical
	}

	if cached, ok, err := e.cache.GetResult(cacheKey); err == nil && ok {
		return e.toDocument(rawURL, canonical, models.FetchMetrics{FinalStatus: models.FinalStatusSuccess}, cached), nil
	}

	if err := e.cache.Acquire(ctx); err != nil {
		return nil, err
	}
	defer e.cache.Release()

	fc := models.FetchContext{
		URL:        canonical,
		UserAgent:  e.cfg.UserAgent,
		Timeout:    e.cfg.FetchTimeout,
		MaxRetries: e.cfg.RetryMaxRetries,
	}
	order := e.router.Route(canonical)

	fetchStart := time.Now()
	outcome, err := e.chain.Run(ctx, fc, order)
	if err != nil {
		var chainErr *fallback.Error
		if errors.As(err, &chainErr) && len(chainErr.Attempts) > 0 {
			last := chainErr.Attempts[len(chainErr.Attempts)-1]
			e.fetchAttempts.Inc(1, string(last.Strategy), "failed")
		}
		e.fetchDuration.Observe(time.Since(fetchStart).Seconds(), "failed")
		_ = e.events.PublishCtx(ctx, events.Event{
			Category: events.CategoryError,
			Type:     "fetch_failed",
			Severity: "error",
			Fields:   map[string]interface{}{"url": canonical, "error": err.Error()},
		})
		return nil, err
	}
	e.fetchAttempts.Inc(1, string(outcome.Metrics.PrimaryMethod), "success")
	e.fetchDuration.Observe(time.Since(fetchStart).Seconds(), "success")

	tpl := e.loader.Lookup(outcome.FinalURL)
	parsed := e.parser.Parse(tpl, outcome.HTML, outcome.FinalURL)

	pageType := classifier.Classify(outcome.HTML, hostOf(outcome.FinalURL), e.cfg.CrawlerEnabled, e.cfg.ForceFullClassification)
	parsed.Metadata["page_type"] = string(pageType)

	_ = e.cache.StoreResult(cacheKey, parsed)

	return e.toDocument(rawURL, outcome.FinalURL, outcome.Metrics, parsed), nil
}

// Crawl runs a bounded BFS crawl from startURL, parsing every fetched page
// through the same template pipeline as FetchOne.
func (e *Engine) Crawl(ctx context.Context, startURL string) ([]*output.Document, models.CrawlStats, error) {
	canonical, err := urlcanon.Canonicalize(startURL)
	if err != nil {
		return nil, models.CrawlStats{}, fmt.Errorf("canonicalize start URL: %w", err)
	}

	c, err := crawler.New(e.crawlCfg, e.chain, e.router)
	if err != nil {
		return nil, models.CrawlStats{}, fmt.Errorf("build crawler: %w", err)
	}
	defer func() { _ = c.Close() }()

	pages, _, stats := c.Run(ctx, canonical)

	docs := make([]*output.Document, 0, len(pages))
	for _, p := range pages {
		tpl := e.loader.Lookup(p.FinalURL)
		parsed := e.parser.Parse(tpl, p.HTML, p.FinalURL)
		parsed.Metadata["page_type"] = string(p.PageType)
		docs = append(docs, e.toDocument(p.OriginalURL, p.FinalURL, p.Metrics, parsed))
		e.fetchAttempts.Inc(1, string(p.Metrics.PrimaryMethod), "success")
		e.fetchDuration.Observe(p.Metrics.FetchDuration.Seconds(), "success")
	}
	return docs, stats, nil
}

func (e *Engine) toDocument(inputURL, finalURL string, metrics models.FetchMetrics, parsed models.ParseResult) *output.Document {
	return &output.Document{
		URLMeta: models.URLMetadata{
			InputURL:  inputURL,
			FinalURL:  finalURL,
			FetchDate: time.Now(),
			FetchMode: metrics.PrimaryMethod,
		},
		Metrics: metrics,
		Parsed:  parsed,
	}
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
