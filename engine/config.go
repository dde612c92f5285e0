package engine

import (
	"time"

	"github.com/99souls/webfetcher/engine/internal/routing"
	"github.com/99souls/webfetcher/engine/models"
)

// Config is the public configuration surface for the Engine facade.
type Config struct {
	// HTTP strategy
	UserAgent      string
	AcceptLanguage string
	MaxPageSize    int64

	// Retry controller
	RetryBase       time.Duration
	RetryMaxRetries int
	FetchTimeout    time.Duration

	// Routing policy
	SSLProblematicDomains []string
	RoutingRules          []routing.Rule

	// Headless strategy
	HeadlessDebugEndpoint  string
	HeadlessScrollToBottom bool
	RecoveryCommand        []string
	RecoveryTimeout        time.Duration

	// Manual strategy
	ManualFallbackEnabled bool

	// Templates
	TemplateDir string

	// Crawler
	MaxDepth         int
	MaxPages         int
	CrawlDelay       time.Duration
	RespectRobotsTxt bool
	CrawlUserAgent   string
	SameHostOnly     bool
	ExcludePatterns  []string
	RateLimit        models.RateLimitConfig

	// Resource cache (resources.Manager)
	CacheCapacity      int
	MaxInFlight        int
	SpillDirectory     string
	CheckpointPath     string
	CheckpointInterval time.Duration

	// Page-type classification
	ForceFullClassification bool
	CrawlerEnabled          bool

	// Telemetry
	MetricsEnabled       bool
	PrometheusListenAddr string
	// MetricsBackend selects the metrics.Provider implementation when
	// MetricsEnabled is true: "prom" (default) or "otel".
	MetricsBackend string
}

// Defaults returns a Config with reasonable defaults, mirroring the
// constants named throughout the component design.
func Defaults() Config {
	return Config{
		UserAgent:              "Mozilla/5.0 (compatible; webfetcher/1.0)",
		AcceptLanguage:         "en-US,en;q=0.9,zh-CN;q=0.8,zh;q=0.7",
		MaxPageSize:            10 * 1024 * 1024,
		RetryBase:              1 * time.Second,
		RetryMaxRetries:        3,
		FetchTimeout:           30 * time.Second,
		HeadlessScrollToBottom: false,
		RecoveryTimeout:        30 * time.Second,
		ManualFallbackEnabled:  false,
		TemplateDir:            "templates",
		MaxDepth:               2,
		MaxPages:               50,
		CrawlDelay:             1 * time.Second,
		RespectRobotsTxt:       true,
		CrawlUserAgent:         "webfetcher-crawler/1.0",
		SameHostOnly:           true,
		CrawlerEnabled:         false,
		RateLimit: models.RateLimitConfig{
			Enabled:                  true,
			InitialRPS:               2,
			MinRPS:                   0.2,
			MaxRPS:                   8,
			TokenBucketCapacity:      4,
			AIMDIncrease:             0.5,
			AIMDDecrease:             0.5,
			LatencyTarget:            2 * time.Second,
			LatencyDegradeFactor:     0.5,
			ErrorRateThreshold:       0.5,
			MinSamplesToTrip:         5,
			ConsecutiveFailThreshold: 3,
			OpenStateDuration:        30 * time.Second,
			HalfOpenProbes:           1,
			RetryBaseDelay:           time.Second,
			RetryMaxDelay:            30 * time.Second,
			RetryMaxAttempts:         3,
			StatsWindow:              time.Minute,
			StatsBucket:              5 * time.Second,
			DomainStateTTL:           2 * time.Minute,
			Shards:                   16,
		},
		CacheCapacity:          256,
		MaxInFlight:            8,
		CheckpointInterval:     10 * time.Second,
		MetricsEnabled:         false,
		PrometheusListenAddr:   "",
		MetricsBackend:         "prom",
	}
}
