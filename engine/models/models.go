package models

import (
	"errors"
	"time"
)

// RateLimitConfig configures the adaptive per-domain rate limiter used by
// the crawler's politeness layer. That limiter reads Enabled, Shards and
// DomainStateTTL; the rate, AIMD, latency, breaker and retry fields are not
// read by it.
type RateLimitConfig struct {
	Enabled             bool    `json:"enabled"`
	InitialRPS          float64 `json:"initial_rps"`
	MinRPS              float64 `json:"min_rps"`
	MaxRPS              float64 `json:"max_rps"`
	TokenBucketCapacity float64 `json:"token_bucket_capacity"`

	AIMDIncrease         float64       `json:"aimd_increase"`
	AIMDDecrease         float64       `json:"aimd_decrease"`
	LatencyTarget        time.Duration `json:"latency_target"`
	LatencyDegradeFactor float64       `json:"latency_degrade_factor"`

	ErrorRateThreshold       float64       `json:"error_rate_threshold"`
	MinSamplesToTrip         int           `json:"min_samples_to_trip"`
	ConsecutiveFailThreshold int           `json:"consecutive_fail_threshold"`
	OpenStateDuration        time.Duration `json:"open_state_duration"`
	HalfOpenProbes           int           `json:"half_open_probes"`

	RetryBaseDelay   time.Duration `json:"retry_base_delay"`
	RetryMaxDelay    time.Duration `json:"retry_max_delay"`
	RetryMaxAttempts int           `json:"retry_max_attempts"`

	StatsWindow    time.Duration `json:"stats_window"`
	StatsBucket    time.Duration `json:"stats_bucket"`
	DomainStateTTL time.Duration `json:"domain_state_ttl"`
	Shards         int           `json:"shards"`
}

// CrawlStats accumulates whole-run crawl counters, including total bytes
// downloaded across all fetched pages.
type CrawlStats struct {
	TotalPages     int           `json:"total_pages"`
	ProcessedPages int           `json:"processed_pages"`
	FailedPages    int           `json:"failed_pages"`
	TotalBytes     int64         `json:"total_bytes"`
	StartTime      time.Time     `json:"start_time"`
	EndTime        time.Time     `json:"end_time,omitempty"`
	Duration       time.Duration `json:"duration,omitempty"`
	PagesPerSec    float64       `json:"pages_per_sec,omitempty"`
	Incomplete     bool          `json:"incomplete"`
	IncompleteDueTo string       `json:"incomplete_due_to,omitempty"`
}

// Domain-specific crawl errors.
var (
	ErrMissingStartURL  = errors.New("start URL is required")
	ErrInvalidMaxDepth  = errors.New("max depth must be greater than 0")
	ErrURLNotAllowed    = errors.New("URL is not allowed by the crawl scope")
	ErrMaxDepthExceeded = errors.New("maximum crawl depth exceeded")
	ErrMaxPagesExceeded = errors.New("maximum pages limit reached")
)

// CrawlError wraps an error with the URL and stage it occurred in.
type CrawlError struct {
	URL   string
	Stage string
	Err   error
}

func (e *CrawlError) Error() string { return e.Err.Error() }
func (e *CrawlError) Unwrap() error { return e.Err }

func NewCrawlError(url, stage string, err error) *CrawlError {
	return &CrawlError{URL: url, Stage: stage, Err: err}
}
