package strategies

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/99souls/webfetcher/engine/internal/classify"
	"github.com/99souls/webfetcher/engine/internal/encoding"
	"github.com/99souls/webfetcher/engine/models"
)

// MaxPageSize caps decoded HTML size; larger responses are truncated with
// a warning, never rejected.
const MaxPageSize = 10 * 1024 * 1024

// HTTPPolicy configures the HTTP strategy.
type HTTPPolicy struct {
	UserAgent      string
	AcceptLanguage string
	MaxPageSize    int64
}

func DefaultHTTPPolicy() HTTPPolicy {
	return HTTPPolicy{
		UserAgent:      "Mozilla/5.0 (compatible; webfetcher/1.0)",
		AcceptLanguage: "en-US,en;q=0.9,zh-CN;q=0.8,zh;q=0.7",
		MaxPageSize:    MaxPageSize,
	}
}

// httpStats holds atomic counters for thread-safe observation.
type httpStats struct {
	requestsCompleted int64
	requestsFailed    int64
	bytesDownloaded   int64
}

// HTTPStrategy performs a single HTTP GET with lenient TLS, an explicit
// User-Agent/Accept-Language, a bounded read, and automatic redirect
// following with the final URL recorded.
type HTTPStrategy struct {
	policy HTTPPolicy
	client *http.Client
	stats  httpStats
}

func NewHTTPStrategy(policy HTTPPolicy) *HTTPStrategy {
	if policy.MaxPageSize <= 0 {
		policy.MaxPageSize = MaxPageSize
	}
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, // lenient TLS, per design
	}
	return &HTTPStrategy{
		policy: policy,
		client: &http.Client{
			Transport: transport,
			// CheckRedirect left at default: follow redirects, resp.Request.URL
			// ends up holding the final URL.
		},
	}
}

// Fetch performs one GET. It honors ctx's deadline and never emits a
// partial result silently: on an incomplete read it returns what bytes
// arrived with Truncated=true.
func (s *HTTPStrategy) Fetch(ctx context.Context, fc models.FetchContext) models.StrategyResult {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fc.URL, nil)
	if err != nil {
		atomic.AddInt64(&s.stats.requestsFailed, 1)
		return s.fail(err, 0, "", start)
	}

	ua := s.policy.UserAgent
	if fc.UserAgent != "" {
		ua = fc.UserAgent
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept-Language", s.policy.AcceptLanguage)
	for k, vs := range fc.ExtraHeaders {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		atomic.AddInt64(&s.stats.requestsFailed, 1)
		return s.fail(err, 0, "", start)
	}
	defer resp.Body.Close()

	finalURL := fc.URL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	limit := s.policy.MaxPageSize
	limited := io.LimitReader(resp.Body, limit+1)
	body, readErr := io.ReadAll(limited)
	truncated := false
	if int64(len(body)) > limit {
		body = body[:limit]
		truncated = true
	}
	atomic.AddInt64(&s.stats.bytesDownloaded, int64(len(body)))

	bodyFingerprint := ""
	if len(body) > 0 {
		n := len(body)
		if n > 4096 {
			n = 4096
		}
		bodyFingerprint = string(body[:n])
	}

	if resp.StatusCode >= 400 {
		atomic.AddInt64(&s.stats.requestsFailed, 1)
		return s.failStatus(resp.StatusCode, bodyFingerprint, finalURL, start)
	}

	if readErr != nil && readErr != io.EOF {
		// IncompleteRead-equivalent: surface what arrived, flagged truncated,
		// classified transient so the retry controller can re-attempt.
		atomic.AddInt64(&s.stats.requestsFailed, 1)
		res := s.fail(readErr, resp.StatusCode, bodyFingerprint, start)
		res.HTML, _ = encoding.Detect(body, resp.Header.Get("Content-Type"))
		res.FinalURL = finalURL
		res.Truncated = true
		return res
	}

	text, _ := encoding.Detect(body, resp.Header.Get("Content-Type"))
	atomic.AddInt64(&s.stats.requestsCompleted, 1)

	return models.StrategyResult{
		Success:   true,
		HTML:      text,
		FinalURL:  finalURL,
		Duration:  time.Since(start),
		Truncated: truncated,
	}
}

func (s *HTTPStrategy) fail(err error, statusCode int, bodyFingerprint string, start time.Time) models.StrategyResult {
	cls := classify.Classify(err, statusCode, bodyFingerprint)
	return models.StrategyResult{
		Success:           false,
		Duration:          time.Since(start),
		ErrorKind:         cls.Kind,
		ErrorMessage:      err.Error(),
		SSLFallbackUsed:   cls.Kind == models.ErrKindSSLConfig,
		SuggestedFallback: cls.SuggestedFallback,
	}
}

func (s *HTTPStrategy) failStatus(statusCode int, bodyFingerprint, finalURL string, start time.Time) models.StrategyResult {
	cls := classify.Classify(nil, statusCode, bodyFingerprint)
	return models.StrategyResult{
		Success:           false,
		FinalURL:          finalURL,
		Duration:          time.Since(start),
		ErrorKind:         cls.Kind,
		ErrorMessage:      "http status " + http.StatusText(statusCode),
		SuggestedFallback: cls.SuggestedFallback,
	}
}

func (s *HTTPStrategy) Stats() (completed, failed, bytes int64) {
	return atomic.LoadInt64(&s.stats.requestsCompleted),
		atomic.LoadInt64(&s.stats.requestsFailed),
		atomic.LoadInt64(&s.stats.bytesDownloaded)
}
