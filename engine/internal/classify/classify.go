// Package classify maps a fetch failure — an error, an HTTP status code, or
// response-body fingerprints — to one of the error kinds in the engine's
// error taxonomy, plus the retry controller's recommended action.
package classify

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/99souls/webfetcher/engine/models"
)

// Result is the outcome of classifying a single failure.
type Result struct {
	Kind             models.ErrorKind
	ShouldRetry      bool
	RecommendedWait  time.Duration
	SuggestedFallback models.Strategy // empty if none
}

// antiBotFingerprints are substrings found in anti-bot challenge pages.
var antiBotFingerprints = []string{
	"captcha",
	"cf-chl",         // Cloudflare challenge cookie/script marker
	"__cf_chl_",
	"access denied",
	"are you a human",
	"checking your browser",
	"x-waf",
}

// transientStatuses retry with backoff.
var transientStatuses = map[int]bool{
	429: true, 500: true, 502: true, 503: true, 504: true,
	520: true, 521: true, 522: true, 523: true, 524: true,
}

// permanentStatuses abort the current strategy and move to the next.
var permanentStatuses = map[int]bool{
	400: true, 401: true, 404: true, 410: true,
}

// Classify inspects err (may be nil on a non-2xx HTTP response with no Go
// error), the HTTP status code (0 if unavailable), and a lowercase-folded
// slice of the response body (empty if unavailable, and callers should
// pass at most the first few KiB — this never scans the whole body) to
// produce a classification.
func Classify(err error, statusCode int, bodyFingerprint string) Result {
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Result{Kind: models.ErrKindTimeout, ShouldRetry: true, RecommendedWait: time.Second}
		}
		if errors.Is(err, context.Canceled) {
			return Result{Kind: models.ErrKindCancelled}
		}
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			if urlErr.Timeout() {
				return Result{Kind: models.ErrKindTimeout, ShouldRetry: true, RecommendedWait: time.Second}
			}
			var tlsErr tls.RecordHeaderError
			var certErr *tls.CertificateVerificationError
			if errors.As(err, &tlsErr) || errors.As(err, &certErr) || strings.Contains(strings.ToLower(urlErr.Err.Error()), "tls") || strings.Contains(strings.ToLower(urlErr.Err.Error()), "x509") || strings.Contains(strings.ToLower(urlErr.Err.Error()), "certificate") {
				return Result{Kind: models.ErrKindSSLConfig, SuggestedFallback: models.StrategyHeadless}
			}
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return Result{Kind: models.ErrKindTimeout, ShouldRetry: true, RecommendedWait: time.Second}
		}
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) {
			return Result{Kind: models.ErrKindTransient, ShouldRetry: true, RecommendedWait: time.Second}
		}
		lower := strings.ToLower(err.Error())
		if strings.Contains(lower, "connection reset") || strings.Contains(lower, "broken pipe") || strings.Contains(lower, "eof") {
			return Result{Kind: models.ErrKindTransient, ShouldRetry: true, RecommendedWait: time.Second}
		}
		if strings.Contains(lower, "tls") || strings.Contains(lower, "x509") || strings.Contains(lower, "certificate") {
			return Result{Kind: models.ErrKindSSLConfig, SuggestedFallback: models.StrategyHeadless}
		}
		if strings.Contains(lower, "invalid url") || strings.Contains(lower, "missing protocol scheme") {
			return Result{Kind: models.ErrKindInvalidURL}
		}
		// Unrecognized error: treat conservatively as transient so a single
		// flaky condition doesn't abandon the strategy outright.
		return Result{Kind: models.ErrKindTransient, ShouldRetry: true, RecommendedWait: time.Second}
	}

	if statusCode == 403 || containsAny(bodyFingerprint, antiBotFingerprints) {
		return Result{Kind: models.ErrKindAntiBot, SuggestedFallback: models.StrategyHeadless}
	}
	if transientStatuses[statusCode] {
		return Result{Kind: models.ErrKindTransient, ShouldRetry: true, RecommendedWait: time.Second}
	}
	if permanentStatuses[statusCode] {
		return Result{Kind: models.ErrKindPermanent}
	}
	// Unknown/unclassified status with no error: treat as permanent rather
	// than retrying indefinitely against an unmodeled response.
	return Result{Kind: models.ErrKindPermanent}
}

func containsAny(haystack string, needles []string) bool {
	h := strings.ToLower(haystack)
	for _, n := range needles {
		if strings.Contains(h, n) {
			return true
		}
	}
	return false
}

// FetchError is a typed error crossing strategy/chain boundaries. It is
// never used for control flow inside a strategy; strategies return
// StrategyResult and attach the classification there.
type FetchError struct {
	Kind    models.ErrorKind
	Message string
	Cause   error
}

func (e *FetchError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *FetchError) Unwrap() error { return e.Cause }
