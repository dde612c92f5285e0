// Package urlcanon validates, encodes, and normalizes URLs the way the
// fetch dispatcher needs: once on the way in (Canonicalize) and once more
// for crawl-dedup set membership (NormalizeForDedup).
package urlcanon

import (
	"errors"
	"net/url"
	"sort"
	"strings"

	whatwgurl "github.com/nlnwa/whatwg-url/url"
)

// ErrInvalidURL is returned (wrapped with detail) for empty input, a
// missing scheme, or a missing host on a non-file scheme.
var ErrInvalidURL = errors.New("invalid url")

var wparser = whatwgurl.NewParser()

// Canonicalize validates raw and returns its canonical string form.
//
// For http/https: path segments are percent-encoded if not already, query
// parameters are re-serialized in their original order with consistent
// encoding, and a non-ASCII fragment is percent-encoded. The host is left
// untouched so IDN hosts pass through unchanged.
//
// For file://: requires a non-empty path and returns the URL unchanged.
func Canonicalize(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", wrapInvalid("empty URL")
	}

	u, err := wparser.Parse(raw)
	if err != nil {
		return "", wrapInvalid(err.Error())
	}
	scheme := u.Protocol()
	scheme = strings.TrimSuffix(scheme, ":")

	if scheme == "file" {
		// The WHATWG parser gives every file URL at least the root path, so
		// "file://" comes back with pathname "/"; treat that as empty too.
		if p := u.Pathname(); p == "" || p == "/" {
			return "", wrapInvalid("file URL missing path")
		}
		return u.Href(false), nil
	}

	if scheme != "http" && scheme != "https" {
		// Unknown scheme: fall through to stdlib validation so odd-but-valid
		// schemes (e.g. custom app schemes) aren't rejected outright, but
		// still require a host.
	}
	if u.Hostname() == "" {
		return "", wrapInvalid("URL missing host")
	}

	// Re-parse with net/url to get at ordered query reconstruction and
	// segment-wise percent-encoding; whatwg-url already normalized the
	// host/IDN/percent-encoding edge cases above, stdlib handles the
	// positional query/path rebuild below.
	std, err := url.Parse(u.Href(false))
	if err != nil {
		return "", wrapInvalid(err.Error())
	}

	std.Path = encodePathSegments(std.Path)
	std.RawQuery = reencodeQueryPreservingOrder(std.RawQuery)
	if std.Fragment != "" {
		std.Fragment = url.PathEscape(std.Fragment)
	}
	return std.String(), nil
}

// NormalizeForDedup lowercases scheme and host, strips the fragment, sorts
// query parameters alphabetically, and removes a trailing slash unless the
// path is exactly "/". Path case is preserved. Idempotent.
func NormalizeForDedup(canonical string) (string, error) {
	u, err := url.Parse(canonical)
	if err != nil {
		return "", wrapInvalid(err.Error())
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	if u.RawQuery != "" {
		values := u.Query()
		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		for i, k := range keys {
			vs := values[k]
			sort.Strings(vs)
			for j, v := range vs {
				if i > 0 || j > 0 {
					b.WriteByte('&')
				}
				b.WriteString(url.QueryEscape(k))
				b.WriteByte('=')
				b.WriteString(url.QueryEscape(v))
			}
		}
		u.RawQuery = b.String()
	}

	if u.Path != "/" {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}
	return u.String(), nil
}

func encodePathSegments(path string) string {
	if path == "" {
		return path
	}
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		if decoded, err := url.PathUnescape(seg); err == nil {
			segments[i] = (&url.URL{Path: decoded}).EscapedPath()
		}
	}
	return strings.Join(segments, "/")
}

// reencodeQueryPreservingOrder re-serializes query parameters in their
// original left-to-right order (net/url.Values loses order; this walks the
// raw string directly instead).
func reencodeQueryPreservingOrder(raw string) string {
	if raw == "" {
		return ""
	}
	pairs := strings.Split(raw, "&")
	out := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		if pair == "" {
			continue
		}
		k, v, hasV := strings.Cut(pair, "=")
		dk, err1 := url.QueryUnescape(k)
		if err1 != nil {
			dk = k
		}
		encoded := url.QueryEscape(dk)
		if hasV {
			dv, err2 := url.QueryUnescape(v)
			if err2 != nil {
				dv = v
			}
			encoded += "=" + url.QueryEscape(dv)
		}
		out = append(out, encoded)
	}
	return strings.Join(out, "&")
}

func wrapInvalid(detail string) error {
	return &CanonError{Detail: detail}
}

// CanonError wraps ErrInvalidURL with detail for logging.
type CanonError struct{ Detail string }

func (e *CanonError) Error() string { return "invalid url: " + e.Detail }
func (e *CanonError) Unwrap() error { return ErrInvalidURL }
