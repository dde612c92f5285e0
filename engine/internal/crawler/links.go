package crawler

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// hrefRe matches both quoted (href="...", href='...') and unquoted href
// attributes.
var hrefRe = regexp.MustCompile(`(?i)href\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s>]+))`)

// skippedSchemes are link targets that are never crawl candidates.
var skippedSchemes = []string{"javascript:", "mailto:", "tel:"}

// nonContentExtensions are binary/media extensions excluded from crawling.
var nonContentExtensions = []string{
	".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".ico", ".bmp",
	".mp4", ".mp3", ".wav", ".avi", ".mov", ".webm",
	".pdf", ".zip", ".gz", ".tar", ".rar", ".7z",
	".css", ".js", ".woff", ".woff2", ".ttf", ".eot",
}

// nonContentPathPatterns are API/build-artifact path fragments excluded
// from crawling.
var nonContentPathPatterns = []string{"/api/", ".json", "/node_modules/", "/_next/", "/__webpack", "/static/build/"}

const maxLinksPerPage = 50

// ExtractLinks returns up to maxLinksPerPage same-host, content-page links
// found in html, resolved against finalURL and sorted for determinism.
// excludeGlobs further filters out any URL matching an operator-supplied
// exclude pattern (e.g. a documentation-path filter).
func ExtractLinks(html, finalURL string, excludeGlobs []glob.Glob) ([]string, error) {
	base, err := url.Parse(finalURL)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var out []string

	matches := hrefRe.FindAllStringSubmatch(html, -1)
	for _, m := range matches {
		raw := firstNonEmpty(m[1], m[2], m[3])
		raw = strings.TrimSpace(raw)
		if raw == "" || raw == "#" {
			continue
		}
		if hasAnyPrefix(strings.ToLower(raw), skippedSchemes) {
			continue
		}

		resolved, err := base.Parse(raw)
		if err != nil {
			continue
		}
		resolved.Fragment = ""
		normalized := correctTrailingSlash(resolved)

		if resolved.Host != base.Host {
			continue
		}
		if isExcludedExtension(resolved.Path) || isExcludedPath(resolved.Path) {
			continue
		}
		if matchesAny(normalized, excludeGlobs) {
			continue
		}
		if seen[normalized] {
			continue
		}
		seen[normalized] = true
		out = append(out, resolved.String())
	}

	sort.Strings(out)
	if len(out) > maxLinksPerPage {
		out = out[:maxLinksPerPage]
	}
	return out, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func isExcludedExtension(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range nonContentExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func isExcludedPath(path string) bool {
	lower := strings.ToLower(path)
	for _, p := range nonContentPathPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func matchesAny(u string, globs []glob.Glob) bool {
	for _, g := range globs {
		if g.Match(u) {
			return true
		}
	}
	return false
}

// correctTrailingSlash appends a trailing slash to directory-style paths
// (no file extension in the last segment) so "/a/b" and "/a/b/" dedup.
func correctTrailingSlash(u *url.URL) string {
	path := u.Path
	if path == "" {
		path = "/"
	}
	segments := strings.Split(path, "/")
	last := segments[len(segments)-1]
	if last != "" && !strings.Contains(last, ".") && !strings.HasSuffix(path, "/") {
		path += "/"
	}
	c := *u
	c.Path = path
	return c.String()
}
