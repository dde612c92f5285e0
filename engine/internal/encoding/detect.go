// Package encoding turns a raw response body into a decoded string,
// following the priority order: declared Content-Type charset, then an
// in-document <meta> declaration, then a CJK-aware fallback chain.
package encoding

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// sniffWindow is how much of the body is scanned for a <meta> declaration.
const sniffWindow = 8 * 1024

// fallbackChain is tried in order when no charset is declared anywhere.
var fallbackChain = []string{"gb2312", "gbk", "gb18030", "utf-8", "iso-8859-1", "windows-1252"}

var cjkLabels = map[string]bool{"gb2312": true, "gbk": true, "gb18030": true}

var (
	metaCharsetRe  = regexp.MustCompile(`(?i)<meta[^>]+charset=["']?([a-zA-Z0-9_\-]+)`)
	metaEquivRe1   = regexp.MustCompile(`(?i)<meta[^>]+http-equiv=["']?content-type["']?[^>]+content=["'][^"']*charset=([a-zA-Z0-9_\-]+)`)
	metaEquivRe2   = regexp.MustCompile(`(?i)<meta[^>]+content=["'][^"']*charset=([a-zA-Z0-9_\-]+)[^>]+http-equiv=["']?content-type`)
	contentTypeCsRe = regexp.MustCompile(`(?i)charset=["']?([a-zA-Z0-9_\-]+)`)
)

// Detect decodes raw body bytes to a string, returning the charset label
// that was ultimately used.
func Detect(body []byte, contentTypeHeader string) (text string, label string) {
	if hasUTF8BOM(body) {
		return string(body[3:]), "utf-8"
	}

	if cs := charsetFromHeader(contentTypeHeader); cs != "" {
		if decoded, ok := tryDecode(body, cs); ok {
			return decoded, cs
		}
	}

	if cs := charsetFromMeta(body); cs != "" {
		if decoded, ok := tryDecode(body, cs); ok {
			return decoded, cs
		}
	}

	if cs := sniffWithChardet(body); cs != "" {
		if decoded, ok := acceptCandidate(body, cs); ok {
			return decoded, cs
		}
	}

	for _, cs := range fallbackChain {
		if decoded, ok := acceptCandidate(body, cs); ok {
			return decoded, cs
		}
	}

	return decodeReplacing(body, "utf-8"), "utf-8"
}

func hasUTF8BOM(body []byte) bool {
	return len(body) >= 3 && body[0] == 0xEF && body[1] == 0xBB && body[2] == 0xBF
}

func charsetFromHeader(contentType string) string {
	m := contentTypeCsRe.FindStringSubmatch(contentType)
	if len(m) == 2 {
		return strings.ToLower(m[1])
	}
	return ""
}

func charsetFromMeta(body []byte) string {
	window := body
	if len(window) > sniffWindow {
		window = window[:sniffWindow]
	}
	for _, re := range []*regexp.Regexp{metaCharsetRe, metaEquivRe1, metaEquivRe2} {
		if m := re.FindSubmatch(window); len(m) == 2 {
			return strings.ToLower(string(m[1]))
		}
	}
	return ""
}

func sniffWithChardet(body []byte) string {
	d := chardet.NewTextDetector()
	window := body
	if len(window) > sniffWindow*4 {
		window = window[:sniffWindow*4]
	}
	res, err := d.DetectBest(window)
	if err != nil || res == nil {
		return ""
	}
	return strings.ToLower(res.Charset)
}

// acceptCandidate decodes body under label and applies the acceptance
// criteria: a CJK label is accepted only if the decoded text contains a
// Han ideograph; any other label is accepted if the decoded text contains
// no U+FFFD replacement character.
func acceptCandidate(body []byte, label string) (string, bool) {
	decoded, ok := tryDecode(body, label)
	if !ok {
		return "", false
	}
	if cjkLabels[label] {
		return decoded, containsHan(decoded)
	}
	return decoded, !strings.ContainsRune(decoded, utf8.RuneError)
}

func tryDecode(body []byte, label string) (string, bool) {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return "", false
	}
	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return "", false
	}
	return string(out), true
}

func decodeReplacing(body []byte, label string) string {
	enc, err := htmlindex.Get(label)
	if err != nil {
		enc = encoding.Replacement
	}
	out, _ := enc.NewDecoder().Bytes(body)
	return string(out)
}

func containsHan(s string) bool {
	for _, r := range s {
		if r >= 0x4E00 && r <= 0x9FFF {
			return true
		}
	}
	return false
}
