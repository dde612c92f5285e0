package templates

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/kennygrant/sanitize"
	"golang.org/x/net/html"

	"github.com/99souls/webfetcher/engine/internal/processor"
	"github.com/99souls/webfetcher/engine/models"
)

var (
	// jsKeywordList mirrors the original template parser's js_keywords: a
	// candidate value is rejected if it contains ANY of these as a substring,
	// not a full match (a raw href value is rarely just "function(" on its
	// own, but e.g. "javascript:void(0)" or an inline onclick snippet will
	// contain one of these somewhere inside it).
	jsKeywordList = []string{
		"javascript:", "function", "window", "document", "var ", "=>",
		"localStorage", "return ", "if(", "!function", "void 0",
	}
	dataURLRe        = regexp.MustCompile(`(?i)^data:`)
	scriptStyleTagRe = regexp.MustCompile(`(?is)<(script|style|noscript)[^>]*>.*?</(script|style|noscript)>`)
)

const maxDataURLBytes = 500

// Parser walks a Template's selector variants against one page's HTML and
// produces a ParseResult.
type Parser struct {
	converter *processor.HTMLToMarkdownConverter
}

// NewParser builds a Parser with its own Markdown converter.
func NewParser() *Parser {
	return &Parser{converter: processor.NewHTMLToMarkdownConverter()}
}

// Parse extracts title, body, author, date, images, and metadata fields
// from rawHTML per tpl, resolving relative URLs against finalURL.
func (p *Parser) Parse(tpl models.Template, rawHTML, finalURL string) models.ParseResult {
	result := models.ParseResult{
		Metadata:     make(map[string]any),
		Success:      true,
		TemplateName: tpl.Name,
	}

	cleanedHTML := preprocessHTML(rawHTML, finalURL)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(cleanedHTML))
	if err != nil {
		result.Success = false
		result.Errors = append(result.Errors, fmt.Sprintf("parse HTML: %v", err))
		return result
	}

	xdoc, xerr := htmlquery.Parse(strings.NewReader(cleanedHTML))
	if xerr != nil {
		xdoc = nil
	}

	host := hostOf(finalURL)

	for field, variants := range tpl.Selectors {
		switch field {
		case "title":
			result.Title = p.extractFirst(doc, xdoc, variants, host)
		case "content":
			body := p.extractFirst(doc, xdoc, variants, host)
			md, cerr := p.converter.Convert(normalizeTables(body))
			if cerr != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("convert content: %v", cerr))
				continue
			}
			result.BodyMarkdown = md
		case "images":
			result.Metadata["images"] = p.extractList(doc, xdoc, variants, host)
		case "author":
			result.Metadata["author"] = p.extractFirst(doc, xdoc, variants, host)
		case "date":
			result.Metadata["date"] = p.extractFirst(doc, xdoc, variants, host)
		default:
			if strings.HasPrefix(field, "metadata.") {
				key := strings.TrimPrefix(field, "metadata.")
				result.Metadata[key] = p.extractFirst(doc, xdoc, variants, host)
			}
		}
	}

	if result.Title == "" && result.BodyMarkdown == "" {
		result.Success = false
		result.Errors = append(result.Errors, "no title or content extracted")
	}
	return result
}

// extractFirst tries each variant in order, returning the first non-empty,
// validated value.
func (p *Parser) extractFirst(doc *goquery.Document, xdoc *html.Node, variants []models.SelectorVariant, host string) string {
	for _, v := range variants {
		val := p.runVariant(doc, xdoc, v, host)
		if val == "" {
			continue
		}
		if strings.Contains(val, "<") {
			val = sanitizeText(val)
		}
		return applyPostProcess(val, v.PostProcess)
	}
	return ""
}

// extractList tries each variant in order, returning the first variant that
// yields at least one validated value (rather than merging across variants).
func (p *Parser) extractList(doc *goquery.Document, xdoc *html.Node, variants []models.SelectorVariant, host string) []string {
	for _, v := range variants {
		vals := p.runVariantAll(doc, xdoc, v, host)
		if len(vals) == 0 {
			continue
		}
		out := make([]string, 0, len(vals))
		for _, raw := range vals {
			if !validate(raw, v.Validation, host) {
				continue
			}
			out = append(out, applyPostProcess(raw, v.PostProcess))
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

func (p *Parser) runVariant(doc *goquery.Document, xdoc *html.Node, v models.SelectorVariant, host string) string {
	vals := p.runVariantAll(doc, xdoc, v, host)
	for _, raw := range vals {
		if validate(raw, v.Validation, host) {
			return raw
		}
	}
	return ""
}

func (p *Parser) runVariantAll(doc *goquery.Document, xdoc *html.Node, v models.SelectorVariant, host string) []string {
	switch v.Strategy {
	case models.SelectorXPath:
		if xdoc == nil {
			return nil
		}
		nodes, err := htmlquery.QueryAll(xdoc, v.Selector)
		if err != nil {
			return nil
		}
		out := make([]string, 0, len(nodes))
		for _, n := range nodes {
			out = append(out, valueOf(n, v.Attribute))
		}
		return out
	default:
		sel := doc.Find(v.Selector)
		out := make([]string, 0, sel.Length())
		sel.Each(func(_ int, s *goquery.Selection) {
			if v.Attribute != "" {
				if attr, ok := s.Attr(v.Attribute); ok {
					out = append(out, strings.TrimSpace(attr))
				}
				return
			}
			out = append(out, strings.TrimSpace(s.Text()))
		})
		return out
	}
}

func valueOf(n *html.Node, attribute string) string {
	if attribute != "" {
		for _, a := range n.Attr {
			if a.Key == attribute {
				return strings.TrimSpace(a.Val)
			}
		}
		return ""
	}
	return strings.TrimSpace(htmlquery.InnerText(n))
}

// validate rejects JS pseudo-values, oversized data: URLs, and values that
// fail the selector's domain/exclude/url-pattern rules.
func validate(val string, rules models.Validation, host string) bool {
	if val == "" {
		return false
	}
	lowerVal := strings.ToLower(val)
	for _, kw := range jsKeywordList {
		if strings.Contains(lowerVal, strings.ToLower(kw)) {
			return false
		}
	}
	if dataURLRe.MatchString(val) && len(val) > maxDataURLBytes {
		return false
	}
	for _, must := range rules.DomainContains {
		if !strings.Contains(val, must) && !strings.Contains(host, must) {
			return false
		}
	}
	for _, bad := range rules.ExcludePatterns {
		if re, err := regexp.Compile(bad); err == nil && re.MatchString(val) {
			return false
		}
	}
	if len(rules.URLPatterns) > 0 {
		matched := false
		for _, pat := range rules.URLPatterns {
			if re, err := regexp.Compile(pat); err == nil && re.MatchString(val) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

func applyPostProcess(val string, steps []models.PostProcess) string {
	for _, step := range steps {
		switch step.Type {
		case models.PostProcessRegexReplace:
			flags := ""
			if strings.Contains(step.Flags, "i") {
				flags += "i"
			}
			if strings.Contains(step.Flags, "m") {
				flags += "m"
			}
			if strings.Contains(step.Flags, "s") {
				flags += "s"
			}
			pattern := step.Pattern
			if flags != "" {
				pattern = "(?" + flags + ")" + pattern
			}
			if re, err := regexp.Compile(pattern); err == nil {
				val = re.ReplaceAllString(val, step.Replacement)
			}
		case models.PostProcessReplace:
			val = strings.ReplaceAll(val, step.Old, step.New)
		case models.PostProcessStrip:
			val = strings.TrimSpace(val)
		case models.PostProcessLower:
			val = strings.ToLower(val)
		case models.PostProcessUpper:
			val = strings.ToUpper(val)
		}
	}
	return val
}

// preprocessHTML strips script/style/noscript blocks, promotes lazy-loaded
// data-src attributes to src, and rewrites relative URLs against finalURL.
func preprocessHTML(rawHTML, finalURL string) string {
	cleaned := scriptStyleTagRe.ReplaceAllString(rawHTML, "")
	cleaned = promoteDataSrc(cleaned)
	cleaned = rewriteRelativeURLs(cleaned, finalURL)
	return cleaned
}

var dataSrcRe = regexp.MustCompile(`(?i)<(img|source)([^>]*?)\sdata-src=(["'])(.*?)\3([^>]*)>`)

func promoteDataSrc(htmlStr string) string {
	return dataSrcRe.ReplaceAllStringFunc(htmlStr, func(match string) string {
		groups := dataSrcRe.FindStringSubmatch(match)
		if groups == nil {
			return match
		}
		tag, pre, quote, src, post := groups[1], groups[2], groups[3], groups[4], groups[5]
		if strings.Contains(pre+post, "src="+quote) {
			return match
		}
		return fmt.Sprintf(`<%s%s src=%s%s%s%s>`, tag, pre, quote, src, quote, post)
	})
}

var hrefSrcRe = regexp.MustCompile(`(?i)\b(href|src)=(["'])(.*?)\2`)

func rewriteRelativeURLs(htmlStr, finalURL string) string {
	base, err := url.Parse(finalURL)
	if err != nil {
		return htmlStr
	}
	return hrefSrcRe.ReplaceAllStringFunc(htmlStr, func(match string) string {
		groups := hrefSrcRe.FindStringSubmatch(match)
		if groups == nil {
			return match
		}
		attr, quote, raw := groups[1], groups[2], groups[3]
		if raw == "" || strings.HasPrefix(raw, "#") || strings.HasPrefix(raw, "data:") || strings.HasPrefix(raw, "javascript:") {
			return match
		}
		resolved, err := base.Parse(raw)
		if err != nil {
			return match
		}
		return fmt.Sprintf("%s=%s%s%s", attr, quote, resolved.String(), quote)
	})
}

var trTagRe = regexp.MustCompile(`(?is)<tr[^>]*>(.*?)</tr>`)
var cellTagRe = regexp.MustCompile(`(?is)<t[hd][^>]*>(.*?)</t[hd]>`)
var brTagRe = regexp.MustCompile(`(?i)<br\s*/?>`)
var checkboxRe = regexp.MustCompile(`(?i)<input[^>]*type=["']?checkbox["']?[^>]*checked[^>]*>`)
var radioRe = regexp.MustCompile(`(?i)<input[^>]*type=["']?(checkbox|radio)["']?[^>]*>`)

// normalizeTables makes table cells Markdown-converter-friendly: <br> tags
// inside th/td become spaces (so a cell stays one logical line), and
// checkbox/radio inputs become literal "[ ]"/"[x]" placeholders.
func normalizeTables(htmlStr string) string {
	return trTagRe.ReplaceAllStringFunc(htmlStr, func(row string) string {
		return cellTagRe.ReplaceAllStringFunc(row, func(cell string) string {
			cell = checkboxRe.ReplaceAllString(cell, "[x]")
			cell = radioRe.ReplaceAllString(cell, "[ ]")
			cell = brTagRe.ReplaceAllString(cell, " ")
			return cell
		})
	})
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}

// sanitizeText strips markup from an extracted value; extractFirst applies
// it to any value that still contains a '<' before post-processing.
func sanitizeText(s string) string {
	return sanitize.HTML(s)
}
