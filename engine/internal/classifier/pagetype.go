// Package classifier distinguishes article pages from list/index pages
// using link-density and link-shape signals over the parsed DOM.
package classifier

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/99souls/webfetcher/engine/models"
)

var listContainerClassRe = regexp.MustCompile(`(?i)\b(list|index|content-list)\b`)

// navWords are link texts that look like site chrome (navigation, login,
// pagination) rather than a link to a distinct piece of content, so they
// don't count toward the content-link signals below.
var navWords = map[string]bool{
	"home": true, "back": true, "login": true, "log in": true,
	"sign in": true, "sign up": true, "more": true, "next": true,
	"prev": true, "previous": true, "menu": true, "search": true,
	"首页": true, "返回": true, "登录": true, "更多": true, "下一页": true,
	"上一页": true, "注册": true, "登入": true,
}

// scriptStyleRe removes script/style blocks before text-based measurements.
var scriptStyleRe = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
var tagRe = regexp.MustCompile(`(?s)<[^>]*>`)

// Classify returns Article or ListIndex for the given HTML document, parsed
// relative to host (the page's own host, for internal-link detection).
//
// In single-page mode (crawlerEnabled=false) the classifier short-circuits
// to Article unless force is set.
func Classify(html, host string, crawlerEnabled, force bool) models.PageType {
	if !crawlerEnabled && !force {
		return models.PageTypeArticle
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return models.PageTypeArticle
	}

	stripped := scriptStyleRe.ReplaceAllString(html, "")
	text := tagRe.ReplaceAllString(stripped, " ")
	textLen := len(strings.TrimSpace(text))

	var totalLinks, anchorLinks, internalLinks int
	var contentLinkLens []int

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		totalLinks++
		if strings.HasPrefix(href, "#") {
			anchorLinks++
			return
		}
		if host != "" && isInternal(href, host) {
			internalLinks++
			if text := strings.TrimSpace(s.Text()); isContentLinkText(text) {
				contentLinkLens = append(contentLinkLens, len(text))
			}
		}
	})

	linkDensity := 0.0
	if textLen > 0 {
		linkDensity = float64(internalLinks) / (float64(textLen) / 1000.0)
	}

	anchorRatio := 0.0
	if totalLinks > 0 {
		anchorRatio = float64(anchorLinks) / float64(totalLinks)
	}
	if anchorRatio >= 0.3 || anchorLinks >= 10 {
		return models.PageTypeArticle
	}

	listContainers := 0
	doc.Find("ul, ol, div").Each(func(_ int, s *goquery.Selection) {
		class, _ := s.Attr("class")
		if listContainerClassRe.MatchString(class) {
			listContainers++
		}
	})
	doc.Find("table").Each(func(_ int, s *goquery.Selection) {
		if s.Find("tr").First().Find("td, th").Length() == 3 {
			listContainers++
		}
	})

	consistency := linkTextConsistency(contentLinkLens)
	contentLinks := len(contentLinkLens)

	switch {
	case linkDensity > 1.5 && contentLinks >= 5:
		return models.PageTypeListIndex
	case listContainers >= 2:
		return models.PageTypeListIndex
	case contentLinks >= 8 && consistency > 0.5:
		return models.PageTypeListIndex
	case linkDensity > 1.0 && listContainers >= 1 && contentLinks >= 5:
		return models.PageTypeListIndex
	case listContainers >= 1 && contentLinks >= 10:
		return models.PageTypeListIndex
	default:
		return models.PageTypeArticle
	}
}

// isContentLinkText reports whether text is substantial enough, and not
// site-chrome boilerplate, to count as a link to distinct content rather
// than a navigational/pagination control.
func isContentLinkText(text string) bool {
	if len([]rune(text)) <= 2 {
		return false
	}
	return !navWords[strings.ToLower(text)]
}

func isInternal(href, host string) bool {
	if strings.HasPrefix(href, "/") && !strings.HasPrefix(href, "//") {
		return true
	}
	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return strings.Contains(lower, strings.ToLower(host))
	}
	if strings.HasPrefix(href, "//") {
		return strings.Contains(strings.ToLower(href), strings.ToLower(host))
	}
	return false
}

// linkTextConsistency returns the fraction of lens within 50% of the mean.
func linkTextConsistency(lens []int) float64 {
	if len(lens) == 0 {
		return 0
	}
	sum := 0
	for _, l := range lens {
		sum += l
	}
	mean := float64(sum) / float64(len(lens))
	if mean == 0 {
		return 0
	}
	within := 0
	for _, l := range lens {
		diff := float64(l) - mean
		if diff < 0 {
			diff = -diff
		}
		if diff <= mean*0.5 {
			within++
		}
	}
	return float64(within) / float64(len(lens))
}
