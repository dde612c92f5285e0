package classifier

import (
	"strings"
	"testing"

	"github.com/99souls/webfetcher/engine/models"
)

func TestClassifySinglePageModeShortCircuitsToArticle(t *testing.T) {
	html := `<html><body><ul class="list">` + strings.Repeat(`<li><a href="/p/1">Item</a></li>`, 20) + `</ul></body></html>`
	got := Classify(html, "example.com", false, false)
	if got != models.PageTypeArticle {
		t.Fatalf("got %v, want Article in single-page mode", got)
	}
}

func TestClassifyForceOverridesSinglePageMode(t *testing.T) {
	var links strings.Builder
	for i := 0; i < 12; i++ {
		links.WriteString(`<div class="content-list"><a href="/articles/item">Item text here</a></div>`)
	}
	html := `<html><body>` + links.String() + `</body></html>`
	got := Classify(html, "example.com", false, true)
	if got != models.PageTypeListIndex {
		t.Fatalf("got %v, want ListIndex when forced", got)
	}
}

func TestClassifyHighAnchorRatioIsArticle(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 12; i++ {
		b.WriteString(`<a href="#section">Section</a>`)
	}
	html := `<html><body><p>` + strings.Repeat("word ", 50) + `</p>` + b.String() + `</body></html>`
	got := Classify(html, "example.com", true, false)
	if got != models.PageTypeArticle {
		t.Fatalf("got %v, want Article for high anchor ratio", got)
	}
}

func TestClassifyManyListContainersIsListIndex(t *testing.T) {
	html := `<html><body><ul class="item-list"><li>1</li></ul><ol class="index"><li>2</li></ol></body></html>`
	got := Classify(html, "example.com", true, false)
	if got != models.PageTypeListIndex {
		t.Fatalf("got %v, want ListIndex with 2+ list containers", got)
	}
}

func TestClassifyShortAndNavLinksDoNotCountAsContentLinks(t *testing.T) {
	var b strings.Builder
	// 10 internal links, but all either <=2 chars or navigational text:
	// none should count toward the content-link thresholds.
	for i := 0; i < 5; i++ {
		b.WriteString(`<a href="/p/` + string(rune('a'+i)) + `">&raquo;</a>`)
	}
	b.WriteString(`<a href="/">Home</a>`)
	b.WriteString(`<a href="/login">Login</a>`)
	b.WriteString(`<a href="/more">More</a>`)
	b.WriteString(`<a href="/back">Back</a>`)
	b.WriteString(`<a href="/next">Next</a>`)
	html := `<html><body><p>` + strings.Repeat("word ", 200) + `</p>` + b.String() + `</body></html>`
	got := Classify(html, "example.com", true, false)
	if got != models.PageTypeArticle {
		t.Fatalf("got %v, want Article when internal links are all short/navigational", got)
	}
}
