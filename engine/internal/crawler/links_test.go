package crawler

import "testing"

func TestExtractLinksHandlesQuotedAndUnquoted(t *testing.T) {
	html := `<a href="/a">A</a><a href='/b'>B</a><a href=/c>C</a>`
	links, err := ExtractLinks(html, "https://example.com/", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(links) != 3 {
		t.Fatalf("expected 3 links, got %d: %v", len(links), links)
	}
}

func TestExtractLinksSkipsNonCrawlableSchemes(t *testing.T) {
	html := `<a href="javascript:void(0)">J</a><a href="mailto:x@y.com">M</a><a href="tel:123">T</a><a href="#top">Frag</a><a href="/real">Real</a>`
	links, err := ExtractLinks(html, "https://example.com/", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(links) != 1 {
		t.Fatalf("expected only 1 crawlable link, got %d: %v", len(links), links)
	}
}

func TestExtractLinksExcludesOffHostAndNonContent(t *testing.T) {
	html := `<a href="https://other.com/x">Other</a><a href="/image.png">Img</a><a href="/api/data.json">API</a><a href="/page">Page</a>`
	links, err := ExtractLinks(html, "https://example.com/", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(links) != 1 {
		t.Fatalf("expected only 1 content link, got %d: %v", len(links), links)
	}
}

func TestExtractLinksCapsAtFifty(t *testing.T) {
	html := ""
	for i := 0; i < 80; i++ {
		html += `<a href="/p` + string(rune('a'+i%26)) + string(rune('0'+i/26)) + `">L</a>`
	}
	links, err := ExtractLinks(html, "https://example.com/", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(links) > maxLinksPerPage {
		t.Fatalf("expected at most %d links, got %d", maxLinksPerPage, len(links))
	}
}
