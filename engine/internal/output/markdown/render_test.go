package markdown

import (
	"strings"
	"testing"
	"time"

	"github.com/99souls/webfetcher/engine/internal/output"
	"github.com/99souls/webfetcher/engine/models"
)

func TestRenderIncludesMetadataBlockAndFooter(t *testing.T) {
	doc := &output.Document{
		URLMeta: models.URLMetadata{
			InputURL:  "https://example.com/a",
			FinalURL:  "https://example.com/a",
			FetchDate: time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC),
			FetchMode: models.StrategyHTTP,
		},
		Metrics: models.FetchMetrics{
			PrimaryMethod: models.StrategyHTTP,
			TotalAttempts: 1,
			FinalStatus:   models.FinalStatusSuccess,
		},
		Parsed: models.ParseResult{
			Title:        "Example Title",
			BodyMarkdown: "Body text.",
			Metadata: map[string]any{
				"date":   "2026-07-29",
				"images": []string{"https://example.com/img.png"},
			},
		},
	}

	out := Render(doc)

	if !strings.HasPrefix(out, "<!--\nfetch_metrics:") {
		t.Fatalf("expected metrics comment header, got: %s", out[:40])
	}
	if !strings.Contains(out, "# Example Title") {
		t.Fatal("expected level-1 heading with title")
	}
	if !strings.Contains(out, "- Title: Example Title") || !strings.Contains(out, "- Published: 2026-07-29") ||
		!strings.Contains(out, "- Source: https://example.com/a") || !strings.Contains(out, "- Fetched: 2026-07-30") {
		t.Fatalf("missing metadata block lines: %s", out)
	}
	if !strings.Contains(out, "Body text.") {
		t.Fatal("expected body Markdown present")
	}
	if !strings.Contains(out, "## Images") || !strings.Contains(out, "https://example.com/img.png") {
		t.Fatal("expected Images section")
	}
	if strings.Contains(out, "## Videos") {
		t.Fatal("expected no Videos section when none present")
	}
	if !strings.Contains(out, "Fetched via http") {
		t.Fatal("expected trailing visible metrics footer")
	}
}
