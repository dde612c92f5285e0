// Package markdown renders a fetched-and-parsed Document into the visible
// Markdown document format: a metrics comment header, a title heading, a
// metadata block, the body, optional media sections, and a metrics footer.
package markdown

import (
	"fmt"
	"strings"

	"github.com/99souls/webfetcher/engine/internal/output"
)

// Render produces the full Markdown text for doc.
func Render(doc *output.Document) string {
	var b strings.Builder

	writeMetricsComment(&b, doc)
	fmt.Fprintf(&b, "# %s\n\n", nonEmpty(doc.Parsed.Title, "Untitled"))

	published, _ := doc.Parsed.Metadata["date"].(string)
	fmt.Fprintf(&b, "- Title: %s\n", nonEmpty(doc.Parsed.Title, "Untitled"))
	fmt.Fprintf(&b, "- Published: %s\n", nonEmpty(published, "unknown"))
	fmt.Fprintf(&b, "- Source: %s\n", doc.URLMeta.FinalURL)
	fmt.Fprintf(&b, "- Fetched: %s\n\n", doc.URLMeta.FetchDate.Format("2006-01-02T15:04:05Z07:00"))

	b.WriteString(doc.Parsed.BodyMarkdown)
	if !strings.HasSuffix(doc.Parsed.BodyMarkdown, "\n") {
		b.WriteString("\n")
	}

	writeMediaSection(&b, "Images", doc.Parsed.Metadata["images"])
	writeMediaSection(&b, "Videos", doc.Parsed.Metadata["videos"])

	writeMetricsFooter(&b, doc)

	return b.String()
}

func writeMetricsComment(b *strings.Builder, doc *output.Document) {
	m := doc.Metrics
	fmt.Fprintf(b, "<!--\nfetch_metrics:\n  primary_method: %s\n  fallback_method: %s\n  total_attempts: %d\n  fetch_duration: %s\n  render_duration: %s\n  final_status: %s\n-->\n\n",
		nonEmptyStrategy(string(m.PrimaryMethod)), nonEmptyStrategy(string(m.FallbackMethod)), m.TotalAttempts, m.FetchDuration, m.RenderDuration, m.FinalStatus)
}

func writeMediaSection(b *strings.Builder, heading string, raw any) {
	urls, ok := raw.([]string)
	if !ok || len(urls) == 0 {
		return
	}
	fmt.Fprintf(b, "\n## %s\n\n", heading)
	for _, u := range urls {
		fmt.Fprintf(b, "- %s\n", u)
	}
}

func writeMetricsFooter(b *strings.Builder, doc *output.Document) {
	m := doc.Metrics
	b.WriteString("\n---\n")
	fmt.Fprintf(b, "Fetched via %s", nonEmptyStrategy(string(m.PrimaryMethod)))
	if m.FallbackMethod != "" && m.FallbackMethod != m.PrimaryMethod {
		fmt.Fprintf(b, " (fell back to %s)", m.FallbackMethod)
	}
	fmt.Fprintf(b, " in %s, %d attempt(s), status=%s.\n", m.FetchDuration, m.TotalAttempts, m.FinalStatus)
}

func nonEmpty(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func nonEmptyStrategy(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
