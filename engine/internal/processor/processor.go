// Package processor converts extracted HTML fragments to Markdown for the
// template parser's body-conversion step.
package processor

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

// HTMLToMarkdownConverter converts an HTML fragment to Markdown with no
// link elision, no image elision, and no line wrapping.
type HTMLToMarkdownConverter struct{}

func NewHTMLToMarkdownConverter() *HTMLToMarkdownConverter { return &HTMLToMarkdownConverter{} }

func (c *HTMLToMarkdownConverter) Convert(html string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", fmt.Errorf("HTML content is empty")
	}
	conv := converter.NewConverter(converter.WithPlugins(base.NewBasePlugin(), commonmark.NewCommonmarkPlugin(), table.NewTablePlugin()))
	markdown, err := conv.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("conversion failed: %w", err)
	}
	return cleanMarkdown(markdown), nil
}

// cleanMarkdown collapses runs of 3+ newlines to two (at most one blank
// line), trims trailing whitespace on each line, and tidies table-row
// spacing the converter emits with uneven padding.
func cleanMarkdown(markdown string) string {
	re := regexp.MustCompile(`<!--[\s\S]*?-->`)
	cleaned := re.ReplaceAllString(markdown, "")
	re = regexp.MustCompile(`\n{3,}`)
	cleaned = re.ReplaceAllString(cleaned, "\n\n")
	cleaned = strings.ReplaceAll(cleaned, "\\n", "\n")
	cleaned = strings.ReplaceAll(cleaned, `\"`, `"`)

	lines := strings.Split(cleaned, "\n")
	for i, line := range lines {
		if strings.Contains(line, "|") && !strings.HasPrefix(strings.TrimSpace(line), "|--") {
			parts := strings.Split(line, "|")
			for j, part := range parts {
				parts[j] = strings.TrimSpace(part)
			}
			if len(parts) > 2 && parts[0] == "" && parts[len(parts)-1] == "" {
				var cleanParts []string
				for k := 1; k < len(parts)-1; k++ {
					cleanParts = append(cleanParts, parts[k])
				}
				lines[i] = "| " + strings.Join(cleanParts, " | ") + " |"
			}
		}
		lines[i] = strings.TrimRight(lines[i], " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
