package processor

import "testing"

func TestConvertSmoke(t *testing.T) {
	c := NewHTMLToMarkdownConverter()
	md, err := c.Convert(`<h1>Hello</h1><p>World</p>`)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if md == "" {
		t.Fatalf("expected markdown output")
	}
}

func TestConvertRejectsEmptyInput(t *testing.T) {
	c := NewHTMLToMarkdownConverter()
	if _, err := c.Convert("   "); err == nil {
		t.Fatal("expected error for empty HTML")
	}
}

func TestCleanMarkdownCollapsesBlankLines(t *testing.T) {
	got := cleanMarkdown("a\n\n\n\nb")
	want := "a\n\nb"
	if got != want {
		t.Fatalf("cleanMarkdown = %q, want %q", got, want)
	}
}
