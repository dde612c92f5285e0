package templates

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleTemplate = `
name: blog-post
version: "1"
url_patterns:
  - example.com/blog/
selectors:
  title: "h1.title, h1"
  content: "article.body"
  author:
    - selector: "meta[name=author]"
      strategy: css
      attribute: content
  date: "time.published"
  images:
    - "article img"
  metadata:
    section: ".breadcrumb li:last-child"
`

func writeTemplate(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}
}

func TestLoadParsesSelectorShapes(t *testing.T) {
	tpl, err := Load([]byte(sampleTemplate))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tpl.Name != "blog-post" {
		t.Fatalf("Name = %q", tpl.Name)
	}
	if len(tpl.Selectors["title"]) != 2 {
		t.Fatalf("expected 2 comma-split title selectors, got %d", len(tpl.Selectors["title"]))
	}
	if len(tpl.Selectors["author"]) != 1 || tpl.Selectors["author"][0].Attribute != "content" {
		t.Fatalf("author selector not decoded correctly: %+v", tpl.Selectors["author"])
	}
	if _, ok := tpl.Selectors["metadata.section"]; !ok {
		t.Fatalf("expected metadata.section selector, got %+v", tpl.Selectors)
	}
}

func TestLoadRejectsTemplateWithoutName(t *testing.T) {
	_, err := Load([]byte("url_patterns: [x.com]\n"))
	if err == nil {
		t.Fatal("expected error for missing name")
	}
}

func TestNewLoaderRejectsDuplicatePatterns(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "a.yaml", "name: a\nurl_patterns: [dup.com]\nselectors:\n  title: h1\n")
	writeTemplate(t, dir, "b.yaml", "name: b\nurl_patterns: [dup.com]\nselectors:\n  title: h2\n")
	if _, err := NewLoader(dir); err == nil {
		t.Fatal("expected duplicate url_pattern to fail loading")
	}
}

func TestLookupFallsBackToGeneric(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "a.yaml", "name: a\nurl_patterns: [known.com]\nselectors:\n  title: h1\n")
	l, err := NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	if tpl := l.Lookup("https://known.com/x"); tpl.Name != "a" {
		t.Fatalf("expected template a, got %q", tpl.Name)
	}
	if tpl := l.Lookup("https://unknown.com/x"); tpl.Name != GenericTemplateName {
		t.Fatalf("expected generic fallback, got %q", tpl.Name)
	}
}

func TestReloadPicksUpNewTemplate(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	if tpl := l.Lookup("https://fresh.com/x"); tpl.Name != GenericTemplateName {
		t.Fatalf("expected generic before reload, got %q", tpl.Name)
	}
	writeTemplate(t, dir, "fresh.yaml", "name: fresh\nurl_patterns: [fresh.com]\nselectors:\n  title: h1\n")
	if err := l.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if tpl := l.Lookup("https://fresh.com/x"); tpl.Name != "fresh" {
		t.Fatalf("expected fresh template after reload, got %q", tpl.Name)
	}
}
