package filesink

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/99souls/webfetcher/engine/internal/output"
	"github.com/99souls/webfetcher/engine/models"
)

func TestWriteCreatesSlugNamedFile(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	doc := &output.Document{
		URLMeta: models.URLMetadata{FinalURL: "https://example.com/a/b"},
		Parsed:  models.ParseResult{Title: "Hi", BodyMarkdown: "content"},
	}
	if err := s.Write(doc); err != nil {
		t.Fatalf("Write: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected exactly one file, got %v (err=%v)", entries, err)
	}
	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	if err != nil {
		t.Fatalf("read written file: %v", err)
	}
	if !strings.Contains(string(data), "# Hi") {
		t.Fatalf("written file missing rendered title: %s", data)
	}
}

func TestSlugForSanitizesPath(t *testing.T) {
	if got := slugFor("https://example.com/a b/c?d=1"); got != "example.com-a-b-c" {
		t.Fatalf("slugFor = %q, want %q", got, "example.com-a-b-c")
	}
}
