// Package filesink writes each Document as one rendered-Markdown file
// under an output directory, named from the document's source URL.
package filesink

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/99souls/webfetcher/engine/internal/output"
	"github.com/99souls/webfetcher/engine/internal/output/markdown"
)

var unsafeFilenameRe = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// Sink writes one .md file per Document into Dir.
type Sink struct {
	Dir string

	mu sync.Mutex
}

// New creates a Sink rooted at dir, creating the directory if needed.
func New(dir string) (*Sink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &Sink{Dir: dir}, nil
}

func (s *Sink) Write(doc *output.Document) error {
	if doc == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	name := slugFor(doc.URLMeta.FinalURL) + ".md"
	path := filepath.Join(s.Dir, name)
	return os.WriteFile(path, []byte(markdown.Render(doc)), 0o644)
}

func (s *Sink) Flush() error { return nil }
func (s *Sink) Close() error { return nil }
func (s *Sink) Name() string { return "filesink-markdown" }

var _ output.Sink = (*Sink)(nil)

// slugFor turns a URL's host+path into a filesystem-safe slug.
func slugFor(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "page"
	}
	slug := u.Host + "-" + strings.Trim(u.Path, "/")
	slug = unsafeFilenameRe.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return "index"
	}
	return slug
}
