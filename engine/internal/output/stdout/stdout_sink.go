// Package stdout provides a Document sink that writes rendered Markdown
// straight to a writer, by default os.Stdout. Useful for piping single-URL
// fetches into other tools.
package stdout

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/99souls/webfetcher/engine/internal/output"
	"github.com/99souls/webfetcher/engine/internal/output/markdown"
)

// Sink writes each Document as rendered Markdown, separated by a form-feed
// so multi-document streams stay splittable.
type Sink struct {
	mu sync.Mutex
	w  io.Writer
}

// New returns a Sink writing to os.Stdout.
func New() *Sink { return &Sink{w: os.Stdout} }

// NewWriter returns a Sink writing to an arbitrary io.Writer.
func NewWriter(w io.Writer) *Sink { return &Sink{w: w} }

func (s *Sink) Write(doc *output.Document) error {
	if doc == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprint(s.w, markdown.Render(doc), "\n\f\n")
	return err
}

func (s *Sink) Flush() error { return nil }
func (s *Sink) Close() error { return nil }
func (s *Sink) Name() string { return "stdout-markdown" }

var _ output.Sink = (*Sink)(nil)
