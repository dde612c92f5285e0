// Package output defines the contract between the core fetch/parse
// pipeline and whatever persists its results.
package output

import "github.com/99souls/webfetcher/engine/models"

// Document is one fetched-and-parsed page, ready for rendering and
// persistence.
type Document struct {
	URLMeta models.URLMetadata
	Metrics models.FetchMetrics
	Parsed  models.ParseResult
}

// Sink consumes finished Documents. Implementations must be safe for
// concurrent Write calls unless documented otherwise.
type Sink interface {
	Write(doc *Document) error
	Flush() error // optional: can be no-op
	Close() error // idempotent
	Name() string // identifier for logs / metrics
}
