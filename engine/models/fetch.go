package models

import (
	"net/http"
	"time"
)

// ErrorKind classifies why a strategy failed, carried through telemetry
// rather than collapsed into an opaque error string.
type ErrorKind string

const (
	ErrKindInvalidURL         ErrorKind = "invalid_url"
	ErrKindTransient          ErrorKind = "transient"
	ErrKindPermanent          ErrorKind = "permanent"
	ErrKindSSLConfig          ErrorKind = "ssl_config"
	ErrKindAntiBot            ErrorKind = "anti_bot"
	ErrKindBrowserUnavailable ErrorKind = "browser_unavailable"
	ErrKindTimeout            ErrorKind = "timeout"
	ErrKindCancelled          ErrorKind = "cancelled"
)

// Strategy identifies a concrete fetch mechanism.
type Strategy string

const (
	StrategyHTTP     Strategy = "http"
	StrategyHeadless Strategy = "headless"
	StrategyManual   Strategy = "manual"
)

// FetchContext is created once per user request by the dispatcher and is
// immutable for the lifetime of a fetch.
type FetchContext struct {
	URL           string
	UserAgent     string
	Timeout       time.Duration
	MaxRetries    int
	ExtraHeaders  http.Header
}

// StrategyResult is produced by each fetch strategy. It moves by value.
type StrategyResult struct {
	Success      bool
	HTML         string
	FinalURL     string
	Attempts     int
	Duration     time.Duration
	ErrorKind    ErrorKind
	ErrorMessage string
	Truncated    bool

	// Strategy-specific extras.
	SSLFallbackUsed   bool
	ChromeAttached    bool
	SuggestedFallback Strategy // set by the classifier when a failure names a preferred next strategy
}

// FetchMetrics is the aggregated telemetry carried through the fallback
// chain. Mutated exactly once per strategy transition.
type FetchMetrics struct {
	PrimaryMethod  Strategy
	FallbackMethod Strategy
	TotalAttempts  int
	FetchDuration  time.Duration
	RenderDuration time.Duration
	FinalStatus    FinalStatus
	ErrorMessage   string
	ChromeAttached bool
}

// FinalStatus is the terminal outcome of a dispatch.
type FinalStatus string

const (
	FinalStatusSuccess   FinalStatus = "success"
	FinalStatusFailed    FinalStatus = "failed"
	FinalStatusCancelled FinalStatus = "cancelled"
)

// URLMetadata tracks the input URL vs. the final URL vs. the method that
// produced the content.
type URLMetadata struct {
	InputURL  string
	FinalURL  string
	FetchDate time.Time
	FetchMode Strategy
}

// SelectorEngine names which query engine a selector variant runs under.
type SelectorEngine string

const (
	SelectorCSS   SelectorEngine = "css"
	SelectorXPath SelectorEngine = "xpath"
)

// PostProcessKind names a post-processing step applied to an extracted
// string in declared order.
type PostProcessKind string

const (
	PostProcessRegexReplace PostProcessKind = "regex_replace"
	PostProcessReplace      PostProcessKind = "replace"
	PostProcessStrip        PostProcessKind = "strip"
	PostProcessLower        PostProcessKind = "lower"
	PostProcessUpper        PostProcessKind = "upper"
)

// PostProcess is one post-processing step.
type PostProcess struct {
	Type        PostProcessKind
	Pattern     string // regex_replace
	Replacement string // regex_replace
	Flags       string // regex_replace: any of "ims"
	Old         string // replace
	New         string // replace
}

// Validation constrains which candidate values a selector variant may
// return for list-valued fields.
type Validation struct {
	DomainContains  []string
	ExcludePatterns []string
	URLPatterns     []string
}

// SelectorVariant is one entry in the ordered list tried when extracting a
// single field.
type SelectorVariant struct {
	Selector     string
	Strategy     SelectorEngine
	Attribute    string
	Validation   Validation
	PostProcess  []PostProcess
	IsList       bool
}

// Template is a declarative parser rule, immutable after load.
type Template struct {
	Name        string
	Version     string
	URLPatterns []string
	Selectors   map[string][]SelectorVariant // "title", "content", "author", "date", "images", and metadata.<key>
}

// ParseResult is the structured extraction output for one page.
type ParseResult struct {
	Title        string
	BodyMarkdown string
	Metadata     map[string]any
	Success      bool
	Errors       []string
	TemplateName string
}

// ListItem is one row of a list/index page.
type ListItem struct {
	Title   string
	URL     string
	Date    string
	Summary string
	Index   int // 1-based
}

// PageType distinguishes article pages from list/index pages.
type PageType string

const (
	PageTypeArticle   PageType = "article"
	PageTypeListIndex PageType = "list_index"
)
