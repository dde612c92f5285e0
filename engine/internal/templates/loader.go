// Package templates loads declarative parser rules from YAML files and
// matches an incoming URL to the right one, with hot-reload support.
package templates

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/99souls/webfetcher/engine/models"
)

// GenericTemplateName is the reserved fallback template used when no
// URL-pattern match is found.
const GenericTemplateName = "generic"

// rawSelectorVariant mirrors the YAML object form of a selector variant.
type rawSelectorVariant struct {
	Selector   string   `yaml:"selector"`
	Strategy   string   `yaml:"strategy"`
	Attribute  string   `yaml:"attribute"`
	Validation struct {
		DomainContains  []string `yaml:"domain_contains"`
		ExcludePatterns []string `yaml:"exclude_patterns"`
		URLPatterns     []string `yaml:"url_patterns"`
	} `yaml:"validation"`
	PostProcess []rawPostProcess `yaml:"post_process"`
}

type rawPostProcess struct {
	Type        string `yaml:"type"`
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`
	Flags       string `yaml:"flags"`
	Old         string `yaml:"old"`
	New         string `yaml:"new"`
}

// rawTemplate mirrors the on-disk YAML shape; selector values may be a bare
// string, a list of strings, or a list of variant objects, so they're
// decoded with yaml.Node and normalized in decodeSelectorField.
type rawTemplate struct {
	Name        string                     `yaml:"name"`
	Version     string                     `yaml:"version"`
	URLPatterns []string                   `yaml:"url_patterns"`
	Selectors   map[string]yaml.Node       `yaml:"selectors"`
	Metadata    map[string]yaml.Node       `yaml:"-"`
}

// Load parses one template YAML document.
func Load(data []byte) (models.Template, error) {
	var raw struct {
		Name        string                 `yaml:"name"`
		Version     string                 `yaml:"version"`
		URLPatterns []string               `yaml:"url_patterns"`
		Selectors   map[string]yaml.Node   `yaml:"selectors"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return models.Template{}, fmt.Errorf("parse template: %w", err)
	}
	if raw.Name == "" {
		return models.Template{}, fmt.Errorf("template missing name")
	}

	tpl := models.Template{
		Name:        raw.Name,
		Version:     raw.Version,
		URLPatterns: raw.URLPatterns,
		Selectors:   make(map[string][]models.SelectorVariant),
	}

	for field, node := range raw.Selectors {
		if field == "metadata" {
			var metaFields map[string]yaml.Node
			if err := node.Decode(&metaFields); err != nil {
				return models.Template{}, fmt.Errorf("decode metadata selectors: %w", err)
			}
			for mk, mnode := range metaFields {
				variants, err := decodeSelectorField(mnode)
				if err != nil {
					return models.Template{}, fmt.Errorf("metadata.%s: %w", mk, err)
				}
				tpl.Selectors["metadata."+mk] = variants
			}
			continue
		}
		variants, err := decodeSelectorField(node)
		if err != nil {
			return models.Template{}, fmt.Errorf("%s: %w", field, err)
		}
		tpl.Selectors[field] = variants
	}

	return tpl, nil
}

// decodeSelectorField normalizes the three YAML shapes a selector field may
// take: a bare string, a list of strings, or a list of variant objects.
func decodeSelectorField(node yaml.Node) ([]models.SelectorVariant, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return nil, err
		}
		return variantsFromString(s), nil
	case yaml.SequenceNode:
		var variants []models.SelectorVariant
		for _, item := range node.Content {
			switch item.Kind {
			case yaml.ScalarNode:
				var s string
				if err := item.Decode(&s); err != nil {
					return nil, err
				}
				variants = append(variants, variantsFromString(s)...)
			case yaml.MappingNode:
				var raw rawSelectorVariant
				if err := item.Decode(&raw); err != nil {
					return nil, err
				}
				variants = append(variants, toVariant(raw))
			default:
				return nil, fmt.Errorf("unsupported selector entry kind %v", item.Kind)
			}
		}
		return variants, nil
	default:
		return nil, fmt.Errorf("unsupported selector field kind %v", node.Kind)
	}
}

// variantsFromString splits a comma-separated CSS selector string (or
// detects a single XPath expression starting with / or //) into variants.
func variantsFromString(s string) []models.SelectorVariant {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if strings.HasPrefix(s, "/") {
		return []models.SelectorVariant{{Selector: s, Strategy: models.SelectorXPath}}
	}
	parts := strings.Split(s, ",")
	variants := make([]models.SelectorVariant, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		variants = append(variants, models.SelectorVariant{Selector: p, Strategy: models.SelectorCSS})
	}
	return variants
}

func toVariant(raw rawSelectorVariant) models.SelectorVariant {
	engine := models.SelectorCSS
	switch raw.Strategy {
	case "xpath":
		engine = models.SelectorXPath
	case "css", "":
		if strings.HasPrefix(strings.TrimSpace(raw.Selector), "/") {
			engine = models.SelectorXPath
		}
	}
	v := models.SelectorVariant{
		Selector:  raw.Selector,
		Strategy:  engine,
		Attribute: raw.Attribute,
		Validation: models.Validation{
			DomainContains:  raw.Validation.DomainContains,
			ExcludePatterns: raw.Validation.ExcludePatterns,
			URLPatterns:     raw.Validation.URLPatterns,
		},
	}
	for _, pp := range raw.PostProcess {
		v.PostProcess = append(v.PostProcess, models.PostProcess{
			Type:        models.PostProcessKind(pp.Type),
			Pattern:     pp.Pattern,
			Replacement: pp.Replacement,
			Flags:       pp.Flags,
			Old:         pp.Old,
			New:         pp.New,
		})
	}
	return v
}

// indexEntry pairs a compiled matcher with the template it selects.
type indexEntry struct {
	pattern string
	re      *regexp.Regexp // nil when pattern is a plain domain suffix
	tpl     models.Template
}

// Index is an immutable, atomically-swappable snapshot of loaded templates.
type Index struct {
	entries []indexEntry
	generic models.Template
}

func buildIndex(templates []models.Template) (*Index, error) {
	idx := &Index{generic: models.Template{Name: GenericTemplateName}}
	seenPatterns := map[string]bool{}

	for _, tpl := range templates {
		if tpl.Name == GenericTemplateName {
			idx.generic = tpl
			continue
		}
		for _, pat := range tpl.URLPatterns {
			if seenPatterns[pat] {
				return nil, fmt.Errorf("duplicate url_pattern %q (template %s)", pat, tpl.Name)
			}
			seenPatterns[pat] = true
			entry := indexEntry{pattern: pat, tpl: tpl}
			if re, err := regexp.Compile(pat); err == nil && looksLikeRegex(pat) {
				entry.re = re
			}
			idx.entries = append(idx.entries, entry)
		}
	}
	return idx, nil
}

// looksLikeRegex treats a pattern as regex if it contains characters a bare
// domain suffix wouldn't (anything beyond letters, digits, dot, hyphen).
func looksLikeRegex(pat string) bool {
	for _, r := range pat {
		if !(r == '.' || r == '-' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return true
		}
	}
	return false
}

func (idx *Index) match(rawURL string) models.Template {
	for _, e := range idx.entries {
		if e.re != nil {
			if e.re.MatchString(rawURL) {
				return e.tpl
			}
			continue
		}
		if strings.Contains(rawURL, e.pattern) {
			return e.tpl
		}
	}
	return idx.generic
}

// Loader owns the current Index and a per-URL lookup cache, and can reload
// its template directory at runtime without a lock on the hot path.
type Loader struct {
	dir     string
	current atomic.Pointer[Index]

	cacheMu sync.Mutex
	cache   map[string]models.Template

	watcher *fsnotify.Watcher
}

// NewLoader scans dir for *.yaml/*.yml template files and builds the
// initial index. Duplicate url_patterns across files fail the load.
func NewLoader(dir string) (*Loader, error) {
	l := &Loader{dir: dir, cache: make(map[string]models.Template)}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Reload rescans the template directory and atomically swaps the index.
func (l *Loader) Reload() error {
	var templates []models.Template
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			entries = nil
		} else {
			return fmt.Errorf("read template dir: %w", err)
		}
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(l.dir, name))
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		tpl, err := Load(data)
		if err != nil {
			return fmt.Errorf("load %s: %w", name, err)
		}
		templates = append(templates, tpl)
	}
	idx, err := buildIndex(templates)
	if err != nil {
		return err
	}
	l.current.Store(idx)
	l.cacheMu.Lock()
	l.cache = make(map[string]models.Template)
	l.cacheMu.Unlock()
	return nil
}

// Count returns the number of url_pattern entries across the non-generic
// templates currently loaded; a template with no url_patterns adds none.
func (l *Loader) Count() int {
	return len(l.current.Load().entries)
}

// Lookup returns the template matching rawURL, caching the decision.
func (l *Loader) Lookup(rawURL string) models.Template {
	l.cacheMu.Lock()
	if tpl, ok := l.cache[rawURL]; ok {
		l.cacheMu.Unlock()
		return tpl
	}
	l.cacheMu.Unlock()

	tpl := l.current.Load().match(rawURL)

	l.cacheMu.Lock()
	l.cache[rawURL] = tpl
	l.cacheMu.Unlock()
	return tpl
}

// WatchForChanges installs an fsnotify watcher on the template directory
// that calls Reload on any write/create/remove event. The caller owns the
// returned stop function.
func (l *Loader) WatchForChanges() (stop func(), err error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(l.dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch template dir: %w", err)
	}
	l.watcher = w
	done := make(chan struct{})
	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
					_ = l.Reload()
				}
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			case <-done:
				return
			}
		}
	}()
	return func() {
		close(done)
		_ = w.Close()
	}, nil
}
