// Package routing decides, for a given URL, the ordered list of strategies
// the Fallback Chain should try. It is a pure function of its inputs: the
// decision is computed fresh each call and never mutates shared state.
package routing

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/99souls/webfetcher/engine/models"
)

// DefaultOrder is used whenever no rule and no SSL-problematic-domain match
// applies.
var DefaultOrder = []models.Strategy{models.StrategyHTTP, models.StrategyHeadless, models.StrategyManual}

// MatcherKind names how a Rule's Pattern is interpreted.
type MatcherKind string

const (
	MatchDomainSuffix MatcherKind = "domain_suffix"
	MatchRegex        MatcherKind = "regex"
	MatchLiteral      MatcherKind = "literal"
)

// Rule is one entry of an optional routing-rules document, in the engine's
// internal representation (see LoadRules for the on-disk YAML shape).
type Rule struct {
	Name     string
	Priority int
	Matcher  MatcherKind
	Pattern  string
	Strategy models.Strategy

	compiled *regexp.Regexp
}

// Policy computes url → [Strategy]. Zero value is the default order with no
// overrides.
type Policy struct {
	sslProblematicDomains map[string]bool
	rules                 []Rule
}

func New() *Policy {
	return &Policy{sslProblematicDomains: map[string]bool{}}
}

// WithSSLProblematicDomains marks domains that should skip HTTP entirely and
// start with Headless.
func (p *Policy) WithSSLProblematicDomains(domains []string) *Policy {
	for _, d := range domains {
		p.sslProblematicDomains[strings.ToLower(d)] = true
	}
	return p
}

// WithRules installs a set of routing rules, compiling any regex matchers
// up front and sorting by descending priority so the first match in
// iteration order is the highest-priority one.
func (p *Policy) WithRules(rules []Rule) (*Policy, error) {
	compiled := make([]Rule, len(rules))
	for i, r := range rules {
		if r.Matcher == MatchRegex {
			re, err := regexp.Compile(r.Pattern)
			if err != nil {
				return p, err
			}
			r.compiled = re
		}
		compiled[i] = r
	}
	sort.SliceStable(compiled, func(i, j int) bool { return compiled[i].Priority > compiled[j].Priority })
	p.rules = compiled
	return p, nil
}

// Route returns the ordered strategy list for rawURL. It never errors: an
// unparsable URL simply gets the default order, since C2 is responsible for
// rejecting invalid URLs before routing runs.
func (p *Policy) Route(rawURL string) []models.Strategy {
	host := hostOf(rawURL)

	if rule := p.matchRule(rawURL, host); rule != nil {
		return promote(DefaultOrder, rule.Strategy)
	}

	if host != "" && p.sslProblematicDomains[host] {
		order := make([]models.Strategy, 0, len(DefaultOrder))
		for _, s := range promote(DefaultOrder, models.StrategyHeadless) {
			if s != models.StrategyHTTP {
				order = append(order, s)
			}
		}
		return order
	}

	order := make([]models.Strategy, len(DefaultOrder))
	copy(order, DefaultOrder)
	return order
}

func (p *Policy) matchRule(rawURL, host string) *Rule {
	for i := range p.rules {
		r := &p.rules[i]
		switch r.Matcher {
		case MatchDomainSuffix:
			if host != "" && (host == strings.ToLower(r.Pattern) || strings.HasSuffix(host, "."+strings.ToLower(r.Pattern))) {
				return r
			}
		case MatchRegex:
			if r.compiled != nil && r.compiled.MatchString(rawURL) {
				return r
			}
		case MatchLiteral:
			if rawURL == r.Pattern {
				return r
			}
		}
	}
	return nil
}

// promote puts chosen first, then the rest of order in their existing
// relative sequence, minus chosen.
func promote(order []models.Strategy, chosen models.Strategy) []models.Strategy {
	out := make([]models.Strategy, 0, len(order))
	out = append(out, chosen)
	for _, s := range order {
		if s != chosen {
			out = append(out, s)
		}
	}
	return out
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
