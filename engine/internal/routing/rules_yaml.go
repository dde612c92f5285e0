package routing

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/99souls/webfetcher/engine/models"
)

// rawRuleDoc mirrors the on-disk routing-rules YAML shape exactly:
// a list of {name, priority, match: {domain|regex|literal}, fetcher}.
type rawRuleDoc struct {
	Name     string         `yaml:"name"`
	Priority int            `yaml:"priority"`
	Match    rawMatch       `yaml:"match"`
	Fetcher  models.Strategy `yaml:"fetcher"`
}

type rawMatch struct {
	Domain  string `yaml:"domain"`
	Regex   string `yaml:"regex"`
	Literal string `yaml:"literal"`
}

// LoadRules parses a routing-rules YAML document into the engine's internal
// Rule representation.
func LoadRules(data []byte) ([]Rule, error) {
	var docs []rawRuleDoc
	if err := yaml.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("parse routing rules: %w", err)
	}

	rules := make([]Rule, 0, len(docs))
	for _, d := range docs {
		r := Rule{Name: d.Name, Priority: d.Priority, Strategy: d.Fetcher}
		switch {
		case d.Match.Domain != "":
			r.Matcher = MatchDomainSuffix
			r.Pattern = d.Match.Domain
		case d.Match.Regex != "":
			r.Matcher = MatchRegex
			r.Pattern = d.Match.Regex
		case d.Match.Literal != "":
			r.Matcher = MatchLiteral
			r.Pattern = d.Match.Literal
		default:
			return nil, fmt.Errorf("rule %q: match must set domain, regex, or literal", d.Name)
		}
		rules = append(rules, r)
	}
	return rules, nil
}
