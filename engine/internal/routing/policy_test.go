package routing

import (
	"testing"

	"github.com/99souls/webfetcher/engine/models"
)

func TestRouteDefaultOrder(t *testing.T) {
	p := New()
	order := p.Route("https://example.com/a")
	want := []models.Strategy{models.StrategyHTTP, models.StrategyHeadless, models.StrategyManual}
	for i, s := range want {
		if order[i] != s {
			t.Fatalf("order[%d] = %v, want %v", i, order[i], s)
		}
	}
}

func TestRouteSSLProblematicDomainSkipsHTTP(t *testing.T) {
	p := New().WithSSLProblematicDomains([]string{"badtls.example.com"})
	order := p.Route("https://badtls.example.com/page")
	if order[0] != models.StrategyHeadless {
		t.Fatalf("first strategy = %v, want headless", order[0])
	}
	for _, s := range order {
		if s == models.StrategyHTTP {
			t.Fatalf("HTTP should be entirely skipped, got order %v", order)
		}
	}
}

func TestRouteRuleOverridesDefault(t *testing.T) {
	p := New()
	p, err := p.WithRules([]Rule{
		{Priority: 10, Matcher: MatchDomainSuffix, Pattern: "example.com", Strategy: models.StrategyManual},
		{Priority: 1, Matcher: MatchRegex, Pattern: `.*`, Strategy: models.StrategyHeadless},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	order := p.Route("https://sub.example.com/x")
	if order[0] != models.StrategyManual {
		t.Fatalf("first strategy = %v, want manual (higher priority rule)", order[0])
	}
}

func TestRouteNoRulesMatchesDefault(t *testing.T) {
	p := New()
	p, err := p.WithRules([]Rule{
		{Priority: 5, Matcher: MatchLiteral, Pattern: "https://only-this-exact-url/", Strategy: models.StrategyManual},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	order := p.Route("https://unrelated.example/")
	if order[0] != models.StrategyHTTP {
		t.Fatalf("expected default order when no rule matches, got %v", order)
	}
}
