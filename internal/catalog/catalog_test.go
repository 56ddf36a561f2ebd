package catalog

import (
	"strings"
	"testing"

	"github.com/tabletoptools/scenoforge/internal/domain/card"
)

// TestDefaultCatalogLoads ensures the embedded catalogue is valid and
// carries every category the generator consumes.
func TestDefaultCatalogLoads(t *testing.T) {
	cat, err := Default()
	if err != nil {
		t.Fatalf("Default returned error: %v", err)
	}
	if len(cat.Deployments) == 0 || len(cat.Scenography) == 0 ||
		len(cat.Objectives) == 0 || len(cat.SpecialRules) == 0 ||
		len(cat.VictoryConditions) == 0 || len(cat.NarrativeHooks) == 0 {
		t.Fatalf("embedded catalog is missing categories: %+v", cat)
	}
	for _, mode := range []card.Mode{card.ModeCasual, card.ModeNarrative, card.ModeMatched} {
		limits := cat.LimitsFor(mode)
		if limits.Objectives == 0 || limits.Scenography == 0 {
			t.Fatalf("no limits configured for mode %s", mode)
		}
	}
	if cat.ScoreBand.Min > cat.ScoreBand.Max {
		t.Fatalf("invalid score band: %+v", cat.ScoreBand)
	}
}

// TestModeFilteringPreservesDeclarationOrder ensures filters keep order
// and honor per-entry mode restrictions.
func TestModeFilteringPreservesDeclarationOrder(t *testing.T) {
	cat, err := Default()
	if err != nil {
		t.Fatalf("Default returned error: %v", err)
	}
	matched := cat.DeploymentsFor(card.ModeMatched)
	for _, e := range matched {
		if e.ID == "encirclement" || e.ID == "lone-stand" {
			t.Fatalf("mode-restricted entry %q leaked into matched", e.ID)
		}
	}
	narrative := cat.DeploymentsFor(card.ModeNarrative)
	lastIndex := -1
	for _, e := range narrative {
		index := -1
		for i, all := range cat.Deployments {
			if all.ID == e.ID {
				index = i
			}
		}
		if index <= lastIndex {
			t.Fatalf("filtered entries out of declaration order: %v", narrative)
		}
		lastIndex = index
	}
}

// TestEffectiveScorePenalizesRiskFlags checks score derivation.
func TestEffectiveScorePenalizesRiskFlags(t *testing.T) {
	clean := Meta{}
	if got := clean.EffectiveScore(); got != 100 {
		t.Fatalf("EffectiveScore() = %d, want 100", got)
	}
	risky := Meta{RiskFlags: []string{"a", "b", "c"}}
	if got := risky.EffectiveScore(); got != 70 {
		t.Fatalf("EffectiveScore() = %d, want 70", got)
	}
	explicit := Meta{Score: 55, RiskFlags: []string{"a"}}
	if got := explicit.EffectiveScore(); got != 55 {
		t.Fatalf("explicit score should win, got %d", got)
	}
	overloaded := Meta{RiskFlags: make([]string, 20)}
	if got := overloaded.EffectiveScore(); got != 0 {
		t.Fatalf("EffectiveScore should floor at 0, got %d", got)
	}
}

// TestLoadRejectsInvalidCatalog covers structural validation.
func TestLoadRejectsInvalidCatalog(t *testing.T) {
	tcs := []struct {
		name string
		yaml string
	}{
		{"empty", "{}"},
		{"bad zone count", `
deployments: [{id: a, name: A, zones: 5}]
scenography: [{id: s, name: S, shape: rect}]
objectives: [{id: o, name: O}]
victory_conditions: [{id: v, name: V, points: 1}]
`},
		{"bad shape", `
deployments: [{id: a, name: A, zones: 2}]
scenography: [{id: s, name: S, shape: blob}]
objectives: [{id: o, name: O}]
victory_conditions: [{id: v, name: V, points: 1}]
`},
		{"bad mode in limits", `
deployments: [{id: a, name: A, zones: 2}]
scenography: [{id: s, name: S, shape: rect}]
objectives: [{id: o, name: O}]
victory_conditions: [{id: v, name: V, points: 1}]
limits: {ranked: {objectives: 1, special_rules: 1, scenography: 1}}
`},
		{"inverted band", `
deployments: [{id: a, name: A, zones: 2}]
scenography: [{id: s, name: S, shape: rect}]
objectives: [{id: o, name: O}]
victory_conditions: [{id: v, name: V, points: 1}]
score_band: {min: 10, max: 5}
`},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(strings.NewReader(tc.yaml)); err == nil {
				t.Fatalf("Load accepted invalid catalog")
			}
		})
	}
}
