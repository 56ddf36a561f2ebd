// Package catalog provides the content catalogue consumed by the scenario
// generator: ordered candidate entries per category, per-mode selection
// limits, and the matched-mode score band. Catalogues are read-only,
// externally supplied data; a default one ships embedded.
package catalog

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tabletoptools/scenoforge/internal/domain/card"
)

// Meta is the part every catalogue entry shares. Declaration order inside
// a category is the fixed priority order for placement retries and the
// tie-break order for matched scoring.
type Meta struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	Modes       []string `yaml:"modes,omitempty"` // empty means all modes
	Score       int      `yaml:"score,omitempty"`
	RiskFlags   []string `yaml:"risk_flags,omitempty"`
}

// AllowsMode reports whether the entry is available in the given mode.
func (m Meta) AllowsMode(mode card.Mode) bool {
	if len(m.Modes) == 0 {
		return true
	}
	for _, allowed := range m.Modes {
		if card.Mode(allowed) == mode {
			return true
		}
	}
	return false
}

// EffectiveScore returns the matched-mode score: the explicit score when
// set, otherwise 100 minus 10 per risk flag, floored at zero.
func (m Meta) EffectiveScore() int {
	if m.Score != 0 {
		return m.Score
	}
	score := 100 - 10*len(m.RiskFlags)
	if score < 0 {
		return 0
	}
	return score
}

// DeploymentEntry describes a deployment pattern by its border zone count.
type DeploymentEntry struct {
	Meta       `yaml:",inline"`
	Zones      int `yaml:"zones"`
	MinTableMM int `yaml:"min_table_mm,omitempty"`
}

// ScenographyEntry describes a terrain piece and its shape envelope.
type ScenographyEntry struct {
	Meta      `yaml:",inline"`
	Shape     string `yaml:"shape"` // circle | rect | polygon
	Passable  bool   `yaml:"passable,omitempty"`
	MinSizeMM int    `yaml:"min_size_mm,omitempty"`
	MaxSizeMM int    `yaml:"max_size_mm,omitempty"`
}

// ObjectiveEntry names a contested marker.
type ObjectiveEntry struct {
	Meta `yaml:",inline"`
}

// RuleEntry is a selectable special rule.
type RuleEntry struct {
	Meta `yaml:",inline"`
}

// VictoryEntry awards points for an achievement.
type VictoryEntry struct {
	Meta   `yaml:",inline"`
	Points int `yaml:"points"`
}

// HookEntry is a narrative hook for casual and narrative modes.
type HookEntry struct {
	Meta `yaml:",inline"`
}

// Limits bounds how much content a mode may select.
type Limits struct {
	Objectives   int `yaml:"objectives"`
	SpecialRules int `yaml:"special_rules"`
	Scenography  int `yaml:"scenography"`
}

// Band is the inclusive aggregate score range matched mode aims for.
type Band struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// Midpoint returns the band center used for fallback ranking.
func (b Band) Midpoint() int { return (b.Min + b.Max) / 2 }

// Contains reports whether a score lies inside the band.
func (b Band) Contains(score int) bool { return score >= b.Min && score <= b.Max }

// Catalog is a full content catalogue.
type Catalog struct {
	Deployments       []DeploymentEntry  `yaml:"deployments"`
	Scenography       []ScenographyEntry `yaml:"scenography"`
	Objectives        []ObjectiveEntry   `yaml:"objectives"`
	SpecialRules      []RuleEntry        `yaml:"special_rules"`
	VictoryConditions []VictoryEntry     `yaml:"victory_conditions"`
	NarrativeHooks    []HookEntry        `yaml:"narrative_hooks"`
	Limits            map[string]Limits  `yaml:"limits"`
	ScoreBand         Band               `yaml:"score_band"`
}

// Load decodes and validates a catalogue from YAML.
func Load(r io.Reader) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var cat Catalog
	if err := dec.Decode(&cat); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := cat.validate(); err != nil {
		return nil, err
	}
	return &cat, nil
}

// LoadFile loads a catalogue from a YAML file on disk.
func LoadFile(path string) (*Catalog, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer file.Close()
	return Load(file)
}

// DeploymentsFor returns the deployment candidates for a mode in
// declaration order.
func (c *Catalog) DeploymentsFor(mode card.Mode) []DeploymentEntry {
	var out []DeploymentEntry
	for _, e := range c.Deployments {
		if e.AllowsMode(mode) {
			out = append(out, e)
		}
	}
	return out
}

// ScenographyFor returns the terrain candidates for a mode in
// declaration order.
func (c *Catalog) ScenographyFor(mode card.Mode) []ScenographyEntry {
	var out []ScenographyEntry
	for _, e := range c.Scenography {
		if e.AllowsMode(mode) {
			out = append(out, e)
		}
	}
	return out
}

// ObjectivesFor returns the objective candidates for a mode.
func (c *Catalog) ObjectivesFor(mode card.Mode) []ObjectiveEntry {
	var out []ObjectiveEntry
	for _, e := range c.Objectives {
		if e.AllowsMode(mode) {
			out = append(out, e)
		}
	}
	return out
}

// SpecialRulesFor returns the rule candidates for a mode.
func (c *Catalog) SpecialRulesFor(mode card.Mode) []RuleEntry {
	var out []RuleEntry
	for _, e := range c.SpecialRules {
		if e.AllowsMode(mode) {
			out = append(out, e)
		}
	}
	return out
}

// VictoryFor returns the victory condition candidates for a mode.
func (c *Catalog) VictoryFor(mode card.Mode) []VictoryEntry {
	var out []VictoryEntry
	for _, e := range c.VictoryConditions {
		if e.AllowsMode(mode) {
			out = append(out, e)
		}
	}
	return out
}

// HooksFor returns the narrative hook candidates for a mode.
func (c *Catalog) HooksFor(mode card.Mode) []HookEntry {
	var out []HookEntry
	for _, e := range c.NarrativeHooks {
		if e.AllowsMode(mode) {
			out = append(out, e)
		}
	}
	return out
}

// LimitsFor returns the selection limits for a mode.
func (c *Catalog) LimitsFor(mode card.Mode) Limits {
	return c.Limits[string(mode)]
}

func (c *Catalog) validate() error {
	if len(c.Deployments) == 0 {
		return fmt.Errorf("catalog has no deployments")
	}
	if len(c.Scenography) == 0 {
		return fmt.Errorf("catalog has no scenography")
	}
	if len(c.Objectives) == 0 {
		return fmt.Errorf("catalog has no objectives")
	}
	if len(c.VictoryConditions) == 0 {
		return fmt.Errorf("catalog has no victory conditions")
	}
	for _, d := range c.Deployments {
		if d.Zones < 1 || d.Zones > 4 {
			return fmt.Errorf("deployment %q: zones must be 1..4, got %d", d.ID, d.Zones)
		}
	}
	for _, s := range c.Scenography {
		switch s.Shape {
		case "circle", "rect", "polygon":
		default:
			return fmt.Errorf("scenography %q: unknown shape %q", s.ID, s.Shape)
		}
	}
	for mode, limits := range c.Limits {
		if _, err := card.ParseMode(mode); err != nil {
			return fmt.Errorf("limits: %w", err)
		}
		if limits.Objectives < 0 || limits.SpecialRules < 0 || limits.Scenography < 0 {
			return fmt.Errorf("limits for %q must be non-negative", mode)
		}
	}
	if c.ScoreBand.Min > c.ScoreBand.Max {
		return fmt.Errorf("score band min %d exceeds max %d", c.ScoreBand.Min, c.ScoreBand.Max)
	}
	return nil
}
