// Package generator builds complete scenario cards from a game mode, a
// seed, and a table request, drawing content from a catalogue.
//
// # Determinism
//
// Generation is deterministic with respect to (mode, seed, table request,
// explicit shapes). Steps run in a fixed order so the seeded random
// stream advances identically on every run: table resolution, deployment
// zones, scenography, objectives, special rules, victory points,
// narrative hooks (casual and narrative only), and a scoring pass in
// matched mode. Retries derive their seeds from the base seed, so replays
// retrace the exact same attempts.
package generator

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/tabletoptools/scenoforge/internal/catalog"
	"github.com/tabletoptools/scenoforge/internal/domain"
	"github.com/tabletoptools/scenoforge/internal/domain/card"
	"github.com/tabletoptools/scenoforge/internal/domain/mapspec"
	"github.com/tabletoptools/scenoforge/internal/domain/seed"
	"github.com/tabletoptools/scenoforge/internal/domain/table"
)

// ErrGeneration indicates a placement step exhausted every catalogue
// candidate without finding one that fits.
var ErrGeneration = errors.New("generation failed")

// Generation step names, reported on failure.
const (
	StepTable           = "table"
	StepDeploymentZones = "deployment_zones"
	StepScenography     = "scenography"
	StepObjectives      = "objectives"
	StepSpecialRules    = "special_rules"
	StepVictoryPoints   = "victory_points"
	StepNarrativeHooks  = "narrative_hooks"
	StepScoring         = "scoring"
)

// Retry limits. Bounded so a generation call always terminates.
const (
	maxGlobalAttempts  = 50
	maxPlacementTries  = 200
	maxScoringAttempts = 8
)

// ObjectiveRadiusMM is the fixed marker radius for objective points.
const ObjectiveRadiusMM = 25

const placementMarginMM = 50

// TableRequest selects a preset or custom table dimensions.
type TableRequest struct {
	Preset   string  `json:"preset"` // standard | massive | custom
	WidthCm  float64 `json:"width_cm,omitempty"`
	HeightCm float64 `json:"height_cm,omitempty"`
}

// Request describes one generation call. A nil Seed draws a fresh one;
// the resolved seed is always recorded on the resulting card. Shapes, if
// set, replace seeded scenography with caller-supplied geometry.
type Request struct {
	Mode   card.Mode
	Seed   *int64
	Table  TableRequest
	Shapes []mapspec.RawShape
}

// Generator produces scenario cards from a read-only catalogue. It holds
// no mutable state; each call seeds its own random stream, so a single
// Generator is safe for concurrent use.
type Generator struct {
	catalog *catalog.Catalog
}

// New creates a Generator backed by the given catalogue.
func New(cat *catalog.Catalog) *Generator {
	return &Generator{catalog: cat}
}

func stepError(step, format string, args ...any) error {
	return fmt.Errorf("%w: step %s: %s", ErrGeneration, step, fmt.Sprintf(format, args...))
}

// layout is one fully built generation attempt.
type layout struct {
	deployment  catalog.DeploymentEntry
	zones       []card.DeploymentZone
	scenography []placedPiece
	objectives  []placedObjective
	rules       []catalog.RuleEntry
	victory     []catalog.VictoryEntry
	hooks       []catalog.HookEntry
	spec        mapspec.Spec
	score       int
}

type placedPiece struct {
	entry catalog.ScenographyEntry
	shape mapspec.Shape
}

type placedObjective struct {
	entry  catalog.ObjectiveEntry
	cx, cy int
}

// Generate builds a card from the request. No partial card is ever
// returned: any step failure surfaces as an error naming the step.
func (g *Generator) Generate(req Request) (card.Card, error) {
	tbl, err := resolveTable(req.Table)
	if err != nil {
		return card.Card{}, err
	}

	baseSeed, err := seed.Resolve(req.Seed)
	if err != nil {
		return card.Card{}, err
	}

	var explicit []mapspec.Shape
	if len(req.Shapes) > 0 {
		spec, err := mapspec.FromRaw(tbl, req.Shapes)
		if err != nil {
			return card.Card{}, err
		}
		explicit = spec.Shapes
	}

	var (
		best      *layout
		bestDist  int
		built     int
		lastErr   error
		band      = g.catalog.ScoreBand
		midpoint  = band.Midpoint()
		isMatched = req.Mode == card.ModeMatched
	)

	for attempt := 0; attempt < maxGlobalAttempts; attempt++ {
		attemptSeed := seed.DeriveAttempt(baseSeed, attempt)
		lay, err := g.build(attemptSeed, req.Mode, tbl, explicit)
		if err != nil {
			lastErr = err
			continue
		}

		if !isMatched {
			return g.assemble(req, baseSeed, tbl, lay), nil
		}

		if band.Contains(lay.score) {
			return g.assemble(req, baseSeed, tbl, lay), nil
		}

		// Out-of-band attempt: remember the one closest to the band
		// midpoint. Strict less-than keeps the earliest on ties.
		dist := lay.score - midpoint
		if dist < 0 {
			dist = -dist
		}
		if best == nil || dist < bestDist {
			lay := lay
			best = &lay
			bestDist = dist
		}

		built++
		if built >= maxScoringAttempts {
			break
		}
	}

	if isMatched && best != nil {
		return g.assemble(req, baseSeed, tbl, *best), nil
	}
	if lastErr != nil {
		return card.Card{}, lastErr
	}
	return card.Card{}, stepError(StepScoring, "no balanced combination found for seed %d", baseSeed)
}

// build runs steps 2-7 for a single attempt seed.
func (g *Generator) build(attemptSeed int64, mode card.Mode, tbl table.Size, explicit []mapspec.Shape) (layout, error) {
	rng := rand.New(rand.NewSource(attemptSeed))
	limits := g.catalog.LimitsFor(mode)

	deployment, zones, err := g.placeDeploymentZones(rng, mode, tbl)
	if err != nil {
		return layout{}, err
	}

	var pieces []placedPiece
	if explicit == nil {
		pieces, err = g.placeScenography(rng, mode, tbl, limits)
		if err != nil {
			return layout{}, err
		}
	}

	objectives, err := g.placeObjectives(rng, mode, tbl, limits)
	if err != nil {
		return layout{}, err
	}

	rules, err := g.selectSpecialRules(rng, mode, limits)
	if err != nil {
		return layout{}, err
	}

	victory, err := g.selectVictoryConditions(rng, mode)
	if err != nil {
		return layout{}, err
	}

	var hooks []catalog.HookEntry
	if mode == card.ModeCasual || mode == card.ModeNarrative {
		hooks, err = g.selectNarrativeHooks(rng, mode)
		if err != nil {
			return layout{}, err
		}
	}

	shapes := make([]mapspec.Shape, 0, len(zones)+len(explicit)+len(pieces)+len(objectives))
	for _, zone := range zones {
		shapes = append(shapes, zone.Shape)
	}
	if explicit != nil {
		shapes = append(shapes, explicit...)
	} else {
		for _, piece := range pieces {
			shapes = append(shapes, piece.shape)
		}
	}
	for _, obj := range objectives {
		shapes = append(shapes, mapspec.Circle{
			CX: obj.cx, CY: obj.cy, R: ObjectiveRadiusMM,
			Label: obj.entry.Name, AllowOverlap: true,
		})
	}

	spec, err := mapspec.New(tbl, shapes)
	if err != nil {
		// Placement should never produce an invalid spec; treat it as a
		// failed attempt so the retry loop re-rolls.
		return layout{}, stepError(StepScenography, "assembled spec invalid: %v", err)
	}

	lay := layout{
		deployment:  deployment,
		zones:       zones,
		scenography: pieces,
		objectives:  objectives,
		rules:       rules,
		victory:     victory,
		hooks:       hooks,
		spec:        spec,
	}
	lay.score = scoreLayout(lay)
	return lay, nil
}

// assemble turns a layout into the final card. Identity and ownership
// are assigned by the calling use case, never here.
func (g *Generator) assemble(req Request, baseSeed int64, tbl table.Size, lay layout) card.Card {
	content := card.Content{
		DeploymentZones:   lay.zones,
		Scenography:       make([]card.ScenographyPiece, 0, len(lay.scenography)),
		Objectives:        make([]card.Objective, 0, len(lay.objectives)),
		SpecialRules:      make([]card.SpecialRule, 0, len(lay.rules)),
		VictoryConditions: make([]card.VictoryCondition, 0, len(lay.victory)),
	}
	for _, piece := range lay.scenography {
		content.Scenography = append(content.Scenography, card.ScenographyPiece{
			Name:     piece.entry.Name,
			Passable: piece.entry.Passable,
		})
	}
	for _, obj := range lay.objectives {
		content.Objectives = append(content.Objectives, card.Objective{
			Name: obj.entry.Name, CX: obj.cx, CY: obj.cy,
		})
	}
	for _, rule := range lay.rules {
		content.SpecialRules = append(content.SpecialRules, card.SpecialRule{
			Name: rule.Name, Description: rule.Description,
		})
	}
	for _, vc := range lay.victory {
		content.VictoryConditions = append(content.VictoryConditions, card.VictoryCondition{
			Name: vc.Name, Points: vc.Points,
		})
	}
	for _, hook := range lay.hooks {
		content.NarrativeHooks = append(content.NarrativeHooks, hook.Name)
	}
	if req.Mode == card.ModeMatched {
		content.MatchedScore = lay.score
	}

	return card.Card{
		Visibility: card.VisibilityPrivate,
		Mode:       req.Mode,
		Seed:       baseSeed,
		Replicable: len(req.Shapes) == 0,
		Table:      tbl,
		Map:        lay.spec,
		Content:    content,
	}
}

// scoreLayout is the matched-mode aggregate: the mean effective score of
// every selected catalogue entry.
func scoreLayout(lay layout) int {
	total := lay.deployment.EffectiveScore()
	count := 1
	for _, piece := range lay.scenography {
		total += piece.entry.EffectiveScore()
		count++
	}
	for _, obj := range lay.objectives {
		total += obj.entry.EffectiveScore()
		count++
	}
	for _, rule := range lay.rules {
		total += rule.EffectiveScore()
		count++
	}
	for _, vc := range lay.victory {
		total += vc.EffectiveScore()
		count++
	}
	return total / count
}

// resolveTable maps a table request to a Size. An empty preset defaults
// to standard.
func resolveTable(req TableRequest) (table.Size, error) {
	switch req.Preset {
	case "", "standard":
		return table.Standard(), nil
	case "massive":
		return table.Massive(), nil
	case "custom":
		return table.FromCm(req.WidthCm, req.HeightCm)
	default:
		return table.Size{}, fmt.Errorf("%w: unknown table preset %q, must be one of: custom, massive, standard",
			domain.ErrValidation, req.Preset)
	}
}
