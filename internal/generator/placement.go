package generator

import (
	"math/rand"

	"github.com/tabletoptools/scenoforge/internal/catalog"
	"github.com/tabletoptools/scenoforge/internal/domain/card"
	"github.com/tabletoptools/scenoforge/internal/domain/mapspec"
	"github.com/tabletoptools/scenoforge/internal/domain/table"
)

var edgeNames = map[string]string{
	"north": "North zone",
	"south": "South zone",
	"east":  "East zone",
	"west":  "West zone",
}

// DeploymentDepthMM returns the zone depth for a table: a sixth of its
// shorter dimension, so wide tables keep a proportional no-man's-land.
func DeploymentDepthMM(tbl table.Size) int {
	return min(tbl.WidthMM, tbl.HeightMM) / 6
}

// placeDeploymentZones picks a deployment entry that fits the table and
// cuts its zones from the board edges. East/west zones span the full
// table height; north/south zones are inset past them so no two zones
// share territory.
func (g *Generator) placeDeploymentZones(rng *rand.Rand, mode card.Mode, tbl table.Size) (catalog.DeploymentEntry, []card.DeploymentZone, error) {
	candidates := g.catalog.DeploymentsFor(mode)
	if len(candidates) == 0 {
		return catalog.DeploymentEntry{}, nil, stepError(StepDeploymentZones, "catalogue has no deployments for mode %s", mode)
	}

	depth := DeploymentDepthMM(tbl)
	edges := []string{"east", "west", "north", "south"}
	rng.Shuffle(len(edges), func(i, j int) { edges[i], edges[j] = edges[j], edges[i] })

	start := rng.Intn(len(candidates))
	for i := range candidates {
		entry := candidates[(start+i)%len(candidates)]
		if entry.MinTableMM > 0 && min(tbl.WidthMM, tbl.HeightMM) < entry.MinTableMM {
			continue
		}

		zones := make([]card.DeploymentZone, 0, entry.Zones)
		vertical := 0 // east/west zones already claimed
		for _, edge := range edges[:entry.Zones] {
			zones = append(zones, card.DeploymentZone{
				Name:  edgeNames[edge],
				Edge:  edge,
				Shape: edgeZone(tbl, edge, depth, vertical),
			})
			if edge == "east" || edge == "west" {
				vertical++
			}
		}
		return entry, zones, nil
	}
	return catalog.DeploymentEntry{}, nil, stepError(StepDeploymentZones, "no deployment fits a %s table", tbl)
}

// edgeZone cuts one zone rectangle. vertical counts east/west zones laid
// down before this one; north/south zones shrink sideways to clear them.
func edgeZone(tbl table.Size, edge string, depth, vertical int) mapspec.Rect {
	inset := vertical * depth
	switch edge {
	case "east":
		return zoneRect(tbl.WidthMM-depth, 0, depth, tbl.HeightMM, edge)
	case "west":
		return zoneRect(0, 0, depth, tbl.HeightMM, edge)
	case "north":
		return zoneRect(inset, 0, tbl.WidthMM-2*inset, depth, edge)
	default: // south
		return zoneRect(inset, tbl.HeightMM-depth, tbl.WidthMM-2*inset, depth, edge)
	}
}

func zoneRect(x, y, w, h int, edge string) mapspec.Rect {
	return mapspec.Rect{
		X: x, Y: y, Width: w, Height: h,
		Label:        edgeNames[edge],
		AllowOverlap: true,
	}
}

// placeScenography fills the board with terrain pieces. Each piece tries
// catalogue candidates in declaration order from a seeded starting index,
// so different seeds favour different terrain without skipping any entry.
func (g *Generator) placeScenography(rng *rand.Rand, mode card.Mode, tbl table.Size, limits catalog.Limits) ([]placedPiece, error) {
	candidates := g.catalog.ScenographyFor(mode)
	if len(candidates) == 0 {
		return nil, stepError(StepScenography, "catalogue has no scenography for mode %s", mode)
	}

	count := limits.Scenography
	if count >= 2 {
		count = 2 + rng.Intn(count-1)
	}

	pieces := make([]placedPiece, 0, count)
	solids := make([]mapspec.Shape, 0, count)
	for len(pieces) < count {
		start := rng.Intn(len(candidates))
		placed := false
		for j := range candidates {
			entry := candidates[(start+j)%len(candidates)]
			shape, ok := tryPlace(rng, entry, tbl, solids)
			if !ok {
				continue
			}
			pieces = append(pieces, placedPiece{entry: entry, shape: shape})
			if !entry.Passable {
				solids = append(solids, shape)
			}
			placed = true
			break
		}
		if !placed {
			return nil, stepError(StepScenography, "no terrain fits after %d pieces on a %s table", len(pieces), tbl)
		}
	}
	return pieces, nil
}

// tryPlace rolls positions for one catalogue entry until the piece sits
// inside the margins and clear of every solid already on the board.
func tryPlace(rng *rand.Rand, entry catalog.ScenographyEntry, tbl table.Size, solids []mapspec.Shape) (mapspec.Shape, bool) {
	minSize, maxSize := sizeRange(entry, tbl)
	for try := 0; try < maxPlacementTries; try++ {
		size := minSize + rng.Intn(maxSize-minSize+1)
		shape, ok := rollShape(rng, entry, tbl, size)
		if !ok {
			continue
		}
		if entry.Passable || mapspec.NoCollisions(append(solids, shape), mapspec.MinClearanceMM) {
			return shape, true
		}
	}
	return nil, false
}

// sizeRange clamps the entry's size bounds to the table: nothing larger
// than a third of the shorter dimension.
func sizeRange(entry catalog.ScenographyEntry, tbl table.Size) (int, int) {
	minSize := entry.MinSizeMM
	if minSize <= 0 {
		minSize = 50
	}
	maxSize := entry.MaxSizeMM
	ceiling := min(tbl.WidthMM, tbl.HeightMM) / 3
	if maxSize <= 0 || maxSize > ceiling {
		maxSize = ceiling
	}
	if maxSize < minSize {
		maxSize = minSize
	}
	return minSize, maxSize
}

func rollShape(rng *rand.Rand, entry catalog.ScenographyEntry, tbl table.Size, size int) (mapspec.Shape, bool) {
	switch entry.Shape {
	case "circle":
		r := size / 2
		if r < 1 {
			r = 1
		}
		cx, okX := rollCoord(rng, placementMarginMM+r, tbl.WidthMM-placementMarginMM-r)
		cy, okY := rollCoord(rng, placementMarginMM+r, tbl.HeightMM-placementMarginMM-r)
		if !okX || !okY {
			return nil, false
		}
		return mapspec.Circle{CX: cx, CY: cy, R: r, Label: entry.Name, AllowOverlap: entry.Passable}, true
	case "rect":
		w := size
		h := size/2 + rng.Intn(size/2+1)
		x, okX := rollCoord(rng, placementMarginMM, tbl.WidthMM-placementMarginMM-w)
		y, okY := rollCoord(rng, placementMarginMM, tbl.HeightMM-placementMarginMM-h)
		if !okX || !okY {
			return nil, false
		}
		return mapspec.Rect{X: x, Y: y, Width: w, Height: h, Label: entry.Name, AllowOverlap: entry.Passable}, true
	case "polygon":
		// Irregular triangle jittered around a centre point.
		cx, okX := rollCoord(rng, placementMarginMM+size, tbl.WidthMM-placementMarginMM-size)
		cy, okY := rollCoord(rng, placementMarginMM+size, tbl.HeightMM-placementMarginMM-size)
		if !okX || !okY {
			return nil, false
		}
		half := size / 2
		pts := []mapspec.Point{
			{X: cx - half - rng.Intn(half+1), Y: cy + half},
			{X: cx + half + rng.Intn(half+1), Y: cy + half - rng.Intn(half+1)},
			{X: cx + rng.Intn(half+1) - half/2, Y: cy - half - rng.Intn(half+1)},
		}
		return mapspec.Polygon{Points: pts, Label: entry.Name, AllowOverlap: entry.Passable}, true
	default:
		return nil, false
	}
}

// rollCoord picks an integer in [lo, hi], reporting false when the range
// is empty (piece too big for the table).
func rollCoord(rng *rand.Rand, lo, hi int) (int, bool) {
	if hi < lo {
		return 0, false
	}
	return lo + rng.Intn(hi-lo+1), true
}

// placeObjectives scatters objective markers across the middle of the
// board, keeping them out of the deployment strips.
func (g *Generator) placeObjectives(rng *rand.Rand, mode card.Mode, tbl table.Size, limits catalog.Limits) ([]placedObjective, error) {
	if limits.Objectives == 0 {
		return nil, nil
	}
	candidates := g.catalog.ObjectivesFor(mode)
	if len(candidates) == 0 {
		return nil, stepError(StepObjectives, "catalogue has no objectives for mode %s", mode)
	}

	count := 1 + rng.Intn(limits.Objectives)
	margin := DeploymentDepthMM(tbl) + ObjectiveRadiusMM

	objectives := make([]placedObjective, 0, count)
	for i := 0; i < count; i++ {
		entry := candidates[rng.Intn(len(candidates))]
		cx, okX := rollCoord(rng, margin, tbl.WidthMM-margin)
		cy, okY := rollCoord(rng, margin, tbl.HeightMM-margin)
		if !okX || !okY {
			return nil, stepError(StepObjectives, "no room for objectives on a %s table", tbl)
		}
		objectives = append(objectives, placedObjective{entry: entry, cx: cx, cy: cy})
	}
	return objectives, nil
}

// selectSpecialRules draws up to the mode limit of distinct rules. Zero
// rules is a legitimate roll.
func (g *Generator) selectSpecialRules(rng *rand.Rand, mode card.Mode, limits catalog.Limits) ([]catalog.RuleEntry, error) {
	candidates := g.catalog.SpecialRulesFor(mode)
	if len(candidates) == 0 {
		return nil, stepError(StepSpecialRules, "catalogue has no special rules for mode %s", mode)
	}
	count := rng.Intn(min(limits.SpecialRules, len(candidates)) + 1)
	return drawDistinctRules(rng, candidates, count), nil
}

// selectVictoryConditions draws one or two distinct conditions.
func (g *Generator) selectVictoryConditions(rng *rand.Rand, mode card.Mode) ([]catalog.VictoryEntry, error) {
	candidates := g.catalog.VictoryFor(mode)
	if len(candidates) == 0 {
		return nil, stepError(StepVictoryPoints, "catalogue has no victory conditions for mode %s", mode)
	}
	count := 1
	if len(candidates) > 1 && rng.Intn(2) == 1 {
		count = 2
	}
	pool := make([]catalog.VictoryEntry, len(candidates))
	copy(pool, candidates)
	picked := make([]catalog.VictoryEntry, 0, count)
	for i := 0; i < count; i++ {
		idx := rng.Intn(len(pool))
		picked = append(picked, pool[idx])
		pool = append(pool[:idx], pool[idx+1:]...)
	}
	return picked, nil
}

// selectNarrativeHooks draws a single hook for story-driven modes.
func (g *Generator) selectNarrativeHooks(rng *rand.Rand, mode card.Mode) ([]catalog.HookEntry, error) {
	candidates := g.catalog.HooksFor(mode)
	if len(candidates) == 0 {
		return nil, stepError(StepNarrativeHooks, "catalogue has no narrative hooks for mode %s", mode)
	}
	return []catalog.HookEntry{candidates[rng.Intn(len(candidates))]}, nil
}

func drawDistinctRules(rng *rand.Rand, candidates []catalog.RuleEntry, count int) []catalog.RuleEntry {
	pool := make([]catalog.RuleEntry, len(candidates))
	copy(pool, candidates)
	picked := make([]catalog.RuleEntry, 0, count)
	for i := 0; i < count; i++ {
		idx := rng.Intn(len(pool))
		picked = append(picked, pool[idx])
		pool = append(pool[:idx], pool[idx+1:]...)
	}
	return picked
}
