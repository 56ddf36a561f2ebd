package svg

import (
	"errors"
	"strings"
	"testing"

	"github.com/tabletoptools/scenoforge/internal/domain"
	"github.com/tabletoptools/scenoforge/internal/domain/card"
	"github.com/tabletoptools/scenoforge/internal/domain/mapspec"
	"github.com/tabletoptools/scenoforge/internal/domain/table"
)

func testCard(t *testing.T) card.Card {
	t.Helper()
	tbl := table.Standard()
	shapes := []mapspec.Shape{
		mapspec.Rect{X: 0, Y: 0, Width: 200, Height: 1200, Label: "West zone", AllowOverlap: true},
		mapspec.Circle{CX: 600, CY: 600, R: 80, Label: "Plaza fountain"},
		mapspec.Polygon{Points: []mapspec.Point{{X: 300, Y: 300}, {X: 400, Y: 320}, {X: 350, Y: 250}}, Label: "Rubble"},
		mapspec.Circle{CX: 800, CY: 400, R: 25, Label: "Field altar", AllowOverlap: true},
	}
	spec, err := mapspec.New(tbl, shapes)
	if err != nil {
		t.Fatalf("build spec: %v", err)
	}
	return card.Card{
		Table: tbl,
		Map:   spec,
		Content: card.Content{
			DeploymentZones: []card.DeploymentZone{
				{Name: "West zone", Edge: "west", Shape: mapspec.Rect{X: 0, Y: 0, Width: 200, Height: 1200}},
			},
			Objectives: []card.Objective{{Name: "Field altar", CX: 800, CY: 400}},
		},
	}
}

// TestRenderEmitsAllShapes checks each shape kind appears once with the
// table dimensions in the header.
func TestRenderEmitsAllShapes(t *testing.T) {
	out := Render(testCard(t))

	if !strings.HasPrefix(out, `<svg xmlns="http://www.w3.org/2000/svg" width="1200" height="1200" viewBox="0 0 1200 1200">`) {
		t.Fatalf("unexpected header: %s", out[:min(len(out), 120)])
	}
	if got := strings.Count(out, "<rect "); got != 1 {
		t.Fatalf("rect count = %d, want 1", got)
	}
	if got := strings.Count(out, "<circle "); got != 2 {
		t.Fatalf("circle count = %d, want 2", got)
	}
	if got := strings.Count(out, "<polygon "); got != 1 {
		t.Fatalf("polygon count = %d, want 1", got)
	}
	if !strings.Contains(out, `<circle cx="800" cy="400" r="25" fill="black" stroke="black" />`) {
		t.Fatal("objective marker not rendered as black circle")
	}
	if !strings.HasSuffix(out, "</svg>") {
		t.Fatal("missing closing tag")
	}
}

// TestRenderRectFillsFollowRole checks rectangular terrain paints grey
// while deployment zone rects keep the blue panel style.
func TestRenderRectFillsFollowRole(t *testing.T) {
	c := testCard(t)
	tbl := c.Table
	shapes := []mapspec.Shape{
		mapspec.Rect{X: 0, Y: 0, Width: 200, Height: 1200, Label: "West zone", AllowOverlap: true},
		mapspec.Rect{X: 500, Y: 500, Width: 120, Height: 80, Label: "Ruined barn"},
		mapspec.Circle{CX: 800, CY: 400, R: 25, Label: "Field altar", AllowOverlap: true},
	}
	spec, err := mapspec.New(tbl, shapes)
	if err != nil {
		t.Fatalf("build spec: %v", err)
	}
	c.Map = spec

	out := Render(c)
	zoneRect := `<rect x="0" y="0" width="200" height="1200" fill="` + zoneFill + `" stroke="` + zoneStroke + `"`
	if !strings.Contains(out, zoneRect) {
		t.Fatal("zone rect lost the zone style")
	}
	terrainRect := `<rect x="500" y="500" width="120" height="80" fill="` + terrainFill + `" stroke="` + terrainStroke + `"`
	if !strings.Contains(out, terrainRect) {
		t.Fatal("terrain rect painted with the zone style")
	}
}

// TestRenderZoneLabelRotation checks east/west labels rotate while
// north/south labels stay level.
func TestRenderZoneLabelRotation(t *testing.T) {
	c := testCard(t)
	c.Content.DeploymentZones = append(c.Content.DeploymentZones, card.DeploymentZone{
		Name: "North zone", Edge: "north", Shape: mapspec.Rect{X: 200, Y: 0, Width: 800, Height: 200},
	})

	out := Render(c)
	if !strings.Contains(out, `<g transform="rotate(-90 100 600)">`) {
		t.Fatal("west label not rotated")
	}
	if !strings.Contains(out, ">North zone</text>") {
		t.Fatal("north label missing or wrapped")
	}
	if strings.Contains(out, "rotate(90 600 100)") {
		t.Fatal("north label must not rotate")
	}
}

// TestRenderEscapesLabels checks hostile zone names render inert.
func TestRenderEscapesLabels(t *testing.T) {
	c := testCard(t)
	c.Content.DeploymentZones[0].Name = `<script>alert(1)</script>`

	out := Render(c)
	if strings.Contains(out, "<script>") {
		t.Fatal("label markup not escaped")
	}
	if !strings.Contains(out, "&lt;script&gt;") {
		t.Fatal("escaped label missing")
	}
}

// TestRenderShapeLabels checks terrain pieces are named at their centre
// and objective labels sit clear of the marker dot.
func TestRenderShapeLabels(t *testing.T) {
	out := Render(testCard(t))

	if !strings.Contains(out, `<text x="600" y="600"`) || !strings.Contains(out, ">Plaza fountain</text>") {
		t.Fatal("terrain label not centred on the circle")
	}
	if !strings.Contains(out, ">Rubble</text>") {
		t.Fatal("polygon label missing")
	}
	if !strings.Contains(out, `<text x="800" y="350"`) || !strings.Contains(out, ">Field altar</text>") {
		t.Fatal("objective label not offset above the marker")
	}
}

// TestRenderShapeLabelNearTopEdgeFlipsBelow checks a marker hugging the
// north edge pushes its label below the dot instead of off the table.
func TestRenderShapeLabelNearTopEdgeFlipsBelow(t *testing.T) {
	c := testCard(t)
	tbl := c.Table
	spec, err := mapspec.New(tbl, []mapspec.Shape{
		mapspec.Rect{X: 0, Y: 0, Width: 200, Height: 1200, AllowOverlap: true},
		mapspec.Circle{CX: 600, CY: 30, R: 25, Label: "Watch post", AllowOverlap: true},
	})
	if err != nil {
		t.Fatalf("build spec: %v", err)
	}
	c.Map = spec
	c.Content.Objectives = []card.Objective{{Name: "Watch post", CX: 600, CY: 30}}

	out := Render(c)
	if !strings.Contains(out, `<text x="600" y="80"`) {
		t.Fatal("edge-hugging marker label not flipped below the dot")
	}
}

// TestRenderEscapesShapeLabels checks hostile terrain names render
// inert, matching the zone label treatment.
func TestRenderEscapesShapeLabels(t *testing.T) {
	c := testCard(t)
	tbl := c.Table
	spec, err := mapspec.New(tbl, []mapspec.Shape{
		mapspec.Rect{X: 0, Y: 0, Width: 200, Height: 1200, AllowOverlap: true},
		mapspec.Circle{CX: 600, CY: 600, R: 80, Label: `<script>alert(1)</script>`},
	})
	if err != nil {
		t.Fatalf("build spec: %v", err)
	}
	c.Map = spec
	c.Content.Objectives = nil

	out := Render(c)
	if strings.Contains(out, "<script>") {
		t.Fatal("shape label markup not escaped")
	}
	if !strings.Contains(out, "&lt;script&gt;") {
		t.Fatal("escaped shape label missing")
	}
}

// TestRenderOutputNormalizes checks the emitter stays inside the
// sanitizer's allowlist.
func TestRenderOutputNormalizes(t *testing.T) {
	out := Render(testCard(t))
	if _, err := Normalize(out); err != nil {
		t.Fatalf("rendered output rejected by Normalize: %v", err)
	}
}

// TestNormalizePreservesSimpleDocument checks a plain document survives
// with its geometry intact.
func TestNormalizePreservesSimpleDocument(t *testing.T) {
	in := `<svg xmlns="http://www.w3.org/2000/svg" width="100" height="100" viewBox="0 0 100 100"><rect x="1" y="2" width="3" height="4" fill="#4070c0" /></svg>`

	out, err := Normalize(in)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if got := strings.Count(out, "<rect"); got != 1 {
		t.Fatalf("rect count = %d, want 1", got)
	}
	for _, want := range []string{`x="1"`, `y="2"`, `width="3"`, `height="4"`, `fill="#4070c0"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("output %q missing %q", out, want)
		}
	}
}

// TestNormalizeStripsNamespacePrefixes checks prefixed declarations
// disappear and tags come back bare.
func TestNormalizeStripsNamespacePrefixes(t *testing.T) {
	in := `<svg xmlns="http://www.w3.org/2000/svg" width="10" height="10" viewBox="0 0 10 10"><circle cx="5" cy="5" r="2" /></svg>`

	out, err := Normalize(in)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if strings.Contains(out, "ns0:") {
		t.Fatalf("namespace prefix leaked: %q", out)
	}
	if !strings.Contains(out, "<circle") {
		t.Fatalf("circle missing: %q", out)
	}
}

// TestNormalizeRejectsHostileInput covers the forbidden constructs.
func TestNormalizeRejectsHostileInput(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"doctype", `<!DOCTYPE svg [<!ELEMENT svg ANY>]><svg width="1" height="1" viewBox="0 0 1 1"></svg>`},
		{"entity", `<!ENTITY xxe SYSTEM "file:///etc/passwd"><svg></svg>`},
		{"script tag", `<svg width="1" height="1" viewBox="0 0 1 1"><script>alert(1)</script></svg>`},
		{"event handler", `<svg width="1" height="1" viewBox="0 0 1 1"><rect x="0" y="0" width="1" height="1" onclick="alert(1)" /></svg>`},
		{"href", `<svg width="1" height="1" viewBox="0 0 1 1"><text x="0" y="0" href="https://example.com">x</text></svg>`},
		{"style attr", `<svg width="1" height="1" viewBox="0 0 1 1"><rect x="0" y="0" width="1" height="1" style="fill:red" /></svg>`},
		{"url paint", `<svg width="1" height="1" viewBox="0 0 1 1"><rect x="0" y="0" width="1" height="1" fill="url(#evil)" /></svg>`},
		{"javascript paint", `<svg width="1" height="1" viewBox="0 0 1 1"><rect x="0" y="0" width="1" height="1" stroke="javascript:alert(1)" /></svg>`},
		{"non-integer coord", `<svg width="1" height="1" viewBox="0 0 1 1"><rect x="1e3" y="0" width="1" height="1" /></svg>`},
		{"bad viewBox", `<svg width="1" height="1" viewBox="0 0 1"></svg>`},
		{"polygon points injection", `<svg width="1" height="1" viewBox="0 0 1 1"><polygon points="0,0 1,1 url(#x)" /></svg>`},
		{"foreign root", `<html><body>x</body></html>`},
		{"unclosed tag", `<svg width="1" height="1" viewBox="0 0 1 1"><rect`},
		{"empty", ``},
	}
	for _, tc := range cases {
		_, err := Normalize(tc.in)
		if err == nil {
			t.Fatalf("%s: accepted", tc.name)
		}
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("%s: err = %v, want domain.ErrValidation", tc.name, err)
		}
	}
}

// TestNormalizeEscapesTextContent checks character data comes back
// escaped rather than raw.
func TestNormalizeEscapesTextContent(t *testing.T) {
	in := `<svg width="10" height="10" viewBox="0 0 10 10"><text x="1" y="1">a &amp; b</text></svg>`

	out, err := Normalize(in)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if !strings.Contains(out, "a &amp; b") {
		t.Fatalf("text content mangled: %q", out)
	}
}
