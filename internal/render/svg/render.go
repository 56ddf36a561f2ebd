// Package svg renders scenario maps as SVG documents and normalizes SVG
// payloads before they are stored or served. The emitter writes only the
// minimal subset of SVG the sanitizer accepts, so every rendered map
// round-trips through Normalize unchanged in meaning.
package svg

import (
	"fmt"
	"html"
	"strings"

	"github.com/tabletoptools/scenoforge/internal/domain/card"
	"github.com/tabletoptools/scenoforge/internal/domain/mapspec"
	"github.com/tabletoptools/scenoforge/internal/domain/table"
)

// Default paints per shape role. Deployment zones read as translucent
// blue panels, terrain as muted grey, polygons as red hazard ground, and
// objective markers as solid black dots.
const (
	zoneFill      = "rgba(100,150,250,0.3)"
	zoneStroke    = "#4070c0"
	terrainFill   = "rgba(128,128,128,0.2)"
	terrainStroke = "#666"
	polygonFill   = "rgba(250,100,100,0.3)"
	polygonStroke = "#c04040"
)

const labelFontSize = 16

// Render emits the card's map as an SVG document sized in millimetres.
// Shapes draw in spec order, so deployment zones sit under terrain and
// objective markers paint last. The output always passes Normalize.
func Render(c card.Card) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`,
		c.Table.WidthMM, c.Table.HeightMM, c.Table.WidthMM, c.Table.HeightMM)

	zoneUntil := len(c.Content.DeploymentZones)
	markerFrom := len(c.Map.Shapes) - len(c.Content.Objectives)
	for i, shape := range c.Map.Shapes {
		writeShape(&b, shape, i < zoneUntil, i >= markerFrom)
	}
	for _, zone := range c.Content.DeploymentZones {
		writeZoneLabel(&b, zone)
	}
	// Zone names come from Content above; terrain and markers carry
	// their labels on the shapes themselves.
	for i, shape := range c.Map.Shapes[zoneUntil:] {
		writeShapeLabel(&b, shape, c.Table, zoneUntil+i >= markerFrom)
	}

	b.WriteString("</svg>")
	return b.String()
}

func writeShape(b *strings.Builder, shape mapspec.Shape, zone, marker bool) {
	switch s := shape.(type) {
	case mapspec.Rect:
		fill, stroke := terrainFill, terrainStroke
		if zone {
			fill, stroke = zoneFill, zoneStroke
		}
		fmt.Fprintf(b, `<rect x="%d" y="%d" width="%d" height="%d" fill="%s" stroke="%s" stroke-width="2" />`,
			s.X, s.Y, s.Width, s.Height, fill, stroke)
	case mapspec.Circle:
		if marker {
			fmt.Fprintf(b, `<circle cx="%d" cy="%d" r="%d" fill="black" stroke="black" />`, s.CX, s.CY, s.R)
			return
		}
		fmt.Fprintf(b, `<circle cx="%d" cy="%d" r="%d" fill="%s" stroke="%s" stroke-width="2" />`,
			s.CX, s.CY, s.R, terrainFill, terrainStroke)
	case mapspec.Polygon:
		pts := make([]string, len(s.Points))
		for i, p := range s.Points {
			pts[i] = fmt.Sprintf("%d,%d", p.X, p.Y)
		}
		fmt.Fprintf(b, `<polygon points="%s" fill="%s" stroke="%s" stroke-width="2" />`,
			strings.Join(pts, " "), polygonFill, polygonStroke)
	}
}

// writeZoneLabel centres the zone name inside its rectangle, rotated to
// read along east and west strips.
func writeZoneLabel(b *strings.Builder, zone card.DeploymentZone) {
	x := zone.Shape.X + zone.Shape.Width/2
	y := zone.Shape.Y + zone.Shape.Height/2
	text := textLabel(x, y, zone.Name)

	switch zone.Edge {
	case "east":
		fmt.Fprintf(b, `<g transform="rotate(90 %d %d)">%s</g>`, x, y, text)
	case "west":
		fmt.Fprintf(b, `<g transform="rotate(-90 %d %d)">%s</g>`, x, y, text)
	default:
		b.WriteString(text)
	}
}

// markerLabelOffsetMM keeps objective labels clear of the 25mm marker.
const markerLabelOffsetMM = 50

// writeShapeLabel names a terrain piece at its centre, or an objective
// marker just above its dot, falling back to below near the top edge.
func writeShapeLabel(b *strings.Builder, shape mapspec.Shape, tbl table.Size, marker bool) {
	label := shapeLabel(shape)
	if label == "" {
		return
	}
	x, y := shapeCenter(shape)
	if marker {
		y -= markerLabelOffsetMM
		if y < labelFontSize {
			_, cy := shapeCenter(shape)
			y = cy + markerLabelOffsetMM
		}
		if y > tbl.HeightMM-labelFontSize {
			y = tbl.HeightMM - labelFontSize
		}
	}
	b.WriteString(textLabel(x, y, label))
}

func shapeLabel(shape mapspec.Shape) string {
	switch s := shape.(type) {
	case mapspec.Rect:
		return s.Label
	case mapspec.Circle:
		return s.Label
	case mapspec.Polygon:
		return s.Label
	}
	return ""
}

func shapeCenter(shape mapspec.Shape) (int, int) {
	switch s := shape.(type) {
	case mapspec.Rect:
		return s.X + s.Width/2, s.Y + s.Height/2
	case mapspec.Circle:
		return s.CX, s.CY
	case mapspec.Polygon:
		if len(s.Points) == 0 {
			return 0, 0
		}
		var sx, sy int
		for _, p := range s.Points {
			sx += p.X
			sy += p.Y
		}
		return sx / len(s.Points), sy / len(s.Points)
	}
	return 0, 0
}

func textLabel(x, y int, label string) string {
	return fmt.Sprintf(`<text x="%d" y="%d" text-anchor="middle" dominant-baseline="middle" font-size="%d" font-family="Arial, sans-serif" fill="#000" font-weight="bold">%s</text>`,
		x, y, labelFontSize, html.EscapeString(label))
}
