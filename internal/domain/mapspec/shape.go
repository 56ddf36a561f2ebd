// Package mapspec provides the validated collection of geometric shapes
// occupying a scenario table. Shapes form a closed set of variants
// (circle, rect, polygon); validation and rendering both dispatch
// exhaustively so a new variant cannot be half-supported.
package mapspec

import (
	"fmt"
	"math"

	"github.com/tabletoptools/scenoforge/internal/domain"
)

// Validation sentinels. All unwrap to domain.ErrValidation.
var (
	// ErrUnknownShapeType indicates a shape with an unrecognized type tag.
	ErrUnknownShapeType = fmt.Errorf("%w: unknown shape type", domain.ErrValidation)
	// ErrInvalidCoordinate indicates a missing or non-integer numeric field.
	ErrInvalidCoordinate = fmt.Errorf("%w: invalid coordinate", domain.ErrValidation)
	// ErrOutOfBounds indicates a shape extending beyond the table.
	ErrOutOfBounds = fmt.Errorf("%w: out of bounds", domain.ErrValidation)
	// ErrTooManyShapes indicates the per-spec shape budget was exceeded.
	ErrTooManyShapes = fmt.Errorf("%w: too many shapes", domain.ErrValidation)
	// ErrPolygonPoints indicates a polygon with too few or too many points.
	ErrPolygonPoints = fmt.Errorf("%w: invalid polygon point count", domain.ErrValidation)
)

// Kind tags the closed set of shape variants.
type Kind string

const (
	KindCircle  Kind = "circle"
	KindRect    Kind = "rect"
	KindPolygon Kind = "polygon"
)

// Shape is the closed variant set over circle, rect, and polygon.
// All coordinates are millimeters from the table's north-west corner.
type Shape interface {
	Kind() Kind
	sealed()
}

// Point is a polygon vertex in millimeters.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Circle is a circular shape centered at (CX, CY).
type Circle struct {
	CX           int    `json:"cx"`
	CY           int    `json:"cy"`
	R            int    `json:"r"`
	Label        string `json:"label,omitempty"`
	AllowOverlap bool   `json:"allow_overlap,omitempty"`
}

// Rect is an axis-aligned rectangle anchored at its north-west corner.
type Rect struct {
	X            int    `json:"x"`
	Y            int    `json:"y"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Label        string `json:"label,omitempty"`
	AllowOverlap bool   `json:"allow_overlap,omitempty"`
}

// Polygon is a closed polygon described by its ordered vertices.
type Polygon struct {
	Points       []Point `json:"points"`
	Label        string  `json:"label,omitempty"`
	AllowOverlap bool    `json:"allow_overlap,omitempty"`
}

func (Circle) Kind() Kind  { return KindCircle }
func (Rect) Kind() Kind    { return KindRect }
func (Polygon) Kind() Kind { return KindPolygon }

func (Circle) sealed()  {}
func (Rect) sealed()    {}
func (Polygon) sealed() {}

// RawShape is an unvalidated shape as supplied by an external caller.
// Numeric fields are pointers so a missing field is distinguishable
// from zero; values must be whole numbers.
type RawShape struct {
	Type         string     `json:"type" yaml:"type"`
	Label        string     `json:"label,omitempty" yaml:"label,omitempty"`
	AllowOverlap bool       `json:"allow_overlap,omitempty" yaml:"allow_overlap,omitempty"`
	CX           *float64   `json:"cx,omitempty" yaml:"cx,omitempty"`
	CY           *float64   `json:"cy,omitempty" yaml:"cy,omitempty"`
	R            *float64   `json:"r,omitempty" yaml:"r,omitempty"`
	X            *float64   `json:"x,omitempty" yaml:"x,omitempty"`
	Y            *float64   `json:"y,omitempty" yaml:"y,omitempty"`
	Width        *float64   `json:"width,omitempty" yaml:"width,omitempty"`
	Height       *float64   `json:"height,omitempty" yaml:"height,omitempty"`
	Points       []RawPoint `json:"points,omitempty" yaml:"points,omitempty"`
}

// RawPoint is an unvalidated polygon vertex.
type RawPoint struct {
	X *float64 `json:"x" yaml:"x"`
	Y *float64 `json:"y" yaml:"y"`
}

// ParseShape converts a raw shape into its validated variant. Geometry
// bounds are not checked here; that happens against a table in New.
func ParseShape(raw RawShape) (Shape, error) {
	switch Kind(raw.Type) {
	case KindCircle:
		cx, err := coerceInt("cx", raw.CX)
		if err != nil {
			return nil, err
		}
		cy, err := coerceInt("cy", raw.CY)
		if err != nil {
			return nil, err
		}
		r, err := coerceInt("r", raw.R)
		if err != nil {
			return nil, err
		}
		return Circle{CX: cx, CY: cy, R: r, Label: raw.Label, AllowOverlap: raw.AllowOverlap}, nil
	case KindRect:
		x, err := coerceInt("x", raw.X)
		if err != nil {
			return nil, err
		}
		y, err := coerceInt("y", raw.Y)
		if err != nil {
			return nil, err
		}
		w, err := coerceInt("width", raw.Width)
		if err != nil {
			return nil, err
		}
		h, err := coerceInt("height", raw.Height)
		if err != nil {
			return nil, err
		}
		return Rect{X: x, Y: y, Width: w, Height: h, Label: raw.Label, AllowOverlap: raw.AllowOverlap}, nil
	case KindPolygon:
		if len(raw.Points) < MinPolygonPoints || len(raw.Points) > MaxPolygonPoints {
			return nil, fmt.Errorf("%w: got %d points, want %d..%d",
				ErrPolygonPoints, len(raw.Points), MinPolygonPoints, MaxPolygonPoints)
		}
		points := make([]Point, len(raw.Points))
		for i, rp := range raw.Points {
			x, err := coerceInt(fmt.Sprintf("points[%d].x", i), rp.X)
			if err != nil {
				return nil, err
			}
			y, err := coerceInt(fmt.Sprintf("points[%d].y", i), rp.Y)
			if err != nil {
				return nil, err
			}
			points[i] = Point{X: x, Y: y}
		}
		return Polygon{Points: points, Label: raw.Label, AllowOverlap: raw.AllowOverlap}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownShapeType, raw.Type)
	}
}

// Raw converts a validated shape back to its wire form, for storage and
// API responses. ParseShape(Raw(s)) always reproduces s.
func Raw(s Shape) RawShape {
	switch v := s.(type) {
	case Circle:
		return RawShape{
			Type: string(KindCircle), Label: v.Label, AllowOverlap: v.AllowOverlap,
			CX: rawNum(v.CX), CY: rawNum(v.CY), R: rawNum(v.R),
		}
	case Rect:
		return RawShape{
			Type: string(KindRect), Label: v.Label, AllowOverlap: v.AllowOverlap,
			X: rawNum(v.X), Y: rawNum(v.Y), Width: rawNum(v.Width), Height: rawNum(v.Height),
		}
	case Polygon:
		points := make([]RawPoint, len(v.Points))
		for i, p := range v.Points {
			points[i] = RawPoint{X: rawNum(p.X), Y: rawNum(p.Y)}
		}
		return RawShape{
			Type: string(KindPolygon), Label: v.Label, AllowOverlap: v.AllowOverlap,
			Points: points,
		}
	default:
		return RawShape{}
	}
}

func rawNum(v int) *float64 {
	f := float64(v)
	return &f
}

// coerceInt requires a present, whole, in-range numeric field.
func coerceInt(field string, value *float64) (int, error) {
	if value == nil {
		return 0, fmt.Errorf("%w: %s is required", ErrInvalidCoordinate, field)
	}
	v := *value
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
		return 0, fmt.Errorf("%w: %s must be an integer, got %v", ErrInvalidCoordinate, field, v)
	}
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %s is out of range", ErrInvalidCoordinate, field)
	}
	return int(v), nil
}
