package mapspec

import (
	"fmt"

	"github.com/tabletoptools/scenoforge/internal/domain/table"
)

// Shape budgets.
const (
	MaxShapes        = 100
	MaxPolygonPoints = 200
	MinPolygonPoints = 3
)

// Spec is a validated, ordered collection of shapes on a table. Order is
// draw order: later shapes render on top. A Spec is never mutated after
// construction; edits build a new one.
type Spec struct {
	Table  table.Size
	Shapes []Shape
}

// New validates shapes against the table and freezes them into a Spec.
// Validation is all-or-nothing: the first violation aborts construction.
func New(tbl table.Size, shapes []Shape) (Spec, error) {
	if len(shapes) > MaxShapes {
		return Spec{}, fmt.Errorf("%w: got %d, limit %d", ErrTooManyShapes, len(shapes), MaxShapes)
	}
	for i, shape := range shapes {
		if err := CheckBounds(shape, tbl); err != nil {
			return Spec{}, fmt.Errorf("shape %d: %w", i, err)
		}
	}
	frozen := make([]Shape, len(shapes))
	copy(frozen, shapes)
	return Spec{Table: tbl, Shapes: frozen}, nil
}

// FromRaw parses and validates externally supplied raw shapes. The shape
// count is rejected before any per-shape work so oversized payloads fail
// cheaply.
func FromRaw(tbl table.Size, raws []RawShape) (Spec, error) {
	if len(raws) > MaxShapes {
		return Spec{}, fmt.Errorf("%w: got %d, limit %d", ErrTooManyShapes, len(raws), MaxShapes)
	}
	shapes := make([]Shape, 0, len(raws))
	for i, raw := range raws {
		shape, err := ParseShape(raw)
		if err != nil {
			return Spec{}, fmt.Errorf("shape %d: %w", i, err)
		}
		shapes = append(shapes, shape)
	}
	return New(tbl, shapes)
}

// CheckBounds verifies a single shape lies fully inside the table and has
// positive extents. The type switch is exhaustive over the sealed set.
func CheckBounds(shape Shape, tbl table.Size) error {
	w, h := tbl.WidthMM, tbl.HeightMM
	switch s := shape.(type) {
	case Circle:
		if s.R <= 0 {
			return fmt.Errorf("%w: circle radius must be positive, got %d", ErrInvalidCoordinate, s.R)
		}
		if s.CX-s.R < 0 || s.CY-s.R < 0 || s.CX+s.R > w || s.CY+s.R > h {
			return fmt.Errorf("%w: circle (%d,%d) r=%d exceeds %dx%d table", ErrOutOfBounds, s.CX, s.CY, s.R, w, h)
		}
		return nil
	case Rect:
		if s.Width <= 0 || s.Height <= 0 {
			return fmt.Errorf("%w: rect extents must be positive, got %dx%d", ErrInvalidCoordinate, s.Width, s.Height)
		}
		if s.X < 0 || s.Y < 0 || s.X+s.Width > w || s.Y+s.Height > h {
			return fmt.Errorf("%w: rect (%d,%d) %dx%d exceeds %dx%d table", ErrOutOfBounds, s.X, s.Y, s.Width, s.Height, w, h)
		}
		return nil
	case Polygon:
		if len(s.Points) < MinPolygonPoints || len(s.Points) > MaxPolygonPoints {
			return fmt.Errorf("%w: got %d points, want %d..%d",
				ErrPolygonPoints, len(s.Points), MinPolygonPoints, MaxPolygonPoints)
		}
		for i, p := range s.Points {
			if p.X < 0 || p.Y < 0 || p.X > w || p.Y > h {
				return fmt.Errorf("%w: polygon point %d (%d,%d) exceeds %dx%d table", ErrOutOfBounds, i, p.X, p.Y, w, h)
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: %T", ErrUnknownShapeType, shape)
	}
}
