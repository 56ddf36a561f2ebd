package mapspec

import (
	"errors"
	"testing"

	"github.com/tabletoptools/scenoforge/internal/domain"
	"github.com/tabletoptools/scenoforge/internal/domain/table"
)

func f(v float64) *float64 { return &v }

// TestNewAcceptsShapesInsideTable ensures valid shapes build a frozen spec.
func TestNewAcceptsShapesInsideTable(t *testing.T) {
	tbl := table.Standard()
	shapes := []Shape{
		Rect{X: 0, Y: 0, Width: 1200, Height: 1200},
		Circle{CX: 600, CY: 600, R: 100},
		Polygon{Points: []Point{{0, 0}, {100, 0}, {50, 100}}},
	}
	spec, err := New(tbl, shapes)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if len(spec.Shapes) != 3 {
		t.Fatalf("expected 3 shapes, got %d", len(spec.Shapes))
	}
	// Mutating the input slice must not reach the frozen spec.
	shapes[0] = Circle{CX: 1, CY: 1, R: 1}
	if _, ok := spec.Shapes[0].(Rect); !ok {
		t.Fatalf("spec shapes were not copied on construction")
	}
}

// TestNewPreservesDrawOrder ensures input order survives validation.
func TestNewPreservesDrawOrder(t *testing.T) {
	tbl := table.Standard()
	spec, err := New(tbl, []Shape{
		Circle{CX: 100, CY: 100, R: 50, Label: "first"},
		Circle{CX: 300, CY: 300, R: 50, Label: "second"},
		Rect{X: 500, Y: 500, Width: 100, Height: 100, Label: "third"},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if spec.Shapes[0].(Circle).Label != "first" || spec.Shapes[1].(Circle).Label != "second" {
		t.Fatalf("shape order not preserved: %+v", spec.Shapes)
	}
	if spec.Shapes[2].(Rect).Label != "third" {
		t.Fatalf("shape order not preserved: %+v", spec.Shapes)
	}
}

// TestShapeCountLimitCheckedBeforeBounds ensures 101 shapes fail on the
// count budget even when every shape would also be out of bounds.
func TestShapeCountLimitCheckedBeforeBounds(t *testing.T) {
	tbl := table.Standard()
	raws := make([]RawShape, MaxShapes+1)
	for i := range raws {
		// Deliberately out of bounds; the count check must fire first.
		raws[i] = RawShape{Type: "circle", CX: f(9999), CY: f(9999), R: f(50)}
	}
	_, err := FromRaw(tbl, raws)
	if !errors.Is(err, ErrTooManyShapes) {
		t.Fatalf("FromRaw error = %v, want %v", err, ErrTooManyShapes)
	}
}

// TestFromRawRejectsUnknownType ensures unknown type tags fail immediately.
func TestFromRawRejectsUnknownType(t *testing.T) {
	_, err := FromRaw(table.Standard(), []RawShape{{Type: "star", CX: f(100), CY: f(100)}})
	if !errors.Is(err, ErrUnknownShapeType) {
		t.Fatalf("FromRaw error = %v, want %v", err, ErrUnknownShapeType)
	}
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("unknown shape type should classify as validation error, got %v", err)
	}
}

// TestFromRawRejectsNonIntegerCoordinates ensures fractional and missing
// numeric fields surface ErrInvalidCoordinate.
func TestFromRawRejectsNonIntegerCoordinates(t *testing.T) {
	tcs := []struct {
		name string
		raw  RawShape
	}{
		{"fractional radius", RawShape{Type: "circle", CX: f(100), CY: f(100), R: f(10.5)}},
		{"missing cy", RawShape{Type: "circle", CX: f(100), R: f(10)}},
		{"missing rect width", RawShape{Type: "rect", X: f(0), Y: f(0), Height: f(10)}},
		{"fractional point", RawShape{Type: "polygon", Points: []RawPoint{
			{X: f(0), Y: f(0)}, {X: f(10), Y: f(0)}, {X: f(5.5), Y: f(10)},
		}}},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := FromRaw(table.Standard(), []RawShape{tc.raw}); !errors.Is(err, ErrInvalidCoordinate) {
				t.Fatalf("FromRaw error = %v, want %v", err, ErrInvalidCoordinate)
			}
		})
	}
}

// TestCheckBoundsRejectsShapesOutsideTable covers each variant's bounds.
func TestCheckBoundsRejectsShapesOutsideTable(t *testing.T) {
	tbl := table.Standard() // 1200x1200 mm
	tcs := []struct {
		name  string
		shape Shape
	}{
		{"circle crossing west edge", Circle{CX: 40, CY: 600, R: 50}},
		{"circle crossing south edge", Circle{CX: 600, CY: 1180, R: 50}},
		{"rect crossing east edge", Rect{X: 1150, Y: 0, Width: 100, Height: 100}},
		{"rect negative origin", Rect{X: -1, Y: 0, Width: 100, Height: 100}},
		{"polygon point past north edge", Polygon{Points: []Point{{0, 0}, {100, 0}, {50, 1300}}}},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tbl, []Shape{tc.shape}); !errors.Is(err, ErrOutOfBounds) {
				t.Fatalf("New error = %v, want %v", err, ErrOutOfBounds)
			}
		})
	}
}

// TestPolygonPointBudget enforces the 3..200 vertex rule.
func TestPolygonPointBudget(t *testing.T) {
	tbl := table.Standard()
	if _, err := New(tbl, []Shape{Polygon{Points: []Point{{0, 0}, {1, 1}}}}); !errors.Is(err, ErrPolygonPoints) {
		t.Fatalf("2-point polygon error = %v, want %v", err, ErrPolygonPoints)
	}
	big := make([]Point, MaxPolygonPoints+1)
	for i := range big {
		big[i] = Point{X: i % 1200, Y: (i * 7) % 1200}
	}
	if _, err := New(tbl, []Shape{Polygon{Points: big}}); !errors.Is(err, ErrPolygonPoints) {
		t.Fatalf("201-point polygon error = %v, want %v", err, ErrPolygonPoints)
	}
}

// TestNonPositiveExtentsRejected covers degenerate circles and rects.
func TestNonPositiveExtentsRejected(t *testing.T) {
	tbl := table.Standard()
	if _, err := New(tbl, []Shape{Circle{CX: 600, CY: 600, R: 0}}); !errors.Is(err, ErrInvalidCoordinate) {
		t.Fatalf("zero radius error = %v, want %v", err, ErrInvalidCoordinate)
	}
	if _, err := New(tbl, []Shape{Rect{X: 0, Y: 0, Width: 0, Height: 10}}); !errors.Is(err, ErrInvalidCoordinate) {
		t.Fatalf("zero width error = %v, want %v", err, ErrInvalidCoordinate)
	}
}
