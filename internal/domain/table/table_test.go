package table

import (
	"errors"
	"testing"

	"github.com/tabletoptools/scenoforge/internal/domain"
)

// TestFromCmConvertsToMillimeters ensures cm input lands in whole mm.
func TestFromCmConvertsToMillimeters(t *testing.T) {
	size, err := FromCm(120, 120)
	if err != nil {
		t.Fatalf("FromCm returned error: %v", err)
	}
	if size.WidthMM != 1200 || size.HeightMM != 1200 {
		t.Fatalf("expected 1200x1200 mm, got %dx%d", size.WidthMM, size.HeightMM)
	}
}

// TestFromCmRoundsHalfUp ensures 0.05 cm fractions round up to 0.1 cm.
func TestFromCmRoundsHalfUp(t *testing.T) {
	size, err := FromCm(120.05, 120.04)
	if err != nil {
		t.Fatalf("FromCm returned error: %v", err)
	}
	if size.WidthMM != 1201 {
		t.Fatalf("expected width 1201 mm, got %d", size.WidthMM)
	}
	if size.HeightMM != 1200 {
		t.Fatalf("expected height 1200 mm, got %d", size.HeightMM)
	}
}

// TestFromCmRejectsOutOfRange ensures the [60,300] cm limits hold per axis.
func TestFromCmRejectsOutOfRange(t *testing.T) {
	tcs := []struct {
		name          string
		width, height float64
	}{
		{"width below minimum", 59, 120},
		{"height below minimum", 120, 59},
		{"width above maximum", 301, 120},
		{"height above maximum", 120, 301},
		{"zero width", 0, 120},
		{"negative height", 120, -5},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := FromCm(tc.width, tc.height); !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("FromCm(%v, %v) error = %v, want validation error", tc.width, tc.height, err)
			}
		})
	}
}

// TestFromInConvertsThroughCentimeters checks the 2.54 cm/in factor.
func TestFromInConvertsThroughCentimeters(t *testing.T) {
	size, err := FromIn(48, 48)
	if err != nil {
		t.Fatalf("FromIn returned error: %v", err)
	}
	// 48 in = 121.92 cm, rounded to 121.9 cm.
	if size.WidthMM != 1219 || size.HeightMM != 1219 {
		t.Fatalf("expected 1219x1219 mm, got %dx%d", size.WidthMM, size.HeightMM)
	}
}

// TestFromFtConvertsThroughCentimeters checks the 30.48 cm/ft factor.
func TestFromFtConvertsThroughCentimeters(t *testing.T) {
	size, err := FromFt(4, 4)
	if err != nil {
		t.Fatalf("FromFt returned error: %v", err)
	}
	// 4 ft = 121.92 cm, rounded to 121.9 cm.
	if size.WidthMM != 1219 || size.HeightMM != 1219 {
		t.Fatalf("expected 1219x1219 mm, got %dx%d", size.WidthMM, size.HeightMM)
	}
}

// TestCmRoundTrip ensures mm-to-cm accessors invert the constructor.
func TestCmRoundTrip(t *testing.T) {
	for _, cm := range []float64{60, 60.1, 99.9, 120, 185.5, 300} {
		size, err := FromCm(cm, cm)
		if err != nil {
			t.Fatalf("FromCm(%v) returned error: %v", cm, err)
		}
		if size.WidthCm() != cm || size.HeightCm() != cm {
			t.Fatalf("round trip of %v cm gave %v x %v", cm, size.WidthCm(), size.HeightCm())
		}
	}
}

// TestPresets ensures the named presets are valid fixed sizes.
func TestPresets(t *testing.T) {
	if got := Standard(); got.WidthMM != 1200 || got.HeightMM != 1200 {
		t.Fatalf("Standard() = %v", got)
	}
	if got := Massive(); got.WidthMM != 1800 || got.HeightMM != 1200 {
		t.Fatalf("Massive() = %v", got)
	}
}

// TestNewEnforcesMillimeterLimits ensures raw mm construction validates.
func TestNewEnforcesMillimeterLimits(t *testing.T) {
	if _, err := New(599, 1200); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("New(599, 1200) error = %v, want validation error", err)
	}
	if _, err := New(1200, 3001); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("New(1200, 3001) error = %v, want validation error", err)
	}
	size, err := New(600, 3000)
	if err != nil {
		t.Fatalf("New(600, 3000) returned error: %v", err)
	}
	if size.AreaMM2() != 600*3000 {
		t.Fatalf("AreaMM2 = %d", size.AreaMM2())
	}
}
