// Package table provides the table geometry value object for scenario
// cards. Dimensions are stored in whole millimeters to avoid floating
// point drift; constructors convert from centimeters, inches, or feet.
package table

import (
	"fmt"
	"math"

	"github.com/tabletoptools/scenoforge/internal/domain"
)

// Dimension limits per axis, in millimeters.
const (
	MinMM = 600  // 60 cm
	MaxMM = 3000 // 300 cm
)

// Conversion factors to centimeters.
const (
	cmPerInch = 2.54
	cmPerFoot = 30.48
)

// Size is an immutable table size in millimeters.
type Size struct {
	WidthMM  int
	HeightMM int
}

// Standard returns the standard 120x120 cm table.
func Standard() Size {
	return Size{WidthMM: 1200, HeightMM: 1200}
}

// Massive returns the massive 180x120 cm table.
func Massive() Size {
	return Size{WidthMM: 1800, HeightMM: 1200}
}

// New builds a Size from raw millimeter dimensions, enforcing the
// [MinMM, MaxMM] limit per axis.
func New(widthMM, heightMM int) (Size, error) {
	if err := checkLimit("width", widthMM); err != nil {
		return Size{}, err
	}
	if err := checkLimit("height", heightMM); err != nil {
		return Size{}, err
	}
	return Size{WidthMM: widthMM, HeightMM: heightMM}, nil
}

// FromCm builds a Size from centimeter dimensions. Values are rounded
// half-up to the nearest 0.1 cm before conversion to millimeters.
func FromCm(widthCm, heightCm float64) (Size, error) {
	widthMM, err := cmToMM("width", widthCm)
	if err != nil {
		return Size{}, err
	}
	heightMM, err := cmToMM("height", heightCm)
	if err != nil {
		return Size{}, err
	}
	return New(widthMM, heightMM)
}

// FromIn builds a Size from inch dimensions (1 in = 2.54 cm).
func FromIn(widthIn, heightIn float64) (Size, error) {
	return FromCm(widthIn*cmPerInch, heightIn*cmPerInch)
}

// FromFt builds a Size from feet dimensions (1 ft = 30.48 cm).
func FromFt(widthFt, heightFt float64) (Size, error) {
	return FromCm(widthFt*cmPerFoot, heightFt*cmPerFoot)
}

// WidthCm returns the width in centimeters.
func (s Size) WidthCm() float64 {
	return float64(s.WidthMM) / 10
}

// HeightCm returns the height in centimeters.
func (s Size) HeightCm() float64 {
	return float64(s.HeightMM) / 10
}

// AreaMM2 returns the table area in square millimeters.
func (s Size) AreaMM2() int {
	return s.WidthMM * s.HeightMM
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%dmm", s.WidthMM, s.HeightMM)
}

// cmToMM rounds cm half-up to the nearest 0.1 cm and converts to mm.
// The epsilon tolerates binary float representation noise
// (59.95 * 10 yields 599.4999... rather than 599.5).
func cmToMM(field string, cm float64) (int, error) {
	if math.IsNaN(cm) || math.IsInf(cm, 0) {
		return 0, fmt.Errorf("%w: %s must be a finite number", domain.ErrValidation, field)
	}
	if cm <= 0 {
		return 0, fmt.Errorf("%w: %s must be positive, got %v cm", domain.ErrValidation, field, cm)
	}
	return int(math.Floor(cm*10 + 0.5 + 1e-9)), nil
}

func checkLimit(field string, mm int) error {
	if mm < MinMM {
		return fmt.Errorf("%w: %s must be at least %d mm (%g cm), got %d mm",
			domain.ErrValidation, field, MinMM, float64(MinMM)/10, mm)
	}
	if mm > MaxMM {
		return fmt.Errorf("%w: %s must be at most %d mm (%g cm), got %d mm",
			domain.ErrValidation, field, MaxMM, float64(MaxMM)/10, mm)
	}
	return nil
}
