package mapspec

// MinClearanceMM is the minimum gap kept between any two solid shapes.
const MinClearanceMM = 10

// Overlaps reports whether two shapes overlap, keeping a clearance gap
// between their edges. Shapes marked AllowOverlap opt out entirely.
// Polygon collision is not modeled; polygons never report an overlap,
// matching the placement engine's use of rects and circles for solids.
func Overlaps(a, b Shape, clearance int) bool {
	if allowsOverlap(a) || allowsOverlap(b) {
		return false
	}
	switch sa := a.(type) {
	case Rect:
		switch sb := b.(type) {
		case Rect:
			return rectsOverlap(sa, sb, clearance)
		case Circle:
			return rectCircleOverlap(sa, sb, clearance)
		}
	case Circle:
		switch sb := b.(type) {
		case Circle:
			return circlesOverlap(sa, sb, clearance)
		case Rect:
			return rectCircleOverlap(sb, sa, clearance)
		}
	}
	return false
}

// FirstCollision returns the indices of the first overlapping pair.
func FirstCollision(shapes []Shape, clearance int) (int, int, bool) {
	for i := 0; i < len(shapes); i++ {
		for j := i + 1; j < len(shapes); j++ {
			if Overlaps(shapes[i], shapes[j], clearance) {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}

// NoCollisions reports whether no pair of shapes overlaps.
func NoCollisions(shapes []Shape, clearance int) bool {
	_, _, found := FirstCollision(shapes, clearance)
	return !found
}

func allowsOverlap(s Shape) bool {
	switch v := s.(type) {
	case Circle:
		return v.AllowOverlap
	case Rect:
		return v.AllowOverlap
	case Polygon:
		return v.AllowOverlap
	default:
		return false
	}
}

func rectsOverlap(a, b Rect, clearance int) bool {
	return !(a.X+a.Width+clearance <= b.X ||
		b.X+b.Width+clearance <= a.X ||
		a.Y+a.Height+clearance <= b.Y ||
		b.Y+b.Height+clearance <= a.Y)
}

func circlesOverlap(a, b Circle, clearance int) bool {
	dx := a.CX - b.CX
	dy := a.CY - b.CY
	minDist := a.R + b.R + clearance
	return dx*dx+dy*dy < minDist*minDist
}

// rectCircleOverlap uses the closest-point-on-rect distance test.
func rectCircleOverlap(r Rect, c Circle, clearance int) bool {
	closestX := clamp(c.CX, r.X, r.X+r.Width)
	closestY := clamp(c.CY, r.Y, r.Y+r.Height)
	dx := c.CX - closestX
	dy := c.CY - closestY
	threshold := c.R + clearance
	return dx*dx+dy*dy < threshold*threshold
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
