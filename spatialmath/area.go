package spatialmath

import (
	"math"

	"github.com/golang/geo/r2"
)

// ShoelaceArea returns the unsigned area enclosed by the polygon, computed
// with the shoelace formula. The polygon is implicitly closed and the result
// does not depend on winding order. Fewer than 3 points enclose nothing.
func ShoelaceArea(pts []r2.Point) float64 {
	if len(pts) < 3 {
		return 0
	}
	var sum float64
	for i := range pts {
		j := (i + 1) % len(pts)
		sum += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return math.Abs(sum) / 2
}
