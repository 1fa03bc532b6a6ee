package geometry

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"
)

// Simplify drops points of a route that lie within tolerance metres of the
// line through their neighbours (Douglas-Peucker). The ends are always
// kept. A non-positive tolerance returns a copy of the route.
func Simplify(route []Point, tolerance float64) []Point {
	if tolerance <= 0 || len(route) < 3 {
		return append([]Point(nil), route...)
	}
	ls := make(orb.LineString, len(route))
	for i, p := range route {
		ls[i] = orb.Point{p.X, p.Y}
	}
	result, ok := simplify.DouglasPeucker(tolerance).Simplify(ls).(orb.LineString)
	if !ok {
		return append([]Point(nil), route...)
	}
	out := make([]Point, len(result))
	for i, p := range result {
		out[i] = Point{X: p[0], Y: p[1]}
	}
	return out
}
