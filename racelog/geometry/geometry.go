// Package geometry holds the planar helpers shared by the episode
// kinematics and the spatial grids. Angles are in degrees, measured
// anticlockwise from the positive x axis, matching the heading values
// written to the trace log.
package geometry

import "math"

// Point is a position on the track plane, in metres.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Distance returns the straight-line distance between two points.
func Distance(a, b Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// Bearing returns the direction of travel from a to b in (-180, 180].
func Bearing(a, b Point) float64 {
	return NormalizeAngle(math.Atan2(b.Y-a.Y, b.X-a.X) * 180 / math.Pi)
}

// NormalizeAngle maps any angle into (-180, 180].
func NormalizeAngle(deg float64) float64 {
	a := math.Mod(deg, 360)
	if a <= -180 {
		a += 360
	} else if a > 180 {
		a -= 360
	}
	return a
}

// Turn returns the signed rotation needed to go from the current
// direction to the required one, in (-180, 180]. Positive is anticlockwise.
func Turn(current, required float64) float64 {
	return NormalizeAngle(required - current)
}
