// Package geo provides the heading and position math used to place
// roadblock slots on a road. It contains no state and no external
// dependencies so placement logic stays pure and testable.
//
// Headings are degrees in [0, 360): heading 0 points along +Y and
// increases counter-clockwise, so heading-90 points to the right of
// travel. Positions are world units on a flat plane; Z carries elevation
// and is preserved but never derived.
package geo

import "math"

// Vector is a position or displacement in world units.
type Vector struct {
	X, Y, Z float64
}

// Add returns v + o.
func (v Vector) Add(o Vector) Vector {
	return Vector{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Sub returns v - o.
func (v Vector) Sub(o Vector) Vector {
	return Vector{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// Scale returns v scaled by f.
func (v Vector) Scale(f float64) Vector {
	return Vector{v.X * f, v.Y * f, v.Z * f}
}

// Dot returns the dot product of v and o.
func (v Vector) Dot(o Vector) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

// Length returns the vector's magnitude.
func (v Vector) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Length2D returns the magnitude ignoring Z.
func (v Vector) Length2D() float64 {
	return math.Hypot(v.X, v.Y)
}

// DistanceTo returns the distance between two positions.
func (v Vector) DistanceTo(o Vector) float64 {
	return v.Sub(o).Length()
}

// DistanceTo2D returns the distance between two positions ignoring Z.
// Placement comparisons use this so elevation differences between lane
// nodes never skew lane spacing checks.
func (v Vector) DistanceTo2D(o Vector) float64 {
	return v.Sub(o).Length2D()
}

// NormalizeHeading wraps an unconstrained heading into [0, 360).
func NormalizeHeading(heading float64) float64 {
	h := math.Mod(heading, 360)
	if h < 0 {
		h += 360
	}
	return h
}

// HeadingDelta returns the absolute wrap-aware difference between two
// headings, always in [0, 180].
func HeadingDelta(a, b float64) float64 {
	d := math.Abs(NormalizeHeading(a) - NormalizeHeading(b))
	if d > 180 {
		d = 360 - d
	}
	return d
}

// Direction converts a heading into a unit vector in the XY plane.
func Direction(heading float64) Vector {
	rad := NormalizeHeading(heading) * math.Pi / 180
	return Vector{X: -math.Sin(rad), Y: math.Cos(rad)}
}

// Offset returns position moved by distance along heading.
func Offset(position Vector, heading, distance float64) Vector {
	return position.Add(Direction(heading).Scale(distance))
}

// HeadingBetween returns the heading that points from one position at
// another, ignoring Z.
func HeadingBetween(from, to Vector) float64 {
	d := to.Sub(from)
	if d.X == 0 && d.Y == 0 {
		return 0
	}
	return NormalizeHeading(math.Atan2(-d.X, d.Y) * 180 / math.Pi)
}

// Opposite returns the heading rotated by 180 degrees.
func Opposite(heading float64) float64 {
	return NormalizeHeading(heading + 180)
}
