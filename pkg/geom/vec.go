// Package geom provides the 2D vector type shared by the layout, viewport and
// rendering packages.
package geom

import "math"

// Vec is a point or displacement in the plane.
type Vec struct {
	X float64 `json:"x" bson:"x"`
	Y float64 `json:"y" bson:"y"`
}

// V is shorthand for Vec{X: x, Y: y}.
func V(x, y float64) Vec { return Vec{X: x, Y: y} }

func (v Vec) Add(o Vec) Vec       { return Vec{v.X + o.X, v.Y + o.Y} }
func (v Vec) Sub(o Vec) Vec       { return Vec{v.X - o.X, v.Y - o.Y} }
func (v Vec) Scale(k float64) Vec { return Vec{v.X * k, v.Y * k} }
func (v Vec) Div(k float64) Vec   { return Vec{v.X / k, v.Y / k} }
func (v Vec) Len2() float64       { return v.X*v.X + v.Y*v.Y }
func (v Vec) Len() float64        { return math.Sqrt(v.Len2()) }
func (v Vec) Dist(o Vec) float64  { return v.Sub(o).Len() }
func (v Vec) Angle() float64      { return math.Atan2(v.Y, v.X) }
func (v Vec) IsZero() bool        { return v.X == 0 && v.Y == 0 }

// Polar returns the vector of length r at angle theta (radians).
func Polar(r, theta float64) Vec {
	return Vec{r * math.Cos(theta), r * math.Sin(theta)}
}
