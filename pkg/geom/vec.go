package geom

import (
	"github.com/chewxy/math32"
	"golang.org/x/exp/constraints"
)

// Vec3 is a position or direction in object space.
type Vec3 [3]float32

// V3 builds a Vec3 from components.
func V3(x, y, z float32) Vec3 {
	return Vec3{x, y, z}
}

func (a Vec3) Add(b Vec3) Vec3 {
	return Vec3{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}

func (a Vec3) Sub(b Vec3) Vec3 {
	return Vec3{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func (a Vec3) Scale(s float32) Vec3 {
	return Vec3{a[0] * s, a[1] * s, a[2] * s}
}

func (a Vec3) Dot(b Vec3) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func (a Vec3) Cross(b Vec3) Vec3 {
	return Vec3{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

// Len returns the Euclidean length.
func (a Vec3) Len() float32 {
	return math32.Sqrt(a.Dot(a))
}

// Normalize returns the unit vector along a and the original length.
// A zero vector is returned unchanged with length 0.
func (a Vec3) Normalize() (Vec3, float32) {
	l := a.Len()
	if l == 0 {
		return a, 0
	}
	return a.Scale(1 / l), l
}

// Lerp interpolates from a to b at parameter t.
func (a Vec3) Lerp(b Vec3, t float32) Vec3 {
	return Vec3{
		a[0] + (b[0]-a[0])*t,
		a[1] + (b[1]-a[1])*t,
		a[2] + (b[2]-a[2])*t,
	}
}

// ApproxEqual reports whether every component differs by at most tol.
func (a Vec3) ApproxEqual(b Vec3, tol float32) bool {
	for i := range a {
		if math32.Abs(a[i]-b[i]) > tol {
			return false
		}
	}
	return true
}

// Clamp limits v to [lo, hi].
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// CopyCos returns a fresh copy of a position array, or nil for nil input.
func CopyCos(cos []Vec3) []Vec3 {
	if cos == nil {
		return nil
	}
	out := make([]Vec3, len(cos))
	copy(out, cos)
	return out
}
