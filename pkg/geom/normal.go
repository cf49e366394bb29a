package geom

import "github.com/chewxy/math32"

// NormalScale is the largest magnitude encodable in a packed normal
// component.
const NormalScale = 32767

// PackNormal encodes a unit normal as 16-bit fixed point.
func PackNormal(n Vec3) [3]int16 {
	var out [3]int16
	for i, c := range n {
		out[i] = int16(math32.Round(Clamp(c, -1, 1) * NormalScale))
	}
	return out
}

// UnpackNormal decodes a packed normal.
func UnpackNormal(no [3]int16) Vec3 {
	return Vec3{
		float32(no[0]) / NormalScale,
		float32(no[1]) / NormalScale,
		float32(no[2]) / NormalScale,
	}
}

// TriNormal returns the unit normal of a counter-clockwise triangle.
func TriNormal(a, b, c Vec3) Vec3 {
	n, _ := a.Sub(b).Cross(b.Sub(c)).Normalize()
	return n
}

// QuadNormal returns the unit normal of a quad, taken from the cross
// product of its diagonals so that slightly non-planar quads still get a
// stable direction.
func QuadNormal(a, b, c, d Vec3) Vec3 {
	n, _ := a.Sub(c).Cross(b.Sub(d)).Normalize()
	return n
}

// TriCenter returns the centroid of a triangle.
func TriCenter(a, b, c Vec3) Vec3 {
	return a.Add(b).Add(c).Scale(1.0 / 3)
}

// QuadCenter returns the average of four corners.
func QuadCenter(a, b, c, d Vec3) Vec3 {
	return a.Add(b).Add(c).Add(d).Scale(0.25)
}
