package geom

import "github.com/chewxy/math32"

// Box is an axis-aligned bounding box.
type Box struct {
	Min Vec3
	Max Vec3
}

// EmptyBox returns a box that contains nothing; expanding it by a point
// yields a degenerate box at that point.
func EmptyBox() Box {
	inf := math32.Inf(1)
	return Box{
		Min: Vec3{inf, inf, inf},
		Max: Vec3{-inf, -inf, -inf},
	}
}

// IsEmpty reports whether max < min on any axis.
func (b Box) IsEmpty() bool {
	return b.Max[0] < b.Min[0] || b.Max[1] < b.Min[1] || b.Max[2] < b.Min[2]
}

// Expand grows the box to include p.
func (b *Box) Expand(p Vec3) {
	for i := range p {
		b.Min[i] = min(b.Min[i], p[i])
		b.Max[i] = max(b.Max[i], p[i])
	}
}

// Center returns the midpoint of the box.
func (b Box) Center() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Size returns the extent along each axis.
func (b Box) Size() Vec3 {
	return b.Max.Sub(b.Min)
}

// Corners returns the eight box corners, bottom face first.
func (b Box) Corners() [8]Vec3 {
	lo, hi := b.Min, b.Max
	return [8]Vec3{
		{lo[0], lo[1], lo[2]},
		{hi[0], lo[1], lo[2]},
		{hi[0], hi[1], lo[2]},
		{lo[0], hi[1], lo[2]},
		{lo[0], lo[1], hi[2]},
		{hi[0], lo[1], hi[2]},
		{hi[0], hi[1], hi[2]},
		{lo[0], hi[1], hi[2]},
	}
}

// BoundsOf returns the bounds of a point set. An empty set yields the zero
// box rather than an inverted one.
func BoundsOf(cos []Vec3) Box {
	if len(cos) == 0 {
		return Box{}
	}
	b := EmptyBox()
	for _, c := range cos {
		b.Expand(c)
	}
	return b
}
