// Package kernel defines the abstract solid-modeling kernel that base
// meshes can be generated from. Implementations (sdfx) build solids behind
// this interface and mesh them into indexed base meshes, so scene objects
// can be described as solids instead of hand-written vertex lists.
package kernel

import "github.com/chazu/dmesh/pkg/mesh"

// Solid is an opaque handle to a kernel solid.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	// Primitives
	Box(x, y, z float64) Solid
	Cylinder(height, radius float64) Solid
	Sphere(radius float64) Solid

	// Boolean operations
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees

	// ToMesh tessellates s into a base mesh with shared vertices. cells is
	// the sampling resolution along the longest axis; 0 picks the default.
	ToMesh(s Solid, cells int) (*mesh.Mesh, error)
}
