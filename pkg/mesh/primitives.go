package mesh

import "github.com/chazu/dmesh/pkg/geom"

// Cube returns an axis-aligned cube of edge length size centered on the
// origin: 8 vertices, 12 edges and 6 outward-facing quads.
func Cube(size float32) *Mesh {
	h := size / 2
	me := &Mesh{Name: "Cube"}
	for _, co := range []geom.Vec3{
		{-h, -h, -h}, {h, -h, -h}, {h, h, -h}, {-h, h, -h},
		{-h, -h, h}, {h, -h, h}, {h, h, h}, {-h, h, h},
	} {
		me.Verts = append(me.Verts, MVert{Co: co})
	}
	me.Faces = []MFace{
		Quad(0, 3, 2, 1), // -Z
		Quad(4, 5, 6, 7), // +Z
		Quad(0, 1, 5, 4), // -Y
		Quad(2, 3, 7, 6), // +Y
		Quad(0, 4, 7, 3), // -X
		Quad(1, 2, 6, 5), // +X
	}
	me.EnsureEdges()
	me.CalcNormals()
	return me
}

// Plane returns a single upward-facing quad of edge length size.
func Plane(size float32) *Mesh {
	return Grid(1, 1, size)
}

// Grid returns an nx by ny grid of quads in the XY plane, facing +Z.
func Grid(nx, ny int, size float32) *Mesh {
	nx, ny = max(nx, 1), max(ny, 1)
	me := &Mesh{Name: "Grid"}
	h := size / 2
	for j := 0; j <= ny; j++ {
		for i := 0; i <= nx; i++ {
			x := -h + size*float32(i)/float32(nx)
			y := -h + size*float32(j)/float32(ny)
			me.Verts = append(me.Verts, MVert{Co: geom.V3(x, y, 0)})
		}
	}
	row := nx + 1
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			a := j*row + i
			me.Faces = append(me.Faces, Quad(a, a+1, a+1+row, a+row))
		}
	}
	me.EnsureEdges()
	me.CalcNormals()
	return me
}
