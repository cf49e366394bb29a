package kernel

import (
	"math"

	"github.com/chazu/dmesh/pkg/geom"
	"github.com/chazu/dmesh/pkg/mesh"
)

// weldKey quantizes a position so that corners shared by neighbouring
// triangles collapse into one vertex.
type weldKey [3]int64

const weldScale = 1 << 16

func keyOf(p geom.Vec3) weldKey {
	var k weldKey
	for i, c := range p {
		k[i] = int64(math.Round(float64(c) * weldScale))
	}
	return k
}

// Welder accumulates a triangle soup into an indexed mesh.
type Welder struct {
	index map[weldKey]int
	me    *mesh.Mesh
}

// NewWelder returns a welder producing a mesh with the given name.
func NewWelder(name string) *Welder {
	return &Welder{
		index: make(map[weldKey]int),
		me:    &mesh.Mesh{Name: name},
	}
}

func (w *Welder) vert(p geom.Vec3) int {
	k := keyOf(p)
	if i, ok := w.index[k]; ok {
		return i
	}
	i := len(w.me.Verts)
	w.me.Verts = append(w.me.Verts, mesh.MVert{Co: p})
	w.index[k] = i
	return i
}

// AddTriangle adds one triangle. Triangles that collapse after welding are
// dropped.
func (w *Welder) AddTriangle(a, b, c geom.Vec3) {
	ia, ib, ic := w.vert(a), w.vert(b), w.vert(c)
	if ia == ib || ib == ic || ia == ic {
		return
	}
	w.me.Faces = append(w.me.Faces, mesh.Tri(ia, ib, ic))
}

// Mesh finishes the mesh: edges are derived and normals calculated.
func (w *Welder) Mesh() *mesh.Mesh {
	w.me.EnsureEdges()
	w.me.CalcNormals()
	return w.me
}
