package derived

import (
	"github.com/chazu/dmesh/pkg/geom"
	"github.com/chazu/dmesh/pkg/mesh"
)

// MeshOptions carries the owning object's context into NewMesh.
type MeshOptions struct {
	// Owner names the object the mesh belongs to, for diagnostics.
	Owner string
	// WeightPaint duplicates the mesh's face-corner colors for weight
	// paint display.
	WeightPaint bool
	// SurfaceNormals are precomputed vertex normals from a simulation
	// surface cache. They are used instead of recalculated normals when
	// their count matches the mesh's vertex count.
	SurfaceNormals []geom.Vec3
}

// MeshDerived exposes a stored mesh, optionally with displaced positions.
// It never owns the mesh itself.
type MeshDerived struct {
	handle

	me      *mesh.Mesh
	owner   string
	verts   geom.Buffer[mesh.MVert]
	faceNos geom.Buffer[geom.Vec3]
	edges   []mesh.MEdge
	wpCols  geom.Buffer[mesh.MCol]
}

var _ DerivedMesh = (*MeshDerived)(nil)

// NewMesh wraps me. When cos is non-nil the vertex array is copied before
// the positions are overwritten, so neither me nor cos is modified; cos is
// not retained. Without cos the mesh's own vertices are used and its
// stored normals are refreshed in place.
func NewMesh(me *mesh.Mesh, cos []geom.Vec3, opts MeshOptions) *MeshDerived {
	if cos != nil {
		checkBuffer(len(cos), len(me.Verts))
	}
	dm := &MeshDerived{
		handle: newHandle(),
		me:     me,
		owner:  opts.Owner,
		edges:  me.Edges,
	}
	if len(dm.edges) == 0 {
		dm.edges = mesh.EdgesFromFaces(me.Faces)
	}

	switch {
	case opts.SurfaceNormals != nil && len(opts.SurfaceNormals) == len(me.Verts):
		verts := displaced(me.Verts, cos)
		dm.faceNos = geom.Own(mesh.CalcNormals(verts.Data(), me.Faces))
		for i := range verts.Data() {
			verts.Data()[i].No = geom.PackNormal(opts.SurfaceNormals[i])
		}
		dm.verts = verts
	case cos != nil:
		verts := displaced(me.Verts, cos)
		dm.faceNos = geom.Own(mesh.CalcNormals(verts.Data(), me.Faces))
		dm.verts = verts
	default:
		dm.faceNos = geom.Own(me.CalcNormals())
		dm.verts = geom.Borrow(me.Verts)
	}

	if opts.WeightPaint && me.MCols != nil {
		dm.wpCols = geom.OwnCopy(me.MCols)
	}
	return dm
}

func displaced(src []mesh.MVert, cos []geom.Vec3) *geom.Owned[mesh.MVert] {
	verts := geom.OwnCopy(src)
	if cos != nil {
		for i := range verts.Data() {
			verts.Data()[i].Co = cos[i]
		}
	}
	return verts
}

func (dm *MeshDerived) Kind() Kind { return KindMesh }

// Mesh returns the wrapped source mesh.
func (dm *MeshDerived) Mesh() *mesh.Mesh { return dm.me }

// Owner returns the owning object's name.
func (dm *MeshDerived) Owner() string { return dm.owner }

// Displaced reports whether positions come from a private copy.
func (dm *MeshDerived) Displaced() bool { return dm.verts.Owned() }

// FaceColors returns the weight paint colors, or nil when weight paint
// display was off.
func (dm *MeshDerived) FaceColors() []mesh.MCol {
	if dm.wpCols == nil {
		return nil
	}
	return dm.wpCols.Data()
}

func (dm *MeshDerived) NumVerts() int { return geom.Len(dm.verts) }
func (dm *MeshDerived) NumEdges() int { return len(dm.edges) }
func (dm *MeshDerived) NumFaces() int { return len(dm.me.Faces) }

func (dm *MeshDerived) VertCo(i int) geom.Vec3 {
	verts := dm.verts.Data()
	checkIndex(i, len(verts))
	return verts[i].Co
}

func (dm *MeshDerived) VertNo(i int) geom.Vec3 {
	verts := dm.verts.Data()
	checkIndex(i, len(verts))
	return verts[i].Normal()
}

func (dm *MeshDerived) VertCos(dst []geom.Vec3) {
	verts := dm.verts.Data()
	checkBuffer(len(dst), len(verts))
	for i, v := range verts {
		dst[i] = v.Co
	}
}

func (dm *MeshDerived) VertNos(dst []geom.Vec3) {
	verts := dm.verts.Data()
	checkBuffer(len(dst), len(verts))
	for i, v := range verts {
		dst[i] = v.Normal()
	}
}

func (dm *MeshDerived) ForEachMappedVert(fn func(index int, co, no geom.Vec3)) {
	for i, v := range dm.verts.Data() {
		fn(i, v.Co, v.Normal())
	}
}

func (dm *MeshDerived) ForEachMappedEdge(fn func(index int, v0, v1 geom.Vec3)) {
	verts := dm.verts.Data()
	for i, e := range dm.edges {
		fn(i, verts[e.V[0]].Co, verts[e.V[1]].Co)
	}
}

func (dm *MeshDerived) ForEachMappedFaceCenter(fn func(index int, cent, no geom.Vec3)) {
	verts := dm.verts.Data()
	nos := dm.faceNos.Data()
	for i, f := range dm.me.Faces {
		fn(i, mesh.FaceCenter(verts, f), nos[i])
	}
}

func (dm *MeshDerived) InterpMappedEdges(steps int, fn func(index int, t float32, co geom.Vec3)) error {
	verts := dm.verts.Data()
	for i, e := range dm.edges {
		interpEdge(i, steps, verts[e.V[0]].Co, verts[e.V[1]].Co, fn)
	}
	return nil
}

func (dm *MeshDerived) ConvertToFlat(allowShared bool) *mesh.FlatMesh {
	if allowShared {
		fm := &mesh.FlatMesh{
			Verts:   geom.Borrow(dm.verts.Data()),
			Edges:   geom.Borrow(dm.edges),
			Faces:   geom.Borrow(dm.me.Faces),
			FaceNos: geom.Borrow(dm.faceNos.Data()),
		}
		if dm.me.MCols != nil {
			fm.MCols = geom.Borrow(dm.me.MCols)
		}
		return fm
	}
	fm := &mesh.FlatMesh{
		Verts:   geom.OwnCopy(dm.verts.Data()),
		Edges:   geom.OwnCopy(dm.edges),
		Faces:   geom.OwnCopy(dm.me.Faces),
		FaceNos: geom.OwnCopy(dm.faceNos.Data()),
	}
	if dm.me.MCols != nil {
		fm.MCols = geom.OwnCopy(dm.me.MCols)
	}
	fm.MarkIdentity()
	return fm
}

func (dm *MeshDerived) Bounds() geom.Box { return boundsOf(dm) }

func (dm *MeshDerived) Release() error {
	return dm.release(KindMesh, func() {
		dm.verts.Free()
		dm.faceNos.Free()
		if dm.wpCols != nil {
			dm.wpCols.Free()
		}
		dm.verts = geom.Borrow[mesh.MVert](nil)
		dm.edges = nil
	})
}
