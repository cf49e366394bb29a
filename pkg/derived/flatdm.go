package derived

import (
	"github.com/chazu/dmesh/pkg/geom"
	"github.com/chazu/dmesh/pkg/mesh"
)

// FlatDerived exposes a flattened display-list mesh, typically the output
// of a modifier that changes topology. It owns the flat mesh.
type FlatDerived struct {
	handle

	fm *mesh.FlatMesh
}

var _ DerivedMesh = (*FlatDerived)(nil)

// NewFlat takes ownership of fm. When cos is non-nil its positions replace
// the vertex positions and normals are recalculated; a previous face
// normal buffer is freed unless it was borrowed. A flat mesh that arrives
// without face normals gets them calculated as well.
func NewFlat(fm *mesh.FlatMesh, cos []geom.Vec3) *FlatDerived {
	if cos != nil {
		checkBuffer(len(cos), fm.NumVerts())
		verts := geom.Writable(fm.Verts)
		for i := range verts.Data() {
			verts.Data()[i].Co = cos[i]
		}
		fm.Verts = verts
		if fm.FaceNos != nil {
			fm.FaceNos.Free()
			fm.FaceNos = nil
		}
	}
	if fm.FaceNos == nil {
		verts := geom.Writable(fm.Verts)
		fm.Verts = verts
		fm.FaceNos = geom.Own(mesh.CalcNormals(verts.Data(), fm.FaceData()))
	}
	return &FlatDerived{handle: newHandle(), fm: fm}
}

func (dm *FlatDerived) Kind() Kind { return KindFlat }

// Flat returns the wrapped flat mesh. Callers must not modify it.
func (dm *FlatDerived) Flat() *mesh.FlatMesh { return dm.fm }

func (dm *FlatDerived) NumVerts() int { return dm.fm.NumVerts() }
func (dm *FlatDerived) NumEdges() int { return dm.fm.NumEdges() }
func (dm *FlatDerived) NumFaces() int { return dm.fm.NumFaces() }

func (dm *FlatDerived) VertCo(i int) geom.Vec3 {
	verts := dm.fm.VertData()
	checkIndex(i, len(verts))
	return verts[i].Co
}

func (dm *FlatDerived) VertNo(i int) geom.Vec3 {
	verts := dm.fm.VertData()
	checkIndex(i, len(verts))
	return verts[i].Normal()
}

func (dm *FlatDerived) VertCos(dst []geom.Vec3) {
	verts := dm.fm.VertData()
	checkBuffer(len(dst), len(verts))
	for i, v := range verts {
		dst[i] = v.Co
	}
}

func (dm *FlatDerived) VertNos(dst []geom.Vec3) {
	verts := dm.fm.VertData()
	checkBuffer(len(dst), len(verts))
	for i, v := range verts {
		dst[i] = v.Normal()
	}
}

// ForEachMappedVert yields only the first flattened vertex generated from
// each original vertex.
func (dm *FlatDerived) ForEachMappedVert(fn func(index int, co, no geom.Vec3)) {
	index := -1
	for _, v := range dm.fm.VertData() {
		if v.Flag&mesh.VertStepIndex != 0 {
			index++
			fn(index, v.Co, v.Normal())
		}
	}
}

// ForEachMappedEdge yields every edge from the first step-flagged one on,
// labelled with the original edge it was generated from.
func (dm *FlatDerived) ForEachMappedEdge(fn func(index int, v0, v1 geom.Vec3)) {
	verts := dm.fm.VertData()
	index := -1
	for _, e := range dm.fm.EdgeData() {
		if e.Flag&mesh.EdgeStepIndex != 0 {
			index++
		}
		if index != -1 {
			fn(index, verts[e.V[0]].Co, verts[e.V[1]].Co)
		}
	}
}

// ForEachMappedFaceCenter yields every face from the first step-flagged
// one on, labelled with the original face it was generated from.
func (dm *FlatDerived) ForEachMappedFaceCenter(fn func(index int, cent, no geom.Vec3)) {
	verts := dm.fm.VertData()
	nos := dm.fm.FaceNoData()
	index := -1
	for i, f := range dm.fm.FaceData() {
		if f.Flag&mesh.FaceStepIndex != 0 {
			index++
		}
		if index != -1 {
			fn(index, mesh.FaceCenter(verts, f), nos[i])
		}
	}
}

// InterpMappedEdges is unsupported: after a lossy flattening there is no
// original edge to interpolate along.
func (dm *FlatDerived) InterpMappedEdges(int, func(int, float32, geom.Vec3)) error {
	return ErrUnsupported
}

func (dm *FlatDerived) ConvertToFlat(allowShared bool) *mesh.FlatMesh {
	if !allowShared {
		return dm.fm.Clone()
	}
	fm := &mesh.FlatMesh{
		Verts:   geom.Borrow(dm.fm.VertData()),
		Edges:   geom.Borrow(dm.fm.EdgeData()),
		Faces:   geom.Borrow(dm.fm.FaceData()),
		FaceNos: geom.Borrow(dm.fm.FaceNoData()),
	}
	if dm.fm.MCols != nil {
		fm.MCols = geom.Borrow(dm.fm.ColData())
	}
	return fm
}

func (dm *FlatDerived) Bounds() geom.Box { return boundsOf(dm) }

func (dm *FlatDerived) Release() error {
	return dm.release(KindFlat, func() {
		dm.fm.Free()
		dm.fm = &mesh.FlatMesh{}
	})
}
