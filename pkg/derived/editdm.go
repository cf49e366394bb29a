package derived

import (
	"github.com/chazu/dmesh/pkg/geom"
	"github.com/chazu/dmesh/pkg/mesh"
)

// EditDerived exposes a live edit mesh. Without displaced positions it is
// a zero-copy view: every query reads the live records, and the view goes
// stale as soon as the edit mesh topology changes.
type EditDerived struct {
	handle

	em      *mesh.EditMesh
	cos     geom.Buffer[geom.Vec3] // nil for a zero-copy view
	vertNos geom.Buffer[geom.Vec3]
	faceNos geom.Buffer[geom.Vec3]
}

var _ DerivedMesh = (*EditDerived)(nil)

// NewEdit wraps em. A non-nil cos must be indexed in edit-mesh list order
// and is taken over by the derived mesh; vertex and face normals are then
// calculated from it.
func NewEdit(em *mesh.EditMesh, cos []geom.Vec3) *EditDerived {
	dm := &EditDerived{handle: newHandle(), em: em}
	if cos == nil {
		return dm
	}
	checkBuffer(len(cos), em.NumVerts())
	dm.cos = geom.Own(cos)

	idx := em.VertIndex()
	vertNos := make([]geom.Vec3, len(cos))
	faceNos := make([]geom.Vec3, 0, em.NumFaces())
	for f := em.FirstFace(); f != nil; f = f.Next() {
		var n geom.Vec3
		if f.V4 != nil {
			n = geom.QuadNormal(cos[idx[f.V1]], cos[idx[f.V2]], cos[idx[f.V3]], cos[idx[f.V4]])
		} else {
			n = geom.TriNormal(cos[idx[f.V1]], cos[idx[f.V2]], cos[idx[f.V3]])
		}
		faceNos = append(faceNos, n)
		for _, v := range f.Verts() {
			vertNos[idx[v]] = vertNos[idx[v]].Add(n)
		}
	}
	for i := range vertNos {
		vertNos[i] = mesh.VertexNormal(vertNos[i], cos[i])
	}
	dm.vertNos = geom.Own(vertNos)
	dm.faceNos = geom.Own(faceNos)
	return dm
}

func (dm *EditDerived) Kind() Kind { return KindEdit }

// EditMesh returns the wrapped edit mesh.
func (dm *EditDerived) EditMesh() *mesh.EditMesh { return dm.em }

// ZeroCopy reports whether queries read the live edit records.
func (dm *EditDerived) ZeroCopy() bool { return dm.cos == nil }

func (dm *EditDerived) NumVerts() int {
	if dm.cos != nil {
		return len(dm.cos.Data())
	}
	return dm.em.NumVerts()
}

func (dm *EditDerived) NumEdges() int { return dm.em.NumEdges() }
func (dm *EditDerived) NumFaces() int { return dm.em.NumFaces() }

func (dm *EditDerived) vertAt(i int) *mesh.EditVert {
	checkIndex(i, dm.em.NumVerts())
	v := dm.em.FirstVert()
	for ; i > 0; i-- {
		v = v.Next()
	}
	return v
}

func (dm *EditDerived) VertCo(i int) geom.Vec3 {
	if dm.cos != nil {
		cos := dm.cos.Data()
		checkIndex(i, len(cos))
		return cos[i]
	}
	return dm.vertAt(i).Co
}

func (dm *EditDerived) VertNo(i int) geom.Vec3 {
	if dm.cos != nil {
		nos := dm.vertNos.Data()
		checkIndex(i, len(nos))
		return nos[i]
	}
	return dm.vertAt(i).No
}

func (dm *EditDerived) VertCos(dst []geom.Vec3) {
	checkBuffer(len(dst), dm.NumVerts())
	if dm.cos != nil {
		copy(dst, dm.cos.Data())
		return
	}
	i := 0
	for v := dm.em.FirstVert(); v != nil; v = v.Next() {
		dst[i] = v.Co
		i++
	}
}

func (dm *EditDerived) VertNos(dst []geom.Vec3) {
	checkBuffer(len(dst), dm.NumVerts())
	if dm.cos != nil {
		copy(dst, dm.vertNos.Data())
		return
	}
	i := 0
	for v := dm.em.FirstVert(); v != nil; v = v.Next() {
		dst[i] = v.No
		i++
	}
}

func (dm *EditDerived) ForEachMappedVert(fn func(index int, co, no geom.Vec3)) {
	i := 0
	for v := dm.em.FirstVert(); v != nil; v = v.Next() {
		if dm.cos != nil {
			fn(i, dm.cos.Data()[i], dm.vertNos.Data()[i])
		} else {
			fn(i, v.Co, v.No)
		}
		i++
	}
}

// edgeCos returns a lookup from vertex record to current position. The
// index table lives only for the duration of one traversal.
func (dm *EditDerived) edgeCos() func(*mesh.EditVert) geom.Vec3 {
	if dm.cos == nil {
		return func(v *mesh.EditVert) geom.Vec3 { return v.Co }
	}
	idx := dm.em.VertIndex()
	cos := dm.cos.Data()
	return func(v *mesh.EditVert) geom.Vec3 { return cos[idx[v]] }
}

func (dm *EditDerived) ForEachMappedEdge(fn func(index int, v0, v1 geom.Vec3)) {
	co := dm.edgeCos()
	i := 0
	for e := dm.em.FirstEdge(); e != nil; e = e.Next() {
		fn(i, co(e.V1), co(e.V2))
		i++
	}
}

func (dm *EditDerived) ForEachMappedFaceCenter(fn func(index int, cent, no geom.Vec3)) {
	co := dm.edgeCos()
	i := 0
	for f := dm.em.FirstFace(); f != nil; f = f.Next() {
		var cent geom.Vec3
		if f.V4 != nil {
			cent = geom.QuadCenter(co(f.V1), co(f.V2), co(f.V3), co(f.V4))
		} else {
			cent = geom.TriCenter(co(f.V1), co(f.V2), co(f.V3))
		}
		no := f.N
		if dm.faceNos != nil {
			no = dm.faceNos.Data()[i]
		}
		fn(i, cent, no)
		i++
	}
}

func (dm *EditDerived) InterpMappedEdges(steps int, fn func(index int, t float32, co geom.Vec3)) error {
	co := dm.edgeCos()
	i := 0
	for e := dm.em.FirstEdge(); e != nil; e = e.Next() {
		interpEdge(i, steps, co(e.V1), co(e.V2), fn)
		i++
	}
	return nil
}

// ConvertToFlat always copies: linked records have no array to share.
func (dm *EditDerived) ConvertToFlat(bool) *mesh.FlatMesh {
	idx := dm.em.VertIndex()
	verts := make([]mesh.MVert, 0, dm.NumVerts())
	i := 0
	for v := dm.em.FirstVert(); v != nil; v = v.Next() {
		mv := mesh.MVert{Co: v.Co, No: geom.PackNormal(v.No), Flag: v.Flag}
		if dm.cos != nil {
			mv.Co = dm.cos.Data()[i]
			mv.No = geom.PackNormal(dm.vertNos.Data()[i])
		}
		if v.Hidden {
			mv.Flag |= mesh.VertHidden
		}
		verts = append(verts, mv)
		i++
	}
	edges := make([]mesh.MEdge, 0, dm.NumEdges())
	for e := dm.em.FirstEdge(); e != nil; e = e.Next() {
		edges = append(edges, mesh.MEdge{V: [2]int{idx[e.V1], idx[e.V2]}, Flag: e.Flag})
	}
	faces := make([]mesh.MFace, 0, dm.NumFaces())
	faceNos := make([]geom.Vec3, 0, dm.NumFaces())
	i = 0
	for f := dm.em.FirstFace(); f != nil; f = f.Next() {
		var mf mesh.MFace
		if f.V4 != nil {
			mf = mesh.Quad(idx[f.V1], idx[f.V2], idx[f.V3], idx[f.V4])
		} else {
			mf = mesh.Tri(idx[f.V1], idx[f.V2], idx[f.V3])
		}
		mf.Flag = f.Flag
		mf.MatNr = f.MatNr
		faces = append(faces, mf)
		if dm.faceNos != nil {
			faceNos = append(faceNos, dm.faceNos.Data()[i])
		} else {
			faceNos = append(faceNos, f.N)
		}
		i++
	}
	fm := mesh.NewFlatMesh(verts, edges, faces)
	fm.FaceNos = geom.Own(faceNos)
	fm.MarkIdentity()
	return fm
}

// Bounds walks the vertex list once; indexed access on a zero-copy view
// is linear per call.
func (dm *EditDerived) Bounds() geom.Box {
	if dm.cos != nil {
		return geom.BoundsOf(dm.cos.Data())
	}
	if dm.em.NumVerts() == 0 {
		return geom.Box{}
	}
	b := geom.EmptyBox()
	for v := dm.em.FirstVert(); v != nil; v = v.Next() {
		b.Expand(v.Co)
	}
	return b
}

func (dm *EditDerived) Release() error {
	return dm.release(KindEdit, func() {
		for _, b := range []geom.Buffer[geom.Vec3]{dm.cos, dm.vertNos, dm.faceNos} {
			if b != nil {
				b.Free()
			}
		}
		dm.em = nil
	})
}
