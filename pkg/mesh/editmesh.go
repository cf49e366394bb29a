package mesh

import "github.com/chazu/dmesh/pkg/geom"

// EditVert is a live vertex record in an edit mesh.
type EditVert struct {
	next, prev *EditVert

	Co     geom.Vec3
	No     geom.Vec3
	Flag   VertFlag
	Hidden bool
}

// Next returns the following vertex in the list, or nil.
func (v *EditVert) Next() *EditVert { return v.next }

// Prev returns the preceding vertex in the list, or nil.
func (v *EditVert) Prev() *EditVert { return v.prev }

// EditEdge is a live edge record.
type EditEdge struct {
	next, prev *EditEdge

	V1, V2 *EditVert
	Flag   EdgeFlag
}

func (e *EditEdge) Next() *EditEdge { return e.next }
func (e *EditEdge) Prev() *EditEdge { return e.prev }

// Uses reports whether v is one of the edge's endpoints.
func (e *EditEdge) Uses(v *EditVert) bool {
	return e.V1 == v || e.V2 == v
}

// EditFace is a live triangle or quad. V4 is nil for triangles.
type EditFace struct {
	next, prev *EditFace

	V1, V2, V3, V4 *EditVert
	N              geom.Vec3 // face normal, kept by RecalcNormals
	Cent           geom.Vec3
	Flag           FaceFlag
	MatNr          int
}

func (f *EditFace) Next() *EditFace { return f.next }
func (f *EditFace) Prev() *EditFace { return f.prev }

// Verts returns the face corners.
func (f *EditFace) Verts() []*EditVert {
	if f.V4 != nil {
		return []*EditVert{f.V1, f.V2, f.V3, f.V4}
	}
	return []*EditVert{f.V1, f.V2, f.V3}
}

// Uses reports whether v is one of the face's corners.
func (f *EditFace) Uses(v *EditVert) bool {
	return f.V1 == v || f.V2 == v || f.V3 == v || f.V4 == v
}

// list is an intrusive doubly linked list with first/last pointers.
type list[T any] struct {
	first, last *T
	count       int
}

// EditMesh is the live, editable topology of a mesh in edit mode. Records
// are kept in doubly linked lists so tools can insert and delete without
// reindexing; list order defines the vertex ordering that displaced
// position arrays are indexed by.
type EditMesh struct {
	verts list[EditVert]
	edges list[EditEdge]
	faces list[EditFace]
}

// NewEditMesh returns an empty edit mesh.
func NewEditMesh() *EditMesh {
	return &EditMesh{}
}

func (em *EditMesh) FirstVert() *EditVert { return em.verts.first }
func (em *EditMesh) FirstEdge() *EditEdge { return em.edges.first }
func (em *EditMesh) FirstFace() *EditFace { return em.faces.first }

func (em *EditMesh) NumVerts() int { return em.verts.count }
func (em *EditMesh) NumEdges() int { return em.edges.count }
func (em *EditMesh) NumFaces() int { return em.faces.count }

// AddVert appends a vertex at co.
func (em *EditMesh) AddVert(co geom.Vec3) *EditVert {
	v := &EditVert{Co: co}
	if em.verts.last == nil {
		em.verts.first = v
	} else {
		em.verts.last.next = v
		v.prev = em.verts.last
	}
	em.verts.last = v
	em.verts.count++
	return v
}

// FindEdge returns the edge joining a and b in either direction, or nil.
func (em *EditMesh) FindEdge(a, b *EditVert) *EditEdge {
	for e := em.edges.first; e != nil; e = e.next {
		if (e.V1 == a && e.V2 == b) || (e.V1 == b && e.V2 == a) {
			return e
		}
	}
	return nil
}

// AddEdge returns the edge joining a and b, creating it if needed.
func (em *EditMesh) AddEdge(a, b *EditVert) *EditEdge {
	if e := em.FindEdge(a, b); e != nil {
		return e
	}
	e := &EditEdge{V1: a, V2: b}
	if em.edges.last == nil {
		em.edges.first = e
	} else {
		em.edges.last.next = e
		e.prev = em.edges.last
	}
	em.edges.last = e
	em.edges.count++
	return e
}

// AddFace appends a face, creating any missing boundary edges. Pass nil
// for v4 to make a triangle.
func (em *EditMesh) AddFace(v1, v2, v3, v4 *EditVert) *EditFace {
	f := &EditFace{V1: v1, V2: v2, V3: v3, V4: v4}
	vs := f.Verts()
	for i := range vs {
		em.AddEdge(vs[i], vs[(i+1)%len(vs)])
	}
	f.N, f.Cent = editFaceGeometry(f)
	if em.faces.last == nil {
		em.faces.first = f
	} else {
		em.faces.last.next = f
		f.prev = em.faces.last
	}
	em.faces.last = f
	em.faces.count++
	return f
}

// RemoveFace unlinks f. Its edges stay.
func (em *EditMesh) RemoveFace(f *EditFace) {
	if f.prev != nil {
		f.prev.next = f.next
	} else {
		em.faces.first = f.next
	}
	if f.next != nil {
		f.next.prev = f.prev
	} else {
		em.faces.last = f.prev
	}
	f.next, f.prev = nil, nil
	em.faces.count--
}

func (em *EditMesh) removeEdge(e *EditEdge) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		em.edges.first = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		em.edges.last = e.prev
	}
	e.next, e.prev = nil, nil
	em.edges.count--
}

// RemoveVert unlinks v together with every edge and face using it.
func (em *EditMesh) RemoveVert(v *EditVert) {
	for f := em.faces.first; f != nil; {
		next := f.next
		if f.Uses(v) {
			em.RemoveFace(f)
		}
		f = next
	}
	for e := em.edges.first; e != nil; {
		next := e.next
		if e.Uses(v) {
			em.removeEdge(e)
		}
		e = next
	}
	if v.prev != nil {
		v.prev.next = v.next
	} else {
		em.verts.first = v.next
	}
	if v.next != nil {
		v.next.prev = v.prev
	} else {
		em.verts.last = v.prev
	}
	v.next, v.prev = nil, nil
	em.verts.count--
}

// VertexCos returns a snapshot of the vertex positions in list order.
func (em *EditMesh) VertexCos() []geom.Vec3 {
	cos := make([]geom.Vec3, 0, em.verts.count)
	for v := em.verts.first; v != nil; v = v.next {
		cos = append(cos, v.Co)
	}
	return cos
}

// VertIndex builds a side table from vertex record to list position. The
// records themselves are never used to carry the index, so the table can
// be dropped at any point without restoring anything.
func (em *EditMesh) VertIndex() map[*EditVert]int {
	idx := make(map[*EditVert]int, em.verts.count)
	i := 0
	for v := em.verts.first; v != nil; v = v.next {
		idx[v] = i
		i++
	}
	return idx
}

// RecalcNormals refreshes face normals and centers and the live vertex
// normals.
func (em *EditMesh) RecalcNormals() {
	acc := make(map[*EditVert]geom.Vec3, em.verts.count)
	for f := em.faces.first; f != nil; f = f.next {
		f.N, f.Cent = editFaceGeometry(f)
		for _, v := range f.Verts() {
			acc[v] = acc[v].Add(f.N)
		}
	}
	for v := em.verts.first; v != nil; v = v.next {
		v.No = VertexNormal(acc[v], v.Co)
	}
}

// Bounds returns the bounds of the live positions.
func (em *EditMesh) Bounds() geom.Box {
	return geom.BoundsOf(em.VertexCos())
}

func editFaceGeometry(f *EditFace) (n, cent geom.Vec3) {
	if f.V4 != nil {
		return geom.QuadNormal(f.V1.Co, f.V2.Co, f.V3.Co, f.V4.Co),
			geom.QuadCenter(f.V1.Co, f.V2.Co, f.V3.Co, f.V4.Co)
	}
	return geom.TriNormal(f.V1.Co, f.V2.Co, f.V3.Co),
		geom.TriCenter(f.V1.Co, f.V2.Co, f.V3.Co)
}
