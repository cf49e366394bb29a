package mesh

import "github.com/chazu/dmesh/pkg/geom"

// FlatMesh is a flattened display-list mesh: plain element arrays whose
// step-index flags map flattened elements back to the original elements
// they were generated from. Any of its buffers may be a borrowed view of
// another mesh's storage.
type FlatMesh struct {
	Verts   geom.Buffer[MVert]
	Edges   geom.Buffer[MEdge]
	Faces   geom.Buffer[MFace]
	MCols   geom.Buffer[MCol]
	FaceNos geom.Buffer[geom.Vec3] // nil until normals are calculated
}

// NewFlatMesh returns a flat mesh that owns the given arrays.
func NewFlatMesh(verts []MVert, edges []MEdge, faces []MFace) *FlatMesh {
	return &FlatMesh{
		Verts: geom.Own(verts),
		Edges: geom.Own(edges),
		Faces: geom.Own(faces),
	}
}

func (fm *FlatMesh) NumVerts() int { return geom.Len(fm.Verts) }
func (fm *FlatMesh) NumEdges() int { return geom.Len(fm.Edges) }
func (fm *FlatMesh) NumFaces() int { return geom.Len(fm.Faces) }

// VertData returns the vertex array, or nil.
func (fm *FlatMesh) VertData() []MVert { return data(fm.Verts) }

// EdgeData returns the edge array, or nil.
func (fm *FlatMesh) EdgeData() []MEdge { return data(fm.Edges) }

// FaceData returns the face array, or nil.
func (fm *FlatMesh) FaceData() []MFace { return data(fm.Faces) }

// ColData returns the face-corner colors, or nil.
func (fm *FlatMesh) ColData() []MCol { return data(fm.MCols) }

// FaceNoData returns the face normals, or nil.
func (fm *FlatMesh) FaceNoData() []geom.Vec3 { return data(fm.FaceNos) }

func data[T any](b geom.Buffer[T]) []T {
	if b == nil {
		return nil
	}
	return b.Data()
}

// Clone returns a flat mesh owning deep copies of every buffer.
func (fm *FlatMesh) Clone() *FlatMesh {
	c := &FlatMesh{
		Verts: geom.OwnCopy(fm.VertData()),
		Edges: geom.OwnCopy(fm.EdgeData()),
		Faces: geom.OwnCopy(fm.FaceData()),
	}
	if fm.MCols != nil {
		c.MCols = geom.OwnCopy(fm.ColData())
	}
	if fm.FaceNos != nil {
		c.FaceNos = geom.OwnCopy(fm.FaceNoData())
	}
	return c
}

// MarkIdentity flags every element as the first instance of its own
// original, for flattened copies of meshes that map one to one. Borrowed
// buffers are made writable first.
func (fm *FlatMesh) MarkIdentity() {
	verts := geom.Writable(fm.Verts)
	for i := range verts.Data() {
		verts.Data()[i].Flag |= VertStepIndex
	}
	fm.Verts = verts

	edges := geom.Writable(fm.Edges)
	for i := range edges.Data() {
		edges.Data()[i].Flag |= EdgeStepIndex
	}
	fm.Edges = edges

	faces := geom.Writable(fm.Faces)
	for i := range faces.Data() {
		faces.Data()[i].Flag |= FaceStepIndex
	}
	fm.Faces = faces
}

// Free releases every owned buffer. Borrowed views are left alone.
func (fm *FlatMesh) Free() {
	for _, b := range []interface{ Free() }{fm.Verts, fm.Edges, fm.Faces, fm.MCols, fm.FaceNos} {
		if b != nil {
			b.Free()
		}
	}
}

// ToMesh copies the flat mesh into a standalone base mesh. Step-index
// flags are cleared since they only mean something inside a flat mesh.
func (fm *FlatMesh) ToMesh(name string) *Mesh {
	me := &Mesh{
		Name:  name,
		Verts: append([]MVert(nil), fm.VertData()...),
		Edges: append([]MEdge(nil), fm.EdgeData()...),
		Faces: append([]MFace(nil), fm.FaceData()...),
		MCols: append([]MCol(nil), fm.ColData()...),
	}
	for i := range me.Verts {
		me.Verts[i].Flag &^= VertStepIndex
	}
	for i := range me.Edges {
		me.Edges[i].Flag &^= EdgeStepIndex
	}
	for i := range me.Faces {
		me.Faces[i].Flag &^= FaceStepIndex
	}
	return me
}

// VertsFlat returns a flat mesh owning copies of the mesh's arrays, with
// every element flagged as mapping to itself.
func (m *Mesh) VertsFlat() *FlatMesh {
	edges := append([]MEdge(nil), m.Edges...)
	if len(edges) == 0 {
		edges = EdgesFromFaces(m.Faces)
	}
	fm := NewFlatMesh(append([]MVert(nil), m.Verts...), edges, append([]MFace(nil), m.Faces...))
	if m.MCols != nil {
		fm.MCols = geom.OwnCopy(m.MCols)
	}
	fm.MarkIdentity()
	return fm
}
