package mesh

// FromMesh builds an edit mesh from a stored mesh. Hidden and selection
// flags carry over; vertex order is preserved.
func FromMesh(me *Mesh) *EditMesh {
	em := NewEditMesh()
	verts := make([]*EditVert, len(me.Verts))
	for i, mv := range me.Verts {
		v := em.AddVert(mv.Co)
		v.No = mv.Normal()
		v.Flag = mv.Flag &^ VertStepIndex
		v.Hidden = mv.Flag&VertHidden != 0
		verts[i] = v
	}
	for _, med := range me.Edges {
		e := em.AddEdge(verts[med.V[0]], verts[med.V[1]])
		e.Flag = med.Flag &^ EdgeStepIndex
	}
	for _, mf := range me.Faces {
		var v4 *EditVert
		if mf.IsQuad() {
			v4 = verts[mf.V[3]]
		}
		f := em.AddFace(verts[mf.V[0]], verts[mf.V[1]], verts[mf.V[2]], v4)
		f.Flag = mf.Flag &^ FaceStepIndex
		f.MatNr = mf.MatNr
	}
	em.RecalcNormals()
	return em
}

// ToMesh writes the edit mesh back out as a stored mesh.
func (em *EditMesh) ToMesh(name string) *Mesh {
	idx := em.VertIndex()
	me := &Mesh{
		Name:  name,
		Verts: make([]MVert, 0, em.NumVerts()),
		Edges: make([]MEdge, 0, em.NumEdges()),
		Faces: make([]MFace, 0, em.NumFaces()),
	}
	for v := em.FirstVert(); v != nil; v = v.Next() {
		flag := v.Flag
		if v.Hidden {
			flag |= VertHidden
		}
		me.Verts = append(me.Verts, MVert{Co: v.Co, Flag: flag})
	}
	for e := em.FirstEdge(); e != nil; e = e.Next() {
		me.Edges = append(me.Edges, MEdge{V: [2]int{idx[e.V1], idx[e.V2]}, Flag: e.Flag})
	}
	for f := em.FirstFace(); f != nil; f = f.Next() {
		var mf MFace
		if f.V4 != nil {
			mf = Quad(idx[f.V1], idx[f.V2], idx[f.V3], idx[f.V4])
		} else {
			mf = Tri(idx[f.V1], idx[f.V2], idx[f.V3])
		}
		mf.Flag = f.Flag
		mf.MatNr = f.MatNr
		me.Faces = append(me.Faces, mf)
	}
	me.CalcNormals()
	return me
}
