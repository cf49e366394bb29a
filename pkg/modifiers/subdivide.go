package modifiers

import (
	"github.com/chazu/dmesh/pkg/derived"
	"github.com/chazu/dmesh/pkg/geom"
	"github.com/chazu/dmesh/pkg/mesh"
	"github.com/chazu/dmesh/pkg/modifier"
)

// SubdivideSettings split every face into quads Levels times. New
// positions are linear; no smoothing is applied.
type SubdivideSettings struct {
	Levels int `toml:"levels"`
}

func subdivideInfo() *modifier.TypeInfo {
	apply := func(md *modifier.Modifier, ctx *modifier.Context, dm derived.DerivedMesh, cos []geom.Vec3) derived.DerivedMesh {
		fm := sourceFlat(ctx, dm, cos)
		for l := 0; l < settingsOf[SubdivideSettings](md).Levels; l++ {
			next := subdivideOnce(fm)
			fm.Free()
			fm = next
		}
		return derived.NewFlat(fm, nil)
	}
	return &modifier.TypeInfo{
		Name:        Subdivide,
		Kind:        modifier.KindConstructive,
		Flags:       modifier.FlagSupportsEditmode | modifier.FlagSupportsMapping | modifier.FlagEnableInEditmode,
		NewSettings: func() any { return &SubdivideSettings{Levels: 1} },
		IsDisabled: func(md *modifier.Modifier) bool {
			return settingsOf[SubdivideSettings](md).Levels <= 0
		},
		ApplyModifier:   apply,
		ApplyModifierEM: apply,
	}
}

// subdivideOnce splits each n-sided face into n quads around its center.
//
// Original vertices keep their place and flags; new vertices are appended
// unflagged. Each original edge becomes two consecutive edges of which
// only the first keeps the step flag, and each face becomes consecutive
// quads of which only the first does. Interior edges go in front of the
// edge array, before any flagged edge, so mapped traversal skips them.
func subdivideOnce(fm *mesh.FlatMesh) *mesh.FlatMesh {
	src := fm.VertData()
	verts := append(make([]mesh.MVert, 0, len(src)+fm.NumEdges()+fm.NumFaces()), src...)
	mids := make(map[[2]int]int, fm.NumEdges())

	addMid := func(a, b int) int {
		key := [2]int{min(a, b), max(a, b)}
		if m, ok := mids[key]; ok {
			return m
		}
		m := len(verts)
		verts = append(verts, mesh.MVert{Co: verts[a].Co.Lerp(verts[b].Co, 0.5)})
		mids[key] = m
		return m
	}

	var edges []mesh.MEdge
	for _, e := range fm.EdgeData() {
		m := addMid(e.V[0], e.V[1])
		edges = append(edges,
			mesh.MEdge{V: [2]int{e.V[0], m}, Flag: e.Flag},
			mesh.MEdge{V: [2]int{m, e.V[1]}, Flag: e.Flag &^ mesh.EdgeStepIndex},
		)
	}

	var interior []mesh.MEdge
	var faces []mesh.MFace
	srcCols := fm.ColData()
	var cols []mesh.MCol
	for fi, f := range fm.FaceData() {
		vs := f.Verts()
		n := len(vs)
		var c geom.Vec3
		for _, v := range vs {
			c = c.Add(verts[v].Co)
		}
		center := len(verts)
		verts = append(verts, mesh.MVert{Co: c.Scale(1 / float32(n))})

		fmids := make([]int, n)
		for i := range vs {
			key := [2]int{min(vs[i], vs[(i+1)%n]), max(vs[i], vs[(i+1)%n])}
			if _, ok := mids[key]; !ok {
				// face side without an edge record
				m := addMid(vs[i], vs[(i+1)%n])
				interior = append(interior,
					mesh.MEdge{V: [2]int{vs[i], m}},
					mesh.MEdge{V: [2]int{m, vs[(i+1)%n]}},
				)
			}
			fmids[i] = mids[key]
			interior = append(interior, mesh.MEdge{V: [2]int{fmids[i], center}})
		}
		for i := range vs {
			q := mesh.Quad(vs[i], fmids[i], center, fmids[(i+n-1)%n])
			q.Flag = f.Flag
			if i > 0 {
				q.Flag &^= mesh.FaceStepIndex
			}
			q.MatNr = f.MatNr
			faces = append(faces, q)
			if srcCols != nil {
				col := srcCols[4*fi+i]
				cols = append(cols, col, col, col, col)
			}
		}
	}

	out := mesh.NewFlatMesh(verts, append(interior, edges...), faces)
	if srcCols != nil {
		out.MCols = geom.Own(cols)
	}
	return out
}
