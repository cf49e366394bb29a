package modifiers

import (
	"github.com/chazu/dmesh/pkg/derived"
	"github.com/chazu/dmesh/pkg/geom"
	"github.com/chazu/dmesh/pkg/mesh"
	"github.com/chazu/dmesh/pkg/modifier"
	"github.com/chewxy/math32"
)

// MirrorSettings reflect the mesh across the plane through the origin
// normal to Axis (0, 1 or 2). Vertices within Tolerance of the plane are
// snapped onto it and shared by both halves.
type MirrorSettings struct {
	Axis      int     `toml:"axis"`
	Tolerance float32 `toml:"tolerance"`
}

func mirrorInfo() *modifier.TypeInfo {
	apply := func(md *modifier.Modifier, ctx *modifier.Context, dm derived.DerivedMesh, cos []geom.Vec3) derived.DerivedMesh {
		s := settingsOf[MirrorSettings](md)
		src := sourceFlat(ctx, dm, cos)
		defer src.Free()
		return derived.NewFlat(mirrorFlat(src, s.Axis, s.Tolerance), nil)
	}
	return &modifier.TypeInfo{
		Name:        Mirror,
		Kind:        modifier.KindConstructive,
		Flags:       modifier.FlagSupportsEditmode | modifier.FlagSupportsMapping,
		NewSettings: func() any { return &MirrorSettings{Tolerance: 0.001} },
		IsDisabled: func(md *modifier.Modifier) bool {
			axis := settingsOf[MirrorSettings](md).Axis
			return axis < 0 || axis > 2
		},
		ApplyModifier:   apply,
		ApplyModifierEM: apply,
	}
}

// mirrorFlat emits each element followed directly by its mirrored copy,
// so the copy maps to the same original element. Copies are unflagged and
// mirrored faces have their winding reversed.
func mirrorFlat(fm *mesh.FlatMesh, axis int, tol float32) *mesh.FlatMesh {
	src := fm.VertData()
	orig := make([]int, len(src))
	mir := make([]int, len(src))
	verts := make([]mesh.MVert, 0, 2*len(src))
	for i, v := range src {
		if math32.Abs(v.Co[axis]) <= tol {
			v.Co[axis] = 0
			orig[i] = len(verts)
			mir[i] = orig[i]
			verts = append(verts, v)
			continue
		}
		orig[i] = len(verts)
		verts = append(verts, v)
		m := v
		m.Co[axis] = -m.Co[axis]
		m.Flag &^= mesh.VertStepIndex
		mir[i] = len(verts)
		verts = append(verts, m)
	}
	onPlane := func(v int) bool { return orig[v] == mir[v] }

	edges := make([]mesh.MEdge, 0, 2*fm.NumEdges())
	for _, e := range fm.EdgeData() {
		a, b := e.V[0], e.V[1]
		edges = append(edges, mesh.MEdge{V: [2]int{orig[a], orig[b]}, Flag: e.Flag})
		if !onPlane(a) || !onPlane(b) {
			edges = append(edges, mesh.MEdge{V: [2]int{mir[a], mir[b]}, Flag: e.Flag &^ mesh.EdgeStepIndex})
		}
	}

	srcCols := fm.ColData()
	var cols []mesh.MCol
	faces := make([]mesh.MFace, 0, 2*fm.NumFaces())
	for fi, f := range fm.FaceData() {
		vs := f.Verts()
		n := len(vs)
		of := f
		for i, v := range vs {
			of.V[i] = orig[v]
		}
		faces = append(faces, of)
		if srcCols != nil {
			cols = append(cols, srcCols[4*fi:4*fi+4]...)
		}

		flat := true
		for _, v := range vs {
			flat = flat && onPlane(v)
		}
		if flat {
			continue
		}
		mf := f
		mf.Flag &^= mesh.FaceStepIndex
		var mcols [4]mesh.MCol
		for i := 0; i < n; i++ {
			j := (n - i) % n // corner order 0, n-1, ..., 1
			mf.V[i] = mir[vs[j]]
			if srcCols != nil {
				mcols[i] = srcCols[4*fi+j]
			}
		}
		faces = append(faces, mf)
		if srcCols != nil {
			cols = append(cols, mcols[:]...)
		}
	}

	out := mesh.NewFlatMesh(verts, edges, faces)
	if srcCols != nil {
		out.MCols = geom.Own(cols)
	}
	return out
}
