// Package modifiers is the reference modifier library: a small set of
// deform and constructive modifiers registered against the modifier
// capability table.
package modifiers

import (
	"github.com/chazu/dmesh/pkg/derived"
	"github.com/chazu/dmesh/pkg/geom"
	"github.com/chazu/dmesh/pkg/mesh"
	"github.com/chazu/dmesh/pkg/modifier"
)

// Registered type names.
const (
	Translate    modifier.Type = "translate"
	Hook         modifier.Type = "hook"
	Smooth       modifier.Type = "smooth"
	ParentDeform modifier.Type = modifier.ParentDeform
	Subdivide    modifier.Type = "subdivide"
	Mirror       modifier.Type = "mirror"
)

// Default returns a registry holding every modifier in this package.
func Default() *modifier.Registry {
	r := modifier.NewRegistry()
	Register(r)
	return r
}

// Register adds every modifier in this package to r.
func Register(r *modifier.Registry) {
	r.MustRegister(translateInfo())
	r.MustRegister(hookInfo())
	r.MustRegister(smoothInfo())
	r.MustRegister(parentDeformInfo())
	r.MustRegister(subdivideInfo())
	r.MustRegister(mirrorInfo())
}

// settingsOf returns md's settings as *T, or a zero value when the entry
// was built without settings of that type.
func settingsOf[T any](md *modifier.Modifier) *T {
	if s, ok := md.Settings.(*T); ok && s != nil {
		return s
	}
	return new(T)
}

// sourceFlat returns an owned flat copy of the geometry a constructive
// modifier starts from: the current derived mesh if there is one,
// otherwise the edit mesh or base mesh, with cos applied as positions.
func sourceFlat(ctx *modifier.Context, dm derived.DerivedMesh, cos []geom.Vec3) *mesh.FlatMesh {
	var fm *mesh.FlatMesh
	switch {
	case dm != nil:
		fm = dm.ConvertToFlat(false)
	case ctx.EditMesh != nil:
		view := derived.NewEdit(ctx.EditMesh, nil)
		fm = view.ConvertToFlat(false)
		_ = view.Release()
	default:
		fm = ctx.Base.VertsFlat()
	}
	if cos != nil {
		verts := fm.VertData()
		for i := range verts {
			verts[i].Co = cos[i]
		}
		fm.FaceNos = nil
	}
	return fm
}

// topologyEdges returns the edges that cos is laid out against.
func topologyEdges(ctx *modifier.Context, dm derived.DerivedMesh) []mesh.MEdge {
	switch {
	case dm != nil:
		return dm.ConvertToFlat(true).EdgeData()
	case ctx.EditMesh != nil:
		idx := ctx.EditMesh.VertIndex()
		edges := make([]mesh.MEdge, 0, ctx.EditMesh.NumEdges())
		for e := ctx.EditMesh.FirstEdge(); e != nil; e = e.Next() {
			edges = append(edges, mesh.MEdge{V: [2]int{idx[e.V1], idx[e.V2]}})
		}
		return edges
	case len(ctx.Base.Edges) > 0:
		return ctx.Base.Edges
	default:
		return mesh.EdgesFromFaces(ctx.Base.Faces)
	}
}
