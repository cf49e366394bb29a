package modifiers

import (
	"testing"

	"github.com/chazu/dmesh/pkg/derived"
	"github.com/chazu/dmesh/pkg/geom"
	"github.com/chazu/dmesh/pkg/logging"
	"github.com/chazu/dmesh/pkg/mesh"
	"github.com/chazu/dmesh/pkg/modifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logging.Discard()
}

func newMod(t *testing.T, typ modifier.Type, configure func(settings any)) (*modifier.Modifier, *modifier.TypeInfo) {
	t.Helper()
	reg := Default()
	md, err := reg.NewModifier(string(typ), typ)
	require.NoError(t, err)
	if configure != nil {
		configure(md.Settings)
	}
	return md, reg.Info(typ)
}

func TestDefaultRegistry(t *testing.T) {
	assert.Equal(t,
		[]modifier.Type{Hook, Mirror, ParentDeform, Smooth, Subdivide, Translate},
		Default().Types())
}

func TestTranslate(t *testing.T) {
	md, ti := newMod(t, Translate, func(s any) { s.(*TranslateSettings).Offset = geom.V3(1, 0, 0) })
	assert.False(t, ti.Disabled(md))

	me := mesh.Cube(2)
	cos := me.VertexCos()
	ti.DeformVerts(md, &modifier.Context{Base: me}, nil, cos)
	for i, co := range cos {
		assert.Equal(t, me.Verts[i].Co.Add(geom.V3(1, 0, 0)), co)
	}

	md.Settings.(*TranslateSettings).Offset = geom.Vec3{}
	assert.True(t, ti.Disabled(md))
}

func TestHook(t *testing.T) {
	md, ti := newMod(t, Hook, nil)
	assert.True(t, ti.Disabled(md), "hook without vertices")
	assert.True(t, ti.Flags.Has(modifier.FlagRequiresOriginalData))

	s := md.Settings.(*HookSettings)
	s.Indices = []int{0, 3, 99}
	s.Offset = geom.V3(0, 0, 2)
	s.Force = 0.5
	require.False(t, ti.Disabled(md))

	me := mesh.Cube(2)
	cos := me.VertexCos()
	ti.DeformVerts(md, &modifier.Context{Base: me}, nil, cos)
	for i, co := range cos {
		want := me.Verts[i].Co
		if i == 0 || i == 3 {
			want = want.Add(geom.V3(0, 0, 1))
		}
		assert.Equal(t, want, co, "vertex %d", i)
	}
}

func TestSmooth(t *testing.T) {
	md, ti := newMod(t, Smooth, func(s any) { s.(*SmoothSettings).Factor = 1 })
	me := mesh.Grid(2, 2, 2)
	cos := me.VertexCos()
	cos[4][2] = 1

	ti.DeformVerts(md, &modifier.Context{Base: me}, nil, cos)
	assert.InDelta(t, 0, cos[4][2], 1e-6)
	assert.InDelta(t, 1.0/3, cos[1][2], 1e-6)
	assert.InDelta(t, 0, cos[0][2], 1e-6)

	md.Settings.(*SmoothSettings).Repeat = 0
	assert.True(t, ti.Disabled(md))
}

func TestSmoothOnEditMesh(t *testing.T) {
	md, ti := newMod(t, Smooth, func(s any) { s.(*SmoothSettings).Factor = 1 })
	em := mesh.FromMesh(mesh.Grid(2, 2, 2))
	cos := em.VertexCos()
	cos[4][2] = 1
	ti.DeformVertsEM(md, &modifier.Context{EditMesh: em}, nil, cos)
	assert.InDelta(t, 0, cos[4][2], 1e-6)
}

func TestSubdivideCube(t *testing.T) {
	md, ti := newMod(t, Subdivide, nil)
	me := mesh.Cube(2)
	dm := ti.ApplyModifier(md, &modifier.Context{Base: me}, nil, nil)
	require.NotNil(t, dm)
	defer func() { require.NoError(t, dm.Release()) }()

	assert.Equal(t, derived.KindFlat, dm.Kind())
	assert.Equal(t, 8+12+6, dm.NumVerts())
	assert.Equal(t, 24, dm.NumFaces())
	assert.Equal(t, 48, dm.NumEdges())

	var verts []int
	dm.ForEachMappedVert(func(index int, co, _ geom.Vec3) {
		verts = append(verts, index)
		assert.Equal(t, me.Verts[index].Co, co)
	})
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, verts)

	faces := map[int]int{}
	dm.ForEachMappedFaceCenter(func(index int, _, no geom.Vec3) {
		faces[index]++
		assert.InDelta(t, 1, no.Len(), 1e-3)
	})
	assert.Len(t, faces, 6)
	for i := 0; i < 6; i++ {
		assert.Equal(t, 4, faces[i], "face %d", i)
	}

	edges := map[int]int{}
	dm.ForEachMappedEdge(func(index int, _, _ geom.Vec3) { edges[index]++ })
	assert.Len(t, edges, 12)
	for i := 0; i < 12; i++ {
		assert.Equal(t, 2, edges[i], "edge %d", i)
	}

	b := dm.Bounds()
	assert.True(t, b.Size().ApproxEqual(geom.V3(2, 2, 2), 1e-6))
}

func TestSubdivideTwoLevelsKeepsMapping(t *testing.T) {
	md, ti := newMod(t, Subdivide, func(s any) { s.(*SubdivideSettings).Levels = 2 })
	dm := ti.ApplyModifier(md, &modifier.Context{Base: mesh.Plane(2)}, nil, nil)
	defer func() { require.NoError(t, dm.Release()) }()

	assert.Equal(t, 16, dm.NumFaces())
	faces := map[int]int{}
	dm.ForEachMappedFaceCenter(func(index int, _, _ geom.Vec3) { faces[index]++ })
	assert.Equal(t, map[int]int{0: 16}, faces)

	n := 0
	dm.ForEachMappedVert(func(int, geom.Vec3, geom.Vec3) { n++ })
	assert.Equal(t, 4, n)
}

func TestSubdivideUsesDisplacedPositions(t *testing.T) {
	md, ti := newMod(t, Subdivide, nil)
	me := mesh.Plane(2)
	cos := me.VertexCos()
	for i := range cos {
		cos[i] = cos[i].Scale(2)
	}
	keep := geom.CopyCos(cos)
	dm := ti.ApplyModifier(md, &modifier.Context{Base: me}, nil, cos)
	defer func() { require.NoError(t, dm.Release()) }()

	assert.Equal(t, keep, cos, "apply must not write the position buffer")
	assert.True(t, dm.Bounds().Size().ApproxEqual(geom.V3(4, 4, 0), 1e-6))
}

func TestSubdivideDisabled(t *testing.T) {
	md, ti := newMod(t, Subdivide, func(s any) { s.(*SubdivideSettings).Levels = 0 })
	assert.True(t, ti.Disabled(md))
}

func TestMirrorGrid(t *testing.T) {
	md, ti := newMod(t, Mirror, nil)
	dm := ti.ApplyModifier(md, &modifier.Context{Base: mesh.Grid(2, 2, 2)}, nil, nil)
	defer func() { require.NoError(t, dm.Release()) }()

	assert.Equal(t, 9+6, dm.NumVerts(), "vertices on the plane are shared")
	assert.Equal(t, 8, dm.NumFaces())
	assert.Equal(t, 12+10, dm.NumEdges())

	n := 0
	dm.ForEachMappedVert(func(int, geom.Vec3, geom.Vec3) { n++ })
	assert.Equal(t, 9, n)

	// Mirrored faces keep facing the same way after the winding flip.
	dm.ForEachMappedFaceCenter(func(index int, _, no geom.Vec3) {
		assert.True(t, no.ApproxEqual(geom.V3(0, 0, 1), 1e-5), "face %d normal %v", index, no)
	})
}

func TestMirrorEditMesh(t *testing.T) {
	md, ti := newMod(t, Mirror, nil)
	me := mesh.Cube(2)
	cos := me.VertexCos()
	for i := range cos {
		cos[i] = cos[i].Add(geom.V3(2, 0, 0))
	}
	em := mesh.FromMesh(me)
	dm := ti.ApplyModifierEM(md, &modifier.Context{EditMesh: em}, nil, cos)
	defer func() { require.NoError(t, dm.Release()) }()

	assert.Equal(t, 16, dm.NumVerts())
	assert.Equal(t, 12, dm.NumFaces())
	b := dm.Bounds()
	assert.InDelta(t, -3, b.Min[0], 1e-6)
	assert.InDelta(t, 3, b.Max[0], 1e-6)
}
