package stack

import (
	"testing"

	"github.com/chazu/dmesh/pkg/derived"
	"github.com/chazu/dmesh/pkg/geom"
	"github.com/chazu/dmesh/pkg/logging"
	"github.com/chazu/dmesh/pkg/mesh"
	"github.com/chazu/dmesh/pkg/modifier"
	"github.com/chazu/dmesh/pkg/modifiers"
	"github.com/chazu/dmesh/pkg/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logging.Discard()
}

// lossy is a constructive type that cannot map back to original elements.
const lossy modifier.Type = "lossy"

func testRegistry() *modifier.Registry {
	reg := modifiers.Default()
	apply := func(_ *modifier.Modifier, ctx *modifier.Context, _ derived.DerivedMesh, _ []geom.Vec3) derived.DerivedMesh {
		return derived.NewFlat(mesh.Plane(1).VertsFlat(), nil)
	}
	reg.MustRegister(&modifier.TypeInfo{
		Name:          lossy,
		Kind:          modifier.KindConstructive,
		ApplyModifier: apply,
	})
	return reg
}

func translate(x, y, z float32) *modifier.Modifier {
	return modifier.New("translate", modifiers.Translate, &modifiers.TranslateSettings{Offset: geom.V3(x, y, z)})
}

func subdivide(levels int) *modifier.Modifier {
	return modifier.New("subdivide", modifiers.Subdivide, &modifiers.SubdivideSettings{Levels: levels})
}

func hook(indices ...int) *modifier.Modifier {
	return modifier.New("hook", modifiers.Hook, &modifiers.HookSettings{Indices: indices, Offset: geom.V3(0, 0, 1), Force: 1})
}

func cubeObject(mods ...*modifier.Modifier) *object.Object {
	ob := object.New("cube", mesh.Cube(2))
	ob.Modifiers = mods
	return ob
}

func positions(dm derived.DerivedMesh) []geom.Vec3 {
	cos := make([]geom.Vec3, dm.NumVerts())
	dm.VertCos(cos)
	return cos
}

func TestEmptyStackGivesMeshBackend(t *testing.T) {
	e := NewEvaluator(testRegistry())
	ob := cubeObject()

	dm := e.FinalDerived(ob)
	require.Equal(t, derived.KindMesh, dm.Kind())
	assert.Equal(t, 8, dm.NumVerts())
	assert.Equal(t, 6, dm.NumFaces())

	axes := []geom.Vec3{{0, 0, -1}, {0, 0, 1}, {0, -1, 0}, {0, 1, 0}, {-1, 0, 0}, {1, 0, 0}}
	dm.ForEachMappedFaceCenter(func(index int, _, no geom.Vec3) {
		assert.True(t, no.ApproxEqual(axes[index], 1e-6), "face %d normal %v", index, no)
	})
	for i := 0; i < dm.NumVerts(); i++ {
		want, _ := ob.Data.Verts[i].Co.Normalize()
		assert.True(t, dm.VertNo(i).ApproxEqual(want, 1e-3), "vertex %d", i)
	}
	assert.False(t, dm.(*derived.MeshDerived).Displaced())
}

func TestDeformOnlyTranslate(t *testing.T) {
	e := NewEvaluator(testRegistry())
	ob := cubeObject(translate(1, 0, 0))

	dm := e.DeformDerived(ob)
	require.Equal(t, 8, dm.NumVerts())
	for i, co := range positions(dm) {
		assert.Equal(t, ob.Data.Verts[i].Co.Add(geom.V3(1, 0, 0)), co)
	}
	assert.Equal(t, mesh.Cube(2).VertexCos(), ob.Data.VertexCos(), "base mesh modified")

	box := e.BoundBox(ob)
	assert.Equal(t, geom.V3(0, -1, -1), box.Min)
	assert.Equal(t, geom.V3(2, 1, 1), box.Max)
}

func TestRequiresOriginalDataAfterConstructive(t *testing.T) {
	e := NewEvaluator(testRegistry())
	sub, hk := subdivide(1), hook(0, 1)
	ob := cubeObject(sub, hk)

	final := e.FinalDerived(ob)
	assert.Equal(t, errBadStackPosition, hk.Error)
	assert.Empty(t, sub.Error)

	alone := e.FinalDerived(cubeObject(subdivide(1)))
	require.Equal(t, alone.NumVerts(), final.NumVerts())
	assert.Equal(t, positions(alone), positions(final))

	// Errors are cleared when the entry moves to a valid position.
	ob.Modifiers = []*modifier.Modifier{hk, sub}
	require.NoError(t, e.InvalidateCaches(ob))
	e.FinalDerived(ob)
	assert.Empty(t, hk.Error)
}

func TestEditCageIndexZero(t *testing.T) {
	e := NewEvaluator(testRegistry())
	ob := cubeObject(subdivide(1))
	sess := object.Edit(ob, 0)

	cage, final := e.EditCageAndFinal(sess)
	require.Equal(t, derived.KindEdit, cage.Kind())
	assert.True(t, cage.(*derived.EditDerived).ZeroCopy())
	assert.Equal(t, derived.KindFlat, final.Kind())
	assert.Equal(t, 26, final.NumVerts())
	assert.NotSame(t, cage, final)

	require.NoError(t, final.Release())
	sess.Final = nil
	assert.Equal(t, 8, cage.NumVerts())
	assert.Equal(t, sess.Mesh.FirstVert().Co, cage.VertCo(0))
	assert.NoError(t, e.InvalidateEditCaches(sess))
	assert.Nil(t, sess.Cage)
}

func TestReleasedHandlesAreNeverReturned(t *testing.T) {
	e := NewEvaluator(testRegistry())
	ob := cubeObject(translate(0, 1, 0), subdivide(1))

	first := e.FinalDerived(ob)
	assert.Same(t, first, e.FinalDerived(ob), "cache hit must return the same instance")
	firstID := first.ID()

	require.NoError(t, e.InvalidateCaches(ob))
	assert.Nil(t, ob.DerivedFinal)
	assert.Nil(t, ob.DerivedDeform)
	assert.Nil(t, ob.BoundBox)
	assert.Equal(t, 0, first.Refs())
	first = nil

	second := e.FinalDerived(ob)
	assert.NotEqual(t, firstID, second.ID())
	assert.Equal(t, 1, second.Refs())
	assert.Equal(t, 26, second.NumVerts())
}

func TestRetainedHandleOutlivesInvalidation(t *testing.T) {
	e := NewEvaluator(testRegistry())
	ob := cubeObject(subdivide(1))
	dm := e.FinalDerived(ob)
	dm.Retain()
	require.NoError(t, e.InvalidateCaches(ob))
	assert.Equal(t, 26, dm.NumVerts())
	require.NoError(t, dm.Release())
}

func TestDeformAfterConstructiveIsFlattened(t *testing.T) {
	e := NewEvaluator(testRegistry())
	ob := cubeObject(subdivide(1), translate(0, 0, 3))
	dm := e.FinalDerived(ob)
	require.Equal(t, derived.KindFlat, dm.Kind())
	assert.Equal(t, 26, dm.NumVerts())
	b := dm.Bounds()
	assert.InDelta(t, 2, b.Min[2], 1e-6)
	assert.InDelta(t, 4, b.Max[2], 1e-6)

	deform := e.DeformDerived(ob)
	assert.Equal(t, 8, deform.NumVerts(), "deform cache stops at the first constructive entry")
}

func TestModesAndUnknownTypes(t *testing.T) {
	e := NewEvaluator(testRegistry())
	viewportOnly := subdivide(1)
	viewportOnly.Mode = modifier.ModeRealtime
	bogus := modifier.New("bogus", "no-such-type", nil)
	ob := cubeObject(bogus, viewportOnly)

	assert.Equal(t, 26, e.FinalDerived(ob).NumVerts())
	assert.Contains(t, bogus.Error, "unknown modifier type")

	render := e.RenderDerived(ob)
	assert.Equal(t, 8, render.NumVerts())
	assert.NotSame(t, render, ob.DerivedFinal)
	require.NoError(t, render.Release())
}

func TestWeightPaintSkipsUnmappedModifiers(t *testing.T) {
	e := NewEvaluator(testRegistry())
	ob := cubeObject(modifier.New("lossy", lossy, nil))
	assert.Equal(t, 4, e.FinalDerived(ob).NumVerts())

	ob.WeightPaint = true
	ob.Recalc |= object.RecalcObject
	dm := e.Update(ob)
	assert.Equal(t, 8, dm.NumVerts())
	assert.Equal(t, object.Recalc(0), ob.Recalc)
	assert.Same(t, dm, e.Update(ob))
}

func TestDerivedNoDeform(t *testing.T) {
	e := NewEvaluator(testRegistry())
	ob := cubeObject(translate(5, 0, 0), subdivide(1))

	cos := ob.Data.VertexCos()
	for i := range cos {
		cos[i] = cos[i].Scale(2)
	}
	keep := geom.CopyCos(cos)

	dm := e.DerivedNoDeform(ob, cos)
	defer func() { require.NoError(t, dm.Release()) }()
	assert.Equal(t, keep, cos, "caller positions written")
	b := dm.Bounds()
	assert.Equal(t, geom.V3(-2, -2, -2), b.Min, "translate must be skipped")
	assert.Equal(t, geom.V3(2, 2, 2), b.Max)

	plain := e.RenderDerivedNoDeform(cubeObject(translate(5, 0, 0)), cos)
	defer func() { require.NoError(t, plain.Release()) }()
	assert.Equal(t, keep, positions(plain))
	assert.Equal(t, keep, cos)
}

func TestFluidSurfaceSubstitution(t *testing.T) {
	e := NewEvaluator(testRegistry())
	ob := cubeObject()
	base := ob.Data
	surface := mesh.Plane(4)
	up := make([]geom.Vec3, surface.NumVerts())
	for i := range up {
		up[i] = geom.V3(0, 0, 1)
	}
	ob.Fluid = &object.FluidSurface{Mesh: surface, Normals: up, Active: true}

	dm := e.FinalDerived(ob)
	assert.Equal(t, 4, dm.NumVerts())
	assert.True(t, dm.VertNo(0).ApproxEqual(geom.V3(0, 0, 1), 1e-4))
	assert.Same(t, base, ob.Data, "mesh not restored")

	nd := e.DerivedNoDeform(ob, base.VertexCos())
	assert.Equal(t, 4, nd.NumVerts())
	require.NoError(t, nd.Release())
	assert.Same(t, base, ob.Data)
}

func TestShapeKeySeedsDeform(t *testing.T) {
	e := NewEvaluator(testRegistry())
	ob := cubeObject(translate(1, 0, 0))
	ref := ob.Data.VertexCos()
	raised := geom.CopyCos(ref)
	for i := range raised {
		raised[i][2] += 2
	}
	ob.Data.Key = &mesh.Key{Blocks: []mesh.KeyBlock{
		{Name: "Basis", Cos: ref},
		{Name: "Raised", Cos: raised, Weight: 0.5},
	}}

	for i, co := range positions(e.DeformDerived(ob)) {
		assert.Equal(t, ref[i].Add(geom.V3(1, 0, 1)), co)
	}
}

func TestParentDeformRunsFirst(t *testing.T) {
	e := NewEvaluator(testRegistry())
	parent := object.New("parent", mesh.Cube(1))
	parent.Location = geom.V3(0, 0, 10)
	ob := cubeObject(hook(0))
	ob.Parent = parent
	ob.ParentDeform = true

	dm := e.FinalDerived(ob)
	assert.Empty(t, ob.Modifiers[0].Error)
	assert.Equal(t, ob.Data.Verts[0].Co.Add(geom.V3(0, 0, 11)), dm.VertCo(0))
	assert.Equal(t, ob.Data.Verts[1].Co.Add(geom.V3(0, 0, 10)), dm.VertCo(1))
}

func TestParentDeformErrorSurvivesEvaluation(t *testing.T) {
	e := NewEvaluator(modifier.NewRegistry())
	parent := object.New("parent", mesh.Cube(1))
	ob := cubeObject()
	ob.Parent = parent
	ob.ParentDeform = true

	e.FinalDerived(ob)
	list := ob.ModifierList()
	require.Len(t, list, 1)
	assert.Contains(t, list[0].Error, "unknown modifier type")
	assert.Len(t, modifier.Errors(ob.ModifierList()), 1)
}

func TestEditCageAliasesFinal(t *testing.T) {
	e := NewEvaluator(testRegistry())
	mirror := modifier.New("mirror", modifiers.Mirror, &modifiers.MirrorSettings{Axis: 9})
	ob := cubeObject(subdivide(1), mirror)
	sess := object.Edit(ob, 1)

	cage, final := e.EditCageAndFinal(sess)
	require.Same(t, cage, final)
	assert.Equal(t, 2, cage.Refs())
	assert.Same(t, cage, e.EditCage(sess))

	require.NoError(t, e.InvalidateEditCaches(sess))
	assert.Equal(t, 0, cage.Refs())
	assert.Nil(t, sess.Cage)
	assert.Nil(t, sess.Final)
}

func TestEditCageCapturedMidStack(t *testing.T) {
	e := NewEvaluator(testRegistry())
	ob := cubeObject(translate(1, 0, 0), subdivide(1), translate(0, 1, 0))

	tests := []struct {
		cage      int
		wantKind  derived.Kind
		wantVerts int
		wantMin   geom.Vec3
	}{
		{0, derived.KindEdit, 8, geom.V3(-1, -1, -1)},
		{1, derived.KindEdit, 8, geom.V3(0, -1, -1)},
		{2, derived.KindFlat, 26, geom.V3(0, -1, -1)},
		{3, derived.KindFlat, 26, geom.V3(0, 0, -1)},
		{4, derived.KindEdit, 8, geom.V3(-1, -1, -1)},
	}
	for _, tt := range tests {
		sess := object.Edit(ob, tt.cage)
		cage, final := e.EditCageAndFinal(sess)
		assert.Equal(t, tt.wantKind, cage.Kind(), "cage %d", tt.cage)
		assert.Equal(t, tt.wantVerts, cage.NumVerts(), "cage %d", tt.cage)
		assert.Equal(t, tt.wantMin, cage.Bounds().Min, "cage %d", tt.cage)
		assert.Equal(t, geom.V3(0, 0, -1), final.Bounds().Min, "cage %d", tt.cage)
		if tt.cage == 3 {
			assert.Same(t, cage, final, "full-stack cage is the final mesh")
			assert.Equal(t, 2, final.Refs())
		}
		require.NoError(t, e.InvalidateEditCaches(sess))
	}
}

func TestEditOnCageLastEntryShowsResult(t *testing.T) {
	e := NewEvaluator(testRegistry())
	tr := translate(5, 0, 0)
	tr.Mode |= modifier.ModeOnCage
	sess := e.Edit(cubeObject(tr))
	require.Equal(t, 1, sess.CageIndex)

	cage, final := e.EditCageAndFinal(sess)
	assert.Same(t, cage, final)
	assert.Equal(t, geom.V3(4, -1, -1), cage.Bounds().Min)
	assert.Equal(t, 2, cage.Refs())

	require.NoError(t, e.InvalidateEditCaches(sess))
	assert.Equal(t, 0, cage.Refs())
}

func TestEditEmptyStackSharesView(t *testing.T) {
	e := NewEvaluator(testRegistry())
	sess := e.Edit(cubeObject())
	cage, final := e.EditCageAndFinal(sess)
	assert.Same(t, cage, final)
	assert.Equal(t, 2, cage.Refs())

	base := e.EditBase(sess)
	assert.NotSame(t, cage, base)
	require.NoError(t, base.Release())
	require.NoError(t, e.InvalidateEditCaches(sess))
}

func TestEditSkipsObjectOnlyEntries(t *testing.T) {
	e := NewEvaluator(testRegistry())
	objectOnly := translate(0, 0, 1)
	objectOnly.Mode &^= modifier.ModeEditmode
	ob := cubeObject(objectOnly, modifier.New("lossy", lossy, nil))
	sess := object.Edit(ob, 0)

	_, final := e.EditCageAndFinal(sess)
	assert.Equal(t, derived.KindEdit, final.Kind())
	assert.Equal(t, geom.V3(-1, -1, -1), final.Bounds().Min)
	require.NoError(t, e.InvalidateEditCaches(sess))
}

func TestEditOnCageIndex(t *testing.T) {
	e := NewEvaluator(testRegistry())
	tr := translate(1, 0, 0)
	tr.Mode |= modifier.ModeOnCage
	sess := e.Edit(cubeObject(tr, subdivide(1)))
	assert.Equal(t, 1, sess.CageIndex)
}

func TestFinishEdit(t *testing.T) {
	e := NewEvaluator(testRegistry())
	ob := cubeObject(subdivide(1))
	e.FinalDerived(ob)
	sess := object.Edit(ob, 0)
	e.EditCageAndFinal(sess)

	sess.Mesh.RemoveVert(sess.Mesh.FirstVert())
	require.NoError(t, e.FinishEdit(sess))
	assert.Nil(t, ob.DerivedFinal)
	assert.Nil(t, sess.Cage)
	assert.Equal(t, 7, ob.Data.NumVerts())
	require.NoError(t, ob.Data.Validate())
	assert.Equal(t, 7+9+3, e.Update(ob).NumVerts())
}
