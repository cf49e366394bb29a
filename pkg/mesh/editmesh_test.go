package mesh

import (
	"testing"

	"github.com/chazu/dmesh/pkg/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromMeshPreservesTopology(t *testing.T) {
	me := Cube(2)
	em := FromMesh(me)
	assert.Equal(t, 8, em.NumVerts())
	assert.Equal(t, 12, em.NumEdges())
	assert.Equal(t, 6, em.NumFaces())
	assert.Equal(t, me.VertexCos(), em.VertexCos())

	back := em.ToMesh("Cube")
	require.NoError(t, back.Validate())
	assert.Equal(t, me.Faces, back.Faces)
	assert.Equal(t, 12, back.NumEdges())
}

func TestAddEdgeDeduplicates(t *testing.T) {
	em := NewEditMesh()
	a := em.AddVert(geom.V3(0, 0, 0))
	b := em.AddVert(geom.V3(1, 0, 0))
	e1 := em.AddEdge(a, b)
	e2 := em.AddEdge(b, a)
	assert.Same(t, e1, e2)
	assert.Equal(t, 1, em.NumEdges())
}

func TestAddFaceComputesNormal(t *testing.T) {
	em := NewEditMesh()
	a := em.AddVert(geom.V3(0, 0, 0))
	b := em.AddVert(geom.V3(1, 0, 0))
	c := em.AddVert(geom.V3(0, 1, 0))
	f := em.AddFace(a, b, c, nil)
	assert.Equal(t, geom.V3(0, 0, 1), f.N)
	assert.Equal(t, 3, em.NumEdges())
	assert.Len(t, f.Verts(), 3)
}

func TestRemoveVertCascades(t *testing.T) {
	em := FromMesh(Cube(2))
	v := em.FirstVert()
	em.RemoveVert(v)

	assert.Equal(t, 7, em.NumVerts())
	// Corner vertex 0 touches three faces and three edges.
	assert.Equal(t, 3, em.NumFaces())
	assert.Equal(t, 9, em.NumEdges())
	for f := em.FirstFace(); f != nil; f = f.Next() {
		assert.False(t, f.Uses(v))
	}
	for e := em.FirstEdge(); e != nil; e = e.Next() {
		assert.False(t, e.Uses(v))
	}
	assert.Nil(t, em.FirstVert().Prev())
}

func TestRemoveFaceRelinks(t *testing.T) {
	em := FromMesh(Cube(2))
	first := em.FirstFace()
	second := first.Next()
	em.RemoveFace(first)
	assert.Same(t, second, em.FirstFace())
	assert.Nil(t, second.Prev())

	count := 0
	for f := em.FirstFace(); f != nil; f = f.Next() {
		count++
	}
	assert.Equal(t, 5, count)
	assert.Equal(t, 5, em.NumFaces())
}

func TestVertIndexFollowsListOrder(t *testing.T) {
	em := FromMesh(Cube(2))
	em.RemoveVert(em.FirstVert().Next())
	idx := em.VertIndex()
	i := 0
	for v := em.FirstVert(); v != nil; v = v.Next() {
		assert.Equal(t, i, idx[v])
		i++
	}
	assert.Len(t, idx, 7)
}

func TestRecalcNormals(t *testing.T) {
	em := FromMesh(Cube(2))
	for v := em.FirstVert(); v != nil; v = v.Next() {
		v.Co = v.Co.Scale(3)
	}
	em.RecalcNormals()
	for v := em.FirstVert(); v != nil; v = v.Next() {
		want, _ := v.Co.Normalize()
		assert.True(t, v.No.ApproxEqual(want, 1e-5))
	}
	for f := em.FirstFace(); f != nil; f = f.Next() {
		assert.InDelta(t, 3.0, f.Cent.Len(), 1e-5)
	}
}
