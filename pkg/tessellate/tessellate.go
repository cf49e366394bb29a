// Package tessellate walks a scene and produces one triangle mesh per
// object from the object's evaluated derived mesh.
package tessellate

import (
	"fmt"

	"github.com/chazu/dmesh/pkg/derived"
	"github.com/chazu/dmesh/pkg/geom"
	"github.com/chazu/dmesh/pkg/object"
	"github.com/chazu/dmesh/pkg/scene"
	"github.com/chazu/dmesh/pkg/stack"
)

// Mesh is an indexed triangle mesh in world space, flattened for JSON
// export and GPU upload.
type Mesh struct {
	Object   string    `json:"object"`
	Vertices []float32 `json:"vertices"` // x, y, z per vertex
	Normals  []float32 `json:"normals"`  // unit normal per vertex
	Indices  []uint32  `json:"indices"`  // three per triangle
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int { return len(m.Vertices) / 3 }

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int { return len(m.Indices) / 3 }

// IsEmpty reports whether the mesh has no triangles.
func (m *Mesh) IsEmpty() bool { return len(m.Indices) == 0 }

// Bounds returns the axis-aligned bounds of the vertices.
func (m *Mesh) Bounds() geom.Box {
	cos := make([]geom.Vec3, 0, m.VertexCount())
	for i := 0; i+2 < len(m.Vertices); i += 3 {
		cos = append(cos, geom.V3(m.Vertices[i], m.Vertices[i+1], m.Vertices[i+2]))
	}
	return geom.BoundsOf(cos)
}

// transformStack accumulates parent translations during the walk.
type transformStack struct {
	translations []geom.Vec3
}

func (ts *transformStack) push(v geom.Vec3) {
	ts.translations = append(ts.translations, v)
}

func (ts *transformStack) pop() {
	if len(ts.translations) > 0 {
		ts.translations = ts.translations[:len(ts.translations)-1]
	}
}

func (ts *transformStack) accumulated() geom.Vec3 {
	var sum geom.Vec3
	for _, t := range ts.translations {
		sum = sum.Add(t)
	}
	return sum
}

// Scene evaluates every object, roots first and children after their
// parents, and triangulates the results. Objects in edit mode use their
// edit-mode final mesh; with s.Render set the render stack is used.
func Scene(s *scene.Scene, e *stack.Evaluator) ([]*Mesh, error) {
	if s == nil {
		return nil, nil
	}
	w := &walker{s: s, e: e, visited: make(map[*object.Object]bool)}
	for _, ob := range s.Roots() {
		if err := w.walk(ob); err != nil {
			return nil, err
		}
	}
	if len(w.visited) != len(s.Objects) {
		return nil, fmt.Errorf("tessellate: %d objects unreachable from the scene roots", len(s.Objects)-len(w.visited))
	}
	return w.meshes, nil
}

type walker struct {
	s       *scene.Scene
	e       *stack.Evaluator
	ts      transformStack
	visited map[*object.Object]bool
	meshes  []*Mesh
}

func (w *walker) walk(ob *object.Object) error {
	if w.visited[ob] {
		return fmt.Errorf("tessellate: object %s reached twice", ob.Name)
	}
	w.visited[ob] = true

	w.ts.push(ob.Location)
	defer w.ts.pop()

	offset := w.ts.accumulated()
	if ob.ParentDeform && ob.Parent != nil {
		// the parent-deform entry already applied the parent offset
		offset = offset.Sub(ob.Parent.Location)
	}

	dm, release := w.evaluate(ob)
	w.meshes = append(w.meshes, Object(ob.Name, dm, offset))
	if release {
		if err := dm.Release(); err != nil {
			return fmt.Errorf("tessellate: object %s: %w", ob.Name, err)
		}
	}

	for _, child := range w.s.Children(ob) {
		if err := w.walk(child); err != nil {
			return err
		}
	}
	return nil
}

// evaluate returns the mesh to triangulate and whether the walker owns it.
func (w *walker) evaluate(ob *object.Object) (derived.DerivedMesh, bool) {
	if sess := w.s.Edits[ob.Name]; sess != nil {
		_, final := w.e.EditCageAndFinal(sess)
		return final, false
	}
	if w.s.Render {
		return w.e.RenderDerived(ob), true
	}
	return w.e.FinalDerived(ob), false
}

// Object triangulates dm, splitting quads along their first diagonal, and
// offsets every position by offset.
func Object(name string, dm derived.DerivedMesh, offset geom.Vec3) *Mesh {
	n := dm.NumVerts()
	m := &Mesh{
		Object:   name,
		Vertices: make([]float32, 0, 3*n),
		Normals:  make([]float32, 0, 3*n),
	}
	cos := make([]geom.Vec3, n)
	nos := make([]geom.Vec3, n)
	dm.VertCos(cos)
	dm.VertNos(nos)
	for i, co := range cos {
		p := co.Add(offset)
		no := nos[i]
		m.Vertices = append(m.Vertices, p[0], p[1], p[2])
		m.Normals = append(m.Normals, no[0], no[1], no[2])
	}

	fm := dm.ConvertToFlat(true)
	for _, f := range fm.FaceData() {
		v := f.V
		m.Indices = append(m.Indices, uint32(v[0]), uint32(v[1]), uint32(v[2]))
		if f.IsQuad() {
			m.Indices = append(m.Indices, uint32(v[0]), uint32(v[2]), uint32(v[3]))
		}
	}
	return m
}
