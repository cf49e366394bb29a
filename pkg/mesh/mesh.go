// Package mesh defines the stored geometry the derived-mesh core reads:
// the immutable base mesh, the flattened display-list mesh produced by
// modifiers, and the live editable topology used in edit mode.
package mesh

import (
	"fmt"

	"github.com/chazu/dmesh/pkg/geom"
)

// VertFlag is the per-vertex flag word.
type VertFlag uint8

const (
	VertSelect VertFlag = 1 << iota
	VertHidden
	VertStepIndex // first flattened vertex mapped from an original vertex
)

// EdgeFlag is the per-edge flag word.
type EdgeFlag uint8

const (
	EdgeSelect EdgeFlag = 1 << iota
	EdgeSeam
	EdgeStepIndex
)

// FaceFlag is the per-face flag word.
type FaceFlag uint8

const (
	FaceSelect FaceFlag = 1 << iota
	FaceSmooth
	FaceStepIndex
)

// MVert is a stored vertex. The normal is packed to 16-bit fixed point.
type MVert struct {
	Co   geom.Vec3
	No   [3]int16
	Flag VertFlag
}

// Normal decodes the packed vertex normal.
func (v MVert) Normal() geom.Vec3 {
	return geom.UnpackNormal(v.No)
}

// MEdge joins two vertex indices.
type MEdge struct {
	V    [2]int
	Flag EdgeFlag
}

// MFace is a triangle or quad. Only the first Corners entries of V are
// meaningful.
type MFace struct {
	V       [4]int
	Corners int
	Flag    FaceFlag
	MatNr   int
}

// Tri returns a triangle face.
func Tri(a, b, c int) MFace {
	return MFace{V: [4]int{a, b, c, -1}, Corners: 3}
}

// Quad returns a quad face.
func Quad(a, b, c, d int) MFace {
	return MFace{V: [4]int{a, b, c, d}, Corners: 4}
}

// IsQuad reports whether the face has four corners.
func (f MFace) IsQuad() bool {
	return f.Corners == 4
}

// Verts returns the used vertex indices.
func (f MFace) Verts() []int {
	return f.V[:f.Corners]
}

// MCol is a face-corner color. Meshes with colors carry four per face.
type MCol struct {
	R, G, B, A uint8
}

// Mesh is the stored, immutable-from-the-evaluator's-view base mesh.
type Mesh struct {
	Name  string
	Verts []MVert
	Edges []MEdge
	Faces []MFace
	MCols []MCol // 4 per face, or nil
	Key   *Key
}

// NumVerts returns the vertex count.
func (m *Mesh) NumVerts() int { return len(m.Verts) }

// NumEdges returns the edge count.
func (m *Mesh) NumEdges() int { return len(m.Edges) }

// NumFaces returns the face count.
func (m *Mesh) NumFaces() int { return len(m.Faces) }

// VertexCos returns a fresh snapshot of the vertex positions.
func (m *Mesh) VertexCos() []geom.Vec3 {
	cos := make([]geom.Vec3, len(m.Verts))
	for i, v := range m.Verts {
		cos[i] = v.Co
	}
	return cos
}

// FacePositions returns the corner positions of f read from verts.
func FacePositions(verts []MVert, f MFace) (a, b, c, d geom.Vec3) {
	a, b, c = verts[f.V[0]].Co, verts[f.V[1]].Co, verts[f.V[2]].Co
	if f.IsQuad() {
		d = verts[f.V[3]].Co
	}
	return a, b, c, d
}

// FaceNormal returns the unit normal of f.
func FaceNormal(verts []MVert, f MFace) geom.Vec3 {
	a, b, c, d := FacePositions(verts, f)
	if f.IsQuad() {
		return geom.QuadNormal(a, b, c, d)
	}
	return geom.TriNormal(a, b, c)
}

// FaceCenter returns the average of the face corners.
func FaceCenter(verts []MVert, f MFace) geom.Vec3 {
	a, b, c, d := FacePositions(verts, f)
	if f.IsQuad() {
		return geom.QuadCenter(a, b, c, d)
	}
	return geom.TriCenter(a, b, c)
}

// CalcNormals recomputes the mesh's own packed vertex normals from its
// topology and returns the per-face normals.
func (m *Mesh) CalcNormals() []geom.Vec3 {
	return CalcNormals(m.Verts, m.Faces)
}

// EnsureEdges derives the edge list from the faces when the mesh has none.
func (m *Mesh) EnsureEdges() {
	if len(m.Edges) > 0 || len(m.Faces) == 0 {
		return
	}
	m.Edges = EdgesFromFaces(m.Faces)
}

// EdgesFromFaces returns the unique edges of a face list in first-seen
// order.
func EdgesFromFaces(faces []MFace) []MEdge {
	seen := make(map[[2]int]struct{})
	var edges []MEdge
	for _, f := range faces {
		vs := f.Verts()
		for i := range vs {
			a, b := vs[i], vs[(i+1)%len(vs)]
			key := [2]int{min(a, b), max(a, b)}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			edges = append(edges, MEdge{V: [2]int{a, b}})
		}
	}
	return edges
}

// Validate checks that every edge, face and color reference is in range.
func (m *Mesh) Validate() error {
	nv := len(m.Verts)
	for i, e := range m.Edges {
		for _, v := range e.V {
			if v < 0 || v >= nv {
				return fmt.Errorf("mesh %q: edge %d references vertex %d of %d", m.Name, i, v, nv)
			}
		}
	}
	for i, f := range m.Faces {
		if f.Corners != 3 && f.Corners != 4 {
			return fmt.Errorf("mesh %q: face %d has %d corners", m.Name, i, f.Corners)
		}
		for _, v := range f.Verts() {
			if v < 0 || v >= nv {
				return fmt.Errorf("mesh %q: face %d references vertex %d of %d", m.Name, i, v, nv)
			}
		}
	}
	if m.MCols != nil && len(m.MCols) != 4*len(m.Faces) {
		return fmt.Errorf("mesh %q: %d colors for %d faces", m.Name, len(m.MCols), len(m.Faces))
	}
	if m.Key != nil {
		for _, kb := range m.Key.Blocks {
			if len(kb.Cos) != nv {
				return fmt.Errorf("mesh %q: key block %q has %d positions, want %d", m.Name, kb.Name, len(kb.Cos), nv)
			}
		}
	}
	return nil
}

// Clone returns a deep copy.
func (m *Mesh) Clone() *Mesh {
	c := &Mesh{
		Name:  m.Name,
		Verts: append([]MVert(nil), m.Verts...),
		Edges: append([]MEdge(nil), m.Edges...),
		Faces: append([]MFace(nil), m.Faces...),
		MCols: append([]MCol(nil), m.MCols...),
	}
	if m.Key != nil {
		c.Key = m.Key.Clone()
	}
	return c
}

// Bounds returns the bounds of the stored positions.
func (m *Mesh) Bounds() geom.Box {
	return geom.BoundsOf(m.VertexCos())
}
