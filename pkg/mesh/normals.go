package mesh

import "github.com/chazu/dmesh/pkg/geom"

// CalcNormals writes packed vertex normals into verts and returns one unit
// normal per face. Each face adds its normal to its corners; a vertex whose
// sum is zero (isolated, or with cancelling faces) takes its own position
// direction instead.
func CalcNormals(verts []MVert, faces []MFace) []geom.Vec3 {
	faceNos := make([]geom.Vec3, len(faces))
	acc := make([]geom.Vec3, len(verts))
	for i, f := range faces {
		n := FaceNormal(verts, f)
		faceNos[i] = n
		for _, v := range f.Verts() {
			acc[v] = acc[v].Add(n)
		}
	}
	for i := range verts {
		verts[i].No = geom.PackNormal(VertexNormal(acc[i], verts[i].Co))
	}
	return faceNos
}

// VertexNormal normalizes an accumulated vertex normal, falling back to the
// normalized position when the sum is degenerate.
func VertexNormal(acc, co geom.Vec3) geom.Vec3 {
	n, l := acc.Normalize()
	if l == 0 {
		n, _ = co.Normalize()
	}
	return n
}
