// Package geom holds the small float32 geometry vocabulary shared by the
// mesh and derived-mesh packages: vectors, bounding boxes, packed normals
// and owned/borrowed buffers.
package geom
