// Package derived implements the derived-mesh abstraction: one geometry
// query surface over three storage backends (a stored mesh with optional
// displaced positions, a live edit mesh, and a flattened display-list mesh
// produced by a modifier).
//
// Handles are reference counted. The creator holds the first reference;
// every additional holder (an edit cage aliasing the final mesh, a caller
// keeping a cached mesh past invalidation) calls Retain, and every holder
// calls Release exactly once. Owned buffers are freed when the last
// reference goes.
package derived

import (
	"errors"
	"fmt"

	"github.com/chazu/dmesh/pkg/geom"
	"github.com/chazu/dmesh/pkg/logging"
	"github.com/chazu/dmesh/pkg/mesh"
	"github.com/google/uuid"
)

var (
	// ErrIndexOutOfRange is the cause of panics from element accessors.
	ErrIndexOutOfRange = errors.New("derived: index out of range")
	// ErrBufferSize is the cause of panics when a caller supplied array
	// does not match the vertex count.
	ErrBufferSize = errors.New("derived: buffer size does not match vertex count")
	// ErrReleased is returned when releasing a handle with no references
	// left.
	ErrReleased = errors.New("derived: mesh already released")
	// ErrUnsupported is returned by operations a backend cannot perform.
	ErrUnsupported = errors.New("derived: operation not supported by backend")
)

// IndexError describes an out-of-range element access.
type IndexError struct {
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("derived: index %d out of range [0,%d)", e.Index, e.Len)
}

func (e *IndexError) Unwrap() error { return ErrIndexOutOfRange }

func checkIndex(i, n int) {
	if i < 0 || i >= n {
		panic(&IndexError{Index: i, Len: n})
	}
}

func checkBuffer(got, want int) {
	if got != want {
		panic(fmt.Errorf("%w: got %d, want %d", ErrBufferSize, got, want))
	}
}

// Kind identifies the storage backend behind a DerivedMesh.
type Kind int

const (
	KindMesh Kind = iota // stored mesh plus optional displaced positions
	KindEdit             // live edit mesh
	KindFlat             // flattened display-list mesh
)

func (k Kind) String() string {
	switch k {
	case KindMesh:
		return "mesh"
	case KindEdit:
		return "edit"
	case KindFlat:
		return "flat"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// DerivedMesh is the uniform geometry query surface. Mapped traversals
// report the index of the original element each value came from, run
// synchronously on the caller's goroutine and must not call back into the
// modifier stack.
type DerivedMesh interface {
	ID() uuid.UUID
	Kind() Kind

	NumVerts() int
	NumEdges() int
	NumFaces() int

	// VertCo and VertNo panic with an *IndexError for bad indices.
	VertCo(i int) geom.Vec3
	VertNo(i int) geom.Vec3
	// VertCos copies every position into dst, which must have exactly
	// NumVerts elements.
	VertCos(dst []geom.Vec3)
	// VertNos copies every vertex normal into dst, which must have
	// exactly NumVerts elements.
	VertNos(dst []geom.Vec3)

	ForEachMappedVert(fn func(index int, co, no geom.Vec3))
	ForEachMappedEdge(fn func(index int, v0, v1 geom.Vec3))
	ForEachMappedFaceCenter(fn func(index int, cent, no geom.Vec3))
	// InterpMappedEdges samples each mapped edge at steps+1 evenly spaced
	// parameters.
	InterpMappedEdges(steps int, fn func(index int, t float32, co geom.Vec3)) error

	// ConvertToFlat snapshots the mesh. With allowShared the result may
	// borrow this mesh's buffers and must be treated as read-only and
	// dropped before this mesh is released.
	ConvertToFlat(allowShared bool) *mesh.FlatMesh

	// Bounds returns the zero box for an empty mesh.
	Bounds() geom.Box

	Retain()
	Release() error
	Refs() int
}

// handle carries identity and the reference count shared by all backends.
type handle struct {
	id   uuid.UUID
	refs int
}

func newHandle() handle {
	return handle{id: uuid.New(), refs: 1}
}

func (h *handle) ID() uuid.UUID { return h.id }

// Refs returns the number of live references.
func (h *handle) Refs() int { return h.refs }

// Retain adds a reference. Retaining a released handle is a programming
// error.
func (h *handle) Retain() {
	if h.refs <= 0 {
		panic(fmt.Errorf("%w: retain of %s", ErrReleased, h.id))
	}
	h.refs++
}

func (h *handle) release(kind Kind, free func()) error {
	if h.refs <= 0 {
		if debugChecks {
			panic(fmt.Errorf("%w: %s mesh %s", ErrReleased, kind, h.id))
		}
		logging.For("derived").Warn("double release", "kind", kind, "id", h.id)
		return ErrReleased
	}
	h.refs--
	if h.refs == 0 {
		free()
	}
	return nil
}

// Release drops dm's reference if dm is non-nil. It exists so callers can
// write `derived.Release(dm); dm = nil` without a nil check.
func Release(dm DerivedMesh) error {
	if dm == nil {
		return nil
	}
	return dm.Release()
}

// boundsOf computes bounds by reading every vertex.
func boundsOf(dm DerivedMesh) geom.Box {
	n := dm.NumVerts()
	if n == 0 {
		return geom.Box{}
	}
	b := geom.EmptyBox()
	for i := 0; i < n; i++ {
		b.Expand(dm.VertCo(i))
	}
	return b
}

// interpEdge samples one edge.
func interpEdge(index, steps int, v0, v1 geom.Vec3, fn func(int, float32, geom.Vec3)) {
	steps = max(steps, 1)
	for s := 0; s <= steps; s++ {
		t := float32(s) / float32(steps)
		fn(index, t, v0.Lerp(v1, t))
	}
}

// ToMesh bakes any derived mesh into a new standalone mesh, which is how a
// modifier result is applied permanently.
func ToMesh(dm DerivedMesh, name string) *mesh.Mesh {
	fm := dm.ConvertToFlat(true)
	me := fm.ToMesh(name)
	me.CalcNormals()
	return me
}
