// Package object holds scene objects and their derived-mesh caches. The
// caches are filled and cleared by the stack evaluator; nothing here
// evaluates modifiers.
package object

import (
	"github.com/chazu/dmesh/pkg/derived"
	"github.com/chazu/dmesh/pkg/geom"
	"github.com/chazu/dmesh/pkg/mesh"
	"github.com/chazu/dmesh/pkg/modifier"
	"github.com/google/uuid"
)

// Recalc flags mark what changed since the caches were built.
type Recalc uint8

const (
	RecalcObject Recalc = 1 << iota // transform or parenting
	RecalcData                      // mesh data or modifier settings
	RecalcTime                      // animated inputs
)

// FluidSurface is a precomputed simulation surface that replaces the
// object's mesh during object-mode evaluation while Active is set.
type FluidSurface struct {
	Mesh    *mesh.Mesh
	Normals []geom.Vec3
	Active  bool
}

// Object is a mesh object with a modifier stack.
type Object struct {
	ID        uuid.UUID
	Name      string
	Data      *mesh.Mesh
	Modifiers []*modifier.Modifier

	Parent *Object
	// ParentDeform puts a virtual parent-deform entry at the head of the
	// stack.
	ParentDeform bool
	Location     geom.Vec3

	Fluid *FluidSurface
	// WeightPaint enables weight paint display, which needs paint colors
	// on the final mesh and a mapping back to original vertices.
	WeightPaint bool

	Recalc Recalc

	// Caches owned by the evaluator. Each slot holds one reference.
	DerivedDeform derived.DerivedMesh
	DerivedFinal  derived.DerivedMesh
	BoundBox      *geom.Box

	// virtual is the parent-deform entry, kept so errors reported on it
	// survive between expansions.
	virtual *modifier.Modifier
}

// New returns an object with a fresh ID.
func New(name string, me *mesh.Mesh) *Object {
	return &Object{ID: uuid.New(), Name: name, Data: me}
}

// AddModifier appends md to the stack and marks the data dirty.
func (ob *Object) AddModifier(md *modifier.Modifier) {
	ob.Modifiers = append(ob.Modifiers, md)
	ob.Recalc |= RecalcData
}

// ModifierList is the stack as evaluated: the stored entries preceded by
// any virtual entries.
func (ob *Object) ModifierList() []*modifier.Modifier {
	if ob.Parent == nil || !ob.ParentDeform {
		return ob.Modifiers
	}
	if ob.virtual == nil {
		ob.virtual = modifier.New("parent", modifier.ParentDeform, &modifier.ParentDeformSettings{})
		ob.virtual.Virtual = true
	}
	s := ob.virtual.Settings.(*modifier.ParentDeformSettings)
	s.Parent = ob.Parent.Name
	s.Offset = ob.Parent.Location

	list := make([]*modifier.Modifier, 0, len(ob.Modifiers)+1)
	list = append(list, ob.virtual)
	return append(list, ob.Modifiers...)
}

// FluidActive reports whether the fluid surface substitutes the mesh.
func (ob *Object) FluidActive() bool {
	return ob.Fluid != nil && ob.Fluid.Active && ob.Fluid.Mesh != nil
}

// EditSession is an object in edit mode: the editable mesh and its
// cage and final caches. Cage and Final may be the same mesh, in which
// case it carries one reference per slot.
type EditSession struct {
	Object *Object
	Mesh   *mesh.EditMesh
	// CageIndex is the number of leading stack entries shown on the cage.
	CageIndex int

	Cage  derived.DerivedMesh
	Final derived.DerivedMesh
}

// Edit starts editing ob's mesh.
func Edit(ob *Object, cageIndex int) *EditSession {
	return &EditSession{Object: ob, Mesh: mesh.FromMesh(ob.Data), CageIndex: cageIndex}
}
