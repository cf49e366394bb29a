// Package stack evaluates modifier stacks into derived meshes and manages
// the derived-mesh caches on objects and edit sessions.
//
// Cached meshes returned by the Final/Deform/Edit getters are borrowed:
// they stay valid until the next invalidation of the cache that holds
// them. Callers that need one longer call Retain and later Release.
// Meshes from the Render and NoDeform constructors are owned by the
// caller, who must Release them.
//
// Evaluation is synchronous and single threaded. An Evaluator and the
// objects it caches on must not be used from several goroutines at once.
package stack

import (
	"github.com/charmbracelet/log"
	"github.com/chazu/dmesh/pkg/derived"
	"github.com/chazu/dmesh/pkg/geom"
	"github.com/chazu/dmesh/pkg/logging"
	"github.com/chazu/dmesh/pkg/modifier"
	"github.com/chazu/dmesh/pkg/object"
)

// Evaluator runs modifier stacks against a registry of modifier types.
type Evaluator struct {
	reg *modifier.Registry
}

// NewEvaluator returns an evaluator dispatching through reg.
func NewEvaluator(reg *modifier.Registry) *Evaluator {
	return &Evaluator{reg: reg}
}

// Registry returns the modifier registry.
func (e *Evaluator) Registry() *modifier.Registry { return e.reg }

func (e *Evaluator) log() *log.Logger { return logging.For("stack") }

// build fills the object-mode caches.
func (e *Evaluator) build(ob *object.Object) {
	e.log().Debug("build", "object", ob.Name)
	ob.DerivedDeform, ob.DerivedFinal = e.calcObject(ob, nil, calcOptions{
		useDeform:   true,
		wantDeform:  true,
		needMapping: ob.WeightPaint,
	})
	box := ob.DerivedFinal.Bounds()
	ob.BoundBox = &box
}

// FinalDerived returns the cached result of the whole stack, building it
// if needed.
func (e *Evaluator) FinalDerived(ob *object.Object) derived.DerivedMesh {
	if ob.DerivedFinal == nil {
		e.build(ob)
	}
	return ob.DerivedFinal
}

// DeformDerived returns the cached result of the leading deform-only
// entries applied to the base mesh.
func (e *Evaluator) DeformDerived(ob *object.Object) derived.DerivedMesh {
	if ob.DerivedDeform == nil {
		_ = e.InvalidateCaches(ob)
		e.build(ob)
	}
	return ob.DerivedDeform
}

// BoundBox returns the bounds of the final mesh.
func (e *Evaluator) BoundBox(ob *object.Object) geom.Box {
	if ob.BoundBox == nil {
		e.FinalDerived(ob)
	}
	return *ob.BoundBox
}

// RenderDerived evaluates the stack with render settings. The result is
// not cached.
func (e *Evaluator) RenderDerived(ob *object.Object) derived.DerivedMesh {
	_, final := e.calcObject(ob, nil, calcOptions{render: true, useDeform: true})
	return final
}

// DerivedNoDeform evaluates the stack without deform-only entries,
// starting from cos if it is non-nil. cos is not modified. The result is
// not cached.
func (e *Evaluator) DerivedNoDeform(ob *object.Object, cos []geom.Vec3) derived.DerivedMesh {
	_, final := e.calcObject(ob, cos, calcOptions{})
	return final
}

// RenderDerivedNoDeform is DerivedNoDeform with render settings.
func (e *Evaluator) RenderDerivedNoDeform(ob *object.Object, cos []geom.Vec3) derived.DerivedMesh {
	_, final := e.calcObject(ob, cos, calcOptions{render: true})
	return final
}

// InvalidateCaches releases the object-mode caches and the bounding box.
// It returns the first release error, which only happens if a cache slot
// was released behind the evaluator's back.
func (e *Evaluator) InvalidateCaches(ob *object.Object) error {
	var first error
	for _, slot := range []*derived.DerivedMesh{&ob.DerivedDeform, &ob.DerivedFinal} {
		if err := derived.Release(*slot); err != nil && first == nil {
			first = err
		}
		*slot = nil
	}
	ob.BoundBox = nil
	return first
}

// Update rebuilds the caches if any Recalc flag is set and clears the
// flags. It returns the final mesh.
func (e *Evaluator) Update(ob *object.Object) derived.DerivedMesh {
	if ob.Recalc != 0 {
		if err := e.InvalidateCaches(ob); err != nil {
			e.log().Warn("invalidate", "object", ob.Name, "err", err)
		}
		ob.Recalc = 0
	}
	return e.FinalDerived(ob)
}

// Edit starts an edit session on ob with the cage index taken from the
// stack's on-cage entries.
func (e *Evaluator) Edit(ob *object.Object) *object.EditSession {
	return object.Edit(ob, modifier.CageIndex(ob.ModifierList(), e.reg))
}

// EditCageAndFinal returns the cached cage and final meshes of an edit
// session, building both if either is missing.
func (e *Evaluator) EditCageAndFinal(sess *object.EditSession) (cage, final derived.DerivedMesh) {
	if sess.Cage == nil || sess.Final == nil {
		_ = e.InvalidateEditCaches(sess)
		e.log().Debug("build edit", "object", sess.Object.Name, "cage", sess.CageIndex)
		sess.Cage, sess.Final = e.calcEdit(sess)
	}
	return sess.Cage, sess.Final
}

// EditCage returns the cached cage of an edit session.
func (e *Evaluator) EditCage(sess *object.EditSession) derived.DerivedMesh {
	cage, _ := e.EditCageAndFinal(sess)
	return cage
}

// EditBase returns a new zero-copy view of the edit mesh with no
// modifiers applied. The caller owns it.
func (e *Evaluator) EditBase(sess *object.EditSession) derived.DerivedMesh {
	return derived.NewEdit(sess.Mesh, nil)
}

// InvalidateEditCaches releases the cage and final slots of sess. Each
// slot holds its own reference, so an aliased mesh is freed only once.
func (e *Evaluator) InvalidateEditCaches(sess *object.EditSession) error {
	var first error
	for _, slot := range []*derived.DerivedMesh{&sess.Cage, &sess.Final} {
		if err := derived.Release(*slot); err != nil && first == nil {
			first = err
		}
		*slot = nil
	}
	return first
}

// FinishEdit writes the edit mesh back to the object, releases the edit
// caches and marks the object for rebuild.
func (e *Evaluator) FinishEdit(sess *object.EditSession) error {
	err := e.InvalidateEditCaches(sess)
	ob := sess.Object
	me := sess.Mesh.ToMesh(ob.Data.Name)
	if ob.Data.Key != nil && len(ob.Data.Key.Blocks) > 0 && len(ob.Data.Key.Blocks[0].Cos) == me.NumVerts() {
		me.Key = ob.Data.Key
	}
	ob.Data = me
	ob.Recalc |= object.RecalcData
	if ierr := e.InvalidateCaches(ob); err == nil {
		err = ierr
	}
	return err
}
