package stack

import (
	"github.com/chazu/dmesh/pkg/derived"
	"github.com/chazu/dmesh/pkg/geom"
	"github.com/chazu/dmesh/pkg/modifier"
	"github.com/chazu/dmesh/pkg/object"
)

const errBadStackPosition = "modifier requires original data (bad stack position)"

// calcOptions selects what one object-mode evaluation produces.
type calcOptions struct {
	render      bool
	useDeform   bool // run deform-only entries
	wantDeform  bool // also return the leading-deform result
	needMapping bool // skip entries that lose the original-element mapping
}

// calcObject runs the object-mode stack. inputCos is only consulted when
// useDeform is off and is never written. The returned meshes each carry
// one reference owned by the caller.
func (e *Evaluator) calcObject(ob *object.Object, inputCos []geom.Vec3, o calcOptions) (deform, final derived.DerivedMesh) {
	log := e.log()
	opts := derived.MeshOptions{Owner: ob.Name, WeightPaint: ob.WeightPaint}

	if ob.FluidActive() {
		orig := ob.Data
		ob.Data = ob.Fluid.Mesh
		defer func() { ob.Data = orig }()
		opts.SurfaceNormals = ob.Fluid.Normals
		if !o.useDeform {
			inputCos = nil
		}
	}

	me := ob.Data
	list := ob.ModifierList()
	modifier.ClearErrors(list)

	required := modifier.ModeRealtime
	if o.render {
		required = modifier.ModeRender
	}
	ctx := &modifier.Context{Owner: ob.Name, Base: me, Render: o.render}

	var cos []geom.Vec3
	// borrowed is set while cos is the caller's buffer.
	borrowed := false
	i := 0
	if o.useDeform {
		if me.HasKey() {
			cos = me.KeyedCos()
		}
		for ; i < len(list); i++ {
			md := list[i]
			ti := e.reg.Info(md.Type)
			if ti == nil || ti.Kind != modifier.KindOnlyDeform {
				break
			}
			if !md.Enabled(required) || ti.Disabled(md) {
				continue
			}
			if cos == nil {
				cos = me.VertexCos()
			}
			log.Debug("deform", "object", ob.Name, "modifier", md.Name)
			ti.DeformVerts(md, ctx, nil, cos)
		}
		if o.wantDeform {
			deform = derived.NewMesh(me, cos, opts)
		}
	} else if inputCos != nil {
		cos = inputCos
		borrowed = true
	}

	var dm derived.DerivedMesh
	for ; i < len(list); i++ {
		md := list[i]
		ti := e.reg.Info(md.Type)
		if ti == nil {
			modifier.SetError(md, "unknown modifier type %q", md.Type)
			continue
		}
		if !md.Enabled(required) {
			continue
		}
		if ti.Kind == modifier.KindOnlyDeform && !o.useDeform {
			continue
		}
		if ti.Flags.Has(modifier.FlagRequiresOriginalData) && dm != nil {
			modifier.SetError(md, errBadStackPosition)
			continue
		}
		if ti.Disabled(md) {
			continue
		}
		if o.needMapping && !ti.Flags.Has(modifier.FlagSupportsMapping) {
			continue
		}

		if ti.Kind == modifier.KindOnlyDeform {
			switch {
			case borrowed:
				cos = geom.CopyCos(cos)
				borrowed = false
			case cos == nil && dm != nil:
				cos = make([]geom.Vec3, dm.NumVerts())
				dm.VertCos(cos)
			case cos == nil:
				cos = me.VertexCos()
			}
			log.Debug("deform", "object", ob.Name, "modifier", md.Name)
			ti.DeformVerts(md, ctx, dm, cos)
			continue
		}

		log.Debug("apply", "object", ob.Name, "modifier", md.Name)
		if ndm := ti.ApplyModifier(md, ctx, dm, cos); ndm != nil {
			_ = derived.Release(dm)
			dm = ndm
			cos = nil
			borrowed = false
		}
	}

	switch {
	case dm != nil && cos != nil:
		final = derived.NewFlat(dm.ConvertToFlat(false), cos)
		_ = dm.Release()
	case dm != nil:
		final = dm
	default:
		final = derived.NewMesh(me, cos, opts)
	}
	return deform, final
}

// calcEdit runs the edit-mode stack. The cage shows the state after the
// first sess.CageIndex entries, so an index equal to the stack length
// makes the cage the final mesh; out of range indices give the plain
// edit mesh. Cage and final may be the same mesh, holding one reference
// each.
func (e *Evaluator) calcEdit(sess *object.EditSession) (cage, final derived.DerivedMesh) {
	log := e.log()
	ob := sess.Object
	em := sess.Mesh
	list := ob.ModifierList()
	modifier.ClearErrors(list)

	captureAt := sess.CageIndex
	if captureAt <= 0 || captureAt > len(list) {
		captureAt = -1
	}
	required := modifier.ModeRealtime | modifier.ModeEditmode
	ctx := &modifier.Context{Owner: ob.Name, Base: ob.Data, EditMesh: em}

	var dm derived.DerivedMesh
	var cos []geom.Vec3
	for i, md := range list {
		if i == captureAt {
			cage = snapshotCage(sess, dm, cos)
		}

		ti := e.reg.Info(md.Type)
		if ti == nil {
			modifier.SetError(md, "unknown modifier type %q", md.Type)
			continue
		}
		if !md.Enabled(required) || !ti.Flags.Has(modifier.FlagSupportsEditmode) {
			continue
		}
		if ti.Flags.Has(modifier.FlagRequiresOriginalData) && dm != nil {
			modifier.SetError(md, errBadStackPosition)
			continue
		}
		if ti.Disabled(md) {
			continue
		}

		if ti.Kind == modifier.KindOnlyDeform {
			if cos == nil {
				if dm != nil {
					cos = make([]geom.Vec3, dm.NumVerts())
					dm.VertCos(cos)
				} else {
					cos = em.VertexCos()
				}
			}
			log.Debug("deform", "object", ob.Name, "modifier", md.Name, "edit", true)
			ti.DeformVertsEM(md, ctx, dm, cos)
			continue
		}

		log.Debug("apply", "object", ob.Name, "modifier", md.Name, "edit", true)
		if ndm := ti.ApplyModifierEM(md, ctx, dm, cos); ndm != nil {
			// A cage aliasing dm holds its own reference.
			_ = derived.Release(dm)
			dm = ndm
			cos = nil
		}
	}

	switch {
	case dm != nil && cos != nil:
		final = derived.NewFlat(dm.ConvertToFlat(false), cos)
		_ = dm.Release()
	case dm != nil:
		final = dm
	case cos != nil:
		final = derived.NewEdit(em, cos)
	}

	if captureAt == len(list) && final != nil {
		final.Retain()
		cage = final
	}
	if cage == nil {
		cage = derived.NewEdit(em, nil)
	}
	if final == nil {
		cage.Retain()
		final = cage
	}
	return cage, final
}

// snapshotCage captures the stack state for the cage. A cage that is the
// current derived mesh takes a reference of its own.
func snapshotCage(sess *object.EditSession, dm derived.DerivedMesh, cos []geom.Vec3) derived.DerivedMesh {
	switch {
	case dm != nil && cos != nil:
		return derived.NewFlat(dm.ConvertToFlat(false), cos)
	case dm != nil:
		dm.Retain()
		return dm
	case cos != nil:
		return derived.NewEdit(sess.Mesh, geom.CopyCos(cos))
	default:
		return derived.NewEdit(sess.Mesh, nil)
	}
}
