package modifier

import (
	"errors"
	"fmt"
	"sort"

	"github.com/chazu/dmesh/pkg/derived"
	"github.com/chazu/dmesh/pkg/geom"
	"github.com/chazu/dmesh/pkg/mesh"
)

// Kind separates modifiers that only move vertices from those that build
// new geometry.
type Kind int

const (
	KindOnlyDeform Kind = iota
	KindConstructive
)

func (k Kind) String() string {
	if k == KindOnlyDeform {
		return "deform"
	}
	return "constructive"
}

// Flags describe what a modifier type supports.
type Flags uint8

const (
	// FlagRequiresOriginalData means the modifier indexes the base mesh
	// and cannot run after topology has been replaced.
	FlagRequiresOriginalData Flags = 1 << iota
	// FlagSupportsEditmode allows the modifier in edit-mode evaluation.
	FlagSupportsEditmode
	// FlagSupportsMapping means results keep a mapping back to original
	// elements.
	FlagSupportsMapping
	// FlagEnableInEditmode turns ModeEditmode on for new entries.
	FlagEnableInEditmode
)

// Has reports whether all of want are set.
func (f Flags) Has(want Flags) bool { return f&want == want }

// Context is the explicit evaluation context handed to every dispatch.
type Context struct {
	// Owner is the name of the object being evaluated.
	Owner string
	// Base is the object's base mesh. In object mode it is the mesh the
	// position buffer indexes until a modifier replaces the topology.
	Base *mesh.Mesh
	// EditMesh is the mesh being edited, or nil in object mode.
	EditMesh *mesh.EditMesh
	// Render is set for render-quality evaluation.
	Render bool
}

// TypeInfo is the capability table of one modifier type.
//
// Deform functions move the positions in cos in place; dm is the current
// derived mesh, or nil while cos still indexes the base (or edit) mesh.
// Apply functions return a new derived mesh built from dm, or from the
// base (or edit) mesh displaced by cos when dm is nil. cos may be nil. A
// nil result leaves the stack unchanged. Apply functions must not retain
// or write cos.
type TypeInfo struct {
	Name  Type
	Kind  Kind
	Flags Flags

	// NewSettings returns a settings value with defaults filled in.
	NewSettings func() any
	// IsDisabled reports settings that make the entry a no-op. Nil means
	// never disabled.
	IsDisabled func(md *Modifier) bool

	DeformVerts     func(md *Modifier, ctx *Context, dm derived.DerivedMesh, cos []geom.Vec3)
	DeformVertsEM   func(md *Modifier, ctx *Context, dm derived.DerivedMesh, cos []geom.Vec3)
	ApplyModifier   func(md *Modifier, ctx *Context, dm derived.DerivedMesh, cos []geom.Vec3) derived.DerivedMesh
	ApplyModifierEM func(md *Modifier, ctx *Context, dm derived.DerivedMesh, cos []geom.Vec3) derived.DerivedMesh
}

// Disabled is a nil-safe call of IsDisabled.
func (ti *TypeInfo) Disabled(md *Modifier) bool {
	return ti.IsDisabled != nil && ti.IsDisabled(md)
}

var (
	// ErrDuplicateType is returned when a type name is registered twice.
	ErrDuplicateType = errors.New("modifier: type already registered")
	// ErrInvalidType is returned for a TypeInfo missing the functions its
	// kind needs.
	ErrInvalidType = errors.New("modifier: incomplete type info")
)

// Registry maps type names to capability tables.
type Registry struct {
	types map[Type]*TypeInfo
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[Type]*TypeInfo)}
}

// Register adds ti. Deform types need DeformVerts; constructive types need
// ApplyModifier; edit-mode support needs the matching EM function.
func (r *Registry) Register(ti *TypeInfo) error {
	if ti.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidType)
	}
	if _, ok := r.types[ti.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateType, ti.Name)
	}
	edit := ti.Flags.Has(FlagSupportsEditmode)
	switch ti.Kind {
	case KindOnlyDeform:
		if ti.DeformVerts == nil || (edit && ti.DeformVertsEM == nil) {
			return fmt.Errorf("%w: %s lacks deform functions", ErrInvalidType, ti.Name)
		}
	case KindConstructive:
		if ti.ApplyModifier == nil || (edit && ti.ApplyModifierEM == nil) {
			return fmt.Errorf("%w: %s lacks apply functions", ErrInvalidType, ti.Name)
		}
	default:
		return fmt.Errorf("%w: %s has unknown kind %d", ErrInvalidType, ti.Name, ti.Kind)
	}
	r.types[ti.Name] = ti
	return nil
}

// MustRegister is Register for package initialization.
func (r *Registry) MustRegister(ti *TypeInfo) {
	if err := r.Register(ti); err != nil {
		panic(err)
	}
}

// Info returns the table for typ, or nil if it is not registered.
func (r *Registry) Info(typ Type) *TypeInfo {
	return r.types[typ]
}

// Types lists registered type names in sorted order.
func (r *Registry) Types() []Type {
	out := make([]Type, 0, len(r.types))
	for t := range r.types {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// NewModifier creates an entry of a registered type with default settings.
// Types flagged FlagEnableInEditmode start with ModeEditmode set.
func (r *Registry) NewModifier(name string, typ Type) (*Modifier, error) {
	ti := r.Info(typ)
	if ti == nil {
		return nil, fmt.Errorf("modifier: unknown type %q", typ)
	}
	md := New(name, typ, nil)
	if !ti.Flags.Has(FlagEnableInEditmode) {
		md.Mode &^= ModeEditmode
	}
	if ti.NewSettings != nil {
		md.Settings = ti.NewSettings()
	}
	return md, nil
}

// ParentDeform is the type of the virtual entry that list expansion puts
// in front of the stack of an object deformed by its parent. A registry
// used with such objects must provide it.
const ParentDeform Type = "parent-deform"

// ParentDeformSettings carry the parent's offset into the virtual entry.
type ParentDeformSettings struct {
	Parent string
	Offset geom.Vec3
}

// CageIndex derives an edit-mode cage index from the OnCage bits: the
// cage shows the stack after the last on-cage entry. Entries that are not
// evaluated in edit mode are passed over; an entry that cannot map back to
// original elements ends the search, since no later cage could be
// selected through. Zero means the plain edit mesh.
func CageIndex(list []*Modifier, reg *Registry) int {
	cage := 0
	for i, md := range list {
		ti := reg.Info(md.Type)
		if ti == nil || !ti.Flags.Has(FlagSupportsEditmode) {
			continue
		}
		if !md.Enabled(ModeRealtime | ModeEditmode) {
			continue
		}
		if !ti.Flags.Has(FlagSupportsMapping) {
			break
		}
		if md.Mode&ModeOnCage != 0 {
			cage = i + 1
		}
	}
	return cage
}
