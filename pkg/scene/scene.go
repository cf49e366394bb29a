// Package scene builds a set of mesh objects from configuration. Base
// meshes come from built-in primitives or from solids meshed by a
// geometry kernel; modifier stacks are decoded against a modifier
// registry.
package scene

import (
	"fmt"

	"github.com/chazu/dmesh/pkg/config"
	"github.com/chazu/dmesh/pkg/geom"
	"github.com/chazu/dmesh/pkg/kernel"
	"github.com/chazu/dmesh/pkg/mesh"
	"github.com/chazu/dmesh/pkg/modifier"
	"github.com/chazu/dmesh/pkg/modifiers"
	"github.com/chazu/dmesh/pkg/object"
)

// Scene is an ordered set of objects plus the edit sessions of objects
// that are in edit mode.
type Scene struct {
	Objects []*object.Object
	Edits   map[string]*object.EditSession
	Render  bool

	byName map[string]*object.Object
}

// Object returns the named object, or nil.
func (s *Scene) Object(name string) *object.Object {
	return s.byName[name]
}

// Roots returns objects without a parent, in scene order.
func (s *Scene) Roots() []*object.Object {
	var out []*object.Object
	for _, ob := range s.Objects {
		if ob.Parent == nil {
			out = append(out, ob)
		}
	}
	return out
}

// Children returns the direct children of ob, in scene order.
func (s *Scene) Children(ob *object.Object) []*object.Object {
	var out []*object.Object
	for _, c := range s.Objects {
		if c.Parent == ob {
			out = append(out, c)
		}
	}
	return out
}

// Build validates cfg and creates its objects. Validation errors abort
// the build and are returned as a *ValidationFailure; warnings are
// returned alongside a successful scene.
func Build(cfg *config.Config, reg *modifier.Registry, k kernel.Kernel) (*Scene, []Finding, error) {
	res := Validate(cfg, reg)
	if len(res.Errors) > 0 {
		return nil, res.Warnings, &ValidationFailure{Findings: res.Errors}
	}

	s := &Scene{
		Edits:  make(map[string]*object.EditSession),
		Render: cfg.Eval.Render,
		byName: make(map[string]*object.Object, len(cfg.Objects)),
	}
	for _, oc := range cfg.Objects {
		me, err := baseMesh(oc.Name, oc.Primitive, oc.Solid, k, cfg.Eval.Cells)
		if err != nil {
			return nil, res.Warnings, fmt.Errorf("scene: object %q: %w", oc.Name, err)
		}
		ob := object.New(oc.Name, me)
		if fl := oc.Fluid; fl != nil {
			surface, err := baseMesh(oc.Name+".fluid", fl.Primitive, fl.Solid, k, cfg.Eval.Cells)
			if err != nil {
				return nil, res.Warnings, fmt.Errorf("scene: object %q fluid: %w", oc.Name, err)
			}
			ob.Fluid = &object.FluidSurface{Mesh: surface, Active: fl.Active}
		}
		ob.Location = geom.Vec3(oc.Location)
		ob.ParentDeform = oc.ParentDeform
		ob.WeightPaint = oc.WeightPaint
		for _, mc := range oc.Modifiers {
			md, err := buildModifier(mc, reg)
			if err != nil {
				return nil, res.Warnings, fmt.Errorf("scene: object %q: %w", oc.Name, err)
			}
			ob.Modifiers = append(ob.Modifiers, md)
			res.Warnings = append(res.Warnings, checkIndices(ob, md)...)
		}
		s.Objects = append(s.Objects, ob)
		s.byName[ob.Name] = ob
	}

	for _, oc := range cfg.Objects {
		ob := s.byName[oc.Name]
		if oc.Parent != "" {
			ob.Parent = s.byName[oc.Parent]
		}
	}
	for _, oc := range cfg.Objects {
		if !oc.Editing() {
			continue
		}
		ob := s.byName[oc.Name]
		cage := modifier.CageIndex(ob.ModifierList(), reg)
		if oc.Edit.CageIndex != nil {
			cage = *oc.Edit.CageIndex
		}
		s.Edits[ob.Name] = object.Edit(ob, cage)
	}
	return s, res.Warnings, nil
}

func buildModifier(mc config.ModifierConfig, reg *modifier.Registry) (*modifier.Modifier, error) {
	md, err := reg.NewModifier(mc.Name, modifier.Type(mc.Type))
	if err != nil {
		return nil, err
	}
	if len(mc.Modes) > 0 {
		mode, err := modifier.ParseMode(mc.Modes)
		if err != nil {
			return nil, err
		}
		md.Mode = mode
	}
	if err := config.DecodeParams(mc.Params, md.Settings); err != nil {
		return nil, fmt.Errorf("modifier %q: %w", mc.Name, err)
	}
	return md, nil
}

// baseMesh creates the mesh for a primitive or, when p is nil, a solid.
func baseMesh(name string, p *config.PrimitiveConfig, sc *config.SolidConfig, k kernel.Kernel, cells int) (*mesh.Mesh, error) {
	var me *mesh.Mesh
	if p != nil {
		size := p.Size
		if size == 0 {
			size = 2
		}
		switch p.Kind {
		case "cube":
			me = mesh.Cube(size)
		case "plane":
			me = mesh.Plane(size)
		case "grid":
			me = mesh.Grid(p.X, p.Y, size)
		default:
			return nil, fmt.Errorf("unknown primitive %q", p.Kind)
		}
	} else {
		if k == nil {
			return nil, fmt.Errorf("solid needs a geometry kernel")
		}
		solid, err := buildSolid(k, sc)
		if err != nil {
			return nil, err
		}
		if sc.Cells > 0 {
			cells = sc.Cells
		}
		me, err = k.ToMesh(solid, cells)
		if err != nil {
			return nil, err
		}
	}
	me.Name = name
	if err := me.Validate(); err != nil {
		return nil, err
	}
	return me, nil
}

func buildSolid(k kernel.Kernel, sc *config.SolidConfig) (kernel.Solid, error) {
	var s kernel.Solid
	switch sc.Kind {
	case "box":
		s = k.Box(sc.Size[0], sc.Size[1], sc.Size[2])
	case "sphere":
		s = k.Sphere(sc.Radius)
	case "cylinder":
		s = k.Cylinder(sc.Height, sc.Radius)
	default:
		return nil, fmt.Errorf("unknown solid %q", sc.Kind)
	}
	if sc.Rotate != [3]float64{} {
		s = k.Rotate(s, sc.Rotate[0], sc.Rotate[1], sc.Rotate[2])
	}
	if sc.Offset != [3]float64{} {
		s = k.Translate(s, sc.Offset[0], sc.Offset[1], sc.Offset[2])
	}
	for _, uc := range sc.Union {
		u, err := buildSolid(k, uc)
		if err != nil {
			return nil, err
		}
		s = k.Union(s, u)
	}
	for _, ic := range sc.Intersect {
		i, err := buildSolid(k, ic)
		if err != nil {
			return nil, err
		}
		s = k.Intersection(s, i)
	}
	if sc.Subtract != nil {
		sub, err := buildSolid(k, sc.Subtract)
		if err != nil {
			return nil, err
		}
		s = k.Difference(s, sub)
	}
	return s, nil
}

// checkIndices reports hook indices past the end of the base mesh. The hook
// ignores them at evaluation time.
func checkIndices(ob *object.Object, md *modifier.Modifier) []Finding {
	hs, ok := md.Settings.(*modifiers.HookSettings)
	if !ok {
		return nil
	}
	var out []Finding
	n := ob.Data.NumVerts()
	for _, i := range hs.Indices {
		if i < 0 || i >= n {
			out = append(out, Finding{
				Object:   ob.Name,
				Modifier: md.Name,
				Message:  fmt.Sprintf("vertex index %d out of range (mesh has %d)", i, n),
				Severity: SeverityWarning,
			})
		}
	}
	return out
}

// WorldLocation returns ob's location with every ancestor's location
// added.
func WorldLocation(ob *object.Object) geom.Vec3 {
	var loc geom.Vec3
	seen := make(map[*object.Object]bool)
	for p := ob; p != nil && !seen[p]; p = p.Parent {
		seen[p] = true
		loc = loc.Add(p.Location)
	}
	return loc
}
