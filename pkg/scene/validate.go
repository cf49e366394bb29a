package scene

import (
	"fmt"
	"strings"

	"github.com/chazu/dmesh/pkg/config"
	"github.com/chazu/dmesh/pkg/modifier"
)

// Severity indicates whether a finding blocks the build or is advisory.
type Severity int

const (
	SeverityError   Severity = iota // blocks the build
	SeverityWarning                 // informational
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Finding describes one validation result.
type Finding struct {
	Object   string // object name, empty for scene-level findings
	Modifier string // stack entry name, if the finding is about one
	Message  string
	Severity Severity
}

func (f Finding) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] ", f.Severity)
	if f.Object != "" {
		fmt.Fprintf(&b, "object %s: ", f.Object)
	}
	if f.Modifier != "" {
		fmt.Fprintf(&b, "modifier %s: ", f.Modifier)
	}
	b.WriteString(f.Message)
	return b.String()
}

// Result separates blocking errors from warnings.
type Result struct {
	Errors   []Finding
	Warnings []Finding
}

// ValidationFailure is returned by Build when validation found errors.
type ValidationFailure struct {
	Findings []Finding
}

func (e *ValidationFailure) Error() string {
	msgs := make([]string, len(e.Findings))
	for i, f := range e.Findings {
		msgs[i] = f.Error()
	}
	return "scene: invalid: " + strings.Join(msgs, "; ")
}

// Validate runs every tier against cfg. It never modifies cfg.
//
// Tier 1 is structural: names, parents and modifier types. Tier 2 checks
// geometry parameters. Tier 3 reports stack entries that evaluation will
// skip.
func Validate(cfg *config.Config, reg *modifier.Registry) Result {
	var all []Finding
	all = append(all, validateNames(cfg)...)
	all = append(all, validateParents(cfg)...)
	all = append(all, validateModifiers(cfg, reg)...)
	all = append(all, validateGeometry(cfg)...)
	all = append(all, validateStacks(cfg, reg)...)

	var res Result
	for _, f := range all {
		if f.Severity == SeverityWarning {
			res.Warnings = append(res.Warnings, f)
		} else {
			res.Errors = append(res.Errors, f)
		}
	}
	return res
}

func validateNames(cfg *config.Config) []Finding {
	var out []Finding
	seen := make(map[string]bool)
	for _, ob := range cfg.Objects {
		if seen[ob.Name] {
			out = append(out, Finding{Object: ob.Name, Message: "duplicate object name", Severity: SeverityError})
		}
		seen[ob.Name] = true

		mods := make(map[string]bool)
		for _, md := range ob.Modifiers {
			if mods[md.Name] {
				out = append(out, Finding{Object: ob.Name, Modifier: md.Name, Message: "duplicate modifier name", Severity: SeverityWarning})
			}
			mods[md.Name] = true
		}
	}
	return out
}

// validateParents checks parent references and looks for cycles with the
// same three-color walk used for dependency graphs.
func validateParents(cfg *config.Config) []Finding {
	const (
		white = iota
		gray
		black
	)
	parent := make(map[string]string, len(cfg.Objects))
	var out []Finding
	for _, ob := range cfg.Objects {
		parent[ob.Name] = ob.Parent
	}
	for _, ob := range cfg.Objects {
		if ob.Parent == "" {
			if ob.ParentDeform {
				out = append(out, Finding{Object: ob.Name, Message: "parent_deform set without a parent", Severity: SeverityWarning})
			}
			continue
		}
		if _, ok := parent[ob.Parent]; !ok {
			out = append(out, Finding{Object: ob.Name, Message: fmt.Sprintf("unknown parent %q", ob.Parent), Severity: SeverityError})
		}
	}

	color := make(map[string]int)
	for _, ob := range cfg.Objects {
		var path []string
		for name := ob.Name; name != ""; name = parent[name] {
			if color[name] == black {
				break
			}
			if color[name] == gray {
				out = append(out, Finding{Object: name, Message: "parent cycle: " + strings.Join(append(path, name), " -> "), Severity: SeverityError})
				break
			}
			color[name] = gray
			path = append(path, name)
		}
		for _, name := range path {
			color[name] = black
		}
	}
	return out
}

func validateModifiers(cfg *config.Config, reg *modifier.Registry) []Finding {
	var out []Finding
	for _, ob := range cfg.Objects {
		for _, mc := range ob.Modifiers {
			errf := func(format string, args ...any) {
				out = append(out, Finding{Object: ob.Name, Modifier: mc.Name, Message: fmt.Sprintf(format, args...), Severity: SeverityError})
			}
			ti := reg.Info(modifier.Type(mc.Type))
			if ti == nil {
				errf("unknown modifier type %q", mc.Type)
				continue
			}
			if _, err := modifier.ParseMode(mc.Modes); err != nil {
				errf("%v", err)
			}
			var settings any
			if ti.NewSettings != nil {
				settings = ti.NewSettings()
			}
			if err := config.DecodeParams(mc.Params, settings); err != nil {
				errf("%v", err)
			}
		}
	}
	return out
}

func validateGeometry(cfg *config.Config) []Finding {
	var out []Finding
	for _, ob := range cfg.Objects {
		errf := func(format string, args ...any) {
			out = append(out, Finding{Object: ob.Name, Message: fmt.Sprintf(format, args...), Severity: SeverityError})
		}
		validateShape(ob.Primitive, ob.Solid, errf)
		if ob.Fluid != nil {
			validateShape(ob.Fluid.Primitive, ob.Fluid.Solid, func(format string, args ...any) {
				errf("fluid: "+format, args...)
			})
		}
	}
	return out
}

// validateShape reports errors in a primitive or solid description.
func validateShape(p *config.PrimitiveConfig, solid *config.SolidConfig, errf func(string, ...any)) {
	if p != nil {
		switch p.Kind {
		case "cube", "plane":
		case "grid":
			if p.X < 1 || p.Y < 1 {
				errf("grid needs at least one cell along x and y")
			}
		default:
			errf("unknown primitive %q", p.Kind)
		}
		if p.Size < 0 {
			errf("primitive size must not be negative")
		}
	}
	solid.Walk(func(sc *config.SolidConfig) {
		switch sc.Kind {
		case "box":
			if sc.Size[0] <= 0 || sc.Size[1] <= 0 || sc.Size[2] <= 0 {
				errf("box dimensions must be positive, got %v", sc.Size)
			}
		case "sphere":
			if sc.Radius <= 0 {
				errf("sphere radius must be positive")
			}
		case "cylinder":
			if sc.Radius <= 0 || sc.Height <= 0 {
				errf("cylinder radius and height must be positive")
			}
		default:
			errf("unknown solid %q", sc.Kind)
		}
		if sc.Cells < 0 {
			errf("cells must not be negative")
		}
	})
}

// validateStacks warns about entries that evaluation will skip and about
// cage indices that fall back to the plain edit mesh.
func validateStacks(cfg *config.Config, reg *modifier.Registry) []Finding {
	var out []Finding
	for _, ob := range cfg.Objects {
		warn := func(md, format string, args ...any) {
			out = append(out, Finding{Object: ob.Name, Modifier: md, Message: fmt.Sprintf(format, args...), Severity: SeverityWarning})
		}
		constructive := false
		for _, mc := range ob.Modifiers {
			ti := reg.Info(modifier.Type(mc.Type))
			if ti == nil {
				continue
			}
			if ti.Flags.Has(modifier.FlagRequiresOriginalData) && constructive {
				warn(mc.Name, "needs original data but follows a constructive modifier; it will be skipped")
			}
			if ti.Kind == modifier.KindConstructive {
				constructive = true
			}
			if ob.Editing() && !ti.Flags.Has(modifier.FlagSupportsEditmode) {
				warn(mc.Name, "not evaluated in edit mode")
			}
		}
		if ob.Editing() && ob.Edit.CageIndex != nil {
			n := len(ob.Modifiers)
			if ob.Parent != "" && ob.ParentDeform {
				n++
			}
			if ci := *ob.Edit.CageIndex; ci < 0 || ci > n {
				warn("", "cage index %d is outside the stack of %d; the cage shows the plain edit mesh", ci, n)
			}
		}
	}
	return out
}
