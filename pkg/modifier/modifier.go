// Package modifier defines modifier stack entries and the capability table
// the stack evaluator dispatches through. The modifiers themselves live in
// their own package; this one only describes what they can do.
package modifier

import (
	"fmt"

	"github.com/chazu/dmesh/pkg/logging"
)

// Type names a registered modifier implementation.
type Type string

// Mode is the set of evaluation modes a stack entry is enabled for.
type Mode uint8

const (
	ModeRealtime Mode = 1 << iota // viewport evaluation
	ModeRender                    // final render evaluation
	ModeEditmode                  // evaluated while the mesh is being edited
	ModeOnCage                    // edit-mode result is used as the selection cage
)

// DefaultMode enables an entry everywhere except on the cage.
const DefaultMode = ModeRealtime | ModeRender | ModeEditmode

var modeNames = []struct {
	mode Mode
	name string
}{
	{ModeRealtime, "realtime"},
	{ModeRender, "render"},
	{ModeEditmode, "editmode"},
	{ModeOnCage, "oncage"},
}

// ParseMode converts mode names, as written in scene files, into a Mode.
func ParseMode(names []string) (Mode, error) {
	var m Mode
	for _, n := range names {
		found := false
		for _, mn := range modeNames {
			if mn.name == n {
				m |= mn.mode
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("modifier: unknown mode %q", n)
		}
	}
	return m, nil
}

func (m Mode) String() string {
	s := ""
	for _, mn := range modeNames {
		if m&mn.mode != 0 {
			if s != "" {
				s += "|"
			}
			s += mn.name
		}
	}
	if s == "" {
		return "none"
	}
	return s
}

// Modifier is one entry of an object's modifier stack.
type Modifier struct {
	Name string
	Type Type
	Mode Mode
	// Settings holds the type-specific parameters, as returned by the
	// type's NewSettings.
	Settings any
	// Error is the last configuration error reported for the entry. It is
	// cleared at the start of every evaluation.
	Error string
	// Virtual marks entries synthesized by list expansion rather than
	// stored on the object.
	Virtual bool
}

// New returns an entry enabled in DefaultMode.
func New(name string, typ Type, settings any) *Modifier {
	return &Modifier{Name: name, Type: typ, Mode: DefaultMode, Settings: settings}
}

// Enabled reports whether every bit of required is set on the entry.
func (md *Modifier) Enabled(required Mode) bool {
	return md.Mode&required == required
}

// SetError records a configuration error on md. Evaluation carries on
// without the entry.
func SetError(md *Modifier, format string, args ...any) {
	md.Error = fmt.Sprintf(format, args...)
	logging.For("modifier").Warn("modifier error", "modifier", md.Name, "type", md.Type, "err", md.Error)
}

// ClearErrors resets the error of every entry in list.
func ClearErrors(list []*Modifier) {
	for _, md := range list {
		md.Error = ""
	}
}

// Errors returns the entries of list that carry an error.
func Errors(list []*Modifier) []*Modifier {
	var out []*Modifier
	for _, md := range list {
		if md.Error != "" {
			out = append(out, md)
		}
	}
	return out
}
