// Package config reads scene and application settings from TOML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// DefaultCells is the marching cubes resolution for solids that do not
// set their own.
const DefaultCells = 64

// Config is the top-level document.
type Config struct {
	Log     LogConfig      `toml:"log"`
	Eval    EvalConfig     `toml:"eval"`
	Objects []ObjectConfig `toml:"object"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `toml:"level"`
	Caller bool   `toml:"caller"`
}

// EvalConfig holds evaluation-wide options.
type EvalConfig struct {
	// Render evaluates with render settings instead of viewport ones.
	Render bool `toml:"render"`
	// Cells is the default meshing resolution for solids.
	Cells int `toml:"cells"`
}

// ObjectConfig describes one scene object. Exactly one of Primitive and
// Solid must be set.
type ObjectConfig struct {
	Name         string           `toml:"name"`
	Parent       string           `toml:"parent"`
	ParentDeform bool             `toml:"parent_deform"`
	Location     [3]float32       `toml:"location"`
	WeightPaint  bool             `toml:"weight_paint"`
	Primitive    *PrimitiveConfig `toml:"primitive"`
	Solid        *SolidConfig     `toml:"solid"`
	Modifiers    []ModifierConfig `toml:"modifier"`
	Edit         *EditConfig      `toml:"edit"`
	Fluid        *FluidConfig     `toml:"fluid"`
}

// FluidConfig attaches a simulation surface to an object. While Active,
// the surface replaces the object's mesh in object mode; edit mode always
// works on the object's own mesh. Exactly one of Primitive and Solid must
// be set.
type FluidConfig struct {
	Active    bool             `toml:"active"`
	Primitive *PrimitiveConfig `toml:"primitive"`
	Solid     *SolidConfig     `toml:"solid"`
}

// PrimitiveConfig selects a built-in mesh: "cube", "plane" or "grid".
type PrimitiveConfig struct {
	Kind string  `toml:"kind"`
	Size float32 `toml:"size"`
	X    int     `toml:"x"`
	Y    int     `toml:"y"`
}

// SolidConfig describes a kernel solid: "box", "sphere" or "cylinder".
// The shape is rotated (Euler degrees about X, Y, Z), then moved by
// Offset, then combined with the union and intersect solids in order, and
// finally has Subtract removed.
type SolidConfig struct {
	Kind      string         `toml:"kind"`
	Size      [3]float64     `toml:"size"`
	Radius    float64        `toml:"radius"`
	Height    float64        `toml:"height"`
	Rotate    [3]float64     `toml:"rotate"`
	Offset    [3]float64     `toml:"offset"`
	Cells     int            `toml:"cells"`
	Union     []*SolidConfig `toml:"union"`
	Intersect []*SolidConfig `toml:"intersect"`
	Subtract  *SolidConfig   `toml:"subtract"`
}

// Walk calls fn for sc and every nested solid, depth first.
func (sc *SolidConfig) Walk(fn func(*SolidConfig)) {
	if sc == nil {
		return
	}
	fn(sc)
	for _, u := range sc.Union {
		u.Walk(fn)
	}
	for _, i := range sc.Intersect {
		i.Walk(fn)
	}
	sc.Subtract.Walk(fn)
}

// ModifierConfig is one stack entry. Params are decoded into the settings
// of the named type.
type ModifierConfig struct {
	Name   string         `toml:"name"`
	Type   string         `toml:"type"`
	Modes  []string       `toml:"modes"`
	Params map[string]any `toml:"params"`
}

// EditConfig puts the object in edit mode when Enabled. A nil CageIndex
// derives the cage from the entries' on-cage modes.
type EditConfig struct {
	Enabled   bool `toml:"enabled"`
	CageIndex *int `toml:"cage_index"`
}

// Editing reports whether the object is in edit mode.
func (oc ObjectConfig) Editing() bool {
	return oc.Edit != nil && oc.Edit.Enabled
}

// ErrNoObjects is returned by Validate for a scene without objects.
var ErrNoObjects = errors.New("config: scene has no objects")

// Default returns the configuration used when no file is given: a single
// cube with an empty stack.
func Default() *Config {
	return &Config{
		Log:  LogConfig{Level: "info"},
		Eval: EvalConfig{Cells: DefaultCells},
		Objects: []ObjectConfig{{
			Name:      "Cube",
			Primitive: &PrimitiveConfig{Kind: "cube", Size: 2},
		}},
	}
}

// Parse decodes a TOML document. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, fmt.Errorf("config: line %d column %d: %w", row, col, err)
		}
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads and parses the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Eval.Cells <= 0 {
		c.Eval.Cells = DefaultCells
	}
	for i := range c.Objects {
		for j := range c.Objects[i].Modifiers {
			md := &c.Objects[i].Modifiers[j]
			if md.Name == "" {
				md.Name = md.Type
			}
		}
	}
}

// Validate checks the document shape. Semantic checks that need the
// modifier registry or the kernel happen when the scene is built.
func (c *Config) Validate() error {
	if len(c.Objects) == 0 {
		return ErrNoObjects
	}
	for i, ob := range c.Objects {
		if ob.Name == "" {
			return fmt.Errorf("config: object %d has no name", i)
		}
		if (ob.Primitive == nil) == (ob.Solid == nil) {
			return fmt.Errorf("config: object %q needs exactly one of primitive or solid", ob.Name)
		}
		if fl := ob.Fluid; fl != nil && (fl.Primitive == nil) == (fl.Solid == nil) {
			return fmt.Errorf("config: object %q fluid needs exactly one of primitive or solid", ob.Name)
		}
		for j, md := range ob.Modifiers {
			if md.Type == "" {
				return fmt.Errorf("config: object %q modifier %d has no type", ob.Name, j)
			}
		}
	}
	return nil
}

// DecodeParams decodes params into settings, a pointer to a settings
// struct. Keys the struct does not have are an error.
func DecodeParams(params map[string]any, settings any) error {
	if len(params) == 0 {
		return nil
	}
	if settings == nil {
		return errors.New("config: modifier takes no parameters")
	}
	data, err := toml.Marshal(params)
	if err != nil {
		return fmt.Errorf("config: encode params: %w", err)
	}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(settings); err != nil {
		return fmt.Errorf("config: params: %w", err)
	}
	return nil
}
