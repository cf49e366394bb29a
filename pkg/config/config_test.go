package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scene = `
[log]
level = "debug"

[[object]]
name = "body"
location = [0.0, 0.0, 1.0]
weight_paint = true

[object.primitive]
kind = "cube"
size = 2.0

[[object.modifier]]
type = "translate"
modes = ["realtime", "render"]
params = { offset = [1.0, 0.0, 0.0] }

[[object.modifier]]
name = "smooth it"
type = "subdivide"
params = { levels = 2 }

[object.edit]
enabled = true
cage_index = 1

[[object]]
name = "nut"
parent = "body"
parent_deform = true

[object.solid]
kind = "box"
size = [2.0, 2.0, 1.0]

[object.solid.subtract]
kind = "cylinder"
radius = 0.5
height = 2.0

[object.fluid]
active = true

[object.fluid.primitive]
kind = "grid"
x = 4
y = 4
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(scene))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, DefaultCells, cfg.Eval.Cells)
	require.Len(t, cfg.Objects, 2)

	body := cfg.Objects[0]
	assert.Equal(t, [3]float32{0, 0, 1}, body.Location)
	assert.True(t, body.WeightPaint)
	require.NotNil(t, body.Primitive)
	assert.Equal(t, "cube", body.Primitive.Kind)
	require.Len(t, body.Modifiers, 2)
	assert.Equal(t, "translate", body.Modifiers[0].Name, "name defaults to type")
	assert.Equal(t, []string{"realtime", "render"}, body.Modifiers[0].Modes)
	assert.Equal(t, "smooth it", body.Modifiers[1].Name)
	require.NotNil(t, body.Edit)
	require.NotNil(t, body.Edit.CageIndex)
	assert.Equal(t, 1, *body.Edit.CageIndex)
	assert.True(t, body.Editing())
	assert.False(t, cfg.Objects[1].Editing())

	nut := cfg.Objects[1]
	assert.Equal(t, "body", nut.Parent)
	assert.True(t, nut.ParentDeform)
	require.NotNil(t, nut.Solid)
	require.NotNil(t, nut.Solid.Subtract)
	assert.Equal(t, 0.5, nut.Solid.Subtract.Radius)
	require.NotNil(t, nut.Fluid)
	assert.True(t, nut.Fluid.Active)
	assert.Equal(t, "grid", nut.Fluid.Primitive.Kind)
	assert.Nil(t, body.Fluid)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"syntax", "[[object]\nname = "},
		{"unknown key", "[[object]]\nname = \"a\"\ncolour = 1\n[object.primitive]\nkind = \"cube\""},
		{"no objects", "[log]\nlevel = \"info\""},
		{"unnamed object", "[[object]]\n[object.primitive]\nkind = \"cube\""},
		{"no geometry", "[[object]]\nname = \"a\""},
		{"two geometries", "[[object]]\nname = \"a\"\n[object.primitive]\nkind = \"cube\"\n[object.solid]\nkind = \"box\""},
		{"fluid without geometry", "[[object]]\nname = \"a\"\n[object.primitive]\nkind = \"cube\"\n[object.fluid]\nactive = true"},
		{"untyped modifier", "[[object]]\nname = \"a\"\n[object.primitive]\nkind = \"cube\"\n[[object.modifier]]\nname = \"m\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
	_, err := Parse([]byte("[log]\n"))
	assert.ErrorIs(t, err, ErrNoObjects)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.toml")
	require.NoError(t, os.WriteFile(path, []byte(scene), 0o644))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Objects, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "cube", cfg.Objects[0].Primitive.Kind)
}

func TestDecodeParams(t *testing.T) {
	type settings struct {
		Offset [3]float32 `toml:"offset"`
		Levels int        `toml:"levels"`
	}
	s := &settings{Levels: 1}
	require.NoError(t, DecodeParams(map[string]any{"offset": []any{1.0, 2.0, 3.0}}, s))
	assert.Equal(t, [3]float32{1, 2, 3}, s.Offset)
	assert.Equal(t, 1, s.Levels, "unset keys keep their defaults")

	assert.Error(t, DecodeParams(map[string]any{"bogus": 1}, s))
	assert.Error(t, DecodeParams(map[string]any{"levels": 1}, nil))
	assert.NoError(t, DecodeParams(nil, nil))
}
