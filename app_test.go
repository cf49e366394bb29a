package main

import (
	"os"
	"testing"

	"github.com/chazu/dmesh/pkg/logging"
)

func init() {
	logging.Discard()
}

// TestE2EBoxExample exercises the full pipeline: TOML source → scene →
// modifier stack → tessellate → meshes. This is the same path the CLI
// takes.
func TestE2EBoxExample(t *testing.T) {
	app := NewApp()
	defer app.Close()

	source, err := os.ReadFile("examples/box.toml")
	if err != nil {
		t.Fatalf("failed to read box.toml: %v", err)
	}

	result := app.Evaluate(string(source))

	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			t.Errorf("eval error (line %d): %s", e.Line, e.Message)
		}
		t.FailNow()
	}
	if len(result.Meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(result.Meshes))
	}

	m := result.Meshes[0]
	if m.Object != "box" {
		t.Errorf("expected object 'box', got %q", m.Object)
	}
	// Two subdivision levels: 8 + 12 + 6 = 26, then 26 + 48 + 24 = 98.
	if got := len(m.Vertices) / 3; got != 98 {
		t.Errorf("expected 98 vertices, got %d", got)
	}
	if got := len(m.Indices) / 3; got != 192 {
		t.Errorf("expected 192 triangles, got %d", got)
	}
	if m.Color == "" {
		t.Error("no color assigned")
	}
}

// TestE2ETableExample covers parenting, solids, mirroring and edit mode.
func TestE2ETableExample(t *testing.T) {
	app := NewApp()
	defer app.Close()

	result := app.EvaluateFile("examples/table.toml")
	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			t.Errorf("eval error: %s", e.Message)
		}
		t.FailNow()
	}

	expected := map[string]bool{"top": false, "legs": false, "knob": false}
	for _, m := range result.Meshes {
		if _, ok := expected[m.Object]; !ok {
			t.Errorf("unexpected object: %q", m.Object)
			continue
		}
		expected[m.Object] = true

		if len(m.Vertices) == 0 {
			t.Errorf("object %q: no vertices", m.Object)
		}
		if len(m.Normals) != len(m.Vertices) {
			t.Errorf("object %q: %d normals for %d vertices", m.Object, len(m.Normals), len(m.Vertices))
		}
		if len(m.Indices) == 0 {
			t.Errorf("object %q: no indices", m.Object)
		}
		if m.Editing != (m.Object == "knob") {
			t.Errorf("object %q: editing = %v", m.Object, m.Editing)
		}
	}
	for name, found := range expected {
		if !found {
			t.Errorf("missing mesh for object %q", name)
		}
	}
}

// TestE2EEmptySource ensures the pipeline handles empty input gracefully.
func TestE2EEmptySource(t *testing.T) {
	app := NewApp()
	result := app.Evaluate("")

	if len(result.Errors) > 0 {
		t.Errorf("unexpected errors for empty source: %v", result.Errors)
	}
	if len(result.Meshes) != 0 {
		t.Errorf("expected 0 meshes for empty source, got %d", len(result.Meshes))
	}
}

// TestE2ESyntaxError ensures parse errors are reported with a position.
func TestE2ESyntaxError(t *testing.T) {
	app := NewApp()
	result := app.Evaluate("[[object]]\nname = \"a\"\nsize = = 2\n")

	if len(result.Errors) == 0 {
		t.Fatal("expected errors for syntax error")
	}
	if result.Errors[0].Line != 3 {
		t.Errorf("expected error on line 3, got %d", result.Errors[0].Line)
	}
	if len(result.Meshes) != 0 {
		t.Errorf("expected 0 meshes on error, got %d", len(result.Meshes))
	}
}

// TestE2ESingleCube ensures a minimal document renders one mesh.
func TestE2ESingleCube(t *testing.T) {
	app := NewApp()
	defer app.Close()

	result := app.Evaluate(`
[[object]]
name = "shelf"
[object.primitive]
kind = "cube"
`)
	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			t.Errorf("eval error: %s", e.Message)
		}
		t.FailNow()
	}
	if len(result.Meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(result.Meshes))
	}
	if result.Meshes[0].Object != "shelf" {
		t.Errorf("expected object 'shelf', got %q", result.Meshes[0].Object)
	}
}

// TestE2EFluidSurface checks that an active fluid surface replaces the
// object-mode mesh while edit mode keeps the object's own mesh.
func TestE2EFluidSurface(t *testing.T) {
	app := NewApp()
	defer app.Close()

	result := app.Evaluate(`
[[object]]
name = "pond"
[object.primitive]
kind = "cube"
[object.fluid]
active = true
[object.fluid.primitive]
kind = "grid"
x = 4
y = 4

[[object]]
name = "drained"
[object.primitive]
kind = "cube"
[object.fluid]
[object.fluid.primitive]
kind = "grid"
x = 4
y = 4

[[object]]
name = "puddle"
[object.primitive]
kind = "cube"
[object.fluid]
active = true
[object.fluid.primitive]
kind = "plane"
[object.edit]
enabled = true
`)
	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			t.Errorf("eval error: %s", e.Message)
		}
		t.FailNow()
	}
	want := map[string]int{"pond": 25, "drained": 8, "puddle": 8}
	if len(result.Meshes) != len(want) {
		t.Fatalf("expected %d meshes, got %d", len(want), len(result.Meshes))
	}
	for _, m := range result.Meshes {
		if got := len(m.Vertices) / 3; got != want[m.Object] {
			t.Errorf("%s: expected %d vertices, got %d", m.Object, want[m.Object], got)
		}
	}
}
