package main

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/pelletier/go-toml/v2"

	"github.com/chazu/dmesh/pkg/config"
	"github.com/chazu/dmesh/pkg/kernel"
	"github.com/chazu/dmesh/pkg/kernel/sdfx"
	"github.com/chazu/dmesh/pkg/logging"
	"github.com/chazu/dmesh/pkg/modifier"
	"github.com/chazu/dmesh/pkg/modifiers"
	"github.com/chazu/dmesh/pkg/scene"
	"github.com/chazu/dmesh/pkg/stack"
	"github.com/chazu/dmesh/pkg/tessellate"
)

// colorPalette is a default palette used to assign distinct colors to objects.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// App evaluates scene documents into triangle meshes. It keeps the last
// scene so its caches can be released on the next evaluation. Calls are
// serialized.
type App struct {
	mu sync.Mutex

	registry  *modifier.Registry
	evaluator *stack.Evaluator
	kernel    kernel.Kernel
	scene     *scene.Scene
}

// MeshData is the JSON-serializable mesh format written by the CLI.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	Object   string    `json:"object"`
	Color    string    `json:"color"`
	Editing  bool      `json:"editing,omitempty"`
}

// EvalErrorData is a JSON-serializable evaluation problem. Line and Col
// are set for document syntax errors; Object and Modifier locate scene
// and stack problems.
type EvalErrorData struct {
	Line     int    `json:"line,omitempty"`
	Col      int    `json:"col,omitempty"`
	Object   string `json:"object,omitempty"`
	Modifier string `json:"modifier,omitempty"`
	Message  string `json:"message"`
}

// EvalResult is the full result of one evaluation.
type EvalResult struct {
	Meshes   []MeshData      `json:"meshes"`
	Errors   []EvalErrorData `json:"errors"`
	Warnings []EvalErrorData `json:"warnings"`
}

// NewApp creates an App with the builtin modifiers and the sdfx kernel.
func NewApp() *App {
	reg := modifiers.Default()
	return &App{
		registry:  reg,
		evaluator: stack.NewEvaluator(reg),
		kernel:    sdfx.New(),
	}
}

func (a *App) log() *log.Logger { return logging.For("app") }

// EvaluateFile reads path and evaluates it.
func (a *App) EvaluateFile(path string) EvalResult {
	source, err := os.ReadFile(path)
	if err != nil {
		return EvalResult{
			Meshes:   []MeshData{},
			Errors:   []EvalErrorData{{Message: err.Error()}},
			Warnings: []EvalErrorData{},
		}
	}
	return a.Evaluate(string(source))
}

// Evaluate takes a TOML scene document and returns mesh data and errors.
// The previous scene's caches are released first. A panic during
// evaluation is reported as an error and drops the scene.
func (a *App) Evaluate(source string) (result EvalResult) {
	a.mu.Lock()
	defer a.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			a.log().Error("panic during evaluation", "panic", r)
			a.scene = nil
			result = EvalResult{
				Meshes:   []MeshData{},
				Errors:   []EvalErrorData{{Message: fmt.Sprintf("panic during evaluation: %v", r)}},
				Warnings: []EvalErrorData{},
			}
		}
	}()
	return a.evaluate(source)
}

func (a *App) evaluate(source string) EvalResult {
	result := EvalResult{
		Meshes:   []MeshData{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}
	a.close()

	// Step 1: Parse the document.
	cfg, err := config.Parse([]byte(source))
	if errors.Is(err, config.ErrNoObjects) {
		return result
	}
	if err != nil {
		a.log().Error("parse failed", "err", err)
		result.Errors = append(result.Errors, parseError(err))
		return result
	}
	if err := logging.Configure(cfg.Log.Level, cfg.Log.Caller); err != nil {
		result.Warnings = append(result.Warnings, EvalErrorData{Message: err.Error()})
	}

	// Step 2: Validate and build the scene.
	s, warnings, err := scene.Build(cfg, a.registry, a.kernel)
	for _, w := range warnings {
		result.Warnings = append(result.Warnings, findingData(w))
	}
	if err != nil {
		var vf *scene.ValidationFailure
		if errors.As(err, &vf) {
			for _, f := range vf.Findings {
				result.Errors = append(result.Errors, findingData(f))
			}
		} else {
			result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		}
		return result
	}
	a.scene = s

	// Step 3: Evaluate the stacks and tessellate.
	meshes, err := tessellate.Scene(s, a.evaluator)
	if err != nil {
		a.log().Error("tessellate failed", "err", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: "tessellation failed: " + err.Error()})
		return result
	}

	// Step 4: Convert to the output format.
	for i, m := range meshes {
		result.Meshes = append(result.Meshes, MeshData{
			Vertices: m.Vertices,
			Normals:  m.Normals,
			Indices:  m.Indices,
			Object:   m.Object,
			Color:    colorPalette[i%len(colorPalette)],
			Editing:  s.Edits[m.Object] != nil,
		})
	}

	// Step 5: Stack entries that failed during evaluation.
	for _, ob := range s.Objects {
		for _, md := range modifier.Errors(ob.ModifierList()) {
			result.Warnings = append(result.Warnings, EvalErrorData{
				Object:   ob.Name,
				Modifier: md.Name,
				Message:  md.Error,
			})
		}
	}
	return result
}

// Close releases the caches of the current scene.
func (a *App) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.close()
}

func (a *App) close() {
	if a.scene == nil {
		return
	}
	for _, sess := range a.scene.Edits {
		if err := a.evaluator.InvalidateEditCaches(sess); err != nil {
			a.log().Warn("release edit caches", "object", sess.Object.Name, "err", err)
		}
	}
	for _, ob := range a.scene.Objects {
		if err := a.evaluator.InvalidateCaches(ob); err != nil {
			a.log().Warn("release caches", "object", ob.Name, "err", err)
		}
	}
	a.scene = nil
}

func parseError(err error) EvalErrorData {
	d := EvalErrorData{Message: err.Error()}
	var derr *toml.DecodeError
	if errors.As(err, &derr) {
		d.Line, d.Col = derr.Position()
	}
	return d
}

func findingData(f scene.Finding) EvalErrorData {
	return EvalErrorData{Object: f.Object, Modifier: f.Modifier, Message: f.Error()}
}
