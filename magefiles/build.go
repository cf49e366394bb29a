//go:build mage

package main

import (
	"fmt"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Builds the dmesh binary into bin/.
func (Build) CLI() error {
	out := filepath.Join("bin", "dmesh")
	if _, err := executeCmd("go", withArgs("build", "-o", out, "."), withStream()); err != nil {
		return err
	}
	fmt.Println("Built", out)
	return nil
}

// Evaluates every example scene as a smoke test.
func (Build) Examples() error {
	mg.Deps(Build.CLI)
	scenes, err := filepath.Glob(filepath.Join("examples", "*.toml"))
	if err != nil {
		return err
	}
	for _, s := range scenes {
		if _, err := executeCmd(filepath.Join("bin", "dmesh"), withArgs("-scene", s, "-log", "warn")); err != nil {
			return err
		}
	}
	return nil
}

// Runs go mod tidy and go vet.
func (Build) Tidy() error {
	if _, err := executeCmd("go", withArgs("mod", "tidy")); err != nil {
		return fmt.Errorf("failed to run go mod tidy: %w", err)
	}
	if _, err := executeCmd("go", withArgs("vet", "./..."), withDir(".")); err != nil {
		return fmt.Errorf("failed to run go vet: %w", err)
	}
	return nil
}
