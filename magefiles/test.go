//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Test mg.Namespace

// Runs every package's tests.
func (Test) All() error {
	_, err := executeCmd("go", withArgs("test", "./..."), withStream())
	return err
}

// Runs the tests with reference-count checks that panic on misuse.
func (Test) Debug() error {
	_, err := executeCmd("go", withArgs("test", "-tags", "meshdebug", "./..."), withStream())
	return err
}

// Runs the tests with the race detector.
func (Test) Race() error {
	_, err := executeCmd("go", withArgs("test", "-race", "./..."), withStream())
	return err
}
