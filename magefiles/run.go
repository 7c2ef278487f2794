//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Validates immediate.toml and inspects the pipeline cache it points to.
func (Run) Inspect() error {
	_, err := executeCmd("go", withArgs("run", ".", "-config", "immediate.toml"), withStream())
	return err
}
