//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Compiles every shader under assets/shaders to SPIR-V.
func (Build) Shaders() error {
	return buildShaders()
}

// Builds the editor binary.
func (Build) Editor() error {
	if _, err := executeCmd("go", withArgs("build", "-o", "vkduck", "."), withStream()); err != nil {
		return err
	}
	return nil
}
