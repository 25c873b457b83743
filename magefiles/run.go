//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Compiles the shaders and runs the editor.
func (Run) Editor() error {
	if err := buildShaders(); err != nil {
		return err
	}
	fmt.Println("Run editor...")
	if _, err := executeCmd("go", withArgs("run", "main.go"), withStream()); err != nil {
		return err
	}
	return nil
}
