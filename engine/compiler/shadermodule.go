package compiler

import (
	"github.com/fini03/vkduck/engine/core"
)

// ShaderModule wraps one stage's compiled SPIR-V. Empty byte-code never
// reaches Create in a healthy rebuild: the orchestrator's pre-flight check
// aborts first.
type ShaderModule struct {
	base

	ShaderStage StageFlags
	Code        []uint32

	module Resource
}

func (p *ShaderModule) Create(store *Store, dev Device) bool {
	if len(p.Code) == 0 {
		core.LogError("shader module '%s': empty byte-code", p.name)
		return false
	}
	m, err := dev.CreateShaderModule(p.Code)
	if err != nil {
		core.LogError("shader module '%s': create failed: %s", p.name, err)
		return false
	}
	p.module = m
	return true
}

func (p *ShaderModule) Destroy(store *Store, dev Device) {
	if p.module != nil {
		dev.DestroyShaderModule(p.module)
		p.module = nil
	}
}
