package compiler

import (
	"bytes"
	"fmt"
	"go/format"
	"strings"

	"github.com/fini03/vkduck/engine/core"
)

// GenerateSource emits static Go source that replays the last successful
// rebuild: the same primitives in the same canonical order, then the same
// link decisions in the same applied order. Output parity with the live
// runtime follows from walking the identical Store ordering and the recorded
// LinkDecision list instead of re-deriving either.
func GenerateSource(c *Compiler, pkg string) ([]byte, error) {
	if c.store.State() != StoreLinked {
		return nil, core.ErrStoreNotLinked
	}
	if err := c.store.ValidateUniqueNames(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "// Code generated by vkduck; do not edit.\n\n")
	fmt.Fprintf(&buf, "package %s\n\n", pkg)
	fmt.Fprintf(&buf, "import compiler %q\n\n", "github.com/fini03/vkduck/engine/compiler")
	buf.WriteString("// Build places the primitives of the captured session into store in\n")
	buf.WriteString("// canonical creation order and replays its link decisions.\n")
	buf.WriteString("func Build(store *compiler.Store) {\n")

	for _, p := range c.store.Nodes() {
		name := identifier(p.Name())
		fmt.Fprintf(&buf, "\t%s := store.%s()\n", name, constructorName(p.Handle().Type))
		fmt.Fprintf(&buf, "\t%s.SetName(%q)\n", name, p.Name())
	}
	buf.WriteString("\n")
	for _, l := range c.links {
		fmt.Fprintf(&buf, "\tstore.MustConnect(%s, %d, %s)\n",
			handleLiteral(l.Dst), l.Slot, arrayLiteral(l.Src))
	}
	buf.WriteString("}\n")

	return format.Source(buf.Bytes())
}

// MustConnect replays a recorded link decision. Generated code is replaying
// decisions that already validated once, so a failure here is a programming
// error and aborts.
func (s *Store) MustConnect(dst Handle, slot uint32, arr Array) {
	p := s.Get(dst)
	if p == nil {
		core.LogFatal("generated link target %s_%d does not exist", dst.Type, dst.Index)
	}
	conn, ok := p.(Connector)
	if !ok {
		core.LogFatal("generated link target '%s' accepts no connections", p.Name())
	}
	if !conn.Connect(arr, slot, s) {
		core.LogFatal("generated link to '%s' slot %d failed", p.Name(), slot)
	}
}

func constructorName(t PrimitiveType) string {
	switch t {
	case TypeDescriptorPool:
		return "NewDescriptorPool"
	case TypeImage:
		return "NewImage"
	case TypeAttachment:
		return "NewAttachment"
	case TypeRenderPass:
		return "NewRenderPass"
	case TypeUniformBuffer:
		return "NewUniformBuffer"
	case TypeCamera:
		return "NewCamera"
	case TypeVertexData:
		return "NewVertexData"
	case TypeShaderModule:
		return "NewShaderModule"
	case TypeDescriptorSet:
		return "NewDescriptorSet"
	case TypePipeline:
		return "NewPipeline"
	case TypePresent:
		return "NewPresent"
	}
	return "NewInvalid"
}

func typeConstName(t PrimitiveType) string {
	switch t {
	case TypeDescriptorPool:
		return "compiler.TypeDescriptorPool"
	case TypeImage:
		return "compiler.TypeImage"
	case TypeAttachment:
		return "compiler.TypeAttachment"
	case TypeRenderPass:
		return "compiler.TypeRenderPass"
	case TypeUniformBuffer:
		return "compiler.TypeUniformBuffer"
	case TypeCamera:
		return "compiler.TypeCamera"
	case TypeVertexData:
		return "compiler.TypeVertexData"
	case TypeShaderModule:
		return "compiler.TypeShaderModule"
	case TypeDescriptorSet:
		return "compiler.TypeDescriptorSet"
	case TypePipeline:
		return "compiler.TypePipeline"
	case TypePresent:
		return "compiler.TypePresent"
	}
	return "compiler.TypeInvalid"
}

func handleLiteral(h Handle) string {
	return fmt.Sprintf("compiler.Handle{Index: %d, Type: %s}", h.Index, typeConstName(h.Type))
}

func arrayLiteral(a Array) string {
	idx := make([]string, len(a.Indices))
	for i, v := range a.Indices {
		idx[i] = fmt.Sprintf("%d", v)
	}
	return fmt.Sprintf("compiler.Array{Name: %q, Type: %s, Indices: []uint32{%s}}",
		a.Name, typeConstName(a.Type), strings.Join(idx, ", "))
}

// identifier sanitizes a primitive name into a Go local variable.
func identifier(name string) string {
	var b strings.Builder
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r == '_':
			b.WriteRune(r)
		case r >= '0' && r <= '9' && i > 0:
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
