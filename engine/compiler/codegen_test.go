package compiler_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fini03/vkduck/engine/compiler"
)

func TestGenerateSourceRequiresLinkedStore(t *testing.T) {
	c := compiler.New(newFakeDevice())
	_, err := compiler.GenerateSource(c, "generated")
	assert.Error(t, err)
}

func TestGenerateSourceMirrorsTheRebuild(t *testing.T) {
	dev := newFakeDevice()
	c := compiler.New(dev)
	s := newScene()
	require.True(t, c.Rebuild(s.graph))

	src, err := compiler.GenerateSource(c, "generated")
	require.NoError(t, err)
	code := string(src)

	assert.True(t, strings.HasPrefix(code, "// Code generated by vkduck; do not edit."))
	assert.Contains(t, code, "package generated")
	assert.Contains(t, code, "func Build(store *compiler.Store)")

	// One constructor call per live primitive, one replayed connect per
	// applied link decision.
	assert.Equal(t, len(c.OrderedPrimitives()), strings.Count(code, ":= store.New"))
	assert.Equal(t, len(c.Links()), strings.Count(code, "store.MustConnect("))

	// Canonical order: the first constructor is the descriptor pool, the
	// last is the present sink.
	first := strings.Index(code, "store.NewDescriptorPool()")
	last := strings.Index(code, "store.NewPresent()")
	assert.True(t, first >= 0 && last > first)
}

func TestGenerateSourceIsDeterministic(t *testing.T) {
	dev := newFakeDevice()
	c := compiler.New(dev)
	s := newScene()
	require.True(t, c.Rebuild(s.graph))

	a, err := compiler.GenerateSource(c, "generated")
	require.NoError(t, err)
	b, err := compiler.GenerateSource(c, "generated")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	// An unchanged graph rebuilds into the same mirror.
	require.True(t, c.Rebuild(s.graph))
	after, err := compiler.GenerateSource(c, "generated")
	require.NoError(t, err)
	assert.Equal(t, a, after)
}

func TestGenerateSourceRejectsDuplicateNames(t *testing.T) {
	dev := newFakeDevice()
	c := compiler.New(dev)
	s := newScene()
	require.True(t, c.Rebuild(s.graph))

	store := c.Store()
	store.Get(compiler.Handle{Index: 0, Type: compiler.TypeImage}).SetName("clash")
	store.Get(compiler.Handle{Index: 1, Type: compiler.TypeImage}).SetName("clash")

	_, err := compiler.GenerateSource(c, "generated")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestMustConnectReplaysRecordedDecisions(t *testing.T) {
	dev := newFakeDevice()
	c := compiler.New(dev)
	s := newScene()
	require.True(t, c.Rebuild(s.graph))

	// Replaying the recorded decisions against the live store re-applies
	// cleanly: that is exactly what generated code does.
	for _, l := range c.Links() {
		c.Store().MustConnect(l.Dst, l.Slot, l.Src)
	}
}
