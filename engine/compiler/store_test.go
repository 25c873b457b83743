package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fini03/vkduck/engine/compiler"
)

func TestStorePlacesTypedHandles(t *testing.T) {
	s := compiler.NewStore()

	img := s.NewImage()
	assert.Equal(t, compiler.Handle{Index: 0, Type: compiler.TypeImage}, img.Handle())
	assert.Equal(t, "image_0", img.Name())

	img2 := s.NewImage()
	assert.Equal(t, uint32(1), img2.Handle().Index)

	cam := s.NewCamera()
	assert.Equal(t, compiler.Handle{Index: 0, Type: compiler.TypeCamera}, cam.Handle())

	assert.Equal(t, uint32(2), s.Count(compiler.TypeImage))
	assert.Equal(t, uint32(1), s.Count(compiler.TypeCamera))
	assert.Equal(t, uint32(0), s.Count(compiler.TypePipeline))
}

func TestStoreGetResolvesLiveHandlesOnly(t *testing.T) {
	s := compiler.NewStore()
	img := s.NewImage()

	assert.Equal(t, compiler.Primitive(img), s.Get(img.Handle()))
	assert.Nil(t, s.Get(compiler.Handle{Index: 1, Type: compiler.TypeImage}))
	assert.Nil(t, s.Get(compiler.NilHandle))
	assert.Nil(t, s.Get(compiler.Handle{Index: 0, Type: compiler.TypePresent}))
}

func TestStoreNodesWalkCanonicalOrder(t *testing.T) {
	s := compiler.NewStore()
	// Created in scrambled order on purpose.
	pipe := s.NewPipeline()
	img := s.NewImage()
	pool := s.NewDescriptorPool()
	pres := s.NewPresent()

	nodes := s.Nodes()
	require.Len(t, nodes, 4)
	assert.Equal(t, pool.Handle(), nodes[0].Handle())
	assert.Equal(t, img.Handle(), nodes[1].Handle())
	assert.Equal(t, pipe.Handle(), nodes[2].Handle())
	assert.Equal(t, pres.Handle(), nodes[3].Handle())
}

func TestStoreResetForgetsEverything(t *testing.T) {
	s := compiler.NewStore()
	s.NewImage()
	s.NewCamera()
	s.NewPresent()

	s.Reset()

	assert.Equal(t, compiler.StoreEmpty, s.State())
	for typ, n := range s.Counts() {
		assert.Zero(t, n, "type %s", typ)
	}
	assert.Empty(t, s.Nodes())
}

func TestStoreSlotReuseAfterReset(t *testing.T) {
	s := compiler.NewStore()
	img := s.NewImage()
	img.Width = 128
	img.Pixels = []byte{1, 2, 3}

	s.Reset()

	// The bump allocator reuses slot 0; the fresh primitive must carry
	// nothing from the previous generation.
	img2 := s.NewImage()
	assert.Equal(t, uint32(0), img2.Handle().Index)
	assert.Zero(t, img2.Width)
	assert.Nil(t, img2.Pixels)
}

func TestStoreValidateUniqueNames(t *testing.T) {
	s := compiler.NewStore()
	a := s.NewImage()
	b := s.NewImage()
	assert.NoError(t, s.ValidateUniqueNames())

	b.SetName(a.Name())
	err := s.ValidateUniqueNames()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")

	// Same name on different types is allowed.
	b.SetName("shared")
	s.NewCamera().SetName("shared")
	assert.NoError(t, s.ValidateUniqueNames())
}

func TestStoreDestroyReleasesInReverseOrder(t *testing.T) {
	dev := newFakeDevice()
	s := compiler.NewStore()

	img := s.NewImage()
	img.Width = 16
	img.Height = 16
	img.Format = compiler.FormatR8G8B8A8Unorm
	require.True(t, img.Create(s, dev))

	cam := s.NewCamera()
	require.True(t, cam.Create(s, dev))

	s.Destroy(dev)

	assert.Empty(t, dev.leaked())
}
