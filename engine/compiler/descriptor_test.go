package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fini03/vkduck/engine/compiler"
)

func imageArray(s *compiler.Store, name string, n int) compiler.Array {
	arr := compiler.Array{Name: name, Type: compiler.TypeImage}
	for i := 0; i < n; i++ {
		img := s.NewImage()
		img.Width = 8
		img.Height = 8
		img.Format = compiler.FormatR8G8B8A8Unorm
		img.Usage = compiler.ImageUsageTransferDst
		arr.Indices = append(arr.Indices, img.Handle().Index)
	}
	return arr
}

func uniformArray(s *compiler.Store, name string, n int) compiler.Array {
	arr := compiler.Array{Name: name, Type: compiler.TypeUniformBuffer}
	for i := 0; i < n; i++ {
		ub := s.NewUniformBuffer()
		ub.Data = make([]byte, 64)
		arr.Indices = append(arr.Indices, ub.Handle().Index)
	}
	return arr
}

func newSet(s *compiler.Store, expected ...compiler.ExpectedBinding) *compiler.DescriptorSet {
	pool := s.NewDescriptorPool()
	ds := s.NewDescriptorSet()
	ds.Pool = pool.Handle()
	ds.Expected = expected
	return ds
}

func TestDescriptorSetConnectRejectsUnknownSlot(t *testing.T) {
	s := compiler.NewStore()
	ds := newSet(s, compiler.ExpectedBinding{Slot: 0, Name: "camera", Kind: compiler.DescriptorUniformBuffer})

	assert.False(t, ds.Connect(uniformArray(s, "lights", 1), 3, s))
}

func TestDescriptorSetConnectRejectsTypeMismatch(t *testing.T) {
	s := compiler.NewStore()
	ds := newSet(s,
		compiler.ExpectedBinding{Slot: 0, Name: "camera", Kind: compiler.DescriptorUniformBuffer},
		compiler.ExpectedBinding{Slot: 1, Name: "albedo", Kind: compiler.DescriptorCombinedImageSampler},
	)

	assert.False(t, ds.Connect(imageArray(s, "tex", 1), 0, s))
	assert.False(t, ds.Connect(uniformArray(s, "lights", 1), 1, s))
	assert.False(t, ds.Connect(compiler.Array{Name: "empty", Type: compiler.TypeUniformBuffer}, 0, s))
}

func TestDescriptorSetAcceptsCameraAsUniform(t *testing.T) {
	s := compiler.NewStore()
	ds := newSet(s, compiler.ExpectedBinding{Slot: 0, Name: "camera", Kind: compiler.DescriptorUniformBuffer})

	cam := s.NewCamera()
	arr := compiler.Array{Name: "eye", Type: compiler.TypeCamera, Indices: []uint32{cam.Handle().Index}}
	assert.True(t, ds.Connect(arr, 0, s))
}

func TestDescriptorSetConnectMarksImagesSampled(t *testing.T) {
	s := compiler.NewStore()
	ds := newSet(s, compiler.ExpectedBinding{Slot: 0, Name: "albedo", Kind: compiler.DescriptorCombinedImageSampler})

	arr := imageArray(s, "tex", 2)
	require.True(t, ds.Connect(arr, 0, s))
	for i := 0; i < arr.Len(); i++ {
		img := s.ImageAt(arr.HandleAt(i))
		assert.NotZero(t, img.Usage&compiler.ImageUsageSampled)
	}
}

func TestDescriptorSetCardinalityMismatchStopsBeforeAllocation(t *testing.T) {
	dev := newFakeDevice()
	s := compiler.NewStore()
	ds := newSet(s,
		compiler.ExpectedBinding{Slot: 0, Name: "camera", Kind: compiler.DescriptorUniformBuffer},
		compiler.ExpectedBinding{Slot: 1, Name: "albedo", Kind: compiler.DescriptorCombinedImageSampler},
	)

	require.True(t, ds.Connect(uniformArray(s, "ubo", 1), 0, s))
	require.True(t, ds.Connect(imageArray(s, "tex", 2), 1, s))

	assert.False(t, ds.Create(s, dev))

	// The length check runs before any native object exists.
	assert.Zero(t, dev.created["pool"])
	assert.Zero(t, dev.created["layout"])
	assert.Zero(t, dev.allocSetCalls)
}

func TestDescriptorSetUnconnectedBindingFailsCreate(t *testing.T) {
	dev := newFakeDevice()
	s := compiler.NewStore()
	ds := newSet(s,
		compiler.ExpectedBinding{Slot: 0, Name: "camera", Kind: compiler.DescriptorUniformBuffer},
		compiler.ExpectedBinding{Slot: 1, Name: "albedo", Kind: compiler.DescriptorCombinedImageSampler},
	)

	require.True(t, ds.Connect(uniformArray(s, "ubo", 1), 0, s))

	assert.False(t, ds.Create(s, dev))
	assert.Zero(t, dev.allocSetCalls)
}

func TestDescriptorSetPerObjectAllocation(t *testing.T) {
	dev := newFakeDevice()
	s := compiler.NewStore()
	ds := newSet(s, compiler.ExpectedBinding{Slot: 0, Name: "albedo", Kind: compiler.DescriptorCombinedImageSampler})

	arr := imageArray(s, "tex", 3)
	require.True(t, ds.Connect(arr, 0, s))

	// The images need native handles before the set writes their views.
	for i := 0; i < arr.Len(); i++ {
		require.True(t, s.ImageAt(arr.HandleAt(i)).Create(s, dev))
	}

	require.True(t, ds.Create(s, dev))
	assert.Equal(t, uint32(3), ds.SetCount())
	assert.Equal(t, 1, dev.allocSetCalls)
	assert.Equal(t, 3, dev.created["sampler"]) // one per instance
	assert.Equal(t, 3, dev.setWrites)

	ds.Destroy(s, dev)
	s.Destroy(dev)
	assert.Empty(t, dev.leaked())
}
