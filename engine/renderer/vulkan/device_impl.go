package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/fini03/vkduck/engine/compiler"
	"github.com/fini03/vkduck/engine/core"
)

// VulkanRenderer satisfies compiler.Device. Resources handed to the
// compiler are the backend's own structs or raw vk handles; the compiler
// never looks inside them.

func (vr *VulkanRenderer) OutputSize() (uint32, uint32) {
	return vr.context.FramebufferWidth, vr.context.FramebufferHeight
}

// BeginUploads opens a transfer batch so every upload until FlushUploads
// shares one command buffer submission and one fence wait.
func (vr *VulkanRenderer) BeginUploads() error {
	if vr.batch != nil {
		return fmt.Errorf("upload batch already open")
	}
	batch, err := BeginTransferBatch(vr.context)
	if err != nil {
		return err
	}
	vr.batch = batch
	return nil
}

func (vr *VulkanRenderer) FlushUploads() error {
	if vr.batch == nil {
		return nil
	}
	batch := vr.batch
	vr.batch = nil
	return batch.Submit()
}

func imageUsageToVk(usage compiler.ImageUsage) vk.ImageUsageFlags {
	var flags vk.ImageUsageFlags
	if usage&compiler.ImageUsageColorAttachment != 0 {
		flags |= vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit)
	}
	if usage&compiler.ImageUsageDepthStencilAttachment != 0 {
		flags |= vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit)
	}
	if usage&compiler.ImageUsageSampled != 0 {
		flags |= vk.ImageUsageFlags(vk.ImageUsageSampledBit)
	}
	if usage&compiler.ImageUsageTransferSrc != 0 {
		flags |= vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit)
	}
	if usage&compiler.ImageUsageTransferDst != 0 {
		flags |= vk.ImageUsageFlags(vk.ImageUsageTransferDstBit)
	}
	return flags
}

func (vr *VulkanRenderer) CreateImage(cfg compiler.ImageConfig) (compiler.Resource, error) {
	aspect := vk.ImageAspectFlags(vk.ImageAspectColorBit)
	if cfg.Format.IsDepth() {
		aspect = vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	}

	var image *VulkanImage
	err := lockPool.SafeCall(ResourceManagement, func() error {
		var err error
		image, err = ImageCreate(
			vr.context,
			cfg.Width, cfg.Height,
			formatToVk(vr.context, cfg.Format),
			vk.ImageTilingOptimal,
			imageUsageToVk(cfg.Usage),
			vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
			true,
			aspect,
		)
		return err
	})
	if err != nil {
		return nil, err
	}
	return image, nil
}

func (vr *VulkanRenderer) DestroyImage(img compiler.Resource) {
	if image, ok := img.(*VulkanImage); ok {
		image.ImageDestroy(vr.context)
	}
}

func (vr *VulkanRenderer) UploadImage(img compiler.Resource, pixels []byte) error {
	image, ok := img.(*VulkanImage)
	if !ok {
		return fmt.Errorf("UploadImage called with a non-vulkan image")
	}
	if vr.batch != nil {
		return vr.batch.UploadImage(image, pixels)
	}
	batch, err := BeginTransferBatch(vr.context)
	if err != nil {
		return err
	}
	if err := batch.UploadImage(image, pixels); err != nil {
		return err
	}
	return batch.Submit()
}

func (vr *VulkanRenderer) ImageView(img compiler.Resource) compiler.Resource {
	if image, ok := img.(*VulkanImage); ok {
		return image.View
	}
	return nil
}

func (vr *VulkanRenderer) CreateSampler() (compiler.Resource, error) {
	samplerCreateInfo := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               vk.FilterLinear,
		MinFilter:               vk.FilterLinear,
		AddressModeU:            vk.SamplerAddressModeRepeat,
		AddressModeV:            vk.SamplerAddressModeRepeat,
		AddressModeW:            vk.SamplerAddressModeRepeat,
		AnisotropyEnable:        vk.False,
		BorderColor:             vk.BorderColorIntOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		MipmapMode:              vk.SamplerMipmapModeLinear,
	}
	if vr.context.Device.Features.SamplerAnisotropy == vk.True {
		samplerCreateInfo.AnisotropyEnable = vk.True
		samplerCreateInfo.MaxAnisotropy = 16
	}

	var sampler vk.Sampler
	if res := vk.CreateSampler(vr.context.Device.LogicalDevice, &samplerCreateInfo, vr.context.Allocator, &sampler); !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("failed to create sampler: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	return sampler, nil
}

func (vr *VulkanRenderer) DestroySampler(s compiler.Resource) {
	if sampler, ok := s.(vk.Sampler); ok {
		vk.DestroySampler(vr.context.Device.LogicalDevice, sampler, vr.context.Allocator)
	}
}

func (vr *VulkanRenderer) CreateBuffer(size uint64, usage compiler.BufferUsage) (compiler.Resource, error) {
	var buffer *VulkanBuffer
	err := lockPool.SafeCall(ResourceManagement, func() error {
		var err error
		switch usage {
		case compiler.BufferUsageUniform:
			// Uniform buffers stay host visible and persistently mapped so
			// dynamic primitives can write every frame.
			buffer, err = BufferCreate(
				vr.context,
				size,
				vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit),
				vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit),
				true,
			)
		case compiler.BufferUsageVertex:
			buffer, err = BufferCreate(
				vr.context,
				size,
				vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit|vk.BufferUsageTransferDstBit),
				vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
				false,
			)
		case compiler.BufferUsageIndex:
			buffer, err = BufferCreate(
				vr.context,
				size,
				vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit|vk.BufferUsageTransferDstBit),
				vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
				false,
			)
		default:
			err = fmt.Errorf("unknown buffer usage %d", usage)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return buffer, nil
}

func (vr *VulkanRenderer) DestroyBuffer(buf compiler.Resource) {
	if buffer, ok := buf.(*VulkanBuffer); ok {
		buffer.BufferDestroy(vr.context)
	}
}

func (vr *VulkanRenderer) UploadBuffer(buf compiler.Resource, data []byte) error {
	buffer, ok := buf.(*VulkanBuffer)
	if !ok {
		return fmt.Errorf("UploadBuffer called with a non-vulkan buffer")
	}
	// Host-visible buffers skip the staging round trip.
	if buffer.Mapped != nil {
		buffer.BufferWrite(data)
		return nil
	}
	if vr.batch != nil {
		return vr.batch.UploadBuffer(buffer, data)
	}
	batch, err := BeginTransferBatch(vr.context)
	if err != nil {
		return err
	}
	if err := batch.UploadBuffer(buffer, data); err != nil {
		return err
	}
	return batch.Submit()
}

func (vr *VulkanRenderer) WriteBuffer(buf compiler.Resource, data []byte) {
	if buffer, ok := buf.(*VulkanBuffer); ok {
		buffer.BufferWrite(data)
	}
}

func (vr *VulkanRenderer) CreateShaderModule(code []uint32) (compiler.Resource, error) {
	if len(code) == 0 {
		return nil, fmt.Errorf("shader module code is empty")
	}
	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code) * 4),
		PCode:    code,
	}

	var module vk.ShaderModule
	if res := vk.CreateShaderModule(vr.context.Device.LogicalDevice, &createInfo, vr.context.Allocator, &module); !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("failed to create shader module: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	return module, nil
}

func (vr *VulkanRenderer) DestroyShaderModule(m compiler.Resource) {
	if module, ok := m.(vk.ShaderModule); ok {
		vk.DestroyShaderModule(vr.context.Device.LogicalDevice, module, vr.context.Allocator)
	}
}

func (vr *VulkanRenderer) CreateRenderPass(cfg compiler.RenderPassConfig) (compiler.Resource, error) {
	return RenderPassCreate(vr.context, cfg)
}

func (vr *VulkanRenderer) DestroyRenderPass(rp compiler.Resource) {
	if renderpass, ok := rp.(*VulkanRenderPass); ok {
		renderpass.RenderPassDestroy(vr.context)
	}
}

func (vr *VulkanRenderer) CreateFramebuffer(rp compiler.Resource, attachments []compiler.Resource, width, height uint32) (compiler.Resource, error) {
	renderpass, ok := rp.(*VulkanRenderPass)
	if !ok {
		return nil, fmt.Errorf("CreateFramebuffer called with a non-vulkan render pass")
	}
	views := make([]vk.ImageView, len(attachments))
	for i, att := range attachments {
		view, ok := att.(vk.ImageView)
		if !ok {
			return nil, fmt.Errorf("framebuffer attachment %d is not an image view", i)
		}
		views[i] = view
	}
	return FramebufferCreate(vr.context, renderpass, width, height, views)
}

func (vr *VulkanRenderer) DestroyFramebuffer(fb compiler.Resource) {
	if framebuffer, ok := fb.(*VulkanFramebuffer); ok {
		framebuffer.Destroy(vr.context)
	}
}

func descriptorKindToVk(kind compiler.DescriptorKind) vk.DescriptorType {
	if kind == compiler.DescriptorCombinedImageSampler {
		return vk.DescriptorTypeCombinedImageSampler
	}
	return vk.DescriptorTypeUniformBuffer
}

func (vr *VulkanRenderer) CreateDescriptorPool(maxSets uint32) (compiler.Resource, error) {
	poolSizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: maxSets * 4},
		{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: maxSets * 4},
	}
	poolCreateInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
		MaxSets:       maxSets,
	}

	var pool vk.DescriptorPool
	if res := vk.CreateDescriptorPool(vr.context.Device.LogicalDevice, &poolCreateInfo, vr.context.Allocator, &pool); !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("failed to create descriptor pool: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	return pool, nil
}

func (vr *VulkanRenderer) DestroyDescriptorPool(p compiler.Resource) {
	if pool, ok := p.(vk.DescriptorPool); ok {
		vk.DestroyDescriptorPool(vr.context.Device.LogicalDevice, pool, vr.context.Allocator)
	}
}

func (vr *VulkanRenderer) CreateDescriptorSetLayout(bindings []compiler.LayoutBinding) (compiler.Resource, error) {
	layoutBindings := make([]vk.DescriptorSetLayoutBinding, len(bindings))
	for i, b := range bindings {
		count := b.Count
		if count == 0 {
			count = 1
		}
		layoutBindings[i] = vk.DescriptorSetLayoutBinding{
			Binding:         b.Binding,
			DescriptorType:  descriptorKindToVk(b.Kind),
			DescriptorCount: count,
			StageFlags:      vk.ShaderStageFlags(stageFlagsToVk(b.Stages)),
		}
	}

	layoutCreateInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(layoutBindings)),
		PBindings:    layoutBindings,
	}

	var layout vk.DescriptorSetLayout
	if res := vk.CreateDescriptorSetLayout(vr.context.Device.LogicalDevice, &layoutCreateInfo, vr.context.Allocator, &layout); !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("failed to create descriptor set layout: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	return layout, nil
}

func (vr *VulkanRenderer) DestroyDescriptorSetLayout(l compiler.Resource) {
	if layout, ok := l.(vk.DescriptorSetLayout); ok {
		vk.DestroyDescriptorSetLayout(vr.context.Device.LogicalDevice, layout, vr.context.Allocator)
	}
}

func (vr *VulkanRenderer) AllocateDescriptorSets(pool, layout compiler.Resource, count uint32) ([]compiler.Resource, error) {
	descriptorPool, ok := pool.(vk.DescriptorPool)
	if !ok {
		return nil, fmt.Errorf("AllocateDescriptorSets called with a non-vulkan pool")
	}
	setLayout, ok := layout.(vk.DescriptorSetLayout)
	if !ok {
		return nil, fmt.Errorf("AllocateDescriptorSets called with a non-vulkan layout")
	}

	layouts := make([]vk.DescriptorSetLayout, count)
	for i := range layouts {
		layouts[i] = setLayout
	}

	allocateInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     descriptorPool,
		DescriptorSetCount: count,
		PSetLayouts:        layouts,
	}

	sets := make([]vk.DescriptorSet, count)
	if res := vk.AllocateDescriptorSets(vr.context.Device.LogicalDevice, &allocateInfo, &sets[0]); !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("failed to allocate descriptor sets: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	resources := make([]compiler.Resource, count)
	for i := range sets {
		resources[i] = sets[i]
	}
	return resources, nil
}

func (vr *VulkanRenderer) UpdateDescriptorSet(set compiler.Resource, writes []compiler.DescriptorWrite) {
	descriptorSet, ok := set.(vk.DescriptorSet)
	if !ok {
		core.LogError("UpdateDescriptorSet called with a non-vulkan set")
		return
	}

	writeSets := make([]vk.WriteDescriptorSet, 0, len(writes))
	for _, write := range writes {
		writeSet := vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          descriptorSet,
			DstBinding:      write.Binding,
			DstArrayElement: 0,
			DescriptorType:  descriptorKindToVk(write.Kind),
			DescriptorCount: 1,
		}
		switch write.Kind {
		case compiler.DescriptorCombinedImageSampler:
			image, ok := write.Image.(*VulkanImage)
			if !ok {
				core.LogError("descriptor write at binding %d carries no image", write.Binding)
				continue
			}
			sampler, ok := write.Sampler.(vk.Sampler)
			if !ok {
				core.LogError("descriptor write at binding %d carries no sampler", write.Binding)
				continue
			}
			writeSet.PImageInfo = []vk.DescriptorImageInfo{{
				Sampler:     sampler,
				ImageView:   image.View,
				ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
			}}
		default:
			buffer, ok := write.Buffer.(*VulkanBuffer)
			if !ok {
				core.LogError("descriptor write at binding %d carries no buffer", write.Binding)
				continue
			}
			writeSet.PBufferInfo = []vk.DescriptorBufferInfo{{
				Buffer: buffer.Handle,
				Offset: 0,
				Range:  vk.DeviceSize(write.BufferSize),
			}}
		}
		writeSets = append(writeSets, writeSet)
	}

	if len(writeSets) > 0 {
		vk.UpdateDescriptorSets(vr.context.Device.LogicalDevice, uint32(len(writeSets)), writeSets, 0, nil)
	}
}

func (vr *VulkanRenderer) CreatePipeline(cfg compiler.PipelineConfig) (compiler.Resource, compiler.Resource, error) {
	var pipeline *VulkanPipeline
	err := lockPool.SafeCall(PipelineManagement, func() error {
		var err error
		pipeline, err = NewGraphicsPipeline(vr.context, cfg)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return pipeline, pipeline.PipelineLayout, nil
}

func (vr *VulkanRenderer) DestroyPipeline(pipeline, layout compiler.Resource) {
	// The layout is owned by the pipeline wrapper and destroyed with it.
	if p, ok := pipeline.(*VulkanPipeline); ok {
		p.Destroy(vr.context)
	}
}

func (vr *VulkanRenderer) WaitIdle() {
	if vr.context.Device.LogicalDevice != nil {
		vk.DeviceWaitIdle(vr.context.Device.LogicalDevice)
	}
}
