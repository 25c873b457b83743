package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/fini03/vkduck/engine/compiler"
	"github.com/fini03/vkduck/engine/core"
)

// VulkanRenderer doubles as the compiler.CommandEncoder for the frame being
// recorded between BeginFrame and EndFrame.

func (vr *VulkanRenderer) currentCommandBuffer() *VulkanCommandBuffer {
	return vr.context.GraphicsCommandBuffers[vr.context.ImageIndex]
}

func (vr *VulkanRenderer) BeginRenderPass(rp, fb compiler.Resource, width, height uint32, clearColor [4]float32, hasDepth bool) {
	renderpass, ok := rp.(*VulkanRenderPass)
	if !ok {
		core.LogError("BeginRenderPass called with a non-vulkan render pass")
		return
	}
	framebuffer, ok := fb.(*VulkanFramebuffer)
	if !ok {
		core.LogError("BeginRenderPass called with a non-vulkan framebuffer")
		return
	}

	commandBuffer := vr.currentCommandBuffer()
	renderpass.RenderPassBegin(commandBuffer, framebuffer.Handle, width, height, clearColor)

	// Each pass renders at its own extent, so reset the dynamic state.
	viewport := vk.Viewport{
		X:        0.0,
		Y:        float32(height),
		Width:    float32(width),
		Height:   -float32(height),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	}
	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: vk.Extent2D{Width: width, Height: height},
	}
	vk.CmdSetViewport(commandBuffer.Handle, 0, 1, []vk.Viewport{viewport})
	vk.CmdSetScissor(commandBuffer.Handle, 0, 1, []vk.Rect2D{scissor})

	vr.activeRenderPass = renderpass
}

func (vr *VulkanRenderer) EndRenderPass() {
	if vr.activeRenderPass == nil {
		return
	}
	vr.activeRenderPass.RenderPassEnd(vr.currentCommandBuffer())
	vr.activeRenderPass = nil
}

func (vr *VulkanRenderer) BindPipeline(p compiler.Resource) {
	if pipeline, ok := p.(*VulkanPipeline); ok {
		pipeline.Bind(vr.currentCommandBuffer())
	}
}

func (vr *VulkanRenderer) BindDescriptorSets(layout compiler.Resource, firstSet uint32, sets []compiler.Resource) {
	pipelineLayout, ok := layout.(vk.PipelineLayout)
	if !ok {
		core.LogError("BindDescriptorSets called with a non-vulkan pipeline layout")
		return
	}
	descriptorSets := make([]vk.DescriptorSet, 0, len(sets))
	for _, s := range sets {
		if set, ok := s.(vk.DescriptorSet); ok {
			descriptorSets = append(descriptorSets, set)
		}
	}
	if len(descriptorSets) == 0 {
		return
	}
	vk.CmdBindDescriptorSets(
		vr.currentCommandBuffer().Handle,
		vk.PipelineBindPointGraphics,
		pipelineLayout,
		firstSet,
		uint32(len(descriptorSets)),
		descriptorSets,
		0, nil)
}

func (vr *VulkanRenderer) BindVertexBuffer(buf compiler.Resource) {
	if buffer, ok := buf.(*VulkanBuffer); ok {
		vk.CmdBindVertexBuffers(vr.currentCommandBuffer().Handle, 0, 1,
			[]vk.Buffer{buffer.Handle}, []vk.DeviceSize{0})
	}
}

func (vr *VulkanRenderer) BindIndexBuffer(buf compiler.Resource) {
	if buffer, ok := buf.(*VulkanBuffer); ok {
		vk.CmdBindIndexBuffer(vr.currentCommandBuffer().Handle, buffer.Handle, 0, vk.IndexTypeUint32)
	}
}

func (vr *VulkanRenderer) Draw(vertexCount, instanceCount uint32) {
	vk.CmdDraw(vr.currentCommandBuffer().Handle, vertexCount, instanceCount, 0, 0)
}

func (vr *VulkanRenderer) DrawIndexed(indexCount, instanceCount uint32) {
	vk.CmdDrawIndexed(vr.currentCommandBuffer().Handle, indexCount, instanceCount, 0, 0, 0)
}

// BlitToOutput stretches img onto the acquired swapchain image. The source
// is left in transfer-src layout by its final render pass; the swapchain
// image is kept in transfer-dst layout for the whole frame.
func (vr *VulkanRenderer) BlitToOutput(img compiler.Resource) {
	image, ok := img.(*VulkanImage)
	if !ok {
		core.LogError("BlitToOutput called with a non-vulkan image")
		return
	}

	commandBuffer := vr.currentCommandBuffer()

	region := vk.ImageBlit{
		SrcSubresource: vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		DstSubresource: vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	region.SrcOffsets[1] = vk.Offset3D{X: int32(image.Width), Y: int32(image.Height), Z: 1}
	region.DstOffsets[1] = vk.Offset3D{
		X: int32(vr.context.FramebufferWidth),
		Y: int32(vr.context.FramebufferHeight),
		Z: 1,
	}

	vk.CmdBlitImage(commandBuffer.Handle,
		image.Handle, vk.ImageLayoutTransferSrcOptimal,
		vr.context.Swapchain.Images[vr.context.ImageIndex], vk.ImageLayoutTransferDstOptimal,
		1, []vk.ImageBlit{region},
		vk.FilterLinear)
}
