package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/fini03/vkduck/engine/compiler"
	"github.com/fini03/vkduck/engine/core"
)

type VulkanRenderPass struct {
	Handle   vk.RenderPass
	HasDepth bool
	// Color attachment count, without the depth attachment.
	ColorCount int
}

func formatToVk(context *VulkanContext, format compiler.ImageFormat) vk.Format {
	switch format {
	case compiler.FormatB8G8R8A8Unorm:
		return vk.FormatB8g8r8a8Unorm
	case compiler.FormatR8G8B8A8Unorm:
		return vk.FormatR8g8b8a8Unorm
	case compiler.FormatD32Sfloat:
		// Fall back to whatever depth format the device supports.
		if context.Device.DepthFormat != vk.FormatUndefined {
			return context.Device.DepthFormat
		}
		return vk.FormatD32Sfloat
	default:
		return vk.FormatUndefined
	}
}

func loadOpToVk(op compiler.LoadOp) vk.AttachmentLoadOp {
	switch op {
	case compiler.LoadOpLoad:
		return vk.AttachmentLoadOpLoad
	case compiler.LoadOpDontCare:
		return vk.AttachmentLoadOpDontCare
	default:
		return vk.AttachmentLoadOpClear
	}
}

// RenderPassCreate builds a single-subpass render pass from the attachment
// list. Color attachments that are sampled later end in shader-read-only
// layout, others in transfer-src so they can be blitted out.
func RenderPassCreate(context *VulkanContext, cfg compiler.RenderPassConfig) (*VulkanRenderPass, error) {
	outRenderpass := &VulkanRenderPass{}

	attachmentDescriptions := make([]vk.AttachmentDescription, 0, len(cfg.Attachments))
	colorReferences := make([]vk.AttachmentReference, 0, len(cfg.Attachments))
	var depthReference *vk.AttachmentReference

	for i, att := range cfg.Attachments {
		desc := vk.AttachmentDescription{
			Format:         formatToVk(context, att.Format),
			Samples:        vk.SampleCount1Bit,
			LoadOp:         loadOpToVk(att.LoadOp),
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
		}
		if att.LoadOp == compiler.LoadOpLoad {
			if att.Format.IsDepth() {
				desc.InitialLayout = vk.ImageLayoutDepthStencilAttachmentOptimal
			} else {
				desc.InitialLayout = vk.ImageLayoutColorAttachmentOptimal
			}
		}

		if att.Format.IsDepth() {
			desc.StoreOp = vk.AttachmentStoreOpDontCare
			desc.FinalLayout = vk.ImageLayoutDepthStencilAttachmentOptimal
			depthReference = &vk.AttachmentReference{
				Attachment: uint32(i),
				Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
			}
			outRenderpass.HasDepth = true
		} else {
			if att.Sampled {
				desc.FinalLayout = vk.ImageLayoutShaderReadOnlyOptimal
			} else {
				desc.FinalLayout = vk.ImageLayoutTransferSrcOptimal
			}
			colorReferences = append(colorReferences, vk.AttachmentReference{
				Attachment: uint32(i),
				Layout:     vk.ImageLayoutColorAttachmentOptimal,
			})
		}
		attachmentDescriptions = append(attachmentDescriptions, desc)
	}
	outRenderpass.ColorCount = len(colorReferences)

	subpass := vk.SubpassDescription{
		PipelineBindPoint:       vk.PipelineBindPointGraphics,
		ColorAttachmentCount:    uint32(len(colorReferences)),
		PColorAttachments:       colorReferences,
		PDepthStencilAttachment: depthReference,
	}

	// One external dependency so a pass sampling a previous pass's output
	// waits for its fragment writes.
	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit | vk.PipelineStageFragmentShaderBit),
		SrcAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit | vk.PipelineStageFragmentShaderBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit | vk.AccessShaderReadBit),
	}

	renderpassCreateInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachmentDescriptions)),
		PAttachments:    attachmentDescriptions,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}

	var handle vk.RenderPass
	if res := vk.CreateRenderPass(context.Device.LogicalDevice, &renderpassCreateInfo, context.Allocator, &handle); !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("failed to create render pass: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	outRenderpass.Handle = handle
	return outRenderpass, nil
}

func (vr *VulkanRenderPass) RenderPassDestroy(context *VulkanContext) {
	if vr.Handle != nil {
		vk.DestroyRenderPass(context.Device.LogicalDevice, vr.Handle, context.Allocator)
		vr.Handle = nil
	}
}

// RenderPassBegin records the begin with one clear value per attachment.
func (vr *VulkanRenderPass) RenderPassBegin(commandBuffer *VulkanCommandBuffer, frameBuffer vk.Framebuffer, width, height uint32, clearColor [4]float32) {
	clearValues := make([]vk.ClearValue, 0, vr.ColorCount+1)
	for i := 0; i < vr.ColorCount; i++ {
		var cv vk.ClearValue
		cv.SetColor(clearColor[:])
		clearValues = append(clearValues, cv)
	}
	if vr.HasDepth {
		var cv vk.ClearValue
		cv.SetDepthStencil(1.0, 0)
		clearValues = append(clearValues, cv)
	}

	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  vr.Handle,
		Framebuffer: frameBuffer,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: vk.Extent2D{Width: width, Height: height},
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}

	vk.CmdBeginRenderPass(commandBuffer.Handle, &beginInfo, vk.SubpassContentsInline)
	commandBuffer.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
}

func (vr *VulkanRenderPass) RenderPassEnd(commandBuffer *VulkanCommandBuffer) {
	vk.CmdEndRenderPass(commandBuffer.Handle)
	commandBuffer.State = COMMAND_BUFFER_STATE_RECORDING
}
