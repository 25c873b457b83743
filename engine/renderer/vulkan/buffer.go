package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/fini03/vkduck/engine/core"
)

type VulkanBuffer struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory
	Size   uint64
	// Mapped is non-nil for host-visible buffers that stay persistently
	// mapped for per-frame writes.
	Mapped unsafe.Pointer
}

func BufferCreate(
	context *VulkanContext,
	size uint64,
	usage vk.BufferUsageFlags,
	memoryFlags vk.MemoryPropertyFlags,
	persistentMap bool,
) (*VulkanBuffer, error) {
	buffer := &VulkanBuffer{
		Size: size,
	}

	bufferCreateInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}

	var handle vk.Buffer
	if res := vk.CreateBuffer(context.Device.LogicalDevice, &bufferCreateInfo, context.Allocator, &handle); !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("failed to create buffer: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	buffer.Handle = handle

	var memoryRequirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(context.Device.LogicalDevice, buffer.Handle, &memoryRequirements)
	memoryRequirements.Deref()

	memoryType := context.FindMemoryIndex(memoryRequirements.MemoryTypeBits, uint32(memoryFlags))
	if memoryType == -1 {
		vk.DestroyBuffer(context.Device.LogicalDevice, buffer.Handle, context.Allocator)
		err := fmt.Errorf("required memory type not found, buffer not valid")
		core.LogError(err.Error())
		return nil, err
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memoryRequirements.Size,
		MemoryTypeIndex: uint32(memoryType),
	}
	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(context.Device.LogicalDevice, &allocateInfo, context.Allocator, &memory); !VulkanResultIsSuccess(res) {
		vk.DestroyBuffer(context.Device.LogicalDevice, buffer.Handle, context.Allocator)
		err := fmt.Errorf("failed to allocate buffer memory: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	buffer.Memory = memory

	if res := vk.BindBufferMemory(context.Device.LogicalDevice, buffer.Handle, buffer.Memory, 0); !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("failed to bind buffer memory: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	if persistentMap {
		var mapped unsafe.Pointer
		if res := vk.MapMemory(context.Device.LogicalDevice, buffer.Memory, 0, vk.DeviceSize(size), 0, &mapped); !VulkanResultIsSuccess(res) {
			err := fmt.Errorf("failed to map buffer memory: %s", VulkanResultString(res))
			core.LogError(err.Error())
			return nil, err
		}
		buffer.Mapped = mapped
	}

	return buffer, nil
}

func (vb *VulkanBuffer) BufferDestroy(context *VulkanContext) {
	if vb.Mapped != nil {
		vk.UnmapMemory(context.Device.LogicalDevice, vb.Memory)
		vb.Mapped = nil
	}
	if vb.Memory != nil {
		vk.FreeMemory(context.Device.LogicalDevice, vb.Memory, context.Allocator)
		vb.Memory = nil
	}
	if vb.Handle != nil {
		vk.DestroyBuffer(context.Device.LogicalDevice, vb.Handle, context.Allocator)
		vb.Handle = nil
	}
	vb.Size = 0
}

// BufferWrite copies data into persistently mapped memory. The buffer must
// have been created with persistentMap.
func (vb *VulkanBuffer) BufferWrite(data []byte) {
	if vb.Mapped == nil {
		core.LogError("BufferWrite called on a buffer without persistent mapping")
		return
	}
	if n := vk.Memcopy(vb.Mapped, data); n != len(data) {
		core.LogWarn("buffer write copied %d of %d bytes", n, len(data))
	}
}

// TransferBatch accumulates staging copies so one command buffer submission
// and one fence wait can cover a whole rebuild's uploads.
type TransferBatch struct {
	context       *VulkanContext
	commandBuffer *VulkanCommandBuffer
	staging       []*VulkanBuffer
}

func BeginTransferBatch(context *VulkanContext) (*TransferBatch, error) {
	cb, err := AllocateAndBeginSingleUse(context, context.Device.GraphicsCommandPool)
	if err != nil {
		return nil, err
	}
	return &TransferBatch{
		context:       context,
		commandBuffer: cb,
	}, nil
}

func (tb *TransferBatch) stage(data []byte) (*VulkanBuffer, error) {
	staging, err := BufferCreate(
		tb.context,
		uint64(len(data)),
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit),
		true,
	)
	if err != nil {
		return nil, err
	}
	staging.BufferWrite(data)
	tb.staging = append(tb.staging, staging)
	return staging, nil
}

// UploadBuffer records a staging copy of data into dst.
func (tb *TransferBatch) UploadBuffer(dst *VulkanBuffer, data []byte) error {
	staging, err := tb.stage(data)
	if err != nil {
		return err
	}
	region := vk.BufferCopy{
		SrcOffset: 0,
		DstOffset: 0,
		Size:      vk.DeviceSize(len(data)),
	}
	vk.CmdCopyBuffer(tb.commandBuffer.Handle, staging.Handle, dst.Handle, 1, []vk.BufferCopy{region})
	return nil
}

// UploadImage records a staging copy of pixels into dst, including the
// layout transitions around the copy.
func (tb *TransferBatch) UploadImage(dst *VulkanImage, pixels []byte) error {
	staging, err := tb.stage(pixels)
	if err != nil {
		return err
	}
	if err := dst.ImageTransitionLayout(tb.context, tb.commandBuffer, vk.ImageLayoutTransferDstOptimal); err != nil {
		return err
	}
	dst.ImageCopyFromBuffer(tb.commandBuffer, staging.Handle)
	return dst.ImageTransitionLayout(tb.context, tb.commandBuffer, vk.ImageLayoutShaderReadOnlyOptimal)
}

// Submit ends the batch, waits for the transfer to complete and frees the
// staging buffers.
func (tb *TransferBatch) Submit() error {
	err := tb.commandBuffer.EndSingleUse(tb.context, tb.context.Device.GraphicsCommandPool, tb.context.Device.GraphicsQueue)
	for _, staging := range tb.staging {
		staging.BufferDestroy(tb.context)
	}
	tb.staging = nil
	return err
}
