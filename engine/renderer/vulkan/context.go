package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/fini03/vkduck/engine/core"
)

// VulkanContext bundles the instance-level state every backend file reaches
// for. It lives as long as the renderer.
type VulkanContext struct {
	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks
	Surface   vk.Surface
	Device    *VulkanDevice
	Swapchain *VulkanSwapchain

	debugMessenger vk.DebugReportCallback

	// Current framebuffer size plus a generation counter. When the counter
	// runs ahead of FramebufferSizeLastGeneration the swapchain is stale and
	// gets recreated at the next frame boundary.
	FramebufferWidth              uint32
	FramebufferHeight             uint32
	FramebufferSizeGeneration     uint64
	FramebufferSizeLastGeneration uint64

	// Per-swapchain-image recording state.
	GraphicsCommandBuffers []*VulkanCommandBuffer

	ImageAvailableSemaphores []vk.Semaphore
	QueueCompleteSemaphores  []vk.Semaphore

	InFlightFenceCount uint32
	InFlightFences     []*VulkanFence
	// ImagesInFlight aliases entries of InFlightFences; it is indexed by
	// swapchain image rather than by frame.
	ImagesInFlight []*VulkanFence

	ImageIndex   uint32
	CurrentFrame uint32

	RecreatingSwapchain bool
}

// FindMemoryIndex picks a device memory type matching both the resource's
// type filter and the requested property flags, or -1 when none qualifies.
func (vc *VulkanContext) FindMemoryIndex(typeFilter, propertyFlags uint32) int32 {
	var memoryProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(vc.Device.PhysicalDevice, &memoryProperties)
	memoryProperties.Deref()

	for i := uint32(0); i < memoryProperties.MemoryTypeCount; i++ {
		memoryProperties.MemoryTypes[i].Deref()
		if (typeFilter&(1<<i)) != 0 && (uint32(memoryProperties.MemoryTypes[i].PropertyFlags)&propertyFlags) == propertyFlags {
			return int32(i)
		}
	}
	core.LogWarn("no suitable memory type for filter %#x flags %#x", typeFilter, propertyFlags)
	return -1
}
