// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderq

import "github.com/gogpu/gputypes"

// MemoryLocation selects the memory heap an allocation is placed in.
type MemoryLocation uint8

const (
	// MemoryLocationGPUOnly is device-local memory the CPU cannot map.
	MemoryLocationGPUOnly MemoryLocation = iota

	// MemoryLocationCPUToGPU is host-visible, host-coherent memory used for
	// data the CPU rewrites (vertex streams, uniforms, staging).
	MemoryLocationCPUToGPU
)

// String returns the string representation of MemoryLocation.
func (l MemoryLocation) String() string {
	switch l {
	case MemoryLocationGPUOnly:
		return "GPUOnly"
	case MemoryLocationCPUToGPU:
		return "CPUToGPU"
	default:
		return "Unknown"
	}
}

// HostVisible reports whether allocations at this location can be written
// and read by the CPU.
func (l MemoryLocation) HostVisible() bool {
	return l == MemoryLocationCPUToGPU
}

// MemoryRequirements is what a device object needs from its backing memory.
type MemoryRequirements struct {
	Size           uint64
	Alignment      uint64
	MemoryTypeBits uint32
}

// AllocationDescriptor describes a memory allocation request.
type AllocationDescriptor struct {
	// Label is an optional debug name.
	Label string

	Requirements MemoryRequirements
	Location     MemoryLocation

	// Linear is true for buffers and linear-tiled images.
	Linear bool
}

// Allocation is a block of device memory handed out by a MemoryAllocator.
//
// Write and Read only succeed for host-visible allocations. Implementations
// must allow Write and Read from any goroutine for distinct allocations.
type Allocation interface {
	// Size is the byte length of the allocation.
	Size() uint64

	// Write copies data into the allocation starting at offset.
	Write(offset uint64, data []byte) error

	// Read copies len(dst) bytes starting at offset into dst.
	Read(offset uint64, dst []byte) error
}

// MemoryAllocator is the GPU memory allocator produced by device bring-up.
// It is not required to be safe for concurrent use; renderq serializes every
// call through an AllocatorGuard.
type MemoryAllocator interface {
	Allocate(desc *AllocationDescriptor) (Allocation, error)
	Free(a Allocation) error
}

// BufferCreateInfo describes a device buffer object.
type BufferCreateInfo struct {
	Label string
	Size  uint64
	Usage gputypes.BufferUsage
}

// ImageCreateInfo describes a 2D sampled device image.
type ImageCreateInfo struct {
	Label         string
	Width, Height uint32
	Format        gputypes.TextureFormat
	Usage         gputypes.TextureUsage
}

// Viewport is a dynamic viewport rectangle with a depth range.
type Viewport struct {
	X, Y, Width, Height float32
	MinDepth, MaxDepth  float32
}

// Rect is a dynamic scissor rectangle.
type Rect struct {
	X, Y          int32
	Width, Height uint32
}

// ClearValues are the fixed clear values of the frame render pass.
type ClearValues struct {
	Color   gputypes.Color
	Depth   float32
	Stencil uint32
}

// DescriptorPoolSize is the number of descriptors of one type a pool holds.
type DescriptorPoolSize struct {
	Type  DescriptorType
	Count uint32
}

// DescriptorSetWrite is one resolved binding write against a set instance.
type DescriptorSetWrite struct {
	Set     DescriptorSetID
	Binding uint32
	Type    DescriptorType
	Value   DescriptorWrite
}

// ResourceDevice creates and destroys buffers, images, views and samplers.
// Object creation is called from producer goroutines and must be safe for
// concurrent use; destruction is only called from the render actor.
type ResourceDevice interface {
	CreateBuffer(info *BufferCreateInfo) (BufferID, MemoryRequirements, error)
	BindBufferMemory(id BufferID, a Allocation) error
	DestroyBuffer(id BufferID)

	CreateImage(info *ImageCreateInfo) (ImageID, MemoryRequirements, error)
	BindImageMemory(id ImageID, a Allocation) error
	// UploadImage copies tightly packed texel rows into the image and leaves
	// it ready for sampling.
	UploadImage(id ImageID, data []byte, width, height uint32) error
	CreateImageView(id ImageID, format gputypes.TextureFormat) (ImageViewID, error)
	CreateSampler(filter gputypes.FilterMode) (SamplerID, error)
	DestroyImage(id ImageID)
	DestroyImageView(id ImageViewID)
	DestroySampler(id SamplerID)
}

// SyncDevice owns fences and semaphores. Waits are unbounded.
type SyncDevice interface {
	CreateFence(signaled bool) (FenceID, error)
	WaitFence(id FenceID) error
	ResetFence(id FenceID) error
	DestroyFence(id FenceID)

	CreateSemaphore() (SemaphoreID, error)
	DestroySemaphore(id SemaphoreID)

	WaitIdle() error
}

// CommandRecorder records into command buffers and submits them. Only the
// render actor calls it.
type CommandRecorder interface {
	AllocateCommandBuffer() (CommandBufferID, error)
	FreeCommandBuffer(cb CommandBufferID)
	ResetCommandBuffer(cb CommandBufferID) error
	BeginCommandBuffer(cb CommandBufferID) error
	EndCommandBuffer(cb CommandBufferID) error

	BeginRenderPass(cb CommandBufferID, target FramebufferID, clear ClearValues)
	EndRenderPass(cb CommandBufferID)

	BindPipeline(cb CommandBufferID, pipeline PipelineID)
	SetViewport(cb CommandBufferID, v Viewport)
	SetScissor(cb CommandBufferID, r Rect)
	BindDescriptorSet(cb CommandBufferID, layout PipelineLayoutID, set DescriptorSetID)
	BindVertexBuffer(cb CommandBufferID, buf BufferID, offset uint64)
	BindIndexBuffer(cb CommandBufferID, buf BufferID, offset uint64, format gputypes.IndexFormat)
	Draw(cb CommandBufferID, vertexCount, instanceCount, firstVertex, firstInstance uint32)
	DrawIndexed(cb CommandBufferID, indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32)

	// Submit queues cb, waiting on wait and signalling signal and fence
	// once the GPU is done with it.
	Submit(cb CommandBufferID, wait, signal SemaphoreID, fence FenceID) error
}

// DescriptorDevice manages binding-table pools and set instances.
type DescriptorDevice interface {
	CreateDescriptorPool(sizes []DescriptorPoolSize, maxSets uint32) (DescriptorPoolID, error)
	AllocateDescriptorSets(pool DescriptorPoolID, layout DescriptorSetLayoutID, count int) ([]DescriptorSetID, error)
	UpdateDescriptorSets(writes []DescriptorSetWrite) error
	DestroyDescriptorPool(pool DescriptorPoolID)
}

// Device is the logical device, queue, command pool and render pass handed
// over by the bring-up collaborator.
type Device interface {
	ResourceDevice
	SyncDevice
	CommandRecorder
	DescriptorDevice
}

// Swapchain is the surface/swapchain collaborator. Both calls are indexed by
// frame slot and may block without bound.
type Swapchain interface {
	// Acquire returns the render target for the next presentable image and
	// arranges for signal to fire once it is available.
	Acquire(slot int, signal SemaphoreID) (FramebufferID, error)

	// Present queues target for display after wait fires.
	Present(slot int, target FramebufferID, wait SemaphoreID) error
}
