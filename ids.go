// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderq

// Device object identifiers.
//
// Backends hand out IDs and keep their native objects in lookup tables, so
// commands only ever carry plain integers and can cross goroutines freely.
// The zero value of every ID is invalid.
type (
	// BufferID identifies a device buffer object.
	BufferID uint64

	// ImageID identifies a device image object.
	ImageID uint64

	// ImageViewID identifies a view onto an image.
	ImageViewID uint64

	// SamplerID identifies a sampler object.
	SamplerID uint64

	// PipelineID identifies a graphics pipeline built by the pipeline collaborator.
	PipelineID uint64

	// PipelineLayoutID identifies a pipeline layout.
	PipelineLayoutID uint64

	// DescriptorSetLayoutID identifies a binding-table layout.
	DescriptorSetLayoutID uint64

	// DescriptorPoolID identifies a binding-table pool.
	DescriptorPoolID uint64

	// DescriptorSetID identifies a binding-table instance.
	DescriptorSetID uint64

	// CommandBufferID identifies a command recorder.
	CommandBufferID uint64

	// SemaphoreID identifies a GPU-side signal.
	SemaphoreID uint64

	// FenceID identifies a CPU-observable fence.
	FenceID uint64

	// FramebufferID identifies a presentable render target.
	FramebufferID uint64
)

// InvalidID is the zero ID shared by every identifier type.
const InvalidID = 0
