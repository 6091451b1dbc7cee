// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package wgpuhal runs renderq on the gogpu/wgpu hardware abstraction layer.
//
// Device implements renderq.Device on top of a hal.Device and hal.Queue,
// Allocator implements renderq.MemoryAllocator, and OffscreenSwapchain
// implements renderq.Swapchain with a ring of render target textures.
//
// # Quick Start
//
//	dev := wgpuhal.New(halDevice, halQueue)
//	sc, err := wgpuhal.NewOffscreenSwapchain(dev, wgpuhal.SwapchainConfig{
//		Width: 800, Height: 600,
//	})
//	if err != nil {
//		return err
//	}
//	h, err := renderq.New(dev, wgpuhal.NewAllocator(), sc)
//
// Pipelines are built with the HAL directly and registered:
//
//	layout, _ := dev.CreateSetLayout("scene", bindings)
//	pipeline := dev.RegisterPipeline(halPipeline)
//
// # Sharing a device
//
// NewFromProvider accepts any gpucontext.DeviceProvider that also exposes
// HalDevice() any and HalQueue() any, such as a gogpu application.
//
// # Mapping
//
// WebGPU has no explicit memory, semaphores or descriptor pools. Buffers
// and textures are created when their memory is bound. Host-visible
// allocations keep a CPU mirror and forward 4-byte aligned writes with
// WriteBuffer. A fence remembers the submission index of its last Submit
// and is signaled once the queue reports that index completed. Semaphores carry no HAL object
// because a single queue executes in submission order. A descriptor set is
// a bind group rebuilt whenever its bindings change; a combined image
// sampler occupies two WebGPU bindings, the texture view then the sampler.
package wgpuhal
