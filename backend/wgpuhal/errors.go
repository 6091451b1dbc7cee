// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpuhal

import "errors"

var (
	// ErrNilProvider is returned when a nil device provider is passed.
	ErrNilProvider = errors.New("wgpuhal: nil device provider")

	// ErrNoHAL is returned when a provider does not expose hal.Device and hal.Queue.
	ErrNoHAL = errors.New("wgpuhal: provider does not expose HAL types")

	// ErrUnknownID is returned when an ID was never created or is already destroyed.
	ErrUnknownID = errors.New("wgpuhal: unknown id")

	// ErrNotBound is returned when a buffer or image is used before its
	// memory was bound.
	ErrNotBound = errors.New("wgpuhal: memory not bound")

	// ErrForeignAllocation is returned when an allocation did not come from
	// this package's Allocator.
	ErrForeignAllocation = errors.New("wgpuhal: allocation not created by wgpuhal.Allocator")

	// ErrPoolExhausted is returned when a descriptor pool has no room for
	// more sets.
	ErrPoolExhausted = errors.New("wgpuhal: descriptor pool exhausted")

	// ErrFreed is returned on access to an allocation after Free.
	ErrFreed = errors.New("wgpuhal: allocation freed")

	// ErrNoRenderPass is returned when draw state is recorded outside a render pass.
	ErrNoRenderPass = errors.New("wgpuhal: no active render pass")

	// ErrSwapchainDestroyed is returned by Acquire and Present after Destroy.
	ErrSwapchainDestroyed = errors.New("wgpuhal: swapchain destroyed")
)
