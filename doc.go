// Package renderq serializes GPU work from many goroutines onto a single
// render thread.
//
// # Overview
//
// A render actor is one goroutine, locked to its OS thread, that owns a
// low-level graphics device. Producers talk to it through a [Handle], a cheap
// copyable value that enqueues commands on a FIFO. The actor executes them in
// order: opening frames, recording binds and draws, submitting and
// presenting, updating binding tables and destroying resources.
//
// # Quick Start
//
//	h, err := renderq.New(dev, alloc, swapchain)
//	if err != nil {
//		return err
//	}
//	defer h.Wait()
//	defer h.Shutdown()
//
//	vb, err := h.CreateBuffer(renderq.BufferDescriptor{
//		Usage:    gputypes.BufferUsageVertex,
//		Location: renderq.MemoryLocationCPUToGPU,
//		Data:     vertices,
//	})
//
//	for running {
//		h.OpenFrame()
//		if err := h.Sync(); err != nil {
//			break // actor stopped
//		}
//		h.BindPipeline(pipeline)
//		h.BindVertexBuffer(vb.ID())
//		h.Draw(3)
//		h.SubmitFrame()
//	}
//
// # Frames in flight
//
// The actor keeps a ring of N frame slots (two by default, see
// [WithFramesInFlight]). Each slot has its own command buffer, semaphores and
// fence. OpenFrame waits for the slot's fence, so the CPU records at most N
// frames ahead of the GPU. After every OpenFrame the actor counts one token;
// [Handle.Sync] takes it. Counting never blocks the actor, so OpenFrames
// whose tokens are never taken do not stall Shutdown.
//
// # Resources
//
// Buffers and textures are created synchronously on the calling goroutine;
// only the memory allocator is shared, through an [AllocatorGuard]. Destroy
// enqueues a command, so destruction happens on the actor after every command
// queued before it. Destroy does not track GPU use: destroy a resource only
// after N frames have been submitted since its last use. Use
// [WithLeakTracker] to find resources that are never destroyed.
//
// # Binding tables
//
// A [Descriptor] holds one set instance per frame slot. Updates enqueued with
// [Handle.UpdateDescriptorSet] target the slot that is current when the actor
// executes them, so a frame never rewrites bindings the GPU is reading for
// another frame.
//
// # Backends
//
// The device is described by the [Device], [MemoryAllocator] and [Swapchain]
// interfaces. backend/wgpuhal implements them on top of the gogpu/wgpu HAL.
package renderq
