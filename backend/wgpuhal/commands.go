// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpuhal

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/renderq"
	"github.com/gogpu/wgpu/hal"
)

// fenceEntry is a binary fence emulated on queue submission indexes.
// submitted is the index of the last submission signalling it; zero means
// nothing is pending.
type fenceEntry struct {
	submitted uint64
}

type cmdEntry struct {
	label   string
	encoder hal.CommandEncoder
	pass    hal.RenderPassEncoder
	buf     hal.CommandBuffer
}

// === Fences and semaphores ===

// CreateFence creates a fence. A fence with no pending submission is
// signaled, so signaled only affects logging.
func (d *Device) CreateFence(signaled bool) (renderq.FenceID, error) {
	id := renderq.FenceID(d.newID())
	d.mu.Lock()
	d.fences[id] = &fenceEntry{}
	d.mu.Unlock()
	renderq.Logger().Debug("wgpuhal: fence created", "fence", id, "signaled", signaled)
	return id, nil
}

// WaitFence blocks until the last submission signalling id completes. The
// HAL has no per-submission wait, so an unfinished submission waits for the
// whole device.
func (d *Device) WaitFence(id renderq.FenceID) error {
	d.mu.RLock()
	e, ok := d.fences[id]
	var index uint64
	if ok {
		index = e.submitted
	}
	d.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: fence %d", ErrUnknownID, id)
	}
	if index == 0 || d.queue.PollCompleted() >= index {
		return nil
	}
	renderq.Logger().Debug("wgpuhal: waiting for submission", "fence", id, "index", index)
	if err := d.device.WaitIdle(); err != nil {
		return fmt.Errorf("wgpuhal: wait fence %d: %w", id, err)
	}
	return nil
}

// ResetFence is a no-op; the next Submit records a new index.
func (d *Device) ResetFence(id renderq.FenceID) error {
	d.mu.RLock()
	_, ok := d.fences[id]
	d.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: fence %d", ErrUnknownID, id)
	}
	return nil
}

// DestroyFence forgets a fence.
func (d *Device) DestroyFence(id renderq.FenceID) {
	d.mu.Lock()
	delete(d.fences, id)
	d.mu.Unlock()
}

// CreateSemaphore returns an ordering token. Work on the single HAL queue
// executes in submission order, so no HAL object is needed.
func (d *Device) CreateSemaphore() (renderq.SemaphoreID, error) {
	id := renderq.SemaphoreID(d.newID())
	d.mu.Lock()
	d.semaphores[id] = struct{}{}
	d.mu.Unlock()
	return id, nil
}

// DestroySemaphore forgets a semaphore.
func (d *Device) DestroySemaphore(id renderq.SemaphoreID) {
	d.mu.Lock()
	delete(d.semaphores, id)
	d.mu.Unlock()
}

// WaitIdle waits for all submitted work.
func (d *Device) WaitIdle() error {
	if err := d.device.WaitIdle(); err != nil {
		return fmt.Errorf("wgpuhal: wait idle: %w", err)
	}
	return nil
}

// === Command buffers ===

// AllocateCommandBuffer creates an empty command buffer slot.
func (d *Device) AllocateCommandBuffer() (renderq.CommandBufferID, error) {
	id := renderq.CommandBufferID(d.newID())
	d.mu.Lock()
	d.cmds[id] = &cmdEntry{label: fmt.Sprintf("renderq_cmd_%d", id)}
	d.mu.Unlock()
	return id, nil
}

// FreeCommandBuffer releases the slot and any recorded HAL command buffer.
func (d *Device) FreeCommandBuffer(cb renderq.CommandBufferID) {
	d.mu.Lock()
	e, ok := d.cmds[cb]
	delete(d.cmds, cb)
	d.mu.Unlock()
	if ok {
		d.reset(e)
	}
}

func (d *Device) reset(e *cmdEntry) {
	if e.pass != nil {
		e.pass.End()
		e.pass = nil
	}
	if e.encoder != nil {
		e.encoder.DiscardEncoding()
		e.encoder = nil
	}
	if e.buf != nil {
		d.device.FreeCommandBuffer(e.buf)
		e.buf = nil
	}
}

func (d *Device) cmd(cb renderq.CommandBufferID) (*cmdEntry, error) {
	d.mu.RLock()
	e, ok := d.cmds[cb]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: command buffer %d", ErrUnknownID, cb)
	}
	return e, nil
}

// ResetCommandBuffer frees the previously recorded HAL command buffer.
// The fence guarding it must have been waited on.
func (d *Device) ResetCommandBuffer(cb renderq.CommandBufferID) error {
	e, err := d.cmd(cb)
	if err != nil {
		return err
	}
	d.reset(e)
	return nil
}

// BeginCommandBuffer starts a new command encoder for cb.
func (d *Device) BeginCommandBuffer(cb renderq.CommandBufferID) error {
	e, err := d.cmd(cb)
	if err != nil {
		return err
	}
	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: e.label})
	if err != nil {
		return fmt.Errorf("wgpuhal: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(e.label); err != nil {
		return fmt.Errorf("wgpuhal: begin encoding: %w", err)
	}
	e.encoder = encoder
	return nil
}

// EndCommandBuffer finishes encoding cb.
func (d *Device) EndCommandBuffer(cb renderq.CommandBufferID) error {
	e, err := d.cmd(cb)
	if err != nil {
		return err
	}
	if e.encoder == nil {
		return fmt.Errorf("wgpuhal: end command buffer %d: not recording", cb)
	}
	buf, err := e.encoder.EndEncoding()
	e.encoder = nil
	if err != nil {
		return fmt.Errorf("wgpuhal: end encoding: %w", err)
	}
	e.buf = buf
	return nil
}

// BeginRenderPass starts a single-attachment pass on target that clears to
// clear.Color. Depth and stencil values are unused; frame targets carry no
// depth attachment.
func (d *Device) BeginRenderPass(cb renderq.CommandBufferID, target renderq.FramebufferID, clear renderq.ClearValues) {
	e, err := d.cmd(cb)
	if err != nil || e.encoder == nil {
		renderq.Logger().Warn("wgpuhal: begin render pass without encoder", "cmd", cb)
		return
	}
	d.mu.RLock()
	view, ok := d.framebuffers[target]
	d.mu.RUnlock()
	if !ok {
		renderq.Logger().Warn("wgpuhal: unknown framebuffer", "framebuffer", target)
		return
	}
	e.pass = e.encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: e.label + "_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: clear.Color,
		}},
	})
}

// EndRenderPass ends the active pass of cb.
func (d *Device) EndRenderPass(cb renderq.CommandBufferID) {
	e, err := d.cmd(cb)
	if err != nil || e.pass == nil {
		return
	}
	e.pass.End()
	e.pass = nil
}

// pass returns the active render pass of cb, logging when there is none.
func (d *Device) pass(cb renderq.CommandBufferID, op string) hal.RenderPassEncoder {
	e, err := d.cmd(cb)
	if err != nil || e.pass == nil {
		renderq.Logger().Warn("wgpuhal: command outside render pass", "op", op, "cmd", cb, "err", ErrNoRenderPass)
		return nil
	}
	return e.pass
}

// BindPipeline sets a registered render pipeline.
func (d *Device) BindPipeline(cb renderq.CommandBufferID, pipeline renderq.PipelineID) {
	rp := d.pass(cb, "BindPipeline")
	if rp == nil {
		return
	}
	d.mu.RLock()
	p, ok := d.pipelines[pipeline]
	d.mu.RUnlock()
	if !ok {
		renderq.Logger().Warn("wgpuhal: unknown pipeline", "pipeline", pipeline)
		return
	}
	rp.SetPipeline(p)
}

// SetViewport sets the dynamic viewport.
func (d *Device) SetViewport(cb renderq.CommandBufferID, v renderq.Viewport) {
	if rp := d.pass(cb, "SetViewport"); rp != nil {
		rp.SetViewport(v.X, v.Y, v.Width, v.Height, v.MinDepth, v.MaxDepth)
	}
}

// SetScissor sets the dynamic scissor. Negative offsets clamp to zero.
func (d *Device) SetScissor(cb renderq.CommandBufferID, r renderq.Rect) {
	rp := d.pass(cb, "SetScissor")
	if rp == nil {
		return
	}
	x, y := max(r.X, 0), max(r.Y, 0)
	rp.SetScissorRect(uint32(x), uint32(y), r.Width, r.Height)
}

// BindDescriptorSet binds the set's bind group at group index 0. The
// pipeline layout is implied by the bound pipeline.
func (d *Device) BindDescriptorSet(cb renderq.CommandBufferID, _ renderq.PipelineLayoutID, set renderq.DescriptorSetID) {
	rp := d.pass(cb, "BindDescriptorSet")
	if rp == nil {
		return
	}
	d.mu.RLock()
	s, ok := d.sets[set]
	var group hal.BindGroup
	if ok {
		group = s.group
	}
	d.mu.RUnlock()
	if group == nil {
		renderq.Logger().Warn("wgpuhal: bind of incomplete descriptor set", "set", set)
		return
	}
	rp.SetBindGroup(0, group, nil)
}

// BindVertexBuffer binds buf to vertex slot 0.
func (d *Device) BindVertexBuffer(cb renderq.CommandBufferID, buf renderq.BufferID, offset uint64) {
	rp := d.pass(cb, "BindVertexBuffer")
	if rp == nil {
		return
	}
	b, err := d.buffer(buf)
	if err != nil {
		renderq.Logger().Warn("wgpuhal: bind vertex buffer", "err", err)
		return
	}
	rp.SetVertexBuffer(0, b, offset)
}

// BindIndexBuffer binds buf as the index buffer.
func (d *Device) BindIndexBuffer(cb renderq.CommandBufferID, buf renderq.BufferID, offset uint64, format gputypes.IndexFormat) {
	rp := d.pass(cb, "BindIndexBuffer")
	if rp == nil {
		return
	}
	b, err := d.buffer(buf)
	if err != nil {
		renderq.Logger().Warn("wgpuhal: bind index buffer", "err", err)
		return
	}
	rp.SetIndexBuffer(b, format, offset)
}

// Draw records a non-indexed draw.
func (d *Device) Draw(cb renderq.CommandBufferID, vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	if rp := d.pass(cb, "Draw"); rp != nil {
		rp.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
	}
}

// DrawIndexed records an indexed draw.
func (d *Device) DrawIndexed(cb renderq.CommandBufferID, indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	if rp := d.pass(cb, "DrawIndexed"); rp != nil {
		rp.DrawIndexed(indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
	}
}

// Submit queues the recorded command buffer and points fence at its
// submission index. Semaphores need no HAL work: the queue executes
// submissions in order.
func (d *Device) Submit(cb renderq.CommandBufferID, _, _ renderq.SemaphoreID, fence renderq.FenceID) error {
	e, err := d.cmd(cb)
	if err != nil {
		return err
	}
	if e.buf == nil {
		return fmt.Errorf("wgpuhal: submit command buffer %d: not ended", cb)
	}
	d.mu.RLock()
	f, ok := d.fences[fence]
	d.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: fence %d", ErrUnknownID, fence)
	}

	index, err := d.queue.Submit([]hal.CommandBuffer{e.buf})
	if err != nil {
		return fmt.Errorf("wgpuhal: submit: %w", err)
	}
	d.mu.Lock()
	f.submitted = index
	d.mu.Unlock()
	return nil
}
