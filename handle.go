// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderq

import (
	"context"
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
)

// shared is the state every copy of a Handle points at.
type shared struct {
	dev            Device
	guard          *AllocatorGuard
	framesInFlight int
	label          string
	fatal          func(error)
	metrics        *Metrics
	leaks          *LeakTracker

	poolsMu sync.Mutex
	pools   []DescriptorPoolID

	// exited is closed when the render actor's goroutine returns.
	exited chan struct{}
}

// report passes a fatal error to the configured handler.
func (s *shared) report(op string, err error) {
	s.metrics.fatal()
	s.fatal(&FatalError{Op: op, Err: err})
}

func (s *shared) registerPool(pool DescriptorPoolID) {
	s.poolsMu.Lock()
	s.pools = append(s.pools, pool)
	s.poolsMu.Unlock()
}

// takePools returns and forgets every registered pool.
func (s *shared) takePools() []DescriptorPoolID {
	s.poolsMu.Lock()
	defer s.poolsMu.Unlock()
	pools := s.pools
	s.pools = nil
	return pools
}

// Handle is the producer-side interface to a render actor. It is a small
// value holding shared references; copy it freely into every goroutine that
// records frames or creates resources. All methods are safe for concurrent
// use.
//
// Recording methods enqueue a command and return immediately. Enqueueing
// after Shutdown is a fatal error reported to the fatal handler.
type Handle struct {
	queue  *commandQueue
	tokens *frameTokens
	shared *shared
}

// New starts a render actor that owns dev and swapchain, and returns a
// handle to it. The actor creates its frame slots on its own OS thread
// before New returns.
func New(dev Device, alloc MemoryAllocator, swapchain Swapchain, opts ...Option) (Handle, error) {
	if dev == nil || alloc == nil || swapchain == nil {
		return Handle{}, ErrNilDevice
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.validate(); err != nil {
		return Handle{}, err
	}

	q := newCommandQueue(o.queueCapacity)
	tokens := newFrameTokens()
	s := &shared{
		dev:            dev,
		guard:          NewAllocatorGuard(alloc),
		framesInFlight: o.framesInFlight,
		label:          o.label,
		fatal:          o.fatal,
		metrics:        o.metrics,
		leaks:          o.leaks,
		exited:         make(chan struct{}),
	}
	a := &actor{
		dev:       dev,
		swapchain: swapchain,
		queue:     q,
		tokens:    tokens,
		shared:    s,
		log:       newRendererLogger(s.label),
		clear: ClearValues{
			Color:   o.clearColor,
			Depth:   1.0,
			Stencil: 0,
		},
	}

	ready := make(chan error, 1)
	go a.run(ready)
	if err := <-ready; err != nil {
		return Handle{}, fmt.Errorf("renderq: start actor: %w", err)
	}
	return Handle{queue: q, tokens: tokens, shared: s}, nil
}

// enqueue pushes cmd, reporting a closed actor as fatal.
func (h Handle) enqueue(cmd Command) {
	if err := h.queue.push(cmd); err != nil {
		h.shared.report("enqueue "+cmd.Type().String(), err)
	}
}

// FramesInFlight returns the number of frame slots N.
func (h Handle) FramesInFlight() int {
	return h.shared.framesInFlight
}

// OpenFrame enqueues the start of a frame. Each opened frame releases
// exactly one Sync; tokens nobody takes stay counted until shutdown.
func (h Handle) OpenFrame() {
	h.enqueue(OpenFrameCommand{})
}

// Sync blocks until the actor has opened a frame not yet taken by another
// Sync. It returns ErrClosed once the actor has shut down, even if
// untaken tokens remain.
func (h Handle) Sync() error {
	return h.tokens.take(context.Background())
}

// SyncContext is Sync with cancellation.
func (h Handle) SyncContext(ctx context.Context) error {
	return h.tokens.take(ctx)
}

// BindPipeline enqueues a pipeline bind.
func (h Handle) BindPipeline(p PipelineID) {
	h.enqueue(BindPipelineCommand{Pipeline: p})
}

// BindViewport enqueues a dynamic viewport.
func (h Handle) BindViewport(v Viewport) {
	h.enqueue(BindViewportCommand{Viewport: v})
}

// BindScissor enqueues a dynamic scissor rectangle.
func (h Handle) BindScissor(r Rect) {
	h.enqueue(BindScissorCommand{Scissor: r})
}

// BindDescriptorSet enqueues a bind of d's instance for the current slot.
func (h Handle) BindDescriptorSet(layout PipelineLayoutID, d *Descriptor) {
	h.enqueue(BindDescriptorSetCommand{Layout: layout, Descriptor: d})
}

// BindVertexBuffer enqueues a vertex buffer bind at binding 0.
func (h Handle) BindVertexBuffer(b BufferID) {
	h.enqueue(BindVertexBufferCommand{Buffer: b})
}

// BindIndexBuffer enqueues an index buffer bind.
func (h Handle) BindIndexBuffer(b BufferID, format gputypes.IndexFormat) {
	h.enqueue(BindIndexBufferCommand{Buffer: b, Format: format})
}

// Draw enqueues a non-indexed draw.
func (h Handle) Draw(vertexCount uint32) {
	h.enqueue(DrawCommand{VertexCount: vertexCount})
}

// DrawIndexed enqueues an indexed draw.
func (h Handle) DrawIndexed(indexCount uint32) {
	h.enqueue(DrawIndexedCommand{IndexCount: indexCount})
}

// SubmitFrame enqueues the end of the open frame.
func (h Handle) SubmitFrame() {
	h.enqueue(SubmitFrameCommand{})
}

// CreateDescriptor creates a binding table for layout with one set instance
// per frame slot. The backing pool is released when the actor shuts down.
func (h Handle) CreateDescriptor(layout DescriptorLayout) (*Descriptor, error) {
	d, err := newDescriptor(h.shared.dev, layout, h.shared.framesInFlight)
	if err != nil {
		h.shared.report("create descriptor", err)
		return nil, err
	}
	h.shared.registerPool(d.pool)
	Logger().Debug("renderq: descriptor created",
		"label", d.label, "bindings", len(d.bindings), "sets", len(d.sets))
	return d, nil
}

// UpdateDescriptorSet enqueues writes into d's instance for the slot that is
// current when the actor executes it. Write i fills binding i. The writes
// slice is copied.
func (h Handle) UpdateDescriptorSet(d *Descriptor, writes ...DescriptorWrite) error {
	if err := d.check(writes); err != nil {
		return err
	}
	h.enqueue(UpdateDescriptorSetCommand{
		Descriptor: d,
		Writes:     append([]DescriptorWrite(nil), writes...),
	})
	return nil
}

// UpdateDescriptorSetOnce writes every instance of d on the calling
// goroutine. The caller guarantees no in-flight frame uses d.
func (h Handle) UpdateDescriptorSetOnce(d *Descriptor, writes ...DescriptorWrite) error {
	if err := d.check(writes); err != nil {
		return err
	}
	for slot := range d.sets {
		if err := h.shared.dev.UpdateDescriptorSets(d.resolve(slot, writes)); err != nil {
			err = fmt.Errorf("update descriptor %q slot %d: %w", d.label, slot, err)
			h.shared.report("update descriptor", err)
			return err
		}
	}
	return nil
}

// DestroyBuffer enqueues destruction of b. See Buffer.Destroy.
func (h Handle) DestroyBuffer(b *Buffer) error {
	return b.Destroy()
}

// DestroyTexture enqueues destruction of t. See Texture.Destroy.
func (h Handle) DestroyTexture(t *Texture) error {
	return t.Destroy()
}

// Shutdown enqueues the stop command. Commands already queued ahead of it
// run first; nothing queued after it runs. It returns ErrClosed if the
// actor is already stopping.
func (h Handle) Shutdown() error {
	return h.queue.push(ShutdownCommand{})
}

// Wait blocks until the actor has exited.
func (h Handle) Wait() {
	<-h.shared.exited
}

// Done returns a channel that is closed when the actor has exited.
func (h Handle) Done() <-chan struct{} {
	return h.shared.exited
}
