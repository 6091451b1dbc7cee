// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderq

import "fmt"

// DefaultFramesInFlight is the number of frame slots used when
// WithFramesInFlight is not given.
const DefaultFramesInFlight = 2

// frameSlot holds the per-frame synchronization objects and command buffer.
type frameSlot struct {
	commandBuffer  CommandBufferID
	imageAvailable SemaphoreID
	renderFinished SemaphoreID
	inFlight       FenceID

	// target is the framebuffer acquired by the last OpenFrame on this slot.
	target FramebufferID
}

// frameRing is the ring of frame slots. It is owned by the render actor and
// never touched from producer goroutines.
type frameRing struct {
	slots   []frameSlot
	current int
}

// newFrameRing creates n slots on dev. Fences start signaled so the first
// OpenFrame on each slot does not block.
func newFrameRing(dev Device, n int) (*frameRing, error) {
	r := &frameRing{slots: make([]frameSlot, 0, n)}
	for i := range n {
		var s frameSlot
		var err error
		if s.commandBuffer, err = dev.AllocateCommandBuffer(); err != nil {
			r.destroy(dev)
			return nil, fmt.Errorf("frame slot %d: allocate command buffer: %w", i, err)
		}
		// Append before the remaining creates so destroy sees partial slots.
		r.slots = append(r.slots, s)
		last := &r.slots[len(r.slots)-1]
		if last.imageAvailable, err = dev.CreateSemaphore(); err != nil {
			r.destroy(dev)
			return nil, fmt.Errorf("frame slot %d: create semaphore: %w", i, err)
		}
		if last.renderFinished, err = dev.CreateSemaphore(); err != nil {
			r.destroy(dev)
			return nil, fmt.Errorf("frame slot %d: create semaphore: %w", i, err)
		}
		if last.inFlight, err = dev.CreateFence(true); err != nil {
			r.destroy(dev)
			return nil, fmt.Errorf("frame slot %d: create fence: %w", i, err)
		}
	}
	return r, nil
}

// len is the ring size N.
func (r *frameRing) len() int {
	return len(r.slots)
}

// slot returns the current slot.
func (r *frameRing) slot() *frameSlot {
	return &r.slots[r.current]
}

// advance moves to the next slot, wrapping at N.
func (r *frameRing) advance() {
	r.current = (r.current + 1) % len(r.slots)
}

// destroy releases every object created for the ring. The device must be idle.
func (r *frameRing) destroy(dev Device) {
	for i := range r.slots {
		s := &r.slots[i]
		if s.inFlight != InvalidID {
			dev.DestroyFence(s.inFlight)
		}
		if s.renderFinished != InvalidID {
			dev.DestroySemaphore(s.renderFinished)
		}
		if s.imageAvailable != InvalidID {
			dev.DestroySemaphore(s.imageAvailable)
		}
		if s.commandBuffer != InvalidID {
			dev.FreeCommandBuffer(s.commandBuffer)
		}
	}
	r.slots = nil
}

// frameState tracks where the actor is in a frame. It is informational only,
// commands are never rejected because of it.
type frameState uint8

const (
	frameIdle frameState = iota
	frameRecording
	frameBound
	frameSubmitted
)

var frameStateNames = [...]string{
	frameIdle:      "Idle",
	frameRecording: "Recording",
	frameBound:     "Bound",
	frameSubmitted: "Submitted",
}

func (s frameState) String() string {
	if int(s) < len(frameStateNames) {
		return frameStateNames[s]
	}
	return "Unknown"
}
