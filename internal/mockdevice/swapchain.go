// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package mockdevice

import (
	"github.com/gogpu/renderq"
)

// Swapchain hands out framebuffers round-robin and records acquire and
// present calls in the device's call log.
type Swapchain struct {
	dev     *Device
	targets []renderq.FramebufferID
	next    int
}

// NewSwapchain creates a swapchain of images presentable images on dev.
func NewSwapchain(dev *Device, images int) *Swapchain {
	s := &Swapchain{dev: dev}
	dev.mu.Lock()
	for range images {
		s.targets = append(s.targets, renderq.FramebufferID(dev.id()))
	}
	dev.mu.Unlock()
	return s
}

// Targets returns the framebuffers in acquisition order.
func (s *Swapchain) Targets() []renderq.FramebufferID {
	return append([]renderq.FramebufferID(nil), s.targets...)
}

// Acquire implements renderq.Swapchain. ID is the framebuffer, Arg the slot.
func (s *Swapchain) Acquire(slot int, _ renderq.SemaphoreID) (renderq.FramebufferID, error) {
	s.dev.mu.Lock()
	defer s.dev.mu.Unlock()
	target := s.targets[s.next%len(s.targets)]
	if err := s.dev.record(OpAcquire, uint64(target), uint64(slot)); err != nil {
		return renderq.InvalidID, err
	}
	s.next++
	return target, nil
}

// Present implements renderq.Swapchain. ID is the framebuffer, Arg the slot.
func (s *Swapchain) Present(slot int, target renderq.FramebufferID, _ renderq.SemaphoreID) error {
	s.dev.mu.Lock()
	defer s.dev.mu.Unlock()
	return s.dev.record(OpPresent, uint64(target), uint64(slot))
}

var _ renderq.Swapchain = (*Swapchain)(nil)
