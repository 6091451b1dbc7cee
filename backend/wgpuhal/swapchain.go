// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpuhal

import (
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/renderq"
	"github.com/gogpu/wgpu/hal"
)

// SwapchainConfig describes an offscreen swapchain.
type SwapchainConfig struct {
	Width, Height uint32

	// Format defaults to gputypes.TextureFormatRGBA8Unorm.
	Format gputypes.TextureFormat

	// Images is the number of render targets. Defaults to 3.
	Images int

	// OnPresent, if set, is called from the render actor for every
	// presented frame.
	OnPresent func(frame uint64, target renderq.FramebufferID)
}

type swapImage struct {
	tex  hal.Texture
	view hal.TextureView
	fb   renderq.FramebufferID
}

// OffscreenSwapchain implements renderq.Swapchain with a ring of render
// target textures. Acquire hands them out round robin; Present counts
// frames. It drives renderq headless: tests, benchmarks and servers.
type OffscreenSwapchain struct {
	dev       *Device
	images    []swapImage
	onPresent func(uint64, renderq.FramebufferID)

	mu        sync.Mutex
	next      int
	presented uint64
}

var _ renderq.Swapchain = (*OffscreenSwapchain)(nil)

// NewOffscreenSwapchain creates cfg.Images render targets on dev.
func NewOffscreenSwapchain(dev *Device, cfg SwapchainConfig) (*OffscreenSwapchain, error) {
	if cfg.Width == 0 || cfg.Height == 0 {
		return nil, fmt.Errorf("wgpuhal: swapchain: empty extent %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.Format == gputypes.TextureFormatUndefined {
		cfg.Format = gputypes.TextureFormatRGBA8Unorm
	}
	if cfg.Images <= 0 {
		cfg.Images = 3
	}

	sc := &OffscreenSwapchain{dev: dev, onPresent: cfg.OnPresent}
	for i := range cfg.Images {
		label := fmt.Sprintf("renderq_swap_%d", i)
		tex, err := dev.device.CreateTexture(&hal.TextureDescriptor{
			Label: label,
			Size: hal.Extent3D{
				Width:              cfg.Width,
				Height:             cfg.Height,
				DepthOrArrayLayers: 1,
			},
			MipLevelCount: 1,
			SampleCount:   1,
			Dimension:     gputypes.TextureDimension2D,
			Format:        cfg.Format,
			Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
		})
		if err != nil {
			sc.Destroy()
			return nil, fmt.Errorf("wgpuhal: swapchain image %d: %w", i, err)
		}
		view, err := dev.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
			Label:         label + "_view",
			Format:        cfg.Format,
			Dimension:     gputypes.TextureViewDimension2D,
			Aspect:        gputypes.TextureAspectAll,
			MipLevelCount: 1,
		})
		if err != nil {
			dev.device.DestroyTexture(tex)
			sc.Destroy()
			return nil, fmt.Errorf("wgpuhal: swapchain view %d: %w", i, err)
		}
		sc.images = append(sc.images, swapImage{tex: tex, view: view, fb: dev.registerFramebuffer(view)})
	}
	renderq.Logger().Info("wgpuhal: offscreen swapchain created",
		"width", cfg.Width, "height", cfg.Height, "images", cfg.Images, "format", cfg.Format)
	return sc, nil
}

// Acquire returns the next render target. signal needs no HAL work.
func (s *OffscreenSwapchain) Acquire(slot int, _ renderq.SemaphoreID) (renderq.FramebufferID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.images) == 0 {
		return renderq.InvalidID, ErrSwapchainDestroyed
	}
	img := s.images[s.next]
	s.next = (s.next + 1) % len(s.images)
	renderq.Logger().Debug("wgpuhal: acquire", "slot", slot, "framebuffer", img.fb)
	return img.fb, nil
}

// Present counts the frame and calls OnPresent.
func (s *OffscreenSwapchain) Present(slot int, target renderq.FramebufferID, _ renderq.SemaphoreID) error {
	s.mu.Lock()
	if len(s.images) == 0 {
		s.mu.Unlock()
		return ErrSwapchainDestroyed
	}
	s.presented++
	frame := s.presented
	s.mu.Unlock()

	renderq.Logger().Debug("wgpuhal: present", "slot", slot, "framebuffer", target, "frame", frame)
	if s.onPresent != nil {
		s.onPresent(frame, target)
	}
	return nil
}

// Presented returns how many frames have been presented.
func (s *OffscreenSwapchain) Presented() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presented
}

// Targets returns the framebuffer IDs in acquire order.
func (s *OffscreenSwapchain) Targets() []renderq.FramebufferID {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]renderq.FramebufferID, len(s.images))
	for i, img := range s.images {
		out[i] = img.fb
	}
	return out
}

// Destroy releases the render targets. Call it after the render actor
// has stopped.
func (s *OffscreenSwapchain) Destroy() {
	s.mu.Lock()
	images := s.images
	s.images = nil
	s.mu.Unlock()
	for _, img := range images {
		s.dev.releaseFramebuffer(img.fb)
		s.dev.device.DestroyTextureView(img.view)
		s.dev.device.DestroyTexture(img.tex)
	}
}
