// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpuhal

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/renderq/backend"
	"github.com/gogpu/wgpu/hal/noop"
)

func init() {
	backend.Register(backend.NameNoop, openNoop)
}

// openNoop opens the headless noop HAL device with an offscreen swapchain.
func openNoop(cfg backend.Config) (*backend.Backend, error) {
	instance, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, errors.New("no adapters")
	}
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("open adapter: %w", err)
	}

	dev := New(openDev.Device, openDev.Queue)
	sc, err := NewOffscreenSwapchain(dev, SwapchainConfig{
		Width:  cfg.Width,
		Height: cfg.Height,
		Images: cfg.Images,
	})
	if err != nil {
		openDev.Device.Destroy()
		instance.Destroy()
		return nil, err
	}
	return backend.New(backend.NameNoop, dev, NewAllocator(), sc, func() {
		sc.Destroy()
		openDev.Device.Destroy()
		instance.Destroy()
	}), nil
}
