// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderq_test

import (
	"testing"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/renderq"
	"github.com/gogpu/renderq/internal/mockdevice"
)

// fixture is a running render actor on a recording device.
type fixture struct {
	h     renderq.Handle
	dev   *mockdevice.Device
	alloc *mockdevice.Allocator
	sc    *mockdevice.Swapchain
	fatal chan error
}

// newFixture starts an actor whose fatal handler records instead of
// panicking. The actor is shut down when the test ends.
func newFixture(t *testing.T, opts ...renderq.Option) *fixture {
	t.Helper()
	f := &fixture{
		dev:   mockdevice.New(),
		alloc: mockdevice.NewAllocator(),
		fatal: make(chan error, 16),
	}
	f.sc = mockdevice.NewSwapchain(f.dev, 3)
	all := append([]renderq.Option{
		renderq.WithFatalHandler(func(err error) {
			select {
			case f.fatal <- err:
			default:
			}
		}),
	}, opts...)
	h, err := renderq.New(f.dev, f.alloc, f.sc, all...)
	if err != nil {
		t.Fatalf("renderq.New() = %v", err)
	}
	f.h = h
	t.Cleanup(func() {
		_ = h.Shutdown()
		select {
		case <-h.Done():
		case <-time.After(5 * time.Second):
			t.Error("render actor did not stop")
		}
	})
	return f
}

// stop shuts the actor down and waits for it to exit.
func (f *fixture) stop(t *testing.T) {
	t.Helper()
	if err := f.h.Shutdown(); err != nil {
		t.Fatalf("Shutdown() = %v", err)
	}
	select {
	case <-f.h.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("render actor did not stop")
	}
}

// frame records one frame with body between OpenFrame and SubmitFrame.
func (f *fixture) frame(t *testing.T, body func(h renderq.Handle)) {
	t.Helper()
	f.h.OpenFrame()
	if err := f.h.Sync(); err != nil {
		t.Fatalf("Sync() = %v", err)
	}
	if body != nil {
		body(f.h)
	}
	f.h.SubmitFrame()
}

// barrier returns once the actor has executed everything enqueued so far.
// It opens a frame, so it must be followed by SubmitFrame.
func (f *fixture) barrier(t *testing.T) {
	t.Helper()
	f.h.OpenFrame()
	if err := f.h.Sync(); err != nil {
		t.Fatalf("Sync() = %v", err)
	}
}

// noFatal fails the test if the fatal handler was called.
func (f *fixture) noFatal(t *testing.T) {
	t.Helper()
	select {
	case err := <-f.fatal:
		t.Fatalf("unexpected fatal error: %v", err)
	default:
	}
}

// hostBuffer creates a host-visible vertex buffer holding data.
func (f *fixture) hostBuffer(t *testing.T, label string, data []byte) *renderq.Buffer {
	t.Helper()
	b, err := f.h.CreateBuffer(renderq.BufferDescriptor{
		Label:    label,
		Usage:    gputypes.BufferUsageVertex,
		Location: renderq.MemoryLocationCPUToGPU,
		Data:     data,
	})
	if err != nil {
		t.Fatalf("CreateBuffer(%q) = %v", label, err)
	}
	return b
}
