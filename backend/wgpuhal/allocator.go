// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpuhal

import (
	"fmt"
	"sync"

	"github.com/gogpu/renderq"
	"github.com/gogpu/wgpu/hal"
)

// Allocation is memory handed out by Allocator.
//
// WebGPU has no explicit memory objects, so an Allocation is bookkeeping
// plus, for host-visible locations, a CPU mirror of the buffer contents.
// Once bound to a buffer, writes are forwarded with hal.Queue.WriteBuffer
// and reads are served from the mirror.
type Allocation struct {
	mu       sync.Mutex
	label    string
	size     uint64
	location renderq.MemoryLocation
	mapped   []byte

	queue   hal.Queue
	buf     hal.Buffer
	bufSize uint64
	freed   bool
}

// Size returns the allocation size in bytes.
func (a *Allocation) Size() uint64 { return a.size }

// Location returns the memory location the allocation was made in.
func (a *Allocation) Location() renderq.MemoryLocation { return a.location }

// Write copies data into the allocation at offset. Queue writes must be
// 4-byte aligned, so the bound buffer receives the aligned range of the
// mirror that covers data.
func (a *Allocation) Write(offset uint64, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.access(offset, len(data)); err != nil {
		return err
	}
	copy(a.mapped[offset:], data)
	if a.buf == nil || len(data) == 0 {
		return nil
	}
	start, end := writeRange(offset, uint64(len(data)), min(a.size, a.bufSize))
	if err := a.queue.WriteBuffer(a.buf, start, a.mapped[start:end]); err != nil {
		return fmt.Errorf("wgpuhal: write %q at %d: %w", a.label, start, err)
	}
	return nil
}

// writeRange widens [offset, offset+n) to bufferAlignment, capped at size.
func writeRange(offset, n, size uint64) (start, end uint64) {
	start = offset &^ (bufferAlignment - 1)
	end = min(alignedSize(offset+n), size)
	return start, end
}

// Read copies len(dst) bytes at offset into dst.
func (a *Allocation) Read(offset uint64, dst []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.access(offset, len(dst)); err != nil {
		return err
	}
	copy(dst, a.mapped[offset:])
	return nil
}

// access validates a CPU access of n bytes at offset. Called with mu held.
func (a *Allocation) access(offset uint64, n int) error {
	if a.freed {
		return fmt.Errorf("%w: %s", ErrFreed, a.label)
	}
	if !a.location.HostVisible() {
		return renderq.ErrNotHostVisible
	}
	if offset+uint64(n) > a.size {
		return &renderq.SizeError{Label: a.label, Size: a.size, Want: offset + uint64(n)}
	}
	return nil
}

// bind attaches the allocation to a buffer of size bytes. Later writes
// reach the GPU.
func (a *Allocation) bind(queue hal.Queue, buf hal.Buffer, size uint64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.freed {
		return fmt.Errorf("%w: %s", ErrFreed, a.label)
	}
	a.queue = queue
	a.buf = buf
	a.bufSize = size
	return nil
}

// Allocator implements renderq.MemoryAllocator for the HAL device.
// It is safe for concurrent use, though renderq serializes calls anyway.
type Allocator struct {
	mu    sync.Mutex
	live  int
	bytes uint64
}

// NewAllocator creates an empty allocator.
func NewAllocator() *Allocator {
	return &Allocator{}
}

// Allocate reserves an allocation described by desc.
func (al *Allocator) Allocate(desc *renderq.AllocationDescriptor) (renderq.Allocation, error) {
	if desc == nil {
		return nil, fmt.Errorf("wgpuhal: nil allocation descriptor")
	}
	size := desc.Requirements.Size
	if align := desc.Requirements.Alignment; align > 1 {
		size = (size + align - 1) / align * align
	}
	a := &Allocation{
		label:    desc.Label,
		size:     size,
		location: desc.Location,
	}
	if desc.Location.HostVisible() {
		a.mapped = make([]byte, size)
	}

	al.mu.Lock()
	al.live++
	al.bytes += size
	al.mu.Unlock()

	renderq.Logger().Debug("wgpuhal: allocate",
		"label", desc.Label, "size", size, "location", desc.Location)
	return a, nil
}

// Free releases an allocation. Freeing twice is an error.
func (al *Allocator) Free(ra renderq.Allocation) error {
	a, ok := ra.(*Allocation)
	if !ok {
		return ErrForeignAllocation
	}
	a.mu.Lock()
	if a.freed {
		a.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrFreed, a.label)
	}
	a.freed = true
	a.buf = nil
	a.mapped = nil
	size := a.size
	a.mu.Unlock()

	al.mu.Lock()
	al.live--
	al.bytes -= size
	al.mu.Unlock()
	return nil
}

// Live returns the number of allocations not yet freed.
func (al *Allocator) Live() int {
	al.mu.Lock()
	defer al.mu.Unlock()
	return al.live
}

// Bytes returns the total size of live allocations.
func (al *Allocator) Bytes() uint64 {
	al.mu.Lock()
	defer al.mu.Unlock()
	return al.bytes
}
