// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderq

import (
	"fmt"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/google/uuid"
)

// Resource kinds used in metrics and leak reports.
const (
	kindBuffer  = "buffer"
	kindTexture = "texture"
)

// BufferDescriptor describes a buffer to create.
type BufferDescriptor struct {
	// Label is an optional debug name. Defaults to "buffer-<uuid>".
	Label string

	Usage    gputypes.BufferUsage
	Location MemoryLocation

	// Data is the initial content. It is written on creation when Location
	// is host visible.
	Data []byte

	// Size is the buffer size in bytes. Zero means len(Data).
	Size uint64
}

// Buffer is a device buffer with its bound allocation.
//
// Its size is fixed at creation. Host-visible buffers can be overwritten in
// place from any goroutine; the caller is responsible for not overwriting
// memory the GPU is still reading.
type Buffer struct {
	id       BufferID
	alloc    Allocation
	size     uint64
	usage    gputypes.BufferUsage
	location MemoryLocation
	label    string
	uid      uuid.UUID

	queue     *commandQueue
	destroyed atomic.Bool
}

// CreateBuffer creates a buffer and its allocation on the calling goroutine.
// Only the allocator is shared with other goroutines, through the guard.
// Device and allocation failures are reported to the fatal handler and
// returned.
func (h Handle) CreateBuffer(desc BufferDescriptor) (*Buffer, error) {
	size := desc.Size
	if size == 0 {
		size = uint64(len(desc.Data))
	}
	if size == 0 {
		return nil, fmt.Errorf("create buffer %q: %w", desc.Label, ErrEmptyData)
	}
	uid := uuid.New()
	label := desc.Label
	if label == "" {
		label = kindBuffer + "-" + uid.String()
	}
	if uint64(len(desc.Data)) > size {
		return nil, &SizeError{Label: label, Size: size, Want: uint64(len(desc.Data))}
	}

	b, err := h.createBuffer(label, size, desc)
	if err != nil {
		err = fmt.Errorf("create buffer %q: %w", label, err)
		h.shared.report("create buffer", err)
		return nil, err
	}
	b.uid = uid
	h.shared.metrics.resourceCreated(kindBuffer)
	h.shared.leaks.track(uid, kindBuffer, label, size)
	Logger().Debug("renderq: buffer created",
		"label", label, "size", size, "location", desc.Location, "buffer", b.id)
	return b, nil
}

func (h Handle) createBuffer(label string, size uint64, desc BufferDescriptor) (*Buffer, error) {
	dev := h.shared.dev
	id, req, err := dev.CreateBuffer(&BufferCreateInfo{
		Label: label,
		Size:  size,
		Usage: desc.Usage,
	})
	if err != nil {
		return nil, err
	}
	alloc, err := h.shared.guard.Allocate(&AllocationDescriptor{
		Label:        label,
		Requirements: req,
		Location:     desc.Location,
		Linear:       true,
	})
	if err != nil {
		dev.DestroyBuffer(id)
		return nil, err
	}
	if err := dev.BindBufferMemory(id, alloc); err != nil {
		_ = h.shared.guard.Free(alloc)
		dev.DestroyBuffer(id)
		return nil, fmt.Errorf("bind memory: %w", err)
	}
	if len(desc.Data) > 0 {
		if desc.Location.HostVisible() {
			if err := alloc.Write(0, desc.Data); err != nil {
				_ = h.shared.guard.Free(alloc)
				dev.DestroyBuffer(id)
				return nil, fmt.Errorf("write initial data: %w", err)
			}
		} else {
			Logger().Warn("renderq: initial data ignored for GPU-only buffer", "label", label)
		}
	}
	return &Buffer{
		id:       id,
		alloc:    alloc,
		size:     size,
		usage:    desc.Usage,
		location: desc.Location,
		label:    label,
		queue:    h.queue,
	}, nil
}

// ID returns the device buffer ID.
func (b *Buffer) ID() BufferID { return b.id }

// Size returns the declared size in bytes.
func (b *Buffer) Size() uint64 { return b.size }

// Label returns the debug name.
func (b *Buffer) Label() string { return b.label }

// Usage returns the usage flags the buffer was created with.
func (b *Buffer) Usage() gputypes.BufferUsage { return b.usage }

// Location returns the memory location of the allocation.
func (b *Buffer) Location() MemoryLocation { return b.location }

// Overwrite writes data at offset 0. It returns a *SizeError and leaves the
// buffer untouched when data is larger than the buffer.
func (b *Buffer) Overwrite(data []byte) error {
	return b.OverwriteAt(0, data)
}

// OverwriteAt writes data starting at offset.
func (b *Buffer) OverwriteAt(offset uint64, data []byte) error {
	if b.destroyed.Load() {
		return ErrAlreadyDestroyed
	}
	if end := offset + uint64(len(data)); end > b.size || end < offset {
		return &SizeError{Label: b.label, Size: b.size, Want: end}
	}
	if !b.location.HostVisible() {
		return fmt.Errorf("overwrite %q: %w", b.label, ErrNotHostVisible)
	}
	return b.alloc.Write(offset, data)
}

// Read copies the first len(dst) bytes of the buffer into dst.
func (b *Buffer) Read(dst []byte) error {
	if b.destroyed.Load() {
		return ErrAlreadyDestroyed
	}
	if uint64(len(dst)) > b.size {
		return &SizeError{Label: b.label, Size: b.size, Want: uint64(len(dst))}
	}
	if !b.location.HostVisible() {
		return fmt.Errorf("read %q: %w", b.label, ErrNotHostVisible)
	}
	return b.alloc.Read(0, dst)
}

// Whole returns a descriptor write covering the entire buffer.
func (b *Buffer) Whole() BufferWrite {
	return BufferWrite{Buffer: b.id, Offset: 0, Range: b.size}
}

// Range returns a descriptor write covering size bytes from offset.
func (b *Buffer) Range(offset, size uint64) BufferWrite {
	return BufferWrite{Buffer: b.id, Offset: offset, Range: size}
}

// Destroy enqueues destruction. The buffer memory is freed by the render
// actor when it reaches the command, after every command queued before it.
// The caller must not destroy a buffer still referenced by a frame that has
// not retired.
func (b *Buffer) Destroy() error {
	if !b.destroyed.CompareAndSwap(false, true) {
		Logger().Warn("renderq: buffer destroyed twice", "label", b.label)
		return ErrAlreadyDestroyed
	}
	err := b.queue.push(DestroyBufferCommand{
		Resource:   b.uid,
		Label:      b.label,
		Buffer:     b.id,
		Allocation: b.alloc,
	})
	if err != nil {
		// Nothing will free it; keep the buffer live so its state stays
		// consistent with the leak tracker.
		b.destroyed.Store(false)
		Logger().Warn("renderq: buffer destroyed after shutdown, never freed", "label", b.label)
		return err
	}
	return nil
}
