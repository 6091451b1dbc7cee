// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package mockdevice

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/renderq"
)

// Allocation is byte-slice backed memory.
type Allocation struct {
	mu          sync.Mutex
	label       string
	data        []byte
	hostVisible bool
	freed       bool
}

// Size implements renderq.Allocation.
func (a *Allocation) Size() uint64 { return uint64(len(a.data)) }

// Label is the debug name the allocation was requested with.
func (a *Allocation) Label() string { return a.label }

// Write implements renderq.Allocation.
func (a *Allocation) Write(offset uint64, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.check(offset, len(data)); err != nil {
		return err
	}
	copy(a.data[offset:], data)
	return nil
}

// Read implements renderq.Allocation.
func (a *Allocation) Read(offset uint64, dst []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.check(offset, len(dst)); err != nil {
		return err
	}
	copy(dst, a.data[offset:])
	return nil
}

func (a *Allocation) check(offset uint64, n int) error {
	if a.freed {
		return fmt.Errorf("mockdevice: access to freed allocation %q", a.label)
	}
	if !a.hostVisible {
		return renderq.ErrNotHostVisible
	}
	if offset+uint64(n) > uint64(len(a.data)) {
		return fmt.Errorf("mockdevice: access [%d, %d) out of range %d", offset, offset+uint64(n), len(a.data))
	}
	return nil
}

// Allocator is a renderq.MemoryAllocator that flags concurrent calls, which
// renderq must never make.
type Allocator struct {
	mu   sync.Mutex
	live map[*Allocation]struct{}
	fail error

	// hold widens the critical section so overlapping calls are observable.
	hold time.Duration

	inside     atomic.Int32
	overlapped atomic.Bool
	allocs     atomic.Int64
	frees      atomic.Int64
}

// NewAllocator creates an allocator with no live allocations.
func NewAllocator() *Allocator {
	return &Allocator{live: make(map[*Allocation]struct{})}
}

// Hold makes every call sleep for d while counted as in progress.
func (a *Allocator) Hold(d time.Duration) { a.hold = d }

// FailWith makes later Allocate calls return err.
func (a *Allocator) FailWith(err error) {
	a.mu.Lock()
	a.fail = err
	a.mu.Unlock()
}

// Overlapped reports whether two calls ever ran at the same time.
func (a *Allocator) Overlapped() bool { return a.overlapped.Load() }

// Live returns the number of allocations not yet freed.
func (a *Allocator) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.live)
}

// Allocs returns the number of successful Allocate calls.
func (a *Allocator) Allocs() int64 { return a.allocs.Load() }

// Frees returns the number of successful Free calls.
func (a *Allocator) Frees() int64 { return a.frees.Load() }

func (a *Allocator) enter() {
	if a.inside.Add(1) > 1 {
		a.overlapped.Store(true)
	}
	if a.hold > 0 {
		time.Sleep(a.hold)
	}
}

func (a *Allocator) leave() { a.inside.Add(-1) }

// Allocate implements renderq.MemoryAllocator.
func (a *Allocator) Allocate(desc *renderq.AllocationDescriptor) (renderq.Allocation, error) {
	a.enter()
	defer a.leave()

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.fail != nil {
		return nil, a.fail
	}
	m := &Allocation{
		label:       desc.Label,
		data:        make([]byte, desc.Requirements.Size),
		hostVisible: desc.Location.HostVisible(),
	}
	a.live[m] = struct{}{}
	a.allocs.Add(1)
	return m, nil
}

// Free implements renderq.MemoryAllocator.
func (a *Allocator) Free(alloc renderq.Allocation) error {
	a.enter()
	defer a.leave()

	m, ok := alloc.(*Allocation)
	if !ok {
		return fmt.Errorf("mockdevice: foreign allocation %T", alloc)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.live[m]; !ok {
		return fmt.Errorf("mockdevice: double free of %q", m.label)
	}
	delete(a.live, m)
	m.mu.Lock()
	m.freed = true
	m.mu.Unlock()
	a.frees.Add(1)
	return nil
}

var _ renderq.MemoryAllocator = (*Allocator)(nil)
