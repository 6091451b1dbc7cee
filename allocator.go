// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderq

import (
	"fmt"
	"sync"
)

// AllocatorGuard serializes access to a MemoryAllocator that is not safe for
// concurrent use. Producers allocate through it on their own goroutines and
// the render actor frees through it; the lock is held for exactly one
// Allocate or Free call.
type AllocatorGuard struct {
	mu    sync.Mutex
	alloc MemoryAllocator
}

// NewAllocatorGuard wraps alloc.
func NewAllocatorGuard(alloc MemoryAllocator) *AllocatorGuard {
	return &AllocatorGuard{alloc: alloc}
}

// Allocate allocates memory for desc.
func (g *AllocatorGuard) Allocate(desc *AllocationDescriptor) (Allocation, error) {
	g.mu.Lock()
	a, err := g.alloc.Allocate(desc)
	g.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("allocate %q (%d bytes, %s): %w",
			desc.Label, desc.Requirements.Size, desc.Location, err)
	}
	return a, nil
}

// Free returns a to the allocator.
func (g *AllocatorGuard) Free(a Allocation) error {
	if a == nil {
		return nil
	}
	g.mu.Lock()
	err := g.alloc.Free(a)
	g.mu.Unlock()
	if err != nil {
		return fmt.Errorf("free allocation: %w", err)
	}
	return nil
}
