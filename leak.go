// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderq

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// LeakRecord describes a resource that was created and not yet destroyed.
type LeakRecord struct {
	ID      uuid.UUID
	Kind    string
	Label   string
	Size    uint64
	Created time.Time

	seq uint64
}

// LeakTracker records live buffers and textures. Resources that are still
// live when the render actor shuts down are reported at Warn level.
// A nil *LeakTracker is valid and tracks nothing.
type LeakTracker struct {
	mu   sync.Mutex
	seq  uint64
	live map[uuid.UUID]LeakRecord
}

// NewLeakTracker creates an empty tracker.
func NewLeakTracker() *LeakTracker {
	return &LeakTracker{live: make(map[uuid.UUID]LeakRecord)}
}

func (t *LeakTracker) track(id uuid.UUID, kind, label string, size uint64) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.seq++
	t.live[id] = LeakRecord{ID: id, Kind: kind, Label: label, Size: size, Created: time.Now(), seq: t.seq}
	t.mu.Unlock()
}

func (t *LeakTracker) release(id uuid.UUID) {
	if t == nil {
		return
	}
	t.mu.Lock()
	delete(t.live, id)
	t.mu.Unlock()
}

// Live returns the resources not yet destroyed, oldest first.
func (t *LeakTracker) Live() []LeakRecord {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	out := make([]LeakRecord, 0, len(t.live))
	for _, r := range t.live {
		out = append(out, r)
	}
	t.mu.Unlock()
	slices.SortFunc(out, func(a, b LeakRecord) int {
		return cmp.Compare(a.seq, b.seq)
	})
	return out
}

// Report logs every live resource and returns how many there were.
func (t *LeakTracker) Report() int {
	live := t.Live()
	for _, r := range live {
		Logger().Warn("renderq: resource never destroyed",
			"kind", r.Kind, "label", r.Label, "size", r.Size, "id", r.ID)
	}
	return len(live)
}
