// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderq_test

import (
	"errors"
	"testing"

	"github.com/gogpu/renderq"
	"github.com/gogpu/renderq/internal/mockdevice"
)

func uniformAndTexture() renderq.DescriptorLayout {
	return renderq.DescriptorLayout{
		Label:     "material",
		SetLayout: 42,
		Bindings: []renderq.DescriptorBinding{
			{Type: renderq.DescriptorTypeUniformBuffer},
			{Type: renderq.DescriptorTypeCombinedImageSampler},
		},
	}
}

func TestCreateDescriptor(t *testing.T) {
	f := newFixture(t, renderq.WithFramesInFlight(3))
	d, err := f.h.CreateDescriptor(uniformAndTexture())
	if err != nil {
		t.Fatalf("CreateDescriptor() = %v", err)
	}
	if d.Len() != 2 {
		t.Errorf("Len() = %d, want 2", d.Len())
	}

	var maxSets, allocated uint64
	for _, c := range f.dev.Calls() {
		switch c.Op {
		case mockdevice.OpCreatePool:
			maxSets = c.Arg
		case mockdevice.OpAllocateSets:
			allocated = c.Arg
		}
	}
	if maxSets != 3 || allocated != 3 {
		t.Errorf("pool maxSets = %d, allocated = %d, want 3 and 3", maxSets, allocated)
	}
	seen := map[renderq.DescriptorSetID]bool{}
	for slot := range 3 {
		seen[d.Set(slot)] = true
	}
	if len(seen) != 3 {
		t.Errorf("set instances not distinct: %v", seen)
	}
}

func TestUpdateDescriptorSetTargetsCurrentSlot(t *testing.T) {
	f := newFixture(t)
	d, err := f.h.CreateDescriptor(uniformAndTexture())
	if err != nil {
		t.Fatalf("CreateDescriptor() = %v", err)
	}
	first := renderq.BufferWrite{Buffer: 100, Range: 64}
	second := renderq.BufferWrite{Buffer: 200, Range: 64}

	f.frame(t, func(h renderq.Handle) {
		if err := h.UpdateDescriptorSet(d, first); err != nil {
			t.Fatalf("UpdateDescriptorSet() = %v", err)
		}
		h.BindDescriptorSet(9, d)
		h.Draw(3)
	})
	f.frame(t, func(h renderq.Handle) {
		if err := h.UpdateDescriptorSet(d, second); err != nil {
			t.Fatalf("UpdateDescriptorSet() = %v", err)
		}
		h.BindDescriptorSet(9, d)
		h.Draw(3)
	})
	f.barrier(t)
	defer f.h.SubmitFrame()

	if got := f.dev.DescriptorWrites(d.Set(0))[0]; got != first {
		t.Errorf("slot 0 binding 0 = %v, want %v", got, first)
	}
	if got := f.dev.DescriptorWrites(d.Set(1))[0]; got != second {
		t.Errorf("slot 1 binding 0 = %v, want %v", got, second)
	}

	var bound []uint64
	for _, c := range f.dev.Calls() {
		if c.Op == mockdevice.OpBindDescriptorSet {
			bound = append(bound, c.ID)
		}
	}
	want := []uint64{uint64(d.Set(0)), uint64(d.Set(1))}
	if len(bound) != 2 || bound[0] != want[0] || bound[1] != want[1] {
		t.Errorf("bound sets = %v, want %v", bound, want)
	}
	f.noFatal(t)
}

func TestUpdateDescriptorSetOnce(t *testing.T) {
	f := newFixture(t)
	d, err := f.h.CreateDescriptor(uniformAndTexture())
	if err != nil {
		t.Fatalf("CreateDescriptor() = %v", err)
	}
	ubo := renderq.BufferWrite{Buffer: 5, Range: 16}
	img := renderq.ImageWrite{View: 6, Sampler: 7}
	if err := f.h.UpdateDescriptorSetOnce(d, ubo, img); err != nil {
		t.Fatalf("UpdateDescriptorSetOnce() = %v", err)
	}
	for slot := range f.h.FramesInFlight() {
		w := f.dev.DescriptorWrites(d.Set(slot))
		if w[0] != ubo || w[1] != img {
			t.Errorf("slot %d writes = %v, want [%v %v]", slot, w, ubo, img)
		}
	}
}

func TestDescriptorWriteValidation(t *testing.T) {
	f := newFixture(t)
	d, err := f.h.CreateDescriptor(uniformAndTexture())
	if err != nil {
		t.Fatalf("CreateDescriptor() = %v", err)
	}
	ubo := renderq.BufferWrite{Buffer: 1, Range: 16}
	img := renderq.ImageWrite{View: 2, Sampler: 3}

	tests := []struct {
		name   string
		writes []renderq.DescriptorWrite
		want   error
	}{
		{"matching", []renderq.DescriptorWrite{ubo, img}, nil},
		{"prefix", []renderq.DescriptorWrite{ubo}, nil},
		{"too many", []renderq.DescriptorWrite{ubo, img, ubo}, renderq.ErrTooManyWrites},
		{"image into buffer binding", []renderq.DescriptorWrite{img}, renderq.ErrWriteMismatch},
		{"buffer into image binding", []renderq.DescriptorWrite{ubo, ubo}, renderq.ErrWriteMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := f.h.UpdateDescriptorSetOnce(d, tt.writes...); !errors.Is(err, tt.want) {
				t.Errorf("UpdateDescriptorSetOnce() = %v, want %v", err, tt.want)
			}
			if err := f.h.UpdateDescriptorSet(d, tt.writes...); !errors.Is(err, tt.want) {
				t.Errorf("UpdateDescriptorSet() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestShutdownReleasesDescriptorPools(t *testing.T) {
	f := newFixture(t)
	for range 3 {
		if _, err := f.h.CreateDescriptor(uniformAndTexture()); err != nil {
			t.Fatalf("CreateDescriptor() = %v", err)
		}
	}
	if f.dev.LivePools() != 3 {
		t.Fatalf("live pools = %d, want 3", f.dev.LivePools())
	}
	f.stop(t)

	if f.dev.LivePools() != 0 {
		t.Errorf("live pools after shutdown = %d, want 0", f.dev.LivePools())
	}
	idle := -1
	for i, c := range f.dev.Calls() {
		if c.Op == mockdevice.OpWaitIdle {
			idle = i
		}
		if c.Op == mockdevice.OpDestroyPool && (idle < 0 || i < idle) {
			t.Errorf("pool destroyed at %d before wait-idle", i)
		}
	}
}
