// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderq

import (
	"errors"
	"fmt"
)

// ErrWriteMismatch is returned when a descriptor write does not match the
// type of the binding it fills.
var ErrWriteMismatch = errors.New("renderq: descriptor write does not match binding type")

// DescriptorType is the type of one binding in a descriptor set layout.
type DescriptorType uint8

const (
	DescriptorTypeUniformBuffer DescriptorType = iota
	DescriptorTypeStorageBuffer
	DescriptorTypeCombinedImageSampler
)

var descriptorTypeNames = [...]string{
	DescriptorTypeUniformBuffer:        "UniformBuffer",
	DescriptorTypeStorageBuffer:        "StorageBuffer",
	DescriptorTypeCombinedImageSampler: "CombinedImageSampler",
}

// String returns the string representation of a DescriptorType.
func (t DescriptorType) String() string {
	if int(t) < len(descriptorTypeNames) {
		return descriptorTypeNames[t]
	}
	return "Unknown"
}

// isBuffer reports whether bindings of this type take a BufferWrite.
func (t DescriptorType) isBuffer() bool {
	return t == DescriptorTypeUniformBuffer || t == DescriptorTypeStorageBuffer
}

// DescriptorBinding is one binding of a set layout. Binding numbers are
// positional: Bindings[i] is binding i.
type DescriptorBinding struct {
	Type DescriptorType

	// Count is the descriptor count of the binding. Zero means 1.
	Count uint32
}

func (b DescriptorBinding) count() uint32 {
	if b.Count == 0 {
		return 1
	}
	return b.Count
}

// DescriptorLayout is what the pipeline-construction collaborator knows
// about a pipeline's binding table.
type DescriptorLayout struct {
	Label     string
	SetLayout DescriptorSetLayoutID
	Bindings  []DescriptorBinding
}

// DescriptorWrite is the value written into one binding: a BufferWrite or
// an ImageWrite.
type DescriptorWrite interface {
	isDescriptorWrite()
}

// BufferWrite binds Range bytes of Buffer starting at Offset.
type BufferWrite struct {
	Buffer BufferID
	Offset uint64
	Range  uint64
}

func (BufferWrite) isDescriptorWrite() {}

// ImageWrite binds an image view with a sampler.
type ImageWrite struct {
	View    ImageViewID
	Sampler SamplerID
}

func (ImageWrite) isDescriptorWrite() {}

// Descriptor is a pipeline-scoped binding table with one set instance per
// frame slot. Instance i is only written and bound while slot i is current,
// so updating a descriptor never races GPU work of another in-flight frame.
//
// A Descriptor is immutable after creation and may be shared freely.
type Descriptor struct {
	label    string
	pool     DescriptorPoolID
	bindings []DescriptorBinding
	sets     []DescriptorSetID

	// templates[slot][binding] has Set, Binding and Type filled in.
	templates [][]DescriptorSetWrite
}

// newDescriptor creates a pool for n instances of layout and allocates them.
func newDescriptor(dev DescriptorDevice, layout DescriptorLayout, n int) (*Descriptor, error) {
	sizes := poolSizes(layout.Bindings, n)
	pool, err := dev.CreateDescriptorPool(sizes, uint32(n))
	if err != nil {
		return nil, fmt.Errorf("create descriptor pool %q: %w", layout.Label, err)
	}
	sets, err := dev.AllocateDescriptorSets(pool, layout.SetLayout, n)
	if err != nil {
		dev.DestroyDescriptorPool(pool)
		return nil, fmt.Errorf("allocate descriptor sets %q: %w", layout.Label, err)
	}
	if len(sets) != n {
		dev.DestroyDescriptorPool(pool)
		return nil, fmt.Errorf("allocate descriptor sets %q: got %d sets, want %d", layout.Label, len(sets), n)
	}

	d := &Descriptor{
		label:     layout.Label,
		pool:      pool,
		bindings:  append([]DescriptorBinding(nil), layout.Bindings...),
		sets:      sets,
		templates: make([][]DescriptorSetWrite, n),
	}
	for slot := range n {
		tmpl := make([]DescriptorSetWrite, len(d.bindings))
		for i, b := range d.bindings {
			tmpl[i] = DescriptorSetWrite{
				Set:     sets[slot],
				Binding: uint32(i),
				Type:    b.Type,
			}
		}
		d.templates[slot] = tmpl
	}
	return d, nil
}

// poolSizes sums descriptor counts per type and scales them by n.
func poolSizes(bindings []DescriptorBinding, n int) []DescriptorPoolSize {
	var sizes []DescriptorPoolSize
	for _, b := range bindings {
		found := false
		for i := range sizes {
			if sizes[i].Type == b.Type {
				sizes[i].Count += b.count() * uint32(n)
				found = true
				break
			}
		}
		if !found {
			sizes = append(sizes, DescriptorPoolSize{Type: b.Type, Count: b.count() * uint32(n)})
		}
	}
	return sizes
}

// Label returns the descriptor's debug name.
func (d *Descriptor) Label() string { return d.label }

// Pool returns the backing descriptor pool.
func (d *Descriptor) Pool() DescriptorPoolID { return d.pool }

// Set returns the set instance used by frame slot.
func (d *Descriptor) Set(slot int) DescriptorSetID { return d.sets[slot] }

// Len returns the number of bindings in the layout.
func (d *Descriptor) Len() int { return len(d.bindings) }

// check validates writes against the layout. Write i fills binding i.
func (d *Descriptor) check(writes []DescriptorWrite) error {
	if len(writes) > len(d.bindings) {
		return fmt.Errorf("%w: %s: %d writes for %d bindings",
			ErrTooManyWrites, d.label, len(writes), len(d.bindings))
	}
	for i, w := range writes {
		t := d.bindings[i].Type
		switch w.(type) {
		case BufferWrite:
			if !t.isBuffer() {
				return fmt.Errorf("%w: %s: binding %d is %s, got buffer write", ErrWriteMismatch, d.label, i, t)
			}
		case ImageWrite:
			if t != DescriptorTypeCombinedImageSampler {
				return fmt.Errorf("%w: %s: binding %d is %s, got image write", ErrWriteMismatch, d.label, i, t)
			}
		default:
			return fmt.Errorf("%w: %s: binding %d: unsupported write %T", ErrWriteMismatch, d.label, i, w)
		}
	}
	return nil
}

// resolve fills the slot's templates with writes.
func (d *Descriptor) resolve(slot int, writes []DescriptorWrite) []DescriptorSetWrite {
	tmpl := d.templates[slot]
	out := make([]DescriptorSetWrite, len(writes))
	for i, w := range writes {
		out[i] = tmpl[i]
		out[i].Value = w
	}
	return out
}
