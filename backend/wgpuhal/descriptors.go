// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpuhal

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/renderq"
	"github.com/gogpu/wgpu/hal"
)

// setLayoutEntry is a bind group layout plus the renderq binding table it
// implements. base[i] is the first WebGPU binding of renderq binding i.
type setLayoutEntry struct {
	label    string
	layout   hal.BindGroupLayout
	bindings []renderq.DescriptorBinding
	base     []uint32
	owned    bool
}

type poolEntry struct {
	maxSets uint32
	sets    []renderq.DescriptorSetID
}

// setEntry holds the latest value of every binding and the bind group
// built from them once all bindings are written.
type setEntry struct {
	layout  *setLayoutEntry
	pool    renderq.DescriptorPoolID
	written []bool
	entries []gputypes.BindGroupEntry
	group   hal.BindGroup
}

// wgpuBindings maps renderq bindings onto WebGPU binding numbers. A
// combined image sampler takes two: the texture view, then the sampler.
func wgpuBindings(bindings []renderq.DescriptorBinding) []uint32 {
	base := make([]uint32, len(bindings))
	var next uint32
	for i, b := range bindings {
		base[i] = next
		if b.Type == renderq.DescriptorTypeCombinedImageSampler {
			next += 2
		} else {
			next++
		}
	}
	return base
}

// RegisterSetLayout makes an existing bind group layout usable as a
// descriptor set layout. The layout must declare its entries in the order
// wgpuBindings assigns: one per buffer binding, and a texture followed by a
// sampler per combined image sampler.
func (d *Device) RegisterSetLayout(label string, layout hal.BindGroupLayout, bindings []renderq.DescriptorBinding) renderq.DescriptorSetLayoutID {
	id := renderq.DescriptorSetLayoutID(d.newID())
	d.mu.Lock()
	d.setLayouts[id] = &setLayoutEntry{
		label:    label,
		layout:   layout,
		bindings: append([]renderq.DescriptorBinding(nil), bindings...),
		base:     wgpuBindings(bindings),
	}
	d.mu.Unlock()
	return id
}

// CreateSetLayout creates a bind group layout for bindings, visible to the
// vertex and fragment stages, and registers it.
func (d *Device) CreateSetLayout(label string, bindings []renderq.DescriptorBinding) (renderq.DescriptorSetLayoutID, error) {
	base := wgpuBindings(bindings)
	visibility := gputypes.ShaderStageVertex | gputypes.ShaderStageFragment
	var entries []gputypes.BindGroupLayoutEntry
	for i, b := range bindings {
		switch b.Type {
		case renderq.DescriptorTypeUniformBuffer:
			entries = append(entries, gputypes.BindGroupLayoutEntry{
				Binding:    base[i],
				Visibility: visibility,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			})
		case renderq.DescriptorTypeStorageBuffer:
			entries = append(entries, gputypes.BindGroupLayoutEntry{
				Binding:    base[i],
				Visibility: visibility,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage},
			})
		case renderq.DescriptorTypeCombinedImageSampler:
			entries = append(entries,
				gputypes.BindGroupLayoutEntry{
					Binding:    base[i],
					Visibility: visibility,
					Texture: &gputypes.TextureBindingLayout{
						SampleType:    gputypes.TextureSampleTypeFloat,
						ViewDimension: gputypes.TextureViewDimension2D,
					},
				},
				gputypes.BindGroupLayoutEntry{
					Binding:    base[i] + 1,
					Visibility: visibility,
					Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
				},
			)
		default:
			return renderq.InvalidID, fmt.Errorf("wgpuhal: set layout %q: unsupported binding type %s", label, b.Type)
		}
	}
	layout, err := d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   label,
		Entries: entries,
	})
	if err != nil {
		return renderq.InvalidID, fmt.Errorf("wgpuhal: create bind group layout %q: %w", label, err)
	}
	id := d.RegisterSetLayout(label, layout, bindings)
	d.mu.Lock()
	d.setLayouts[id].owned = true
	d.mu.Unlock()
	return id, nil
}

// BindGroupLayout returns the HAL layout behind id, for building pipeline
// layouts.
func (d *Device) BindGroupLayout(id renderq.DescriptorSetLayoutID) (hal.BindGroupLayout, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.setLayouts[id]
	if !ok {
		return nil, false
	}
	return e.layout, true
}

// ReleaseSetLayout forgets a set layout, destroying it if CreateSetLayout
// made it.
func (d *Device) ReleaseSetLayout(id renderq.DescriptorSetLayoutID) {
	d.mu.Lock()
	e, ok := d.setLayouts[id]
	delete(d.setLayouts, id)
	d.mu.Unlock()
	if ok && e.owned {
		d.device.DestroyBindGroupLayout(e.layout)
	}
}

// CreateDescriptorPool creates a pool with room for maxSets sets. WebGPU
// bind groups are not pooled, so sizes only feed the debug log.
func (d *Device) CreateDescriptorPool(sizes []renderq.DescriptorPoolSize, maxSets uint32) (renderq.DescriptorPoolID, error) {
	id := renderq.DescriptorPoolID(d.newID())
	d.mu.Lock()
	d.pools[id] = &poolEntry{maxSets: maxSets}
	d.mu.Unlock()
	renderq.Logger().Debug("wgpuhal: descriptor pool created", "pool", id, "maxSets", maxSets, "sizes", sizes)
	return id, nil
}

// AllocateDescriptorSets allocates count sets of layout from pool.
func (d *Device) AllocateDescriptorSets(pool renderq.DescriptorPoolID, layout renderq.DescriptorSetLayoutID, count int) ([]renderq.DescriptorSetID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.pools[pool]
	if !ok {
		return nil, fmt.Errorf("%w: pool %d", ErrUnknownID, pool)
	}
	l, ok := d.setLayouts[layout]
	if !ok {
		return nil, fmt.Errorf("%w: set layout %d", ErrUnknownID, layout)
	}
	if len(p.sets)+count > int(p.maxSets) {
		return nil, fmt.Errorf("%w: %d of %d sets used, %d requested", ErrPoolExhausted, len(p.sets), p.maxSets, count)
	}
	ids := make([]renderq.DescriptorSetID, count)
	for i := range ids {
		id := renderq.DescriptorSetID(d.newID())
		d.sets[id] = &setEntry{
			layout:  l,
			pool:    pool,
			written: make([]bool, len(l.bindings)),
		}
		p.sets = append(p.sets, id)
		ids[i] = id
	}
	return ids, nil
}

// UpdateDescriptorSets applies writes and rebuilds the bind group of every
// touched set whose bindings are all written. The caller guarantees the
// previous bind group is no longer used by pending GPU work.
func (d *Device) UpdateDescriptorSets(writes []renderq.DescriptorSetWrite) error {
	d.mu.Lock()
	touched := make(map[renderq.DescriptorSetID]*setEntry)
	for _, w := range writes {
		s, ok := d.sets[w.Set]
		if !ok {
			d.mu.Unlock()
			return fmt.Errorf("%w: descriptor set %d", ErrUnknownID, w.Set)
		}
		if int(w.Binding) >= len(s.written) {
			d.mu.Unlock()
			return fmt.Errorf("wgpuhal: descriptor set %d: binding %d out of range", w.Set, w.Binding)
		}
		entries, err := d.resolveWrite(s.layout.base[w.Binding], w)
		if err != nil {
			d.mu.Unlock()
			return err
		}
		s.entries = mergeEntries(s.entries, entries)
		s.written[w.Binding] = true
		touched[w.Set] = s
	}
	d.mu.Unlock()

	for id, s := range touched {
		if err := d.rebuild(id, s); err != nil {
			return err
		}
	}
	return nil
}

// resolveWrite converts one write to bind group entries. Called with mu held.
func (d *Device) resolveWrite(binding uint32, w renderq.DescriptorSetWrite) ([]gputypes.BindGroupEntry, error) {
	switch v := w.Value.(type) {
	case renderq.BufferWrite:
		e, ok := d.buffers[v.Buffer]
		if !ok || e.buf == nil {
			return nil, fmt.Errorf("%w: buffer %d", ErrUnknownID, v.Buffer)
		}
		return []gputypes.BindGroupEntry{{
			Binding: binding,
			Resource: gputypes.BufferBinding{
				Buffer: e.buf.NativeHandle(),
				Offset: v.Offset,
				Size:   v.Range,
			},
		}}, nil
	case renderq.ImageWrite:
		view, ok := d.views[v.View]
		if !ok {
			return nil, fmt.Errorf("%w: image view %d", ErrUnknownID, v.View)
		}
		sampler, ok := d.samplers[v.Sampler]
		if !ok {
			return nil, fmt.Errorf("%w: sampler %d", ErrUnknownID, v.Sampler)
		}
		return []gputypes.BindGroupEntry{
			{Binding: binding, Resource: gputypes.TextureViewBinding{
				TextureView: view.NativeHandle(),
			}},
			{Binding: binding + 1, Resource: gputypes.SamplerBinding{
				Sampler: sampler.NativeHandle(),
			}},
		}, nil
	default:
		return nil, fmt.Errorf("wgpuhal: unsupported descriptor write %T", w.Value)
	}
}

// mergeEntries replaces entries with the same binding and appends the rest.
func mergeEntries(dst, src []gputypes.BindGroupEntry) []gputypes.BindGroupEntry {
next:
	for _, e := range src {
		for i := range dst {
			if dst[i].Binding == e.Binding {
				dst[i] = e
				continue next
			}
		}
		dst = append(dst, e)
	}
	return dst
}

// rebuild recreates the bind group of s when it is complete.
func (d *Device) rebuild(id renderq.DescriptorSetID, s *setEntry) error {
	d.mu.RLock()
	complete := true
	for _, w := range s.written {
		complete = complete && w
	}
	entries := append([]gputypes.BindGroupEntry(nil), s.entries...)
	d.mu.RUnlock()
	if !complete {
		return nil
	}

	group, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   s.layout.label,
		Layout:  s.layout.layout,
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("wgpuhal: create bind group for set %d: %w", id, err)
	}
	d.mu.Lock()
	old := s.group
	s.group = group
	d.mu.Unlock()
	if old != nil {
		d.device.DestroyBindGroup(old)
	}
	return nil
}

// DestroyDescriptorPool destroys every set allocated from pool.
func (d *Device) DestroyDescriptorPool(pool renderq.DescriptorPoolID) {
	d.mu.Lock()
	p, ok := d.pools[pool]
	delete(d.pools, pool)
	var groups []hal.BindGroup
	if ok {
		for _, id := range p.sets {
			if s := d.sets[id]; s != nil && s.group != nil {
				groups = append(groups, s.group)
			}
			delete(d.sets, id)
		}
	}
	d.mu.Unlock()
	for _, g := range groups {
		d.device.DestroyBindGroup(g)
	}
}
