// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpuhal

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/renderq"
	"github.com/gogpu/wgpu/hal"
)

// bufferAlignment is the size granularity of queue buffer writes.
const bufferAlignment = 4

type bufferEntry struct {
	desc  hal.BufferDescriptor
	buf   hal.Buffer
	alloc *Allocation
}

type imageEntry struct {
	desc hal.TextureDescriptor
	tex  hal.Texture
}

// Device implements renderq.Device on a hal.Device and hal.Queue.
//
// renderq talks in Vulkan terms: objects, memory, fences, semaphores and
// descriptor sets. Device maps those onto WebGPU-shaped HAL objects:
// buffers and textures are created when their memory is bound, fences are
// queue submission indexes, semaphores are ordering tokens the single
// queue already honors, and descriptor sets are bind groups rebuilt on
// every update.
//
// Thread Safety: Device is safe for concurrent use. All tables are
// protected by a mutex.
type Device struct {
	mu     sync.RWMutex
	device hal.Device
	queue  hal.Queue

	nextID atomic.Uint64

	buffers      map[renderq.BufferID]*bufferEntry
	images       map[renderq.ImageID]*imageEntry
	views        map[renderq.ImageViewID]hal.TextureView
	samplers     map[renderq.SamplerID]hal.Sampler
	pipelines    map[renderq.PipelineID]hal.RenderPipeline
	layouts      map[renderq.PipelineLayoutID]hal.PipelineLayout
	setLayouts   map[renderq.DescriptorSetLayoutID]*setLayoutEntry
	pools        map[renderq.DescriptorPoolID]*poolEntry
	sets         map[renderq.DescriptorSetID]*setEntry
	fences       map[renderq.FenceID]*fenceEntry
	semaphores   map[renderq.SemaphoreID]struct{}
	cmds         map[renderq.CommandBufferID]*cmdEntry
	framebuffers map[renderq.FramebufferID]hal.TextureView
}

var _ renderq.Device = (*Device)(nil)

// New wraps an open HAL device and its queue. The caller keeps ownership
// of both.
func New(device hal.Device, queue hal.Queue) *Device {
	d := &Device{
		device:       device,
		queue:        queue,
		buffers:      make(map[renderq.BufferID]*bufferEntry),
		images:       make(map[renderq.ImageID]*imageEntry),
		views:        make(map[renderq.ImageViewID]hal.TextureView),
		samplers:     make(map[renderq.SamplerID]hal.Sampler),
		pipelines:    make(map[renderq.PipelineID]hal.RenderPipeline),
		layouts:      make(map[renderq.PipelineLayoutID]hal.PipelineLayout),
		setLayouts:   make(map[renderq.DescriptorSetLayoutID]*setLayoutEntry),
		pools:        make(map[renderq.DescriptorPoolID]*poolEntry),
		sets:         make(map[renderq.DescriptorSetID]*setEntry),
		fences:       make(map[renderq.FenceID]*fenceEntry),
		semaphores:   make(map[renderq.SemaphoreID]struct{}),
		cmds:         make(map[renderq.CommandBufferID]*cmdEntry),
		framebuffers: make(map[renderq.FramebufferID]hal.TextureView),
	}
	// Start ID generation at 1 (0 is renderq.InvalidID)
	d.nextID.Store(1)
	return d
}

// NewFromProvider shares the GPU device of an external provider such as a
// gogpu window. The provider must implement HalDevice() any and
// HalQueue() any returning hal.Device and hal.Queue.
func NewFromProvider(provider gpucontext.DeviceProvider) (*Device, error) {
	if provider == nil {
		return nil, ErrNilProvider
	}
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHAL
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoHAL)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoHAL)
	}
	renderq.Logger().Info("wgpuhal: using shared GPU device")
	return New(device, queue), nil
}

// HAL returns the wrapped device and queue.
func (d *Device) HAL() (hal.Device, hal.Queue) {
	return d.device, d.queue
}

func (d *Device) newID() uint64 {
	return d.nextID.Add(1) - 1
}

// RegisterPipeline makes a render pipeline bindable by ID.
func (d *Device) RegisterPipeline(p hal.RenderPipeline) renderq.PipelineID {
	id := renderq.PipelineID(d.newID())
	d.mu.Lock()
	d.pipelines[id] = p
	d.mu.Unlock()
	return id
}

// RegisterPipelineLayout makes a pipeline layout usable by ID.
func (d *Device) RegisterPipelineLayout(l hal.PipelineLayout) renderq.PipelineLayoutID {
	id := renderq.PipelineLayoutID(d.newID())
	d.mu.Lock()
	d.layouts[id] = l
	d.mu.Unlock()
	return id
}

// ReleasePipeline forgets a registered pipeline and destroys it.
func (d *Device) ReleasePipeline(id renderq.PipelineID) {
	d.mu.Lock()
	p, ok := d.pipelines[id]
	delete(d.pipelines, id)
	d.mu.Unlock()
	if ok {
		d.device.DestroyRenderPipeline(p)
	}
}

// ReleasePipelineLayout forgets a registered pipeline layout and destroys it.
func (d *Device) ReleasePipelineLayout(id renderq.PipelineLayoutID) {
	d.mu.Lock()
	l, ok := d.layouts[id]
	delete(d.layouts, id)
	d.mu.Unlock()
	if ok {
		d.device.DestroyPipelineLayout(l)
	}
}

// registerFramebuffer makes a render target view acquirable by ID.
func (d *Device) registerFramebuffer(view hal.TextureView) renderq.FramebufferID {
	id := renderq.FramebufferID(d.newID())
	d.mu.Lock()
	d.framebuffers[id] = view
	d.mu.Unlock()
	return id
}

func (d *Device) releaseFramebuffer(id renderq.FramebufferID) {
	d.mu.Lock()
	delete(d.framebuffers, id)
	d.mu.Unlock()
}

// === Buffers ===

func alignedSize(size uint64) uint64 {
	return (size + bufferAlignment - 1) &^ (bufferAlignment - 1)
}

// CreateBuffer records a buffer description. The HAL buffer is created by
// BindBufferMemory.
func (d *Device) CreateBuffer(info *renderq.BufferCreateInfo) (renderq.BufferID, renderq.MemoryRequirements, error) {
	if info == nil || info.Size == 0 {
		return renderq.InvalidID, renderq.MemoryRequirements{}, fmt.Errorf("wgpuhal: create buffer: empty size")
	}
	size := alignedSize(info.Size)
	id := renderq.BufferID(d.newID())
	d.mu.Lock()
	d.buffers[id] = &bufferEntry{desc: hal.BufferDescriptor{
		Label: info.Label,
		Size:  size,
		Usage: info.Usage,
	}}
	d.mu.Unlock()
	return id, renderq.MemoryRequirements{Size: size, Alignment: bufferAlignment, MemoryTypeBits: ^uint32(0)}, nil
}

// BindBufferMemory creates the HAL buffer backing id.
func (d *Device) BindBufferMemory(id renderq.BufferID, ra renderq.Allocation) error {
	a, ok := ra.(*Allocation)
	if !ok {
		return ErrForeignAllocation
	}
	d.mu.RLock()
	e, ok := d.buffers[id]
	d.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: buffer %d", ErrUnknownID, id)
	}

	desc := e.desc
	if a.location.HostVisible() {
		desc.Usage |= gputypes.BufferUsageCopyDst
	}
	buf, err := d.device.CreateBuffer(&desc)
	if err != nil {
		return fmt.Errorf("wgpuhal: create buffer %q: %w", desc.Label, err)
	}
	if err := a.bind(d.queue, buf, desc.Size); err != nil {
		d.device.DestroyBuffer(buf)
		return err
	}

	d.mu.Lock()
	e.buf = buf
	e.alloc = a
	d.mu.Unlock()
	return nil
}

// DestroyBuffer destroys the HAL buffer and forgets id.
func (d *Device) DestroyBuffer(id renderq.BufferID) {
	d.mu.Lock()
	e, ok := d.buffers[id]
	delete(d.buffers, id)
	d.mu.Unlock()
	if ok && e.buf != nil {
		d.device.DestroyBuffer(e.buf)
	}
}

func (d *Device) buffer(id renderq.BufferID) (hal.Buffer, error) {
	d.mu.RLock()
	e, ok := d.buffers[id]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: buffer %d", ErrUnknownID, id)
	}
	if e.buf == nil {
		return nil, fmt.Errorf("%w: buffer %d", ErrNotBound, id)
	}
	return e.buf, nil
}

// === Images ===

// CreateImage records a 2D texture description. The HAL texture is created
// by BindImageMemory.
func (d *Device) CreateImage(info *renderq.ImageCreateInfo) (renderq.ImageID, renderq.MemoryRequirements, error) {
	if info == nil || info.Width == 0 || info.Height == 0 {
		return renderq.InvalidID, renderq.MemoryRequirements{}, fmt.Errorf("wgpuhal: create image: empty extent")
	}
	id := renderq.ImageID(d.newID())
	desc := hal.TextureDescriptor{
		Label: info.Label,
		Size: hal.Extent3D{
			Width:              info.Width,
			Height:             info.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        info.Format,
		Usage:         info.Usage,
	}
	d.mu.Lock()
	d.images[id] = &imageEntry{desc: desc}
	d.mu.Unlock()

	size := uint64(info.Width) * uint64(info.Height) * uint64(bytesPerTexel(info.Format))
	return id, renderq.MemoryRequirements{Size: size, Alignment: bufferAlignment, MemoryTypeBits: ^uint32(0)}, nil
}

// BindImageMemory creates the HAL texture backing id.
func (d *Device) BindImageMemory(id renderq.ImageID, ra renderq.Allocation) error {
	if _, ok := ra.(*Allocation); !ok {
		return ErrForeignAllocation
	}
	d.mu.RLock()
	e, ok := d.images[id]
	d.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: image %d", ErrUnknownID, id)
	}
	tex, err := d.device.CreateTexture(&e.desc)
	if err != nil {
		return fmt.Errorf("wgpuhal: create texture %q: %w", e.desc.Label, err)
	}
	d.mu.Lock()
	e.tex = tex
	d.mu.Unlock()
	return nil
}

// UploadImage writes tightly packed rows into the texture through the queue.
func (d *Device) UploadImage(id renderq.ImageID, data []byte, width, height uint32) error {
	d.mu.RLock()
	e, ok := d.images[id]
	d.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: image %d", ErrUnknownID, id)
	}
	if e.tex == nil {
		return fmt.Errorf("%w: image %d", ErrNotBound, id)
	}
	bpr := width * bytesPerTexel(e.desc.Format)
	if uint64(len(data)) < uint64(bpr)*uint64(height) {
		return fmt.Errorf("wgpuhal: upload %q: %d bytes for %dx%d", e.desc.Label, len(data), width, height)
	}
	err := d.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: e.tex, MipLevel: 0},
		data,
		&hal.ImageDataLayout{Offset: 0, BytesPerRow: bpr, RowsPerImage: height},
		&hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
	)
	if err != nil {
		return fmt.Errorf("wgpuhal: upload %q: %w", e.desc.Label, err)
	}
	return nil
}

// CreateImageView creates a 2D view of the whole texture.
func (d *Device) CreateImageView(id renderq.ImageID, format gputypes.TextureFormat) (renderq.ImageViewID, error) {
	d.mu.RLock()
	e, ok := d.images[id]
	d.mu.RUnlock()
	if !ok {
		return renderq.InvalidID, fmt.Errorf("%w: image %d", ErrUnknownID, id)
	}
	if e.tex == nil {
		return renderq.InvalidID, fmt.Errorf("%w: image %d", ErrNotBound, id)
	}
	view, err := d.device.CreateTextureView(e.tex, &hal.TextureViewDescriptor{
		Label:         e.desc.Label + "_view",
		Format:        format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		return renderq.InvalidID, fmt.Errorf("wgpuhal: create view %q: %w", e.desc.Label, err)
	}
	vid := renderq.ImageViewID(d.newID())
	d.mu.Lock()
	d.views[vid] = view
	d.mu.Unlock()
	return vid, nil
}

// CreateSampler creates a repeating sampler with the given filter for
// magnification, minification and mipmaps.
func (d *Device) CreateSampler(filter gputypes.FilterMode) (renderq.SamplerID, error) {
	s, err := d.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "renderq_sampler",
		AddressModeU: gputypes.AddressModeRepeat,
		AddressModeV: gputypes.AddressModeRepeat,
		AddressModeW: gputypes.AddressModeRepeat,
		MagFilter:    filter,
		MinFilter:    filter,
		MipmapFilter: filter,
	})
	if err != nil {
		return renderq.InvalidID, fmt.Errorf("wgpuhal: create sampler: %w", err)
	}
	id := renderq.SamplerID(d.newID())
	d.mu.Lock()
	d.samplers[id] = s
	d.mu.Unlock()
	return id, nil
}

// DestroyImage destroys the HAL texture and forgets id.
func (d *Device) DestroyImage(id renderq.ImageID) {
	d.mu.Lock()
	e, ok := d.images[id]
	delete(d.images, id)
	d.mu.Unlock()
	if ok && e.tex != nil {
		d.device.DestroyTexture(e.tex)
	}
}

// DestroyImageView destroys a view.
func (d *Device) DestroyImageView(id renderq.ImageViewID) {
	d.mu.Lock()
	v, ok := d.views[id]
	delete(d.views, id)
	d.mu.Unlock()
	if ok {
		d.device.DestroyTextureView(v)
	}
}

// DestroySampler destroys a sampler.
func (d *Device) DestroySampler(id renderq.SamplerID) {
	d.mu.Lock()
	s, ok := d.samplers[id]
	delete(d.samplers, id)
	d.mu.Unlock()
	if ok {
		d.device.DestroySampler(s)
	}
}

// bytesPerTexel returns the texel size of the color formats renderq uploads.
func bytesPerTexel(f gputypes.TextureFormat) uint32 {
	switch f {
	case gputypes.TextureFormatR8Unorm:
		return 1
	default:
		return 4
	}
}

// Stats is a snapshot of the live object tables.
type Stats struct {
	Buffers, Images, Views, Samplers int
	Pools, Sets, Fences, Semaphores  int
	CommandBuffers                   int
}

// Stats returns how many objects of each kind are live.
func (d *Device) Stats() Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return Stats{
		Buffers:        len(d.buffers),
		Images:         len(d.images),
		Views:          len(d.views),
		Samplers:       len(d.samplers),
		Pools:          len(d.pools),
		Sets:           len(d.sets),
		Fences:         len(d.fences),
		Semaphores:     len(d.semaphores),
		CommandBuffers: len(d.cmds),
	}
}
