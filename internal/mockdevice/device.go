// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package mockdevice provides an in-memory renderq.Device that records every
// call in order. It is used by renderq's tests to observe what the render
// actor executes.
package mockdevice

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/renderq"
)

// Operation names recorded in the call log.
const (
	OpCreateBuffer      = "create-buffer"
	OpBindBufferMemory  = "bind-buffer-memory"
	OpDestroyBuffer     = "destroy-buffer"
	OpCreateImage       = "create-image"
	OpBindImageMemory   = "bind-image-memory"
	OpUploadImage       = "upload-image"
	OpCreateImageView   = "create-image-view"
	OpCreateSampler     = "create-sampler"
	OpDestroyImage      = "destroy-image"
	OpDestroyImageView  = "destroy-image-view"
	OpDestroySampler    = "destroy-sampler"
	OpWaitFence         = "wait-fence"
	OpResetFence        = "reset-fence"
	OpResetCommands     = "reset-command-buffer"
	OpBeginCommands     = "begin-command-buffer"
	OpEndCommands       = "end-command-buffer"
	OpBeginRenderPass   = "begin-render-pass"
	OpEndRenderPass     = "end-render-pass"
	OpBindPipeline      = "bind-pipeline"
	OpSetViewport       = "set-viewport"
	OpSetScissor        = "set-scissor"
	OpBindDescriptorSet = "bind-descriptor-set"
	OpBindVertexBuffer  = "bind-vertex-buffer"
	OpBindIndexBuffer   = "bind-index-buffer"
	OpDraw              = "draw"
	OpDrawIndexed       = "draw-indexed"
	OpSubmit            = "submit"
	OpUpdateDescriptors = "update-descriptor-sets"
	OpCreatePool        = "create-descriptor-pool"
	OpAllocateSets      = "allocate-descriptor-sets"
	OpDestroyPool       = "destroy-descriptor-pool"
	OpWaitIdle          = "wait-idle"
	OpAcquire           = "acquire"
	OpPresent           = "present"
)

// ErrInjected is the default error returned by operations set up with FailOn.
var ErrInjected = errors.New("mockdevice: injected failure")

// Call is one recorded device call. ID is the primary object of the call
// (buffer, pipeline, fence, framebuffer...). Arg carries a count or slot.
type Call struct {
	Op  string
	ID  uint64
	Arg uint64
}

func (c Call) String() string {
	return fmt.Sprintf("%s(%d, %d)", c.Op, c.ID, c.Arg)
}

type buffer struct {
	size  uint64
	alloc renderq.Allocation
}

// Device is a recording renderq.Device. Fences signal on submit unless
// HoldFences is called. The zero value is not usable; call New.
type Device struct {
	mu     sync.Mutex
	cond   *sync.Cond
	nextID uint64
	calls  []Call
	fail   map[string]error

	buffers  map[renderq.BufferID]*buffer
	images   map[renderq.ImageID][]byte
	fences   map[renderq.FenceID]bool
	sets     map[renderq.DescriptorSetID]map[uint32]renderq.DescriptorWrite
	pools    map[renderq.DescriptorPoolID][]renderq.DescriptorSetID
	recorded map[renderq.CommandBufferID][]Call
	open     map[renderq.CommandBufferID]bool

	holdFences bool
	pending    []renderq.FenceID
}

// New creates an empty recording device.
func New() *Device {
	d := &Device{
		fail:     make(map[string]error),
		buffers:  make(map[renderq.BufferID]*buffer),
		images:   make(map[renderq.ImageID][]byte),
		fences:   make(map[renderq.FenceID]bool),
		sets:     make(map[renderq.DescriptorSetID]map[uint32]renderq.DescriptorWrite),
		pools:    make(map[renderq.DescriptorPoolID][]renderq.DescriptorSetID),
		recorded: make(map[renderq.CommandBufferID][]Call),
		open:     make(map[renderq.CommandBufferID]bool),
	}
	d.cond = sync.NewCond(&d.mu)
	return d
}

// FailOn makes every later call of op return err. A nil err uses ErrInjected.
func (d *Device) FailOn(op string, err error) {
	if err == nil {
		err = ErrInjected
	}
	d.mu.Lock()
	d.fail[op] = err
	d.mu.Unlock()
}

// HoldFences stops Submit from signalling fences. Held fences are signalled
// by ReleaseFences.
func (d *Device) HoldFences() {
	d.mu.Lock()
	d.holdFences = true
	d.mu.Unlock()
}

// ReleaseFences signals every held fence and resumes signalling on submit.
func (d *Device) ReleaseFences() {
	d.mu.Lock()
	d.holdFences = false
	for _, f := range d.pending {
		d.fences[f] = true
	}
	d.pending = nil
	d.cond.Broadcast()
	d.mu.Unlock()
}

// Calls returns a copy of the call log.
func (d *Device) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.calls)
}

// Ops returns the operation names of the call log, filtered to ops if any
// are given.
func (d *Device) Ops(ops ...string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.calls))
	for _, c := range d.calls {
		if len(ops) == 0 || slices.Contains(ops, c.Op) {
			out = append(out, c.Op)
		}
	}
	return out
}

// Index returns the position of the first call of op on id, or -1.
func (d *Device) Index(op string, id uint64) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, c := range d.calls {
		if c.Op == op && c.ID == id {
			return i
		}
	}
	return -1
}

// Count returns how many times op was called.
func (d *Device) Count(op string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Recorded returns the calls recorded into cb since its last reset.
func (d *Device) Recorded(cb renderq.CommandBufferID) []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.recorded[cb])
}

// DescriptorWrites returns the binding values last written into set.
func (d *Device) DescriptorWrites(set renderq.DescriptorSetID) map[uint32]renderq.DescriptorWrite {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[uint32]renderq.DescriptorWrite, len(d.sets[set]))
	for k, v := range d.sets[set] {
		out[k] = v
	}
	return out
}

// LiveBuffers returns the number of buffers not yet destroyed.
func (d *Device) LiveBuffers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.buffers)
}

// LiveImages returns the number of images not yet destroyed.
func (d *Device) LiveImages() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.images)
}

// ImageData returns the bytes uploaded into img.
func (d *Device) ImageData(img renderq.ImageID) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.images[img])
}

// LivePools returns the number of descriptor pools not yet destroyed.
func (d *Device) LivePools() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pools)
}

// record appends a call and returns the injected error for op, if any.
// Must be called with mu held.
func (d *Device) record(op string, id, arg uint64) error {
	d.calls = append(d.calls, Call{Op: op, ID: id, Arg: arg})
	return d.fail[op]
}

// recordCmd records a call and appends it to cb's recording.
func (d *Device) recordCmd(cb renderq.CommandBufferID, op string, id, arg uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_ = d.record(op, id, arg)
	d.recorded[cb] = append(d.recorded[cb], Call{Op: op, ID: id, Arg: arg})
}

// id returns a fresh object ID. Must be called with mu held.
func (d *Device) id() uint64 {
	d.nextID++
	return d.nextID
}

// --------------------------------------------------------------------------
// Resources
// --------------------------------------------------------------------------

// CreateBuffer implements renderq.ResourceDevice.
func (d *Device) CreateBuffer(info *renderq.BufferCreateInfo) (renderq.BufferID, renderq.MemoryRequirements, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := renderq.BufferID(d.id())
	if err := d.record(OpCreateBuffer, uint64(id), info.Size); err != nil {
		return renderq.InvalidID, renderq.MemoryRequirements{}, err
	}
	d.buffers[id] = &buffer{size: info.Size}
	return id, renderq.MemoryRequirements{Size: info.Size, Alignment: 256, MemoryTypeBits: ^uint32(0)}, nil
}

// BindBufferMemory implements renderq.ResourceDevice.
func (d *Device) BindBufferMemory(id renderq.BufferID, a renderq.Allocation) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record(OpBindBufferMemory, uint64(id), a.Size()); err != nil {
		return err
	}
	b, ok := d.buffers[id]
	if !ok {
		return fmt.Errorf("mockdevice: unknown buffer %d", id)
	}
	if a.Size() < b.size {
		return fmt.Errorf("mockdevice: allocation of %d bytes too small for buffer of %d", a.Size(), b.size)
	}
	b.alloc = a
	return nil
}

// DestroyBuffer implements renderq.ResourceDevice.
func (d *Device) DestroyBuffer(id renderq.BufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_ = d.record(OpDestroyBuffer, uint64(id), 0)
	delete(d.buffers, id)
}

// CreateImage implements renderq.ResourceDevice.
func (d *Device) CreateImage(info *renderq.ImageCreateInfo) (renderq.ImageID, renderq.MemoryRequirements, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := renderq.ImageID(d.id())
	size := uint64(info.Width) * uint64(info.Height) * 4
	if err := d.record(OpCreateImage, uint64(id), size); err != nil {
		return renderq.InvalidID, renderq.MemoryRequirements{}, err
	}
	d.images[id] = nil
	return id, renderq.MemoryRequirements{Size: size, Alignment: 4096, MemoryTypeBits: ^uint32(0)}, nil
}

// BindImageMemory implements renderq.ResourceDevice.
func (d *Device) BindImageMemory(id renderq.ImageID, a renderq.Allocation) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.record(OpBindImageMemory, uint64(id), a.Size())
}

// UploadImage implements renderq.ResourceDevice.
func (d *Device) UploadImage(id renderq.ImageID, data []byte, width, height uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record(OpUploadImage, uint64(id), uint64(len(data))); err != nil {
		return err
	}
	if _, ok := d.images[id]; !ok {
		return fmt.Errorf("mockdevice: unknown image %d", id)
	}
	d.images[id] = slices.Clone(data)
	return nil
}

// CreateImageView implements renderq.ResourceDevice.
func (d *Device) CreateImageView(img renderq.ImageID, _ gputypes.TextureFormat) (renderq.ImageViewID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := renderq.ImageViewID(d.id())
	if err := d.record(OpCreateImageView, uint64(id), uint64(img)); err != nil {
		return renderq.InvalidID, err
	}
	return id, nil
}

// CreateSampler implements renderq.ResourceDevice.
func (d *Device) CreateSampler(filter gputypes.FilterMode) (renderq.SamplerID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := renderq.SamplerID(d.id())
	if err := d.record(OpCreateSampler, uint64(id), uint64(filter)); err != nil {
		return renderq.InvalidID, err
	}
	return id, nil
}

// DestroyImage implements renderq.ResourceDevice.
func (d *Device) DestroyImage(id renderq.ImageID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_ = d.record(OpDestroyImage, uint64(id), 0)
	delete(d.images, id)
}

// DestroyImageView implements renderq.ResourceDevice.
func (d *Device) DestroyImageView(id renderq.ImageViewID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_ = d.record(OpDestroyImageView, uint64(id), 0)
}

// DestroySampler implements renderq.ResourceDevice.
func (d *Device) DestroySampler(id renderq.SamplerID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_ = d.record(OpDestroySampler, uint64(id), 0)
}

// --------------------------------------------------------------------------
// Synchronization
// --------------------------------------------------------------------------

// CreateFence implements renderq.SyncDevice.
func (d *Device) CreateFence(signaled bool) (renderq.FenceID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := renderq.FenceID(d.id())
	d.fences[id] = signaled
	return id, nil
}

// WaitFence implements renderq.SyncDevice. It blocks while the fence is
// held by HoldFences.
func (d *Device) WaitFence(id renderq.FenceID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record(OpWaitFence, uint64(id), 0); err != nil {
		return err
	}
	for !d.fences[id] && slices.Contains(d.pending, id) {
		d.cond.Wait()
	}
	return nil
}

// ResetFence implements renderq.SyncDevice.
func (d *Device) ResetFence(id renderq.FenceID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record(OpResetFence, uint64(id), 0); err != nil {
		return err
	}
	d.fences[id] = false
	return nil
}

// DestroyFence implements renderq.SyncDevice.
func (d *Device) DestroyFence(id renderq.FenceID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.fences, id)
}

// CreateSemaphore implements renderq.SyncDevice.
func (d *Device) CreateSemaphore() (renderq.SemaphoreID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return renderq.SemaphoreID(d.id()), nil
}

// DestroySemaphore implements renderq.SyncDevice.
func (d *Device) DestroySemaphore(renderq.SemaphoreID) {}

// WaitIdle implements renderq.SyncDevice.
func (d *Device) WaitIdle() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.record(OpWaitIdle, 0, 0)
}

// --------------------------------------------------------------------------
// Command recording
// --------------------------------------------------------------------------

// AllocateCommandBuffer implements renderq.CommandRecorder.
func (d *Device) AllocateCommandBuffer() (renderq.CommandBufferID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return renderq.CommandBufferID(d.id()), nil
}

// FreeCommandBuffer implements renderq.CommandRecorder.
func (d *Device) FreeCommandBuffer(cb renderq.CommandBufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.recorded, cb)
	delete(d.open, cb)
}

// ResetCommandBuffer implements renderq.CommandRecorder.
func (d *Device) ResetCommandBuffer(cb renderq.CommandBufferID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record(OpResetCommands, uint64(cb), 0); err != nil {
		return err
	}
	d.recorded[cb] = nil
	d.open[cb] = false
	return nil
}

// BeginCommandBuffer implements renderq.CommandRecorder.
func (d *Device) BeginCommandBuffer(cb renderq.CommandBufferID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record(OpBeginCommands, uint64(cb), 0); err != nil {
		return err
	}
	if d.open[cb] {
		return fmt.Errorf("mockdevice: command buffer %d already recording", cb)
	}
	d.open[cb] = true
	return nil
}

// EndCommandBuffer implements renderq.CommandRecorder.
func (d *Device) EndCommandBuffer(cb renderq.CommandBufferID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record(OpEndCommands, uint64(cb), 0); err != nil {
		return err
	}
	if !d.open[cb] {
		return fmt.Errorf("mockdevice: command buffer %d not recording", cb)
	}
	d.open[cb] = false
	return nil
}

// BeginRenderPass implements renderq.CommandRecorder.
func (d *Device) BeginRenderPass(cb renderq.CommandBufferID, target renderq.FramebufferID, _ renderq.ClearValues) {
	d.recordCmd(cb, OpBeginRenderPass, uint64(target), 0)
}

// EndRenderPass implements renderq.CommandRecorder.
func (d *Device) EndRenderPass(cb renderq.CommandBufferID) {
	d.recordCmd(cb, OpEndRenderPass, 0, 0)
}

// BindPipeline implements renderq.CommandRecorder.
func (d *Device) BindPipeline(cb renderq.CommandBufferID, p renderq.PipelineID) {
	d.recordCmd(cb, OpBindPipeline, uint64(p), 0)
}

// SetViewport implements renderq.CommandRecorder.
func (d *Device) SetViewport(cb renderq.CommandBufferID, v renderq.Viewport) {
	d.recordCmd(cb, OpSetViewport, uint64(v.Width), uint64(v.Height))
}

// SetScissor implements renderq.CommandRecorder.
func (d *Device) SetScissor(cb renderq.CommandBufferID, r renderq.Rect) {
	d.recordCmd(cb, OpSetScissor, uint64(r.Width), uint64(r.Height))
}

// BindDescriptorSet implements renderq.CommandRecorder.
func (d *Device) BindDescriptorSet(cb renderq.CommandBufferID, layout renderq.PipelineLayoutID, set renderq.DescriptorSetID) {
	d.recordCmd(cb, OpBindDescriptorSet, uint64(set), uint64(layout))
}

// BindVertexBuffer implements renderq.CommandRecorder.
func (d *Device) BindVertexBuffer(cb renderq.CommandBufferID, buf renderq.BufferID, offset uint64) {
	d.recordCmd(cb, OpBindVertexBuffer, uint64(buf), offset)
}

// BindIndexBuffer implements renderq.CommandRecorder.
func (d *Device) BindIndexBuffer(cb renderq.CommandBufferID, buf renderq.BufferID, offset uint64, _ gputypes.IndexFormat) {
	d.recordCmd(cb, OpBindIndexBuffer, uint64(buf), offset)
}

// Draw implements renderq.CommandRecorder.
func (d *Device) Draw(cb renderq.CommandBufferID, vertexCount, instanceCount, _, _ uint32) {
	d.recordCmd(cb, OpDraw, uint64(vertexCount), uint64(instanceCount))
}

// DrawIndexed implements renderq.CommandRecorder.
func (d *Device) DrawIndexed(cb renderq.CommandBufferID, indexCount, instanceCount, _ uint32, _ int32, _ uint32) {
	d.recordCmd(cb, OpDrawIndexed, uint64(indexCount), uint64(instanceCount))
}

// Submit implements renderq.CommandRecorder. The fence is signalled at once
// unless fences are held.
func (d *Device) Submit(cb renderq.CommandBufferID, _, _ renderq.SemaphoreID, fence renderq.FenceID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record(OpSubmit, uint64(cb), uint64(fence)); err != nil {
		return err
	}
	if d.open[cb] {
		return fmt.Errorf("mockdevice: submit of command buffer %d still recording", cb)
	}
	if d.holdFences {
		d.pending = append(d.pending, fence)
		return nil
	}
	d.fences[fence] = true
	d.cond.Broadcast()
	return nil
}

// --------------------------------------------------------------------------
// Descriptors
// --------------------------------------------------------------------------

// CreateDescriptorPool implements renderq.DescriptorDevice.
func (d *Device) CreateDescriptorPool(sizes []renderq.DescriptorPoolSize, maxSets uint32) (renderq.DescriptorPoolID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := renderq.DescriptorPoolID(d.id())
	if err := d.record(OpCreatePool, uint64(id), uint64(maxSets)); err != nil {
		return renderq.InvalidID, err
	}
	d.pools[id] = nil
	return id, nil
}

// AllocateDescriptorSets implements renderq.DescriptorDevice.
func (d *Device) AllocateDescriptorSets(pool renderq.DescriptorPoolID, _ renderq.DescriptorSetLayoutID, count int) ([]renderq.DescriptorSetID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record(OpAllocateSets, uint64(pool), uint64(count)); err != nil {
		return nil, err
	}
	if _, ok := d.pools[pool]; !ok {
		return nil, fmt.Errorf("mockdevice: unknown descriptor pool %d", pool)
	}
	sets := make([]renderq.DescriptorSetID, count)
	for i := range sets {
		sets[i] = renderq.DescriptorSetID(d.id())
		d.sets[sets[i]] = make(map[uint32]renderq.DescriptorWrite)
	}
	d.pools[pool] = sets
	return sets, nil
}

// UpdateDescriptorSets implements renderq.DescriptorDevice.
func (d *Device) UpdateDescriptorSets(writes []renderq.DescriptorSetWrite) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, w := range writes {
		if err := d.record(OpUpdateDescriptors, uint64(w.Set), uint64(w.Binding)); err != nil {
			return err
		}
		m, ok := d.sets[w.Set]
		if !ok {
			return fmt.Errorf("mockdevice: unknown descriptor set %d", w.Set)
		}
		m[w.Binding] = w.Value
	}
	return nil
}

// DestroyDescriptorPool implements renderq.DescriptorDevice.
func (d *Device) DestroyDescriptorPool(pool renderq.DescriptorPoolID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_ = d.record(OpDestroyPool, uint64(pool), 0)
	for _, s := range d.pools[pool] {
		delete(d.sets, s)
	}
	delete(d.pools, pool)
}

var _ renderq.Device = (*Device)(nil)
