// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderq

import (
	"fmt"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/google/uuid"
)

// TextureDescriptor describes a sampled 2D texture to create from raw,
// already decoded texel data.
type TextureDescriptor struct {
	// Label is an optional debug name. Defaults to "texture-<uuid>".
	Label string

	// Data holds tightly packed rows of texels in Format.
	Data          []byte
	Width, Height uint32

	// Format defaults to RGBA8Unorm.
	Format gputypes.TextureFormat

	// Filter is used for minification, magnification and mipmaps.
	Filter gputypes.FilterMode
}

// Texture is a device image with its view, sampler and allocation.
type Texture struct {
	image   ImageID
	view    ImageViewID
	sampler SamplerID
	alloc   Allocation
	width   uint32
	height  uint32
	format  gputypes.TextureFormat
	label   string
	uid     uuid.UUID

	queue     *commandQueue
	destroyed atomic.Bool
}

// CreateTexture creates an image, uploads desc.Data through the device's
// upload path and creates a view and a sampler, all on the calling
// goroutine. It returns ErrEmptyData when there is no texel data.
func (h Handle) CreateTexture(desc TextureDescriptor) (*Texture, error) {
	if len(desc.Data) == 0 {
		return nil, fmt.Errorf("create texture %q: %w", desc.Label, ErrEmptyData)
	}
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("create texture %q: %w: zero extent %dx%d",
			desc.Label, ErrEmptyData, desc.Width, desc.Height)
	}
	if desc.Format == gputypes.TextureFormatUndefined {
		desc.Format = gputypes.TextureFormatRGBA8Unorm
	}
	uid := uuid.New()
	if desc.Label == "" {
		desc.Label = kindTexture + "-" + uid.String()
	}

	t, err := h.createTexture(desc)
	if err != nil {
		err = fmt.Errorf("create texture %q: %w", desc.Label, err)
		h.shared.report("create texture", err)
		return nil, err
	}
	t.uid = uid
	h.shared.metrics.resourceCreated(kindTexture)
	h.shared.leaks.track(uid, kindTexture, desc.Label, uint64(len(desc.Data)))
	Logger().Debug("renderq: texture created",
		"label", desc.Label, "width", desc.Width, "height", desc.Height, "image", t.image)
	return t, nil
}

func (h Handle) createTexture(desc TextureDescriptor) (*Texture, error) {
	dev := h.shared.dev
	img, req, err := dev.CreateImage(&ImageCreateInfo{
		Label:  desc.Label,
		Width:  desc.Width,
		Height: desc.Height,
		Format: desc.Format,
		Usage:  gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	alloc, err := h.shared.guard.Allocate(&AllocationDescriptor{
		Label:        desc.Label,
		Requirements: req,
		Location:     MemoryLocationGPUOnly,
	})
	if err != nil {
		dev.DestroyImage(img)
		return nil, err
	}
	release := func() {
		_ = h.shared.guard.Free(alloc)
		dev.DestroyImage(img)
	}
	if err := dev.BindImageMemory(img, alloc); err != nil {
		release()
		return nil, fmt.Errorf("bind memory: %w", err)
	}
	if err := dev.UploadImage(img, desc.Data, desc.Width, desc.Height); err != nil {
		release()
		return nil, fmt.Errorf("upload: %w", err)
	}
	view, err := dev.CreateImageView(img, desc.Format)
	if err != nil {
		release()
		return nil, fmt.Errorf("create view: %w", err)
	}
	sampler, err := dev.CreateSampler(desc.Filter)
	if err != nil {
		dev.DestroyImageView(view)
		release()
		return nil, fmt.Errorf("create sampler: %w", err)
	}
	return &Texture{
		image:   img,
		view:    view,
		sampler: sampler,
		alloc:   alloc,
		width:   desc.Width,
		height:  desc.Height,
		format:  desc.Format,
		label:   desc.Label,
		queue:   h.queue,
	}, nil
}

// Image returns the device image ID.
func (t *Texture) Image() ImageID { return t.image }

// View returns the image view ID.
func (t *Texture) View() ImageViewID { return t.view }

// Sampler returns the sampler ID.
func (t *Texture) Sampler() SamplerID { return t.sampler }

// Size returns the texture extent in texels.
func (t *Texture) Size() (width, height uint32) { return t.width, t.height }

// Format returns the texel format.
func (t *Texture) Format() gputypes.TextureFormat { return t.format }

// Label returns the debug name.
func (t *Texture) Label() string { return t.label }

// Write returns the descriptor write binding this texture's view and sampler.
func (t *Texture) Write() ImageWrite {
	return ImageWrite{View: t.view, Sampler: t.sampler}
}

// Destroy enqueues destruction of the sampler, view, image and allocation.
// The same ordering contract as Buffer.Destroy applies.
func (t *Texture) Destroy() error {
	if !t.destroyed.CompareAndSwap(false, true) {
		Logger().Warn("renderq: texture destroyed twice", "label", t.label)
		return ErrAlreadyDestroyed
	}
	err := t.queue.push(DestroyTextureCommand{
		Resource:   t.uid,
		Label:      t.label,
		Image:      t.image,
		View:       t.view,
		Sampler:    t.sampler,
		Allocation: t.alloc,
	})
	if err != nil {
		// Nothing will free it; keep the texture live so its state stays
		// consistent with the leak tracker.
		t.destroyed.Store(false)
		Logger().Warn("renderq: texture destroyed after shutdown, never freed", "label", t.label)
		return err
	}
	return nil
}
