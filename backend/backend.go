package backend

import (
	"errors"
	"sync"

	"github.com/gogpu/renderq"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not registered.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrInvalidConfig is returned for a zero-sized render target.
	ErrInvalidConfig = errors.New("backend: invalid config")
)

// Config describes the render target a backend is opened for.
type Config struct {
	Width, Height uint32

	// Images is the number of swapchain images. Zero lets the backend choose.
	Images int
}

func (c Config) validate() error {
	if c.Width == 0 || c.Height == 0 {
		return ErrInvalidConfig
	}
	return nil
}

// Backend bundles the collaborators renderq.New needs: a device, its
// memory allocator and a swapchain.
type Backend struct {
	Name      string
	Device    renderq.Device
	Allocator renderq.MemoryAllocator
	Swapchain renderq.Swapchain

	closeOnce sync.Once
	close     func()
}

// New assembles a Backend. release, if non-nil, runs once on Close.
func New(name string, dev renderq.Device, alloc renderq.MemoryAllocator, sc renderq.Swapchain, release func()) *Backend {
	return &Backend{
		Name:      name,
		Device:    dev,
		Allocator: alloc,
		Swapchain: sc,
		close:     release,
	}
}

// Start creates a render actor on the backend.
func (b *Backend) Start(opts ...renderq.Option) (renderq.Handle, error) {
	return renderq.New(b.Device, b.Allocator, b.Swapchain, opts...)
}

// Close releases all backend resources. Call it after the render actor
// has stopped. Close is idempotent.
func (b *Backend) Close() {
	b.closeOnce.Do(func() {
		if b.close != nil {
			b.close()
		}
	})
}
