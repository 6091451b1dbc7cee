// Package backend provides a registry of renderq backends.
//
// A backend bundles the three collaborators renderq.New needs: a Device,
// a MemoryAllocator and a Swapchain. Backend packages register a Factory
// from init(); applications pick one by name at runtime.
//
// # Backend Registration
//
// The headless noop backend is registered by package wgpuhal:
//
//	import _ "github.com/gogpu/renderq/backend/wgpuhal"
//
// # Backend Selection
//
// Use Default to open the best available backend, or Open to request
// a specific backend by name:
//
//	b, err := backend.Open(backend.NameNoop, backend.Config{Width: 800, Height: 600})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer b.Close()
//
//	h, err := b.Start(renderq.WithFramesInFlight(2))
//
// Close the backend only after the render actor has stopped.
package backend
