// Command renderqdemo renders frames through renderq, headless on the noop
// HAL backend by default, while producer goroutines stream buffers in and out.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/renderq"
	"github.com/gogpu/renderq/backend"
	_ "github.com/gogpu/renderq/backend/wgpuhal"
)

func main() {
	var (
		backendName = flag.String("backend", backend.NameNoop, "backend to render on")
		width       = flag.Int("width", 800, "render target width")
		height      = flag.Int("height", 600, "render target height")
		frames      = flag.Int("frames", 120, "frames to render")
		inFlight    = flag.Int("inflight", renderq.DefaultFramesInFlight, "frames in flight")
		producers   = flag.Int("producers", 4, "goroutines streaming buffers")
		metricsAddr = flag.String("metrics", "", "serve Prometheus metrics on this address, e.g. :9090")
		verbose     = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	renderq.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := run(*backendName, *width, *height, *frames, *inFlight, *producers, *metricsAddr); err != nil {
		log.Fatalf("renderqdemo: %v", err)
	}
}

func run(name string, width, height, frames, inFlight, producers int, metricsAddr string) error {
	b, err := backend.Open(name, backend.Config{
		Width:  uint32(width),
		Height: uint32(height),
		Images: inFlight + 1,
	})
	if err != nil {
		return err
	}
	defer b.Close()

	reg := prometheus.NewRegistry()
	metrics := renderq.NewMetrics(reg)
	if metricsAddr != "" {
		srv := &http.Server{Addr: metricsAddr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server", "err", err)
			}
		}()
		defer srv.Close()
	}

	leaks := renderq.NewLeakTracker()
	h, err := b.Start(
		renderq.WithFramesInFlight(inFlight),
		renderq.WithClearColor(gputypes.Color{R: 0.1, G: 0.2, B: 0.4, A: 1}),
		renderq.WithMetrics(metrics),
		renderq.WithLeakTracker(leaks),
		renderq.WithLabel("demo"),
	)
	if err != nil {
		return err
	}

	verts, err := h.CreateBuffer(renderq.BufferDescriptor{
		Label:    "triangle",
		Usage:    gputypes.BufferUsageVertex,
		Location: renderq.MemoryLocationCPUToGPU,
		Data:     triangle(0),
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	for p := range producers {
		g.Go(func() error { return stream(gctx, h, p) })
	}

	start := time.Now()
	for i := range frames {
		h.OpenFrame()
		if err := h.SyncContext(gctx); err != nil {
			cancel()
			_ = g.Wait()
			return fmt.Errorf("frame %d: %w", i, err)
		}
		if err := verts.Overwrite(triangle(float32(i) / float32(frames))); err != nil {
			return err
		}
		h.BindViewport(renderq.Viewport{Width: float32(width), Height: float32(height), MaxDepth: 1})
		h.BindScissor(renderq.Rect{Width: uint32(width), Height: uint32(height)})
		h.BindVertexBuffer(verts.ID())
		h.Draw(3)
		h.SubmitFrame()
	}
	elapsed := time.Since(start)

	cancel()
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if err := verts.Destroy(); err != nil {
		return err
	}
	if err := h.Shutdown(); err != nil {
		return err
	}
	h.Wait()

	log.Printf("rendered %d frames on %s in %v, %d leaked resources\n",
		frames, b.Name, elapsed, len(leaks.Live()))
	return nil
}

// stream creates, fills and destroys host-visible buffers until ctx ends.
func stream(ctx context.Context, h renderq.Handle, id int) error {
	for n := 0; ; n++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		b, err := h.CreateBuffer(renderq.BufferDescriptor{
			Label:    fmt.Sprintf("stream-%d-%d", id, n),
			Usage:    gputypes.BufferUsageUniform,
			Location: renderq.MemoryLocationCPUToGPU,
			Size:     256,
		})
		if err != nil {
			return err
		}
		if err := b.Overwrite([]byte{byte(id), byte(n)}); err != nil {
			return err
		}
		if err := b.Destroy(); err != nil {
			return err
		}
		time.Sleep(time.Millisecond)
	}
}

// triangle returns three float32 xy vertices rotated by turn revolutions.
func triangle(turn float32) []byte {
	pts := [3][2]float32{{0, 0.5}, {-0.5, -0.5}, {0.5, -0.5}}
	out := make([]byte, 0, 24)
	for _, p := range pts {
		x, y := rotate(p[0], p[1], turn)
		out = appendFloat32(out, x)
		out = appendFloat32(out, y)
	}
	return out
}
