// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderq_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gogpu/renderq"
	"github.com/gogpu/renderq/internal/mockdevice"
)

func TestFrameSlotsAdvanceModN(t *testing.T) {
	tests := []struct {
		name   string
		n      int
		frames int
	}{
		{"single slot", 1, 4},
		{"double buffered", 2, 7},
		{"triple buffered", 3, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, renderq.WithFramesInFlight(tt.n))
			if got := f.h.FramesInFlight(); got != tt.n {
				t.Fatalf("FramesInFlight() = %d, want %d", got, tt.n)
			}
			for range tt.frames {
				f.frame(t, nil)
			}
			// The next frame opens on slot frames mod N.
			f.barrier(t)
			f.h.SubmitFrame()
			f.stop(t)
			f.noFatal(t)

			var acquired, presented []uint64
			for _, c := range f.dev.Calls() {
				switch c.Op {
				case mockdevice.OpAcquire:
					acquired = append(acquired, c.Arg)
				case mockdevice.OpPresent:
					presented = append(presented, c.Arg)
				}
			}
			if len(acquired) != tt.frames+1 {
				t.Fatalf("acquired %d frames, want %d", len(acquired), tt.frames+1)
			}
			for k, slot := range acquired {
				if want := uint64(k % tt.n); slot != want {
					t.Errorf("frame %d acquired slot %d, want %d", k, slot, want)
				}
			}
			for k, slot := range presented {
				if want := uint64(k % tt.n); slot != want {
					t.Errorf("frame %d presented slot %d, want %d", k, slot, want)
				}
			}
		})
	}
}

func TestFrameCommandOrder(t *testing.T) {
	f := newFixture(t)
	f.frame(t, func(h renderq.Handle) {
		h.BindPipeline(7)
		h.BindViewport(renderq.Viewport{Width: 640, Height: 480, MaxDepth: 1})
		h.BindScissor(renderq.Rect{Width: 640, Height: 480})
		h.Draw(3)
	})
	f.stop(t)
	f.noFatal(t)

	want := []string{
		mockdevice.OpWaitFence,
		mockdevice.OpResetFence,
		mockdevice.OpResetCommands,
		mockdevice.OpAcquire,
		mockdevice.OpBeginCommands,
		mockdevice.OpBeginRenderPass,
		mockdevice.OpBindPipeline,
		mockdevice.OpSetViewport,
		mockdevice.OpSetScissor,
		mockdevice.OpDraw,
		mockdevice.OpEndRenderPass,
		mockdevice.OpEndCommands,
		mockdevice.OpSubmit,
		mockdevice.OpPresent,
		mockdevice.OpWaitIdle,
	}
	got := f.dev.Ops()
	if len(got) != len(want) {
		t.Fatalf("ops = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("op[%d] = %s, want %s (all: %v)", i, got[i], want[i], got)
		}
	}
}

func TestBindDrawDestroyOrder(t *testing.T) {
	f := newFixture(t)
	a := f.hostBuffer(t, "A", make([]byte, 36))

	f.frame(t, func(h renderq.Handle) {
		h.BindVertexBuffer(a.ID())
		h.Draw(3)
		if err := a.Destroy(); err != nil {
			t.Errorf("Destroy() = %v", err)
		}
	})
	f.stop(t)
	f.noFatal(t)

	bind := f.dev.Index(mockdevice.OpBindVertexBuffer, uint64(a.ID()))
	draw := f.dev.Index(mockdevice.OpDraw, 3)
	destroy := f.dev.Index(mockdevice.OpDestroyBuffer, uint64(a.ID()))
	if bind < 0 || draw < 0 || destroy < 0 {
		t.Fatalf("missing calls: bind=%d draw=%d destroy=%d", bind, draw, destroy)
	}
	if bind >= draw || draw >= destroy {
		t.Errorf("order bind=%d draw=%d destroy=%d, want bind < draw < destroy", bind, draw, destroy)
	}
}

func TestDestroyAfterSubmitLeavesOthersUntouched(t *testing.T) {
	f := newFixture(t)
	dataB := bytes.Repeat([]byte{5, 6, 7, 8}, 32)
	a := f.hostBuffer(t, "A", bytes.Repeat([]byte{1}, 64))
	b := f.hostBuffer(t, "B", dataB)
	if a.Size() != 64 || b.Size() != 128 {
		t.Fatalf("sizes A=%d B=%d, want 64 and 128", a.Size(), b.Size())
	}

	f.frame(t, func(h renderq.Handle) {
		h.BindVertexBuffer(a.ID())
		h.Draw(3)
		h.BindVertexBuffer(b.ID())
		h.Draw(3)
	})
	if err := a.Destroy(); err != nil {
		t.Fatalf("Destroy(A) = %v", err)
	}
	f.barrier(t)

	submit := -1
	for i, c := range f.dev.Calls() {
		if c.Op == mockdevice.OpSubmit {
			submit = i
			break
		}
	}
	present := f.dev.Index(mockdevice.OpPresent, uint64(f.sc.Targets()[0]))
	destroyA := f.dev.Index(mockdevice.OpDestroyBuffer, uint64(a.ID()))
	if submit < 0 || present < 0 {
		t.Fatalf("frame not submitted: submit=%d present=%d", submit, present)
	}
	if destroyA < present || destroyA < submit {
		t.Errorf("destroy(A) at %d, want after submit %d and present %d", destroyA, submit, present)
	}
	if i := f.dev.Index(mockdevice.OpDestroyBuffer, uint64(b.ID())); i >= 0 {
		t.Errorf("B destroyed at %d, want untouched", i)
	}

	got := make([]byte, 128)
	if err := b.Read(got); err != nil {
		t.Fatalf("B.Read() = %v", err)
	}
	if !bytes.Equal(got, dataB) {
		t.Errorf("B contents changed: %v", got)
	}
	if f.alloc.Live() != 1 {
		t.Errorf("live allocations = %d, want 1", f.alloc.Live())
	}
	f.h.SubmitFrame()
	f.noFatal(t)
}

func TestSyncBlocksBeforeOpenFrame(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := f.h.SyncContext(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("SyncContext() before OpenFrame = %v, want DeadlineExceeded", err)
	}
}

func TestSyncAfterShutdown(t *testing.T) {
	f := newFixture(t)
	f.stop(t)

	if err := f.h.Sync(); !errors.Is(err, renderq.ErrClosed) {
		t.Errorf("Sync() after shutdown = %v, want ErrClosed", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := f.h.SyncContext(ctx); !errors.Is(err, renderq.ErrClosed) {
		t.Errorf("SyncContext() after shutdown = %v, want ErrClosed", err)
	}
	if err := f.h.Shutdown(); !errors.Is(err, renderq.ErrClosed) {
		t.Errorf("second Shutdown() = %v, want ErrClosed", err)
	}
}

func TestPendingSyncReleasedByShutdown(t *testing.T) {
	f := newFixture(t)

	done := make(chan error, 1)
	go func() { done <- f.h.Sync() }()

	time.Sleep(10 * time.Millisecond)
	f.stop(t)

	select {
	case err := <-done:
		if !errors.Is(err, renderq.ErrClosed) {
			t.Errorf("pending Sync() = %v, want ErrClosed", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("pending Sync() not released by shutdown")
	}
}

func TestShutdownWithUntakenTokens(t *testing.T) {
	for _, k := range []int{1, 2, 5} {
		f := newFixture(t, renderq.WithFramesInFlight(2))
		for range k {
			f.h.OpenFrame()
			f.h.SubmitFrame()
		}
		f.stop(t)
		f.noFatal(t)

		if got := f.dev.Count(mockdevice.OpPresent); got != k {
			t.Errorf("k=%d: presented %d frames, want %d", k, got, k)
		}
		if err := f.h.Sync(); !errors.Is(err, renderq.ErrClosed) {
			t.Errorf("k=%d: Sync() after shutdown = %v, want ErrClosed", k, err)
		}
	}
}

func TestSyncTimeoutDoesNotStallActor(t *testing.T) {
	f := newFixture(t)
	f.dev.HoldFences()
	f.frame(t, nil)
	f.frame(t, nil)

	// The third frame waits on slot 0; the producer gives up on it.
	f.h.OpenFrame()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := f.h.SyncContext(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("SyncContext() = %v, want DeadlineExceeded", err)
	}
	f.h.SubmitFrame()
	f.h.OpenFrame()
	f.h.SubmitFrame()
	f.dev.ReleaseFences()

	f.stop(t)
	f.noFatal(t)
	if got := f.dev.Count(mockdevice.OpPresent); got != 4 {
		t.Errorf("presented %d frames, want 4", got)
	}
}

func TestEnqueueAfterShutdownIsFatal(t *testing.T) {
	f := newFixture(t)
	f.stop(t)

	f.h.Draw(3)

	select {
	case err := <-f.fatal:
		var fe *renderq.FatalError
		if !errors.As(err, &fe) {
			t.Fatalf("fatal error = %T, want *FatalError", err)
		}
		if !errors.Is(err, renderq.ErrClosed) {
			t.Errorf("fatal error = %v, want ErrClosed", err)
		}
	default:
		t.Fatal("enqueue after shutdown did not reach the fatal handler")
	}
	if n := f.dev.Count(mockdevice.OpDraw); n != 0 {
		t.Errorf("draw executed %d times after shutdown", n)
	}
}

func TestOpenFrameWaitsForInFlightFence(t *testing.T) {
	f := newFixture(t, renderq.WithFramesInFlight(2))
	f.dev.HoldFences()

	// Two frames fill both slots; their fences stay unsignalled.
	f.frame(t, nil)
	f.frame(t, nil)

	f.h.OpenFrame()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := f.h.SyncContext(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("third frame opened while both slots in flight: %v", err)
	}

	f.dev.ReleaseFences()
	if err := f.h.Sync(); err != nil {
		t.Fatalf("Sync() after release = %v", err)
	}
	f.h.SubmitFrame()
	f.stop(t)
	f.noFatal(t)

	if got := f.dev.Count(mockdevice.OpPresent); got != 3 {
		t.Errorf("presented %d frames, want 3", got)
	}
}

func TestDeviceErrorIsFatal(t *testing.T) {
	f := newFixture(t)
	f.dev.FailOn(mockdevice.OpSubmit, nil)

	f.frame(t, func(h renderq.Handle) { h.Draw(3) })

	select {
	case <-f.h.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("actor did not stop after fatal error")
	}
	select {
	case err := <-f.fatal:
		var fe *renderq.FatalError
		if !errors.As(err, &fe) || fe.Op != "SubmitFrame" {
			t.Errorf("fatal error = %v, want *FatalError for SubmitFrame", err)
		}
		if !errors.Is(err, mockdevice.ErrInjected) {
			t.Errorf("fatal error = %v, want ErrInjected", err)
		}
	default:
		t.Fatal("fatal handler not called")
	}
	if err := f.h.Sync(); !errors.Is(err, renderq.ErrClosed) {
		t.Errorf("Sync() after fatal = %v, want ErrClosed", err)
	}
}

func TestNewRejectsInvalidOptions(t *testing.T) {
	dev := mockdevice.New()
	alloc := mockdevice.NewAllocator()
	sc := mockdevice.NewSwapchain(dev, 2)

	tests := []struct {
		name string
		opt  renderq.Option
	}{
		{"zero frames", renderq.WithFramesInFlight(0)},
		{"negative frames", renderq.WithFramesInFlight(-1)},
		{"zero capacity", renderq.WithQueueCapacity(0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := renderq.New(dev, alloc, sc, tt.opt)
			if !errors.Is(err, renderq.ErrInvalidOption) {
				t.Errorf("New() = %v, want ErrInvalidOption", err)
			}
		})
	}

	if _, err := renderq.New(nil, alloc, sc); !errors.Is(err, renderq.ErrNilDevice) {
		t.Errorf("New(nil device) = %v, want ErrNilDevice", err)
	}
}

func TestActorLogsLifecycle(t *testing.T) {
	orig := renderq.Logger()
	t.Cleanup(func() { renderq.SetLogger(orig) })

	var buf syncBuffer
	renderq.SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	f := newFixture(t, renderq.WithLabel("lifecycle"))
	f.stop(t)

	out := buf.String()
	for _, want := range []string{"render actor started", "render actor stopped", "renderer=lifecycle"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q, got: %s", want, out)
		}
	}
}

// syncBuffer is a bytes.Buffer safe for concurrent writes from the actor.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
