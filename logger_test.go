package renderq_test

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/gogpu/renderq"
)

// captureLogs swaps the package logger for one writing to the returned
// buffer at level, restoring the previous logger when the test ends.
func captureLogs(t *testing.T, level slog.Level) *syncBuffer {
	t.Helper()
	orig := renderq.Logger()
	t.Cleanup(func() { renderq.SetLogger(orig) })

	buf := &syncBuffer{}
	renderq.SetLogger(slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: level})))
	return buf
}

func TestLoggerDefaultSilent(t *testing.T) {
	l := renderq.Logger()
	if l == nil {
		t.Fatal("Logger() returned nil")
	}
	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		if l.Enabled(context.Background(), level) {
			t.Errorf("default logger enabled for %v", level)
		}
	}
}

func TestSetLoggerNilRestoresSilent(t *testing.T) {
	orig := renderq.Logger()
	t.Cleanup(func() { renderq.SetLogger(orig) })

	renderq.SetLogger(slog.Default())
	renderq.SetLogger(nil)

	l := renderq.Logger()
	if l == nil {
		t.Fatal("SetLogger(nil) left a nil logger")
	}
	if l.Enabled(context.Background(), slog.LevelError) {
		t.Error("SetLogger(nil) did not restore the silent logger")
	}
}

func TestActorLogsCommandsAtDebug(t *testing.T) {
	buf := captureLogs(t, slog.LevelDebug)

	f := newFixture(t)
	f.frame(t, func(h renderq.Handle) { h.Draw(3) })
	f.stop(t)

	out := buf.String()
	for _, want := range []string{
		"renderq: execute",
		"command=OpenFrame",
		"command=Draw",
		"command=SubmitFrame",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("debug output missing %q", want)
		}
	}
}

func TestInfoLevelHidesCommands(t *testing.T) {
	buf := captureLogs(t, slog.LevelInfo)

	f := newFixture(t)
	f.frame(t, func(h renderq.Handle) { h.Draw(3) })
	f.stop(t)

	if out := buf.String(); strings.Contains(out, "renderq: execute") {
		t.Errorf("per-command logs at Info level: %s", out)
	}
}

func TestMisuseLogsWarnings(t *testing.T) {
	buf := captureLogs(t, slog.LevelWarn)

	leaks := renderq.NewLeakTracker()
	f := newFixture(t, renderq.WithLeakTracker(leaks))
	twice := f.hostBuffer(t, "twice", []byte{1, 2, 3, 4})
	kept := f.hostBuffer(t, "kept", []byte{5, 6, 7, 8})

	_ = twice.Destroy()
	_ = twice.Destroy()
	f.stop(t)
	_ = kept.Destroy()

	out := buf.String()
	for _, want := range []string{
		"buffer destroyed twice",
		"resource never destroyed",
		"label=kept",
		"buffer destroyed after shutdown",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("warn output missing %q, got: %s", want, out)
		}
	}
}

func TestRendererLoggerFollowsSetLogger(t *testing.T) {
	first := captureLogs(t, slog.LevelDebug)

	f := newFixture(t, renderq.WithLabel("swapped"))
	f.frame(t, func(h renderq.Handle) { h.Draw(3) })

	second := &syncBuffer{}
	renderq.SetLogger(slog.New(slog.NewTextHandler(second, &slog.HandlerOptions{Level: slog.LevelDebug})))
	f.frame(t, func(h renderq.Handle) { h.Draw(4) })
	f.stop(t)

	if out := first.String(); !strings.Contains(out, "renderer=swapped") || strings.Contains(out, "render actor stopped") {
		t.Errorf("first logger output: %s", out)
	}
	out := second.String()
	for _, want := range []string{"renderer=swapped", "command=Draw", "render actor stopped"} {
		if !strings.Contains(out, want) {
			t.Errorf("second logger missing %q, got: %s", want, out)
		}
	}
}

func TestSetLoggerWhileRendering(t *testing.T) {
	orig := renderq.Logger()
	t.Cleanup(func() { renderq.SetLogger(orig) })

	f := newFixture(t)
	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			renderq.SetLogger(slog.New(slog.DiscardHandler))
			renderq.SetLogger(nil)
		}
	}()

	for range 20 {
		f.frame(t, func(h renderq.Handle) { h.Draw(3) })
	}
	close(stop)
	wg.Wait()
	f.stop(t)
	f.noFatal(t)
}
