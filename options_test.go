package renderq

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
)

func TestDefaultOptions(t *testing.T) {
	o := defaultOptions()
	if o.framesInFlight != DefaultFramesInFlight {
		t.Errorf("framesInFlight = %d, want %d", o.framesInFlight, DefaultFramesInFlight)
	}
	if o.queueCapacity != defaultQueueCapacity {
		t.Errorf("queueCapacity = %d, want %d", o.queueCapacity, defaultQueueCapacity)
	}
	if o.clearColor.A != 1 {
		t.Errorf("clearColor = %+v, want opaque", o.clearColor)
	}
	if o.fatal == nil {
		t.Error("fatal handler is nil")
	}
	if err := o.validate(); err != nil {
		t.Errorf("validate() = %v", err)
	}
}

func TestOptionsApply(t *testing.T) {
	m := NewMetrics(nil)
	leaks := NewLeakTracker()
	called := false

	o := defaultOptions()
	for _, opt := range []Option{
		WithFramesInFlight(3),
		WithQueueCapacity(8),
		WithClearColor(gputypes.Color{R: 1, G: 0.5, B: 0, A: 1}),
		WithFatalHandler(func(error) { called = true }),
		WithFatalHandler(nil),
		WithMetrics(m),
		WithLeakTracker(leaks),
		WithLabel("scene"),
	} {
		opt(&o)
	}

	if o.framesInFlight != 3 || o.queueCapacity != 8 {
		t.Errorf("frames/capacity = %d/%d, want 3/8", o.framesInFlight, o.queueCapacity)
	}
	if o.clearColor.R != 1 || o.clearColor.G != 0.5 {
		t.Errorf("clearColor = %+v", o.clearColor)
	}
	o.fatal(errors.New("x"))
	if !called {
		t.Error("WithFatalHandler(nil) replaced the handler")
	}
	if o.metrics != m || o.leaks != leaks || o.label != "scene" {
		t.Error("metrics, leak tracker or label not applied")
	}
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"frames", WithFramesInFlight(0)},
		{"capacity", WithQueueCapacity(-4)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := defaultOptions()
			tt.opt(&o)
			if err := o.validate(); !errors.Is(err, ErrInvalidOption) {
				t.Errorf("validate() = %v, want ErrInvalidOption", err)
			}
		})
	}
}
