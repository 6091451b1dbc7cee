package renderq

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// Option configures a Handle during creation.
// Use functional options to customize the render actor.
//
// Example:
//
//	// Defaults: two frames in flight, opaque black clear
//	h, err := renderq.New(dev, alloc, swapchain)
//
//	// Triple buffering with metrics
//	h, err := renderq.New(dev, alloc, swapchain,
//	    renderq.WithFramesInFlight(3),
//	    renderq.WithMetrics(renderq.NewMetrics(prometheus.DefaultRegisterer)))
type Option func(*options)

// options holds optional configuration for New.
type options struct {
	framesInFlight int
	queueCapacity  int
	clearColor     gputypes.Color
	fatal          func(error)
	metrics        *Metrics
	leaks          *LeakTracker
	label          string
}

// defaultOptions returns the default options.
func defaultOptions() options {
	return options{
		framesInFlight: DefaultFramesInFlight,
		queueCapacity:  defaultQueueCapacity,
		clearColor:     gputypes.Color{R: 0, G: 0, B: 0, A: 1},
		fatal:          defaultFatalHandler,
		label:          "renderq",
	}
}

func (o *options) validate() error {
	if o.framesInFlight < 1 {
		return fmt.Errorf("%w: frames in flight %d < 1", ErrInvalidOption, o.framesInFlight)
	}
	if o.queueCapacity < 1 {
		return fmt.Errorf("%w: queue capacity %d < 1", ErrInvalidOption, o.queueCapacity)
	}
	return nil
}

// WithFramesInFlight sets the number of frame slots N. The CPU may record
// at most N frames ahead of the GPU.
func WithFramesInFlight(n int) Option {
	return func(o *options) {
		o.framesInFlight = n
	}
}

// WithQueueCapacity sets how many commands may wait for the actor before
// producers block on enqueue.
func WithQueueCapacity(n int) Option {
	return func(o *options) {
		o.queueCapacity = n
	}
}

// WithClearColor sets the colour the frame render pass clears to.
// Depth clears to 1.0 and stencil to 0.
func WithClearColor(c gputypes.Color) Option {
	return func(o *options) {
		o.clearColor = c
	}
}

// WithFatalHandler replaces the handler for unrecoverable device and
// allocation errors. The default logs the error and panics.
//
// The handler runs on the goroutine that hit the error, including the
// render actor. A handler that returns lets the actor stop as if Shutdown
// had been executed.
func WithFatalHandler(fn func(error)) Option {
	return func(o *options) {
		if fn != nil {
			o.fatal = fn
		}
	}
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithLeakTracker records every resource created through the handle and
// reports the ones still live at shutdown.
func WithLeakTracker(t *LeakTracker) Option {
	return func(o *options) {
		o.leaks = t
	}
}

// WithLabel sets the name used in log records.
func WithLabel(label string) Option {
	return func(o *options) {
		o.label = label
	}
}
