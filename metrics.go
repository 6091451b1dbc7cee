// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderq

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors updated by the render actor and
// resource handles. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Commands counts executed commands by type.
	Commands *prometheus.CounterVec

	// Frames counts submitted frames.
	Frames prometheus.Counter

	// OpenFrameWait observes the time OpenFrame spends on the in-flight
	// fence and image acquisition.
	OpenFrameWait prometheus.Histogram

	// LiveResources tracks created but not yet destroyed resources by kind.
	LiveResources *prometheus.GaugeVec

	// QueueDepth is the number of commands waiting for the actor, sampled
	// after each command.
	QueueDepth prometheus.Gauge

	// FatalErrors counts errors passed to the fatal handler.
	FatalErrors prometheus.Counter
}

// NewMetrics creates the renderq collectors and registers them with reg.
// Pass nil to create unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "renderq_commands_total",
				Help: "Commands executed by the render actor by command type",
			},
			[]string{"type"},
		),
		Frames: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "renderq_frames_total",
				Help: "Frames submitted and presented",
			},
		),
		OpenFrameWait: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "renderq_open_frame_wait_seconds",
				Help:    "Time spent waiting for the in-flight fence and next image",
				Buckets: prometheus.DefBuckets,
			},
		),
		LiveResources: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "renderq_live_resources",
				Help: "GPU resources created and not yet destroyed by kind",
			},
			[]string{"kind"},
		),
		QueueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "renderq_queue_depth",
				Help: "Commands waiting for the render actor",
			},
		),
		FatalErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "renderq_fatal_errors_total",
				Help: "Errors passed to the fatal handler",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Commands, m.Frames, m.OpenFrameWait,
			m.LiveResources, m.QueueDepth, m.FatalErrors)
	}
	return m
}

func (m *Metrics) commandExecuted(t CommandType, depth int) {
	if m == nil {
		return
	}
	m.Commands.WithLabelValues(t.String()).Inc()
	m.QueueDepth.Set(float64(depth))
}

func (m *Metrics) frameSubmitted() {
	if m == nil {
		return
	}
	m.Frames.Inc()
}

func (m *Metrics) openFrameWaited(d time.Duration) {
	if m == nil {
		return
	}
	m.OpenFrameWait.Observe(d.Seconds())
}

func (m *Metrics) resourceCreated(kind string) {
	if m == nil {
		return
	}
	m.LiveResources.WithLabelValues(kind).Inc()
}

func (m *Metrics) resourceDestroyed(kind string) {
	if m == nil {
		return
	}
	m.LiveResources.WithLabelValues(kind).Dec()
}

func (m *Metrics) fatal() {
	if m == nil {
		return
	}
	m.FatalErrors.Inc()
}
