// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package metrics wires the core's counters to Prometheus, the way
// runZeroInc's sockstats exporter wires its TCP-info samples to
// prometheus.Collector. Unlike sockstats' per-fd syscall sampling, the p3
// core only ever reports plain counter/gauge increments it already computes
// for its own control flow, so this package is a thin Registerer wrapper
// rather than a custom Collector.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Stats is the set of counters and gauges a ConnectionHandler's caller
// updates as connections are accepted, frames flow, and the window and
// heartbeat machinery react (spec §8 properties 1, 9, 10).
type Stats struct {
	ConnectionsOpen   prometheus.Gauge
	FramesIn          prometheus.Counter
	FramesOut         prometheus.Counter
	OutstandingWindow prometheus.Gauge
	HeartbeatAttempts prometheus.Counter
	BufferDiscards    prometheus.Counter
	HandshakesTotal   *prometheus.CounterVec
}

// NewStats constructs a Stats with all collectors registered against reg.
// Pass prometheus.DefaultRegisterer for the global registry, or a fresh
// prometheus.NewRegistry() in tests.
func NewStats(reg prometheus.Registerer) *Stats {
	s := &Stats{
		ConnectionsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "p3",
			Name:      "connections_open",
			Help:      "Number of currently open P3 connections.",
		}),
		FramesIn: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "p3",
			Name:      "frames_in_total",
			Help:      "Total frames received across all connections.",
		}),
		FramesOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "p3",
			Name:      "frames_out_total",
			Help:      "Total frames sent across all connections.",
		}),
		OutstandingWindow: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "p3",
			Name:      "outstanding_window",
			Help:      "Most recently observed outstanding DATA window size.",
		}),
		HeartbeatAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "p3",
			Name:      "heartbeat_attempts_total",
			Help:      "Total heartbeat probes sent while waiting for an ACK.",
		}),
		BufferDiscards: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "p3",
			Name:      "reassembly_buffer_discards_total",
			Help:      "Total bytes discarded from TcpReassembler on connection close.",
		}),
		HandshakesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "p3",
			Name:      "handshakes_total",
			Help:      "Total INIT handshakes completed, labeled by detected platform.",
		}, []string{"platform"}),
	}

	reg.MustRegister(
		s.ConnectionsOpen,
		s.FramesIn,
		s.FramesOut,
		s.OutstandingWindow,
		s.HeartbeatAttempts,
		s.BufferDiscards,
		s.HandshakesTotal,
	)
	return s
}
