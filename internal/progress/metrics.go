// Copyright (C) 2026 parabench contributors.
// All rights reserved. This file is part of parabench.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package progress

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes the running benchmark's current state as prometheus
// gauges, so an optional `-status-addr` HTTP server can serve them
// alongside the human-readable log heartbeat.
type Metrics struct {
	throughput *prometheus.GaugeVec
	calls      *prometheus.GaugeVec
	idle       prometheus.Gauge
}

// NewMetrics builds and registers the gauges against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		throughput: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "parabench",
			Name:      "throughput_bytes_per_second",
			Help:      "Current accumulated throughput of the open ctime region, by label.",
		}, []string{"label"}),
		calls: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "parabench",
			Name:      "core_time_calls_total",
			Help:      "Number of I/O calls folded into the open ctime region, by label.",
		}, []string{"label"}),
		idle: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "parabench",
			Name:      "idle",
			Help:      "1 if no ctime region is currently open on the master rank, else 0.",
		}),
	}
	reg.MustRegister(m.throughput, m.calls, m.idle)
	return m
}

// Observe records an open ctime region's current throughput and call count.
func (m *Metrics) Observe(label string, throughputBps float64, calls int64) {
	m.idle.Set(0)
	m.throughput.WithLabelValues(label).Set(throughputBps)
	m.calls.WithLabelValues(label).Set(float64(calls))
}

// SetIdle marks that no ctime region is currently open.
func (m *Metrics) SetIdle() {
	m.idle.Set(1)
}
