/*
 *
 * Copyright 2025 The rlgym-learn Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

// Package metrics exposes the worker's loop counters. A nil *Loop is a
// valid no-op receiver, so the hot path never branches on configuration.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Loop tracks request/response cycles of one worker process.
type Loop struct {
	cycles       *prometheus.CounterVec
	cycleSeconds prometheus.Histogram
	bytesWritten prometheus.Histogram
	episodes     prometheus.Counter
	failures     prometheus.Counter
}

// NewLoop registers the loop metrics with reg, labeled by process id.
func NewLoop(reg prometheus.Registerer, procID string) *Loop {
	factory := promauto.With(reg)
	labels := prometheus.Labels{"proc_id": procID}

	return &Loop{
		cycles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "rlgym",
			Subsystem:   "worker",
			Name:        "cycles_total",
			Help:        "Request/response cycles served, by header and request kind.",
			ConstLabels: labels,
		}, []string{"header", "kind"}),
		cycleSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "rlgym",
			Subsystem:   "worker",
			Name:        "cycle_seconds",
			Help:        "Time from event wake to ready notification.",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(10e-6, 4, 10),
		}),
		bytesWritten: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "rlgym",
			Subsystem:   "worker",
			Name:        "response_bytes",
			Help:        "Encoded response sizes in bytes.",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(64, 4, 8),
		}),
		episodes: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   "rlgym",
			Subsystem:   "worker",
			Name:        "episodes_total",
			Help:        "Episode boundaries (reset and set-state responses).",
			ConstLabels: labels,
		}),
		failures: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   "rlgym",
			Subsystem:   "worker",
			Name:        "failures_total",
			Help:        "Fatal loop failures.",
			ConstLabels: labels,
		}),
	}
}

// ObserveCycle records one served cycle.
func (m *Loop) ObserveCycle(header, kind string, seconds float64, responseBytes int) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(header, kind).Inc()
	m.cycleSeconds.Observe(seconds)
	if responseBytes > 0 {
		m.bytesWritten.Observe(float64(responseBytes))
	}
}

// IncEpisode counts an episode boundary.
func (m *Loop) IncEpisode() {
	if m == nil {
		return
	}
	m.episodes.Inc()
}

// IncFailure counts a fatal loop failure.
func (m *Loop) IncFailure() {
	if m == nil {
		return
	}
	m.failures.Inc()
}
