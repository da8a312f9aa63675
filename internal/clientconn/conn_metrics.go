// Copyright 2025 QueryStream Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package clientconn

import "github.com/prometheus/client_golang/prometheus"

// ConnMetrics represents conn metrics.
type ConnMetrics struct {
	requests *prometheus.CounterVec
	streams  *prometheus.CounterVec
	rows     prometheus.Counter
}

// newConnMetrics creates new conn metrics.
func newConnMetrics() *ConnMetrics {
	return &ConnMetrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "requests_total",
				Help:      "Total number of inbound frames.",
			},
			[]string{"type"},
		),
		streams: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "streams_total",
				Help:      "Total number of terminated streams.",
			},
			[]string{"result"},
		),
		rows: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "rows_total",
				Help:      "Total number of rows sent to clients.",
			},
		),
	}
}

// Describe implements prometheus.Collector.
func (cm *ConnMetrics) Describe(ch chan<- *prometheus.Desc) {
	cm.requests.Describe(ch)
	cm.streams.Describe(ch)
	cm.rows.Describe(ch)
}

// Collect implements prometheus.Collector.
func (cm *ConnMetrics) Collect(ch chan<- prometheus.Metric) {
	cm.requests.Collect(ch)
	cm.streams.Collect(ch)
	cm.rows.Collect(ch)
}

// check interfaces
var (
	_ prometheus.Collector = (*ConnMetrics)(nil)
)
