// Copyright 2025 OpenOptics Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package torswitch

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mpi-ncs/openoptics/pkg/private/prom"
)

// Metrics defines the egress metrics of the switch.
type Metrics struct {
	EnqueuedPacketsTotal    *prometheus.CounterVec
	TransmittedPacketsTotal *prometheus.CounterVec
	DroppedPacketsTotal     *prometheus.CounterVec
	QueueDepth              *prometheus.GaugeVec
	CalendarSlot            prometheus.Gauge
	CalendarAdvancesTotal   prometheus.Counter
	SchedulerState          *prometheus.GaugeVec
}

// NewMetrics initializes the metrics and registers them with the default
// registry. Calling it more than once returns the same instruments.
func NewMetrics() *Metrics {
	return &Metrics{
		EnqueuedPacketsTotal: prom.NewCounterVec("switch", "enqueued_pkts_total",
			"Total number of packets accepted by an egress queue.",
			[]string{prom.LabelPort, prom.LabelQueue},
		),
		TransmittedPacketsTotal: prom.NewCounterVec("switch", "transmitted_pkts_total",
			"Total number of packets handed to the transmit path successfully.",
			[]string{prom.LabelPort},
		),
		DroppedPacketsTotal: prom.NewCounterVec("switch", "dropped_pkts_total",
			"Total number of packets redirected to the drop port or discarded.",
			[]string{prom.LabelPort, prom.LabelReason},
		),
		QueueDepth: prom.NewGaugeVec("switch", "queue_depth_pkts",
			"Number of packets buffered per egress queue.",
			[]string{prom.LabelPort, prom.LabelQueue},
		),
		CalendarSlot: prom.NewGaugeVec("calendar", "current_slot",
			"Index of the active calendar slot.", nil,
		).WithLabelValues(),
		CalendarAdvancesTotal: prom.NewCounterVec("calendar", "advances_total",
			"Total number of calendar advances.", nil,
		).WithLabelValues(),
		SchedulerState: prom.NewGaugeVec("scheduler", "state",
			"One for the current scheduler state, zero otherwise.",
			[]string{"state"},
		),
	}
}

func (m *Metrics) setState(s State) {
	if m == nil {
		return
	}
	for _, st := range []State{Idle, Running, Draining, Stopped} {
		v := 0.0
		if st == s {
			v = 1
		}
		m.SchedulerState.WithLabelValues(st.String()).Set(v)
	}
}
