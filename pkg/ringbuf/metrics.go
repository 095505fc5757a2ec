// Copyright 2017 ETH Zurich
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

package ringbuf

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the optional instruments of a ring. Nil fields are skipped.
type Metrics struct {
	MaxEntries   prometheus.Gauge
	UsedEntries  prometheus.Gauge
	WriteEntries prometheus.Counter
	ReadEntries  prometheus.Counter
}

// Option configures a Ring.
type Option func(*options)

type options struct {
	metrics *Metrics
}

// WithMetrics attaches instruments to the ring.
func WithMetrics(m Metrics) Option {
	return func(o *options) {
		o.metrics = &m
	}
}

func applyOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (m *Metrics) setMax(n int) {
	if m != nil && m.MaxEntries != nil {
		m.MaxEntries.Set(float64(n))
	}
}

func (m *Metrics) setUsed(n int) {
	if m != nil && m.UsedEntries != nil {
		m.UsedEntries.Set(float64(n))
	}
}

func (m *Metrics) addWritten(n int) {
	if m != nil && m.WriteEntries != nil {
		m.WriteEntries.Add(float64(n))
	}
}

func (m *Metrics) addRead(n int) {
	if m != nil && m.ReadEntries != nil {
		m.ReadEntries.Add(float64(n))
	}
}
