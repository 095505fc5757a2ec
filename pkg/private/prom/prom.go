// Copyright 2017 ETH Zurich
// Copyright 2018 ETH Zurich, Anapaya Systems
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

// Package prom registers the switch's Prometheus instruments. Constructors are
// idempotent: asking twice for the same metric returns the registered one, so
// several switches in one process (as in tests) share their instruments.
package prom

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric name.
const Namespace = "openoptics"

// Label names shared across subsystems.
const (
	LabelPort   = "port"
	LabelQueue  = "queue"
	LabelReason = "reason"
	LabelResult = "result"
)

// ExportElementID publishes the configured element ID as a constant gauge.
func ExportElementID(id string) {
	NewGaugeVec("", "elem_id", "Element ID from the configuration file.",
		[]string{"cfg"}).WithLabelValues(id).Set(1)
}

// SafeRegister registers c with the default registry. If an equal collector
// is registered already, that one is returned instead. Any other registration
// error panics.
func SafeRegister(c prometheus.Collector) prometheus.Collector {
	err := prometheus.Register(c)
	if err == nil {
		return c
	}
	var dup prometheus.AlreadyRegisteredError
	if errors.As(err, &dup) {
		return dup.ExistingCollector
	}
	panic(err)
}

// NewGaugeVec returns the gauge vec namespace_subsystem_name.
func NewGaugeVec(subsystem, name, help string, labels []string) *prometheus.GaugeVec {
	opts := prometheus.GaugeOpts{
		Namespace: Namespace, Subsystem: subsystem, Name: name, Help: help,
	}
	return SafeRegister(prometheus.NewGaugeVec(opts, labels)).(*prometheus.GaugeVec)
}

// NewCounterVec returns the counter vec namespace_subsystem_name.
func NewCounterVec(subsystem, name, help string, labels []string) *prometheus.CounterVec {
	opts := prometheus.CounterOpts{
		Namespace: Namespace, Subsystem: subsystem, Name: name, Help: help,
	}
	return SafeRegister(prometheus.NewCounterVec(opts, labels)).(*prometheus.CounterVec)
}
