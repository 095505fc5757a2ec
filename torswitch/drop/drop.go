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

// Package drop implements the switch-wide drop policy. Packets that cannot be
// queued or transmitted are redirected to the drop port sink for capture, or
// discarded. Every redirect is counted per port and per reason.
package drop

import (
	"strconv"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mpi-ncs/openoptics/pkg/log"
	"github.com/mpi-ncs/openoptics/torswitch/pkt"
)

// Reason classifies why a packet was dropped.
type Reason uint8

const (
	// QueueFull means the target priority queue was at capacity.
	QueueFull Reason = iota
	// TransmitFailed means the transmit path rejected a dequeued packet.
	TransmitFailed
	// PortUnconfigured means the destination port is outside the configured
	// port range.
	PortUnconfigured
	// QueueUnconfigured means the priority class is outside the configured
	// number of priority queues.
	QueueUnconfigured

	numReasons
)

// Reasons lists all drop reasons in counter order.
func Reasons() []Reason {
	return []Reason{QueueFull, TransmitFailed, PortUnconfigured, QueueUnconfigured}
}

func (r Reason) String() string {
	switch r {
	case QueueFull:
		return "queue_full"
	case TransmitFailed:
		return "transmit_failed"
	case PortUnconfigured:
		return "port_unconfigured"
	case QueueUnconfigured:
		return "queue_unconfigured"
	default:
		return "unknown_" + strconv.Itoa(int(r))
	}
}

// Sink receives redirected packets for diagnostic capture.
type Sink interface {
	// Capture takes ownership of p and reports whether it was accepted. A
	// rejected packet is discarded by the caller.
	Capture(p *pkt.Packet) bool
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(p *pkt.Packet) bool

// Capture calls f(p).
func (f SinkFunc) Capture(p *pkt.Packet) bool {
	return f(p)
}

// Controller applies the drop policy. It is safe for concurrent use.
type Controller struct {
	sink      Sink
	perPort   []atomic.Uint64
	perReason [numReasons]atomic.Uint64
	captured  atomic.Uint64
	discarded atomic.Uint64
	// dropped is indexed by port, the last entry holds out-of-range ports.
	dropped [][numReasons]prometheus.Counter
	logger  log.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithSink sets the drop port sink. Without a sink, redirected packets are
// discarded.
func WithSink(s Sink) Option {
	return func(c *Controller) {
		c.sink = s
	}
}

// WithMetrics exports the drop counters through vec. The vec must have the
// labels port and reason.
func WithMetrics(vec *prometheus.CounterVec) Option {
	return func(c *Controller) {
		c.dropped = make([][numReasons]prometheus.Counter, len(c.perPort)+1)
		for port := range c.dropped {
			label := strconv.Itoa(port)
			if port == len(c.perPort) {
				label = "unconfigured"
			}
			for _, r := range Reasons() {
				cnt := vec.WithLabelValues(label, r.String())
				cnt.Add(0)
				c.dropped[port][r] = cnt
			}
		}
	}
}

// WithLogger sets the logger used to report drops at debug level.
func WithLogger(l log.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// NewController creates a controller that counts drops for nbPorts ports.
func NewController(nbPorts int, opts ...Option) *Controller {
	c := &Controller{
		perPort: make([]atomic.Uint64, nbPorts),
		logger:  log.Root(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Redirect takes ownership of p and applies the drop policy: the packet is
// handed to the sink if one is configured and it was not redirected before,
// otherwise it is discarded. The drop is always counted.
func (c *Controller) Redirect(p *pkt.Packet, reason Reason) {
	c.perReason[reason].Add(1)
	port := int(p.Port)
	if port < len(c.perPort) {
		c.perPort[port].Add(1)
	} else {
		port = len(c.perPort)
	}
	if c.dropped != nil {
		c.dropped[port][reason].Inc()
	}
	if c.logger.Enabled(log.DebugLevel) {
		c.logger.Debug("Dropping packet", "port", p.Port, "priority", p.Priority,
			"reason", reason)
	}
	if c.sink != nil && !p.Redirected {
		p.Redirected = true
		if c.sink.Capture(p) {
			c.captured.Add(1)
			return
		}
	}
	c.discarded.Add(1)
}

// PortDrops returns the number of drops counted for port. Ports outside the
// configured range report zero.
func (c *Controller) PortDrops(port uint32) uint64 {
	if int(port) >= len(c.perPort) {
		return 0
	}
	return c.perPort[port].Load()
}

// ReasonDrops returns the number of drops counted for reason.
func (c *Controller) ReasonDrops(r Reason) uint64 {
	if r >= numReasons {
		return 0
	}
	return c.perReason[r].Load()
}

// Total returns the number of drops over all reasons.
func (c *Controller) Total() uint64 {
	var total uint64
	for i := range c.perReason {
		total += c.perReason[i].Load()
	}
	return total
}

// Snapshot is a point-in-time copy of the drop counters. The individual
// counters are read one at a time, so a snapshot taken under load is not
// globally consistent.
type Snapshot struct {
	Total     uint64            `json:"total"`
	PerReason map[string]uint64 `json:"per_reason"`
	PerPort   []uint64          `json:"per_port"`
	Captured  uint64            `json:"captured"`
	Discarded uint64            `json:"discarded"`
}

// Snapshot returns a copy of all counters.
func (c *Controller) Snapshot() Snapshot {
	s := Snapshot{
		PerReason: make(map[string]uint64, numReasons),
		PerPort:   make([]uint64, len(c.perPort)),
		Captured:  c.captured.Load(),
		Discarded: c.discarded.Load(),
	}
	for _, r := range Reasons() {
		v := c.perReason[r].Load()
		s.PerReason[r.String()] = v
		s.Total += v
	}
	for i := range c.perPort {
		s.PerPort[i] = c.perPort[i].Load()
	}
	return s
}
