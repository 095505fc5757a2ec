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

// Package torswitch implements the egress side of a ToR switch: per-port
// strict-priority queues served by a calendar queue scheduler.
//
// Producers call Switch.Enqueue from any number of goroutines. Exactly one
// Scheduler goroutine advances the calendar and dequeues at most one packet
// per eligible port and slot. Packets that cannot be queued or transmitted go
// to the drop controller.
package torswitch

import (
	"errors"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mpi-ncs/openoptics/pkg/log"
	"github.com/mpi-ncs/openoptics/pkg/private/serrors"
	"github.com/mpi-ncs/openoptics/pkg/ringbuf"
	"github.com/mpi-ncs/openoptics/torswitch/calendar"
	"github.com/mpi-ncs/openoptics/torswitch/drop"
	"github.com/mpi-ncs/openoptics/torswitch/pkt"
	"github.com/mpi-ncs/openoptics/torswitch/priority"
)

var (
	// ErrPortUnconfigured is returned for a port outside the configured range.
	ErrPortUnconfigured = errors.New("port not configured")
	// ErrQueueUnconfigured is returned for a priority class outside the
	// configured number of classes.
	ErrQueueUnconfigured = priority.ErrQueueUnconfigured
	// ErrClosed is returned by Enqueue after Close.
	ErrClosed = errors.New("switch closed")
)

// Option configures a Switch.
type Option func(*options)

type options struct {
	captureSink drop.Sink
	metrics     *Metrics
	logger      log.Logger
}

// WithCaptureSink sets the sink that stands in for the drop port when the
// drop port is not one of the switch ports.
func WithCaptureSink(s drop.Sink) Option {
	return func(o *options) {
		o.captureSink = s
	}
}

// WithMetrics sets the metrics. By default NewMetrics is used.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Switch owns the egress queues of all ports, the drop controller and the
// calendar of one switch instance.
type Switch struct {
	identity Identity
	ports    []*priority.PortQueueSet
	drops    *drop.Controller
	calendar *calendar.Calendar
	metrics  *Metrics
	enqueued [][]prometheus.Counter
	closed   atomic.Bool
	logger   log.Logger
}

// New creates the switch described by id. The port to queue set mapping is
// built here and never changes afterwards.
func New(id Identity, opts ...Option) (*Switch, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.metrics == nil {
		o.metrics = NewMetrics()
	}
	if o.logger == nil {
		o.logger = log.New("tor_id", id.TorID)
	}
	cal, err := calendar.New(id.NbTimeSlices, id.NbPorts, id.Mode, id.SliceDuration)
	if err != nil {
		return nil, serrors.Wrap("creating calendar", err)
	}
	s := &Switch{
		identity: id,
		ports:    make([]*priority.PortQueueSet, id.NbPorts),
		calendar: cal,
		metrics:  o.metrics,
		enqueued: make([][]prometheus.Counter, id.NbPorts),
		logger:   o.logger,
	}

	var sink drop.Sink
	switch {
	case id.HasDropPortQueue():
		sink = drop.SinkFunc(s.offerToDropPort)
	case o.captureSink != nil:
		sink = o.captureSink
	}
	s.drops = drop.NewController(id.NbPorts,
		drop.WithSink(sink),
		drop.WithMetrics(o.metrics.DroppedPacketsTotal),
		drop.WithLogger(o.logger),
	)

	queueOpts := func(port uint32, class uint8) []ringbuf.Option {
		return []ringbuf.Option{ringbuf.WithMetrics(ringbuf.Metrics{
			UsedEntries: o.metrics.QueueDepth.WithLabelValues(
				strconv.Itoa(int(port)), strconv.Itoa(int(class))),
		})}
	}
	for i := range s.ports {
		port := uint32(i)
		s.ports[i] = priority.NewPortQueueSet(port, id.NbPriorityQueues, id.QueueCapacity,
			s.drops, queueOpts)
		s.enqueued[i] = make([]prometheus.Counter, id.NbPriorityQueues)
		for class := range s.enqueued[i] {
			c := o.metrics.EnqueuedPacketsTotal.WithLabelValues(
				strconv.Itoa(i), strconv.Itoa(class))
			c.Add(0)
			s.enqueued[i][class] = c
		}
	}
	o.metrics.CalendarSlot.Set(float64(cal.CurrentSlot()))
	s.logger.Info("Switch created",
		"ports", id.NbPorts,
		"priority_queues", id.NbPriorityQueues,
		"queue_capacity", id.QueueCapacity,
		"time_slices", id.NbTimeSlices,
		"mode", id.Mode,
		"drop_port", id.DropPort,
		"drop_port_queue", id.HasDropPortQueue(),
	)
	return s, nil
}

// Identity returns the identity the switch was created with.
func (s *Switch) Identity() Identity {
	return s.identity
}

// Calendar returns the calendar of the switch.
func (s *Switch) Calendar() *calendar.Calendar {
	return s.calendar
}

// Drops returns the drop controller.
func (s *Switch) Drops() *drop.Controller {
	return s.drops
}

// Port returns the queue set of port, or nil if the port is not configured.
func (s *Switch) Port(port uint32) *priority.PortQueueSet {
	if int(port) >= len(s.ports) {
		return nil
	}
	return s.ports[port]
}

// Enqueue queues p on the given port and priority class. It never blocks. The
// boolean reports whether the packet was accepted; a full queue is not an
// error, the packet is handed to the drop controller. An unconfigured port or
// class is a caller error: the packet is counted as dropped and an error is
// returned.
func (s *Switch) Enqueue(port uint32, class uint8, p *pkt.Packet) (bool, error) {
	if s.closed.Load() {
		return false, ErrClosed
	}
	p.Port = port
	p.Priority = class
	if int(port) >= len(s.ports) {
		s.drops.Redirect(p, drop.PortUnconfigured)
		return false, serrors.Join(ErrPortUnconfigured, nil,
			"port", port, "ports", len(s.ports))
	}
	p.Enqueued = time.Now()
	accepted, err := s.ports[port].Enqueue(class, p)
	if err != nil {
		return false, err
	}
	if accepted {
		s.enqueued[port][class].Inc()
	}
	return accepted, nil
}

// DequeueNext removes the next packet of port in strict priority order.
func (s *Switch) DequeueNext(port uint32) (*pkt.Packet, bool, error) {
	if int(port) >= len(s.ports) {
		return nil, false, serrors.Join(ErrPortUnconfigured, nil,
			"port", port, "ports", len(s.ports))
	}
	p, ok := s.ports[port].DequeueNext()
	return p, ok, nil
}

// Close rejects all further enqueues. Queued packets stay available to
// DequeueNext.
func (s *Switch) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	for _, p := range s.ports {
		p.Close()
	}
	s.logger.Info("Switch closed")
}

func (s *Switch) offerToDropPort(p *pkt.Packet) bool {
	q := s.ports[s.identity.DropPort]
	return q.Offer(uint8(q.NumClasses()-1), p)
}

// QueueDepth is the depth of one (port, priority class) queue.
type QueueDepth struct {
	Port  uint32 `json:"port"`
	Queue uint8  `json:"queue"`
	Depth int    `json:"depth"`
}

// DeviceMetric is a read-only snapshot of the switch state for management
// collaborators.
type DeviceMetric struct {
	TorID       uint32        `json:"tor_id"`
	Mode        string        `json:"mode"`
	CurrentSlot uint32        `json:"current_slot"`
	Paused      bool          `json:"paused"`
	QueueDepths []QueueDepth  `json:"pq_depth"`
	DropCounter uint64        `json:"drop_ctr"`
	Drops       drop.Snapshot `json:"drops"`
}

// DeviceMetric returns a snapshot of the queue depths, drop counters and
// calendar position. Each value is read atomically on its own.
func (s *Switch) DeviceMetric() DeviceMetric {
	m := DeviceMetric{
		TorID:       s.identity.TorID,
		Mode:        s.identity.Mode.String(),
		CurrentSlot: s.calendar.CurrentSlot(),
		Paused:      s.calendar.Paused(),
		QueueDepths: make([]QueueDepth, 0, len(s.ports)*s.identity.NbPriorityQueues),
		Drops:       s.drops.Snapshot(),
	}
	for _, set := range s.ports {
		for class, depth := range set.Depths() {
			m.QueueDepths = append(m.QueueDepths, QueueDepth{
				Port:  set.Port(),
				Queue: uint8(class),
				Depth: depth,
			})
		}
	}
	m.DropCounter = m.Drops.Total
	return m
}
