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

// Package priority implements the egress queues of one switch port: a bounded
// FIFO per priority class and the strict-priority set that combines them.
//
// Priority class 0 is the highest. DequeueNext always serves the lowest
// numbered non-empty class, so sustained load on a high priority class starves
// all classes below it. This is the intended policy; control plane tooling
// relies on it.
package priority

import (
	"errors"
	"sync/atomic"

	"github.com/mpi-ncs/openoptics/pkg/private/serrors"
	"github.com/mpi-ncs/openoptics/pkg/ringbuf"
	"github.com/mpi-ncs/openoptics/torswitch/drop"
	"github.com/mpi-ncs/openoptics/torswitch/pkt"
)

// ErrQueueUnconfigured is returned for a priority class outside the configured
// number of classes.
var ErrQueueUnconfigured = errors.New("priority queue not configured")

// Queue is a bounded FIFO for one (port, priority class) pair. All operations
// are non-blocking and safe for concurrent use.
type Queue struct {
	ring *ringbuf.Ring[*pkt.Packet]
}

// NewQueue creates a queue that holds up to capacity packets.
func NewQueue(capacity int, opts ...ringbuf.Option) *Queue {
	return &Queue{ring: ringbuf.New[*pkt.Packet](capacity, opts...)}
}

// Enqueue appends p to the tail. It returns false, and leaves the queue
// unchanged, if the queue is full or closed.
func (q *Queue) Enqueue(p *pkt.Packet) bool {
	return q.ring.Push(p)
}

// Dequeue removes and returns the head packet.
func (q *Queue) Dequeue() (*pkt.Packet, bool) {
	return q.ring.Pop()
}

// Depth returns the number of queued packets.
func (q *Queue) Depth() int {
	return q.ring.Readable()
}

// Capacity returns the maximum depth.
func (q *Queue) Capacity() int {
	return q.ring.Cap()
}

// Close rejects all further enqueues. Queued packets can still be dequeued.
func (q *Queue) Close() {
	q.ring.Close()
}

// Dropper receives packets that could not be queued.
type Dropper interface {
	Redirect(p *pkt.Packet, reason drop.Reason)
}

// PortQueueSet owns the priority queues of one port.
type PortQueueSet struct {
	port    uint32
	queues  []*Queue
	dropper Dropper
	drops   atomic.Uint64
}

// QueueOptions returns the ring options for the queue of the given class.
type QueueOptions func(port uint32, class uint8) []ringbuf.Option

// NewPortQueueSet creates nbClasses queues of the given capacity for port.
// Packets rejected by a full queue are handed to dropper. queueOpts may be
// nil.
func NewPortQueueSet(port uint32, nbClasses, capacity int, dropper Dropper,
	queueOpts QueueOptions) *PortQueueSet {

	s := &PortQueueSet{
		port:    port,
		queues:  make([]*Queue, nbClasses),
		dropper: dropper,
	}
	for i := range s.queues {
		var opts []ringbuf.Option
		if queueOpts != nil {
			opts = queueOpts(port, uint8(i))
		}
		s.queues[i] = NewQueue(capacity, opts...)
	}
	return s
}

// Port returns the port id.
func (s *PortQueueSet) Port() uint32 {
	return s.port
}

// NumClasses returns the number of priority classes.
func (s *PortQueueSet) NumClasses() int {
	return len(s.queues)
}

// Enqueue appends p to the queue of the given class. If the queue is full, p
// is redirected with reason QueueFull and false is returned. A class outside
// the configured range is redirected with reason QueueUnconfigured and
// reported as error.
func (s *PortQueueSet) Enqueue(class uint8, p *pkt.Packet) (bool, error) {
	if int(class) >= len(s.queues) {
		s.drop(p, drop.QueueUnconfigured)
		return false, serrors.Join(ErrQueueUnconfigured, nil,
			"port", s.port, "class", class, "classes", len(s.queues))
	}
	if !s.queues[class].Enqueue(p) {
		s.drop(p, drop.QueueFull)
		return false, nil
	}
	return true, nil
}

// Offer appends p to the queue of the given class without involving the
// dropper. It is used to feed the drop port itself.
func (s *PortQueueSet) Offer(class uint8, p *pkt.Packet) bool {
	if int(class) >= len(s.queues) {
		return false
	}
	return s.queues[class].Enqueue(p)
}

// DequeueNext returns the head packet of the highest priority non-empty queue.
func (s *PortQueueSet) DequeueNext() (*pkt.Packet, bool) {
	for _, q := range s.queues {
		if p, ok := q.Dequeue(); ok {
			return p, true
		}
	}
	return nil, false
}

// AggregateDepth returns the sum of the depths of all queues.
func (s *PortQueueSet) AggregateDepth() int {
	var depth int
	for _, q := range s.queues {
		depth += q.Depth()
	}
	return depth
}

// Depths returns the depth of every queue, indexed by priority class.
func (s *PortQueueSet) Depths() []int {
	depths := make([]int, len(s.queues))
	for i, q := range s.queues {
		depths[i] = q.Depth()
	}
	return depths
}

// Queue returns the queue of the given class, or nil if it does not exist.
func (s *PortQueueSet) Queue(class uint8) *Queue {
	if int(class) >= len(s.queues) {
		return nil
	}
	return s.queues[class]
}

// Drops returns the number of packets this port refused.
func (s *PortQueueSet) Drops() uint64 {
	return s.drops.Load()
}

// Close closes all queues.
func (s *PortQueueSet) Close() {
	for _, q := range s.queues {
		q.Close()
	}
}

func (s *PortQueueSet) drop(p *pkt.Packet, reason drop.Reason) {
	s.drops.Add(1)
	if s.dropper != nil {
		s.dropper.Redirect(p, reason)
	}
}
