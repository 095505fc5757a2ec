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

// Package ringbuf provides a bounded FIFO on top of a fixed-sized slice.
package ringbuf

import (
	"sync"
)

// Ring is a classic generic ring buffer on top of a fixed-sized slice. It is
// thread-safe. Reads and writes never block; a full ring rejects writes and an
// empty ring yields nothing.
type Ring[T any] struct {
	mutex      sync.Mutex
	entries    []T
	writeIndex int
	readIndex  int
	writable   int
	readable   int
	closed     bool
	metrics    *Metrics
}

// New allocates a new Ring instance with capacity for count entries. The ring
// starts off empty. count must be positive.
func New[T any](count int, opts ...Option) *Ring[T] {
	if count <= 0 {
		panic("ringbuf: count must be positive")
	}
	o := applyOptions(opts)
	r := &Ring[T]{
		entries:  make([]T, count),
		writable: count,
		metrics:  o.metrics,
	}
	r.metrics.setMax(count)
	r.metrics.setUsed(0)
	return r
}

// Write copies entries to the internal ring buffer. It returns immediately if
// there's no space left for writing. Returns the number of entries written,
// or -1 if the Ring is closed.
func (r *Ring[T]) Write(entries []T) int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.closed {
		return -1
	}
	n := min(r.writable, len(entries))
	r.write(entries[:n])
	r.writable -= n
	r.readable += n
	r.metrics.addWritten(n)
	r.metrics.setUsed(r.readable)
	return n
}

// Read copies entries from the internal ring buffer. It returns immediately
// if there are no entries available. Returns the number of entries read, or
// -1 if the Ring is closed and drained.
func (r *Ring[T]) Read(entries []T) int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.closed && r.readable == 0 {
		// Don't return -1 so long as there are still readable entries
		// available.
		return -1
	}
	n := min(r.readable, len(entries))
	r.read(entries[:n])
	r.readable -= n
	r.writable += n
	r.metrics.addRead(n)
	r.metrics.setUsed(r.readable)
	return n
}

// Push appends a single entry. It returns false if the ring is full or
// closed, in which case the ring is left unchanged.
func (r *Ring[T]) Push(v T) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.closed || r.writable == 0 {
		return false
	}
	r.entries[r.writeIndex] = v
	r.writeIndex = (r.writeIndex + 1) % len(r.entries)
	r.writable--
	r.readable++
	r.metrics.addWritten(1)
	r.metrics.setUsed(r.readable)
	return true
}

// Pop removes and returns the oldest entry. It returns false if the ring is
// empty.
func (r *Ring[T]) Pop() (T, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	var zero T
	if r.readable == 0 {
		return zero, false
	}
	v := r.entries[r.readIndex]
	r.entries[r.readIndex] = zero
	r.readIndex = (r.readIndex + 1) % len(r.entries)
	r.readable--
	r.writable++
	r.metrics.addRead(1)
	r.metrics.setUsed(r.readable)
	return v, true
}

// Readable returns the number of entries currently buffered.
func (r *Ring[T]) Readable() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.readable
}

// Cap returns the capacity of the ring.
func (r *Ring[T]) Cap() int {
	return len(r.entries)
}

// Close closes the ring buffer. Subsequent writes fail, reads drain what is
// left.
func (r *Ring[T]) Close() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.closed = true
}

func (r *Ring[T]) write(entries []T) {
	n := copy(r.entries[r.writeIndex:], entries)
	r.writeIndex += n
	// Wraparound if we need to write more slice references
	if n < len(entries) {
		n = copy(r.entries, entries[n:])
		r.writeIndex = n
	}
	if r.writeIndex == len(r.entries) {
		r.writeIndex = 0
	}
}

func (r *Ring[T]) read(entries []T) {
	var zero T
	n := copy(entries, r.entries[r.readIndex:])
	// Remove references that were just read.
	for i := r.readIndex; i < r.readIndex+n; i++ {
		r.entries[i] = zero
	}
	r.readIndex += n
	if n < len(entries) {
		n = copy(entries[n:], r.entries)
		for i := 0; i < n; i++ {
			r.entries[i] = zero
		}
		r.readIndex = n
	}
	if r.readIndex == len(r.entries) {
		r.readIndex = 0
	}
}
