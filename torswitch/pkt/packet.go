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

// Package pkt defines the packet descriptor that moves through the egress
// queues.
package pkt

import "time"

// Packet is the descriptor of one buffered packet. It has exactly one owner at
// any time: the queue it sits in, the transmit path, or the drop controller.
type Packet struct {
	// Raw is the packet buffer as received on ingress.
	Raw []byte
	// Port is the destination egress port.
	Port uint32
	// Priority is the priority class, 0 being the highest.
	Priority uint8
	// Enqueued is set when the packet is accepted by a queue.
	Enqueued time.Time
	// Redirected is set once the packet was handed to the drop port sink. A
	// redirected packet is never redirected a second time.
	Redirected bool
}

// Len returns the length of the raw buffer.
func (p *Packet) Len() int {
	return len(p.Raw)
}
