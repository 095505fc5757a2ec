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
	"github.com/mpi-ncs/openoptics/torswitch/pkt"
)

// Transmitter is the transmit path of the switch. Transmit takes ownership of
// p on success. On failure the scheduler hands p to the drop controller.
type Transmitter interface {
	Transmit(port uint32, p *pkt.Packet) error
}

// TransmitterFunc adapts a function to the Transmitter interface.
type TransmitterFunc func(port uint32, p *pkt.Packet) error

// Transmit calls f(port, p).
func (f TransmitterFunc) Transmit(port uint32, p *pkt.Packet) error {
	return f(port, p)
}
