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

package underlay

import (
	"errors"
	"net/netip"

	"github.com/mpi-ncs/openoptics/pkg/private/serrors"
	"github.com/mpi-ncs/openoptics/torswitch/pkt"
)

// ErrNoPeer is returned when a port has no peer attached.
var ErrNoPeer = errors.New("no peer attached to port")

// Peer attaches a remote UDP endpoint to a switch port.
type Peer struct {
	Port    uint32         `toml:"port"`
	Address netip.AddrPort `toml:"address"`
}

// Egress transmits packets to the peer attached to their port. It implements
// torswitch.Transmitter.
type Egress struct {
	conn  *Conn
	peers map[uint32]netip.AddrPort
}

// NewEgress creates an Egress sending on conn. Every port may carry at most one
// peer.
func NewEgress(conn *Conn, peers []Peer) (*Egress, error) {
	m := make(map[uint32]netip.AddrPort, len(peers))
	for _, p := range peers {
		if !p.Address.IsValid() {
			return nil, serrors.New("invalid peer address", "port", p.Port)
		}
		if _, ok := m[p.Port]; ok {
			return nil, serrors.New("duplicate peer", "port", p.Port)
		}
		m[p.Port] = p.Address
	}
	return &Egress{conn: conn, peers: m}, nil
}

// Transmit sends the raw packet to the peer of port.
func (e *Egress) Transmit(port uint32, p *pkt.Packet) error {
	dst, ok := e.peers[port]
	if !ok {
		return serrors.Join(ErrNoPeer, nil, "port", port)
	}
	if _, err := e.conn.WriteTo(p.Raw, dst); err != nil {
		return serrors.Wrap("sending packet", err, "port", port, "peer", dst)
	}
	return nil
}
