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

// Package underlay carries the switch's data plane over UDP. Every datagram
// holds one raw IPv4 packet. Ingress classifies and enqueues received packets,
// Egress sends dequeued packets to the peer attached to each switch port.
package underlay

import (
	"net"
	"net/netip"

	"golang.org/x/net/ipv4"

	"github.com/mpi-ncs/openoptics/pkg/log"
	"github.com/mpi-ncs/openoptics/pkg/private/serrors"
)

// Config holds the socket options of an underlay connection.
type Config struct {
	SendBufferSize    int
	ReceiveBufferSize int
}

// Conn is a UDP socket that supports batched reads.
type Conn struct {
	conn   *net.UDPConn
	pconn  *ipv4.PacketConn
	Listen netip.AddrPort
}

// Listen opens a UDP socket bound to laddr.
func Listen(laddr netip.AddrPort, cfg Config) (*Conn, error) {
	if !laddr.IsValid() {
		return nil, serrors.New("listen address must be specified")
	}
	c, err := net.ListenUDP("udp4", net.UDPAddrFromAddrPort(laddr))
	if err != nil {
		return nil, serrors.Wrap("Error listening on socket", err, "listen", laddr)
	}
	if cfg.SendBufferSize != 0 {
		if err := c.SetWriteBuffer(cfg.SendBufferSize); err != nil {
			c.Close()
			return nil, serrors.Wrap("Error setting send buffer size", err, "listen", laddr)
		}
	}
	if cfg.ReceiveBufferSize != 0 {
		if err := c.SetReadBuffer(cfg.ReceiveBufferSize); err != nil {
			c.Close()
			return nil, serrors.Wrap("Error setting recv buffer size", err, "listen", laddr)
		}
	}
	local := c.LocalAddr().(*net.UDPAddr).AddrPort()
	log.Debug("Underlay socket opened", "listen", local)
	return &Conn{
		conn:   c,
		pconn:  ipv4.NewPacketConn(c),
		Listen: local,
	}, nil
}

// ReadBatch reads up to len(msgs) datagrams. On platforms without recvmmsg it
// reads a single datagram.
func (c *Conn) ReadBatch(msgs []ipv4.Message) (int, error) {
	return c.pconn.ReadBatch(msgs, 0)
}

// WriteTo sends b to dst.
func (c *Conn) WriteTo(b []byte, dst netip.AddrPort) (int, error) {
	return c.conn.WriteToUDPAddrPort(b, dst)
}

// LocalAddr returns the bound address.
func (c *Conn) LocalAddr() netip.AddrPort {
	return c.Listen
}

// Close closes the socket. Pending reads return an error.
func (c *Conn) Close() error {
	return c.conn.Close()
}
