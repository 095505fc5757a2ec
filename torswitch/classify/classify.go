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

// Package classify maps ingress IPv4 packets to an egress port and a priority
// class. The port is chosen by destination address, the class by the IP
// precedence bits of the TOS field.
package classify

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"go4.org/netipx"

	"github.com/mpi-ncs/openoptics/pkg/private/serrors"
)

var (
	// ErrNoRoute is returned for a destination that no route covers.
	ErrNoRoute = errors.New("no route to destination")
	// ErrNotIPv4 is returned for a packet that does not decode as IPv4.
	ErrNotIPv4 = errors.New("not an IPv4 packet")
)

// IPSet is a netipx.IPSet that can be converted to/from a comma separated
// list of prefixes.
type IPSet struct {
	netipx.IPSet
}

// ParseIPSet parses a comma separated list of prefixes.
func ParseIPSet(s string) (IPSet, error) {
	var sb netipx.IPSetBuilder
	for _, prefix := range strings.Split(s, ",") {
		prefix = strings.TrimSpace(prefix)
		if prefix == "" {
			continue
		}
		p, err := netip.ParsePrefix(prefix)
		if err != nil {
			return IPSet{}, err
		}
		sb.AddPrefix(p)
	}
	set, err := sb.IPSet()
	if err != nil {
		return IPSet{}, err
	}
	return IPSet{IPSet: *set}, nil
}

// MustParseIPSet is like ParseIPSet but panics on error.
func MustParseIPSet(s string) IPSet {
	set, err := ParseIPSet(s)
	if err != nil {
		panic(err)
	}
	return set
}

func (s IPSet) String() string {
	var prefixes []string
	for _, prefix := range s.Prefixes() {
		prefixes = append(prefixes, prefix.String())
	}
	return strings.Join(prefixes, ",")
}

// MarshalText implements encoding.TextMarshaler.
func (s IPSet) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *IPSet) UnmarshalText(b []byte) error {
	set, err := ParseIPSet(string(b))
	if err != nil {
		return err
	}
	*s = set
	return nil
}

// Route sends all destinations in Networks to Port.
type Route struct {
	Port     uint32 `toml:"port"`
	Networks IPSet  `toml:"networks"`
}

// DefaultRoutes returns the rack addressing plan of the network toolbox: the
// hosts behind ToR n live in 10.0.n.0/24 and are reached through port n.
func DefaultRoutes(nbPorts int) []Route {
	routes := make([]Route, 0, nbPorts)
	for port := 0; port < nbPorts && port < 256; port++ {
		routes = append(routes, Route{
			Port:     uint32(port),
			Networks: MustParseIPSet(fmt.Sprintf("10.0.%d.0/24", port)),
		})
	}
	return routes
}

// Classifier is immutable and safe for concurrent use.
type Classifier struct {
	routes    []Route
	nbClasses int
}

// New creates a classifier. Routes must not overlap and nbClasses must be
// positive.
func New(routes []Route, nbClasses int) (*Classifier, error) {
	if nbClasses <= 0 {
		return nil, serrors.New("number of classes must be positive", "classes", nbClasses)
	}
	for i := range routes {
		for j := i + 1; j < len(routes); j++ {
			if routes[i].Networks.Overlaps(&routes[j].Networks.IPSet) {
				return nil, serrors.New("overlapping routes",
					"first", routes[i].Networks, "second", routes[j].Networks)
			}
		}
	}
	return &Classifier{
		routes:    append([]Route(nil), routes...),
		nbClasses: nbClasses,
	}, nil
}

// Class maps the IP precedence (the top three TOS bits) to a priority class.
// Precedence 7 maps to class 0, precedence 0 to the lowest class.
func (c *Classifier) Class(tos uint8) uint8 {
	precedence := int(tos >> 5)
	return uint8((7 - precedence) * c.nbClasses / 8)
}

// Port returns the port that serves dst.
func (c *Classifier) Port(dst netip.Addr) (uint32, error) {
	for _, r := range c.routes {
		if r.Networks.Contains(dst) {
			return r.Port, nil
		}
	}
	return 0, serrors.Join(ErrNoRoute, nil, "dst", dst)
}

// Classify decodes raw as an IPv4 packet and returns its egress port and
// priority class.
func (c *Classifier) Classify(raw []byte) (uint32, uint8, error) {
	var ip layers.IPv4
	if err := ip.DecodeFromBytes(raw, gopacket.NilDecodeFeedback); err != nil {
		return 0, 0, serrors.Join(ErrNotIPv4, err)
	}
	if ip.Version != 4 {
		return 0, 0, serrors.Join(ErrNotIPv4, nil, "version", ip.Version)
	}
	dst, ok := netipx.FromStdIP(ip.DstIP)
	if !ok {
		return 0, 0, serrors.Join(ErrNotIPv4, nil, "dst", ip.DstIP)
	}
	port, err := c.Port(dst)
	if err != nil {
		return 0, 0, err
	}
	return port, c.Class(ip.TOS), nil
}
