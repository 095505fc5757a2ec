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

package classify_test

import (
	"net"
	"net/netip"
	"testing"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpi-ncs/openoptics/torswitch/classify"
)

func ipv4Packet(t *testing.T, dst string, tos uint8) []byte {
	t.Helper()
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		TOS:      tos,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.ParseIP("10.0.0.1").To4(),
		DstIP:    net.ParseIP(dst).To4(),
	}
	udp := &layers.UDP{SrcPort: 4000, DstPort: 5000}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, ip, udp,
		gopacket.Payload([]byte("payload"))))
	return buf.Bytes()
}

func TestClassify(t *testing.T) {
	c, err := classify.New(classify.DefaultRoutes(4), 2)
	require.NoError(t, err)

	tests := map[string]struct {
		dst          string
		tos          uint8
		expectedPort uint32
		expectedCls  uint8
		expectedErr  error
	}{
		"best effort to tor 2": {
			dst: "10.0.2.1", tos: 0, expectedPort: 2, expectedCls: 1,
		},
		"network control to tor 3": {
			dst: "10.0.3.7", tos: 0xe0, expectedPort: 3, expectedCls: 0,
		},
		"precedence 4 is high priority": {
			dst: "10.0.0.1", tos: 4 << 5, expectedPort: 0, expectedCls: 0,
		},
		"precedence 3 is low priority": {
			dst: "10.0.1.1", tos: 3 << 5, expectedPort: 1, expectedCls: 1,
		},
		"no route": {
			dst: "10.0.9.1", expectedErr: classify.ErrNoRoute,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			port, cls, err := c.Classify(ipv4Packet(t, tc.dst, tc.tos))
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectedPort, port)
			assert.Equal(t, tc.expectedCls, cls)
		})
	}
}

func TestClassifyGarbage(t *testing.T) {
	c, err := classify.New(classify.DefaultRoutes(1), 1)
	require.NoError(t, err)
	_, _, err = c.Classify([]byte{0x45, 0x00})
	assert.ErrorIs(t, err, classify.ErrNotIPv4)
}

func TestClassSpreadsPrecedence(t *testing.T) {
	c, err := classify.New(nil, 8)
	require.NoError(t, err)
	for prec := 0; prec < 8; prec++ {
		assert.Equal(t, uint8(7-prec), c.Class(uint8(prec<<5)))
	}
	single, err := classify.New(nil, 1)
	require.NoError(t, err)
	assert.Equal(t, uint8(0), single.Class(0))
	assert.Equal(t, uint8(0), single.Class(0xff))
}

func TestNewRejectsOverlappingRoutes(t *testing.T) {
	_, err := classify.New([]classify.Route{
		{Port: 0, Networks: classify.MustParseIPSet("10.0.0.0/16")},
		{Port: 1, Networks: classify.MustParseIPSet("10.0.1.0/24")},
	}, 1)
	assert.Error(t, err)
	_, err = classify.New(nil, 0)
	assert.Error(t, err)
}

func TestIPSetText(t *testing.T) {
	var s classify.IPSet
	require.NoError(t, s.UnmarshalText([]byte("10.0.1.0/24, 10.0.0.0/24")))
	assert.Equal(t, "10.0.0.0/23", s.String())
	assert.True(t, s.Contains(netip.MustParseAddr("10.0.1.200")))
	assert.Error(t, s.UnmarshalText([]byte("not-a-prefix")))
}

func TestPort(t *testing.T) {
	c, err := classify.New([]classify.Route{
		{Port: 5, Networks: classify.MustParseIPSet("192.168.0.0/16,172.16.0.0/12")},
	}, 1)
	require.NoError(t, err)
	port, err := c.Port(netip.MustParseAddr("172.20.1.1"))
	require.NoError(t, err)
	assert.Equal(t, uint32(5), port)
}
