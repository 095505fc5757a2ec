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

package drop_test

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/mpi-ncs/openoptics/torswitch/drop"
	"github.com/mpi-ncs/openoptics/torswitch/pkt"
)

func TestRedirectCounts(t *testing.T) {
	tests := map[string]struct {
		port         uint32
		reason       drop.Reason
		expectedPort []uint64
	}{
		"queue full": {
			port:         1,
			reason:       drop.QueueFull,
			expectedPort: []uint64{0, 1},
		},
		"transmit failed": {
			port:         0,
			reason:       drop.TransmitFailed,
			expectedPort: []uint64{1, 0},
		},
		"unconfigured port counted by reason only": {
			port:         9,
			reason:       drop.PortUnconfigured,
			expectedPort: []uint64{0, 0},
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			c := drop.NewController(2)
			c.Redirect(&pkt.Packet{Port: tc.port}, tc.reason)

			s := c.Snapshot()
			assert.Equal(t, tc.expectedPort, s.PerPort)
			assert.Equal(t, uint64(1), s.PerReason[tc.reason.String()])
			assert.Equal(t, uint64(1), s.Total)
			assert.Equal(t, uint64(1), s.Discarded)
			assert.Equal(t, uint64(1), c.ReasonDrops(tc.reason))
			assert.Equal(t, uint64(1), c.Total())
		})
	}
}

func TestRedirectToSink(t *testing.T) {
	var captured []*pkt.Packet
	accept := true
	c := drop.NewController(1, drop.WithSink(drop.SinkFunc(func(p *pkt.Packet) bool {
		if accept {
			captured = append(captured, p)
		}
		return accept
	})))

	p := &pkt.Packet{Port: 0}
	c.Redirect(p, drop.QueueFull)
	assert.Equal(t, []*pkt.Packet{p}, captured)
	assert.True(t, p.Redirected)

	// A packet that already went to the sink is not redirected again.
	c.Redirect(p, drop.TransmitFailed)
	assert.Len(t, captured, 1)

	accept = false
	c.Redirect(&pkt.Packet{Port: 0}, drop.QueueFull)

	s := c.Snapshot()
	assert.Equal(t, uint64(1), s.Captured)
	assert.Equal(t, uint64(2), s.Discarded)
	assert.Equal(t, uint64(3), s.PerPort[0])
	assert.Equal(t, uint64(3), s.Total)
}

func TestRedirectMetrics(t *testing.T) {
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "dropped"},
		[]string{"port", "reason"})
	c := drop.NewController(2, drop.WithMetrics(vec))
	c.Redirect(&pkt.Packet{Port: 1}, drop.QueueFull)
	c.Redirect(&pkt.Packet{Port: 7}, drop.PortUnconfigured)

	assert.InDelta(t, 1, testutil.ToFloat64(vec.WithLabelValues("1", "queue_full")), 0)
	assert.InDelta(t, 1,
		testutil.ToFloat64(vec.WithLabelValues("unconfigured", "port_unconfigured")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(vec.WithLabelValues("0", "transmit_failed")), 0)
}

func TestConcurrentRedirect(t *testing.T) {
	const producers, perProducer = 8, 1000
	c := drop.NewController(producers)
	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func(port uint32) {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				c.Redirect(&pkt.Packet{Port: port}, drop.QueueFull)
			}
		}(uint32(i))
	}
	wg.Wait()
	for port := uint32(0); port < producers; port++ {
		assert.Equal(t, uint64(perProducer), c.PortDrops(port))
	}
	assert.Equal(t, uint64(producers*perProducer), c.ReasonDrops(drop.QueueFull))
	assert.Equal(t, uint64(0), c.PortDrops(producers))
}

func TestReasonString(t *testing.T) {
	assert.Equal(t, "queue_full", drop.QueueFull.String())
	assert.Equal(t, "queue_unconfigured", drop.QueueUnconfigured.String())
	assert.Equal(t, "unknown_42", drop.Reason(42).String())
}
