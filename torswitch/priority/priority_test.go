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

package priority_test

import (
	"strconv"
	"sync"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpi-ncs/openoptics/pkg/ringbuf"
	"github.com/mpi-ncs/openoptics/torswitch/drop"
	"github.com/mpi-ncs/openoptics/torswitch/pkt"
	"github.com/mpi-ncs/openoptics/torswitch/priority"
	"github.com/mpi-ncs/openoptics/torswitch/priority/mock_priority"
)

func TestQueueFIFO(t *testing.T) {
	q := priority.NewQueue(4)
	packets := []*pkt.Packet{{Raw: []byte{1}}, {Raw: []byte{2}}, {Raw: []byte{3}}, {Raw: []byte{4}}}
	for _, p := range packets {
		require.True(t, q.Enqueue(p))
	}
	assert.Equal(t, 4, q.Depth())
	for _, expected := range packets {
		p, ok := q.Dequeue()
		require.True(t, ok)
		assert.Same(t, expected, p)
	}
	_, ok := q.Dequeue()
	assert.False(t, ok)
}

func TestQueueFullLeavesQueueUnchanged(t *testing.T) {
	q := priority.NewQueue(1)
	first := &pkt.Packet{Raw: []byte{1}}
	require.True(t, q.Enqueue(first))
	assert.False(t, q.Enqueue(&pkt.Packet{Raw: []byte{2}}))
	assert.Equal(t, 1, q.Depth())
	assert.Equal(t, 1, q.Capacity())
	p, ok := q.Dequeue()
	require.True(t, ok)
	assert.Same(t, first, p)
}

func TestStrictPriority(t *testing.T) {
	s := priority.NewPortQueueSet(0, 2, 4, nil, nil)
	a := &pkt.Packet{Raw: []byte("A")}
	b := &pkt.Packet{Raw: []byte("B")}
	// Enqueue the low priority packet first.
	accepted, err := s.Enqueue(1, b)
	require.NoError(t, err)
	require.True(t, accepted)
	accepted, err = s.Enqueue(0, a)
	require.NoError(t, err)
	require.True(t, accepted)

	p, ok := s.DequeueNext()
	require.True(t, ok)
	assert.Same(t, a, p)
	p, ok = s.DequeueNext()
	require.True(t, ok)
	assert.Same(t, b, p)
}

func TestEnqueueFullQueueNotifiesDropper(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dropper := mock_priority.NewMockDropper(ctrl)
	s := priority.NewPortQueueSet(3, 2, 1, dropper, nil)
	accepted, err := s.Enqueue(1, &pkt.Packet{})
	require.NoError(t, err)
	require.True(t, accepted)

	overflow := &pkt.Packet{}
	dropper.EXPECT().Redirect(overflow, drop.QueueFull).Times(1)
	accepted, err = s.Enqueue(1, overflow)
	assert.NoError(t, err)
	assert.False(t, accepted)
	assert.Equal(t, []int{0, 1}, s.Depths())
	assert.Equal(t, 1, s.AggregateDepth())
	assert.Equal(t, uint64(1), s.Drops())
}

func TestEnqueueUnconfiguredClass(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dropper := mock_priority.NewMockDropper(ctrl)
	s := priority.NewPortQueueSet(0, 2, 1, dropper, nil)
	p := &pkt.Packet{}
	dropper.EXPECT().Redirect(p, drop.QueueUnconfigured)
	accepted, err := s.Enqueue(2, p)
	assert.ErrorIs(t, err, priority.ErrQueueUnconfigured)
	assert.False(t, accepted)
	assert.Equal(t, 0, s.AggregateDepth())
	assert.Nil(t, s.Queue(2))
}

func TestOfferBypassesDropper(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// No calls expected on the dropper.
	s := priority.NewPortQueueSet(0, 1, 1, mock_priority.NewMockDropper(ctrl), nil)
	assert.True(t, s.Offer(0, &pkt.Packet{}))
	assert.False(t, s.Offer(0, &pkt.Packet{}))
	assert.False(t, s.Offer(1, &pkt.Packet{}))
	assert.Equal(t, uint64(0), s.Drops())
}

func TestDequeueNextEmptyIsIdempotent(t *testing.T) {
	s := priority.NewPortQueueSet(0, 3, 2, nil, nil)
	for i := 0; i < 5; i++ {
		_, ok := s.DequeueNext()
		assert.False(t, ok)
		assert.Equal(t, 0, s.AggregateDepth())
		assert.Equal(t, []int{0, 0, 0}, s.Depths())
	}
}

func TestAggregateDepthIsSum(t *testing.T) {
	s := priority.NewPortQueueSet(0, 3, 4, nil, nil)
	fill := map[uint8]int{0: 1, 1: 3, 2: 2}
	for class, n := range fill {
		for i := 0; i < n; i++ {
			_, err := s.Enqueue(class, &pkt.Packet{})
			require.NoError(t, err)
		}
	}
	assert.Equal(t, 6, s.AggregateDepth())
	s.DequeueNext()
	assert.Equal(t, []int{0, 3, 2}, s.Depths())
	assert.Equal(t, 5, s.AggregateDepth())
}

func TestCloseRejectsEnqueue(t *testing.T) {
	s := priority.NewPortQueueSet(0, 1, 2, nil, nil)
	_, err := s.Enqueue(0, &pkt.Packet{})
	require.NoError(t, err)
	s.Close()
	assert.False(t, s.Offer(0, &pkt.Packet{}))
	// Queued packets survive the close.
	_, ok := s.DequeueNext()
	assert.True(t, ok)
}

func TestQueueOptions(t *testing.T) {
	depth := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "depth"}, []string{"class"})
	s := priority.NewPortQueueSet(0, 2, 2, nil, func(_ uint32, class uint8) []ringbuf.Option {
		return []ringbuf.Option{ringbuf.WithMetrics(ringbuf.Metrics{
			UsedEntries: depth.WithLabelValues(strconv.Itoa(int(class))),
		})}
	})
	_, err := s.Enqueue(1, &pkt.Packet{})
	require.NoError(t, err)
	assert.InDelta(t, 0, testutil.ToFloat64(depth.WithLabelValues("0")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(depth.WithLabelValues("1")), 0)
}

func TestConcurrentEnqueueSingleConsumer(t *testing.T) {
	const producers, perProducer = 4, 500
	s := priority.NewPortQueueSet(0, producers, perProducer, nil, nil)
	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func(class uint8) {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				p := &pkt.Packet{Priority: class, Raw: []byte{byte(j >> 8), byte(j)}}
				accepted, err := s.Enqueue(class, p)
				assert.NoError(t, err)
				assert.True(t, accepted)
			}
		}(uint8(i))
	}

	next := make([]int, producers)
	received := 0
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	for drained := false; !drained; {
		select {
		case <-done:
			drained = true
		default:
		}
		for {
			p, ok := s.DequeueNext()
			if !ok {
				break
			}
			seq := int(p.Raw[0])<<8 | int(p.Raw[1])
			assert.Equal(t, next[p.Priority], seq)
			next[p.Priority]++
			received++
		}
	}
	assert.Equal(t, producers*perProducer, received)
	assert.Equal(t, 0, s.AggregateDepth())
}
