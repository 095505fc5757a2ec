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

package ringbuf_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpi-ncs/openoptics/pkg/ringbuf"
)

func TestFIFOAcrossWraparound(t *testing.T) {
	r := ringbuf.New[int](3)
	assert.Equal(t, 2, r.Write([]int{1, 2}))
	out := make([]int, 1)
	require.Equal(t, 1, r.Read(out))
	assert.Equal(t, 1, out[0])
	// Buffer now holds [2] and wraps on the next write.
	assert.Equal(t, 2, r.Write([]int{3, 4}))
	assert.Equal(t, 0, r.Write([]int{5}))
	assert.Equal(t, 3, r.Readable())

	out = make([]int, 4)
	n := r.Read(out)
	require.Equal(t, 3, n)
	assert.Equal(t, []int{2, 3, 4}, out[:n])
	assert.Equal(t, 0, r.Read(out))
}

func TestWriteTruncatesAtCapacity(t *testing.T) {
	r := ringbuf.New[string](2)
	assert.Equal(t, 2, r.Write([]string{"a", "b", "c"}))
	assert.Equal(t, 2, r.Cap())
	assert.Equal(t, 2, r.Readable())
}

func TestClose(t *testing.T) {
	r := ringbuf.New[int](2)
	r.Write([]int{7})
	r.Close()
	assert.Equal(t, -1, r.Write([]int{8}))
	out := make([]int, 1)
	assert.Equal(t, 1, r.Read(out))
	assert.Equal(t, 7, out[0])
	assert.Equal(t, -1, r.Read(out))
}

func TestMetrics(t *testing.T) {
	used := prometheus.NewGauge(prometheus.GaugeOpts{Name: "used"})
	maxG := prometheus.NewGauge(prometheus.GaugeOpts{Name: "max"})
	written := prometheus.NewCounter(prometheus.CounterOpts{Name: "written"})
	r := ringbuf.New[int](4, ringbuf.WithMetrics(ringbuf.Metrics{
		MaxEntries:   maxG,
		UsedEntries:  used,
		WriteEntries: written,
	}))
	r.Write([]int{1, 2, 3})
	r.Read(make([]int, 1))
	assert.InDelta(t, 4, testutil.ToFloat64(maxG), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(used), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(written), 0)
}

func TestPushPop(t *testing.T) {
	r := ringbuf.New[int](2)
	_, ok := r.Pop()
	assert.False(t, ok)
	assert.True(t, r.Push(1))
	assert.True(t, r.Push(2))
	assert.False(t, r.Push(3))
	assert.Equal(t, 2, r.Readable())

	v, ok := r.Pop()
	require.True(t, ok)
	assert.Equal(t, 1, v)
	// Mixing single and batch operations keeps FIFO order across the wrap.
	assert.Equal(t, 1, r.Write([]int{4}))
	out := make([]int, 2)
	require.Equal(t, 2, r.Read(out))
	assert.Equal(t, []int{2, 4}, out)

	r.Close()
	assert.False(t, r.Push(5))
}
