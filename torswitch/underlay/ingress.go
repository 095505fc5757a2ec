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
	"context"
	"errors"
	"net"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/net/ipv4"

	"github.com/mpi-ncs/openoptics/pkg/log"
	"github.com/mpi-ncs/openoptics/pkg/private/prom"
	"github.com/mpi-ncs/openoptics/pkg/private/serrors"
	"github.com/mpi-ncs/openoptics/torswitch/classify"
	"github.com/mpi-ncs/openoptics/torswitch/pkt"
)

const (
	// DefaultBatchSize is the number of datagrams read per system call.
	DefaultBatchSize = 64
	// MaxPacketSize is the largest datagram accepted.
	MaxPacketSize = 9216
)

// Ingress results.
const (
	ResultEnqueued  = "enqueued"
	ResultQueueFull = "queue_full"
	ResultNoRoute   = "no_route"
	ResultMalformed = "malformed"
	ResultRejected  = "rejected"
)

// Enqueuer accepts classified packets.
type Enqueuer interface {
	Enqueue(port uint32, class uint8, p *pkt.Packet) (bool, error)
}

// IngressMetrics counts received packets by result.
type IngressMetrics struct {
	ReceivedPacketsTotal *prometheus.CounterVec
}

// NewIngressMetrics registers the ingress metrics with the default registry.
func NewIngressMetrics() *IngressMetrics {
	return &IngressMetrics{
		ReceivedPacketsTotal: prom.NewCounterVec("underlay", "received_pkts_total",
			"Total number of packets received on the underlay, by result.",
			[]string{prom.LabelResult},
		),
	}
}

func (m *IngressMetrics) inc(result string) {
	if m == nil {
		return
	}
	m.ReceivedPacketsTotal.WithLabelValues(result).Inc()
}

// Ingress reads packets from Conn, classifies them and enqueues them on the
// switch.
type Ingress struct {
	Conn       *Conn
	Classifier *classify.Classifier
	Switch     Enqueuer
	BatchSize  int
	Metrics    *IngressMetrics
	Logger     log.Logger
}

// Run reads until ctx is canceled or the connection is closed. Canceling ctx
// closes the connection.
func (in *Ingress) Run(ctx context.Context) error {
	logger := in.Logger
	if logger == nil {
		logger = log.New("component", "ingress")
	}
	batch := in.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	msgs := make([]ipv4.Message, batch)
	for i := range msgs {
		msgs[i].Buffers = [][]byte{make([]byte, MaxPacketSize)}
	}

	stop := context.AfterFunc(ctx, func() { in.Conn.Close() })
	defer stop()

	logger.Info("Ingress started", "listen", in.Conn.LocalAddr())
	for {
		n, err := in.Conn.ReadBatch(msgs)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				logger.Info("Ingress stopped")
				return nil
			}
			return serrors.Wrap("reading from underlay", err)
		}
		for i := range msgs[:n] {
			in.handle(logger, msgs[i].Buffers[0][:msgs[i].N])
		}
	}
}

func (in *Ingress) handle(logger log.Logger, b []byte) {
	port, class, err := in.Classifier.Classify(b)
	switch {
	case errors.Is(err, classify.ErrNoRoute):
		in.Metrics.inc(ResultNoRoute)
		return
	case err != nil:
		in.Metrics.inc(ResultMalformed)
		logger.Debug("Dropping malformed packet", "err", err)
		return
	}
	// The read buffer is reused for the next batch.
	raw := make([]byte, len(b))
	copy(raw, b)
	ok, err := in.Switch.Enqueue(port, class, &pkt.Packet{Raw: raw})
	switch {
	case err != nil:
		in.Metrics.inc(ResultRejected)
		logger.Debug("Enqueue rejected", "port", port, "class", class, "err", err)
	case !ok:
		in.Metrics.inc(ResultQueueFull)
	default:
		in.Metrics.inc(ResultEnqueued)
	}
}
