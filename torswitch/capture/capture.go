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

// Package capture writes redirected packets to a pcap file. A capture Writer
// stands in for the drop port when the drop port is not one of the switch
// ports.
package capture

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/gopacket/gopacket/pcapgo"

	"github.com/mpi-ncs/openoptics/pkg/log"
	"github.com/mpi-ncs/openoptics/pkg/private/serrors"
	"github.com/mpi-ncs/openoptics/torswitch/pkt"
)

// DefaultSnapLen is the default maximum number of bytes stored per packet.
const DefaultSnapLen = 65535

// Writer is a drop.Sink that appends every packet to a pcap stream. It is safe
// for concurrent use.
type Writer struct {
	mu      sync.Mutex
	w       *pcapgo.Writer
	closer  io.Closer
	snapLen uint32
	now     func() time.Time
	logger  log.Logger
	written uint64
	failed  bool
}

// NewWriter writes the pcap file header to w and returns a Writer. Packets are
// stored as raw IP, truncated to snapLen bytes.
func NewWriter(w io.Writer, snapLen uint32) (*Writer, error) {
	if snapLen == 0 {
		snapLen = DefaultSnapLen
	}
	pw := pcapgo.NewWriter(w)
	if err := pw.WriteFileHeader(snapLen, layers.LinkTypeRaw); err != nil {
		return nil, serrors.Wrap("writing pcap header", err)
	}
	wr := &Writer{
		w:       pw,
		snapLen: snapLen,
		now:     time.Now,
		logger:  log.New("component", "capture"),
	}
	if c, ok := w.(io.Closer); ok {
		wr.closer = c
	}
	return wr, nil
}

// Create creates or truncates the file at path and returns a Writer for it.
func Create(path string, snapLen uint32) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, serrors.Wrap("creating capture file", err, "path", path)
	}
	w, err := NewWriter(f, snapLen)
	if err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

// Capture appends p to the capture. It reports false once a write failed or
// the writer was closed.
func (w *Writer) Capture(p *pkt.Packet) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failed {
		return false
	}
	data := p.Raw
	if uint32(len(data)) > w.snapLen {
		data = data[:w.snapLen]
	}
	ts := p.Enqueued
	if ts.IsZero() {
		ts = w.now()
	}
	ci := gopacket.CaptureInfo{
		Timestamp:     ts,
		CaptureLength: len(data),
		Length:        len(p.Raw),
	}
	if err := w.w.WritePacket(ci, data); err != nil {
		// Stop capturing rather than logging every subsequent packet.
		w.failed = true
		w.logger.Error("Capture write failed, disabling capture", "err", err)
		return false
	}
	w.written++
	return true
}

// Written returns the number of packets written.
func (w *Writer) Written() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}

// Close closes the underlying writer if it is an io.Closer. Subsequent
// captures are rejected.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.failed = true
	if w.closer == nil {
		return nil
	}
	return w.closer.Close()
}
