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

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpi-ncs/openoptics/torswitch"
	"github.com/mpi-ncs/openoptics/torswitch/drop"
)

func testMetric() torswitch.DeviceMetric {
	return torswitch.DeviceMetric{
		TorID:       3,
		Mode:        "CONTROL_BASED",
		CurrentSlot: 1,
		Paused:      true,
		QueueDepths: []torswitch.QueueDepth{
			{Port: 0, Queue: 0, Depth: 0},
			{Port: 1, Queue: 0, Depth: 4},
		},
		DropCounter: 2,
		Drops: drop.Snapshot{
			Total:     2,
			PerReason: map[string]uint64{"queue_full": 2, "transmit_failed": 0},
			PerPort:   []uint64{0, 2},
			Discarded: 2,
		},
	}
}

func TestFetchDeviceMetric(t *testing.T) {
	tests := map[string]struct {
		handler   http.HandlerFunc
		assertErr assert.ErrorAssertionFunc
	}{
		"ok": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/v1/metrics", r.URL.Path)
				require.NoError(t, json.NewEncoder(w).Encode(testMetric()))
			},
			assertErr: assert.NoError,
		},
		"server error": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			assertErr: assert.Error,
		},
		"garbage": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("{"))
			},
			assertErr: assert.Error,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()
			addr := strings.TrimPrefix(srv.URL, "http://")
			m, err := fetchDeviceMetric(context.Background(), srv.Client(), addr)
			tc.assertErr(t, err)
			if err == nil {
				assert.Equal(t, testMetric(), m)
			}
		})
	}
}

func TestRenderStatus(t *testing.T) {
	var buf bytes.Buffer
	renderStatus(&buf, testMetric(), false)
	out := buf.String()

	assert.Contains(t, out, "ToR 3, CONTROL_BASED, slot 1 (paused)")
	assert.Contains(t, out, "PORT")
	assert.Contains(t, out, "queue_full")
	assert.NotContains(t, out, "\x1b[")
	assert.Less(t, strings.Index(out, "queue_full"), strings.Index(out, "transmit_failed"))
	assert.Regexp(t, `(?m)^\s*1\s+0\s+4\s+2\s*$`, out)
}

func TestRenderStatusColored(t *testing.T) {
	var buf bytes.Buffer
	renderStatus(&buf, testMetric(), true)
	assert.Contains(t, buf.String(), "\x1b[")
}
