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

package config_test

import (
	"bytes"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	libconfig "github.com/mpi-ncs/openoptics/private/config"
	"github.com/mpi-ncs/openoptics/torswitch"
	"github.com/mpi-ncs/openoptics/torswitch/calendar"
	"github.com/mpi-ncs/openoptics/torswitch/classify"
	"github.com/mpi-ncs/openoptics/torswitch/config"
	"github.com/mpi-ncs/openoptics/torswitch/underlay"
)

func TestConfigSample(t *testing.T) {
	var sample bytes.Buffer
	var cfg config.Config
	cfg.Sample(&sample, nil, libconfig.CtxMap{libconfig.ID: "tor0"})

	require.NoError(t, libconfig.Decode(sample.Bytes(), &cfg))
	cfg.InitDefaults()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "tor0", cfg.General.ID)
	assert.Equal(t, "", cfg.API.Addr)
	assert.Equal(t, torswitch.Identity{
		TorID:            0,
		DropPort:         511,
		NbPorts:          16,
		NbPriorityQueues: 1,
		QueueCapacity:    64,
		NbTimeSlices:     1,
		SliceDuration:    128 * time.Millisecond,
		Mode:             calendar.TimeBased,
	}, cfg.Identity())
	assert.Equal(t, []underlay.Peer{
		{Port: 0, Address: netip.MustParseAddrPort("127.0.0.1:31000")},
	}, cfg.Underlay.Peers)
	require.Len(t, cfg.Underlay.Routes, 1)
	assert.Equal(t, "10.0.0.0/24", cfg.Underlay.Routes[0].Networks.String())
	assert.Equal(t, underlay.DefaultBatchSize, cfg.Underlay.BatchSize)
	assert.Equal(t, uint32(65535), cfg.Capture.SnapLen)
}

func TestSampleMatchesDefaults(t *testing.T) {
	var sample bytes.Buffer
	var fromSample config.Config
	fromSample.Sample(&sample, nil, libconfig.CtxMap{libconfig.ID: "tor0"})
	require.NoError(t, libconfig.Decode(sample.Bytes(), &fromSample))
	fromSample.InitDefaults()

	defaults := config.Config{}
	defaults.General.ID = "tor0"
	defaults.InitDefaults()

	assert.Equal(t, defaults.Identity(), fromSample.Identity())
	assert.Equal(t, defaults.Logging, fromSample.Logging)
	assert.Equal(t, defaults.Tracing, fromSample.Tracing)
	assert.Equal(t, defaults.Capture, fromSample.Capture)
}

func TestSwitchValidate(t *testing.T) {
	tests := map[string]struct {
		modify  func(*config.Switch)
		wantErr bool
	}{
		"defaults": {
			modify: func(*config.Switch) {},
		},
		"control based ignores duration": {
			modify: func(s *config.Switch) {
				s.CalendarQueueMode = 1
				s.TimeSliceDurationMs = -1
			},
		},
		"negative duration in time based": {
			modify:  func(s *config.Switch) { s.TimeSliceDurationMs = -1 },
			wantErr: true,
		},
		"unknown mode": {
			modify:  func(s *config.Switch) { s.CalendarQueueMode = 2 },
			wantErr: true,
		},
		"negative ports": {
			modify:  func(s *config.Switch) { s.NbPorts = -1 },
			wantErr: true,
		},
		"negative queues": {
			modify:  func(s *config.Switch) { s.PriorityQueues = -3 },
			wantErr: true,
		},
		"negative slices": {
			modify:  func(s *config.Switch) { s.NbTimeSlices = -1 },
			wantErr: true,
		},
		"negative capacity": {
			modify:  func(s *config.Switch) { s.QueueCapacity = -1 },
			wantErr: true,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			var s config.Switch
			s.InitDefaults()
			tc.modify(&s)
			err := s.Validate()
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSwitchExplicitZeroDropPort(t *testing.T) {
	var cfg config.Config
	require.NoError(t, libconfig.Decode([]byte("[switch]\ndrop_port = 0\n"), &cfg))
	cfg.InitDefaults()
	assert.Equal(t, uint32(0), cfg.Identity().DropPort)
}

func TestConfigValidateCrossChecks(t *testing.T) {
	tests := map[string]struct {
		raw string
	}{
		"peer on unconfigured port": {
			raw: "[general]\nid = \"tor0\"\n[switch]\nnb_ports = 2\n" +
				"[underlay]\npeers = [{ port = 2, address = \"127.0.0.1:1\" }]\n",
		},
		"route to unconfigured port": {
			raw: "[general]\nid = \"tor0\"\n[switch]\nnb_ports = 2\n" +
				"[underlay]\nroutes = [{ port = 5, networks = \"10.1.0.0/16\" }]\n",
		},
		"bad listen address": {
			raw: "[general]\nid = \"tor0\"\n[underlay]\nlisten = \"nope\"\n",
		},
		"missing id": {
			raw: "[switch]\nnb_ports = 2\n",
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			var cfg config.Config
			require.NoError(t, libconfig.Decode([]byte(tc.raw), &cfg))
			cfg.InitDefaults()
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestUnderlayClassifierRoutes(t *testing.T) {
	var u config.Underlay
	routes := u.ClassifierRoutes(3)
	require.Len(t, routes, 3)
	assert.Equal(t, "10.0.2.0/24", routes[2].Networks.String())

	u.Routes = []classify.Route{{Port: 1, Networks: classify.MustParseIPSet("10.9.0.0/16")}}
	assert.Equal(t, u.Routes, u.ClassifierRoutes(3))
}

func TestUnderlayListenAddr(t *testing.T) {
	u := config.Underlay{Listen: "127.0.0.1:30000"}
	u.InitDefaults()
	require.NoError(t, u.Validate())
	assert.Equal(t, netip.MustParseAddrPort("127.0.0.1:30000"), u.ListenAddr())
}
