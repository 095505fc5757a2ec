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

// Package config defines the TOML configuration of the torswitch binary.
package config

import (
	"io"
	"net/netip"
	"time"

	"github.com/mpi-ncs/openoptics/pkg/log"
	"github.com/mpi-ncs/openoptics/pkg/private/serrors"
	"github.com/mpi-ncs/openoptics/private/config"
	"github.com/mpi-ncs/openoptics/private/env"
	"github.com/mpi-ncs/openoptics/torswitch"
	"github.com/mpi-ncs/openoptics/torswitch/calendar"
	"github.com/mpi-ncs/openoptics/torswitch/capture"
	"github.com/mpi-ncs/openoptics/torswitch/classify"
	"github.com/mpi-ncs/openoptics/torswitch/underlay"
)

// Switch defaults.
const (
	DefaultTorID             = 0
	DefaultDropPort          = 511
	DefaultPriorityQueues    = 1
	DefaultNbTimeSlices      = 1
	DefaultTimeSliceDuration = 128 * time.Millisecond
	DefaultNbPorts           = 16
	DefaultQueueCapacity     = 64
)

var _ config.Config = (*Config)(nil)

// Config is the configuration of the torswitch binary.
type Config struct {
	General  env.General `toml:"general,omitempty"`
	Logging  log.Config  `toml:"log,omitempty"`
	Metrics  env.Metrics `toml:"metrics,omitempty"`
	Tracing  env.Tracing `toml:"tracing,omitempty"`
	API      API         `toml:"api,omitempty"`
	Switch   Switch      `toml:"switch,omitempty"`
	Underlay Underlay    `toml:"underlay,omitempty"`
	Capture  Capture     `toml:"capture,omitempty"`
}

func (cfg *Config) InitDefaults() {
	config.InitAll(
		&cfg.General,
		&cfg.Logging,
		&cfg.Metrics,
		&cfg.Tracing,
		&cfg.API,
		&cfg.Switch,
		&cfg.Underlay,
		&cfg.Capture,
	)
}

func (cfg *Config) Validate() error {
	if err := config.ValidateAll(
		&cfg.General,
		&cfg.Logging,
		&cfg.Metrics,
		&cfg.Tracing,
		&cfg.API,
		&cfg.Switch,
		&cfg.Underlay,
		&cfg.Capture,
	); err != nil {
		return err
	}
	for _, p := range cfg.Underlay.Peers {
		if int64(p.Port) >= int64(cfg.Switch.NbPorts) {
			return serrors.New("peer attached to unconfigured port",
				"port", p.Port, "nb_ports", cfg.Switch.NbPorts)
		}
	}
	for _, r := range cfg.Underlay.Routes {
		if int64(r.Port) >= int64(cfg.Switch.NbPorts) {
			return serrors.New("route to unconfigured port",
				"port", r.Port, "nb_ports", cfg.Switch.NbPorts)
		}
	}
	return nil
}

func (cfg *Config) Sample(dst io.Writer, path config.Path, ctx config.CtxMap) {
	config.WriteSample(dst, path, ctx,
		&cfg.General,
		&cfg.Logging,
		&cfg.Metrics,
		&cfg.Tracing,
		&cfg.API,
		&cfg.Switch,
		&cfg.Underlay,
		&cfg.Capture,
	)
}

// Identity converts the switch block into the identity of a switch. The
// configuration must be validated.
func (cfg *Config) Identity() torswitch.Identity {
	s := cfg.Switch
	return torswitch.Identity{
		TorID:            s.TorID,
		DropPort:         *s.DropPort,
		NbPorts:          s.NbPorts,
		NbPriorityQueues: s.PriorityQueues,
		QueueCapacity:    s.QueueCapacity,
		NbTimeSlices:     s.NbTimeSlices,
		SliceDuration:    time.Duration(s.TimeSliceDurationMs) * time.Millisecond,
		Mode:             calendar.Mode(s.CalendarQueueMode),
	}
}

var _ config.Config = (*API)(nil)

// API is the configuration of the management API.
type API struct {
	config.NoValidator
	// Addr is the address the management API listens on. If empty, the API
	// is disabled.
	Addr string `toml:"addr,omitempty"`
}

func (cfg *API) InitDefaults() {}

func (cfg *API) Sample(dst io.Writer, _ config.Path, _ config.CtxMap) {
	config.WriteString(dst, apiSample)
}

func (cfg *API) ConfigName() string {
	return "api"
}

var _ config.Config = (*Switch)(nil)

// Switch holds the options of the switch instance.
type Switch struct {
	TorID               uint32  `toml:"tor_id"`
	DropPort            *uint32 `toml:"drop_port,omitempty"`
	NbPorts             int     `toml:"nb_ports,omitempty"`
	PriorityQueues      int     `toml:"priority_queues,omitempty"`
	QueueCapacity       int     `toml:"queue_capacity,omitempty"`
	NbTimeSlices        int     `toml:"nb_time_slices,omitempty"`
	TimeSliceDurationMs int     `toml:"time_slice_duration_ms,omitempty"`
	CalendarQueueMode   int     `toml:"calendar_queue_mode"`
}

func (cfg *Switch) InitDefaults() {
	if cfg.DropPort == nil {
		p := uint32(DefaultDropPort)
		cfg.DropPort = &p
	}
	if cfg.NbPorts == 0 {
		cfg.NbPorts = DefaultNbPorts
	}
	if cfg.PriorityQueues == 0 {
		cfg.PriorityQueues = DefaultPriorityQueues
	}
	if cfg.QueueCapacity == 0 {
		cfg.QueueCapacity = DefaultQueueCapacity
	}
	if cfg.NbTimeSlices == 0 {
		cfg.NbTimeSlices = DefaultNbTimeSlices
	}
	if cfg.TimeSliceDurationMs == 0 {
		cfg.TimeSliceDurationMs = int(DefaultTimeSliceDuration / time.Millisecond)
	}
}

func (cfg *Switch) Validate() error {
	switch {
	case cfg.DropPort == nil:
		return serrors.New("drop_port not set")
	case cfg.NbPorts <= 0:
		return serrors.New("nb_ports must be positive", "nb_ports", cfg.NbPorts)
	case cfg.PriorityQueues <= 0:
		return serrors.New("priority_queues must be positive",
			"priority_queues", cfg.PriorityQueues)
	case cfg.QueueCapacity <= 0:
		return serrors.New("queue_capacity must be positive",
			"queue_capacity", cfg.QueueCapacity)
	case cfg.NbTimeSlices <= 0:
		return serrors.New("nb_time_slices must be positive",
			"nb_time_slices", cfg.NbTimeSlices)
	}
	mode, err := calendar.ParseMode(cfg.CalendarQueueMode)
	if err != nil {
		return err
	}
	switch mode {
	case calendar.TimeBased:
		if cfg.TimeSliceDurationMs <= 0 {
			return serrors.New("time_slice_duration_ms must be positive in TIME_BASED mode",
				"time_slice_duration_ms", cfg.TimeSliceDurationMs)
		}
	case calendar.ControlBased:
		log.Info("Ignoring time_slice_duration_ms in CONTROL_BASED mode",
			"time_slice_duration_ms", cfg.TimeSliceDurationMs)
	}
	return nil
}

func (cfg *Switch) Sample(dst io.Writer, _ config.Path, _ config.CtxMap) {
	config.WriteString(dst, switchSample)
}

func (cfg *Switch) ConfigName() string {
	return "switch"
}

var _ config.Config = (*Underlay)(nil)

// Underlay configures the UDP data plane.
type Underlay struct {
	// Listen is the address ingress packets are received on. If not set,
	// the data plane is disabled.
	Listen            string           `toml:"listen,omitempty"`
	SendBufferSize    int              `toml:"send_buffer_size,omitempty"`
	ReceiveBufferSize int              `toml:"receive_buffer_size,omitempty"`
	BatchSize         int              `toml:"batch_size,omitempty"`
	Peers             []underlay.Peer  `toml:"peers,omitempty"`
	Routes            []classify.Route `toml:"routes,omitempty"`
}

func (cfg *Underlay) InitDefaults() {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = underlay.DefaultBatchSize
	}
}

func (cfg *Underlay) Validate() error {
	if cfg.Listen != "" {
		if _, err := netip.ParseAddrPort(cfg.Listen); err != nil {
			return serrors.Wrap("parsing listen address", err, "listen", cfg.Listen)
		}
	}
	if cfg.BatchSize <= 0 {
		return serrors.New("batch_size must be positive", "batch_size", cfg.BatchSize)
	}
	return nil
}

// ListenAddr returns the parsed listen address. The configuration must be
// validated.
func (cfg *Underlay) ListenAddr() netip.AddrPort {
	a, _ := netip.ParseAddrPort(cfg.Listen)
	return a
}

// ClassifierRoutes returns the configured routes, or one /24 per port if none
// are configured.
func (cfg *Underlay) ClassifierRoutes(nbPorts int) []classify.Route {
	if len(cfg.Routes) == 0 {
		return classify.DefaultRoutes(nbPorts)
	}
	return cfg.Routes
}

func (cfg *Underlay) Sample(dst io.Writer, _ config.Path, _ config.CtxMap) {
	config.WriteString(dst, underlaySample)
}

func (cfg *Underlay) ConfigName() string {
	return "underlay"
}

var _ config.Config = (*Capture)(nil)

// Capture configures the pcap file that stands in for the drop port.
type Capture struct {
	config.NoValidator
	// Path is the pcap file. If empty, nothing is captured.
	Path    string `toml:"path,omitempty"`
	SnapLen uint32 `toml:"snap_len,omitempty"`
}

func (cfg *Capture) InitDefaults() {
	if cfg.SnapLen == 0 {
		cfg.SnapLen = capture.DefaultSnapLen
	}
}

func (cfg *Capture) Sample(dst io.Writer, _ config.Path, _ config.CtxMap) {
	config.WriteString(dst, captureSample)
}

func (cfg *Capture) ConfigName() string {
	return "capture"
}
