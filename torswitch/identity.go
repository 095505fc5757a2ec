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

package torswitch

import (
	"errors"
	"time"

	"github.com/mpi-ncs/openoptics/pkg/private/serrors"
	"github.com/mpi-ncs/openoptics/torswitch/calendar"
)

// ErrInvalidIdentity is returned for an identity that cannot parameterize a
// switch.
var ErrInvalidIdentity = errors.New("invalid switch identity")

// maxPriorityQueues is the number of classes addressable by a uint8 priority.
const maxPriorityQueues = 256

// Identity is the configuration of one switch instance. It is fixed at
// startup and passed by value, so every holder has its own read-only copy.
type Identity struct {
	// TorID identifies the ToR switch.
	TorID uint32
	// DropPort is the port that redirected packets are sent to for capture.
	// A value outside [0, NbPorts) means there is no drop port queue.
	DropPort uint32
	// NbPorts is the number of egress ports.
	NbPorts int
	// NbPriorityQueues is the number of priority classes per port.
	NbPriorityQueues int
	// QueueCapacity is the capacity in packets of every priority queue.
	QueueCapacity int
	// NbTimeSlices is the number of calendar slots.
	NbTimeSlices int
	// SliceDuration is the duration of one slot in TimeBased mode.
	SliceDuration time.Duration
	// Mode is the calendar mode.
	Mode calendar.Mode
}

// Validate checks that the identity describes a usable switch.
func (id Identity) Validate() error {
	switch {
	case id.NbPorts <= 0:
		return serrors.Join(ErrInvalidIdentity, nil, "nb_ports", id.NbPorts)
	case id.NbPriorityQueues <= 0 || id.NbPriorityQueues > maxPriorityQueues:
		return serrors.Join(ErrInvalidIdentity, nil,
			"priority_queues", id.NbPriorityQueues, "max", maxPriorityQueues)
	case id.QueueCapacity <= 0:
		return serrors.Join(ErrInvalidIdentity, nil, "queue_capacity", id.QueueCapacity)
	case id.NbTimeSlices <= 0:
		return serrors.Join(ErrInvalidIdentity, nil, "nb_time_slices", id.NbTimeSlices)
	}
	switch id.Mode {
	case calendar.TimeBased:
		if id.SliceDuration <= 0 {
			return serrors.Join(ErrInvalidIdentity, nil,
				"mode", id.Mode, "slice_duration", id.SliceDuration)
		}
	case calendar.ControlBased:
	default:
		return serrors.Join(ErrInvalidIdentity, nil, "mode", id.Mode)
	}
	return nil
}

// HasDropPortQueue reports whether the drop port is one of the switch ports.
func (id Identity) HasDropPortQueue() bool {
	return int64(id.DropPort) < int64(id.NbPorts)
}
