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

// Package calendar implements the calendar queue: a ring of time slots where
// each slot names the ports eligible for service while it is active.
//
// Ports are assigned statically at construction, port p lands in slot
// p mod nbSlots. With a single slot every port is served on every advance.
package calendar

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/mpi-ncs/openoptics/pkg/private/serrors"
)

var (
	// ErrCorruption indicates that the calendar state violates its invariants.
	// It is fatal for the scheduler.
	ErrCorruption = errors.New("calendar corruption")
	// ErrSlotOutOfRange is returned when a caller names a slot that does not
	// exist.
	ErrSlotOutOfRange = errors.New("slot out of range")
)

// Mode selects what drives the calendar forward.
type Mode uint8

const (
	// TimeBased advances once per elapsed slot duration.
	TimeBased Mode = 0
	// ControlBased advances only on external control events.
	ControlBased Mode = 1
)

func (m Mode) String() string {
	switch m {
	case TimeBased:
		return "TIME_BASED"
	case ControlBased:
		return "CONTROL_BASED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(m))
	}
}

// ParseMode converts the numeric mode of the configuration into a Mode.
func ParseMode(v int) (Mode, error) {
	if v != int(TimeBased) && v != int(ControlBased) {
		return 0, serrors.New("unknown calendar mode", "mode", v)
	}
	return Mode(v), nil
}

// Calendar is the calendar queue. CurrentSlot and Paused may be called
// concurrently with the mutating methods; the mutating methods are meant to be
// called from a single goroutine.
type Calendar struct {
	mode     Mode
	duration time.Duration
	slots    [][]uint32
	current  atomic.Uint32
	paused   atomic.Bool
}

// New creates a calendar with nbSlots slots for ports [0, nbPorts). A
// TimeBased calendar requires a non-zero slot duration.
func New(nbSlots, nbPorts int, mode Mode, duration time.Duration) (*Calendar, error) {
	if nbSlots <= 0 {
		return nil, serrors.New("number of slots must be positive", "slots", nbSlots)
	}
	if nbPorts < 0 {
		return nil, serrors.New("number of ports must not be negative", "ports", nbPorts)
	}
	switch mode {
	case TimeBased:
		if duration <= 0 {
			return nil, serrors.Join(ErrCorruption, nil,
				"mode", mode, "duration", duration)
		}
	case ControlBased:
	default:
		return nil, serrors.Join(ErrCorruption, nil, "mode", mode)
	}
	c := &Calendar{
		mode:     mode,
		duration: duration,
		slots:    make([][]uint32, nbSlots),
	}
	for port := 0; port < nbPorts; port++ {
		slot := port % nbSlots
		c.slots[slot] = append(c.slots[slot], uint32(port))
	}
	return c, nil
}

// Mode returns the calendar mode.
func (c *Calendar) Mode() Mode {
	return c.mode
}

// SlotDuration returns the configured slot duration.
func (c *Calendar) SlotDuration() time.Duration {
	return c.duration
}

// NumSlots returns the number of slots.
func (c *Calendar) NumSlots() int {
	return len(c.slots)
}

// SlotOf returns the slot that port is assigned to.
func (c *Calendar) SlotOf(port uint32) uint32 {
	return port % uint32(len(c.slots))
}

// CurrentSlot returns the active slot.
func (c *Calendar) CurrentSlot() uint32 {
	return c.current.Load()
}

// Paused reports whether the calendar is paused.
func (c *Calendar) Paused() bool {
	return c.paused.Load()
}

// Advance moves to the next slot, wrapping around after the last one, and
// returns it. Advancing clears a pause.
func (c *Calendar) Advance() (uint32, error) {
	cur := c.current.Load()
	n := uint32(len(c.slots))
	if cur >= n {
		return 0, serrors.Join(ErrCorruption, nil, "slot", cur, "slots", n)
	}
	next := (cur + 1) % n
	c.current.Store(next)
	c.paused.Store(false)
	return next, nil
}

// SetActiveSlot jumps to slot and clears a pause.
func (c *Calendar) SetActiveSlot(slot uint32) error {
	if int(slot) >= len(c.slots) {
		return serrors.Join(ErrSlotOutOfRange, nil, "slot", slot, "slots", len(c.slots))
	}
	c.current.Store(slot)
	c.paused.Store(false)
	return nil
}

// Pause stops service until the next Advance or SetActiveSlot. The current
// slot is left untouched.
func (c *Calendar) Pause() {
	c.paused.Store(true)
}

// EligiblePorts returns the ports assigned to slot. The returned slice must
// not be modified. A slot outside the ring indicates corrupted scheduler
// state.
func (c *Calendar) EligiblePorts(slot uint32) ([]uint32, error) {
	if int(slot) >= len(c.slots) {
		return nil, serrors.Join(ErrCorruption, nil, "slot", slot, "slots", len(c.slots))
	}
	return c.slots[slot], nil
}
