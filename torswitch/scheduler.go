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
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mpi-ncs/openoptics/pkg/log"
	"github.com/mpi-ncs/openoptics/pkg/private/serrors"
	"github.com/mpi-ncs/openoptics/torswitch/calendar"
	"github.com/mpi-ncs/openoptics/torswitch/drop"
)

var (
	// ErrStopped is returned when the scheduler is stopped.
	ErrStopped = errors.New("scheduler stopped")
	// ErrNotControlBased is returned by Trigger on a TimeBased calendar.
	ErrNotControlBased = errors.New("calendar is not control based")
)

// State is the lifecycle state of the scheduler. The only transitions are
// Idle to Running, Running to Draining, Draining to Stopped and, for a
// scheduler that never ran, Idle to Stopped.
type State uint32

const (
	Idle State = iota
	Running
	Draining
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Draining:
		return "draining"
	case Stopped:
		return "stopped"
	default:
		return "unknown_" + strconv.Itoa(int(s))
	}
}

// EventKind is the kind of a control event.
type EventKind uint8

const (
	// AdvanceEvent advances the calendar and serves the new slot.
	AdvanceEvent EventKind = iota
	// SetSlotEvent jumps to Event.Slot and serves it.
	SetSlotEvent
	// PauseEvent stops service until the next advance or jump.
	PauseEvent
)

func (k EventKind) String() string {
	switch k {
	case AdvanceEvent:
		return "advance"
	case SetSlotEvent:
		return "set_slot"
	case PauseEvent:
		return "pause"
	default:
		return "unknown_" + strconv.Itoa(int(k))
	}
}

// Event is a control event for a ControlBased calendar.
type Event struct {
	Kind EventKind
	// Slot is the target of a SetSlotEvent.
	Slot uint32
}

// Ticker interface to improve testability of the TimeBased loop.
type Ticker interface {
	Chan() <-chan time.Time
	Stop()
}

type defaultTicker struct {
	*time.Ticker
}

func (t *defaultTicker) Chan() <-chan time.Time {
	return t.C
}

// NewTicker returns a new Ticker with time.Ticker as implementation.
func NewTicker(d time.Duration) Ticker {
	return &defaultTicker{
		Ticker: time.NewTicker(d),
	}
}

// Calendar is the slot source of the scheduler. *calendar.Calendar implements
// it.
type Calendar interface {
	Mode() calendar.Mode
	SlotDuration() time.Duration
	CurrentSlot() uint32
	Advance() (uint32, error)
	SetActiveSlot(slot uint32) error
	Pause()
	EligiblePorts(slot uint32) ([]uint32, error)
}

type request struct {
	event Event
	reply chan result
}

type result struct {
	slot uint32
	err  error
}

// Scheduler drives the calendar of a switch. In TimeBased mode it advances
// once per slot duration, in ControlBased mode once per Trigger call. For
// every slot it serves at most one packet per eligible port.
//
// A Scheduler runs at most once. Stop requests are observed between slot
// passes, so a pass that started always completes.
type Scheduler struct {
	// Switch owns the queues that are served. Required.
	Switch *Switch
	// Transmitter receives the dequeued packets. Required.
	Transmitter Transmitter
	// Calendar overrides the calendar of Switch. Optional.
	Calendar Calendar
	// NewTicker creates the slot ticker in TimeBased mode. Defaults to
	// NewTicker.
	NewTicker func(time.Duration) Ticker
	// Logger is used for lifecycle and error logging. Defaults to the root
	// logger.
	Logger log.Logger
	// Metrics defaults to the metrics of Switch.
	Metrics *Metrics

	initOnce sync.Once
	state    atomic.Uint32
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	events   chan request
}

func (s *Scheduler) init() {
	s.initOnce.Do(func() {
		s.stop = make(chan struct{})
		s.done = make(chan struct{})
		s.events = make(chan request)
		if s.Logger == nil {
			s.Logger = log.Root()
		}
		if s.NewTicker == nil {
			s.NewTicker = NewTicker
		}
		if s.Metrics == nil && s.Switch != nil {
			s.Metrics = s.Switch.metrics
		}
		if s.Calendar == nil && s.Switch != nil {
			s.Calendar = s.Switch.calendar
		}
	})
}

// State returns the current state.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Done is closed once the scheduler is stopped.
func (s *Scheduler) Done() <-chan struct{} {
	s.init()
	return s.done
}

// Run runs the scheduler loop until ctx is done, Stop is called or a fatal
// error occurs. A clean stop returns nil. A calendar corruption stops the
// scheduler and is returned.
func (s *Scheduler) Run(ctx context.Context) error {
	s.init()
	if !s.state.CompareAndSwap(uint32(Idle), uint32(Running)) {
		return serrors.Join(ErrStopped, nil, "state", s.State())
	}
	defer close(s.done)
	if s.Switch == nil || s.Transmitter == nil || s.Calendar == nil {
		s.setState(Stopped)
		return serrors.New("scheduler not fully configured",
			"switch", s.Switch != nil, "transmitter", s.Transmitter != nil)
	}
	s.setState(Running)
	s.Logger.Info("Scheduler started",
		"mode", s.Calendar.Mode(),
		"slot_duration", s.Calendar.SlotDuration())

	err := s.loop(ctx)
	s.setState(Stopped)
	if err != nil {
		s.Logger.Error("Scheduler stopped on fatal error", "err", err)
		return err
	}
	s.Logger.Info("Scheduler stopped")
	return nil
}

// Stop requests the scheduler to stop. It does not wait; use Done for that.
func (s *Scheduler) Stop() {
	s.init()
	s.stopOnce.Do(func() { close(s.stop) })
	if s.state.CompareAndSwap(uint32(Idle), uint32(Stopped)) {
		close(s.done)
		return
	}
	if s.state.CompareAndSwap(uint32(Running), uint32(Draining)) {
		s.Metrics.setState(Draining)
	}
}

// Trigger hands a control event to a ControlBased scheduler. It blocks until
// the event was handled, ctx is done or the scheduler stopped. It returns the
// slot that is active after the event.
func (s *Scheduler) Trigger(ctx context.Context, ev Event) (uint32, error) {
	s.init()
	if s.Calendar == nil || s.Calendar.Mode() != calendar.ControlBased {
		return 0, ErrNotControlBased
	}
	req := request{event: ev, reply: make(chan result, 1)}
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-s.done:
		return 0, ErrStopped
	case s.events <- req:
	}
	r := <-req.reply
	return r.slot, r.err
}

func (s *Scheduler) loop(ctx context.Context) error {
	var tick <-chan time.Time
	if s.Calendar.Mode() == calendar.TimeBased {
		ticker := s.NewTicker(s.Calendar.SlotDuration())
		defer ticker.Stop()
		tick = ticker.Chan()
	}
	for {
		select {
		case <-ctx.Done():
			s.drain()
			return nil
		case <-s.stop:
			s.drain()
			return nil
		case <-tick:
			if s.stopRequested(ctx) {
				s.drain()
				return nil
			}
			if _, err := s.advance(); err != nil {
				return err
			}
		case req := <-s.events:
			if s.stopRequested(ctx) {
				req.reply <- result{err: ErrStopped}
				s.drain()
				return nil
			}
			slot, err := s.handle(req.event)
			req.reply <- result{slot: slot, err: err}
			if errors.Is(err, calendar.ErrCorruption) {
				return err
			}
		}
	}
}

// stopRequested makes sure the stop case wins when both a stop and work are
// pending.
func (s *Scheduler) stopRequested(ctx context.Context) bool {
	select {
	case <-s.stop:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

func (s *Scheduler) drain() {
	s.state.CompareAndSwap(uint32(Running), uint32(Draining))
	s.Metrics.setState(Draining)
	// Slot passes run synchronously in the loop, so nothing is in flight once
	// the loop observes the stop.
}

func (s *Scheduler) handle(ev Event) (uint32, error) {
	switch ev.Kind {
	case AdvanceEvent:
		return s.advance()
	case SetSlotEvent:
		if err := s.Calendar.SetActiveSlot(ev.Slot); err != nil {
			return s.Calendar.CurrentSlot(), err
		}
		s.Metrics.CalendarSlot.Set(float64(ev.Slot))
		return ev.Slot, s.serve(ev.Slot)
	case PauseEvent:
		s.Calendar.Pause()
		return s.Calendar.CurrentSlot(), nil
	default:
		return s.Calendar.CurrentSlot(), serrors.New("unknown control event",
			"kind", ev.Kind)
	}
}

func (s *Scheduler) advance() (uint32, error) {
	slot, err := s.Calendar.Advance()
	if err != nil {
		return 0, err
	}
	s.Metrics.CalendarAdvancesTotal.Inc()
	s.Metrics.CalendarSlot.Set(float64(slot))
	return slot, s.serve(slot)
}

// serve dequeues at most one packet from every port eligible in slot.
func (s *Scheduler) serve(slot uint32) error {
	ports, err := s.Calendar.EligiblePorts(slot)
	if err != nil {
		return err
	}
	for _, port := range ports {
		p, ok, err := s.Switch.DequeueNext(port)
		if err != nil {
			return serrors.Join(calendar.ErrCorruption, err, "slot", slot)
		}
		if !ok {
			continue
		}
		if err := s.Transmitter.Transmit(port, p); err != nil {
			if s.Logger.Enabled(log.DebugLevel) {
				s.Logger.Debug("Transmit failed", "port", port, "err", err)
			}
			s.Switch.drops.Redirect(p, drop.TransmitFailed)
			continue
		}
		s.Metrics.TransmittedPacketsTotal.WithLabelValues(strconv.Itoa(int(port))).Inc()
	}
	return nil
}

func (s *Scheduler) setState(st State) {
	s.state.Store(uint32(st))
	s.Metrics.setState(st)
}
