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

// Package mgmtapi implements the http management API of the switch.
package mgmtapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	opentracing "github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"

	"github.com/mpi-ncs/openoptics/pkg/log"
	"github.com/mpi-ncs/openoptics/torswitch"
	"github.com/mpi-ncs/openoptics/torswitch/calendar"
)

// BaseURL is the prefix of every API route.
const BaseURL = "/api/v1"

// Problem types.
const (
	BadRequest    = "/problems/bad-request"
	Conflict      = "/problems/conflict"
	InternalError = "/problems/internal-error"
	Unavailable   = "/problems/unavailable"
)

// Problem is an RFC 7807 error response.
type Problem struct {
	Type   *string `json:"type,omitempty"`
	Title  string  `json:"title"`
	Status int     `json:"status"`
	Detail *string `json:"detail,omitempty"`
}

// StringRef returns a pointer to s.
func StringRef(s string) *string {
	return &s
}

// Device exposes the switch state.
type Device interface {
	Identity() torswitch.Identity
	DeviceMetric() torswitch.DeviceMetric
}

// CalendarView exposes the calendar position.
type CalendarView interface {
	Mode() calendar.Mode
	NumSlots() int
	CurrentSlot() uint32
	Paused() bool
}

// Controller accepts calendar control events.
type Controller interface {
	Trigger(ctx context.Context, ev torswitch.Event) (uint32, error)
}

// Server implements the http management API.
type Server struct {
	Device     Device
	Calendar   CalendarView
	Controller Controller
	LogLevel   http.Handler
}

// IdentityResponse describes the switch instance.
type IdentityResponse struct {
	TorID            uint32 `json:"tor_id"`
	DropPort         uint32 `json:"drop_port"`
	NbPorts          int    `json:"nb_ports"`
	NbPriorityQueues int    `json:"priority_queues"`
	QueueCapacity    int    `json:"queue_capacity"`
	NbTimeSlices     int    `json:"nb_time_slices"`
	SliceDurationMs  int64  `json:"time_slice_duration_ms"`
	Mode             string `json:"calendar_queue_mode"`
}

// CalendarResponse describes the calendar position.
type CalendarResponse struct {
	Mode        string `json:"mode"`
	NumSlots    int    `json:"nb_time_slices"`
	CurrentSlot uint32 `json:"current_slot"`
	Paused      bool   `json:"paused"`
}

// SetSlotRequest is the body of a set active slot request.
type SetSlotRequest struct {
	Slot *uint32 `json:"slot"`
}

// Handler returns the API routes mounted under BaseURL.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut},
	}))
	r.Route(BaseURL, func(r chi.Router) {
		r.Get("/identity", s.GetIdentity)
		r.Get("/metrics", s.GetMetrics)
		r.Get("/calendar", s.GetCalendar)
		r.Post("/calendar/advance", s.Advance)
		r.Post("/calendar/pause", s.Pause)
		r.Put("/calendar/active", s.SetActiveSlot)
		if s.LogLevel != nil {
			r.Get("/log/level", s.LogLevel.ServeHTTP)
			r.Put("/log/level", s.LogLevel.ServeHTTP)
		}
	})
	return r
}

// GetIdentity returns the switch identity.
func (s *Server) GetIdentity(w http.ResponseWriter, r *http.Request) {
	id := s.Device.Identity()
	writeJSON(w, IdentityResponse{
		TorID:            id.TorID,
		DropPort:         id.DropPort,
		NbPorts:          id.NbPorts,
		NbPriorityQueues: id.NbPriorityQueues,
		QueueCapacity:    id.QueueCapacity,
		NbTimeSlices:     id.NbTimeSlices,
		SliceDurationMs:  id.SliceDuration.Milliseconds(),
		Mode:             id.Mode.String(),
	})
}

// GetMetrics returns the queue depths and drop counters.
func (s *Server) GetMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Device.DeviceMetric())
}

// GetCalendar returns the calendar position.
func (s *Server) GetCalendar(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.calendar())
}

// Advance moves a control based calendar to the next slot.
func (s *Server) Advance(w http.ResponseWriter, r *http.Request) {
	s.trigger(w, r, "calendar.advance", torswitch.Event{Kind: torswitch.AdvanceEvent})
}

// Pause stops serving ports until the next advance or set.
func (s *Server) Pause(w http.ResponseWriter, r *http.Request) {
	s.trigger(w, r, "calendar.pause", torswitch.Event{Kind: torswitch.PauseEvent})
}

// SetActiveSlot jumps a control based calendar to the requested slot.
func (s *Server) SetActiveSlot(w http.ResponseWriter, r *http.Request) {
	var req SetSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrorResponse(w, Problem{
			Detail: StringRef(err.Error()),
			Status: http.StatusBadRequest,
			Title:  "malformed request body",
			Type:   StringRef(BadRequest),
		})
		return
	}
	if req.Slot == nil {
		ErrorResponse(w, Problem{
			Status: http.StatusBadRequest,
			Title:  "slot is required",
			Type:   StringRef(BadRequest),
		})
		return
	}
	s.trigger(w, r, "calendar.set_active",
		torswitch.Event{Kind: torswitch.SetSlotEvent, Slot: *req.Slot})
}

func (s *Server) trigger(w http.ResponseWriter, r *http.Request, op string, ev torswitch.Event) {
	span, ctx := opentracing.StartSpanFromContext(r.Context(), "mgmtapi."+op)
	defer span.Finish()
	span.SetTag("event", ev.Kind.String())

	logger := log.FromCtx(ctx)
	_, err := s.Controller.Trigger(ctx, ev)
	if err != nil {
		ext.Error.Set(span, true)
		span.SetTag("err", err.Error())
		logger.Info("Control event rejected", "event", ev.Kind, "err", err)
		ErrorResponse(w, problemFor(err))
		return
	}
	logger.Debug("Control event handled", "event", ev.Kind, "slot", ev.Slot)
	writeJSON(w, s.calendar())
}

func (s *Server) calendar() CalendarResponse {
	return CalendarResponse{
		Mode:        s.Calendar.Mode().String(),
		NumSlots:    s.Calendar.NumSlots(),
		CurrentSlot: s.Calendar.CurrentSlot(),
		Paused:      s.Calendar.Paused(),
	}
}

func problemFor(err error) Problem {
	p := Problem{Detail: StringRef(err.Error())}
	switch {
	case errors.Is(err, calendar.ErrSlotOutOfRange):
		p.Status, p.Title, p.Type = http.StatusBadRequest, "slot out of range", StringRef(BadRequest)
	case errors.Is(err, torswitch.ErrNotControlBased):
		p.Status, p.Title, p.Type = http.StatusConflict, "calendar is not control based",
			StringRef(Conflict)
	case errors.Is(err, torswitch.ErrStopped):
		p.Status, p.Title, p.Type = http.StatusServiceUnavailable, "scheduler stopped",
			StringRef(Unavailable)
	default:
		p.Status, p.Title, p.Type = http.StatusInternalServerError, "control event failed",
			StringRef(InternalError)
	}
	return p
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		ErrorResponse(w, Problem{
			Detail: StringRef(err.Error()),
			Status: http.StatusInternalServerError,
			Title:  "unable to marshal response",
			Type:   StringRef(InternalError),
		})
	}
}

// ErrorResponse writes a detailed error response.
func ErrorResponse(w http.ResponseWriter, p Problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	// no point in catching error here, there is nothing we can do about it anymore.
	_ = enc.Encode(p)
}
