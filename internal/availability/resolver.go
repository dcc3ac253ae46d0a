// Package availability computes, for one department and date, which slots can
// still be booked. It only reads; booking correctness is enforced elsewhere.
package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-appointment-engine/internal/appointment"
	"github.com/hackgods/clinic-appointment-engine/internal/apperr"
	"github.com/hackgods/clinic-appointment-engine/internal/department"
	"github.com/hackgods/clinic-appointment-engine/internal/metrics"
	"github.com/hackgods/clinic-appointment-engine/internal/slot"
)

type Departments interface {
	GetSchedule(ctx context.Context, hospitalID uuid.UUID, name string) (*department.Schedule, error)
}

type Occupants interface {
	ListOccupants(ctx context.Context, hospitalName, departmentName string, date time.Time, statuses []appointment.Status) ([]appointment.Occupant, error)
}

type Exceptions interface {
	BlockedTimes(ctx context.Context, departmentID uuid.UUID, date time.Time) (map[slot.TimeOfDay]struct{}, error)
}

type Verdict string

const (
	Available Verdict = "AVAILABLE"
	Booked    Verdict = "BOOKED"
	Blocked   Verdict = "BLOCKED"
)

const (
	messageAvailable = "available"
	messageTaken     = "already booked"
)

// SlotStatus is the verdict for one slot. PatientName and AppointmentID are
// only set for Booked slots.
type SlotStatus struct {
	Time          slot.TimeOfDay `json:"time"`
	Verdict       Verdict        `json:"status"`
	PatientName   string         `json:"patient_name,omitempty"`
	AppointmentID *uuid.UUID     `json:"appointment_id,omitempty"`
}

// Message is the patient-facing label. Booked and blocked slots read the same.
func (s SlotStatus) Message() string {
	if s.Verdict == Available {
		return messageAvailable
	}
	return messageTaken
}

type DayAvailability struct {
	HospitalName   string
	DepartmentName string
	Date           time.Time
	Slots          []SlotStatus
	AvailableCount int
	BookedCount    int
	BlockedCount   int
	TotalSlots     int
}

// Lookup returns the verdict for at, or false when at is not a generated slot.
func (d *DayAvailability) Lookup(at slot.TimeOfDay) (SlotStatus, bool) {
	for _, s := range d.Slots {
		if s.Time == at {
			return s, true
		}
	}
	return SlotStatus{}, false
}

type PublicSlot struct {
	Time      slot.TimeOfDay `json:"time"`
	Available bool           `json:"available"`
	Message   string         `json:"message"`
}

type PublicDay struct {
	HospitalName   string       `json:"hospital_name"`
	DepartmentName string       `json:"department_name"`
	Date           string       `json:"date"`
	Slots          []PublicSlot `json:"slots"`
	AvailableCount int          `json:"available_count"`
	TotalSlots     int          `json:"total_slots"`
}

// Public strips who booked a slot and whether it was booked or blocked.
func (d *DayAvailability) Public() PublicDay {
	out := PublicDay{
		HospitalName:   d.HospitalName,
		DepartmentName: d.DepartmentName,
		Date:           d.Date.Format(slot.DateLayout),
		Slots:          make([]PublicSlot, len(d.Slots)),
		AvailableCount: d.AvailableCount,
		TotalSlots:     d.TotalSlots,
	}
	for i, s := range d.Slots {
		out.Slots[i] = PublicSlot{
			Time:      s.Time,
			Available: s.Verdict == Available,
			Message:   s.Message(),
		}
	}
	return out
}

type Option func(*Resolver)

// WithOccupyingStatuses replaces the set of appointment statuses that take a
// slot.
func WithOccupyingStatuses(statuses ...appointment.Status) Option {
	return func(r *Resolver) {
		r.occupying = append([]appointment.Status(nil), statuses...)
	}
}

func WithMetrics(m *metrics.EngineMetrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

func WithLogger(logger *zap.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

type Resolver struct {
	departments Departments
	occupants   Occupants
	exceptions  Exceptions
	occupying   []appointment.Status
	metrics     *metrics.EngineMetrics
	logger      *zap.Logger
}

func NewResolver(departments Departments, occupants Occupants, exceptions Exceptions, opts ...Option) *Resolver {
	r := &Resolver{
		departments: departments,
		occupants:   occupants,
		exceptions:  exceptions,
		occupying:   appointment.OccupyingStatuses,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve lists every slot of the day with its verdict. An occupying
// appointment wins over a blocked exception at the same time.
func (r *Resolver) Resolve(ctx context.Context, hospitalID uuid.UUID, departmentName string, date time.Time) (_ *DayAvailability, err error) {
	defer func() { r.metrics.ObserveAvailability(resolveResult(err)) }()

	date = slot.DateOf(date)

	sched, err := r.departments.GetSchedule(ctx, hospitalID, departmentName)
	if err != nil {
		return nil, err
	}

	times, err := sched.Slots()
	if err != nil {
		return nil, fmt.Errorf("department %s: %w", sched.ID, err)
	}

	occupants, err := r.occupants.ListOccupants(ctx, sched.HospitalName, sched.Name, date, r.occupying)
	if err != nil {
		return nil, fmt.Errorf("load occupants: %w", err)
	}
	byTime := make(map[slot.TimeOfDay]appointment.Occupant, len(occupants))
	for _, o := range occupants {
		if _, seen := byTime[o.Time]; seen {
			r.logger.Warn("slot has more than one occupying appointment",
				zap.String("department", sched.Name),
				zap.Time("date", date),
				zap.Stringer("time", o.Time),
				zap.String("appointment_id", o.AppointmentID.String()))
			continue
		}
		byTime[o.Time] = o
	}

	blocked, err := r.exceptions.BlockedTimes(ctx, sched.ID, date)
	if err != nil {
		return nil, fmt.Errorf("load slot exceptions: %w", err)
	}

	day := &DayAvailability{
		HospitalName:   sched.HospitalName,
		DepartmentName: sched.Name,
		Date:           date,
		Slots:          make([]SlotStatus, 0, len(times)),
		TotalSlots:     len(times),
	}
	for _, t := range times {
		st := SlotStatus{Time: t, Verdict: Available}
		if o, ok := byTime[t]; ok {
			id := o.AppointmentID
			st.Verdict = Booked
			st.PatientName = o.PatientName
			st.AppointmentID = &id
			day.BookedCount++
		} else if _, ok := blocked[t]; ok {
			st.Verdict = Blocked
			day.BlockedCount++
		} else {
			day.AvailableCount++
		}
		day.Slots = append(day.Slots, st)
	}
	return day, nil
}

// IsAvailable reports whether at is a generated slot of the day that is
// neither booked nor blocked.
func (r *Resolver) IsAvailable(ctx context.Context, hospitalID uuid.UUID, departmentName string, date time.Time, at slot.TimeOfDay) (bool, error) {
	day, err := r.Resolve(ctx, hospitalID, departmentName, date)
	if err != nil {
		return false, err
	}
	st, ok := day.Lookup(at)
	return ok && st.Verdict == Available, nil
}

func resolveResult(err error) string {
	if err == nil {
		return "ok"
	}
	return apperr.Kind(err)
}
