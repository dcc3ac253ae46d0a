package appointment

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-engine/internal/apperr"
	"github.com/hackgods/clinic-appointment-engine/internal/slot"
)

type Status string

const (
	StatusBooked    Status = "BOOKED"
	StatusWaiting   Status = "WAITING"
	StatusScheduled Status = "SCHEDULED"
	StatusArrived   Status = "ARRIVED"
	StatusCalled    Status = "CALLED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

var allStatuses = []Status{
	StatusBooked,
	StatusWaiting,
	StatusScheduled,
	StatusArrived,
	StatusCalled,
	StatusCompleted,
	StatusCancelled,
}

// OccupyingStatuses are the statuses that take a slot out of availability.
var OccupyingStatuses = []Status{StatusWaiting, StatusScheduled, StatusArrived, StatusCalled}

// WaitingRoomStatuses are shown on today's waiting list.
var WaitingRoomStatuses = []Status{StatusBooked, StatusArrived}

var ErrInvalidStatus = fmt.Errorf("unknown appointment status: %w", apperr.ErrInvalidInput)

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("%q: %w", s, ErrInvalidStatus)
	}
	return st, nil
}

func (s Status) Valid() bool {
	for _, v := range allStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Terminal statuses never change again through the normal flow.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Appointment carries the hospital and department names it was booked under;
// later renames do not touch it.
type Appointment struct {
	ID             uuid.UUID
	PatientID      uuid.UUID
	HospitalName   string
	DepartmentName string
	DoctorName     string
	RoomNumber     string
	Date           time.Time
	Time           slot.TimeOfDay
	Status         Status
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// SameSlot reports whether a occupies the given department slot.
func (a *Appointment) SameSlot(hospital, department string, date time.Time, at slot.TimeOfDay) bool {
	return a.HospitalName == hospital &&
		a.DepartmentName == department &&
		a.Date.Equal(date) &&
		a.Time == at
}

// Occupant is the minimal view of an appointment the availability resolver
// needs: who sits in which slot.
type Occupant struct {
	AppointmentID uuid.UUID
	PatientID     uuid.UUID
	PatientName   string
	Time          slot.TimeOfDay
	Status        Status
}

// ScheduleChange is the set of fields an edit may overwrite.
type ScheduleChange struct {
	HospitalName   string
	DepartmentName string
	Date           time.Time
	Time           slot.TimeOfDay
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
