package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-engine/internal/apperr"
)

var (
	ErrPatientNotFound     = fmt.Errorf("patient %w", apperr.ErrNotFound)
	ErrAppointmentNotFound = fmt.Errorf("appointment %w", apperr.ErrNotFound)

	ErrAlreadyBooked   = fmt.Errorf("patient already has an active appointment on this date: %w", apperr.ErrConflict)
	ErrSlotUnavailable = fmt.Errorf("slot is already booked: %w", apperr.ErrConflict)
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// FindActiveForPatientOnDate returns ErrAppointmentNotFound when the
	// patient has no non-terminal appointment on date.
	FindActiveForPatientOnDate(ctx context.Context, patientID uuid.UUID, date time.Time) (*Appointment, error)

	// CreateAppointment maps the partial unique indexes to ErrAlreadyBooked
	// and ErrSlotUnavailable.
	CreateAppointment(ctx context.Context, a Appointment) (*Appointment, error)

	// SetStatus overwrites the status unconditionally.
	SetStatus(ctx context.Context, id uuid.UUID, to Status) (*Appointment, error)
	// TransitionStatus only applies when the row is still in from; otherwise
	// it returns ErrAppointmentNotFound.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)
	// MarkCalled is TransitionStatus to CALLED that also stores the room.
	MarkCalled(ctx context.Context, id uuid.UUID, from Status, room string) (*Appointment, error)
	// UpdateSchedule only applies to non-terminal rows.
	UpdateSchedule(ctx context.Context, id uuid.UUID, change ScheduleChange) (*Appointment, error)
	DeleteAppointment(ctx context.Context, id uuid.UUID) error

	// ListByDate filters by statuses unless the slice is empty.
	ListByDate(ctx context.Context, date time.Time, statuses []Status) ([]Appointment, error)
	// ListByPatient restricts to one date when date is non-nil.
	ListByPatient(ctx context.Context, patientID uuid.UUID, date *time.Time) ([]Appointment, error)
	ListOccupants(ctx context.Context, hospitalName, departmentName string, date time.Time, statuses []Status) ([]Occupant, error)

	InsertEvent(ctx context.Context, ev EventLog) error
}
