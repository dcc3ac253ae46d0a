package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-appointment-engine/internal/apperr"
	"github.com/hackgods/clinic-appointment-engine/internal/department"
	"github.com/hackgods/clinic-appointment-engine/internal/metrics"
	"github.com/hackgods/clinic-appointment-engine/internal/notify"
	redisclient "github.com/hackgods/clinic-appointment-engine/internal/redis"
	"github.com/hackgods/clinic-appointment-engine/internal/slot"
)

const (
	EventAppointmentCreated   = "APPOINTMENT_CREATED"
	EventAppointmentCheckedIn = "APPOINTMENT_CHECKED_IN"
	EventAppointmentCalled    = "APPOINTMENT_CALLED"
	EventAppointmentUpdated   = "APPOINTMENT_UPDATED"
	EventStatusOverridden     = "APPOINTMENT_STATUS_OVERRIDDEN"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
	EventAppointmentDeleted   = "APPOINTMENT_DELETED"
	EventAppointmentRolled    = "APPOINTMENT_ROLLED_OVER"
)

var (
	ErrBookingInProgress = fmt.Errorf("slot or patient is currently being booked, please retry: %w", apperr.ErrConflict)
	ErrCallInProgress    = fmt.Errorf("appointment is already being called: %w", apperr.ErrConflict)
	ErrConcurrentUpdate  = fmt.Errorf("appointment changed concurrently: %w", apperr.ErrConflict)
	ErrInvalidTransition = fmt.Errorf("invalid status transition: %w", apperr.ErrInvalidState)
	ErrNotOwner          = fmt.Errorf("appointment belongs to another patient: %w", apperr.ErrForbidden)
	ErrDeliveryFailed    = fmt.Errorf("call notification not delivered: %w", apperr.ErrDependency)
	ErrInvalidTime       = fmt.Errorf("time of day out of range: %w", apperr.ErrInvalidInput)
	ErrNotASlot          = fmt.Errorf("time is not a slot of the department schedule: %w", apperr.ErrInvalidInput)
)

// Departments resolves the booking configuration of an active department.
type Departments interface {
	GetSchedule(ctx context.Context, hospitalID uuid.UUID, name string) (*department.Schedule, error)
}

// SlotChecker answers whether a slot can take a new booking.
type SlotChecker interface {
	IsAvailable(ctx context.Context, hospitalID uuid.UUID, departmentName string, date time.Time, at slot.TimeOfDay) (bool, error)
}

type Notifier interface {
	SendConfirmation(ctx context.Context, patientID uuid.UUID, conf notify.Confirmation)
	SendCall(ctx context.Context, patientID uuid.UUID, room string) error
}

type Dependencies struct {
	Repo        Repository
	Departments Departments
	// Slots may be nil, in which case only the storage indexes guard slots.
	Slots    SlotChecker
	Locker   redisclient.Locker
	Notifier Notifier
	Metrics  *metrics.EngineMetrics
	Logger   *zap.Logger
}

type Config struct {
	// Location decides which calendar date "today" is.
	Location           *time.Location
	NotifyTimeout      time.Duration
	RevalidateOnUpdate bool
}

type Service struct {
	repo        Repository
	departments Departments
	slots       SlotChecker
	locker      redisclient.Locker
	notifier    Notifier
	metrics     *metrics.EngineMetrics
	logger      *zap.Logger
	tracer      trace.Tracer
	cfg         Config
	now         func() time.Time
}

func NewService(deps Dependencies, cfg Config) *Service {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = 3 * time.Second
	}
	return &Service{
		repo:        deps.Repo,
		departments: deps.Departments,
		slots:       deps.Slots,
		locker:      deps.Locker,
		notifier:    deps.Notifier,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		tracer:      otel.Tracer("clinic-appointment-engine/appointment"),
		cfg:         cfg,
		now:         time.Now,
	}
}

// Today is the current calendar date in the configured location.
func (s *Service) Today() time.Time {
	return slot.DateOf(s.now().In(s.cfg.Location))
}

type CreateRequest struct {
	PatientID      uuid.UUID
	HospitalID     uuid.UUID
	DepartmentName string
	DoctorName     string
	Date           time.Time
	Time           slot.TimeOfDay
	RoomNumber     string
}

// CreateAppointment books a slot for a patient.
//
// A patient holds at most one non-terminal appointment per date and a slot
// holds at most one non-terminal appointment. Both are enforced by partial
// unique indexes; the Redis locks only keep concurrent requests from racing
// to the database.
func (s *Service) CreateAppointment(ctx context.Context, req CreateRequest) (_ *Appointment, err error) {
	ctx, span := s.tracer.Start(ctx, "appointment.create", trace.WithAttributes(
		attribute.String("patient_id", req.PatientID.String()),
		attribute.String("department", req.DepartmentName),
	))
	defer func() { endSpan(span, err) }()
	defer func() { s.metrics.ObserveBooking(bookingResult(err)) }()

	if !req.Time.Valid() {
		return nil, ErrInvalidTime
	}
	date := slot.DateOf(req.Date)

	patient, err := s.repo.GetPatientByID(ctx, req.PatientID)
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}

	sched, err := s.departments.GetSchedule(ctx, req.HospitalID, req.DepartmentName)
	if err != nil {
		return nil, err
	}
	if err := checkOnGrid(sched, req.Time); err != nil {
		return nil, err
	}

	// Advisory fast path; the unique index decides under concurrency.
	if err := s.checkNoActiveBooking(ctx, req.PatientID, date); err != nil {
		return nil, err
	}

	if s.slots != nil {
		ok, err := s.slots.IsAvailable(ctx, req.HospitalID, sched.Name, date, req.Time)
		if err != nil {
			return nil, fmt.Errorf("check slot availability: %w", err)
		}
		if !ok {
			return nil, ErrSlotUnavailable
		}
	}

	var created *Appointment
	patientKey := redisclient.PatientDayKey(req.PatientID, date)
	slotKey := redisclient.SlotKey(sched.HospitalName, sched.Name, date, req.Time.String())

	err = s.locker.WithLock(ctx, patientKey, func(ctx context.Context) error {
		return s.locker.WithLock(ctx, slotKey, func(lockCtx context.Context) error {
			// Re-check inside the critical section.
			if err := s.checkNoActiveBooking(lockCtx, req.PatientID, date); err != nil {
				return err
			}

			appt, err := s.repo.CreateAppointment(lockCtx, Appointment{
				PatientID:      req.PatientID,
				HospitalName:   sched.HospitalName,
				DepartmentName: sched.Name,
				DoctorName:     req.DoctorName,
				RoomNumber:     req.RoomNumber,
				Date:           date,
				Time:           req.Time,
				Status:         StatusBooked,
			})
			if err != nil {
				if errors.Is(err, ErrAlreadyBooked) || errors.Is(err, ErrSlotUnavailable) {
					return err
				}
				return fmt.Errorf("create appointment: %w", err)
			}
			created = appt
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrBookingInProgress
		}
		return nil, err
	}

	s.logEvent(ctx, created.ID, EventAppointmentCreated, map[string]any{
		"patient_id": created.PatientID.String(),
		"hospital":   created.HospitalName,
		"department": created.DepartmentName,
		"date":       created.Date.Format(slot.DateLayout),
		"time":       created.Time.String(),
	})
	s.logger.Info("appointment booked",
		zap.String("appointment_id", created.ID.String()),
		zap.String("patient_id", created.PatientID.String()),
		zap.String("department", created.DepartmentName),
		zap.Time("date", created.Date),
		zap.Stringer("time", created.Time),
	)

	s.notifier.SendConfirmation(context.WithoutCancel(ctx), created.PatientID, notify.Confirmation{
		AppointmentID:  created.ID,
		PatientName:    patient.Name,
		HospitalName:   created.HospitalName,
		DepartmentName: created.DepartmentName,
		DoctorName:     created.DoctorName,
		RoomNumber:     created.RoomNumber,
		Date:           created.Date,
		Time:           created.Time,
	})

	return created, nil
}

func (s *Service) checkNoActiveBooking(ctx context.Context, patientID uuid.UUID, date time.Time) error {
	existing, err := s.repo.FindActiveForPatientOnDate(ctx, patientID, date)
	if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
		return fmt.Errorf("check existing appointment: %w", err)
	}
	if existing != nil {
		return ErrAlreadyBooked
	}
	return nil
}

// CheckIn marks the patient's own BOOKED appointment as ARRIVED.
func (s *Service) CheckIn(ctx context.Context, id, patientID uuid.UUID) (_ *Appointment, err error) {
	ctx, span := s.tracer.Start(ctx, "appointment.check_in", trace.WithAttributes(
		attribute.String("appointment_id", id.String()),
	))
	defer func() { endSpan(span, err) }()

	appt, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.PatientID != patientID {
		return nil, ErrNotOwner
	}
	if appt.Status != StatusBooked {
		return nil, fmt.Errorf("check in from %s: %w", appt.Status, ErrInvalidTransition)
	}

	updated, err := s.repo.TransitionStatus(ctx, id, StatusBooked, StatusArrived)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrConcurrentUpdate
		}
		return nil, fmt.Errorf("check in: %w", err)
	}

	s.logEvent(ctx, id, EventAppointmentCheckedIn, map[string]any{})
	s.logger.Info("patient checked in", zap.String("appointment_id", id.String()))
	return updated, nil
}

// CallPatient notifies the patient and moves the appointment to CALLED. When
// the notification cannot be delivered the status is left untouched.
func (s *Service) CallPatient(ctx context.Context, id uuid.UUID, roomOverride string) (_ *Appointment, err error) {
	ctx, span := s.tracer.Start(ctx, "appointment.call", trace.WithAttributes(
		attribute.String("appointment_id", id.String()),
	))
	defer func() { endSpan(span, err) }()
	defer func() { s.metrics.ObserveCall(callResult(err)) }()

	appt, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status.Terminal() {
		return nil, fmt.Errorf("call from %s: %w", appt.Status, ErrInvalidTransition)
	}

	var updated *Appointment
	err = s.locker.WithLock(ctx, redisclient.AppointmentKey(id), func(lockCtx context.Context) error {
		current, err := s.load(lockCtx, id)
		if err != nil {
			return err
		}
		if current.Status.Terminal() {
			return fmt.Errorf("call from %s: %w", current.Status, ErrInvalidTransition)
		}

		room := current.RoomNumber
		if roomOverride != "" {
			room = roomOverride
		}

		sendCtx, cancel := context.WithTimeout(lockCtx, s.cfg.NotifyTimeout)
		sendErr := s.notifier.SendCall(sendCtx, current.PatientID, room)
		cancel()
		if sendErr != nil {
			return fmt.Errorf("%w: %w", ErrDeliveryFailed, sendErr)
		}

		updated, err = s.repo.MarkCalled(lockCtx, id, current.Status, room)
		if err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				return ErrConcurrentUpdate
			}
			return fmt.Errorf("mark called: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrCallInProgress
		}
		if errors.Is(err, ErrDeliveryFailed) {
			s.logger.Warn("patient call not delivered, status unchanged",
				zap.String("appointment_id", id.String()),
				zap.Error(err))
		}
		return nil, err
	}

	s.logEvent(ctx, id, EventAppointmentCalled, map[string]any{"room": updated.RoomNumber})
	s.logger.Info("patient called",
		zap.String("appointment_id", id.String()),
		zap.String("room", updated.RoomNumber))
	return updated, nil
}

// UpdateStatus is an administrative override: any status may be set from any
// status.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (*Appointment, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%q: %w", status, ErrInvalidStatus)
	}

	updated, err := s.repo.SetStatus(ctx, id, status)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) || errors.Is(err, ErrAlreadyBooked) || errors.Is(err, ErrSlotUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("update status: %w", err)
	}

	s.logEvent(ctx, id, EventStatusOverridden, map[string]any{"status": string(status)})
	s.logger.Warn("appointment status overridden",
		zap.String("appointment_id", id.String()),
		zap.String("status", string(status)))
	return updated, nil
}

type UpdateRequest struct {
	HospitalID     uuid.UUID
	DepartmentName string
	Date           time.Time
	Time           slot.TimeOfDay
}

// UpdateAppointment moves a non-terminal appointment to another department
// slot. Availability is only re-checked when RevalidateOnUpdate is set; the
// slot index rejects double occupancy either way.
func (s *Service) UpdateAppointment(ctx context.Context, id uuid.UUID, req UpdateRequest) (_ *Appointment, err error) {
	ctx, span := s.tracer.Start(ctx, "appointment.update", trace.WithAttributes(
		attribute.String("appointment_id", id.String()),
	))
	defer func() { endSpan(span, err) }()

	if !req.Time.Valid() {
		return nil, ErrInvalidTime
	}
	date := slot.DateOf(req.Date)

	appt, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status.Terminal() {
		return nil, fmt.Errorf("edit %s appointment: %w", appt.Status, ErrInvalidTransition)
	}

	sched, err := s.departments.GetSchedule(ctx, req.HospitalID, req.DepartmentName)
	if err != nil {
		return nil, err
	}
	if err := checkOnGrid(sched, req.Time); err != nil {
		return nil, err
	}

	if s.cfg.RevalidateOnUpdate && s.slots != nil && !appt.SameSlot(sched.HospitalName, sched.Name, date, req.Time) {
		ok, err := s.slots.IsAvailable(ctx, req.HospitalID, sched.Name, date, req.Time)
		if err != nil {
			return nil, fmt.Errorf("check slot availability: %w", err)
		}
		if !ok {
			return nil, ErrSlotUnavailable
		}
	}

	updated, err := s.repo.UpdateSchedule(ctx, id, ScheduleChange{
		HospitalName:   sched.HospitalName,
		DepartmentName: sched.Name,
		Date:           date,
		Time:           req.Time,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrAppointmentNotFound):
			return nil, ErrConcurrentUpdate
		case errors.Is(err, ErrAlreadyBooked), errors.Is(err, ErrSlotUnavailable):
			return nil, err
		}
		return nil, fmt.Errorf("update appointment: %w", err)
	}

	s.logEvent(ctx, id, EventAppointmentUpdated, map[string]any{
		"from": map[string]any{
			"hospital":   appt.HospitalName,
			"department": appt.DepartmentName,
			"date":       appt.Date.Format(slot.DateLayout),
			"time":       appt.Time.String(),
		},
		"to": map[string]any{
			"hospital":   updated.HospitalName,
			"department": updated.DepartmentName,
			"date":       updated.Date.Format(slot.DateLayout),
			"time":       updated.Time.String(),
		},
	})
	return updated, nil
}

// CancelAppointment moves a non-terminal appointment to CANCELLED, which
// frees both its slot and the patient's day.
func (s *Service) CancelAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status.Terminal() {
		return nil, fmt.Errorf("cancel %s appointment: %w", appt.Status, ErrInvalidTransition)
	}

	updated, err := s.repo.TransitionStatus(ctx, id, appt.Status, StatusCancelled)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrConcurrentUpdate
		}
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	s.logEvent(ctx, id, EventAppointmentCancelled, map[string]any{"from": string(appt.Status)})
	return updated, nil
}

func (s *Service) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteAppointment(ctx, id); err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return err
		}
		return fmt.Errorf("delete appointment: %w", err)
	}
	s.logEvent(ctx, id, EventAppointmentDeleted, map[string]any{})
	s.logger.Info("appointment deleted", zap.String("appointment_id", id.String()))
	return nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.load(ctx, id)
}

// ListWaitingToday returns today's BOOKED and ARRIVED appointments.
func (s *Service) ListWaitingToday(ctx context.Context) ([]Appointment, error) {
	return s.listByDate(ctx, s.Today(), WaitingRoomStatuses)
}

func (s *Service) ListToday(ctx context.Context) ([]Appointment, error) {
	return s.listByDate(ctx, s.Today(), nil)
}

func (s *Service) ListByDate(ctx context.Context, date time.Time) ([]Appointment, error) {
	return s.listByDate(ctx, slot.DateOf(date), nil)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error) {
	list, err := s.repo.ListByPatient(ctx, patientID, nil)
	if err != nil {
		return nil, fmt.Errorf("list appointments by patient: %w", err)
	}
	return list, nil
}

func (s *Service) ListByPatientToday(ctx context.Context, patientID uuid.UUID) ([]Appointment, error) {
	today := s.Today()
	list, err := s.repo.ListByPatient(ctx, patientID, &today)
	if err != nil {
		return nil, fmt.Errorf("list today's appointments by patient: %w", err)
	}
	return list, nil
}

func (s *Service) listByDate(ctx context.Context, date time.Time, statuses []Status) ([]Appointment, error) {
	list, err := s.repo.ListByDate(ctx, date, statuses)
	if err != nil {
		return nil, fmt.Errorf("list appointments by date: %w", err)
	}
	return list, nil
}

// RollOverWaiting moves every WAITING appointment of day to SCHEDULED. A
// failure on one appointment is logged and the rest still roll over.
func (s *Service) RollOverWaiting(ctx context.Context, day time.Time) (_ int, err error) {
	ctx, span := s.tracer.Start(ctx, "appointment.rollover")
	defer func() { endSpan(span, err) }()

	day = slot.DateOf(day)
	list, err := s.repo.ListByDate(ctx, day, nil)
	if err != nil {
		return 0, fmt.Errorf("list appointments for rollover: %w", err)
	}

	transitioned, failed := 0, 0
	for _, appt := range list {
		if appt.Status != StatusWaiting {
			continue
		}
		if err := ctx.Err(); err != nil {
			s.metrics.ObserveRollover(transitioned, failed)
			return transitioned, err
		}
		if _, err := s.repo.TransitionStatus(ctx, appt.ID, StatusWaiting, StatusScheduled); err != nil {
			failed++
			s.logger.Warn("rollover skipped appointment",
				zap.String("appointment_id", appt.ID.String()),
				zap.Error(err))
			continue
		}
		transitioned++
		s.logEvent(ctx, appt.ID, EventAppointmentRolled, map[string]any{"date": day.Format(slot.DateLayout)})
	}

	s.metrics.ObserveRollover(transitioned, failed)
	span.SetAttributes(attribute.Int("transitioned", transitioned), attribute.Int("failed", failed))
	s.logger.Info("waiting appointments rolled over",
		zap.Time("date", day),
		zap.Int("transitioned", transitioned),
		zap.Int("failed", failed))
	return transitioned, nil
}

// RollOverToday is RollOverWaiting for the current date.
func (s *Service) RollOverToday(ctx context.Context) (int, error) {
	return s.RollOverWaiting(ctx, s.Today())
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	return appt, nil
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("failed to marshal event payload", zap.String("event", eventType), zap.Error(err))
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     s.now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.logger.Warn("failed to insert event log",
			zap.String("event", eventType),
			zap.String("appointment_id", appointmentID.String()),
			zap.Error(err))
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apperr.Kind(err))
	}
	span.End()
}

func bookingResult(err error) string {
	switch {
	case err == nil:
		return "booked"
	case errors.Is(err, ErrAlreadyBooked):
		return "already_booked"
	case errors.Is(err, ErrSlotUnavailable):
		return "slot_unavailable"
	case errors.Is(err, ErrBookingInProgress):
		return "contended"
	default:
		return apperr.Kind(err)
	}
}

// checkOnGrid rejects a time that is not one of the schedule's generated slots.
func checkOnGrid(sched *department.Schedule, at slot.TimeOfDay) error {
	slots, err := sched.Slots()
	if err != nil {
		return fmt.Errorf("generate slots for %s: %w", sched.Name, err)
	}
	if !slices.Contains(slots, at) {
		return fmt.Errorf("%s in %s: %w", at, sched.Name, ErrNotASlot)
	}
	return nil
}

func callResult(err error) string {
	switch {
	case err == nil:
		return "called"
	case errors.Is(err, ErrDeliveryFailed):
		return "delivery_failed"
	default:
		return apperr.Kind(err)
	}
}
