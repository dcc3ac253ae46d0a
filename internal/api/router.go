package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-appointment-engine/internal/appointment"
	"github.com/hackgods/clinic-appointment-engine/internal/availability"
	"github.com/hackgods/clinic-appointment-engine/internal/department"
	"github.com/hackgods/clinic-appointment-engine/internal/exception"
	"github.com/hackgods/clinic-appointment-engine/internal/notify"
	"github.com/hackgods/clinic-appointment-engine/internal/slot"
)

type AppointmentService interface {
	CreateAppointment(ctx context.Context, req appointment.CreateRequest) (*appointment.Appointment, error)
	CheckIn(ctx context.Context, id, patientID uuid.UUID) (*appointment.Appointment, error)
	CallPatient(ctx context.Context, id uuid.UUID, roomOverride string) (*appointment.Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status appointment.Status) (*appointment.Appointment, error)
	UpdateAppointment(ctx context.Context, id uuid.UUID, req appointment.UpdateRequest) (*appointment.Appointment, error)
	CancelAppointment(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	DeleteAppointment(ctx context.Context, id uuid.UUID) error
	GetAppointment(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	ListWaitingToday(ctx context.Context) ([]appointment.Appointment, error)
	ListToday(ctx context.Context) ([]appointment.Appointment, error)
	ListByDate(ctx context.Context, date time.Time) ([]appointment.Appointment, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]appointment.Appointment, error)
	ListByPatientToday(ctx context.Context, patientID uuid.UUID) ([]appointment.Appointment, error)
}

type AvailabilityService interface {
	Resolve(ctx context.Context, hospitalID uuid.UUID, departmentName string, date time.Time) (*availability.DayAvailability, error)
}

type DepartmentService interface {
	Get(ctx context.Context, id uuid.UUID) (*department.Schedule, error)
	ListByHospital(ctx context.Context, hospitalID uuid.UUID) ([]department.Schedule, error)
	Create(ctx context.Context, req department.CreateRequest) (*department.Schedule, error)
	Rename(ctx context.Context, id uuid.UUID, name, description string) (*department.Schedule, error)
	Activate(ctx context.Context, id uuid.UUID) (*department.Schedule, error)
	Deactivate(ctx context.Context, id uuid.UUID) (*department.Schedule, error)
}

type ExceptionService interface {
	Block(ctx context.Context, departmentID uuid.UUID, date time.Time, at slot.TimeOfDay) (*exception.SlotException, error)
	Unblock(ctx context.Context, departmentID uuid.UUID, date time.Time, at slot.TimeOfDay) (*exception.SlotException, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByDepartment(ctx context.Context, departmentID uuid.UUID, date time.Time) ([]exception.SlotException, error)
}

// Roller runs the daily WAITING to SCHEDULED rollover on demand.
type Roller interface {
	RunDaily(ctx context.Context) (int, error)
}

type RouterConfig struct {
	Appointments AppointmentService
	Availability AvailabilityService
	Departments  DepartmentService
	Exceptions   ExceptionService
	Channels     notify.ChannelStore
	Rollover     Roller

	Postgres Pinger
	Redis    Pinger
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
	Env      string
	Version  string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(middleware.Recoverer)

	health := NewHealthHandler(cfg.Postgres, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Get("/hospitals/{hospitalID}/departments/{department}/availability", availabilityHandler(cfg.Availability))

	r.Route("/appointments", func(r chi.Router) {
		r.Post("/", createAppointmentHandler(cfg.Appointments))
		r.Get("/", listAppointmentsHandler(cfg.Appointments))
		r.Get("/{id}", getAppointmentHandler(cfg.Appointments))
		r.Put("/{id}", updateAppointmentHandler(cfg.Appointments))
		r.Delete("/{id}", deleteAppointmentHandler(cfg.Appointments))
		r.Post("/{id}/check-in", checkInHandler(cfg.Appointments))
		r.Post("/{id}/call", callPatientHandler(cfg.Appointments))
		r.Post("/{id}/cancel", cancelAppointmentHandler(cfg.Appointments))
		r.Put("/{id}/status", updateStatusHandler(cfg.Appointments))
	})

	r.Route("/patients/{patientID}", func(r chi.Router) {
		r.Get("/appointments", listPatientAppointmentsHandler(cfg.Appointments))
		r.Put("/channel", registerChannelHandler(cfg.Channels))
		r.Delete("/channel", removeChannelHandler(cfg.Channels))
	})

	r.Route("/admin", func(r chi.Router) {
		r.Post("/rollover", rolloverHandler(cfg.Rollover))

		r.Get("/hospitals/{hospitalID}/departments/{department}/availability", staffAvailabilityHandler(cfg.Availability))

		r.Get("/hospitals/{hospitalID}/departments", listDepartmentsHandler(cfg.Departments))
		r.Post("/hospitals/{hospitalID}/departments", createDepartmentHandler(cfg.Departments))
		r.Get("/departments/{id}", getDepartmentHandler(cfg.Departments))
		r.Patch("/departments/{id}", renameDepartmentHandler(cfg.Departments))
		r.Post("/departments/{id}/activate", setDepartmentActiveHandler(cfg.Departments, true))
		r.Post("/departments/{id}/deactivate", setDepartmentActiveHandler(cfg.Departments, false))

		r.Get("/departments/{id}/exceptions", listExceptionsHandler(cfg.Exceptions))
		r.Post("/departments/{id}/exceptions/block", blockSlotHandler(cfg.Exceptions))
		r.Post("/departments/{id}/exceptions/unblock", unblockSlotHandler(cfg.Exceptions))
		r.Delete("/exceptions/{id}", deleteExceptionHandler(cfg.Exceptions))
	})

	return r
}
