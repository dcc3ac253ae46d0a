package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-engine/internal/appointment"
	"github.com/hackgods/clinic-appointment-engine/internal/availability"
	"github.com/hackgods/clinic-appointment-engine/internal/department"
	"github.com/hackgods/clinic-appointment-engine/internal/exception"
	"github.com/hackgods/clinic-appointment-engine/internal/slot"
)

type CreateAppointmentRequest struct {
	PatientID  string         `json:"patient_id"`
	HospitalID string         `json:"hospital_id"`
	Department string         `json:"department"`
	Doctor     string         `json:"doctor"`
	Date       string         `json:"date"`
	Time       slot.TimeOfDay `json:"time"`
	Room       string         `json:"room"`
}

type UpdateAppointmentRequest struct {
	HospitalID string         `json:"hospital_id"`
	Department string         `json:"department"`
	Date       string         `json:"date"`
	Time       slot.TimeOfDay `json:"time"`
}

type CheckInRequest struct {
	PatientID string `json:"patient_id"`
}

type CallRequest struct {
	Room string `json:"room"`
}

type StatusRequest struct {
	Status string `json:"status"`
}

type AppointmentResponse struct {
	ID         uuid.UUID      `json:"id"`
	PatientID  uuid.UUID      `json:"patient_id"`
	Hospital   string         `json:"hospital"`
	Department string         `json:"department"`
	Doctor     string         `json:"doctor,omitempty"`
	Room       string         `json:"room,omitempty"`
	Date       string         `json:"date"`
	Time       slot.TimeOfDay `json:"time"`
	Status     string         `json:"status"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:         a.ID,
		PatientID:  a.PatientID,
		Hospital:   a.HospitalName,
		Department: a.DepartmentName,
		Doctor:     a.DoctorName,
		Room:       a.RoomNumber,
		Date:       a.Date.Format(slot.DateLayout),
		Time:       a.Time,
		Status:     string(a.Status),
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

func toAppointmentList(list []appointment.Appointment) []AppointmentResponse {
	out := make([]AppointmentResponse, len(list))
	for i := range list {
		out[i] = toAppointmentResponse(&list[i])
	}
	return out
}

// StaffDayResponse is the availability view for clinic staff, including who
// holds each slot.
type StaffDayResponse struct {
	Hospital       string                    `json:"hospital"`
	Department     string                    `json:"department"`
	Date           string                    `json:"date"`
	Slots          []availability.SlotStatus `json:"slots"`
	AvailableCount int                       `json:"available_count"`
	BookedCount    int                       `json:"booked_count"`
	BlockedCount   int                       `json:"blocked_count"`
	TotalSlots     int                       `json:"total_slots"`
}

func toStaffDay(d *availability.DayAvailability) StaffDayResponse {
	return StaffDayResponse{
		Hospital:       d.HospitalName,
		Department:     d.DepartmentName,
		Date:           d.Date.Format(slot.DateLayout),
		Slots:          d.Slots,
		AvailableCount: d.AvailableCount,
		BookedCount:    d.BookedCount,
		BlockedCount:   d.BlockedCount,
		TotalSlots:     d.TotalSlots,
	}
}

type CreateDepartmentRequest struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	OpenTime    slot.TimeOfDay `json:"open_time"`
	CloseTime   slot.TimeOfDay `json:"close_time"`
	SlotMinutes int            `json:"slot_minutes"`
}

type RenameDepartmentRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type DepartmentResponse struct {
	ID          uuid.UUID      `json:"id"`
	HospitalID  uuid.UUID      `json:"hospital_id"`
	Hospital    string         `json:"hospital"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	OpenTime    slot.TimeOfDay `json:"open_time"`
	CloseTime   slot.TimeOfDay `json:"close_time"`
	SlotMinutes int            `json:"slot_minutes"`
	Active      bool           `json:"active"`
}

func toDepartmentResponse(s *department.Schedule) DepartmentResponse {
	return DepartmentResponse{
		ID:          s.ID,
		HospitalID:  s.HospitalID,
		Hospital:    s.HospitalName,
		Name:        s.Name,
		Description: s.Description,
		OpenTime:    s.OpenTime,
		CloseTime:   s.CloseTime,
		SlotMinutes: s.SlotMinutes,
		Active:      s.Active,
	}
}

type ExceptionRequest struct {
	Date string         `json:"date"`
	Time slot.TimeOfDay `json:"time"`
}

type ExceptionResponse struct {
	ID           uuid.UUID      `json:"id"`
	DepartmentID uuid.UUID      `json:"department_id"`
	Date         string         `json:"date"`
	Time         slot.TimeOfDay `json:"time"`
	Blocked      bool           `json:"blocked"`
}

func toExceptionResponse(e *exception.SlotException) ExceptionResponse {
	return ExceptionResponse{
		ID:           e.ID,
		DepartmentID: e.DepartmentID,
		Date:         e.Date.Format(slot.DateLayout),
		Time:         e.Time,
		Blocked:      e.Blocked,
	}
}

type ChannelRequest struct {
	Platform string `json:"platform"`
	Token    string `json:"token"`
}

type RolloverResponse struct {
	Transitioned int `json:"transitioned"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
