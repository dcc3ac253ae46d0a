package api

import (
	"net/http"
	"strings"

	"github.com/hackgods/clinic-appointment-engine/internal/appointment"
	"github.com/hackgods/clinic-appointment-engine/internal/availability"
)

// availabilityHandler serves the patient-facing view: no booker names and
// no booked/blocked distinction.
func availabilityHandler(svc AvailabilityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		day, ok := resolveDay(w, r, svc)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, day.Public())
	}
}

func resolveDay(w http.ResponseWriter, r *http.Request, svc AvailabilityService) (*availability.DayAvailability, bool) {
	hospitalID, ok := uuidParam(w, r, "hospitalID")
	if !ok {
		return nil, false
	}
	date, ok := parseDateField(w, r.URL.Query().Get("date"), "date")
	if !ok {
		return nil, false
	}

	day, err := svc.Resolve(r.Context(), hospitalID, urlParamUnescaped(r, "department"), date)
	if err != nil {
		writeServiceError(w, err)
		return nil, false
	}
	return day, true
}

func createAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		patientID, ok := parseUUIDField(w, req.PatientID, "patient_id")
		if !ok {
			return
		}
		hospitalID, ok := parseUUIDField(w, req.HospitalID, "hospital_id")
		if !ok {
			return
		}
		date, ok := parseDateField(w, req.Date, "date")
		if !ok {
			return
		}
		if strings.TrimSpace(req.Department) == "" {
			writeError(w, http.StatusBadRequest, "invalid_department", "department is required")
			return
		}

		appt, err := svc.CreateAppointment(r.Context(), appointment.CreateRequest{
			PatientID:      patientID,
			HospitalID:     hospitalID,
			DepartmentName: req.Department,
			DoctorName:     req.Doctor,
			Date:           date,
			Time:           req.Time,
			RoomNumber:     req.Room,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func getAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		appt, err := svc.GetAppointment(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

// listAppointmentsHandler serves ?scope=waiting, ?scope=today (default) and
// ?date=YYYY-MM-DD.
func listAppointmentsHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			list []appointment.Appointment
			err  error
		)
		q := r.URL.Query()
		switch {
		case q.Get("date") != "":
			date, ok := parseDateField(w, q.Get("date"), "date")
			if !ok {
				return
			}
			list, err = svc.ListByDate(r.Context(), date)
		case q.Get("scope") == "waiting":
			list, err = svc.ListWaitingToday(r.Context())
		case q.Get("scope") == "" || q.Get("scope") == "today":
			list, err = svc.ListToday(r.Context())
		default:
			writeError(w, http.StatusBadRequest, "invalid_scope", "scope must be today or waiting")
			return
		}
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentList(list))
	}
}

func listPatientAppointmentsHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, ok := uuidParam(w, r, "patientID")
		if !ok {
			return
		}

		var (
			list []appointment.Appointment
			err  error
		)
		if r.URL.Query().Get("scope") == "today" {
			list, err = svc.ListByPatientToday(r.Context(), patientID)
		} else {
			list, err = svc.ListByPatient(r.Context(), patientID)
		}
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentList(list))
	}
}

func checkInHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		var req CheckInRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		patientID, ok := parseUUIDField(w, req.PatientID, "patient_id")
		if !ok {
			return
		}

		appt, err := svc.CheckIn(r.Context(), id, patientID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func callPatientHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		// The body is optional; without it the booked room is used.
		var req CallRequest
		if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
			return
		}

		appt, err := svc.CallPatient(r.Context(), id, strings.TrimSpace(req.Room))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func updateStatusHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		var req StatusRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		appt, err := svc.UpdateStatus(r.Context(), id, appointment.Status(strings.ToUpper(req.Status)))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func updateAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		var req UpdateAppointmentRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		hospitalID, ok := parseUUIDField(w, req.HospitalID, "hospital_id")
		if !ok {
			return
		}
		date, ok := parseDateField(w, req.Date, "date")
		if !ok {
			return
		}

		appt, err := svc.UpdateAppointment(r.Context(), id, appointment.UpdateRequest{
			HospitalID:     hospitalID,
			DepartmentName: req.Department,
			Date:           date,
			Time:           req.Time,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func cancelAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		appt, err := svc.CancelAppointment(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func deleteAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		if err := svc.DeleteAppointment(r.Context(), id); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
