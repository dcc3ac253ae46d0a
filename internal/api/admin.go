package api

import (
	"net/http"

	"github.com/hackgods/clinic-appointment-engine/internal/department"
	"github.com/hackgods/clinic-appointment-engine/internal/notify"
)

// staffAvailabilityHandler shows who holds each slot and which slots are
// blocked.
func staffAvailabilityHandler(svc AvailabilityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		day, ok := resolveDay(w, r, svc)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, toStaffDay(day))
	}
}

func rolloverHandler(roller Roller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := roller.RunDaily(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, RolloverResponse{Transitioned: n})
	}
}

func listDepartmentsHandler(svc DepartmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hospitalID, ok := uuidParam(w, r, "hospitalID")
		if !ok {
			return
		}
		list, err := svc.ListByHospital(r.Context(), hospitalID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		out := make([]DepartmentResponse, len(list))
		for i := range list {
			out[i] = toDepartmentResponse(&list[i])
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func createDepartmentHandler(svc DepartmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hospitalID, ok := uuidParam(w, r, "hospitalID")
		if !ok {
			return
		}
		var req CreateDepartmentRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		created, err := svc.Create(r.Context(), department.CreateRequest{
			HospitalID:  hospitalID,
			Name:        req.Name,
			Description: req.Description,
			OpenTime:    req.OpenTime,
			CloseTime:   req.CloseTime,
			SlotMinutes: req.SlotMinutes,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toDepartmentResponse(created))
	}
}

func getDepartmentHandler(svc DepartmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		sched, err := svc.Get(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDepartmentResponse(sched))
	}
}

func renameDepartmentHandler(svc DepartmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		var req RenameDepartmentRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		updated, err := svc.Rename(r.Context(), id, req.Name, req.Description)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDepartmentResponse(updated))
	}
}

func setDepartmentActiveHandler(svc DepartmentService, active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		var (
			updated *department.Schedule
			err     error
		)
		if active {
			updated, err = svc.Activate(r.Context(), id)
		} else {
			updated, err = svc.Deactivate(r.Context(), id)
		}
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDepartmentResponse(updated))
	}
}

func listExceptionsHandler(svc ExceptionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		date, ok := parseDateField(w, r.URL.Query().Get("date"), "date")
		if !ok {
			return
		}
		list, err := svc.ListByDepartment(r.Context(), id, date)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		out := make([]ExceptionResponse, len(list))
		for i := range list {
			out[i] = toExceptionResponse(&list[i])
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func blockSlotHandler(svc ExceptionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		var req ExceptionRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		date, ok := parseDateField(w, req.Date, "date")
		if !ok {
			return
		}
		exc, err := svc.Block(r.Context(), id, date, req.Time)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toExceptionResponse(exc))
	}
}

func unblockSlotHandler(svc ExceptionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		var req ExceptionRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		date, ok := parseDateField(w, req.Date, "date")
		if !ok {
			return
		}
		exc, err := svc.Unblock(r.Context(), id, date, req.Time)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toExceptionResponse(exc))
	}
}

func deleteExceptionHandler(svc ExceptionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func registerChannelHandler(store notify.ChannelStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, ok := uuidParam(w, r, "patientID")
		if !ok {
			return
		}
		var req ChannelRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if err := store.Register(r.Context(), patientID, notify.Channel{Platform: req.Platform, Token: req.Token}); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func removeChannelHandler(store notify.ChannelStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, ok := uuidParam(w, r, "patientID")
		if !ok {
			return
		}
		if err := store.Remove(r.Context(), patientID); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
