package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/hackgods/clinic-appointment-engine/internal/db"
)

const (
	patientDayConstraint = "appointments_patient_day_active_uniq"
	slotConstraint       = "appointments_slot_active_uniq"
)

type PgRepository struct {
	db db.Querier
}

func NewPgRepository(q db.Querier) *PgRepository {
	return &PgRepository{db: q}
}

const appointmentColumns = `id, patient_id, hospital_name, department_name, doctor_name, room_number,
	appointment_date, appointment_time, status, created_at, updated_at`

// Helpers

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var email *string

	err := row.Scan(
		&p.ID,
		&p.Name,
		&email,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	p.Email = email
	return &p, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var at pgtype.Time

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.HospitalName,
		&a.DepartmentName,
		&a.DoctorName,
		&a.RoomNumber,
		&a.Date,
		&at,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Time = db.FromPGTime(at)
	return &a, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// mapWriteError turns a partial unique index violation into the matching
// booking conflict.
func mapWriteError(err error) error {
	if name, ok := db.UniqueViolation(err); ok {
		switch name {
		case patientDayConstraint:
			return ErrAlreadyBooked
		case slotConstraint:
			return ErrSlotUnavailable
		}
	}
	return err
}

func statusStrings(statuses []Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// Interface methods

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) FindActiveForPatientOnDate(ctx context.Context, patientID uuid.UUID, date time.Time) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE patient_id = $1
		  AND appointment_date = $2
		  AND status NOT IN ('COMPLETED', 'CANCELLED')
		LIMIT 1
	`, patientID, date)
	return scanAppointment(row)
}

func (r *PgRepository) CreateAppointment(ctx context.Context, a Appointment) (*Appointment, error) {
	id := a.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, hospital_name, department_name, doctor_name, room_number,
		                          appointment_date, appointment_time, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		RETURNING `+appointmentColumns,
		id, a.PatientID, a.HospitalName, a.DepartmentName, a.DoctorName, a.RoomNumber,
		a.Date, db.ToPGTime(a.Time), string(a.Status))

	created, err := scanAppointment(row)
	if err != nil {
		return nil, mapWriteError(err)
	}
	return created, nil
}

func (r *PgRepository) SetStatus(ctx context.Context, id uuid.UUID, to Status) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns, id, string(to))

	updated, err := scanAppointment(row)
	if err != nil {
		return nil, mapWriteError(err)
	}
	return updated, nil
}

func (r *PgRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns, id, string(to), string(from))

	updated, err := scanAppointment(row)
	if err != nil {
		return nil, mapWriteError(err)
	}
	return updated, nil
}

func (r *PgRepository) MarkCalled(ctx context.Context, id uuid.UUID, from Status, room string) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'CALLED',
		    room_number = $3,
		    updated_at = now()
		WHERE id = $1
		  AND status = $2
		RETURNING `+appointmentColumns, id, string(from), room)

	updated, err := scanAppointment(row)
	if err != nil {
		return nil, mapWriteError(err)
	}
	return updated, nil
}

func (r *PgRepository) UpdateSchedule(ctx context.Context, id uuid.UUID, change ScheduleChange) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET hospital_name = $2,
		    department_name = $3,
		    appointment_date = $4,
		    appointment_time = $5,
		    updated_at = now()
		WHERE id = $1
		  AND status NOT IN ('COMPLETED', 'CANCELLED')
		RETURNING `+appointmentColumns,
		id, change.HospitalName, change.DepartmentName, change.Date, db.ToPGTime(change.Time))

	updated, err := scanAppointment(row)
	if err != nil {
		return nil, mapWriteError(err)
	}
	return updated, nil
}

func (r *PgRepository) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *PgRepository) ListByDate(ctx context.Context, date time.Time, statuses []Status) ([]Appointment, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if len(statuses) == 0 {
		rows, err = r.db.Query(ctx, `
			SELECT `+appointmentColumns+`
			FROM appointments
			WHERE appointment_date = $1
			ORDER BY appointment_time, created_at
		`, date)
	} else {
		rows, err = r.db.Query(ctx, `
			SELECT `+appointmentColumns+`
			FROM appointments
			WHERE appointment_date = $1
			  AND status = ANY($2)
			ORDER BY appointment_time, created_at
		`, date, statusStrings(statuses))
	}
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID uuid.UUID, date *time.Time) ([]Appointment, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if date == nil {
		rows, err = r.db.Query(ctx, `
			SELECT `+appointmentColumns+`
			FROM appointments
			WHERE patient_id = $1
			ORDER BY appointment_date, appointment_time
		`, patientID)
	} else {
		rows, err = r.db.Query(ctx, `
			SELECT `+appointmentColumns+`
			FROM appointments
			WHERE patient_id = $1
			  AND appointment_date = $2
			ORDER BY appointment_time
		`, patientID, *date)
	}
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) ListOccupants(ctx context.Context, hospitalName, departmentName string, date time.Time, statuses []Status) ([]Occupant, error) {
	rows, err := r.db.Query(ctx, `
		SELECT a.id, a.patient_id, p.name, a.appointment_time, a.status
		FROM appointments a
		JOIN patients p ON p.id = a.patient_id
		WHERE a.hospital_name = $1
		  AND a.department_name = $2
		  AND a.appointment_date = $3
		  AND a.status = ANY($4)
		ORDER BY a.appointment_time, a.created_at
	`, hospitalName, departmentName, date, statusStrings(statuses))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Occupant
	for rows.Next() {
		var o Occupant
		var at pgtype.Time
		if err := rows.Scan(&o.AppointmentID, &o.PatientID, &o.PatientName, &at, &o.Status); err != nil {
			return nil, err
		}
		o.Time = db.FromPGTime(at)
		result = append(result, o)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, db.NullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}
