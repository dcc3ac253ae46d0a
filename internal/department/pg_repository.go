package department

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/hackgods/clinic-appointment-engine/internal/db"
)

type PgRepository struct {
	db db.Querier
}

func NewPgRepository(q db.Querier) *PgRepository {
	return &PgRepository{db: q}
}

const selectSchedule = `
	SELECT d.id, d.hospital_id, h.name, h.active, d.name, d.description,
	       d.open_time, d.close_time, d.slot_minutes, d.active, d.created_at, d.updated_at
	FROM departments d
	JOIN hospitals h ON h.id = d.hospital_id
`

func scanSchedule(row pgx.Row) (*Schedule, error) {
	var s Schedule
	var open, closing pgtype.Time

	err := row.Scan(
		&s.ID,
		&s.HospitalID,
		&s.HospitalName,
		&s.HospitalActive,
		&s.Name,
		&s.Description,
		&open,
		&closing,
		&s.SlotMinutes,
		&s.Active,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDepartmentNotFound
		}
		return nil, err
	}

	s.OpenTime = db.FromPGTime(open)
	s.CloseTime = db.FromPGTime(closing)
	return &s, nil
}

func (r *PgRepository) GetHospital(ctx context.Context, id uuid.UUID) (*Hospital, error) {
	var h Hospital
	err := r.db.QueryRow(ctx, `
		SELECT id, name, active, created_at, updated_at
		FROM hospitals
		WHERE id = $1
	`, id).Scan(&h.ID, &h.Name, &h.Active, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrHospitalNotFound
		}
		return nil, err
	}
	return &h, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Schedule, error) {
	return scanSchedule(r.db.QueryRow(ctx, selectSchedule+` WHERE d.id = $1`, id))
}

func (r *PgRepository) GetByHospitalAndName(ctx context.Context, hospitalID uuid.UUID, name string) (*Schedule, error) {
	return scanSchedule(r.db.QueryRow(ctx, selectSchedule+` WHERE d.hospital_id = $1 AND d.name = $2`, hospitalID, name))
}

func (r *PgRepository) ListByHospital(ctx context.Context, hospitalID uuid.UUID) ([]Schedule, error) {
	rows, err := r.db.Query(ctx, selectSchedule+` WHERE d.hospital_id = $1 ORDER BY d.name`, hospitalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) Create(ctx context.Context, s Schedule) (*Schedule, error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO departments (id, hospital_id, name, description, open_time, close_time, slot_minutes, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
	`, s.ID, s.HospitalID, s.Name, s.Description, db.ToPGTime(s.OpenTime), db.ToPGTime(s.CloseTime), s.SlotMinutes, s.Active)
	if err != nil {
		if _, dup := db.UniqueViolation(err); dup {
			return nil, ErrDuplicateName
		}
		return nil, fmt.Errorf("insert department: %w", err)
	}

	return r.GetByID(ctx, s.ID)
}

func (r *PgRepository) UpdateDetails(ctx context.Context, id uuid.UUID, name, description string) (*Schedule, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE departments
		SET name = $2,
		    description = $3,
		    updated_at = now()
		WHERE id = $1
	`, id, name, description)
	if err != nil {
		if _, dup := db.UniqueViolation(err); dup {
			return nil, ErrDuplicateName
		}
		return nil, fmt.Errorf("update department: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrDepartmentNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *PgRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) (*Schedule, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE departments
		SET active = $2,
		    updated_at = now()
		WHERE id = $1
	`, id, active)
	if err != nil {
		return nil, fmt.Errorf("set department active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrDepartmentNotFound
	}
	return r.GetByID(ctx, id)
}
