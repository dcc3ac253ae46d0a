package exception

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/hackgods/clinic-appointment-engine/internal/db"
	"github.com/hackgods/clinic-appointment-engine/internal/slot"
)

type PgRepository struct {
	db db.Querier
}

func NewPgRepository(q db.Querier) *PgRepository {
	return &PgRepository{db: q}
}

const exceptionColumns = `id, department_id, exception_date, exception_time, blocked, created_at, updated_at`

func scanException(row pgx.Row) (*SlotException, error) {
	var e SlotException
	var at pgtype.Time

	err := row.Scan(&e.ID, &e.DepartmentID, &e.Date, &at, &e.Blocked, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExceptionNotFound
		}
		return nil, err
	}
	e.Time = db.FromPGTime(at)
	return &e, nil
}

func (r *PgRepository) Upsert(ctx context.Context, departmentID uuid.UUID, date time.Time, at slot.TimeOfDay, blocked bool) (*SlotException, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO slot_exceptions (id, department_id, exception_date, exception_time, blocked, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		ON CONFLICT (department_id, exception_date, exception_time)
		DO UPDATE SET blocked = EXCLUDED.blocked, updated_at = now()
		RETURNING `+exceptionColumns,
		uuid.New(), departmentID, date, db.ToPGTime(at), blocked)

	e, err := scanException(row)
	if err != nil {
		return nil, fmt.Errorf("upsert slot exception: %w", err)
	}
	return e, nil
}

func (r *PgRepository) SetBlocked(ctx context.Context, departmentID uuid.UUID, date time.Time, at slot.TimeOfDay, blocked bool) (*SlotException, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE slot_exceptions
		SET blocked = $4,
		    updated_at = now()
		WHERE department_id = $1
		  AND exception_date = $2
		  AND exception_time = $3
		RETURNING `+exceptionColumns,
		departmentID, date, db.ToPGTime(at), blocked)
	return scanException(row)
}

func (r *PgRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM slot_exceptions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete slot exception: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrExceptionNotFound
	}
	return nil
}

func (r *PgRepository) ListByDepartment(ctx context.Context, departmentID uuid.UUID, date time.Time) ([]SlotException, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+exceptionColumns+`
		FROM slot_exceptions
		WHERE department_id = $1
		  AND exception_date = $2
		ORDER BY exception_time
	`, departmentID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []SlotException
	for rows.Next() {
		e, err := scanException(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) BlockedTimes(ctx context.Context, departmentID uuid.UUID, date time.Time) ([]slot.TimeOfDay, error) {
	rows, err := r.db.Query(ctx, `
		SELECT exception_time
		FROM slot_exceptions
		WHERE department_id = $1
		  AND exception_date = $2
		  AND blocked
		ORDER BY exception_time
	`, departmentID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []slot.TimeOfDay
	for rows.Next() {
		var at pgtype.Time
		if err := rows.Scan(&at); err != nil {
			return nil, err
		}
		result = append(result, db.FromPGTime(at))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
