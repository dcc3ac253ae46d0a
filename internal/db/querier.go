package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/hackgods/clinic-appointment-engine/internal/slot"
)

// Querier is the subset of *pgxpool.Pool the repositories use. pgxmock pools
// satisfy it as well, which is how the repositories are tested.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const uniqueViolation = "23505"

// UniqueViolation reports the violated constraint name when err is a unique
// index violation.
func UniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}

// ToPGTime encodes a wall-clock time for a postgres TIME column.
func ToPGTime(t slot.TimeOfDay) pgtype.Time {
	return pgtype.Time{
		Microseconds: int64(t.Duration() / time.Microsecond),
		Valid:        true,
	}
}

// FromPGTime decodes a postgres TIME column, dropping seconds.
func FromPGTime(t pgtype.Time) slot.TimeOfDay {
	if !t.Valid {
		return 0
	}
	return slot.TimeOfDay(t.Microseconds / int64(time.Minute/time.Microsecond))
}

func NullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
