package exception

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-engine/internal/apperr"
	"github.com/hackgods/clinic-appointment-engine/internal/slot"
)

var ErrExceptionNotFound = fmt.Errorf("slot exception %w", apperr.ErrNotFound)

type Repository interface {
	// Upsert creates the row or updates the existing one in place.
	Upsert(ctx context.Context, departmentID uuid.UUID, date time.Time, at slot.TimeOfDay, blocked bool) (*SlotException, error)
	SetBlocked(ctx context.Context, departmentID uuid.UUID, date time.Time, at slot.TimeOfDay, blocked bool) (*SlotException, error)
	Delete(ctx context.Context, id uuid.UUID) error

	ListByDepartment(ctx context.Context, departmentID uuid.UUID, date time.Time) ([]SlotException, error)
	BlockedTimes(ctx context.Context, departmentID uuid.UUID, date time.Time) ([]slot.TimeOfDay, error)
}
