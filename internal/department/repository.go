package department

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-engine/internal/apperr"
)

var (
	ErrHospitalNotFound   = fmt.Errorf("hospital %w", apperr.ErrNotFound)
	ErrDepartmentNotFound = fmt.Errorf("department %w", apperr.ErrNotFound)
	ErrDuplicateName      = fmt.Errorf("department name already used in this hospital: %w", apperr.ErrConflict)
)

// Repository contains all DB interactions needed by the department service.
type Repository interface {
	GetHospital(ctx context.Context, id uuid.UUID) (*Hospital, error)

	GetByID(ctx context.Context, id uuid.UUID) (*Schedule, error)
	GetByHospitalAndName(ctx context.Context, hospitalID uuid.UUID, name string) (*Schedule, error)
	ListByHospital(ctx context.Context, hospitalID uuid.UUID) ([]Schedule, error)

	Create(ctx context.Context, s Schedule) (*Schedule, error)
	UpdateDetails(ctx context.Context, id uuid.UUID, name, description string) (*Schedule, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*Schedule, error)
}
