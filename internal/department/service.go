// Package department owns the per-department schedule configuration:
// operating window, slot granularity and the active flag.
package department

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-appointment-engine/internal/apperr"
	"github.com/hackgods/clinic-appointment-engine/internal/slot"
)

var ErrInactive = fmt.Errorf("department or hospital is inactive: %w", apperr.ErrNotFound)

type Service struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(repo Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger}
}

// GetSchedule returns the booking configuration of an active department in an
// active hospital. Missing and inactive departments both fail NOT_FOUND.
func (s *Service) GetSchedule(ctx context.Context, hospitalID uuid.UUID, name string) (*Schedule, error) {
	sched, err := s.repo.GetByHospitalAndName(ctx, hospitalID, name)
	if err != nil {
		if errors.Is(err, ErrDepartmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load department: %w", err)
	}
	if !sched.Bookable() {
		return nil, ErrInactive
	}
	return sched, nil
}

// Get returns a department regardless of its active flag.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Schedule, error) {
	sched, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrDepartmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load department: %w", err)
	}
	return sched, nil
}

func (s *Service) ListByHospital(ctx context.Context, hospitalID uuid.UUID) ([]Schedule, error) {
	list, err := s.repo.ListByHospital(ctx, hospitalID)
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	return list, nil
}

type CreateRequest struct {
	HospitalID  uuid.UUID
	Name        string
	Description string
	OpenTime    slot.TimeOfDay
	CloseTime   slot.TimeOfDay
	SlotMinutes int
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*Schedule, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("department name is required: %w", apperr.ErrInvalidConfig)
	}
	if req.SlotMinutes <= 0 {
		return nil, slot.ErrInvalidDuration
	}
	if err := slot.ValidateWindow(req.OpenTime, req.CloseTime); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetHospital(ctx, req.HospitalID); err != nil {
		if errors.Is(err, ErrHospitalNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load hospital: %w", err)
	}

	created, err := s.repo.Create(ctx, Schedule{
		HospitalID:  req.HospitalID,
		Name:        name,
		Description: req.Description,
		OpenTime:    req.OpenTime,
		CloseTime:   req.CloseTime,
		SlotMinutes: req.SlotMinutes,
		Active:      true,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateName) {
			return nil, err
		}
		return nil, fmt.Errorf("create department: %w", err)
	}

	s.logger.Info("department created",
		zap.String("department_id", created.ID.String()),
		zap.String("hospital_id", created.HospitalID.String()),
		zap.String("name", created.Name),
		zap.Stringer("open", created.OpenTime),
		zap.Stringer("close", created.CloseTime),
		zap.Int("slot_minutes", created.SlotMinutes),
	)
	return created, nil
}

// Rename edits the department's name and description. Past appointments keep
// the name they were booked under.
func (s *Service) Rename(ctx context.Context, id uuid.UUID, name, description string) (*Schedule, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("department name is required: %w", apperr.ErrInvalidConfig)
	}
	updated, err := s.repo.UpdateDetails(ctx, id, name, description)
	if err != nil {
		if errors.Is(err, ErrDepartmentNotFound) || errors.Is(err, ErrDuplicateName) {
			return nil, err
		}
		return nil, fmt.Errorf("rename department: %w", err)
	}
	s.logger.Info("department renamed", zap.String("department_id", id.String()), zap.String("name", name))
	return updated, nil
}

func (s *Service) Activate(ctx context.Context, id uuid.UUID) (*Schedule, error) {
	return s.setActive(ctx, id, true)
}

func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) (*Schedule, error) {
	return s.setActive(ctx, id, false)
}

func (s *Service) setActive(ctx context.Context, id uuid.UUID, active bool) (*Schedule, error) {
	updated, err := s.repo.SetActive(ctx, id, active)
	if err != nil {
		if errors.Is(err, ErrDepartmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("set department active: %w", err)
	}
	s.logger.Info("department active flag changed", zap.String("department_id", id.String()), zap.Bool("active", active))
	return updated, nil
}
