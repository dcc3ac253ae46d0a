// Package exception manages administrator overrides that block or restore
// individual slots independently of bookings.
package exception

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-appointment-engine/internal/apperr"
	"github.com/hackgods/clinic-appointment-engine/internal/department"
	"github.com/hackgods/clinic-appointment-engine/internal/slot"
)

var ErrInvalidTime = fmt.Errorf("time of day outside a day: %w", apperr.ErrInvalidInput)

// Departments resolves the department an exception refers to.
type Departments interface {
	Get(ctx context.Context, id uuid.UUID) (*department.Schedule, error)
}

type Manager struct {
	repo        Repository
	departments Departments
	logger      *zap.Logger
}

func NewManager(repo Repository, departments Departments, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{repo: repo, departments: departments, logger: logger}
}

// Block marks a slot unavailable. Blocking an already known slot, blocked or
// not, updates that row rather than adding another.
func (m *Manager) Block(ctx context.Context, departmentID uuid.UUID, date time.Time, at slot.TimeOfDay) (*SlotException, error) {
	if !at.Valid() {
		return nil, fmt.Errorf("time %s: %w", at, ErrInvalidTime)
	}
	if _, err := m.departments.Get(ctx, departmentID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load department: %w", err)
	}

	ex, err := m.repo.Upsert(ctx, departmentID, slot.DateOf(date), at, true)
	if err != nil {
		return nil, fmt.Errorf("block slot: %w", err)
	}

	m.logger.Info("slot blocked",
		zap.String("department_id", departmentID.String()),
		zap.String("date", ex.Date.Format(slot.DateLayout)),
		zap.Stringer("time", at),
	)
	return ex, nil
}

// Unblock restores a previously blocked slot. It fails NOT_FOUND when the slot
// was never blocked.
func (m *Manager) Unblock(ctx context.Context, departmentID uuid.UUID, date time.Time, at slot.TimeOfDay) (*SlotException, error) {
	if !at.Valid() {
		return nil, fmt.Errorf("time %s: %w", at, ErrInvalidTime)
	}
	ex, err := m.repo.SetBlocked(ctx, departmentID, slot.DateOf(date), at, false)
	if err != nil {
		if errors.Is(err, ErrExceptionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("unblock slot: %w", err)
	}

	m.logger.Info("slot unblocked",
		zap.String("department_id", departmentID.String()),
		zap.String("date", ex.Date.Format(slot.DateLayout)),
		zap.Stringer("time", at),
	)
	return ex, nil
}

func (m *Manager) Delete(ctx context.Context, id uuid.UUID) error {
	if err := m.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrExceptionNotFound) {
			return err
		}
		return fmt.Errorf("delete slot exception: %w", err)
	}
	m.logger.Info("slot exception deleted", zap.String("exception_id", id.String()))
	return nil
}

func (m *Manager) ListByDepartment(ctx context.Context, departmentID uuid.UUID, date time.Time) ([]SlotException, error) {
	list, err := m.repo.ListByDepartment(ctx, departmentID, slot.DateOf(date))
	if err != nil {
		return nil, fmt.Errorf("list slot exceptions: %w", err)
	}
	return list, nil
}

// BlockedTimes returns the set of blocked slot times of a department's day.
func (m *Manager) BlockedTimes(ctx context.Context, departmentID uuid.UUID, date time.Time) (map[slot.TimeOfDay]struct{}, error) {
	times, err := m.repo.BlockedTimes(ctx, departmentID, slot.DateOf(date))
	if err != nil {
		return nil, fmt.Errorf("load blocked slots: %w", err)
	}
	set := make(map[slot.TimeOfDay]struct{}, len(times))
	for _, t := range times {
		set[t] = struct{}{}
	}
	return set, nil
}
