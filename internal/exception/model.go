package exception

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-engine/internal/slot"
)

// SlotException is an administrator override on one (department, date, time).
// Unblocking keeps the row with Blocked=false; only Delete removes it.
type SlotException struct {
	ID           uuid.UUID
	DepartmentID uuid.UUID
	Date         time.Time
	Time         slot.TimeOfDay
	Blocked      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
