package department

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-engine/internal/slot"
)

type Hospital struct {
	ID        uuid.UUID
	Name      string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Schedule is a department's booking configuration together with the name
// and state of the hospital it belongs to.
type Schedule struct {
	ID             uuid.UUID
	HospitalID     uuid.UUID
	HospitalName   string
	HospitalActive bool
	Name           string
	Description    string
	OpenTime       slot.TimeOfDay
	CloseTime      slot.TimeOfDay
	SlotMinutes    int
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Bookable reports whether patients may book into this department.
func (s *Schedule) Bookable() bool {
	return s.Active && s.HospitalActive
}

// Slots generates the candidate slot start times of one day.
func (s *Schedule) Slots() ([]slot.TimeOfDay, error) {
	return slot.Generate(s.OpenTime, s.CloseTime, s.SlotMinutes)
}
