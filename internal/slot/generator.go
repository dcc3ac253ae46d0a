// Package slot turns a department's operating window into bookable slot start times.
package slot

import (
	"fmt"

	"github.com/hackgods/clinic-appointment-engine/internal/apperr"
)

var (
	ErrInvalidDuration = fmt.Errorf("slot duration must be positive: %w", apperr.ErrInvalidConfig)
	ErrInvalidWindow   = fmt.Errorf("opening time must be before closing time: %w", apperr.ErrInvalidConfig)
)

// Generate returns the ascending slot start times for a window.
//
// The end of the window is inclusive: a slot starting exactly at end is
// emitted, so 10:00-16:30 at 30 minutes yields 14 slots. A trailing partial
// step that would overshoot end is dropped.
func Generate(start, end TimeOfDay, durationMinutes int) ([]TimeOfDay, error) {
	if durationMinutes <= 0 {
		return nil, ErrInvalidDuration
	}
	if err := ValidateWindow(start, end); err != nil {
		return nil, err
	}

	slots := make([]TimeOfDay, 0, int(end-start)/durationMinutes+1)
	for t := start; t <= end; t = t.Add(durationMinutes) {
		slots = append(slots, t)
	}
	return slots, nil
}

// ValidateWindow requires a schedule to open before it closes.
func ValidateWindow(start, end TimeOfDay) error {
	if !start.Valid() || !end.Valid() {
		return fmt.Errorf("window %s-%s outside a single day: %w", start, end, apperr.ErrInvalidConfig)
	}
	if start >= end {
		return ErrInvalidWindow
	}
	return nil
}
