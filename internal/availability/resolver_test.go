package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-appointment-engine/internal/appointment"
	"github.com/hackgods/clinic-appointment-engine/internal/apperr"
	"github.com/hackgods/clinic-appointment-engine/internal/department"
	"github.com/hackgods/clinic-appointment-engine/internal/metrics"
	"github.com/hackgods/clinic-appointment-engine/internal/slot"
)

type stubDepartments struct {
	sched *department.Schedule
}

func (s stubDepartments) GetSchedule(_ context.Context, hospitalID uuid.UUID, name string) (*department.Schedule, error) {
	if s.sched == nil || s.sched.HospitalID != hospitalID || s.sched.Name != name {
		return nil, department.ErrDepartmentNotFound
	}
	if !s.sched.Bookable() {
		return nil, department.ErrInactive
	}
	return s.sched, nil
}

// stubOccupants filters by status the way the SQL query does.
type stubOccupants struct {
	all []appointment.Occupant
	err error
}

func (s stubOccupants) ListOccupants(_ context.Context, _, _ string, _ time.Time, statuses []appointment.Status) ([]appointment.Occupant, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []appointment.Occupant
	for _, o := range s.all {
		for _, st := range statuses {
			if o.Status == st {
				out = append(out, o)
				break
			}
		}
	}
	return out, nil
}

type stubExceptions map[slot.TimeOfDay]struct{}

func (s stubExceptions) BlockedTimes(context.Context, uuid.UUID, time.Time) (map[slot.TimeOfDay]struct{}, error) {
	return s, nil
}

var day = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func cardiology() *department.Schedule {
	return &department.Schedule{
		ID:             uuid.New(),
		HospitalID:     uuid.New(),
		HospitalName:   "General",
		HospitalActive: true,
		Name:           "Cardiology",
		OpenTime:       slot.At(10, 0),
		CloseTime:      slot.At(16, 30),
		SlotMinutes:    30,
		Active:         true,
	}
}

func occupant(name string, at slot.TimeOfDay, st appointment.Status) appointment.Occupant {
	return appointment.Occupant{
		AppointmentID: uuid.New(),
		PatientID:     uuid.New(),
		PatientName:   name,
		Time:          at,
		Status:        st,
	}
}

func TestResolveEmptyDay(t *testing.T) {
	sched := cardiology()
	r := NewResolver(stubDepartments{sched}, stubOccupants{}, stubExceptions{})

	d, err := r.Resolve(context.Background(), sched.HospitalID, "Cardiology", day)
	require.NoError(t, err)

	assert.Equal(t, 14, d.TotalSlots)
	assert.Equal(t, 14, d.AvailableCount)
	require.Len(t, d.Slots, 14)
	assert.Equal(t, slot.At(10, 0), d.Slots[0].Time)
	assert.Equal(t, slot.At(16, 30), d.Slots[13].Time)
	for _, s := range d.Slots {
		assert.Equal(t, Available, s.Verdict)
	}
}

func TestResolveBookedAndBlocked(t *testing.T) {
	sched := cardiology()
	r := NewResolver(stubDepartments{sched},
		stubOccupants{all: []appointment.Occupant{occupant("Ada", slot.At(14, 0), appointment.StatusWaiting)}},
		stubExceptions{slot.At(15, 0): {}},
	)

	d, err := r.Resolve(context.Background(), sched.HospitalID, "Cardiology", day)
	require.NoError(t, err)

	assert.Equal(t, 12, d.AvailableCount)
	assert.Equal(t, 1, d.BookedCount)
	assert.Equal(t, 1, d.BlockedCount)
	assert.Equal(t, d.TotalSlots, d.AvailableCount+d.BookedCount+d.BlockedCount)

	booked, ok := d.Lookup(slot.At(14, 0))
	require.True(t, ok)
	assert.Equal(t, Booked, booked.Verdict)
	assert.Equal(t, "Ada", booked.PatientName)
	require.NotNil(t, booked.AppointmentID)

	blocked, ok := d.Lookup(slot.At(15, 0))
	require.True(t, ok)
	assert.Equal(t, Blocked, blocked.Verdict)
	assert.Empty(t, blocked.PatientName)

	assert.Equal(t, booked.Message(), blocked.Message())
	assert.Equal(t, "already booked", booked.Message())
}

func TestResolveOccupantWinsOverException(t *testing.T) {
	sched := cardiology()
	r := NewResolver(stubDepartments{sched},
		stubOccupants{all: []appointment.Occupant{occupant("Ada", slot.At(11, 0), appointment.StatusCalled)}},
		stubExceptions{slot.At(11, 0): {}},
	)

	d, err := r.Resolve(context.Background(), sched.HospitalID, "Cardiology", day)
	require.NoError(t, err)

	st, _ := d.Lookup(slot.At(11, 0))
	assert.Equal(t, Booked, st.Verdict)
	assert.Equal(t, 0, d.BlockedCount)
}

func TestResolveFirstOccupantWins(t *testing.T) {
	sched := cardiology()
	r := NewResolver(stubDepartments{sched},
		stubOccupants{all: []appointment.Occupant{
			occupant("Ada", slot.At(11, 0), appointment.StatusWaiting),
			occupant("Bob", slot.At(11, 0), appointment.StatusArrived),
		}},
		stubExceptions{},
	)

	d, err := r.Resolve(context.Background(), sched.HospitalID, "Cardiology", day)
	require.NoError(t, err)

	st, _ := d.Lookup(slot.At(11, 0))
	assert.Equal(t, "Ada", st.PatientName)
	assert.Equal(t, 1, d.BookedCount)
}

func TestResolveOccupyingStatuses(t *testing.T) {
	sched := cardiology()
	occ := stubOccupants{all: []appointment.Occupant{
		occupant("Ada", slot.At(10, 0), appointment.StatusBooked),
		occupant("Bob", slot.At(10, 30), appointment.StatusCompleted),
		occupant("Cy", slot.At(11, 0), appointment.StatusCancelled),
		occupant("Di", slot.At(11, 30), appointment.StatusScheduled),
	}}

	r := NewResolver(stubDepartments{sched}, occ, stubExceptions{})
	d, err := r.Resolve(context.Background(), sched.HospitalID, "Cardiology", day)
	require.NoError(t, err)
	assert.Equal(t, 13, d.AvailableCount, "only SCHEDULED occupies by default")

	withBooked := append([]appointment.Status{appointment.StatusBooked}, appointment.OccupyingStatuses...)
	r = NewResolver(stubDepartments{sched}, occ, stubExceptions{}, WithOccupyingStatuses(withBooked...))
	d, err = r.Resolve(context.Background(), sched.HospitalID, "Cardiology", day)
	require.NoError(t, err)
	assert.Equal(t, 12, d.AvailableCount)
}

func TestResolveIsIdempotent(t *testing.T) {
	sched := cardiology()
	r := NewResolver(stubDepartments{sched},
		stubOccupants{all: []appointment.Occupant{occupant("Ada", slot.At(14, 0), appointment.StatusWaiting)}},
		stubExceptions{slot.At(15, 0): {}},
	)

	a, err := r.Resolve(context.Background(), sched.HospitalID, "Cardiology", day)
	require.NoError(t, err)
	b, err := r.Resolve(context.Background(), sched.HospitalID, "Cardiology", day.Add(13*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestResolveUnknownOrInactiveDepartment(t *testing.T) {
	sched := cardiology()
	reg := prometheus.NewRegistry()
	r := NewResolver(stubDepartments{sched}, stubOccupants{}, stubExceptions{}, WithMetrics(metrics.NewEngineMetrics(reg)))

	_, err := r.Resolve(context.Background(), sched.HospitalID, "Dermatology", day)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	sched.HospitalActive = false
	_, err = r.Resolve(context.Background(), sched.HospitalID, "Cardiology", day)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	count, err := testutil.GatherAndCount(reg, "clinic_availability_queries_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count, "both failures share the not_found series")
}

func TestResolvePropagatesStorageErrors(t *testing.T) {
	sched := cardiology()
	r := NewResolver(stubDepartments{sched}, stubOccupants{err: errors.New("connection reset")}, stubExceptions{})

	_, err := r.Resolve(context.Background(), sched.HospitalID, "Cardiology", day)
	require.Error(t, err)
	assert.Equal(t, "internal_error", apperr.Kind(err))
}

func TestIsAvailable(t *testing.T) {
	sched := cardiology()
	r := NewResolver(stubDepartments{sched},
		stubOccupants{all: []appointment.Occupant{occupant("Ada", slot.At(14, 0), appointment.StatusArrived)}},
		stubExceptions{slot.At(15, 0): {}},
	)
	ctx := context.Background()

	tests := []struct {
		at   slot.TimeOfDay
		want bool
	}{
		{slot.At(10, 0), true},
		{slot.At(16, 30), true},
		{slot.At(14, 0), false},
		{slot.At(15, 0), false},
		{slot.At(10, 15), false},
		{slot.At(17, 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.at.String(), func(t *testing.T) {
			ok, err := r.IsAvailable(ctx, sched.HospitalID, "Cardiology", day, tt.at)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestPublicHidesBooker(t *testing.T) {
	sched := cardiology()
	r := NewResolver(stubDepartments{sched},
		stubOccupants{all: []appointment.Occupant{occupant("Ada", slot.At(14, 0), appointment.StatusWaiting)}},
		stubExceptions{slot.At(15, 0): {}},
	)

	d, err := r.Resolve(context.Background(), sched.HospitalID, "Cardiology", day)
	require.NoError(t, err)

	pub := d.Public()
	assert.Equal(t, "2026-03-02", pub.Date)
	assert.Equal(t, 12, pub.AvailableCount)
	assert.Equal(t, 14, pub.TotalSlots)

	var booked, blocked PublicSlot
	for _, s := range pub.Slots {
		switch s.Time {
		case slot.At(14, 0):
			booked = s
		case slot.At(15, 0):
			blocked = s
		}
	}
	assert.Equal(t, PublicSlot{Time: slot.At(14, 0), Available: false, Message: "already booked"}, booked)
	assert.Equal(t, PublicSlot{Time: slot.At(15, 0), Available: false, Message: "already booked"}, blocked)
}
