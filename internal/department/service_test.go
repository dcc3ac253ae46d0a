package department

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-appointment-engine/internal/apperr"
	"github.com/hackgods/clinic-appointment-engine/internal/slot"
)

type fakeRepo struct {
	hospitals   map[uuid.UUID]*Hospital
	departments map[uuid.UUID]*Schedule
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		hospitals:   map[uuid.UUID]*Hospital{},
		departments: map[uuid.UUID]*Schedule{},
	}
}

func (f *fakeRepo) GetHospital(_ context.Context, id uuid.UUID) (*Hospital, error) {
	h, ok := f.hospitals[id]
	if !ok {
		return nil, ErrHospitalNotFound
	}
	return h, nil
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*Schedule, error) {
	d, ok := f.departments[id]
	if !ok {
		return nil, ErrDepartmentNotFound
	}
	cp := *d
	return &cp, nil
}

func (f *fakeRepo) GetByHospitalAndName(_ context.Context, hospitalID uuid.UUID, name string) (*Schedule, error) {
	for _, d := range f.departments {
		if d.HospitalID == hospitalID && d.Name == name {
			cp := *d
			return &cp, nil
		}
	}
	return nil, ErrDepartmentNotFound
}

func (f *fakeRepo) ListByHospital(_ context.Context, hospitalID uuid.UUID) ([]Schedule, error) {
	var out []Schedule
	for _, d := range f.departments {
		if d.HospitalID == hospitalID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (f *fakeRepo) Create(_ context.Context, s Schedule) (*Schedule, error) {
	for _, d := range f.departments {
		if d.HospitalID == s.HospitalID && d.Name == s.Name {
			return nil, ErrDuplicateName
		}
	}
	s.ID = uuid.New()
	h := f.hospitals[s.HospitalID]
	s.HospitalName = h.Name
	s.HospitalActive = h.Active
	f.departments[s.ID] = &s
	cp := s
	return &cp, nil
}

func (f *fakeRepo) UpdateDetails(_ context.Context, id uuid.UUID, name, description string) (*Schedule, error) {
	d, ok := f.departments[id]
	if !ok {
		return nil, ErrDepartmentNotFound
	}
	d.Name = name
	d.Description = description
	cp := *d
	return &cp, nil
}

func (f *fakeRepo) SetActive(_ context.Context, id uuid.UUID, active bool) (*Schedule, error) {
	d, ok := f.departments[id]
	if !ok {
		return nil, ErrDepartmentNotFound
	}
	d.Active = active
	cp := *d
	return &cp, nil
}

func seedHospital(repo *fakeRepo, active bool) uuid.UUID {
	id := uuid.New()
	repo.hospitals[id] = &Hospital{ID: id, Name: "Seoul General", Active: active}
	return id
}

func TestCreateAndGetSchedule(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)
	hospitalID := seedHospital(repo, true)

	created, err := svc.Create(context.Background(), CreateRequest{
		HospitalID:  hospitalID,
		Name:        "Dermatology",
		OpenTime:    slot.At(10, 0),
		CloseTime:   slot.At(16, 30),
		SlotMinutes: 30,
	})
	require.NoError(t, err)
	assert.True(t, created.Active)

	sched, err := svc.GetSchedule(context.Background(), hospitalID, "Dermatology")
	require.NoError(t, err)
	assert.Equal(t, "Seoul General", sched.HospitalName)

	slots, err := sched.Slots()
	require.NoError(t, err)
	assert.Len(t, slots, 14)
}

func TestCreateRejectsInvalidWindow(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)
	hospitalID := seedHospital(repo, true)

	tests := []struct {
		name string
		req  CreateRequest
	}{
		{"zero duration", CreateRequest{HospitalID: hospitalID, Name: "A", OpenTime: slot.At(9, 0), CloseTime: slot.At(10, 0)}},
		{"reversed window", CreateRequest{HospitalID: hospitalID, Name: "B", OpenTime: slot.At(12, 0), CloseTime: slot.At(9, 0), SlotMinutes: 15}},
		{"empty window", CreateRequest{HospitalID: hospitalID, Name: "C", OpenTime: slot.At(9, 0), CloseTime: slot.At(9, 0), SlotMinutes: 15}},
		{"blank name", CreateRequest{HospitalID: hospitalID, Name: "  ", OpenTime: slot.At(9, 0), CloseTime: slot.At(10, 0), SlotMinutes: 15}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.req)
			assert.ErrorIs(t, err, apperr.ErrInvalidConfig)
		})
	}
	assert.Empty(t, repo.departments)
}

func TestCreateUnknownHospital(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)
	_, err := svc.Create(context.Background(), CreateRequest{
		HospitalID: uuid.New(), Name: "ENT", OpenTime: slot.At(9, 0), CloseTime: slot.At(10, 0), SlotMinutes: 10,
	})
	assert.ErrorIs(t, err, ErrHospitalNotFound)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestGetScheduleInactiveIsNotFound(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)
	hospitalID := seedHospital(repo, true)

	created, err := svc.Create(context.Background(), CreateRequest{
		HospitalID: hospitalID, Name: "Cardiology", OpenTime: slot.At(9, 0), CloseTime: slot.At(12, 0), SlotMinutes: 20,
	})
	require.NoError(t, err)

	_, err = svc.Deactivate(context.Background(), created.ID)
	require.NoError(t, err)

	_, err = svc.GetSchedule(context.Background(), hospitalID, "Cardiology")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	// Admin reads still see it.
	got, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	_, err = svc.Activate(context.Background(), created.ID)
	require.NoError(t, err)
	_, err = svc.GetSchedule(context.Background(), hospitalID, "Cardiology")
	assert.NoError(t, err)
}

func TestGetScheduleInactiveHospital(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)
	hospitalID := seedHospital(repo, false)
	_, err := svc.Create(context.Background(), CreateRequest{
		HospitalID: hospitalID, Name: "ENT", OpenTime: slot.At(9, 0), CloseTime: slot.At(12, 0), SlotMinutes: 20,
	})
	require.NoError(t, err)

	_, err = svc.GetSchedule(context.Background(), hospitalID, "ENT")
	assert.ErrorIs(t, err, ErrInactive)
}

func TestGetScheduleMissing(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)
	_, err := svc.GetSchedule(context.Background(), uuid.New(), "Nope")
	assert.ErrorIs(t, err, ErrDepartmentNotFound)
}

func TestRename(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)
	hospitalID := seedHospital(repo, true)
	created, err := svc.Create(context.Background(), CreateRequest{
		HospitalID: hospitalID, Name: "Derm", OpenTime: slot.At(9, 0), CloseTime: slot.At(12, 0), SlotMinutes: 20,
	})
	require.NoError(t, err)

	renamed, err := svc.Rename(context.Background(), created.ID, "Dermatology", "skin clinic")
	require.NoError(t, err)
	assert.Equal(t, "Dermatology", renamed.Name)
	assert.Equal(t, "skin clinic", renamed.Description)

	_, err = svc.Rename(context.Background(), uuid.New(), "X", "")
	assert.ErrorIs(t, err, ErrDepartmentNotFound)
}
