package exception

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-appointment-engine/internal/apperr"
	"github.com/hackgods/clinic-appointment-engine/internal/department"
	"github.com/hackgods/clinic-appointment-engine/internal/slot"
)

type slotKey struct {
	dept uuid.UUID
	date time.Time
	at   slot.TimeOfDay
}

type fakeRepo struct {
	rows map[slotKey]*SlotException
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rows: map[slotKey]*SlotException{}}
}

func (f *fakeRepo) Upsert(_ context.Context, dept uuid.UUID, date time.Time, at slot.TimeOfDay, blocked bool) (*SlotException, error) {
	k := slotKey{dept, date, at}
	if row, ok := f.rows[k]; ok {
		row.Blocked = blocked
		cp := *row
		return &cp, nil
	}
	row := &SlotException{ID: uuid.New(), DepartmentID: dept, Date: date, Time: at, Blocked: blocked}
	f.rows[k] = row
	cp := *row
	return &cp, nil
}

func (f *fakeRepo) SetBlocked(_ context.Context, dept uuid.UUID, date time.Time, at slot.TimeOfDay, blocked bool) (*SlotException, error) {
	row, ok := f.rows[slotKey{dept, date, at}]
	if !ok {
		return nil, ErrExceptionNotFound
	}
	row.Blocked = blocked
	cp := *row
	return &cp, nil
}

func (f *fakeRepo) Delete(_ context.Context, id uuid.UUID) error {
	for k, row := range f.rows {
		if row.ID == id {
			delete(f.rows, k)
			return nil
		}
	}
	return ErrExceptionNotFound
}

func (f *fakeRepo) ListByDepartment(_ context.Context, dept uuid.UUID, date time.Time) ([]SlotException, error) {
	var out []SlotException
	for k, row := range f.rows {
		if k.dept == dept && k.date.Equal(date) {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (f *fakeRepo) BlockedTimes(_ context.Context, dept uuid.UUID, date time.Time) ([]slot.TimeOfDay, error) {
	var out []slot.TimeOfDay
	for k, row := range f.rows {
		if k.dept == dept && k.date.Equal(date) && row.Blocked {
			out = append(out, k.at)
		}
	}
	return out, nil
}

type fakeDepartments map[uuid.UUID]*department.Schedule

func (f fakeDepartments) Get(_ context.Context, id uuid.UUID) (*department.Schedule, error) {
	d, ok := f[id]
	if !ok {
		return nil, department.ErrDepartmentNotFound
	}
	return d, nil
}

func setup() (*Manager, *fakeRepo, uuid.UUID) {
	deptID := uuid.New()
	repo := newFakeRepo()
	depts := fakeDepartments{deptID: {ID: deptID, Name: "Dermatology", Active: true}}
	return NewManager(repo, depts, nil), repo, deptID
}

var day = time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)

func TestBlockThenReblockKeepsSingleRow(t *testing.T) {
	m, repo, deptID := setup()
	ctx := context.Background()

	first, err := m.Block(ctx, deptID, day, slot.At(15, 0))
	require.NoError(t, err)
	assert.True(t, first.Blocked)

	_, err = m.Unblock(ctx, deptID, day, slot.At(15, 0))
	require.NoError(t, err)

	again, err := m.Block(ctx, deptID, day, slot.At(15, 0))
	require.NoError(t, err)

	assert.Equal(t, first.ID, again.ID, "re-blocking must update the existing row")
	assert.Len(t, repo.rows, 1)
}

func TestBlockedTimesOnlyIncludesBlockedRows(t *testing.T) {
	m, _, deptID := setup()
	ctx := context.Background()

	_, err := m.Block(ctx, deptID, day, slot.At(15, 0))
	require.NoError(t, err)
	_, err = m.Block(ctx, deptID, day, slot.At(15, 30))
	require.NoError(t, err)
	_, err = m.Unblock(ctx, deptID, day, slot.At(15, 30))
	require.NoError(t, err)
	_, err = m.Block(ctx, deptID, day.AddDate(0, 0, 1), slot.At(10, 0))
	require.NoError(t, err)

	set, err := m.BlockedTimes(ctx, deptID, day)
	require.NoError(t, err)
	assert.Equal(t, map[slot.TimeOfDay]struct{}{slot.At(15, 0): {}}, set)

	list, err := m.ListByDepartment(ctx, deptID, day)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestBlockUnknownDepartment(t *testing.T) {
	m, repo, _ := setup()
	_, err := m.Block(context.Background(), uuid.New(), day, slot.At(9, 0))
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Empty(t, repo.rows)
}

func TestBlockRejectsInvalidTime(t *testing.T) {
	m, _, deptID := setup()
	_, err := m.Block(context.Background(), deptID, day, slot.TimeOfDay(24*60))
	assert.ErrorIs(t, err, ErrInvalidTime)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	assert.Equal(t, 400, apperr.HTTPStatus(err))

	_, err = m.Unblock(context.Background(), deptID, day, slot.TimeOfDay(-30))
	assert.ErrorIs(t, err, ErrInvalidTime)
}

func TestUnblockNeverBlocked(t *testing.T) {
	m, _, deptID := setup()
	_, err := m.Unblock(context.Background(), deptID, day, slot.At(9, 0))
	assert.ErrorIs(t, err, ErrExceptionNotFound)
}

func TestDelete(t *testing.T) {
	m, repo, deptID := setup()
	ex, err := m.Block(context.Background(), deptID, day, slot.At(9, 0))
	require.NoError(t, err)

	require.NoError(t, m.Delete(context.Background(), ex.ID))
	assert.Empty(t, repo.rows)

	assert.ErrorIs(t, m.Delete(context.Background(), ex.ID), apperr.ErrNotFound)
}

func TestBlockNormalisesDate(t *testing.T) {
	m, repo, deptID := setup()
	local := time.Date(2026, 10, 15, 18, 45, 0, 0, time.FixedZone("KST", 9*3600))
	_, err := m.Block(context.Background(), deptID, local, slot.At(9, 0))
	require.NoError(t, err)

	_, ok := repo.rows[slotKey{deptID, day, slot.At(9, 0)}]
	assert.True(t, ok)
}
