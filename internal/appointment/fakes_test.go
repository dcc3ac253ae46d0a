package appointment

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/hackgods/clinic-appointment-engine/internal/department"
	"github.com/hackgods/clinic-appointment-engine/internal/notify"
	redisclient "github.com/hackgods/clinic-appointment-engine/internal/redis"
	"github.com/hackgods/clinic-appointment-engine/internal/slot"
)

// memRepo mirrors the postgres partial unique indexes so the service can be
// exercised under concurrency without a database.
type memRepo struct {
	mu           sync.Mutex
	patients     map[uuid.UUID]Patient
	appointments map[uuid.UUID]Appointment
	events       []EventLog
	failIDs      map[uuid.UUID]bool
}

func newMemRepo() *memRepo {
	return &memRepo{
		patients:     map[uuid.UUID]Patient{},
		appointments: map[uuid.UUID]Appointment{},
		failIDs:      map[uuid.UUID]bool{},
	}
}

func (r *memRepo) addPatient(name string) uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := uuid.New()
	r.patients[id] = Patient{ID: id, Name: name}
	return id
}

func (r *memRepo) put(a Appointment) Appointment {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	r.appointments[a.ID] = a
	return a
}

func (r *memRepo) get(id uuid.UUID) Appointment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.appointments[id]
}

func (r *memRepo) eventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, ev := range r.events {
		out = append(out, ev.EventType)
	}
	return out
}

// conflict reports which index a would violate; caller holds mu.
func (r *memRepo) conflict(a Appointment) error {
	if a.Status.Terminal() {
		return nil
	}
	for _, other := range r.appointments {
		if other.ID == a.ID || other.Status.Terminal() {
			continue
		}
		if other.PatientID == a.PatientID && other.Date.Equal(a.Date) {
			return ErrAlreadyBooked
		}
		if other.SameSlot(a.HospitalName, a.DepartmentName, a.Date, a.Time) {
			return ErrSlotUnavailable
		}
	}
	return nil
}

func (r *memRepo) GetPatientByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return &p, nil
}

func (r *memRepo) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (r *memRepo) FindActiveForPatientOnDate(_ context.Context, patientID uuid.UUID, date time.Time) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.appointments {
		if a.PatientID == patientID && a.Date.Equal(date) && !a.Status.Terminal() {
			return &a, nil
		}
	}
	return nil, ErrAppointmentNotFound
}

func (r *memRepo) CreateAppointment(_ context.Context, a Appointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if err := r.conflict(a); err != nil {
		return nil, err
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	r.appointments[a.ID] = a
	return &a, nil
}

func (r *memRepo) SetStatus(_ context.Context, id uuid.UUID, to Status) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	if err := r.conflict(a); err != nil {
		return nil, err
	}
	r.appointments[id] = a
	return &a, nil
}

func (r *memRepo) TransitionStatus(_ context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failIDs[id] {
		return nil, context.DeadlineExceeded
	}
	a, ok := r.appointments[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	r.appointments[id] = a
	return &a, nil
}

func (r *memRepo) MarkCalled(_ context.Context, id uuid.UUID, from Status, room string) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = StatusCalled
	a.RoomNumber = room
	r.appointments[id] = a
	return &a, nil
}

func (r *memRepo) UpdateSchedule(_ context.Context, id uuid.UUID, c ScheduleChange) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[id]
	if !ok || a.Status.Terminal() {
		return nil, ErrAppointmentNotFound
	}
	a.HospitalName = c.HospitalName
	a.DepartmentName = c.DepartmentName
	a.Date = c.Date
	a.Time = c.Time
	if err := r.conflict(a); err != nil {
		return nil, err
	}
	r.appointments[id] = a
	return &a, nil
}

func (r *memRepo) DeleteAppointment(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.appointments[id]; !ok {
		return ErrAppointmentNotFound
	}
	delete(r.appointments, id)
	return nil
}

func hasStatus(statuses []Status, s Status) bool {
	for _, v := range statuses {
		if v == s {
			return true
		}
	}
	return false
}

func sortByTime(list []Appointment) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].Date.Equal(list[j].Date) {
			return list[i].Date.Before(list[j].Date)
		}
		return list[i].Time < list[j].Time
	})
}

func (r *memRepo) ListByDate(_ context.Context, date time.Time, statuses []Status) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Appointment
	for _, a := range r.appointments {
		if !a.Date.Equal(date) {
			continue
		}
		if len(statuses) > 0 && !hasStatus(statuses, a.Status) {
			continue
		}
		out = append(out, a)
	}
	sortByTime(out)
	return out, nil
}

func (r *memRepo) ListByPatient(_ context.Context, patientID uuid.UUID, date *time.Time) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Appointment
	for _, a := range r.appointments {
		if a.PatientID != patientID {
			continue
		}
		if date != nil && !a.Date.Equal(*date) {
			continue
		}
		out = append(out, a)
	}
	sortByTime(out)
	return out, nil
}

func (r *memRepo) ListOccupants(_ context.Context, hospital, dept string, date time.Time, statuses []Status) ([]Occupant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Occupant
	for _, a := range r.appointments {
		if a.HospitalName != hospital || a.DepartmentName != dept || !a.Date.Equal(date) || !hasStatus(statuses, a.Status) {
			continue
		}
		out = append(out, Occupant{
			AppointmentID: a.ID,
			PatientID:     a.PatientID,
			PatientName:   r.patients[a.PatientID].Name,
			Time:          a.Time,
			Status:        a.Status,
		})
	}
	return out, nil
}

func (r *memRepo) InsertEvent(_ context.Context, ev EventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

type memDepartments struct {
	schedules map[string]*department.Schedule
}

func (d *memDepartments) GetSchedule(_ context.Context, hospitalID uuid.UUID, name string) (*department.Schedule, error) {
	s, ok := d.schedules[hospitalID.String()+"/"+name]
	if !ok {
		return nil, department.ErrDepartmentNotFound
	}
	if !s.Bookable() {
		return nil, department.ErrInactive
	}
	return s, nil
}

type stubSlots struct {
	mu      sync.Mutex
	blocked map[slot.TimeOfDay]bool
	calls   int
}

func (s *stubSlots) IsAvailable(_ context.Context, _ uuid.UUID, _ string, _ time.Time, at slot.TimeOfDay) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return !s.blocked[at], nil
}

type fakeNotifier struct {
	mu            sync.Mutex
	confirmations []notify.Confirmation
	calls         []string
	callErr       error
	callDelay     time.Duration
}

func (n *fakeNotifier) SendConfirmation(_ context.Context, _ uuid.UUID, c notify.Confirmation) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmations = append(n.confirmations, c)
}

func (n *fakeNotifier) SendCall(ctx context.Context, _ uuid.UUID, room string) error {
	if n.callDelay > 0 {
		select {
		case <-time.After(n.callDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.callErr != nil {
		return n.callErr
	}
	n.calls = append(n.calls, room)
	return nil
}

func (n *fakeNotifier) callCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

type fixture struct {
	svc      *Service
	repo     *memRepo
	slots    *stubSlots
	notifier *fakeNotifier
	redis    *miniredis.Miniredis

	hospitalID uuid.UUID
	sched      *department.Schedule
	today      time.Time
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	hospitalID := uuid.New()
	sched := &department.Schedule{
		ID:             uuid.New(),
		HospitalID:     hospitalID,
		HospitalName:   "General",
		HospitalActive: true,
		Name:           "Cardiology",
		OpenTime:       slot.At(10, 0),
		CloseTime:      slot.At(16, 30),
		SlotMinutes:    30,
		Active:         true,
	}
	depts := &memDepartments{schedules: map[string]*department.Schedule{
		hospitalID.String() + "/Cardiology": sched,
	}}

	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.NotifyTimeout == 0 {
		cfg.NotifyTimeout = 200 * time.Millisecond
	}

	f := &fixture{
		repo:       newMemRepo(),
		slots:      &stubSlots{blocked: map[slot.TimeOfDay]bool{}},
		notifier:   &fakeNotifier{},
		redis:      mr,
		hospitalID: hospitalID,
		sched:      sched,
		today:      time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(Dependencies{
		Repo:        f.repo,
		Departments: depts,
		Slots:       f.slots,
		Locker:      redisclient.NewRedisLocker(client, 5*time.Second),
		Notifier:    f.notifier,
	}, cfg)
	f.svc.now = func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) }
	return f
}

func (f *fixture) request(patientID uuid.UUID, at slot.TimeOfDay) CreateRequest {
	return CreateRequest{
		PatientID:      patientID,
		HospitalID:     f.hospitalID,
		DepartmentName: "Cardiology",
		DoctorName:     "Dr. Kim",
		Date:           f.today,
		Time:           at,
		RoomNumber:     "101",
	}
}

func (f *fixture) seed(patientID uuid.UUID, at slot.TimeOfDay, status Status) Appointment {
	return f.repo.put(Appointment{
		PatientID:      patientID,
		HospitalName:   "General",
		DepartmentName: "Cardiology",
		RoomNumber:     "101",
		Date:           f.today,
		Time:           at,
		Status:         status,
	})
}
