package rollover

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-appointment-engine/internal/apperr"
)

type recordingRoller struct {
	mu      sync.Mutex
	days    []time.Time
	n       int
	err     error
	block   chan struct{}
	started chan struct{}
}

func (r *recordingRoller) RollOverWaiting(ctx context.Context, day time.Time) (int, error) {
	if r.started != nil {
		close(r.started)
	}
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.days = append(r.days, day)
	return r.n, r.err
}

func (r *recordingRoller) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.days)
}

func TestRunDailyUsesLocalDate(t *testing.T) {
	roller := &recordingRoller{n: 3}
	seoul := time.FixedZone("KST", 9*3600)
	s := NewScheduler(roller, Config{Location: seoul}, nil)
	// 22:00 UTC on the 1st is 07:00 on the 2nd in Seoul.
	s.now = func() time.Time { return time.Date(2026, 3, 1, 22, 0, 0, 0, time.UTC) }

	n, err := s.RunDaily(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.Len(t, roller.days, 1)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), roller.days[0])
}

func TestRunDailyWrapsErrors(t *testing.T) {
	roller := &recordingRoller{err: errors.New("db down")}
	s := NewScheduler(roller, Config{Location: time.UTC}, nil)

	_, err := s.RunDaily(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestRunDailyRejectsOverlappingRuns(t *testing.T) {
	roller := &recordingRoller{block: make(chan struct{}), started: make(chan struct{})}
	s := NewScheduler(roller, Config{Location: time.UTC}, nil)

	done := make(chan error, 1)
	go func() {
		_, err := s.RunDaily(context.Background())
		done <- err
	}()
	<-roller.started

	_, err := s.RunDaily(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRunning)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	close(roller.block)
	require.NoError(t, <-done)
}

func TestRunDailyTimeout(t *testing.T) {
	roller := &recordingRoller{block: make(chan struct{})}
	s := NewScheduler(roller, Config{Location: time.UTC, Timeout: 20 * time.Millisecond}, nil)

	_, err := s.RunDaily(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStartRejectsInvalidSpec(t *testing.T) {
	s := NewScheduler(&recordingRoller{}, Config{DailySpec: "every morning"}, nil)
	assert.Error(t, s.Start(context.Background()))

	s = NewScheduler(&recordingRoller{}, Config{HourlySpec: "61 * * * *"}, nil)
	assert.Error(t, s.Start(context.Background()))
}

func TestSchedulerFiresJobs(t *testing.T) {
	roller := &recordingRoller{}
	s := NewScheduler(roller, Config{DailySpec: "@every 1s", HourlySpec: "@hourly", Location: time.UTC}, nil)

	require.NoError(t, s.Start(context.Background()))
	assert.Eventually(t, func() bool { return roller.calls() > 0 }, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}
