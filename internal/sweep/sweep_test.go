package sweep

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/echojournal/reminderd/internal/model"
	reminderrepo "github.com/echojournal/reminderd/internal/repository/reminder"
)

type fakeDueLister struct {
	due []model.Reminder
	err error
}

func (f *fakeDueLister) GetDueReminders(_ context.Context, _ time.Time) ([]model.Reminder, error) {
	return f.due, f.err
}

type fakeHandler struct {
	mu    sync.Mutex
	fired []uuid.UUID
}

func (f *fakeHandler) HandleTrigger(_ context.Context, id uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fired = append(f.fired, id)
}

func (f *fakeHandler) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fired)
}

func TestSweep_FiresAllDueReminders(t *testing.T) {
	due := []model.Reminder{
		{ID: uuid.New(), IsActive: true},
		{ID: uuid.New(), IsActive: true},
		{ID: uuid.New(), IsActive: true},
	}

	h := &fakeHandler{}
	s := New(&fakeDueLister{due: due}, h, time.Hour)

	s.Sweep(context.Background())

	assert.Equal(t, 3, h.count())
	assert.Equal(t, []uuid.UUID{due[0].ID, due[1].ID, due[2].ID}, h.fired)
}

func TestSweep_EmptyStoreIsQuiet(t *testing.T) {
	h := &fakeHandler{}
	s := New(&fakeDueLister{err: reminderrepo.ErrNoRemindersFound}, h, time.Hour)

	s.Sweep(context.Background())

	assert.Equal(t, 0, h.count())
}

func TestSweep_ListErrorSkipsBatch(t *testing.T) {
	h := &fakeHandler{}
	s := New(&fakeDueLister{err: errors.New("db down")}, h, time.Hour)

	s.Sweep(context.Background())

	assert.Equal(t, 0, h.count())
}

func TestSweep_CancelledContextStops(t *testing.T) {
	due := []model.Reminder{{ID: uuid.New()}, {ID: uuid.New()}}

	h := &fakeHandler{}
	s := New(&fakeDueLister{due: due}, h, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s.Sweep(ctx)

	assert.Equal(t, 0, h.count())
}

func TestRun_TicksAndStops(t *testing.T) {
	due := []model.Reminder{{ID: uuid.New()}}

	h := &fakeHandler{}
	s := New(&fakeDueLister{due: due}, h, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)

	time.Sleep(70 * time.Millisecond)
	cancel()
	time.Sleep(30 * time.Millisecond)

	fired := h.count()
	assert.GreaterOrEqual(t, fired, 2)

	// No further firings after cancellation.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, fired, h.count())
}

func TestNew_DefaultInterval(t *testing.T) {
	s := New(&fakeDueLister{}, &fakeHandler{}, 0)
	assert.Equal(t, DefaultInterval, s.interval)
}
