// Package scheduler owns the in-memory one-shot timer map that drives
// reminder firing. State is process-local: running several instances of
// the service without external coordination will deliver duplicates.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"

	"github.com/echojournal/reminderd/internal/model"
)

// DefaultImmediateDelay is the small fixed delay applied when a reminder
// is scheduled with a trigger time that is already past, so the trigger
// handler never runs synchronously inside the scheduling call.
const DefaultImmediateDelay = 100 * time.Millisecond

// TriggerHandler is invoked when a reminder's timer fires.
type TriggerHandler interface {
	HandleTrigger(ctx context.Context, id uuid.UUID)
}

// pending is one armed timer together with the generation it was
// created under. Stop on a timer whose callback is already in flight
// returns false without preventing the run, so the generation is what
// tells a late fire apart from the timer currently owning the slot.
type pending struct {
	timer *time.Timer
	gen   uint64
}

// Scheduler maintains at most one pending timer per reminder id.
type Scheduler struct {
	mu     sync.Mutex
	timers map[uuid.UUID]pending
	gen    uint64

	handler        TriggerHandler
	now            func() time.Time
	immediateDelay time.Duration
}

// New creates a Scheduler. immediateDelay <= 0 selects DefaultImmediateDelay.
func New(immediateDelay time.Duration) *Scheduler {
	if immediateDelay <= 0 {
		immediateDelay = DefaultImmediateDelay
	}

	return &Scheduler{
		timers:         make(map[uuid.UUID]pending),
		now:            time.Now,
		immediateDelay: immediateDelay,
	}
}

// SetHandler wires the trigger handler. The handler reschedules recurring
// reminders through the scheduler, so the two are connected after both
// are constructed.
func (s *Scheduler) SetHandler(h TriggerHandler) {
	s.handler = h
}

// SetNow overrides the clock source. Used by tests.
func (s *Scheduler) SetNow(now func() time.Time) {
	s.now = now
}

// Schedule registers a one-shot timer firing at the reminder's trigger
// time. An existing timer for the same id is cancelled and replaced, so
// re-scheduling on edit can never leave two timers pending. A zero
// trigger time is logged and skipped.
func (s *Scheduler) Schedule(r model.Reminder) {
	if r.TriggerTime.IsZero() {
		zlog.Logger.Warn().Str("id", r.ID.String()).Msg("reminder has no trigger time, skipping schedule")
		return
	}

	delay := r.TriggerTime.Sub(s.now())
	if delay <= 0 {
		// Already due: fire almost immediately, bypassing the pending map.
		zlog.Logger.Info().Str("id", r.ID.String()).Time("trigger_time", r.TriggerTime).
			Msg("trigger time already passed, firing immediately")
		id := r.ID
		time.AfterFunc(s.immediateDelay, func() { s.handler.HandleTrigger(context.Background(), id) })
		return
	}

	id := r.ID

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.timers[id]; ok {
		old.timer.Stop()
	}

	s.gen++
	gen := s.gen
	s.timers[id] = pending{
		timer: time.AfterFunc(delay, func() { s.fire(id, gen) }),
		gen:   gen,
	}

	zlog.Logger.Info().Str("id", id.String()).Time("trigger_time", r.TriggerTime).
		Dur("delay", delay).Int("pending", len(s.timers)).Msg("reminder scheduled")
}

// fire removes the timer entry and runs the trigger handler. Removal
// happens first so the handler's own reschedule of a recurring reminder
// is never clobbered afterwards. Only the entry of the firing's own
// generation is removed: a fire whose timer was replaced while its
// callback was already in flight must not evict the replacement.
func (s *Scheduler) fire(id uuid.UUID, gen uint64) {
	s.mu.Lock()
	if cur, ok := s.timers[id]; ok && cur.gen == gen {
		delete(s.timers, id)
	}
	s.mu.Unlock()

	s.handler.HandleTrigger(context.Background(), id)
}

// Cancel stops and removes any pending timer for the id. Calling it for
// an id with no timer is a no-op. A fire that is already in flight is
// not interrupted; cancellation only prevents future scheduled fires.
func (s *Scheduler) Cancel(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[id]; ok {
		t.timer.Stop()
		delete(s.timers, id)
		zlog.Logger.Info().Str("id", id.String()).Msg("reminder schedule cancelled")
	}
}

// Reschedule replaces the reminder's pending timer with one for its
// current trigger time. Replacement happens under a single lock
// acquisition inside Schedule, so there is no window with two timers.
func (s *Scheduler) Reschedule(r model.Reminder) {
	s.Schedule(r)
}

// PendingCount reports the number of currently pending timers.
func (s *Scheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.timers)
}
