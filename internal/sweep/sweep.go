// Package sweep runs the periodic fallback pass over due reminders.
// The in-process timer map is not persistent and a failed persist leaves
// a reminder un-rescheduled; the sweep re-scans the store and fires
// anything that slipped through, using the same trigger handler as the
// scheduler so the two paths cannot diverge.
package sweep

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"

	"github.com/echojournal/reminderd/internal/model"
	reminderrepo "github.com/echojournal/reminderd/internal/repository/reminder"
)

// DefaultInterval is the sweep period when none is configured.
const DefaultInterval = time.Hour

type dueLister interface {
	GetDueReminders(ctx context.Context, now time.Time) ([]model.Reminder, error)
}

type triggerHandler interface {
	HandleTrigger(ctx context.Context, id uuid.UUID)
}

// Sweeper periodically fires all due reminders.
type Sweeper struct {
	reminders dueLister
	handler   triggerHandler
	interval  time.Duration
	now       func() time.Time
}

// New creates a Sweeper. interval <= 0 selects DefaultInterval.
func New(reminders dueLister, handler triggerHandler, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultInterval
	}

	return &Sweeper{
		reminders: reminders,
		handler:   handler,
		interval:  interval,
		now:       time.Now,
	}
}

// SetNow overrides the clock source. Used by tests.
func (s *Sweeper) SetNow(now func() time.Time) {
	s.now = now
}

// Run executes a sweep every interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	zlog.Logger.Info().Dur("interval", s.interval).Msg("sweep started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zlog.Logger.Info().Msg("sweep stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep fires every active reminder whose trigger time has passed.
// Each firing is independent; one reminder's failure never affects the
// rest of the batch.
func (s *Sweeper) Sweep(ctx context.Context) {
	now := s.now()

	due, err := s.reminders.GetDueReminders(ctx, now)
	if err != nil {
		if errors.Is(err, reminderrepo.ErrNoRemindersFound) {
			return
		}

		zlog.Logger.Error().Err(err).Msg("failed to list due reminders")
		return
	}

	zlog.Logger.Info().Int("count", len(due)).Msg("sweeping due reminders")

	for _, rem := range due {
		select {
		case <-ctx.Done():
			return
		default:
		}

		s.handler.HandleTrigger(ctx, rem.ID)
	}
}
