// Package trigger implements the unit of work executed when a
// reminder's timer fires: reload, deliver, advance, persist, reschedule.
// Both the in-process scheduler and the fallback sweep run firings
// through this handler, so recurrence semantics cannot diverge.
package trigger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"

	"github.com/echojournal/reminderd/internal/model"
	"github.com/echojournal/reminderd/internal/notify"
	"github.com/echojournal/reminderd/internal/recurrence"
	reminderrepo "github.com/echojournal/reminderd/internal/repository/reminder"
)

type reminderRepository interface {
	GetReminderByID(ctx context.Context, id uuid.UUID) (model.Reminder, error)
	UpdateTriggerState(ctx context.Context, rem model.Reminder) error
}

type userRepository interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (model.User, error)
}

type dispatcher interface {
	Dispatch(user model.User, p notify.Payload) error
}

type timerScheduler interface {
	Schedule(r model.Reminder)
}

// Handler fires one reminder to completion.
type Handler struct {
	reminders  reminderRepository
	users      userRepository
	dispatcher dispatcher
	scheduler  timerScheduler
	now        func() time.Time
}

// NewHandler creates a trigger handler.
func NewHandler(reminders reminderRepository, users userRepository, d dispatcher, s timerScheduler) *Handler {
	return &Handler{
		reminders:  reminders,
		users:      users,
		dispatcher: d,
		scheduler:  s,
		now:        time.Now,
	}
}

// SetNow overrides the clock source. Used by tests.
func (h *Handler) SetNow(now func() time.Time) {
	h.now = now
}

// HandleTrigger runs a single firing for the reminder id.
//
// The reminder is re-loaded from the store rather than taken from the
// scheduling-time snapshot, so edits made between scheduling and firing
// are honored. A reminder that vanished or was deactivated in the
// meantime aborts silently. Delivery failure is logged and does not stop
// state advancement. All mutations are persisted in a single write; if
// that write fails the reminder stays un-rescheduled until the fallback
// sweep picks it up.
func (h *Handler) HandleTrigger(ctx context.Context, id uuid.UUID) {
	rem, err := h.reminders.GetReminderByID(ctx, id)
	if err != nil {
		if errors.Is(err, reminderrepo.ErrReminderNotFound) {
			zlog.Logger.Debug().Str("id", id.String()).Msg("reminder gone before firing, skipping")
			return
		}

		zlog.Logger.Error().Err(err).Str("id", id.String()).Msg("failed to load reminder for firing")
		return
	}

	if !rem.IsActive {
		zlog.Logger.Debug().Str("id", id.String()).Msg("reminder deactivated before firing, skipping")
		return
	}

	h.deliver(ctx, rem)

	now := h.now()
	fired := rem.TriggerTime

	rem.LastTriggered = &now
	rem.TriggerCount++

	if rem.IsOneShot() {
		rem.IsActive = false
		rem.CompletedAt = &now
	} else {
		// Advance from the scheduled instant, not from now, so a late
		// firing does not accumulate drift.
		rem.TriggerTime = recurrence.Next(fired, rem.Pattern)
	}

	if err := h.reminders.UpdateTriggerState(ctx, rem); err != nil {
		zlog.Logger.Error().Err(err).Str("id", id.String()).
			Msg("failed to persist trigger state, reminder left for the sweep")
		return
	}

	if rem.IsActive {
		h.scheduler.Schedule(rem)
	}

	zlog.Logger.Info().Str("id", id.String()).Int("trigger_count", rem.TriggerCount).
		Bool("recurring", rem.IsActive).Msg("reminder fired")
}

// deliver looks up the owner and attempts a best-effort notification.
func (h *Handler) deliver(ctx context.Context, rem model.Reminder) {
	user, err := h.users.GetUserByID(ctx, rem.UserID)
	if err != nil {
		zlog.Logger.Warn().Err(err).Str("id", rem.ID.String()).
			Str("user_id", rem.UserID.String()).Msg("failed to load reminder owner, skipping delivery")
		return
	}

	payload := notify.Payload{
		Title:    rem.Title,
		Body:     rem.Description,
		Tag:      rem.ID.String(),
		Priority: rem.Priority,
		Data: map[string]interface{}{
			"reminder_id": rem.ID.String(),
			"category":    rem.Category,
		},
	}
	if rem.SoundEnabled {
		payload.Sound = rem.CustomSound
	}

	if err := h.dispatcher.Dispatch(user, payload); err != nil {
		zlog.Logger.Warn().Err(err).Str("id", rem.ID.String()).Msg("notification delivery failed")
	}
}
