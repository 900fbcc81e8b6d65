package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/echojournal/reminderd/internal/model"
	reminderrepo "github.com/echojournal/reminderd/internal/repository/reminder"
)

// Reminder lifecycle states exposed through the status cache.
const (
	StatusActive    = "active"
	StatusPaused    = "paused"
	StatusCompleted = "completed"
)

type reminderRepository interface {
	CreateReminder(ctx context.Context, rem model.Reminder) (uuid.UUID, error)
	GetReminderByID(ctx context.Context, id uuid.UUID) (model.Reminder, error)
	GetRemindersByUserID(ctx context.Context, userID uuid.UUID) ([]model.Reminder, error)
	GetUpcomingReminders(ctx context.Context, now time.Time) ([]model.Reminder, error)
	UpdateReminder(ctx context.Context, rem model.Reminder) error
	DeleteReminder(ctx context.Context, id uuid.UUID) error
}

type timerScheduler interface {
	Schedule(r model.Reminder)
	Reschedule(r model.Reminder)
	Cancel(id uuid.UUID)
	PendingCount() int
}

type triggerHandler interface {
	HandleTrigger(ctx context.Context, id uuid.UUID)
}

type cache interface {
	SetWithRetry(ctx context.Context, strategy retry.Strategy, key string, value interface{}) error
	GetWithRetry(ctx context.Context, strategy retry.Strategy, key string) (string, error)
}

// Service is the surface the CRUD layer talks to: persistence plus the
// scheduling side effects every mutation carries.
type Service struct {
	repo      reminderRepository
	scheduler timerScheduler
	trigger   triggerHandler
	cache     cache
	now       func() time.Time
}

// NewService creates a reminder service.
func NewService(repo reminderRepository, scheduler timerScheduler, trigger triggerHandler, cache cache) *Service {
	return &Service{
		repo:      repo,
		scheduler: scheduler,
		trigger:   trigger,
		cache:     cache,
		now:       time.Now,
	}
}

// CreateReminder persists a new reminder and schedules it when active.
func (s *Service) CreateReminder(ctx context.Context, strategy retry.Strategy, rem model.Reminder) (uuid.UUID, error) {
	id, err := s.repo.CreateReminder(ctx, rem)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create reminder: %w", err)
	}

	rem.ID = id
	s.cacheStatus(ctx, strategy, rem)

	if rem.IsActive {
		s.scheduler.Schedule(rem)
	}

	return id, nil
}

// GetReminder retrieves a single reminder.
func (s *Service) GetReminder(ctx context.Context, id uuid.UUID) (model.Reminder, error) {
	rem, err := s.repo.GetReminderByID(ctx, id)
	if err != nil {
		return model.Reminder{}, fmt.Errorf("get reminder: %w", err)
	}

	return rem, nil
}

// GetUserReminders retrieves all reminders belonging to a user.
func (s *Service) GetUserReminders(ctx context.Context, userID uuid.UUID) ([]model.Reminder, error) {
	reminders, err := s.repo.GetRemindersByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user reminders: %w", err)
	}

	return reminders, nil
}

// UpdateReminder applies a partial update and keeps the timer map in
// step: a deactivated reminder is cancelled, an active one is
// rescheduled for its (possibly new) trigger time.
func (s *Service) UpdateReminder(ctx context.Context, strategy retry.Strategy, id uuid.UUID, upd model.ReminderUpdate) (model.Reminder, error) {
	rem, err := s.repo.GetReminderByID(ctx, id)
	if err != nil {
		return model.Reminder{}, fmt.Errorf("get reminder: %w", err)
	}

	upd.Apply(&rem)

	if upd.IsActive != nil && *upd.IsActive {
		// Re-activation clears the terminal marker of a finished one-shot.
		rem.CompletedAt = nil
	}

	if err := s.repo.UpdateReminder(ctx, rem); err != nil {
		return model.Reminder{}, fmt.Errorf("update reminder: %w", err)
	}

	s.cacheStatus(ctx, strategy, rem)

	if rem.IsActive {
		s.scheduler.Reschedule(rem)
	} else {
		s.scheduler.Cancel(rem.ID)
	}

	return rem, nil
}

// DeleteReminder cancels any pending timer and removes the reminder.
func (s *Service) DeleteReminder(ctx context.Context, id uuid.UUID) error {
	s.scheduler.Cancel(id)

	if err := s.repo.DeleteReminder(ctx, id); err != nil {
		return fmt.Errorf("delete reminder: %w", err)
	}

	return nil
}

// TriggerNow bypasses timing and runs a full firing for the reminder
// immediately. Used for testing and debugging.
func (s *Service) TriggerNow(ctx context.Context, id uuid.UUID) error {
	// Surface a not-found to the caller; the handler itself aborts
	// silently on missing reminders.
	if _, err := s.repo.GetReminderByID(ctx, id); err != nil {
		return fmt.Errorf("get reminder: %w", err)
	}

	s.trigger.HandleTrigger(ctx, id)

	return nil
}

// GetReminderStatus returns the reminder's lifecycle state, trying the
// cache first and falling back to the store on a miss.
func (s *Service) GetReminderStatus(ctx context.Context, strategy retry.Strategy, id uuid.UUID) (string, error) {
	status, err := s.cache.GetWithRetry(ctx, strategy, id.String())
	if err != nil && !errors.Is(err, redis.Nil) {
		zlog.Logger.Error().Err(err).Str("id", id.String()).Msg("failed to get reminder status from cache")
	}

	if err != nil {
		rem, err := s.repo.GetReminderByID(ctx, id)
		if err != nil {
			return "", fmt.Errorf("get reminder: %w", err)
		}

		status = statusOf(rem)
		s.cacheStatus(ctx, strategy, rem)
	}

	return status, nil
}

// PendingCount reports the number of in-memory timers currently pending.
func (s *Service) PendingCount() int {
	return s.scheduler.PendingCount()
}

// Bootstrap seeds the timer map from the store on process start: every
// active, future-dated reminder gets a timer. Reminders already past due
// at boot are intentionally left to the sweep, so a restart does not
// burst a backlog of overdue notifications. Returns the number
// scheduled.
func (s *Service) Bootstrap(ctx context.Context) (int, error) {
	upcoming, err := s.repo.GetUpcomingReminders(ctx, s.now())
	if err != nil {
		if errors.Is(err, reminderrepo.ErrNoRemindersFound) {
			return 0, nil
		}

		return 0, fmt.Errorf("get upcoming reminders: %w", err)
	}

	for _, rem := range upcoming {
		s.scheduler.Schedule(rem)
	}

	return len(upcoming), nil
}

// cacheStatus caches the reminder's lifecycle state; a cache failure is
// logged and ignored.
func (s *Service) cacheStatus(ctx context.Context, strategy retry.Strategy, rem model.Reminder) {
	if err := s.cache.SetWithRetry(ctx, strategy, rem.ID.String(), statusOf(rem)); err != nil {
		zlog.Logger.Error().Err(err).Str("id", rem.ID.String()).Msg("failed to cache reminder status")
	}
}

func statusOf(rem model.Reminder) string {
	switch {
	case rem.CompletedAt != nil:
		return StatusCompleted
	case rem.IsActive:
		return StatusActive
	default:
		return StatusPaused
	}
}
