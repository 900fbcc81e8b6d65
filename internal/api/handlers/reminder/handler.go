package reminder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/echojournal/reminderd/internal/api/respond"
	"github.com/echojournal/reminderd/internal/config"
	"github.com/echojournal/reminderd/internal/model"
	reminderrepo "github.com/echojournal/reminderd/internal/repository/reminder"
)

// reminderService defines the interface that the Handler depends on.
//
// It abstracts the business logic for creating, editing, deleting and
// manually triggering reminders, plus the scheduler status query.
type reminderService interface {
	CreateReminder(ctx context.Context, strategy retry.Strategy, rem model.Reminder) (uuid.UUID, error)
	GetReminder(ctx context.Context, id uuid.UUID) (model.Reminder, error)
	GetUserReminders(ctx context.Context, userID uuid.UUID) ([]model.Reminder, error)
	UpdateReminder(ctx context.Context, strategy retry.Strategy, id uuid.UUID, upd model.ReminderUpdate) (model.Reminder, error)
	DeleteReminder(ctx context.Context, id uuid.UUID) error
	TriggerNow(ctx context.Context, id uuid.UUID) error
	GetReminderStatus(ctx context.Context, strategy retry.Strategy, id uuid.UUID) (string, error)
	PendingCount() int
}

// Handler handles HTTP requests related to reminders.
type Handler struct {
	service   reminderService
	validator *validator.Validate
	cfg       *config.Config
}

// NewHandler creates a new Handler instance.
func NewHandler(s reminderService, v *validator.Validate, cfg *config.Config) *Handler {
	return &Handler{service: s, validator: v, cfg: cfg}
}

// PatternRequest is the recurrence pattern part of a create or update
// request.
type PatternRequest struct {
	Frequency  string `json:"frequency" validate:"required,oneof=daily weekly monthly yearly once custom"`
	DaysOfWeek []int  `json:"days_of_week" validate:"omitempty,dive,min=0,max=6"`
	Time       string `json:"time" validate:"omitempty,len=5"`
	Custom     string `json:"custom"`
}

func (p *PatternRequest) toModel() *model.Pattern {
	if p == nil {
		return nil
	}

	return &model.Pattern{
		Frequency:  p.Frequency,
		DaysOfWeek: p.DaysOfWeek,
		Time:       p.Time,
		Custom:     p.Custom,
	}
}

// CreateRequest represents the JSON body expected in a reminder creation request.
type CreateRequest struct {
	UserID       string                 `json:"user_id" validate:"required,uuid"`
	Title        string                 `json:"title" validate:"required"`
	Description  string                 `json:"description"`
	Category     string                 `json:"category" validate:"omitempty,oneof=work personal health family finance education general"`
	Priority     string                 `json:"priority" validate:"omitempty,oneof=low medium high"`
	TriggerTime  string                 `json:"trigger_time" validate:"required"`
	Pattern      *PatternRequest        `json:"pattern"`
	SoundEnabled bool                   `json:"sound_enabled"`
	CustomSound  string                 `json:"custom_sound"`
	SourceType   string                 `json:"source_type" validate:"omitempty,oneof=manual voice-analysis text-analysis calendar-import"`
	SourceEntry  string                 `json:"source_entry_id" validate:"omitempty,uuid"`
	Metadata     map[string]interface{} `json:"metadata"`
}

// UpdateRequest represents the JSON body of a partial reminder update.
// Absent fields are left unchanged.
type UpdateRequest struct {
	Title        *string         `json:"title" validate:"omitempty,min=1"`
	Description  *string         `json:"description"`
	Category     *string         `json:"category" validate:"omitempty,oneof=work personal health family finance education general"`
	Priority     *string         `json:"priority" validate:"omitempty,oneof=low medium high"`
	TriggerTime  *string         `json:"trigger_time"`
	Pattern      *PatternRequest `json:"pattern"`
	ClearPattern bool            `json:"clear_pattern"`
	IsActive     *bool           `json:"is_active"`
	SoundEnabled *bool           `json:"sound_enabled"`
	CustomSound  *string         `json:"custom_sound"`
}

// Create handles HTTP POST requests to create a new reminder.
//
// It validates the request body, parses the trigger time, creates the
// reminder through the service (which schedules it as a side effect)
// and returns the created reminder ID.
func (h *Handler) Create(c *ginext.Context) {
	var req CreateRequest

	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to decode request body")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("invalid request body"))
		return
	}

	if err := h.validator.Struct(req); err != nil {
		zlog.Logger.Warn().Err(err).Msg("failed to validate request body")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("validation error: %s", err.Error()))
		return
	}

	triggerTime, err := time.Parse(time.RFC3339, req.TriggerTime)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to parse trigger_time")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("invalid trigger_time format, expected RFC 3339"))
		return
	}

	userID, _ := uuid.Parse(req.UserID)

	rem := model.Reminder{
		UserID:       userID,
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		Priority:     req.Priority,
		TriggerTime:  triggerTime,
		Pattern:      req.Pattern.toModel(),
		IsActive:     true,
		SoundEnabled: req.SoundEnabled,
		CustomSound:  req.CustomSound,
		SourceType:   req.SourceType,
		Metadata:     req.Metadata,
	}

	if rem.Category == "" {
		rem.Category = model.CategoryGeneral
	}
	if rem.Priority == "" {
		rem.Priority = model.PriorityMedium
	}
	if rem.SourceType == "" {
		rem.SourceType = model.SourceManual
	}
	if req.SourceEntry != "" {
		entryID, _ := uuid.Parse(req.SourceEntry)
		rem.SourceEntryID = &entryID
	}

	id, err := h.service.CreateReminder(c.Request.Context(), h.cfg.Retry, rem)
	if err != nil {
		zlog.Logger.Error().Err(err).Str("title", rem.Title).Msg("failed to create reminder")
		respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
		return
	}

	respond.Created(c.Writer, id)
}

// Get handles HTTP GET requests for a single reminder.
func (h *Handler) Get(c *ginext.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	rem, err := h.service.GetReminder(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, reminderrepo.ErrReminderNotFound) {
			respond.Fail(c.Writer, http.StatusNotFound, fmt.Errorf("reminder not found"))
			return
		}

		zlog.Logger.Error().Err(err).Str("id", id.String()).Msg("failed to get reminder")
		respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
		return
	}

	respond.OK(c.Writer, rem)
}

// List handles HTTP GET requests for all of a user's reminders.
//
// The owner is selected with the user_id query parameter.
func (h *Handler) List(c *ginext.Context) {
	userIDStr := c.Query("user_id")
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		zlog.Logger.Warn().Str("user_id", userIDStr).Msg("invalid user_id")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("invalid user_id"))
		return
	}

	reminders, err := h.service.GetUserReminders(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, reminderrepo.ErrNoRemindersFound) {
			respond.OK(c.Writer, []model.Reminder{})
			return
		}

		zlog.Logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to list reminders")
		respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
		return
	}

	respond.OK(c.Writer, reminders)
}

// Update handles HTTP PUT requests applying a partial update.
//
// Changing trigger_time reschedules the pending timer, toggling
// is_active off cancels it and toggling it back on schedules again.
func (h *Handler) Update(c *ginext.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to decode request body")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("invalid request body"))
		return
	}

	if err := h.validator.Struct(req); err != nil {
		zlog.Logger.Warn().Err(err).Msg("failed to validate request body")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("validation error: %s", err.Error()))
		return
	}

	upd := model.ReminderUpdate{
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		Priority:     req.Priority,
		Pattern:      req.Pattern.toModel(),
		ClearPattern: req.ClearPattern,
		IsActive:     req.IsActive,
		SoundEnabled: req.SoundEnabled,
		CustomSound:  req.CustomSound,
	}

	if req.TriggerTime != nil {
		triggerTime, err := time.Parse(time.RFC3339, *req.TriggerTime)
		if err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to parse trigger_time")
			respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("invalid trigger_time format, expected RFC 3339"))
			return
		}
		upd.TriggerTime = &triggerTime
	}

	rem, err := h.service.UpdateReminder(c.Request.Context(), h.cfg.Retry, id, upd)
	if err != nil {
		if errors.Is(err, reminderrepo.ErrReminderNotFound) {
			respond.Fail(c.Writer, http.StatusNotFound, fmt.Errorf("reminder not found"))
			return
		}

		zlog.Logger.Error().Err(err).Str("id", id.String()).Msg("failed to update reminder")
		respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
		return
	}

	respond.OK(c.Writer, rem)
}

// Delete handles HTTP DELETE requests. Any pending timer is cancelled
// before the store delete.
func (h *Handler) Delete(c *ginext.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteReminder(c.Request.Context(), id); err != nil {
		if errors.Is(err, reminderrepo.ErrReminderNotFound) {
			respond.Fail(c.Writer, http.StatusNotFound, fmt.Errorf("reminder not found"))
			return
		}

		zlog.Logger.Error().Err(err).Str("id", id.String()).Msg("failed to delete reminder")
		respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
		return
	}

	respond.OK(c.Writer, "reminder deleted")
}

// TriggerNow handles HTTP POST requests that fire a reminder
// immediately, bypassing its schedule. Intended for testing and
// debugging.
func (h *Handler) TriggerNow(c *ginext.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	if err := h.service.TriggerNow(c.Request.Context(), id); err != nil {
		if errors.Is(err, reminderrepo.ErrReminderNotFound) {
			respond.Fail(c.Writer, http.StatusNotFound, fmt.Errorf("reminder not found"))
			return
		}

		zlog.Logger.Error().Err(err).Str("id", id.String()).Msg("failed to trigger reminder")
		respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
		return
	}

	respond.OK(c.Writer, "reminder triggered")
}

// GetStatus handles HTTP GET requests for a reminder's lifecycle state
// (active, paused or completed).
func (h *Handler) GetStatus(c *ginext.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	status, err := h.service.GetReminderStatus(c.Request.Context(), h.cfg.Retry, id)
	if err != nil {
		if errors.Is(err, reminderrepo.ErrReminderNotFound) {
			respond.Fail(c.Writer, http.StatusNotFound, fmt.Errorf("reminder not found"))
			return
		}

		zlog.Logger.Error().Err(err).Str("id", id.String()).Msg("failed to get reminder status")
		respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
		return
	}

	respond.OK(c.Writer, map[string]string{"status": status})
}

// Status reports the number of currently pending scheduled timers.
func (h *Handler) Status(c *ginext.Context) {
	respond.OK(c.Writer, map[string]int{"pending_timers": h.service.PendingCount()})
}

func (h *Handler) parseID(c *ginext.Context) (uuid.UUID, bool) {
	idStr := c.Param("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		zlog.Logger.Error().Err(err).Str("id", idStr).Msg("failed to parse id")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("invalid id"))
		return uuid.Nil, false
	}

	if id == uuid.Nil {
		zlog.Logger.Warn().Msg("missing id")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("missing id"))
		return uuid.Nil, false
	}

	return id, true
}
