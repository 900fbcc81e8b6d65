package model

import (
	"time"

	"github.com/google/uuid"
)

// Reminder categories.
const (
	CategoryWork      = "work"
	CategoryPersonal  = "personal"
	CategoryHealth    = "health"
	CategoryFamily    = "family"
	CategoryFinance   = "finance"
	CategoryEducation = "education"
	CategoryGeneral   = "general"
)

// Reminder priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Recurrence frequencies.
const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
	FrequencyYearly  = "yearly"
	FrequencyOnce    = "once"
	FrequencyCustom  = "custom"
)

// Reminder provenance.
const (
	SourceManual         = "manual"
	SourceVoiceAnalysis  = "voice-analysis"
	SourceTextAnalysis   = "text-analysis"
	SourceCalendarImport = "calendar-import"
)

// Reminder represents a scheduled reminder entity in the system.
type Reminder struct {
	ID            uuid.UUID              `json:"id"`             // unique identifier for the reminder
	UserID        uuid.UUID              `json:"user_id"`        // owner of the reminder
	Title         string                 `json:"title"`          // short reminder text, required
	Description   string                 `json:"description"`    // optional longer text
	Category      string                 `json:"category"`       // e.g. "work", "health", "general"
	Priority      string                 `json:"priority"`       // "low", "medium" or "high"
	TriggerTime   time.Time              `json:"trigger_time"`   // next pending fire instant
	Pattern       *Pattern               `json:"pattern"`        // recurrence pattern, nil for one-shot
	IsActive      bool                   `json:"is_active"`      // false means do not schedule or fire
	LastTriggered *time.Time             `json:"last_triggered"` // last fire instant, nil if never fired
	TriggerCount  int                    `json:"trigger_count"`  // number of times the reminder has fired
	CompletedAt   *time.Time             `json:"completed_at"`   // set when a one-shot reminder finishes
	SoundEnabled  bool                   `json:"sound_enabled"`  // whether delivery should play a sound
	CustomSound   string                 `json:"custom_sound"`   // optional sound identifier
	SourceType    string                 `json:"source_type"`    // "manual", "voice-analysis", etc.
	SourceEntryID *uuid.UUID             `json:"source_entry_id"`
	Metadata      map[string]interface{} `json:"metadata"` // originating analysis payload, confidence, flags
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

// Pattern describes how a reminder recurs after each firing.
type Pattern struct {
	Frequency  string `json:"frequency"`             // "daily", "weekly", "monthly", "yearly", "once" or "custom"
	DaysOfWeek []int  `json:"days_of_week,omitempty"` // 0=Sunday..6=Saturday, weekly only
	Time       string `json:"time,omitempty"`        // optional "HH:MM" clock override
	Custom     string `json:"custom,omitempty"`      // RFC 5545 RRULE string for "custom"
}

// IsOneShot reports whether the reminder is terminal after its first firing.
func (r *Reminder) IsOneShot() bool {
	return r.Pattern == nil || r.Pattern.Frequency == "" || r.Pattern.Frequency == FrequencyOnce
}

// ReminderUpdate holds the partial fields of an update request.
// Nil fields are left unchanged.
type ReminderUpdate struct {
	Title        *string
	Description  *string
	Category     *string
	Priority     *string
	TriggerTime  *time.Time
	Pattern      *Pattern
	ClearPattern bool
	IsActive     *bool
	SoundEnabled *bool
	CustomSound  *string
}

// Apply merges the non-nil update fields into the reminder.
func (u ReminderUpdate) Apply(r *Reminder) {
	if u.Title != nil {
		r.Title = *u.Title
	}
	if u.Description != nil {
		r.Description = *u.Description
	}
	if u.Category != nil {
		r.Category = *u.Category
	}
	if u.Priority != nil {
		r.Priority = *u.Priority
	}
	if u.TriggerTime != nil {
		r.TriggerTime = *u.TriggerTime
	}
	if u.ClearPattern {
		r.Pattern = nil
	} else if u.Pattern != nil {
		r.Pattern = u.Pattern
	}
	if u.IsActive != nil {
		r.IsActive = *u.IsActive
	}
	if u.SoundEnabled != nil {
		r.SoundEnabled = *u.SoundEnabled
	}
	if u.CustomSound != nil {
		r.CustomSound = *u.CustomSound
	}
}
