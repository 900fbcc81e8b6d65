package reminder

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/dbpg"

	"github.com/echojournal/reminderd/internal/model"
)

var (
	ErrReminderNotFound = errors.New("reminder not found")
	ErrNoRemindersFound = errors.New("no reminders found")
)

// Repository provides methods to interact with the reminders table.
type Repository struct {
	db *dbpg.DB
}

// NewRepository creates a new reminder repository.
func NewRepository(db *dbpg.DB) *Repository {
	return &Repository{db: db}
}

const reminderColumns = `
	id, user_id, title, description, category, priority,
	trigger_time, pattern, is_active, last_triggered, trigger_count,
	completed_at, sound_enabled, custom_sound, source_type, source_entry_id, metadata
`

// CreateReminder inserts a new reminder into the database and returns its ID.
func (r *Repository) CreateReminder(ctx context.Context, rem model.Reminder) (uuid.UUID, error) {
	query := `
		INSERT INTO reminders (
		    user_id, title, description, category, priority,
		    trigger_time, pattern, is_active, sound_enabled, custom_sound,
		    source_type, source_entry_id, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id;
    `

	pattern, err := marshalPattern(rem.Pattern)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal pattern: %w", err)
	}

	metadata, err := marshalMetadata(rem.Metadata)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal metadata: %w", err)
	}

	err = r.db.QueryRowContext(
		ctx, query,
		rem.UserID, rem.Title, rem.Description, rem.Category, rem.Priority,
		rem.TriggerTime, pattern, rem.IsActive, rem.SoundEnabled, rem.CustomSound,
		rem.SourceType, rem.SourceEntryID, metadata,
	).Scan(&rem.ID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create reminder: %w", err)
	}

	return rem.ID, nil
}

// GetReminderByID retrieves a single reminder by its ID.
func (r *Repository) GetReminderByID(ctx context.Context, id uuid.UUID) (model.Reminder, error) {
	query := `
		SELECT ` + reminderColumns + `
		FROM reminders
		WHERE id = $1;
    `

	rem, err := scanReminder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Reminder{}, ErrReminderNotFound
		}

		return model.Reminder{}, fmt.Errorf("failed to get reminder: %w", err)
	}

	return rem, nil
}

// GetRemindersByUserID retrieves all reminders belonging to a user,
// soonest trigger time first.
func (r *Repository) GetRemindersByUserID(ctx context.Context, userID uuid.UUID) ([]model.Reminder, error) {
	query := `
		SELECT ` + reminderColumns + `
		FROM reminders
		WHERE user_id = $1
		ORDER BY trigger_time ASC;
    `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get reminders: %w", err)
	}
	defer rows.Close()

	return collectReminders(rows)
}

// GetDueReminders retrieves active reminders whose trigger time is at or
// before now. Used by the fallback sweep.
func (r *Repository) GetDueReminders(ctx context.Context, now time.Time) ([]model.Reminder, error) {
	query := `
		SELECT ` + reminderColumns + `
		FROM reminders
		WHERE is_active = TRUE AND trigger_time <= $1
		ORDER BY trigger_time ASC;
    `

	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get due reminders: %w", err)
	}
	defer rows.Close()

	return collectReminders(rows)
}

// GetUpcomingReminders retrieves active reminders whose trigger time is
// strictly in the future. Used by the bootstrap loader.
func (r *Repository) GetUpcomingReminders(ctx context.Context, now time.Time) ([]model.Reminder, error) {
	query := `
		SELECT ` + reminderColumns + `
		FROM reminders
		WHERE is_active = TRUE AND trigger_time > $1
		ORDER BY trigger_time ASC;
    `

	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get upcoming reminders: %w", err)
	}
	defer rows.Close()

	return collectReminders(rows)
}

// UpdateReminder persists the full editable state of a reminder.
func (r *Repository) UpdateReminder(ctx context.Context, rem model.Reminder) error {
	query := `
		UPDATE reminders
		SET title = $1, description = $2, category = $3, priority = $4,
		    trigger_time = $5, pattern = $6, is_active = $7,
		    sound_enabled = $8, custom_sound = $9, completed_at = $10,
		    updated_at = NOW()
		WHERE id = $11;
    `

	pattern, err := marshalPattern(rem.Pattern)
	if err != nil {
		return fmt.Errorf("marshal pattern: %w", err)
	}

	res, err := r.db.ExecContext(
		ctx, query,
		rem.Title, rem.Description, rem.Category, rem.Priority,
		rem.TriggerTime, pattern, rem.IsActive,
		rem.SoundEnabled, rem.CustomSound, rem.CompletedAt, rem.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update reminder: %w", err)
	}

	rows, _ := res.RowsAffected()

	if rows == 0 {
		return ErrReminderNotFound
	}

	return nil
}

// UpdateTriggerState persists the mutations of a single firing in one
// write: last trigger, count, advanced trigger time and lifecycle flags.
func (r *Repository) UpdateTriggerState(ctx context.Context, rem model.Reminder) error {
	query := `
		UPDATE reminders
		SET trigger_time = $1, is_active = $2, last_triggered = $3,
		    trigger_count = $4, completed_at = $5, updated_at = NOW()
		WHERE id = $6;
    `

	res, err := r.db.ExecContext(
		ctx, query,
		rem.TriggerTime, rem.IsActive, rem.LastTriggered,
		rem.TriggerCount, rem.CompletedAt, rem.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update trigger state: %w", err)
	}

	rows, _ := res.RowsAffected()

	if rows == 0 {
		return ErrReminderNotFound
	}

	return nil
}

// DeleteReminder removes a reminder by its ID.
func (r *Repository) DeleteReminder(ctx context.Context, id uuid.UUID) error {
	query := `
		DELETE FROM reminders
		WHERE id = $1;
    `

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete reminder: %w", err)
	}

	rows, _ := res.RowsAffected()

	if rows == 0 {
		return ErrReminderNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReminder(row rowScanner) (model.Reminder, error) {
	var (
		rem      model.Reminder
		pattern  []byte
		metadata []byte
	)

	err := row.Scan(
		&rem.ID, &rem.UserID, &rem.Title, &rem.Description, &rem.Category, &rem.Priority,
		&rem.TriggerTime, &pattern, &rem.IsActive, &rem.LastTriggered, &rem.TriggerCount,
		&rem.CompletedAt, &rem.SoundEnabled, &rem.CustomSound, &rem.SourceType,
		&rem.SourceEntryID, &metadata,
	)
	if err != nil {
		return model.Reminder{}, err
	}

	if len(pattern) > 0 {
		rem.Pattern = &model.Pattern{}
		if err := json.Unmarshal(pattern, rem.Pattern); err != nil {
			return model.Reminder{}, fmt.Errorf("unmarshal pattern: %w", err)
		}
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &rem.Metadata); err != nil {
			return model.Reminder{}, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}

	return rem, nil
}

func collectReminders(rows *sql.Rows) ([]model.Reminder, error) {
	var reminders []model.Reminder

	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}

		reminders = append(reminders, rem)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(reminders) == 0 {
		return nil, ErrNoRemindersFound
	}

	return reminders, nil
}

func marshalPattern(p *model.Pattern) ([]byte, error) {
	if p == nil {
		return nil, nil
	}

	return json.Marshal(p)
}

func marshalMetadata(m map[string]interface{}) ([]byte, error) {
	if m == nil {
		return nil, nil
	}

	return json.Marshal(m)
}
