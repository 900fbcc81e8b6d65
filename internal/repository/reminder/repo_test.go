package reminder

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/dbpg"

	"github.com/echojournal/reminderd/internal/model"
)

func setupMockDB(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open mock db: %v", err)
	}

	wrappedDB := &dbpg.DB{Master: db}
	repo := NewRepository(wrappedDB)

	return repo, mock
}

func reminderRows(rems ...model.Reminder) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "user_id", "title", "description", "category", "priority",
		"trigger_time", "pattern", "is_active", "last_triggered", "trigger_count",
		"completed_at", "sound_enabled", "custom_sound", "source_type", "source_entry_id", "metadata",
	})

	for _, r := range rems {
		var pattern []byte
		if r.Pattern != nil {
			pattern, _ = json.Marshal(r.Pattern)
		}

		rows.AddRow(
			r.ID.String(), r.UserID.String(), r.Title, r.Description, r.Category, r.Priority,
			r.TriggerTime, pattern, r.IsActive, r.LastTriggered, r.TriggerCount,
			r.CompletedAt, r.SoundEnabled, r.CustomSound, r.SourceType, nil, nil,
		)
	}

	return rows
}

func TestCreateReminder(t *testing.T) {
	repo, mock := setupMockDB(t)

	reminderID := uuid.New()
	rem := model.Reminder{
		UserID:      uuid.New(),
		Title:       "Standup",
		Category:    model.CategoryWork,
		Priority:    model.PriorityMedium,
		TriggerTime: time.Now().Add(time.Hour),
		Pattern:     &model.Pattern{Frequency: model.FrequencyDaily},
		IsActive:    true,
		SourceType:  model.SourceManual,
	}

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO reminders")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(reminderID.String()))

	id, err := repo.CreateReminder(context.Background(), rem)
	assert.NoError(t, err)
	assert.Equal(t, reminderID, id)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetReminderByID(t *testing.T) {
	repo, mock := setupMockDB(t)

	rem := model.Reminder{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		Title:       "Take meds",
		Category:    model.CategoryHealth,
		Priority:    model.PriorityHigh,
		TriggerTime: time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC),
		Pattern:     &model.Pattern{Frequency: model.FrequencyDaily, Time: "09:00"},
		IsActive:    true,
	}

	mock.ExpectQuery(regexp.QuoteMeta("FROM reminders")).
		WithArgs(rem.ID).
		WillReturnRows(reminderRows(rem))

	got, err := repo.GetReminderByID(context.Background(), rem.ID)
	require.NoError(t, err)
	assert.Equal(t, rem.Title, got.Title)
	require.NotNil(t, got.Pattern)
	assert.Equal(t, model.FrequencyDaily, got.Pattern.Frequency)
	assert.Equal(t, "09:00", got.Pattern.Time)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetReminderByID_NotFound(t *testing.T) {
	repo, mock := setupMockDB(t)

	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta("FROM reminders")).
		WithArgs(id).
		WillReturnRows(reminderRows())

	_, err := repo.GetReminderByID(context.Background(), id)
	assert.ErrorIs(t, err, ErrReminderNotFound)
}

func TestGetDueReminders(t *testing.T) {
	repo, mock := setupMockDB(t)

	now := time.Now()
	due := model.Reminder{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		Title:       "Pay rent",
		TriggerTime: now.Add(-time.Minute),
		IsActive:    true,
	}

	mock.ExpectQuery(regexp.QuoteMeta("is_active = TRUE AND trigger_time <= $1")).
		WithArgs(now).
		WillReturnRows(reminderRows(due))

	got, err := repo.GetDueReminders(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, due.ID, got[0].ID)
	assert.Nil(t, got[0].Pattern)
}

func TestGetUpcomingReminders_Empty(t *testing.T) {
	repo, mock := setupMockDB(t)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("is_active = TRUE AND trigger_time > $1")).
		WithArgs(now).
		WillReturnRows(reminderRows())

	_, err := repo.GetUpcomingReminders(context.Background(), now)
	assert.ErrorIs(t, err, ErrNoRemindersFound)
}

func TestUpdateReminder_PersistsClearedCompletion(t *testing.T) {
	repo, mock := setupMockDB(t)

	// A re-activated one-shot arrives with CompletedAt already cleared;
	// the write must carry the nil marker back to the store.
	rem := model.Reminder{
		ID:          uuid.New(),
		Title:       "One-off call",
		Category:    model.CategoryPersonal,
		Priority:    model.PriorityMedium,
		TriggerTime: time.Now().Add(time.Hour),
		IsActive:    true,
	}

	mock.ExpectExec(regexp.QuoteMeta("completed_at = $10")).
		WithArgs(
			rem.Title, rem.Description, rem.Category, rem.Priority,
			rem.TriggerTime, []byte(nil), rem.IsActive,
			rem.SoundEnabled, rem.CustomSound, nil, rem.ID,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateReminder(context.Background(), rem)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateTriggerState(t *testing.T) {
	repo, mock := setupMockDB(t)

	now := time.Now()
	rem := model.Reminder{
		ID:            uuid.New(),
		TriggerTime:   now.AddDate(0, 0, 1),
		IsActive:      true,
		LastTriggered: &now,
		TriggerCount:  3,
	}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE reminders")).
		WithArgs(rem.TriggerTime, rem.IsActive, rem.LastTriggered, rem.TriggerCount, rem.CompletedAt, rem.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateTriggerState(context.Background(), rem)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateTriggerState_NotFound(t *testing.T) {
	repo, mock := setupMockDB(t)

	rem := model.Reminder{ID: uuid.New()}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE reminders")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateTriggerState(context.Background(), rem)
	assert.ErrorIs(t, err, ErrReminderNotFound)
}

func TestDeleteReminder(t *testing.T) {
	repo, mock := setupMockDB(t)

	id := uuid.New()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM reminders")).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.DeleteReminder(context.Background(), id)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
