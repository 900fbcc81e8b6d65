package user

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"

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

func TestGetUserByID(t *testing.T) {
	repo, mock := setupMockDB(t)

	id := uuid.New()
	sub := model.PushSubscription{
		Endpoint:  "https://push.example/sub/abc",
		P256dhKey: "p256dh-key",
		AuthKey:   "auth-key",
	}
	subJSON, _ := json.Marshal(sub)

	rows := sqlmock.NewRows([]string{
		"id", "email", "telegram_chat_id", "channel", "notifications_enabled", "push_subscription",
	}).AddRow(id.String(), "user@example.com", "", model.ChannelPush, true, subJSON)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users")).
		WithArgs(id).
		WillReturnRows(rows)

	got, err := repo.GetUserByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", got.Email)
	require.NotNil(t, got.Subscription)
	assert.Equal(t, sub.Endpoint, got.Subscription.Endpoint)
}

func TestGetUserByID_NotFound(t *testing.T) {
	repo, mock := setupMockDB(t)

	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta("FROM users")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "email", "telegram_chat_id", "channel", "notifications_enabled", "push_subscription",
		}))

	_, err := repo.GetUserByID(context.Background(), id)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSavePushSubscription(t *testing.T) {
	repo, mock := setupMockDB(t)

	id := uuid.New()
	sub := model.PushSubscription{
		Endpoint:  "https://push.example/sub/abc",
		P256dhKey: "p256dh-key",
		AuthKey:   "auth-key",
	}
	subJSON, _ := json.Marshal(sub)

	mock.ExpectExec(regexp.QuoteMeta("SET push_subscription = $1")).
		WithArgs(subJSON, id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SavePushSubscription(context.Background(), id, sub)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSavePushSubscription_UserNotFound(t *testing.T) {
	repo, mock := setupMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SavePushSubscription(context.Background(), uuid.New(), model.PushSubscription{})
	assert.ErrorIs(t, err, ErrUserNotFound)
}
