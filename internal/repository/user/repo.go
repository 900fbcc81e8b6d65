package user

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/dbpg"

	"github.com/echojournal/reminderd/internal/model"
)

var ErrUserNotFound = errors.New("user not found")

// Repository provides read access to the user directory: delivery
// addresses, the push subscription and the notification preference flag.
type Repository struct {
	db *dbpg.DB
}

// NewRepository creates a new user repository.
func NewRepository(db *dbpg.DB) *Repository {
	return &Repository{db: db}
}

// GetUserByID retrieves a single user by its ID.
func (r *Repository) GetUserByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	query := `
		SELECT id, email, telegram_chat_id, channel, notifications_enabled, push_subscription
		FROM users
		WHERE id = $1;
    `

	var (
		u            model.User
		subscription []byte
	)

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&u.ID, &u.Email, &u.TelegramChatID, &u.Channel, &u.NotificationsEnabled, &subscription,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrUserNotFound
		}

		return model.User{}, fmt.Errorf("failed to get user: %w", err)
	}

	if len(subscription) > 0 {
		u.Subscription = &model.PushSubscription{}
		if err := json.Unmarshal(subscription, u.Subscription); err != nil {
			return model.User{}, fmt.Errorf("unmarshal push subscription: %w", err)
		}
	}

	return u, nil
}

// SavePushSubscription stores or replaces the user's push subscription.
func (r *Repository) SavePushSubscription(ctx context.Context, id uuid.UUID, sub model.PushSubscription) error {
	query := `
		UPDATE users
		SET push_subscription = $1
		WHERE id = $2;
    `

	body, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("marshal push subscription: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, body, id)
	if err != nil {
		return fmt.Errorf("failed to save push subscription: %w", err)
	}

	rows, _ := res.RowsAffected()

	if rows == 0 {
		return ErrUserNotFound
	}

	return nil
}
