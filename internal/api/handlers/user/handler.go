package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/echojournal/reminderd/internal/api/respond"
	"github.com/echojournal/reminderd/internal/model"
	userrepo "github.com/echojournal/reminderd/internal/repository/user"
)

type subscriptionStore interface {
	SavePushSubscription(ctx context.Context, id uuid.UUID, sub model.PushSubscription) error
}

// Handler handles HTTP requests related to users.
type Handler struct {
	store     subscriptionStore
	validator *validator.Validate
}

// NewHandler creates a new Handler instance.
func NewHandler(store subscriptionStore, v *validator.Validate) *Handler {
	return &Handler{store: store, validator: v}
}

// SubscribeRequest represents the JSON body of a push subscription
// registration, as produced by PushManager.subscribe in the browser.
type SubscribeRequest struct {
	Endpoint  string `json:"endpoint" validate:"required,url"`
	P256dhKey string `json:"p256dh_key" validate:"required"`
	AuthKey   string `json:"auth_key" validate:"required"`
}

// SaveSubscription handles HTTP PUT requests storing or replacing a
// user's web push subscription.
func (h *Handler) SaveSubscription(c *ginext.Context) {
	idStr := c.Param("id")
	id, err := uuid.Parse(idStr)
	if err != nil || id == uuid.Nil {
		zlog.Logger.Warn().Str("id", idStr).Msg("invalid user id")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("invalid id"))
		return
	}

	var req SubscribeRequest
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

	sub := model.PushSubscription{
		Endpoint:  req.Endpoint,
		P256dhKey: req.P256dhKey,
		AuthKey:   req.AuthKey,
	}

	if err := h.store.SavePushSubscription(c.Request.Context(), id, sub); err != nil {
		if errors.Is(err, userrepo.ErrUserNotFound) {
			respond.Fail(c.Writer, http.StatusNotFound, fmt.Errorf("user not found"))
			return
		}

		zlog.Logger.Error().Err(err).Str("id", id.String()).Msg("failed to save push subscription")
		respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
		return
	}

	respond.OK(c.Writer, "subscription saved")
}
