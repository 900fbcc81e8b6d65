package notify

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/echojournal/reminderd/internal/model"
)

type fakePush struct {
	sent []model.PushSubscription
	err  error
}

func (f *fakePush) Send(sub model.PushSubscription, _ interface{}) error {
	f.sent = append(f.sent, sub)
	return f.err
}

type fakeText struct {
	to   []string
	text []string
	err  error
}

func (f *fakeText) Send(to, text string) error {
	f.to = append(f.to, to)
	f.text = append(f.text, text)
	return f.err
}

type fakeEmail struct {
	to  []string
	err error
}

func (f *fakeEmail) Send(to, _, _ string) error {
	f.to = append(f.to, to)
	return f.err
}

func TestDispatch_Push(t *testing.T) {
	push := &fakePush{}
	d := NewDispatcher(push, nil, nil)

	user := model.User{
		ID:                   uuid.New(),
		Channel:              model.ChannelPush,
		NotificationsEnabled: true,
		Subscription:         &model.PushSubscription{Endpoint: "https://push.example/abc"},
	}

	err := d.Dispatch(user, Payload{Title: "Standup"})
	assert.NoError(t, err)
	assert.Len(t, push.sent, 1)
	assert.Equal(t, "https://push.example/abc", push.sent[0].Endpoint)
}

func TestDispatch_DefaultsToPush(t *testing.T) {
	push := &fakePush{}
	d := NewDispatcher(push, nil, nil)

	user := model.User{
		ID:                   uuid.New(),
		NotificationsEnabled: true,
		Subscription:         &model.PushSubscription{Endpoint: "https://push.example/abc"},
	}

	assert.NoError(t, d.Dispatch(user, Payload{Title: "Standup"}))
	assert.Len(t, push.sent, 1)
}

func TestDispatch_DisabledUserIsNoop(t *testing.T) {
	push := &fakePush{}
	d := NewDispatcher(push, nil, nil)

	user := model.User{
		ID:           uuid.New(),
		Channel:      model.ChannelPush,
		Subscription: &model.PushSubscription{Endpoint: "https://push.example/abc"},
	}

	assert.NoError(t, d.Dispatch(user, Payload{Title: "Standup"}))
	assert.Empty(t, push.sent)
}

func TestDispatch_UnconfiguredChannelDegradesToNoop(t *testing.T) {
	d := NewDispatcher(nil, nil, nil)

	user := model.User{
		ID:                   uuid.New(),
		Channel:              model.ChannelPush,
		NotificationsEnabled: true,
	}

	assert.NoError(t, d.Dispatch(user, Payload{Title: "Standup"}))
}

func TestDispatch_MissingSubscriptionFails(t *testing.T) {
	push := &fakePush{}
	d := NewDispatcher(push, nil, nil)

	user := model.User{
		ID:                   uuid.New(),
		Channel:              model.ChannelPush,
		NotificationsEnabled: true,
	}

	err := d.Dispatch(user, Payload{Title: "Standup"})
	assert.Error(t, err)
	assert.Empty(t, push.sent)
}

func TestDispatch_TelegramRendersText(t *testing.T) {
	tg := &fakeText{}
	d := NewDispatcher(nil, tg, nil)

	user := model.User{
		ID:                   uuid.New(),
		Channel:              model.ChannelTelegram,
		TelegramChatID:       "42",
		NotificationsEnabled: true,
	}

	err := d.Dispatch(user, Payload{Title: "Standup", Body: "Daily sync in 5 min"})
	assert.NoError(t, err)
	assert.Equal(t, []string{"42"}, tg.to)
	assert.Equal(t, "Standup\n\nDaily sync in 5 min", tg.text[0])
}

func TestDispatch_EmailChannel(t *testing.T) {
	em := &fakeEmail{}
	d := NewDispatcher(nil, nil, em)

	user := model.User{
		ID:                   uuid.New(),
		Channel:              model.ChannelEmail,
		Email:                "user@example.com",
		NotificationsEnabled: true,
	}

	assert.NoError(t, d.Dispatch(user, Payload{Title: "Standup"}))
	assert.Equal(t, []string{"user@example.com"}, em.to)
}

func TestDispatch_DeliveryErrorPropagates(t *testing.T) {
	push := &fakePush{err: errors.New("subscription expired")}
	d := NewDispatcher(push, nil, nil)

	user := model.User{
		ID:                   uuid.New(),
		Channel:              model.ChannelPush,
		NotificationsEnabled: true,
		Subscription:         &model.PushSubscription{Endpoint: "https://push.example/abc"},
	}

	assert.Error(t, d.Dispatch(user, Payload{Title: "Standup"}))
}

func TestDispatch_NoneChannel(t *testing.T) {
	push := &fakePush{}
	d := NewDispatcher(push, nil, nil)

	user := model.User{
		ID:                   uuid.New(),
		Channel:              model.ChannelNone,
		NotificationsEnabled: true,
	}

	assert.NoError(t, d.Dispatch(user, Payload{Title: "Standup"}))
	assert.Empty(t, push.sent)
}

func TestPayload_Text(t *testing.T) {
	assert.Equal(t, "Standup", Payload{Title: "Standup"}.Text())
	assert.Equal(t, "A\n\nB", Payload{Title: "A", Body: "B"}.Text())
}
