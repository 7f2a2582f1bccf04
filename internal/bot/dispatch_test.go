package bot

import (
	"context"
	"testing"

	"consultbot/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(context.Context, Event, *models.BookingSession) error { return nil }

func TestDispatcher_FirstMatchWins(t *testing.T) {
	d := NewDispatcher()
	d.Register(
		Route{Name: "specific", Step: models.StepAwaitingDay, Kind: KindCallback, Match: payloadEquals("day_monday"), Handle: noop},
		Route{Name: "prefix", Step: models.StepAwaitingDay, Kind: KindCallback, Match: payloadPrefix("day_"), Handle: noop},
		Route{Name: "any", Step: AnyStep, Kind: KindCallback, Handle: noop},
	)

	tests := []struct {
		step models.Step
		data string
		want string
	}{
		{models.StepAwaitingDay, "day_monday", "specific"},
		{models.StepAwaitingDay, "day_friday", "prefix"},
		{models.StepAwaitingDay, "time_10_12", "any"},
		{models.StepIdle, "day_monday", "any"},
	}

	for _, tt := range tests {
		route, ok := d.Resolve(tt.step, Event{Kind: KindCallback, Data: tt.data})
		require.True(t, ok)
		assert.Equal(t, tt.want, route.Name, "step=%s data=%s", tt.step, tt.data)
	}
}

func TestDispatcher_NoMatch(t *testing.T) {
	d := NewDispatcher()
	d.Register(Route{Name: "name", Step: models.StepAwaitingName, Kind: KindText, Handle: noop})

	_, ok := d.Resolve(models.StepIdle, Event{Kind: KindText, Text: "hi"})
	assert.False(t, ok)

	_, ok = d.Resolve(models.StepAwaitingName, Event{Kind: KindContact})
	assert.False(t, ok)

	route, ok := d.Resolve(models.StepAwaitingName, Event{Kind: KindText, Text: "hi"})
	require.True(t, ok)
	assert.Equal(t, "name", route.Name)
}

func TestRegisteredRoutes_CommandsBeforeDialogue(t *testing.T) {
	env := setupTestBot(t)

	// Команда в шаге имени не должна становиться именем
	route, ok := env.bot.dispatcher.Resolve(models.StepAwaitingName, Event{Kind: KindCommand, Command: "start"})
	require.True(t, ok)
	assert.Equal(t, "start", route.Name)

	route, ok = env.bot.dispatcher.Resolve(models.StepAwaitingPhone, Event{Kind: KindCallback, Data: models.CallbackRequestAccess})
	require.True(t, ok)
	assert.Equal(t, "book_consultation", route.Name)

	route, ok = env.bot.dispatcher.Resolve(models.StepAwaitingDay, Event{Kind: KindCallback, Data: models.CallbackRequestJoin})
	require.True(t, ok)
	assert.Equal(t, "join_button", route.Name)

	route, ok = env.bot.dispatcher.Resolve(models.StepAwaitingName, Event{Kind: KindCommand, Command: "help"})
	require.True(t, ok)
	assert.Equal(t, "booking_name_slash", route.Name)

	_, ok = env.bot.dispatcher.Resolve(models.StepIdle, Event{Kind: KindCommand, Command: "help"})
	assert.False(t, ok)
}

func TestDispatch_SlashTextAtNameStepIsName(t *testing.T) {
	env := setupTestBot(t)
	env.setSession(t, &models.BookingSession{UserID: testUserID, Step: models.StepAwaitingName})

	env.process(commandUpdate(testUserID, "/ivan_petrov"))

	msgs := env.tg.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "/ivan_petrov")

	s := env.session(t, testUserID)
	require.NotNil(t, s)
	assert.Equal(t, models.StepAwaitingDay, s.Step)
	assert.Equal(t, "/ivan_petrov", s.Name)
}

func TestDispatch_KnownCommandAtNameStepIsNotName(t *testing.T) {
	env := setupTestBot(t)
	env.setSession(t, &models.BookingSession{UserID: testUserID, Step: models.StepAwaitingName})

	env.process(commandUpdate(testUserID, "/get_group_id"))

	s := env.session(t, testUserID)
	require.NotNil(t, s)
	assert.Equal(t, models.StepAwaitingName, s.Step)
	assert.Empty(t, s.Name)
}

func TestEventFromUpdate(t *testing.T) {
	t.Run("callback", func(t *testing.T) {
		ev, ok := eventFromUpdate(callbackUpdate(testUserID, "day_monday"))
		require.True(t, ok)
		assert.Equal(t, KindCallback, ev.Kind)
		assert.Equal(t, testUserID, ev.UserID)
		assert.Equal(t, testUserID, ev.ChatID)
		assert.Equal(t, "day_monday", ev.Data)
		assert.Equal(t, "cb-day_monday", ev.CallbackID)
	})

	t.Run("callback without message falls back to user chat", func(t *testing.T) {
		update := callbackUpdate(testUserID, "x")
		update.CallbackQuery.Message = nil
		ev, ok := eventFromUpdate(update)
		require.True(t, ok)
		assert.Equal(t, testUserID, ev.ChatID)
	})

	t.Run("command", func(t *testing.T) {
		ev, ok := eventFromUpdate(commandUpdate(testUserID, "/approve_555@consult_test_bot"))
		require.True(t, ok)
		assert.Equal(t, KindCommand, ev.Kind)
		assert.Equal(t, "approve_555", ev.Command)
	})

	t.Run("text", func(t *testing.T) {
		ev, ok := eventFromUpdate(textUpdate(testUserID, "Ivan"))
		require.True(t, ok)
		assert.Equal(t, KindText, ev.Kind)
		assert.Equal(t, "Ivan", ev.Text)
	})

	t.Run("contact wins over text", func(t *testing.T) {
		update := contactUpdate(testUserID, "+7000")
		update.Message.Text = "ignored"
		ev, ok := eventFromUpdate(update)
		require.True(t, ok)
		assert.Equal(t, KindContact, ev.Kind)
		assert.Equal(t, "+7000", ev.Contact.PhoneNumber)
	})

	t.Run("not routable", func(t *testing.T) {
		for _, u := range []tgbotapi.Update{
			{},
			{CallbackQuery: &tgbotapi.CallbackQuery{ID: "1"}},
			{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 1}, Text: "x"}},
			{Message: &tgbotapi.Message{From: testUser(1), Text: "x"}},
			{Message: &tgbotapi.Message{From: testUser(1), Chat: &tgbotapi.Chat{ID: 1}}},
		} {
			_, ok := eventFromUpdate(u)
			assert.False(t, ok)
		}
	})
}

func TestEventKindString(t *testing.T) {
	assert.Equal(t, "command", KindCommand.String())
	assert.Equal(t, "text", KindText.String())
	assert.Equal(t, "callback", KindCallback.String())
	assert.Equal(t, "contact", KindContact.String())
	assert.Equal(t, "unknown", EventKind(0).String())
}
