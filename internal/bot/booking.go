package bot

import (
	"context"
	"fmt"

	"consultbot/internal/events"
	"consultbot/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// handleBookingStart начинает (или перезапускает) запись с шага имени.
func (b *Bot) handleBookingStart(ctx context.Context, ev Event, _ *models.BookingSession) error {
	if _, err := b.tgService.SendMarkdown(ctx, ev.ChatID, msgAskName); err != nil {
		return fmt.Errorf("send name prompt: %w", err)
	}

	session := &models.BookingSession{UserID: ev.UserID, Step: models.StepAwaitingName}
	if err := b.stateService.SaveSession(ctx, session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	if b.metrics != nil {
		b.metrics.BookingsStarted.Inc()
	}
	b.publish(ctx, events.EventBookingStarted, events.BookingEventPayload{UserID: ev.UserID})
	return nil
}

// handleName принимает текст как есть, без нормализации.
func (b *Bot) handleName(ctx context.Context, ev Event, session *models.BookingSession) error {
	if _, err := b.tgService.SendWithInlineKeyboard(ctx, ev.ChatID, formatNameAccepted(ev.Text), daysKeyboard()); err != nil {
		return fmt.Errorf("send day prompt: %w", err)
	}

	session.Name = ev.Text
	session.Step = models.StepAwaitingDay
	return b.saveStep(ctx, session)
}

func (b *Bot) handleDay(ctx context.Context, ev Event, session *models.BookingSession) error {
	day := models.DayLabel(ev.Data)
	if day == models.UnknownDay {
		b.log(ctx).Warn().Str("payload", ev.Data).Int64("user_id", ev.UserID).Msg("Unknown day payload")
	}

	msg := tgbotapi.NewMessage(ev.ChatID, formatDayChosen(day))
	msg.ParseMode = models.ParseModeMarkdown
	msg.ReplyMarkup = timesKeyboard()
	if err := b.sendOrWrap(ctx, msg, "time prompt"); err != nil {
		return err
	}

	session.Day = day
	session.Step = models.StepAwaitingTime
	return b.saveStep(ctx, session)
}

func (b *Bot) handleTime(ctx context.Context, ev Event, session *models.BookingSession) error {
	slot := models.TimeLabel(ev.Data)
	if slot == models.UnknownTime {
		b.log(ctx).Warn().Str("payload", ev.Data).Int64("user_id", ev.UserID).Msg("Unknown time payload")
	}

	if _, err := b.tgService.SendWithKeyboard(ctx, ev.ChatID, msgAskPhone, phoneKeyboard()); err != nil {
		return fmt.Errorf("send phone prompt: %w", err)
	}

	session.Time = slot
	session.Step = models.StepAwaitingPhone
	return b.saveStep(ctx, session)
}

// handlePhone завершает запись: подтверждение пользователю, затем уведомление группе.
// Если отправка не удалась, сессия остается на шаге телефона. После сбоя
// отправки в группу повторный контакт присылает пользователю подтверждение
// второй раз: повторяется вся пара сообщений, а не только упавшее.
func (b *Bot) handlePhone(ctx context.Context, ev Event, session *models.BookingSession) error {
	if ev.Contact == nil {
		return nil
	}

	completed := *session
	completed.Phone = ev.Contact.PhoneNumber

	confirm := tgbotapi.NewMessage(ev.ChatID, formatConfirmation(&completed))
	confirm.ParseMode = models.ParseModeMarkdown
	confirm.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)
	if err := b.sendOrWrap(ctx, confirm, "confirmation"); err != nil {
		return err
	}

	if err := b.notifyGroup(ctx, &completed, ev.From); err != nil {
		return err
	}

	if err := b.stateService.ClearSession(ctx, ev.UserID); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}

	b.log(ctx).Info().
		Int64("user_id", ev.UserID).
		Str("day", completed.Day).
		Str("time", completed.Time).
		Msg("Booking completed")

	if b.metrics != nil {
		b.metrics.BookingsCompleted.Inc()
	}
	b.publish(ctx, events.EventBookingCompleted, b.bookingPayload(&completed))
	return nil
}

func (b *Bot) notifyGroup(ctx context.Context, session *models.BookingSession, user *tgbotapi.User) error {
	groupID := b.config.Telegram.GroupID
	if groupID == 0 {
		b.log(ctx).Warn().Int64("user_id", session.UserID).Msg("GROUP_ID is not set, skipping group notification")
		return nil
	}

	msg := tgbotapi.NewMessage(groupID, formatGroupNotice(session, user))
	msg.ParseMode = models.ParseModeMarkdown
	return b.sendOrWrap(ctx, msg, "group notification")
}

func (b *Bot) saveStep(ctx context.Context, session *models.BookingSession) error {
	if err := b.stateService.SaveSession(ctx, session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}
