package bot

import (
	"context"
	"fmt"

	"consultbot/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// handleStart shows the main menu. An in-progress booking is kept.
func (b *Bot) handleStart(ctx context.Context, ev Event, _ *models.BookingSession) error {
	if _, err := b.tgService.SendWithInlineKeyboard(ctx, ev.ChatID, formatGreeting(ev.From), b.mainKeyboard()); err != nil {
		return fmt.Errorf("send main menu: %w", err)
	}
	return nil
}

// handleGetGroupID отвечает ID текущего чата; нужно для настройки GROUP_ID.
func (b *Bot) handleGetGroupID(ctx context.Context, ev Event, _ *models.BookingSession) error {
	if _, err := b.tgService.SendMarkdown(ctx, ev.ChatID, formatGroupID(ev.ChatID)); err != nil {
		return fmt.Errorf("send group id: %w", err)
	}
	return nil
}

func (b *Bot) handleCancel(ctx context.Context, ev Event, session *models.BookingSession) error {
	if session == nil {
		if _, err := b.tgService.SendMessage(ctx, ev.ChatID, msgNothingToCancel); err != nil {
			return fmt.Errorf("send cancel reply: %w", err)
		}
		return nil
	}

	if err := b.stateService.ClearSession(ctx, ev.UserID); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}

	msg := tgbotapi.NewMessage(ev.ChatID, msgCancelled)
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)
	if err := b.sendOrWrap(ctx, msg, "cancel reply"); err != nil {
		return err
	}

	b.log(ctx).Info().Int64("user_id", ev.UserID).Str("step", string(session.Step)).Msg("Booking cancelled")
	return nil
}
