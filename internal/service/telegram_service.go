package service

import (
	"context"
	"fmt"

	"consultbot/internal/domain"
	"consultbot/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"
)

type TelegramService struct {
	bot     domain.TelegramSender
	limiter *rate.Limiter
}

// NewTelegramService wraps the sender with an outbound rate limit. A
// non-positive rps disables throttling.
func NewTelegramService(bot domain.TelegramSender, rps float64, burst int) *TelegramService {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst <= 0 {
		burst = models.DefaultSendBurst
	}
	return &TelegramService{
		bot:     bot,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// wait blocks until the limiter allows one more call. It fails fast when the
// wait would outlive ctx.
func (s *TelegramService) wait(ctx context.Context) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("outbound throttle: %w", err)
	}
	return nil
}

func (s *TelegramService) Send(ctx context.Context, c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if err := s.wait(ctx); err != nil {
		return tgbotapi.Message{}, err
	}
	return s.bot.Send(c)
}

func (s *TelegramService) Request(ctx context.Context, c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	return s.bot.Request(c)
}

func (s *TelegramService) SendMessage(ctx context.Context, chatID int64, text string) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	return s.Send(ctx, msg)
}

func (s *TelegramService) SendMarkdown(ctx context.Context, chatID int64, text string) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = models.ParseModeMarkdown
	return s.Send(ctx, msg)
}

func (s *TelegramService) SendWithKeyboard(
	ctx context.Context,
	chatID int64,
	text string,
	keyboard tgbotapi.ReplyKeyboardMarkup,
) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	return s.Send(ctx, msg)
}

func (s *TelegramService) SendWithInlineKeyboard(
	ctx context.Context,
	chatID int64,
	text string,
	keyboard tgbotapi.InlineKeyboardMarkup,
) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	return s.Send(ctx, msg)
}

func (s *TelegramService) AnswerCallback(ctx context.Context, callbackID, text string) error {
	callback := tgbotapi.NewCallback(callbackID, text)
	_, err := s.Request(ctx, callback)
	return err
}

func (s *TelegramService) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return s.bot.GetUpdatesChan(config)
}

func (s *TelegramService) GetSelf() tgbotapi.User {
	return s.bot.GetSelf()
}

func (s *TelegramService) StopReceivingUpdates() {
	s.bot.StopReceivingUpdates()
}
