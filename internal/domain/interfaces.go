package domain

import (
	"context"
	"time"

	"consultbot/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// StateRepository is a key-value store of booking sessions keyed by user id.
// GetState returns (nil, nil) when the user has no session.
type StateRepository interface {
	GetState(ctx context.Context, userID int64) (*models.BookingSession, error)
	SetState(ctx context.Context, session *models.BookingSession) error
	ClearState(ctx context.Context, userID int64) error
	CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error)
	Ping(ctx context.Context) error
}

// SessionSweeper removes sessions that were not touched for longer than the TTL.
type SessionSweeper interface {
	Sweep(ctx context.Context, now time.Time) (int, error)
}

type StateManager interface {
	GetSession(ctx context.Context, userID int64) (*models.BookingSession, error)
	SaveSession(ctx context.Context, session *models.BookingSession) error
	ClearSession(ctx context.Context, userID int64) error
	CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	GetSelf() tgbotapi.User
	StopReceivingUpdates()
}

// TelegramService sends through an outbound throttle; ctx bounds the wait.
type TelegramService interface {
	Send(ctx context.Context, c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(ctx context.Context, c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	SendMessage(ctx context.Context, chatID int64, text string) (tgbotapi.Message, error)
	SendMarkdown(ctx context.Context, chatID int64, text string) (tgbotapi.Message, error)
	SendWithKeyboard(ctx context.Context, chatID int64, text string, keyboard tgbotapi.ReplyKeyboardMarkup) (tgbotapi.Message, error)
	SendWithInlineKeyboard(ctx context.Context, chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error)
	AnswerCallback(ctx context.Context, callbackID string, text string) error
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	GetSelf() tgbotapi.User
	StopReceivingUpdates()
}
