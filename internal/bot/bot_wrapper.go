package bot

import (
	"fmt"

	"consultbot/internal/config"
	"consultbot/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// BotWrapper adapts *tgbotapi.BotAPI to domain.TelegramSender.
type BotWrapper struct {
	*tgbotapi.BotAPI
}

var _ domain.TelegramSender = (*BotWrapper)(nil)

func (w *BotWrapper) GetSelf() tgbotapi.User {
	return w.Self
}

func NewBotWrapper(bot *tgbotapi.BotAPI) *BotWrapper {
	return &BotWrapper{BotAPI: bot}
}

// Connect authorizes the token against the Bot API (getMe).
func Connect(cfg config.TelegramConfig) (*BotWrapper, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	api.Debug = cfg.Debug
	return NewBotWrapper(api), nil
}
