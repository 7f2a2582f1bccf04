package bot

import (
	"consultbot/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// mainKeyboard: запись, вступление в группу (если задан админ) и поддержка (если задан username).
func (b *Bot) mainKeyboard() tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(btnBookConsultation, models.CallbackRequestAccess),
		),
	}

	if b.config.Telegram.AdminID != 0 {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(btnJoinGroup, models.CallbackRequestJoin),
		))
	}

	if url := b.config.SupportURL(); url != "" {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL(btnSupport, url),
		))
	}

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// optionsKeyboard строит по одной кнопке в ряд, в порядке таблицы.
func optionsKeyboard(options []models.Option) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(options))
	for _, opt := range options {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(opt.Label, opt.Key),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func daysKeyboard() tgbotapi.InlineKeyboardMarkup {
	return optionsKeyboard(models.Days)
}

func timesKeyboard() tgbotapi.InlineKeyboardMarkup {
	return optionsKeyboard(models.Times)
}

func phoneKeyboard() tgbotapi.ReplyKeyboardMarkup {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButtonContact(btnSharePhone),
		),
	)
	keyboard.OneTimeKeyboard = true
	keyboard.ResizeKeyboard = true
	return keyboard
}
