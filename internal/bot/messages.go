package bot

import (
	"fmt"
	"strings"

	"consultbot/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Тексты кнопок
const (
	btnBookConsultation = "🔥 Записаться на консультацию"
	btnJoinGroup        = "🤝 Вступить в группу"
	btnSupport          = "💬 Поддержка"
	btnSharePhone       = "📞 Отправить номер"
)

const (
	msgAskName         = "✍️ Введите ваше *Имя и Фамилию*:"
	msgAskPhone        = "📞 Теперь отправьте свой номер телефона (используйте кнопку ниже):"
	msgRateLimited     = "⚠️ Вы отправляете сообщения слишком часто. Пожалуйста, подождите немного."
	msgCancelled       = "❌ Запись отменена. Чтобы начать заново, отправьте /start."
	msgNothingToCancel = "Нет активной записи. Отправьте /start, чтобы открыть меню."
	msgJoinSent        = "✅ Ваша заявка отправлена администратору. Ожидайте одобрения!"
	noUsername         = "без username"
)

// md экранирует пользовательский текст для legacy Markdown.
func md(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

func displayName(name string) string {
	if strings.TrimSpace(name) == "" {
		return models.UnknownName
	}
	return name
}

func formatGreeting(user *tgbotapi.User) string {
	name := ""
	if user != nil {
		name = user.FirstName
	}
	return fmt.Sprintf("👋 Привет, %s! Выберите нужную опцию:", displayName(name))
}

func formatNameAccepted(name string) string {
	return fmt.Sprintf("✅ Спасибо, %s!\nТеперь выберите удобный день:", name)
}

func formatDayChosen(day string) string {
	return fmt.Sprintf("📅 Вы выбрали: *%s*\nТеперь выберите удобное время:", md(day))
}

func formatConfirmation(s *models.BookingSession) string {
	return fmt.Sprintf(
		"🎉 Поздравляем, %s! Вы успешно записаны на консультацию. \n"+
			"📅 День: *%s*\n"+
			"🕐 Время: *%s*\n"+
			"📞 Телефон: `%s`\n\n"+
			"Ожидайте, с вами свяжутся в выбранный день и время. Спасибо!",
		md(displayName(s.Name)), md(s.Day), md(s.Time), s.Phone,
	)
}

func formatGroupNotice(s *models.BookingSession, user *tgbotapi.User) string {
	var sb strings.Builder
	sb.WriteString("👤 *Новая запись на консультацию!*\n\n")
	fmt.Fprintf(&sb, "👤 Имя: %s\n", md(displayName(s.Name)))
	fmt.Fprintf(&sb, "📅 День: %s\n", md(s.Day))
	fmt.Fprintf(&sb, "🕐 Время: %s\n", md(s.Time))
	fmt.Fprintf(&sb, "📞 Телефон: `%s`", s.Phone)
	if user != nil {
		fmt.Fprintf(&sb, "\n🆔 Telegram: %s (%d)", md(formatUsername(user)), user.ID)
	}
	return sb.String()
}

func formatUsername(user *tgbotapi.User) string {
	if user == nil || user.UserName == "" {
		return noUsername
	}
	return "@" + user.UserName
}

func formatFullName(user *tgbotapi.User) string {
	if user == nil {
		return models.UnknownName
	}
	return displayName(strings.TrimSpace(user.FirstName + " " + user.LastName))
}

// formatJoinRequest is sent as plain text so names need no escaping.
func formatJoinRequest(user *tgbotapi.User) string {
	return fmt.Sprintf(
		"📥 Новая заявка на вступление в группу\n\n"+
			"👤 Имя: %s\n"+
			"🔗 Username: %s\n"+
			"🆔 ID: %d\n\n"+
			"Чтобы одобрить, отправьте:\n/%s",
		formatFullName(user), formatUsername(user), user.ID, approveCommand(user.ID),
	)
}

func approveCommand(userID int64) string {
	return fmt.Sprintf("%s%s%d", models.CommandApprove, models.ApproveDelimiter, userID)
}

func formatInvite(link string) string {
	return fmt.Sprintf("🎉 Ваша заявка одобрена!\nПрисоединяйтесь к группе по ссылке: %s", link)
}

func formatApprovedNotice(userID int64) string {
	return fmt.Sprintf("✅ Заявка пользователя %d одобрена, приглашение отправлено.", userID)
}

func formatGroupID(chatID int64) string {
	return fmt.Sprintf("📌 ID этой группы: `%d`", chatID)
}
