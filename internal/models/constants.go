package models

const ParseModeMarkdown = "Markdown"

// Callback payloads
const (
	CallbackRequestAccess = "request_access"
	CallbackRequestJoin   = "request_join"

	DayPrefix  = "day_"
	TimePrefix = "time_"
)

// Commands
const (
	CommandStart      = "start"
	CommandGetGroupID = "get_group_id"
	CommandCancel     = "cancel"
	CommandJoin       = "join"
	CommandApprove    = "approve"

	// ApproveDelimiter separates the command from the user id in /approve_<id>.
	ApproveDelimiter = "_"
)

const (
	UnknownDay  = "Неизвестный день"
	UnknownTime = "Неизвестное время"
	UnknownName = "Неизвестный"
)

// Days in the order they are shown to the user.
var Days = []Option{
	{Key: "day_monday", Label: "Понедельник"},
	{Key: "day_tuesday", Label: "Вторник"},
	{Key: "day_wednesday", Label: "Среда"},
	{Key: "day_thursday", Label: "Четверг"},
	{Key: "day_friday", Label: "Пятница"},
}

// Times in the order they are shown to the user.
var Times = []Option{
	{Key: "time_10_12", Label: "10:00 - 12:00"},
	{Key: "time_12_14", Label: "12:00 - 14:00"},
	{Key: "time_14_16", Label: "14:00 - 16:00"},
	{Key: "time_16_18", Label: "16:00 - 18:00"},
	{Key: "time_18_20", Label: "18:00 - 20:00"},
}

// DayLabel maps a day button payload to its label, UnknownDay otherwise.
func DayLabel(key string) string {
	return lookupLabel(Days, key, UnknownDay)
}

// TimeLabel maps a time button payload to its label, UnknownTime otherwise.
func TimeLabel(key string) string {
	return lookupLabel(Times, key, UnknownTime)
}

func lookupLabel(options []Option, key, fallback string) string {
	for _, opt := range options {
		if opt.Key == key {
			return opt.Label
		}
	}
	return fallback
}

const (
	// RateLimitMessages количество сообщений в окне
	RateLimitMessages = 20

	// RateLimitWindow окно ограничения частоты сообщений
	RateLimitWindow = 60 // 1 минута в секундах

	// UpdateTimeout время на обработку одного обновления
	UpdateTimeout = 30 // секунд

	// DefaultSendRPS лимит исходящих сообщений в секунду
	DefaultSendRPS = 25

	// DefaultSendBurst размер всплеска исходящих сообщений
	DefaultSendBurst = 5

	// DefaultSweepInterval период очистки устаревших сессий
	DefaultSweepInterval = 10 * 60 // 10 минут в секундах
)
