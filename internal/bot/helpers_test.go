package bot

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"consultbot/internal/config"
	"consultbot/internal/events"
	"consultbot/internal/models"
	"consultbot/internal/repository"
	"consultbot/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	testAdminID    int64 = 1000
	testGroupID    int64 = -100500
	testUserID     int64 = 42
	testInviteLink       = "https://t.me/+consult_invite"
)

var errSendFailed = errors.New("telegram: Bad Request: chat not found")

// mockTelegramService records outgoing messages; chats listed in failFor
// reject sends.
type mockTelegramService struct {
	mu          sync.Mutex
	updatesChan chan tgbotapi.Update
	sent        []tgbotapi.MessageConfig
	requests    []tgbotapi.Chattable
	failFor     map[int64]bool
	stopped     bool
}

func newMockTelegramService() *mockTelegramService {
	return &mockTelegramService{
		updatesChan: make(chan tgbotapi.Update, 4),
		failFor:     make(map[int64]bool),
	}
}

func (m *mockTelegramService) Send(_ context.Context, c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	msg, ok := c.(tgbotapi.MessageConfig)
	if !ok {
		m.requests = append(m.requests, c)
		return tgbotapi.Message{}, nil
	}
	if m.failFor[msg.ChatID] {
		return tgbotapi.Message{}, errSendFailed
	}
	m.sent = append(m.sent, msg)
	return tgbotapi.Message{MessageID: len(m.sent), Chat: &tgbotapi.Chat{ID: msg.ChatID}}, nil
}

func (m *mockTelegramService) Request(_ context.Context, c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (m *mockTelegramService) SendMessage(ctx context.Context, chatID int64, text string) (tgbotapi.Message, error) {
	return m.Send(ctx, tgbotapi.NewMessage(chatID, text))
}

func (m *mockTelegramService) SendMarkdown(ctx context.Context, chatID int64, text string) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = models.ParseModeMarkdown
	return m.Send(ctx, msg)
}

func (m *mockTelegramService) SendWithKeyboard(ctx context.Context, chatID int64, text string, keyboard tgbotapi.ReplyKeyboardMarkup) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	return m.Send(ctx, msg)
}

func (m *mockTelegramService) SendWithInlineKeyboard(ctx context.Context, chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	return m.Send(ctx, msg)
}

func (m *mockTelegramService) AnswerCallback(ctx context.Context, callbackID, text string) error {
	_, err := m.Request(ctx, tgbotapi.NewCallback(callbackID, text))
	return err
}

func (m *mockTelegramService) GetUpdatesChan(_ tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return m.updatesChan
}

func (m *mockTelegramService) GetSelf() tgbotapi.User {
	return tgbotapi.User{UserName: "consult_test_bot"}
}

func (m *mockTelegramService) StopReceivingUpdates() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
}

func (m *mockTelegramService) messages() []tgbotapi.MessageConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]tgbotapi.MessageConfig(nil), m.sent...)
}

func (m *mockTelegramService) messagesTo(chatID int64) []tgbotapi.MessageConfig {
	var out []tgbotapi.MessageConfig
	for _, msg := range m.messages() {
		if msg.ChatID == chatID {
			out = append(out, msg)
		}
	}
	return out
}

func (m *mockTelegramService) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
	m.requests = nil
}

type testEnv struct {
	bot     *Bot
	tg      *mockTelegramService
	repo    *repository.MemoryStateRepository
	logs    *bytes.Buffer
	bus     *events.EventBus
	metrics *Metrics
	cfg     *config.Config
}

func newTestConfig() *config.Config {
	return &config.Config{
		Telegram: config.TelegramConfig{
			BotToken:        "123:test",
			AdminID:         testAdminID,
			GroupID:         testGroupID,
			SupportUsername: "@consult_support",
		},
		Approval: config.ApprovalConfig{InviteLink: testInviteLink},
	}
}

func setupTestBot(t *testing.T, mutate ...func(cfg *config.Config)) *testEnv {
	t.Helper()

	cfg := newTestConfig()
	for _, fn := range mutate {
		fn(cfg)
	}

	logs := &bytes.Buffer{}
	logger := zerolog.New(logs).Level(zerolog.DebugLevel)

	tg := newMockTelegramService()
	repo := repository.NewMemoryStateRepository(0)
	bus := events.NewEventBus()
	metrics := NewMetrics(prometheus.NewRegistry())

	b, err := NewBot(tg, cfg, service.NewStateService(repo, &logger), bus, metrics, &logger)
	require.NoError(t, err)

	// Стартовые предупреждения конструктора не нужны в проверках
	logs.Reset()

	return &testEnv{bot: b, tg: tg, repo: repo, logs: logs, bus: bus, metrics: metrics, cfg: cfg}
}

func (e *testEnv) session(t *testing.T, userID int64) *models.BookingSession {
	t.Helper()
	s, err := e.repo.GetState(context.Background(), userID)
	require.NoError(t, err)
	return s
}

func (e *testEnv) setSession(t *testing.T, session *models.BookingSession) {
	t.Helper()
	require.NoError(t, e.repo.SetState(context.Background(), session))
}

// logLines returns the parsed log entries at the given level.
func (e *testEnv) logLines(level string) []map[string]interface{} {
	var out []map[string]interface{}
	scanner := bufio.NewScanner(bytes.NewReader(e.logs.Bytes()))
	for scanner.Scan() {
		var entry map[string]interface{}
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		if entry["level"] == level {
			out = append(out, entry)
		}
	}
	return out
}

func (e *testEnv) process(updates ...tgbotapi.Update) {
	for _, u := range updates {
		e.bot.processUpdate(context.Background(), u)
	}
}

func testUser(id int64) *tgbotapi.User {
	return &tgbotapi.User{ID: id, FirstName: "Ivan", LastName: "Petrov", UserName: "ivan_p"}
}

func commandUpdate(userID int64, text string) tgbotapi.Update {
	length := len(text)
	if i := strings.IndexByte(text, ' '); i >= 0 {
		length = i
	}
	return tgbotapi.Update{
		Message: &tgbotapi.Message{
			From:     testUser(userID),
			Chat:     &tgbotapi.Chat{ID: userID, Type: "private"},
			Text:     text,
			Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}},
		},
	}
}

func textUpdate(userID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{
		Message: &tgbotapi.Message{
			From: testUser(userID),
			Chat: &tgbotapi.Chat{ID: userID, Type: "private"},
			Text: text,
		},
	}
}

func callbackUpdate(userID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:   "cb-" + data,
			From: testUser(userID),
			Message: &tgbotapi.Message{
				MessageID: 7,
				Chat:      &tgbotapi.Chat{ID: userID, Type: "private"},
			},
			Data: data,
		},
	}
}

func contactUpdate(userID int64, phone string) tgbotapi.Update {
	return tgbotapi.Update{
		Message: &tgbotapi.Message{
			From: testUser(userID),
			Chat: &tgbotapi.Chat{ID: userID, Type: "private"},
			Contact: &tgbotapi.Contact{
				PhoneNumber: phone,
				FirstName:   "Ivan",
				UserID:      userID,
			},
		},
	}
}
