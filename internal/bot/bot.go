package bot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"consultbot/internal/config"
	"consultbot/internal/domain"
	"consultbot/internal/events"
	"consultbot/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Bot struct {
	tgService    domain.TelegramService
	config       *config.Config
	stateService domain.StateManager
	eventBus     domain.EventPublisher
	metrics      *Metrics
	logger       *zerolog.Logger
	dispatcher   *Dispatcher
}

func NewBot(
	tgService domain.TelegramService,
	config *config.Config,
	stateService domain.StateManager,
	eventBus domain.EventPublisher,
	metrics *Metrics,
	logger *zerolog.Logger,
) (*Bot, error) {
	if tgService == nil {
		return nil, errors.New("telegram service is required")
	}
	if config == nil {
		return nil, errors.New("config is required")
	}
	if stateService == nil {
		return nil, errors.New("state service is required")
	}

	if eventBus == nil {
		eventBus = events.NewEventBus()
	}

	if logger == nil {
		l := zerolog.New(os.Stdout).With().Timestamp().Logger()
		logger = &l
	}

	b := &Bot{
		tgService:    tgService,
		config:       config,
		stateService: stateService,
		eventBus:     eventBus,
		metrics:      metrics,
		logger:       logger,
		dispatcher:   NewDispatcher(),
	}
	b.registerRoutes()

	if config.Telegram.GroupID == 0 {
		logger.Warn().Msg("GROUP_ID is not set, group notifications are disabled")
	}
	if config.Telegram.AdminID == 0 {
		logger.Warn().Msg("ADMIN_ID is not set, join requests cannot be relayed")
	}

	return b, nil
}

// Start polls updates until ctx is cancelled or the updates channel closes.
// Updates are handled one at a time.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.config.Telegram.PollTimeout
	if u.Timeout <= 0 {
		u.Timeout = 60
	}

	updates := b.tgService.GetUpdatesChan(u)

	b.logger.Info().Str("username", b.tgService.GetSelf().UserName).Msg("Authorized on account")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("Bot stopping...")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.processUpdate(ctx, update)
		}
	}
}

func (b *Bot) processUpdate(ctx context.Context, update tgbotapi.Update) {
	start := time.Now()
	defer func() {
		if b.metrics != nil {
			b.metrics.UpdateProcessingTime.Observe(time.Since(start).Seconds())
		}
	}()

	// Создаем контекст для обработки каждого обновления
	updateCtx, cancel := context.WithTimeout(ctx, models.UpdateTimeout*time.Second)
	defer cancel()

	requestID := uuid.New().String()
	l := b.logger.With().Str("request_id", requestID).Logger()
	updateCtx = l.WithContext(updateCtx)

	b.withRecovery(updateCtx, func() {
		ev, ok := eventFromUpdate(update)
		if !ok {
			return
		}

		if b.metrics != nil {
			b.metrics.UpdatesProcessed.WithLabelValues(ev.Kind.String()).Inc()
		}

		// Убираем "часики" на кнопке до любой другой работы
		if ev.Kind == KindCallback && ev.CallbackID != "" {
			if err := b.tgService.AnswerCallback(updateCtx, ev.CallbackID, ""); err != nil {
				l.Debug().Err(err).Msg("Failed to answer callback")
			}
		}

		if !b.allow(updateCtx, ev) {
			return
		}

		if err := b.dispatch(updateCtx, ev); err != nil {
			if errors.Is(err, ErrNoRoute) {
				l.Debug().
					Str("kind", ev.Kind.String()).
					Int64("user_id", ev.UserID).
					Msg("No route for event, ignoring")
				return
			}
			if b.metrics != nil {
				b.metrics.ErrorsTotal.Inc()
			}
			l.Error().Err(err).Int64("user_id", ev.UserID).Msg("Failed to handle update")
		}
	})
}

// allow applies the per-user inbound rate limit. The admin is never limited.
func (b *Bot) allow(ctx context.Context, ev Event) bool {
	limit := b.config.Bot.RateLimitMessages
	if limit <= 0 || b.isAdmin(ev.UserID) {
		return true
	}

	allowed, err := b.stateService.CheckRateLimit(ctx, ev.UserID, limit, b.config.RateLimitWindow())
	if err != nil {
		b.log(ctx).Error().Err(err).Int64("user_id", ev.UserID).Msg("Rate limit check failed")
		return true
	}
	if allowed {
		return true
	}

	b.log(ctx).Warn().Int64("user_id", ev.UserID).Msg("Rate limit exceeded")
	if b.metrics != nil {
		b.metrics.RateLimited.Inc()
	}
	if ev.Kind != KindCallback {
		if _, err := b.tgService.SendMessage(ctx, ev.ChatID, msgRateLimited); err != nil {
			b.log(ctx).Debug().Err(err).Msg("Failed to send rate limit warning")
		}
	}
	return false
}

func (b *Bot) isAdmin(userID int64) bool {
	return b.config.Telegram.AdminID != 0 && userID == b.config.Telegram.AdminID
}

func (b *Bot) publish(ctx context.Context, eventType string, payload interface{}) {
	if err := b.eventBus.PublishJSON(eventType, payload); err != nil {
		b.log(ctx).Warn().Err(err).Str("event", eventType).Msg("Failed to publish event")
	}
}

func (b *Bot) bookingPayload(session *models.BookingSession) events.BookingEventPayload {
	return events.BookingEventPayload{
		UserID: session.UserID,
		Name:   session.Name,
		Day:    session.Day,
		Time:   session.Time,
	}
}

func (b *Bot) sendOrWrap(ctx context.Context, msg tgbotapi.Chattable, what string) error {
	if _, err := b.tgService.Send(ctx, msg); err != nil {
		return fmt.Errorf("send %s: %w", what, err)
	}
	return nil
}
