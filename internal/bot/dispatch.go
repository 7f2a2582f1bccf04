package bot

import (
	"context"
	"fmt"
	"strings"

	"consultbot/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// EventKind classifies an inbound update.
type EventKind int

const (
	KindCommand EventKind = iota + 1
	KindText
	KindCallback
	KindContact
)

func (k EventKind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindText:
		return "text"
	case KindCallback:
		return "callback"
	case KindContact:
		return "contact"
	default:
		return "unknown"
	}
}

// Event is the transport-neutral view of one Telegram update.
type Event struct {
	Kind   EventKind
	UserID int64
	ChatID int64
	From   *tgbotapi.User

	Text       string
	Command    string // without the leading slash and @botname
	Data       string // callback payload
	CallbackID string
	Contact    *tgbotapi.Contact
}

// eventFromUpdate returns false for updates the bot does not route:
// channel posts, service messages, media without text.
func eventFromUpdate(update tgbotapi.Update) (Event, bool) {
	switch {
	case update.CallbackQuery != nil:
		cb := update.CallbackQuery
		if cb.From == nil {
			return Event{}, false
		}
		ev := Event{
			Kind:       KindCallback,
			UserID:     cb.From.ID,
			ChatID:     cb.From.ID,
			From:       cb.From,
			Data:       cb.Data,
			CallbackID: cb.ID,
		}
		if cb.Message != nil && cb.Message.Chat != nil {
			ev.ChatID = cb.Message.Chat.ID
		}
		return ev, true

	case update.Message != nil:
		msg := update.Message
		if msg.From == nil || msg.Chat == nil {
			return Event{}, false
		}
		ev := Event{
			UserID: msg.From.ID,
			ChatID: msg.Chat.ID,
			From:   msg.From,
			Text:   msg.Text,
		}
		switch {
		case msg.Contact != nil:
			ev.Kind = KindContact
			ev.Contact = msg.Contact
		case msg.IsCommand():
			ev.Kind = KindCommand
			ev.Command = msg.Command()
		case msg.Text != "":
			ev.Kind = KindText
		default:
			return Event{}, false
		}
		return ev, true
	}

	return Event{}, false
}

// HandlerFunc handles a routed event. session is nil when the user is idle.
type HandlerFunc func(ctx context.Context, ev Event, session *models.BookingSession) error

// AnyStep matches every step, idle included.
const AnyStep models.Step = "*"

// Route binds (step, kind, payload predicate) to a handler. A nil Match
// accepts every event of the kind.
type Route struct {
	Name   string
	Step   models.Step
	Kind   EventKind
	Match  func(ev Event) bool
	Handle HandlerFunc
}

func (r Route) matches(step models.Step, ev Event) bool {
	if r.Kind != ev.Kind {
		return false
	}
	if r.Step != AnyStep && r.Step != step {
		return false
	}
	return r.Match == nil || r.Match(ev)
}

// Dispatcher evaluates routes in registration order; the first match wins.
type Dispatcher struct {
	routes []Route
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

func (d *Dispatcher) Register(routes ...Route) {
	d.routes = append(d.routes, routes...)
}

func (d *Dispatcher) Resolve(step models.Step, ev Event) (Route, bool) {
	for _, route := range d.routes {
		if route.matches(step, ev) {
			return route, true
		}
	}
	return Route{}, false
}

func commandEquals(command string) func(Event) bool {
	return func(ev Event) bool { return ev.Command == command }
}

func commandPrefix(prefix string) func(Event) bool {
	return func(ev Event) bool { return strings.HasPrefix(ev.Command, prefix) }
}

func payloadEquals(data string) func(Event) bool {
	return func(ev Event) bool { return ev.Data == data }
}

func payloadPrefix(prefix string) func(Event) bool {
	return func(ev Event) bool { return strings.HasPrefix(ev.Data, prefix) }
}

func (b *Bot) registerRoutes() {
	b.dispatcher.Register(
		Route{Name: "start", Step: AnyStep, Kind: KindCommand, Match: commandEquals(models.CommandStart), Handle: b.handleStart},
		Route{Name: "get_group_id", Step: AnyStep, Kind: KindCommand, Match: commandEquals(models.CommandGetGroupID), Handle: b.handleGetGroupID},
		Route{Name: "cancel", Step: AnyStep, Kind: KindCommand, Match: commandEquals(models.CommandCancel), Handle: b.handleCancel},
		Route{Name: "join_command", Step: AnyStep, Kind: KindCommand, Match: commandEquals(models.CommandJoin), Handle: b.handleJoinRequest},
		Route{Name: "approve", Step: AnyStep, Kind: KindCommand, Match: commandPrefix(models.CommandApprove + models.ApproveDelimiter), Handle: b.handleApprove},

		Route{Name: "book_consultation", Step: AnyStep, Kind: KindCallback, Match: payloadEquals(models.CallbackRequestAccess), Handle: b.handleBookingStart},
		Route{Name: "join_button", Step: AnyStep, Kind: KindCallback, Match: payloadEquals(models.CallbackRequestJoin), Handle: b.handleJoinRequest},

		Route{Name: "booking_name", Step: models.StepAwaitingName, Kind: KindText, Handle: b.handleName},
		// Текст вида "/ivan" тоже имя, если это не одна из команд выше
		Route{Name: "booking_name_slash", Step: models.StepAwaitingName, Kind: KindCommand, Handle: b.handleName},
		Route{Name: "booking_day", Step: models.StepAwaitingDay, Kind: KindCallback, Match: payloadPrefix(models.DayPrefix), Handle: b.handleDay},
		Route{Name: "booking_time", Step: models.StepAwaitingTime, Kind: KindCallback, Match: payloadPrefix(models.TimePrefix), Handle: b.handleTime},
		Route{Name: "booking_phone", Step: models.StepAwaitingPhone, Kind: KindContact, Handle: b.handlePhone},
	)
}

// dispatch loads the user's session and runs the first matching route.
func (b *Bot) dispatch(ctx context.Context, ev Event) error {
	session, err := b.stateService.GetSession(ctx, ev.UserID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	step := session.CurrentStep()
	route, ok := b.dispatcher.Resolve(step, ev)
	if !ok {
		return ErrNoRoute
	}

	b.log(ctx).Debug().
		Str("route", route.Name).
		Str("step", string(step)).
		Int64("user_id", ev.UserID).
		Msg("Dispatching event")

	if err := route.Handle(ctx, ev, session); err != nil {
		return fmt.Errorf("%s: %w", route.Name, err)
	}
	return nil
}

// log returns the request-scoped logger, or the bot logger outside a request.
func (b *Bot) log(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return b.logger
}
