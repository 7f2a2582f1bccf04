package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"consultbot/internal/events"
	"consultbot/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// handleJoinRequest пересылает заявку администратору вместе с готовой командой одобрения.
func (b *Bot) handleJoinRequest(ctx context.Context, ev Event, _ *models.BookingSession) error {
	adminID := b.config.Telegram.AdminID
	if adminID == 0 {
		return ErrAdminNotConfigured
	}

	user := userFromEvent(ev)
	if _, err := b.tgService.SendMessage(ctx, adminID, formatJoinRequest(user)); err != nil {
		return fmt.Errorf("relay join request: %w", err)
	}

	if _, err := b.tgService.SendMessage(ctx, ev.ChatID, msgJoinSent); err != nil {
		b.log(ctx).Warn().Err(err).Int64("user_id", ev.UserID).Msg("Failed to acknowledge join request")
	}

	b.log(ctx).Info().Int64("user_id", ev.UserID).Msg("Join request relayed to admin")
	if b.metrics != nil {
		b.metrics.JoinRequests.Inc()
	}
	b.publish(ctx, events.EventJoinRequested, events.ApprovalEventPayload{
		UserID:   ev.UserID,
		Username: user.UserName,
	})
	return nil
}

// handleApprove never fails the dispatch: the outcome is logged and published.
func (b *Bot) handleApprove(ctx context.Context, ev Event, _ *models.BookingSession) error {
	result := b.approve(ctx, ev)
	b.reportApproval(ctx, result)
	return nil
}

// approve is idempotent: a repeated command sends the same invite again.
func (b *Bot) approve(ctx context.Context, ev Event) models.ApprovalResult {
	result := models.ApprovalResult{ApproverID: ev.UserID}

	if !b.config.Approval.AllowAnyApprover && !b.isAdmin(ev.UserID) {
		result.Kind = models.ApprovalUnauthorized
		result.Err = ErrNotAdmin
		return result
	}

	userID, err := parseApproveCommand(ev.Command)
	if err != nil {
		result.Kind = models.ApprovalParseError
		result.Err = err
		return result
	}
	result.UserID = userID

	link := b.config.Approval.InviteLink
	if link == "" {
		result.Kind = models.ApprovalDeliveryError
		result.Err = ErrInviteLinkMissing
		return result
	}

	if _, err := b.tgService.SendMessage(ctx, userID, formatInvite(link)); err != nil {
		result.Kind = models.ApprovalDeliveryError
		result.Err = fmt.Errorf("send invite: %w", err)
		return result
	}

	if groupID := b.config.Telegram.GroupID; groupID != 0 {
		if _, err := b.tgService.SendMessage(ctx, groupID, formatApprovedNotice(userID)); err != nil {
			result.Kind = models.ApprovalDeliveryError
			result.Err = fmt.Errorf("send group notice: %w", err)
			return result
		}
	}

	result.Kind = models.ApprovalApproved
	return result
}

// parseApproveCommand extracts the user id from "approve_<id>" (the command
// as returned by Message.Command, without slash or bot mention).
func parseApproveCommand(command string) (int64, error) {
	parts := strings.SplitN(command, models.ApproveDelimiter, 2)
	if len(parts) != 2 || parts[0] != models.CommandApprove {
		return 0, fmt.Errorf("%w: %q", ErrMalformedCommand, command)
	}

	userID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || userID <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedCommand, command)
	}
	return userID, nil
}

func (b *Bot) reportApproval(ctx context.Context, result models.ApprovalResult) {
	l := b.log(ctx)
	switch result.Kind {
	case models.ApprovalApproved:
		l.Info().
			Int64("user_id", result.UserID).
			Int64("approver_id", result.ApproverID).
			Msg("Join request approved")
	case models.ApprovalUnauthorized:
		l.Warn().
			Err(result.Err).
			Int64("approver_id", result.ApproverID).
			Msg("Approve command from non-admin ignored")
	default:
		l.Error().
			Err(result.Err).
			Str("result", string(result.Kind)).
			Int64("user_id", result.UserID).
			Int64("approver_id", result.ApproverID).
			Msg("Approve command failed")
	}

	if b.metrics != nil {
		b.metrics.ApprovalResults.WithLabelValues(string(result.Kind)).Inc()
	}

	payload := events.ApprovalEventPayload{
		UserID:     result.UserID,
		ApproverID: result.ApproverID,
		Result:     string(result.Kind),
	}
	eventType := events.EventJoinApproved
	if !result.OK() {
		eventType = events.EventApprovalFailed
		if result.Err != nil {
			payload.Error = result.Err.Error()
		}
	}
	b.publish(ctx, eventType, payload)
}

// userFromEvent is used where a handler needs a non-nil sender.
func userFromEvent(ev Event) *tgbotapi.User {
	if ev.From != nil {
		return ev.From
	}
	return &tgbotapi.User{ID: ev.UserID}
}
