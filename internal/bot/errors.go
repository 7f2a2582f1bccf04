package bot

import "errors"

var (
	// ErrNoRoute means no route matched the event; the event is ignored.
	ErrNoRoute = errors.New("no route for event")

	ErrMalformedCommand   = errors.New("malformed approve command")
	ErrNotAdmin           = errors.New("sender is not the admin")
	ErrAdminNotConfigured = errors.New("admin id is not configured")
	ErrInviteLinkMissing  = errors.New("invite link is not configured")
)
