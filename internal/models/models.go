package models

import "time"

// Step is the booking dialogue step a user is currently in.
type Step string

const (
	// StepIdle means there is no stored session for the user.
	StepIdle          Step = "idle"
	StepAwaitingName  Step = "awaiting_name"
	StepAwaitingDay   Step = "awaiting_day"
	StepAwaitingTime  Step = "awaiting_time"
	StepAwaitingPhone Step = "awaiting_phone"
)

// BookingSession хранит данные, собранные в диалоге записи на консультацию.
type BookingSession struct {
	UserID    int64     `json:"user_id"`
	Step      Step      `json:"step"`
	Name      string    `json:"name,omitempty"`
	Day       string    `json:"day,omitempty"`
	Time      string    `json:"time,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CurrentStep returns StepIdle for a nil session.
func (s *BookingSession) CurrentStep() Step {
	if s == nil || s.Step == "" {
		return StepIdle
	}
	return s.Step
}

// Expired reports whether the session was last touched more than ttl ago.
// A non-positive ttl never expires.
func (s *BookingSession) Expired(ttl time.Duration, now time.Time) bool {
	if s == nil || ttl <= 0 || s.UpdatedAt.IsZero() {
		return false
	}
	return now.Sub(s.UpdatedAt) > ttl
}

// Option is a labeled choice rendered as one keyboard button.
type Option struct {
	Key   string
	Label string
}
