package service

import (
	"context"
	"time"

	"consultbot/internal/domain"
	"consultbot/internal/models"

	"github.com/rs/zerolog"
)

type StateService struct {
	stateRepo domain.StateRepository
	logger    *zerolog.Logger
	now       func() time.Time
}

func NewStateService(stateRepo domain.StateRepository, logger *zerolog.Logger) *StateService {
	return &StateService{
		stateRepo: stateRepo,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *StateService) GetSession(ctx context.Context, userID int64) (*models.BookingSession, error) {
	session, err := s.stateRepo.GetState(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to get booking session")
		return nil, err
	}

	return session, nil
}

// SaveSession stamps UpdatedAt and stores the session.
func (s *StateService) SaveSession(ctx context.Context, session *models.BookingSession) error {
	session.UpdatedAt = s.now()
	if err := s.stateRepo.SetState(ctx, session); err != nil {
		s.logger.Error().Err(err).Int64("user_id", session.UserID).Str("step", string(session.Step)).Msg("failed to save booking session")
		return err
	}
	return nil
}

func (s *StateService) ClearSession(ctx context.Context, userID int64) error {
	return s.stateRepo.ClearState(ctx, userID)
}

func (s *StateService) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	return s.stateRepo.CheckRateLimit(ctx, userID, limit, window)
}
