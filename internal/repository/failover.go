package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"consultbot/internal/domain"
	"consultbot/internal/models"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverStateRepository writes to the primary store and falls back to the
// secondary one while the primary is failing. The primary is retried once per
// recoveryInterval.
type FailoverStateRepository struct {
	primary   domain.StateRepository
	fallback  domain.StateRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time
}

func NewFailoverStateRepository(primary, fallback domain.StateRepository, logger *zerolog.Logger) *FailoverStateRepository {
	return &FailoverStateRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// MarkDown switches the repository to the fallback until the next recovery
// check, e.g. when the primary failed a startup probe.
func (r *FailoverStateRepository) MarkDown(err error) {
	r.markDown(err)
}

// Degraded reports whether calls currently go to the fallback.
func (r *FailoverStateRepository) Degraded() bool {
	return r.isDown.Load()
}

func (r *FailoverStateRepository) markDown(err error) {
	r.logger.Error().Err(err).Msg("Primary state repository failed, falling back to memory")
	r.isDown.Store(true)
	r.mu.Lock()
	r.lastCheck = time.Now()
	r.mu.Unlock()
}

// usePrimary reports whether the primary should be tried for this call.
func (r *FailoverStateRepository) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if time.Since(r.lastCheck) > recoveryInterval {
		r.lastCheck = time.Now()
		return true
	}
	return false
}

func (r *FailoverStateRepository) recovered() {
	if r.isDown.CompareAndSwap(true, false) {
		r.logger.Info().Msg("Primary state repository recovered")
	}
}

func (r *FailoverStateRepository) GetState(ctx context.Context, userID int64) (*models.BookingSession, error) {
	if r.usePrimary() {
		session, err := r.primary.GetState(ctx, userID)
		if err == nil {
			r.recovered()
			return session, nil
		}
		r.markDown(err)
	}

	return r.fallback.GetState(ctx, userID)
}

func (r *FailoverStateRepository) SetState(ctx context.Context, session *models.BookingSession) error {
	if r.usePrimary() {
		err := r.primary.SetState(ctx, session)
		if err == nil {
			r.recovered()
			return nil
		}
		r.markDown(err)
	}

	return r.fallback.SetState(ctx, session)
}

func (r *FailoverStateRepository) ClearState(ctx context.Context, userID int64) error {
	// сессия могла остаться в резервном хранилище, пока основное было недоступно
	if err := r.fallback.ClearState(ctx, userID); err != nil {
		r.logger.Debug().Err(err).Int64("user_id", userID).Msg("Fallback session clear failed")
	}

	if r.usePrimary() {
		err := r.primary.ClearState(ctx, userID)
		if err == nil {
			r.recovered()
			return nil
		}
		r.markDown(err)
	}

	return nil
}

func (r *FailoverStateRepository) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	if r.usePrimary() {
		allowed, err := r.primary.CheckRateLimit(ctx, userID, limit, window)
		if err == nil {
			r.recovered()
			return allowed, nil
		}
		r.markDown(err)
	}

	return r.fallback.CheckRateLimit(ctx, userID, limit, window)
}

// Ping reports the health of the primary store.
func (r *FailoverStateRepository) Ping(ctx context.Context) error {
	return r.primary.Ping(ctx)
}

// Sweep sweeps every underlying store that supports it.
func (r *FailoverStateRepository) Sweep(ctx context.Context, now time.Time) (int, error) {
	total := 0
	for _, repo := range []domain.StateRepository{r.primary, r.fallback} {
		sweeper, ok := repo.(domain.SessionSweeper)
		if !ok {
			continue
		}
		n, err := sweeper.Sweep(ctx, now)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
