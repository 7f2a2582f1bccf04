package worker

import (
	"context"
	"errors"
	"os"
	"time"

	"consultbot/internal/domain"
	"consultbot/internal/metrics"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
)

const sweepTimeout = 30 * time.Second

// SessionJanitor periodically removes abandoned booking sessions.
type SessionJanitor struct {
	sweeper   domain.SessionSweeper
	interval  time.Duration
	scheduler *gocron.Scheduler
	logger    *zerolog.Logger
	now       func() time.Time
}

func NewSessionJanitor(sweeper domain.SessionSweeper, interval time.Duration, logger *zerolog.Logger) *SessionJanitor {
	if logger == nil {
		l := zerolog.New(os.Stdout).With().Timestamp().Logger()
		logger = &l
	}
	return &SessionJanitor{
		sweeper:  sweeper,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// RunOnce performs a single sweep and returns the number of removed sessions.
func (j *SessionJanitor) RunOnce(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	removed, err := j.sweeper.Sweep(ctx, j.now())
	metrics.AddSwept(removed)
	if err != nil {
		j.logger.Error().Err(err).Int("removed", removed).Msg("Session sweep failed")
		return removed, err
	}
	if removed > 0 {
		j.logger.Info().Int("removed", removed).Msg("Expired booking sessions removed")
	}
	return removed, nil
}

// Start schedules sweeps every interval. Jobs run until Stop or ctx is done.
func (j *SessionJanitor) Start(ctx context.Context) error {
	if j.interval <= 0 {
		return errors.New("sweep interval must be positive")
	}

	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	if _, err := s.Every(j.interval).WaitForSchedule().Do(func() {
		_, _ = j.RunOnce(ctx)
	}); err != nil {
		return err
	}

	j.scheduler = s
	s.StartAsync()
	j.logger.Info().Dur("interval", j.interval).Msg("Session janitor started")

	go func() {
		<-ctx.Done()
		j.Stop()
	}()
	return nil
}

func (j *SessionJanitor) Stop() {
	if j.scheduler == nil {
		return
	}
	j.scheduler.Stop()
}
