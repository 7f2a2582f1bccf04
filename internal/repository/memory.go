package repository

import (
	"context"
	"sync"
	"time"

	"consultbot/internal/models"
)

type MemoryStateRepository struct {
	states     sync.Map
	rateLimits sync.Map
	ttl        time.Duration
	mu         sync.Mutex
}

// NewMemoryStateRepository keeps sessions in process memory. A zero ttl keeps
// them until the process restarts.
func NewMemoryStateRepository(ttl time.Duration) *MemoryStateRepository {
	return &MemoryStateRepository{
		ttl: ttl,
	}
}

func (r *MemoryStateRepository) GetState(ctx context.Context, userID int64) (*models.BookingSession, error) {
	val, ok := r.states.Load(userID)
	if !ok {
		return nil, nil
	}
	session := val.(*models.BookingSession)
	if session.Expired(r.ttl, time.Now()) {
		r.states.Delete(userID)
		return nil, nil
	}
	// копия, чтобы вызывающий код не менял сохраненную сессию в обход SetState
	cp := *session
	return &cp, nil
}

func (r *MemoryStateRepository) SetState(ctx context.Context, session *models.BookingSession) error {
	cp := *session
	r.states.Store(session.UserID, &cp)
	return nil
}

func (r *MemoryStateRepository) ClearState(ctx context.Context, userID int64) error {
	r.states.Delete(userID)
	return nil
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func (r *MemoryStateRepository) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	val, ok := r.rateLimits.Load(userID)

	var entry *rateLimitEntry
	if !ok {
		entry = &rateLimitEntry{
			count:     1,
			expiresAt: now.Add(window),
		}
	} else {
		entry = val.(*rateLimitEntry)
		if now.After(entry.expiresAt) {
			entry.count = 1
			entry.expiresAt = now.Add(window)
		} else {
			entry.count++
		}
	}

	r.rateLimits.Store(userID, entry)
	return entry.count <= limit, nil
}

func (r *MemoryStateRepository) Ping(ctx context.Context) error {
	return nil
}

// Sweep drops expired sessions and rate-limit windows.
func (r *MemoryStateRepository) Sweep(ctx context.Context, now time.Time) (int, error) {
	removed := 0
	if r.ttl > 0 {
		r.states.Range(func(key, value any) bool {
			if value.(*models.BookingSession).Expired(r.ttl, now) {
				r.states.Delete(key)
				removed++
			}
			return true
		})
	}

	r.mu.Lock()
	r.rateLimits.Range(func(key, value any) bool {
		if now.After(value.(*rateLimitEntry).expiresAt) {
			r.rateLimits.Delete(key)
		}
		return true
	})
	r.mu.Unlock()

	return removed, nil
}

// Len returns the number of stored sessions, expired ones included.
func (r *MemoryStateRepository) Len() int {
	n := 0
	r.states.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
