package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"consultbot/internal/models"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStateRepository keeps sessions in a local SQLite file so that dialogues
// survive a restart of a single-process deployment without Redis.
type SQLiteStateRepository struct {
	db  *sql.DB
	ttl time.Duration
}

func NewSQLiteStateRepository(path string, ttl time.Duration) (*SQLiteStateRepository, error) {
	if path != ":memory:" {
		// Создаем директорию для БД, если её нет
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite3 не любит конкурентных писателей
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &SQLiteStateRepository{db: db, ttl: ttl}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS booking_sessions (
            user_id INTEGER PRIMARY KEY,
            data TEXT NOT NULL,
            updated_at INTEGER NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS rate_limits (
            user_id INTEGER PRIMARY KEY,
            count INTEGER NOT NULL,
            expires_at INTEGER NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_booking_sessions_updated_at ON booking_sessions(updated_at)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLiteStateRepository) GetState(ctx context.Context, userID int64) (*models.BookingSession, error) {
	var data string
	err := r.db.QueryRowContext(ctx,
		`SELECT data FROM booking_sessions WHERE user_id = ?`, userID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session from sqlite: %w", err)
	}

	var session models.BookingSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	if session.Expired(r.ttl, time.Now()) {
		if err := r.ClearState(ctx, userID); err != nil {
			return nil, err
		}
		return nil, nil
	}

	return &session, nil
}

func (r *SQLiteStateRepository) SetState(ctx context.Context, session *models.BookingSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	updatedAt := session.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	_, err = r.db.ExecContext(ctx, `
        INSERT INTO booking_sessions (user_id, data, updated_at) VALUES (?, ?, ?)
        ON CONFLICT(user_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		session.UserID, string(data), updatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to set session in sqlite: %w", err)
	}
	return nil
}

func (r *SQLiteStateRepository) ClearState(ctx context.Context, userID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM booking_sessions WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete session from sqlite: %w", err)
	}
	return nil
}

func (r *SQLiteStateRepository) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()
	var count int
	var expiresAt int64
	err = tx.QueryRowContext(ctx,
		`SELECT count, expires_at FROM rate_limits WHERE user_id = ?`, userID).Scan(&count, &expiresAt)
	switch {
	case errors.Is(err, sql.ErrNoRows), err == nil && now.UnixNano() > expiresAt:
		count = 1
		expiresAt = now.Add(window).UnixNano()
	case err != nil:
		return false, fmt.Errorf("failed to read rate limit: %w", err)
	default:
		count++
	}

	_, err = tx.ExecContext(ctx, `
        INSERT INTO rate_limits (user_id, count, expires_at) VALUES (?, ?, ?)
        ON CONFLICT(user_id) DO UPDATE SET count = excluded.count, expires_at = excluded.expires_at`,
		userID, count, expiresAt)
	if err != nil {
		return false, fmt.Errorf("failed to update rate limit: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit rate limit: %w", err)
	}
	return count <= limit, nil
}

func (r *SQLiteStateRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping sqlite: %w", err)
	}
	return nil
}

// Sweep deletes sessions older than the TTL and stale rate-limit rows.
func (r *SQLiteStateRepository) Sweep(ctx context.Context, now time.Time) (int, error) {
	removed := 0
	if r.ttl > 0 {
		res, err := r.db.ExecContext(ctx,
			`DELETE FROM booking_sessions WHERE updated_at < ?`, now.Add(-r.ttl).UnixNano())
		if err != nil {
			return 0, fmt.Errorf("failed to sweep sessions: %w", err)
		}
		n, _ := res.RowsAffected()
		removed = int(n)
	}

	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM rate_limits WHERE expires_at < ?`, now.UnixNano()); err != nil {
		return removed, fmt.Errorf("failed to sweep rate limits: %w", err)
	}
	return removed, nil
}

func (r *SQLiteStateRepository) Close() error {
	return r.db.Close()
}
