package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/akinalp/voxgate/database"
	"github.com/akinalp/voxgate/pkg/ratelimit"
)

// SQLiteRateLimitStore, rate_limit_entries tablosu üzerinde ratelimit.Store.
//
// Hit tek bir transaction içinde sayar ve ekler. DSN'deki _txlock=immediate
// sayesinde write lock BEGIN anında alınır; aynı dosyayı kullanan iki
// process aynı identifier için sayımı aynı anda yapamaz.
type SQLiteRateLimitStore struct {
	db *sql.DB
}

// NewSQLiteRateLimitStore, SQLite destekli rate limit store'u oluşturur.
func NewSQLiteRateLimitStore(db *sql.DB) *SQLiteRateLimitStore {
	return &SQLiteRateLimitStore{db: db}
}

var _ ratelimit.Store = (*SQLiteRateLimitStore)(nil)

func (s *SQLiteRateLimitStore) Hit(ctx context.Context, identifier string, limit int, window time.Duration, now time.Time) (ratelimit.Usage, error) {
	var usage ratelimit.Usage

	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		usage, err = countWindow(ctx, tx, identifier, window, now)
		if err != nil {
			return err
		}
		if usage.Count >= limit {
			return nil
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO rate_limit_entries (identifier, created_at, expires_at) VALUES (?, ?, ?)`,
			identifier, now.UnixMilli(), now.Add(window).UnixMilli(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert rate limit entry: %w", err)
		}

		if usage.Oldest.IsZero() {
			usage.Oldest = now
		}
		usage.Recorded = true
		return nil
	})
	if err != nil {
		return ratelimit.Usage{}, err
	}
	return usage, nil
}

func (s *SQLiteRateLimitStore) Count(ctx context.Context, identifier string, window time.Duration, now time.Time) (ratelimit.Usage, error) {
	return countWindow(ctx, s.db, identifier, window, now)
}

func (s *SQLiteRateLimitStore) Sweep(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM rate_limit_entries WHERE expires_at <= ?`, now.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to sweep rate limit entries: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return n, nil
}

// countWindow, (now-window, now] aralığındaki kayıtları sayar.
func countWindow(ctx context.Context, q database.TxQuerier, identifier string, window time.Duration, now time.Time) (ratelimit.Usage, error) {
	var (
		count  int
		oldest sql.NullInt64
	)
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*), MIN(created_at) FROM rate_limit_entries
		 WHERE identifier = ? AND created_at > ? AND created_at <= ?`,
		identifier, now.Add(-window).UnixMilli(), now.UnixMilli(),
	).Scan(&count, &oldest)
	if err != nil {
		return ratelimit.Usage{}, fmt.Errorf("failed to count rate limit entries: %w", err)
	}

	usage := ratelimit.Usage{Count: count}
	if oldest.Valid {
		usage.Oldest = time.UnixMilli(oldest.Int64)
	}
	return usage, nil
}
