package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/akinalp/voxgate/models"
	"github.com/akinalp/voxgate/pkg"
)

type sqliteMeetingRepo struct {
	db *sql.DB
}

// NewSQLiteMeetingRepo, MeetingRepository'nin SQLite implementasyonunu oluşturur.
func NewSQLiteMeetingRepo(db *sql.DB) MeetingRepository {
	return &sqliteMeetingRepo{db: db}
}

func (r *sqliteMeetingRepo) Create(ctx context.Context, m *models.Meeting) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if m.Status == "" {
		m.Status = models.SessionScheduled
	}

	query := `
		INSERT INTO meetings (id, title, organizer_id, voice_auth_required, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		m.ID, m.Title, m.OrganizerID, m.VoiceAuthRequired, string(m.Status), m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create meeting: %w", err)
	}
	return nil
}

func (r *sqliteMeetingRepo) GetByID(ctx context.Context, id string) (*models.Meeting, error) {
	query := `
		SELECT id, title, organizer_id, voice_auth_required, status, created_at, started_at, ended_at
		FROM meetings WHERE id = ?`

	var (
		m         models.Meeting
		status    string
		startedAt sql.NullTime
		endedAt   sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&m.ID, &m.Title, &m.OrganizerID, &m.VoiceAuthRequired, &status,
		&m.CreatedAt, &startedAt, &endedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get meeting by id: %w", err)
	}

	m.Status = models.SessionStatus(status)
	if startedAt.Valid {
		t := startedAt.Time
		m.StartedAt = &t
	}
	if endedAt.Valid {
		t := endedAt.Time
		m.EndedAt = &t
	}
	return &m, nil
}

func (r *sqliteMeetingRepo) UpdateStatus(ctx context.Context, id string, status models.SessionStatus, at time.Time) error {
	var query string
	switch status {
	case models.SessionActive:
		query = `UPDATE meetings SET status = ?, started_at = COALESCE(started_at, ?) WHERE id = ?`
	case models.SessionEnded:
		query = `UPDATE meetings SET status = ?, ended_at = ? WHERE id = ?`
	default:
		return fmt.Errorf("%w: unsupported status transition to %q", pkg.ErrBadRequest, status)
	}

	result, err := r.db.ExecContext(ctx, query, string(status), at.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update meeting status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return pkg.ErrNotFound
	}
	return nil
}
