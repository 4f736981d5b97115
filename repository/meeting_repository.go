package repository

import (
	"context"
	"time"

	"github.com/akinalp/voxgate/models"
)

// MeetingRepository, meeting kayıtları için veritabanı işlemleri.
type MeetingRepository interface {
	// Create, yeni bir meeting kaydı oluşturur (status = scheduled).
	Create(ctx context.Context, meeting *models.Meeting) error

	// GetByID, meeting'i döner. Yoksa pkg.ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.Meeting, error)

	// UpdateStatus, status geçişini kalıcı yapar. active → started_at,
	// ended → ended_at alanı at ile set edilir.
	UpdateStatus(ctx context.Context, id string, status models.SessionStatus, at time.Time) error
}
