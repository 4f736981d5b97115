package repository

import (
	"context"

	"github.com/akinalp/voxgate/models"
)

// VoiceprintRepository, kullanıcı başına tek ses referansını saklar.
// Implementasyon feature vektörünü şifreli tutar.
type VoiceprintRepository interface {
	// Upsert, referansı tamamen değiştirir (yeniden kayıt).
	Upsert(ctx context.Context, vp *models.Voiceprint) error

	// GetByUserID, çözülmüş referansı döner. Yoksa pkg.ErrNotFound.
	GetByUserID(ctx context.Context, userID string) (*models.Voiceprint, error)

	// Delete, kullanıcının referansını siler.
	Delete(ctx context.Context, userID string) error
}
