package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/akinalp/voxgate/models"
	"github.com/akinalp/voxgate/pkg"
	"github.com/akinalp/voxgate/pkg/crypto"
	"github.com/akinalp/voxgate/pkg/voiceprint"
)

type sqliteVoiceprintRepo struct {
	db  *sql.DB
	key []byte
}

// NewSQLiteVoiceprintRepo, VoiceprintRepository'nin SQLite implementasyonunu
// oluşturur. key, AES-256-GCM anahtarıdır (32 byte).
func NewSQLiteVoiceprintRepo(db *sql.DB, key []byte) VoiceprintRepository {
	return &sqliteVoiceprintRepo{db: db, key: key}
}

func (r *sqliteVoiceprintRepo) Upsert(ctx context.Context, vp *models.Voiceprint) error {
	if vp.EnrolledAt.IsZero() {
		vp.EnrolledAt = time.Now().UTC()
	}
	vp.Dimension = len(vp.Features)

	// AAD = user ID: ciphertext başka bir satıra taşınırsa çözülemez
	sealed, err := crypto.Seal(voiceprint.Encode(vp.Features), r.key, []byte(vp.UserID))
	if err != nil {
		return fmt.Errorf("failed to encrypt voiceprint: %w", err)
	}

	query := `
		INSERT INTO voiceprints (user_id, features, dimension, enrolled_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			features = excluded.features,
			dimension = excluded.dimension,
			enrolled_at = excluded.enrolled_at`

	if _, err := r.db.ExecContext(ctx, query, vp.UserID, sealed, vp.Dimension, vp.EnrolledAt); err != nil {
		return fmt.Errorf("failed to upsert voiceprint: %w", err)
	}
	return nil
}

func (r *sqliteVoiceprintRepo) GetByUserID(ctx context.Context, userID string) (*models.Voiceprint, error) {
	query := `SELECT user_id, features, dimension, enrolled_at FROM voiceprints WHERE user_id = ?`

	var (
		vp     models.Voiceprint
		sealed []byte
	)
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&vp.UserID, &sealed, &vp.Dimension, &vp.EnrolledAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get voiceprint: %w", err)
	}

	plain, err := crypto.Open(sealed, r.key, []byte(userID))
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt voiceprint: %w", err)
	}

	features, err := voiceprint.Decode(plain)
	if err != nil {
		return nil, fmt.Errorf("failed to decode voiceprint: %w", err)
	}
	if len(features) != vp.Dimension {
		return nil, fmt.Errorf("voiceprint dimension mismatch: stored %d, decoded %d", vp.Dimension, len(features))
	}

	vp.Features = features
	return &vp, nil
}

func (r *sqliteVoiceprintRepo) Delete(ctx context.Context, userID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM voiceprints WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete voiceprint: %w", err)
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
