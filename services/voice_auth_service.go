package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/akinalp/voxgate/models"
	"github.com/akinalp/voxgate/pkg"
	"github.com/akinalp/voxgate/pkg/metrics"
	"github.com/akinalp/voxgate/pkg/ratelimit"
	"github.com/akinalp/voxgate/pkg/voiceprint"
	"github.com/akinalp/voxgate/repository"
)

// VoiceAuthService, ses örneğini kayıtlı referansla karşılaştırır ve
// başarılıysa kısa ömürlü meeting credential'ı üretir.
type VoiceAuthService interface {
	// Verify, kullanıcıyı bir session'a bağlı olmadan doğrular.
	Verify(ctx context.Context, userID string, sample []float64) (*models.VerificationResult, error)
	// VerifyForSession, Verify ile aynıdır; credential session'a bağlanır
	// ve LiveKit yapılandırılmışsa medya token'ı da eklenir.
	VerifyForSession(ctx context.Context, req CredentialRequest, sample []float64) (*models.VerificationResult, error)
	// Enroll, kullanıcının referansını tamamen değiştirir.
	Enroll(ctx context.Context, userID string, features []float64) (*models.Voiceprint, error)
	// Unenroll, referansı siler; sonraki doğrulamalar enrollment_required döner.
	Unenroll(ctx context.Context, userID string) error
}

// VoiceAuthConfig, VoiceAuthService ayarları.
//
// FailureRule: Window içinde Limit kadar başarısız deneme kullanıcıyı
// kilitler. Limit <= 0 lockout'u kapatır.
type VoiceAuthConfig struct {
	Threshold   float64
	VerifyRule  ratelimit.Rule
	EnrollRule  ratelimit.Rule
	FailureRule ratelimit.Rule
}

type voiceAuthService struct {
	voiceprints repository.VoiceprintRepository
	matcher     voiceprint.Matcher
	issuer      CredentialIssuer
	limiter     *ratelimit.Limiter
	cfg         VoiceAuthConfig
	now         func() time.Time
	log         zerolog.Logger
}

// NewVoiceAuthService, constructor.
func NewVoiceAuthService(
	voiceprints repository.VoiceprintRepository,
	matcher voiceprint.Matcher,
	issuer CredentialIssuer,
	limiter *ratelimit.Limiter,
	cfg VoiceAuthConfig,
	log zerolog.Logger,
) VoiceAuthService {
	return &voiceAuthService{
		voiceprints: voiceprints,
		matcher:     matcher,
		issuer:      issuer,
		limiter:     limiter,
		cfg:         cfg,
		now:         time.Now,
		log:         log,
	}
}

func (s *voiceAuthService) Verify(ctx context.Context, userID string, sample []float64) (*models.VerificationResult, error) {
	return s.VerifyForSession(ctx, CredentialRequest{UserID: userID}, sample)
}

// VerifyForSession, doğrulama adımlarını sırayla uygular:
//
//  1. Lockout ve rate limit; herhangi bir biyometrik işlemden önce
//  2. Referans yoksa ErrEnrollmentRequired
//  3. Örnek doğrulama (boyut, NaN/Inf); başarısız deneme sayılmaz
//  4. Similarity >= threshold ise kabul, credential üretilir
//  5. Red: başarısızlık kaydedilir; sonuç skor ile birlikte
//     ErrVerificationFailed sarılı olarak döner
func (s *voiceAuthService) VerifyForSession(ctx context.Context, req CredentialRequest, sample []float64) (*models.VerificationResult, error) {
	log := s.log.With().Str("user_id", req.UserID).Str("session_id", req.SessionID).Logger()
	failKey := ratelimit.Key("user", req.UserID, "voice_fail")

	// 1a. Lockout
	lock, err := s.limiter.Peek(ctx, failKey, s.cfg.FailureRule)
	if err != nil {
		metrics.VoiceVerificationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to check voice lockout: %w", err)
	}
	if !lock.Allowed {
		metrics.VoiceVerificationsTotal.WithLabelValues(string(models.AuthLocked)).Inc()
		return nil, &pkg.RateLimitError{Identifier: failKey, RetryAfter: lock.RetryAfter, Locked: true}
	}

	// 1b. Deneme başına rate limit
	if err := s.limiter.Allow(ctx, ratelimit.Key("user", req.UserID, "voice_verify"), s.cfg.VerifyRule); err != nil {
		if errors.Is(err, pkg.ErrRateLimited) {
			metrics.VoiceVerificationsTotal.WithLabelValues(string(models.AuthRateLimited)).Inc()
			return nil, err
		}
		metrics.VoiceVerificationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to check voice rate limit: %w", err)
	}

	// 2. Referans
	vp, err := s.voiceprints.GetByUserID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			metrics.VoiceVerificationsTotal.WithLabelValues(string(models.AuthEnrollmentRequired)).Inc()
			return nil, fmt.Errorf("%w: user %s", pkg.ErrEnrollmentRequired, req.UserID)
		}
		metrics.VoiceVerificationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to load voiceprint: %w", err)
	}

	// 3. Örnek
	if err := voiceprint.Validate(vp.Features, sample); err != nil {
		metrics.VoiceVerificationsTotal.WithLabelValues(string(models.AuthMalformed)).Inc()
		return nil, err
	}

	// 4. Karşılaştırma
	similarity := s.matcher.Similarity(vp.Features, sample)
	metrics.VoiceSimilarity.Observe(similarity)

	if similarity >= s.cfg.Threshold {
		cred, err := s.issuer.Issue(ctx, req)
		if err != nil {
			metrics.VoiceVerificationsTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("failed to issue meeting credential: %w", err)
		}

		metrics.VoiceVerificationsTotal.WithLabelValues(string(models.AuthAccepted)).Inc()
		log.Info().Float64("similarity", similarity).Msg("voice verification accepted")

		return &models.VerificationResult{
			Accepted:   true,
			Similarity: similarity,
			Credential: cred.Token,
			ExpiresAt:  cred.ExpiresAt,
			MediaToken: cred.MediaToken,
			MediaURL:   cred.MediaURL,
		}, nil
	}

	// 5. Red
	metrics.VoiceVerificationsTotal.WithLabelValues(string(models.AuthRejected)).Inc()
	s.recordFailure(ctx, failKey, log)
	log.Info().Float64("similarity", similarity).Float64("threshold", s.cfg.Threshold).Msg("voice verification rejected")

	return &models.VerificationResult{Accepted: false, Similarity: similarity},
		fmt.Errorf("%w: similarity %.2f below threshold", pkg.ErrVerificationFailed, similarity)
}

// recordFailure, başarısız denemeyi lockout penceresine ekler. Kayıt
// hatası doğrulama sonucunu değiştirmez, sadece loglanır.
func (s *voiceAuthService) recordFailure(ctx context.Context, failKey string, log zerolog.Logger) {
	d, err := s.limiter.CheckAndRecord(ctx, failKey, s.cfg.FailureRule)
	if err != nil {
		log.Error().Err(err).Msg("failed to record voice verification failure")
		return
	}
	if d.Allowed && s.cfg.FailureRule.Limit > 0 && d.Count >= s.cfg.FailureRule.Limit {
		metrics.VoiceLockoutsTotal.Inc()
		log.Warn().Int("failures", d.Count).Dur("window", s.cfg.FailureRule.Window).Msg("voice verification locked")
	}
}

func (s *voiceAuthService) Enroll(ctx context.Context, userID string, features []float64) (*models.Voiceprint, error) {
	if err := s.limiter.Allow(ctx, ratelimit.Key("user", userID, "voice_enroll"), s.cfg.EnrollRule); err != nil {
		if errors.Is(err, pkg.ErrRateLimited) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to check enroll rate limit: %w", err)
	}

	if err := voiceprint.ValidateFeatures(features); err != nil {
		return nil, err
	}

	vp := &models.Voiceprint{
		UserID:     userID,
		Features:   features,
		Dimension:  len(features),
		EnrolledAt: s.now().UTC(),
	}
	if err := s.voiceprints.Upsert(ctx, vp); err != nil {
		return nil, fmt.Errorf("failed to store voiceprint: %w", err)
	}

	s.log.Info().Str("user_id", userID).Int("dimension", vp.Dimension).Msg("voiceprint enrolled")
	return vp, nil
}

func (s *voiceAuthService) Unenroll(ctx context.Context, userID string) error {
	if err := s.voiceprints.Delete(ctx, userID); err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return pkg.ErrEnrollmentRequired
		}
		return fmt.Errorf("failed to delete voiceprint: %w", err)
	}

	s.log.Info().Str("user_id", userID).Msg("voiceprint removed")
	return nil
}
