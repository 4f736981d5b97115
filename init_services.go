// Package main: Service katmanı başlatma.
//
// initServices, tüm service implementasyonlarını oluşturur.
// Her service, ihtiyaç duyduğu repository interface'lerini ve diğer
// dependency'leri constructor injection ile alır.
//
// Sıralama: credential issuer → VoiceAuthService → SessionService.
// SessionService Hub callback'lerinden ÖNCE oluşturulmalı.
package main

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/akinalp/voxgate/config"
	"github.com/akinalp/voxgate/pkg/logger"
	"github.com/akinalp/voxgate/pkg/ratelimit"
	"github.com/akinalp/voxgate/pkg/voiceprint"
	"github.com/akinalp/voxgate/services"
	"github.com/akinalp/voxgate/ws"
)

// Services, tüm service instance'larını tutan container struct.
type Services struct {
	Auth      services.AuthService
	Meeting   services.MeetingService
	VoiceAuth services.VoiceAuthService
	Session   services.SessionService
}

// RateLimitRules, HTTP ve WS katmanında kullanılan isimli kurallar.
type RateLimitRules struct {
	MeetingCreate ratelimit.Rule
	VoiceVerify   ratelimit.Rule
	WSConnect     ratelimit.Rule
}

func initRateLimitRules(cfg *config.Config) RateLimitRules {
	return RateLimitRules{
		MeetingCreate: cfg.RateLimit.MeetingCreate.Rule("meeting_create"),
		VoiceVerify:   cfg.RateLimit.VoiceVerify.Rule("voice_verify_ip"),
		WSConnect:     cfg.RateLimit.WSConnect.Rule("ws_connect"),
	}
}

// initCredentialIssuer, JWT issuer'ını oluşturur; LiveKit ayarlıysa
// session'a bağlı doğrulamalarda LiveKit token'ı ekleyen issuer ile sarar.
func initCredentialIssuer(cfg *config.Config, log zerolog.Logger) services.CredentialIssuer {
	issuer := services.NewJWTCredentialIssuer(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.Voice.CredentialTTL)
	if !cfg.LiveKit.Enabled() {
		return issuer
	}

	log.Info().Str("url", cfg.LiveKit.URL).Msg("livekit credentials enabled")
	return services.NewLiveKitCredentialIssuer(issuer, cfg.LiveKit, cfg.Voice.CredentialTTL)
}

// initServices, tüm service'leri oluşturur.
//
// hub ve limiter service'ler arası paylaşılan dependency'lerdir.
func initServices(repos *Repositories, hub ws.EventPublisher, limiter *ratelimit.Limiter, cfg *config.Config) (*Services, error) {
	matcher, err := voiceprint.NewMatcher(cfg.Voice.Matcher, cfg.Voice.MaxDistance)
	if err != nil {
		return nil, fmt.Errorf("voice matcher: %w", err)
	}

	issuer := initCredentialIssuer(cfg, logger.For("credentials"))

	voiceAuth := services.NewVoiceAuthService(
		repos.Voiceprint,
		matcher,
		issuer,
		limiter,
		services.VoiceAuthConfig{
			Threshold:   cfg.Voice.Threshold,
			VerifyRule:  cfg.RateLimit.VoiceVerify.Rule("voice_verify"),
			EnrollRule:  cfg.RateLimit.VoiceEnroll.Rule("voice_enroll"),
			FailureRule: ratelimit.Rule{Name: "voice_fail", Limit: cfg.Voice.MaxFailures, Window: cfg.Voice.LockoutWindow},
		},
		logger.For("voice_auth"),
	)

	// SessionService; Hub callback'lerinden ÖNCE
	sessions := services.NewSessionService(
		repos.Meeting,
		voiceAuth,
		limiter,
		hub,
		services.SessionServiceConfig{
			ResumeGrace: cfg.Session.ResumeGrace,
			ChatRule:    cfg.RateLimit.Chat.Rule("chat"),
		},
		logger.For("session"),
	)

	return &Services{
		Auth:      services.NewAuthService(cfg.JWT.Secret, cfg.JWT.Issuer),
		Meeting:   services.NewMeetingService(repos.Meeting, logger.For("meeting")),
		VoiceAuth: voiceAuth,
		Session:   sessions,
	}, nil
}
