package services

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/livekit/protocol/auth"

	"github.com/akinalp/voxgate/config"
	"github.com/akinalp/voxgate/models"
)

// CredentialRequest, başarılı doğrulamadan sonra credential istenen kullanıcı.
// SessionID boşsa (HTTP /api/voice/verify) credential bir oturuma bağlı değildir.
type CredentialRequest struct {
	UserID    string
	Username  string
	SessionID string
}

// Credential, meeting erişim credential'ı.
//
// Token her zaman doludur (HS256 MeetingAccessClaims). MediaToken ve
// MediaURL, LiveKit yapılandırılmışsa ve istek bir session için yapıldıysa
// dolar; client bununla doğrudan medya sunucusuna bağlanır.
type Credential struct {
	Token      string
	ExpiresAt  time.Time
	MediaToken string
	MediaURL   string
}

// CredentialIssuer, kısa ömürlü meeting credential'ı üretir.
type CredentialIssuer interface {
	Issue(ctx context.Context, req CredentialRequest) (*Credential, error)
}

type jwtCredentialIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTCredentialIssuer, {user_id, meeting_access: true} claim'li HS256
// credential üreten issuer'ı oluşturur.
func NewJWTCredentialIssuer(secret, issuer string, ttl time.Duration) CredentialIssuer {
	return &jwtCredentialIssuer{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

func (i *jwtCredentialIssuer) Issue(_ context.Context, req CredentialRequest) (*Credential, error) {
	now := i.now().UTC()
	expiresAt := now.Add(i.ttl)

	claims := models.MeetingAccessClaims{
		UserID:        req.UserID,
		MeetingAccess: true,
		SessionID:     req.SessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    i.issuer,
			Subject:   req.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign meeting credential: %w", err)
	}

	return &Credential{Token: signed, ExpiresAt: expiresAt}, nil
}

type livekitCredentialIssuer struct {
	base CredentialIssuer
	cfg  config.LiveKitConfig
	ttl  time.Duration
}

// NewLiveKitCredentialIssuer, base issuer'ın credential'ına LiveKit room
// token'ı ekleyen issuer'ı oluşturur. LiveKit room adı = session ID.
func NewLiveKitCredentialIssuer(base CredentialIssuer, cfg config.LiveKitConfig, ttl time.Duration) CredentialIssuer {
	return &livekitCredentialIssuer{base: base, cfg: cfg, ttl: ttl}
}

func (i *livekitCredentialIssuer) Issue(ctx context.Context, req CredentialRequest) (*Credential, error) {
	cred, err := i.base.Issue(ctx, req)
	if err != nil {
		return nil, err
	}
	if req.SessionID == "" {
		return cred, nil
	}

	canPublish := true
	canSubscribe := true
	canPublishData := true

	// auth.NewAccessToken: LiveKit'in JWT builder'ı. LiveKit sunucusu
	// token'ı API secret ile doğrular ve grant'lara göre izin verir.
	at := auth.NewAccessToken(i.cfg.APIKey, i.cfg.APISecret)
	at.AddGrant(&auth.VideoGrant{
		RoomJoin:       true,
		Room:           req.SessionID,
		CanPublish:     &canPublish,
		CanSubscribe:   &canSubscribe,
		CanPublishData: &canPublishData,
	}).
		SetIdentity(req.UserID).
		SetName(displayNameOr(req.Username, req.UserID)).
		SetValidFor(i.ttl)

	token, err := at.ToJWT()
	if err != nil {
		return nil, fmt.Errorf("failed to generate livekit token: %w", err)
	}

	cred.MediaToken = token
	cred.MediaURL = i.cfg.URL
	return cred, nil
}

func displayNameOr(name, fallback string) string {
	if name != "" {
		return name
	}
	return fallback
}
