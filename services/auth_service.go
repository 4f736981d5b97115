// Package services, business logic katmanını barındırır.
//
// Handler (HTTP) ve ws callback'leri ile Repository (DB) arasında oturan
// katmandır. Tüm iş kuralları burada yaşar:
//   - Bearer token doğrulama
//   - Ses doğrulama ve meeting credential üretimi
//   - Session/participant state machine
//
// Service ASLA http.Request/Response bilmez; sadece domain modelleri alır/verir.
// Service ASLA doğrudan SQL çalıştırmaz; Repository interface'i kullanır.
package services

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/akinalp/voxgate/models"
	"github.com/akinalp/voxgate/pkg"
)

// AuthService, bearer access token'ları doğrular.
//
// Token'ları kimlik servisi imzalar (login, 2FA, şifre sıfırlama orada
// yaşar); bu servis aynı HMAC secret ile doğrular. ws.TokenValidator ve
// middleware.TokenValidator bu interface'i implicit olarak karşılar.
type AuthService interface {
	ValidateAccessToken(tokenString string) (*models.TokenClaims, error)
}

type authService struct {
	jwtSecret []byte
	issuer    string
}

// NewAuthService, constructor. issuer boş değilse token'ın "iss" claim'i
// bu değerle eşleşmelidir.
func NewAuthService(jwtSecret, issuer string) AuthService {
	return &authService{
		jwtSecret: []byte(jwtSecret),
		issuer:    issuer,
	}
}

// ValidateAccessToken, JWT access token'ı doğrular ve claims'i döner.
func (s *authService) ValidateAccessToken(tokenString string) (*models.TokenClaims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &models.TokenClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: token expired", pkg.ErrUnauthorized)
		}
		return nil, fmt.Errorf("%w: invalid token", pkg.ErrUnauthorized)
	}

	claims, ok := token.Claims.(*models.TokenClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token claims", pkg.ErrUnauthorized)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: token has no user_id", pkg.ErrUnauthorized)
	}

	return claims, nil
}

// SignAccessToken, claims'i HS256 ile imzalar. Kimlik servisi ile aynı
// formatta token üretir; testler ve yerel geliştirme araçları kullanır.
func SignAccessToken(secret string, claims models.TokenClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}
