// Package middleware, HTTP request pipeline'ına eklenen ara katmanları barındırır.
//
// Go'da middleware bir fonksiyondur:
//
//	func(next http.Handler) http.Handler
//
// Middleware kendi işini yapar (ör: token doğrula), sonra next'i çağırır.
// Hata varsa next'i çağırmaz → request burada durur.
package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/akinalp/voxgate/handlers"
	"github.com/akinalp/voxgate/models"
	"github.com/akinalp/voxgate/pkg"
	"github.com/akinalp/voxgate/pkg/ratelimit"
)

// TokenValidator, bearer token doğrulayıcı. services.AuthService karşılar.
type TokenValidator interface {
	ValidateAccessToken(tokenString string) (*models.TokenClaims, error)
}

// AuthMiddleware, bearer token doğrulama middleware'ı.
type AuthMiddleware struct {
	validator TokenValidator
}

// NewAuthMiddleware, constructor.
func NewAuthMiddleware(validator TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{validator: validator}
}

// Require, bearer token zorunlu kılan middleware.
// Token yoksa veya geçersizse → 401.
//
// HTTP header formatı: Authorization: Bearer <token>
//
// Kullanıcı kaydı bu serviste tutulmaz; claim'ler doğrudan context'e eklenir
// ve handler'lar handlers.ClaimsFromContext ile okur.
func (m *AuthMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			pkg.Error(w, fmt.Errorf("%w: authorization header required", pkg.ErrUnauthorized))
			return
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			pkg.Error(w, fmt.Errorf("%w: invalid authorization format, use: Bearer <token>", pkg.ErrUnauthorized))
			return
		}

		claims, err := m.validator.ValidateAccessToken(strings.TrimSpace(token))
		if err != nil {
			pkg.Error(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(handlers.WithClaims(r.Context(), claims)))
	})
}

// ByUser, rate limit identifier'ını doğrulanmış kullanıcıdan üretir:
// "user:<id>:<path>". Require'dan sonra zincirlenmelidir; claim yoksa
// IP'ye düşer.
func ByUser(r *http.Request) string {
	if claims, ok := handlers.ClaimsFromContext(r.Context()); ok {
		return ratelimit.Key("user", claims.UserID, r.URL.Path)
	}
	return ratelimit.ByIP(r)
}
