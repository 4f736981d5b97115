// Package handlers, HTTP endpoint'lerini yönetir.
//
// Handler'lar "ince" olmalıdır:
// - Request parse et
// - Service çağır
// - Response yaz
//
// İş mantığı (doğrulama, rate limit, state geçişleri) service katmanında yaşar.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/akinalp/voxgate/models"
	"github.com/akinalp/voxgate/pkg"
	"github.com/akinalp/voxgate/pkg/validate"
)

// contextKey, context'te değer taşımak için kullanılan key tipi.
// Özel bir tip, string key'lerle namespace çakışmasını önler.
type contextKey string

// UserContextKey, AuthMiddleware'ın doğruladığı token claim'lerini taşır.
const UserContextKey contextKey = "user"

// maxBodyBytes, JSON body üst sınırı. 1024 float'lık bir vektör ~25KB tutar.
const maxBodyBytes = 64 * 1024

// WithClaims, claim'leri context'e ekler.
func WithClaims(ctx context.Context, claims *models.TokenClaims) context.Context {
	return context.WithValue(ctx, UserContextKey, claims)
}

// ClaimsFromContext, AuthMiddleware'ın eklediği claim'leri döner.
func ClaimsFromContext(ctx context.Context) (*models.TokenClaims, bool) {
	claims, ok := ctx.Value(UserContextKey).(*models.TokenClaims)
	return claims, ok && claims != nil
}

// decodeJSON, body'yi strict olarak çözer ve validate tag'lerini uygular.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid request body", pkg.ErrBadRequest)
	}
	return validate.Struct(dst)
}

// requireClaims, claim yoksa 401 yazar ve false döner.
func requireClaims(w http.ResponseWriter, r *http.Request) (*models.TokenClaims, bool) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		pkg.Error(w, pkg.ErrUnauthorized)
		return nil, false
	}
	return claims, true
}
