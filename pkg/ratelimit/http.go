package ratelimit

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/akinalp/voxgate/pkg"
)

// KeyFunc, request'ten rate limit identifier'ı üretir.
type KeyFunc func(r *http.Request) string

// ByIP, IP + path bazlı identifier üretir: "ip:1.2.3.4:/api/voice/verify".
func ByIP(r *http.Request) string {
	return Key("ip", ExtractIP(r), r.URL.Path)
}

// Middleware, kuralı aşan istekleri 429 + Retry-After ile reddeder.
//
// Store hatasında istek reddedilir (500); korunan operasyonlar
// (ses doğrulama, kayıt) limiter olmadan açılmamalı.
func Middleware(l *Limiter, rule Rule, keyFn KeyFunc, log zerolog.Logger) func(http.Handler) http.Handler {
	if keyFn == nil {
		keyFn = ByIP
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identifier := keyFn(r)

			err := l.Allow(r.Context(), identifier, rule)
			if err != nil {
				if _, limited := pkg.RetryAfterOf(err); !limited {
					log.Error().Err(err).Str("rule", rule.Name).Msg("rate limit check failed")
					pkg.Error(w, pkg.ErrInternal)
					return
				}
				pkg.Error(w, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
