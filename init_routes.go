// Package main: HTTP route registration.
//
// initRoutes, tüm API endpoint'lerini mux'a bağlar.
// Middleware chain helper'ları burada tanımlıdır:
//   - auth: JWT token doğrulaması
//   - authLimited: auth + kullanıcı bazlı rate limit
package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/akinalp/voxgate/middleware"
	"github.com/akinalp/voxgate/pkg/logger"
	"github.com/akinalp/voxgate/pkg/ratelimit"
	"github.com/akinalp/voxgate/services"
)

// initRoutes, middleware chain'i kurar ve tüm endpoint'leri mux'a bağlar.
//
// Route sıralama kuralı: Literal path'ler parametrik path'lerden ÖNCE tanımlanmalı.
func initRoutes(
	mux *http.ServeMux,
	h *Handlers,
	authService services.AuthService,
	limiter *ratelimit.Limiter,
	rules RateLimitRules,
) {
	// ─── Middleware ───
	authMw := middleware.NewAuthMiddleware(authService)
	rlLog := logger.For("ratelimit")

	// ─── Middleware Chain Helpers ───
	auth := func(handler http.HandlerFunc) http.Handler {
		return authMw.Require(http.HandlerFunc(handler))
	}
	// Limit auth'tan SONRA uygulanır; ByUser claims'e context'ten erişir.
	authLimited := func(rule ratelimit.Rule, handler http.HandlerFunc) http.Handler {
		return authMw.Require(ratelimit.Middleware(limiter, rule, middleware.ByUser, rlLog)(http.HandlerFunc(handler)))
	}

	// ─── Operasyonel ───
	mux.HandleFunc("GET /api/health", h.Health.Check)
	mux.Handle("GET /metrics", promhttp.Handler())

	// ─── Meetings ───
	mux.Handle("POST /api/meetings", authLimited(rules.MeetingCreate, h.Meeting.Create))
	mux.Handle("GET /api/meetings/{id}", auth(h.Meeting.Get))

	// ─── Voice ───
	// Kullanıcı bazlı verify/enroll limitleri service katmanında uygulanır;
	// verify ek olarak IP bazlı limitlenir (token çalan bir istemci için).
	mux.Handle("PUT /api/voiceprints/me", auth(h.Voice.Enroll))
	mux.Handle("DELETE /api/voiceprints/me", auth(h.Voice.Unenroll))
	mux.Handle("POST /api/voice/verify",
		ratelimit.Middleware(limiter, rules.VoiceVerify, ratelimit.ByIP, rlLog)(auth(h.Voice.Verify)))

	// WebSocket; token header veya ?token= query parametresi ile
	// WS handler kendi içinde doğrular (tarayıcılar upgrade'de header gönderemez).
	mux.HandleFunc("GET /ws", h.WS.HandleConnection)
}
