// Package main: Handler katmanı başlatma.
//
// initHandlers, tüm HTTP handler'larını oluşturur.
// Handler'lar "thin" dir; sadece HTTP parse + service call + response write.
package main

import (
	"github.com/akinalp/voxgate/config"
	"github.com/akinalp/voxgate/handlers"
	"github.com/akinalp/voxgate/pkg/logger"
	"github.com/akinalp/voxgate/pkg/ratelimit"
	"github.com/akinalp/voxgate/ws"
)

// Handlers, tüm handler instance'larını tutan container struct.
type Handlers struct {
	Meeting *handlers.MeetingHandler
	Voice   *handlers.VoiceHandler
	Health  *handlers.HealthHandler
	WS      *ws.Handler
}

// initHandlers, tüm handler'ları service dependency'leri ile oluşturur.
//
// checks: health endpoint'inin ping'lediği dependency'ler (sqlite, redis).
func initHandlers(
	svcs *Services,
	hub *ws.Hub,
	limiter *ratelimit.Limiter,
	rules RateLimitRules,
	checks map[string]handlers.Pinger,
	cfg *config.Config,
) *Handlers {
	return &Handlers{
		Meeting: handlers.NewMeetingHandler(svcs.Meeting, svcs.Session),
		Voice:   handlers.NewVoiceHandler(svcs.VoiceAuth),
		Health:  handlers.NewHealthHandler(checks, hub),
		WS: ws.NewHandler(
			hub,
			svcs.Auth,
			limiter,
			rules.WSConnect,
			cfg.Server.AllowedOrigins,
			logger.For("ws"),
		),
	}
}
