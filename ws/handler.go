package ws

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/akinalp/voxgate/models"
	"github.com/akinalp/voxgate/pkg"
	"github.com/akinalp/voxgate/pkg/i18n"
	"github.com/akinalp/voxgate/pkg/metrics"
	"github.com/akinalp/voxgate/pkg/ratelimit"
)

// TokenValidator, WebSocket handler'ın bearer token doğrulaması için
// kullandığı interface.
//
// services.AuthService yerine kendi interface'imiz: services paketi
// ws.EventPublisher'ı kullanıyor, ws → services importu döngü oluşturur.
type TokenValidator interface {
	ValidateAccessToken(tokenString string) (*models.TokenClaims, error)
}

// Handler, WebSocket bağlantı isteklerini işleyen HTTP handler'ı.
type Handler struct {
	hub            *Hub
	tokenValidator TokenValidator
	limiter        *ratelimit.Limiter
	connectRule    ratelimit.Rule
	upgrader       websocket.Upgrader
	log            zerolog.Logger
}

// NewHandler, yeni bir WebSocket handler oluşturur.
//
// allowedOrigins boşsa veya "*" içeriyorsa tüm origin'lere izin verilir.
// limiter nil ise bağlantı rate limit'i uygulanmaz.
func NewHandler(hub *Hub, tokenValidator TokenValidator, limiter *ratelimit.Limiter, connectRule ratelimit.Rule, allowedOrigins []string, log zerolog.Logger) *Handler {
	return &Handler{
		hub:            hub,
		tokenValidator: tokenValidator,
		limiter:        limiter,
		connectRule:    connectRule,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		log: log,
	}
}

// HandleConnection, HTTP bağlantısını WebSocket'e yükseltir ve client'ı Hub'a kaydeder.
//
// Token iki yerden okunur: "Authorization: Bearer ..." header'ı veya
// tarayıcılar header gönderemediği için ?token= query parametresi.
//
// Flow:
// 1. Token'ı al ve doğrula; geçersizse upgrade'den ÖNCE 401
// 2. IP bazlı bağlantı rate limit'i; aşıldıysa 429 + Retry-After
// 3. Dil tercihini çöz (?lang= veya Accept-Language)
// 4. HTTP → WebSocket upgrade, client'ı Hub'a kaydet
// 5. WritePump goroutine'de, ReadPump bu goroutine'de
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		metrics.ConnectionsRejectedTotal.WithLabelValues("missing_token").Inc()
		pkg.Error(w, fmt.Errorf("%w: missing token", pkg.ErrTransportAuthFailed))
		return
	}

	claims, err := h.tokenValidator.ValidateAccessToken(token)
	if err != nil {
		metrics.ConnectionsRejectedTotal.WithLabelValues("invalid_token").Inc()
		h.log.Debug().Err(err).Str("ip", ratelimit.ExtractIP(r)).Msg("rejected websocket token")
		pkg.Error(w, fmt.Errorf("%w: invalid token", pkg.ErrTransportAuthFailed))
		return
	}

	if h.limiter != nil {
		identifier := ratelimit.Key("ip", ratelimit.ExtractIP(r), "ws_connect")
		if err := h.limiter.Allow(r.Context(), identifier, h.connectRule); err != nil {
			if _, limited := pkg.RetryAfterOf(err); !limited {
				h.log.Error().Err(err).Msg("websocket rate limit check failed")
				pkg.Error(w, pkg.ErrInternal)
				return
			}
			metrics.ConnectionsRejectedTotal.WithLabelValues("rate_limited").Inc()
			pkg.Error(w, err)
			return
		}
	}

	lang := i18n.Resolve(r.URL.Query().Get("lang"), r.Header.Get("Accept-Language"))

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrader hata yanıtını kendisi yazar
		h.log.Warn().Err(err).Str("user_id", claims.UserID).Msg("websocket upgrade failed")
		return
	}

	client := newClient(h.hub, conn, uuid.NewString(), claims.UserID, claims.Username, i18n.NewLocalizer(lang))
	if !h.hub.Register(client) {
		// Hub kapanıyor
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}

	go client.WritePump()
	client.ReadPump() // bağlantı kapanana kadar bloklar
}

// bearerToken, önce Authorization header'ına, sonra ?token= parametresine bakar.
func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

func originChecker(allowed []string) func(r *http.Request) bool {
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
	}
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}

	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.TrimRight(o, "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// Tarayıcı dışı client'lar (CLI, test) Origin göndermez
			return true
		}
		_, ok := set[strings.TrimRight(origin, "/")]
		return ok
	}
}
