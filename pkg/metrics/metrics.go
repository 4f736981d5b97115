// Package metrics, voxgate'in tüm Prometheus metriklerini tanımlar.
// Metrik isimleri, label'lar ve help metinleri için tek kaynak burasıdır.
//
// promauto ile tanımlanan metrikler import anında default registry'ye
// kaydolur; /metrics endpoint'i promhttp.Handler() ile servis edilir.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "voxgate"

// ── Transport ────────────────────────────────────────────────────────────────

// ConnectionsActive, açık WebSocket bağlantı sayısı.
var ConnectionsActive = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ws_connections_active",
		Help:      "Number of currently open WebSocket connections.",
	},
)

// ConnectionsRejectedTotal, handshake sırasında reddedilen bağlantılar.
// Label:
//   - reason: "missing_token", "invalid_token", "rate_limited"
var ConnectionsRejectedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ws_connections_rejected_total",
		Help:      "WebSocket handshakes refused before upgrade.",
	},
	[]string{"reason"},
)

// InboundEventsTotal, client'tan gelen event'ler.
// Label:
//   - op: event adı, decode edilemeyenler için "invalid"
var InboundEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ws_inbound_events_total",
		Help:      "Inbound WebSocket events by op.",
	},
	[]string{"op"},
)

// ── Sessions ─────────────────────────────────────────────────────────────────

// SessionsLive, bellekte canlı tutulan oturum sayısı.
var SessionsLive = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions_live",
		Help:      "Number of sessions currently held in memory.",
	},
)

// ParticipantTransitionsTotal, participant state geçişleri.
// Label:
//   - to: "pending_auth", "authenticated", "left"
var ParticipantTransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "participant_transitions_total",
		Help:      "Participant state transitions by target state.",
	},
	[]string{"to"},
)

// ChatMessagesTotal, broadcast edilen chat mesajları.
var ChatMessagesTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "chat_messages_total",
		Help:      "Chat messages accepted and broadcast.",
	},
)

// ── Voice auth ───────────────────────────────────────────────────────────────

// VoiceVerificationsTotal, doğrulama denemeleri.
// Label:
//   - outcome: "accepted", "rejected", "rate_limited", "locked",
//     "enrollment_required", "malformed", "error"
var VoiceVerificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "voice_verifications_total",
		Help:      "Voice verification attempts by outcome.",
	},
	[]string{"outcome"},
)

// VoiceSimilarity, hesaplanan similarity skorlarının dağılımı.
var VoiceSimilarity = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "voice_similarity",
		Help:      "Distribution of computed voice similarity scores.",
		Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
	},
)

// VoiceLockoutsTotal, art arda başarısızlık nedeniyle kilitlenen kullanıcılar.
var VoiceLockoutsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "voice_lockouts_total",
		Help:      "Users locked out of voice verification after repeated failures.",
	},
)

// ── Rate limiting ────────────────────────────────────────────────────────────

// RateLimitDecisionsTotal, limiter kararları.
// Labels:
//   - rule: kural adı ("voice_verify", "ws_connect", ...)
//   - result: "allowed" veya "denied"
var RateLimitDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ratelimit_decisions_total",
		Help:      "Rate limiter decisions by rule and result.",
	},
	[]string{"rule", "result"},
)

// RateLimitSweptTotal, periyodik sweep ile silinen süresi dolmuş kayıtlar.
var RateLimitSweptTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ratelimit_swept_entries_total",
		Help:      "Expired rate-limit window entries reclaimed by the sweeper.",
	},
)
