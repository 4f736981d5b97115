// Package ratelimit: hassas ve tekrarlanabilir operasyonları (ses doğrulama,
// voiceprint kaydı, WS bağlantısı, chat) koruyan anahtar bazlı
// sliding-window limiter.
//
// Algoritma:
//   - identifier için [now-window, now] aralığındaki önceki kayıtlar sayılır.
//   - count >= limit → reddedilir, RetryAfter = pencereden ilk çıkacak
//     kaydın kalan süresi (en fazla window).
//   - Aksi halde now anında yeni bir kayıt eklenir (expiry = now + window).
//
// Check-then-insert her Store'da tek bir atomik birim olarak çalışır
// (mutex, SQL transaction veya Redis Lua script). Aksi halde limite yakın
// iki eşzamanlı istek aynı anda kabul edilebilirdi.
//
// Süresi dolmuş kayıtlar inline değil, StartSweeper ile periyodik olarak
// temizlenir; hot path pencere boyutuyla orantılı kalır.
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/akinalp/voxgate/pkg"
	"github.com/akinalp/voxgate/pkg/metrics"
)

// Rule, bir operasyon için limit tanımıdır.
// Limit <= 0 kuralı devre dışı bırakır (her istek kabul edilir).
type Rule struct {
	Name   string
	Limit  int
	Window time.Duration
}

// Usage, Store'un bir identifier için döndüğü pencere durumu.
//
// Count: bu çağrıdan ÖNCE pencerede bulunan kayıt sayısı.
// Oldest: penceredeki en eski kaydın zamanı (kayıt yoksa zero value).
// Recorded: Hit bu çağrıda yeni bir kayıt ekledi mi.
type Usage struct {
	Count    int
	Oldest   time.Time
	Recorded bool
}

// Store, pencere kayıtlarının tutulduğu yer. Birden fazla process çalışıyorsa
// paylaşımlı olmalıdır (Redis veya ortak SQLite dosyası).
type Store interface {
	// Hit, pencere sayımını ve (limit aşılmadıysa) yeni kaydı atomik yapar.
	Hit(ctx context.Context, identifier string, limit int, window time.Duration, now time.Time) (Usage, error)
	// Count, kayıt eklemeden pencere durumunu döner.
	Count(ctx context.Context, identifier string, window time.Duration, now time.Time) (Usage, error)
	// Sweep, süresi dolmuş kayıtları siler ve silinen sayıyı döner.
	Sweep(ctx context.Context, now time.Time) (int64, error)
}

// Decision, bir limiter kararının sonucu.
// Denied durumunda RetryAfter saniye cinsindendir (HTTP Retry-After değeri).
type Decision struct {
	Allowed    bool
	RetryAfter int
	Count      int
}

// Limiter, Store üzerinde kural bazlı karar veren yapı.
type Limiter struct {
	store Store
	now   func() time.Time
	log   zerolog.Logger
}

// New, verilen store ile yeni bir Limiter oluşturur.
func New(store Store, log zerolog.Logger) *Limiter {
	return &Limiter{
		store: store,
		now:   time.Now,
		log:   log,
	}
}

// WithClock, zaman kaynağını değiştirir. Testlerde deterministik pencere için.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// CheckAndRecord, identifier için kuralı uygular; izin verilirse kaydı ekler.
func (l *Limiter) CheckAndRecord(ctx context.Context, identifier string, rule Rule) (Decision, error) {
	if rule.Limit <= 0 {
		return Decision{Allowed: true}, nil
	}

	now := l.now()
	usage, err := l.store.Hit(ctx, identifier, rule.Limit, rule.Window, now)
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit hit %s: %w", identifier, err)
	}

	d := decide(rule, usage, now)
	result := "allowed"
	if !d.Allowed {
		result = "denied"
		l.log.Debug().
			Str("identifier", identifier).
			Str("rule", rule.Name).
			Int("count", usage.Count).
			Int("retry_after", d.RetryAfter).
			Msg("rate limit exceeded")
	}
	metrics.RateLimitDecisionsTotal.WithLabelValues(ruleLabel(rule), result).Inc()

	return d, nil
}

// Peek, kayıt eklemeden kararın ne olacağını döner.
func (l *Limiter) Peek(ctx context.Context, identifier string, rule Rule) (Decision, error) {
	if rule.Limit <= 0 {
		return Decision{Allowed: true}, nil
	}

	now := l.now()
	usage, err := l.store.Count(ctx, identifier, rule.Window, now)
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit count %s: %w", identifier, err)
	}
	return decide(rule, usage, now), nil
}

// Allow, CheckAndRecord'un error döndüren kısayolu.
// Reddedilirse *pkg.RateLimitError döner (errors.Is(err, pkg.ErrRateLimited)).
func (l *Limiter) Allow(ctx context.Context, identifier string, rule Rule) error {
	d, err := l.CheckAndRecord(ctx, identifier, rule)
	if err != nil {
		return err
	}
	if !d.Allowed {
		return &pkg.RateLimitError{Identifier: identifier, RetryAfter: d.RetryAfter}
	}
	return nil
}

// Sweep, süresi dolmuş kayıtları tek seferde temizler.
func (l *Limiter) Sweep(ctx context.Context) (int64, error) {
	n, err := l.store.Sweep(ctx, l.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.RateLimitSweptTotal.Add(float64(n))
	}
	return n, nil
}

// StartSweeper, ctx iptal edilene kadar her interval'de Sweep çalıştırır.
func (l *Limiter) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				n, err := l.Sweep(ctx)
				if err != nil {
					l.log.Error().Err(err).Msg("rate limit sweep failed")
					continue
				}
				if n > 0 {
					l.log.Debug().Int64("removed", n).Msg("rate limit sweep")
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// decide, Usage'ı Decision'a çevirir.
func decide(rule Rule, usage Usage, now time.Time) Decision {
	if usage.Count < rule.Limit {
		count := usage.Count
		if usage.Recorded {
			count++
		}
		return Decision{Allowed: true, Count: count}
	}
	return Decision{
		Allowed:    false,
		RetryAfter: retryAfterSeconds(rule.Window, usage.Oldest, now),
		Count:      usage.Count,
	}
}

// retryAfterSeconds, en eski kaydın pencereden çıkmasına kalan süreyi
// yukarı yuvarlayarak saniye cinsinden döner. [1, window] aralığına sıkıştırılır.
func retryAfterSeconds(window time.Duration, oldest time.Time, now time.Time) int {
	max := int(math.Ceil(window.Seconds()))
	if max < 1 {
		max = 1
	}
	if oldest.IsZero() {
		return max
	}

	remaining := oldest.Add(window).Sub(now)
	secs := int(math.Ceil(remaining.Seconds()))
	if secs < 1 {
		return 1
	}
	if secs > max {
		return max
	}
	return secs
}

func ruleLabel(rule Rule) string {
	if rule.Name == "" {
		return "unnamed"
	}
	return rule.Name
}

// Key, identifier parçalarını birleştirir: Key("ip", "1.2.3.4", "/api/login")
// → "ip:1.2.3.4:/api/login". Boş parçalar atlanır.
func Key(parts ...string) string {
	nonEmpty := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, ":")
}

// ExtractIP, HTTP request'ten client IP adresini çıkarır.
//
// Öncelik sırası:
// 1. X-Forwarded-For header (reverse proxy arkasındaysa, ilk IP)
// 2. X-Real-IP header (nginx gibi proxy'ler ekler)
// 3. RemoteAddr (doğrudan bağlantı)
func ExtractIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i >= 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
