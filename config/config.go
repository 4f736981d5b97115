// Package config, uygulamanın tüm konfigürasyonunu merkezi olarak yönetir.
// Environment variable'lardan okur, .env dosyasını da destekler.
//
// Değerler go-envconfig ile struct tag'lerinden doldurulur; her alt bölüm
// ayrı bir struct olarak tek bir concern'ü temsil eder.
package config

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"

	"github.com/akinalp/voxgate/pkg/ratelimit"
)

// Config, uygulamanın tüm konfigürasyon değerlerini taşır.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Redis     RedisConfig
	LiveKit   LiveKitConfig
	Voice     VoiceConfig
	RateLimit RateLimitConfig
	Session   SessionConfig
	Log       LogConfig
}

// ServerConfig, HTTP server ayarları.
type ServerConfig struct {
	Host            string        `env:"SERVER_HOST, default=0.0.0.0"`
	Port            int           `env:"SERVER_PORT, default=9090"`
	AllowedOrigins  []string      `env:"CORS_ALLOWED_ORIGINS, default=*"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT, default=10s"`
}

// DatabaseConfig, SQLite database ayarları.
type DatabaseConfig struct {
	Path string `env:"DATABASE_PATH, default=./data/voxgate.db"`
}

// JWTConfig, bearer token doğrulama ayarları. Token'ları kimlik servisi
// aynı secret ile imzalar; bu servis sadece doğrular.
type JWTConfig struct {
	Secret string `env:"JWT_SECRET, required"`
	Issuer string `env:"JWT_ISSUER"`
}

// RedisConfig; Addr boşsa Redis kullanılmaz.
type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB, default=0"`
	Timeout  time.Duration `env:"REDIS_TIMEOUT, default=5s"`
}

// LiveKitConfig; üçü de doluysa meeting credential'ı LiveKit token'ı olarak verilir.
type LiveKitConfig struct {
	URL       string `env:"LIVEKIT_URL"`
	APIKey    string `env:"LIVEKIT_API_KEY"`
	APISecret string `env:"LIVEKIT_API_SECRET"`
}

// Enabled, LiveKit issuer'ının kullanılıp kullanılmayacağını döner.
func (c LiveKitConfig) Enabled() bool {
	return c.URL != "" && c.APIKey != "" && c.APISecret != ""
}

// VoiceConfig, ses doğrulama ayarları.
type VoiceConfig struct {
	Threshold     float64       `env:"VOICE_THRESHOLD, default=0.75"`
	Matcher       string        `env:"VOICE_MATCHER, default=euclidean"`
	MaxDistance   float64       `env:"VOICE_MAX_DISTANCE, default=1.0"`
	CredentialTTL time.Duration `env:"VOICE_CREDENTIAL_TTL, default=5m"`
	MaxFailures   int           `env:"VOICE_MAX_FAILURES, default=5"`
	LockoutWindow time.Duration `env:"VOICE_LOCKOUT_WINDOW, default=15m"`
	// Voiceprint şifreleme anahtarı bu secret'tan HKDF ile türetilir.
	EncryptionSecret string `env:"VOICEPRINT_SECRET, required"`
}

// RateLimitConfig, limiter backend'i ve operasyon bazlı kurallar.
// Kurallar "limit/window" formatındadır: "5/1m", "30/10s". "0/1m" kuralı kapatır.
type RateLimitConfig struct {
	Backend       string        `env:"RATE_LIMIT_BACKEND, default=memory"`
	SweepInterval time.Duration `env:"RATE_LIMIT_SWEEP_INTERVAL, default=1m"`

	VoiceVerify   RuleSpec `env:"RATE_LIMIT_VOICE_VERIFY, default=5/1m"`
	VoiceEnroll   RuleSpec `env:"RATE_LIMIT_VOICE_ENROLL, default=5/1h"`
	MeetingCreate RuleSpec `env:"RATE_LIMIT_MEETING_CREATE, default=20/1h"`
	WSConnect     RuleSpec `env:"RATE_LIMIT_WS_CONNECT, default=30/1m"`
	Chat          RuleSpec `env:"RATE_LIMIT_CHAT, default=20/10s"`
}

// SessionConfig, canlı session ayarları.
type SessionConfig struct {
	// ResumeGrace: beklenmedik kopuşta resume ticket'ının ömrü; boş kalan
	// session da bu süre sonunda kapatılır.
	ResumeGrace    time.Duration `env:"SESSION_RESUME_GRACE, default=2m"`
	ReaperInterval time.Duration `env:"SESSION_REAPER_INTERVAL, default=30s"`
}

// LogConfig, zerolog ayarları.
type LogConfig struct {
	Level  string `env:"LOG_LEVEL, default=info"`
	Pretty bool   `env:"LOG_PRETTY, default=false"`
}

// RuleSpec, "limit/window" formatındaki env değerini çözer.
type RuleSpec struct {
	Limit  int
	Window time.Duration
}

// EnvDecode, envconfig.Decoder implementasyonu.
func (r *RuleSpec) EnvDecode(val string) error {
	limitRaw, windowRaw, ok := strings.Cut(strings.TrimSpace(val), "/")
	if !ok {
		return fmt.Errorf("rule %q: expected limit/window", val)
	}

	limit, err := strconv.Atoi(strings.TrimSpace(limitRaw))
	if err != nil || limit < 0 {
		return fmt.Errorf("rule %q: invalid limit", val)
	}

	window, err := time.ParseDuration(strings.TrimSpace(windowRaw))
	if err != nil || window <= 0 {
		return fmt.Errorf("rule %q: invalid window", val)
	}

	r.Limit = limit
	r.Window = window
	return nil
}

// Rule, RuleSpec'i isimli bir ratelimit.Rule'a çevirir.
func (r RuleSpec) Rule(name string) ratelimit.Rule {
	return ratelimit.Rule{Name: name, Limit: r.Limit, Window: r.Window}
}

// Load, .env dosyasını (varsa) yükler ve environment'tan Config oluşturur.
func Load(ctx context.Context) (*Config, error) {
	// .env yoksa hata vermez; production'da gerçek env variable'lar kullanılır
	_ = godotenv.Load()

	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith, verilen Lookuper ile Config oluşturur. Testlerde
// envconfig.MapLookuper kullanılır.
func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("SERVER_PORT out of range: %d", c.Server.Port))
	}
	if len(c.JWT.Secret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 characters"))
	}
	if len(c.Voice.EncryptionSecret) < 32 {
		errs = append(errs, errors.New("VOICEPRINT_SECRET must be at least 32 characters"))
	}
	if c.Voice.Threshold <= 0 || c.Voice.Threshold > 1 {
		errs = append(errs, fmt.Errorf("VOICE_THRESHOLD must be in (0, 1], got %v", c.Voice.Threshold))
	}
	if c.Voice.Matcher != "euclidean" && c.Voice.Matcher != "cosine" {
		errs = append(errs, fmt.Errorf("VOICE_MATCHER must be euclidean or cosine, got %q", c.Voice.Matcher))
	}
	if c.Voice.CredentialTTL <= 0 {
		errs = append(errs, errors.New("VOICE_CREDENTIAL_TTL must be positive"))
	}
	if c.Voice.LockoutWindow <= 0 {
		errs = append(errs, errors.New("VOICE_LOCKOUT_WINDOW must be positive"))
	}

	switch c.RateLimit.Backend {
	case "memory", "sqlite":
	case "redis":
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("RATE_LIMIT_BACKEND=redis requires REDIS_ADDR"))
		}
	default:
		errs = append(errs, fmt.Errorf("RATE_LIMIT_BACKEND must be memory, sqlite or redis, got %q", c.RateLimit.Backend))
	}

	if c.Session.ResumeGrace <= 0 {
		errs = append(errs, errors.New("SESSION_RESUME_GRACE must be positive"))
	}

	return errors.Join(errs...)
}

// Addr, HTTP server'ın dinleyeceği adresi döner (ör: "0.0.0.0:9090").
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
