// Package main: Repository katmanı ve rate limit store başlatma.
//
// initRepositories, repository implementasyonlarını oluşturur.
// initRateLimitStore, RATE_LIMIT_BACKEND ayarına göre limiter'ın
// kayıt tuttuğu store'u seçer.
package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/akinalp/voxgate/config"
	"github.com/akinalp/voxgate/database"
	"github.com/akinalp/voxgate/pkg/ratelimit"
	"github.com/akinalp/voxgate/repository"
)

// Repositories, tüm repository instance'larını tutan container struct.
type Repositories struct {
	Meeting    repository.MeetingRepository
	Voiceprint repository.VoiceprintRepository
}

// initRepositories, veritabanı bağlantısından repository'leri oluşturur.
//
// voiceprintKey: voiceprint feature vektörlerini şifreleyen AES-256 anahtarı.
func initRepositories(conn *sql.DB, voiceprintKey []byte) *Repositories {
	return &Repositories{
		Meeting:    repository.NewSQLiteMeetingRepo(conn),
		Voiceprint: repository.NewSQLiteVoiceprintRepo(conn, voiceprintKey),
	}
}

// initRateLimitStore, limiter store'unu oluşturur. Redis backend'inde
// client da döner; health check ve shutdown için main tutar.
func initRateLimitStore(ctx context.Context, cfg *config.Config, conn *sql.DB) (ratelimit.Store, *redis.Client, error) {
	switch cfg.RateLimit.Backend {
	case "sqlite":
		return repository.NewSQLiteRateLimitStore(conn), nil, nil
	case "redis":
		client, err := database.ConnectRedis(ctx, database.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Timeout:  cfg.Redis.Timeout,
		})
		if err != nil {
			return nil, nil, err
		}
		return ratelimit.NewRedisStore(client, "voxgate:rl"), client, nil
	case "memory":
		return ratelimit.NewMemoryStore(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown rate limit backend %q", cfg.RateLimit.Backend)
	}
}

// redisPinger, *redis.Client'ı health check'in Pinger arayüzüne uyarlar.
type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) PingContext(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
