// Package main, voxgate meeting erişim koordinatörünün giriş noktasıdır.
//
// Dependency Injection "wire-up" sırası:
//  1. Config'i yükle, logger'ı kur
//  2. Database'i başlat (embed migration'lar)
//  3. i18n çevirilerini yükle
//  4. Repository'leri ve rate limit store'unu oluştur
//  5. WebSocket Hub'ı başlat
//  6. Service'leri oluştur, Hub callback'lerini bağla
//  7. Handler'ları ve route'ları kur
//  8. CORS yapılandır, HTTP Server'ı başlat
//  9. Graceful shutdown
//
// Paket seviyesinde state yok; her şey main içinde oluşturulup bağlanır.
package main

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"

	"github.com/akinalp/voxgate/config"
	"github.com/akinalp/voxgate/database"
	"github.com/akinalp/voxgate/handlers"
	"github.com/akinalp/voxgate/pkg/crypto"
	"github.com/akinalp/voxgate/pkg/i18n"
	"github.com/akinalp/voxgate/pkg/logger"
	"github.com/akinalp/voxgate/pkg/ratelimit"
	"github.com/akinalp/voxgate/ws"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ─── 1. Config + Logger ───
	cfg, err := config.Load(ctx)
	if err != nil {
		// Logger henüz config'siz; varsayılan ayarlarla kurulur
		log := logger.Init(logger.Options{})
		log.Fatal().Err(err).Msg("failed to load config")
	}

	log := logger.Init(logger.Options{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty}).
		With().Str("component", "main").Logger()
	log.Info().Int("port", cfg.Server.Port).Str("rate_limit_backend", cfg.RateLimit.Backend).Msg("voxgate starting")

	// ─── 2. Database ───
	migrations, err := fs.Sub(database.EmbeddedMigrations, "migrations")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open embedded migrations")
	}

	db, err := database.New(cfg.Database.Path, migrations, logger.For("database"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer db.Close()

	// ─── 3. i18n ───
	locales, err := fs.Sub(i18n.EmbeddedLocales, "locales")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open embedded locales")
	}
	if err := i18n.Load(locales); err != nil {
		log.Fatal().Err(err).Msg("failed to load i18n translations")
	}

	// ─── 4. Repository Layer + Rate Limit Store ───
	voiceprintKey, err := crypto.DeriveKey(cfg.Voice.EncryptionSecret, "voxgate/voiceprint")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to derive voiceprint key")
	}
	repos := initRepositories(db.Conn, voiceprintKey)

	store, redisClient, err := initRateLimitStore(ctx, cfg, db.Conn)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize rate limit store")
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	limiter := ratelimit.New(store, logger.For("ratelimit"))
	limiter.StartSweeper(ctx, cfg.RateLimit.SweepInterval)

	// ─── 5. WebSocket Hub ───
	//
	// Hub, tüm WebSocket bağlantılarını yöneten merkezi yapıdır.
	// Hub aynı zamanda EventPublisher interface'ini implement eder;
	// service'ler hub'a doğrudan bağımlı olmak yerine interface üzerinden erişir.
	hub := ws.NewHub(logger.For("hub"))
	go hub.Run()

	// ─── 6. Service Layer ───
	svcs, err := initServices(repos, hub, limiter, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize services")
	}
	registerHubCallbacks(hub, svcs.Session)
	svcs.Session.StartReaper(ctx, cfg.Session.ReaperInterval)

	// ─── 7. Handlers + Routes ───
	checks := map[string]handlers.Pinger{"sqlite": db.Conn}
	if redisClient != nil {
		checks["redis"] = redisPinger{client: redisClient}
	}

	rules := initRateLimitRules(cfg)
	h := initHandlers(svcs, hub, limiter, rules, checks, cfg)

	mux := http.NewServeMux()
	initRoutes(mux, h, svcs.Auth, limiter, rules)

	// ─── 8. CORS + HTTP Server ───
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Accept-Language"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      corsHandler.Handler(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Server.Addr()).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// ─── 9. Graceful Shutdown ───
	<-ctx.Done()
	log.Info().Msg("shutting down...")

	// Önce WebSocket bağlantılarını kapat; client'lar "server shutting down" bilir.
	// Sonra canlı session state'ini bırak, en son HTTP server'ı kapat.
	hub.Shutdown()
	svcs.Session.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
		return
	}

	log.Info().Msg("server stopped gracefully")
}
