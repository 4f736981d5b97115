package config

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func baseEnv() map[string]string {
	return map[string]string{
		"JWT_SECRET":        strings.Repeat("j", 32),
		"VOICEPRINT_SECRET": strings.Repeat("v", 32),
	}
}

func TestLoadWith_Defaults(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(baseEnv()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Addr() != "0.0.0.0:9090" {
		t.Errorf("Addr = %q", cfg.Server.Addr())
	}
	if cfg.Voice.Threshold != 0.75 {
		t.Errorf("Threshold = %v, want 0.75", cfg.Voice.Threshold)
	}
	if cfg.Voice.CredentialTTL != 5*time.Minute {
		t.Errorf("CredentialTTL = %v", cfg.Voice.CredentialTTL)
	}
	if cfg.Voice.MaxFailures != 5 || cfg.Voice.LockoutWindow != 15*time.Minute {
		t.Errorf("lockout = %d/%v", cfg.Voice.MaxFailures, cfg.Voice.LockoutWindow)
	}
	if cfg.RateLimit.Backend != "memory" {
		t.Errorf("Backend = %q", cfg.RateLimit.Backend)
	}
	if got := cfg.RateLimit.VoiceVerify; got.Limit != 5 || got.Window != time.Minute {
		t.Errorf("VoiceVerify = %+v", got)
	}
	if cfg.Session.ResumeGrace != 2*time.Minute {
		t.Errorf("ResumeGrace = %v", cfg.Session.ResumeGrace)
	}
	if cfg.LiveKit.Enabled() {
		t.Error("LiveKit should be disabled without credentials")
	}
}

func TestLoadWith_Overrides(t *testing.T) {
	env := baseEnv()
	env["SERVER_PORT"] = "8088"
	env["RATE_LIMIT_CHAT"] = "3/5s"
	env["RATE_LIMIT_BACKEND"] = "redis"
	env["REDIS_ADDR"] = "localhost:6379"
	env["VOICE_MATCHER"] = "cosine"
	env["CORS_ALLOWED_ORIGINS"] = "https://a.example,https://b.example"

	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(env))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 8088 {
		t.Errorf("Port = %d", cfg.Server.Port)
	}
	rule := cfg.RateLimit.Chat.Rule("chat")
	if rule.Name != "chat" || rule.Limit != 3 || rule.Window != 5*time.Second {
		t.Errorf("chat rule = %+v", rule)
	}
	if len(cfg.Server.AllowedOrigins) != 2 {
		t.Errorf("AllowedOrigins = %v", cfg.Server.AllowedOrigins)
	}
}

func TestLoadWith_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"short jwt secret", "JWT_SECRET", "short"},
		{"threshold above one", "VOICE_THRESHOLD", "1.5"},
		{"unknown matcher", "VOICE_MATCHER", "dtw"},
		{"unknown backend", "RATE_LIMIT_BACKEND", "etcd"},
		{"redis without addr", "RATE_LIMIT_BACKEND", "redis"},
		{"bad rule", "RATE_LIMIT_CHAT", "twenty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := baseEnv()
			env[tt.key] = tt.val
			if _, err := LoadWith(context.Background(), envconfig.MapLookuper(env)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadWith_MissingSecrets(t *testing.T) {
	if _, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{})); err == nil {
		t.Fatal("expected error when required secrets are missing")
	}
}

func TestRuleSpec_EnvDecode(t *testing.T) {
	var r RuleSpec
	if err := r.EnvDecode("10/60s"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Limit != 10 || r.Window != time.Minute {
		t.Errorf("got %+v", r)
	}

	for _, bad := range []string{"10", "x/1m", "10/abc", "-1/1m", "5/0s"} {
		if err := r.EnvDecode(bad); err == nil {
			t.Errorf("EnvDecode(%q) expected error", bad)
		}
	}
}
