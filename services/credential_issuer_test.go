package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/akinalp/voxgate/config"
)

func TestLiveKitCredentialIssuer_AddsRoomToken(t *testing.T) {
	cfg := config.LiveKitConfig{
		URL:       "wss://media.example.com",
		APIKey:    "APIkey123",
		APISecret: "livekit-secret-0123456789abcdef0123456789",
	}
	issuer := NewLiveKitCredentialIssuer(NewJWTCredentialIssuer(testSecret, "voxgate", 5*time.Minute), cfg, 5*time.Minute)

	cred, err := issuer.Issue(context.Background(), CredentialRequest{UserID: "U1", Username: "alice", SessionID: "S1"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if cred.Token == "" || cred.MediaURL != cfg.URL || cred.MediaToken == "" {
		t.Fatalf("credential = %+v", cred)
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(cred.MediaToken, claims); err != nil {
		t.Fatalf("ParseUnverified: %v", err)
	}
	if claims["sub"] != "U1" || claims["iss"] != cfg.APIKey {
		t.Errorf("identity claims = %v", claims)
	}
	video, ok := claims["video"].(map[string]any)
	if !ok || video["room"] != "S1" || video["roomJoin"] != true {
		t.Errorf("video grant = %v", claims["video"])
	}
}

func TestLiveKitCredentialIssuer_NoSessionNoMediaToken(t *testing.T) {
	cfg := config.LiveKitConfig{URL: "wss://media.example.com", APIKey: "k", APISecret: "livekit-secret-0123456789abcdef0123456789"}
	issuer := NewLiveKitCredentialIssuer(NewJWTCredentialIssuer(testSecret, "", time.Minute), cfg, time.Minute)

	cred, err := issuer.Issue(context.Background(), CredentialRequest{UserID: "U1"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if cred.MediaToken != "" || cred.MediaURL != "" {
		t.Errorf("media token issued without a session: %+v", cred)
	}
}
