package models

import "github.com/golang-jwt/jwt/v5"

// TokenClaims, bearer access token'ın payload'ı.
//
// Token'ları kimlik servisi imzalar; bu servis aynı HMAC secret ile
// doğrular ve DB'ye gitmeden kullanıcının kim olduğunu bilir.
// models paketinde tanımlıdır çünkü services, ws ve middleware
// katmanlarının hepsi kullanır.
type TokenClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// MeetingAccessClaims, başarılı ses doğrulamasından sonra verilen kısa
// ömürlü credential'ın payload'ı.
type MeetingAccessClaims struct {
	UserID        string `json:"user_id"`
	MeetingAccess bool   `json:"meeting_access"`
	SessionID     string `json:"session_id,omitempty"`
	jwt.RegisteredClaims
}
