// Package crypto, voiceprint referanslarını AES-256-GCM ile şifreler.
//
// Çıktı formatı: nonce (12 byte) | ciphertext | tag. associatedData
// şifrelenmez ama doğrulanır; voiceprint için user ID verilir, böylece bir
// kullanıcının ciphertext'i başka bir satıra taşınırsa Open başarısız olur.
//
//	key, _ := crypto.DeriveKey(secret, "voxgate/voiceprint")
//	sealed, _ := crypto.Seal(plaintext, key, []byte(userID))
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// KeySize, AES-256 anahtar uzunluğu.
const KeySize = 32

// MinSecretLength, DeriveKey'e verilebilecek en kısa secret.
const MinSecretLength = 32

// DeriveKey, secret'tan HKDF-SHA256 ile KeySize byte anahtar türetir.
// Farklı info değerleri birbirinden bağımsız anahtarlar verir.
func DeriveKey(secret, info string) ([]byte, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("secret must be at least %d bytes, got %d", MinSecretLength, len(secret))
	}

	key := make([]byte, KeySize)
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(info))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("hkdf: %w", err)
	}
	return key, nil
}

// Seal, her çağrıda yeni bir rastgele nonce ile şifreler.
func Seal(plaintext, key, associatedData []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("nonce generation: %w", err)
	}

	return gcm.Seal(nonce, nonce, plaintext, associatedData), nil
}

// Open, Seal çıktısını çözer. Yanlış key, bozuk veri veya farklı
// associatedData durumunda hata döner.
func Open(sealed, key, associatedData []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(sealed) < nonceSize {
		return nil, errors.New("ciphertext too short")
	}

	nonce, ciphertext := sealed[:nonceSize], sealed[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, associatedData)
	if err != nil {
		return nil, fmt.Errorf("gcm.Open (wrong key or corrupted data): %w", err)
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return gcm, nil
}
