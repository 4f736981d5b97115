package crypto

import (
	"bytes"
	"testing"
)

const testSecret = "0123456789abcdef0123456789abcdef-test"

func TestDeriveKey(t *testing.T) {
	k1, err := DeriveKey(testSecret, "voiceprint")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(k1) != KeySize {
		t.Fatalf("key length = %d, want %d", len(k1), KeySize)
	}

	k2, _ := DeriveKey(testSecret, "voiceprint")
	if !bytes.Equal(k1, k2) {
		t.Error("derivation must be deterministic")
	}

	k3, _ := DeriveKey(testSecret, "other-purpose")
	if bytes.Equal(k1, k3) {
		t.Error("different info must yield different keys")
	}

	if _, err := DeriveKey("short", "voiceprint"); err == nil {
		t.Error("expected error for short secret")
	}
}

func TestSealOpen(t *testing.T) {
	key, _ := DeriveKey(testSecret, "voiceprint")
	plain := []byte("feature-vector-bytes")

	sealed, err := Seal(plain, key, []byte("user-1"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if bytes.Contains(sealed, plain) {
		t.Fatal("sealed output contains plaintext")
	}

	got, err := Open(sealed, key, []byte("user-1"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !bytes.Equal(got, plain) {
		t.Errorf("open = %q, want %q", got, plain)
	}

	again, _ := Seal(plain, key, []byte("user-1"))
	if bytes.Equal(sealed, again) {
		t.Error("two seals of the same plaintext must differ (random nonce)")
	}
}

func TestOpen_RejectsTampering(t *testing.T) {
	key, _ := DeriveKey(testSecret, "voiceprint")
	other, _ := DeriveKey(testSecret, "other")
	sealed, _ := Seal([]byte("data"), key, []byte("user-1"))

	if _, err := Open(sealed, other, []byte("user-1")); err == nil {
		t.Error("expected error with wrong key")
	}
	if _, err := Open(sealed, key, []byte("user-2")); err == nil {
		t.Error("expected error with different associated data")
	}

	flipped := append([]byte(nil), sealed...)
	flipped[len(flipped)-1] ^= 0xff
	if _, err := Open(flipped, key, []byte("user-1")); err == nil {
		t.Error("expected error for corrupted ciphertext")
	}
	if _, err := Open([]byte{1, 2}, key, nil); err == nil {
		t.Error("expected error for short input")
	}
}
