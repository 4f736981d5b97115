package services

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/akinalp/voxgate/models"
	"github.com/akinalp/voxgate/pkg"
)

func accessClaims(userID, issuer string, ttl time.Duration) models.TokenClaims {
	now := time.Now()
	return models.TokenClaims{
		UserID:   userID,
		Username: "user-" + userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}

func TestValidateAccessToken(t *testing.T) {
	svc := NewAuthService(testSecret, "identity")

	valid, err := SignAccessToken(testSecret, accessClaims("U1", "identity", time.Hour))
	if err != nil {
		t.Fatalf("SignAccessToken: %v", err)
	}
	claims, err := svc.ValidateAccessToken(valid)
	if err != nil {
		t.Fatalf("ValidateAccessToken: %v", err)
	}
	if claims.UserID != "U1" || claims.Username != "user-U1" {
		t.Errorf("claims = %+v", claims)
	}

	wrongSecret, _ := SignAccessToken("another-secret-0123456789abcdef0123", accessClaims("U1", "identity", time.Hour))
	expired, _ := SignAccessToken(testSecret, accessClaims("U1", "identity", -time.Minute))
	wrongIssuer, _ := SignAccessToken(testSecret, accessClaims("U1", "someone-else", time.Hour))
	noUser, _ := SignAccessToken(testSecret, accessClaims("", "identity", time.Hour))
	unsigned, _ := jwt.NewWithClaims(jwt.SigningMethodNone, accessClaims("U1", "identity", time.Hour)).
		SignedString(jwt.UnsafeAllowNoneSignatureType)

	for name, token := range map[string]string{
		"wrong secret": wrongSecret,
		"expired":      expired,
		"wrong issuer": wrongIssuer,
		"no user":      noUser,
		"alg none":     unsigned,
		"garbage":      "not-a-jwt",
	} {
		if _, err := svc.ValidateAccessToken(token); !errors.Is(err, pkg.ErrUnauthorized) {
			t.Errorf("%s: err = %v, want ErrUnauthorized", name, err)
		}
	}
}
