package testutil

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const JWTSecret = "test-secret"

// Token signs an HS256 token for userID with the test secret.
func Token(tb testing.TB, userID uint) string {
	tb.Helper()
	return SignedToken(tb, JWTSecret, userID, time.Hour)
}

func SignedToken(tb testing.TB, secret string, userID uint, ttl time.Duration) string {
	tb.Helper()
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"iat":     now.Unix(),
		"exp":     now.Add(ttl).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		tb.Fatalf("sign token: %v", err)
	}
	return signed
}
