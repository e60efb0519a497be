package auth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func signToken(t *testing.T, secret string, alg string, claims Claims) string {
	t.Helper()
	headerJSON, err := json.Marshal(header{Alg: alg, Typ: "JWT"})
	if err != nil {
		t.Fatalf("marshal header: %v", err)
	}
	payloadJSON, err := json.Marshal(claims)
	if err != nil {
		t.Fatalf("marshal claims: %v", err)
	}
	input := base64.RawURLEncoding.EncodeToString(headerJSON) + "." + base64.RawURLEncoding.EncodeToString(payloadJSON)
	return input + "." + sign(input, []byte(secret))
}

func TestVerifyAcceptsValidToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	exp := time.Now().Add(time.Hour).Unix()

	claims, err := VerifyJWT(signToken(t, "test-secret", "HS256", Claims{Sub: "user-1", Email: "jane@example.com", Exp: exp}))
	if err != nil {
		t.Fatalf("VerifyJWT: %v", err)
	}
	if claims.Sub != "user-1" || claims.Email != "jane@example.com" || claims.Exp != exp {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestVerifyRejectsInvalidTokens(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	tests := []struct {
		name  string
		token string
	}{
		{name: "expired", token: signToken(t, "test-secret", "HS256", Claims{Sub: "user-1", Iat: 1, Exp: 2})},
		{name: "foreign secret", token: signToken(t, "other-secret", "HS256", Claims{Sub: "user-1"})},
		{name: "wrong alg", token: signToken(t, "test-secret", "none", Claims{Sub: "user-1"})},
		{name: "missing sub", token: signToken(t, "test-secret", "HS256", Claims{Email: "jane@example.com"})},
		{name: "malformed", token: "not-a-token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := VerifyJWT(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestMissingSecretHasNoFallback(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	if _, err := VerifyJWT("a.b.c"); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret, got %v", err)
	}
}
