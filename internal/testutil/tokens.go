package testutil

import (
	"testing"
	"time"

	"github.com/dom/stay-portal/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// TestSigningSecret signs every token minted by the helpers and the fake API
const TestSigningSecret = "test-jwt-secret-key-for-testing-only"

// MintToken signs a token shaped like the booking API's access tokens
func MintToken(t *testing.T, email string, role domain.Role, exp time.Time) string {
	t.Helper()
	return MintTokenWithSecret(t, TestSigningSecret, email, role, exp)
}

// MintTokenWithSecret signs with a caller-chosen secret
func MintTokenWithSecret(t *testing.T, secret, email string, role domain.Role, exp time.Time) string {
	t.Helper()

	token, err := signClaims(secret, accessClaims(email, role, exp))
	if err != nil {
		t.Fatalf("failed to mint token: %v", err)
	}
	return token
}

// MintClaims signs arbitrary claims, for malformed or partial identities
func MintClaims(t *testing.T, claims map[string]any) string {
	t.Helper()

	token, err := signClaims(TestSigningSecret, jwt.MapClaims(claims))
	if err != nil {
		t.Fatalf("failed to mint token: %v", err)
	}
	return token
}

func accessClaims(email string, role domain.Role, exp time.Time) jwt.MapClaims {
	return jwt.MapClaims{
		"sub":   email,
		"email": email,
		"role":  string(role),
		"iat":   time.Now().Unix(),
		"exp":   exp.Unix(),
	}
}

func signClaims(secret string, claims jwt.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
