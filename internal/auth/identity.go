// Package auth derives the caller's identity from the bearer token and
// decides what that identity may see or do in the portal.
//
// Nothing here verifies signatures. The booking API is the only authority;
// these decisions drive navigation and which controls are rendered.
package auth

import (
	"time"

	"github.com/dom/stay-portal/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

var parser = jwt.NewParser()

// Resolve decodes the token's claims without verifying the signature.
// It returns nil for malformed tokens or tokens without a known role;
// callers treat nil as unauthenticated.
func Resolve(token string) *domain.Identity {
	if token == "" {
		return nil
	}

	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil
	}

	rawRole, _ := claims["role"].(string)
	role, ok := domain.ParseRole(rawRole)
	if !ok {
		return nil
	}

	email, _ := claims["email"].(string)
	if email == "" {
		email, _ = claims.GetSubject()
	}

	identity := &domain.Identity{Email: email, Role: role}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		identity.ExpiresAt = exp.Time
	} else if err != nil {
		return nil
	}

	return identity
}

// ResolveAt is Resolve plus an expiry check against now
func ResolveAt(token string, now time.Time) *domain.Identity {
	id := Resolve(token)
	if id == nil || id.Expired(now) {
		return nil
	}
	return id
}
