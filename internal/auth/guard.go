package auth

import (
	"net/url"
	"slices"
	"time"

	"github.com/dom/stay-portal/internal/domain"
)

// LandingRoute is where unauthenticated visitors are sent
const LandingRoute = "/"

// GuardState is the outcome of evaluating a protected route
type GuardState int

const (
	NoToken GuardState = iota
	ExpiredToken
	WrongRole
	Authorized
)

func (s GuardState) String() string {
	switch s {
	case NoToken:
		return "no_token"
	case ExpiredToken:
		return "expired_token"
	case WrongRole:
		return "wrong_role"
	case Authorized:
		return "authorized"
	default:
		return "unknown"
	}
}

// Decision tells the caller what to do with a request for a protected route
type Decision struct {
	State      GuardState
	Identity   *domain.Identity // set for WrongRole and Authorized
	Redirect   string           // empty when Authorized
	ClearToken bool             // the stored token must be dropped
}

// Evaluate gates a request for requested against the route's allowed roles.
// Undecodable tokens fail closed exactly like a missing token.
func Evaluate(token string, now time.Time, requested string, allowed ...domain.Role) Decision {
	if token == "" {
		return Decision{State: NoToken, Redirect: LandingRoute}
	}

	identity := Resolve(token)
	if identity == nil {
		return Decision{State: NoToken, Redirect: LandingRoute, ClearToken: true}
	}

	if identity.Expired(now) {
		return Decision{State: ExpiredToken, Redirect: LandingRoute, ClearToken: true}
	}

	if !slices.Contains(allowed, identity.Role) {
		return Decision{
			State:    WrongRole,
			Identity: identity,
			Redirect: withFrom(identity.Role.Dashboard(), requested),
		}
	}

	return Decision{State: Authorized, Identity: identity}
}

// withFrom keeps the originally requested location for a post-auth redirect
func withFrom(target, requested string) string {
	if requested == "" {
		return target
	}
	return target + "?from=" + url.QueryEscape(requested)
}
