package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/dom/stay-portal/internal/auth"
	"github.com/dom/stay-portal/internal/domain"
	"github.com/dom/stay-portal/internal/session"
	"github.com/rs/zerolog/log"
)

type contextKey string

const (
	IdentityKey contextKey = "identity"
	StoreKey    contextKey = "sessionStore"
)

// now is swapped in tests that need an expired token
var now = time.Now

// RequireRoles admits only sessions whose token decodes to one of roles.
// A missing or undecodable token goes to the landing page, an expired one
// is cleared first, and a signed-in user with the wrong role is sent to
// their own dashboard with the requested path in ?from=.
func RequireRoles(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			store, ok := GetStore(r.Context())
			if !ok {
				log.Error().Str("component", "guard").Msg("RequireRoles used without the Session middleware")
				http.Error(w, "Session unavailable", http.StatusInternalServerError)
				return
			}

			token, err := store.Token(r.Context())
			if err != nil {
				log.Error().Err(err).Str("component", "guard").Msg("Failed to read session token")
				http.Error(w, "Session unavailable", http.StatusInternalServerError)
				return
			}

			decision := auth.Evaluate(token, now(), r.URL.Path, roles...)
			if decision.ClearToken {
				reason := session.ReasonInvalid
				if decision.State == auth.ExpiredToken {
					reason = session.ReasonExpired
					store.PushFlash(r.Context(), domain.FlashInfo, "Your session has expired. Please log in again.")
				}
				if err := store.Clear(r.Context(), reason); err != nil {
					log.Error().Err(err).Str("component", "guard").Msg("Failed to clear session token")
				}
			}

			if decision.State != auth.Authorized {
				log.Debug().
					Str("component", "guard").
					Str("path", r.URL.Path).
					Str("state", decision.State.String()).
					Msg("Request redirected by guard")
				http.Redirect(w, r, decision.Redirect, http.StatusSeeOther)
				return
			}

			ctx := context.WithValue(r.Context(), IdentityKey, decision.Identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetIdentity returns the identity RequireRoles admitted
func GetIdentity(ctx context.Context) (*domain.Identity, bool) {
	id, ok := ctx.Value(IdentityKey).(*domain.Identity)
	return id, ok && id != nil
}

// GetStore returns the Token Store of the request's browser session
func GetStore(ctx context.Context) (*session.Store, bool) {
	s, ok := ctx.Value(StoreKey).(*session.Store)
	return s, ok
}
