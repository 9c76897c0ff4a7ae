package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/dom/stay-portal/internal/session"
	"github.com/google/uuid"
)

// SessionOptions configures the browser session cookie
type SessionOptions struct {
	Cookie string
	TTL    time.Duration
	Secure bool
}

// Session binds every request to a browser session. The cookie only
// carries an opaque id; a missing or malformed one is replaced.
func Session(sessions *session.Manager, opts SessionOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := sessionID(r, opts.Cookie)
			if !ok {
				id = uuid.New()
			}

			// Refresh on every request so the cookie slides with the record.
			http.SetCookie(w, &http.Cookie{
				Name:     opts.Cookie,
				Value:    id.String(),
				Path:     "/",
				MaxAge:   int(opts.TTL.Seconds()),
				HttpOnly: true,
				Secure:   opts.Secure,
				SameSite: http.SameSiteLaxMode,
			})

			ctx := context.WithValue(r.Context(), StoreKey, sessions.For(id))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionID(r *http.Request, name string) (uuid.UUID, bool) {
	c, err := r.Cookie(name)
	if err != nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(c.Value)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}
