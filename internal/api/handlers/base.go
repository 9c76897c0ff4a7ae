package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dom/stay-portal/internal/api/middleware"
	"github.com/dom/stay-portal/internal/auth"
	"github.com/dom/stay-portal/internal/domain"
	"github.com/dom/stay-portal/internal/render"
	"github.com/dom/stay-portal/internal/service"
	"github.com/dom/stay-portal/internal/session"
	"github.com/dom/stay-portal/internal/websocket"
	"github.com/rs/zerolog/log"
)

var timeNow = time.Now

// base carries what every page handler needs: the views, the services and
// the per-request session helpers.
type base struct {
	views    *render.Renderer
	services *service.Services
	hub      *websocket.Hub
}

func (b *base) store(r *http.Request) *session.Store {
	s, ok := middleware.GetStore(r.Context())
	if !ok {
		// The router mounts Session ahead of every page route.
		panic("handlers: request has no session store")
	}
	return s
}

func (b *base) workspace(r *http.Request) *service.Workspace {
	return b.services.Workspaces.Get(b.store(r).ID())
}

// identity is the guard's identity, or the stored token's on public pages
func (b *base) identity(r *http.Request) *domain.Identity {
	if id, ok := middleware.GetIdentity(r.Context()); ok {
		return id
	}
	token, err := b.store(r).Token(r.Context())
	if err != nil || token == "" {
		return nil
	}
	return auth.Resolve(token)
}

// page renders p with the session's queued flashes and the role's nav
func (b *base) page(w http.ResponseWriter, r *http.Request, status int, p render.Page) {
	flashes, err := b.store(r).PopFlashes(r.Context())
	if err != nil {
		log.Error().Err(err).Str("component", "web").Msg("Failed to read flashes")
	}
	p.Flashes = append(flashes, p.Flashes...)

	if id := b.identity(r); id != nil {
		p.User = id.Email
		p.Role = id.Role
		p.Live = true
	}
	p.Nav = render.NavFor(p.Role)
	b.views.Render(w, status, p)
}

// flash queues a notification for the next page and pushes it live to the
// session's other open tabs
func (b *base) flash(r *http.Request, level domain.FlashLevel, message string) {
	store := b.store(r)
	f, err := store.PushFlash(r.Context(), level, message)
	if err != nil {
		log.Error().Err(err).Str("component", "web").Msg("Failed to queue flash")
		return
	}
	if b.hub != nil {
		b.hub.Notify(store.ID(), f)
	}
}

func (b *base) success(w http.ResponseWriter, r *http.Request, message, to string) {
	b.flash(r, domain.FlashSuccess, message)
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// fail reports err as an error notification and redirects to to. A
// rejected session goes to the landing page; the 401 hook has already
// queued the explanation.
func (b *base) fail(w http.ResponseWriter, r *http.Request, err error, fallback, to string) {
	if errors.Is(err, domain.ErrUnauthenticated) {
		http.Redirect(w, r, auth.LandingRoute, http.StatusSeeOther)
		return
	}

	log.Warn().Err(err).Str("component", "web").Str("path", r.URL.Path).Msg("Request failed")
	b.flash(r, domain.FlashError, service.UserMessage(err, fallback))
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// failPage is fail for errors that happen while building a page: the page
// still renders, carrying the error notification.
func (b *base) failPage(w http.ResponseWriter, r *http.Request, err error, fallback string) (domain.Flash, bool) {
	if errors.Is(err, domain.ErrUnauthenticated) {
		http.Redirect(w, r, auth.LandingRoute, http.StatusSeeOther)
		return domain.Flash{}, false
	}
	log.Warn().Err(err).Str("component", "web").Str("path", r.URL.Path).Msg("Failed to load page data")
	return domain.Flash{ID: "load-error", Level: domain.FlashError, Message: service.UserMessage(err, fallback)}, true
}

func confirmed(r *http.Request) bool {
	return r.PostFormValue("confirm") == "yes"
}

func formValue(r *http.Request, key string) string {
	return strings.TrimSpace(r.FormValue(key))
}
