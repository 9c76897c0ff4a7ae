package service

import (
	"errors"
	"sync"
	"time"

	"github.com/dom/stay-portal/internal/apiclient"
	"github.com/dom/stay-portal/internal/config"
	"github.com/dom/stay-portal/internal/domain"
	"github.com/dom/stay-portal/internal/session"
	"github.com/google/uuid"
)

var timeNow = time.Now

// ErrNotLoaded is returned when an action names an entity that is not in
// the currently loaded list
var ErrNotLoaded = errors.New("item is not in the current list; refresh and try again")

type Services struct {
	API        *apiclient.Client
	Sessions   *session.Manager
	Accounts   *AccountService
	Profiles   *ProfileService
	Properties *PropertyService
	Payments   *PaymentService
	Workspaces *Workspaces
}

func NewServices(api *apiclient.Client, sessions *session.Manager, cfg *config.Config) *Services {
	payments := NewPaymentService(cfg.PublicURL)
	properties := NewPropertyService()

	return &Services{
		API:        api,
		Sessions:   sessions,
		Accounts:   NewAccountService(api, GoogleOAuthConfig(cfg)),
		Profiles:   NewProfileService(),
		Properties: properties,
		Payments:   payments,
		Workspaces: NewWorkspaces(api, sessions, payments, properties),
	}
}

// Workspace is the view state of one browser session: its loaded lists,
// the in-progress booking and the admin filter
type Workspace struct {
	API      *apiclient.Client
	Bookings *BookingWorkflow
	Reviews  *ReviewWorkflow
	Users    *UserDirectory

	lastUsed time.Time
}

// Workspaces keeps one Workspace per browser session. A workspace is
// dropped when its session's token is cleared so the next sign-in starts
// from empty lists.
type Workspaces struct {
	api        *apiclient.Client
	sessions   *session.Manager
	payments   *PaymentService
	properties *PropertyService

	mu    sync.Mutex
	items map[uuid.UUID]*Workspace
}

func NewWorkspaces(api *apiclient.Client, sessions *session.Manager, payments *PaymentService, properties *PropertyService) *Workspaces {
	ws := &Workspaces{
		api:        api,
		sessions:   sessions,
		payments:   payments,
		properties: properties,
		items:      make(map[uuid.UUID]*Workspace),
	}
	sessions.Subscribe(func(id uuid.UUID, _ session.ClearReason) {
		ws.Drop(id)
	})
	return ws
}

// Get returns the session's workspace, creating it on first use
func (w *Workspaces) Get(id uuid.UUID) *Workspace {
	w.mu.Lock()
	defer w.mu.Unlock()

	if ws, ok := w.items[id]; ok {
		ws.lastUsed = timeNow()
		return ws
	}

	api := w.api.ForSession(w.sessions.For(id))
	ws := &Workspace{
		API:      api,
		Bookings: NewBookingWorkflow(api, w.payments, w.properties),
		Reviews:  NewReviewWorkflow(api),
		Users:    NewUserDirectory(api),
		lastUsed: timeNow(),
	}
	w.items[id] = ws
	return ws
}

func (w *Workspaces) Drop(id uuid.UUID) {
	w.mu.Lock()
	delete(w.items, id)
	w.mu.Unlock()
}

// Prune drops workspaces idle since before and reports how many went
func (w *Workspaces) Prune(before time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	n := 0
	for id, ws := range w.items {
		if ws.lastUsed.Before(before) {
			delete(w.items, id)
			n++
		}
	}
	return n
}

func (w *Workspaces) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.items)
}

// UserMessage turns an error into the text of an error notification.
// Server messages pass through; server faults and transport failures get a
// generic line; fallback covers everything else.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}

	var apiErr *apiclient.APIError
	var validationErr *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return "Your session has ended. Please log in again."
	case errors.As(err, &validationErr):
		return validationErr.Error()
	case errors.As(err, &apiErr):
		if apiErr.ServerFault() || apiErr.Message == "" {
			return fallback
		}
		return apiErr.Message
	case errors.Is(err, apiclient.ErrNetwork):
		return "Unable to reach the server. Check your connection and try again."
	}

	for _, known := range userFacing {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return fallback
}

var userFacing = []error{
	domain.ErrForbidden,
	domain.ErrNoForgotEmail,
	domain.ErrConfirmationRequired,
	domain.ErrInvalidDateRange,
	domain.ErrPropertyRequired,
	domain.ErrDatesRequired,
	domain.ErrQuoteRequired,
	domain.ErrPropertyBooked,
	domain.ErrPaymentMethod,
	domain.ErrPhoneRequired,
	domain.ErrBookingNotCompleted,
	domain.ErrAlreadyReviewed,
	domain.ErrNotReviewAuthor,
	domain.ErrReviewNotFound,
	domain.ErrStaleQuote,
	domain.ErrInvalidState,
	ErrNotLoaded,
	ErrGoogleDisabled,
	ErrUnusableToken,
}
