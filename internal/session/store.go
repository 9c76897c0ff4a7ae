// Package session implements the Token Store: the single owner of a
// browser's bearer token and role. Every other component reads the token
// through a Store and only login, logout and the 401 path write to it.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dom/stay-portal/internal/domain"
	"github.com/dom/stay-portal/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ClearReason records why a session's credentials were dropped
type ClearReason string

const (
	ReasonLogout       ClearReason = "logout"
	ReasonUnauthorized ClearReason = "unauthorized"
	ReasonExpired      ClearReason = "expired"
	ReasonInvalid      ClearReason = "invalid"
)

// ClearFunc is notified after a session's token has been cleared
type ClearFunc func(id uuid.UUID, reason ClearReason)

// Manager hands out per-browser Stores backed by one session repository
type Manager struct {
	repo   repository.SessionRepository
	sealer *Sealer
	ttl    time.Duration
	now    func() time.Time

	locksMu sync.Mutex
	locks   map[uuid.UUID]*sessionLock

	subMu  sync.RWMutex
	nextID int
	subs   map[int]ClearFunc
}

func NewManager(repo repository.SessionRepository, sealer *Sealer, ttl time.Duration) *Manager {
	return &Manager{
		repo:   repo,
		sealer: sealer,
		ttl:    ttl,
		now:    time.Now,
		locks:  make(map[uuid.UUID]*sessionLock),
		subs:   make(map[int]ClearFunc),
	}
}

// sessionLock serializes mutations of one session. It is dropped from the
// map once no goroutine holds or waits on it.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// For returns the Store for a browser session id
func (m *Manager) For(id uuid.UUID) *Store {
	return &Store{m: m, id: id}
}

// Subscribe registers fn for clear events and returns its cancel func
func (m *Manager) Subscribe(fn ClearFunc) func() {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	id := m.nextID
	m.nextID++
	m.subs[id] = fn

	return func() {
		m.subMu.Lock()
		delete(m.subs, id)
		m.subMu.Unlock()
	}
}

func (m *Manager) notify(id uuid.UUID, reason ClearReason) {
	m.subMu.RLock()
	fns := make([]ClearFunc, 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.subMu.RUnlock()

	for _, fn := range fns {
		fn(id, reason)
	}
}

// RunJanitor purges expired sessions every interval until ctx is done
func (m *Manager) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := m.repo.DeleteExpired(ctx, m.now())
			if err != nil {
				log.Error().Err(err).Str("component", "session").Msg("Failed to purge expired sessions")
				continue
			}
			if n > 0 {
				log.Debug().Int64("purged", n).Str("component", "session").Msg("Purged expired sessions")
			}
		}
	}
}

func (m *Manager) lock(id uuid.UUID) func() {
	m.locksMu.Lock()
	l, ok := m.locks[id]
	if !ok {
		l = &sessionLock{}
		m.locks[id] = l
	}
	l.refs++
	m.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		m.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, id)
		}
		m.locksMu.Unlock()
	}
}

func (m *Manager) load(ctx context.Context, id uuid.UUID) (*domain.BrowserSession, error) {
	rec, err := m.repo.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return &domain.BrowserSession{ID: id}, nil
	}
	return rec, err
}

// mutate applies fn to the session record under the per-session lock and
// slides its expiry.
func (m *Manager) mutate(ctx context.Context, id uuid.UUID, fn func(rec *domain.BrowserSession) error) error {
	unlock := m.lock(id)
	defer unlock()

	rec, err := m.load(ctx, id)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if err := fn(rec); err != nil {
		return err
	}
	rec.ExpiresAt = m.now().Add(m.ttl)
	if err := m.repo.Upsert(ctx, rec); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Store is the Token Store of one browser session
type Store struct {
	m  *Manager
	id uuid.UUID
}

// ID is the browser session id carried by the cookie
func (s *Store) ID() uuid.UUID {
	return s.id
}

// Save persists the bearer token and role after login
func (s *Store) Save(ctx context.Context, token string, role domain.Role) error {
	sealed, err := s.m.sealer.Seal(token)
	if err != nil {
		return fmt.Errorf("seal token: %w", err)
	}
	return s.m.mutate(ctx, s.id, func(rec *domain.BrowserSession) error {
		rec.SealedToken = sealed
		rec.Role = role
		return nil
	})
}

// Token returns the bearer token, or "" when none is stored
func (s *Store) Token(ctx context.Context) (string, error) {
	rec, err := s.m.load(ctx, s.id)
	if err != nil {
		return "", err
	}
	if len(rec.SealedToken) == 0 {
		return "", nil
	}

	token, err := s.m.sealer.Open(rec.SealedToken)
	if err != nil {
		// Sealed under a rotated key; behave as if logged out.
		log.Warn().Err(err).Str("session_id", s.id.String()).Msg("Discarding unreadable session token")
		return "", nil
	}
	return token, nil
}

// Role returns the stored role, or "" when none is stored
func (s *Store) Role(ctx context.Context) (domain.Role, error) {
	rec, err := s.m.load(ctx, s.id)
	if err != nil {
		return "", err
	}
	return rec.Role, nil
}

// Clear drops the token and role and notifies subscribers. Pending
// flashes survive so the landing page can explain what happened.
func (s *Store) Clear(ctx context.Context, reason ClearReason) error {
	err := s.m.mutate(ctx, s.id, func(rec *domain.BrowserSession) error {
		rec.SealedToken = nil
		rec.Role = ""
		return nil
	})
	if err != nil {
		return err
	}

	log.Info().Str("session_id", s.id.String()).Str("reason", string(reason)).Msg("Session cleared")
	s.m.notify(s.id, reason)
	return nil
}

// SetForgotEmail remembers the address a password reset was requested for
func (s *Store) SetForgotEmail(ctx context.Context, email string) error {
	return s.m.mutate(ctx, s.id, func(rec *domain.BrowserSession) error {
		rec.ForgotEmail = email
		return nil
	})
}

func (s *Store) ForgotEmail(ctx context.Context) (string, error) {
	rec, err := s.m.load(ctx, s.id)
	if err != nil {
		return "", err
	}
	return rec.ForgotEmail, nil
}

func (s *Store) ClearForgotEmail(ctx context.Context) error {
	return s.m.mutate(ctx, s.id, func(rec *domain.BrowserSession) error {
		rec.ForgotEmail = ""
		return nil
	})
}

// PushFlash queues a notification for the next rendered page
func (s *Store) PushFlash(ctx context.Context, level domain.FlashLevel, message string) (domain.Flash, error) {
	flash := domain.Flash{ID: uuid.NewString(), Level: level, Message: message}
	err := s.m.mutate(ctx, s.id, func(rec *domain.BrowserSession) error {
		flashes, err := decodeFlashes(rec.Flashes)
		if err != nil {
			return err
		}
		flashes = append(flashes, flash)
		rec.Flashes, err = json.Marshal(flashes)
		return err
	})
	return flash, err
}

// PopFlashes returns and removes every queued notification
func (s *Store) PopFlashes(ctx context.Context) ([]domain.Flash, error) {
	var out []domain.Flash
	err := s.m.mutate(ctx, s.id, func(rec *domain.BrowserSession) error {
		flashes, err := decodeFlashes(rec.Flashes)
		if err != nil {
			return err
		}
		out = flashes
		rec.Flashes = []byte("[]")
		return nil
	})
	return out, err
}

func decodeFlashes(raw []byte) ([]domain.Flash, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var flashes []domain.Flash
	if err := json.Unmarshal(raw, &flashes); err != nil {
		return nil, fmt.Errorf("decode flashes: %w", err)
	}
	return flashes, nil
}
