// Package memory keeps browser sessions in process memory. Sessions do not
// survive a restart; it backs tests, the CLI and single-node development.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dom/stay-portal/internal/domain"
	"github.com/dom/stay-portal/internal/repository"
	"github.com/google/uuid"
)

type sessionRepository struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]domain.BrowserSession
}

func NewSessionRepository() *sessionRepository {
	return &sessionRepository{sessions: make(map[uuid.UUID]domain.BrowserSession)}
}

func NewRepositories() *repository.Repositories {
	return &repository.Repositories{Session: NewSessionRepository()}
}

func (r *sessionRepository) Get(ctx context.Context, id uuid.UUID) (*domain.BrowserSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok || !s.ExpiresAt.After(time.Now()) {
		return nil, repository.ErrNotFound
	}
	return copySession(&s), nil
}

func (r *sessionRepository) Upsert(ctx context.Context, session *domain.BrowserSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if existing, ok := r.sessions[session.ID]; ok {
		session.CreatedAt = existing.CreatedAt
	} else if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now
	r.sessions[session.ID] = *copySession(session)
	return nil
}

func (r *sessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

func (r *sessionRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, s := range r.sessions {
		if !s.ExpiresAt.After(before) {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}

func copySession(s *domain.BrowserSession) *domain.BrowserSession {
	c := *s
	c.SealedToken = append([]byte(nil), s.SealedToken...)
	c.Flashes = append([]byte(nil), s.Flashes...)
	return &c
}
