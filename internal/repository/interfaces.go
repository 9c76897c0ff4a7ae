package repository

import (
	"context"
	"errors"
	"time"

	"github.com/dom/stay-portal/internal/domain"
	"github.com/google/uuid"
)

// ErrNotFound is returned when a session record does not exist or has expired
var ErrNotFound = errors.New("session not found")

type SessionRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.BrowserSession, error)
	Upsert(ctx context.Context, session *domain.BrowserSession) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type Repositories struct {
	Session SessionRepository
}
