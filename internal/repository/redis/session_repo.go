// Package redis stores browser sessions as JSON values with a Redis TTL
// matching the session expiry.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dom/stay-portal/internal/domain"
	"github.com/dom/stay-portal/internal/repository"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "portal:session:"

type sessionRepository struct {
	client *redis.Client
}

// NewClient parses a redis:// URL and verifies the connection
func NewClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func NewSessionRepository(client *redis.Client) *sessionRepository {
	return &sessionRepository{client: client}
}

func NewRepositories(client *redis.Client) *repository.Repositories {
	return &repository.Repositories{Session: NewSessionRepository(client)}
}

func sessionKey(id uuid.UUID) string {
	return keyPrefix + id.String()
}

func (r *sessionRepository) Get(ctx context.Context, id uuid.UUID) (*domain.BrowserSession, error) {
	data, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	var session domain.BrowserSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("corrupt session %s: %w", id, err)
	}
	return &session, nil
}

func (r *sessionRepository) Upsert(ctx context.Context, session *domain.BrowserSession) error {
	now := time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return r.Delete(ctx, session.ID)
	}

	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, sessionKey(session.ID), data, ttl).Err()
}

func (r *sessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.client.Del(ctx, sessionKey(id)).Err()
}

// DeleteExpired is a no-op; Redis expires keys on its own
func (r *sessionRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}
