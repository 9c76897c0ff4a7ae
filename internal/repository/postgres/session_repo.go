package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/dom/stay-portal/internal/domain"
	"github.com/dom/stay-portal/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type sessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *sessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Get(ctx context.Context, id uuid.UUID) (*domain.BrowserSession, error) {
	var session domain.BrowserSession
	err := r.db.WithContext(ctx).
		Where("id = ? AND expires_at > ?", id, time.Now()).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) Upsert(ctx context.Context, session *domain.BrowserSession) error {
	if len(session.Flashes) == 0 {
		session.Flashes = []byte("[]")
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"sealed_token", "role", "forgot_email", "flashes", "expires_at", "updated_at"}),
	}).Create(session).Error
}

func (r *sessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.BrowserSession{}, "id = ?", id).Error
}

func (r *sessionRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Delete(&domain.BrowserSession{}, "expires_at <= ?", before)
	return res.RowsAffected, res.Error
}
