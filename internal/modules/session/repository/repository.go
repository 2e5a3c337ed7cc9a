package repository

import (
	"context"

	"gorm.io/gorm"

	"pkujx.cn/library/internal/entity"
)

type SessionRepository interface {
	Create(ctx context.Context, session *entity.Session) error
	// FindActive returns the session when it exists and expiry > nowMs, or nil.
	FindActive(ctx context.Context, id string, nowMs int64) (*entity.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteByUser(ctx context.Context, userID uint) error
	PurgeExpired(ctx context.Context, nowMs int64) (int64, error)
}

type sessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(ctx context.Context, session *entity.Session) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *sessionRepository) FindActive(ctx context.Context, id string, nowMs int64) (*entity.Session, error) {
	// Find with a slice avoids gorm's "record not found" noise for the common miss.
	var sessions []entity.Session
	if err := r.db.WithContext(ctx).
		Where("id = ? AND expiry > ?", id, nowMs).
		Limit(1).
		Find(&sessions).Error; err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, nil
	}
	return &sessions[0], nil
}

func (r *sessionRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&entity.Session{}, "id = ?", id).Error
}

func (r *sessionRepository) DeleteByUser(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&entity.Session{}).Error
}

func (r *sessionRepository) PurgeExpired(ctx context.Context, nowMs int64) (int64, error) {
	res := r.db.WithContext(ctx).Where("expiry <= ?", nowMs).Delete(&entity.Session{})
	return res.RowsAffected, res.Error
}
