package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/docchat-backend/internal/platform/logger"
	"github.com/yungbote/docchat-backend/internal/types"
)

type QueryMetricRepo interface {
	Create(ctx context.Context, tx *gorm.DB, metric *types.QueryMetric) error
	LatestBySessionID(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (*types.QueryMetric, error)
	SetFeedback(ctx context.Context, tx *gorm.DB, id uuid.UUID, rating int) error
}

type queryMetricRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQueryMetricRepo(db *gorm.DB, baseLog *logger.Logger) QueryMetricRepo {
	return &queryMetricRepo{db: db, log: baseLog.With("repo", "QueryMetricRepo")}
}

func (r *queryMetricRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *queryMetricRepo) Create(ctx context.Context, tx *gorm.DB, metric *types.QueryMetric) error {
	return r.conn(tx).WithContext(ctx).Create(metric).Error
}

func (r *queryMetricRepo) LatestBySessionID(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (*types.QueryMetric, error) {
	var metric types.QueryMetric
	err := r.conn(tx).WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		First(&metric).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &metric, nil
}

func (r *queryMetricRepo) SetFeedback(ctx context.Context, tx *gorm.DB, id uuid.UUID, rating int) error {
	return r.conn(tx).WithContext(ctx).
		Model(&types.QueryMetric{}).
		Where("id = ?", id).
		Update("user_feedback", rating).Error
}
