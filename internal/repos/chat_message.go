package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/docchat-backend/internal/platform/logger"
	"github.com/yungbote/docchat-backend/internal/types"
)

type ChatMessageRepo interface {
	Create(ctx context.Context, tx *gorm.DB, message *types.ChatMessage) error
	ListBySessionID(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]*types.ChatMessage, error)
	CountBySessionID(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (int64, error)
	Count(ctx context.Context, tx *gorm.DB) (int64, error)
}

type chatMessageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChatMessageRepo(db *gorm.DB, baseLog *logger.Logger) ChatMessageRepo {
	return &chatMessageRepo{db: db, log: baseLog.With("repo", "ChatMessageRepo")}
}

func (r *chatMessageRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *chatMessageRepo) Create(ctx context.Context, tx *gorm.DB, message *types.ChatMessage) error {
	return r.conn(tx).WithContext(ctx).Create(message).Error
}

func (r *chatMessageRepo) ListBySessionID(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]*types.ChatMessage, error) {
	var messages []*types.ChatMessage
	if err := r.conn(tx).WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *chatMessageRepo) CountBySessionID(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (int64, error) {
	var n int64
	err := r.conn(tx).WithContext(ctx).
		Model(&types.ChatMessage{}).
		Where("session_id = ?", sessionID).
		Count(&n).Error
	return n, err
}

func (r *chatMessageRepo) Count(ctx context.Context, tx *gorm.DB) (int64, error) {
	var n int64
	err := r.conn(tx).WithContext(ctx).Model(&types.ChatMessage{}).Count(&n).Error
	return n, err
}
