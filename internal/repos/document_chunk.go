package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/docchat-backend/internal/platform/logger"
	"github.com/yungbote/docchat-backend/internal/types"
)

type DocumentChunkRepo interface {
	Create(ctx context.Context, tx *gorm.DB, chunks []*types.DocumentChunk) error
	GetByDocumentID(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) ([]*types.DocumentChunk, error)
	DeleteByDocumentID(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) error
	Count(ctx context.Context, tx *gorm.DB) (int64, error)
	CountByDocumentID(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) (int64, error)
}

type documentChunkRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDocumentChunkRepo(db *gorm.DB, baseLog *logger.Logger) DocumentChunkRepo {
	return &documentChunkRepo{db: db, log: baseLog.With("repo", "DocumentChunkRepo")}
}

func (r *documentChunkRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *documentChunkRepo) Create(ctx context.Context, tx *gorm.DB, chunks []*types.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	// Keep batches small because ContentPreview rows add up
	const batchSize = 100
	return r.conn(tx).WithContext(ctx).CreateInBatches(chunks, batchSize).Error
}

func (r *documentChunkRepo) GetByDocumentID(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) ([]*types.DocumentChunk, error) {
	var chunks []*types.DocumentChunk
	if err := r.conn(tx).WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("chunk_index ASC").
		Find(&chunks).Error; err != nil {
		return nil, err
	}
	return chunks, nil
}

func (r *documentChunkRepo) DeleteByDocumentID(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) error {
	return r.conn(tx).WithContext(ctx).
		Where("document_id = ?", documentID).
		Delete(&types.DocumentChunk{}).Error
}

func (r *documentChunkRepo) Count(ctx context.Context, tx *gorm.DB) (int64, error) {
	var n int64
	err := r.conn(tx).WithContext(ctx).Model(&types.DocumentChunk{}).Count(&n).Error
	return n, err
}

func (r *documentChunkRepo) CountByDocumentID(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) (int64, error) {
	var n int64
	err := r.conn(tx).WithContext(ctx).
		Model(&types.DocumentChunk{}).
		Where("document_id = ?", documentID).
		Count(&n).Error
	return n, err
}
