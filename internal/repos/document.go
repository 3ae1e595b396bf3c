package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/docchat-backend/internal/platform/logger"
	"github.com/yungbote/docchat-backend/internal/types"
)

type DocumentRepo interface {
	Create(ctx context.Context, tx *gorm.DB, doc *types.Document) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Document, error)
	GetByContentHash(ctx context.Context, tx *gorm.DB, hash string) (*types.Document, error)
	List(ctx context.Context, tx *gorm.DB) ([]*types.Document, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status, errorMessage string) error
	MarkCompleted(ctx context.Context, tx *gorm.DB, id uuid.UUID, chunkCount, pageCount int) error
	ResetForReprocessing(ctx context.Context, tx *gorm.DB, id uuid.UUID, filename, originalFilename string, fileSize int64) error
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	Count(ctx context.Context, tx *gorm.DB) (int64, error)
	CountByStatus(ctx context.Context, tx *gorm.DB, status string) (int64, error)
}

type documentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDocumentRepo(db *gorm.DB, baseLog *logger.Logger) DocumentRepo {
	return &documentRepo{db: db, log: baseLog.With("repo", "DocumentRepo")}
}

func (r *documentRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *documentRepo) Create(ctx context.Context, tx *gorm.DB, doc *types.Document) error {
	return r.conn(tx).WithContext(ctx).Create(doc).Error
}

func (r *documentRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Document, error) {
	var doc types.Document
	err := r.conn(tx).WithContext(ctx).Where("id = ?", id).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepo) GetByContentHash(ctx context.Context, tx *gorm.DB, hash string) (*types.Document, error) {
	var doc types.Document
	err := r.conn(tx).WithContext(ctx).Where("content_hash = ?", hash).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepo) List(ctx context.Context, tx *gorm.DB) ([]*types.Document, error) {
	var docs []*types.Document
	if err := r.conn(tx).WithContext(ctx).
		Order("upload_timestamp DESC").
		Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *documentRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status, errorMessage string) error {
	return r.conn(tx).WithContext(ctx).
		Model(&types.Document{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"processing_status": status,
			"error_message":     errorMessage,
			"updated_at":        time.Now().UTC(),
		}).Error
}

func (r *documentRepo) MarkCompleted(ctx context.Context, tx *gorm.DB, id uuid.UUID, chunkCount, pageCount int) error {
	return r.conn(tx).WithContext(ctx).
		Model(&types.Document{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"processing_status": types.DocumentStatusCompleted,
			"error_message":     "",
			"chunk_count":       chunkCount,
			"page_count":        pageCount,
			"updated_at":        time.Now().UTC(),
		}).Error
}

// ResetForReprocessing returns a failed document to pending so a re-upload of
// the same content can run the pipeline again on the same row.
func (r *documentRepo) ResetForReprocessing(ctx context.Context, tx *gorm.DB, id uuid.UUID, filename, originalFilename string, fileSize int64) error {
	return r.conn(tx).WithContext(ctx).
		Model(&types.Document{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"processing_status": types.DocumentStatusPending,
			"error_message":     "",
			"chunk_count":       0,
			"page_count":        0,
			"filename":          filename,
			"original_filename": originalFilename,
			"file_size":         fileSize,
			"updated_at":        time.Now().UTC(),
		}).Error
}

func (r *documentRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	return r.conn(tx).WithContext(ctx).Where("id = ?", id).Delete(&types.Document{}).Error
}

func (r *documentRepo) Count(ctx context.Context, tx *gorm.DB) (int64, error) {
	var n int64
	err := r.conn(tx).WithContext(ctx).Model(&types.Document{}).Count(&n).Error
	return n, err
}

func (r *documentRepo) CountByStatus(ctx context.Context, tx *gorm.DB, status string) (int64, error) {
	var n int64
	err := r.conn(tx).WithContext(ctx).
		Model(&types.Document{}).
		Where("processing_status = ?", status).
		Count(&n).Error
	return n, err
}
