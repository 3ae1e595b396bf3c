package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/docchat-backend/internal/platform/filestore"
	"github.com/yungbote/docchat-backend/internal/platform/logger"
	"github.com/yungbote/docchat-backend/internal/platform/vectorstore"
	"github.com/yungbote/docchat-backend/internal/repos"
	"github.com/yungbote/docchat-backend/internal/types"
)

type DocumentServiceConfig struct {
	MaxFileSizeBytes int64
}

// DocumentStats mirrors the shape the stats endpoint serves.
type DocumentStats struct {
	TotalDocuments     int64
	CompletedDocuments int64
	FailedDocuments    int64
	PendingDocuments   int64
	TotalChunks        int64
	VectorCount        int
	TotalSessions      int64
	TotalMessages      int64
}

type DocumentService interface {
	// Upload deduplicates by content hash. Re-uploading content that already
	// completed (or is in flight) returns the existing document with
	// duplicate=true; re-uploading content whose previous run failed resets
	// that row and runs the pipeline again.
	Upload(ctx context.Context, originalFilename string, data []byte) (doc *types.Document, duplicate bool, err error)

	List(ctx context.Context) ([]*types.Document, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Document, error)
	GetChunks(ctx context.Context, id uuid.UUID) ([]*types.DocumentChunk, error)

	// Delete removes the relational rows before the vectors so chunk rows
	// never outlive their vectors. Deleting mid-processing is allowed; the
	// pipeline notices the missing row and discards its output.
	Delete(ctx context.Context, id uuid.UUID) error

	Stats(ctx context.Context) (DocumentStats, error)
}

type documentService struct {
	db        *gorm.DB
	log       *logger.Logger
	documents repos.DocumentRepo
	chunks    repos.DocumentChunkRepo
	sessions  repos.ChatSessionRepo
	messages  repos.ChatMessageRepo
	store     vectorstore.VectorStore
	files     filestore.Store
	ingestion IngestionService
	cfg       DocumentServiceConfig
}

func NewDocumentService(
	db *gorm.DB,
	baseLog *logger.Logger,
	documentRepo repos.DocumentRepo,
	chunkRepo repos.DocumentChunkRepo,
	sessionRepo repos.ChatSessionRepo,
	messageRepo repos.ChatMessageRepo,
	store vectorstore.VectorStore,
	files filestore.Store,
	ingestion IngestionService,
	cfg DocumentServiceConfig,
) (DocumentService, error) {
	if baseLog == nil {
		return nil, fmt.Errorf("logger required")
	}
	if db == nil || documentRepo == nil || chunkRepo == nil || sessionRepo == nil ||
		messageRepo == nil || store == nil || files == nil || ingestion == nil {
		return nil, fmt.Errorf("all document service dependencies are required")
	}
	if cfg.MaxFileSizeBytes <= 0 {
		return nil, fmt.Errorf("max file size must be positive")
	}
	return &documentService{
		db:        db,
		log:       baseLog.With("service", "DocumentService"),
		documents: documentRepo,
		chunks:    chunkRepo,
		sessions:  sessionRepo,
		messages:  messageRepo,
		store:     store,
		files:     files,
		ingestion: ingestion,
		cfg:       cfg,
	}, nil
}

func (s *documentService) Upload(ctx context.Context, originalFilename string, data []byte) (*types.Document, bool, error) {
	name := strings.TrimSpace(originalFilename)
	if name == "" {
		return nil, false, invalidParam("filename", "must not be empty")
	}
	if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		return nil, false, invalidParam("filename", "only PDF files are supported")
	}
	if len(data) == 0 {
		return nil, false, invalidParam("file", "must not be empty")
	}
	if int64(len(data)) > s.cfg.MaxFileSizeBytes {
		return nil, false, invalidParam("file",
			fmt.Sprintf("exceeds maximum size of %d bytes", s.cfg.MaxFileSizeBytes))
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	existing, err := s.documents.GetByContentHash(ctx, nil, hash)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		if existing.ProcessingStatus != types.DocumentStatusFailed {
			s.log.Info("duplicate upload", "document_id", existing.ID, "status", existing.ProcessingStatus)
			// A pending row may have been dropped from the queue (queue full,
			// or a restart emptied it). Re-uploading is the retry path, so
			// hand it to the workers again; Process skips rows that are
			// already past pending.
			if existing.ProcessingStatus == types.DocumentStatusPending {
				s.enqueue(existing.ID)
			}
			return existing, true, nil
		}
		return s.reprocessFailed(ctx, existing, name, data)
	}

	now := time.Now().UTC()
	doc := &types.Document{
		ID:               uuid.New(),
		OriginalFilename: name,
		FileSize:         int64(len(data)),
		ContentHash:      hash,
		ProcessingStatus: types.DocumentStatusPending,
		UploadTimestamp:  now,
		UpdatedAt:        now,
	}
	doc.Filename = doc.ID.String() + ".pdf"

	if _, err := s.files.Save(doc.Filename, data); err != nil {
		return nil, false, stageErr(StageStorage, err)
	}
	if err := s.documents.Create(ctx, nil, doc); err != nil {
		return nil, false, err
	}
	s.enqueue(doc.ID)
	return doc, false, nil
}

// enqueue hands the document to the ingestion workers. A full queue is not an
// upload error; the row stays pending and the next upload of the same content
// queues it again.
func (s *documentService) enqueue(id uuid.UUID) {
	if !s.ingestion.Enqueue(id) {
		s.log.Warn("ingest queue full, document left pending", "document_id", id)
	}
}

// reprocessFailed purges what the failed run left behind, points the row at
// the fresh payload and queues it again.
func (s *documentService) reprocessFailed(ctx context.Context, doc *types.Document, name string, data []byte) (*types.Document, bool, error) {
	if err := s.chunks.DeleteByDocumentID(ctx, nil, doc.ID); err != nil {
		return nil, false, err
	}
	if err := s.store.DeleteByDocument(ctx, doc.ID.String()); err != nil {
		return nil, false, stageErr(StageVectorStore, err)
	}
	if _, err := s.files.Save(doc.Filename, data); err != nil {
		return nil, false, stageErr(StageStorage, err)
	}
	if err := s.documents.ResetForReprocessing(ctx, nil, doc.ID, doc.Filename, name, int64(len(data))); err != nil {
		return nil, false, err
	}
	refreshed, err := s.documents.GetByID(ctx, nil, doc.ID)
	if err != nil {
		return nil, false, err
	}
	if refreshed == nil {
		return nil, false, ErrDocumentNotFound
	}
	s.enqueue(doc.ID)
	s.log.Info("failed document queued for reprocessing", "document_id", doc.ID)
	return refreshed, false, nil
}

func (s *documentService) List(ctx context.Context) ([]*types.Document, error) {
	return s.documents.List(ctx, nil)
}

func (s *documentService) Get(ctx context.Context, id uuid.UUID) (*types.Document, error) {
	doc, err := s.documents.GetByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

func (s *documentService) GetChunks(ctx context.Context, id uuid.UUID) ([]*types.DocumentChunk, error) {
	doc, err := s.documents.GetByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}
	return s.chunks.GetByDocumentID(ctx, nil, id)
}

func (s *documentService) Delete(ctx context.Context, id uuid.UUID) error {
	doc, err := s.documents.GetByID(ctx, nil, id)
	if err != nil {
		return err
	}
	if doc == nil {
		return ErrDocumentNotFound
	}
	if err := s.chunks.DeleteByDocumentID(ctx, nil, id); err != nil {
		return err
	}
	if err := s.documents.Delete(ctx, nil, id); err != nil {
		return err
	}
	if err := s.store.DeleteByDocument(ctx, id.String()); err != nil {
		return stageErr(StageVectorStore, err)
	}
	if err := s.files.Delete(doc.Filename); err != nil {
		s.log.Warn("stored file cleanup failed", "document_id", id, "error", err)
	}
	s.log.Info("document deleted", "document_id", id)
	return nil
}

func (s *documentService) Stats(ctx context.Context) (DocumentStats, error) {
	var stats DocumentStats
	var err error
	if stats.TotalDocuments, err = s.documents.Count(ctx, nil); err != nil {
		return stats, err
	}
	if stats.CompletedDocuments, err = s.documents.CountByStatus(ctx, nil, types.DocumentStatusCompleted); err != nil {
		return stats, err
	}
	if stats.FailedDocuments, err = s.documents.CountByStatus(ctx, nil, types.DocumentStatusFailed); err != nil {
		return stats, err
	}
	if stats.PendingDocuments, err = s.documents.CountByStatus(ctx, nil, types.DocumentStatusPending); err != nil {
		return stats, err
	}
	if stats.TotalChunks, err = s.chunks.Count(ctx, nil); err != nil {
		return stats, err
	}
	if stats.VectorCount, err = s.store.Count(ctx); err != nil {
		return stats, stageErr(StageVectorStore, err)
	}
	if stats.TotalSessions, err = s.sessions.Count(ctx, nil); err != nil {
		return stats, err
	}
	if stats.TotalMessages, err = s.messages.Count(ctx, nil); err != nil {
		return stats, err
	}
	return stats, nil
}
