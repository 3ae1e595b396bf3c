package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/docchat-backend/internal/chunker"
	"github.com/yungbote/docchat-backend/internal/platform/filestore"
	"github.com/yungbote/docchat-backend/internal/platform/logger"
	"github.com/yungbote/docchat-backend/internal/platform/pdfextract"
	"github.com/yungbote/docchat-backend/internal/platform/vectorstore"
	"github.com/yungbote/docchat-backend/internal/repos"
	"github.com/yungbote/docchat-backend/internal/types"
)

const (
	ingestQueueDepth   = 64
	contentPreviewMax  = 200
	contentPreviewTail = "..."
)

// IngestionService runs the extract-chunk-embed-index pipeline for uploaded
// documents. Vectors are written before chunk rows so a completed document
// never references a vector that does not exist; any failure flips the
// document to failed and purges whatever vectors were already written.
type IngestionService interface {
	// Enqueue hands a pending document to the worker pool. It never blocks;
	// a full queue returns false and leaves the document pending.
	Enqueue(documentID uuid.UUID) bool

	// Process runs the pipeline synchronously for one document. A document
	// that no longer exists is a no-op, which makes the delete-while-queued
	// race harmless.
	Process(ctx context.Context, documentID uuid.UUID) error

	StartWorkers(ctx context.Context, n int)
	Stop()
}

type ingestionService struct {
	db        *gorm.DB
	log       *logger.Logger
	documents repos.DocumentRepo
	chunks    repos.DocumentChunkRepo
	store     vectorstore.VectorStore
	indexer   EmbeddingIndexer
	extractor pdfextract.Extractor
	files     filestore.Store
	splitter  *chunker.Chunker

	queue    chan uuid.UUID
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func NewIngestionService(
	db *gorm.DB,
	baseLog *logger.Logger,
	documentRepo repos.DocumentRepo,
	chunkRepo repos.DocumentChunkRepo,
	store vectorstore.VectorStore,
	indexer EmbeddingIndexer,
	extractor pdfextract.Extractor,
	files filestore.Store,
	splitter *chunker.Chunker,
) (IngestionService, error) {
	if baseLog == nil {
		return nil, fmt.Errorf("logger required")
	}
	if db == nil || documentRepo == nil || chunkRepo == nil || store == nil ||
		indexer == nil || extractor == nil || files == nil || splitter == nil {
		return nil, fmt.Errorf("all ingestion dependencies are required")
	}
	return &ingestionService{
		db:        db,
		log:       baseLog.With("service", "IngestionService"),
		documents: documentRepo,
		chunks:    chunkRepo,
		store:     store,
		indexer:   indexer,
		extractor: extractor,
		files:     files,
		splitter:  splitter,
		queue:     make(chan uuid.UUID, ingestQueueDepth),
	}, nil
}

func (s *ingestionService) Enqueue(documentID uuid.UUID) bool {
	select {
	case s.queue <- documentID:
		return true
	default:
		s.log.Warn("ingest queue full, document stays pending", "document_id", documentID)
		return false
	}
}

func (s *ingestionService) StartWorkers(ctx context.Context, n int) {
	for i := 0; i < n; i++ {
		s.wg.Add(1)
		go func(worker int) {
			defer s.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case id, ok := <-s.queue:
					if !ok {
						return
					}
					if err := s.Process(ctx, id); err != nil {
						s.log.Error("document ingestion failed", "worker", worker, "document_id", id, "error", err)
					}
				}
			}
		}(i)
	}
}

func (s *ingestionService) Stop() {
	s.stopOnce.Do(func() { close(s.queue) })
	s.wg.Wait()
}

func (s *ingestionService) Process(ctx context.Context, documentID uuid.UUID) error {
	doc, err := s.documents.GetByID(ctx, nil, documentID)
	if err != nil {
		return err
	}
	if doc == nil {
		s.log.Info("document gone before processing, skipping", "document_id", documentID)
		return nil
	}
	// The same id can sit in the queue twice (a pending duplicate upload
	// re-enqueues it). Only pending rows get processed.
	if doc.ProcessingStatus != types.DocumentStatusPending {
		s.log.Info("document not pending, skipping", "document_id", documentID, "status", doc.ProcessingStatus)
		return nil
	}

	if err := s.documents.UpdateStatus(ctx, nil, doc.ID, types.DocumentStatusProcessing, ""); err != nil {
		return err
	}

	indexed, pageCount, perr := s.runPipeline(ctx, doc)
	if perr != nil {
		s.markFailed(ctx, doc.ID, perr)
		return perr
	}

	// The document may have been deleted while we were embedding. Its vectors
	// were just written, so clean them up and stop.
	current, err := s.documents.GetByID(ctx, nil, doc.ID)
	if err != nil {
		return err
	}
	if current == nil {
		s.log.Info("document deleted during processing, discarding vectors", "document_id", doc.ID)
		if derr := s.store.DeleteByDocument(ctx, doc.ID.String()); derr != nil {
			s.log.Warn("orphan vector cleanup failed", "document_id", doc.ID, "error", derr)
		}
		return nil
	}

	rows := make([]*types.DocumentChunk, 0, len(indexed))
	now := time.Now().UTC()
	for _, item := range indexed {
		rows = append(rows, &types.DocumentChunk{
			ID:             uuid.New(),
			DocumentID:     doc.ID,
			ChunkIndex:     item.Candidate.ChunkIndex,
			PageNumber:     item.Candidate.PageNumber,
			StartOffset:    item.Candidate.StartOffset,
			EndOffset:      item.Candidate.EndOffset,
			ContentPreview: chunkPreview(item.Candidate.Text),
			VectorID:       item.VectorID,
			CreatedAt:      now,
		})
	}
	if err := s.chunks.Create(ctx, nil, rows); err != nil {
		werr := stageErr(StageStorage, err)
		s.markFailed(ctx, doc.ID, werr)
		return werr
	}

	if err := s.documents.MarkCompleted(ctx, nil, doc.ID, len(indexed), pageCount); err != nil {
		return err
	}
	s.log.Info("document ingested", "document_id", doc.ID, "pages", pageCount, "chunks", len(indexed))
	return nil
}

func (s *ingestionService) runPipeline(ctx context.Context, doc *types.Document) ([]IndexedChunk, int, error) {
	data, err := s.files.Load(doc.Filename)
	if err != nil {
		return nil, 0, stageErr(StageStorage, err)
	}

	pages, err := s.extractor.Extract(data)
	if err != nil {
		return nil, 0, stageErr(StageExtraction, err)
	}

	pageTexts := make([]chunker.PageText, 0, len(pages))
	for _, p := range pages {
		pageTexts = append(pageTexts, chunker.PageText{PageNumber: p.PageNumber, Text: p.Text})
	}
	candidates := s.splitter.Split(pageTexts)
	if len(candidates) == 0 {
		return nil, 0, stageErr(StageExtraction, fmt.Errorf("document produced no chunks"))
	}

	indexed, err := s.indexer.IndexChunks(ctx, doc, candidates)
	if err != nil {
		return nil, 0, err
	}

	// Completion barrier: every vector must be queryable before the chunk
	// rows that reference it exist.
	count, err := s.store.CountByDocument(ctx, doc.ID.String())
	if err != nil {
		return nil, 0, stageErr(StageVectorStore, err)
	}
	if count != len(indexed) {
		return nil, 0, stageErr(StageVectorStore,
			fmt.Errorf("vector count mismatch after indexing: expected=%d got=%d", len(indexed), count))
	}
	return indexed, len(pages), nil
}

func (s *ingestionService) markFailed(ctx context.Context, documentID uuid.UUID, cause error) {
	if err := s.documents.UpdateStatus(ctx, nil, documentID, types.DocumentStatusFailed, cause.Error()); err != nil {
		s.log.Error("failed to record ingestion failure", "document_id", documentID, "error", err)
	}
	if err := s.store.DeleteByDocument(ctx, documentID.String()); err != nil {
		s.log.Warn("partial vector cleanup failed", "document_id", documentID, "error", err)
	}
}

func chunkPreview(text string) string {
	runes := []rune(text)
	if len(runes) <= contentPreviewMax {
		return text
	}
	return string(runes[:contentPreviewMax]) + contentPreviewTail
}
