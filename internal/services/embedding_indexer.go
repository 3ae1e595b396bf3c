package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/docchat-backend/internal/chunker"
	"github.com/yungbote/docchat-backend/internal/clients/redis"
	"github.com/yungbote/docchat-backend/internal/platform/logger"
	"github.com/yungbote/docchat-backend/internal/platform/vectorstore"
	"github.com/yungbote/docchat-backend/internal/types"
)

// Embedder is the slice of the model client the indexer needs.
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

// IndexedChunk pairs a chunk with the vector id it was written under.
type IndexedChunk struct {
	Candidate chunker.Candidate
	VectorID  string
}

type EmbeddingIndexerConfig struct {
	Model       string
	BatchSize   int
	Workers     int
	MaxAttempts int
}

// EmbeddingIndexer embeds chunk text and writes the vectors, with their
// citation payloads, into the vector store. Indexing a batch twice is safe
// because upserts key on vector id.
type EmbeddingIndexer interface {
	IndexChunks(ctx context.Context, doc *types.Document, chunks []chunker.Candidate) ([]IndexedChunk, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

type embeddingIndexer struct {
	log      *logger.Logger
	embedder Embedder
	store    vectorstore.VectorStore
	cache    *redis.EmbedCache
	cfg      EmbeddingIndexerConfig
}

func NewEmbeddingIndexer(
	baseLog *logger.Logger,
	embedder Embedder,
	store vectorstore.VectorStore,
	cache *redis.EmbedCache,
	cfg EmbeddingIndexerConfig,
) (EmbeddingIndexer, error) {
	if baseLog == nil {
		return nil, fmt.Errorf("logger required")
	}
	if embedder == nil || store == nil {
		return nil, fmt.Errorf("embedder and vector store are required")
	}
	if cfg.BatchSize <= 0 || cfg.Workers <= 0 || cfg.MaxAttempts <= 0 {
		return nil, fmt.Errorf("batch size, workers and max attempts must be positive")
	}
	return &embeddingIndexer{
		log:      baseLog.With("service", "EmbeddingIndexer"),
		embedder: embedder,
		store:    store,
		cache:    cache,
		cfg:      cfg,
	}, nil
}

func (s *embeddingIndexer) IndexChunks(ctx context.Context, doc *types.Document, chunks []chunker.Candidate) ([]IndexedChunk, error) {
	if len(chunks) == 0 {
		return nil, nil
	}
	indexed := make([]IndexedChunk, len(chunks))
	for i, ch := range chunks {
		indexed[i] = IndexedChunk{Candidate: ch, VectorID: uuid.NewString()}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for begin := 0; begin < len(indexed); begin += s.cfg.BatchSize {
		end := begin + s.cfg.BatchSize
		if end > len(indexed) {
			end = len(indexed)
		}
		batch := indexed[begin:end]
		g.Go(func() error {
			return s.indexBatch(gctx, doc, batch)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return indexed, nil
}

func (s *embeddingIndexer) indexBatch(ctx context.Context, doc *types.Document, batch []IndexedChunk) error {
	embeddings := make([][]float32, len(batch))
	var missTexts []string
	var missIdx []int
	for i, item := range batch {
		if vec := s.cache.Get(ctx, s.cfg.Model, item.Candidate.Text); vec != nil {
			embeddings[i] = vec
			continue
		}
		missTexts = append(missTexts, item.Candidate.Text)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) > 0 {
		vecs, err := s.embedWithRetry(ctx, missTexts)
		if err != nil {
			return stageErr(StageEmbedding, err)
		}
		for j, i := range missIdx {
			embeddings[i] = vecs[j]
			s.cache.Put(ctx, s.cfg.Model, batch[i].Candidate.Text, vecs[j])
		}
	}

	vectors := make([]vectorstore.Vector, len(batch))
	for i, item := range batch {
		vectors[i] = vectorstore.Vector{
			ID:     item.VectorID,
			Values: embeddings[i],
			Payload: map[string]any{
				vectorstore.PayloadDocumentID: doc.ID.String(),
				vectorstore.PayloadPageNumber: item.Candidate.PageNumber,
				vectorstore.PayloadChunkIndex: item.Candidate.ChunkIndex,
				vectorstore.PayloadContent:    item.Candidate.Text,
				vectorstore.PayloadFilename:   doc.OriginalFilename,
			},
		}
	}
	if err := s.store.Upsert(ctx, vectors); err != nil {
		return stageErr(StageVectorStore, err)
	}
	return nil
}

func (s *embeddingIndexer) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		vecs, err := s.embedder.Embed(ctx, texts)
		if err == nil {
			if len(vecs) != len(texts) {
				return nil, fmt.Errorf("embedder returned %d vectors for %d inputs", len(vecs), len(texts))
			}
			return vecs, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		if attempt < s.cfg.MaxAttempts {
			s.log.Warn("embed batch failed, retrying", "attempt", attempt, "error", err)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * 250 * time.Millisecond):
			}
		}
	}
	return nil, lastErr
}

func (s *embeddingIndexer) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if vec := s.cache.Get(ctx, s.cfg.Model, text); vec != nil {
		return vec, nil
	}
	vecs, err := s.embedWithRetry(ctx, []string{text})
	if err != nil {
		return nil, stageErr(StageEmbedding, err)
	}
	s.cache.Put(ctx, s.cfg.Model, text, vecs[0])
	return vecs[0], nil
}
