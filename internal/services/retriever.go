package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/docchat-backend/internal/platform/logger"
	"github.com/yungbote/docchat-backend/internal/platform/vectorstore"
)

// RetrievedHit is one scored chunk with everything a citation needs.
type RetrievedHit struct {
	VectorID   string
	Score      float64
	DocumentID string
	Filename   string
	PageNumber int
	ChunkIndex int
	Content    string
}

type RetrieverConfig struct {
	MaxTopK  int
	MinScore float64
}

// Retriever embeds the query and returns the chunks scoring at or above the
// relevance floor, best first. An out-of-range topK is rejected, not clamped.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int, documentIDs []uuid.UUID) ([]RetrievedHit, error)
}

type retriever struct {
	log     *logger.Logger
	indexer EmbeddingIndexer
	store   vectorstore.VectorStore
	cfg     RetrieverConfig
}

func NewRetriever(baseLog *logger.Logger, indexer EmbeddingIndexer, store vectorstore.VectorStore, cfg RetrieverConfig) (Retriever, error) {
	if baseLog == nil {
		return nil, fmt.Errorf("logger required")
	}
	if indexer == nil || store == nil {
		return nil, fmt.Errorf("indexer and vector store are required")
	}
	if cfg.MaxTopK <= 0 {
		return nil, fmt.Errorf("max topK must be positive")
	}
	return &retriever{
		log:     baseLog.With("service", "Retriever"),
		indexer: indexer,
		store:   store,
		cfg:     cfg,
	}, nil
}

func (s *retriever) Retrieve(ctx context.Context, query string, topK int, documentIDs []uuid.UUID) ([]RetrievedHit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, invalidParam("query", "must not be empty")
	}
	if topK < 1 || topK > s.cfg.MaxTopK {
		return nil, invalidParam("top_k", fmt.Sprintf("must be between 1 and %d, got %d", s.cfg.MaxTopK, topK))
	}

	qvec, err := s.indexer.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	filter := make([]string, 0, len(documentIDs))
	for _, id := range documentIDs {
		filter = append(filter, id.String())
	}
	matches, err := s.store.Query(ctx, qvec, topK, filter)
	if err != nil {
		return nil, stageErr(StageVectorStore, err)
	}

	hits := make([]RetrievedHit, 0, len(matches))
	for _, m := range matches {
		if m.Score < s.cfg.MinScore {
			continue
		}
		hits = append(hits, RetrievedHit{
			VectorID:   m.ID,
			Score:      m.Score,
			DocumentID: payloadString(m.Payload, vectorstore.PayloadDocumentID),
			Filename:   payloadString(m.Payload, vectorstore.PayloadFilename),
			PageNumber: payloadInt(m.Payload, vectorstore.PayloadPageNumber),
			ChunkIndex: payloadInt(m.Payload, vectorstore.PayloadChunkIndex),
			Content:    payloadString(m.Payload, vectorstore.PayloadContent),
		})
	}
	return hits, nil
}

func payloadString(p map[string]any, key string) string {
	v, _ := p[key].(string)
	return v
}

// payloadInt tolerates the numeric types both store providers produce; JSON
// decoding yields float64 while the in-memory store keeps native ints.
func payloadInt(p map[string]any, key string) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
