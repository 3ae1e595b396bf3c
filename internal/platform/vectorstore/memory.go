package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/yungbote/docchat-backend/internal/platform/logger"
)

type memoryStore struct {
	log *logger.Logger
	dim int

	mu      sync.RWMutex
	entries map[string]Vector
}

// NewMemoryStore returns an exact cosine-similarity store held in process
// memory. It backs local development and tests; dim is enforced on every
// write and query the same way the remote providers enforce it.
func NewMemoryStore(log *logger.Logger, dim int) (VectorStore, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if dim <= 0 {
		return nil, fmt.Errorf("vector dimension must be positive, got %d", dim)
	}
	return &memoryStore{
		log:     log.With("service", "MemoryVectorStore"),
		dim:     dim,
		entries: make(map[string]Vector),
	}, nil
}

func (s *memoryStore) Upsert(ctx context.Context, vectors []Vector) error {
	for _, v := range vectors {
		if v.ID == "" {
			return fmt.Errorf("vector id is required")
		}
		if len(v.Values) != s.dim {
			return fmt.Errorf("vector %q dimension mismatch: expected=%d got=%d", v.ID, s.dim, len(v.Values))
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range vectors {
		s.entries[v.ID] = v
	}
	return nil
}

func (s *memoryStore) Query(ctx context.Context, q []float32, topK int, documentIDs []string) ([]Match, error) {
	if len(q) != s.dim {
		return nil, fmt.Errorf("query vector dimension mismatch: expected=%d got=%d", s.dim, len(q))
	}
	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive, got %d", topK)
	}

	var allowed map[string]struct{}
	if len(documentIDs) > 0 {
		allowed = make(map[string]struct{}, len(documentIDs))
		for _, id := range documentIDs {
			allowed[id] = struct{}{}
		}
	}

	s.mu.RLock()
	matches := make([]Match, 0, len(s.entries))
	for _, v := range s.entries {
		if allowed != nil {
			docID, _ := v.Payload[PayloadDocumentID].(string)
			if _, ok := allowed[docID]; !ok {
				continue
			}
		}
		matches = append(matches, Match{
			ID:      v.ID,
			Score:   cosine(q, v.Values),
			Payload: v.Payload,
		})
	}
	s.mu.RUnlock()

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score == matches[j].Score {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (s *memoryStore) DeleteIDs(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.entries, id)
	}
	return nil
}

func (s *memoryStore) DeleteByDocument(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, v := range s.entries {
		if docID, _ := v.Payload[PayloadDocumentID].(string); docID == documentID {
			delete(s.entries, id)
		}
	}
	return nil
}

func (s *memoryStore) CountByDocument(ctx context.Context, documentID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, v := range s.entries {
		if docID, _ := v.Payload[PayloadDocumentID].(string); docID == documentID {
			n++
		}
	}
	return n, nil
}

func (s *memoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
