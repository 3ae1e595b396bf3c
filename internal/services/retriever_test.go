package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/docchat-backend/internal/platform/vectorstore"
)

func basisVec(axis int) []float32 {
	v := make([]float32, testDim)
	v[axis] = 1
	return v
}

func seedVector(t *testing.T, store vectorstore.VectorStore, id string, values []float32, docID string, page, idx int, content string) {
	t.Helper()
	err := store.Upsert(context.Background(), []vectorstore.Vector{{
		ID:     id,
		Values: values,
		Payload: map[string]any{
			vectorstore.PayloadDocumentID: docID,
			vectorstore.PayloadPageNumber: page,
			vectorstore.PayloadChunkIndex: idx,
			vectorstore.PayloadContent:    content,
			vectorstore.PayloadFilename:   "seed.pdf",
		},
	}})
	require.NoError(t, err)
}

func newTestRetriever(t *testing.T, store vectorstore.VectorStore, queryVec []float32) Retriever {
	t.Helper()
	r, err := NewRetriever(newTestLogger(t), &stubIndexer{queryVec: queryVec}, store, RetrieverConfig{
		MaxTopK:  20,
		MinScore: 0.25,
	})
	require.NoError(t, err)
	return r
}

func TestRetrieveOrdersAndFiltersByScore(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	docID := uuid.NewString()

	seedVector(t, store, "vec-exact", basisVec(0), docID, 1, 0, "exact match")
	seedVector(t, store, "vec-mid", []float32{1, 1, 0, 0, 0, 0, 0, 0}, docID, 2, 1, "partial match")
	seedVector(t, store, "vec-weak", []float32{1, 3, 0, 0, 0, 0, 0, 0}, docID, 3, 2, "weak match")
	seedVector(t, store, "vec-orthogonal", basisVec(1), docID, 4, 3, "unrelated")

	r := newTestRetriever(t, store, basisVec(0))
	hits, err := r.Retrieve(ctx, "query", 10, nil)
	require.NoError(t, err)

	// The orthogonal vector scores 0 and falls below the relevance floor.
	require.Len(t, hits, 3)
	assert.Equal(t, "vec-exact", hits[0].VectorID)
	assert.Equal(t, "vec-mid", hits[1].VectorID)
	assert.Equal(t, "vec-weak", hits[2].VectorID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.Greater(t, hits[2].Score, 0.25)

	assert.Equal(t, docID, hits[0].DocumentID)
	assert.Equal(t, 1, hits[0].PageNumber)
	assert.Equal(t, 0, hits[0].ChunkIndex)
	assert.Equal(t, "exact match", hits[0].Content)
	assert.Equal(t, "seed.pdf", hits[0].Filename)
}

func TestRetrieveDocumentFilter(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	docA := uuid.New()
	docB := uuid.New()

	seedVector(t, store, "vec-a", basisVec(0), docA.String(), 1, 0, "from a")
	seedVector(t, store, "vec-b", basisVec(0), docB.String(), 1, 0, "from b")

	r := newTestRetriever(t, store, basisVec(0))

	hits, err := r.Retrieve(ctx, "query", 10, []uuid.UUID{docA})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "vec-a", hits[0].VectorID)

	hits, err = r.Retrieve(ctx, "query", 10, nil)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestRetrieveTieBreaksByVectorID(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	docID := uuid.NewString()

	seedVector(t, store, "vec-b", basisVec(0), docID, 1, 1, "b")
	seedVector(t, store, "vec-a", basisVec(0), docID, 1, 0, "a")

	r := newTestRetriever(t, store, basisVec(0))
	hits, err := r.Retrieve(ctx, "query", 10, nil)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "vec-a", hits[0].VectorID)
	assert.Equal(t, "vec-b", hits[1].VectorID)
}

func TestRetrieveRespectsTopK(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	docID := uuid.NewString()
	for i := 0; i < 5; i++ {
		seedVector(t, store, uuid.NewString(), basisVec(0), docID, 1, i, "content")
	}

	r := newTestRetriever(t, store, basisVec(0))
	hits, err := r.Retrieve(ctx, "query", 3, nil)
	require.NoError(t, err)
	assert.Len(t, hits, 3)
}

func TestRetrieveRejectsBadParameters(t *testing.T) {
	r := newTestRetriever(t, newTestStore(t), basisVec(0))

	tests := []struct {
		name  string
		query string
		topK  int
	}{
		{"empty query", "   ", 5},
		{"zero topK", "query", 0},
		{"negative topK", "query", -1},
		{"topK above max", "query", 21},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Retrieve(context.Background(), tt.query, tt.topK, nil)
			var ipe *InvalidParameterError
			require.ErrorAs(t, err, &ipe)
		})
	}
}

func TestRetrievePropagatesEmbeddingFailure(t *testing.T) {
	store := newTestStore(t)
	r, err := NewRetriever(newTestLogger(t), &stubIndexer{queryErr: assert.AnError}, store, RetrieverConfig{
		MaxTopK:  20,
		MinScore: 0.25,
	})
	require.NoError(t, err)

	_, err = r.Retrieve(context.Background(), "query", 5, nil)
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageEmbedding, se.Stage)
}
