package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/docchat-backend/internal/platform/logger"
)

const testDim = 4

func newStore(t *testing.T) VectorStore {
	t.Helper()
	log, err := logger.New("development")
	require.NoError(t, err)
	store, err := NewMemoryStore(log, testDim)
	require.NoError(t, err)
	return store
}

func vec(id, docID string, values ...float32) Vector {
	return Vector{
		ID:     id,
		Values: values,
		Payload: map[string]any{
			PayloadDocumentID: docID,
			PayloadContent:    "content for " + id,
		},
	}
}

func TestMemoryStoreUpsertReplacesExistingID(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.Upsert(ctx, []Vector{vec("vec-1", "doc-a", 1, 0, 0, 0)}))
	require.NoError(t, store.Upsert(ctx, []Vector{vec("vec-1", "doc-b", 0, 1, 0, 0)}))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "re-upserting an id must not add an entry")

	// The stored vector and payload are the latest write: a query along the
	// second axis scores 1.0, along the first axis 0.0.
	matches, err := store.Query(ctx, []float32{0, 1, 0, 0}, 10, nil)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "vec-1", matches[0].ID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-9)
	assert.Equal(t, "doc-b", matches[0].Payload[PayloadDocumentID])

	byDoc, err := store.CountByDocument(ctx, "doc-a")
	require.NoError(t, err)
	assert.Zero(t, byDoc, "the old payload must be gone")
}

func TestMemoryStoreRejectsBadWrites(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	err := store.Upsert(ctx, []Vector{vec("", "doc-a", 1, 0, 0, 0)})
	assert.Error(t, err)

	err = store.Upsert(ctx, []Vector{vec("vec-1", "doc-a", 1, 0)})
	assert.Error(t, err)

	// A rejected batch writes nothing.
	count, cerr := store.Count(ctx)
	require.NoError(t, cerr)
	assert.Zero(t, count)
}

func TestMemoryStoreQueryRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	_, err := store.Query(ctx, []float32{1, 0}, 5, nil)
	assert.Error(t, err)

	_, err = store.Query(ctx, []float32{1, 0, 0, 0}, 0, nil)
	assert.Error(t, err)
}

func TestMemoryStoreDeleteByDocument(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.Upsert(ctx, []Vector{
		vec("vec-1", "doc-a", 1, 0, 0, 0),
		vec("vec-2", "doc-a", 0, 1, 0, 0),
		vec("vec-3", "doc-b", 0, 0, 1, 0),
	}))

	require.NoError(t, store.DeleteByDocument(ctx, "doc-a"))

	byDoc, err := store.CountByDocument(ctx, "doc-a")
	require.NoError(t, err)
	assert.Zero(t, byDoc)

	remaining, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)

	matches, err := store.Query(ctx, []float32{0, 0, 1, 0}, 10, nil)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "vec-3", matches[0].ID)
}

func TestMemoryStoreDeleteIDs(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.Upsert(ctx, []Vector{
		vec("vec-1", "doc-a", 1, 0, 0, 0),
		vec("vec-2", "doc-a", 0, 1, 0, 0),
	}))

	require.NoError(t, store.DeleteIDs(ctx, []string{"vec-1", "never-existed"}))

	byDoc, err := store.CountByDocument(ctx, "doc-a")
	require.NoError(t, err)
	assert.Equal(t, 1, byDoc)
}
