package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/docchat-backend/internal/platform/pdfextract"
	"github.com/yungbote/docchat-backend/internal/platform/vectorstore"
	"github.com/yungbote/docchat-backend/internal/repos"
	"github.com/yungbote/docchat-backend/internal/types"
)

type ingestionFixture struct {
	svc       IngestionService
	db        *gorm.DB
	documents repos.DocumentRepo
	chunks    repos.DocumentChunkRepo
	store     vectorstore.VectorStore
	files     *memFileStore
}

func newIngestionFixture(t *testing.T, embedder Embedder, extractor pdfextract.Extractor) *ingestionFixture {
	t.Helper()
	log := newTestLogger(t)
	db := newTestDB(t)
	store := newTestStore(t)
	files := newMemFileStore()
	documents := repos.NewDocumentRepo(db, log)
	chunks := repos.NewDocumentChunkRepo(db, log)
	indexer := newTestIndexer(t, embedder, store)

	svc, err := NewIngestionService(db, log, documents, chunks, store, indexer, extractor, files, newTestChunker(t))
	require.NoError(t, err)
	return &ingestionFixture{
		svc:       svc,
		db:        db,
		documents: documents,
		chunks:    chunks,
		store:     store,
		files:     files,
	}
}

func (f *ingestionFixture) createDocument(t *testing.T, payload string) *types.Document {
	t.Helper()
	now := time.Now().UTC()
	doc := &types.Document{
		ID:               uuid.New(),
		OriginalFilename: "upload.pdf",
		FileSize:         int64(len(payload)),
		ContentHash:      uuid.NewString(),
		ProcessingStatus: types.DocumentStatusPending,
		UploadTimestamp:  now,
		UpdatedAt:        now,
	}
	doc.Filename = doc.ID.String() + ".pdf"
	require.NoError(t, f.documents.Create(context.Background(), nil, doc))
	_, err := f.files.Save(doc.Filename, []byte(payload))
	require.NoError(t, err)
	return doc
}

func TestProcessCompletesDocument(t *testing.T) {
	ctx := context.Background()
	payload := "two-page-doc"
	extractor := &fakeExtractor{pages: map[string][]pdfextract.Page{
		payload: {
			{PageNumber: 1, Text: "A short first page."},
			{PageNumber: 2, Text: strings.Repeat("Second page sentence. ", 120)},
		},
	}}
	f := newIngestionFixture(t, &fakeEmbedder{}, extractor)
	doc := f.createDocument(t, payload)

	require.NoError(t, f.svc.Process(ctx, doc.ID))

	updated, err := f.documents.GetByID(ctx, nil, doc.ID)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, types.DocumentStatusCompleted, updated.ProcessingStatus)
	assert.Empty(t, updated.ErrorMessage)
	assert.Equal(t, 2, updated.PageCount)
	assert.Greater(t, updated.ChunkCount, 1)

	rows, err := f.chunks.GetByDocumentID(ctx, nil, doc.ID)
	require.NoError(t, err)
	require.Len(t, rows, updated.ChunkCount)
	for i, row := range rows {
		assert.Equal(t, i, row.ChunkIndex)
		assert.NotEmpty(t, row.VectorID)
		assert.NotEmpty(t, row.ContentPreview)
		assert.LessOrEqual(t, len([]rune(row.ContentPreview)), contentPreviewMax+len(contentPreviewTail))
	}

	vectors, err := f.store.CountByDocument(ctx, doc.ID.String())
	require.NoError(t, err)
	assert.Equal(t, updated.ChunkCount, vectors)
}

func TestProcessMissingDocumentIsNoOp(t *testing.T) {
	f := newIngestionFixture(t, &fakeEmbedder{}, &fakeExtractor{})
	require.NoError(t, f.svc.Process(context.Background(), uuid.New()))
}

func TestProcessExtractionFailure(t *testing.T) {
	ctx := context.Background()
	extractor := &fakeExtractor{err: &pdfextract.ExtractionError{
		Code:    pdfextract.ErrorCodeNoText,
		Message: "document contains no extractable text",
	}}
	f := newIngestionFixture(t, &fakeEmbedder{}, extractor)
	doc := f.createDocument(t, "scanned-image-pdf")

	err := f.svc.Process(ctx, doc.ID)
	require.Error(t, err)
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageExtraction, se.Stage)

	updated, gerr := f.documents.GetByID(ctx, nil, doc.ID)
	require.NoError(t, gerr)
	assert.Equal(t, types.DocumentStatusFailed, updated.ProcessingStatus)
	assert.Contains(t, updated.ErrorMessage, "no extractable text")

	vectors, verr := f.store.CountByDocument(ctx, doc.ID.String())
	require.NoError(t, verr)
	assert.Zero(t, vectors)
}

func TestProcessEmbeddingFailurePurgesVectors(t *testing.T) {
	ctx := context.Background()
	f := newIngestionFixture(t, &fakeEmbedder{fail: 100}, &fakeExtractor{})
	doc := f.createDocument(t, "Plenty of text on one page.")

	err := f.svc.Process(ctx, doc.ID)
	require.Error(t, err)

	updated, gerr := f.documents.GetByID(ctx, nil, doc.ID)
	require.NoError(t, gerr)
	assert.Equal(t, types.DocumentStatusFailed, updated.ProcessingStatus)
	assert.NotEmpty(t, updated.ErrorMessage)

	vectors, verr := f.store.CountByDocument(ctx, doc.ID.String())
	require.NoError(t, verr)
	assert.Zero(t, vectors)

	rows, rerr := f.chunks.GetByDocumentID(ctx, nil, doc.ID)
	require.NoError(t, rerr)
	assert.Empty(t, rows)
}

func TestProcessDeletedMidFlightDiscardsOutput(t *testing.T) {
	ctx := context.Background()
	var f *ingestionFixture
	var doc *types.Document
	extractor := &fakeExtractor{}
	extractor.onExtract = func() {
		// Simulates a concurrent delete landing while the pipeline runs.
		require.NoError(t, f.documents.Delete(ctx, nil, doc.ID))
	}
	f = newIngestionFixture(t, &fakeEmbedder{}, extractor)
	doc = f.createDocument(t, "Deleted while processing.")

	require.NoError(t, f.svc.Process(ctx, doc.ID))

	gone, err := f.documents.GetByID(ctx, nil, doc.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	vectors, verr := f.store.CountByDocument(ctx, doc.ID.String())
	require.NoError(t, verr)
	assert.Zero(t, vectors)

	rows, rerr := f.chunks.GetByDocumentID(ctx, nil, doc.ID)
	require.NoError(t, rerr)
	assert.Empty(t, rows)
}

func TestProcessSkipsNonPendingDocument(t *testing.T) {
	ctx := context.Background()
	f := newIngestionFixture(t, &fakeEmbedder{}, &fakeExtractor{})
	doc := f.createDocument(t, "Processed exactly once.")

	require.NoError(t, f.svc.Process(ctx, doc.ID))
	first, err := f.store.CountByDocument(ctx, doc.ID.String())
	require.NoError(t, err)
	require.Greater(t, first, 0)

	// The same id can be queued twice; the second run must not redo the work.
	require.NoError(t, f.svc.Process(ctx, doc.ID))

	again, err := f.store.CountByDocument(ctx, doc.ID.String())
	require.NoError(t, err)
	assert.Equal(t, first, again)

	rows, err := f.chunks.GetByDocumentID(ctx, nil, doc.ID)
	require.NoError(t, err)
	assert.Len(t, rows, first)
}

func TestWorkerPoolProcessesQueue(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newIngestionFixture(t, &fakeEmbedder{}, &fakeExtractor{})
	doc := f.createDocument(t, "Queued document body text.")

	f.svc.StartWorkers(ctx, 2)
	assert.True(t, f.svc.Enqueue(doc.ID))

	require.Eventually(t, func() bool {
		updated, err := f.documents.GetByID(ctx, nil, doc.ID)
		return err == nil && updated != nil && updated.ProcessingStatus == types.DocumentStatusCompleted
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	f.svc.Stop()
}
