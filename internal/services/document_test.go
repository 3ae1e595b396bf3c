package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/docchat-backend/internal/platform/pdfextract"
	"github.com/yungbote/docchat-backend/internal/platform/vectorstore"
	"github.com/yungbote/docchat-backend/internal/repos"
	"github.com/yungbote/docchat-backend/internal/types"
)

type documentFixture struct {
	svc       DocumentService
	ingestion IngestionService
	db        *gorm.DB
	documents repos.DocumentRepo
	chunks    repos.DocumentChunkRepo
	store     vectorstore.VectorStore
	files     *memFileStore
}

func newDocumentFixture(t *testing.T, embedder Embedder, extractor pdfextract.Extractor) *documentFixture {
	t.Helper()
	log := newTestLogger(t)
	db := newTestDB(t)
	store := newTestStore(t)
	files := newMemFileStore()
	documents := repos.NewDocumentRepo(db, log)
	chunks := repos.NewDocumentChunkRepo(db, log)
	sessions := repos.NewChatSessionRepo(db, log)
	messages := repos.NewChatMessageRepo(db, log)
	indexer := newTestIndexer(t, embedder, store)

	ingestion, err := NewIngestionService(db, log, documents, chunks, store, indexer, extractor, files, newTestChunker(t))
	require.NoError(t, err)

	svc, err := NewDocumentService(db, log, documents, chunks, sessions, messages, store, files, ingestion, DocumentServiceConfig{
		MaxFileSizeBytes: 1 << 20,
	})
	require.NoError(t, err)
	return &documentFixture{
		svc:       svc,
		ingestion: ingestion,
		db:        db,
		documents: documents,
		chunks:    chunks,
		store:     store,
		files:     files,
	}
}

func TestUploadCreatesPendingDocument(t *testing.T) {
	ctx := context.Background()
	f := newDocumentFixture(t, &fakeEmbedder{}, &fakeExtractor{})

	doc, duplicate, err := f.svc.Upload(ctx, "Quarterly Report.pdf", []byte("report body"))
	require.NoError(t, err)
	assert.False(t, duplicate)
	assert.Equal(t, types.DocumentStatusPending, doc.ProcessingStatus)
	assert.Equal(t, "Quarterly Report.pdf", doc.OriginalFilename)
	assert.Equal(t, doc.ID.String()+".pdf", doc.Filename)
	assert.Equal(t, int64(len("report body")), doc.FileSize)
	assert.NotEmpty(t, doc.ContentHash)

	stored, err := f.files.Load(doc.Filename)
	require.NoError(t, err)
	assert.Equal(t, []byte("report body"), stored)
}

func TestUploadRejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	f := newDocumentFixture(t, &fakeEmbedder{}, &fakeExtractor{})

	tests := []struct {
		name     string
		filename string
		data     []byte
	}{
		{"empty filename", "  ", []byte("x")},
		{"wrong extension", "notes.txt", []byte("x")},
		{"empty payload", "doc.pdf", nil},
		{"oversized payload", "doc.pdf", make([]byte, (1<<20)+1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := f.svc.Upload(ctx, tt.filename, tt.data)
			var ipe *InvalidParameterError
			require.ErrorAs(t, err, &ipe)
		})
	}
}

// recordingIngestion lets tests control queue acceptance and observe what
// the document service hands to the workers.
type recordingIngestion struct {
	accept   bool
	enqueued []uuid.UUID
}

func (r *recordingIngestion) Enqueue(id uuid.UUID) bool {
	if !r.accept {
		return false
	}
	r.enqueued = append(r.enqueued, id)
	return true
}

func (r *recordingIngestion) Process(ctx context.Context, id uuid.UUID) error { return nil }
func (r *recordingIngestion) StartWorkers(ctx context.Context, n int)         {}
func (r *recordingIngestion) Stop()                                           {}

func TestUploadRequeuesPendingDuplicate(t *testing.T) {
	ctx := context.Background()
	log := newTestLogger(t)
	db := newTestDB(t)
	documents := repos.NewDocumentRepo(db, log)
	chunks := repos.NewDocumentChunkRepo(db, log)
	sessions := repos.NewChatSessionRepo(db, log)
	messages := repos.NewChatMessageRepo(db, log)
	ingestion := &recordingIngestion{}

	svc, err := NewDocumentService(db, log, documents, chunks, sessions, messages, newTestStore(t), newMemFileStore(), ingestion, DocumentServiceConfig{
		MaxFileSizeBytes: 1 << 20,
	})
	require.NoError(t, err)

	// The queue rejects the first upload; the row stays pending.
	doc, duplicate, err := svc.Upload(ctx, "stuck.pdf", []byte("queued later"))
	require.NoError(t, err)
	require.False(t, duplicate)
	assert.Equal(t, types.DocumentStatusPending, doc.ProcessingStatus)
	assert.Empty(t, ingestion.enqueued)

	// Re-uploading the same content must queue the pending row again rather
	// than leaving it stranded.
	ingestion.accept = true
	again, duplicate, err := svc.Upload(ctx, "stuck.pdf", []byte("queued later"))
	require.NoError(t, err)
	assert.True(t, duplicate)
	assert.Equal(t, doc.ID, again.ID)
	require.Len(t, ingestion.enqueued, 1)
	assert.Equal(t, doc.ID, ingestion.enqueued[0])
}

func TestUploadDeduplicatesByContentHash(t *testing.T) {
	ctx := context.Background()
	f := newDocumentFixture(t, &fakeEmbedder{}, &fakeExtractor{})

	first, duplicate, err := f.svc.Upload(ctx, "original.pdf", []byte("identical bytes"))
	require.NoError(t, err)
	require.False(t, duplicate)

	second, duplicate, err := f.svc.Upload(ctx, "renamed-copy.pdf", []byte("identical bytes"))
	require.NoError(t, err)
	assert.True(t, duplicate)
	assert.Equal(t, first.ID, second.ID)

	count, err := f.documents.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestUploadReprocessesFailedDocument(t *testing.T) {
	ctx := context.Background()
	extractor := &fakeExtractor{err: &pdfextract.ExtractionError{
		Code:    pdfextract.ErrorCodeCorruptFile,
		Message: "unreadable pdf",
	}}
	f := newDocumentFixture(t, &fakeEmbedder{}, extractor)

	doc, _, err := f.svc.Upload(ctx, "flaky.pdf", []byte("sometimes works"))
	require.NoError(t, err)
	require.Error(t, f.ingestion.Process(ctx, doc.ID))

	failed, err := f.documents.GetByID(ctx, nil, doc.ID)
	require.NoError(t, err)
	require.Equal(t, types.DocumentStatusFailed, failed.ProcessingStatus)

	// The second upload of the same content finds the failed row, resets it
	// and queues another run instead of reporting a duplicate.
	extractor.err = nil
	again, duplicate, err := f.svc.Upload(ctx, "flaky-fixed.pdf", []byte("sometimes works"))
	require.NoError(t, err)
	assert.False(t, duplicate)
	assert.Equal(t, doc.ID, again.ID)
	assert.Equal(t, types.DocumentStatusPending, again.ProcessingStatus)
	assert.Equal(t, "flaky-fixed.pdf", again.OriginalFilename)
	assert.Empty(t, again.ErrorMessage)

	// The new name is on the row itself, not just the response.
	reloaded, err := f.documents.GetByID(ctx, nil, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "flaky-fixed.pdf", reloaded.OriginalFilename)

	require.NoError(t, f.ingestion.Process(ctx, doc.ID))
	completed, err := f.documents.GetByID(ctx, nil, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, types.DocumentStatusCompleted, completed.ProcessingStatus)
}

func TestDeleteRemovesEverything(t *testing.T) {
	ctx := context.Background()
	f := newDocumentFixture(t, &fakeEmbedder{}, &fakeExtractor{})

	doc, _, err := f.svc.Upload(ctx, "doomed.pdf", []byte("Content that will be deleted."))
	require.NoError(t, err)
	require.NoError(t, f.ingestion.Process(ctx, doc.ID))

	require.NoError(t, f.svc.Delete(ctx, doc.ID))

	_, err = f.svc.Get(ctx, doc.ID)
	assert.ErrorIs(t, err, ErrDocumentNotFound)

	rows, err := f.chunks.GetByDocumentID(ctx, nil, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)

	vectors, err := f.store.CountByDocument(ctx, doc.ID.String())
	require.NoError(t, err)
	assert.Zero(t, vectors)

	_, err = f.files.Load(doc.Filename)
	assert.Error(t, err)
}

func TestDeleteUnknownDocument(t *testing.T) {
	f := newDocumentFixture(t, &fakeEmbedder{}, &fakeExtractor{})
	assert.ErrorIs(t, f.svc.Delete(context.Background(), uuid.New()), ErrDocumentNotFound)
}

func TestGetChunksReturnsOrderedRows(t *testing.T) {
	ctx := context.Background()
	f := newDocumentFixture(t, &fakeEmbedder{}, &fakeExtractor{})

	doc, _, err := f.svc.Upload(ctx, "big.pdf", []byte(bigPayload()))
	require.NoError(t, err)
	require.NoError(t, f.ingestion.Process(ctx, doc.ID))

	rows, err := f.svc.GetChunks(ctx, doc.ID)
	require.NoError(t, err)
	require.Greater(t, len(rows), 1)
	for i, row := range rows {
		assert.Equal(t, i, row.ChunkIndex)
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	f := newDocumentFixture(t, &fakeEmbedder{}, &fakeExtractor{})

	doc, _, err := f.svc.Upload(ctx, "counted.pdf", []byte("Some countable content here."))
	require.NoError(t, err)
	require.NoError(t, f.ingestion.Process(ctx, doc.ID))

	stats, err := f.svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalDocuments)
	assert.Equal(t, int64(1), stats.CompletedDocuments)
	assert.Zero(t, stats.FailedDocuments)
	assert.Zero(t, stats.PendingDocuments)
	assert.Greater(t, stats.TotalChunks, int64(0))
	assert.Equal(t, int(stats.TotalChunks), stats.VectorCount)
}

func bigPayload() string {
	out := ""
	for i := 0; i < 150; i++ {
		out += "This sentence pads the page with enough text to split. "
	}
	return out
}
