package services

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/yungbote/docchat-backend/internal/chunker"
	"github.com/yungbote/docchat-backend/internal/platform/logger"
	"github.com/yungbote/docchat-backend/internal/platform/pdfextract"
	"github.com/yungbote/docchat-backend/internal/platform/vectorstore"
	"github.com/yungbote/docchat-backend/internal/types"
)

const testDim = 8

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	require.NoError(t, err)
	return log
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&types.User{},
		&types.Document{},
		&types.DocumentChunk{},
		&types.ChatSession{},
		&types.ChatMessage{},
		&types.QueryMetric{},
	))
	return db
}

func newTestStore(t *testing.T) vectorstore.VectorStore {
	t.Helper()
	store, err := vectorstore.NewMemoryStore(newTestLogger(t), testDim)
	require.NoError(t, err)
	return store
}

// fakeEmbedder produces deterministic vectors derived from the input text so
// identical texts are close and different texts are not.
type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
	fail  int // fail this many calls before succeeding
}

func (f *fakeEmbedder) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	shouldFail := f.fail > 0
	if shouldFail {
		f.fail--
	}
	f.mu.Unlock()
	if shouldFail {
		return nil, fmt.Errorf("embedding backend unavailable")
	}
	out := make([][]float32, len(inputs))
	for i, in := range inputs {
		out[i] = embedText(in)
	}
	return out, nil
}

func embedText(text string) []float32 {
	sum := sha256.Sum256([]byte(text))
	vec := make([]float32, testDim)
	for i := 0; i < testDim; i++ {
		bits := binary.BigEndian.Uint32(sum[i*4 : i*4+4])
		vec[i] = float32(bits%1000)/1000 + 0.001
	}
	return vec
}

type fakeGenerator struct {
	mu      sync.Mutex
	calls   int
	answer  string
	tokens  int
	failErr error
	prompts []string
	models  []string
}

func (f *fakeGenerator) GenerateText(ctx context.Context, model, system, user string) (string, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.prompts = append(f.prompts, user)
	f.models = append(f.models, model)
	if f.failErr != nil {
		return "", 0, f.failErr
	}
	answer := f.answer
	if answer == "" {
		answer = "generated answer"
	}
	return answer, f.tokens, nil
}

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// stubIndexer satisfies EmbeddingIndexer with a fixed query vector, letting
// retrieval tests control scores through the seeded store instead.
type stubIndexer struct {
	queryVec []float32
	queryErr error
}

func (s *stubIndexer) IndexChunks(ctx context.Context, doc *types.Document, chunks []chunker.Candidate) ([]IndexedChunk, error) {
	return nil, nil
}

func (s *stubIndexer) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if s.queryErr != nil {
		return nil, stageErr(StageEmbedding, s.queryErr)
	}
	return s.queryVec, nil
}

// fakeExtractor returns canned pages keyed by payload content.
type fakeExtractor struct {
	pages     map[string][]pdfextract.Page
	err       error
	onExtract func()
}

func (f *fakeExtractor) Extract(data []byte) ([]pdfextract.Page, error) {
	if f.onExtract != nil {
		f.onExtract()
	}
	if f.err != nil {
		return nil, f.err
	}
	if pages, ok := f.pages[string(data)]; ok {
		return pages, nil
	}
	return []pdfextract.Page{{PageNumber: 1, Text: string(data)}}, nil
}

// memFileStore keeps payloads in a map, matching the filestore contract.
type memFileStore struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemFileStore() *memFileStore {
	return &memFileStore{files: make(map[string][]byte)}
}

func (m *memFileStore) Save(name string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = data
	return name, nil
}

func (m *memFileStore) Load(name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[name]
	if !ok {
		return nil, fmt.Errorf("file %q not found", name)
	}
	return data, nil
}

func (m *memFileStore) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, name)
	return nil
}

func newTestChunker(t *testing.T) *chunker.Chunker {
	t.Helper()
	c, err := chunker.New(chunker.Params{Size: 1000, Overlap: 200, LookAhead: 100})
	require.NoError(t, err)
	return c
}

func newTestIndexer(t *testing.T, embedder Embedder, store vectorstore.VectorStore) EmbeddingIndexer {
	t.Helper()
	indexer, err := NewEmbeddingIndexer(newTestLogger(t), embedder, store, nil, EmbeddingIndexerConfig{
		Model:       "test-embed",
		BatchSize:   4,
		Workers:     2,
		MaxAttempts: 3,
	})
	require.NoError(t, err)
	return indexer
}
