package vectorstore

import "context"

// Payload keys every provider writes alongside a vector. The payload is
// denormalized on purpose: a citation must be renderable from a query hit
// without a relational join.
const (
	PayloadDocumentID = "document_id"
	PayloadPageNumber = "page_number"
	PayloadChunkIndex = "chunk_index"
	PayloadContent    = "content"
	PayloadFilename   = "filename"
)

type Vector struct {
	ID      string
	Values  []float32
	Payload map[string]any
}

type Match struct {
	ID      string
	Score   float64
	Payload map[string]any
}

// VectorStore is the provider-neutral contract over the embedding collection.
// Upsert is idempotent on vector id. Query returns matches in descending
// score order, ties broken by id ascending; documentIDs, when non-empty,
// restricts hits to those documents.
type VectorStore interface {
	Upsert(ctx context.Context, vectors []Vector) error
	Query(ctx context.Context, q []float32, topK int, documentIDs []string) ([]Match, error)
	DeleteIDs(ctx context.Context, ids []string) error
	DeleteByDocument(ctx context.Context, documentID string) error
	CountByDocument(ctx context.Context, documentID string) (int, error)
	Count(ctx context.Context) (int, error)
}
