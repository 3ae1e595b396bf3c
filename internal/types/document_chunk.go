package types

import (
	"time"

	"github.com/google/uuid"
)

// DocumentChunk is the relational side of a chunk. The full text and the
// denormalized citation payload live in the vector store under VectorID;
// the row keeps only a short preview plus offsets for provenance.
//
// ChunkIndex is 0-based and contiguous per document. VectorID is unique
// system-wide and never reused: deleting a document invalidates its ids.
type DocumentChunk struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	DocumentID     uuid.UUID `gorm:"type:uuid;not null;index" json:"document_id"`
	Document       *Document `gorm:"constraint:OnDelete:CASCADE;foreignKey:DocumentID;references:ID" json:"document,omitempty"`
	ChunkIndex     int       `gorm:"column:chunk_index;not null" json:"chunk_index"`
	PageNumber     int       `gorm:"column:page_number;not null" json:"page_number"`
	StartOffset    int       `gorm:"column:start_offset;not null" json:"start_offset"`
	EndOffset      int       `gorm:"column:end_offset;not null" json:"end_offset"`
	ContentPreview string    `gorm:"column:content_preview;type:text" json:"content_preview"`
	VectorID       string    `gorm:"column:vector_id;size:255;uniqueIndex;not null" json:"vector_id"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
}

func (DocumentChunk) TableName() string { return "document_chunks" }
