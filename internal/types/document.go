package types

import (
	"time"

	"github.com/google/uuid"
)

// Document processing lifecycle. Completed and failed are terminal; a failed
// document can only be re-run by re-uploading its content, which resets the
// row to pending.
const (
	DocumentStatusPending    = "pending"
	DocumentStatusProcessing = "processing"
	DocumentStatusCompleted  = "completed"
	DocumentStatusFailed     = "failed"
)

type Document struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Filename         string    `gorm:"column:filename;size:255;not null" json:"filename"`
	OriginalFilename string    `gorm:"column:original_filename;size:255;not null" json:"original_filename"`
	FileSize         int64     `gorm:"column:file_size;not null" json:"file_size"`
	ContentHash      string    `gorm:"column:content_hash;size:255;uniqueIndex;not null" json:"content_hash"`
	PageCount        int       `gorm:"column:page_count" json:"page_count"`
	ProcessingStatus string    `gorm:"column:processing_status;size:50;not null;default:'pending'" json:"processing_status"`
	ErrorMessage     string    `gorm:"column:error_message;type:text" json:"error_message,omitempty"`
	ChunkCount       int       `gorm:"column:chunk_count;not null;default:0" json:"chunk_count"`
	UploadTimestamp  time.Time `gorm:"column:upload_timestamp;not null" json:"upload_timestamp"`
	UpdatedAt        time.Time `gorm:"not null" json:"updated_at"`
}

func (Document) TableName() string { return "documents" }

func (d *Document) IsTerminal() bool {
	return d.ProcessingStatus == DocumentStatusCompleted || d.ProcessingStatus == DocumentStatusFailed
}
