package types

import (
	"time"

	"github.com/google/uuid"
)

// QueryMetric records one retrieval+generation round trip. UserFeedback is a
// 1-5 rating attached after the fact via the feedback endpoint.
type QueryMetric struct {
	ID              uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID       uuid.UUID    `gorm:"type:uuid;not null;index" json:"session_id"`
	Session         *ChatSession `gorm:"constraint:OnDelete:CASCADE;foreignKey:SessionID;references:ID" json:"session,omitempty"`
	Query           string       `gorm:"column:query;type:text;not null" json:"query"`
	RetrievedChunks int          `gorm:"column:retrieved_chunks" json:"retrieved_chunks"`
	TopK            int          `gorm:"column:top_k" json:"top_k"`
	ResponseTimeMs  int          `gorm:"column:response_time_ms" json:"response_time_ms"`
	TokensUsed      int          `gorm:"column:tokens_used" json:"tokens_used"`
	UserFeedback    *int         `gorm:"column:user_feedback" json:"user_feedback,omitempty"`
	CreatedAt       time.Time    `gorm:"not null;index" json:"created_at"`
}

func (QueryMetric) TableName() string { return "query_metrics" }
