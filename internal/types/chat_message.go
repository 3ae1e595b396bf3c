package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	MessageTypeUser      = "user"
	MessageTypeAssistant = "assistant"
)

// ChatMessage rows alternate user/assistant. Assistant turns carry the
// citation list and the full retrieved context as JSON so history renders
// without touching the vector store.
type ChatMessage struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"session_id"`
	Session        *ChatSession   `gorm:"constraint:OnDelete:CASCADE;foreignKey:SessionID;references:ID" json:"session,omitempty"`
	MessageType    string         `gorm:"column:message_type;size:20;not null" json:"message_type"`
	Content        string         `gorm:"column:content;type:text;not null" json:"content"`
	Sources        datatypes.JSON `gorm:"column:sources" json:"sources,omitempty"`
	ContextChunks  datatypes.JSON `gorm:"column:context_chunks" json:"context_chunks,omitempty"`
	ResponseTimeMs int            `gorm:"column:response_time_ms" json:"response_time_ms,omitempty"`
	TokensUsed     int            `gorm:"column:tokens_used" json:"tokens_used,omitempty"`
	CreatedAt      time.Time      `gorm:"not null;index" json:"created_at"`
}

func (ChatMessage) TableName() string { return "chat_messages" }
