package types

import (
	"time"

	"github.com/google/uuid"
)

// User is an anonymous browser-session user. There is no credential auth;
// scoping is per browser session id.
type User struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID  string    `gorm:"column:session_id;size:255;uniqueIndex;not null" json:"session_id"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	LastActive time.Time `gorm:"not null" json:"last_active"`
}

func (User) TableName() string { return "users" }
