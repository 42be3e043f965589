package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Bookmark marks a protocol saved by a user. Relational backend only.
type Bookmark struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProtocolID string    `gorm:"column:protocol_id;not null;index;uniqueIndex:idx_bookmarks_protocol_user" json:"protocol_id"`
	UserID     uuid.UUID `gorm:"type:uuid;column:user_id;not null;uniqueIndex:idx_bookmarks_protocol_user" json:"user_id"`
	CreatedAt  time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

func (Bookmark) TableName() string { return "bookmarks" }
