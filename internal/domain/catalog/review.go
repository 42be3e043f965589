package catalog

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Review struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	// ProtocolID is immutable after creation. The pair (protocol_id, user_id)
	// is unique: a user reviews a protocol at most once.
	ProtocolID string    `gorm:"column:protocol_id;not null;index;uniqueIndex:idx_reviews_protocol_user" json:"protocol_id"`
	UserID     uuid.UUID `gorm:"type:uuid;column:user_id;not null;uniqueIndex:idx_reviews_protocol_user" json:"user_id"`

	// Rating accepts integers and half steps in [1,5].
	Rating  float64 `gorm:"column:rating;not null" json:"rating"`
	Title   string  `gorm:"column:title" json:"title"`
	Comment string  `gorm:"column:comment;type:text" json:"comment"`

	// Metrics are optional per dimension; zero means not scored.
	Metrics Metrics `gorm:"embedded" json:"metrics"`

	Attachments datatypes.JSONSlice[string] `gorm:"column:attachments" json:"attachments"`
	Verified    bool                        `gorm:"column:verified;not null;default:false" json:"verified"`

	CreatedAt time.Time `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (Review) TableName() string { return "reviews" }
