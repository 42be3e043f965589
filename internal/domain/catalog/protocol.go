package catalog

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Protocol lifecycle states.
const (
	StatusDraft     = "draft"
	StatusPending   = "pending"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

// Protocol visibility levels.
const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
	VisibilityShared  = "shared"
)

// Categories is the fixed protocol taxonomy. CategoryAll is the list-filter
// sentinel that disables category filtering and is not a storable category.
const CategoryAll = "all"

var Categories = []string{
	"Assay",
	"Cell Culture",
	"Imaging",
	"Molecular Biology",
	"Sample Preparation",
	"Sequencing",
}

func ValidCategory(c string) bool {
	for _, known := range Categories {
		if known == c {
			return true
		}
	}
	return false
}

// Step is one ordered entry of a protocol's procedure.
type Step struct {
	Order       int    `json:"order"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Duration    string `json:"duration,omitempty"`
	Warning     string `json:"warning,omitempty"`
	Required    bool   `json:"required"`
}

// Metrics holds the six per-dimension scores. On a Review a zero value means
// the reviewer did not score that dimension; on a Protocol the values are the
// aggregated means over the reviews that supplied them.
type Metrics struct {
	Efficiency      float64 `gorm:"column:efficiency;not null;default:0" json:"efficiency"`
	Consistency     float64 `gorm:"column:consistency;not null;default:0" json:"consistency"`
	Accuracy        float64 `gorm:"column:accuracy;not null;default:0" json:"accuracy"`
	Safety          float64 `gorm:"column:safety;not null;default:0" json:"safety"`
	EaseOfExecution float64 `gorm:"column:ease_of_execution;not null;default:0" json:"ease_of_execution"`
	Scalability     float64 `gorm:"column:scalability;not null;default:0" json:"scalability"`
}

// Valid reports whether every supplied score is in [1,5]; zero means the
// dimension was not scored and is always acceptable.
func (m Metrics) Valid() bool {
	for _, v := range []float64{
		m.Efficiency, m.Consistency, m.Accuracy,
		m.Safety, m.EaseOfExecution, m.Scalability,
	} {
		if v != 0 && (v < 1 || v > 5) {
			return false
		}
	}
	return true
}

type Protocol struct {
	// ID is a slug derived from the name at creation time and never changes.
	ID          string    `gorm:"primaryKey;column:id" json:"id"`
	Name        string    `gorm:"column:name;not null" json:"name"`
	Description string    `gorm:"column:description;type:text" json:"description"`
	Category    string    `gorm:"column:category;index" json:"category"`
	AuthorID    uuid.UUID `gorm:"type:uuid;column:author_id;index" json:"author_id"`

	Status     string `gorm:"column:status;not null;default:'draft';index" json:"status"`
	Visibility string `gorm:"column:visibility;not null;default:'public'" json:"visibility"`

	Steps     datatypes.JSONSlice[Step]   `gorm:"column:steps" json:"steps"`
	Materials datatypes.JSONSlice[string] `gorm:"column:materials" json:"materials"`
	Equipment datatypes.JSONSlice[string] `gorm:"column:equipment" json:"equipment"`

	// Aggregates derived from the review set. Never written directly by
	// callers; the stores recompute them on every review mutation.
	Metrics     Metrics `gorm:"embedded" json:"metrics"`
	Rating      float64 `gorm:"column:rating;not null;default:0;index" json:"rating"`
	ReviewCount int     `gorm:"column:review_count;not null;default:0" json:"review_count"`

	CreatedAt   time.Time  `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;not null" json:"updated_at"`
	PublishedAt *time.Time `gorm:"column:published_at" json:"published_at,omitempty"`
}

func (Protocol) TableName() string { return "protocols" }
