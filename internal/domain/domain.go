// Package domain aggregates the entity types of the catalog so callers can
// import one package for models and the relational backend can migrate them
// as a group.
package domain

import (
	"github.com/benchwise/protolab-backend/internal/domain/catalog"
	"github.com/benchwise/protolab-backend/internal/domain/user"
)

const (
	StatusDraft     = catalog.StatusDraft
	StatusPending   = catalog.StatusPending
	StatusPublished = catalog.StatusPublished
	StatusArchived  = catalog.StatusArchived

	VisibilityPublic  = catalog.VisibilityPublic
	VisibilityPrivate = catalog.VisibilityPrivate
	VisibilityShared  = catalog.VisibilityShared

	CategoryAll = catalog.CategoryAll

	RoleUser  = user.RoleUser
	RoleAdmin = user.RoleAdmin
)

type (
	Protocol = catalog.Protocol
	Step     = catalog.Step
	Metrics  = catalog.Metrics
	Review   = catalog.Review
	Bookmark = catalog.Bookmark
	User     = user.User
)

// Categories is the fixed protocol taxonomy.
var Categories = catalog.Categories

// ValidCategory reports whether c is a storable category.
func ValidCategory(c string) bool { return catalog.ValidCategory(c) }

// AllModels lists every model the relational backend migrates, parents first.
func AllModels() []any {
	return []any{
		&User{},
		&Protocol{},
		&Review{},
		&Bookmark{},
	}
}
