// Package store defines the backend-neutral contracts for the protocol
// catalog. The in-process and relational backends implement these interfaces
// with identical observable behavior; everything outside internal/app depends
// only on this package.
package store

import (
	"context"

	"github.com/google/uuid"

	types "github.com/benchwise/protolab-backend/internal/domain"
)

// Sort fields accepted by ListFilter.SortBy.
const (
	SortByName   = "name"
	SortByDate   = "date"
	SortByRating = "rating"

	SortAsc  = "asc"
	SortDesc = "desc"
)

// ListFilter narrows and orders a protocol listing. Filtering and sorting are
// one logical pass; pagination applies last. Category "all" (or empty)
// disables the category filter. A protocol with no rating or date sorts as
// numeric/temporal zero rather than being excluded.
type ListFilter struct {
	Category      string
	Search        string
	MinRating     float64
	SortBy        string
	SortDirection string
	Page          int
	Limit         int
}

// Normalized returns a copy with defaults applied: page >= 1, limit in
// [1,100] with default 20, sort by date descending.
func (f ListFilter) Normalized() ListFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	switch f.SortBy {
	case SortByName, SortByDate, SortByRating:
	default:
		f.SortBy = SortByDate
	}
	switch f.SortDirection {
	case SortAsc, SortDesc:
	default:
		f.SortDirection = SortDesc
	}
	return f
}

// ProtocolStore owns the protocol catalog.
//
// Connect must be called before any other operation and is idempotent; it
// reports errs.ErrConnection when the backend is unreachable within the
// configured timeout. GetByID reports errs.ErrNotFound for a well-formed but
// absent id. Create derives a slug id from the name when none is supplied and
// reports errs.ErrDuplicateKey on collision. Update merges only the supplied
// fields. Delete removes the protocol and, in the same logical transaction,
// every review (and bookmark, where supported) referencing it; it returns
// false without error for an absent id. Close is safe to call repeatedly.
type ProtocolStore interface {
	Connect(ctx context.Context) error
	List(ctx context.Context, filter ListFilter) ([]*types.Protocol, int64, error)
	GetByID(ctx context.Context, id string) (*types.Protocol, error)
	Create(ctx context.Context, protocol *types.Protocol) (*types.Protocol, error)
	Update(ctx context.Context, id string, changes map[string]any) (*types.Protocol, error)
	Delete(ctx context.Context, id string) (bool, error)
	Close() error
}

// ReviewStore owns reviews keyed by protocol. Every mutation re-runs the
// rating aggregation for the parent protocol before returning; a mutation
// never commits while leaving a stale aggregate visible.
//
// Add reports errs.ErrProtocolNotFound when the protocol is absent and
// errs.ErrAlreadyReviewed when the user already reviewed it. Update checks
// ownership only when actorID is non-nil; route-level authorization stays
// with the caller. Delete returns false without error for an absent id.
type ReviewStore interface {
	ListByProtocol(ctx context.Context, protocolID string) ([]*types.Review, error)
	Add(ctx context.Context, protocolID string, review *types.Review) (*types.Review, error)
	Update(ctx context.Context, reviewID uuid.UUID, actorID *uuid.UUID, changes map[string]any) (*types.Review, error)
	Delete(ctx context.Context, reviewID uuid.UUID) (bool, error)
}

// BookmarkStore marks protocols saved by users. Only the relational backend
// provides one; the adapter selector returns nil for backends without it.
type BookmarkStore interface {
	Add(ctx context.Context, protocolID string, userID uuid.UUID) (*types.Bookmark, error)
	Remove(ctx context.Context, protocolID string, userID uuid.UUID) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*types.Bookmark, error)
}

// UserStore backs the local identity provider. Nil when the delegated
// identity adapter is active.
type UserStore interface {
	Create(ctx context.Context, u *types.User) (*types.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*types.User, error)
	GetByUsername(ctx context.Context, username string) (*types.User, error)
}

// Stores bundles one backend's adapters. Bookmarks and Users may be nil
// depending on the selected backend pair.
type Stores struct {
	Protocols ProtocolStore
	Reviews   ReviewStore
	Bookmarks BookmarkStore
	Users     UserStore
}
