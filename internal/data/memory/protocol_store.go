package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/benchwise/protolab-backend/internal/data/store"
	types "github.com/benchwise/protolab-backend/internal/domain"
	"github.com/benchwise/protolab-backend/internal/pkg/errs"
	"github.com/benchwise/protolab-backend/internal/pkg/logger"
	"github.com/benchwise/protolab-backend/internal/utils"
)

var _ store.ProtocolStore = (*ProtocolStore)(nil)

type ProtocolStore struct {
	db  *database
	log *logger.Logger
}

// NewStores builds the in-process backend. All returned stores share one
// collection; filePath enables the JSON file mirror when non-empty.
func NewStores(baseLog *logger.Logger, filePath string) (*ProtocolStore, *ReviewStore, *UserStore) {
	db := newDatabase(baseLog, filePath)
	return &ProtocolStore{db: db, log: baseLog.With("store", "MemoryProtocolStore")},
		&ReviewStore{db: db, log: baseLog.With("store", "MemoryReviewStore")},
		&UserStore{db: db, log: baseLog.With("store", "MemoryUserStore")}
}

func (s *ProtocolStore) Connect(ctx context.Context) error {
	return s.db.connect()
}

func (s *ProtocolStore) Close() error {
	s.db.close()
	return nil
}

func (s *ProtocolStore) List(ctx context.Context, filter store.ListFilter) ([]*types.Protocol, int64, error) {
	if err := s.db.ready(); err != nil {
		return nil, 0, err
	}
	filter = filter.Normalized()

	// Clone while the read lock is held; sorting and pagination then work on
	// private copies no concurrent Update can mutate.
	s.db.mu.RLock()
	matched := make([]*types.Protocol, 0, len(s.db.protocols))
	for _, p := range s.db.protocols {
		if matches(p, filter) {
			matched = append(matched, cloneProtocol(p))
		}
	}
	s.db.mu.RUnlock()

	sortProtocols(matched, filter.SortBy, filter.SortDirection)
	total := int64(len(matched))

	offset := (filter.Page - 1) * filter.Limit
	if offset >= len(matched) {
		return []*types.Protocol{}, total, nil
	}
	end := offset + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func matches(p *types.Protocol, f store.ListFilter) bool {
	if f.Category != "" && f.Category != types.CategoryAll && p.Category != f.Category {
		return false
	}
	if f.MinRating > 0 && p.Rating < f.MinRating {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(p.Name), needle) &&
			!strings.Contains(strings.ToLower(p.Description), needle) &&
			!strings.Contains(strings.ToLower(p.Category), needle) {
			return false
		}
	}
	return true
}

func sortProtocols(list []*types.Protocol, by, direction string) {
	asc := direction == store.SortAsc
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		var less bool
		switch by {
		case store.SortByName:
			less = strings.ToLower(a.Name) < strings.ToLower(b.Name)
		case store.SortByRating:
			less = a.Rating < b.Rating
		default:
			// Zero times sort as temporal zero rather than being excluded.
			less = a.CreatedAt.Before(b.CreatedAt)
		}
		if asc {
			return less
		}
		return !less && !equalKey(a, b, by)
	})
}

func equalKey(a, b *types.Protocol, by string) bool {
	switch by {
	case store.SortByName:
		return strings.EqualFold(a.Name, b.Name)
	case store.SortByRating:
		return a.Rating == b.Rating
	default:
		return a.CreatedAt.Equal(b.CreatedAt)
	}
}

func (s *ProtocolStore) GetByID(ctx context.Context, id string) (*types.Protocol, error) {
	if err := s.db.ready(); err != nil {
		return nil, err
	}
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	p, ok := s.db.protocols[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return cloneProtocol(p), nil
}

func (s *ProtocolStore) Create(ctx context.Context, protocol *types.Protocol) (*types.Protocol, error) {
	if err := s.db.ready(); err != nil {
		return nil, err
	}
	p := cloneProtocol(protocol)
	if p.ID == "" {
		p.ID = utils.Slugify(p.Name)
	}
	if p.ID == "" {
		return nil, fmt.Errorf("protocol name %q yields an empty id", p.Name)
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	if p.Status == "" {
		p.Status = types.StatusDraft
	}
	if p.Visibility == "" {
		p.Visibility = types.VisibilityPublic
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, exists := s.db.protocols[p.ID]; exists {
		return nil, fmt.Errorf("%w: protocol %s", errs.ErrDuplicateKey, p.ID)
	}
	s.db.protocols[p.ID] = p
	s.db.persistLocked()
	return cloneProtocol(p), nil
}

func (s *ProtocolStore) Update(ctx context.Context, id string, changes map[string]any) (*types.Protocol, error) {
	if err := s.db.ready(); err != nil {
		return nil, err
	}
	lock := s.db.protoLock(id)
	lock.Lock()
	defer lock.Unlock()

	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p, ok := s.db.protocols[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	applyProtocolChanges(p, changes)
	p.UpdatedAt = time.Now().UTC()
	s.db.persistLocked()
	return cloneProtocol(p), nil
}

// applyProtocolChanges merges only the supplied fields. The id and the
// derived aggregate fields are never writable through Update.
func applyProtocolChanges(p *types.Protocol, changes map[string]any) {
	for key, val := range changes {
		switch key {
		case "name":
			if v, ok := val.(string); ok {
				p.Name = v
			}
		case "description":
			if v, ok := val.(string); ok {
				p.Description = v
			}
		case "category":
			if v, ok := val.(string); ok {
				p.Category = v
			}
		case "status":
			if v, ok := val.(string); ok {
				p.Status = v
				if v == types.StatusPublished && p.PublishedAt == nil {
					now := time.Now().UTC()
					p.PublishedAt = &now
				}
			}
		case "visibility":
			if v, ok := val.(string); ok {
				p.Visibility = v
			}
		case "steps":
			if v, ok := val.([]types.Step); ok {
				p.Steps = append(p.Steps[:0:0], v...)
			}
		case "materials":
			if v, ok := val.([]string); ok {
				p.Materials = append(p.Materials[:0:0], v...)
			}
		case "equipment":
			if v, ok := val.([]string); ok {
				p.Equipment = append(p.Equipment[:0:0], v...)
			}
		}
	}
}

// Delete removes the protocol and all of its reviews as one critical section.
func (s *ProtocolStore) Delete(ctx context.Context, id string) (bool, error) {
	if err := s.db.ready(); err != nil {
		return false, err
	}
	lock := s.db.protoLock(id)
	lock.Lock()
	defer lock.Unlock()

	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.protocols[id]; !ok {
		return false, nil
	}
	delete(s.db.protocols, id)
	var orphans []uuid.UUID
	for rid, r := range s.db.reviews {
		if r.ProtocolID == id {
			orphans = append(orphans, rid)
		}
	}
	for _, rid := range orphans {
		delete(s.db.reviews, rid)
	}
	s.db.dropProtoLock(id)
	s.db.persistLocked()
	return true, nil
}
