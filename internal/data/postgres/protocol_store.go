package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/benchwise/protolab-backend/internal/data/store"
	types "github.com/benchwise/protolab-backend/internal/domain"
	"github.com/benchwise/protolab-backend/internal/pkg/errs"
	"github.com/benchwise/protolab-backend/internal/pkg/logger"
	"github.com/benchwise/protolab-backend/internal/utils"
)

var _ store.ProtocolStore = (*ProtocolStore)(nil)

type ProtocolStore struct {
	svc *PostgresService
	db  *gorm.DB
	log *logger.Logger
}

// NewStores builds the relational backend. All stores share the service's
// connection pool; operations spanning stores coordinate on one transaction.
func NewStores(svc *PostgresService, baseLog *logger.Logger) (*ProtocolStore, *ReviewStore, *BookmarkStore, *UserStore) {
	db := svc.DB()
	return &ProtocolStore{svc: svc, db: db, log: baseLog.With("store", "PostgresProtocolStore")},
		&ReviewStore{db: db, log: baseLog.With("store", "PostgresReviewStore")},
		&BookmarkStore{db: db, log: baseLog.With("store", "PostgresBookmarkStore")},
		&UserStore{db: db, log: baseLog.With("store", "PostgresUserStore")}
}

// Connect pings the engine within a bounded timeout and runs migrations.
// Idempotent; a second call re-pings and leaves the schema untouched.
func (s *ProtocolStore) Connect(ctx context.Context) error {
	if s.svc == nil {
		return nil
	}
	if err := s.svc.Ping(ctx); err != nil {
		return err
	}
	if err := s.svc.AutoMigrateAll(); err != nil {
		return fmt.Errorf("%w: migrate: %v", errs.ErrConnection, err)
	}
	return nil
}

func (s *ProtocolStore) Close() error {
	if s.svc == nil {
		return nil
	}
	return s.svc.Close()
}

func (s *ProtocolStore) List(ctx context.Context, filter store.ListFilter) ([]*types.Protocol, int64, error) {
	filter = filter.Normalized()

	q := s.db.WithContext(ctx).Model(&types.Protocol{})
	if filter.Category != "" && filter.Category != types.CategoryAll {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.MinRating > 0 {
		q = q.Where("rating >= ?", filter.MinRating)
	}
	if filter.Search != "" {
		needle := "%" + strings.ToLower(filter.Search) + "%"
		q = q.Where(
			"LOWER(name) LIKE ? OR LOWER(description) LIKE ? OR LOWER(category) LIKE ?",
			needle, needle, needle,
		)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, wrapDBErr("count protocols", err)
	}

	var column string
	switch filter.SortBy {
	case store.SortByName:
		column = "LOWER(name)"
	case store.SortByRating:
		column = "rating"
	default:
		column = "created_at"
	}
	direction := "DESC"
	if filter.SortDirection == store.SortAsc {
		direction = "ASC"
	}

	var results []*types.Protocol
	err := q.
		Order(fmt.Sprintf("%s %s", column, direction)).
		Order("id ASC").
		Offset((filter.Page - 1) * filter.Limit).
		Limit(filter.Limit).
		Find(&results).Error
	if err != nil {
		return nil, 0, wrapDBErr("list protocols", err)
	}
	if results == nil {
		results = []*types.Protocol{}
	}
	return results, total, nil
}

func (s *ProtocolStore) GetByID(ctx context.Context, id string) (*types.Protocol, error) {
	var p types.Protocol
	if err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrNotFound
		}
		return nil, wrapDBErr("get protocol", err)
	}
	return &p, nil
}

func (s *ProtocolStore) Create(ctx context.Context, protocol *types.Protocol) (*types.Protocol, error) {
	p := *protocol
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

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&types.Protocol{}).Where("id = ?", p.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: protocol %s", errs.ErrDuplicateKey, p.ID)
		}
		return tx.Create(&p).Error
	})
	if err != nil {
		if errors.Is(err, errs.ErrDuplicateKey) {
			return nil, err
		}
		return nil, wrapDBErr("create protocol", err)
	}
	return &p, nil
}

func (s *ProtocolStore) Update(ctx context.Context, id string, changes map[string]any) (*types.Protocol, error) {
	columns := protocolColumns(changes)
	var updated types.Protocol
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing types.Protocol
		if err := tx.First(&existing, "id = ?", id).Error; err != nil {
			return err
		}
		columns["updated_at"] = time.Now().UTC()
		if status, ok := columns["status"].(string); ok &&
			status == types.StatusPublished && existing.PublishedAt == nil {
			columns["published_at"] = time.Now().UTC()
		}
		if err := tx.Model(&types.Protocol{}).Where("id = ?", id).Updates(columns).Error; err != nil {
			return err
		}
		return tx.First(&updated, "id = ?", id).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrNotFound
		}
		return nil, wrapDBErr("update protocol", err)
	}
	return &updated, nil
}

// protocolColumns whitelists the updatable fields; the id and the derived
// aggregate columns are never writable through Update.
func protocolColumns(changes map[string]any) map[string]any {
	columns := map[string]any{}
	for key, val := range changes {
		switch key {
		case "name", "description", "category", "status", "visibility":
			columns[key] = val
		case "steps":
			if v, ok := val.([]types.Step); ok {
				columns[key] = datatypes.NewJSONSlice(v)
			}
		case "materials", "equipment":
			if v, ok := val.([]string); ok {
				columns[key] = datatypes.NewJSONSlice(v)
			}
		}
	}
	return columns
}

// Delete removes the protocol with its reviews and bookmarks in one
// transaction. Cascades are issued explicitly; migrations run with foreign
// key constraints disabled.
func (s *ProtocolStore) Delete(ctx context.Context, id string) (bool, error) {
	removed := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("protocol_id = ?", id).Delete(&types.Review{}).Error; err != nil {
			return err
		}
		if err := tx.Where("protocol_id = ?", id).Delete(&types.Bookmark{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&types.Protocol{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, wrapDBErr("delete protocol", err)
	}
	return removed, nil
}
