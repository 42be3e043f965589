package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/benchwise/protolab-backend/internal/data/store"
	types "github.com/benchwise/protolab-backend/internal/domain"
	"github.com/benchwise/protolab-backend/internal/pkg/errs"
	"github.com/benchwise/protolab-backend/internal/pkg/logger"
)

var _ store.BookmarkStore = (*BookmarkStore)(nil)

type BookmarkStore struct {
	db  *gorm.DB
	log *logger.Logger
}

func (s *BookmarkStore) Add(ctx context.Context, protocolID string, userID uuid.UUID) (*types.Bookmark, error) {
	b := types.Bookmark{
		ID:         uuid.New(),
		ProtocolID: protocolID,
		UserID:     userID,
		CreatedAt:  time.Now().UTC(),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&types.Protocol{}).Where("id = ?", protocolID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("%w: %s", errs.ErrProtocolNotFound, protocolID)
		}
		if err := tx.Model(&types.Bookmark{}).
			Where("protocol_id = ? AND user_id = ?", protocolID, userID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: bookmark for protocol %s", errs.ErrDuplicateKey, protocolID)
		}
		return tx.Create(&b).Error
	})
	if err != nil {
		if errors.Is(err, errs.ErrProtocolNotFound) || errors.Is(err, errs.ErrDuplicateKey) {
			return nil, err
		}
		return nil, wrapDBErr("add bookmark", err)
	}
	return &b, nil
}

func (s *BookmarkStore) Remove(ctx context.Context, protocolID string, userID uuid.UUID) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("protocol_id = ? AND user_id = ?", protocolID, userID).
		Delete(&types.Bookmark{})
	if res.Error != nil {
		return false, wrapDBErr("remove bookmark", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *BookmarkStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*types.Bookmark, error) {
	var results []*types.Bookmark
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&results).Error
	if err != nil {
		return nil, wrapDBErr("list bookmarks", err)
	}
	if results == nil {
		results = []*types.Bookmark{}
	}
	return results, nil
}
