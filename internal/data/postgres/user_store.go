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

var _ store.UserStore = (*UserStore)(nil)

type UserStore struct {
	db  *gorm.DB
	log *logger.Logger
}

func (s *UserStore) Create(ctx context.Context, u *types.User) (*types.User, error) {
	cu := *u
	if cu.ID == uuid.Nil {
		cu.ID = uuid.New()
	}
	now := time.Now().UTC()
	if cu.CreatedAt.IsZero() {
		cu.CreatedAt = now
	}
	cu.UpdatedAt = now
	if cu.Role == "" {
		cu.Role = types.RoleUser
	}
	if err := s.db.WithContext(ctx).Create(&cu).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: user %s", errs.ErrDuplicateKey, cu.Username)
		}
		return nil, wrapDBErr("create user", err)
	}
	return &cu, nil
}

func (s *UserStore) GetByID(ctx context.Context, id uuid.UUID) (*types.User, error) {
	var u types.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrNotFound
		}
		return nil, wrapDBErr("get user", err)
	}
	return &u, nil
}

func (s *UserStore) GetByUsername(ctx context.Context, username string) (*types.User, error) {
	var u types.User
	if err := s.db.WithContext(ctx).First(&u, "username = ?", username).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrNotFound
		}
		return nil, wrapDBErr("get user", err)
	}
	return &u, nil
}
