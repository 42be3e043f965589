package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/benchwise/protolab-backend/internal/data/store"
	types "github.com/benchwise/protolab-backend/internal/domain"
	"github.com/benchwise/protolab-backend/internal/pkg/errs"
	"github.com/benchwise/protolab-backend/internal/pkg/logger"
)

var _ store.UserStore = (*UserStore)(nil)

// UserStore backs the local identity provider when the memory backend is
// selected.
type UserStore struct {
	db  *database
	log *logger.Logger
}

func (s *UserStore) Create(ctx context.Context, u *types.User) (*types.User, error) {
	if err := s.db.ready(); err != nil {
		return nil, err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, existing := range s.db.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return nil, fmt.Errorf("%w: user %s", errs.ErrDuplicateKey, u.Username)
		}
	}
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
	s.db.users[cu.ID] = &cu
	s.db.persistLocked()
	out := cu
	return &out, nil
}

func (s *UserStore) GetByID(ctx context.Context, id uuid.UUID) (*types.User, error) {
	if err := s.db.ready(); err != nil {
		return nil, err
	}
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	u, ok := s.db.users[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (s *UserStore) GetByUsername(ctx context.Context, username string) (*types.User, error) {
	if err := s.db.ready(); err != nil {
		return nil, err
	}
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	for _, u := range s.db.users {
		if u.Username == username {
			out := *u
			return &out, nil
		}
	}
	return nil, errs.ErrNotFound
}
