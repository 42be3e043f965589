package app

import (
	"context"
	"fmt"

	"github.com/benchwise/protolab-backend/internal/auth"
	"github.com/benchwise/protolab-backend/internal/data/memory"
	"github.com/benchwise/protolab-backend/internal/data/postgres"
	"github.com/benchwise/protolab-backend/internal/data/store"
	"github.com/benchwise/protolab-backend/internal/pkg/errs"
	"github.com/benchwise/protolab-backend/internal/pkg/logger"
)

// Adapter tags accepted from configuration.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"

	AuthLocal    = "local"
	AuthKeycloak = "keycloak"
)

// OpenStores is the storage axis of the adapter selector: it is the only
// function that knows the concrete store types, and it runs exactly once at
// start-up. An unknown tag aborts rather than defaulting.
func OpenStores(cfg Config, log *logger.Logger) (store.Stores, error) {
	switch cfg.StorageAdapter {
	case StorageMemory:
		protocols, reviews, users := memory.NewStores(log, cfg.MemoryStoreFile)
		return store.Stores{
			Protocols: protocols,
			Reviews:   reviews,
			Users:     users,
		}, nil
	case StoragePostgres:
		svc, err := postgres.NewPostgresService(log)
		if err != nil {
			return store.Stores{}, err
		}
		protocols, reviews, bookmarks, users := postgres.NewStores(svc, log)
		return store.Stores{
			Protocols: protocols,
			Reviews:   reviews,
			Bookmarks: bookmarks,
			Users:     users,
		}, nil
	default:
		return store.Stores{}, fmt.Errorf("%w: storage adapter %q", errs.ErrUnknownAdapterType, cfg.StorageAdapter)
	}
}

// NewVerifier is the identity axis of the adapter selector. The local
// variant also returns a token-issuing provider; the delegated variant
// returns a nil provider and fails construction when the broker is
// unreachable.
func NewVerifier(ctx context.Context, cfg Config, stores store.Stores, log *logger.Logger) (auth.Verifier, *auth.LocalProvider, error) {
	switch cfg.AuthAdapter {
	case AuthLocal:
		verifier := auth.NewLocalVerifier(cfg.JWTSecretKey, log)
		provider := auth.NewLocalProvider(verifier, stores.Users, cfg.AccessTokenTTL, log)
		return verifier, provider, nil
	case AuthKeycloak:
		verifier, err := auth.NewKeycloakVerifier(ctx, cfg.Keycloak, log)
		if err != nil {
			return nil, nil, err
		}
		return verifier, nil, nil
	default:
		return nil, nil, fmt.Errorf("%w: auth adapter %q", errs.ErrUnknownAdapterType, cfg.AuthAdapter)
	}
}
