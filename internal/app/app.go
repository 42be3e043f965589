package app

import (
	"context"
	"fmt"
	"os"

	"github.com/benchwise/protolab-backend/internal/auth"
	"github.com/benchwise/protolab-backend/internal/data/store"
	httpx "github.com/benchwise/protolab-backend/internal/http"
	httpH "github.com/benchwise/protolab-backend/internal/http/handlers"
	httpMW "github.com/benchwise/protolab-backend/internal/http/middleware"
	"github.com/benchwise/protolab-backend/internal/pkg/logger"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	Stores   store.Stores
	Verifier auth.Verifier
	Server   *httpx.Server
}

func New(ctx context.Context) (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	stores, err := OpenStores(cfg, log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("open stores: %w", err)
	}
	if err := stores.Protocols.Connect(ctx); err != nil {
		log.Sync()
		return nil, fmt.Errorf("connect storage backend: %w", err)
	}

	verifier, provider, err := NewVerifier(ctx, cfg, stores, log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init identity adapter: %w", err)
	}

	guard := httpMW.NewGuard(log, verifier)
	server := httpx.NewServer(httpx.RouterConfig{
		Guard:           guard,
		AuthHandler:     httpH.NewAuthHandler(log, provider),
		ProtocolHandler: httpH.NewProtocolHandler(log, stores.Protocols),
		ReviewHandler:   httpH.NewReviewHandler(log, stores.Reviews),
		BookmarkHandler: httpH.NewBookmarkHandler(log, stores.Bookmarks),
		HealthHandler:   httpH.NewHealthHandler(),
	})

	log.Info("Adapters selected",
		"storage", cfg.StorageAdapter,
		"auth", cfg.AuthAdapter,
	)

	return &App{
		Log:      log,
		Cfg:      cfg,
		Stores:   stores,
		Verifier: verifier,
		Server:   server,
	}, nil
}

func (a *App) Run() error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Server.Run(":" + a.Cfg.Port)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Stores.Protocols != nil {
		if err := a.Stores.Protocols.Close(); err != nil {
			a.Log.Warn("Closing storage backend failed", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
