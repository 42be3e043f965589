package app

import (
	"time"

	"github.com/benchwise/protolab-backend/internal/auth"
	"github.com/benchwise/protolab-backend/internal/pkg/logger"
	"github.com/benchwise/protolab-backend/internal/utils"
)

type Config struct {
	StorageAdapter string
	AuthAdapter    string

	JWTSecretKey   string
	AccessTokenTTL time.Duration

	MemoryStoreFile string

	Keycloak auth.KeycloakConfig

	Port string
}

func LoadConfig(log *logger.Logger) Config {
	accessTokenTTLSeconds := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	return Config{
		StorageAdapter:  utils.GetEnv("STORAGE_ADAPTER", StorageMemory, log),
		AuthAdapter:     utils.GetEnv("AUTH_ADAPTER", AuthLocal, log),
		JWTSecretKey:    utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log),
		AccessTokenTTL:  time.Duration(accessTokenTTLSeconds) * time.Second,
		MemoryStoreFile: utils.GetEnv("MEMORY_STORE_FILE", "", log),
		Keycloak: auth.KeycloakConfig{
			BaseURL:  utils.GetEnv("KEYCLOAK_BASE_URL", "http://localhost:8180", log),
			Realm:    utils.GetEnv("KEYCLOAK_REALM", "protolab", log),
			ClientID: utils.GetEnv("KEYCLOAK_CLIENT_ID", "protolab-backend", log),
		},
		Port: utils.GetEnv("PORT", "8080", log),
	}
}
