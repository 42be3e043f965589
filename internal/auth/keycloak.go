package auth

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	"github.com/benchwise/protolab-backend/internal/pkg/errs"
	"github.com/benchwise/protolab-backend/internal/pkg/logger"
)

const keyFetchTimeout = 5 * time.Second

// KeycloakConfig identifies the realm the delegated verifier trusts.
type KeycloakConfig struct {
	BaseURL  string
	Realm    string
	ClientID string
}

type keycloakClaims struct {
	Username    string `json:"preferred_username"`
	AuthzParty  string `json:"azp"`
	RealmAccess struct {
		Roles []string `json:"roles"`
	} `json:"realm_access"`
	ResourceAccess map[string]struct {
		Roles []string `json:"roles"`
	} `json:"resource_access"`
	jwt.RegisteredClaims
}

var _ Verifier = (*KeycloakVerifier)(nil)

// KeycloakVerifier validates RS256 tokens against the realm's public signing
// key, fetched from the broker and cached. Identity roles are the union of
// realm roles and the client's resource roles.
type KeycloakVerifier struct {
	cfg    KeycloakConfig
	client *http.Client
	log    *logger.Logger

	mu    sync.RWMutex
	key   *rsa.PublicKey
	group singleflight.Group
}

// NewKeycloakVerifier fetches the realm key eagerly; an unreachable broker
// fails construction so the adapter selector can abort start-up.
func NewKeycloakVerifier(ctx context.Context, cfg KeycloakConfig, baseLog *logger.Logger) (*KeycloakVerifier, error) {
	v := &KeycloakVerifier{
		cfg:    cfg,
		client: &http.Client{Timeout: keyFetchTimeout},
		log:    baseLog.With("verifier", "keycloak", "realm", cfg.Realm),
	}
	if _, err := v.publicKey(ctx); err != nil {
		return nil, fmt.Errorf("keycloak verifier init: %w", err)
	}
	return v, nil
}

func (v *KeycloakVerifier) issuer() string {
	return fmt.Sprintf("%s/realms/%s", v.cfg.BaseURL, v.cfg.Realm)
}

// publicKey returns the cached realm key, fetching it once across concurrent
// callers when the cache is cold.
func (v *KeycloakVerifier) publicKey(ctx context.Context) (*rsa.PublicKey, error) {
	v.mu.RLock()
	key := v.key
	v.mu.RUnlock()
	if key != nil {
		return key, nil
	}

	result, err, _ := v.group.Do("realm-key", func() (any, error) {
		fetched, err := v.fetchKey(ctx)
		if err != nil {
			return nil, err
		}
		v.mu.Lock()
		v.key = fetched
		v.mu.Unlock()
		return fetched, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*rsa.PublicKey), nil
}

func (v *KeycloakVerifier) fetchKey(ctx context.Context) (*rsa.PublicKey, error) {
	reqCtx, cancel := context.WithTimeout(ctx, keyFetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, v.issuer(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch realm key: %v", errs.ErrConnection, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: realm endpoint returned %d", errs.ErrConnection, resp.StatusCode)
	}

	var realm struct {
		PublicKey string `json:"public_key"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&realm); err != nil {
		return nil, fmt.Errorf("decode realm response: %w", err)
	}
	der, err := base64.StdEncoding.DecodeString(realm.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("decode realm public key: %w", err)
	}
	parsed, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("parse realm public key: %w", err)
	}
	rsaKey, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("realm key is %T, expected RSA", parsed)
	}
	v.log.Info("Fetched realm public key")
	return rsaKey, nil
}

func (v *KeycloakVerifier) Verify(ctx context.Context, credential string) (*Identity, error) {
	key, err := v.publicKey(ctx)
	if err != nil {
		return nil, err
	}

	claims := &keycloakClaims{}
	token, err := jwt.ParseWithClaims(credential, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
		}
		return key, nil
	}, jwt.WithIssuer(v.issuer()), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", errs.ErrUnauthorized, err)
	}
	if !v.audienceAllowed(claims) {
		return nil, fmt.Errorf("%w: token not issued for client %s", errs.ErrUnauthorized, v.cfg.ClientID)
	}

	roles := append([]string{}, claims.RealmAccess.Roles...)
	if resource, ok := claims.ResourceAccess[v.cfg.ClientID]; ok {
		roles = append(roles, resource.Roles...)
	}
	return &Identity{
		ID:       claims.Subject,
		Username: claims.Username,
		Roles:    roles,
	}, nil
}

// audienceAllowed accepts a token whose aud list names the client or whose
// authorized party is the client, matching Keycloak's issuance shapes.
func (v *KeycloakVerifier) audienceAllowed(claims *keycloakClaims) bool {
	if claims.AuthzParty == v.cfg.ClientID {
		return true
	}
	for _, aud := range claims.Audience {
		if aud == v.cfg.ClientID {
			return true
		}
	}
	return false
}

func (v *KeycloakVerifier) HasRole(identity *Identity, roles ...string) bool {
	return hasAnyRole(identity, roles...)
}
