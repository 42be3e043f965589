package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/benchwise/protolab-backend/internal/data/store"
	types "github.com/benchwise/protolab-backend/internal/domain"
	"github.com/benchwise/protolab-backend/internal/pkg/errs"
	"github.com/benchwise/protolab-backend/internal/pkg/logger"
)

const localIssuer = "protolab"

type localClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

var _ Verifier = (*LocalVerifier)(nil)

// LocalVerifier checks self-issued HS256 tokens against a shared secret.
type LocalVerifier struct {
	secret []byte
	log    *logger.Logger
}

func NewLocalVerifier(secret string, baseLog *logger.Logger) *LocalVerifier {
	return &LocalVerifier{
		secret: []byte(secret),
		log:    baseLog.With("verifier", "local"),
	}
}

func (v *LocalVerifier) Verify(ctx context.Context, credential string) (*Identity, error) {
	claims := &localClaims{}
	token, err := jwt.ParseWithClaims(credential, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
		}
		return v.secret, nil
	}, jwt.WithIssuer(localIssuer), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", errs.ErrUnauthorized, err)
	}
	return &Identity{
		ID:       claims.Subject,
		Username: claims.Username,
		Roles:    []string{claims.Role},
	}, nil
}

func (v *LocalVerifier) HasRole(identity *Identity, roles ...string) bool {
	return hasAnyRole(identity, roles...)
}

// LocalProvider issues tokens for the local identity variant: registration
// and login against the backend's user store with bcrypt-hashed passwords.
type LocalProvider struct {
	verifier  *LocalVerifier
	users     store.UserStore
	accessTTL time.Duration
	log       *logger.Logger
}

func NewLocalProvider(verifier *LocalVerifier, users store.UserStore, accessTTL time.Duration, baseLog *logger.Logger) *LocalProvider {
	return &LocalProvider{
		verifier:  verifier,
		users:     users,
		accessTTL: accessTTL,
		log:       baseLog.With("service", "LocalProvider"),
	}
}

func (p *LocalProvider) Register(ctx context.Context, username, email, password string) (*types.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	created, err := p.users.Create(ctx, &types.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         types.RoleUser,
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Login verifies the password and returns a signed access token with the
// user record. A wrong username and a wrong password both surface as
// ErrUnauthorized.
func (p *LocalProvider) Login(ctx context.Context, username, password string) (string, *types.User, error) {
	u, err := p.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return "", nil, errs.ErrUnauthorized
		}
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", nil, errs.ErrUnauthorized
	}
	token, err := p.IssueToken(u)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

func (p *LocalProvider) IssueToken(u *types.User) (string, error) {
	now := time.Now()
	claims := localClaims{
		Username: u.Username,
		Role:     u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			Issuer:    localIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.accessTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(p.verifier.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
