package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/benchwise/protolab-backend/internal/auth"
	"github.com/benchwise/protolab-backend/internal/pkg/logger"
)

const identityKey = "identity"

// Guard turns a Verifier into request-level authorization decisions. It is
// the only bridge between route handlers and the active identity adapter.
type Guard struct {
	log      *logger.Logger
	verifier auth.Verifier
}

func NewGuard(log *logger.Logger, verifier auth.Verifier) *Guard {
	return &Guard{log: log.With("middleware", "Guard"), verifier: verifier}
}

// Protect authenticates the request or rejects it with 401.
func (g *Guard) Protect() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := g.authenticate(c)
		if !ok {
			return
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}

// RequireRole authenticates and requires one of the given roles, rejecting
// with 403 when the identity verifies but lacks every role.
func (g *Guard) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := g.authenticate(c)
		if !ok {
			return
		}
		if !g.verifier.HasRole(identity, roles...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{"message": "insufficient role", "code": "forbidden"},
			})
			return
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}

func (g *Guard) authenticate(c *gin.Context) (*auth.Identity, bool) {
	credential := extractToken(c)
	if credential == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": gin.H{"message": "missing or invalid token", "code": "unauthorized"},
		})
		return nil, false
	}
	identity, err := g.verifier.Verify(c.Request.Context(), credential)
	if err != nil {
		g.log.Debug("Credential rejected", "error", err)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": gin.H{"message": "missing or invalid token", "code": "unauthorized"},
		})
		return nil, false
	}
	return identity, true
}

// IdentityFrom returns the verified identity a guard attached to the request,
// or nil on unguarded routes.
func IdentityFrom(c *gin.Context) *auth.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	identity, _ := v.(*auth.Identity)
	return identity
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	return ""
}
