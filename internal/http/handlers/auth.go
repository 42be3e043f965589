package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/benchwise/protolab-backend/internal/auth"
	"github.com/benchwise/protolab-backend/internal/http/response"
	"github.com/benchwise/protolab-backend/internal/pkg/logger"
)

// AuthHandler serves registration and login for the local identity variant.
// With the delegated variant active the provider is nil and the routes are
// not registered; the broker owns the login flow.
type AuthHandler struct {
	log      *logger.Logger
	provider *auth.LocalProvider
}

func NewAuthHandler(log *logger.Logger, provider *auth.LocalProvider) *AuthHandler {
	return &AuthHandler{
		log:      log.With("handler", "AuthHandler"),
		provider: provider,
	}
}

func (h *AuthHandler) Enabled() bool { return h.provider != nil }

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_payload", err)
		return
	}
	created, err := h.provider.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.log.Error("Register failed", "error", err, "username", req.Username)
		response.RespondStoreError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"user": created})
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_payload", err)
		return
	}
	token, u, err := h.provider.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		response.RespondStoreError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"token": token, "user": u})
}
