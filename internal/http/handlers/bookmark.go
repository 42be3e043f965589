package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/benchwise/protolab-backend/internal/data/store"
	"github.com/benchwise/protolab-backend/internal/http/middleware"
	"github.com/benchwise/protolab-backend/internal/http/response"
	"github.com/benchwise/protolab-backend/internal/pkg/logger"
)

// BookmarkHandler serves saved protocols. Bookmarks exist only on the
// relational backend; with the memory backend active the store is nil and
// every route answers not_supported.
type BookmarkHandler struct {
	log       *logger.Logger
	bookmarks store.BookmarkStore
}

func NewBookmarkHandler(log *logger.Logger, bookmarks store.BookmarkStore) *BookmarkHandler {
	return &BookmarkHandler{
		log:       log.With("handler", "BookmarkHandler"),
		bookmarks: bookmarks,
	}
}

func (h *BookmarkHandler) actor(c *gin.Context) (uuid.UUID, bool) {
	identity := middleware.IdentityFrom(c)
	if identity == nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(identity.ID)
	if err != nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return uuid.Nil, false
	}
	return userID, true
}

func (h *BookmarkHandler) supported(c *gin.Context) bool {
	if h.bookmarks == nil {
		response.RespondError(c, http.StatusNotFound, "not_supported", nil)
		return false
	}
	return true
}

func (h *BookmarkHandler) Add(c *gin.Context) {
	if !h.supported(c) {
		return
	}
	userID, ok := h.actor(c)
	if !ok {
		return
	}
	b, err := h.bookmarks.Add(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		response.RespondStoreError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"bookmark": b})
}

func (h *BookmarkHandler) Remove(c *gin.Context) {
	if !h.supported(c) {
		return
	}
	userID, ok := h.actor(c)
	if !ok {
		return
	}
	removed, err := h.bookmarks.Remove(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		response.RespondStoreError(c, err)
		return
	}
	if !removed {
		response.RespondError(c, http.StatusNotFound, "not_found", nil)
		return
	}
	response.RespondOK(c, gin.H{"deleted": true})
}

func (h *BookmarkHandler) ListMine(c *gin.Context) {
	if !h.supported(c) {
		return
	}
	userID, ok := h.actor(c)
	if !ok {
		return
	}
	bookmarks, err := h.bookmarks.ListByUser(c.Request.Context(), userID)
	if err != nil {
		response.RespondStoreError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"bookmarks": bookmarks})
}
