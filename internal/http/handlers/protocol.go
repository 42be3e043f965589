package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/benchwise/protolab-backend/internal/data/store"
	types "github.com/benchwise/protolab-backend/internal/domain"
	"github.com/benchwise/protolab-backend/internal/http/middleware"
	"github.com/benchwise/protolab-backend/internal/http/response"
	"github.com/benchwise/protolab-backend/internal/pkg/logger"
)

type ProtocolHandler struct {
	log       *logger.Logger
	protocols store.ProtocolStore
}

func NewProtocolHandler(log *logger.Logger, protocols store.ProtocolStore) *ProtocolHandler {
	return &ProtocolHandler{
		log:       log.With("handler", "ProtocolHandler"),
		protocols: protocols,
	}
}

func (h *ProtocolHandler) List(c *gin.Context) {
	filter := store.ListFilter{
		Category:      c.Query("category"),
		Search:        c.Query("search"),
		SortBy:        c.Query("sortBy"),
		SortDirection: c.Query("sortDirection"),
	}
	if v, err := strconv.Atoi(c.Query("page")); err == nil {
		filter.Page = v
	}
	if v, err := strconv.Atoi(c.Query("limit")); err == nil {
		filter.Limit = v
	}
	if v, err := strconv.ParseFloat(c.Query("minRating"), 64); err == nil {
		filter.MinRating = v
	}

	protocols, total, err := h.protocols.List(c.Request.Context(), filter)
	if err != nil {
		h.log.Error("List protocols failed", "error", err)
		response.RespondStoreError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"protocols": protocols, "total": total})
}

func (h *ProtocolHandler) Get(c *gin.Context) {
	p, err := h.protocols.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.RespondStoreError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"protocol": p})
}

type protocolCreateRequest struct {
	ID          string       `json:"id"`
	Name        string       `json:"name" binding:"required"`
	Description string       `json:"description"`
	Category    string       `json:"category"`
	Status      string       `json:"status"`
	Visibility  string       `json:"visibility"`
	Steps       []types.Step `json:"steps"`
	Materials   []string     `json:"materials"`
	Equipment   []string     `json:"equipment"`
}

func (h *ProtocolHandler) Create(c *gin.Context) {
	identity := middleware.IdentityFrom(c)
	if identity == nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var req protocolCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_payload", err)
		return
	}
	if req.Category != "" && !types.ValidCategory(req.Category) {
		response.RespondError(c, http.StatusBadRequest, "invalid_category", nil)
		return
	}
	authorID, err := uuid.Parse(identity.ID)
	if err != nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}

	created, err := h.protocols.Create(c.Request.Context(), &types.Protocol{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		AuthorID:    authorID,
		Status:      req.Status,
		Visibility:  req.Visibility,
		Steps:       req.Steps,
		Materials:   req.Materials,
		Equipment:   req.Equipment,
	})
	if err != nil {
		h.log.Error("Create protocol failed", "error", err)
		response.RespondStoreError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"protocol": created})
}

type protocolUpdateRequest struct {
	Name        *string       `json:"name"`
	Description *string       `json:"description"`
	Category    *string       `json:"category"`
	Status      *string       `json:"status"`
	Visibility  *string       `json:"visibility"`
	Steps       *[]types.Step `json:"steps"`
	Materials   *[]string     `json:"materials"`
	Equipment   *[]string     `json:"equipment"`
}

// Update merges the supplied fields. Only the protocol's author or an admin
// may mutate it.
func (h *ProtocolHandler) Update(c *gin.Context) {
	identity := middleware.IdentityFrom(c)
	if identity == nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	id := c.Param("id")

	existing, err := h.protocols.GetByID(c.Request.Context(), id)
	if err != nil {
		response.RespondStoreError(c, err)
		return
	}
	isOwner := existing.AuthorID.String() == identity.ID
	isAdmin := false
	for _, role := range identity.Roles {
		if role == types.RoleAdmin {
			isAdmin = true
		}
	}
	if !isOwner && !isAdmin {
		response.RespondError(c, http.StatusForbidden, "forbidden", nil)
		return
	}

	var req protocolUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_payload", err)
		return
	}
	if req.Category != nil && !types.ValidCategory(*req.Category) {
		response.RespondError(c, http.StatusBadRequest, "invalid_category", nil)
		return
	}
	changes := map[string]any{}
	if req.Name != nil {
		changes["name"] = *req.Name
	}
	if req.Description != nil {
		changes["description"] = *req.Description
	}
	if req.Category != nil {
		changes["category"] = *req.Category
	}
	if req.Status != nil {
		changes["status"] = *req.Status
	}
	if req.Visibility != nil {
		changes["visibility"] = *req.Visibility
	}
	if req.Steps != nil {
		changes["steps"] = *req.Steps
	}
	if req.Materials != nil {
		changes["materials"] = *req.Materials
	}
	if req.Equipment != nil {
		changes["equipment"] = *req.Equipment
	}

	updated, err := h.protocols.Update(c.Request.Context(), id, changes)
	if err != nil {
		h.log.Error("Update protocol failed", "error", err, "id", id)
		response.RespondStoreError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"protocol": updated})
}

func (h *ProtocolHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	removed, err := h.protocols.Delete(c.Request.Context(), id)
	if err != nil {
		h.log.Error("Delete protocol failed", "error", err, "id", id)
		response.RespondStoreError(c, err)
		return
	}
	if !removed {
		response.RespondError(c, http.StatusNotFound, "not_found", nil)
		return
	}
	response.RespondOK(c, gin.H{"deleted": true})
}
