package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/benchwise/protolab-backend/internal/data/store"
	types "github.com/benchwise/protolab-backend/internal/domain"
	"github.com/benchwise/protolab-backend/internal/http/middleware"
	"github.com/benchwise/protolab-backend/internal/http/response"
	"github.com/benchwise/protolab-backend/internal/pkg/logger"
)

type ReviewHandler struct {
	log     *logger.Logger
	reviews store.ReviewStore
}

func NewReviewHandler(log *logger.Logger, reviews store.ReviewStore) *ReviewHandler {
	return &ReviewHandler{
		log:     log.With("handler", "ReviewHandler"),
		reviews: reviews,
	}
}

func (h *ReviewHandler) ListByProtocol(c *gin.Context) {
	reviews, err := h.reviews.ListByProtocol(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.log.Error("List reviews failed", "error", err)
		response.RespondStoreError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"reviews": reviews})
}

type reviewCreateRequest struct {
	Rating      float64       `json:"rating" binding:"required,min=1,max=5"`
	Title       string        `json:"title"`
	Comment     string        `json:"comment"`
	Metrics     types.Metrics `json:"metrics"`
	Attachments []string      `json:"attachments"`
}

func (h *ReviewHandler) Add(c *gin.Context) {
	identity := middleware.IdentityFrom(c)
	if identity == nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	userID, err := uuid.Parse(identity.ID)
	if err != nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	var req reviewCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_payload", err)
		return
	}
	if !req.Metrics.Valid() {
		response.RespondError(c, http.StatusBadRequest, "invalid_metrics", nil)
		return
	}

	created, err := h.reviews.Add(c.Request.Context(), c.Param("id"), &types.Review{
		UserID:      userID,
		Rating:      req.Rating,
		Title:       req.Title,
		Comment:     req.Comment,
		Metrics:     req.Metrics,
		Attachments: req.Attachments,
	})
	if err != nil {
		h.log.Error("Add review failed", "error", err, "protocol_id", c.Param("id"))
		response.RespondStoreError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"review": created})
}

type reviewUpdateRequest struct {
	Rating  *float64       `json:"rating"`
	Title   *string        `json:"title"`
	Comment *string        `json:"comment"`
	Metrics *types.Metrics `json:"metrics"`
}

func (h *ReviewHandler) Update(c *gin.Context) {
	identity := middleware.IdentityFrom(c)
	if identity == nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	actorID, err := uuid.Parse(identity.ID)
	if err != nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}
	reviewID, err := uuid.Parse(c.Param("reviewId"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	var req reviewUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_payload", err)
		return
	}
	if req.Rating != nil && (*req.Rating < 1 || *req.Rating > 5) {
		response.RespondError(c, http.StatusBadRequest, "invalid_payload", nil)
		return
	}
	if req.Metrics != nil && !req.Metrics.Valid() {
		response.RespondError(c, http.StatusBadRequest, "invalid_metrics", nil)
		return
	}
	changes := map[string]any{}
	if req.Rating != nil {
		changes["rating"] = *req.Rating
	}
	if req.Title != nil {
		changes["title"] = *req.Title
	}
	if req.Comment != nil {
		changes["comment"] = *req.Comment
	}
	if req.Metrics != nil {
		changes["metrics"] = *req.Metrics
	}

	updated, err := h.reviews.Update(c.Request.Context(), reviewID, &actorID, changes)
	if err != nil {
		h.log.Error("Update review failed", "error", err, "review_id", reviewID)
		response.RespondStoreError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"review": updated})
}

func (h *ReviewHandler) Delete(c *gin.Context) {
	reviewID, err := uuid.Parse(c.Param("reviewId"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	removed, err := h.reviews.Delete(c.Request.Context(), reviewID)
	if err != nil {
		h.log.Error("Delete review failed", "error", err, "review_id", reviewID)
		response.RespondStoreError(c, err)
		return
	}
	if !removed {
		response.RespondError(c, http.StatusNotFound, "not_found", nil)
		return
	}
	response.RespondOK(c, gin.H{"deleted": true})
}
