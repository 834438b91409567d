package handler

import (
	"context"
	"net/http"
	"time"

	"reviewhub/internal/api/dto"
	"reviewhub/internal/api/middleware"
	"reviewhub/internal/api/policy"
	"reviewhub/internal/api/service"

	"github.com/gin-gonic/gin"
)

type ReviewHandler struct {
	svc service.ReviewService
}

func NewReviewHandler(svc service.ReviewService) *ReviewHandler {
	return &ReviewHandler{svc: svc}
}

// RegisterRoutes mounts the review routes nested under a title, the shape
// being /titles/:title_id/reviews/:review_id.
func (h *ReviewHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/:title_id/reviews", h.List)
	rg.GET("/:title_id/reviews/:review_id", h.Get)
	rg.POST("/:title_id/reviews", h.Create)
	rg.PATCH("/:title_id/reviews/:review_id", h.Update)
	rg.DELETE("/:title_id/reviews/:review_id", h.Delete)
}

func (h *ReviewHandler) List(c *gin.Context) {
	titleID, ok := parseID(c, "title_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid title id"})
		return
	}

	page, pageSize := parsePagination(c)
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	reviews, total, err := h.svc.ListByTitle(ctx, titleID, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]dto.ReviewResponse, 0, len(reviews))
	for _, review := range reviews {
		resp = append(resp, dto.ReviewFromModel(review))
	}
	c.JSON(http.StatusOK, dto.PaginatedReviewResponse{
		Data:       resp,
		Pagination: dto.NewPagination(page, pageSize, total),
	})
}

func (h *ReviewHandler) Get(c *gin.Context) {
	titleID, ok := parseID(c, "title_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid title id"})
		return
	}
	reviewID, ok := parseID(c, "review_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid review id"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	review, err := h.svc.GetByID(ctx, titleID, reviewID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ReviewFromModel(*review))
}

// Create handles POST /titles/:title_id/reviews. Any authenticated user may
// post; the one-review-per-title rule answers with a conflict.
func (h *ReviewHandler) Create(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	if err := policy.Authorize(actor, policy.ActionCreate, policy.Resource{Kind: policy.KindReview}); err != nil {
		respondError(c, err)
		return
	}

	titleID, ok := parseID(c, "title_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid title id"})
		return
	}

	var in dto.CreateReviewDTO
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	review, err := h.svc.Create(ctx, titleID, actor.ID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ReviewFromModel(*review))
}

// Update handles PATCH. Allowed for the author, a moderator or an admin; the
// decision needs the loaded review, so the policy check follows the fetch.
func (h *ReviewHandler) Update(c *gin.Context) {
	titleID, ok := parseID(c, "title_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid title id"})
		return
	}
	reviewID, ok := parseID(c, "review_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid review id"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	review, err := h.svc.GetByID(ctx, titleID, reviewID)
	if err != nil {
		respondError(c, err)
		return
	}

	actor := middleware.ActorFromContext(c)
	if err := policy.Authorize(actor, policy.ActionUpdate, policy.ReviewOf(review)); err != nil {
		respondError(c, err)
		return
	}

	var in dto.UpdateReviewDTO
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.svc.Update(ctx, review, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ReviewFromModel(*updated))
}

func (h *ReviewHandler) Delete(c *gin.Context) {
	titleID, ok := parseID(c, "title_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid title id"})
		return
	}
	reviewID, ok := parseID(c, "review_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid review id"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	review, err := h.svc.GetByID(ctx, titleID, reviewID)
	if err != nil {
		respondError(c, err)
		return
	}

	actor := middleware.ActorFromContext(c)
	if err := policy.Authorize(actor, policy.ActionDelete, policy.ReviewOf(review)); err != nil {
		respondError(c, err)
		return
	}

	if err := h.svc.Delete(ctx, review.ID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
